package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/smokyabdulrahman/prayer-countdown/internal/api"
	"github.com/smokyabdulrahman/prayer-countdown/internal/cache"
	"github.com/smokyabdulrahman/prayer-countdown/internal/geo"
)

type fixedClock time.Time

func (c fixedClock) Now() time.Time { return time.Time(c) }

// fakeAPI answers every calendar request with the same daily timings,
// or with 503 while down is set.
func fakeAPI(t *testing.T, down *atomic.Bool) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if down.Load() {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		var year, month int
		if _, err := fmt.Sscanf(r.URL.Path, "/calendar/%d/%d", &year, &month); err != nil {
			fmt.Sscanf(r.URL.Path, "/calendarByCity/%d/%d", &year, &month)
		}
		resp := api.CalendarResponse{Code: 200, Status: "OK"}
		n := time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
		for d := 1; d <= n; d++ {
			var data api.Data
			data.Timings = api.Timings{Fajr: "05:17", Dhuhr: "12:13", Asr: "15:02", Maghrib: "17:39", Isha: "19:10"}
			data.Date.Gregorian.Date = fmt.Sprintf("%02d-%02d-%04d", d, month, year)
			data.Meta.Timezone = "UTC"
			resp.Data = append(resp.Data, data)
		}
		json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func setup(t *testing.T, at time.Time) *atomic.Bool {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	down := &atomic.Bool{}
	srv := fakeAPI(t, down)

	prevClient, prevClock, prevDetect := newClient, clock, detect
	newClient = func() *api.Client { return api.NewClient(api.WithBaseURL(srv.URL)) }
	clock = fixedClock(at)
	detect = func(context.Context) (*geo.Location, error) { return nil, errors.New("offline") }
	t.Cleanup(func() { newClient, clock, detect = prevClient, prevClock, prevDetect })
	return down
}

func runArgs(args ...string) (code int, stdout, stderr string) {
	var out, errOut bytes.Buffer
	code = run(args, &out, &errOut)
	return code, out.String(), errOut.String()
}

var coords = []string{"--latitude", "24.7136", "--longitude", "46.6753"}

// ---------------------------------------------------------------------------
// Info flags
// ---------------------------------------------------------------------------

func TestVersionFlag(t *testing.T) {
	prev := version
	version = "v1.2.3-test"
	defer func() { version = prev }()

	code, out, _ := runArgs("--version")
	if code != 0 || out != "tmux-prayer-countdown v1.2.3-test\n" {
		t.Errorf("--version = %d %q", code, out)
	}
}

func TestListMethodsFlag(t *testing.T) {
	code, out, _ := runArgs("--list-methods")
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	for _, m := range []string{"ISNA", "Muslim World League", "Umm Al-Qura", "Jafari", "Ministry of Awqaf, Jordan"} {
		if !strings.Contains(out, m) {
			t.Errorf("--list-methods output missing %q", m)
		}
	}
}

func TestUnknownFlag(t *testing.T) {
	if code, _, _ := runArgs("--bogus"); code != 2 {
		t.Errorf("exit code = %d, want 2", code)
	}
}

// ---------------------------------------------------------------------------
// Status line
// ---------------------------------------------------------------------------

func TestStatusLine(t *testing.T) {
	at := time.Date(2026, 2, 28, 14, 0, 0, 0, time.UTC)

	tests := []struct {
		args []string
		want string
	}{
		{nil, "Asr 15:02"},
		{[]string{"--format", "time-remaining"}, "1h 2m 0s"},
		{[]string{"-f", "short-name-and-remaining"}, "A 1h 2m 0s"},
		{[]string{"--format", "{{.Name}}:{{.Hours}}:{{.Minutes}}"}, "Asr:1:2"},
		{[]string{"--time-format", "12h"}, "Asr 3:02 PM"},
	}
	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			setup(t, at)
			code, out, errOut := runArgs(append(tt.args, coords...)...)
			if code != 0 {
				t.Fatalf("exit code = %d: %s", code, errOut)
			}
			if out != tt.want {
				t.Errorf("output = %q, want %q", out, tt.want)
			}
		})
	}
}

func TestStatusLine_AfterIsha(t *testing.T) {
	setup(t, time.Date(2026, 2, 28, 22, 0, 0, 0, time.UTC))

	_, out, _ := runArgs(append([]string{"--format", "name-and-remaining"}, coords...)...)
	if out != "Fajr 7h 17m 0s" {
		t.Errorf("output = %q, want tomorrow's Fajr", out)
	}
}

func TestStatusLine_DueShowsNow(t *testing.T) {
	setup(t, time.Date(2026, 2, 28, 17, 39, 0, 0, time.UTC))

	_, out, _ := runArgs(append([]string{"--format", "name-and-remaining"}, coords...)...)
	if out != "Maghrib now" {
		t.Errorf("output = %q, want Maghrib now", out)
	}
}

func TestStatusLine_APIDown(t *testing.T) {
	down := setup(t, time.Date(2026, 2, 28, 14, 0, 0, 0, time.UTC))
	down.Store(true)

	code, out, _ := runArgs(coords...)
	if code != 0 {
		t.Errorf("exit code = %d, want 0 so the status bar is not flooded with errors", code)
	}
	if out != "--:--" {
		t.Errorf("output = %q, want placeholder", out)
	}
}

func TestStatusLine_CachedAfterFirstRun(t *testing.T) {
	down := setup(t, time.Date(2026, 2, 10, 14, 0, 0, 0, time.UTC))
	cacheDir := t.TempDir()

	args := append([]string{"--cache-dir", cacheDir}, coords...)
	if _, out, _ := runArgs(args...); out != "Asr 15:02" {
		t.Fatalf("first run = %q", out)
	}
	down.Store(true)
	if _, out, _ := runArgs(args...); out != "Asr 15:02" {
		t.Errorf("cached run = %q, want Asr 15:02", out)
	}
}

func TestStatusLine_CityRequiresCountry(t *testing.T) {
	setup(t, time.Now())

	code, _, errOut := runArgs("--city", "Riyadh")
	if code != 1 || !strings.Contains(errOut, "--country is required") {
		t.Errorf("exit code = %d, stderr = %q", code, errOut)
	}
}

func TestStatusLine_NoLocationAndDetectionFails(t *testing.T) {
	setup(t, time.Now())

	code, _, errOut := runArgs("--cache-dir", t.TempDir())
	if code != 1 || !strings.Contains(errOut, "auto-detection failed") {
		t.Errorf("exit code = %d, stderr = %q", code, errOut)
	}
}

func TestStatusLine_DetectedLocationIsCached(t *testing.T) {
	setup(t, time.Date(2026, 2, 28, 14, 0, 0, 0, time.UTC))
	cacheDir := t.TempDir()

	var calls atomic.Int32
	detect = func(context.Context) (*geo.Location, error) {
		calls.Add(1)
		return &geo.Location{Latitude: 24.7136, Longitude: 46.6753, City: "Riyadh", Country: "Saudi Arabia", Timezone: "UTC"}, nil
	}

	for i := 0; i < 2; i++ {
		if code, out, errOut := runArgs("--cache-dir", cacheDir); code != 0 || out != "Asr 15:02" {
			t.Fatalf("run %d = %d %q %s", i, code, out, errOut)
		}
	}
	if calls.Load() != 1 {
		t.Errorf("detector called %d times, want 1", calls.Load())
	}

	store, err := cache.NewFileStore(cacheDir)
	if err != nil {
		t.Fatal(err)
	}
	loc, err := location(context.Background(), options{}, store)
	if err != nil {
		t.Fatal(err)
	}
	if loc.Label() != "Riyadh, Saudi Arabia" || loc.Timezone != "UTC" {
		t.Errorf("cached location = %+v, want Riyadh with its zone", loc)
	}
}
