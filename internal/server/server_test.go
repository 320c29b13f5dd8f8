package server

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/smokyabdulrahman/prayer-countdown/internal/api"
	"github.com/smokyabdulrahman/prayer-countdown/internal/prayer"
	"github.com/smokyabdulrahman/prayer-countdown/internal/provider"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fixedClock time.Time

func (c fixedClock) Now() time.Time { return time.Time(c) }

type fakeTable struct {
	loc  provider.Location
	fail bool
}

func (f *fakeTable) Location() provider.Location { return f.loc }

func (f *fakeTable) Day(_ context.Context, date time.Time) (*provider.Day, error) {
	if f.fail {
		return nil, provider.ErrNoData
	}
	y, m, d := date.Date()
	raw := api.Data{}
	raw.Date.Hijri = api.HijriDate{Day: "26", Year: "1447"}
	raw.Date.Hijri.Month.En = "Shaʿbān"
	return &provider.Day{
		Date: time.Date(y, m, d, 0, 0, 0, 0, time.UTC),
		Zone: time.UTC,
		Timings: prayer.DayTimings{
			prayer.Fajr:    {Hour: 5, Minute: 30},
			prayer.Sunrise: {Hour: 6, Minute: 55},
			prayer.Dhuhr:   {Hour: 12, Minute: 30},
			prayer.Asr:     {Hour: 15, Minute: 45},
			prayer.Maghrib: {Hour: 18, Minute: 10},
			prayer.Isha:    {Hour: 20, Minute: 0},
		},
		Raw: raw,
	}, nil
}

func quietLog() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

var casablanca = provider.Location{Mode: provider.ModeCity, City: "Casablanca", Country: "Morocco"}

func newTestServer(table Table, at time.Time, opts ...Option) *Server {
	opts = append([]Option{WithClock(fixedClock(at)), WithLogger(quietLog())}, opts...)
	return New(table, opts...)
}

func get(t *testing.T, s *Server, target string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %v (%q)", err, rec.Body.String())
	}
	return rec, body
}

// ---------------------------------------------------------------------------
// /healthz and middleware
// ---------------------------------------------------------------------------

func TestHealthz(t *testing.T) {
	s := newTestServer(&fakeTable{loc: casablanca}, time.Now())

	rec, body := get(t, s, "/healthz")
	if rec.Code != http.StatusOK || body["status"] != "ok" {
		t.Errorf("healthz = %d %v", rec.Code, body)
	}
}

func TestRequestID(t *testing.T) {
	s := newTestServer(&fakeTable{loc: casablanca}, time.Now())

	rec, _ := get(t, s, "/healthz")
	if len(rec.Header().Get(requestIDHeader)) != 36 {
		t.Errorf("generated request id = %q, want a UUID", rec.Header().Get(requestIDHeader))
	}

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if got := rec.Header().Get(requestIDHeader); got != "abc-123" {
		t.Errorf("request id = %q, want the caller's", got)
	}
}

func TestCORS(t *testing.T) {
	s := newTestServer(&fakeTable{loc: casablanca}, time.Now())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "http://widget.local")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}
}

// ---------------------------------------------------------------------------
// /api/next
// ---------------------------------------------------------------------------

func TestNext_Upcoming(t *testing.T) {
	at := time.Date(2026, 2, 14, 15, 0, 0, 0, time.UTC)
	s := newTestServer(&fakeTable{loc: casablanca}, at)

	rec, body := get(t, s, "/api/next")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	want := map[string]any{
		"nextPrayerName":   "Asr",
		"remainingDisplay": "0h 45m 0s",
		"state":            "upcoming",
		"at":               "2026-02-14T15:45:00Z",
		"location":         "Casablanca, Morocco",
	}
	for k, v := range want {
		if body[k] != v {
			t.Errorf("%s = %v, want %v", k, body[k], v)
		}
	}
}

func TestNext_AfterIsha(t *testing.T) {
	at := time.Date(2026, 2, 14, 23, 50, 0, 0, time.UTC)
	s := newTestServer(&fakeTable{loc: casablanca}, at)

	_, body := get(t, s, "/api/next")
	if body["nextPrayerName"] != "Fajr" || body["remainingDisplay"] != "5h 40m 0s" {
		t.Errorf("body = %v, want Fajr in 5h 40m 0s", body)
	}
}

func TestNext_Due(t *testing.T) {
	at := time.Date(2026, 2, 14, 18, 10, 0, 0, time.UTC)
	s := newTestServer(&fakeTable{loc: casablanca}, at)

	_, body := get(t, s, "/api/next")
	if body["state"] != "due" || body["remainingDisplay"] != prayer.MarkerNow {
		t.Errorf("body = %v, want Maghrib due", body)
	}
}

func TestNext_ProviderFailureIsUndetermined(t *testing.T) {
	s := newTestServer(&fakeTable{loc: casablanca, fail: true}, time.Now())

	rec, body := get(t, s, "/api/next")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if v, ok := body["nextPrayerName"]; !ok || v != nil {
		t.Errorf("nextPrayerName = %v, want null", v)
	}
	if body["state"] != "undetermined" {
		t.Errorf("state = %v", body["state"])
	}
	if _, ok := body["at"]; ok {
		t.Error("at should be omitted")
	}
}

func TestNext_LocationOverride(t *testing.T) {
	var got provider.Location
	factory := func(loc provider.Location) Table {
		got = loc
		return &fakeTable{loc: loc}
	}
	at := time.Date(2026, 2, 14, 10, 0, 0, 0, time.UTC)
	s := newTestServer(&fakeTable{loc: casablanca}, at, WithTableFactory(factory))

	_, body := get(t, s, "/api/next?latitude=21.4225&longitude=39.8262")
	if got.Mode != provider.ModeCoordinates || got.Lat != 21.4225 || got.Lon != 39.8262 {
		t.Errorf("factory location = %+v", got)
	}
	if body["location"] != "21.4225, 39.8262" {
		t.Errorf("location = %v", body["location"])
	}

	_, body = get(t, s, "/api/next?city=Rabat&country=Morocco")
	if got.Mode != provider.ModeCity || got.City != "Rabat" {
		t.Errorf("factory location = %+v", got)
	}
	if body["location"] != "Rabat, Morocco" {
		t.Errorf("location = %v", body["location"])
	}
}

func TestNext_BadOverride(t *testing.T) {
	factory := func(loc provider.Location) Table { return &fakeTable{loc: loc} }
	s := newTestServer(&fakeTable{loc: casablanca}, time.Now(), WithTableFactory(factory))

	for _, q := range []string{
		"latitude=abc&longitude=1",
		"latitude=95&longitude=1",
		"latitude=10",
		"city=Rabat",
	} {
		rec, body := get(t, s, "/api/next?"+q)
		if rec.Code != http.StatusBadRequest || body["error"] == nil {
			t.Errorf("%s: status = %d body = %v, want 400 with error", q, rec.Code, body)
		}
	}
}

func TestNext_OverrideDisabled(t *testing.T) {
	s := newTestServer(&fakeTable{loc: casablanca}, time.Now())

	rec, _ := get(t, s, "/api/next?city=Rabat&country=Morocco")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

// ---------------------------------------------------------------------------
// /api/today
// ---------------------------------------------------------------------------

func TestToday(t *testing.T) {
	at := time.Date(2026, 2, 14, 10, 0, 0, 0, time.UTC)
	s := newTestServer(&fakeTable{loc: casablanca}, at)

	rec, body := get(t, s, "/api/today")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body["date"] != "2026-02-14" {
		t.Errorf("date = %v", body["date"])
	}
	if body["hijri"] != "26 Shaʿbān 1447 AH" {
		t.Errorf("hijri = %v", body["hijri"])
	}
	timings, _ := body["timings"].(map[string]any)
	if len(timings) != 6 || timings["Fajr"] != "05:30" || timings["Sunrise"] != "06:55" {
		t.Errorf("timings = %v", timings)
	}
}

func TestToday_ProviderFailure(t *testing.T) {
	s := newTestServer(&fakeTable{loc: casablanca, fail: true}, time.Now())

	rec, body := get(t, s, "/api/today")
	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
	if body["error"] == nil {
		t.Error("expected error message")
	}
}

// ---------------------------------------------------------------------------
// Run
// ---------------------------------------------------------------------------

func TestRun_GracefulShutdown(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := l.Addr().String()
	l.Close()

	s := newTestServer(&fakeTable{loc: casablanca}, time.Now())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, addr) }()

	var resp *http.Response
	for i := 0; i < 50; i++ {
		resp, err = http.Get("http://" + addr + "/healthz")
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("server never came up: %v", err)
	}
	resp.Body.Close()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRun_ListenError(t *testing.T) {
	s := newTestServer(&fakeTable{loc: casablanca}, time.Now())
	if err := s.Run(context.Background(), "256.0.0.1:bad"); err == nil {
		t.Error("Run with an invalid address should fail")
	}
}
