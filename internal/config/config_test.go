package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/smokyabdulrahman/prayer-countdown/internal/prayer"
)

// tempConfigPath returns a path to a config file inside a temp directory.
func tempConfigPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "config.json")
}

// --- Defaults ---

func TestDefaults(t *testing.T) {
	d := Defaults()

	if d.Method == nil || *d.Method != -1 {
		t.Errorf("Defaults().Method = %v, want -1", d.Method)
	}
	if d.School == nil || *d.School != -1 {
		t.Errorf("Defaults().School = %v, want -1", d.School)
	}

	want := map[string]string{
		"time_format":   "24h",
		"cache_backend": "file",
		"log_level":     "warn",
		"log_format":    "text",
		"listen_addr":   ":8080",
		"mqtt_topic":    "prayer-countdown/next",
		"city":          "",
		"latitude":      "",
		"prayers":       "",
	}
	for key, w := range want {
		if got, _ := d.Get(key); got != w {
			t.Errorf("Defaults() %s = %q, want %q", key, got, w)
		}
	}
}

// --- Dir and Path with XDG ---

func TestDir_XDGConfigHome(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg-test")

	dir, err := Dir()
	if err != nil {
		t.Fatalf("Dir() error: %v", err)
	}

	want := filepath.Join("/tmp/xdg-test", "prayer-countdown")
	if dir != want {
		t.Errorf("Dir() = %q, want %q", dir, want)
	}
}

func TestDir_FallbackToHome(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "")

	dir, err := Dir()
	if err != nil {
		t.Fatalf("Dir() error: %v", err)
	}

	home, _ := os.UserHomeDir()
	want := filepath.Join(home, ".config", "prayer-countdown")
	if dir != want {
		t.Errorf("Dir() = %q, want %q", dir, want)
	}
}

func TestPath_XDGConfigHome(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg-test")

	p, err := Path()
	if err != nil {
		t.Fatalf("Path() error: %v", err)
	}

	want := filepath.Join("/tmp/xdg-test", "prayer-countdown", "config.json")
	if p != want {
		t.Errorf("Path() = %q, want %q", p, want)
	}
}

// --- LoadFrom ---

func TestLoadFrom_NonExistentFile(t *testing.T) {
	cfg, err := LoadFrom("/no/such/file.json")
	if err != nil {
		t.Fatalf("LoadFrom non-existent should not error, got: %v", err)
	}
	if cfg.City != "" || cfg.Method != nil {
		t.Error("LoadFrom non-existent should return empty config")
	}
}

func TestLoadFrom_InvalidJSON(t *testing.T) {
	path := tempConfigPath(t)
	if err := os.WriteFile(path, []byte("{bad json"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadFrom(path); err == nil {
		t.Fatal("LoadFrom with invalid JSON should error")
	}
}

func TestLoadFrom_MethodZero(t *testing.T) {
	// Method 0 (Jafari) is valid and must be distinguishable from "not set".
	path := tempConfigPath(t)
	if err := os.WriteFile(path, []byte(`{"method": 0}`), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom error: %v", err)
	}
	if cfg.Method == nil || *cfg.Method != 0 {
		t.Errorf("Method = %v, want 0", cfg.Method)
	}
}

// --- SaveTo ---

func TestSaveAndLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.json")

	method := 21
	school := 0
	original := &Config{
		City:           "Casablanca",
		Country:        "Morocco",
		Latitude:       33.5731,
		Longitude:      -7.5898,
		Method:         &method,
		School:         &school,
		TimeFormat:     "12h",
		Prayers:        "Fajr,Dhuhr,Asr,Maghrib,Isha",
		CacheDir:       "/tmp/cache",
		CacheBackend:   "sql",
		SQLDSN:         "/tmp/cache.db",
		LogLevel:       "debug",
		LogFormat:      "json",
		ListenAddr:     ":9090",
		MQTTBroker:     "tcp://localhost:1883",
		MQTTTopic:      "home/prayer",
		TelegramToken:  "123:abc",
		TelegramChatID: -1001234,
	}

	if err := original.SaveTo(path); err != nil {
		t.Fatalf("SaveTo error: %v", err)
	}

	data, _ := os.ReadFile(path)
	if len(data) == 0 || data[len(data)-1] != '\n' {
		t.Error("saved file should end with a newline")
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom error: %v", err)
	}
	if !reflect.DeepEqual(loaded, original) {
		t.Errorf("round trip mismatch:\n got  %+v\n want %+v", loaded, original)
	}
}

func TestSaveTo_PrivatePermissions(t *testing.T) {
	path := tempConfigPath(t)
	if err := (&Config{TelegramToken: "secret"}).SaveTo(path); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("permissions = %o, want 600", perm)
	}
}

// --- ResetAt ---

func TestResetAt_DeletesFile(t *testing.T) {
	path := tempConfigPath(t)
	if err := (&Config{City: "Rabat"}).SaveTo(path); err != nil {
		t.Fatal(err)
	}

	if err := ResetAt(path); err != nil {
		t.Fatalf("ResetAt error: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("ResetAt should have deleted the file")
	}
}

func TestResetAt_NonExistentFile(t *testing.T) {
	if err := ResetAt("/no/such/file.json"); err != nil {
		t.Errorf("ResetAt on non-existent file should not error, got: %v", err)
	}
}

// --- Set / Get ---

func TestSet_Valid(t *testing.T) {
	tests := []struct {
		key   string
		value string
		want  string // Get after Set; empty means same as value
	}{
		{"city", "Casablanca", ""},
		{"country", "Morocco", ""},
		{"latitude", "33.5731", ""},
		{"latitude", "-90", ""},
		{"longitude", "-7.5898", ""},
		{"longitude", "180", ""},
		{"method", "0", ""},
		{"method", "23", ""},
		{"school", "1", ""},
		{"time_format", "12h", ""},
		{"prayers", "fajr, Isha", ""},
		{"cache_dir", "/var/cache/pc", ""},
		{"cache_backend", "redis", ""},
		{"cache_backend", "none", ""},
		{"redis_addr", "localhost:6380", ""},
		{"sql_dsn", "postgres://localhost/pc", ""},
		{"log_level", "DEBUG", "debug"},
		{"log_format", "json", ""},
		{"listen_addr", "127.0.0.1:8081", ""},
		{"mqtt_broker", "tcp://broker:1883", ""},
		{"mqtt_topic", "home/prayer/next", ""},
		{"telegram_token", "123:abc", ""},
		{"telegram_chat_id", "-1001234", ""},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			cfg := &Config{}
			if err := cfg.Set(tt.key, tt.value); err != nil {
				t.Fatalf("Set(%q, %q) error: %v", tt.key, tt.value, err)
			}
			want := tt.want
			if want == "" {
				want = tt.value
			}
			got, err := cfg.Get(tt.key)
			if err != nil {
				t.Fatalf("Get(%q) error: %v", tt.key, err)
			}
			if got != want {
				t.Errorf("Get(%q) = %q, want %q", tt.key, got, want)
			}
		})
	}
}

func TestSet_Invalid(t *testing.T) {
	tests := []struct {
		key     string
		value   string
		wantErr string
	}{
		{"latitude", "abc", "must be a number"},
		{"latitude", "91", "between -90 and 90"},
		{"longitude", "-181", "between -180 and 180"},
		{"method", "x", "must be an integer"},
		{"method", "24", "between 0 and 23"},
		{"method", "-1", "between 0 and 23"},
		{"school", "2", "0 (Shafi) or 1 (Hanafi)"},
		{"time_format", "25h", "12h"},
		{"prayers", "Fajr,Tahajjud", "Tahajjud"},
		{"cache_backend", "memcached", "file, redis, sql or none"},
		{"log_level", "loud", "log_level"},
		{"log_format", "xml", "text"},
		{"mqtt_topic", "home/#", "wildcards"},
		{"mqtt_topic", "", "wildcards"},
		{"telegram_chat_id", "@channel", "must be an integer"},
		{"color", "red", "unknown config key"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			cfg := &Config{}
			err := cfg.Set(tt.key, tt.value)
			if err == nil {
				t.Fatalf("Set(%q, %q) should fail", tt.key, tt.value)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestGet_EmptyConfig(t *testing.T) {
	cfg := &Config{}
	for _, key := range ValidKeys {
		v, err := cfg.Get(key)
		if err != nil {
			t.Errorf("Get(%q) error: %v", key, err)
		}
		if v != "" {
			t.Errorf("Get(%q) on empty config = %q, want empty", key, v)
		}
	}
}

func TestGet_UnknownKey(t *testing.T) {
	if _, err := (&Config{}).Get("nope"); err == nil {
		t.Error("Get unknown key should error")
	}
}

func TestValidKeys_AllRoundTrip(t *testing.T) {
	seen := map[string]bool{}
	for _, key := range ValidKeys {
		if seen[key] {
			t.Errorf("duplicate key %q", key)
		}
		seen[key] = true
		if _, err := (&Config{}).Get(key); err != nil {
			t.Errorf("key %q not handled by Get", key)
		}
	}
	for key := range SecretKeys {
		if !seen[key] {
			t.Errorf("secret key %q is not a valid key", key)
		}
	}
}

// --- Defaults helpers ---

func TestMethodAndSchoolOrDefault(t *testing.T) {
	zero := 0
	cfg := &Config{Method: &zero}
	if got := cfg.MethodOrDefault(-1); got != 0 {
		t.Errorf("MethodOrDefault = %d, want 0", got)
	}
	if got := cfg.SchoolOrDefault(-1); got != -1 {
		t.Errorf("SchoolOrDefault = %d, want -1", got)
	}
}

func TestPrayerList(t *testing.T) {
	cfg := &Config{}
	if got := cfg.PrayerList(); got != nil {
		t.Errorf("PrayerList unset = %v, want nil", got)
	}

	cfg.Prayers = "fajr, Maghrib,isha"
	want := []prayer.Name{prayer.Fajr, prayer.Maghrib, prayer.Isha}
	if got := cfg.PrayerList(); !reflect.DeepEqual(got, want) {
		t.Errorf("PrayerList = %v, want %v", got, want)
	}
}

// --- Merge ---

func TestMerge(t *testing.T) {
	base := Defaults()
	method := 21
	file := &Config{City: "Casablanca", Country: "Morocco", Method: &method, LogLevel: "info"}

	base.Merge(file)

	if base.City != "Casablanca" || base.Country != "Morocco" {
		t.Errorf("location not merged: %+v", base)
	}
	if *base.Method != 21 {
		t.Errorf("Method = %d, want 21", *base.Method)
	}
	if *base.School != -1 {
		t.Errorf("School = %d, want default -1", *base.School)
	}
	if base.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", base.LogLevel)
	}
	if base.TimeFormat != "24h" {
		t.Errorf("TimeFormat = %q, want default 24h", base.TimeFormat)
	}
}

// --- Environment ---

func TestEnvName(t *testing.T) {
	if got := EnvName("telegram_chat_id"); got != "PRAYER_COUNTDOWN_TELEGRAM_CHAT_ID" {
		t.Errorf("EnvName = %q", got)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("PRAYER_COUNTDOWN_CITY", "Rabat")
	t.Setenv("PRAYER_COUNTDOWN_METHOD", "21")
	t.Setenv("PRAYER_COUNTDOWN_COUNTRY", "")

	cfg := &Config{City: "Casablanca", Country: "Morocco"}
	if err := cfg.ApplyEnv(); err != nil {
		t.Fatalf("ApplyEnv error: %v", err)
	}
	if cfg.City != "Rabat" {
		t.Errorf("City = %q, want Rabat", cfg.City)
	}
	if cfg.Country != "Morocco" {
		t.Errorf("empty variable should not override, Country = %q", cfg.Country)
	}
	if cfg.Method == nil || *cfg.Method != 21 {
		t.Errorf("Method = %v, want 21", cfg.Method)
	}
}

func TestApplyEnv_Invalid(t *testing.T) {
	t.Setenv("PRAYER_COUNTDOWN_LATITUDE", "north")

	err := (&Config{}).ApplyEnv()
	if err == nil || !strings.Contains(err.Error(), "PRAYER_COUNTDOWN_LATITUDE") {
		t.Errorf("ApplyEnv error = %v, want it to name the variable", err)
	}
}

func TestLoadEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "PRAYER_COUNTDOWN_CITY=Fez\nPRAYER_COUNTDOWN_COUNTRY=Morocco\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	// Real environment wins over the file.
	t.Setenv("PRAYER_COUNTDOWN_COUNTRY", "Maroc")
	// Registered so the variable loaded from the file is cleared afterwards.
	t.Setenv("PRAYER_COUNTDOWN_CITY", "")
	os.Unsetenv("PRAYER_COUNTDOWN_CITY")

	if err := LoadEnv(path); err != nil {
		t.Fatalf("LoadEnv error: %v", err)
	}
	if got := os.Getenv("PRAYER_COUNTDOWN_CITY"); got != "Fez" {
		t.Errorf("CITY = %q, want Fez", got)
	}
	if got := os.Getenv("PRAYER_COUNTDOWN_COUNTRY"); got != "Maroc" {
		t.Errorf("COUNTRY = %q, want the pre-set value", got)
	}
}

func TestLoadEnv_MissingFile(t *testing.T) {
	if err := LoadEnv(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Errorf("LoadEnv on missing file should not error, got: %v", err)
	}
}

func TestConfig_OmitEmpty_JSON(t *testing.T) {
	data, err := json.Marshal(&Config{})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "{}" {
		t.Errorf("empty Config JSON = %s, want {}", data)
	}
}
