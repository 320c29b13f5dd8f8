// Package config provides persistent configuration for prayer-countdown.
//
// Configuration is stored as JSON at ~/.config/prayer-countdown/config.json
// (XDG-compliant). Environment variables named PRAYER_COUNTDOWN_<KEY>, also
// read from a .env file, override the file. The merge priority is:
// CLI flags > environment > config file > defaults.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/smokyabdulrahman/prayer-countdown/internal/prayer"
)

const (
	configDirName  = "prayer-countdown"
	configFileName = "config.json"

	// EnvPrefix prefixes the upper-cased key of every environment override.
	EnvPrefix = "PRAYER_COUNTDOWN_"
)

// ValidKeys lists all config keys that can be set via `config set`.
var ValidKeys = []string{
	"city", "country",
	"latitude", "longitude",
	"method", "school",
	"time_format",
	"prayers",
	"cache_dir", "cache_backend", "redis_addr", "sql_dsn",
	"log_level", "log_format",
	"listen_addr",
	"mqtt_broker", "mqtt_topic",
	"telegram_token", "telegram_chat_id",
}

// SecretKeys are masked by `config show`.
var SecretKeys = map[string]bool{
	"telegram_token": true,
	"sql_dsn":        true,
}

// Config holds all user-configurable settings.
// Zero values mean "not set" (use defaults or auto-detect).
type Config struct {
	City           string  `json:"city,omitempty"`
	Country        string  `json:"country,omitempty"`
	Latitude       float64 `json:"latitude,omitempty"`
	Longitude      float64 `json:"longitude,omitempty"`
	Method         *int    `json:"method,omitempty"`      // pointer so we can distinguish "not set" from 0
	School         *int    `json:"school,omitempty"`      // pointer so we can distinguish "not set" from 0
	TimeFormat     string  `json:"time_format,omitempty"` // "12h" or "24h"
	Prayers        string  `json:"prayers,omitempty"`     // comma-separated list
	CacheDir       string  `json:"cache_dir,omitempty"`
	CacheBackend   string  `json:"cache_backend,omitempty"` // file, redis, sql or none
	RedisAddr      string  `json:"redis_addr,omitempty"`
	SQLDSN         string  `json:"sql_dsn,omitempty"`
	LogLevel       string  `json:"log_level,omitempty"`
	LogFormat      string  `json:"log_format,omitempty"` // "text" or "json"
	ListenAddr     string  `json:"listen_addr,omitempty"`
	MQTTBroker     string  `json:"mqtt_broker,omitempty"`
	MQTTTopic      string  `json:"mqtt_topic,omitempty"`
	TelegramToken  string  `json:"telegram_token,omitempty"`
	TelegramChatID int64   `json:"telegram_chat_id,omitempty"`
}

// Defaults returns a Config with all default values applied.
func Defaults() Config {
	method := -1
	school := -1
	return Config{
		Method:       &method,
		School:       &school,
		TimeFormat:   "24h",
		CacheBackend: "file",
		LogLevel:     "warn",
		LogFormat:    "text",
		ListenAddr:   ":8080",
		MQTTTopic:    "prayer-countdown/next",
	}
}

// Dir returns the config directory path.
// It respects $XDG_CONFIG_HOME if set, otherwise uses ~/.config/.
func Dir() (string, error) {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, configDirName), nil
}

// Path returns the full path to the config file.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

// Load reads the config file from disk.
// If the file does not exist, it returns an empty Config (not an error).
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom reads the config from a specific file path.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return &cfg, nil
}

// LoadEnv loads .env files into the process environment without overriding
// variables that are already set. Missing files are ignored.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// EnvName returns the environment variable that overrides key.
func EnvName(key string) string {
	return EnvPrefix + strings.ToUpper(key)
}

// ApplyEnv overrides c with every non-empty PRAYER_COUNTDOWN_<KEY> variable,
// validated exactly like `config set`.
func (c *Config) ApplyEnv() error {
	for _, key := range ValidKeys {
		value, ok := os.LookupEnv(EnvName(key))
		if !ok || value == "" {
			continue
		}
		if err := c.Set(key, value); err != nil {
			return fmt.Errorf("%s: %w", EnvName(key), err)
		}
	}
	return nil
}

// Save writes the config to disk, creating the directory if needed.
func (c *Config) Save() error {
	path, err := Path()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo writes the config to a specific file path.
func (c *Config) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create config directory %s: %w", dir, err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Reset deletes the config file.
func Reset() error {
	path, err := Path()
	if err != nil {
		return err
	}
	return ResetAt(path)
}

// ResetAt deletes the config file at a specific path.
func ResetAt(path string) error {
	err := os.Remove(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete config file: %w", err)
	}
	return nil
}

// Set sets a config key to the given value.
// It validates the key name and parses the value into the correct type.
func (c *Config) Set(key, value string) error {
	switch key {
	case "city":
		c.City = value
	case "country":
		c.Country = value
	case "latitude":
		v, err := parseCoord(key, value, 90)
		if err != nil {
			return err
		}
		c.Latitude = v
	case "longitude":
		v, err := parseCoord(key, value, 180)
		if err != nil {
			return err
		}
		c.Longitude = v
	case "method":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid method %q: must be an integer", value)
		}
		if v < 0 || v > 23 {
			return fmt.Errorf("invalid method %q: must be between 0 and 23", value)
		}
		c.Method = &v
	case "school":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid school %q: must be an integer", value)
		}
		if v != 0 && v != 1 {
			return fmt.Errorf("invalid school %q: must be 0 (Shafi) or 1 (Hanafi)", value)
		}
		c.School = &v
	case "time_format":
		if value != "12h" && value != "24h" {
			return fmt.Errorf("invalid time_format %q: must be \"12h\" or \"24h\"", value)
		}
		c.TimeFormat = value
	case "prayers":
		for _, n := range strings.Split(value, ",") {
			n = strings.TrimSpace(n)
			if _, ok := prayer.ParseName(n); !ok {
				return fmt.Errorf("invalid prayer name %q in prayers list", n)
			}
		}
		c.Prayers = value
	case "cache_dir":
		c.CacheDir = value
	case "cache_backend":
		switch value {
		case "file", "redis", "sql", "none":
		default:
			return fmt.Errorf("invalid cache_backend %q: must be file, redis, sql or none", value)
		}
		c.CacheBackend = value
	case "redis_addr":
		c.RedisAddr = value
	case "sql_dsn":
		c.SQLDSN = value
	case "log_level":
		if _, err := logrus.ParseLevel(value); err != nil {
			return fmt.Errorf("invalid log_level %q: %w", value, err)
		}
		c.LogLevel = strings.ToLower(value)
	case "log_format":
		if value != "text" && value != "json" {
			return fmt.Errorf("invalid log_format %q: must be \"text\" or \"json\"", value)
		}
		c.LogFormat = value
	case "listen_addr":
		c.ListenAddr = value
	case "mqtt_broker":
		c.MQTTBroker = value
	case "mqtt_topic":
		if value == "" || strings.ContainsAny(value, "+#") {
			return fmt.Errorf("invalid mqtt_topic %q: must be a non-empty topic without wildcards", value)
		}
		c.MQTTTopic = value
	case "telegram_token":
		c.TelegramToken = value
	case "telegram_chat_id":
		v, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid telegram_chat_id %q: must be an integer", value)
		}
		c.TelegramChatID = v
	default:
		return fmt.Errorf("unknown config key %q; valid keys: %s", key, strings.Join(ValidKeys, ", "))
	}

	return nil
}

// parseCoord parses a latitude or longitude within [-limit, limit].
func parseCoord(key, value string, limit float64) (float64, error) {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: must be a number", key, value)
	}
	if v < -limit || v > limit {
		return 0, fmt.Errorf("invalid %s %q: must be between %g and %g", key, value, -limit, limit)
	}
	return v, nil
}

// Get returns the string value of a config key.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "city":
		return c.City, nil
	case "country":
		return c.Country, nil
	case "latitude":
		if c.Latitude == 0 {
			return "", nil
		}
		return strconv.FormatFloat(c.Latitude, 'f', -1, 64), nil
	case "longitude":
		if c.Longitude == 0 {
			return "", nil
		}
		return strconv.FormatFloat(c.Longitude, 'f', -1, 64), nil
	case "method":
		if c.Method == nil {
			return "", nil
		}
		return strconv.Itoa(*c.Method), nil
	case "school":
		if c.School == nil {
			return "", nil
		}
		return strconv.Itoa(*c.School), nil
	case "time_format":
		return c.TimeFormat, nil
	case "prayers":
		return c.Prayers, nil
	case "cache_dir":
		return c.CacheDir, nil
	case "cache_backend":
		return c.CacheBackend, nil
	case "redis_addr":
		return c.RedisAddr, nil
	case "sql_dsn":
		return c.SQLDSN, nil
	case "log_level":
		return c.LogLevel, nil
	case "log_format":
		return c.LogFormat, nil
	case "listen_addr":
		return c.ListenAddr, nil
	case "mqtt_broker":
		return c.MQTTBroker, nil
	case "mqtt_topic":
		return c.MQTTTopic, nil
	case "telegram_token":
		return c.TelegramToken, nil
	case "telegram_chat_id":
		if c.TelegramChatID == 0 {
			return "", nil
		}
		return strconv.FormatInt(c.TelegramChatID, 10), nil
	default:
		return "", fmt.Errorf("unknown config key %q", key)
	}
}

// Merge copies every key set in other over c. Values that fail validation
// are left out.
func (c *Config) Merge(other *Config) {
	for _, key := range ValidKeys {
		if v, _ := other.Get(key); v != "" {
			_ = c.Set(key, v)
		}
	}
}

// MethodOrDefault returns the method value, falling back to the given default.
func (c *Config) MethodOrDefault(def int) int {
	if c.Method != nil {
		return *c.Method
	}
	return def
}

// SchoolOrDefault returns the school value, falling back to the given default.
func (c *Config) SchoolOrDefault(def int) int {
	if c.School != nil {
		return *c.School
	}
	return def
}

// PrayerList parses the prayers setting, or returns nil when unset.
func (c *Config) PrayerList() []prayer.Name {
	if c.Prayers == "" {
		return nil
	}
	var out []prayer.Name
	for _, n := range strings.Split(c.Prayers, ",") {
		if name, ok := prayer.ParseName(strings.TrimSpace(n)); ok {
			out = append(out, name)
		}
	}
	return out
}
