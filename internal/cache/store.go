// Package cache persists month-sized prayer calendars so the API is hit at
// most once per location, calculation setting and calendar month.
package cache

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"time"

	"github.com/smokyabdulrahman/prayer-countdown/internal/api"
)

// ErrMiss is returned by LoadMonth when nothing is cached for the key.
var ErrMiss = errors.New("cache miss")

// Backend names accepted by Open.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
	BackendSQL   = "sql"
	BackendNone  = "none"
)

// MonthKey identifies one cached calendar month.
type MonthKey struct {
	Year    int
	Month   int
	Lat     float64
	Lon     float64
	City    string
	Country string
	Method  int
	School  int
}

// ID builds a deterministic hash from the parameters that affect prayer times.
// Different locations/methods/schools get separate entries.
func (k MonthKey) ID() string {
	raw := fmt.Sprintf("%04d-%02d|%.6f|%.6f|%s|%s|%d|%d",
		k.Year, k.Month, k.Lat, k.Lon, k.City, k.Country, k.Method, k.School)
	h := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%x", h[:8])
}

// MonthEntry is one cached calendar month.
type MonthEntry struct {
	Year      int        `json:"year"`
	Month     int        `json:"month"`
	Days      []api.Data `json:"days"`
	FetchedAt time.Time  `json:"fetched_at"`
}

// Store persists calendar months.
type Store interface {
	LoadMonth(ctx context.Context, key MonthKey) (*MonthEntry, error)
	SaveMonth(ctx context.Context, key MonthKey, days []api.Data) error
	Close() error
}

// Options selects and configures a Store backend.
type Options struct {
	Backend   string // file (default), redis, sql or none
	Dir       string // file backend directory
	RedisAddr string
	SQLDSN    string
}

// Open returns the Store for opts.Backend.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case "", BackendFile:
		return NewFileStore(opts.Dir)
	case BackendRedis:
		return NewRedisStore(ctx, opts.RedisAddr)
	case BackendSQL:
		return NewSQLStore(ctx, opts.SQLDSN)
	case BackendNone:
		return Nop{}, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", opts.Backend)
	}
}

// Nop is a Store that never holds anything.
type Nop struct{}

func (Nop) LoadMonth(context.Context, MonthKey) (*MonthEntry, error) { return nil, ErrMiss }
func (Nop) SaveMonth(context.Context, MonthKey, []api.Data) error    { return nil }
func (Nop) Close() error                                              { return nil }

func newEntry(key MonthKey, days []api.Data) MonthEntry {
	return MonthEntry{
		Year:      key.Year,
		Month:     key.Month,
		Days:      days,
		FetchedAt: time.Now().UTC(),
	}
}

// valid rejects entries that were stored under a colliding key.
func (e *MonthEntry) valid(key MonthKey) bool {
	return e.Year == key.Year && e.Month == key.Month && len(e.Days) > 0
}
