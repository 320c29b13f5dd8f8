package cli

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/smokyabdulrahman/prayer-countdown/internal/api"
	"github.com/smokyabdulrahman/prayer-countdown/internal/cache"
	"github.com/smokyabdulrahman/prayer-countdown/internal/config"
	"github.com/smokyabdulrahman/prayer-countdown/internal/countdown"
	"github.com/smokyabdulrahman/prayer-countdown/internal/geo"
	"github.com/smokyabdulrahman/prayer-countdown/internal/logging"
	"github.com/smokyabdulrahman/prayer-countdown/internal/provider"
)

// Swapped out in tests.
var (
	clock        countdown.Clock = countdown.SystemClock{}
	newAPIClient                 = func() *api.Client { return api.NewClient() }
	newLocator                   = func() locator { return geo.NewDetector() }
)

type (
	locator  = provider.Locator
	geoCache = provider.GeoCache
)

// session bundles what a command needs to read prayer times.
type session struct {
	cfg      *config.Config
	store    cache.Store
	client   *api.Client
	calendar *provider.Calendar
	log      *logrus.Entry
}

// openSession opens the configured cache, resolves the location and builds
// the calendar for it. Close must be called when done.
func openSession(ctx context.Context, cfg *config.Config) (*session, error) {
	log := logging.Component("cli")

	store, err := cache.Open(ctx, cache.Options{
		Backend:   cfg.CacheBackend,
		Dir:       cfg.CacheDir,
		RedisAddr: cfg.RedisAddr,
		SQLDSN:    cfg.SQLDSN,
	})
	if err != nil {
		// Cache init failure is non-fatal; we just skip caching.
		log.WithError(err).Warn("cache disabled")
		store = cache.Nop{}
	}

	var gc geoCache
	if fs, ok := store.(*cache.FileStore); ok {
		gc = fs
	} else if fs, err := cache.NewFileStore(cfg.CacheDir); err == nil {
		gc = fs
	}

	loc, err := resolveLocation(ctx, cfg, gc, newLocator())
	if err != nil {
		store.Close()
		return nil, err
	}

	s := &session{
		cfg:    cfg,
		store:  store,
		client: newAPIClient(),
		log:    log,
	}
	s.calendar = s.calendarFor(loc)
	return s, nil
}

// calendarFor builds a calendar for loc sharing the session's cache.
func (s *session) calendarFor(loc provider.Location) *provider.Calendar {
	return s.calendarWith(s.store, loc)
}

// uncachedCalendarFor builds a calendar for loc that never touches the
// session's cache. Used for ad-hoc locations supplied by HTTP clients.
func (s *session) uncachedCalendarFor(loc provider.Location) *provider.Calendar {
	return s.calendarWith(cache.Nop{}, loc)
}

func (s *session) calendarWith(store cache.Store, loc provider.Location) *provider.Calendar {
	opts := provider.Options{
		Method: s.cfg.MethodOrDefault(-1),
		School: s.cfg.SchoolOrDefault(-1),
	}
	return provider.NewCalendar(s.client, store, loc, opts, logrus.NewEntry(logging.Log))
}

func (s *session) Close() error {
	return s.store.Close()
}

// resolveLocation determines the effective location for cfg.
func resolveLocation(ctx context.Context, cfg *config.Config, gc geoCache, det locator) (provider.Location, error) {
	q := provider.Query{Lat: cfg.Latitude, Lon: cfg.Longitude, City: cfg.City, Country: cfg.Country}
	return provider.Locate(ctx, q, gc, det)
}
