// Package provider turns Al Adhan calendar months into parsed day tables,
// going through the month cache before the network.
package provider

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/smokyabdulrahman/prayer-countdown/internal/api"
	"github.com/smokyabdulrahman/prayer-countdown/internal/cache"
	"github.com/smokyabdulrahman/prayer-countdown/internal/prayer"
)

// ErrNoData is wrapped by every failure to produce a day table.
var ErrNoData = errors.New("no prayer time data")

// Mode selects how a Location is sent to the API.
type Mode string

const (
	ModeCoordinates Mode = "coordinates"
	ModeCity        Mode = "city"
)

// Location is where prayer times are computed for.
type Location struct {
	Mode     Mode
	Lat      float64
	Lon      float64
	City     string
	Country  string
	Timezone string // optional IANA zone hint, e.g. "Africa/Casablanca"
}

// Label returns a human-readable name for the location.
func (l Location) Label() string {
	if l.City != "" {
		if l.Country != "" {
			return l.City + ", " + l.Country
		}
		return l.City
	}
	return strconv.FormatFloat(l.Lat, 'f', 4, 64) + ", " + strconv.FormatFloat(l.Lon, 'f', 4, 64)
}

// Day is one parsed calendar day.
type Day struct {
	Date    time.Time // midnight in Zone
	Zone    *time.Location
	Timings prayer.DayTimings
	Raw     api.Data
}

// Options configures the calculation sent with every request.
// Negative values leave the choice to the API.
type Options struct {
	Method int
	School int
}

type monthID struct {
	year  int
	month int
}

// Calendar serves day tables for one location.
type Calendar struct {
	client *api.Client
	store  cache.Store
	loc    Location
	opts   Options
	log    *logrus.Entry

	mu     sync.Mutex
	months map[monthID][]api.Data
}

// NewCalendar returns a Calendar. A nil store disables caching and a nil
// log uses the standard logger.
func NewCalendar(client *api.Client, store cache.Store, loc Location, opts Options, log *logrus.Entry) *Calendar {
	if store == nil {
		store = cache.Nop{}
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Calendar{
		client: client,
		store:  store,
		loc:    loc,
		opts:   opts,
		log:    log.WithField("component", "provider"),
		months: make(map[monthID][]api.Data),
	}
}

// Location returns the location this calendar serves.
func (c *Calendar) Location() Location { return c.loc }

func (c *Calendar) key(year, month int) cache.MonthKey {
	k := cache.MonthKey{
		Year:   year,
		Month:  month,
		Method: c.opts.Method,
		School: c.opts.School,
	}
	if c.loc.Mode == ModeCity {
		k.City, k.Country = c.loc.City, c.loc.Country
	} else {
		k.Lat, k.Lon = c.loc.Lat, c.loc.Lon
	}
	return k
}

// Month returns every day of a calendar month, from memory, the cache or the API.
func (c *Calendar) Month(ctx context.Context, year, month int) ([]api.Data, error) {
	id := monthID{year, month}

	c.mu.Lock()
	days, ok := c.months[id]
	c.mu.Unlock()
	if ok {
		return days, nil
	}

	key := c.key(year, month)
	log := c.log.WithField("month", fmt.Sprintf("%04d-%02d", year, month))

	entry, err := c.store.LoadMonth(ctx, key)
	switch {
	case err == nil:
		log.Debug("calendar served from cache")
		c.remember(id, entry.Days)
		return entry.Days, nil
	case !errors.Is(err, cache.ErrMiss):
		log.WithError(err).Warn("cache read failed")
	}

	resp, err := c.fetch(ctx, year, month)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch %04d-%02d: %w", ErrNoData, year, month, err)
	}
	log.WithField("days", len(resp.Data)).Debug("calendar fetched")

	if err := c.store.SaveMonth(ctx, key, resp.Data); err != nil {
		log.WithError(err).Warn("cache write failed")
	}

	c.remember(id, resp.Data)
	return resp.Data, nil
}

func (c *Calendar) fetch(ctx context.Context, year, month int) (*api.CalendarResponse, error) {
	if c.loc.Mode == ModeCity {
		return c.client.FetchCalendarByCity(ctx, year, month, c.loc.City, c.loc.Country, c.opts.Method, c.opts.School)
	}
	return c.client.FetchCalendarByCoordinates(ctx, year, month, c.loc.Lat, c.loc.Lon, c.opts.Method, c.opts.School)
}

func (c *Calendar) remember(id monthID, days []api.Data) {
	c.mu.Lock()
	c.months[id] = days
	c.mu.Unlock()
}

// Day returns the parsed table for the calendar date of date.
func (c *Calendar) Day(ctx context.Context, date time.Time) (*Day, error) {
	y, m, d := date.Date()

	days, err := c.Month(ctx, y, int(m))
	if err != nil {
		return nil, err
	}

	raw, ok := pick(days, date)
	if !ok {
		return nil, fmt.Errorf("%w: %s missing from calendar", ErrNoData, date.Format("2006-01-02"))
	}

	timings, skipped := prayer.ParseDayTimings(raw.Timings.Map())
	for _, name := range skipped {
		c.log.WithFields(logrus.Fields{
			"date":   date.Format("2006-01-02"),
			"prayer": name,
		}).Debug("skipping malformed timing")
	}

	zone := c.Zone(raw)
	return &Day{
		Date:    time.Date(y, m, d, 0, 0, 0, 0, zone),
		Zone:    zone,
		Timings: timings,
		Raw:     raw,
	}, nil
}

// pick finds date in a month, falling back to its position when the API
// omits the Gregorian date.
func pick(days []api.Data, date time.Time) (api.Data, bool) {
	for _, d := range days {
		if d.Date.Gregorian.Matches(date) {
			return d, true
		}
	}
	i := date.Day() - 1
	if i < len(days) && days[i].Date.Gregorian.Date == "" {
		return days[i], true
	}
	return api.Data{}, false
}

// Days returns n consecutive day tables starting at start. On failure the
// days loaded so far are returned with the error.
func (c *Calendar) Days(ctx context.Context, start time.Time, n int) ([]*Day, error) {
	out := make([]*Day, 0, n)
	for i := 0; i < n; i++ {
		day, err := c.Day(ctx, start.AddDate(0, 0, i))
		if err != nil {
			return out, err
		}
		out = append(out, day)
	}
	return out, nil
}

// Zone returns the time zone prayer times of data are expressed in: the
// location hint first, then the API metadata, then the local zone.
func (c *Calendar) Zone(data api.Data) *time.Location {
	for _, name := range []string{c.loc.Timezone, data.Meta.Timezone} {
		if name == "" {
			continue
		}
		if z, err := time.LoadLocation(name); err == nil {
			return z
		}
		c.log.WithField("timezone", name).Debug("unknown time zone")
	}
	return time.Local
}
