package provider

import (
	"context"
	"fmt"

	"github.com/smokyabdulrahman/prayer-countdown/internal/geo"
)

// Locator detects the caller's location, e.g. *geo.Detector.
type Locator interface {
	Detect(ctx context.Context) (*geo.Location, error)
}

// LocatorFunc adapts a function to Locator.
type LocatorFunc func(ctx context.Context) (*geo.Location, error)

func (f LocatorFunc) Detect(ctx context.Context) (*geo.Location, error) { return f(ctx) }

// GeoCache keeps a detected location between runs.
type GeoCache interface {
	LoadGeo() *geo.Location
	SaveGeo(loc *geo.Location) error
}

// Query is an explicitly requested location. The zero value asks for
// detection.
type Query struct {
	Lat, Lon      float64
	City, Country string
}

// Locate determines the effective location.
// Priority: coordinates > city/country > cached geolocation > detection.
// gc may be nil.
func Locate(ctx context.Context, q Query, gc GeoCache, det Locator) (Location, error) {
	switch {
	case q.Lat != 0 || q.Lon != 0:
		return Location{Mode: ModeCoordinates, Lat: q.Lat, Lon: q.Lon}, nil
	case q.City != "":
		if q.Country == "" {
			return Location{}, fmt.Errorf("--country is required when using --city")
		}
		return Location{Mode: ModeCity, City: q.City, Country: q.Country}, nil
	}

	if gc != nil {
		if cached := gc.LoadGeo(); cached != nil {
			return Detected(cached), nil
		}
	}

	found, err := det.Detect(ctx)
	if err != nil {
		return Location{}, fmt.Errorf("no location specified and auto-detection failed: %w", err)
	}
	if gc != nil {
		_ = gc.SaveGeo(found) // best-effort
	}
	return Detected(found), nil
}

// Detected converts a geolocation result, keeping its place name and zone.
func Detected(g *geo.Location) Location {
	return Location{
		Mode:     ModeCoordinates,
		Lat:      g.Latitude,
		Lon:      g.Longitude,
		City:     g.City,
		Country:  g.Country,
		Timezone: g.Timezone,
	}
}
