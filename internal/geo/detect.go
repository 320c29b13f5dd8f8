package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// DefaultURL is the ip-api.com endpoint, restricted to the fields we read.
const DefaultURL = "http://ip-api.com/json/?fields=status,message,lat,lon,city,country,timezone"

// Location holds geographic coordinates detected from the user's IP.
type Location struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
	City      string  `json:"city"`
	Country   string  `json:"country"`
	Timezone  string  `json:"timezone"`
}

// ipAPIResponse is the ip-api.com envelope; the location fields sit inline.
type ipAPIResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Location
}

// Detector resolves the caller's location from their public IP address.
type Detector struct {
	URL    string
	Client *http.Client
}

// NewDetector returns a Detector using ip-api.com, a free service that
// requires no API key.
func NewDetector() *Detector {
	return &Detector{
		URL:    DefaultURL,
		Client: &http.Client{Timeout: 5 * time.Second},
	}
}

// Detect queries the geolocation service.
func (d *Detector) Detect(ctx context.Context) (*Location, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build geolocation request: %w", err)
	}

	resp, err := d.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geolocation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geolocation API returned status %d", resp.StatusCode)
	}

	var result ipAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode geolocation response: %w", err)
	}

	if result.Status != "success" {
		return nil, fmt.Errorf("geolocation failed: %s", result.Message)
	}
	loc := result.Location
	return &loc, nil
}
