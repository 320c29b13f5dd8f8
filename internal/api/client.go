package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const defaultBaseURL = "https://api.aladhan.com/v1"

// Client communicates with the Al Adhan prayer times API.
type Client struct {
	httpClient *http.Client
	// BaseURL is the API base URL. Defaults to the Al Adhan API.
	BaseURL string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithBaseURL points the client at a different API root.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.BaseURL = u }
}

// NewClient creates a new API client with sensible defaults.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		BaseURL: defaultBaseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchCalendarByCoordinates fetches a whole month of prayer times for the given coordinates.
func (c *Client) FetchCalendarByCoordinates(ctx context.Context, year, month int, lat, lon float64, method, school int) (*CalendarResponse, error) {
	endpoint := fmt.Sprintf("%s/calendar/%d/%d", c.BaseURL, year, month)

	params := url.Values{}
	params.Set("latitude", strconv.FormatFloat(lat, 'f', 6, 64))
	params.Set("longitude", strconv.FormatFloat(lon, 'f', 6, 64))
	setCalculation(params, method, school)

	return c.doRequest(ctx, endpoint, params)
}

// FetchCalendarByCity fetches a whole month of prayer times for the given city and country.
func (c *Client) FetchCalendarByCity(ctx context.Context, year, month int, city, country string, method, school int) (*CalendarResponse, error) {
	endpoint := fmt.Sprintf("%s/calendarByCity/%d/%d", c.BaseURL, year, month)

	params := url.Values{}
	params.Set("city", city)
	params.Set("country", country)
	setCalculation(params, method, school)

	return c.doRequest(ctx, endpoint, params)
}

// setCalculation adds method and school unless they are negative (API default).
func setCalculation(params url.Values, method, school int) {
	if method >= 0 {
		params.Set("method", strconv.Itoa(method))
	}
	if school >= 0 {
		params.Set("school", strconv.Itoa(school))
	}
}

func (c *Client) doRequest(ctx context.Context, endpoint string, params url.Values) (*CalendarResponse, error) {
	reqURL := fmt.Sprintf("%s?%s", endpoint, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build API request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	var apiResp CalendarResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("failed to decode API response: %w", err)
	}

	if apiResp.Code != 200 {
		return nil, fmt.Errorf("API error: code=%d status=%s", apiResp.Code, apiResp.Status)
	}
	if len(apiResp.Data) == 0 {
		return nil, fmt.Errorf("API returned an empty calendar")
	}

	return &apiResp, nil
}
