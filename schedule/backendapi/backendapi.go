// Package backendapi provides the schedule source backed by the diet app's
// own REST API.
package backendapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"prayat/schedule"
)

// DefaultBaseURL is the default API base URL for local development.
const DefaultBaseURL = "http://localhost:8000"

// Config holds backend API connection settings.
type Config struct {
	BaseURL string // Override for testing
	Token   string // Bearer token, empty for unauthenticated access
	Timeout time.Duration

	// Location parameters sent with fetch requests; the API scopes
	// records by city and country.
	City      string
	Country   string
	Latitude  float64
	Longitude float64
}

// ConfigFromEnv creates a Config from environment variables.
func ConfigFromEnv() Config {
	return Config{
		BaseURL: os.Getenv("PRAYAT_BACKEND_URL"),
		Token:   os.Getenv("PRAYAT_BACKEND_TOKEN"),
	}
}

// Client implements schedule.Provider against the backend REST API.
type Client struct {
	config  Config
	client  *http.Client
	baseURL string

	// now is injectable for tests; the combined get-or-fetch endpoint
	// is only valid when the requested date is today.
	now func() time.Time
}

// New creates a new backend API client.
func New(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		config:  cfg,
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
		now:     time.Now,
	}
}

// SetClock overrides the wall clock, for testing.
func (c *Client) SetClock(now func() time.Time) {
	c.now = now
}

// Name identifies this source.
func (c *Client) Name() string { return "backend" }

// doRequest performs an authenticated backend API request.
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}

	if c.config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.Token)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", schedule.ErrSourceUnreachable, err)
	}
	return resp, nil
}

// Ping checks whether the backend is reachable.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.doRequest(ctx, http.MethodGet, "/api/", nil)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("%w: probe status %d", schedule.ErrSourceUnreachable, resp.StatusCode)
	}
	return nil
}

// record is the prayer-times payload shape returned by the backend.
// Times arrive as "HH:MM:SS" from the Django TimeField serializer.
type record struct {
	Date      string `json:"date"`
	Fajr      string `json:"fajr"`
	Sunrise   string `json:"sunrise"`
	Dhuhr     string `json:"dhuhr"`
	Asr       string `json:"asr"`
	Maghrib   string `json:"maghrib"`
	Isha      string `json:"isha"`
	HijriDate string `json:"hijri_date"`
}

// toSchedule converts a backend record into a validated schedule.
func (r *record) toSchedule() (*schedule.Schedule, error) {
	s := &schedule.Schedule{
		Date:      r.Date,
		Fajr:      normalizeClock(r.Fajr),
		Sunrise:   normalizeClock(r.Sunrise),
		Dhuhr:     normalizeClock(r.Dhuhr),
		Asr:       normalizeClock(r.Asr),
		Maghrib:   normalizeClock(r.Maghrib),
		Isha:      normalizeClock(r.Isha),
		HijriDate: r.HijriDate,
		Source:    schedule.SourceBackend,
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// normalizeClock trims "HH:MM:SS" values to "HH:MM". Unparseable values
// pass through unchanged and are caught by schedule validation.
func normalizeClock(v string) string {
	if t, err := time.Parse("15:04:05", v); err == nil {
		return t.Format(schedule.ClockLayout)
	}
	return v
}

// Fetch returns the schedule for the given date, trying the API's three
// access patterns in order: the combined get-or-fetch endpoint (today
// only), an explicit fetch-then-list round trip (today only), and a
// date-scoped lookup. The first well-formed result wins.
func (c *Client) Fetch(ctx context.Context, date string) (*schedule.Schedule, error) {
	if date == schedule.DateKey(c.now()) {
		if s, err := c.GetOrFetch(ctx); err == nil {
			return s, nil
		}
		if s, err := c.FetchThenList(ctx, date); err == nil {
			return s, nil
		}
	}
	return c.GetByDate(ctx, date)
}

// GetOrFetch calls the combined endpoint that fetches today's times into
// the backend store if needed and returns them.
func (c *Client) GetOrFetch(ctx context.Context) (*schedule.Schedule, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/prayer-times/get-or-fetch/", nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: get-or-fetch status %d", schedule.ErrMalformed, resp.StatusCode)
	}

	var body struct {
		Date        string  `json:"date"`
		PrayerTimes *record `json:"prayer_times"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: %v", schedule.ErrMalformed, err)
	}
	if body.PrayerTimes == nil {
		return nil, fmt.Errorf("%w: get-or-fetch response missing prayer_times", schedule.ErrMalformed)
	}
	return body.PrayerTimes.toSchedule()
}

// FetchThenList triggers a backend-side fetch for the date and then reads
// it back from the list endpoint.
func (c *Client) FetchThenList(ctx context.Context, date string) (*schedule.Schedule, error) {
	payload := map[string]interface{}{
		"date":      date,
		"city":      c.config.City,
		"country":   c.config.Country,
		"latitude":  c.config.Latitude,
		"longitude": c.config.Longitude,
	}

	resp, err := c.doRequest(ctx, http.MethodPost, "/prayer-times/fetch/", payload)
	if err != nil {
		return nil, err
	}
	_ = resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("%w: fetch status %d", schedule.ErrMalformed, resp.StatusCode)
	}

	listResp, err := c.doRequest(ctx, http.MethodGet, "/prayer-times/", nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = listResp.Body.Close() }()

	if listResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: list status %d", schedule.ErrMalformed, listResp.StatusCode)
	}

	var records []record
	if err := json.NewDecoder(listResp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("%w: %v", schedule.ErrMalformed, err)
	}
	for i := range records {
		if records[i].Date == date {
			return records[i].toSchedule()
		}
	}
	return nil, fmt.Errorf("%w: date %s missing from list response", schedule.ErrMalformed, date)
}

// GetByDate reads the schedule for a specific date.
func (c *Client) GetByDate(ctx context.Context, date string) (*schedule.Schedule, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/prayer-times/"+date+"/", nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: date lookup status %d", schedule.ErrMalformed, resp.StatusCode)
	}

	var r record
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("%w: %v", schedule.ErrMalformed, err)
	}
	return r.toSchedule()
}
