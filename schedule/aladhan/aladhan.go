// Package aladhan provides the schedule source backed by the public
// Aladhan prayer-times API.
package aladhan

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"prayat/schedule"
)

// DefaultBaseURL is the public Aladhan API base URL.
const DefaultBaseURL = "https://api.aladhan.com"

// Config holds Aladhan request parameters. The API takes explicit
// coordinates and a calculation method; its response schema is mapped
// into the six canonical times.
type Config struct {
	BaseURL   string // Override for testing
	Latitude  float64
	Longitude float64
	Method    int // calculation method ID, e.g. 1 = Univ. of Islamic Sciences, Karachi
	Timeout   time.Duration
}

// Client implements schedule.Provider against the Aladhan API.
type Client struct {
	config  Config
	client  *http.Client
	baseURL string
}

// New creates a new Aladhan client.
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
	}
}

// Name identifies this source.
func (c *Client) Name() string { return "aladhan" }

// Ping checks whether the API is reachable.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/methods", nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", schedule.ErrSourceUnreachable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("%w: probe status %d", schedule.ErrSourceUnreachable, resp.StatusCode)
	}
	return nil
}

// Fetch returns the schedule for the given date key. The API addresses
// days as DD-MM-YYYY path segments.
func (c *Client) Fetch(ctx context.Context, date string) (*schedule.Schedule, error) {
	day, err := time.Parse(schedule.DateLayout, date)
	if err != nil {
		return nil, fmt.Errorf("%w: bad date %q", schedule.ErrMalformed, date)
	}

	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(c.config.Latitude, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(c.config.Longitude, 'f', -1, 64))
	q.Set("method", strconv.Itoa(c.config.Method))

	reqURL := fmt.Sprintf("%s/v1/timings/%s?%s", c.baseURL, day.Format("02-01-2006"), q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", schedule.ErrSourceUnreachable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", schedule.ErrMalformed, resp.StatusCode)
	}

	var body struct {
		Code   int    `json:"code"`
		Status string `json:"status"`
		Data   struct {
			Timings map[string]string `json:"timings"`
			Date    struct {
				Hijri struct {
					Date string `json:"date"`
				} `json:"hijri"`
			} `json:"date"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: %v", schedule.ErrMalformed, err)
	}
	if body.Code != http.StatusOK {
		return nil, fmt.Errorf("%w: api code %d (%s)", schedule.ErrMalformed, body.Code, body.Status)
	}

	t := body.Data.Timings
	s := &schedule.Schedule{
		Date:      date,
		Fajr:      cleanTiming(t["Fajr"]),
		Sunrise:   cleanTiming(t["Sunrise"]),
		Dhuhr:     cleanTiming(t["Dhuhr"]),
		Asr:       cleanTiming(t["Asr"]),
		Maghrib:   cleanTiming(t["Maghrib"]),
		Isha:      cleanTiming(t["Isha"]),
		HijriDate: body.Data.Date.Hijri.Date,
		Source:    schedule.SourceAladhan,
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// cleanTiming strips the timezone suffix Aladhan appends to some timings,
// e.g. "04:23 (+06)" becomes "04:23".
func cleanTiming(v string) string {
	if i := strings.IndexByte(v, ' '); i >= 0 {
		return v[:i]
	}
	return v
}
