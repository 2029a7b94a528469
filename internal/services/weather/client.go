package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"cargoport/internal/config"
	"cargoport/internal/services"
)

const defaultTimeout = 10 * time.Second

// HTTPDoer describes the HTTP client used by the weather client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client queries current precipitation.
type Client struct {
	baseURL   string
	latitude  float64
	longitude float64
	client    HTTPDoer
}

// NewClient constructs a weather client from configuration.
func NewClient(cfg config.Weather) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return NewHTTPClient(cfg.BaseURL, cfg.Latitude, cfg.Longitude, &http.Client{Timeout: timeout})
}

// NewHTTPClient constructs a client with an explicit HTTP doer.
func NewHTTPClient(baseURL string, latitude, longitude float64, client HTTPDoer) *Client {
	if client == nil {
		client = http.DefaultClient
	}
	return &Client{
		baseURL:   strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		latitude:  latitude,
		longitude: longitude,
		client:    client,
	}
}

type forecastResponse struct {
	Current *struct {
		Precipitation *float64 `json:"precipitation"`
		Rain          *float64 `json:"rain"`
		Showers       *float64 `json:"showers"`
	} `json:"current"`
}

// IsRaining reports whether any rain or precipitation is measured right now.
func (c *Client) IsRaining(ctx context.Context) (bool, error) {
	if c == nil || c.baseURL == "" {
		return false, services.Wrap(services.ErrConfiguration, "weather", "check", "weather base_url is empty", nil)
	}
	query := url.Values{}
	query.Set("latitude", strconv.FormatFloat(c.latitude, 'f', -1, 64))
	query.Set("longitude", strconv.FormatFloat(c.longitude, 'f', -1, 64))
	query.Set("current", "precipitation,rain,showers")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return false, fmt.Errorf("build weather request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		return false, services.Wrap(services.ErrTransient, "weather", "check", "request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return false, fmt.Errorf("read weather response: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return false, services.Wrap(services.ErrExternalTool, "weather", "check", fmt.Sprintf("weather api returned %d", resp.StatusCode), nil)
	}

	var payload forecastResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return false, services.Wrap(services.ErrExternalTool, "weather", "decode", "invalid forecast payload", err)
	}
	if payload.Current == nil {
		return false, services.Wrap(services.ErrExternalTool, "weather", "decode", "forecast has no current block", nil)
	}
	for _, value := range []*float64{payload.Current.Precipitation, payload.Current.Rain, payload.Current.Showers} {
		if value != nil && *value > 0 {
			return true, nil
		}
	}
	return false, nil
}
