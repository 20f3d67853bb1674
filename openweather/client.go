// Package openweather is a thin client for the OpenWeather free API tier:
// current conditions, 5-day/3-hour forecast, geocoding and air quality. It
// exposes the lookups both as plain methods and as registered tools for the
// conversation orchestrator. Responses are JSON-shaped maps so tool results
// serialize directly into tool messages.
package openweather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/swilltec/weather/logging"
)

const (
	defaultBaseURL = "https://api.openweathermap.org/data/2.5"
	defaultGeoURL  = "https://api.openweathermap.org/geo/1.0"
)

// Provider failure modes mapped from HTTP status codes.
var (
	ErrInvalidAPIKey    = errors.New("invalid API key")
	ErrLocationNotFound = errors.New("location not found")
	ErrRateLimited      = errors.New("API rate limit exceeded")
)

// Options configure the OpenWeather client.
type Options struct {
	BaseURL    string
	GeoURL     string
	HTTPClient *http.Client
	// Cache holds recent lookups; nil disables caching.
	Cache *Cache
	// Logger defaults to NoOp.
	Logger logging.Logger
}

// Client calls the OpenWeather REST endpoints. Safe for concurrent use.
type Client struct {
	apiKey     string
	baseURL    string
	geoURL     string
	httpClient *http.Client
	cache      *Cache
	logger     logging.Logger
}

// NewClient constructs a client for the given API key with optional overrides.
// By default lookups are cached for ten minutes (the provider refresh interval).
func NewClient(apiKey string, optFns ...func(o *Options)) *Client {
	opts := Options{
		BaseURL:    defaultBaseURL,
		GeoURL:     defaultGeoURL,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		Cache:      NewCache(256, 10*time.Minute),
		Logger:     logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    opts.BaseURL,
		geoURL:     opts.GeoURL,
		httpClient: opts.HTTPClient,
		cache:      opts.Cache,
		logger:     opts.Logger,
	}
}

// get performs an API request and decodes the JSON body into out.
func (c *Client) get(ctx context.Context, rawURL string, params url.Values, out any) error {
	params.Set("appid", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("network error: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		return ErrInvalidAPIKey
	case http.StatusNotFound:
		return ErrLocationNotFound
	case http.StatusTooManyRequests:
		return ErrRateLimited
	default:
		var apiErr struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Message == "" {
			apiErr.Message = resp.Status
		}
		return fmt.Errorf("API request failed: %s", apiErr.Message)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// cachedLookup serves the request from cache when possible, fetching and
// storing on miss. Weather data changes slowly relative to chat traffic, so
// a short TTL removes most duplicate provider calls within a conversation.
func (c *Client) cachedLookup(key string, fetch func() (map[string]any, error)) (map[string]any, error) {
	if c.cache != nil {
		if v, ok := c.cache.Get(key); ok {
			c.logger.Debug("openweather.cache.hit", "key", key)
			return v.(map[string]any), nil
		}
	}
	data, err := fetch()
	if err != nil {
		return nil, err
	}
	if c.cache != nil {
		c.cache.Set(key, data)
	}
	return data, nil
}

// CurrentWeather returns current conditions by city name, optionally with a
// country code ("London" or "London,UK"). Units is "metric" or "imperial".
func (c *Client) CurrentWeather(ctx context.Context, location, units string) (map[string]any, error) {
	units = normalizeUnits(units)
	return c.cachedLookup("weather:"+location+":"+units, func() (map[string]any, error) {
		var data currentWeatherResponse
		params := url.Values{"q": {location}, "units": {units}}
		if err := c.get(ctx, c.baseURL+"/weather", params, &data); err != nil {
			return nil, err
		}
		return data.payload(units), nil
	})
}

// WeatherByCoordinates returns current conditions by latitude/longitude.
func (c *Client) WeatherByCoordinates(ctx context.Context, lat, lon float64, units string) (map[string]any, error) {
	units = normalizeUnits(units)
	key := fmt.Sprintf("weather:%.4f:%.4f:%s", lat, lon, units)
	return c.cachedLookup(key, func() (map[string]any, error) {
		var data currentWeatherResponse
		params := url.Values{
			"lat":   {strconv.FormatFloat(lat, 'f', -1, 64)},
			"lon":   {strconv.FormatFloat(lon, 'f', -1, 64)},
			"units": {units},
		}
		if err := c.get(ctx, c.baseURL+"/weather", params, &data); err != nil {
			return nil, err
		}
		out := data.payload(units)
		out["latitude"] = lat
		out["longitude"] = lon
		return out, nil
	})
}

// Forecast returns up to five days of 3-hour interval forecasts.
func (c *Client) Forecast(ctx context.Context, location string, days int, units string) (map[string]any, error) {
	units = normalizeUnits(units)
	if days < 1 {
		days = 1
	}
	if days > 5 {
		days = 5
	}
	key := fmt.Sprintf("forecast:%s:%d:%s", location, days, units)
	return c.cachedLookup(key, func() (map[string]any, error) {
		var data forecastResponse
		params := url.Values{"q": {location}, "units": {units}}
		if err := c.get(ctx, c.baseURL+"/forecast", params, &data); err != nil {
			return nil, err
		}
		return data.payload(days, units), nil
	})
}

// Coordinates resolves a location name to geographic coordinates.
func (c *Client) Coordinates(ctx context.Context, location string) (map[string]any, error) {
	return c.cachedLookup("geo:"+location, func() (map[string]any, error) {
		var data []geocodeResponse
		params := url.Values{"q": {location}, "limit": {"1"}}
		if err := c.get(ctx, c.geoURL+"/direct", params, &data); err != nil {
			return nil, err
		}
		if len(data) == 0 {
			return nil, ErrLocationNotFound
		}
		return data[0].payload(), nil
	})
}

// AirPollution returns the air quality index and pollutant concentrations for
// the given coordinates.
func (c *Client) AirPollution(ctx context.Context, lat, lon float64) (map[string]any, error) {
	key := fmt.Sprintf("air:%.4f:%.4f", lat, lon)
	return c.cachedLookup(key, func() (map[string]any, error) {
		var data airPollutionResponse
		params := url.Values{
			"lat": {strconv.FormatFloat(lat, 'f', -1, 64)},
			"lon": {strconv.FormatFloat(lon, 'f', -1, 64)},
		}
		if err := c.get(ctx, c.baseURL+"/air_pollution", params, &data); err != nil {
			return nil, err
		}
		if len(data.List) == 0 {
			return nil, fmt.Errorf("API request failed: empty air pollution response")
		}
		return data.payload(lat, lon), nil
	})
}

func normalizeUnits(units string) string {
	switch units {
	case "imperial", "standard":
		return units
	default:
		return "metric"
	}
}
