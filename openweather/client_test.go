package openweather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const currentWeatherBody = `{
	"name": "Paris",
	"sys": {"country": "FR", "sunrise": 1700000000, "sunset": 1700040000},
	"main": {"temp": 18.2, "feels_like": 17.8, "temp_min": 16.0, "temp_max": 19.5, "humidity": 60, "pressure": 1014},
	"weather": [{"main": "Clear", "description": "clear sky"}],
	"wind": {"speed": 3.4, "deg": 210},
	"clouds": {"all": 5},
	"visibility": 10000,
	"timezone": 3600
}`

func newTestClient(t *testing.T, handler http.Handler, optFns ...func(o *Options)) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	fns := append([]func(o *Options){func(o *Options) {
		o.BaseURL = srv.URL
		o.GeoURL = srv.URL + "/geo"
	}}, optFns...)
	return NewClient("test-key", fns...), srv
}

func TestCurrentWeather(t *testing.T) {
	var gotQuery atomic.Value
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/weather", r.URL.Path)
		gotQuery.Store(r.URL.Query())
		w.Write([]byte(currentWeatherBody))
	}))

	data, err := client.CurrentWeather(context.Background(), "Paris", "metric")
	require.NoError(t, err)

	assert.Equal(t, "Paris", data["location"])
	assert.Equal(t, "FR", data["country"])
	assert.Equal(t, 18.2, data["temperature"])
	assert.Equal(t, "clear sky", data["description"])
	assert.Equal(t, 210.0, data["wind_direction"])
	assert.Equal(t, "metric", data["units"])

	q := gotQuery.Load().(url.Values)
	assert.Equal(t, "test-key", q.Get("appid"))
	assert.Equal(t, "Paris", q.Get("q"))
	assert.Equal(t, "metric", q.Get("units"))
}

func TestCurrentWeather_UnknownUnitsFallBackToMetric(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "metric", r.URL.Query().Get("units"))
		w.Write([]byte(currentWeatherBody))
	}))
	_, err := client.CurrentWeather(context.Background(), "Paris", "kelvinish")
	require.NoError(t, err)
}

func TestStatusCodeMapping(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, ErrInvalidAPIKey},
		{http.StatusNotFound, ErrLocationNotFound},
		{http.StatusTooManyRequests, ErrRateLimited},
	}
	for _, tc := range tests {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(tc.status)
		}))
		_, err := client.CurrentWeather(context.Background(), "Paris", "metric")
		assert.ErrorIs(t, err, tc.want, "status %d", tc.status)
	}
}

func TestServerErrorIncludesProviderMessage(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message": "Nothing to geocode"}`))
	}))
	_, err := client.CurrentWeather(context.Background(), "", "metric")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Nothing to geocode")
}

func TestForecast_LimitsDays(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/forecast", r.URL.Path)
		w.Write([]byte(`{
			"city": {"name": "Tokyo", "country": "JP"},
			"list": [
				{"dt_txt": "2026-08-24 12:00:00", "main": {"temp": 30}, "weather": [{"main":"Clear","description":"clear sky"}], "wind": {"speed": 2}, "clouds": {"all": 0}, "pop": 0.25}
			]
		}`))
	}))

	data, err := client.Forecast(context.Background(), "Tokyo", 9, "metric")
	require.NoError(t, err)
	forecasts := data["forecasts"].([]map[string]any)
	require.Len(t, forecasts, 1)
	assert.Equal(t, 25.0, forecasts[0]["pop"])
	assert.Equal(t, "Tokyo", data["location"])
}

func TestCoordinates(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/geo/direct", r.URL.Path)
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		w.Write([]byte(`[{"name": "London", "lat": 51.5073, "lon": -0.1277, "country": "GB", "state": "England"}]`))
	}))

	data, err := client.Coordinates(context.Background(), "London")
	require.NoError(t, err)
	assert.Equal(t, 51.5073, data["latitude"])
	assert.Equal(t, "GB", data["country"])
}

func TestCoordinates_EmptyResultIsNotFound(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`[]`))
	}))
	_, err := client.Coordinates(context.Background(), "Atlantis")
	assert.ErrorIs(t, err, ErrLocationNotFound)
}

func TestAirPollution(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/air_pollution", r.URL.Path)
		w.Write([]byte(`{"list": [{"main": {"aqi": 2}, "components": {"co": 201.94, "pm2_5": 5.0}}]}`))
	}))

	data, err := client.AirPollution(context.Background(), 51.5, -0.12)
	require.NoError(t, err)
	assert.Equal(t, 2, data["aqi"])
	assert.Equal(t, "Fair", data["aqi_level"])
	assert.Equal(t, 5.0, data["pm2_5"])
}

func TestCaching_SecondLookupSkipsProvider(t *testing.T) {
	var hits atomic.Int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.Write([]byte(currentWeatherBody))
	}))

	for i := 0; i < 3; i++ {
		_, err := client.CurrentWeather(context.Background(), "Paris", "metric")
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), hits.Load())

	// Different units miss the cache.
	_, err := client.CurrentWeather(context.Background(), "Paris", "imperial")
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())
}

func TestCaching_ErrorsAreNotCached(t *testing.T) {
	var hits atomic.Int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(currentWeatherBody))
	}))

	_, err := client.CurrentWeather(context.Background(), "Paris", "metric")
	require.ErrorIs(t, err, ErrLocationNotFound)

	_, err = client.CurrentWeather(context.Background(), "Paris", "metric")
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())
}

func TestCacheDisabled(t *testing.T) {
	var hits atomic.Int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.Write([]byte(currentWeatherBody))
	}), func(o *Options) { o.Cache = nil })

	for i := 0; i < 2; i++ {
		_, err := client.CurrentWeather(context.Background(), "Paris", "metric")
		require.NoError(t, err)
	}
	assert.Equal(t, int32(2), hits.Load())
}

func TestCache_TTLAndEviction(t *testing.T) {
	c := NewCache(2, 20*time.Millisecond)
	c.Set("a", 1)
	c.Set("b", 2)

	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	// "b" is now least recently used; inserting "c" evicts it.
	c.Set("c", 3)
	_, ok = c.Get("b")
	assert.False(t, ok)
	_, ok = c.Get("a")
	assert.True(t, ok)

	time.Sleep(30 * time.Millisecond)
	_, ok = c.Get("a")
	assert.False(t, ok, "entry should expire after TTL")
}
