package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-wear-alerts/internal/weather"
)

func serveJSON(t *testing.T, body string, check func(r *http.Request)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			check(r)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenMeteoFetchForecast(t *testing.T) {
	body := `{
		"hourly": {
			"time": ["2026-03-02T07:00", "2026-03-02T08:00"],
			"temperature_2m": [41.0, 43.5],
			"apparent_temperature": [37.0, 40.1],
			"precipitation": [0.4, 0],
			"weathercode": [61, 2]
		},
		"daily": {
			"time": ["2026-03-02"],
			"temperature_2m_max": [50.2],
			"apparent_temperature_max": [47.9],
			"precipitation_sum": [1.2],
			"weathercode": [63]
		}
	}`
	srv := serveJSON(t, body, func(r *http.Request) {
		require.Equal(t, "fahrenheit", r.URL.Query().Get("temperature_unit"))
		require.Equal(t, "UTC", r.URL.Query().Get("timezone"))
	})

	p := NewOpenMeteoProvider(Options{Client: srv.Client(), BaseURL: srv.URL})
	pf, err := p.FetchForecast(context.Background(), weather.Location{Lat: 1, Lon: 2}, weather.Fahrenheit)
	require.NoError(t, err)

	require.Equal(t, "openmeteo", pf.ProviderName)
	require.Len(t, pf.Hourly, 2)
	require.Equal(t, time.Date(2026, 3, 2, 7, 0, 0, 0, time.UTC), pf.Hourly[0].Time)
	require.Equal(t, weather.ConditionRain, pf.Hourly[0].Condition)
	require.Equal(t, weather.ConditionCloudy, pf.Hourly[1].Condition)
	require.Len(t, pf.Daily, 1)
	require.Equal(t, 47.9, pf.Daily[0].FeelsLike)
}

func TestOpenWeatherFetchForecast(t *testing.T) {
	body := `{"list": [
		{"dt": 1772434800, "main": {"temp": 4.5, "feels_like": 1.2}, "rain": {"3h": 0.8},
		 "weather": [{"main": "Rain", "description": "light rain"}]},
		{"dt": 1772445600, "main": {"temp": 6.0, "feels_like": 4.0},
		 "weather": [{"main": "Clear", "description": "clear sky"}]}
	]}`
	srv := serveJSON(t, body, func(r *http.Request) {
		require.Equal(t, "metric", r.URL.Query().Get("units"))
		require.Equal(t, "secret", r.URL.Query().Get("appid"))
	})

	p := NewOpenWeatherProvider(Options{Client: srv.Client(), BaseURL: srv.URL, RequestsPerMinute: 600}, "secret")
	pf, err := p.FetchForecast(context.Background(), weather.Location{Lat: 1, Lon: 2}, weather.Celsius)
	require.NoError(t, err)

	require.Len(t, pf.Hourly, 2)
	require.Empty(t, pf.Daily)
	require.Equal(t, weather.ConditionRain, pf.Hourly[0].Condition)
	require.Equal(t, "light rain", pf.Hourly[0].Description)
	require.Equal(t, 0.8, pf.Hourly[0].PrecipMm)
	require.Equal(t, weather.ConditionClear, pf.Hourly[1].Condition)
}

func TestWeatherAPIFetchForecastPicksUnit(t *testing.T) {
	body := `{"forecast": {"forecastday": [{
		"date_epoch": 1772409600,
		"day": {"maxtemp_c": 10, "maxtemp_f": 50, "totalprecip_mm": 2.5, "condition": {"text": "Patchy rain possible"}},
		"hour": [{"time_epoch": 1772434800, "temp_c": 5, "temp_f": 41, "feelslike_c": 2, "feelslike_f": 35.6,
		          "precip_mm": 0.3, "condition": {"text": "Light drizzle"}}]
	}]}}`
	srv := serveJSON(t, body, nil)

	p := NewWeatherAPIProvider(Options{Client: srv.Client(), BaseURL: srv.URL}, "key")
	pf, err := p.FetchForecast(context.Background(), weather.Location{Lat: 1, Lon: 2}, weather.Fahrenheit)
	require.NoError(t, err)

	require.Len(t, pf.Daily, 1)
	require.Equal(t, 50.0, pf.Daily[0].Temperature)
	require.Equal(t, weather.ConditionRain, pf.Daily[0].Condition)
	require.Len(t, pf.Hourly, 1)
	require.Equal(t, 35.6, pf.Hourly[0].FeelsLike)
}

func TestProvidersRequireAPIKey(t *testing.T) {
	opts := Options{Client: http.DefaultClient}
	ctx := context.Background()

	_, err := NewOpenWeatherProvider(opts, "").FetchForecast(ctx, weather.Location{}, weather.Celsius)
	require.ErrorIs(t, err, errMissingAPIKey)

	_, err = NewWeatherAPIProvider(opts, "").FetchForecast(ctx, weather.Location{}, weather.Celsius)
	require.ErrorIs(t, err, errMissingAPIKey)
}

func TestClientWithoutHTTPClient(t *testing.T) {
	var out struct{}
	err := newClient("t", "http://example.invalid", Options{}).getJSON(context.Background(), url.Values{}, &out)
	require.ErrorIs(t, err, errNoHTTPClient)
}

func TestClientRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"ok": true}`))
	}))
	t.Cleanup(srv.Close)

	c := newClient("retry", srv.URL, Options{
		Client:  srv.Client(),
		Backoff: BackoffConfig{MaxRetries: 3, InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond},
	})

	var out struct {
		OK bool `json:"ok"`
	}
	require.NoError(t, c.getJSON(context.Background(), url.Values{"a": {"b"}}, &out))
	require.True(t, out.OK)
	require.Equal(t, int32(3), calls.Load())
}

func TestClientGivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	t.Cleanup(srv.Close)

	c := newClient("limited", srv.URL, Options{
		Client:  srv.Client(),
		Backoff: BackoffConfig{MaxRetries: 1, InitialInterval: time.Millisecond},
	})

	var out struct{}
	err := c.getJSON(context.Background(), url.Values{}, &out)
	require.ErrorIs(t, err, errRateLimited)
	require.Equal(t, int32(2), calls.Load())
}

func TestMapWeatherAPICondition(t *testing.T) {
	cases := map[string]weather.Condition{
		"":                          weather.ConditionUnknown,
		"Sunny":                     weather.ConditionClear,
		"Partly cloudy":             weather.ConditionCloudy,
		"Moderate rain":             weather.ConditionRain,
		"Thundery outbreaks nearby": weather.ConditionStorm,
		"Light snow showers":        weather.ConditionSnow,
		"Freezing fog":              weather.ConditionMist,
	}
	for text, want := range cases {
		require.Equal(t, want, mapWeatherAPICondition(text), text)
	}
}
