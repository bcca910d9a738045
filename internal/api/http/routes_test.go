package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-wear-alerts/internal/advisor"
	"github.com/i474232898/weather-wear-alerts/internal/alerts"
	"github.com/i474232898/weather-wear-alerts/internal/location"
	"github.com/i474232898/weather-wear-alerts/internal/profile"
	"github.com/i474232898/weather-wear-alerts/internal/refresh"
	"github.com/i474232898/weather-wear-alerts/internal/store"
	"github.com/i474232898/weather-wear-alerts/internal/weather"
)

type stubFetcher struct{}

func (stubFetcher) Fetch(_ context.Context, loc weather.Location, unit weather.TemperatureUnit, _ bool) (weather.Forecast, error) {
	now := time.Now().UTC()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return weather.Forecast{
		Location:  loc,
		Unit:      unit,
		FetchedAt: now,
		Daily:     []weather.Sample{{Time: day, Temperature: 12, FeelsLike: 10, Condition: weather.ConditionCloudy}},
	}, nil
}

type stubHistory struct{}

func (stubHistory) History(weather.Location, time.Time, time.Time) ([]weather.Forecast, error) {
	return nil, store.ErrNotFound
}

type testEnv struct {
	app       *fiber.App
	profiles  *store.MemoryProfileStore
	locations *location.Provider
	coord     *refresh.Coordinator
	installer *alerts.WeeklyInstaller
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := log.New(io.Discard)
	profiles := store.NewMemoryProfileStore()
	require.NoError(t, store.Initialize(context.Background(), profiles, profile.Default()))
	locations := location.NewProvider(true)

	adv := advisor.New(time.UTC)
	installer := alerts.NewWeeklyInstaller(time.UTC, alerts.DefaultRemap, alerts.LogDeliverer{Logger: logger}, logger)
	resched := alerts.NewRescheduler(installer, stubFetcher{}, adv, alerts.DefaultRemap, logger)
	coord := refresh.New(profiles, locations, stubFetcher{}, nil, refresh.Options{Logger: logger})

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	RegisterRoutes(app, Deps{
		Coordinator:   coord,
		Profiles:      profiles,
		Locations:     locations,
		Geocoder:      location.NewGeocoder(""),
		Advisor:       adv,
		Notifications: installer,
		Rescheduler:   resched,
		History:       stubHistory{},
	})

	return &testEnv{app: app, profiles: profiles, locations: locations, coord: coord, installer: installer}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) (int, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := e.app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	code, body := env.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, code)
	require.Contains(t, string(body), `"status":"ok"`)
}

func TestProfileRoundTrip(t *testing.T) {
	env := newTestEnv(t)

	p := profile.Default()
	p.Name = "Ada"
	p.TemperatureUnit = weather.Fahrenheit
	p.Alert.Time = profile.MustTime("07:15")
	p.Alert.Days[profile.Tuesday] = true

	code, _ := env.do(t, http.MethodPut, "/api/v1/profile", p)
	require.Equal(t, http.StatusOK, code)

	code, body := env.do(t, http.MethodGet, "/api/v1/profile", nil)
	require.Equal(t, http.StatusOK, code)

	var got profile.Profile
	require.NoError(t, json.Unmarshal(body, &got))
	require.Equal(t, "Ada", got.Name)
	require.Equal(t, weather.Fahrenheit, got.TemperatureUnit)
	require.True(t, got.Alert.Days[profile.Tuesday])
	require.Equal(t, "07:15", got.Alert.Time.String())

	code, body = env.do(t, http.MethodPost, "/api/v1/profile/reset", nil)
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(body, &got))
	require.Equal(t, weather.Celsius, got.TemperatureUnit)
}

func TestProfileValidation(t *testing.T) {
	env := newTestEnv(t)

	bad := map[string]any{"gender": "robot", "temperatureUnit": "kelvin"}
	code, body := env.do(t, http.MethodPut, "/api/v1/profile", bad)
	require.Equal(t, http.StatusBadRequest, code)
	require.Contains(t, string(body), `"error":true`)

	short := map[string]any{
		"gender":          "man",
		"temperatureUnit": "celsius",
		"alert":           map[string]any{"enabled": true, "days": []bool{true, false, true}, "time": "07:00"},
	}
	code, _ = env.do(t, http.MethodPut, "/api/v1/profile", short)
	require.Equal(t, http.StatusBadRequest, code)
}

func TestSetHome(t *testing.T) {
	env := newTestEnv(t)

	code, body := env.do(t, http.MethodPut, "/api/v1/profile/home", map[string]any{"lat": 48.85, "lon": 2.35, "label": "Paris"})
	require.Equal(t, http.StatusOK, code)
	var got profile.Profile
	require.NoError(t, json.Unmarshal(body, &got))
	require.NotNil(t, got.Home)
	require.Equal(t, "Paris", got.Home.Label)

	code, _ = env.do(t, http.MethodPut, "/api/v1/profile/home", map[string]any{"lat": 48.85})
	require.Equal(t, http.StatusBadRequest, code)

	code, _ = env.do(t, http.MethodPut, "/api/v1/profile/home", map[string]any{"lat": 123.0, "lon": 2.35})
	require.Equal(t, http.StatusBadRequest, code)

	code, _ = env.do(t, http.MethodPut, "/api/v1/profile/home", map[string]any{"city": "Paris", "country": "FR"})
	require.Equal(t, http.StatusServiceUnavailable, code)
}

func TestHomeFromCurrentLocation(t *testing.T) {
	env := newTestEnv(t)

	code, _ := env.do(t, http.MethodPost, "/api/v1/profile/home/current", nil)
	require.Equal(t, http.StatusConflict, code)

	code, _ = env.do(t, http.MethodPut, "/api/v1/location", weather.Location{Lat: 40.41, Lon: -3.70, Label: "Madrid"})
	require.Equal(t, http.StatusOK, code)

	code, _ = env.do(t, http.MethodPost, "/api/v1/profile/home/current", nil)
	require.Equal(t, http.StatusOK, code)

	p, ok, err := env.profiles.Load(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "Madrid", p.Home.Label)
}

func TestLocationPermission(t *testing.T) {
	env := newTestEnv(t)
	env.locations.Set(weather.Location{Lat: 1, Lon: 2})

	code, _ := env.do(t, http.MethodPut, "/api/v1/location/permission", map[string]any{})
	require.Equal(t, http.StatusBadRequest, code)

	code, body := env.do(t, http.MethodPut, "/api/v1/location/permission", map[string]any{"granted": false})
	require.Equal(t, http.StatusOK, code)
	require.Contains(t, string(body), `"granted":false`)
	_, ok := env.locations.Current()
	require.False(t, ok)

	code, _ = env.do(t, http.MethodDelete, "/api/v1/location", nil)
	require.Equal(t, http.StatusNoContent, code)
}

func TestRefreshAndRecommendation(t *testing.T) {
	env := newTestEnv(t)

	code, _ := env.do(t, http.MethodGet, "/api/v1/recommendation", nil)
	require.Equal(t, http.StatusNotFound, code)

	env.locations.Set(weather.Location{Lat: 52.52, Lon: 13.40})
	code, _ = env.do(t, http.MethodPost, "/api/v1/refresh", nil)
	require.Equal(t, http.StatusAccepted, code)
	env.coord.Wait()

	code, body := env.do(t, http.MethodGet, "/api/v1/state", nil)
	require.Equal(t, http.StatusOK, code)
	var st refresh.State
	require.NoError(t, json.Unmarshal(body, &st))
	require.NotNil(t, st.Forecast)
	require.False(t, st.IsRefreshing)
	require.Equal(t, refresh.StatusIdle, st.Status)

	code, body = env.do(t, http.MethodGet, "/api/v1/recommendation", nil)
	require.Equal(t, http.StatusOK, code)
	require.Contains(t, string(body), `"recommendation"`)
	require.Contains(t, string(body), `"feelsLike":"10°C"`)
}

func TestRescheduleNotifications(t *testing.T) {
	env := newTestEnv(t)

	p := profile.Default()
	p.Alert.Time = profile.MustTime("06:30")
	p.Alert.Days[profile.Monday] = true
	p.Alert.Days[profile.Thursday] = true
	require.NoError(t, env.profiles.Save(context.Background(), p))

	code, _ := env.do(t, http.MethodPost, "/api/v1/notifications/reschedule", nil)
	require.Equal(t, http.StatusConflict, code)

	p.Home = &weather.Location{Lat: 59.33, Lon: 18.07}
	require.NoError(t, env.profiles.Save(context.Background(), p))

	code, body := env.do(t, http.MethodPost, "/api/v1/notifications/reschedule", nil)
	require.Equal(t, http.StatusOK, code)

	var installed []alerts.Installed
	require.NoError(t, json.Unmarshal(body, &installed))
	require.Len(t, installed, 2)
	require.Equal(t, alerts.ExternalWeekday(2), installed[0].Descriptor.Weekday)
	require.Equal(t, alerts.ExternalWeekday(5), installed[1].Descriptor.Weekday)

	code, body = env.do(t, http.MethodGet, "/api/v1/notifications", nil)
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(body, &installed))
	require.Len(t, installed, 2)
}

func TestForecastHistoryValidation(t *testing.T) {
	env := newTestEnv(t)

	code, _ := env.do(t, http.MethodGet, "/api/v1/forecasts/history?lat=1&lon=2", nil)
	require.Equal(t, http.StatusBadRequest, code)

	code, _ = env.do(t, http.MethodGet, "/api/v1/forecasts/history?lat=1&lon=2&from=2026-03-02T00:00:00Z&to=2026-03-01T00:00:00Z", nil)
	require.Equal(t, http.StatusBadRequest, code)

	code, _ = env.do(t, http.MethodGet, "/api/v1/forecasts/history?lat=1&lon=2&from=2026-03-01T00:00:00Z&to=2026-03-02T00:00:00Z", nil)
	require.Equal(t, http.StatusNotFound, code)
}
