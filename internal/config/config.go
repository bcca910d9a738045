package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/i474232898/weather-wear-alerts/internal/alerts"
	"github.com/i474232898/weather-wear-alerts/internal/weather"
)

type AppConfig struct {
	OpenWeatherAPIKey string
	WeatherAPIKey     string
	GeocoderAPIKey    string

	// RefreshPeriod is the staleness window for non-forced refreshes.
	RefreshPeriod time.Duration `validate:"gt=0"`
	// FetchTimeout bounds one multi-provider fetch; HTTPTimeout one request.
	FetchTimeout time.Duration `validate:"gt=0"`
	HTTPTimeout  time.Duration `validate:"gt=0"`
	// ProviderRPM limits requests per minute per provider (0 = unlimited).
	ProviderRPM int `validate:"gte=0"`

	// In-memory forecast history retention.
	StoreMaxHistory int           `validate:"gte=0"` // max number of forecasts per location (0 = unlimited)
	StoreMaxAge     time.Duration `validate:"gte=0"` // max age of forecasts (0 = unlimited)

	// ProfileDBPath selects the SQLite profile store; empty keeps it in memory.
	ProfileDBPath   string
	ProfileSeedPath string

	// ReentryInterval is how often the background job simulates app re-entry.
	ReentryInterval time.Duration `validate:"gt=0"`
	// AlertUpdateCron is a standard 5-field cron expression.
	AlertUpdateCron string `validate:"required"`
	// Timezone notifications fire in and "today" is evaluated in.
	Timezone *time.Location

	WeekdayRemap alerts.Remap

	// InitialLocation seeds the current-location signal when set.
	InitialLocation *weather.Location

	LogLevel string `validate:"oneof=debug info warn error"`
	LogFile  string
	LogJSON  bool

	Port string `validate:"required,numeric"`
}

var validate = validator.New()

// Load reads configuration from environment with sensible defaults.
// A missing .env file is not an error.
func Load() (*AppConfig, error) {
	_ = godotenv.Load()

	cfg := &AppConfig{}

	cfg.OpenWeatherAPIKey = os.Getenv("OPENWEATHER_API_KEY")
	cfg.WeatherAPIKey = os.Getenv("WEATHERAPI_API_KEY")
	cfg.GeocoderAPIKey = os.Getenv("GEOCODER_API_KEY")

	var err error
	if cfg.RefreshPeriod, err = getenvDuration("REFRESH_PERIOD", 300*time.Second); err != nil {
		return nil, err
	}
	if cfg.FetchTimeout, err = getenvDuration("FETCH_TIMEOUT", 20*time.Second); err != nil {
		return nil, err
	}
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	cfg.ProviderRPM = getenvInt("PROVIDER_RPM", 60)

	cfg.StoreMaxHistory = getenvInt("STORE_MAX_HISTORY", 96)
	if cfg.StoreMaxAge, err = getenvDuration("STORE_MAX_AGE", 24*time.Hour); err != nil {
		return nil, err
	}

	cfg.ProfileDBPath = os.Getenv("PROFILE_DB_PATH")
	cfg.ProfileSeedPath = os.Getenv("PROFILE_SEED_PATH")

	if cfg.ReentryInterval, err = getenvDuration("REENTRY_INTERVAL", 5*time.Minute); err != nil {
		return nil, err
	}
	cfg.AlertUpdateCron = getenvDefault("ALERT_UPDATE_CRON", "0 * * * *")
	if _, err := cron.ParseStandard(cfg.AlertUpdateCron); err != nil {
		return nil, fmt.Errorf("invalid ALERT_UPDATE_CRON: %w", err)
	}

	if cfg.Timezone, err = time.LoadLocation(getenvDefault("TZ_NAME", "Local")); err != nil {
		return nil, fmt.Errorf("invalid TZ_NAME: %w", err)
	}

	if cfg.WeekdayRemap, err = loadRemap(); err != nil {
		return nil, err
	}

	if cfg.InitialLocation, err = loadInitialLocation(); err != nil {
		return nil, err
	}

	cfg.LogLevel = getenvDefault("LOG_LEVEL", "info")
	cfg.LogFile = os.Getenv("LOG_FILE")
	cfg.LogJSON = getenvBool("LOG_JSON", false)
	cfg.Port = getenvDefault("PORT", "8080")

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func loadRemap() (alerts.Remap, error) {
	r := alerts.DefaultRemap

	if v := os.Getenv("WEEKDAY_INTERNAL_START"); v != "" {
		d, err := alerts.ParseWeekday(v)
		if err != nil {
			return r, fmt.Errorf("invalid WEEKDAY_INTERNAL_START: %w", err)
		}
		r.InternalStart = d
	}
	if v := os.Getenv("NOTIFY_WEEKDAY_START"); v != "" {
		d, err := alerts.ParseWeekday(v)
		if err != nil {
			return r, fmt.Errorf("invalid NOTIFY_WEEKDAY_START: %w", err)
		}
		r.ExternalStart = d
	}
	r.ExternalBase = getenvInt("NOTIFY_WEEKDAY_BASE", r.ExternalBase)
	return r, nil
}

func loadInitialLocation() (*weather.Location, error) {
	lat, lon := os.Getenv("LOCATION_LAT"), os.Getenv("LOCATION_LON")
	if lat == "" && lon == "" {
		return nil, nil
	}

	var (
		loc weather.Location
		err error
	)
	if loc.Lat, err = strconv.ParseFloat(lat, 64); err != nil {
		return nil, fmt.Errorf("invalid LOCATION_LAT: %w", err)
	}
	if loc.Lon, err = strconv.ParseFloat(lon, 64); err != nil {
		return nil, fmt.Errorf("invalid LOCATION_LON: %w", err)
	}
	loc.Label = os.Getenv("LOCATION_LABEL")

	if err := validate.Struct(loc); err != nil {
		return nil, fmt.Errorf("invalid initial location: %w", err)
	}
	return &loc, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
