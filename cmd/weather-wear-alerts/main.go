package main

import (
	"context"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/i474232898/weather-wear-alerts/internal/advisor"
	"github.com/i474232898/weather-wear-alerts/internal/alerts"
	httpapi "github.com/i474232898/weather-wear-alerts/internal/api/http"
	"github.com/i474232898/weather-wear-alerts/internal/config"
	"github.com/i474232898/weather-wear-alerts/internal/location"
	"github.com/i474232898/weather-wear-alerts/internal/logging"
	"github.com/i474232898/weather-wear-alerts/internal/refresh"
	"github.com/i474232898/weather-wear-alerts/internal/scheduler"
	"github.com/i474232898/weather-wear-alerts/internal/store"
	"github.com/i474232898/weather-wear-alerts/internal/weather"
	"github.com/i474232898/weather-wear-alerts/internal/weather/providers"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config", "err", err)
	}

	lg, logCloser, err := logging.New(logging.Config{Level: cfg.LogLevel, File: cfg.LogFile, JSON: cfg.LogJSON})
	if err != nil {
		log.Fatal("failed to set up logging", "err", err)
	}
	defer logCloser.Close()
	log.SetDefault(lg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Profile store: SQLite when a path is configured, memory otherwise.
	var profiles store.ProfileStore
	if cfg.ProfileDBPath != "" {
		db, err := store.OpenSQLite(ctx, cfg.ProfileDBPath)
		if err != nil {
			lg.Fatal("failed to open profile database", "path", cfg.ProfileDBPath, "err", err)
		}
		defer db.Close()
		profiles = db
	} else {
		profiles = store.NewMemoryProfileStore()
	}

	seed, err := store.LoadSeed(cfg.ProfileSeedPath)
	if err != nil {
		lg.Fatal("failed to load profile seed", "err", err)
	}
	if err := store.Initialize(ctx, profiles, seed); err != nil {
		lg.Fatal("failed to initialize profile", "err", err)
	}

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}
	provOpts := providers.Options{Client: httpClient, RequestsPerMinute: cfg.ProviderRPM}

	// Providers with resilience (rate limit + backoff + circuit breaker).
	provs := []weather.Provider{providers.NewOpenMeteoProvider(provOpts)}
	if cfg.OpenWeatherAPIKey != "" {
		provs = append(provs, providers.NewOpenWeatherProvider(provOpts, cfg.OpenWeatherAPIKey))
	}
	if cfg.WeatherAPIKey != "" {
		provs = append(provs, providers.NewWeatherAPIProvider(provOpts, cfg.WeatherAPIKey))
	}

	history := store.NewForecastStore(cfg.StoreMaxHistory, cfg.StoreMaxAge)
	service := weather.NewService(history, provs, cfg.FetchTimeout, lg)

	locations := location.NewProvider(true)
	if cfg.InitialLocation != nil {
		locations.Set(*cfg.InitialLocation)
	}

	adv := advisor.New(cfg.Timezone)
	installer := alerts.NewWeeklyInstaller(cfg.Timezone, cfg.WeekdayRemap, alerts.LogDeliverer{Logger: lg}, lg)
	installer.Start()
	rescheduler := alerts.NewRescheduler(installer, service, adv, cfg.WeekdayRemap, lg)

	coordinator := refresh.New(profiles, locations, service, rescheduler, refresh.Options{
		Period: cfg.RefreshPeriod,
		Logger: lg,
	})
	coordinator.Start(ctx)

	sched := scheduler.New(scheduler.Config{
		ReentryInterval: cfg.ReentryInterval,
		AlertUpdateCron: cfg.AlertUpdateCron,
		JobTimeout:      cfg.FetchTimeout + 10*time.Second,
	}, cfg.Timezone, coordinator, profiles, rescheduler, lg)
	if err := sched.Start(); err != nil {
		lg.Fatal("failed to start scheduler", "err", err)
	}

	app := fiber.New(fiber.Config{
		AppName:               "weather-wear-alerts",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          30 * time.Second,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	// Global middleware
	app.Use(logger.New(logger.Config{Output: accessLog(lg)}))
	app.Use(recover.New())

	httpapi.RegisterRoutes(app, httpapi.Deps{
		Coordinator:   coordinator,
		Profiles:      profiles,
		Locations:     locations,
		Geocoder:      location.NewGeocoder(cfg.GeocoderAPIKey),
		Advisor:       adv,
		Notifications: installer,
		Rescheduler:   rescheduler,
		History:       service,
	})

	go func() {
		lg.Info("listening", "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			lg.Error("fiber server stopped", "err", err)
		}
	}()

	// Wait for termination signal
	<-ctx.Done()
	lg.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		lg.Error("error during shutdown", "err", err)
	}
	sched.Stop()
	coordinator.Stop()
	if err := rescheduler.Stop(shutdownCtx); err != nil {
		lg.Warn("failed to cancel notifications", "err", err)
	}
	installer.Stop()
}

// accessLog routes fiber's access log lines through the application logger.
func accessLog(lg *log.Logger) io.Writer {
	return lg.StandardLog(log.StandardLogOptions{ForceLevel: log.InfoLevel}).Writer()
}
