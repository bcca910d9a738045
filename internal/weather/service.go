package weather

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/i474232898/weather-wear-alerts/internal/observe"
)

var (
	// ErrNoProviders is returned when the service has nothing to fetch from.
	ErrNoProviders = errors.New("no weather providers configured")
	// ErrNoForecastData is returned when every provider failed or returned nothing.
	ErrNoForecastData = errors.New("no forecast data available")
)

// Service orchestrates fetching from multiple providers and recording forecasts.
type Service struct {
	store     Store
	providers []Provider
	logger    *log.Logger
	changes   *observe.Hub
	timeout   time.Duration
	now       func() time.Time
}

// NewService creates a new Service. A zero timeout leaves deadlines to the caller.
func NewService(store Store, providers []Provider, timeout time.Duration, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{
		store:     store,
		providers: providers,
		logger:    logger.With("component", "weather.service"),
		changes:   observe.NewHub(),
		timeout:   timeout,
		now:       time.Now,
	}
}

// Fetch queries all providers concurrently for loc, aggregates whatever
// succeeded into a new Forecast, records it and notifies subscribers.
// The force flag is informational; every call goes to the providers.
func (s *Service) Fetch(ctx context.Context, loc Location, unit TemperatureUnit, force bool) (Forecast, error) {
	if len(s.providers) == 0 {
		return Forecast{}, ErrNoProviders
	}
	if unit == "" {
		unit = Celsius
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	s.logger.Debug("fetching forecast", "location", loc.Key(), "unit", unit, "force", force, "providers", len(s.providers))

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results []ProviderForecast
	)

	for _, p := range s.providers {
		wg.Add(1)
		go func(p Provider) {
			defer wg.Done()

			pf, err := p.FetchForecast(ctx, loc, unit)
			if err != nil {
				// Log and continue; we want partial success when possible.
				s.logger.Warn("provider forecast failed", "provider", p.Name(), "location", loc.Key(), "err", err)
				return
			}
			if len(pf.Daily) == 0 && len(pf.Hourly) == 0 {
				return
			}
			if pf.ProviderName == "" {
				pf.ProviderName = p.Name()
			}

			mu.Lock()
			results = append(results, pf)
			mu.Unlock()
		}(p)
	}

	wg.Wait()

	if len(results) == 0 {
		return Forecast{}, fmt.Errorf("%w for %s", ErrNoForecastData, loc.Key())
	}

	forecast := s.aggregate(loc, unit, results)
	if s.store != nil {
		s.store.SaveForecast(loc, forecast)
	}
	s.logger.Info("forecast fetched", "location", loc.Key(), "providers", forecast.Providers, "hourly", len(forecast.Hourly), "daily", len(forecast.Daily))

	s.changes.Publish()
	return forecast, nil
}

func (s *Service) aggregate(loc Location, unit TemperatureUnit, results []ProviderForecast) Forecast {
	var (
		daily  [][]Sample
		hourly [][]Sample
		names  = make([]string, 0, len(results))
	)
	for _, r := range results {
		names = append(names, r.ProviderName)
		if len(r.Daily) > 0 {
			daily = append(daily, r.Daily)
		}
		if len(r.Hourly) > 0 {
			hourly = append(hourly, r.Hourly)
		}
	}

	f := Forecast{
		Location:  loc,
		Unit:      unit,
		FetchedAt: s.now().UTC(),
		Hourly:    MergeSeries(hourly, truncateHour),
		Providers: names,
	}
	if len(daily) > 0 {
		f.Daily = MergeSeries(daily, truncateDay)
	} else {
		f.Daily = DailyFromHourly(f.Hourly)
	}
	return f
}

// Subscribe registers fn to be called after every successful fetch.
func (s *Service) Subscribe(fn func()) *observe.Subscription {
	return s.changes.Subscribe(fn)
}

// Latest returns the most recent recorded forecast for loc in unit.
func (s *Service) Latest(loc Location, unit TemperatureUnit) (Forecast, error) {
	if s.store == nil {
		return Forecast{}, ErrNoForecastData
	}
	return s.store.GetLatest(loc, unit)
}

// History delegates to the underlying store.
func (s *Service) History(loc Location, from, to time.Time) ([]Forecast, error) {
	if s.store == nil {
		return nil, ErrNoForecastData
	}
	return s.store.GetRange(loc, from, to)
}
