package store

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/i474232898/weather-wear-alerts/internal/weather"
)

var (
	// ErrNotFound is returned when no forecast is recorded for a given location.
	ErrNotFound = errors.New("no forecast for location")
)

// ForecastStore is a concurrency-safe in-memory record of fetched forecasts,
// kept per location in fetch order. It is history, not a cache: nothing
// serves fetches from it.
type ForecastStore struct {
	mu      sync.RWMutex
	byPlace map[string][]weather.Forecast

	keep   int           // per location; 0 keeps everything
	maxAge time.Duration // 0 keeps everything

	now func() time.Time
}

// NewForecastStore creates a ForecastStore. maxHistory <= 0 and maxAge <= 0
// disable the respective limit.
func NewForecastStore(maxHistory int, maxAge time.Duration) *ForecastStore {
	return &ForecastStore{
		byPlace: make(map[string][]weather.Forecast),
		keep:    maxHistory,
		maxAge:  maxAge,
		now:     time.Now,
	}
}

// SaveForecast records f under loc. Forecasts arriving out of order are
// slotted in by FetchedAt.
func (s *ForecastStore) SaveForecast(loc weather.Location, f weather.Forecast) {
	key := loc.Key()

	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.byPlace[key]
	i := sort.Search(len(list), func(i int) bool { return list[i].FetchedAt.After(f.FetchedAt) })
	list = append(list, weather.Forecast{})
	copy(list[i+1:], list[i:])
	list[i] = f

	s.byPlace[key] = s.prune(list)
}

// prune drops entries beyond the count limit and those older than maxAge.
// The newest entry always survives.
func (s *ForecastStore) prune(list []weather.Forecast) []weather.Forecast {
	if s.keep > 0 && len(list) > s.keep {
		list = list[len(list)-s.keep:]
	}
	if s.maxAge > 0 && len(list) > 1 {
		cutoff := s.now().Add(-s.maxAge)
		first := sort.Search(len(list)-1, func(i int) bool { return !list[i].FetchedAt.Before(cutoff) })
		list = list[first:]
	}
	return list
}

// GetLatest returns the most recent forecast for loc in unit. An empty unit
// matches any.
func (s *ForecastStore) GetLatest(loc weather.Location, unit weather.TemperatureUnit) (weather.Forecast, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := s.byPlace[loc.Key()]
	for i := len(list) - 1; i >= 0; i-- {
		if unit == "" || list[i].Unit == unit {
			return list[i], nil
		}
	}
	return weather.Forecast{}, ErrNotFound
}

// GetRange returns the forecasts for loc fetched between from and to, both inclusive.
func (s *ForecastStore) GetRange(loc weather.Location, from, to time.Time) ([]weather.Forecast, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := s.byPlace[loc.Key()]
	lo := sort.Search(len(list), func(i int) bool { return !list[i].FetchedAt.Before(from) })
	hi := sort.Search(len(list), func(i int) bool { return list[i].FetchedAt.After(to) })
	if lo >= hi {
		return nil, ErrNotFound
	}
	return append([]weather.Forecast(nil), list[lo:hi]...), nil
}
