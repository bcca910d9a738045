package weather

import (
	"context"
	"time"
)

// ProviderForecast is a single provider's normalized forecast that can be
// aggregated into a Forecast. Either series may be empty.
type ProviderForecast struct {
	ProviderName string
	Daily        []Sample
	Hourly       []Sample
}

// Provider abstracts a forecast source (e.g. OpenWeatherMap, WeatherAPI, Open-Meteo).
type Provider interface {
	Name() string
	FetchForecast(ctx context.Context, loc Location, unit TemperatureUnit) (ProviderForecast, error)
}

// Store is the contract the forecast history store must satisfy.
type Store interface {
	SaveForecast(loc Location, forecast Forecast)
	GetLatest(loc Location, unit TemperatureUnit) (Forecast, error)
	GetRange(loc Location, from, to time.Time) ([]Forecast, error)
}
