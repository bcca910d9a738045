package weather

import (
	"fmt"
	"time"
)

// Condition represents a normalized high-level weather condition.
type Condition string

const (
	ConditionUnknown Condition = "unknown"
	ConditionClear   Condition = "clear"
	ConditionCloudy  Condition = "cloudy"
	ConditionRain    Condition = "rain"
	ConditionSnow    Condition = "snow"
	ConditionStorm   Condition = "storm"
	ConditionMist    Condition = "mist"
)

// Wet reports whether the condition calls for rain gear.
func (c Condition) Wet() bool {
	return c == ConditionRain || c == ConditionStorm || c == ConditionSnow
}

// TemperatureUnit selects the unit every temperature in a Forecast is expressed in.
type TemperatureUnit string

const (
	Celsius    TemperatureUnit = "celsius"
	Fahrenheit TemperatureUnit = "fahrenheit"
)

// Symbol returns the short unit letter used when formatting temperatures.
func (u TemperatureUnit) Symbol() string {
	if u == Fahrenheit {
		return "F"
	}
	return "C"
}

// Location is a point on the map. Label is informational only.
type Location struct {
	Lat   float64 `json:"lat" yaml:"lat" validate:"gte=-90,lte=90"`
	Lon   float64 `json:"lon" yaml:"lon" validate:"gte=-180,lte=180"`
	Label string  `json:"label,omitempty" yaml:"label,omitempty"`
}

// Key returns a canonical string key for indexing this location in stores.
func (l Location) Key() string {
	return fmt.Sprintf("%.4f:%.4f", l.Lat, l.Lon)
}

// Equal compares coordinates only.
func (l Location) Equal(o Location) bool {
	return l.Key() == o.Key()
}

func (l Location) String() string {
	if l.Label != "" {
		return l.Label
	}
	return fmt.Sprintf("%.4f, %.4f", l.Lat, l.Lon)
}

// Sample is a single normalized point of a forecast.
type Sample struct {
	Time        time.Time `json:"time"` // always UTC
	Temperature float64   `json:"temperature"`
	FeelsLike   float64   `json:"feelsLike"`
	Condition   Condition `json:"condition"`
	Description string    `json:"description,omitempty"`
	PrecipMm    float64   `json:"precipMm"`
}

// Forecast is the aggregated multi-provider forecast for a location.
// Daily and Hourly are ordered by Time ascending. A Forecast is never
// modified after it has been returned by a fetch.
type Forecast struct {
	Location  Location        `json:"location"`
	Unit      TemperatureUnit `json:"unit"`
	FetchedAt time.Time       `json:"fetchedAt"`
	Daily     []Sample        `json:"daily"`
	Hourly    []Sample        `json:"hourly"`

	// Providers contributing to this forecast.
	Providers []string `json:"providers,omitempty"`
}

// IsZero reports whether f holds no data at all.
func (f Forecast) IsZero() bool {
	return f.FetchedAt.IsZero() && len(f.Daily) == 0 && len(f.Hourly) == 0
}
