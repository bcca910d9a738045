package location

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/kelvins/geocoder"

	"github.com/i474232898/weather-wear-alerts/internal/weather"
)

var (
	// ErrGeocoderDisabled is returned when no Google API key was configured.
	ErrGeocoderDisabled = errors.New("geocoder api key is not configured")
	// ErrAddressRequired is returned for an empty city.
	ErrAddressRequired = errors.New("city is required")
)

// lookupFunc matches geocoder.Geocoding and is swapped in tests.
type lookupFunc func(geocoder.Address) (geocoder.Location, error)

// Geocoder resolves a city/country pair to coordinates.
type Geocoder struct {
	apiKey string
	lookup lookupFunc
}

// The geocoder package keeps its API key in a package variable.
var geocoderMu sync.Mutex

func NewGeocoder(apiKey string) *Geocoder {
	return &Geocoder{
		apiKey: apiKey,
		lookup: geocoder.Geocoding,
	}
}

// Enabled reports whether Resolve can be used.
func (g *Geocoder) Enabled() bool {
	return g != nil && g.apiKey != ""
}

// Resolve looks the address up and returns a labelled location.
func (g *Geocoder) Resolve(ctx context.Context, city, country string) (weather.Location, error) {
	if !g.Enabled() {
		return weather.Location{}, ErrGeocoderDisabled
	}
	city = strings.TrimSpace(city)
	country = strings.TrimSpace(country)
	if city == "" {
		return weather.Location{}, ErrAddressRequired
	}
	if err := ctx.Err(); err != nil {
		return weather.Location{}, err
	}

	geocoderMu.Lock()
	geocoder.ApiKey = g.apiKey
	loc, err := g.lookup(geocoder.Address{City: city, Country: country})
	geocoderMu.Unlock()
	if err != nil {
		return weather.Location{}, fmt.Errorf("geocode %s: %w", city, err)
	}

	label := city
	if country != "" {
		label = city + ", " + country
	}
	return weather.Location{Lat: loc.Latitude, Lon: loc.Longitude, Label: label}, nil
}
