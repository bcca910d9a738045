package providers

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/i474232898/weather-wear-alerts/internal/weather"
)

// OpenWeatherProvider implements the weather.Provider interface for the
// OpenWeatherMap 5 day / 3 hour forecast.
type OpenWeatherProvider struct {
	name   string
	apiKey string
	client *client
}

func NewOpenWeatherProvider(opts Options, apiKey string) *OpenWeatherProvider {
	return &OpenWeatherProvider{
		name:   "openweathermap",
		apiKey: apiKey,
		client: newClient("openweather", "https://api.openweathermap.org/data/2.5/forecast", opts),
	}
}

func (p *OpenWeatherProvider) Name() string {
	return p.name
}

func (p *OpenWeatherProvider) FetchForecast(ctx context.Context, loc weather.Location, unit weather.TemperatureUnit) (weather.ProviderForecast, error) {
	if p.apiKey == "" {
		return weather.ProviderForecast{}, fmt.Errorf("openweather: %w", errMissingAPIKey)
	}

	values := url.Values{}
	values.Set("appid", p.apiKey)
	values.Set("units", unitParam(unit, "metric", "imperial"))
	values.Set("lat", fmt.Sprintf("%f", loc.Lat))
	values.Set("lon", fmt.Sprintf("%f", loc.Lon))

	var payload struct {
		List []struct {
			Dt   int64 `json:"dt"`
			Main struct {
				Temp      float64 `json:"temp"`
				FeelsLike float64 `json:"feels_like"`
			} `json:"main"`
			Rain struct {
				ThreeH float64 `json:"3h"`
			} `json:"rain"`
			Snow struct {
				ThreeH float64 `json:"3h"`
			} `json:"snow"`
			Weather []openWeatherCondition `json:"weather"`
		} `json:"list"`
	}

	if err := p.client.getJSON(ctx, values, &payload); err != nil {
		return weather.ProviderForecast{}, fmt.Errorf("openweather: %w", err)
	}

	out := weather.ProviderForecast{ProviderName: p.name}
	for _, item := range payload.List {
		if item.Dt == 0 {
			continue
		}
		desc := ""
		if len(item.Weather) > 0 {
			desc = item.Weather[0].Description
		}
		out.Hourly = append(out.Hourly, weather.Sample{
			Time:        time.Unix(item.Dt, 0).UTC(),
			Temperature: item.Main.Temp,
			FeelsLike:   item.Main.FeelsLike,
			PrecipMm:    item.Rain.ThreeH + item.Snow.ThreeH,
			Condition:   mapOpenWeatherCondition(item.Weather),
			Description: desc,
		})
	}

	return out, nil
}

type openWeatherCondition struct {
	Main        string `json:"main"`
	Description string `json:"description"`
}

func mapOpenWeatherCondition(items []openWeatherCondition) weather.Condition {
	if len(items) == 0 {
		return weather.ConditionUnknown
	}
	switch items[0].Main {
	case "Clear":
		return weather.ConditionClear
	case "Clouds":
		return weather.ConditionCloudy
	case "Rain", "Drizzle":
		return weather.ConditionRain
	case "Snow":
		return weather.ConditionSnow
	case "Thunderstorm":
		return weather.ConditionStorm
	case "Mist", "Fog", "Haze":
		return weather.ConditionMist
	default:
		return weather.ConditionUnknown
	}
}
