package providers

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/i474232898/weather-wear-alerts/internal/common"
	"github.com/i474232898/weather-wear-alerts/internal/weather"
)

const weatherAPIForecastDays = 3

// WeatherAPIProvider implements the weather.Provider interface for WeatherAPI.com.
type WeatherAPIProvider struct {
	name   string
	apiKey string
	client *client
}

func NewWeatherAPIProvider(opts Options, apiKey string) *WeatherAPIProvider {
	return &WeatherAPIProvider{
		name:   "weatherapi",
		apiKey: apiKey,
		client: newClient("weatherapi", "https://api.weatherapi.com/v1/forecast.json", opts),
	}
}

func (p *WeatherAPIProvider) Name() string {
	return p.name
}

func (p *WeatherAPIProvider) FetchForecast(ctx context.Context, loc weather.Location, unit weather.TemperatureUnit) (weather.ProviderForecast, error) {
	if p.apiKey == "" {
		return weather.ProviderForecast{}, fmt.Errorf("weatherapi: %w", errMissingAPIKey)
	}

	values := url.Values{}
	values.Set("key", p.apiKey)
	// WeatherAPI uses "q" for location; it accepts "lat,lon".
	values.Set("q", fmt.Sprintf("%f,%f", loc.Lat, loc.Lon))
	values.Set("days", fmt.Sprintf("%d", weatherAPIForecastDays))

	type condition struct {
		Text string `json:"text"`
	}
	var payload struct {
		Forecast struct {
			ForecastDay []struct {
				DateEpoch int64 `json:"date_epoch"`
				Day       struct {
					MaxTempC      float64   `json:"maxtemp_c"`
					MaxTempF      float64   `json:"maxtemp_f"`
					TotalPrecipMm float64   `json:"totalprecip_mm"`
					Condition     condition `json:"condition"`
				} `json:"day"`
				Hour []struct {
					TimeEpoch  int64     `json:"time_epoch"`
					TempC      float64   `json:"temp_c"`
					TempF      float64   `json:"temp_f"`
					FeelsLikeC float64   `json:"feelslike_c"`
					FeelsLikeF float64   `json:"feelslike_f"`
					PrecipMm   float64   `json:"precip_mm"`
					Condition  condition `json:"condition"`
				} `json:"hour"`
			} `json:"forecastday"`
		} `json:"forecast"`
	}

	if err := p.client.getJSON(ctx, values, &payload); err != nil {
		return weather.ProviderForecast{}, fmt.Errorf("weatherapi: %w", err)
	}

	fahrenheit := unit == weather.Fahrenheit
	pick := func(c, f float64) float64 {
		if fahrenheit {
			return f
		}
		return c
	}

	out := weather.ProviderForecast{ProviderName: p.name}
	for _, fd := range payload.Forecast.ForecastDay {
		dayTemp := pick(fd.Day.MaxTempC, fd.Day.MaxTempF)
		out.Daily = append(out.Daily, weather.Sample{
			Time:        time.Unix(fd.DateEpoch, 0).UTC(),
			Temperature: dayTemp,
			// The daily block carries no feels-like value.
			FeelsLike:   dayTemp,
			PrecipMm:    fd.Day.TotalPrecipMm,
			Condition:   mapWeatherAPICondition(fd.Day.Condition.Text),
			Description: fd.Day.Condition.Text,
		})
		for _, h := range fd.Hour {
			out.Hourly = append(out.Hourly, weather.Sample{
				Time:        time.Unix(h.TimeEpoch, 0).UTC(),
				Temperature: pick(h.TempC, h.TempF),
				FeelsLike:   pick(h.FeelsLikeC, h.FeelsLikeF),
				PrecipMm:    h.PrecipMm,
				Condition:   mapWeatherAPICondition(h.Condition.Text),
				Description: h.Condition.Text,
			})
		}
	}

	return out, nil
}

func mapWeatherAPICondition(text string) weather.Condition {
	switch {
	case text == "":
		return weather.ConditionUnknown
	case common.HasAny(text, "thunder", "storm"):
		return weather.ConditionStorm
	case common.HasAny(text, "snow", "sleet", "blizzard", "ice pellets"):
		return weather.ConditionSnow
	case common.HasAny(text, "rain", "shower", "drizzle"):
		return weather.ConditionRain
	case common.HasAny(text, "mist", "fog"):
		return weather.ConditionMist
	case common.HasAny(text, "cloud", "overcast"):
		return weather.ConditionCloudy
	case common.HasAny(text, "sunny", "clear"):
		return weather.ConditionClear
	default:
		return weather.ConditionUnknown
	}
}
