package providers

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/i474232898/weather-wear-alerts/internal/weather"
)

const openMeteoForecastDays = 3

// OpenMeteoProvider implements the weather.Provider interface for Open-Meteo.
type OpenMeteoProvider struct {
	name   string
	client *client
}

func NewOpenMeteoProvider(opts Options) *OpenMeteoProvider {
	return &OpenMeteoProvider{
		name:   "openmeteo",
		client: newClient("openmeteo", "https://api.open-meteo.com/v1/forecast", opts),
	}
}

func (p *OpenMeteoProvider) Name() string {
	return p.name
}

func (p *OpenMeteoProvider) FetchForecast(ctx context.Context, loc weather.Location, unit weather.TemperatureUnit) (weather.ProviderForecast, error) {
	values := url.Values{}
	values.Set("latitude", fmt.Sprintf("%f", loc.Lat))
	values.Set("longitude", fmt.Sprintf("%f", loc.Lon))
	values.Set("hourly", "temperature_2m,apparent_temperature,precipitation,weathercode")
	values.Set("daily", "temperature_2m_max,apparent_temperature_max,precipitation_sum,weathercode")
	values.Set("temperature_unit", unitParam(unit, "celsius", "fahrenheit"))
	values.Set("timezone", "UTC")
	values.Set("forecast_days", fmt.Sprintf("%d", openMeteoForecastDays))

	var payload struct {
		Hourly struct {
			Time          []string  `json:"time"`
			Temperature   []float64 `json:"temperature_2m"`
			Apparent      []float64 `json:"apparent_temperature"`
			Precipitation []float64 `json:"precipitation"`
			WeatherCode   []int     `json:"weathercode"`
		} `json:"hourly"`
		Daily struct {
			Time          []string  `json:"time"`
			TemperatureMx []float64 `json:"temperature_2m_max"`
			ApparentMax   []float64 `json:"apparent_temperature_max"`
			Precipitation []float64 `json:"precipitation_sum"`
			WeatherCode   []int     `json:"weathercode"`
		} `json:"daily"`
	}

	if err := p.client.getJSON(ctx, values, &payload); err != nil {
		return weather.ProviderForecast{}, fmt.Errorf("openmeteo: %w", err)
	}

	out := weather.ProviderForecast{ProviderName: p.name}

	h := payload.Hourly
	for i, raw := range h.Time {
		ts, err := time.ParseInLocation("2006-01-02T15:04", raw, time.UTC)
		if err != nil {
			continue
		}
		code := intAt(h.WeatherCode, i)
		out.Hourly = append(out.Hourly, weather.Sample{
			Time:        ts,
			Temperature: floatAt(h.Temperature, i),
			FeelsLike:   floatAt(h.Apparent, i),
			PrecipMm:    floatAt(h.Precipitation, i),
			Condition:   mapOpenMeteoCondition(code),
			Description: fmt.Sprintf("wmo %d", code),
		})
	}

	d := payload.Daily
	for i, raw := range d.Time {
		ts, err := time.ParseInLocation("2006-01-02", raw, time.UTC)
		if err != nil {
			continue
		}
		code := intAt(d.WeatherCode, i)
		out.Daily = append(out.Daily, weather.Sample{
			Time:        ts,
			Temperature: floatAt(d.TemperatureMx, i),
			FeelsLike:   floatAt(d.ApparentMax, i),
			PrecipMm:    floatAt(d.Precipitation, i),
			Condition:   mapOpenMeteoCondition(code),
			Description: fmt.Sprintf("wmo %d", code),
		})
	}

	return out, nil
}

func mapOpenMeteoCondition(code int) weather.Condition {
	// Mapping based on Open-Meteo weather codes (simplified).
	switch {
	case code == 0:
		return weather.ConditionClear
	case code >= 1 && code <= 3:
		return weather.ConditionCloudy
	case code == 45 || code == 48:
		return weather.ConditionMist
	case (code >= 51 && code <= 67) || (code >= 80 && code <= 82):
		return weather.ConditionRain
	case (code >= 71 && code <= 77) || code == 85 || code == 86:
		return weather.ConditionSnow
	case code >= 95:
		return weather.ConditionStorm
	default:
		return weather.ConditionUnknown
	}
}

func floatAt(xs []float64, i int) float64 {
	if i < len(xs) {
		return xs[i]
	}
	return 0
}

func intAt(xs []int, i int) int {
	if i < len(xs) {
		return xs[i]
	}
	return -1
}
