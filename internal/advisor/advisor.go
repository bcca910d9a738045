// Package advisor turns a forecast into clothing advice and notification text.
package advisor

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/i474232898/weather-wear-alerts/internal/alerts"
	"github.com/i474232898/weather-wear-alerts/internal/profile"
	"github.com/i474232898/weather-wear-alerts/internal/weather"
)

// Advice is one half of a recommendation.
type Advice struct {
	Clothes []string `json:"clothes"`
	Summary string   `json:"summary"`
}

// Recommendation is what to wear today.
type Recommendation struct {
	Temp Advice `json:"temp"`
	Rain Advice `json:"rain"`
}

// CommuteWeather is the forecast at the profile's leave and return times.
type CommuteWeather struct {
	Leave  *weather.Sample `json:"leave,omitempty"`
	Return *weather.Sample `json:"return,omitempty"`
}

// Rain below this amount in an hour does not call for rain gear.
const minRainMm = 0.2

type tempRule struct {
	below   float64 // feels-like, °C
	clothes []string
	woman   []string
	summary string
}

var tempRules = []tempRule{
	{below: 0, clothes: []string{"winter-jacket", "scarf", "gloves", "beanie"}, summary: "It is freezing. Dress warmly."},
	{below: 8, clothes: []string{"jacket", "sweater", "long-pants"}, summary: "It is cold. Take a jacket."},
	{below: 15, clothes: []string{"light-jacket", "long-pants"}, summary: "It is chilly. A light jacket will do."},
	{below: 22, clothes: []string{"long-sleeves", "long-pants"}, summary: "It is mild. Long sleeves are enough."},
	{below: 27, clothes: []string{"t-shirt", "long-pants"}, woman: []string{"t-shirt", "skirt"}, summary: "It is warm. Dress light."},
	{below: math.Inf(1), clothes: []string{"t-shirt", "shorts", "sunglasses"}, woman: []string{"dress", "sunglasses"}, summary: "It is hot. Wear as little as you can."},
}

// Advisor evaluates forecasts against the wear rules. "Today" is taken in tz.
type Advisor struct {
	tz  *time.Location
	now func() time.Time
}

func New(tz *time.Location) *Advisor {
	if tz == nil {
		tz = time.UTC
	}
	return &Advisor{tz: tz, now: time.Now}
}

func (a *Advisor) today() time.Time {
	return a.now().In(a.tz)
}

// Recommend picks clothes from today's feels-like maximum and today's hourly rain.
func (a *Advisor) Recommend(f weather.Forecast, p profile.Profile) Recommendation {
	var rec Recommendation

	if today, ok := a.TodayWeather(f); ok {
		rule := ruleFor(toCelsius(today.FeelsLike, f.Unit))
		clothes := rule.clothes
		if p.Gender == profile.GenderWoman && rule.woman != nil {
			clothes = rule.woman
		}
		rec.Temp = Advice{Clothes: append([]string(nil), clothes...), Summary: rule.summary}
	} else {
		rec.Temp = Advice{Clothes: []string{}, Summary: "No forecast for today."}
	}

	rec.Rain = a.rainAdvice(f)
	return rec
}

func ruleFor(feelsLikeC float64) tempRule {
	for _, r := range tempRules {
		if feelsLikeC < r.below {
			return r
		}
	}
	return tempRules[len(tempRules)-1]
}

func (a *Advisor) rainAdvice(f weather.Forecast) Advice {
	var rain, snow bool
	day := a.today()
	for _, h := range f.Hourly {
		if !sameDate(h.Time.In(a.tz), day) {
			continue
		}
		switch {
		case h.Condition == weather.ConditionSnow:
			snow = true
		case h.Condition.Wet() || h.PrecipMm >= minRainMm:
			rain = true
		}
	}

	switch {
	case snow:
		return Advice{Clothes: []string{"boots", "rain-jacket"}, Summary: "Snow is expected today."}
	case rain:
		return Advice{Clothes: []string{"umbrella", "rain-jacket"}, Summary: "Rain is expected today. Take an umbrella."}
	default:
		return Advice{Clothes: []string{}, Summary: "No rain expected today."}
	}
}

// TodayWeather returns today's daily sample.
func (a *Advisor) TodayWeather(f weather.Forecast) (weather.Sample, bool) {
	day := a.today()
	for _, d := range f.Daily {
		if sameDate(d.Time.UTC(), day) {
			return d, true
		}
	}
	return weather.Sample{}, false
}

// WeatherAt returns the hourly sample closest to tod today.
func (a *Advisor) WeatherAt(f weather.Forecast, tod profile.TimeOfDay) (weather.Sample, bool) {
	target := tod.On(a.today())

	var (
		best  weather.Sample
		found bool
		diff  time.Duration
	)
	for _, h := range f.Hourly {
		d := h.Time.Sub(target)
		if d < 0 {
			d = -d
		}
		if d > 3*time.Hour {
			continue
		}
		if !found || d < diff {
			best, diff, found = h, d, true
		}
	}
	return best, found
}

// Commute returns the weather at leave and return time when today is a commute day.
func (a *Advisor) Commute(f weather.Forecast, p profile.Profile) (CommuteWeather, bool) {
	if !p.Commute.Includes(profile.WeekdayOf(a.today())) {
		return CommuteWeather{}, false
	}

	var cw CommuteWeather
	if p.Commute.LeaveTime != nil {
		if s, ok := a.WeatherAt(f, *p.Commute.LeaveTime); ok {
			cw.Leave = &s
		}
	}
	if p.Commute.ReturnTime != nil {
		if s, ok := a.WeatherAt(f, *p.Commute.ReturnTime); ok {
			cw.Return = &s
		}
	}
	return cw, cw.Leave != nil || cw.Return != nil
}

// Notification builds the alert text for f.
func (a *Advisor) Notification(f weather.Forecast, p profile.Profile) alerts.Content {
	today, _ := a.TodayWeather(f)
	return Content(a.Recommend(f, p), today, p)
}

// Content renders a recommendation as notification text.
func Content(rec Recommendation, today weather.Sample, p profile.Profile) alerts.Content {
	title := "Today's weather"
	if today.Description != "" {
		title = capitalize(today.Description)
	} else if today.Condition != "" && today.Condition != weather.ConditionUnknown {
		title = capitalize(string(today.Condition))
	}
	if !today.Time.IsZero() {
		title = fmt.Sprintf("%s, feels like %s", title, FormatTemp(today.FeelsLike, p.TemperatureUnit))
	}

	body := rec.Temp.Summary
	if rec.Rain.Summary != "" {
		body += " " + rec.Rain.Summary
	}
	if clothes := append(append([]string(nil), rec.Temp.Clothes...), rec.Rain.Clothes...); len(clothes) > 0 {
		body += " Wear: " + strings.ReplaceAll(strings.Join(clothes, ", "), "-", " ") + "."
	}
	return alerts.Content{Title: title, Body: body}
}

// FormatTemp rounds to one decimal and appends the unit, e.g. "21.5°C".
func FormatTemp(v float64, unit weather.TemperatureUnit) string {
	return strconv.FormatFloat(math.Round(v*10)/10, 'f', -1, 64) + "°" + unit.Symbol()
}

func toCelsius(v float64, unit weather.TemperatureUnit) float64 {
	if unit == weather.Fahrenheit {
		return (v - 32) * 5 / 9
	}
	return v
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
