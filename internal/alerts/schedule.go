// Package alerts turns the profile's alert configuration into installed
// weekly notifications.
package alerts

import (
	"github.com/i474232898/weather-wear-alerts/internal/profile"
)

// Content is what a notification shows.
type Content struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Descriptor is one weekly notification to install.
type Descriptor struct {
	Content Content           `json:"content"`
	Weekday ExternalWeekday   `json:"weekday"`
	Time    profile.TimeOfDay `json:"time"`
}

// Build returns one descriptor per enabled day, ordered by application
// weekday. A disabled alert or one without a time yields nothing.
func Build(alert profile.Alert, content Content, remap Remap) []Descriptor {
	if !alert.Active() {
		return nil
	}

	var out []Descriptor
	for _, day := range profile.Weekdays {
		if !alert.Days[day] {
			continue
		}
		out = append(out, Descriptor{
			Content: content,
			Weekday: remap.ToExternal(day),
			Time:    *alert.Time,
		})
	}
	return out
}
