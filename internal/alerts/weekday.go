package alerts

import (
	"fmt"
	"strings"
	"time"

	"github.com/i474232898/weather-wear-alerts/internal/profile"
)

// ExternalWeekday is a weekday in the numbering the notification installer
// expects. With DefaultRemap that is Sunday=1 … Saturday=7.
type ExternalWeekday int

// Remap translates between the application's weekday numbering and the
// installer's. Both numberings are contiguous weeks; they differ only in the
// day they start on and the number the first day gets.
type Remap struct {
	// InternalStart is the calendar day profile.Weekday 0 stands for.
	InternalStart time.Weekday
	// ExternalStart is the calendar day that gets ExternalBase.
	ExternalStart time.Weekday
	ExternalBase  int
}

// DefaultRemap maps Monday=0 … Sunday=6 onto Sunday=1 … Saturday=7.
var DefaultRemap = Remap{InternalStart: time.Monday, ExternalStart: time.Sunday, ExternalBase: 1}

func mod7(n int) int {
	return ((n % profile.DaysInWeek) + profile.DaysInWeek) % profile.DaysInWeek
}

// ToExternal converts an application weekday. With DefaultRemap this is
// ((w + 1) mod 7) + 1.
func (r Remap) ToExternal(w profile.Weekday) ExternalWeekday {
	return ExternalWeekday(mod7(int(r.InternalStart)+int(w)-int(r.ExternalStart)) + r.ExternalBase)
}

// ToInternal is the inverse of ToExternal.
func (r Remap) ToInternal(e ExternalWeekday) profile.Weekday {
	return profile.Weekday(mod7(int(e) - r.ExternalBase + int(r.ExternalStart) - int(r.InternalStart)))
}

// TimeWeekday returns the calendar day an external weekday stands for.
func (r Remap) TimeWeekday(e ExternalWeekday) time.Weekday {
	return time.Weekday(mod7(int(e) - r.ExternalBase + int(r.ExternalStart)))
}

// ParseWeekday accepts English day names ("monday", "Mon") case-insensitively.
func ParseWeekday(s string) (time.Weekday, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) >= 3 {
		for d := time.Sunday; d <= time.Saturday; d++ {
			name := strings.ToLower(d.String())
			if strings.HasPrefix(name, s) {
				return d, nil
			}
		}
	}
	return time.Sunday, fmt.Errorf("unknown weekday %q", s)
}
