// Package profile holds the user profile: home location, commute, alert
// configuration and display units.
package profile

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/i474232898/weather-wear-alerts/internal/weather"
)

// Weekday uses the application's numbering: Monday=0 … Sunday=6.
type Weekday int

const (
	Monday Weekday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

// DaysInWeek is the size of every weekday-indexed collection.
const DaysInWeek = 7

// Weekdays lists every weekday in application order.
var Weekdays = [DaysInWeek]Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// Valid reports whether w is within 0..6.
func (w Weekday) Valid() bool {
	return w >= Monday && w <= Sunday
}

func (w Weekday) String() string {
	if !w.Valid() {
		return fmt.Sprintf("Weekday(%d)", int(w))
	}
	// time.Weekday starts on Sunday.
	return time.Weekday((int(w) + 1) % DaysInWeek).String()
}

// WeekdayOf converts a calendar date to the application numbering.
func WeekdayOf(t time.Time) Weekday {
	return Weekday((int(t.Weekday()) + DaysInWeek - 1) % DaysInWeek)
}

type Gender string

const (
	GenderMan   Gender = "man"
	GenderWoman Gender = "woman"
)

// Commute describes when the user leaves and returns home.
type Commute struct {
	Days       []Weekday  `json:"days" yaml:"days" validate:"dive,gte=0,lte=6"`
	LeaveTime  *TimeOfDay `json:"leaveTime,omitempty" yaml:"leaveTime,omitempty"`
	ReturnTime *TimeOfDay `json:"returnTime,omitempty" yaml:"returnTime,omitempty"`
}

// Includes reports whether the commute happens on day.
func (c Commute) Includes(day Weekday) bool {
	for _, d := range c.Days {
		if d == day {
			return true
		}
	}
	return false
}

// Alert is the daily push notification configuration. Days is indexed by Weekday.
type Alert struct {
	Enabled bool             `json:"enabled" yaml:"enabled"`
	Days    [DaysInWeek]bool `json:"days" yaml:"days"`
	Time    *TimeOfDay       `json:"time,omitempty" yaml:"time,omitempty"`
}

// Active reports whether the alert should produce notifications at all.
func (a Alert) Active() bool {
	return a.Enabled && a.Time != nil
}

// Equal compares every field, including the time value behind the pointer.
func (a Alert) Equal(o Alert) bool {
	if a.Enabled != o.Enabled || a.Days != o.Days {
		return false
	}
	if a.Time == nil || o.Time == nil {
		return a.Time == nil && o.Time == nil
	}
	return *a.Time == *o.Time
}

// ErrAlertDays is returned when an alert's day list does not cover the week.
var ErrAlertDays = errors.New("alert days must have exactly 7 entries")

// alertDoc is Alert's encoded form. Days is a slice so its length can be checked.
type alertDoc struct {
	Enabled bool       `json:"enabled" yaml:"enabled"`
	Days    []bool     `json:"days" yaml:"days"`
	Time    *TimeOfDay `json:"time,omitempty" yaml:"time,omitempty"`
}

func (a *Alert) fromDoc(doc alertDoc) error {
	out := Alert{Enabled: doc.Enabled, Time: doc.Time}
	if doc.Days != nil {
		if len(doc.Days) != DaysInWeek {
			return fmt.Errorf("%w, got %d", ErrAlertDays, len(doc.Days))
		}
		copy(out.Days[:], doc.Days)
	}
	*a = out
	return nil
}

// UnmarshalJSON rejects day lists of the wrong length. A missing list means
// no days.
func (a *Alert) UnmarshalJSON(data []byte) error {
	var doc alertDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	return a.fromDoc(doc)
}

// UnmarshalYAML applies the same rules to profile seeds. Fields absent from
// the node keep their current values.
func (a *Alert) UnmarshalYAML(node *yaml.Node) error {
	doc := alertDoc{Enabled: a.Enabled, Time: a.Time}
	if err := node.Decode(&doc); err != nil {
		return err
	}
	if doc.Days == nil {
		doc.Days = a.Days[:]
	}
	return a.fromDoc(doc)
}

// Profile is the single user profile. It has no identity of its own.
type Profile struct {
	Name            string                  `json:"name" yaml:"name" validate:"max=64"`
	Gender          Gender                  `json:"gender" yaml:"gender" validate:"oneof=man woman"`
	Home            *weather.Location       `json:"home,omitempty" yaml:"home,omitempty"`
	Commute         Commute                 `json:"commute" yaml:"commute"`
	Alert           Alert                   `json:"alert" yaml:"alert"`
	TemperatureUnit weather.TemperatureUnit `json:"temperatureUnit" yaml:"temperatureUnit" validate:"oneof=celsius fahrenheit"`
}

// Default returns the profile a fresh installation starts with.
func Default() Profile {
	leave := TimeOfDay{Hour: 8, Minute: 30}
	ret := TimeOfDay{Hour: 17, Minute: 30}
	return Profile{
		Gender: GenderMan,
		Commute: Commute{
			Days:       []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday},
			LeaveTime:  &leave,
			ReturnTime: &ret,
		},
		Alert: Alert{
			Enabled: true,
		},
		TemperatureUnit: weather.Celsius,
	}
}

var validate = validator.New()

// Validate checks field ranges.
func (p Profile) Validate() error {
	if err := validate.Struct(p); err != nil {
		return err
	}
	if p.Home != nil {
		if err := validate.Struct(p.Home); err != nil {
			return err
		}
	}
	return nil
}

// Clone returns a deep copy so callers can mutate it freely.
func (p Profile) Clone() Profile {
	out := p
	if p.Home != nil {
		home := *p.Home
		out.Home = &home
	}
	out.Commute.Days = append([]Weekday(nil), p.Commute.Days...)
	out.Commute.LeaveTime = cloneTime(p.Commute.LeaveTime)
	out.Commute.ReturnTime = cloneTime(p.Commute.ReturnTime)
	out.Alert.Time = cloneTime(p.Alert.Time)
	return out
}

func cloneTime(t *TimeOfDay) *TimeOfDay {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
