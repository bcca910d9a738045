package alerts

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/i474232898/weather-wear-alerts/internal/profile"
	"github.com/i474232898/weather-wear-alerts/internal/weather"
)

var (
	// ErrHomeUnavailable means the alert is on but the profile has no home.
	ErrHomeUnavailable = errors.New("home location not set")
	// ErrForecastUnavailable means the home forecast could not be fetched.
	ErrForecastUnavailable = errors.New("home forecast unavailable")
)

// Installer registers and cancels weekly notifications.
type Installer interface {
	CancelAll(ctx context.Context) error
	InstallWeekly(ctx context.Context, d Descriptor) error
}

// Fetcher fetches the forecast for the home location.
type Fetcher interface {
	Fetch(ctx context.Context, loc weather.Location, unit weather.TemperatureUnit, force bool) (weather.Forecast, error)
}

// Advisor writes the notification text for a forecast.
type Advisor interface {
	Notification(f weather.Forecast, p profile.Profile) Content
}

// inputs is the part of a profile an installed schedule is built from.
type inputs struct {
	alert profile.Alert
	home  *weather.Location
	unit  weather.TemperatureUnit
}

func inputsOf(p profile.Profile) inputs {
	c := p.Clone()
	return inputs{alert: c.Alert, home: c.Home, unit: c.TemperatureUnit}
}

func (in inputs) equal(o inputs) bool {
	if !in.alert.Equal(o.alert) || in.unit != o.unit {
		return false
	}
	if in.home == nil || o.home == nil {
		return in.home == nil && o.home == nil
	}
	return in.home.Equal(*o.home)
}

// Rescheduler rebuilds the whole notification set from a profile.
type Rescheduler struct {
	installer Installer
	fetcher   Fetcher
	advisor   Advisor
	remap     Remap
	logger    *log.Logger

	mu sync.Mutex
	// applied is set after each successful Reschedule; failed marks the
	// installed set as not matching any profile.
	applied *inputs
	failed  bool
}

func NewRescheduler(installer Installer, fetcher Fetcher, advisor Advisor, remap Remap, logger *log.Logger) *Rescheduler {
	if logger == nil {
		logger = log.Default()
	}
	return &Rescheduler{
		installer: installer,
		fetcher:   fetcher,
		advisor:   advisor,
		remap:     remap,
		logger:    logger.With("component", "alerts.rescheduler"),
	}
}

// Reschedule cancels every installed notification and installs the set the
// profile asks for. hint is reused when it is a forecast for the home
// location in the profile's unit; otherwise the home forecast is fetched.
func (r *Rescheduler) Reschedule(ctx context.Context, p profile.Profile, hint *weather.Forecast) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.rebuild(ctx, p, hint); err != nil {
		r.failed = true
		return err
	}
	in := inputsOf(p)
	r.applied, r.failed = &in, false
	return nil
}

// Applied reports whether the installed notifications were built from p's
// alert, home and unit. Before the first Reschedule nothing is known and it
// reports true; after a failed one it reports false.
func (r *Rescheduler) Applied(p profile.Profile) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch {
	case r.failed:
		return false
	case r.applied == nil:
		return true
	default:
		return r.applied.equal(inputsOf(p))
	}
}

func (r *Rescheduler) rebuild(ctx context.Context, p profile.Profile, hint *weather.Forecast) error {
	if err := r.installer.CancelAll(ctx); err != nil {
		return fmt.Errorf("cancel notifications: %w", err)
	}

	if !p.Alert.Active() {
		r.logger.Debug("alert inactive; no notifications installed")
		return nil
	}
	if p.Home == nil {
		r.logger.Warn("home location not available; cannot install notifications")
		return ErrHomeUnavailable
	}

	var forecast weather.Forecast
	if hint != nil && hint.Location.Equal(*p.Home) && hint.Unit == p.TemperatureUnit {
		forecast = *hint
	} else {
		f, err := r.fetcher.Fetch(ctx, *p.Home, p.TemperatureUnit, true)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrForecastUnavailable, err)
		}
		forecast = f
	}

	content := r.advisor.Notification(forecast, p)
	descriptors := Build(p.Alert, content, r.remap)
	for _, d := range descriptors {
		if err := r.installer.InstallWeekly(ctx, d); err != nil {
			return err
		}
	}

	r.logger.Info("alert updated", "notifications", len(descriptors), "time", p.Alert.Time)
	return nil
}

// Stop cancels every installed notification.
func (r *Rescheduler) Stop(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.installer.CancelAll(ctx)
}
