package refresh

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/i474232898/weather-wear-alerts/internal/observe"
	"github.com/i474232898/weather-wear-alerts/internal/profile"
	"github.com/i474232898/weather-wear-alerts/internal/weather"
)

// ProfileSource is the read side of the profile store.
type ProfileSource interface {
	Load(ctx context.Context) (profile.Profile, bool, error)
	Subscribe(fn func()) *observe.Subscription
}

// LocationSource is the current-location signal.
type LocationSource interface {
	Current() (weather.Location, bool)
	Subscribe(fn func()) *observe.Subscription
}

// ForecastFetcher fetches a fresh forecast. Timeouts are its own concern.
type ForecastFetcher interface {
	Fetch(ctx context.Context, loc weather.Location, unit weather.TemperatureUnit, force bool) (weather.Forecast, error)
}

// Rescheduler rebuilds the notification schedule. hint is the forecast the
// coordinator just fetched and may be nil. Applied reports whether the
// installed schedule already reflects p's alert, home and unit.
type Rescheduler interface {
	Reschedule(ctx context.Context, p profile.Profile, hint *weather.Forecast) error
	Applied(p profile.Profile) bool
}

// forecastFeed is implemented by fetchers that announce forecasts fetched by
// other callers.
type forecastFeed interface {
	Latest(loc weather.Location, unit weather.TemperatureUnit) (weather.Forecast, error)
	Subscribe(fn func()) *observe.Subscription
}

// Trigger names what asked for a refresh.
type Trigger string

const (
	TriggerActivation      Trigger = "activation"
	TriggerProfileChanged  Trigger = "profile_changed"
	TriggerLocationChanged Trigger = "location_changed"
	TriggerForced          Trigger = "forced"
	TriggerReentry         Trigger = "reentry"
)

// Forced reports whether the trigger bypasses the staleness gate.
func (t Trigger) Forced() bool {
	return t == TriggerProfileChanged || t == TriggerForced
}

// Options tune a Coordinator. Zero values pick defaults.
type Options struct {
	Period time.Duration
	Logger *log.Logger
	Now    func() time.Time
}

// Coordinator chains profile → location → forecast and keeps the observable
// refresh state. Create one with New; every instance is independent.
type Coordinator struct {
	profiles    ProfileSource
	locations   LocationSource
	fetcher     ForecastFetcher
	rescheduler Rescheduler
	period      time.Duration
	logger      *log.Logger
	now         func() time.Time

	guard Guard

	mu              sync.RWMutex
	forecast        *weather.Forecast
	lastRefreshedAt time.Time
	lastFetchFailed bool
	status          Status
	// pending is a forced trigger that found the guard busy.
	pending Trigger

	runMu   sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	subs    []*observe.Subscription
	started bool
	stopped bool
	wg      sync.WaitGroup
}

// New creates a Coordinator. rescheduler may be nil.
func New(profiles ProfileSource, locations LocationSource, fetcher ForecastFetcher, rescheduler Rescheduler, opts Options) *Coordinator {
	if opts.Period <= 0 {
		opts.Period = DefaultPeriod
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Coordinator{
		profiles:    profiles,
		locations:   locations,
		fetcher:     fetcher,
		rescheduler: rescheduler,
		period:      opts.Period,
		logger:      opts.Logger.With("component", "refresh.coordinator"),
		now:         opts.Now,
		status:      StatusIdle,
		ctx:         context.Background(),
	}
}

// Start subscribes to profile, location and forecast changes and fires the
// activation trigger. The subscriptions are released by Stop.
func (c *Coordinator) Start(ctx context.Context) {
	c.runMu.Lock()
	if c.started || c.stopped {
		c.runMu.Unlock()
		return
	}
	c.started = true
	c.ctx, c.cancel = context.WithCancel(ctx)

	c.subs = append(c.subs,
		c.profiles.Subscribe(c.OnProfileChanged),
		c.locations.Subscribe(c.OnLocationChanged),
	)
	if feed, ok := c.fetcher.(forecastFeed); ok {
		c.subs = append(c.subs, feed.Subscribe(func() { c.adoptLatest(feed) }))
	}
	c.runMu.Unlock()

	c.dispatch(TriggerActivation)
}

// Stop unregisters every subscription, cancels running work and waits for
// dispatched triggers to finish. Later triggers are ignored.
func (c *Coordinator) Stop() {
	c.runMu.Lock()
	if c.stopped {
		c.runMu.Unlock()
		return
	}
	c.stopped = true
	for _, sub := range c.subs {
		sub.Unsubscribe()
	}
	c.subs = nil
	if c.cancel != nil {
		c.cancel()
	}
	c.runMu.Unlock()

	c.wg.Wait()
}

// Wait blocks until every dispatched trigger has been handled.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// OnProfileChanged is a non-blocking trigger. It always bypasses staleness.
func (c *Coordinator) OnProfileChanged() { c.dispatch(TriggerProfileChanged) }

// OnLocationChanged is a non-blocking trigger that respects staleness.
func (c *Coordinator) OnLocationChanged() { c.dispatch(TriggerLocationChanged) }

// ForceRefresh is a non-blocking trigger that bypasses staleness.
func (c *Coordinator) ForceRefresh() { c.dispatch(TriggerForced) }

// OnAppReentry is a non-blocking trigger that respects staleness.
func (c *Coordinator) OnAppReentry() { c.dispatch(TriggerReentry) }

func (c *Coordinator) dispatch(trig Trigger) {
	c.runMu.Lock()
	if c.stopped {
		c.runMu.Unlock()
		return
	}
	ctx := c.ctx
	c.wg.Add(1)
	c.runMu.Unlock()

	go func() {
		defer c.wg.Done()
		c.logOutcome(trig, c.Refresh(ctx, trig))
	}()
}

// Refresh runs one pass of the profile → location → forecast chain and
// returns why it stopped. A nil error means a new forecast was published.
func (c *Coordinator) Refresh(ctx context.Context, trig Trigger) error {
	err := c.refresh(ctx, trig)

	if trig == TriggerProfileChanged && (errors.Is(err, ErrLocationUnavailable) || errors.Is(err, ErrFetchFailed)) {
		// No forecast reached the rescheduler; alert edits must still apply.
		c.rescheduleIfChanged(ctx)
	}
	return err
}

func (c *Coordinator) refresh(ctx context.Context, trig Trigger) error {
	c.setRestingStatus(StatusChecking)

	p, ok, err := c.profiles.Load(ctx)
	if err != nil {
		c.setRestingStatus(StatusUnavailable)
		return fmt.Errorf("%w: %w", ErrProfileUnavailable, err)
	}
	if !ok {
		c.setRestingStatus(StatusUnavailable)
		return ErrProfileUnavailable
	}

	loc, ok := c.locations.Current()
	if !ok {
		c.setRestingStatus(StatusUnavailable)
		return ErrLocationUnavailable
	}

	force := trig.Forced()
	if !force && !IsDue(c.LastRefreshedAt(), c.now(), c.period) {
		c.setRestingStatus(StatusIdle)
		return ErrNotDue
	}

	err = c.guard.RunExclusive(ctx, func(ctx context.Context) error {
		return c.fetch(ctx, p, loc, force)
	})

	if errors.Is(err, ErrSkipped) {
		if !force {
			return ErrSkipped
		}
		c.setPending(trig)
		// The running refresh checks for pending work after it releases the
		// guard. If it already did, run the follow-up here.
		if c.guard.InFlight() {
			return ErrSkipped
		}
		next := c.takePending()
		if next == "" {
			return ErrSkipped
		}
		return c.Refresh(ctx, next)
	}

	if next := c.takePending(); next != "" {
		c.logger.Debug("running coalesced forced refresh", "trigger", next, "after", trig)
		if ferr := c.Refresh(ctx, next); ferr != nil {
			c.logOutcome(next, ferr)
		}
	}
	return err
}

// fetch runs inside the guard; it is the only place refresh state is written.
func (c *Coordinator) fetch(ctx context.Context, p profile.Profile, loc weather.Location, force bool) error {
	c.mu.Lock()
	c.status = StatusFetching
	c.mu.Unlock()

	f, err := c.fetcher.Fetch(ctx, loc, p.TemperatureUnit, force)
	if err != nil {
		c.mu.Lock()
		c.lastFetchFailed = true
		c.status = StatusFailed
		c.mu.Unlock()
		return fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}

	c.mu.Lock()
	c.forecast = &f
	c.lastFetchFailed = false
	c.lastRefreshedAt = c.now()
	c.status = StatusIdle
	c.mu.Unlock()

	c.reschedule(ctx, p, &f)
	return nil
}

func (c *Coordinator) reschedule(ctx context.Context, p profile.Profile, hint *weather.Forecast) {
	if c.rescheduler == nil {
		return
	}
	if err := c.rescheduler.Reschedule(ctx, p, hint); err != nil {
		c.logger.Warn("notification reschedule failed", "err", err)
	}
}

// rescheduleIfChanged reschedules without a forecast, and only when the
// installed schedule does not match the stored profile. An unchanged alert
// keeps its notifications even though no fresh forecast arrived.
func (c *Coordinator) rescheduleIfChanged(ctx context.Context) {
	if c.rescheduler == nil {
		return
	}
	p, ok, err := c.profiles.Load(ctx)
	if err != nil || !ok {
		return
	}
	if c.rescheduler.Applied(p) {
		return
	}
	c.reschedule(ctx, p, nil)
}

// adoptLatest takes over a forecast fetched by someone else when it is newer
// than ours and in our unit.
func (c *Coordinator) adoptLatest(feed forecastFeed) {
	loc, ok := c.locations.Current()
	if !ok {
		return
	}
	c.mu.RLock()
	current := c.forecast
	c.mu.RUnlock()
	if current == nil {
		return
	}

	f, err := feed.Latest(loc, current.Unit)
	if err != nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.forecast == nil || c.forecast.Unit != f.Unit || !f.FetchedAt.After(c.forecast.FetchedAt) {
		return
	}
	c.forecast = &f
}

func (c *Coordinator) setRestingStatus(s Status) {
	c.mu.Lock()
	defer c.mu.Unlock()
	// A running fetch owns the status until it finishes.
	if c.guard.InFlight() {
		return
	}
	c.status = s
}

// setPending records a skipped forced trigger. A profile change outranks a
// plain forced refresh since only it reschedules on failure.
func (c *Coordinator) setPending(trig Trigger) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending != TriggerProfileChanged {
		c.pending = trig
	}
}

func (c *Coordinator) takePending() Trigger {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.pending
	c.pending = ""
	return t
}

// LastRefreshedAt is the time of the last successful refresh (zero if never).
func (c *Coordinator) LastRefreshedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastRefreshedAt
}

func (c *Coordinator) logOutcome(trig Trigger, err error) {
	switch {
	case err == nil:
		c.logger.Info("forecast refreshed", "trigger", trig)
	case errors.Is(err, ErrSkipped), errors.Is(err, ErrNotDue):
		c.logger.Debug("refresh not run", "trigger", trig, "reason", err)
	case errors.Is(err, ErrProfileUnavailable), errors.Is(err, ErrLocationUnavailable):
		c.logger.Info("refresh not ready", "trigger", trig, "reason", err)
	default:
		c.logger.Warn("refresh failed", "trigger", trig, "err", err)
	}
}
