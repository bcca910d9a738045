package scheduler

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-co-op/gocron"

	"github.com/i474232898/weather-wear-alerts/internal/profile"
	"github.com/i474232898/weather-wear-alerts/internal/weather"
)

// Reentrant receives the periodic "app came back" signal.
type Reentrant interface {
	OnAppReentry()
}

// ProfileLoader reads the current profile.
type ProfileLoader interface {
	Load(ctx context.Context) (profile.Profile, bool, error)
}

// Rescheduler rebuilds the notification schedule.
type Rescheduler interface {
	Reschedule(ctx context.Context, p profile.Profile, hint *weather.Forecast) error
}

// Config holds the job timings.
type Config struct {
	ReentryInterval time.Duration
	AlertUpdateCron string
	// JobTimeout bounds a single alert update.
	JobTimeout time.Duration
}

// Scheduler runs the background jobs: periodic re-entry and alert updates.
type Scheduler struct {
	scheduler   *gocron.Scheduler
	reentry     Reentrant
	profiles    ProfileLoader
	rescheduler Rescheduler
	cfg         Config
	logger      *log.Logger
}

// New creates a new Scheduler.
func New(cfg Config, tz *time.Location, reentry Reentrant, profiles ProfileLoader, rescheduler Rescheduler, logger *log.Logger) *Scheduler {
	if tz == nil {
		tz = time.Local
	}
	if logger == nil {
		logger = log.Default()
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 30 * time.Second
	}
	return &Scheduler{
		scheduler:   gocron.NewScheduler(tz),
		reentry:     reentry,
		profiles:    profiles,
		rescheduler: rescheduler,
		cfg:         cfg,
		logger:      logger.With("component", "scheduler"),
	}
}

// Start schedules the jobs and starts the underlying scheduler. The alert
// update also runs once right away so notifications exist after startup.
func (s *Scheduler) Start() error {
	if s.reentry != nil && s.cfg.ReentryInterval > 0 {
		_, err := s.scheduler.Every(s.cfg.ReentryInterval).WaitForSchedule().Do(func() {
			s.logger.Debug("running re-entry job")
			s.reentry.OnAppReentry()
		})
		if err != nil {
			return err
		}
	}

	if s.rescheduler != nil && s.cfg.AlertUpdateCron != "" {
		_, err := s.scheduler.Cron(s.cfg.AlertUpdateCron).StartImmediately().SingletonMode().Do(s.UpdateAlerts)
		if err != nil {
			return err
		}
	}

	s.scheduler.StartAsync()
	return nil
}

// UpdateAlerts reloads the profile and rebuilds the notification schedule.
func (s *Scheduler) UpdateAlerts() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.JobTimeout)
	defer cancel()

	p, ok, err := s.profiles.Load(ctx)
	if err != nil {
		s.logger.Error("could not load profile", "err", err)
		return
	}
	if !ok {
		s.logger.Warn("no profile stored; skipping alert update")
		return
	}
	if err := s.rescheduler.Reschedule(ctx, p, nil); err != nil {
		s.logger.Warn("alert update failed", "err", err)
		return
	}
	s.logger.Debug("alert update completed")
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
