package alerts

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-co-op/gocron"
	"github.com/google/uuid"
)

// Deliverer shows a notification when its job fires.
type Deliverer interface {
	Deliver(ctx context.Context, c Content) error
}

// LogDeliverer "delivers" notifications by logging them.
type LogDeliverer struct {
	Logger *log.Logger
}

func (d LogDeliverer) Deliver(_ context.Context, c Content) error {
	logger := d.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger.Info("notification", "title", c.Title, "body", c.Body)
	return nil
}

// Installed is a notification currently registered with the installer.
type Installed struct {
	ID         uuid.UUID  `json:"id"`
	Descriptor Descriptor `json:"descriptor"`
	NextRun    *time.Time `json:"nextRun,omitempty"`
}

type installedJob struct {
	id   uuid.UUID
	desc Descriptor
	job  *gocron.Job
}

// WeeklyInstaller registers each descriptor as a weekly gocron job.
type WeeklyInstaller struct {
	mu        sync.Mutex
	scheduler *gocron.Scheduler
	remap     Remap
	deliverer Deliverer
	logger    *log.Logger
	jobs      []installedJob
}

// NewWeeklyInstaller creates an installer firing in tz. The scheduler does not
// run until Start is called.
func NewWeeklyInstaller(tz *time.Location, remap Remap, deliverer Deliverer, logger *log.Logger) *WeeklyInstaller {
	if tz == nil {
		tz = time.Local
	}
	if logger == nil {
		logger = log.Default()
	}
	if deliverer == nil {
		deliverer = LogDeliverer{Logger: logger}
	}
	return &WeeklyInstaller{
		scheduler: gocron.NewScheduler(tz),
		remap:     remap,
		deliverer: deliverer,
		logger:    logger.With("component", "alerts.installer"),
	}
}

// Start runs the underlying scheduler in the background.
func (w *WeeklyInstaller) Start() {
	w.scheduler.StartAsync()
}

// Stop halts the scheduler. Registered jobs stay registered.
func (w *WeeklyInstaller) Stop() {
	w.scheduler.Stop()
}

// CancelAll removes every installed notification.
func (w *WeeklyInstaller) CancelAll(context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.scheduler.Clear()
	w.jobs = nil
	return nil
}

// InstallWeekly registers d to fire every week on its weekday and time.
func (w *WeeklyInstaller) InstallWeekly(_ context.Context, d Descriptor) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	id := uuid.New()
	content := d.Content
	job, err := w.scheduler.
		Every(1).Week().
		Weekday(w.remap.TimeWeekday(d.Weekday)).
		At(d.Time.String()).
		Tag(id.String()).
		Do(func() {
			if err := w.deliverer.Deliver(context.Background(), content); err != nil {
				w.logger.Warn("notification delivery failed", "id", id, "err", err)
			}
		})
	if err != nil {
		return fmt.Errorf("install notification for weekday %d at %s: %w", d.Weekday, d.Time, err)
	}

	w.jobs = append(w.jobs, installedJob{id: id, desc: d, job: job})
	w.logger.Debug("notification installed", "id", id, "weekday", d.Weekday, "time", d.Time)
	return nil
}

// Installed lists registered notifications ordered by weekday and time.
func (w *WeeklyInstaller) Installed() []Installed {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]Installed, 0, len(w.jobs))
	for _, j := range w.jobs {
		item := Installed{ID: j.id, Descriptor: j.desc}
		if next := j.job.NextRun(); !next.IsZero() {
			item.NextRun = &next
		}
		out = append(out, item)
	}
	sort.SliceStable(out, func(a, b int) bool {
		da, db := out[a].Descriptor, out[b].Descriptor
		if da.Weekday != db.Weekday {
			return da.Weekday < db.Weekday
		}
		return da.Time.String() < db.Time.String()
	})
	return out
}
