package refresh

import (
	"time"

	"github.com/i474232898/weather-wear-alerts/internal/weather"
)

// Status is the coordinator's position in its refresh state machine.
type Status string

const (
	StatusIdle     Status = "idle"
	StatusChecking Status = "checking"
	StatusFetching Status = "fetching"
	// StatusFailed is idle after a failed fetch; the next trigger leaves it.
	StatusFailed Status = "failed"
	// StatusUnavailable is idle because profile or location is missing.
	StatusUnavailable Status = "unavailable"
)

// State is what presentation layers read.
type State struct {
	Forecast        *weather.Forecast `json:"forecast,omitempty"`
	IsRefreshing    bool              `json:"isRefreshing"`
	LastFetchFailed bool              `json:"lastFetchFailed"`
	LastRefreshedAt *time.Time        `json:"lastRefreshedAt,omitempty"`
	Status          Status            `json:"status"`
}

// State returns a snapshot of the observable state.
func (c *Coordinator) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := State{
		Forecast:        c.forecast,
		IsRefreshing:    c.guard.InFlight(),
		LastFetchFailed: c.lastFetchFailed,
		Status:          c.status,
	}
	if !c.lastRefreshedAt.IsZero() {
		ts := c.lastRefreshedAt
		s.LastRefreshedAt = &ts
	}
	return s
}
