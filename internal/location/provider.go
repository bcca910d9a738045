// Package location holds the current-location signal and home address geocoding.
package location

import (
	"sync"

	"github.com/i474232898/weather-wear-alerts/internal/observe"
	"github.com/i474232898/weather-wear-alerts/internal/weather"
)

// Provider is a push-style current location. Device acquisition happens
// elsewhere; whoever learns a new position calls Set.
type Provider struct {
	mu         sync.RWMutex
	current    *weather.Location
	permission bool
	changes    *observe.Hub
}

// NewProvider creates a Provider. granted is the initial permission state.
func NewProvider(granted bool) *Provider {
	return &Provider{
		permission: granted,
		changes:    observe.NewHub(),
	}
}

// Current returns the last known location. It is absent without permission.
func (p *Provider) Current() (weather.Location, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.permission || p.current == nil {
		return weather.Location{}, false
	}
	return *p.current, true
}

func (p *Provider) HasPermission() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.permission
}

// Set records a new position and notifies subscribers.
func (p *Provider) Set(loc weather.Location) {
	p.mu.Lock()
	p.current = &loc
	p.mu.Unlock()

	p.changes.Publish()
}

// Clear forgets the current position.
func (p *Provider) Clear() {
	p.mu.Lock()
	p.current = nil
	p.mu.Unlock()

	p.changes.Publish()
}

// SetPermission changes the permission state and notifies subscribers when it flips.
func (p *Provider) SetPermission(granted bool) {
	p.mu.Lock()
	changed := p.permission != granted
	p.permission = granted
	p.mu.Unlock()

	if changed {
		p.changes.Publish()
	}
}

func (p *Provider) Subscribe(fn func()) *observe.Subscription {
	return p.changes.Subscribe(fn)
}
