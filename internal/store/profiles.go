package store

import (
	"context"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/i474232898/weather-wear-alerts/internal/observe"
	"github.com/i474232898/weather-wear-alerts/internal/profile"
)

// ProfileStore persists the single user profile and announces every save.
type ProfileStore interface {
	Load(ctx context.Context) (profile.Profile, bool, error)
	Save(ctx context.Context, p profile.Profile) error
	Subscribe(fn func()) *observe.Subscription
}

// MemoryProfileStore keeps the profile in memory only.
type MemoryProfileStore struct {
	mu      sync.RWMutex
	current *profile.Profile
	changes *observe.Hub
}

func NewMemoryProfileStore() *MemoryProfileStore {
	return &MemoryProfileStore{changes: observe.NewHub()}
}

// Load returns a copy of the stored profile; ok is false when none was saved yet.
func (s *MemoryProfileStore) Load(context.Context) (profile.Profile, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current == nil {
		return profile.Profile{}, false, nil
	}
	return s.current.Clone(), true, nil
}

func (s *MemoryProfileStore) Save(_ context.Context, p profile.Profile) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("invalid profile: %w", err)
	}

	c := p.Clone()
	s.mu.Lock()
	s.current = &c
	s.mu.Unlock()

	s.changes.Publish()
	return nil
}

func (s *MemoryProfileStore) Subscribe(fn func()) *observe.Subscription {
	return s.changes.Subscribe(fn)
}

// Initialize saves seed when the store holds no profile yet.
func Initialize(ctx context.Context, s ProfileStore, seed profile.Profile) error {
	_, ok, err := s.Load(ctx)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	return s.Save(ctx, seed)
}

// Reset overwrites the stored profile with the defaults.
func Reset(ctx context.Context, s ProfileStore) error {
	return s.Save(ctx, profile.Default())
}

// LoadSeed reads an initial profile from a YAML file. An empty path yields
// profile.Default(); fields missing from the file keep their default values.
func LoadSeed(path string) (profile.Profile, error) {
	seed := profile.Default()
	if path == "" {
		return seed, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return profile.Profile{}, fmt.Errorf("read profile seed: %w", err)
	}
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return profile.Profile{}, fmt.Errorf("parse profile seed: %w", err)
	}
	if err := seed.Validate(); err != nil {
		return profile.Profile{}, fmt.Errorf("invalid profile seed: %w", err)
	}
	return seed, nil
}
