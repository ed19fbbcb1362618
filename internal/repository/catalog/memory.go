package catalog

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/craftbridge/artisanmatch/internal/domain"
	"github.com/craftbridge/artisanmatch/internal/domain/match/filter"
)

// Compile-time check: Memory implements Store.
var _ Store = (*Memory)(nil)

// Memory is an in-process catalog store for local runs and tests.
type Memory struct {
	mu       sync.RWMutex
	profiles map[string]*domain.ArtisanProfile
	handlers []func(profileID string)
}

// NewMemory creates an empty in-memory catalog.
func NewMemory() *Memory {
	return &Memory{profiles: make(map[string]*domain.ArtisanProfile)}
}

// QueryProfiles returns profiles passing the structured filters, ordered by ID
// for deterministic pools.
func (m *Memory) QueryProfiles(_ context.Context, filters filter.Filters) ([]*domain.ArtisanProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*domain.ArtisanProfile, 0, len(m.profiles))
	for _, p := range m.profiles {
		if filters.Matches(p) {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Ping always succeeds; the in-memory catalog cannot be unreachable.
func (m *Memory) Ping(_ context.Context) error { return nil }

// GetProfile returns a profile snapshot by ID.
func (m *Memory) GetProfile(_ context.Context, id string) (*domain.ArtisanProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.profiles[id]
	if !ok {
		return nil, fmt.Errorf("profile %s: %w", id, domain.ErrProfileNotFound)
	}
	cp := *p
	return &cp, nil
}

// PutProfile stores a profile, assigning an ID when absent, and notifies
// invalidation handlers.
func (m *Memory) PutProfile(_ context.Context, profile *domain.ArtisanProfile) error {
	if profile.ID == "" {
		profile.ID = uuid.NewString()
	}
	if err := profile.Validate(); err != nil {
		return fmt.Errorf("put profile: %w", err)
	}

	m.mu.Lock()
	cp := *profile
	m.profiles[profile.ID] = &cp
	handlers := m.handlers
	m.mu.Unlock()

	for _, h := range handlers {
		h(profile.ID)
	}
	return nil
}

// DeleteProfile removes a profile and notifies invalidation handlers.
func (m *Memory) DeleteProfile(_ context.Context, id string) error {
	m.mu.Lock()
	_, ok := m.profiles[id]
	delete(m.profiles, id)
	handlers := m.handlers
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("profile %s: %w", id, domain.ErrProfileNotFound)
	}
	for _, h := range handlers {
		h(id)
	}
	return nil
}

// OnInvalidate registers a profile-change handler.
func (m *Memory) OnInvalidate(handler func(profileID string)) {
	m.mu.Lock()
	m.handlers = append(m.handlers, handler)
	m.mu.Unlock()
}
