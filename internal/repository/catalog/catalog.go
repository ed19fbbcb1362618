// Package catalog implements read access to the artisan profile catalog.
// The matcher treats the catalog as read-only; mutation exists here only so
// the owning side (seeders, sync jobs) can emit the invalidation signals the
// retrieval cache depends on.
package catalog

import (
	"context"

	"github.com/craftbridge/artisanmatch/internal/domain"
	"github.com/craftbridge/artisanmatch/internal/domain/match/filter"
)

// Store is the full catalog contract: reads for the matcher, writes for the
// owning side, and invalidation delivery for caches.
type Store interface {
	QueryProfiles(ctx context.Context, filters filter.Filters) ([]*domain.ArtisanProfile, error)
	GetProfile(ctx context.Context, id string) (*domain.ArtisanProfile, error)
	Ping(ctx context.Context) error

	PutProfile(ctx context.Context, profile *domain.ArtisanProfile) error
	DeleteProfile(ctx context.Context, id string) error

	// OnInvalidate registers a handler called with a profile ID whenever
	// that profile changes. Handlers must be fast and non-blocking.
	OnInvalidate(handler func(profileID string))
}
