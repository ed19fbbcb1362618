package artisanmatch

import (
	"context"
	"fmt"
	"time"

	"github.com/craftbridge/artisanmatch/internal/repository/catalog"
)

// ProfileService manages artisan catalog entries. Every write emits the
// invalidation signal the ranked-result caches depend on.
type ProfileService struct {
	store catalog.Store
	obs   *observer
}

// Upsert validates and stores a profile.
func (s *ProfileService) Upsert(ctx context.Context, p Profile) (err error) {
	start := time.Now()
	defer func() { s.obs.observe("profile_upsert", start, err) }()

	dp := p.toDomain()
	if err = dp.Validate(); err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	if err = s.store.PutProfile(ctx, dp); err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

// Get returns a profile by ID. Missing profiles report ErrProfileNotFound.
func (s *ProfileService) Get(ctx context.Context, id string) (p Profile, err error) {
	start := time.Now()
	defer func() { s.obs.observe("profile_get", start, err) }()

	dp, err := s.store.GetProfile(ctx, id)
	if err != nil {
		return Profile{}, fmt.Errorf("get profile: %w", err)
	}
	return profileFromDomain(dp), nil
}

// Delete removes a profile by ID.
func (s *ProfileService) Delete(ctx context.Context, id string) (err error) {
	start := time.Now()
	defer func() { s.obs.observe("profile_delete", start, err) }()

	if err = s.store.DeleteProfile(ctx, id); err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	return nil
}
