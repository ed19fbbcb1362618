package catalog

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/craftbridge/artisanmatch/internal/db"
	"github.com/craftbridge/artisanmatch/internal/domain"
	"github.com/craftbridge/artisanmatch/internal/domain/match/filter"
)

// Compile-time check: Redis implements Store.
var _ Store = (*Redis)(nil)

// store is the consumer interface for the Redis catalog (ISP).
type store interface {
	db.Pinger
	db.HashStore
	db.PubSub
}

// Redis stores artisan profiles as hashes and delivers invalidation signals
// over a pub/sub channel so every replica's retrieval cache stays honest.
type Redis struct {
	store     store
	keyPrefix string
	logger    *zap.Logger

	mu       sync.RWMutex
	handlers []func(profileID string)
}

// NewRedis creates a Redis-backed catalog and starts the invalidation
// subscriber. The subscriber stops when ctx is cancelled.
func NewRedis(ctx context.Context, s store, keyPrefix string, logger *zap.Logger) *Redis {
	r := &Redis{store: s, keyPrefix: keyPrefix, logger: logger}

	go func() {
		if err := s.Subscribe(ctx, r.invalidationChannel(), r.dispatch); err != nil {
			logger.Error("Catalog invalidation subscription ended", zap.Error(err))
		}
	}()

	return r
}

// QueryProfiles scans profile hashes and applies the structured filters
// in-process. Pools are ordered by ID for deterministic ranking input.
func (r *Redis) QueryProfiles(ctx context.Context, filters filter.Filters) ([]*domain.ArtisanProfile, error) {
	keys, err := r.store.Scan(ctx, r.profileKey("*"))
	if err != nil {
		return nil, fmt.Errorf("scan profiles: %w: %w", err, domain.ErrCatalogUnavailable)
	}

	hashes, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("load profiles: %w: %w", err, domain.ErrCatalogUnavailable)
	}

	out := make([]*domain.ArtisanProfile, 0, len(hashes))
	for _, fields := range hashes {
		if len(fields) == 0 {
			continue
		}
		p := fieldsToProfile(fields)
		if filters.Matches(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Ping checks the underlying store connection.
func (r *Redis) Ping(ctx context.Context) error {
	if err := r.store.Ping(ctx); err != nil {
		return fmt.Errorf("catalog ping: %w: %w", err, domain.ErrCatalogUnavailable)
	}
	return nil
}

// GetProfile loads a single profile by ID.
func (r *Redis) GetProfile(ctx context.Context, id string) (*domain.ArtisanProfile, error) {
	fields, err := r.store.HGetAll(ctx, r.profileKey(id))
	if err != nil {
		return nil, fmt.Errorf("get profile: %w: %w", err, domain.ErrCatalogUnavailable)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("profile %s: %w", id, domain.ErrProfileNotFound)
	}
	return fieldsToProfile(fields), nil
}

// PutProfile stores a profile and publishes its invalidation signal.
func (r *Redis) PutProfile(ctx context.Context, profile *domain.ArtisanProfile) error {
	if profile.ID == "" {
		profile.ID = uuid.NewString()
	}
	if err := profile.Validate(); err != nil {
		return fmt.Errorf("put profile: %w", err)
	}
	if err := r.store.HSet(ctx, r.profileKey(profile.ID), profileToFields(profile)); err != nil {
		return fmt.Errorf("store profile: %w", err)
	}
	r.publishInvalidation(ctx, profile.ID)
	return nil
}

// DeleteProfile removes a profile and publishes its invalidation signal.
func (r *Redis) DeleteProfile(ctx context.Context, id string) error {
	exists, err := r.store.Exists(ctx, r.profileKey(id))
	if err != nil {
		return fmt.Errorf("check profile: %w", err)
	}
	if !exists {
		return fmt.Errorf("profile %s: %w", id, domain.ErrProfileNotFound)
	}
	if err := r.store.Del(ctx, r.profileKey(id)); err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	r.publishInvalidation(ctx, id)
	return nil
}

// OnInvalidate registers a profile-change handler.
func (r *Redis) OnInvalidate(handler func(profileID string)) {
	r.mu.Lock()
	r.handlers = append(r.handlers, handler)
	r.mu.Unlock()
}

func (r *Redis) dispatch(profileID string) {
	r.mu.RLock()
	handlers := r.handlers
	r.mu.RUnlock()
	for _, h := range handlers {
		h(profileID)
	}
}

func (r *Redis) publishInvalidation(ctx context.Context, profileID string) {
	if err := r.store.Publish(ctx, r.invalidationChannel(), profileID); err != nil {
		r.logger.Warn("Failed to publish profile invalidation",
			zap.String("profile_id", profileID), zap.Error(err))
	}
}

func (r *Redis) profileKey(id string) string {
	return r.keyPrefix + "profile:" + id
}

func (r *Redis) invalidationChannel() string {
	return r.keyPrefix + "profile_invalidate"
}
