package migration

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"

	gocache "github.com/patrickmn/go-cache"

	"github.com/propflow/migrator/internal/domain"
)

// Resolver maintains one cache per dimension kind mapping natural key →
// row id and performs get-or-create against the store. It owns all writes
// to the dimension tables.
//
// Concurrent resolution of the same unseen natural key is resolved by the
// store's unique constraint plus re-read, not by locking around the
// network round-trip: Create surfaces domain.ErrAlreadyExists when another
// in-flight record won the insert, and the loser reads the winner's row.
type Resolver struct {
	store         DimensionStore
	log           *slog.Logger
	matchRegion   RegionMatcher
	defaultRegion string

	caches map[domain.DimensionKind]*gocache.Cache

	// unmatchedAreas counts areas that fell back to the default region,
	// surfaced by the report for manual lexicon review.
	unmatchedAreas atomic.Int64
}

// NewResolver creates a Resolver with empty caches. Resolvers are
// per-run objects; sharing one across runs would leak state between them.
func NewResolver(store DimensionStore, logger *slog.Logger, matcher RegionMatcher, defaultRegion string) *Resolver {
	caches := make(map[domain.DimensionKind]*gocache.Cache, len(domain.AllDimensionKinds))
	for _, kind := range domain.AllDimensionKinds {
		caches[kind] = gocache.New(gocache.NoExpiration, 0)
	}
	return &Resolver{
		store:         store,
		log:           logger.With("component", "resolver"),
		matchRegion:   matcher,
		defaultRegion: defaultRegion,
		caches:        caches,
	}
}

// Resolve returns the dimension id for a raw free-text value, creating the
// row on first sight. Returns nil for empty input and for store failures —
// an unresolvable dimension degrades the record's FK to NULL, it never
// blocks the migration.
func (r *Resolver) Resolve(ctx context.Context, kind domain.DimensionKind, rawValue string) *int64 {
	return r.resolve(ctx, kind, rawValue, nil)
}

// ResolveArea resolves an area, first inferring its region from the
// keyword lexicon. Unmatched areas roll up into the default region.
func (r *Resolver) ResolveArea(ctx context.Context, rawValue string) *int64 {
	key := domain.Canonicalize(rawValue)
	if key == "" {
		return nil
	}

	region, ok := r.matchRegion(key)
	if !ok {
		region = r.defaultRegion
		r.unmatchedAreas.Add(1)
		r.log.DebugContext(ctx, "area did not match region lexicon",
			slog.String("area", key), slog.String("fallback", region))
	}

	parent := r.resolve(ctx, domain.KindRegion, region, nil)
	return r.resolve(ctx, domain.KindArea, rawValue, parent)
}

// ResolveType resolves a property type nested under its category. An empty
// category yields a type row without a parent.
func (r *Resolver) ResolveType(ctx context.Context, rawType, rawCategory string) *int64 {
	parent := r.resolve(ctx, domain.KindCategory, rawCategory, nil)
	return r.resolve(ctx, domain.KindPropertyType, rawType, parent)
}

// UnmatchedAreas returns how many areas fell back to the default region.
func (r *Resolver) UnmatchedAreas() int64 {
	return r.unmatchedAreas.Load()
}

func (r *Resolver) resolve(ctx context.Context, kind domain.DimensionKind, rawValue string, parentID *int64) *int64 {
	key := domain.Canonicalize(rawValue)
	if key == "" {
		return nil
	}

	if cached, ok := r.caches[kind].Get(key); ok {
		id := cached.(int64)
		return &id
	}

	if existing, err := r.store.GetByNaturalKey(ctx, kind, key); err == nil {
		r.caches[kind].Set(key, existing.ID, gocache.NoExpiration)
		return &existing.ID
	} else if !errors.Is(err, domain.ErrNotFound) {
		r.log.WarnContext(ctx, "dimension lookup failed",
			slog.String("kind", string(kind)), slog.String("key", key),
			slog.String("error", err.Error()))
		return nil
	}

	name := strings.Join(strings.Fields(strings.TrimSpace(rawValue)), " ")
	id, err := r.store.Create(ctx, kind, name, key, parentID)
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			// Lost the insert race; the winner's row is authoritative.
			return r.rereadAfterConflict(ctx, kind, key)
		}
		r.log.WarnContext(ctx, "dimension create failed",
			slog.String("kind", string(kind)), slog.String("key", key),
			slog.String("error", err.Error()))
		return nil
	}

	r.caches[kind].Set(key, id, gocache.NoExpiration)
	return &id
}

func (r *Resolver) rereadAfterConflict(ctx context.Context, kind domain.DimensionKind, key string) *int64 {
	existing, err := r.store.GetByNaturalKey(ctx, kind, key)
	if err != nil {
		r.log.WarnContext(ctx, "dimension re-read after conflict failed",
			slog.String("kind", string(kind)), slog.String("key", key),
			slog.String("error", err.Error()))
		return nil
	}
	r.caches[kind].Set(key, existing.ID, gocache.NoExpiration)
	return &existing.ID
}
