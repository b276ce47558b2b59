package service

import (
	"context"

	"go.uber.org/zap"

	"adsboard/internal/cache"
	"adsboard/internal/model"
)

// SummaryLoader batch-loads public user projections.
type SummaryLoader interface {
	GetSummaries(ctx context.Context, ids []int64) ([]model.UserSummary, error)
}

// OwnerResolver attaches owner projections to ads, reading through the
// profile cache when one is configured.
type OwnerResolver struct {
	users SummaryLoader
	cache cache.ProfileCache
	log   *zap.Logger
}

// NewOwnerResolver creates a resolver. profiles may be nil.
func NewOwnerResolver(users SummaryLoader, profiles cache.ProfileCache, log *zap.Logger) *OwnerResolver {
	return &OwnerResolver{users: users, cache: profiles, log: log.Named("owners")}
}

// Attach sets Owner on each ad. Lookup failures leave Owner nil.
func (r *OwnerResolver) Attach(ctx context.Context, ads []model.Ad) {
	if len(ads) == 0 {
		return
	}

	seen := make(map[int64]struct{}, len(ads))
	ids := make([]int64, 0, len(ads))
	for _, ad := range ads {
		if _, ok := seen[ad.OwnerID]; !ok {
			seen[ad.OwnerID] = struct{}{}
			ids = append(ids, ad.OwnerID)
		}
	}

	owners := r.resolve(ctx, ids)
	for i := range ads {
		if u, ok := owners[ads[i].OwnerID]; ok {
			owner := u
			ads[i].Owner = &owner
		}
	}
}

// AttachOne is Attach for a single ad.
func (r *OwnerResolver) AttachOne(ctx context.Context, ad *model.Ad) {
	batch := []model.Ad{*ad}
	r.Attach(ctx, batch)
	ad.Owner = batch[0].Owner
}

func (r *OwnerResolver) resolve(ctx context.Context, ids []int64) map[int64]model.UserSummary {
	owners := make(map[int64]model.UserSummary, len(ids))
	missing := ids

	if r.cache != nil {
		found, miss, err := r.cache.GetMany(ctx, ids)
		if err != nil {
			r.log.Warn("profile cache read failed", zap.Error(err))
		} else {
			for id, u := range found {
				owners[id] = u
			}
			missing = miss
		}
	}
	if len(missing) == 0 {
		return owners
	}

	loaded, err := r.users.GetSummaries(ctx, missing)
	if err != nil {
		r.log.Warn("owner lookup failed", zap.Int("owners", len(missing)), zap.Error(err))
		return owners
	}
	for _, u := range loaded {
		owners[u.ID] = u
	}

	if r.cache != nil {
		if err := r.cache.SetMany(ctx, loaded); err != nil {
			r.log.Warn("profile cache write failed", zap.Error(err))
		}
	}
	return owners
}
