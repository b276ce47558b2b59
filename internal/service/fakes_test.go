package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"adsboard/internal/model"
)

// =============================================================================
// IN-MEMORY AD STORE
// =============================================================================

type memAdRepository struct {
	mu     sync.Mutex
	ads    map[model.Category][]*model.Ad
	nextID int

	insertErr error
	updateErr error
	countErr  error
	getErr    error
}

func newMemAdRepository() *memAdRepository {
	return &memAdRepository{ads: make(map[model.Category][]*model.Ad)}
}

func (r *memAdRepository) Insert(ctx context.Context, ad *model.Ad) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.insertErr != nil {
		return r.insertErr
	}
	r.nextID++
	ad.ID = fmt.Sprintf("ad-%03d", r.nextID)
	r.ads[ad.Category] = append(r.ads[ad.Category], ad.Clone())
	return nil
}

func (r *memAdRepository) GetByID(ctx context.Context, category model.Category, id string) (*model.Ad, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	for _, ad := range r.ads[category] {
		if ad.ID == id {
			return ad.Clone(), nil
		}
	}
	return nil, model.ErrAdNotFound
}

func (r *memAdRepository) GetByIDs(ctx context.Context, category model.Category, ids []string) ([]model.Ad, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Ad
	for _, ad := range r.ads[category] {
		if slices.Contains(ids, ad.ID) {
			out = append(out, *ad.Clone())
		}
	}
	return out, nil
}

func (r *memAdRepository) Find(ctx context.Context, category model.Category, filter model.AdFilter, skip, limit int64) ([]model.Ad, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	matched := r.match(category, filter)
	slices.SortStableFunc(matched, func(a, b model.Ad) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if skip >= int64(len(matched)) {
		return []model.Ad{}, nil
	}
	end := int64(len(matched))
	if limit > 0 {
		end = min(end, skip+limit)
	}
	return matched[skip:end], nil
}

func (r *memAdRepository) Count(ctx context.Context, category model.Category, filter model.AdFilter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.countErr != nil {
		return 0, r.countErr
	}
	return int64(len(r.match(category, filter))), nil
}

func (r *memAdRepository) Update(ctx context.Context, ad *model.Ad) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	for i, stored := range r.ads[ad.Category] {
		if stored.ID == ad.ID && stored.OwnerID == ad.OwnerID {
			r.ads[ad.Category][i] = ad.Clone()
			return nil
		}
	}
	return model.ErrAdNotFound
}

func (r *memAdRepository) Delete(ctx context.Context, category model.Category, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, stored := range r.ads[category] {
		if stored.ID == id {
			r.ads[category] = slices.Delete(r.ads[category], i, i+1)
			return nil
		}
	}
	return model.ErrAdNotFound
}

func (r *memAdRepository) stored(category model.Category) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ads[category])
}

func (r *memAdRepository) match(category model.Category, filter model.AdFilter) []model.Ad {
	var out []model.Ad
	for _, ad := range r.ads[category] {
		if filter.OwnerID != nil && ad.OwnerID != *filter.OwnerID {
			continue
		}
		if filter.CreatedFrom != nil && ad.CreatedAt.Before(*filter.CreatedFrom) {
			continue
		}
		if filter.CreatedTo != nil && !ad.CreatedAt.Before(*filter.CreatedTo) {
			continue
		}
		if !matchesAll(ad, filter.Matches) {
			continue
		}
		out = append(out, *ad.Clone())
	}
	return out
}

func matchesAll(ad *model.Ad, matches []model.FieldMatch) bool {
	for _, m := range matches {
		value := ad.Field(m.Field)
		ok := slices.ContainsFunc(m.Values, func(v string) bool {
			if m.Mode == model.MatchExact {
				return value == v
			}
			return strings.Contains(strings.ToLower(value), strings.ToLower(v))
		})
		if !ok {
			return false
		}
	}
	return true
}

// =============================================================================
// OBJECT STORE
// =============================================================================

// fakeImageStore turns inline payloads into CDN URLs. Payloads containing
// "fail" return uploadErr. Destroys under a cancelled context fail.
type fakeImageStore struct {
	mu        sync.Mutex
	n         int
	uploadErr error
	uploaded  []string
	destroyed []string
}

func (s *fakeImageStore) UploadAdImage(ctx context.Context, payload string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if strings.Contains(payload, "fail") {
		if s.uploadErr != nil {
			return "", s.uploadErr
		}
		return "", errors.New("gateway unavailable")
	}
	s.n++
	url := fmt.Sprintf("https://cdn.test/ads/img-%d.jpg", s.n)
	s.uploaded = append(s.uploaded, url)
	return url, nil
}

func (s *fakeImageStore) DestroyAdImage(ctx context.Context, imageURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	s.destroyed = append(s.destroyed, imageURL)
	return nil
}

func (s *fakeImageStore) OwnsURL(imageURL string) bool {
	return strings.HasPrefix(imageURL, "https://cdn.test/ads/")
}

func (s *fakeImageStore) destroyedURLs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.destroyed)
}

// =============================================================================
// EVENTS AND OWNERS
// =============================================================================

type recordingEvents struct {
	mu      sync.Mutex
	created []model.NewAdNotice
	deleted []string
	err     error
}

func (e *recordingEvents) AdCreated(ctx context.Context, notice model.NewAdNotice) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.created = append(e.created, notice)
	return e.err
}

func (e *recordingEvents) AdDeleted(ctx context.Context, category model.Category, adID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.deleted = append(e.deleted, adID)
	return e.err
}

type staticSummaries map[int64]model.UserSummary

func (s staticSummaries) GetSummaries(ctx context.Context, ids []int64) ([]model.UserSummary, error) {
	var out []model.UserSummary
	for _, id := range ids {
		if u, ok := s[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func newTestOwners(users staticSummaries) *OwnerResolver {
	if users == nil {
		users = staticSummaries{}
	}
	return NewOwnerResolver(users, nil, zap.NewNop())
}

// fixedClock is 10:00 local time on a weekday.
var fixedClock = time.Date(2024, 6, 12, 10, 0, 0, 0, time.Local)

type adPipeline struct {
	svc    *AdService
	repo   *memAdRepository
	store  *fakeImageStore
	events *recordingEvents
}

func newTestAdPipeline() *adPipeline {
	repo := newMemAdRepository()
	store := &fakeImageStore{}
	events := &recordingEvents{}

	quota := NewQuotaEnforcer(repo)
	quota.now = func() time.Time { return fixedClock }

	svc := NewAdService(
		repo,
		quota,
		NewImageProcessor(store, zap.NewNop()),
		newTestOwners(staticSummaries{1: {ID: 1, Username: "sara"}}),
		events,
		zap.NewNop(),
		nil,
	)
	svc.now = func() time.Time { return fixedClock }

	return &adPipeline{svc: svc, repo: repo, store: store, events: events}
}
