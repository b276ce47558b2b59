package service

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"adsboard/internal/model"
)

type memSavedAdRepository struct {
	records []model.SavedAd
	nextID  int64
}

func (r *memSavedAdRepository) Create(ctx context.Context, userID int64, adID string, category model.Category) (*model.SavedAd, error) {
	for _, rec := range r.records {
		if rec.UserID == userID && rec.AdID == adID {
			return nil, model.ErrAlreadySaved
		}
	}
	r.nextID++
	rec := model.SavedAd{
		ID:        r.nextID,
		UserID:    userID,
		AdID:      adID,
		Category:  category,
		CreatedAt: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(r.nextID) * time.Minute),
	}
	r.records = append(r.records, rec)
	return &rec, nil
}

func (r *memSavedAdRepository) Exists(ctx context.Context, userID int64, adID string) (bool, error) {
	return slices.ContainsFunc(r.records, func(rec model.SavedAd) bool {
		return rec.UserID == userID && rec.AdID == adID
	}), nil
}

func (r *memSavedAdRepository) Delete(ctx context.Context, userID int64, adID string) error {
	r.records = slices.DeleteFunc(r.records, func(rec model.SavedAd) bool {
		return rec.UserID == userID && rec.AdID == adID
	})
	return nil
}

func (r *memSavedAdRepository) ListByUser(ctx context.Context, userID int64) ([]model.SavedAd, error) {
	var out []model.SavedAd
	for i := len(r.records) - 1; i >= 0; i-- {
		if r.records[i].UserID == userID {
			out = append(out, r.records[i])
		}
	}
	return out, nil
}

func (r *memSavedAdRepository) DeleteByAd(ctx context.Context, adID string) (int64, error) {
	before := len(r.records)
	r.records = slices.DeleteFunc(r.records, func(rec model.SavedAd) bool { return rec.AdID == adID })
	return int64(before - len(r.records)), nil
}

func newTestSavedAds(t *testing.T) (*SavedAdService, *memAdRepository, *memSavedAdRepository) {
	t.Helper()
	ads := newMemAdRepository()
	saved := &memSavedAdRepository{}
	svc := NewSavedAdService(saved, ads, newTestOwners(staticSummaries{1: {ID: 1, Username: "sara"}}), zap.NewNop())
	return svc, ads, saved
}

func TestSavedAdService_Save(t *testing.T) {
	svc, ads, _ := newTestSavedAds(t)
	ctx := context.Background()
	seedAds(t, ads, model.CategoryJob, 1, nil)

	rec, err := svc.Save(ctx, 7, model.SaveAdRequest{AdID: "ad-001", Category: "jobs"})
	require.NoError(t, err)
	assert.Equal(t, model.CategoryJob, rec.Category)
	assert.Equal(t, int64(7), rec.UserID)

	_, err = svc.Save(ctx, 7, model.SaveAdRequest{AdID: "ad-001", Category: "job"})
	assert.ErrorIs(t, err, model.ErrAlreadySaved)
}

func TestSavedAdService_Save_Invalid(t *testing.T) {
	svc, ads, _ := newTestSavedAds(t)
	seedAds(t, ads, model.CategoryJob, 1, nil)

	tests := []struct {
		name string
		req  model.SaveAdRequest
		want error
	}{
		{"missing id", model.SaveAdRequest{Category: "job"}, model.ErrValidation},
		{"unknown category", model.SaveAdRequest{AdID: "ad-001", Category: "boats"}, model.ErrValidation},
		{"missing ad", model.SaveAdRequest{AdID: "ad-404", Category: "job"}, model.ErrAdNotFound},
		{"wrong category", model.SaveAdRequest{AdID: "ad-001", Category: "food"}, model.ErrAdNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Save(context.Background(), 7, tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestSavedAdService_Unsave_Idempotent(t *testing.T) {
	svc, ads, saved := newTestSavedAds(t)
	ctx := context.Background()
	seedAds(t, ads, model.CategoryJob, 1, nil)

	_, err := svc.Save(ctx, 7, model.SaveAdRequest{AdID: "ad-001", Category: "job"})
	require.NoError(t, err)

	require.NoError(t, svc.Unsave(ctx, 7, "ad-001"))
	require.NoError(t, svc.Unsave(ctx, 7, "ad-001"))
	assert.Empty(t, saved.records)

	assert.ErrorIs(t, svc.Unsave(ctx, 7, " "), model.ErrValidation)
}

func TestSavedAdService_List(t *testing.T) {
	svc, ads, _ := newTestSavedAds(t)
	ctx := context.Background()
	seedAds(t, ads, model.CategoryJob, 2, nil)     // ad-001, ad-002
	seedAds(t, ads, model.CategoryVehicle, 1, nil) // ad-003

	for _, req := range []model.SaveAdRequest{
		{AdID: "ad-001", Category: "job"},
		{AdID: "ad-003", Category: "vehicle"},
		{AdID: "ad-002", Category: "job"},
	} {
		_, err := svc.Save(ctx, 7, req)
		require.NoError(t, err)
	}
	require.NoError(t, ads.Delete(ctx, model.CategoryJob, "ad-002"))

	views, err := svc.List(ctx, 7)
	require.NoError(t, err)

	require.Len(t, views, 2, "dangling record is skipped")
	assert.Equal(t, "ad-003", views[0].Ad.ID)
	assert.Equal(t, model.CategoryVehicle, views[0].Category)
	assert.Equal(t, "ad-001", views[1].Ad.ID)
	require.NotNil(t, views[1].Ad.Owner)
	assert.Equal(t, "sara", views[1].Ad.Owner.Username)
}

func TestSavedAdService_List_Empty(t *testing.T) {
	svc, _, _ := newTestSavedAds(t)
	views, err := svc.List(context.Background(), 7)
	require.NoError(t, err)
	assert.NotNil(t, views)
	assert.Empty(t, views)
}
