package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"adsboard/internal/model"
)

func seedAds(t *testing.T, repo *memAdRepository, category model.Category, n int, mutate func(i int, ad *model.Ad)) {
	t.Helper()
	base := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		ad := &model.Ad{
			Category:   category,
			Title:      fmt.Sprintf("ad %d", i),
			Location:   "Downtown",
			OwnerID:    1,
			Attributes: map[string]string{},
			CreatedAt:  base.Add(time.Duration(i) * time.Hour),
		}
		if mutate != nil {
			mutate(i, ad)
		}
		require.NoError(t, repo.Insert(context.Background(), ad))
	}
}

func newTestListing(repo *memAdRepository) *ListingService {
	return NewListingService(repo, newTestOwners(staticSummaries{1: {ID: 1, Username: "sara"}}), zap.NewNop())
}

func TestListingService_List_Pagination(t *testing.T) {
	repo := newMemAdRepository()
	seedAds(t, repo, model.CategoryVehicle, 12, nil)
	svc := newTestListing(repo)

	page, err := svc.List(context.Background(), model.CategoryVehicle, model.ListQuery{Page: 3, PageSize: 5})
	require.NoError(t, err)

	assert.Equal(t, 3, page.Page)
	assert.Equal(t, 5, page.PageSize)
	assert.Equal(t, int64(12), page.TotalItems)
	assert.Equal(t, 3, page.TotalPages)
	require.Len(t, page.Items, 2)
	// newest first, so the last page holds the two oldest
	assert.Equal(t, "ad 1", page.Items[0].Title)
	assert.Equal(t, "ad 0", page.Items[1].Title)
	require.NotNil(t, page.Items[0].Owner)
	assert.Equal(t, "sara", page.Items[0].Owner.Username)
}

func TestListingService_List_PastLastPage(t *testing.T) {
	repo := newMemAdRepository()
	seedAds(t, repo, model.CategoryVehicle, 3, nil)
	svc := newTestListing(repo)

	page, err := svc.List(context.Background(), model.CategoryVehicle, model.ListQuery{Page: 9, PageSize: 5})
	require.NoError(t, err)
	assert.NotNil(t, page.Items)
	assert.Empty(t, page.Items)
	assert.Equal(t, 1, page.TotalPages)
}

func TestListingService_List_PageDefaults(t *testing.T) {
	repo := newMemAdRepository()
	seedAds(t, repo, model.CategoryJob, 60, nil)
	svc := newTestListing(repo)

	page, err := svc.List(context.Background(), model.CategoryJob, model.ListQuery{})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 3, page.PageSize, "job listings default to 3 per page")
	assert.Len(t, page.Items, 3)

	page, err = svc.List(context.Background(), model.CategoryJob, model.ListQuery{Page: 1, PageSize: 500})
	require.NoError(t, err)
	assert.Equal(t, model.MaxPageSize, page.PageSize)
	assert.Len(t, page.Items, model.MaxPageSize)
}

func TestListingService_List_Filters(t *testing.T) {
	repo := newMemAdRepository()
	seedAds(t, repo, model.CategoryProperty, 6, func(i int, ad *model.Ad) {
		ad.Attributes["type"] = model.PropertyTypes[i%3]
		if i < 2 {
			ad.Location = "Northside"
		}
	})
	svc := newTestListing(repo)

	page, err := svc.List(context.Background(), model.CategoryProperty, model.ListQuery{
		Filters: map[string][]string{
			"type":     {"rent", "mortgage"},
			"location": {"north"},
			"city":     {model.NoFilterSentinel},
			"colour":   {"blue"},
		},
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), page.TotalItems)
	assert.Equal(t, "ad 1", page.Items[0].Title)
}

func TestListingService_ListByOwner(t *testing.T) {
	repo := newMemAdRepository()
	seedAds(t, repo, model.CategoryApparel, 4, func(i int, ad *model.Ad) {
		ad.OwnerID = int64(i%2 + 1)
	})
	svc := newTestListing(repo)

	page, err := svc.ListByOwner(context.Background(), 2, model.CategoryApparel, model.ListQuery{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.TotalItems)
	for _, ad := range page.Items {
		assert.Equal(t, int64(2), ad.OwnerID)
		assert.Nil(t, ad.Owner, "unknown owners stay unresolved")
	}
}

func TestBuildMatches(t *testing.T) {
	schema, err := model.SchemaFor(model.CategoryVehicle)
	require.NoError(t, err)

	matches := BuildMatches(schema, map[string][]string{
		"fuelType": {"diesel", " "},
		"brand":    {model.NoFilterSentinel},
		"title":    {"sedan"},
		"price":    {"100"},
	})

	require.Len(t, matches, 2)
	assert.Equal(t, model.FieldMatch{Field: "title", Values: []string{"sedan"}, Mode: model.MatchContains}, matches[0])
	assert.Equal(t, model.FieldMatch{Field: "fuelType", Values: []string{"diesel"}, Mode: model.MatchExact}, matches[1])
}
