package repository

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"adsboard/internal/model"
)

var testMongoDB *mongo.Database

// TestMain starts a throwaway MongoDB when Docker is reachable. Without
// Docker, or with -short, the integration tests skip.
func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		os.Exit(m.Run())
	}

	pool, err := dockertest.NewPool("")
	if err == nil {
		err = pool.Client.Ping()
	}
	if err != nil {
		log.Printf("docker unavailable, skipping mongo integration tests: %v", err)
		os.Exit(m.Run())
	}

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "mongo",
		Tag:        "7.0",
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		log.Fatalf("Could not start MongoDB resource: %s", err)
	}
	_ = resource.Expire(120)

	var client *mongo.Client
	uri := fmt.Sprintf("mongodb://%s", resource.GetHostPort("27017/tcp"))
	if err := pool.Retry(func() error {
		var errRetry error
		client, errRetry = mongo.Connect(context.Background(), options.Client().ApplyURI(uri))
		if errRetry != nil {
			return errRetry
		}
		return client.Ping(context.Background(), nil)
	}); err != nil {
		log.Fatalf("Could not connect to MongoDB: %s", err)
	}

	testMongoDB = client.Database("adsboard_test")
	if err := EnsureAdIndexes(context.Background(), testMongoDB); err != nil {
		log.Fatalf("Could not create indexes: %s", err)
	}

	code := m.Run()

	_ = client.Disconnect(context.Background())
	if err := pool.Purge(resource); err != nil {
		log.Printf("Could not purge MongoDB resource: %s", err)
	}
	os.Exit(code)
}

func newIntegrationAdRepository(t *testing.T) AdRepository {
	t.Helper()
	if testMongoDB == nil {
		t.Skip("mongo integration tests need docker")
	}
	for _, s := range model.Schemas() {
		_, err := testMongoDB.Collection(s.Collection).DeleteMany(context.Background(), map[string]any{})
		require.NoError(t, err)
	}
	return NewAdRepository(testMongoDB)
}

func TestAdRepository_Integration_CRUD(t *testing.T) {
	repo := newIntegrationAdRepository(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	ad := &model.Ad{
		Category:   model.CategoryVehicle,
		Title:      "Blue sedan",
		Images:     []string{"https://cdn.test/ads/1.jpg"},
		Location:   "Northside",
		Attributes: map[string]string{"brand": "Kia", "fuelType": "diesel"},
		OwnerID:    4,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, repo.Insert(ctx, ad))
	require.NotEmpty(t, ad.ID)

	got, err := repo.GetByID(ctx, model.CategoryVehicle, ad.ID)
	require.NoError(t, err)
	assert.Equal(t, "Blue sedan", got.Title)
	assert.Equal(t, "Kia", got.Attributes["brand"])
	assert.True(t, now.Equal(got.CreatedAt))

	_, err = repo.GetByID(ctx, model.CategoryJob, ad.ID)
	assert.ErrorIs(t, err, model.ErrAdNotFound, "categories live in separate collections")

	got.Title = "Red sedan"
	require.NoError(t, repo.Update(ctx, got))

	hijack := *got
	hijack.OwnerID = 99
	assert.ErrorIs(t, repo.Update(ctx, &hijack), model.ErrAdNotFound)

	got, err = repo.GetByID(ctx, model.CategoryVehicle, ad.ID)
	require.NoError(t, err)
	assert.Equal(t, "Red sedan", got.Title)

	require.NoError(t, repo.Delete(ctx, model.CategoryVehicle, ad.ID))
	assert.ErrorIs(t, repo.Delete(ctx, model.CategoryVehicle, ad.ID), model.ErrAdNotFound)
}

func TestAdRepository_Integration_FindAndCount(t *testing.T) {
	repo := newIntegrationAdRepository(t)
	ctx := context.Background()
	base := time.Date(2024, 6, 12, 8, 0, 0, 0, time.UTC)

	for i := 0; i < 7; i++ {
		location := "Downtown"
		if i%2 == 0 {
			location = "North End"
		}
		require.NoError(t, repo.Insert(ctx, &model.Ad{
			Category:   model.CategoryProperty,
			Title:      fmt.Sprintf("Flat %d", i),
			Location:   location,
			Attributes: map[string]string{"type": model.PropertyTypes[i%3]},
			OwnerID:    int64(i%2 + 1),
			CreatedAt:  base.Add(time.Duration(i) * time.Hour),
		}))
	}

	north := model.AdFilter{Matches: []model.FieldMatch{{Field: model.FieldLocation, Values: []string{"north"}, Mode: model.MatchContains}}}
	n, err := repo.Count(ctx, model.CategoryProperty, north)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	ads, err := repo.Find(ctx, model.CategoryProperty, north, 1, 2)
	require.NoError(t, err)
	require.Len(t, ads, 2)
	assert.Equal(t, "Flat 4", ads[0].Title)
	assert.Equal(t, "Flat 2", ads[1].Title)

	rent := model.AdFilter{Matches: []model.FieldMatch{{Field: "type", Values: []string{"rent"}, Mode: model.MatchExact}}}
	n, err = repo.Count(ctx, model.CategoryProperty, rent)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	owner := int64(2)
	from := base.Add(2 * time.Hour)
	to := base.Add(6 * time.Hour)
	n, err = repo.Count(ctx, model.CategoryProperty, model.AdFilter{OwnerID: &owner, CreatedFrom: &from, CreatedTo: &to})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n, "flats 3 and 5")

	all, err := repo.Find(ctx, model.CategoryProperty, model.AdFilter{}, 0, 0)
	require.NoError(t, err)
	ids := []string{all[0].ID, all[6].ID, "not-an-id"}
	byID, err := repo.GetByIDs(ctx, model.CategoryProperty, ids)
	require.NoError(t, err)
	assert.Len(t, byID, 2)
}
