package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"adsboard/internal/handler"
	"adsboard/internal/model"
	"adsboard/internal/service"
)

type staticVerifier struct{}

func (staticVerifier) ParseAccessToken(token string) (int64, error) {
	if token == "valid" {
		return 5, nil
	}
	return 0, service.ErrInvalidAccessToken
}

type echoPipeline struct{}

func (echoPipeline) Create(ctx context.Context, userID int64, category model.Category, in model.AdInput) (*model.Ad, error) {
	return &model.Ad{ID: "new", Category: category, OwnerID: userID}, nil
}

func (echoPipeline) Get(ctx context.Context, category model.Category, id string) (*model.Ad, error) {
	return &model.Ad{ID: id, Category: category}, nil
}

func (echoPipeline) Update(ctx context.Context, userID int64, category model.Category, id string, in model.AdInput) (*model.Ad, error) {
	return &model.Ad{ID: id, Category: category, OwnerID: userID}, nil
}

func (echoPipeline) Delete(ctx context.Context, userID int64, category model.Category, id string) error {
	return nil
}

type emptyLister struct{}

func (emptyLister) List(ctx context.Context, category model.Category, q model.ListQuery) (*model.AdPage, error) {
	return &model.AdPage{Items: []model.Ad{}, Page: 1, PageSize: 5}, nil
}

func (emptyLister) ListByOwner(ctx context.Context, userID int64, category model.Category, q model.ListQuery) (*model.AdPage, error) {
	return &model.AdPage{Items: []model.Ad{}, Page: 1, PageSize: 5}, nil
}

func newTestRouter() http.Handler {
	log := zap.NewNop()
	return NewRouter(RouterConfig{
		AuthHandler:    handler.NewAuthHandler(nil, nil, log),
		AdHandler:      handler.NewAdHandler(echoPipeline{}, emptyLister{}, log),
		SavedAdHandler: handler.NewSavedAdHandler(nil, log),
		Tokens:         staticVerifier{},
		AllowedOrigins: []string{"https://app.example.com"},
		MaxBodyBytes:   1 << 20,
		Logger:         log,
	})
}

func TestRouter_CategoryRoutes(t *testing.T) {
	router := newTestRouter()

	for _, schema := range model.Schemas() {
		t.Run(schema.Slug, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/"+schema.Slug, nil))
			assert.Equal(t, http.StatusOK, rec.Code)

			rec = httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/"+schema.Slug+"/abc", nil))
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Contains(t, rec.Body.String(), `"category":"`+string(schema.Category)+`"`)
		})
	}
}

func TestRouter_WritesRequireAuth(t *testing.T) {
	router := newTestRouter()

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/jobs"},
		{http.MethodPut, "/api/vehicles/abc"},
		{http.MethodDelete, "/api/foods/abc"},
		{http.MethodGet, "/api/apparel/user"},
		{http.MethodGet, "/api/saved-ads"},
		{http.MethodGet, "/api/me"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, strings.NewReader(`{}`)))
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestRouter_CreateWithToken(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodPost, "/api/home-goods", strings.NewReader(`{"title":"Lamp"}`))
	req.Header.Set("Authorization", "Bearer valid")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"category":"home_goods"`)
	assert.Contains(t, rec.Body.String(), `"user_id":5`)
}

func TestRouter_UnknownCategory(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/boats", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_Health(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
