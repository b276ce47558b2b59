package handler

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"adsboard/internal/httputil"
	"adsboard/internal/model"
	"adsboard/internal/transport/http/middleware"
)

// AdPipeline is the write side of ads.
type AdPipeline interface {
	Create(ctx context.Context, userID int64, category model.Category, in model.AdInput) (*model.Ad, error)
	Get(ctx context.Context, category model.Category, id string) (*model.Ad, error)
	Update(ctx context.Context, userID int64, category model.Category, id string, in model.AdInput) (*model.Ad, error)
	Delete(ctx context.Context, userID int64, category model.Category, id string) error
}

// AdLister is the read side of ads.
type AdLister interface {
	List(ctx context.Context, category model.Category, q model.ListQuery) (*model.AdPage, error)
	ListByOwner(ctx context.Context, userID int64, category model.Category, q model.ListQuery) (*model.AdPage, error)
}

// AdHandler serves the category ad endpoints. One instance serves every
// category; the category is bound per route.
type AdHandler struct {
	ads     AdPipeline
	listing AdLister
	log     *zap.Logger
}

func NewAdHandler(ads AdPipeline, listing AdLister, log *zap.Logger) *AdHandler {
	return &AdHandler{ads: ads, listing: listing, log: log.Named("ad_handler")}
}

// Create submits a new ad.
// POST /api/{slug}
func (h *AdHandler) Create(category model.Category) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.GetUserIDFromContext(r.Context())
		if !ok {
			httputil.WriteUnauthorized(w, "Not authenticated")
			return
		}

		in, ok := h.decodeInput(w, r)
		if !ok {
			return
		}

		ad, err := h.ads.Create(r.Context(), userID, category, in)
		if err != nil {
			writeServiceError(w, h.log, err)
			return
		}
		httputil.WriteJSON(w, http.StatusCreated, ad)
	}
}

// List returns a filtered page of a category.
// GET /api/{slug}?page=&pageSize=&<field>=
func (h *AdHandler) List(category model.Category) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := parseListQuery(r.URL.Query())
		if err != nil {
			httputil.WriteBadRequestWithCode(w, model.CodeValidation, err.Error())
			return
		}

		page, err := h.listing.List(r.Context(), category, q)
		if err != nil {
			writeServiceError(w, h.log, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, page)
	}
}

// ListOwn returns the caller's ads in a category.
// GET /api/{slug}/user
func (h *AdHandler) ListOwn(category model.Category) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.GetUserIDFromContext(r.Context())
		if !ok {
			httputil.WriteUnauthorized(w, "Not authenticated")
			return
		}

		q, err := parseListQuery(r.URL.Query())
		if err != nil {
			httputil.WriteBadRequestWithCode(w, model.CodeValidation, err.Error())
			return
		}

		page, err := h.listing.ListByOwner(r.Context(), userID, category, q)
		if err != nil {
			writeServiceError(w, h.log, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, page)
	}
}

// Get returns one ad.
// GET /api/{slug}/{id}
func (h *AdHandler) Get(category model.Category) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ad, err := h.ads.Get(r.Context(), category, chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, h.log, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, ad)
	}
}

// Update merges the body into an owned ad.
// PUT /api/{slug}/{id}
func (h *AdHandler) Update(category model.Category) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.GetUserIDFromContext(r.Context())
		if !ok {
			httputil.WriteUnauthorized(w, "Not authenticated")
			return
		}

		in, ok := h.decodeInput(w, r)
		if !ok {
			return
		}

		ad, err := h.ads.Update(r.Context(), userID, category, chi.URLParam(r, "id"), in)
		if err != nil {
			writeServiceError(w, h.log, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, ad)
	}
}

// Delete removes an owned ad.
// DELETE /api/{slug}/{id}
func (h *AdHandler) Delete(category model.Category) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.GetUserIDFromContext(r.Context())
		if !ok {
			httputil.WriteUnauthorized(w, "Not authenticated")
			return
		}

		if err := h.ads.Delete(r.Context(), userID, category, chi.URLParam(r, "id")); err != nil {
			writeServiceError(w, h.log, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{
			"message": "Ad deleted",
		})
	}
}

func (h *AdHandler) decodeInput(w http.ResponseWriter, r *http.Request) (model.AdInput, bool) {
	var raw map[string]any
	if err := httputil.DecodeJSON(r, &raw); err != nil {
		writeDecodeError(w, err)
		return model.AdInput{}, false
	}

	in, err := model.ParseAdInput(raw)
	if err != nil {
		writeServiceError(w, h.log, err)
		return model.AdInput{}, false
	}
	return in, true
}

// parseListQuery reads paging parameters and collects filter values.
// Numbered keys (title1, title2, location3) add values to their base field.
func parseListQuery(values url.Values) (model.ListQuery, error) {
	q := model.ListQuery{Filters: make(map[string][]string)}

	for key, vals := range values {
		switch key {
		case "page":
			n, err := positiveInt(vals[0])
			if err != nil {
				return q, model.NewValidationError("page", "must be a positive integer")
			}
			q.Page = n
			continue
		case "pageSize", "page_size", "limit":
			n, err := positiveInt(vals[0])
			if err != nil {
				return q, model.NewValidationError(key, "must be a positive integer")
			}
			q.PageSize = n
			continue
		}

		field := strings.TrimRight(key, "0123456789")
		if field == "" {
			continue
		}
		q.Filters[field] = append(q.Filters[field], vals...)
	}
	return q, nil
}

func positiveInt(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 0, strconv.ErrSyntax
	}
	return n, nil
}
