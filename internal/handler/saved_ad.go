package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"adsboard/internal/httputil"
	"adsboard/internal/model"
	"adsboard/internal/service"
	"adsboard/internal/transport/http/middleware"
)

type SavedAdHandler struct {
	savedAds *service.SavedAdService
	log      *zap.Logger
}

func NewSavedAdHandler(savedAds *service.SavedAdService, log *zap.Logger) *SavedAdHandler {
	return &SavedAdHandler{savedAds: savedAds, log: log.Named("saved_ad_handler")}
}

// Save marks an ad as saved.
// POST /api/saved-ads
func (h *SavedAdHandler) Save(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Not authenticated")
		return
	}

	var req model.SaveAdRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	saved, err := h.savedAds.Save(r.Context(), userID, req)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, saved)
}

// Unsave removes a saved ad named in the body.
// DELETE /api/saved-ads
func (h *SavedAdHandler) Unsave(w http.ResponseWriter, r *http.Request) {
	var req model.UnsaveAdRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	h.unsave(w, r, req.AdID)
}

// UnsaveByID removes a saved ad named in the path.
// DELETE /api/saved-ads/{adId}
func (h *SavedAdHandler) UnsaveByID(w http.ResponseWriter, r *http.Request) {
	h.unsave(w, r, chi.URLParam(r, "adId"))
}

func (h *SavedAdHandler) unsave(w http.ResponseWriter, r *http.Request, adID string) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Not authenticated")
		return
	}

	if err := h.savedAds.Unsave(r.Context(), userID, adID); err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Ad removed from saved",
	})
}

// List returns the caller's saved ads.
// GET /api/saved-ads
func (h *SavedAdHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Not authenticated")
		return
	}

	views, err := h.savedAds.List(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"saved_ads": views,
	})
}
