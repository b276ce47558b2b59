package handler

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"adsboard/internal/httputil"
	"adsboard/internal/model"
)

// writeServiceError maps pipeline errors onto the API envelope. Validation
// messages are returned verbatim; storage failures are logged, never leaked.
func writeServiceError(w http.ResponseWriter, log *zap.Logger, err error) {
	var (
		verr  *model.ValidationError
		quota *model.QuotaExceededError
	)

	switch {
	case errors.As(err, &verr):
		httputil.WriteBadRequestWithCode(w, model.CodeValidation, verr.Error())
	case errors.As(err, &quota):
		httputil.WriteErrorWithDetails(w, http.StatusTooManyRequests, model.CodeQuotaExceeded, quota.Error(),
			map[string]any{"limit": quota.Limit, "category": quota.Category})
	case errors.Is(err, model.ErrTooManyImages):
		httputil.WriteErrorWithDetails(w, http.StatusBadRequest, model.CodeTooManyImages,
			"An ad can have at most 5 images", map[string]any{"limit": model.MaxAdImages})
	case errors.Is(err, model.ErrUploadFailed):
		log.Error("image upload failed", zap.Error(err))
		httputil.WriteError(w, http.StatusBadGateway, model.CodeUploadFailed, "Failed to upload images")
	case errors.Is(err, model.ErrForbidden):
		httputil.WriteForbidden(w, "You can only modify your own ads")
	case errors.Is(err, model.ErrAdNotFound):
		httputil.WriteNotFound(w, "Ad not found")
	case errors.Is(err, model.ErrUnknownCategory):
		httputil.WriteNotFound(w, "Unknown category")
	case errors.Is(err, model.ErrAlreadySaved):
		httputil.WriteConflictWithCode(w, model.CodeAlreadySaved, "Ad is already saved")
	case errors.Is(err, model.ErrUserNotFound):
		httputil.WriteNotFound(w, "User not found")
	default:
		log.Error("request failed", zap.Error(err))
		httputil.WriteInternalError(w, "Internal server error")
	}
}

// writeDecodeError reports a body that could not be decoded.
func writeDecodeError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		httputil.WritePayloadTooLarge(w, "Request body is too large")
		return
	}
	httputil.WriteBadRequest(w, "Invalid request body")
}
