package model

import (
	"errors"
	"fmt"
)

// Ad pipeline errors. Handlers map these onto HTTP statuses.
var (
	ErrValidation      = errors.New("validation failed")
	ErrQuotaExceeded   = errors.New("daily quota exceeded")
	ErrTooManyImages   = errors.New("too many images")
	ErrUploadFailed    = errors.New("image upload failed")
	ErrPersistence     = errors.New("persistence failed")
	ErrForbidden       = errors.New("not the owner of this ad")
	ErrAdNotFound      = errors.New("ad not found")
	ErrAlreadySaved    = errors.New("ad already saved")
	ErrUnknownCategory = errors.New("unknown category")
)

// Error codes for HTTP responses
const (
	CodeValidation    = "VALIDATION_ERROR"
	CodeQuotaExceeded = "QUOTA_EXCEEDED"
	CodeTooManyImages = "TOO_MANY_IMAGES"
	CodeUploadFailed  = "UPLOAD_FAILED"
	CodeAlreadySaved  = "ALREADY_SAVED"
)

// ValidationError names the offending field. Its message is shown to clients verbatim.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError builds a ValidationError.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// QuotaExceededError carries the limit that was hit.
type QuotaExceededError struct {
	Category Category
	Limit    int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("daily limit of %d %s ads reached", e.Limit, e.Category)
}

func (e *QuotaExceededError) Is(target error) bool {
	return target == ErrQuotaExceeded
}
