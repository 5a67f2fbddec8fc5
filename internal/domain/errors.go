package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// Failure kinds shared by the stores, the service and the HTTP surface.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("acquisition not found")
	ErrUnavailable  = errors.New("store unavailable")
	ErrStore        = errors.New("store error")
	ErrUpload       = errors.New("image upload failed")
)

var (
	ErrUnsupportedImage = fmt.Errorf("unsupported image type: %w", ErrInvalidInput)
	ErrImageTooLarge    = fmt.Errorf("image too large: %w", ErrInvalidInput)
	ErrImageMissing     = fmt.Errorf("image is required: %w", ErrInvalidInput)
	ErrNothingToUpdate  = fmt.Errorf("nothing to update: %w", ErrInvalidInput)
	ErrMalformedRecord  = fmt.Errorf("malformed record: %w", ErrStore)
)

// MapHTTPStatus converts failure kinds to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
