package places

import (
	"errors"
	"net/http"
)

// Domain errors for place and meeting operations.
var (
	ErrNotFound        = errors.New("place not found")
	ErrMeetingNotFound = errors.New("meeting not found")
	ErrDuplicate       = errors.New("place name already exists")
	ErrInvalidMode     = errors.New("segmentation_mode must be balanced, aggressive, or recall")
	ErrInvalidPlace    = errors.New("invalid place")
)

// MapHTTPStatus maps place domain errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrMeetingNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidMode), errors.Is(err, ErrInvalidPlace):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
