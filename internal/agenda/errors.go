package agenda

import (
	"errors"
	"net/http"
)

var (
	ErrNotFound      = errors.New("agenda item not found")
	ErrDuplicate     = errors.New("agenda item order already exists")
	ErrInvalidSource = errors.New("invalid source")
	ErrInvalidResult = errors.New("invalid outcome")
	ErrTrustConflict = errors.New("outcome held by a more trusted source")
	ErrConflict      = errors.New("outcome changed concurrently")
)

// MapHTTPStatus maps agenda domain errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate), errors.Is(err, ErrTrustConflict), errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidSource), errors.Is(err, ErrInvalidResult):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
