package tasks

import (
	"errors"
	"net/http"
)

// Domain errors for task operations.
var (
	ErrNotFound         = errors.New("task not found")
	ErrInvalidOperation = errors.New("invalid operation")
	ErrInvalidTarget    = errors.New("invalid task target")
	ErrNoHandler        = errors.New("no handler registered for operation")
	ErrTransition       = errors.New("task state changed concurrently")
)

// MapHTTPStatus maps task domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrInvalidOperation) || errors.Is(err, ErrInvalidTarget) {
		return http.StatusBadRequest
	}
	if errors.Is(err, ErrNoHandler) {
		return http.StatusNotImplemented
	}
	if errors.Is(err, ErrTransition) {
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
