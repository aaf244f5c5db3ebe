package documents

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/docket/pkg/storage"
)

// Domain errors for document operations.
var (
	ErrNotFound      = errors.New("document not found")
	ErrDuplicate     = errors.New("document already exists")
	ErrFileTooLarge  = errors.New("file exceeds maximum upload size")
	ErrInvalidFile   = errors.New("invalid file")
	ErrInvalidIntake = errors.New("invalid intake record")
	ErrNoText        = errors.New("document has no extracted text")
	ErrNoSource      = errors.New("document source unavailable")
)

// MapHTTPStatus maps document domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) || errors.Is(err, storage.ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrDuplicate) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrFileTooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	if errors.Is(err, ErrInvalidFile) || errors.Is(err, ErrInvalidIntake) {
		return http.StatusBadRequest
	}
	if errors.Is(err, ErrNoText) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrNoSource) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
