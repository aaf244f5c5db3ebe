package prompts

import (
	"errors"
	"net/http"
)

var (
	ErrNotFound      = errors.New("prompt not found")
	ErrDuplicate     = errors.New("prompt name already exists")
	ErrInvalidStage  = errors.New("stage must be segment, verify_votes, or summarize")
	ErrInvalidPrompt = errors.New("invalid prompt")
)

func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidStage), errors.Is(err, ErrInvalidPrompt):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
