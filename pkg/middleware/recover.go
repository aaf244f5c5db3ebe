package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/JaimeStill/docket/pkg/handlers"
)

var errPanic = errors.New("internal server error")

// Recover turns a handler panic into a 500 JSON error. http.ErrAbortHandler
// is re-raised so the server drops the connection.
func Recover(logger *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				switch rv := recover(); rv {
				case nil:
				case http.ErrAbortHandler:
					panic(rv)
				default:
					logger.Error("handler panic",
						"panic", rv,
						"uri", r.URL.RequestURI(),
						"stack", string(debug.Stack()),
					)
					handlers.RespondError(w, logger, http.StatusInternalServerError, errPanic)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
