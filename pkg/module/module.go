// Package module mounts independently wrapped HTTP handlers under path
// prefixes so each surface (the API, health checks) carries its own
// middleware.
package module

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/JaimeStill/docket/pkg/middleware"
)

// Module serves a router beneath prefix. Requests reach the router with the
// prefix removed.
type Module struct {
	prefix string
	router http.Handler
	stack  middleware.Stack
}

// New panics on a malformed prefix; prefixes come from validated config.
func New(prefix string, router http.Handler) *Module {
	if err := ValidatePrefix(prefix); err != nil {
		panic(err)
	}
	return &Module{prefix: prefix, router: router}
}

func (m *Module) Prefix() string {
	return m.prefix
}

func (m *Module) Use(mw middleware.Middleware) {
	m.stack.Use(mw)
}

// Handler returns the router wrapped in the module's middleware.
func (m *Module) Handler() http.Handler {
	return m.stack.Apply(m.router)
}

// Matches reports whether path falls under the module's prefix.
func (m *Module) Matches(path string) bool {
	rest, ok := strings.CutPrefix(path, m.prefix)
	return ok && (rest == "" || rest[0] == '/')
}

func (m *Module) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, m.prefix)
	if rest == "" {
		rest = "/"
	}

	inner := r.Clone(r.Context())
	inner.URL.Path = rest
	inner.URL.RawPath = ""

	m.Handler().ServeHTTP(w, inner)
}

// ValidatePrefix accepts rooted paths such as "/api" or "/docket/api" with
// no trailing slash.
func ValidatePrefix(prefix string) error {
	switch {
	case prefix == "":
		return fmt.Errorf("module prefix cannot be empty")
	case prefix[0] != '/':
		return fmt.Errorf("module prefix must start with /: %s", prefix)
	case len(prefix) == 1 || strings.HasSuffix(prefix, "/"):
		return fmt.Errorf("module prefix cannot end with /: %s", prefix)
	case strings.Contains(prefix, "//"):
		return fmt.Errorf("module prefix has an empty segment: %s", prefix)
	}
	return nil
}
