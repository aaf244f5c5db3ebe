// Package routes declares handler tables that domain packages hand to a
// ServeMux.
package routes

import "net/http"

type Route struct {
	Method  string
	Pattern string
	Handler http.HandlerFunc
}

// pattern is the ServeMux pattern for r under prefix, e.g. "GET /documents/{id}".
func (r Route) pattern(prefix string) string {
	return r.Method + " " + prefix + r.Pattern
}
