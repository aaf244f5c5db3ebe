// Package middleware holds the HTTP wrappers shared by every module:
// request logging, panic recovery and CORS.
package middleware

import "net/http"

// Middleware wraps a handler.
type Middleware func(http.Handler) http.Handler

// Stack is an ordered list of middleware. The first entry added is the
// outermost wrapper.
type Stack struct {
	layers []Middleware
}

func (s *Stack) Use(layers ...Middleware) {
	s.layers = append(s.layers, layers...)
}

// Len reports the number of layers in the stack.
func (s *Stack) Len() int {
	return len(s.layers)
}

// Apply wraps handler in every layer of the stack.
func (s *Stack) Apply(handler http.Handler) http.Handler {
	for i := len(s.layers) - 1; i >= 0; i-- {
		handler = s.layers[i](handler)
	}
	return handler
}
