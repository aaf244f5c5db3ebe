package module

import (
	"net/http"
	"slices"
	"strings"
)

// Router sends each request to the module with the longest matching prefix.
// Paths no module claims go to a plain ServeMux.
type Router struct {
	modules []*Module
	native  *http.ServeMux
}

func NewRouter() *Router {
	return &Router{native: http.NewServeMux()}
}

func (r *Router) HandleNative(pattern string, handler http.HandlerFunc) {
	r.native.HandleFunc(pattern, handler)
}

func (r *Router) Mount(m *Module) {
	r.modules = append(r.modules, m)
	slices.SortStableFunc(r.modules, func(a, b *Module) int {
		return len(b.prefix) - len(a.prefix)
	})
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if p := req.URL.Path; len(p) > 1 && strings.HasSuffix(p, "/") {
		req.URL.Path = strings.TrimRight(p, "/")
		if req.URL.Path == "" {
			req.URL.Path = "/"
		}
	}

	for _, m := range r.modules {
		if m.Matches(req.URL.Path) {
			m.ServeHTTP(w, req)
			return
		}
	}
	r.native.ServeHTTP(w, req)
}
