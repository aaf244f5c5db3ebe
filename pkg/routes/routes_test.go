package routes_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/JaimeStill/docket/pkg/routes"
)

func TestRegisterNestedGroups(t *testing.T) {
	hit := ""
	handler := func(name string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) { hit = name }
	}

	mux := http.NewServeMux()
	patterns := routes.Register(mux, routes.Group{
		Prefix: "/documents",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: handler("list")},
			{Method: "GET", Pattern: "/{id}", Handler: handler("find")},
		},
		Children: []routes.Group{{
			Prefix: "/{id}/items",
			Routes: []routes.Route{{Method: "GET", Pattern: "", Handler: handler("items")}},
		}},
	})

	if len(patterns) != 3 || patterns[2] != "GET /documents/{id}/items" {
		t.Errorf("patterns: got %v", patterns)
	}

	tests := map[string]string{
		"/documents":           "list",
		"/documents/abc":       "find",
		"/documents/abc/items": "items",
	}

	for path, want := range tests {
		t.Run(path, func(t *testing.T) {
			hit = ""
			mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
			if hit != want {
				t.Errorf("got %q, want %q", hit, want)
			}
		})
	}
}
