package middleware_test

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/JaimeStill/docket/pkg/middleware"
)

func TestApplyOrder(t *testing.T) {
	var order []string
	tag := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	var stack middleware.Stack
	stack.Use(tag("first"), tag("second"))

	h := stack.Apply(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	want := "first,second,handler"
	if got := strings.Join(order, ","); got != want {
		t.Errorf("order: got %s, want %s", got, want)
	}
}

func TestCORS(t *testing.T) {
	cfg := &middleware.CORSConfig{Enabled: true, Origins: []string{"http://localhost:3000"}}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatal(err)
	}

	h := middleware.CORS(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name       string
		method     string
		origin     string
		wantHeader string
		wantStatus int
	}{
		{"allowed origin", http.MethodGet, "http://localhost:3000", "http://localhost:3000", http.StatusNoContent},
		{"disallowed origin", http.MethodGet, "http://evil.example", "", http.StatusNoContent},
		{"preflight", http.MethodOptions, "http://localhost:3000", "http://localhost:3000", http.StatusNoContent},
		{"no origin", http.MethodGet, "", "", http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/", nil)
			req.Header.Set("Origin", tt.origin)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.wantHeader {
				t.Errorf("allow-origin: got %q, want %q", got, tt.wantHeader)
			}
			if rec.Code != tt.wantStatus {
				t.Errorf("status: got %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestCORSWildcard(t *testing.T) {
	cfg := &middleware.CORSConfig{Enabled: true, Origins: []string{"*"}}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatal(err)
	}

	h := middleware.CORS(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://clerk.example.gov")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://clerk.example.gov" {
		t.Errorf("allow-origin: got %q", got)
	}

	cfg.AllowCredentials = true
	if err := cfg.Finalize(nil); err == nil {
		t.Error("credentials with wildcard origin should fail validation")
	}
}

func TestLoggerRecordsRequest(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	h := middleware.Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("short"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	req.Header.Set(middleware.RequestIDHeader, "req-7")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	for _, want := range []string{"status=418", "bytes=5", "id=req-7"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("log missing %s: %s", want, buf.String())
		}
	}
	if rec.Header().Get(middleware.RequestIDHeader) != "req-7" {
		t.Error("request id not echoed")
	}
}

func TestLoggerAssignsRequestID(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := middleware.Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Header().Get(middleware.RequestIDHeader) == "" {
		t.Error("expected a generated request id")
	}
}

func TestRecover(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := middleware.Recover(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status: got %d, want 500", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"error"`) {
		t.Errorf("body: got %s", rec.Body.String())
	}
}
