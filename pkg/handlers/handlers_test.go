package handlers_test

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/JaimeStill/docket/pkg/handlers"
)

func TestRespondJSON(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		data       any
		wantStatus int
	}{
		{"200 with map", http.StatusOK, map[string]string{"key": "value"}, http.StatusOK},
		{"202 with struct", http.StatusAccepted, struct{ ID int }{ID: 42}, http.StatusAccepted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handlers.RespondJSON(rec, tt.status, tt.data)

			res := rec.Result()
			defer res.Body.Close()

			if res.StatusCode != tt.wantStatus {
				t.Errorf("status: got %d, want %d", res.StatusCode, tt.wantStatus)
			}
			if ct := res.Header.Get("Content-Type"); ct != "application/json" {
				t.Errorf("content-type: got %s", ct)
			}

			body, _ := io.ReadAll(res.Body)
			var parsed map[string]any
			if err := json.Unmarshal(body, &parsed); err != nil {
				t.Fatalf("unmarshal failed: %v", err)
			}
		})
	}
}

func TestRespondError(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rec := httptest.NewRecorder()

	handlers.RespondError(rec, logger, http.StatusConflict, errors.New("recompute in progress"))

	res := rec.Result()
	defer res.Body.Close()

	if res.StatusCode != http.StatusConflict {
		t.Errorf("status: got %d, want 409", res.StatusCode)
	}

	var parsed map[string]string
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if parsed["error"] != "recompute in progress" {
		t.Errorf("error: got %s", parsed["error"])
	}
}

func TestDecodeJSON(t *testing.T) {
	type body struct {
		Operation string `json:"operation"`
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"operation":"segment"}`))
	got, err := handlers.DecodeJSON[body](req, 1024)
	if err != nil {
		t.Fatalf("DecodeJSON: %v", err)
	}
	if got.Operation != "segment" {
		t.Errorf("got %+v", got)
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"unknown":1}`))
	if _, err := handlers.DecodeJSON[body](req, 1024); !errors.Is(err, handlers.ErrInvalidBody) {
		t.Errorf("got %v, want ErrInvalidBody", err)
	}
}

func TestPathUUID(t *testing.T) {
	id := uuid.New()
	mux := http.NewServeMux()

	var got uuid.UUID
	var gotErr error
	mux.HandleFunc("GET /items/{id}", func(w http.ResponseWriter, r *http.Request) {
		got, gotErr = handlers.PathUUID(r, "id")
	})

	mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/items/"+id.String(), nil))
	if gotErr != nil || got != id {
		t.Errorf("got %v, %v", got, gotErr)
	}

	mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/items/not-a-uuid", nil))
	if gotErr == nil {
		t.Error("expected parse error")
	}
}
