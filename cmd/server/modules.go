package main

import (
	"encoding/json"
	"net/http"

	"github.com/JaimeStill/docket/internal/api"
	"github.com/JaimeStill/docket/internal/config"
	"github.com/JaimeStill/docket/internal/infrastructure"
	"github.com/JaimeStill/docket/pkg/module"
)

type Modules struct {
	API *module.Module
}

func NewModules(infra *infrastructure.Infrastructure, cfg *config.Config) (*Modules, error) {
	apiModule, err := api.NewModule(cfg, infra)
	if err != nil {
		return nil, err
	}

	return &Modules{API: apiModule}, nil
}

func (m *Modules) Mount(router *module.Router) {
	router.Mount(m.API)
}

func buildRouter(infra *infrastructure.Infrastructure) *module.Router {
	router := module.NewRouter()

	router.HandleNative("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, "ok")
	})

	router.HandleNative("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if !infra.Lifecycle.Ready() {
			writeStatus(w, http.StatusServiceUnavailable, "starting")
			return
		}
		if err := infra.Database.Ping(r.Context()); err != nil {
			infra.Logger.Warn("readiness check failed", "dependency", "database", "error", err)
			writeStatus(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
		if infra.Redis != nil {
			if err := infra.Redis.Ping(r.Context()).Err(); err != nil {
				infra.Logger.Warn("readiness check failed", "dependency", "redis", "error", err)
				writeStatus(w, http.StatusServiceUnavailable, "redis unavailable")
				return
			}
		}
		writeStatus(w, http.StatusOK, "ready")
	})

	return router
}

func writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"status": status})
}
