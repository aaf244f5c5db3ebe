package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/JaimeStill/docket/internal/config"
	"github.com/JaimeStill/docket/internal/inference"
	"github.com/JaimeStill/docket/internal/infrastructure"
	"github.com/JaimeStill/docket/pkg/lease"
)

type Server struct {
	infra   *infrastructure.Infrastructure
	modules *Modules
	http    *httpServer
	owner   *lease.Lease
	fatal   chan error
}

// NewServer assembles the service. An engine topology that would load the
// model in more than one process is rejected before anything starts.
func NewServer(cfg *config.Config) (*Server, error) {
	if err := inference.CheckTopology(&cfg.Engine, cfg.Worker.Processes); err != nil {
		return nil, err
	}

	infra, err := infrastructure.New(cfg)
	if err != nil {
		return nil, err
	}

	owner, err := claimEngine(infra, cfg)
	if err != nil {
		return nil, err
	}

	modules, err := NewModules(infra, cfg)
	if err != nil {
		return nil, err
	}

	router := buildRouter(infra)
	modules.Mount(router)

	infra.Logger.Info(
		"server initialized",
		"addr", cfg.Server.Addr(),
		"version", cfg.Version,
		"env", cfg.Env(),
		"engine", cfg.Engine.Enabled,
		"worker_processes", cfg.Worker.Processes,
	)

	return &Server{
		infra:   infra,
		modules: modules,
		http:    newHTTPServer(&cfg.Server, cfg.ShutdownTimeoutDuration(), router, infra.Logger),
		owner:   owner,
		fatal:   make(chan error, 1),
	}, nil
}

// claimEngine takes the engine owner lease before any stage can load the
// model. It returns nil when the lease does not apply.
func claimEngine(infra *infrastructure.Infrastructure, cfg *config.Config) (*lease.Lease, error) {
	if infra.Redis == nil {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	owner, err := inference.ClaimOwner(ctx, infra.Redis, &cfg.Engine)
	if err != nil {
		if errors.Is(err, inference.ErrUnsafeTopology) {
			return nil, err
		}
		return nil, fmt.Errorf("claim engine lease: %w", err)
	}
	return owner, nil
}

func (s *Server) Start() error {
	s.infra.Logger.Info("starting service")

	if err := s.infra.Start(); err != nil {
		return err
	}

	if s.owner != nil {
		lc := s.infra.Lifecycle
		lc.Go(func(ctx context.Context) {
			s.owner.Keep(ctx, s.infra.Logger, func() {
				s.fail(fmt.Errorf("%w: engine lease %s lost", inference.ErrUnsafeTopology, s.owner.Key()))
			})
		})
		lc.OnShutdown(func() {
			<-lc.Context().Done()
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.owner.Release(ctx); err != nil {
				s.infra.Logger.Warn("engine lease release failed", "error", err)
			}
		})
	}

	if err := s.http.Start(s.infra.Lifecycle, s.fail); err != nil {
		return err
	}

	go func() {
		if err := s.infra.Lifecycle.WaitForStartup(); err != nil {
			s.fail(err)
			return
		}
		s.infra.Logger.Info("all subsystems ready")
	}()

	return nil
}

// fail reports the first fatal runtime error to main.
func (s *Server) fail(err error) {
	select {
	case s.fatal <- err:
	default:
	}
}

func (s *Server) Shutdown(timeout time.Duration) error {
	s.infra.Logger.Info("initiating shutdown")
	return s.infra.Lifecycle.Shutdown(timeout)
}
