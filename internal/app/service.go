package app

import (
	"tubepilot/internal/auth"
	"tubepilot/internal/autopilot"
	"tubepilot/internal/metadata"
	"tubepilot/internal/storage"
	"tubepilot/internal/store"
	"tubepilot/pkg/config"
)

// Service bundles the wired components a command needs.
type Service struct {
	cfg       *config.Config
	store     *store.Store
	resolver  *auth.Resolver
	autopilot *autopilot.Autopilot
	executor  *autopilot.Executor
	planner   *metadata.Planner
	gcs       *storage.GCSStorage
}

type ServiceOptions struct {
	Config    *config.Config
	Store     *store.Store
	Resolver  *auth.Resolver
	Autopilot *autopilot.Autopilot
	Executor  *autopilot.Executor
	Planner   *metadata.Planner
	GCS       *storage.GCSStorage
}

func NewService(opts ServiceOptions) *Service {
	return &Service{
		cfg:       opts.Config,
		store:     opts.Store,
		resolver:  opts.Resolver,
		autopilot: opts.Autopilot,
		executor:  opts.Executor,
		planner:   opts.Planner,
		gcs:       opts.GCS,
	}
}

func (s *Service) Config() *config.Config          { return s.cfg }
func (s *Service) Store() *store.Store             { return s.store }
func (s *Service) Resolver() *auth.Resolver        { return s.resolver }
func (s *Service) Autopilot() *autopilot.Autopilot { return s.autopilot }
func (s *Service) Executor() *autopilot.Executor   { return s.executor }

// Planner returns nil when no groq API key is configured.
func (s *Service) Planner() *metadata.Planner { return s.planner }

// GCS returns nil when cloud storage is not enabled.
func (s *Service) GCS() *storage.GCSStorage { return s.gcs }

// Close releases the store and any cloud clients.
func (s *Service) Close() error {
	if s.gcs != nil {
		_ = s.gcs.Close()
	}
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}
