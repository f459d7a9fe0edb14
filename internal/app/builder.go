package app

import (
	"context"
	"fmt"

	"tubepilot/internal/auth"
	"tubepilot/internal/autopilot"
	"tubepilot/internal/metadata"
	"tubepilot/internal/source"
	"tubepilot/internal/storage"
	"tubepilot/internal/store"
	"tubepilot/internal/uploader"
	"tubepilot/pkg/config"
	"tubepilot/pkg/prompts"
)

// BuildService wires the full component graph from configuration.
func BuildService(ctx context.Context, cfg *config.Config) (*Service, error) {
	st, err := store.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	localStorage := storage.NewLocalStorage(cfg.MediaDir)
	if err := localStorage.EnsureDirectories(); err != nil {
		_ = st.Close()
		return nil, err
	}

	var gcs *storage.GCSStorage
	if cfg.GCS.Enabled {
		gcs, err = storage.NewGCSStorage(ctx)
		if err != nil {
			_ = st.Close()
			return nil, fmt.Errorf("create gcs client: %w", err)
		}
	}

	var gcsProvider storage.Provider
	if gcs != nil {
		gcsProvider = gcs
	}
	files := storage.NewRouter(localStorage, gcsProvider)

	validator := source.NewValidator(files, nil)
	resolver := auth.NewResolver(st, auth.WithTimeout(cfg.Autopilot.RefreshTimeout))

	executor := autopilot.NewExecutor(autopilot.ExecutorOptions{
		Tasks:   st,
		Creds:   resolver,
		Sources: validator,
		Uploads: uploader.NewYouTube(),
		Timeouts: autopilot.Timeouts{
			SourceCheck: cfg.Autopilot.SourceCheckTimeout,
			Upload:      cfg.Autopilot.UploadTimeout,
		},
	})

	var planner *metadata.Planner
	if cfg.GroqAPIKey != "" {
		p, err := prompts.Load()
		if err != nil {
			_ = st.Close()
			return nil, err
		}
		planner, err = metadata.NewPlanner(cfg.GroqAPIKey, cfg.Planner.Model, p)
		if err != nil {
			_ = st.Close()
			return nil, err
		}
	}

	return NewService(ServiceOptions{
		Config:    cfg,
		Store:     st,
		Resolver:  resolver,
		Autopilot: autopilot.New(st, executor),
		Executor:  executor,
		Planner:   planner,
		GCS:       gcs,
	}), nil
}
