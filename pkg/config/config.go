// Package config loads tubepilot configuration from the environment and an
// optional config.yaml.
package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultConfigPath   = "config.yaml"
	defaultDatabasePath = "./data/tubepilot.db"
	defaultMediaDir     = "./media"

	defaultCategoryID = "22"
	defaultVisibility = "private"
	defaultLanguage   = "en"

	defaultInterval           = 15 * time.Minute
	defaultRefreshTimeout     = 30 * time.Second
	defaultSourceCheckTimeout = 30 * time.Second
	defaultUploadTimeout      = 30 * time.Minute

	defaultPlannerModel = "llama-3.3-70b-versatile"

	secretPrefix = "sm://"
)

// Config is the full tubepilot configuration. Secrets come from the
// environment (optionally indirected through Secret Manager with sm://
// values); tunables come from config.yaml.
type Config struct {
	DatabasePath string
	MediaDir     string
	GroqAPIKey   string

	YouTube   YouTubeConfig   `yaml:"youtube"`
	Autopilot AutopilotConfig `yaml:"autopilot"`
	Planner   PlannerConfig   `yaml:"planner"`
	GCS       GCSConfig       `yaml:"gcs"`
}

// YouTubeConfig holds upload defaults applied when a task leaves them
// unset.
type YouTubeConfig struct {
	CategoryID  string   `yaml:"category_id"`
	Visibility  string   `yaml:"visibility"`
	Language    string   `yaml:"language"`
	DefaultTags []string `yaml:"default_tags"`
}

// AutopilotConfig holds the batch interval and the bounds on blocking
// calls.
type AutopilotConfig struct {
	Interval           time.Duration `yaml:"interval"`
	RefreshTimeout     time.Duration `yaml:"refresh_timeout"`
	SourceCheckTimeout time.Duration `yaml:"source_check_timeout"`
	UploadTimeout      time.Duration `yaml:"upload_timeout"`
}

// PlannerConfig selects the metadata planning model.
type PlannerConfig struct {
	Model string `yaml:"model"`
}

// GCSConfig enables gs:// source support.
type GCSConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Load reads .env, the environment and config.yaml, resolving sm:// values
// through Secret Manager.
func Load(ctx context.Context) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, relying on environment variables")
	}

	cfg := &Config{
		DatabasePath: getEnvOrDefault("DATABASE_PATH", defaultDatabasePath),
		MediaDir:     getEnvOrDefault("MEDIA_DIR", defaultMediaDir),
	}

	groqKey, err := resolveSecret(ctx, os.Getenv("GROQ_API_KEY"))
	if err != nil {
		return nil, fmt.Errorf("resolve GROQ_API_KEY: %w", err)
	}
	cfg.GroqAPIKey = groqKey

	if err := loadYAMLConfig(cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)

	return cfg, nil
}

func loadYAMLConfig(cfg *Config) error {
	data, err := os.ReadFile(defaultConfigPath)
	if err != nil {
		slog.Debug("No config.yaml found, using defaults")
		return nil
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config.yaml: %w", err)
	}
	return nil
}

func applyDefaults(cfg *Config) {
	applyYouTubeDefaults(cfg)
	applyAutopilotDefaults(cfg)
	applyPlannerDefaults(cfg)
}

func applyYouTubeDefaults(cfg *Config) {
	if cfg.YouTube.CategoryID == "" {
		cfg.YouTube.CategoryID = defaultCategoryID
	}
	if cfg.YouTube.Visibility == "" {
		cfg.YouTube.Visibility = defaultVisibility
	}
	if cfg.YouTube.Language == "" {
		cfg.YouTube.Language = defaultLanguage
	}
}

func applyAutopilotDefaults(cfg *Config) {
	if cfg.Autopilot.Interval == 0 {
		cfg.Autopilot.Interval = defaultInterval
	}
	if cfg.Autopilot.RefreshTimeout == 0 {
		cfg.Autopilot.RefreshTimeout = defaultRefreshTimeout
	}
	if cfg.Autopilot.SourceCheckTimeout == 0 {
		cfg.Autopilot.SourceCheckTimeout = defaultSourceCheckTimeout
	}
	if cfg.Autopilot.UploadTimeout == 0 {
		cfg.Autopilot.UploadTimeout = defaultUploadTimeout
	}
}

func applyPlannerDefaults(cfg *Config) {
	if cfg.Planner.Model == "" {
		cfg.Planner.Model = defaultPlannerModel
	}
}

// resolveSecret passes plain values through and fetches
// sm://projects/<p>/secrets/<name>[/versions/<v>] from Secret Manager.
func resolveSecret(ctx context.Context, value string) (string, error) {
	if !strings.HasPrefix(value, secretPrefix) {
		return value, nil
	}

	name := strings.TrimPrefix(value, secretPrefix)
	if !strings.Contains(name, "/versions/") {
		name += "/versions/latest"
	}

	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return "", fmt.Errorf("create secret manager client: %w", err)
	}
	defer func() { _ = client.Close() }()

	resp, err := client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: name})
	if err != nil {
		return "", fmt.Errorf("access secret %s: %w", name, err)
	}
	return string(resp.Payload.Data), nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
