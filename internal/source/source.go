// Package source validates a task's video source and adapts it for the
// uploader.
package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"path/filepath"

	"tubepilot/internal/model"
	"tubepilot/internal/storage"
	"tubepilot/internal/uploader"
)

// Validator checks source reachability before an upload is attempted.
// File sources must be reachable through the storage provider; remote
// sources only need a syntactically valid URL, as the uploader performs
// the actual fetch.
type Validator struct {
	files storage.Provider
	http  *http.Client
}

// NewValidator builds a validator over the given file provider. httpClient
// is used to stream remote sources; nil uses http.DefaultClient.
func NewValidator(files storage.Provider, httpClient *http.Client) *Validator {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Validator{files: files, http: httpClient}
}

// Validate returns an error when the task's source is unusable.
func (v *Validator) Validate(ctx context.Context, t *model.UploadTask) error {
	switch t.SourceType {
	case model.SourceFile:
		return v.files.Stat(ctx, t.SourceValue)
	case model.SourceRemote:
		u, err := url.Parse(t.SourceValue)
		if err != nil {
			return fmt.Errorf("invalid source URL %q: %w", t.SourceValue, err)
		}
		if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("source URL %q must be http(s)", t.SourceValue)
		}
		return nil
	}
	return fmt.Errorf("unknown source type %q", t.SourceType)
}

// Source adapts the task's source for the uploader.
func (v *Validator) Source(t *model.UploadTask) uploader.Source {
	if t.SourceType == model.SourceRemote {
		return &remoteSource{url: t.SourceValue, http: v.http}
	}
	return &fileSource{ref: t.SourceValue, files: v.files}
}

type fileSource struct {
	ref   string
	files storage.Provider
}

func (s *fileSource) Name() string {
	return filepath.Base(s.ref)
}

func (s *fileSource) Open(ctx context.Context) (io.ReadCloser, error) {
	return s.files.Open(ctx, s.ref)
}

type remoteSource struct {
	url  string
	http *http.Client
}

func (s *remoteSource) Name() string {
	u, err := url.Parse(s.url)
	if err != nil || path.Base(u.Path) == "/" || path.Base(u.Path) == "." {
		return "video"
	}
	return path.Base(u.Path)
}

func (s *remoteSource) Open(ctx context.Context) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create source request: %w", err)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch source: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("source fetch returned status %d", resp.StatusCode)
	}
	return resp.Body, nil
}
