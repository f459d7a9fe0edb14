// Package storage resolves file-type upload sources to readable media,
// either on the local filesystem or in a GCS bucket.
package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
)

const gcsPrefix = "gs://"

// Provider checks and opens media referenced by a task's source value.
type Provider interface {
	// Stat reports an error when the referenced media is unreachable.
	Stat(ctx context.Context, ref string) error
	// Open returns the media contents for streaming to the uploader.
	Open(ctx context.Context, ref string) (io.ReadCloser, error)
}

// Router dispatches gs:// references to a GCS provider and everything else
// to the local filesystem.
type Router struct {
	local Provider
	gcs   Provider
}

// NewRouter builds a router. gcs may be nil when no bucket access is
// configured; gs:// references then fail with a clear error.
func NewRouter(local, gcs Provider) *Router {
	return &Router{local: local, gcs: gcs}
}

func (r *Router) pick(ref string) (Provider, error) {
	if strings.HasPrefix(ref, gcsPrefix) {
		if r.gcs == nil {
			return nil, fmt.Errorf("gs:// source %q but GCS is not configured", ref)
		}
		return r.gcs, nil
	}
	return r.local, nil
}

// Stat implements Provider.
func (r *Router) Stat(ctx context.Context, ref string) error {
	p, err := r.pick(ref)
	if err != nil {
		return err
	}
	return p.Stat(ctx, ref)
}

// Open implements Provider.
func (r *Router) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	p, err := r.pick(ref)
	if err != nil {
		return nil, err
	}
	return p.Open(ctx, ref)
}
