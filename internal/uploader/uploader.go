// Package uploader publishes video sources to a streaming platform.
package uploader

import (
	"context"
	"fmt"
	"io"
)

// Payload is the metadata attached to an upload.
type Payload struct {
	Title       string
	Description string
	Tags        []string
	CategoryID  string
	Privacy     string
	Language    string
	MadeForKids bool
}

// Source yields the video bytes. Implementations cover local files, GCS
// objects and remote URLs.
type Source interface {
	// Name is a filename-ish label for the multipart part.
	Name() string
	Open(ctx context.Context) (io.ReadCloser, error)
}

// Result reports a completed upload.
type Result struct {
	VideoID string
	URL     string
}

// Error carries the platform's failure classification. Retryable covers
// quota exhaustion, rate limits, server faults and timeouts; everything
// else is a permanent rejection.
type Error struct {
	StatusCode int
	Reason     string
	Message    string
	Retryable  bool
}

func (e *Error) Error() string {
	kind := "permanent"
	if e.Retryable {
		kind = "retryable"
	}
	if e.Reason != "" {
		return fmt.Sprintf("upload failed (%s, %s): %s", kind, e.Reason, e.Message)
	}
	return fmt.Sprintf("upload failed (%s, status %d): %s", kind, e.StatusCode, e.Message)
}

// Client is the upload transport contract.
type Client interface {
	Upload(ctx context.Context, accessToken string, payload Payload, src Source) (*Result, error)
	SetThumbnail(ctx context.Context, accessToken, videoID, thumbnailURL string) error
}
