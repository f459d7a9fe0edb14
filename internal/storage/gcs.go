package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
)

// GCSStorage serves source files referenced as gs://bucket/object.
type GCSStorage struct {
	client *storage.Client
}

// NewGCSStorage creates a GCS-backed provider using ambient credentials.
func NewGCSStorage(ctx context.Context) (*GCSStorage, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}
	return &GCSStorage{client: client}, nil
}

// Close releases the underlying client.
func (s *GCSStorage) Close() error {
	return s.client.Close()
}

func splitRef(ref string) (bucket, object string, err error) {
	trimmed := strings.TrimPrefix(ref, gcsPrefix)
	bucket, object, ok := strings.Cut(trimmed, "/")
	if !ok || bucket == "" || object == "" {
		return "", "", fmt.Errorf("invalid GCS reference %q, want gs://bucket/object", ref)
	}
	return bucket, object, nil
}

// Stat implements Provider.
func (s *GCSStorage) Stat(ctx context.Context, ref string) error {
	bucket, object, err := splitRef(ref)
	if err != nil {
		return err
	}
	if _, err := s.client.Bucket(bucket).Object(object).Attrs(ctx); err != nil {
		return fmt.Errorf("source object %q not reachable: %w", ref, err)
	}
	return nil
}

// Open implements Provider.
func (s *GCSStorage) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	bucket, object, err := splitRef(ref)
	if err != nil {
		return nil, err
	}
	r, err := s.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open GCS object: %w", err)
	}
	return r, nil
}

// List returns gs:// references for the objects under a bucket or
// bucket/prefix reference.
func (s *GCSStorage) List(ctx context.Context, ref string) ([]string, error) {
	trimmed := strings.TrimPrefix(ref, gcsPrefix)
	bucket, prefix, _ := strings.Cut(trimmed, "/")
	if bucket == "" {
		return nil, fmt.Errorf("invalid GCS reference %q", ref)
	}

	var names []string
	it := s.client.Bucket(bucket).Objects(ctx, &storage.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}
		names = append(names, gcsPrefix+bucket+"/"+attrs.Name)
	}
	return names, nil
}
