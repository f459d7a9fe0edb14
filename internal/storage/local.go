package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LocalStorage serves source files from a media directory. Relative
// references resolve against the directory; absolute paths are used as-is.
type LocalStorage struct {
	mediaDir string
}

// NewLocalStorage creates a local provider rooted at mediaDir.
func NewLocalStorage(mediaDir string) *LocalStorage {
	return &LocalStorage{mediaDir: mediaDir}
}

// EnsureDirectories creates the media directory if it does not exist.
func (s *LocalStorage) EnsureDirectories() error {
	if err := os.MkdirAll(s.mediaDir, 0755); err != nil {
		return fmt.Errorf("failed to create media directory: %w", err)
	}
	return nil
}

func (s *LocalStorage) resolve(ref string) string {
	if filepath.IsAbs(ref) {
		return ref
	}
	return filepath.Join(s.mediaDir, ref)
}

// Stat implements Provider.
func (s *LocalStorage) Stat(_ context.Context, ref string) error {
	info, err := os.Stat(s.resolve(ref))
	if err != nil {
		return fmt.Errorf("source file %q not reachable: %w", ref, err)
	}
	if info.IsDir() {
		return fmt.Errorf("source %q is a directory, not a file", ref)
	}
	return nil
}

// List walks the media directory and returns the relative paths of the
// files in it, in lexical order.
func (s *LocalStorage) List() ([]string, error) {
	var refs []string
	err := filepath.WalkDir(s.mediaDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.mediaDir, path)
		if err != nil {
			return err
		}
		refs = append(refs, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list media directory: %w", err)
	}
	return refs, nil
}

// Open implements Provider.
func (s *LocalStorage) Open(_ context.Context, ref string) (io.ReadCloser, error) {
	f, err := os.Open(s.resolve(ref))
	if err != nil {
		return nil, fmt.Errorf("failed to open source file: %w", err)
	}
	return f, nil
}
