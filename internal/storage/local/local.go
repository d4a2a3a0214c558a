// Package local is the disk-backed object store. It mimics a cloud bucket:
// objects are written under a base directory and served publicly by the
// HTTP server at {baseURL}/{bucket}/{key}.
package local

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mcastellanos/recuerdos/internal/storage"
)

// compile-time check that *Store implements storage.Store
var _ storage.Store = (*Store)(nil)

type Store struct {
	basePath string
	bucket   string
	baseURL  string
}

// New creates a local object store rooted at basePath. baseURL is the
// public prefix the HTTP server exposes the files under (without bucket).
func New(basePath, bucket, baseURL string) (*Store, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("local: creating object directory: %w", err)
	}
	return &Store{
		basePath: basePath,
		bucket:   bucket,
		baseURL:  strings.TrimRight(baseURL, "/"),
	}, nil
}

// BasePath returns the directory objects are written under, for wiring the
// public file-serving route.
func (s *Store) BasePath() string {
	return s.basePath
}

func (s *Store) Put(ctx context.Context, key string, obj storage.Object) error {
	path, err := s.safeJoin(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("local: creating key directory: %w", err)
	}
	// Cache headers are applied by the serving route; the filesystem has
	// nowhere to keep obj.CacheControl or obj.ContentType.
	if err := os.WriteFile(path, obj.Data, 0644); err != nil {
		return fmt.Errorf("local: writing object %s: %w", key, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	path, err := s.safeJoin(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("local: object %s not found", key)
		}
		return nil, fmt.Errorf("local: opening object %s: %w", key, err)
	}
	return f, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	path, err := s.safeJoin(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("local: object %s not found", key)
		}
		return fmt.Errorf("local: deleting object %s: %w", key, err)
	}
	return nil
}

func (s *Store) PublicURL(key string) string {
	return fmt.Sprintf("%s/%s/%s", s.baseURL, s.bucket, key)
}

func (s *Store) KeyFromURL(url string) (string, bool) {
	prefix := fmt.Sprintf("%s/%s/", s.baseURL, s.bucket)
	key, found := strings.CutPrefix(url, prefix)
	if !found || key == "" {
		return "", false
	}
	return key, true
}

// safeJoin resolves key relative to basePath and rejects directory
// traversal.
func (s *Store) safeJoin(key string) (string, error) {
	absBase, err := filepath.Abs(s.basePath)
	if err != nil {
		return "", fmt.Errorf("local: invalid base path: %w", err)
	}

	absPath, err := filepath.Abs(filepath.Join(s.basePath, key))
	if err != nil {
		return "", fmt.Errorf("local: invalid key: %w", err)
	}

	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		return "", fmt.Errorf("local: key %q escapes the store", key)
	}
	return absPath, nil
}
