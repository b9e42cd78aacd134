package blob

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// FSStore implements Store on the local filesystem. Public URLs are
// served by whatever fronts baseURL (the web server's content handler
// in a single-node setup).
type FSStore struct {
	baseDir string
	baseURL string
}

var _ Store = (*FSStore)(nil)

func NewFSStore(baseDir, baseURL string) *FSStore {
	return &FSStore{baseDir: baseDir, baseURL: strings.TrimSuffix(baseURL, "/")}
}

func (s *FSStore) Put(ctx context.Context, key, contentType string, data []byte) error {
	fullPath := filepath.Join(s.baseDir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(fullPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}

func (s *FSStore) PublicURL(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return s.baseURL + "/" + strings.Join(parts, "/")
}

func (s *FSStore) DeletePrefix(ctx context.Context, prefix string) error {
	dir := filepath.Join(s.baseDir, filepath.FromSlash(prefix))
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to delete directory: %w", err)
	}
	return nil
}
