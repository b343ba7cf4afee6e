// Package local is the filesystem-backed blob store used for self-hosted
// installs. Object keys are ULIDs so concurrent uploads never collide.
package local

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/smallbiznis/usagehub/internal/storage/domain"
)

type Store struct {
	root string
}

func New(root string) (*Store, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("storage root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &Store{root: root}, nil
}

func (s *Store) Upload(ctx context.Context, filename string, data []byte) (string, error) {
	_ = ctx

	key := ulid.Make().String() + strings.ToLower(filepath.Ext(filename))
	if err := os.WriteFile(filepath.Join(s.root, key), data, 0o644); err != nil {
		return "", fmt.Errorf("write blob %s: %w", key, err)
	}
	return key, nil
}

func (s *Store) Download(ctx context.Context, path string) ([]byte, error) {
	_ = ctx

	data, err := os.ReadFile(filepath.Join(s.root, filepath.Base(path)))
	if err != nil {
		return nil, fmt.Errorf("read blob %s: %w", path, err)
	}
	return data, nil
}

func (s *Store) Remove(ctx context.Context, path string) error {
	_ = ctx

	if err := os.Remove(filepath.Join(s.root, filepath.Base(path))); err != nil {
		return fmt.Errorf("remove blob %s: %w", path, err)
	}
	return nil
}

var _ domain.BlobStore = (*Store)(nil)
