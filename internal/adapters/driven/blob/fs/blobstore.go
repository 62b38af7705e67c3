// Package fs provides a filesystem-backed BlobStore.
package fs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/ragstore/internal/core/ports/driven"
)

// Ensure BlobStore implements the interface.
var _ driven.BlobStore = (*BlobStore)(nil)

// BlobStore removes binary artifacts stored under a root directory.
// Paths outside the root are rejected, so a corrupted storage_path in
// item metadata cannot reach unrelated files.
type BlobStore struct {
	root string
}

// New creates a blob store rooted at dir.
// If dir is empty, defaults to ~/.ragstore/blobs.
func New(dir string) (*BlobStore, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dir = filepath.Join(home, ".ragstore", "blobs")
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving blob root: %w", err)
	}
	return &BlobStore{root: abs}, nil
}

// Root returns the blob root directory.
func (b *BlobStore) Root() string {
	return b.root
}

// Remove deletes the blob at the given storage path.
// Removing an absent path is not an error.
func (b *BlobStore) Remove(_ context.Context, storagePath string) error {
	resolved, err := b.resolve(storagePath)
	if err != nil {
		return err
	}

	if err := os.Remove(resolved); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing blob %s: %w", storagePath, err)
	}
	return nil
}

// resolve maps a storage path onto the root and rejects escapes.
func (b *BlobStore) resolve(storagePath string) (string, error) {
	candidate := storagePath
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(b.root, candidate)
	}
	candidate = filepath.Clean(candidate)

	if candidate != b.root && !strings.HasPrefix(candidate, b.root+string(filepath.Separator)) {
		return "", fmt.Errorf("storage path %q escapes blob root", storagePath)
	}
	return candidate, nil
}
