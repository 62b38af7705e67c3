package driven

import "context"

// BlobStore removes binary artifacts referenced by item metadata.
// When an item carrying a storage_path is deleted, the core calls back
// here to remove the blob. Blob failure is non-fatal to the vector and
// metadata deletion.
type BlobStore interface {
	// Remove deletes the blob at the given storage path.
	// Removing an absent path is not an error.
	Remove(ctx context.Context, storagePath string) error
}
