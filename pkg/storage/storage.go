// Package storage keeps uploaded charging exports on local disk for the
// lifetime of a single request.
package storage

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
)

// FileInfo contains metadata about a stored file
type FileInfo struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	Path      string    `json:"path"` // Absolute path on disk
	CreatedAt time.Time `json:"created_at"`
}

// Storage defines the interface for upload storage operations
type Storage interface {
	// Save stores the content of r and returns its metadata
	Save(ctx context.Context, filename string, r io.Reader) (*FileInfo, error)

	// Open returns a reader for a stored file
	Open(ctx context.Context, info *FileInfo) (io.ReadCloser, error)

	// Remove deletes a stored file; removing a missing file is not an error
	Remove(ctx context.Context, info *FileInfo) error

	// Sweep deletes stored files older than the given age and returns how many were removed
	Sweep(ctx context.Context, olderThan time.Duration) (int, error)
}
