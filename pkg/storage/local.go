package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const uploadPrefix = "charge-upload-"

var _ Storage = (*TempStore)(nil)

// TempStore implements Storage in a local directory
type TempStore struct {
	basePath string
	now      func() time.Time
}

// NewTempStore creates the directory if needed and returns a store rooted at it
func NewTempStore(basePath string) (*TempStore, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &TempStore{basePath: basePath, now: time.Now}, nil
}

// Save stores a file and returns its metadata
func (s *TempStore) Save(ctx context.Context, filename string, r io.Reader) (*FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fileID := uuid.New()
	storedName := fmt.Sprintf("%s%s_%s", uploadPrefix, fileID.String(), sanitizeFilename(filepath.Base(filename)))
	filePath := filepath.Join(s.basePath, storedName)

	f, err := os.OpenFile(filePath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	size, err := io.Copy(f, r)
	if err != nil {
		os.Remove(filePath) // Cleanup on error
		return nil, fmt.Errorf("failed to write file: %w", err)
	}

	return &FileInfo{
		ID:        fileID,
		Name:      filename,
		Size:      size,
		Path:      filePath,
		CreatedAt: s.now(),
	}, nil
}

// Open returns a reader for a stored file
func (s *TempStore) Open(_ context.Context, info *FileInfo) (io.ReadCloser, error) {
	if info == nil {
		return nil, fmt.Errorf("file info is required")
	}
	f, err := os.Open(info.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return f, nil
}

// Remove deletes a stored file
func (s *TempStore) Remove(_ context.Context, info *FileInfo) error {
	if info == nil {
		return nil
	}
	if err := os.Remove(info.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// Sweep removes uploads left behind by interrupted requests
func (s *TempStore) Sweep(ctx context.Context, olderThan time.Duration) (int, error) {
	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		return 0, fmt.Errorf("failed to list storage directory: %w", err)
	}

	cutoff := s.now().Add(-olderThan)
	removed := 0
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), uploadPrefix) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}

		if err := os.Remove(filepath.Join(s.basePath, entry.Name())); err == nil {
			removed++
		}
	}

	return removed, nil
}

// Dir returns the directory the store writes into
func (s *TempStore) Dir() string {
	return s.basePath
}

// sanitizeFilename removes unsafe characters from filenames
func sanitizeFilename(name string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		"..", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
		" ", "_",
	)
	return replacer.Replace(name)
}
