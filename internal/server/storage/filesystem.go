package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrBlobNotFound is returned by Open when no blob is stored under the key.
var ErrBlobNotFound = errors.New("blob not found")

// BlobInfo describes a stored blob.
type BlobInfo struct {
	Key     string
	ModTime time.Time
}

// Store defines the interface for blob storage backends.
type Store interface {
	Save(ctx context.Context, key string, data io.Reader) (int64, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) ([]BlobInfo, error)
}

// FileSystemStore stores uploaded files on the local filesystem.
type FileSystemStore struct {
	basePath string
}

// NewFileSystemStore creates a new filesystem storage backend.
func NewFileSystemStore(basePath string) *FileSystemStore {
	return &FileSystemStore{basePath: basePath}
}

// EnsureDir creates the storage directory if it doesn't exist.
func (fs *FileSystemStore) EnsureDir() error {
	if err := os.MkdirAll(fs.basePath, 0755); err != nil {
		return fmt.Errorf("failed to create storage directory %s: %w", fs.basePath, err)
	}
	return nil
}

// Save writes data from a reader to a file named key.
// Returns the number of bytes written. A partial file is removed on error.
func (fs *FileSystemStore) Save(_ context.Context, key string, data io.Reader) (int64, error) {
	filePath, err := fs.filePath(key)
	if err != nil {
		return 0, err
	}

	file, err := os.Create(filePath)
	if err != nil {
		return 0, fmt.Errorf("failed to create file %s: %w", filePath, err)
	}

	n, err := io.Copy(file, data)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(filePath)
		return 0, fmt.Errorf("failed to write file: %w", err)
	}

	return n, nil
}

// Open returns a reader for a stored blob.
func (fs *FileSystemStore) Open(_ context.Context, key string) (io.ReadCloser, error) {
	filePath, err := fs.filePath(key)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrBlobNotFound, key)
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, nil
}

// Delete removes a stored blob. Deleting a missing blob is not an error.
func (fs *FileSystemStore) Delete(_ context.Context, key string) error {
	filePath, err := fs.filePath(key)
	if err != nil {
		return err
	}
	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file %s: %w", filePath, err)
	}
	return nil
}

// List returns every regular file in the storage directory.
func (fs *FileSystemStore) List(_ context.Context) ([]BlobInfo, error) {
	entries, err := os.ReadDir(fs.basePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read storage directory: %w", err)
	}

	blobs := make([]BlobInfo, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue // removed between ReadDir and Info
		}
		blobs = append(blobs, BlobInfo{Key: entry.Name(), ModTime: info.ModTime()})
	}
	return blobs, nil
}

func (fs *FileSystemStore) filePath(key string) (string, error) {
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, `/\`) {
		return "", fmt.Errorf("invalid blob key %q", key)
	}
	return filepath.Join(fs.basePath, key), nil
}
