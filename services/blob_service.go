package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// BlobStore is the boundary to physical byte storage. Locations are opaque
// handles; callers persist them on the file document and never interpret
// them.
type BlobStore interface {
	// Store writes the blob and returns its location and byte count. hint
	// is the display name, used only to keep a readable extension.
	Store(ctx context.Context, r io.Reader, hint string) (string, int64, error)
	Delete(ctx context.Context, location string) error
	// Copy duplicates the blob and returns the new location.
	Copy(ctx context.Context, location string) (string, error)
	Exists(ctx context.Context, location string) bool
	// Open returns a reader over the blob for download streaming.
	Open(ctx context.Context, location string) (io.ReadCloser, error)
}

// DiskBlobStore keeps blobs as flat files under a root directory, named by
// uuid so display-name collisions never reach the filesystem.
type DiskBlobStore struct {
	root string
}

func NewDiskBlobStore(root string) (*DiskBlobStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage root %s: %w", root, err)
	}
	return &DiskBlobStore{root: root}, nil
}

func (s *DiskBlobStore) Store(ctx context.Context, r io.Reader, hint string) (string, int64, error) {
	name := uuid.NewString() + filepath.Ext(hint)
	fullPath := filepath.Join(s.root, name)

	f, err := os.Create(fullPath)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create blob file: %w", err)
	}

	written, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(fullPath)
		return "", 0, fmt.Errorf("failed to write blob: %w", err)
	}

	return name, written, nil
}

func (s *DiskBlobStore) Delete(ctx context.Context, location string) error {
	fullPath := filepath.Join(s.root, location)
	if err := os.Remove(fullPath); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to delete blob %s: %w", location, err)
	}
	return nil
}

func (s *DiskBlobStore) Copy(ctx context.Context, location string) (string, error) {
	src, err := os.Open(filepath.Join(s.root, location))
	if err != nil {
		return "", fmt.Errorf("failed to open blob %s: %w", location, err)
	}
	defer src.Close()

	newLocation, _, err := s.Store(ctx, src, location)
	return newLocation, err
}

func (s *DiskBlobStore) Exists(ctx context.Context, location string) bool {
	_, err := os.Stat(filepath.Join(s.root, location))
	return err == nil
}

func (s *DiskBlobStore) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(s.root, location))
	if err != nil {
		return nil, fmt.Errorf("failed to open blob %s: %w", location, err)
	}
	return f, nil
}
