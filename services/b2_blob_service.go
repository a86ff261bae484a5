package services

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/kurin/blazer/b2"
)

// B2BlobStore backs the blob boundary with a Backblaze B2 bucket. Selected
// with STORAGE_BACKEND=b2; the engine above it is identical to the disk
// deployment.
type B2BlobStore struct {
	client *b2.Client
	bucket *b2.Bucket
}

func NewB2BlobStore(ctx context.Context, keyID, applicationKey, bucketName string) (*B2BlobStore, error) {
	client, err := b2.NewClient(ctx, keyID, applicationKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create B2 client: %w", err)
	}

	bucket, err := client.Bucket(ctx, bucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to get bucket %s: %w", bucketName, err)
	}

	return &B2BlobStore{client: client, bucket: bucket}, nil
}

func (s *B2BlobStore) Store(ctx context.Context, r io.Reader, hint string) (string, int64, error) {
	name := uuid.NewString() + filepath.Ext(hint)

	writer := s.bucket.Object(name).NewWriter(ctx)
	written, err := io.Copy(writer, r)
	if err != nil {
		writer.Close()
		return "", 0, fmt.Errorf("failed to upload blob to B2: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", 0, fmt.Errorf("failed to finalize B2 upload: %w", err)
	}

	return name, written, nil
}

func (s *B2BlobStore) Delete(ctx context.Context, location string) error {
	if err := s.bucket.Object(location).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete B2 object %s: %w", location, err)
	}
	return nil
}

func (s *B2BlobStore) Copy(ctx context.Context, location string) (string, error) {
	reader := s.bucket.Object(location).NewReader(ctx)
	defer reader.Close()

	newLocation, _, err := s.Store(ctx, reader, location)
	return newLocation, err
}

func (s *B2BlobStore) Exists(ctx context.Context, location string) bool {
	_, err := s.bucket.Object(location).Attrs(ctx)
	return err == nil
}

func (s *B2BlobStore) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	return s.bucket.Object(location).NewReader(ctx), nil
}
