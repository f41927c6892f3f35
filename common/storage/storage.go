package storage

import (
	"context"
	"io"
)

// SnapshotStore persists raw scraped HTML fragments so every ingested job can
// be audited against what the source actually served.
type SnapshotStore interface {
	// Upload stores content and returns the object name
	Upload(ctx context.Context, bucket, objectName string, content []byte, contentType string) (string, error)

	// Download retrieves stored content
	Download(ctx context.Context, bucket, objectName string) ([]byte, error)

	// Delete removes stored content
	Delete(ctx context.Context, bucket, objectName string) error

	// StreamUpload stores content from a reader
	StreamUpload(ctx context.Context, bucket, objectName string, reader io.Reader, contentType string) (string, error)
}
