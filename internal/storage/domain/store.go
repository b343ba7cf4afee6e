// Package domain defines the blob storage contract consumed by ingestion.
package domain

import "context"

// BlobStore stores uploaded dataset files. Ingestion only downloads; upload
// and remove serve the intake surfaces.
type BlobStore interface {
	Upload(ctx context.Context, filename string, data []byte) (path string, err error)
	Download(ctx context.Context, path string) ([]byte, error)
	Remove(ctx context.Context, path string) error
}
