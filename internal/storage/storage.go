// Package storage persists binary objects (cover images, page scans) and
// hands back stable URLs. Two drivers exist: S3 for deployments and local
// disk for development.
package storage

import (
	"context"

	"github.com/rotisserie/eris"
)

// ObjectStore persists binary blobs and returns an opaque locator.
type ObjectStore interface {
	Store(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, url string) error
}

// Config selects and configures a storage driver.
type Config struct {
	Driver   string
	Path     string
	S3Bucket string
	S3Region string
}

// NewObjectStore constructs the configured driver.
func NewObjectStore(ctx context.Context, cfg Config) (ObjectStore, error) {
	switch cfg.Driver {
	case "s3":
		return NewS3Store(ctx, cfg.S3Bucket, cfg.S3Region)
	case "local":
		return NewLocalStore(cfg.Path)
	default:
		return nil, eris.Errorf("unsupported storage driver: %s", cfg.Driver)
	}
}
