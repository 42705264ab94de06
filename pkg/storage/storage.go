// Package storage archives rendered QR images.
//
// STORAGE_DISK picks the driver:
//
//	local   a directory on the server, served under /storage/
//	s3      S3-compatible object storage (AWS S3, MinIO, R2, Spaces)
//
//	disk, err := storage.Open(ctx)
//	err = disk.Put(ctx, "qr/2026-10-16/ORD-....png", png, "image/png")
//	link := disk.URL("qr/2026-10-16/ORD-....png")
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/shashiranjanraj/canteen/config"
)

type Disk interface {
	Put(ctx context.Context, path string, content []byte, contentType string) error
	Get(ctx context.Context, path string) ([]byte, error)

	// URL is where clients can fetch path once Put has finished.
	URL(path string) string
}

var ErrNotExist = errors.New("storage: file does not exist")

// Open builds the disk named by STORAGE_DISK.
func Open(ctx context.Context) (Disk, error) {
	name := config.StorageDefault()
	if name == "s3" {
		return NewS3(ctx, S3Options{
			Bucket:   config.StorageS3Bucket(),
			Region:   config.StorageS3Region(),
			Key:      config.StorageS3Key(),
			Secret:   config.StorageS3Secret(),
			Endpoint: config.StorageS3Endpoint(),
			BaseURL:  config.StorageS3URL(),
		})
	}
	if name == "local" {
		return NewLocal(config.StorageLocalRoot(), config.StorageURL())
	}
	return nil, fmt.Errorf("storage: unsupported STORAGE_DISK %q (supported: local, s3)", name)
}
