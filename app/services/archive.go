package services

import (
	"context"
	"fmt"

	"github.com/shashiranjanraj/canteen/app/models"
	"github.com/shashiranjanraj/canteen/pkg/logger"
	"github.com/shashiranjanraj/canteen/pkg/storage"
	"github.com/shashiranjanraj/canteen/pkg/workerpool"
)

// QRArchive uploads rendered QR images to a storage disk in the background.
// The URL is known before the upload finishes, so the confirmation page can
// link to it straight away.
type QRArchive struct {
	disk storage.Disk
	pool *workerpool.Pool
}

func NewQRArchive(disk storage.Disk, pool *workerpool.Pool) *QRArchive {
	return &QRArchive{disk: disk, pool: pool}
}

// ArchivePath is where an order's QR image lives on the disk.
func ArchivePath(o *models.Order) string {
	return fmt.Sprintf("qr/%s/%s.png", o.OrderDate, o.QRCode)
}

func (a *QRArchive) Archive(ctx context.Context, o *models.Order, png []byte) (string, error) {
	path := ArchivePath(o)
	log := logger.WithCtx(ctx)

	err := a.pool.Submit(func(poolCtx context.Context) {
		if err := a.disk.Put(poolCtx, path, png, "image/png"); err != nil {
			log.Error("archive: upload failed", "path", path, "error", err)
			return
		}
		log.Debug("archive: uploaded", "path", path)
	})
	if err != nil {
		return "", fmt.Errorf("services: archive %s: %w", path, err)
	}
	return a.disk.URL(path), nil
}
