package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/canteen/app/services"
	"github.com/shashiranjanraj/canteen/pkg/storage"
	"github.com/shashiranjanraj/canteen/pkg/workerpool"
)

func TestPlaceOrder_ArchivesQRImage(t *testing.T) {
	disk, err := storage.NewLocal(t.TempDir(), "http://cdn.test/storage")
	require.NoError(t, err)
	pool := workerpool.New("qr-archive", 1)

	c := newComposer(newSpy(), services.WithArchiver(services.NewQRArchive(disk, pool)))
	st := services.NewComposerState()
	require.NoError(t, c.AddItem(st, "Tea", 10))
	require.NoError(t, c.PlaceOrder(context.Background(), st, "Asha", "S100"))

	pool.Shutdown()

	conf := st.Confirmation
	path := "qr/2026-10-16/" + conf.QRCode + ".png"
	assert.Equal(t, "http://cdn.test/storage/"+path, conf.ArchiveURL)

	png, err := disk.Get(context.Background(), path)
	require.NoError(t, err)
	assert.NotEmpty(t, png)
}

func TestPlaceOrder_ArchiveRejectionIsNotFatal(t *testing.T) {
	disk, err := storage.NewLocal(t.TempDir(), "")
	require.NoError(t, err)
	pool := workerpool.New("qr-archive", 1)
	pool.Shutdown()

	c := newComposer(newSpy(), services.WithArchiver(services.NewQRArchive(disk, pool)))
	st := services.NewComposerState()
	require.NoError(t, c.AddItem(st, "Tea", 10))
	require.NoError(t, c.PlaceOrder(context.Background(), st, "Asha", "S100"))

	assert.Equal(t, services.ViewConfirmation, st.View)
	assert.Empty(t, st.Confirmation.ArchiveURL)
	assert.NotEmpty(t, st.Confirmation.QRImage)
}
