package storage_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/canteen/pkg/storage"
)

func TestLocal_PutGet(t *testing.T) {
	ctx := context.Background()
	disk, err := storage.NewLocal(t.TempDir(), "http://localhost:8080/storage/")
	require.NoError(t, err)

	path := "qr/2026-10-16/ORD-1.png"
	require.NoError(t, disk.Put(ctx, path, []byte("png"), "image/png"))

	got, err := disk.Get(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, []byte("png"), got)
	assert.Equal(t, "http://localhost:8080/storage/qr/2026-10-16/ORD-1.png", disk.URL(path))

	_, err = disk.Get(ctx, "qr/2026-10-16/ORD-404.png")
	assert.ErrorIs(t, err, storage.ErrNotExist)
}

func TestLocal_ConfinesPathsToRoot(t *testing.T) {
	ctx := context.Background()
	disk, err := storage.NewLocal(t.TempDir(), "")
	require.NoError(t, err)

	require.NoError(t, disk.Put(ctx, "../../outside.png", []byte("x"), ""))
	got, err := disk.Get(ctx, "outside.png")
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), got)
}

func TestLocal_Handler(t *testing.T) {
	disk, err := storage.NewLocal(t.TempDir(), "/storage")
	require.NoError(t, err)
	t.Cleanup(func() { _ = disk.Close() })
	require.NoError(t, disk.Put(context.Background(), "qr/ORD-2.png", []byte("png"), "image/png"))

	rec := httptest.NewRecorder()
	disk.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/storage/qr/ORD-2.png", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "png", rec.Body.String())
	assert.Equal(t, "/storage/qr/ORD-2.png", disk.URL("qr/ORD-2.png"))
}
