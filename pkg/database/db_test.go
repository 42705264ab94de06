package database

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/shashiranjanraj/canteen/pkg/logger"
)

func TestOpen_SQLiteMemory(t *testing.T) {
	db, err := Open("sqlite", "file:"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	defer Close(db)

	var one int
	require.NoError(t, db.Raw("SELECT 1").Scan(&one).Error)
	assert.Equal(t, 1, one)

	sqlDB, _ := db.DB()
	assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open("oracle", "whatever")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unsupported DB_DRIVER "oracle"`)
	assert.Contains(t, err.Error(), "mysql, postgres, sqlite, sqlserver")
}

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := logger.L
	logger.L = slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	t.Cleanup(func() { logger.L = prev })
	return &buf
}

func TestQueryLog(t *testing.T) {
	buf := captureLogs(t)
	ql := newQueryLog(50 * time.Millisecond)
	stmt := func() (string, int64) { return "SELECT * FROM orders", 1 }
	ctx := context.Background()

	ql.Trace(ctx, time.Now(), stmt, nil)
	assert.Empty(t, buf.String())

	ql.Trace(ctx, time.Now(), stmt, gorm.ErrRecordNotFound)
	assert.Empty(t, buf.String())

	ql.Trace(ctx, time.Now().Add(-time.Second), stmt, nil)
	assert.Contains(t, buf.String(), "database: slow query")

	buf.Reset()
	ql.Trace(ctx, time.Now(), stmt, errors.New("disk I/O error"))
	assert.Contains(t, buf.String(), "database: query failed")

	buf.Reset()
	ql.LogMode(gormlogger.Silent).Trace(ctx, time.Now(), stmt, errors.New("ignored"))
	assert.Empty(t, buf.String())
}
