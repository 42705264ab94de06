// Package database opens the gorm connection behind DATA_BACKEND=sql and
// the failed-job table.
package database

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/driver/sqlserver"
	"gorm.io/gorm"

	"github.com/shashiranjanraj/canteen/config"
)

var dialects = map[string]func(dsn string) gorm.Dialector{
	"sqlite":    sqlite.Open,
	"postgres":  postgres.Open,
	"mysql":     mysql.Open,
	"sqlserver": sqlserver.Open,
}

// pool sizes the connection pool. SQLite gets one connection: it has a
// single writer, and a shared in-memory database lives only as long as a
// connection holds it open.
type pool struct {
	open, idle int
	life       time.Duration
}

func poolFor(driver string) pool {
	if driver == "sqlite" {
		return pool{open: 1, idle: 1}
	}
	return pool{open: 25, idle: 10, life: 5 * time.Minute}
}

// Connect opens DB_DRIVER/DATABASE_DSN.
func Connect() (*gorm.DB, error) {
	return Open(config.DatabaseDriver(), config.DatabaseDSN())
}

// Open connects, sizes the pool and pings. Queries slower than
// DB_SLOW_QUERY (default 200ms) are logged through pkg/logger.
func Open(driver, dsn string) (*gorm.DB, error) {
	dial, ok := dialects[driver]
	if !ok {
		return nil, fmt.Errorf("database: unsupported DB_DRIVER %q (supported: %s)", driver, supported())
	}

	db, err := gorm.Open(dial(dsn), &gorm.Config{Logger: newQueryLog(slowQuery())})
	if err != nil {
		return nil, fmt.Errorf("database: open %s: %w", driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	p := poolFor(driver)
	sqlDB.SetMaxOpenConns(p.open)
	sqlDB.SetMaxIdleConns(p.idle)
	sqlDB.SetConnMaxLifetime(p.life)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("database: ping %s: %w", driver, err)
	}
	return db, nil
}

func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func supported() string {
	names := make([]string, 0, len(dialects))
	for name := range dialects {
		names = append(names, name)
	}
	slices.Sort(names)
	return strings.Join(names, ", ")
}

func slowQuery() time.Duration {
	d, err := time.ParseDuration(config.Get("DB_SLOW_QUERY", "200ms"))
	if err != nil || d <= 0 {
		return 200 * time.Millisecond
	}
	return d
}
