// Package migration runs and tracks schema migrations for the sql backend.
//
// Migrations register themselves from init() in database/migrations:
//
//	func init() {
//	    migration.Register("20260101000000_create_orders_table", &CreateOrdersTable{})
//	}
//
// and run from the CLI:
//
//	canteen migrate            // run all pending
//	canteen migrate:rollback   // roll back the last batch
//	canteen migrate:status
package migration

import (
	"database/sql"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/canteen/pkg/logger"
)

type Migration interface {
	Up(db *gorm.DB) error
	Down(db *gorm.DB) error
}

// record is a row of the tracking table.
type record struct {
	ID    uint      `gorm:"primaryKey;autoIncrement"`
	Name  string    `gorm:"uniqueIndex;size:255;not null"`
	Batch int       `gorm:"not null"`
	RunAt time.Time `gorm:"autoCreateTime"`
}

func (record) TableName() string { return "canteen_migrations" }

// Entry is a named migration.
type Entry struct {
	Name      string
	Migration Migration
}

var registry []Entry

// Register adds a migration to the global registry. Names are
// timestamp-prefixed and run in name order.
func Register(name string, m Migration) {
	registry = append(registry, Entry{Name: name, Migration: m})
}

// Registered returns the global registry in name order.
func Registered() []Entry {
	return sorted(registry)
}

func sorted(entries []Entry) []Entry {
	out := append([]Entry(nil), entries...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Runner executes and tracks migrations.
type Runner struct {
	db      *gorm.DB
	out     io.Writer
	entries []Entry
}

type Option func(*Runner)

// WithOutput sends progress lines to w instead of discarding them.
func WithOutput(w io.Writer) Option {
	return func(r *Runner) { r.out = w }
}

// WithMigrations replaces the global registry for this runner.
func WithMigrations(entries ...Entry) Option {
	return func(r *Runner) { r.entries = sorted(entries) }
}

func New(db *gorm.DB, opts ...Option) *Runner {
	r := &Runner{db: db, out: io.Discard, entries: Registered()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Runner) printf(format string, args ...any) {
	fmt.Fprintf(r.out, format, args...)
}

// EnsureTable creates the tracking table if it does not exist.
func (r *Runner) EnsureTable() error {
	return r.db.AutoMigrate(&record{})
}

func (r *Runner) ran() (map[string]record, error) {
	var rows []record
	if err := r.db.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]record, len(rows))
	for _, rec := range rows {
		out[rec.Name] = rec
	}
	return out, nil
}

// Pending returns the migrations that have not run yet, in name order.
func (r *Runner) Pending() ([]Entry, error) {
	ran, err := r.ran()
	if err != nil {
		return nil, err
	}
	var pending []Entry
	for _, e := range r.entries {
		if _, ok := ran[e.Name]; !ok {
			pending = append(pending, e)
		}
	}
	return pending, nil
}

// Run executes all pending migrations as one batch.
func (r *Runner) Run() error {
	if err := r.EnsureTable(); err != nil {
		return fmt.Errorf("migration: ensure table: %w", err)
	}

	pending, err := r.Pending()
	if err != nil {
		return fmt.Errorf("migration: fetch pending: %w", err)
	}
	if len(pending) == 0 {
		r.printf("Nothing to migrate.\n")
		return nil
	}

	batch, err := r.lastBatch()
	if err != nil {
		return fmt.Errorf("migration: read batch: %w", err)
	}
	batch++

	for _, e := range pending {
		r.printf("  ▶ Migrating: %s\n", e.Name)
		if err := e.Migration.Up(r.db); err != nil {
			return fmt.Errorf("migration: %s up: %w", e.Name, err)
		}
		if err := r.db.Create(&record{Name: e.Name, Batch: batch}).Error; err != nil {
			return fmt.Errorf("migration: record %s: %w", e.Name, err)
		}
		r.printf("  ✅ Migrated:  %s\n", e.Name)
	}

	logger.Info("migration: done", "ran", len(pending), "batch", batch)
	return nil
}

// Rollback reverses every migration of the most recent batch.
func (r *Runner) Rollback() error {
	if err := r.EnsureTable(); err != nil {
		return fmt.Errorf("migration: ensure table: %w", err)
	}

	batch, err := r.lastBatch()
	if err != nil {
		return fmt.Errorf("migration: read batch: %w", err)
	}
	if batch == 0 {
		r.printf("Nothing to roll back.\n")
		return nil
	}

	var rows []record
	if err := r.db.Where("batch = ?", batch).Order("id desc").Find(&rows).Error; err != nil {
		return fmt.Errorf("migration: load batch %d: %w", batch, err)
	}

	known := make(map[string]Migration, len(r.entries))
	for _, e := range r.entries {
		known[e.Name] = e.Migration
	}

	for _, rec := range rows {
		m, ok := known[rec.Name]
		if !ok {
			return fmt.Errorf("migration: cannot roll back %s: not registered", rec.Name)
		}

		r.printf("  ◀ Rolling back: %s\n", rec.Name)
		if err := m.Down(r.db); err != nil {
			return fmt.Errorf("migration: %s down: %w", rec.Name, err)
		}
		if err := r.db.Delete(&rec).Error; err != nil {
			return fmt.Errorf("migration: forget %s: %w", rec.Name, err)
		}
		r.printf("  ✅ Rolled back: %s\n", rec.Name)
	}

	logger.Info("migration: rolled back", "batch", batch, "count", len(rows))
	return nil
}

// Status prints every known migration and whether it has run.
func (r *Runner) Status() error {
	if err := r.EnsureTable(); err != nil {
		return fmt.Errorf("migration: ensure table: %w", err)
	}

	ran, err := r.ran()
	if err != nil {
		return fmt.Errorf("migration: load status: %w", err)
	}

	r.printf("%-50s  %-8s  %s\n", "Migration", "Status", "Batch")
	r.printf("%s\n", strings.Repeat("-", 68))
	for _, e := range r.entries {
		if rec, ok := ran[e.Name]; ok {
			r.printf("%-50s  %-8s  %d\n", e.Name, "Ran", rec.Batch)
		} else {
			r.printf("%-50s  %-8s  -\n", e.Name, "Pending")
		}
	}
	return nil
}

func (r *Runner) lastBatch() (int, error) {
	var batch sql.NullInt64
	if err := r.db.Model(&record{}).Select("MAX(batch)").Row().Scan(&batch); err != nil {
		return 0, err
	}
	return int(batch.Int64), nil
}
