package queue

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// FailedJobRecord is one row of canteen_failed_jobs, created by the
// failed_jobs migration.
type FailedJobRecord struct {
	ID       uint      `gorm:"primaryKey;autoIncrement"`
	JobType  string    `gorm:"size:255;not null;index"`
	Payload  string    `gorm:"type:text;not null"`
	Error    string    `gorm:"type:text"`
	Attempts int       `gorm:"not null;default:0"`
	FailedAt time.Time `gorm:"not null"`
}

func (FailedJobRecord) TableName() string { return "canteen_failed_jobs" }

// FailedTable stores failed jobs in canteen_failed_jobs.
func FailedTable(db *gorm.DB) FailedStore { return failedTable{db: db} }

type failedTable struct{ db *gorm.DB }

func (t failedTable) Record(ctx context.Context, f FailedJob) error {
	row := FailedJobRecord{
		JobType:  f.Kind,
		Payload:  string(f.Body),
		Attempts: f.Attempts,
		FailedAt: f.FailedAt,
	}
	if f.Err != nil {
		row.Error = f.Err.Error()
	}
	return t.db.WithContext(ctx).Create(&row).Error
}
