package migrations

import (
	"gorm.io/gorm"

	"github.com/shashiranjanraj/canteen/app/models"
	"github.com/shashiranjanraj/canteen/pkg/migration"
	"github.com/shashiranjanraj/canteen/pkg/queue"
)

func init() {
	migration.Register("20260101000000_create_orders_table", &CreateOrdersTable{})
	migration.Register("20260101000001_create_failed_jobs_table", &CreateFailedJobsTable{})
}

// -------- 0001: orders --------

type CreateOrdersTable struct{}

func (m *CreateOrdersTable) Up(db *gorm.DB) error {
	return db.AutoMigrate(&models.Order{})
}

func (m *CreateOrdersTable) Down(db *gorm.DB) error {
	return db.Migrator().DropTable(&models.Order{})
}

// -------- 0002: failed queue jobs --------

type CreateFailedJobsTable struct{}

func (m *CreateFailedJobsTable) Up(db *gorm.DB) error {
	return db.AutoMigrate(&queue.FailedJobRecord{})
}

func (m *CreateFailedJobsTable) Down(db *gorm.DB) error {
	return db.Migrator().DropTable(&queue.FailedJobRecord{})
}
