package datastore

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shashiranjanraj/canteen/app/models"
)

// SQL stores orders in the "orders" table through gorm. The table is
// created by the orders migration.
type SQL struct {
	db *gorm.DB
}

func NewSQL(db *gorm.DB) *SQL { return &SQL{db: db} }

func (s *SQL) Create(ctx context.Context, o *models.Order) (*models.Order, error) {
	rec := cloneOrder(o)
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return nil, backendErr("create", err)
	}
	return rec, nil
}

func (s *SQL) FindOne(ctx context.Context, f Filter) (*models.Order, error) {
	f, err := f.Validate()
	if err != nil {
		return nil, err
	}

	q := s.db.WithContext(ctx).Model(&models.Order{})
	for _, k := range f.Keys() {
		q = q.Where(k+" = ?", f[k])
	}

	var rows []models.Order
	if err := q.Order("created_at").Limit(1).Find(&rows).Error; err != nil {
		return nil, backendErr("find", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (s *SQL) Update(ctx context.Context, id string, p Patch, guard Filter) error {
	p, err := p.Validate()
	if err != nil {
		return err
	}
	guard, err = guard.Validate()
	if err != nil {
		return err
	}

	db := s.db.WithContext(ctx)
	q := db.Model(&models.Order{}).Where("id = ?", id)
	for _, k := range guard.Keys() {
		q = q.Where(k+" = ?", guard[k])
	}

	res := q.Updates(map[string]any(p))
	if res.Error != nil {
		return backendErr("update", res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var n int64
	if err := db.Model(&models.Order{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return backendErr("update", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return ErrConflict
}
