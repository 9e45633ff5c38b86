package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/Skotchmaster/roadblock/internal/models"
)

func (r *GormRepo) ListDrivers(ctx context.Context) ([]models.Driver, error) {
	var items []models.Driver
	if err := r.DB.WithContext(ctx).
		Preload("Vehicles", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Order("full_name ASC, id ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *GormRepo) GetDriver(ctx context.Context, id uint) (*models.Driver, error) {
	var d models.Driver
	if err := r.DB.WithContext(ctx).
		Preload("Vehicles", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Vehicles.Payments", func(db *gorm.DB) *gorm.DB { return db.Order("created_at DESC, id DESC") }).
		First(&d, id).Error; err != nil {
		return nil, err
	}
	return &d, nil
}
