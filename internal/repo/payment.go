package repo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/roadblock/internal/models"
)

// CreatePayment appends a ledger entry. The vehicle row is locked for the
// duration so the entry cannot land on a vehicle being deleted.
func (r *GormRepo) CreatePayment(ctx context.Context, p *models.Payment) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var v models.Vehicle
		q := tx.Select("id")
		if tx.Dialector.Name() == "postgres" {
			q = q.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		if err := q.First(&v, p.VehicleID).Error; err != nil {
			return err
		}
		return tx.Create(p).Error
	})
}

// DeletePayment only removes the payment when it belongs to vehicleID.
func (r *GormRepo) DeletePayment(ctx context.Context, vehicleID, paymentID uint) error {
	res := r.DB.WithContext(ctx).
		Where("id = ? AND vehicle_id = ?", paymentID, vehicleID).
		Delete(&models.Payment{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
