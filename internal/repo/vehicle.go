package repo

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Skotchmaster/roadblock/internal/models"
)

var vehicleColumns = []string{
	"plate_number", "make_and_model", "image", "fines_due",
	"year", "colour", "weight", "net_weight",
}

var driverColumns = []string{
	"full_name", "license_number", "image", "national_id", "dob",
	"phone", "defensive", "medical", "licence_class", "licence_year",
}

func (r *GormRepo) ListVehicles(ctx context.Context, offset, limit int) (int64, []models.Vehicle, error) {
	var total int64
	if err := r.DB.WithContext(ctx).Model(&models.Vehicle{}).Count(&total).Error; err != nil {
		return 0, nil, err
	}

	var items []models.Vehicle
	if err := r.DB.WithContext(ctx).
		Preload("Driver").
		Preload("Payments").
		Order("id ASC").
		Offset(offset).
		Limit(limit).
		Find(&items).Error; err != nil {
		return 0, nil, err
	}
	return total, items, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

const searchCondition = `LOWER(vehicles.plate_number) LIKE LOWER(?) ESCAPE '\' ` +
	`OR LOWER(vehicles.make_and_model) LIKE LOWER(?) ESCAPE '\' ` +
	`OR LOWER(drivers.full_name) LIKE LOWER(?) ESCAPE '\'`

// SearchVehicles matches plate number, make and model, or driver name. q is
// matched literally; % and _ have no wildcard meaning.
func (r *GormRepo) SearchVehicles(ctx context.Context, q string, offset, limit int) (int64, []models.Vehicle, error) {
	like := "%" + likeEscaper.Replace(q) + "%"
	base := func() *gorm.DB {
		return r.DB.WithContext(ctx).
			Model(&models.Vehicle{}).
			Joins("JOIN drivers ON drivers.id = vehicles.driver_id").
			Where(searchCondition, like, like, like)
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return 0, nil, err
	}

	var items []models.Vehicle
	if err := base().
		Preload("Driver").
		Preload("Payments").
		Order("vehicles.id ASC").
		Offset(offset).
		Limit(limit).
		Find(&items).Error; err != nil {
		return 0, nil, err
	}
	return total, items, nil
}

// GetVehiclesByIDs keeps the order of ids and skips ids that no longer exist.
func (r *GormRepo) GetVehiclesByIDs(ctx context.Context, ids []uint) ([]models.Vehicle, error) {
	if len(ids) == 0 {
		return []models.Vehicle{}, nil
	}
	var found []models.Vehicle
	if err := r.DB.WithContext(ctx).
		Preload("Driver").
		Preload("Payments").
		Where("id IN ?", ids).
		Find(&found).Error; err != nil {
		return nil, err
	}

	byID := make(map[uint]models.Vehicle, len(found))
	for _, v := range found {
		byID[v.ID] = v
	}
	out := make([]models.Vehicle, 0, len(found))
	for _, id := range ids {
		if v, ok := byID[id]; ok {
			out = append(out, v)
		}
	}
	return out, nil
}

func (r *GormRepo) GetVehicle(ctx context.Context, id uint) (*models.Vehicle, error) {
	var v models.Vehicle
	if err := r.DB.WithContext(ctx).
		Preload("Driver").
		Preload("Payments", func(db *gorm.DB) *gorm.DB { return db.Order("created_at DESC, id DESC") }).
		First(&v, id).Error; err != nil {
		return nil, err
	}
	return &v, nil
}

// CreateVehicleWithDriver writes the driver and then the vehicle in one
// transaction; on any failure neither row remains.
func (r *GormRepo) CreateVehicleWithDriver(ctx context.Context, v *models.Vehicle, d *models.Driver) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Vehicles").Create(d).Error; err != nil {
			return err
		}
		v.DriverID = d.ID
		if err := tx.Omit("Driver", "Payments").Create(v).Error; err != nil {
			return err
		}
		v.Driver = d
		return nil
	})
}

// UpdateVehicleWithDriver overwrites the editable columns of a vehicle and of
// the driver it currently belongs to.
func (r *GormRepo) UpdateVehicleWithDriver(ctx context.Context, id uint, v *models.Vehicle, d *models.Driver) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.Vehicle
		if err := tx.Select("id", "driver_id").First(&current, id).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.Vehicle{ID: id}).Select(vehicleColumns).Updates(v).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Driver{ID: current.DriverID}).Select(driverColumns).Updates(d).Error; err != nil {
			return err
		}
		v.ID = id
		v.DriverID = current.DriverID
		d.ID = current.DriverID
		return nil
	})
}

// DeleteVehicle removes the vehicle and its payments. The driver is kept.
func (r *GormRepo) DeleteVehicle(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("vehicle_id = ?", id).Delete(&models.Payment{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Vehicle{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// IncrementFinesDue adds amount in a single UPDATE so concurrent postings are not lost.
// A total above models.MaxMoney leaves the row alone and returns ErrOutOfRange.
func (r *GormRepo) IncrementFinesDue(ctx context.Context, id uint, amount decimal.Decimal) error {
	res := r.DB.WithContext(ctx).
		Model(&models.Vehicle{}).
		Where("id = ? AND fines_due + ? <= CAST(? AS DECIMAL(12,2))", id, amount, models.MaxMoney).
		Update("fines_due", gorm.Expr("fines_due + ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var n int64
	if err := r.DB.WithContext(ctx).Model(&models.Vehicle{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return gorm.ErrRecordNotFound
	}
	return ErrOutOfRange
}
