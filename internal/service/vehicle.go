package service

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Skotchmaster/roadblock/internal/models"
	"github.com/Skotchmaster/roadblock/internal/mykafka"
	"github.com/Skotchmaster/roadblock/internal/repo"
	"github.com/Skotchmaster/roadblock/pkg/logging"
)

type VehicleService struct {
	Repo   *repo.GormRepo
	Events EventPublisher
	Index  VehicleIndex
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// List pages through vehicles. A non-empty query goes to the search index
// when one is configured and to a LIKE query otherwise or when the index
// fails.
func (s *VehicleService) List(ctx context.Context, query string, offset, limit int) (int64, []models.Vehicle, error) {
	if query == "" {
		return s.Repo.ListVehicles(ctx, offset, limit)
	}

	if s.Index != nil {
		total, ids, err := s.Index.SearchVehicles(ctx, query, offset, limit)
		if err == nil {
			items, err := s.Repo.GetVehiclesByIDs(ctx, ids)
			if err != nil {
				return 0, nil, err
			}
			return total, items, nil
		}
		logging.FromContext(ctx).Warn("search_index_failed", "reason", "falling back to database", "error", err)
	}
	return s.Repo.SearchVehicles(ctx, query, offset, limit)
}

func (s *VehicleService) Get(ctx context.Context, id uint) (*models.Vehicle, error) {
	v, err := s.Repo.GetVehicle(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	return v, nil
}

func (s *VehicleService) CreateWithDriver(ctx context.Context, v *models.Vehicle, d *models.Driver) error {
	if err := s.Repo.CreateVehicleWithDriver(ctx, v, d); err != nil {
		return err
	}
	s.reindex(ctx, v.ID)
	publish(ctx, s.Events, mykafka.TopicVehicles, Event{Type: EventVehicleCreated, VehicleID: v.ID, DriverID: d.ID})
	return nil
}

func (s *VehicleService) UpdateWithDriver(ctx context.Context, id uint, v *models.Vehicle, d *models.Driver) error {
	if err := s.Repo.UpdateVehicleWithDriver(ctx, id, v, d); err != nil {
		return notFound(err)
	}
	s.reindex(ctx, id)
	publish(ctx, s.Events, mykafka.TopicVehicles, Event{Type: EventVehicleUpdated, VehicleID: id, DriverID: d.ID})
	return nil
}

func (s *VehicleService) Delete(ctx context.Context, id uint) error {
	if err := s.Repo.DeleteVehicle(ctx, id); err != nil {
		return notFound(err)
	}
	if s.Index != nil {
		ictx, cancel := detached(ctx)
		defer cancel()
		if err := s.Index.DeleteVehicle(ictx, id); err != nil {
			logging.FromContext(ctx).Warn("search_unindex_failed", "vehicle_id", id, "error", err)
		}
	}
	publish(ctx, s.Events, mykafka.TopicVehicles, Event{Type: EventVehicleDeleted, VehicleID: id})
	return nil
}

// AddFine raises finesDue. Payments never lower it.
func (s *VehicleService) AddFine(ctx context.Context, id uint, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if err := s.Repo.IncrementFinesDue(ctx, id, amount); err != nil {
		if errors.Is(err, repo.ErrOutOfRange) {
			return ErrAmountTooLarge
		}
		return notFound(err)
	}
	publish(ctx, s.Events, mykafka.TopicVehicles, Event{Type: EventFineAdded, VehicleID: id, Amount: &amount})
	return nil
}

func (s *VehicleService) RecordPayment(ctx context.Context, vehicleID uint, amount decimal.Decimal) (*models.Payment, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	p := &models.Payment{VehicleID: vehicleID, Amount: amount}
	if err := s.Repo.CreatePayment(ctx, p); err != nil {
		return nil, notFound(err)
	}
	publish(ctx, s.Events, mykafka.TopicPayments, Event{Type: EventPaymentRecorded, VehicleID: vehicleID, PaymentID: p.ID, Amount: &amount})
	return p, nil
}

// DeletePayment removes one payment of the vehicle and returns the vehicle as
// it is afterwards.
func (s *VehicleService) DeletePayment(ctx context.Context, vehicleID, paymentID uint) (*models.Vehicle, error) {
	if err := s.Repo.DeletePayment(ctx, vehicleID, paymentID); err != nil {
		return nil, notFound(err)
	}
	publish(ctx, s.Events, mykafka.TopicPayments, Event{Type: EventPaymentDeleted, VehicleID: vehicleID, PaymentID: paymentID})
	return s.Get(ctx, vehicleID)
}

func (s *VehicleService) ListDrivers(ctx context.Context) ([]models.Driver, error) {
	return s.Repo.ListDrivers(ctx)
}

func (s *VehicleService) GetDriver(ctx context.Context, id uint) (*models.Driver, error) {
	d, err := s.Repo.GetDriver(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	return d, nil
}

// ReindexAll copies every vehicle into the search index.
func (s *VehicleService) ReindexAll(ctx context.Context) (int, error) {
	if s.Index == nil {
		return 0, nil
	}
	const batch = 100
	n := 0
	for offset := 0; ; offset += batch {
		_, items, err := s.Repo.ListVehicles(ctx, offset, batch)
		if err != nil {
			return n, err
		}
		for i := range items {
			if err := s.Index.IndexVehicle(ctx, &items[i]); err != nil {
				return n, err
			}
			n++
		}
		if len(items) < batch {
			return n, nil
		}
	}
}

func (s *VehicleService) reindex(ctx context.Context, id uint) {
	if s.Index == nil {
		return
	}
	l := logging.FromContext(ctx)

	v, err := s.Repo.GetVehicle(ctx, id)
	if err != nil {
		l.Warn("search_index_failed", "vehicle_id", id, "error", err)
		return
	}
	ictx, cancel := detached(ctx)
	defer cancel()
	if err := s.Index.IndexVehicle(ictx, v); err != nil {
		l.Warn("search_index_failed", "vehicle_id", id, "error", err)
	}
}
