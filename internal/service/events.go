package service

import (
	"context"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/roadblock/internal/models"
	"github.com/Skotchmaster/roadblock/internal/mykafka"
	"github.com/Skotchmaster/roadblock/pkg/logging"
)

const sideEffectTimeout = 5 * time.Second

type EventPublisher interface {
	PublishEvent(ctx context.Context, topic, key string, event any) error
}

type VehicleIndex interface {
	IndexVehicle(ctx context.Context, v *models.Vehicle) error
	DeleteVehicle(ctx context.Context, id uint) error
	SearchVehicles(ctx context.Context, query string, from, size int) (int64, []uint, error)
}

const (
	EventUserCreated     = "user_created"
	EventUsernameChanged = "username_changed"
	EventPasswordChanged = "password_changed"
	EventVehicleCreated  = "vehicle_created"
	EventVehicleUpdated  = "vehicle_updated"
	EventVehicleDeleted  = "vehicle_deleted"
	EventFineAdded       = "fine_added"
	EventPaymentRecorded = "payment_recorded"
	EventPaymentDeleted  = "payment_deleted"
)

type Event struct {
	Type      string           `json:"type"`
	UserID    uint             `json:"userId,omitempty"`
	VehicleID uint             `json:"vehicleId,omitempty"`
	DriverID  uint             `json:"driverId,omitempty"`
	PaymentID uint             `json:"paymentId,omitempty"`
	Amount    *decimal.Decimal `json:"amount,omitempty"`
	At        time.Time        `json:"at"`
}

func key(id uint) string { return strconv.FormatUint(uint64(id), 10) }

// detached gives post-commit work its own deadline; the request may already
// be finishing when it runs.
func detached(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
}

func publish(ctx context.Context, p EventPublisher, topic string, ev Event) {
	if p == nil {
		return
	}
	ev.At = time.Now().UTC()

	id := ev.VehicleID
	if topic == mykafka.TopicUsers {
		id = ev.UserID
	}

	pctx, cancel := detached(ctx)
	defer cancel()
	if err := p.PublishEvent(pctx, topic, key(id), ev); err != nil {
		logging.FromContext(ctx).Warn("publish_event_failed", "topic", topic, "type", ev.Type, "error", err)
	}
}
