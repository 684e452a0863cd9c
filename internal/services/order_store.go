package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/ambre/internal/models"
)

// Order persistence errors.
var (
	ErrOrderNotFound   = errors.New("order not found")
	ErrAlreadyRefunded = errors.New("order already refunded")
	ErrNumberExhausted = errors.New("could not generate a unique order number")
)

// OrderPersistence is the storage contract consumed by checkout and the
// refund workflow. It carries no business validation.
type OrderPersistence interface {
	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	GetOrderByNumber(ctx context.Context, number string) (*models.Order, error)
	UpdateOrder(ctx context.Context, id uuid.UUID, fields map[string]any) (*models.Order, error)
	// MarkRefunded applies fields only if the order has not already been
	// refunded; returns ErrAlreadyRefunded otherwise. Single guarded
	// update, so two concurrent refund attempts cannot both win.
	MarkRefunded(ctx context.Context, id uuid.UUID, fields map[string]any) error
	DeleteOrder(ctx context.Context, id uuid.UUID) error
	GenerateOrderNumber(ctx context.Context) (string, error)
	RecordEvent(ctx context.Context, orderID uuid.UUID, eventType, detail string) error
	HasEvent(ctx context.Context, orderID uuid.UUID, eventType string) (bool, error)
}

// OrderStore is the GORM-backed OrderPersistence implementation.
type OrderStore struct {
	db *gorm.DB
}

// NewOrderStore constructs OrderStore.
func NewOrderStore(db *gorm.DB) *OrderStore {
	return &OrderStore{db: db}
}

// CreateOrder persists the order header together with its items.
func (s *OrderStore) CreateOrder(ctx context.Context, order *models.Order) error {
	return s.db.WithContext(ctx).Create(order).Error
}

// GetOrder loads an order with its items.
func (s *OrderStore) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := s.db.WithContext(ctx).Preload("Items").First(&order, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

// GetOrderByNumber loads an order by its human-readable number.
func (s *OrderStore) GetOrderByNumber(ctx context.Context, number string) (*models.Order, error) {
	var order models.Order
	if err := s.db.WithContext(ctx).Preload("Items").First(&order, "order_number = ?", number).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

// UpdateOrder applies a partial merge and returns the refreshed order.
func (s *OrderStore) UpdateOrder(ctx context.Context, id uuid.UUID, fields map[string]any) (*models.Order, error) {
	res := s.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Updates(fields)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrOrderNotFound
	}
	return s.GetOrder(ctx, id)
}

// MarkRefunded performs the refund bookkeeping as one conditional update.
func (s *OrderStore) MarkRefunded(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	res := s.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND payment_status <> ?", id, models.PaymentStatusRefunded).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrOrderNotFound
		}
		return ErrAlreadyRefunded
	}
	return nil
}

// DeleteOrder removes the order and its dependent rows.
func (s *OrderStore) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.OrderItem{}, "order_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.OrderEvent{}, "order_id = ?", id).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Order{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrOrderNotFound
		}
		return nil
	})
}

// GenerateOrderNumber produces a unique human-readable order number,
// regenerating on collision. The unique index on order_number backs this
// up in case of a race between the check and the insert.
func (s *OrderStore) GenerateOrderNumber(ctx context.Context) (string, error) {
	for attempt := 0; attempt < 5; attempt++ {
		number, err := newOrderNumber(time.Now())
		if err != nil {
			return "", err
		}

		var count int64
		if err := s.db.WithContext(ctx).
			Model(&models.Order{}).
			Where("order_number = ?", number).
			Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return number, nil
		}
	}
	return "", ErrNumberExhausted
}

// RecordEvent appends a side-effect record for the order.
func (s *OrderStore) RecordEvent(ctx context.Context, orderID uuid.UUID, eventType, detail string) error {
	event := models.OrderEvent{
		OrderID:    orderID,
		Type:       eventType,
		Detail:     detail,
		OccurredAt: time.Now(),
	}
	return s.db.WithContext(ctx).Create(&event).Error
}

// HasEvent reports whether an event of the given type was already recorded.
func (s *OrderStore) HasEvent(ctx context.Context, orderID uuid.UUID, eventType string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.OrderEvent{}).
		Where("order_id = ? AND type = ?", orderID, eventType).
		Count(&count).Error
	return count > 0, err
}

// newOrderNumber builds a date-prefixed number with a random suffix,
// e.g. AMB-20260829-48213.
func newOrderNumber(now time.Time) (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(100000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("AMB-%s-%05d", now.Format("20060102"), n.Int64()), nil
}
