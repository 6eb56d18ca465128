package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"homecook-api/models"
	"homecook-api/statemachine"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrStatusChanged means another request moved the order first
	ErrStatusChanged = errors.New("order status changed concurrently")
)

// OrderStore is the order sink and the read side of submitted orders
type OrderStore struct {
	db  *gorm.DB
	log logrus.FieldLogger
}

func NewOrderStore(db *gorm.DB, log logrus.FieldLogger) *OrderStore {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &OrderStore{db: db, log: log}
}

// SubmitOrder stores the order with its items and first history row in one
// transaction. The order's ID and timestamp are assigned here.
func (s *OrderStore) SubmitOrder(ctx context.Context, order *models.Order) error {
	order.ID = uuid.NewString()
	order.Timestamp = time.Now().UTC()
	if order.Status == "" {
		order.Status = models.StatusPending
	}
	for i := range order.Items {
		order.Items[i].RowID = 0
		order.Items[i].OrderID = order.ID
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("StatusHistory").Create(order).Error; err != nil {
			return err
		}
		return tx.Create(&models.OrderStatusHistory{
			OrderID:   order.ID,
			ToStatus:  order.Status,
			ChangedBy: order.CustomerID,
			Note:      "Order placed by customer",
		}).Error
	})
	if err != nil {
		order.ID = ""
		order.Timestamp = time.Time{}
		return fmt.Errorf("submit order: %w", err)
	}
	s.log.WithFields(logrus.Fields{"order_id": order.ID, "customer_id": order.CustomerID}).Debug("Order stored")
	return nil
}

// ListForCustomer returns a customer's orders, newest first
func (s *OrderStore) ListForCustomer(ctx context.Context, customerID uint) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.WithContext(ctx).Preload("Items").
		Where("customer_id = ?", customerID).
		Order("timestamp desc").
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("list orders of customer %d: %w", customerID, err)
	}
	return orders, nil
}

// GetForCustomer returns one order with its history if it belongs to the customer
func (s *OrderStore) GetForCustomer(ctx context.Context, customerID uint, orderID string) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).
		Preload("Items").
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB { return db.Order("id asc") }).
		Where("id = ? AND customer_id = ?", orderID, customerID).
		First(&order).Error
	if err != nil {
		return nil, notFound(err, "order %s", orderID)
	}
	return &order, nil
}

// ListForCookSpot returns orders containing at least one item from the spot,
// optionally filtered by status
func (s *OrderStore) ListForCookSpot(ctx context.Context, spotID string, status models.OrderStatus) ([]models.Order, error) {
	query := s.db.WithContext(ctx).Preload("Items").
		Where("id IN (?)", s.db.Model(&models.OrderItem{}).Select("order_id").Where("cook_spot_id = ?", spotID))
	if status != "" {
		query = query.Where("status = ?", status)
	}
	var orders []models.Order
	if err := query.Order("timestamp desc").Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("list orders of cook spot %s: %w", spotID, err)
	}
	return orders, nil
}

// GetForCookSpot returns one order if it contains an item from the spot
func (s *OrderStore) GetForCookSpot(ctx context.Context, spotID, orderID string) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).Preload("Items").
		Where("id = ?", orderID).
		Where("id IN (?)", s.db.Model(&models.OrderItem{}).Select("order_id").Where("cook_spot_id = ?", spotID)).
		First(&order).Error
	if err != nil {
		return nil, notFound(err, "order %s", orderID)
	}
	return &order, nil
}

// Transition moves an order to the next status on behalf of actor and
// records the change. It returns the status the order had before.
func (s *OrderStore) Transition(ctx context.Context, order *models.Order, to models.OrderStatus, actor string, userID uint, note string) (models.OrderStatus, error) {
	from := order.Status
	if err := statemachine.CanTransition(from, to, actor); err != nil {
		return from, fmt.Errorf("%w: %v", ErrInvalidTransition, err)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Order{}).
			Where("id = ? AND status = ?", order.ID, from).
			Update("status", to)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrStatusChanged
		}
		return tx.Create(&models.OrderStatusHistory{
			OrderID:    order.ID,
			FromStatus: from,
			ToStatus:   to,
			ChangedBy:  userID,
			Note:       note,
		}).Error
	})
	if err != nil {
		return from, fmt.Errorf("order %s %s -> %s: %w", order.ID, from, to, err)
	}
	order.Status = to
	s.log.WithFields(logrus.Fields{"order_id": order.ID, "from": from, "to": to, "actor": actor}).Info("Order status changed")
	return from, nil
}
