package models

import "time"

// OrderStatus represents all possible states of a submitted order
type OrderStatus string

const (
	StatusPending        OrderStatus = "Pending"
	StatusAccepted       OrderStatus = "Accepted"
	StatusPreparing      OrderStatus = "Preparing"
	StatusOutForDelivery OrderStatus = "OutForDelivery"
	StatusDelivered      OrderStatus = "Delivered"
	StatusCancelled      OrderStatus = "Cancelled"
)

// PaymentMethod tags how the customer intends to pay
type PaymentMethod string

const (
	PaymentCashOnDelivery PaymentMethod = "cash_on_delivery"
	PaymentCard           PaymentMethod = "card"
	PaymentLinePay        PaymentMethod = "line_pay"
)

// Order is the persisted order document. The JSON keys are the ones the
// order sink expects; ID and Timestamp are assigned by the store.
type Order struct {
	ID            string               `json:"id" gorm:"primaryKey;size:36"`
	CustomerID    uint                 `json:"customerId" gorm:"index"`
	Timestamp     time.Time            `json:"timestamp" gorm:"autoCreateTime"`
	TotalPrice    float64              `json:"totalPrice" gorm:"not null"`
	DeliveryFee   float64              `json:"deliveryFee" gorm:"not null"`
	FinalAmount   float64              `json:"finalAmount" gorm:"not null"`
	Address       string               `json:"address" gorm:"not null"`
	Contact       string               `json:"contact" gorm:"not null"`
	PaymentMethod PaymentMethod        `json:"paymentMethod" gorm:"not null"`
	Items         []OrderItem          `json:"items" gorm:"foreignKey:OrderID"`
	Status        OrderStatus          `json:"status" gorm:"not null;default:'Pending'"`
	StatusHistory []OrderStatusHistory `json:"statusHistory,omitempty" gorm:"foreignKey:OrderID"`
	UpdatedAt     time.Time            `json:"updatedAt"`
}

// OrderItem is a cart line flattened at submission time
type OrderItem struct {
	RowID      uint    `json:"-" gorm:"primaryKey"`
	OrderID    string  `json:"-" gorm:"index;not null"`
	MenuItemID string  `json:"id" gorm:"not null"`
	CookSpotID string  `json:"cookSpotId" gorm:"index"`
	Name       string  `json:"name"`                  // snapshot name
	Price      float64 `json:"price" gorm:"not null"` // snapshot price at time of order
	Quantity   int     `json:"quantity" gorm:"not null"`
	Total      float64 `json:"total" gorm:"not null"`
}

// OrderStatusHistory tracks every status change after submission
type OrderStatusHistory struct {
	ID         uint        `json:"id" gorm:"primaryKey"`
	OrderID    string      `json:"orderId" gorm:"index;not null"`
	FromStatus OrderStatus `json:"fromStatus"`
	ToStatus   OrderStatus `json:"toStatus" gorm:"not null"`
	ChangedBy  uint        `json:"changedBy"` // user ID who triggered the transition
	Note       string      `json:"note"`
	CreatedAt  time.Time   `json:"createdAt"`
}
