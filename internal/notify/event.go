package notify

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventNewOrderCreated    = "NewOrderCreated"
	EventNewOrderReceived   = "NewOrderReceived"
	EventOrderStatusChanged = "OrderStatusChanged"
	EventOrderCancelled     = "OrderCancelled"
)

// OrderEvent is the payload shared by every order lifecycle event. Fields
// that do not apply to an event are left empty.
type OrderEvent struct {
	OrderID     int64            `json:"orderId"`
	OrderNumber string           `json:"orderNumber"`
	UserID      int64            `json:"userId"`
	TotalAmount *decimal.Decimal `json:"totalAmount,omitempty"`
	OldStatus   string           `json:"oldStatus,omitempty"`
	NewStatus   string           `json:"newStatus,omitempty"`
	Reason      string           `json:"reason,omitempty"`
	Message     string           `json:"message"`
	Timestamp   time.Time        `json:"timestamp"`
}

// Message is one delivery to a subscriber.
type Message struct {
	Topic   string `json:"topic"`
	Event   string `json:"event"`
	Payload any    `json:"payload"`
}
