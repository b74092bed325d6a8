package order

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending    Status = "Pending"
	StatusProcessing Status = "Processing"
	StatusShipped    Status = "Shipped"
	StatusDelivered  Status = "Delivered"
	StatusCancelled  Status = "Cancelled"
)

var AllStatuses = []Status{
	StatusPending,
	StatusProcessing,
	StatusShipped,
	StatusDelivered,
	StatusCancelled,
}

var transitions = map[Status][]Status{
	StatusPending:    {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusShipped, StatusCancelled},
	StatusShipped:    {StatusDelivered, StatusCancelled},
}

// ParseStatus accepts any casing of a known status name.
func ParseStatus(s string) (Status, error) {
	s = strings.TrimSpace(s)
	for _, st := range AllStatuses {
		if strings.EqualFold(string(st), s) {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatusValue, s)
}

func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}

// Cancellable reports whether the owner may still cancel.
func (s Status) Cancellable() bool {
	return s == StatusPending || s == StatusProcessing
}

// Paid mirrors the payment collaborator's view of a settled order.
func (s Status) Paid() bool {
	return s == StatusProcessing || s == StatusShipped || s == StatusDelivered
}

// Message is the human readable phrase used in notifications.
func (s Status) Message() string {
	switch s {
	case StatusPending:
		return "pending confirmation"
	case StatusProcessing:
		return "being processed"
	case StatusShipped:
		return "shipped"
	case StatusDelivered:
		return "delivered"
	case StatusCancelled:
		return "cancelled"
	}
	return strings.ToLower(string(s))
}

type Order struct {
	ID              int64           `json:"id"`
	OrderNumber     string          `json:"orderNumber"`
	UserID          int64           `json:"userId"`
	Status          Status          `json:"status"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	DiscountAmount  decimal.Decimal `json:"discountAmount"`
	Tax             decimal.Decimal `json:"tax"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	VoucherCode     *string         `json:"voucherCode"`
	ShippingAddress string          `json:"shippingAddress"`
	Phone           string          `json:"phone"`
	FullName        string          `json:"fullName"`
	Notes           string          `json:"notes,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
	Items           []Item          `json:"items,omitempty"`
}

// Item prices are frozen at creation time.
type Item struct {
	ID          int64           `json:"id"`
	OrderID     int64           `json:"orderId"`
	ProductID   int64           `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	TotalPrice  decimal.Decimal `json:"totalPrice"`
}

type ItemInput struct {
	ProductID int64 `json:"productId" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"required,min=1"`
}

type CreateOrderInput struct {
	Items           []ItemInput `json:"items" validate:"required,min=1,dive"`
	ShippingAddress string      `json:"shippingAddress" validate:"required,max=200"`
	Phone           string      `json:"phone" validate:"required,max=20"`
	FullName        string      `json:"fullName" validate:"required,max=100"`
	Notes           string      `json:"notes" validate:"max=500"`
	VoucherCode     string      `json:"voucherCode" validate:"max=50"`
}

type CreateOrderResult struct {
	ID             int64           `json:"orderId"`
	OrderNumber    string          `json:"orderNumber"`
	Status         Status          `json:"status"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	Tax            decimal.Decimal `json:"tax"`
	TotalAmount    decimal.Decimal `json:"totalAmount"`
	VoucherCode    *string         `json:"voucherCode"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// PaymentInfo is what the payment collaborator checks before settling.
type PaymentInfo struct {
	OrderID     int64           `json:"orderId"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	Status      Status          `json:"status"`
	IsPaid      bool            `json:"isPaid"`
}

// StoredTotals pairs an order's persisted money columns with the sum of its
// item totals.
type StoredTotals struct {
	OrderID       int64
	ItemsSubtotal decimal.Decimal
	Stored        Totals
}

type RecalcSummary struct {
	Scanned int `json:"scanned"`
	Updated int `json:"updated"`
}

type StatusCount struct {
	Status Status
	Count  int
	Amount decimal.Decimal
}

type Statistics struct {
	TotalOrders       int             `json:"totalOrders"`
	ByStatus          map[Status]int  `json:"byStatus"`
	Revenue           decimal.Decimal `json:"revenue"`
	AverageOrderValue decimal.Decimal `json:"averageOrderValue"`
}
