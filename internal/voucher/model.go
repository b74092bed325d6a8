package voucher

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type DiscountType string

const (
	DiscountPercentage  DiscountType = "PERCENTAGE"
	DiscountFixedAmount DiscountType = "FIXED_AMOUNT"
)

func (t DiscountType) Valid() bool {
	return t == DiscountPercentage || t == DiscountFixedAmount
}

type Voucher struct {
	ID            int64               `json:"id"`
	Code          string              `json:"code"`
	DiscountType  DiscountType        `json:"discountType"`
	DiscountValue decimal.Decimal     `json:"discountValue"`
	MaxDiscount   decimal.NullDecimal `json:"maxDiscount"`
	MinOrderValue decimal.NullDecimal `json:"minOrderValue"`
	StartDate     *time.Time          `json:"startDate,omitempty"`
	EndDate       *time.Time          `json:"endDate,omitempty"`
	UsageLimit    *int                `json:"usageLimit,omitempty"`
	UsedCount     int                 `json:"usedCount"`
	IsActive      bool                `json:"isActive"`
	CreatedAt     time.Time           `json:"createdAt"`
}

// RemainingUses is nil for vouchers without a usage limit.
func (v *Voucher) RemainingUses() *int {
	if v.UsageLimit == nil {
		return nil
	}
	left := *v.UsageLimit - v.UsedCount
	if left < 0 {
		left = 0
	}
	return &left
}

// ActiveVoucher is the public listing shape.
type ActiveVoucher struct {
	Voucher
	RemainingUses *int `json:"remainingUses"`
}

// Redemption is one recorded use of a voucher by a user.
type Redemption struct {
	ID        int64           `json:"id"`
	UserID    int64           `json:"userId"`
	VoucherID int64           `json:"voucherId"`
	OrderID   *int64          `json:"orderId,omitempty"`
	UsedAt    time.Time       `json:"usedAt"`
	Code      string          `json:"code"`
	Discount  decimal.Decimal `json:"discountAmount"`
}

// HistoryEntry is a redemption joined with the voucher terms it used.
type HistoryEntry struct {
	RedemptionID  int64           `json:"userVoucherId"`
	UsedAt        *time.Time      `json:"usedAt"`
	OrderID       *int64          `json:"orderId"`
	Code          string          `json:"code"`
	DiscountType  DiscountType    `json:"discountType"`
	DiscountValue decimal.Decimal `json:"discountValue"`
}

// Validation is the read-only preview of applying a voucher to an amount.
type Validation struct {
	VoucherID      int64           `json:"voucherId"`
	Code           string          `json:"code"`
	DiscountType   DiscountType    `json:"discountType"`
	DiscountValue  decimal.Decimal `json:"discountValue"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	FinalAmount    decimal.Decimal `json:"finalAmount"`
}

type VoucherInput struct {
	Code          string              `json:"code" validate:"required,max=50"`
	DiscountType  DiscountType        `json:"discountType" validate:"required,oneof=PERCENTAGE FIXED_AMOUNT"`
	DiscountValue decimal.Decimal     `json:"discountValue"`
	MaxDiscount   decimal.NullDecimal `json:"maxDiscount"`
	MinOrderValue decimal.NullDecimal `json:"minOrderValue"`
	StartDate     *time.Time          `json:"startDate"`
	EndDate       *time.Time          `json:"endDate"`
	UsageLimit    *int                `json:"usageLimit" validate:"omitempty,min=1"`
	IsActive      *bool               `json:"isActive"`
}

// NormalizeCode is the canonical stored form of a voucher code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func dateOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
