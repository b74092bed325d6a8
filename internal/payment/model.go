package payment

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrInvalidReference = errors.New("invalid order reference")

// Outcome is what a gateway callback means for the order.
type Outcome int

const (
	OutcomeIgnored Outcome = iota
	OutcomePaid
	OutcomeFailed
)

// CallbackPayload is the body the payment gateway posts to the webhook.
type CallbackPayload struct {
	ID         string              `json:"id"`
	ExternalID string              `json:"external_id"`
	Status     string              `json:"status"`
	Amount     decimal.NullDecimal `json:"amount"`
	PaidAt     string              `json:"paid_at,omitempty"`
}

func (p CallbackPayload) Outcome() Outcome {
	switch strings.ToUpper(strings.TrimSpace(p.Status)) {
	case "PAID", "SUCCEEDED", "SETTLED":
		return OutcomePaid
	case "EXPIRED", "FAILED":
		return OutcomeFailed
	default:
		return OutcomeIgnored
	}
}

// ParseReference accepts either the display order number (ORD000042) or
// the bare numeric id.
func ParseReference(ref string) (int64, error) {
	raw := strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(ref)), "ORD")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidReference, ref)
	}
	return id, nil
}
