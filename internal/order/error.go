package order

import (
	"errors"
	"fmt"
)

var (
	ErrOrderNotFound      = errors.New("order not found")
	ErrInvalidStatusValue = errors.New("invalid status value")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrCannotCancel       = errors.New("order cannot be cancelled in its current state")
	ErrForbidden          = errors.New("forbidden: order belongs to another user")
	ErrInvalidInput       = errors.New("invalid order input")
	ErrPaidAfterCancel    = errors.New("payment received for a cancelled order")
)

type TransitionError struct {
	Current   Status
	Requested Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot change order status from %s to %s", e.Current, e.Requested)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

type CannotCancelError struct {
	Current Status
}

func (e *CannotCancelError) Error() string {
	return fmt.Sprintf("cannot cancel order with status %s", e.Current)
}

func (e *CannotCancelError) Unwrap() error {
	return ErrCannotCancel
}
