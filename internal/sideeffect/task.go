// Package sideeffect runs the follow-up work of a committed booking:
// referral commission, loyalty credit, revenue analytics and cart pruning.
// Each effect is a separate task so one failing never stops the others, and
// none of them can fail or delay the booking commit.
package sideeffect

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tourism-booking/internal/data/entity"

	"github.com/google/uuid"
)

type Kind string

const (
	KindReferralCommission Kind = "referral.commission"
	KindLoyaltyCredit      Kind = "loyalty.credit"
	KindRevenueAnalytics   Kind = "analytics.revenue"
	KindCartPrune          Kind = "cart.prune"
)

// Task is self-contained so it can cross a message broker.
type Task struct {
	ID           uuid.UUID            `json:"id"`
	Kind         Kind                 `json:"kind"`
	Booking      *entity.Booking      `json:"booking,omitempty"`
	Previous     *entity.Booking      `json:"previous,omitempty"`
	Action       entity.RevenueAction `json:"action,omitempty"`
	ReferralCode string               `json:"referral_code,omitempty"`
	AmountPaid   float64              `json:"amount_paid,omitempty"`
	CreditUnits  int64                `json:"credit_units,omitempty"`
	CartID       uuid.UUID            `json:"cart_id,omitempty"`
	CartItemIDs  []uuid.UUID          `json:"cart_item_ids,omitempty"`
	EnqueuedAt   time.Time            `json:"enqueued_at"`
}

func (t Task) validate() error {
	switch t.Kind {
	case KindReferralCommission, KindLoyaltyCredit, KindRevenueAnalytics:
		if t.Booking == nil {
			return fmt.Errorf("%s task without booking", t.Kind)
		}
	case KindCartPrune:
		if t.CartID == uuid.Nil {
			return fmt.Errorf("%s task without cart", t.Kind)
		}
	default:
		return fmt.Errorf("unknown task kind %q", t.Kind)
	}
	return nil
}

// Dispatcher hands tasks to whatever executes them. Dispatch must not block
// on the task itself.
type Dispatcher interface {
	Dispatch(ctx context.Context, task Task) error
}

// TaskRunner executes one task.
type TaskRunner interface {
	Run(ctx context.Context, task Task) error
}

var (
	ErrQueueFull  = errors.New("side effect queue is full")
	ErrPoolClosed = errors.New("side effect pool is closed")
)

// Error reports a failed effect. It is logged, never returned to a payer.
type Error struct {
	Kind      Kind
	BookingID uuid.UUID
	Err       error
}

func (e *Error) Error() string {
	if e.BookingID == uuid.Nil {
		return fmt.Sprintf("side effect %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("side effect %s for booking %s: %v", e.Kind, e.BookingID, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
