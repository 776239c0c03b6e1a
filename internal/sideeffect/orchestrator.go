package sideeffect

import (
	"context"
	"math"
	"time"

	"tourism-booking/internal/data/entity"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Context is what the commit knows beyond the booking itself.
type Context struct {
	ReferralCode string
	AmountPaid   float64
	// CreditUnits is the loyalty award for this booking. Bookings paid
	// together share floor(amount paid) between them.
	CreditUnits int64
}

// CreditUnits is the loyalty award for a payment: one unit per whole
// currency unit paid.
func CreditUnits(amountPaid float64) int64 {
	if amountPaid <= 0 {
		return 0
	}
	return int64(math.Floor(amountPaid))
}

type Orchestrator struct {
	dispatcher Dispatcher
	log        *zap.Logger
	now        func() time.Time
}

func NewOrchestrator(dispatcher Dispatcher, log *zap.Logger) *Orchestrator {
	return &Orchestrator{
		dispatcher: dispatcher,
		log:        log.With(zap.String("service", "sideeffect")),
		now:        time.Now,
	}
}

// OnBookingCommitted enqueues the effects of a newly created booking and
// returns immediately. Enqueue failures are logged only.
func (o *Orchestrator) OnBookingCommitted(ctx context.Context, booking *entity.Booking, c Context) {
	if booking == nil {
		return
	}

	if c.ReferralCode != "" {
		o.enqueue(ctx, Task{
			Kind:         KindReferralCommission,
			Booking:      booking,
			ReferralCode: c.ReferralCode,
		})
	}

	if booking.UserID != nil {
		o.enqueue(ctx, Task{
			Kind:        KindLoyaltyCredit,
			Booking:     booking,
			AmountPaid:  c.AmountPaid,
			CreditUnits: c.CreditUnits,
		})
	}

	o.enqueue(ctx, Task{
		Kind:    KindRevenueAnalytics,
		Booking: booking,
		Action:  entity.RevenueActionCreated,
	})
}

// OnCartMaterialized enqueues removal of the booked lines from the cart.
func (o *Orchestrator) OnCartMaterialized(ctx context.Context, cartID uuid.UUID, itemIDs []uuid.UUID) {
	if cartID == uuid.Nil || len(itemIDs) == 0 {
		return
	}
	o.enqueue(ctx, Task{
		Kind:        KindCartPrune,
		CartID:      cartID,
		CartItemIDs: itemIDs,
	})
}

func (o *Orchestrator) enqueue(ctx context.Context, task Task) {
	task.ID = uuid.New()
	task.EnqueuedAt = o.now()

	// tasks outlive the webhook request
	ctx = context.WithoutCancel(ctx)

	if err := o.dispatcher.Dispatch(ctx, task); err != nil {
		fields := []zap.Field{
			zap.Error(err),
			zap.String("task_id", task.ID.String()),
			zap.String("kind", string(task.Kind)),
		}
		if task.Booking != nil {
			fields = append(fields,
				zap.String("booking_id", task.Booking.ID.String()),
				zap.String("transaction_id", task.Booking.TransactionID),
			)
		}
		if task.CartID != uuid.Nil {
			fields = append(fields, zap.String("cart_id", task.CartID.String()))
		}
		o.log.Error("Failed to enqueue side effect", fields...)
		return
	}

	o.log.Debug("Side effect enqueued",
		zap.String("task_id", task.ID.String()),
		zap.String("kind", string(task.Kind)),
	)
}
