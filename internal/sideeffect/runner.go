package sideeffect

import (
	"context"
	"fmt"
	"time"

	"tourism-booking/internal/data/entity"
	"tourism-booking/internal/data/repository"
	"tourism-booking/pkg/utils"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("tourism-booking/sideeffect")

// Runner applies tasks against the repositories. Every effect is
// idempotent per booking, so redelivered tasks are harmless.
type Runner struct {
	referrals repository.ReferralRepository
	loyalty   repository.LoyaltyRepository
	analytics repository.AnalyticsRepository
	carts     repository.CartRepository
	log       *zap.Logger
	now       func() time.Time
}

func NewRunner(repo *repository.Repository, log *zap.Logger) *Runner {
	return &Runner{
		referrals: repo.Referral,
		loyalty:   repo.Loyalty,
		analytics: repo.Analytics,
		carts:     repo.Cart,
		log:       log.With(zap.String("worker", "sideeffect")),
		now:       time.Now,
	}
}

// Run executes one task. A panic inside an effect is turned into an *Error.
func (r *Runner) Run(ctx context.Context, task Task) (err error) {
	ctx, span := tracer.Start(ctx, "sideeffect."+string(task.Kind))
	defer span.End()
	span.SetAttributes(attribute.String("task.id", task.ID.String()))

	var bookingID uuid.UUID
	if task.Booking != nil {
		bookingID = task.Booking.ID
		span.SetAttributes(attribute.String("booking.id", bookingID.String()))
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("PANIC in side effect",
				zap.Any("error", rec),
				zap.String("kind", string(task.Kind)),
				zap.String("task_id", task.ID.String()),
				zap.Stack("stack"),
			)
			err = &Error{Kind: task.Kind, BookingID: bookingID, Err: fmt.Errorf("panic: %v", rec)}
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	if err := task.validate(); err != nil {
		return &Error{Kind: task.Kind, BookingID: bookingID, Err: err}
	}

	switch task.Kind {
	case KindReferralCommission:
		err = r.createCommission(ctx, task)
	case KindLoyaltyCredit:
		err = r.grantCredits(ctx, task)
	case KindRevenueAnalytics:
		err = r.recordRevenue(ctx, task)
	case KindCartPrune:
		err = r.pruneCart(ctx, task)
	}

	if err != nil {
		return &Error{Kind: task.Kind, BookingID: bookingID, Err: err}
	}
	return nil
}

func (r *Runner) createCommission(ctx context.Context, task Task) error {
	booking := task.Booking

	partner, err := r.referrals.FindActivePartnerByCode(ctx, task.ReferralCode)
	if err != nil {
		return err
	}
	if partner == nil {
		r.log.Info("Referral code not eligible for commission",
			zap.String("referral_code", task.ReferralCode),
			zap.String("booking_id", booking.ID.String()),
		)
		return nil
	}

	amount := booking.Pricing.TotalPrice
	commission := &entity.ReferralCommission{
		ID:                   uuid.New(),
		PartnerID:            partner.ID,
		BookingID:            booking.ID,
		ReferralCode:         partner.Code,
		BookingAmount:        amount,
		CommissionPercentage: partner.CommissionPercentage,
		CommissionAmount:     utils.RoundCents(amount * partner.CommissionPercentage / 100),
		Status:               entity.CommissionStatusPending,
		CreatedAt:            r.now(),
	}

	created, err := r.referrals.CreateCommission(ctx, commission)
	if err != nil {
		return err
	}
	if !created {
		r.log.Debug("Commission already recorded", zap.String("booking_id", booking.ID.String()))
		return nil
	}

	r.log.Info("Referral commission created",
		zap.String("booking_id", booking.ID.String()),
		zap.String("partner_id", partner.ID.String()),
		zap.Float64("commission", commission.CommissionAmount),
	)
	return nil
}

func (r *Runner) grantCredits(ctx context.Context, task Task) error {
	booking := task.Booking
	if booking.UserID == nil {
		return nil
	}

	units := task.CreditUnits
	if units <= 0 {
		return nil
	}

	granted, err := r.loyalty.GrantCredits(ctx, &entity.CreditGrant{
		BookingID: booking.ID,
		UserID:    *booking.UserID,
		Units:     units,
		CreatedAt: r.now(),
	})
	if err != nil {
		return err
	}
	if granted {
		r.log.Info("Loyalty credits granted",
			zap.String("booking_id", booking.ID.String()),
			zap.String("user_id", booking.UserID.String()),
			zap.Int64("units", units),
		)
	}
	return nil
}

func (r *Runner) recordRevenue(ctx context.Context, task Task) error {
	action := task.Action
	if action == "" {
		action = entity.RevenueActionCreated
	}

	_, err := r.analytics.RecordRevenueEvent(ctx, &entity.RevenueEvent{
		BookingID:  task.Booking.ID,
		VendorID:   task.Booking.VendorID,
		Action:     action,
		Booking:    task.Booking,
		Previous:   task.Previous,
		OccurredAt: r.now(),
	})
	return err
}

func (r *Runner) pruneCart(ctx context.Context, task Task) error {
	removed, err := r.carts.RemoveItems(ctx, task.CartID, task.CartItemIDs)
	if err != nil {
		return err
	}
	r.log.Info("Cart pruned",
		zap.String("cart_id", task.CartID.String()),
		zap.Int64("removed", removed),
		zap.Int("requested", len(task.CartItemIDs)),
	)
	return nil
}
