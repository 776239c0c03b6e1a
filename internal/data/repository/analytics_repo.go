package repository

import (
	"context"
	"fmt"

	"tourism-booking/internal/data/entity"
	"tourism-booking/pkg/database"

	"go.uber.org/zap"
)

type AnalyticsRepository interface {
	RecordRevenueEvent(ctx context.Context, event *entity.RevenueEvent) (bool, error)
}

type analyticsRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewAnalyticsRepository(db database.PgxIface, log *zap.Logger) AnalyticsRepository {
	return &analyticsRepository{
		db:  db,
		log: log.With(zap.String("repository", "analytics")),
	}
}

// RecordRevenueEvent stores the event once per (booking, action) and folds
// it into the vendor's daily totals.
func (r *analyticsRepository) RecordRevenueEvent(ctx context.Context, event *entity.RevenueEvent) (bool, error) {
	amount := revenueAmount(event)

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin revenue tx: %w", err)
	}
	defer tx.Rollback(ctx)

	insert := `
		INSERT INTO revenue_events (booking_id, action, vendor_id, amount, occurred_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (booking_id, action) DO NOTHING
	`
	tag, err := tx.Exec(ctx, insert, event.BookingID, event.Action, event.VendorID, amount, event.OccurredAt)
	if err != nil {
		r.log.Error("Failed to record revenue event",
			zap.Error(err),
			zap.String("booking_id", event.BookingID.String()),
			zap.String("action", string(event.Action)),
		)
		return false, fmt.Errorf("record revenue event %s/%s: %w", event.BookingID, event.Action, err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	var bookings, cancelled, completed int
	var gross, cancelledValue float64
	switch event.Action {
	case entity.RevenueActionCreated:
		bookings, gross = 1, amount
	case entity.RevenueActionCancelled:
		cancelled, cancelledValue = 1, amount
	case entity.RevenueActionCompleted:
		completed = 1
	}

	upsert := `
		INSERT INTO revenue_daily (vendor_id, day, bookings, gross_revenue, cancelled, cancelled_value, completed)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (vendor_id, day) DO UPDATE SET
			bookings = revenue_daily.bookings + EXCLUDED.bookings,
			gross_revenue = revenue_daily.gross_revenue + EXCLUDED.gross_revenue,
			cancelled = revenue_daily.cancelled + EXCLUDED.cancelled,
			cancelled_value = revenue_daily.cancelled_value + EXCLUDED.cancelled_value,
			completed = revenue_daily.completed + EXCLUDED.completed
	`
	day := event.OccurredAt.UTC().Format("2006-01-02")
	if _, err := tx.Exec(ctx, upsert, event.VendorID, day, bookings, gross, cancelled, cancelledValue, completed); err != nil {
		r.log.Error("Failed to update daily revenue",
			zap.Error(err),
			zap.String("vendor_id", event.VendorID.String()),
			zap.String("day", day),
		)
		return false, fmt.Errorf("update daily revenue for vendor %s: %w", event.VendorID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit revenue tx: %w", err)
	}
	return true, nil
}

// revenueAmount prefers the current snapshot and falls back to the previous
// one for events about bookings that no longer carry a price.
func revenueAmount(event *entity.RevenueEvent) float64 {
	if event.Booking != nil && event.Booking.Pricing.TotalPrice > 0 {
		return event.Booking.Pricing.TotalPrice
	}
	if event.Previous != nil {
		return event.Previous.Pricing.TotalPrice
	}
	return 0
}
