package repository

import (
	"context"
	"fmt"

	"tourism-booking/internal/data/entity"
	"tourism-booking/pkg/database"

	"go.uber.org/zap"
)

type LoyaltyRepository interface {
	GrantCredits(ctx context.Context, grant *entity.CreditGrant) (bool, error)
}

type loyaltyRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewLoyaltyRepository(db database.PgxIface, log *zap.Logger) LoyaltyRepository {
	return &loyaltyRepository{
		db:  db,
		log: log.With(zap.String("repository", "loyalty")),
	}
}

// GrantCredits records the grant in the ledger and adds the units to the
// user's balance. A second grant for the same booking is a no-op and
// reports false.
func (r *loyaltyRepository) GrantCredits(ctx context.Context, grant *entity.CreditGrant) (bool, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin credit tx: %w", err)
	}
	defer tx.Rollback(ctx)

	insert := `
		INSERT INTO loyalty_credit_grants (booking_id, user_id, units, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (booking_id) DO NOTHING
	`
	tag, err := tx.Exec(ctx, insert, grant.BookingID, grant.UserID, grant.Units, grant.CreatedAt)
	if err != nil {
		r.log.Error("Failed to record credit grant",
			zap.Error(err),
			zap.String("booking_id", grant.BookingID.String()),
			zap.String("user_id", grant.UserID.String()),
		)
		return false, fmt.Errorf("record credit grant for booking %s: %w", grant.BookingID, err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	update := `UPDATE users SET loyalty_credits = loyalty_credits + $2, updated_at = NOW() WHERE id = $1`
	if _, err := tx.Exec(ctx, update, grant.UserID, grant.Units); err != nil {
		r.log.Error("Failed to credit user",
			zap.Error(err),
			zap.String("user_id", grant.UserID.String()),
			zap.Int64("units", grant.Units),
		)
		return false, fmt.Errorf("credit user %s: %w", grant.UserID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit credit tx: %w", err)
	}
	return true, nil
}
