package repository

import (
	"context"
	"fmt"

	"tourism-booking/internal/data/entity"
	"tourism-booking/pkg/database"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type ReferralRepository interface {
	FindActivePartnerByCode(ctx context.Context, code string) (*entity.ReferralPartner, error)
	CreateCommission(ctx context.Context, commission *entity.ReferralCommission) (bool, error)
}

type referralRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewReferralRepository(db database.PgxIface, log *zap.Logger) ReferralRepository {
	return &referralRepository{
		db:  db,
		log: log.With(zap.String("repository", "referral")),
	}
}

// FindActivePartnerByCode returns nil when the code is unknown or the
// partner is not both approved and active.
func (r *referralRepository) FindActivePartnerByCode(ctx context.Context, code string) (*entity.ReferralPartner, error) {
	query := `
		SELECT id, code, name, commission_percentage, status, is_active,
		       total_referrals, total_commission, created_at, updated_at
		FROM referral_partners
		WHERE code = $1 AND status = $2 AND is_active = TRUE AND deleted_at IS NULL
	`

	var partner entity.ReferralPartner
	err := r.db.QueryRow(ctx, query, code, entity.PartnerStatusApproved).Scan(
		&partner.ID,
		&partner.Code,
		&partner.Name,
		&partner.CommissionPercentage,
		&partner.Status,
		&partner.IsActive,
		&partner.TotalReferrals,
		&partner.TotalCommission,
		&partner.CreatedAt,
		&partner.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find referral partner",
			zap.Error(err),
			zap.String("referral_code", code),
		)
		return nil, fmt.Errorf("find referral partner %s: %w", code, err)
	}

	return &partner, nil
}

// CreateCommission inserts the commission and bumps the partner counters in
// one transaction. It reports false, with no changes, when the booking
// already has a commission.
func (r *referralRepository) CreateCommission(ctx context.Context, c *entity.ReferralCommission) (bool, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin commission tx: %w", err)
	}
	defer tx.Rollback(ctx)

	insert := `
		INSERT INTO referral_commissions (id, partner_id, booking_id, referral_code, booking_amount,
		                                  commission_percentage, commission_amount, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (booking_id) DO NOTHING
	`

	tag, err := tx.Exec(ctx, insert,
		c.ID,
		c.PartnerID,
		c.BookingID,
		c.ReferralCode,
		c.BookingAmount,
		c.CommissionPercentage,
		c.CommissionAmount,
		c.Status,
		c.CreatedAt,
	)
	if err != nil {
		r.log.Error("Failed to create commission",
			zap.Error(err),
			zap.String("booking_id", c.BookingID.String()),
			zap.String("referral_code", c.ReferralCode),
		)
		return false, fmt.Errorf("create commission for booking %s: %w", c.BookingID, err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	update := `
		UPDATE referral_partners
		SET total_referrals = total_referrals + 1,
		    total_commission = total_commission + $2,
		    updated_at = NOW()
		WHERE id = $1
	`
	if _, err := tx.Exec(ctx, update, c.PartnerID, c.CommissionAmount); err != nil {
		r.log.Error("Failed to update partner counters",
			zap.Error(err),
			zap.String("partner_id", c.PartnerID.String()),
		)
		return false, fmt.Errorf("update partner %s counters: %w", c.PartnerID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit commission tx: %w", err)
	}
	return true, nil
}
