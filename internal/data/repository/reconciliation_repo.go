package repository

import (
	"context"
	"fmt"

	"tourism-booking/internal/data/entity"
	"tourism-booking/pkg/database"

	"go.uber.org/zap"
)

type ReconciliationRepository interface {
	Record(ctx context.Context, record *entity.ReconciliationRecord) error
}

type reconciliationRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewReconciliationRepository(db database.PgxIface, log *zap.Logger) ReconciliationRepository {
	return &reconciliationRepository{
		db:  db,
		log: log.With(zap.String("repository", "reconciliation")),
	}
}

func (r *reconciliationRepository) Record(ctx context.Context, record *entity.ReconciliationRecord) error {
	query := `
		INSERT INTO payment_reconciliations (id, transaction_id, cart_item_id, stage, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.Exec(ctx, query,
		record.ID,
		record.TransactionID,
		record.CartItemID,
		record.Stage,
		record.Reason,
		record.CreatedAt,
	)
	if err != nil {
		r.log.Error("Failed to record reconciliation",
			zap.Error(err),
			zap.String("transaction_id", record.TransactionID),
			zap.String("stage", string(record.Stage)),
		)
		return fmt.Errorf("record reconciliation for %s: %w", record.TransactionID, err)
	}

	return nil
}
