package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"tourism-booking/internal/data/entity"
	"tourism-booking/internal/metadata"
	"tourism-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// CartCheckoutRepository keeps the charged contents of each cart payment
// intent, keyed by the intent id.
type CartCheckoutRepository interface {
	Save(ctx context.Context, checkout *entity.CartCheckout) error
	FindByTransactionID(ctx context.Context, transactionID string) (*entity.CartCheckout, error)
}

type cartCheckoutRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewCartCheckoutRepository(db database.PgxIface, log *zap.Logger) CartCheckoutRepository {
	return &cartCheckoutRepository{
		db:  db,
		log: log.With(zap.String("repository", "cart_checkout")),
	}
}

// checkoutLine is one stored cart line. The draft uses the same compact
// key format as cart_items.draft.
type checkoutLine struct {
	ID      uuid.UUID         `json:"id"`
	AddedAt time.Time         `json:"added_at"`
	Draft   map[string]string `json:"draft"`
}

func (r *cartCheckoutRepository) Save(ctx context.Context, checkout *entity.CartCheckout) error {
	lines := make([]checkoutLine, 0, len(checkout.Items))
	for _, item := range checkout.Items {
		flat, err := metadata.Flatten(item.Draft)
		if err != nil {
			return fmt.Errorf("flatten cart item %s: %w", item.ID, err)
		}
		lines = append(lines, checkoutLine{ID: item.ID, AddedAt: item.AddedAt, Draft: flat})
	}
	items, err := json.Marshal(lines)
	if err != nil {
		return fmt.Errorf("marshal checkout items: %w", err)
	}

	query := `
		INSERT INTO cart_checkouts (payment_transaction_id, cart_id, items, amount, currency, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err = r.db.Exec(ctx, query,
		checkout.TransactionID,
		checkout.CartID,
		items,
		checkout.Amount,
		checkout.Currency,
		checkout.CreatedAt,
	)
	if err != nil {
		r.log.Error("Failed to save cart checkout",
			zap.Error(err),
			zap.String("transaction_id", checkout.TransactionID),
			zap.String("cart_id", checkout.CartID.String()),
		)
		return fmt.Errorf("save cart checkout %s: %w", checkout.TransactionID, err)
	}

	return nil
}

func (r *cartCheckoutRepository) FindByTransactionID(ctx context.Context, transactionID string) (*entity.CartCheckout, error) {
	query := `
		SELECT payment_transaction_id, cart_id, items, amount, currency, created_at
		FROM cart_checkouts
		WHERE payment_transaction_id = $1
	`

	var (
		checkout entity.CartCheckout
		raw      []byte
	)
	err := r.db.QueryRow(ctx, query, transactionID).Scan(
		&checkout.TransactionID,
		&checkout.CartID,
		&raw,
		&checkout.Amount,
		&checkout.Currency,
		&checkout.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find cart checkout",
			zap.Error(err),
			zap.String("transaction_id", transactionID),
		)
		return nil, fmt.Errorf("find cart checkout %s: %w", transactionID, err)
	}

	var lines []checkoutLine
	if err := json.Unmarshal(raw, &lines); err != nil {
		return nil, fmt.Errorf("decode cart checkout %s: %w", transactionID, err)
	}
	for _, line := range lines {
		draft, err := metadata.Unflatten(line.Draft)
		if err != nil {
			// keep the line so the materializer can report it as failed
			r.log.Warn("Checkout line has an unreadable draft",
				zap.Error(err),
				zap.String("transaction_id", transactionID),
				zap.String("cart_item_id", line.ID.String()),
			)
		}
		checkout.Items = append(checkout.Items, entity.CartItem{
			ID:      line.ID,
			CartID:  checkout.CartID,
			Draft:   draft,
			AddedAt: line.AddedAt,
		})
	}

	return &checkout, nil
}
