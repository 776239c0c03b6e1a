package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"tourism-booking/internal/data/entity"
	"tourism-booking/internal/metadata"
	"tourism-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type CartRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Cart, error)
	FindByUserID(ctx context.Context, userID uuid.UUID) (*entity.Cart, error)
	RemoveItems(ctx context.Context, cartID uuid.UUID, itemIDs []uuid.UUID) (int64, error)
}

type cartRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewCartRepository(db database.PgxIface, log *zap.Logger) CartRepository {
	return &cartRepository{
		db:  db,
		log: log.With(zap.String("repository", "cart")),
	}
}

func (r *cartRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Cart, error) {
	query := `SELECT id, user_id, created_at, updated_at FROM carts WHERE id = $1`
	return r.findOne(ctx, query, id)
}

func (r *cartRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*entity.Cart, error) {
	query := `SELECT id, user_id, created_at, updated_at FROM carts WHERE user_id = $1`
	return r.findOne(ctx, query, userID)
}

func (r *cartRepository) findOne(ctx context.Context, query string, arg uuid.UUID) (*entity.Cart, error) {
	var cart entity.Cart
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&cart.ID,
		&cart.UserID,
		&cart.CreatedAt,
		&cart.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find cart",
			zap.Error(err),
			zap.String("key", arg.String()),
		)
		return nil, fmt.Errorf("find cart %s: %w", arg.String(), err)
	}

	items, err := r.findItems(ctx, cart.ID)
	if err != nil {
		return nil, err
	}
	cart.Items = items

	return &cart, nil
}

// findItems loads the cart lines in insertion order. Drafts are stored in
// the same compact key format used for payment metadata.
func (r *cartRepository) findItems(ctx context.Context, cartID uuid.UUID) ([]entity.CartItem, error) {
	query := `
		SELECT id, cart_id, draft, added_at
		FROM cart_items
		WHERE cart_id = $1
		ORDER BY added_at, id
	`

	rows, err := r.db.Query(ctx, query, cartID)
	if err != nil {
		r.log.Error("Failed to load cart items",
			zap.Error(err),
			zap.String("cart_id", cartID.String()),
		)
		return nil, fmt.Errorf("load cart items %s: %w", cartID.String(), err)
	}
	defer rows.Close()

	var items []entity.CartItem
	for rows.Next() {
		var (
			item entity.CartItem
			raw  []byte
		)
		if err := rows.Scan(&item.ID, &item.CartID, &raw, &item.AddedAt); err != nil {
			r.log.Error("Failed to scan cart item row", zap.Error(err))
			return nil, fmt.Errorf("scan cart item row: %w", err)
		}

		var flat map[string]string
		if err := json.Unmarshal(raw, &flat); err != nil {
			return nil, fmt.Errorf("decode cart item %s: %w", item.ID, err)
		}
		draft, err := metadata.Unflatten(flat)
		if err != nil {
			// keep the line so the materializer can report it as failed
			r.log.Warn("Cart item has an unreadable draft",
				zap.Error(err),
				zap.String("cart_item_id", item.ID.String()),
			)
		}
		item.Draft = draft
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cart items %s: %w", cartID.String(), err)
	}

	return items, nil
}

// RemoveItems deletes the given lines from the cart. Ids that are already
// gone are ignored, so repeating the call is harmless.
func (r *cartRepository) RemoveItems(ctx context.Context, cartID uuid.UUID, itemIDs []uuid.UUID) (int64, error) {
	if len(itemIDs) == 0 {
		return 0, nil
	}

	query := `DELETE FROM cart_items WHERE cart_id = $1 AND id = ANY($2)`

	tag, err := r.db.Exec(ctx, query, cartID, itemIDs)
	if err != nil {
		r.log.Error("Failed to prune cart",
			zap.Error(err),
			zap.String("cart_id", cartID.String()),
			zap.Int("items", len(itemIDs)),
		)
		return 0, fmt.Errorf("prune cart %s: %w", cartID.String(), err)
	}

	if tag.RowsAffected() > 0 {
		if _, err := r.db.Exec(ctx, `UPDATE carts SET updated_at = NOW() WHERE id = $1`, cartID); err != nil {
			r.log.Warn("Failed to touch cart after prune", zap.Error(err), zap.String("cart_id", cartID.String()))
		}
	}

	return tag.RowsAffected(), nil
}
