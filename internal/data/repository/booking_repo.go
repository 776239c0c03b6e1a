package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"tourism-booking/internal/data/entity"
	"tourism-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// ErrDuplicateBooking is returned by Create when a booking for the same
// (transaction, cart item) already exists.
var ErrDuplicateBooking = errors.New("booking already exists for transaction")

type BookingRepository interface {
	Create(ctx context.Context, booking *entity.Booking) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error)
	FindByTransactionID(ctx context.Context, transactionID string) ([]*entity.Booking, error)
	FindByTransactionItem(ctx context.Context, transactionID, cartItemID string) (*entity.Booking, error)
}

type bookingRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewBookingRepository(db database.PgxIface, log *zap.Logger) BookingRepository {
	return &bookingRepository{
		db:  db,
		log: log.With(zap.String("repository", "booking")),
	}
}

const bookingColumns = `id, order_id, payment_transaction_id, cart_item_id, category, user_id, guest_name, guest_email,
		service_id, vendor_id, guests, details, status, pricing, payment, referral_code, created_at, updated_at`

func (r *bookingRepository) Create(ctx context.Context, booking *entity.Booking) error {
	details, err := json.Marshal(booking.Details)
	if err != nil {
		return fmt.Errorf("marshal booking details: %w", err)
	}
	pricing, err := json.Marshal(booking.Pricing)
	if err != nil {
		return fmt.Errorf("marshal booking pricing: %w", err)
	}
	payment, err := json.Marshal(booking.Payment)
	if err != nil {
		return fmt.Errorf("marshal booking payment: %w", err)
	}

	query := `
		INSERT INTO bookings (` + bookingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`

	_, err = r.db.Exec(ctx, query,
		booking.ID,
		booking.OrderID,
		booking.TransactionID,
		booking.CartItemID,
		booking.Category,
		booking.UserID,
		booking.GuestName,
		booking.GuestEmail,
		booking.ServiceID,
		booking.VendorID,
		booking.Guests,
		details,
		booking.Status,
		pricing,
		payment,
		booking.ReferralCode,
		booking.CreatedAt,
		booking.UpdatedAt,
	)

	if database.IsUniqueViolation(err) {
		r.log.Info("Booking already materialized",
			zap.String("transaction_id", booking.TransactionID),
			zap.String("cart_item_id", booking.CartItemID),
		)
		return ErrDuplicateBooking
	}
	if err != nil {
		r.log.Error("Failed to create booking",
			zap.Error(err),
			zap.String("order_id", booking.OrderID),
			zap.String("transaction_id", booking.TransactionID),
			zap.String("cart_item_id", booking.CartItemID),
		)
		return fmt.Errorf("create booking %s: %w", booking.OrderID, err)
	}

	return nil
}

func (r *bookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1 AND deleted_at IS NULL`

	booking, err := scanBooking(r.db.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find booking by ID",
			zap.Error(err),
			zap.String("booking_id", id.String()),
		)
		return nil, fmt.Errorf("find booking by ID %s: %w", id.String(), err)
	}

	return booking, nil
}

// FindByTransactionID returns every booking produced by one payment, in
// creation order. An empty slice means the payment has not been materialized.
func (r *bookingRepository) FindByTransactionID(ctx context.Context, transactionID string) ([]*entity.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE payment_transaction_id = $1
		ORDER BY created_at, cart_item_id
	`

	rows, err := r.db.Query(ctx, query, transactionID)
	if err != nil {
		r.log.Error("Failed to find bookings by transaction",
			zap.Error(err),
			zap.String("transaction_id", transactionID),
		)
		return nil, fmt.Errorf("find bookings by transaction %s: %w", transactionID, err)
	}
	defer rows.Close()

	var bookings []*entity.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			r.log.Error("Failed to scan booking row", zap.Error(err))
			return nil, fmt.Errorf("scan booking row: %w", err)
		}
		bookings = append(bookings, booking)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bookings for transaction %s: %w", transactionID, err)
	}

	return bookings, nil
}

func (r *bookingRepository) FindByTransactionItem(ctx context.Context, transactionID, cartItemID string) (*entity.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE payment_transaction_id = $1 AND cart_item_id = $2
	`

	booking, err := scanBooking(r.db.QueryRow(ctx, query, transactionID, cartItemID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find booking by transaction item",
			zap.Error(err),
			zap.String("transaction_id", transactionID),
			zap.String("cart_item_id", cartItemID),
		)
		return nil, fmt.Errorf("find booking %s/%s: %w", transactionID, cartItemID, err)
	}

	return booking, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*entity.Booking, error) {
	var (
		booking                   entity.Booking
		details, pricing, payment []byte
	)

	err := row.Scan(
		&booking.ID,
		&booking.OrderID,
		&booking.TransactionID,
		&booking.CartItemID,
		&booking.Category,
		&booking.UserID,
		&booking.GuestName,
		&booking.GuestEmail,
		&booking.ServiceID,
		&booking.VendorID,
		&booking.Guests,
		&details,
		&booking.Status,
		&pricing,
		&payment,
		&booking.ReferralCode,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(details, &booking.Details); err != nil {
		return nil, fmt.Errorf("decode booking details: %w", err)
	}
	if err := json.Unmarshal(pricing, &booking.Pricing); err != nil {
		return nil, fmt.Errorf("decode booking pricing: %w", err)
	}
	if err := json.Unmarshal(payment, &booking.Payment); err != nil {
		return nil, fmt.Errorf("decode booking payment: %w", err)
	}

	return &booking, nil
}
