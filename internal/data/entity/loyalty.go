package entity

import (
	"time"

	"github.com/google/uuid"
)

// CreditGrant is one loyalty award; there is at most one per booking.
type CreditGrant struct {
	BookingID uuid.UUID `db:"booking_id"`
	UserID    uuid.UUID `db:"user_id"`
	Units     int64     `db:"units"`
	CreatedAt time.Time `db:"created_at"`
}
