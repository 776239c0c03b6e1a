package entity

import (
	"time"

	"github.com/google/uuid"
)

type RevenueAction string

const (
	RevenueActionCreated   RevenueAction = "created"
	RevenueActionCancelled RevenueAction = "cancelled"
	RevenueActionCompleted RevenueAction = "completed"
)

// RevenueEvent feeds the vendor revenue aggregates. Previous is the booking
// as it was before a status change, when there is one.
type RevenueEvent struct {
	BookingID  uuid.UUID
	VendorID   uuid.UUID
	Action     RevenueAction
	Booking    *Booking
	Previous   *Booking
	OccurredAt time.Time
}
