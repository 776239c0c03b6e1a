package entity

import (
	"github.com/google/uuid"
)

type BookingStatus string

const (
	BookingStatusPending    BookingStatus = "pending"
	BookingStatusConfirmed  BookingStatus = "confirmed"
	BookingStatusInProgress BookingStatus = "in-progress"
	BookingStatusCompleted  BookingStatus = "completed"
	BookingStatusCancelled  BookingStatus = "cancelled"
	BookingStatusNoShow     BookingStatus = "no-show"
	BookingStatusReviewed   BookingStatus = "reviewed"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

// Booking is the durable record produced from a confirmed payment.
// (TransactionID, CartItemID) is unique; CartItemID is empty for
// single-item checkouts.
type Booking struct {
	Base
	OrderID       string          `db:"order_id" json:"order_id"`
	TransactionID string          `db:"payment_transaction_id" json:"transaction_id"`
	CartItemID    string          `db:"cart_item_id" json:"cart_item_id,omitempty"`
	Category      Category        `db:"category" json:"category"`
	UserID        *uuid.UUID      `db:"user_id" json:"user_id,omitempty"`
	GuestName     *string         `db:"guest_name" json:"guest_name,omitempty"`
	GuestEmail    *string         `db:"guest_email" json:"guest_email,omitempty"`
	ServiceID     uuid.UUID       `db:"service_id" json:"service_id"`
	VendorID      uuid.UUID       `db:"vendor_id" json:"vendor_id"`
	Guests        int             `db:"guests" json:"guests"`
	Details       BookingDetails  `db:"details" json:"details"`
	Status        BookingStatus   `db:"status" json:"status"`
	Pricing       PricingSnapshot `db:"pricing" json:"pricing"`
	Payment       PaymentSnapshot `db:"payment" json:"payment"`
	ReferralCode  *string         `db:"referral_code" json:"referral_code,omitempty"`
}

// BookingDetails holds exactly one category block.
type BookingDetails struct {
	Activity       *ActivitySlot       `json:"activity,omitempty"`
	Stay           *StayPeriod         `json:"stay,omitempty"`
	Spa            *SpaAppointment     `json:"spa,omitempty"`
	Dining         *DiningReservation  `json:"dining,omitempty"`
	Transportation *TransportationTrip `json:"transportation,omitempty"`
}

type ActivitySlot struct {
	OptionID  string `json:"option_id"`
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time,omitempty"`
}

type StayPeriod struct {
	CheckIn  string `json:"check_in"`
	CheckOut string `json:"check_out"`
	Nights   int    `json:"nights"`
	// EndDateDefaulted marks stays whose check-out was not supplied.
	EndDateDefaulted bool `json:"end_date_defaulted,omitempty"`
}

type SpaAppointment struct {
	SubServiceID   string `json:"sub_service_id"`
	SubServiceName string `json:"sub_service_name"`
	Date           string `json:"date"`
	Time           string `json:"time"`
}

type DiningReservation struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

type TransportationTrip struct {
	OptionID        string `json:"option_id"`
	PickupDate      string `json:"pickup_date"`
	PickupTime      string `json:"pickup_time"`
	PickupLocation  string `json:"pickup_location"`
	DropoffLocation string `json:"dropoff_location"`
}

type PricingSnapshot struct {
	BasePrice  float64 `json:"base_price"`
	Subtotal   float64 `json:"subtotal"`
	TotalPrice float64 `json:"total_price"`
	Currency   string  `json:"currency"`
}

type PaymentSnapshot struct {
	Method        string        `json:"method"`
	Status        PaymentStatus `json:"status"`
	TransactionID string        `json:"transaction_id"`
	AmountPaid    float64       `json:"amount_paid"`
}
