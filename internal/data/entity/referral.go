package entity

import (
	"time"

	"github.com/google/uuid"
)

type PartnerStatus string

const (
	PartnerStatusPending   PartnerStatus = "pending"
	PartnerStatusApproved  PartnerStatus = "approved"
	PartnerStatusRejected  PartnerStatus = "rejected"
	PartnerStatusSuspended PartnerStatus = "suspended"
)

type ReferralPartner struct {
	Base
	Code                 string        `db:"code"`
	Name                 string        `db:"name"`
	CommissionPercentage float64       `db:"commission_percentage"`
	Status               PartnerStatus `db:"status"`
	IsActive             bool          `db:"is_active"`
	TotalReferrals       int           `db:"total_referrals"`
	TotalCommission      float64       `db:"total_commission"`
}

type CommissionStatus string

const (
	CommissionStatusPending   CommissionStatus = "pending"
	CommissionStatusApproved  CommissionStatus = "approved"
	CommissionStatusPaid      CommissionStatus = "paid"
	CommissionStatusCancelled CommissionStatus = "cancelled"
)

// ReferralCommission is unique per booking.
type ReferralCommission struct {
	ID                   uuid.UUID        `db:"id"`
	PartnerID            uuid.UUID        `db:"partner_id"`
	BookingID            uuid.UUID        `db:"booking_id"`
	ReferralCode         string           `db:"referral_code"`
	BookingAmount        float64          `db:"booking_amount"`
	CommissionPercentage float64          `db:"commission_percentage"`
	CommissionAmount     float64          `db:"commission_amount"`
	Status               CommissionStatus `db:"status"`
	CreatedAt            time.Time        `db:"created_at"`
}
