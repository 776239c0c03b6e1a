package entity

import "github.com/google/uuid"

// Service is a bookable listing (activity, stay, transport fleet, restaurant, spa).
type Service struct {
	Base
	VendorID *uuid.UUID `db:"vendor_id"`
	Category Category   `db:"category"`
	Name     string     `db:"name"`
	IsActive bool       `db:"is_active"`
}

type Vendor struct {
	Base
	Name     string `db:"name"`
	Email    string `db:"email"`
	IsActive bool   `db:"is_active"`
}
