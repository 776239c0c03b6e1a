package entity

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

type Category string

const (
	CategoryActivity       Category = "activity"
	CategoryStay           Category = "stay"
	CategoryTransportation Category = "transportation"
	CategoryDining         Category = "dining"
	CategorySpa            Category = "spa"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryActivity, CategoryStay, CategoryTransportation, CategoryDining, CategorySpa:
		return true
	}
	return false
}

// Requester is either a registered user or a guest, never both.
type Requester struct {
	UserID     *uuid.UUID
	GuestName  string
	GuestEmail string
}

func (r Requester) IsGuest() bool {
	return r.UserID == nil
}

func (r Requester) validate() error {
	hasGuest := r.GuestName != "" || r.GuestEmail != ""
	switch {
	case r.UserID != nil && hasGuest:
		return errors.New("requester must be a registered user or a guest, not both")
	case r.UserID == nil && (r.GuestName == "" || r.GuestEmail == ""):
		return errors.New("guest checkout requires name and email")
	}
	return nil
}

type Pricing struct {
	BasePrice float64
	Subtotal  float64
	Total     float64
}

// DraftDetails is the category-specific part of a BookingDraft. The set of
// implementations is closed: ActivityDetails, StayDetails, SpaDetails,
// DiningDetails and TransportationDetails.
type DraftDetails interface {
	Category() Category
	validate() error
}

type TimeSlot struct {
	Start string
	End   string
}

type ActivityDetails struct {
	OptionID string
	Date     string
	Time     string
	Slot     *TimeSlot
}

func (ActivityDetails) Category() Category { return CategoryActivity }

func (d ActivityDetails) validate() error {
	if d.OptionID == "" || d.Date == "" {
		return errors.New("activity requires option and date")
	}
	if d.Time == "" && (d.Slot == nil || d.Slot.Start == "" || d.Slot.End == "") {
		return errors.New("activity requires a time or a time slot")
	}
	return nil
}

type StayDetails struct {
	StartDate string
	EndDate   string
}

func (StayDetails) Category() Category { return CategoryStay }

// EndDate may be empty here; materialization applies the default stay length.
func (d StayDetails) validate() error {
	if d.StartDate == "" {
		return errors.New("stay requires a start date")
	}
	return nil
}

type SpaDetails struct {
	SubServiceID   string
	SubServiceName string
	Date           string
	Time           string
}

func (SpaDetails) Category() Category { return CategorySpa }

func (d SpaDetails) validate() error {
	if d.SubServiceID == "" || d.SubServiceName == "" || d.Date == "" || d.Time == "" {
		return errors.New("spa requires sub-service, sub-service name, date and time")
	}
	return nil
}

type DiningDetails struct {
	Date string
	Time string
}

func (DiningDetails) Category() Category { return CategoryDining }

func (d DiningDetails) validate() error {
	if d.Date == "" || d.Time == "" {
		return errors.New("dining requires date and time")
	}
	return nil
}

type TransportationDetails struct {
	OptionID string
	Date     string
	Time     string
	Pickup   string
	Dropoff  string
}

func (TransportationDetails) Category() Category { return CategoryTransportation }

func (d TransportationDetails) validate() error {
	if d.OptionID == "" || d.Date == "" || d.Time == "" || d.Pickup == "" || d.Dropoff == "" {
		return errors.New("transportation requires option, date, time, pickup and dropoff")
	}
	return nil
}

// BookingDraft is the checkout request exchanged with the payment gateway.
// It is never stored on its own; it only exists to produce a Booking.
type BookingDraft struct {
	Category     Category
	ServiceID    string
	Requester    Requester
	Guests       int
	Pricing      Pricing
	ReferralCode string
	Details      DraftDetails
}

func (d BookingDraft) Validate() error {
	if !d.Category.Valid() {
		return fmt.Errorf("invalid category %q", d.Category)
	}
	if d.ServiceID == "" {
		return errors.New("service reference is required")
	}
	if d.Details == nil {
		return fmt.Errorf("%s booking is missing its details", d.Category)
	}
	if d.Details.Category() != d.Category {
		return fmt.Errorf("details for %s do not match category %s", d.Details.Category(), d.Category)
	}
	if d.Guests < 1 {
		return errors.New("party size must be at least 1")
	}
	if d.Pricing.Total < 0 || d.Pricing.BasePrice < 0 {
		return errors.New("prices must not be negative")
	}
	if err := d.Requester.validate(); err != nil {
		return err
	}
	return d.Details.validate()
}
