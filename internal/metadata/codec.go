// Package metadata packs booking drafts into payment-intent metadata and
// back. The gateway limits every metadata value to 500 characters, so a
// draft that does not fit in one field is split into a category-independent
// "basic" field and a "service" field that the decoder merges again.
package metadata

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"unicode/utf8"

	"tourism-booking/internal/data/entity"

	"github.com/google/uuid"
)

// MaxFieldLength is the gateway's per-value metadata ceiling, in characters.
const MaxFieldLength = 500

// Metadata field names on the payment intent.
const (
	FieldCheckout = "checkout"
	FieldBooking  = "booking"
	FieldBasic    = "booking_basic"
	FieldService  = "booking_service"

	CheckoutSingle = "single"
	CheckoutCart   = "cart"
)

var (
	ErrEncoding = errors.New("metadata encoding failed")
	ErrDecoding = errors.New("metadata decoding failed")
)

// Compact keys of the flat draft map.
const (
	keyCategory       = "c"
	keyUserID         = "u"
	keyGuestName      = "gn"
	keyGuestEmail     = "ge"
	keyGuests         = "n"
	keyBasePrice      = "bp"
	keySubtotal       = "sp"
	keyTotalPrice     = "tp"
	keyReferral       = "rc"
	keyService        = "s"
	keyOption         = "o"
	keyDate           = "d"
	keyTime           = "t"
	keySlotStart      = "ts"
	keySlotEnd        = "te"
	keyStartDate      = "sd"
	keyEndDate        = "ed"
	keySubService     = "ss"
	keySubServiceName = "sn"
	keyPickup         = "pu"
	keyDropoff        = "do"
)

// basicKeys are the category-independent keys that go into FieldBasic
// when a draft has to be split.
var basicKeys = map[string]bool{
	keyCategory:   true,
	keyUserID:     true,
	keyGuestName:  true,
	keyGuestEmail: true,
	keyGuests:     true,
	keyBasePrice:  true,
	keySubtotal:   true,
	keyTotalPrice: true,
	keyReferral:   true,
}

// Encoded is the result of Encode: either one combined payload or a
// basic/service pair.
type Encoded struct {
	Combined string
	Basic    string
	Service  string
}

func (e Encoded) IsSplit() bool {
	return e.Combined == ""
}

// Fields returns the metadata entries to attach to a single-item payment
// intent, including the checkout discriminator.
func (e Encoded) Fields() map[string]string {
	fields := map[string]string{FieldCheckout: CheckoutSingle}
	if e.IsSplit() {
		fields[FieldBasic] = e.Basic
		fields[FieldService] = e.Service
	} else {
		fields[FieldBooking] = e.Combined
	}
	return fields
}

// Encode validates the draft and serializes it, splitting into two fields
// when the combined payload exceeds MaxFieldLength.
func Encode(draft entity.BookingDraft) (Encoded, error) {
	flat, err := Flatten(draft)
	if err != nil {
		return Encoded{}, err
	}

	combined, err := marshal(flat)
	if err != nil {
		return Encoded{}, err
	}
	if utf8.RuneCountInString(combined) <= MaxFieldLength {
		return Encoded{Combined: combined}, nil
	}

	basic := make(map[string]string)
	service := make(map[string]string)
	for k, v := range flat {
		if basicKeys[k] {
			basic[k] = v
		} else {
			service[k] = v
		}
	}

	basicJSON, err := marshal(basic)
	if err != nil {
		return Encoded{}, err
	}
	serviceJSON, err := marshal(service)
	if err != nil {
		return Encoded{}, err
	}
	if n := utf8.RuneCountInString(basicJSON); n > MaxFieldLength {
		return Encoded{}, fmt.Errorf("%w: basic payload is %d characters, limit %d", ErrEncoding, n, MaxFieldLength)
	}
	if n := utf8.RuneCountInString(serviceJSON); n > MaxFieldLength {
		return Encoded{}, fmt.Errorf("%w: service payload is %d characters, limit %d", ErrEncoding, n, MaxFieldLength)
	}

	return Encoded{Basic: basicJSON, Service: serviceJSON}, nil
}

// Decode accepts payment-intent metadata in either format and returns the
// validated draft.
func Decode(fields map[string]string) (entity.BookingDraft, error) {
	flat := make(map[string]string)

	if combined, ok := fields[FieldBooking]; ok {
		if err := unmarshal(combined, flat); err != nil {
			return entity.BookingDraft{}, err
		}
	} else {
		basic, hasBasic := fields[FieldBasic]
		service, hasService := fields[FieldService]
		switch {
		case !hasBasic && !hasService:
			return entity.BookingDraft{}, fmt.Errorf("%w: no booking metadata on payment", ErrDecoding)
		case !hasBasic || !hasService:
			return entity.BookingDraft{}, fmt.Errorf("%w: split metadata is missing one half", ErrDecoding)
		}

		if err := unmarshal(service, flat); err != nil {
			return entity.BookingDraft{}, err
		}
		// basic wins on overlap; it owns the category-independent keys
		if err := unmarshal(basic, flat); err != nil {
			return entity.BookingDraft{}, err
		}
	}

	draft, err := Unflatten(flat)
	if err != nil {
		return entity.BookingDraft{}, err
	}
	if err := draft.Validate(); err != nil {
		return entity.BookingDraft{}, fmt.Errorf("%w: %v", ErrDecoding, err)
	}
	return draft, nil
}

// Flatten validates the draft and maps it onto compact keys. Keys that do
// not apply to the draft's category are left out.
func Flatten(draft entity.BookingDraft) (map[string]string, error) {
	if err := draft.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncoding, err)
	}
	return flattenFields(draft), nil
}

func flattenFields(draft entity.BookingDraft) map[string]string {
	flat := map[string]string{
		keyCategory:   string(draft.Category),
		keyService:    draft.ServiceID,
		keyGuests:     strconv.Itoa(draft.Guests),
		keyBasePrice:  formatAmount(draft.Pricing.BasePrice),
		keyTotalPrice: formatAmount(draft.Pricing.Total),
		keyReferral:   draft.ReferralCode,
	}
	if draft.Pricing.Subtotal != 0 {
		flat[keySubtotal] = formatAmount(draft.Pricing.Subtotal)
	}

	if draft.Requester.UserID != nil {
		flat[keyUserID] = draft.Requester.UserID.String()
	}
	putIfSet(flat, keyGuestName, draft.Requester.GuestName)
	putIfSet(flat, keyGuestEmail, draft.Requester.GuestEmail)

	switch d := draft.Details.(type) {
	case entity.ActivityDetails:
		flat[keyOption] = d.OptionID
		flat[keyDate] = d.Date
		putIfSet(flat, keyTime, d.Time)
		if d.Slot != nil {
			putIfSet(flat, keySlotStart, d.Slot.Start)
			putIfSet(flat, keySlotEnd, d.Slot.End)
		}
	case entity.StayDetails:
		flat[keyStartDate] = d.StartDate
		putIfSet(flat, keyEndDate, d.EndDate)
	case entity.SpaDetails:
		flat[keySubService] = d.SubServiceID
		flat[keySubServiceName] = d.SubServiceName
		flat[keyDate] = d.Date
		flat[keyTime] = d.Time
	case entity.DiningDetails:
		flat[keyDate] = d.Date
		flat[keyTime] = d.Time
	case entity.TransportationDetails:
		flat[keyOption] = d.OptionID
		flat[keyDate] = d.Date
		flat[keyTime] = d.Time
		flat[keyPickup] = d.Pickup
		flat[keyDropoff] = d.Dropoff
	}

	return flat
}

// Unflatten rebuilds a draft from compact keys. It checks the shape (a
// known category, parseable numbers and ids) but not completeness; callers
// run Validate when the draft must be bookable.
func Unflatten(flat map[string]string) (entity.BookingDraft, error) {
	raw, ok := flat[keyCategory]
	if !ok || raw == "" {
		return entity.BookingDraft{}, fmt.Errorf("%w: missing category", ErrDecoding)
	}
	category := entity.Category(raw)
	if !category.Valid() {
		return entity.BookingDraft{}, fmt.Errorf("%w: unknown category %q", ErrDecoding, raw)
	}

	draft := entity.BookingDraft{
		Category:     category,
		ServiceID:    flat[keyService],
		ReferralCode: flat[keyReferral],
		Requester: entity.Requester{
			GuestName:  flat[keyGuestName],
			GuestEmail: flat[keyGuestEmail],
		},
	}

	if v := flat[keyUserID]; v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return entity.BookingDraft{}, fmt.Errorf("%w: invalid user id %q", ErrDecoding, v)
		}
		draft.Requester.UserID = &id
	}

	var err error
	if draft.Guests, err = parseInt(flat, keyGuests); err != nil {
		return entity.BookingDraft{}, err
	}
	if draft.Pricing.BasePrice, err = parseAmount(flat, keyBasePrice); err != nil {
		return entity.BookingDraft{}, err
	}
	if draft.Pricing.Subtotal, err = parseAmount(flat, keySubtotal); err != nil {
		return entity.BookingDraft{}, err
	}
	if draft.Pricing.Total, err = parseAmount(flat, keyTotalPrice); err != nil {
		return entity.BookingDraft{}, err
	}

	switch category {
	case entity.CategoryActivity:
		d := entity.ActivityDetails{
			OptionID: flat[keyOption],
			Date:     flat[keyDate],
			Time:     flat[keyTime],
		}
		if flat[keySlotStart] != "" || flat[keySlotEnd] != "" {
			d.Slot = &entity.TimeSlot{Start: flat[keySlotStart], End: flat[keySlotEnd]}
		}
		draft.Details = d
	case entity.CategoryStay:
		draft.Details = entity.StayDetails{
			StartDate: flat[keyStartDate],
			EndDate:   flat[keyEndDate],
		}
	case entity.CategorySpa:
		draft.Details = entity.SpaDetails{
			SubServiceID:   flat[keySubService],
			SubServiceName: flat[keySubServiceName],
			Date:           flat[keyDate],
			Time:           flat[keyTime],
		}
	case entity.CategoryDining:
		draft.Details = entity.DiningDetails{
			Date: flat[keyDate],
			Time: flat[keyTime],
		}
	case entity.CategoryTransportation:
		draft.Details = entity.TransportationDetails{
			OptionID: flat[keyOption],
			Date:     flat[keyDate],
			Time:     flat[keyTime],
			Pickup:   flat[keyPickup],
			Dropoff:  flat[keyDropoff],
		}
	}

	return draft, nil
}

func putIfSet(m map[string]string, key, value string) {
	if value != "" {
		m[key] = value
	}
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func parseAmount(flat map[string]string, key string) (float64, error) {
	v, ok := flat[key]
	if !ok || v == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid amount %s=%q", ErrDecoding, key, v)
	}
	return f, nil
}

func parseInt(flat map[string]string, key string) (int, error) {
	v, ok := flat[key]
	if !ok || v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid number %s=%q", ErrDecoding, key, v)
	}
	return n, nil
}

// marshal writes compact JSON without HTML escaping so the character count
// matches what the gateway stores.
func marshal(m map[string]string) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(m); err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncoding, err)
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

func unmarshal(s string, into map[string]string) error {
	if err := json.Unmarshal([]byte(s), &into); err != nil {
		return fmt.Errorf("%w: malformed payload: %v", ErrDecoding, err)
	}
	return nil
}
