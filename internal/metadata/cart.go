package metadata

import (
	"fmt"
	"unicode/utf8"

	"tourism-booking/internal/data/entity"

	"github.com/google/uuid"
)

// Cart checkout metadata keys. Items are not carried on the payment intent;
// the webhook reads the lines stored under the intent id at checkout.
const (
	FieldCartID       = "cart_id"
	FieldUserID       = "user_id"
	FieldGuestName    = "guest_name"
	FieldGuestEmail   = "guest_email"
	FieldReferralCode = "referral_code"
)

// CartCheckout identifies whose cart was paid for.
type CartCheckout struct {
	CartID       uuid.UUID
	Requester    entity.Requester
	ReferralCode string
}

// EncodeCart builds the payment-intent metadata for a cart checkout.
func EncodeCart(c CartCheckout) (map[string]string, error) {
	if c.CartID == uuid.Nil {
		return nil, fmt.Errorf("%w: cart id is required", ErrEncoding)
	}
	if c.Requester.UserID == nil && (c.Requester.GuestName == "" || c.Requester.GuestEmail == "") {
		return nil, fmt.Errorf("%w: cart checkout needs a user or guest name and email", ErrEncoding)
	}

	fields := map[string]string{
		FieldCheckout:     CheckoutCart,
		FieldCartID:       c.CartID.String(),
		FieldReferralCode: c.ReferralCode,
	}
	if c.Requester.UserID != nil {
		fields[FieldUserID] = c.Requester.UserID.String()
	} else {
		fields[FieldGuestName] = c.Requester.GuestName
		fields[FieldGuestEmail] = c.Requester.GuestEmail
	}

	for k, v := range fields {
		if n := utf8.RuneCountInString(v); n > MaxFieldLength {
			return nil, fmt.Errorf("%w: %s is %d characters, limit %d", ErrEncoding, k, n, MaxFieldLength)
		}
	}
	return fields, nil
}

// DecodeCart reads cart checkout metadata written by EncodeCart.
func DecodeCart(fields map[string]string) (CartCheckout, error) {
	if fields[FieldCheckout] != CheckoutCart {
		return CartCheckout{}, fmt.Errorf("%w: not a cart checkout", ErrDecoding)
	}

	cartID, err := uuid.Parse(fields[FieldCartID])
	if err != nil {
		return CartCheckout{}, fmt.Errorf("%w: invalid cart id %q", ErrDecoding, fields[FieldCartID])
	}

	out := CartCheckout{
		CartID:       cartID,
		ReferralCode: fields[FieldReferralCode],
	}

	if v := fields[FieldUserID]; v != "" {
		userID, err := uuid.Parse(v)
		if err != nil {
			return CartCheckout{}, fmt.Errorf("%w: invalid user id %q", ErrDecoding, v)
		}
		out.Requester.UserID = &userID
		return out, nil
	}

	out.Requester.GuestName = fields[FieldGuestName]
	out.Requester.GuestEmail = fields[FieldGuestEmail]
	if out.Requester.GuestName == "" || out.Requester.GuestEmail == "" {
		return CartCheckout{}, fmt.Errorf("%w: cart checkout has no requester", ErrDecoding)
	}
	return out, nil
}
