package entity

import (
	"time"

	"github.com/google/uuid"
)

// Cart is a user's (or guest session's) persistent multi-item checkout.
type Cart struct {
	BaseNoDelete
	UserID *uuid.UUID `db:"user_id"`
	Items  []CartItem
}

// CartItem carries the draft of one bookable line. Requester and referral
// code live on the checkout, not on the item.
type CartItem struct {
	ID      uuid.UUID `db:"id"`
	CartID  uuid.UUID `db:"cart_id"`
	Draft   BookingDraft
	AddedAt time.Time `db:"added_at"`
}

func (c *Cart) Total() float64 {
	var total float64
	for _, item := range c.Items {
		total += item.Draft.Pricing.Total
	}
	return total
}

// CartCheckout is the cart as it was charged: the lines and total behind one
// payment intent. The webhook books these lines, never the live cart.
type CartCheckout struct {
	TransactionID string    `db:"payment_transaction_id"`
	CartID        uuid.UUID `db:"cart_id"`
	Items         []CartItem
	Amount        float64   `db:"amount"`
	Currency      string    `db:"currency"`
	CreatedAt     time.Time `db:"created_at"`
}

func (c *CartCheckout) Total() float64 {
	var total float64
	for _, item := range c.Items {
		total += item.Draft.Pricing.Total
	}
	return total
}
