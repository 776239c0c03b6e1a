package request

// CreateCartPaymentIntentRequest checks out a whole cart. Authenticated
// callers may omit CartID; their own cart is used.
type CreateCartPaymentIntentRequest struct {
	CartID       string `json:"cart_id" validate:"omitempty,uuid"`
	GuestName    string `json:"guest_name" validate:"omitempty,max=120"`
	GuestEmail   string `json:"guest_email" validate:"omitempty,email"`
	ReferralCode string `json:"referral_code" validate:"omitempty,max=64"`
}
