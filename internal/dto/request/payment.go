package request

// CreatePaymentIntentRequest is the single-item checkout body. Category
// specific fields are checked again when the draft is built.
type CreatePaymentIntentRequest struct {
	Category  string `json:"category" validate:"required,oneof=activity stay transportation dining spa"`
	ServiceID string `json:"service_id" validate:"required,uuid"`
	Guests    int    `json:"guests" validate:"required,gte=1"`

	BasePrice  float64 `json:"base_price" validate:"gte=0"`
	Subtotal   float64 `json:"subtotal" validate:"gte=0"`
	TotalPrice float64 `json:"total_price" validate:"required,gt=0"`

	// Guest checkout only; ignored for authenticated callers.
	GuestName  string `json:"guest_name" validate:"omitempty,max=120"`
	GuestEmail string `json:"guest_email" validate:"omitempty,email"`

	ReferralCode string `json:"referral_code" validate:"omitempty,max=64"`

	OptionID  string `json:"option_id" validate:"omitempty,max=64"`
	Date      string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Time      string `json:"time" validate:"omitempty,max=16"`
	SlotStart string `json:"slot_start" validate:"omitempty,max=16"`
	SlotEnd   string `json:"slot_end" validate:"omitempty,max=16"`

	StartDate string `json:"start_date" validate:"required_if=Category stay"`
	EndDate   string `json:"end_date" validate:"omitempty,datetime=2006-01-02"`

	SubServiceID   string `json:"sub_service_id" validate:"required_if=Category spa"`
	SubServiceName string `json:"sub_service_name" validate:"required_if=Category spa"`

	PickupLocation  string `json:"pickup_location" validate:"required_if=Category transportation"`
	DropoffLocation string `json:"dropoff_location" validate:"required_if=Category transportation"`
}
