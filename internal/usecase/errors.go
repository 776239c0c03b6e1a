package usecase

import (
	"errors"
	"fmt"

	"tourism-booking/internal/sideeffect"
)

var (
	ErrCartNotFound = errors.New("cart not found")
	ErrCartEmpty    = errors.New("cart is empty")

	ErrCustomerNotFound = errors.New("customer not found")
)

// SignatureError means the webhook could not be authenticated. The gateway
// is told to retry.
type SignatureError struct {
	Err error
}

func (e *SignatureError) Error() string { return "webhook signature: " + e.Err.Error() }
func (e *SignatureError) Unwrap() error { return e.Err }

// MetadataEncodingError rejects a checkout before any charge is created.
type MetadataEncodingError struct {
	Err error
}

func (e *MetadataEncodingError) Error() string { return "encode booking metadata: " + e.Err.Error() }
func (e *MetadataEncodingError) Unwrap() error { return e.Err }

// MetadataDecodingError means a paid transaction carried metadata that does
// not describe a booking. No booking is created.
type MetadataDecodingError struct {
	TransactionID string
	Err           error
}

func (e *MetadataDecodingError) Error() string {
	return fmt.Sprintf("decode booking metadata of %s: %v", e.TransactionID, e.Err)
}
func (e *MetadataDecodingError) Unwrap() error { return e.Err }

// ResolutionError means the service or its vendor does not exist.
type ResolutionError struct {
	ServiceID string
	Err       error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve service %s: %v", e.ServiceID, e.Err)
}
func (e *ResolutionError) Unwrap() error { return e.Err }

// ValidationError covers both malformed checkout requests (Fields set) and
// drafts that cannot be turned into a booking.
type ValidationError struct {
	Fields map[string]string
	Err    error
}

func (e *ValidationError) Error() string { return "validation failed: " + e.Err.Error() }
func (e *ValidationError) Unwrap() error { return e.Err }

// PersistenceError is a storage failure after the draft was accepted.
type PersistenceError struct {
	TransactionID string
	CartItemID    string
	Err           error
}

func (e *PersistenceError) Error() string {
	if e.CartItemID != "" {
		return fmt.Sprintf("persist booking for %s item %s: %v", e.TransactionID, e.CartItemID, e.Err)
	}
	return fmt.Sprintf("persist booking for %s: %v", e.TransactionID, e.Err)
}
func (e *PersistenceError) Unwrap() error { return e.Err }

// CartCheckoutError means a paid cart payment cannot be matched to what was
// charged: no stored checkout, a different cart, or a different amount.
type CartCheckoutError struct {
	TransactionID string
	CartID        string
	Err           error
}

func (e *CartCheckoutError) Error() string {
	return fmt.Sprintf("cart checkout %s (cart %s): %v", e.TransactionID, e.CartID, e.Err)
}
func (e *CartCheckoutError) Unwrap() error { return e.Err }

// GatewayError is a failed call to the payment gateway.
type GatewayError struct {
	Err error
}

func (e *GatewayError) Error() string { return "payment gateway: " + e.Err.Error() }
func (e *GatewayError) Unwrap() error { return e.Err }

// SideEffectError is logged by the workers and never reaches a payer.
type SideEffectError = sideeffect.Error
