// Package gateway wraps the Stripe API behind the two calls the booking
// pipeline needs: creating a payment intent and reading a signed webhook.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

const EventPaymentSucceeded = "payment_intent.succeeded"

var (
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrMalformedEvent   = errors.New("malformed webhook event")
)

type IntentRequest struct {
	AmountMinor  int64
	Currency     string
	Description  string
	ReceiptEmail string
	Metadata     map[string]string
}

type Intent struct {
	ID           string
	ClientSecret string
	AmountMinor  int64
	Currency     string
}

// Payment is the part of a succeeded payment intent the pipeline reads.
type Payment struct {
	TransactionID string
	AmountMinor   int64
	Currency      string
	Method        string
	Metadata      map[string]string
}

type Event struct {
	ID      string
	Type    string
	Payment *Payment
}

type Stripe struct {
	api           *client.API
	webhookSecret string
	tolerance     time.Duration
}

// NewStripe builds the client. backends may be nil; tests pass one that
// points at a local server.
func NewStripe(secretKey, webhookSecret string, backends *stripe.Backends) *Stripe {
	return &Stripe{
		api:           client.New(secretKey, backends),
		webhookSecret: webhookSecret,
		tolerance:     webhook.DefaultTolerance,
	}
}

func (s *Stripe) CreatePaymentIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.AmountMinor),
		Currency: stripe.String(req.Currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	if req.Description != "" {
		params.Description = stripe.String(req.Description)
	}
	if req.ReceiptEmail != "" {
		params.ReceiptEmail = stripe.String(req.ReceiptEmail)
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	params.Context = ctx

	pi, err := s.api.PaymentIntents.New(params)
	if err != nil {
		return nil, fmt.Errorf("create payment intent: %w", err)
	}

	return &Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		AmountMinor:  pi.Amount,
		Currency:     string(pi.Currency),
	}, nil
}

// ParseEvent verifies the Stripe-Signature header before looking at the
// body. Only payment_intent.succeeded events carry a Payment.
func (s *Stripe) ParseEvent(payload []byte, signature string) (*Event, error) {
	if err := webhook.ValidatePayloadWithTolerance(payload, signature, s.webhookSecret, s.tolerance); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	var evt stripe.Event
	if err := json.Unmarshal(payload, &evt); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	out := &Event{ID: evt.ID, Type: string(evt.Type)}
	if out.Type != EventPaymentSucceeded {
		return out, nil
	}
	if evt.Data == nil {
		return nil, fmt.Errorf("%w: event %s has no data", ErrMalformedEvent, evt.ID)
	}

	var pi stripe.PaymentIntent
	if err := json.Unmarshal(evt.Data.Raw, &pi); err != nil {
		return nil, fmt.Errorf("%w: payment intent: %v", ErrMalformedEvent, err)
	}
	if pi.ID == "" {
		return nil, fmt.Errorf("%w: event %s has no payment intent id", ErrMalformedEvent, evt.ID)
	}

	amount := pi.AmountReceived
	if amount == 0 {
		amount = pi.Amount
	}
	method := "card"
	if len(pi.PaymentMethodTypes) > 0 {
		method = pi.PaymentMethodTypes[0]
	}

	out.Payment = &Payment{
		TransactionID: pi.ID,
		AmountMinor:   amount,
		Currency:      string(pi.Currency),
		Method:        method,
		Metadata:      pi.Metadata,
	}
	return out, nil
}
