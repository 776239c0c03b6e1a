package wire

import (
	"tourism-booking/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

func wireWebhook(r chi.Router, webhookHandler *adaptor.WebhookHandler) {
	// authenticated by the Stripe-Signature header, not by JWT
	r.Post("/stripe-webhook", webhookHandler.Stripe)
}
