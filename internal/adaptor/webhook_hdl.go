package adaptor

import (
	"context"
	"errors"
	"io"
	"net/http"

	"tourism-booking/internal/dto/response"
	"tourism-booking/internal/usecase"
	"tourism-booking/pkg/utils"

	"go.uber.org/zap"
)

const (
	maxWebhookBody  = 64 << 10
	signatureHeader = "Stripe-Signature"
)

type WebhookHandler struct {
	service usecase.WebhookService
	log     *zap.Logger
}

func NewWebhookHandler(service usecase.WebhookService, log *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		service: service,
		log:     log.With(zap.String("handler", "webhook")),
	}
}

// Stripe handles POST /stripe-webhook. The body must be read raw: the
// signature covers the exact bytes.
func (h *WebhookHandler) Stripe(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		h.log.Warn("Webhook body unreadable", zap.Error(err))
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	// processing must finish even if the gateway hangs up
	ctx := context.WithoutCancel(r.Context())

	result, err := h.service.Process(ctx, payload, r.Header.Get(signatureHeader))
	if err != nil {
		var sigErr *usecase.SignatureError
		if errors.As(err, &sigErr) {
			utils.ResponseBadRequest(w, "Invalid signature", nil)
			return
		}
		utils.ResponseBadRequest(w, "Invalid webhook event", nil)
		return
	}

	if result.Outcome == usecase.OutcomeBusinessFailure {
		h.log.Error("Webhook acknowledged with business failure",
			zap.Error(result.Err),
			zap.String("event_id", result.EventID),
			zap.String("transaction_id", result.TransactionID),
			zap.Int("bookings", len(result.Bookings)),
			zap.Int("failed_items", len(result.Failed)),
		)
	}

	utils.ResponseSuccess(w, "success", response.WebhookResponse{
		Received: true,
		Outcome:  string(result.Outcome),
	})
}
