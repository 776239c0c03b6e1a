package adaptor

import (
	"errors"
	"net/http"
	"strings"

	"tourism-booking/internal/usecase"
	"tourism-booking/pkg/utils"

	"go.uber.org/zap"
)

type Handler struct {
	Payment *PaymentHandler
	Webhook *WebhookHandler
}

func NewHandler(service *usecase.Service, log *zap.Logger) *Handler {
	return &Handler{
		Payment: NewPaymentHandler(service.Checkout, log),
		Webhook: NewWebhookHandler(service.Webhook, log),
	}
}

// handleServiceError maps use-case errors to HTTP statuses. Anything it
// does not recognise is a 500.
func handleServiceError(log *zap.Logger, w http.ResponseWriter, err error, operation string) {
	var (
		validationErr *usecase.ValidationError
		encodingErr   *usecase.MetadataEncodingError
		gatewayErr    *usecase.GatewayError
	)

	switch {
	case errors.As(err, &validationErr):
		log.Warn(operation+" validation failed",
			zap.Error(err),
			zap.String("operation", operation))
		utils.ResponseBadRequest(w, "Validation failed", validationErr.Fields)

	case errors.As(err, &encodingErr):
		log.Warn(operation+" failed - booking does not fit payment metadata",
			zap.Error(err),
			zap.String("operation", operation))
		utils.ResponseBadRequest(w, "Booking details are too long to process", nil)

	case errors.Is(err, usecase.ErrCartEmpty):
		log.Warn(operation+" failed - empty cart",
			zap.String("operation", operation))
		utils.ResponseBadRequest(w, err.Error(), nil)

	case errors.As(err, &gatewayErr):
		log.Error(operation+" failed - payment gateway",
			zap.Error(err),
			zap.String("operation", operation))
		utils.ResponseBadGateway(w, "Payment provider unavailable, please try again")

	case strings.Contains(err.Error(), "not found"):
		log.Warn(operation+" failed - not found",
			zap.Error(err),
			zap.String("operation", operation))
		utils.ResponseNotFound(w, err.Error())

	default:
		log.Error(operation+" failed - internal error",
			zap.Error(err),
			zap.String("operation", operation))
		utils.ResponseInternalError(w, "Internal server error")
	}
}
