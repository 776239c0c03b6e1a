package adaptor

import (
	"context"
	"encoding/json"
	"net/http"

	"tourism-booking/internal/dto/request"
	"tourism-booking/internal/usecase"
	"tourism-booking/pkg/utils"

	"go.uber.org/zap"
)

type PaymentHandler struct {
	service usecase.CheckoutService
	log     *zap.Logger
}

func NewPaymentHandler(service usecase.CheckoutService, log *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		service: service,
		log:     log.With(zap.String("handler", "payment")),
	}
}

// CreatePaymentIntent handles POST /create-payment-intent (guest or user)
func (h *PaymentHandler) CreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	var req request.CreatePaymentIntentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	intent, err := h.service.CreatePaymentIntent(r.Context(), identityFrom(r.Context()), &req)
	if err != nil {
		handleServiceError(h.log, w, err, "create payment intent")
		return
	}

	utils.ResponseCreated(w, "success", intent)
}

// CreateCartPaymentIntent handles POST /create-cart-payment-intent (guest or user)
func (h *PaymentHandler) CreateCartPaymentIntent(w http.ResponseWriter, r *http.Request) {
	var req request.CreateCartPaymentIntentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	intent, err := h.service.CreateCartPaymentIntent(r.Context(), identityFrom(r.Context()), &req)
	if err != nil {
		handleServiceError(h.log, w, err, "create cart payment intent")
		return
	}

	utils.ResponseCreated(w, "success", intent)
}

func identityFrom(ctx context.Context) usecase.Identity {
	userID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		return usecase.Identity{}
	}
	email, _ := utils.GetEmailFromContext(ctx)
	return usecase.Identity{UserID: &userID, Email: email}
}
