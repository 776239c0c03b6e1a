package wire

import (
	"tourism-booking/internal/adaptor"
	"tourism-booking/pkg/middleware"
	"tourism-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wirePayment(r chi.Router, paymentHandler *adaptor.PaymentHandler, config *utils.Config, log *zap.Logger) {
	// guests and signed-in users share these routes; a bearer token is
	// optional but must be valid when sent
	r.Group(func(r chi.Router) {
		r.Use(middleware.OptionalJWT(config.JWT.Secret, log))

		r.Post("/create-payment-intent", paymentHandler.CreatePaymentIntent)
		r.Post("/create-cart-payment-intent", paymentHandler.CreateCartPaymentIntent)
	})
}
