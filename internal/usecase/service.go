package usecase

import (
	"tourism-booking/internal/data/repository"
	"tourism-booking/internal/sideeffect"
	"tourism-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Identity is the caller as seen by the optional JWT middleware. A nil
// UserID is a guest.
type Identity struct {
	UserID *uuid.UUID
	Email  string
}

type Service struct {
	Checkout     CheckoutService
	Materializer Materializer
	Webhook      WebhookService
}

func NewService(repo *repository.Repository, gw PaymentGateway, effects *sideeffect.Orchestrator, config *utils.Config, log *zap.Logger) *Service {
	materializer := NewMaterializer(repo, effects, config.Booking, log)
	return &Service{
		Checkout:     NewCheckoutService(repo, gw, config, log),
		Materializer: materializer,
		Webhook:      NewWebhookService(repo, gw, materializer, log),
	}
}
