package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tourism-booking/internal/data/entity"
	"tourism-booking/internal/data/repository"
	"tourism-booking/internal/metadata"
	"tourism-booking/pkg/gateway"
	"tourism-booking/pkg/utils"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type Outcome string

const (
	OutcomeSuccess         Outcome = "acknowledged-success"
	OutcomeBusinessFailure Outcome = "acknowledged-business-failure"
	OutcomeIgnored         Outcome = "acknowledged-ignored"
	OutcomeRejected        Outcome = "rejected"
)

// Acknowledged reports whether the gateway should see a success status.
func (o Outcome) Acknowledged() bool {
	return o != OutcomeRejected
}

type WebhookResult struct {
	Outcome       Outcome
	EventID       string
	EventType     string
	TransactionID string
	Bookings      []*entity.Booking
	Failed        []FailedItem
	// Err is the business failure behind OutcomeBusinessFailure.
	Err error
}

type WebhookService interface {
	// Process returns an error only for deliveries that must be rejected:
	// a bad signature or an unreadable event.
	Process(ctx context.Context, payload []byte, signature string) (*WebhookResult, error)
}

type webhookService struct {
	gateway         PaymentGateway
	materializer    Materializer
	checkouts       repository.CartCheckoutRepository
	reconciliations repository.ReconciliationRepository
	log             *zap.Logger
}

func NewWebhookService(repo *repository.Repository, gw PaymentGateway, materializer Materializer, log *zap.Logger) WebhookService {
	return &webhookService{
		gateway:         gw,
		materializer:    materializer,
		checkouts:       repo.CartCheckout,
		reconciliations: repo.Reconciliation,
		log:             log.With(zap.String("service", "webhook")),
	}
}

func (s *webhookService) Process(ctx context.Context, payload []byte, signature string) (result *WebhookResult, err error) {
	ctx, span := tracer.Start(ctx, "webhook.Process")
	defer endSpan(span, &err)

	event, err := s.gateway.ParseEvent(payload, signature)
	if errors.Is(err, gateway.ErrInvalidSignature) {
		s.log.Warn("Webhook signature rejected", zap.Error(err))
		return &WebhookResult{Outcome: OutcomeRejected}, &SignatureError{Err: err}
	}
	if err != nil {
		s.log.Warn("Webhook event could not be parsed", zap.Error(err))
		return &WebhookResult{Outcome: OutcomeRejected}, fmt.Errorf("parse webhook event: %w", err)
	}

	span.SetAttributes(
		attribute.String("webhook.event_id", event.ID),
		attribute.String("webhook.event_type", event.Type),
	)

	result = &WebhookResult{EventID: event.ID, EventType: event.Type}
	if event.Type != gateway.EventPaymentSucceeded || event.Payment == nil {
		s.log.Debug("Webhook event ignored",
			zap.String("event_id", event.ID),
			zap.String("event_type", event.Type),
		)
		result.Outcome = OutcomeIgnored
		return result, nil
	}

	p := event.Payment
	result.TransactionID = p.TransactionID
	payment := Payment{
		TransactionID: p.TransactionID,
		Amount:        utils.FromMinorUnits(p.AmountMinor),
		Currency:      p.Currency,
		Method:        p.Method,
	}
	span.SetAttributes(attribute.String("payment.transaction_id", p.TransactionID))

	if p.Metadata[metadata.FieldCheckout] == metadata.CheckoutCart {
		s.processCart(ctx, span, payment, p.Metadata, result)
	} else {
		s.processSingle(ctx, payment, p.Metadata, result)
	}

	span.SetAttributes(attribute.String("webhook.outcome", string(result.Outcome)))
	return result, nil
}

func (s *webhookService) processSingle(ctx context.Context, payment Payment, fields map[string]string, result *WebhookResult) {
	draft, err := metadata.Decode(fields)
	if err != nil {
		s.businessFailure(ctx, result, "", &MetadataDecodingError{TransactionID: payment.TransactionID, Err: err})
		return
	}

	booking, err := s.materializer.Materialize(ctx, payment, draft)
	if err != nil {
		s.businessFailure(ctx, result, "", err)
		return
	}

	result.Bookings = []*entity.Booking{booking}
	result.Outcome = OutcomeSuccess
}

func (s *webhookService) processCart(ctx context.Context, span trace.Span, payment Payment, fields map[string]string, result *WebhookResult) {
	checkout, err := metadata.DecodeCart(fields)
	if err != nil {
		s.businessFailure(ctx, result, "", &MetadataDecodingError{TransactionID: payment.TransactionID, Err: err})
		return
	}
	span.SetAttributes(attribute.String("cart.id", checkout.CartID.String()))

	charged, err := s.checkouts.FindByTransactionID(ctx, payment.TransactionID)
	if err != nil {
		s.businessFailure(ctx, result, "", &PersistenceError{TransactionID: payment.TransactionID, Err: err})
		return
	}
	if err := matchCheckout(payment, checkout, charged); err != nil {
		s.businessFailure(ctx, result, "", err)
		return
	}

	snapshot := CartSnapshot{
		CartID:       checkout.CartID,
		Requester:    checkout.Requester,
		ReferralCode: checkout.ReferralCode,
		Items:        charged.Items,
	}

	cartResult, err := s.materializer.MaterializeCart(ctx, payment, snapshot)
	if err != nil {
		s.businessFailure(ctx, result, "", err)
		return
	}

	result.Bookings = cartResult.Committed
	result.Failed = cartResult.Failed

	if len(cartResult.Committed) == 0 && len(cartResult.Failed) == 0 {
		s.log.Error("Paid cart had nothing to book",
			zap.String("transaction_id", payment.TransactionID),
			zap.String("cart_id", checkout.CartID.String()),
		)
		result.Outcome = OutcomeBusinessFailure
		result.Err = fmt.Errorf("cart %s has no items to book", checkout.CartID)
		s.reconcile(ctx, payment.TransactionID, "", entity.StageCart, result.Err)
		return
	}

	if len(cartResult.Failed) > 0 {
		for _, f := range cartResult.Failed {
			s.reconcile(ctx, payment.TransactionID, f.Item.ID.String(), stageOf(f.Reason), f.Reason)
		}
		result.Outcome = OutcomeBusinessFailure
		result.Err = fmt.Errorf("%d of %d cart items failed", len(cartResult.Failed), len(cartResult.Failed)+len(cartResult.Committed))
		return
	}

	result.Outcome = OutcomeSuccess
}

// matchCheckout checks that the stored checkout is the one this payment
// charged for: same cart, same amount.
func matchCheckout(payment Payment, checkout metadata.CartCheckout, charged *entity.CartCheckout) error {
	if charged == nil {
		return &CartCheckoutError{
			TransactionID: payment.TransactionID,
			CartID:        checkout.CartID.String(),
			Err:           errors.New("no checkout stored for this payment"),
		}
	}
	if charged.CartID != checkout.CartID {
		return &CartCheckoutError{
			TransactionID: payment.TransactionID,
			CartID:        checkout.CartID.String(),
			Err:           fmt.Errorf("checkout belongs to cart %s", charged.CartID),
		}
	}
	paid, owed := utils.ToMinorUnits(payment.Amount), utils.ToMinorUnits(charged.Amount)
	if paid != owed {
		return &CartCheckoutError{
			TransactionID: payment.TransactionID,
			CartID:        checkout.CartID.String(),
			Err:           fmt.Errorf("paid %d minor units, checkout totals %d", paid, owed),
		}
	}
	return nil
}

// businessFailure logs a paid transaction that produced no booking. The
// delivery is still acknowledged; redelivery would not fix it.
func (s *webhookService) businessFailure(ctx context.Context, result *WebhookResult, cartItemID string, err error) {
	s.log.Error("Paid transaction not materialized",
		zap.Error(err),
		zap.String("event_id", result.EventID),
		zap.String("transaction_id", result.TransactionID),
		zap.String("stage", string(stageOf(err))),
	)
	result.Outcome = OutcomeBusinessFailure
	result.Err = err
	s.reconcile(ctx, result.TransactionID, cartItemID, stageOf(err), err)
}

func (s *webhookService) reconcile(ctx context.Context, transactionID, cartItemID string, stage entity.ReconciliationStage, reason error) {
	record := &entity.ReconciliationRecord{
		ID:            uuid.New(),
		TransactionID: transactionID,
		CartItemID:    cartItemID,
		Stage:         stage,
		Reason:        reason.Error(),
		CreatedAt:     time.Now(),
	}
	if err := s.reconciliations.Record(context.WithoutCancel(ctx), record); err != nil {
		s.log.Error("Failed to record reconciliation",
			zap.Error(err),
			zap.String("transaction_id", transactionID),
			zap.String("cart_item_id", cartItemID),
			zap.String("stage", string(stage)),
		)
	}
}

func stageOf(err error) entity.ReconciliationStage {
	var (
		decodeErr     *MetadataDecodingError
		resolutionErr *ResolutionError
		validationErr *ValidationError
		checkoutErr   *CartCheckoutError
	)
	switch {
	case errors.As(err, &decodeErr):
		return entity.StageDecode
	case errors.As(err, &resolutionErr):
		return entity.StageResolution
	case errors.As(err, &validationErr):
		return entity.StageValidation
	case errors.As(err, &checkoutErr):
		return entity.StageCart
	default:
		return entity.StagePersistence
	}
}
