package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"tourism-booking/internal/data/entity"
	"tourism-booking/internal/data/repository"
	"tourism-booking/internal/dto/request"
	"tourism-booking/internal/dto/response"
	"tourism-booking/internal/metadata"
	"tourism-booking/pkg/gateway"
	"tourism-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PaymentGateway is the part of gateway.Stripe the use cases call.
type PaymentGateway interface {
	CreatePaymentIntent(ctx context.Context, req gateway.IntentRequest) (*gateway.Intent, error)
	ParseEvent(payload []byte, signature string) (*gateway.Event, error)
}

type CheckoutService interface {
	CreatePaymentIntent(ctx context.Context, identity Identity, req *request.CreatePaymentIntentRequest) (*response.PaymentIntentResponse, error)
	CreateCartPaymentIntent(ctx context.Context, identity Identity, req *request.CreateCartPaymentIntentRequest) (*response.PaymentIntentResponse, error)
}

type checkoutService struct {
	users       repository.UserRepository
	carts       repository.CartRepository
	catalog     repository.CatalogRepository
	checkouts   repository.CartCheckoutRepository
	gateway     PaymentGateway
	currency    string
	defaultStay int
	log         *zap.Logger
}

func NewCheckoutService(repo *repository.Repository, gw PaymentGateway, config *utils.Config, log *zap.Logger) CheckoutService {
	return &checkoutService{
		users:       repo.User,
		carts:       repo.Cart,
		catalog:     repo.Catalog,
		checkouts:   repo.CartCheckout,
		gateway:     gw,
		currency:    config.App.Currency,
		defaultStay: config.Booking.DefaultStayNights,
		log:         log.With(zap.String("service", "checkout")),
	}
}

func (s *checkoutService) CreatePaymentIntent(ctx context.Context, identity Identity, req *request.CreatePaymentIntentRequest) (*response.PaymentIntentResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Create payment intent validation failed", zap.Any("errors", errs))
		return nil, &ValidationError{Fields: errs, Err: errors.New(utils.FormatValidationErrors(errs))}
	}

	identity, err := s.resolveCustomer(ctx, identity)
	if err != nil {
		return nil, err
	}

	draft := buildDraft(identity, req)
	if err := s.checkBookable(ctx, draft); err != nil {
		return nil, err
	}

	encoded, err := metadata.Encode(draft)
	if err != nil {
		s.log.Warn("Booking draft does not fit payment metadata",
			zap.Error(err),
			zap.String("category", string(draft.Category)),
			zap.String("service_id", draft.ServiceID),
		)
		return nil, &MetadataEncodingError{Err: err}
	}
	if encoded.IsSplit() {
		s.log.Debug("Booking metadata split into basic and service fields",
			zap.String("service_id", draft.ServiceID),
		)
	}

	intent, err := s.gateway.CreatePaymentIntent(ctx, gateway.IntentRequest{
		AmountMinor:  utils.ToMinorUnits(draft.Pricing.Total),
		Currency:     s.currency,
		Description:  fmt.Sprintf("%s booking", draft.Category),
		ReceiptEmail: receiptEmail(identity, draft.Requester),
		Metadata:     encoded.Fields(),
	})
	if err != nil {
		s.log.Error("Failed to create payment intent",
			zap.Error(err),
			zap.String("category", string(draft.Category)),
			zap.String("service_id", draft.ServiceID),
		)
		return nil, &GatewayError{Err: err}
	}

	s.log.Info("Payment intent created",
		zap.String("payment_intent_id", intent.ID),
		zap.String("category", string(draft.Category)),
		zap.Bool("guest", draft.Requester.IsGuest()),
		zap.Bool("split_metadata", encoded.IsSplit()),
	)

	return toIntentResponse(intent, 0), nil
}

func (s *checkoutService) CreateCartPaymentIntent(ctx context.Context, identity Identity, req *request.CreateCartPaymentIntentRequest) (*response.PaymentIntentResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Create cart payment intent validation failed", zap.Any("errors", errs))
		return nil, &ValidationError{Fields: errs, Err: errors.New(utils.FormatValidationErrors(errs))}
	}

	identity, err := s.resolveCustomer(ctx, identity)
	if err != nil {
		return nil, err
	}

	requester := entity.Requester{UserID: identity.UserID}
	if identity.UserID == nil {
		requester.GuestName = req.GuestName
		requester.GuestEmail = req.GuestEmail
		if requester.GuestName == "" || requester.GuestEmail == "" {
			return nil, &ValidationError{
				Fields: map[string]string{"guest_email": "Guest checkout requires name and email"},
				Err:    errors.New("guest checkout requires name and email"),
			}
		}
	}

	cart, err := s.loadCart(ctx, identity, req.CartID)
	if err != nil {
		return nil, err
	}
	if len(cart.Items) == 0 {
		return nil, ErrCartEmpty
	}

	charged, err := s.chargeableItems(ctx, cart, requester, req.ReferralCode)
	if err != nil {
		return nil, err
	}

	total := utils.RoundCents(cart.Total())
	if total <= 0 {
		return nil, &ValidationError{Err: fmt.Errorf("cart %s has no payable amount", cart.ID)}
	}

	fields, err := metadata.EncodeCart(metadata.CartCheckout{
		CartID:       cart.ID,
		Requester:    requester,
		ReferralCode: req.ReferralCode,
	})
	if err != nil {
		return nil, &MetadataEncodingError{Err: err}
	}

	intent, err := s.gateway.CreatePaymentIntent(ctx, gateway.IntentRequest{
		AmountMinor:  utils.ToMinorUnits(total),
		Currency:     s.currency,
		Description:  fmt.Sprintf("cart checkout (%d items)", len(cart.Items)),
		ReceiptEmail: receiptEmail(identity, requester),
		Metadata:     fields,
	})
	if err != nil {
		s.log.Error("Failed to create cart payment intent",
			zap.Error(err),
			zap.String("cart_id", cart.ID.String()),
		)
		return nil, &GatewayError{Err: err}
	}

	err = s.checkouts.Save(ctx, &entity.CartCheckout{
		TransactionID: intent.ID,
		CartID:        cart.ID,
		Items:         charged,
		Amount:        total,
		Currency:      s.currency,
		CreatedAt:     time.Now(),
	})
	if err != nil {
		s.log.Error("Failed to store cart checkout",
			zap.Error(err),
			zap.String("payment_intent_id", intent.ID),
			zap.String("cart_id", cart.ID.String()),
		)
		return nil, &PersistenceError{TransactionID: intent.ID, Err: err}
	}

	s.log.Info("Cart payment intent created",
		zap.String("payment_intent_id", intent.ID),
		zap.String("cart_id", cart.ID.String()),
		zap.Int("items", len(charged)),
	)

	return toIntentResponse(intent, len(charged)), nil
}

// chargeableItems returns the cart lines as they will be booked, with the
// checkout's requester and referral code applied. Any line the webhook
// could not book fails the whole checkout and is named in the error.
func (s *checkoutService) chargeableItems(ctx context.Context, cart *entity.Cart, requester entity.Requester, referralCode string) ([]entity.CartItem, error) {
	charged := make([]entity.CartItem, 0, len(cart.Items))
	problems := make(map[string]string)

	for _, item := range cart.Items {
		draft := item.Draft
		draft.Requester = requester
		draft.ReferralCode = referralCode

		if err := s.checkBookable(ctx, draft); err != nil {
			var v *ValidationError
			if !errors.As(err, &v) {
				return nil, err
			}
			problems["items."+item.ID.String()] = v.Err.Error()
			continue
		}

		item.Draft = draft
		charged = append(charged, item)
	}

	if len(problems) > 0 {
		ids := make([]string, 0, len(problems))
		for key := range problems {
			ids = append(ids, strings.TrimPrefix(key, "items."))
		}
		sort.Strings(ids)

		s.log.Warn("Cart has items that cannot be booked",
			zap.String("cart_id", cart.ID.String()),
			zap.Strings("cart_item_ids", ids),
		)
		return nil, &ValidationError{
			Fields: problems,
			Err:    fmt.Errorf("cart items cannot be booked: %s", strings.Join(ids, ", ")),
		}
	}
	return charged, nil
}

// checkBookable rejects a draft the webhook would later fail to
// materialize. Unbookable drafts come back as a ValidationError; anything
// else is a storage failure.
func (s *checkoutService) checkBookable(ctx context.Context, draft entity.BookingDraft) error {
	if err := draft.Validate(); err != nil {
		return &ValidationError{Err: err}
	}
	if _, err := buildDetails(draft, s.defaultStay); err != nil {
		return &ValidationError{Err: err}
	}

	serviceID, err := uuid.Parse(draft.ServiceID)
	if err != nil {
		return &ValidationError{Err: fmt.Errorf("malformed service id %q", draft.ServiceID)}
	}
	service, err := s.catalog.FindServiceByID(ctx, serviceID)
	if err != nil {
		return fmt.Errorf("load service: %w", err)
	}
	if service == nil || service.VendorID == nil {
		return &ValidationError{Err: fmt.Errorf("service %s not found", serviceID)}
	}
	if service.Category != "" && service.Category != draft.Category {
		return &ValidationError{
			Err: fmt.Errorf("service %s is %s, draft is %s", service.ID, service.Category, draft.Category),
		}
	}
	return nil
}

// resolveCustomer checks that a signed-in caller is an active customer and
// fills in the account email when the token did not carry one.
func (s *checkoutService) resolveCustomer(ctx context.Context, identity Identity) (Identity, error) {
	if identity.UserID == nil {
		return identity, nil
	}

	user, err := s.users.FindByID(ctx, *identity.UserID)
	if err != nil {
		return identity, fmt.Errorf("load customer: %w", err)
	}
	if user == nil || !user.IsActive {
		s.log.Warn("Checkout by unknown or inactive customer",
			zap.String("user_id", identity.UserID.String()),
		)
		return identity, ErrCustomerNotFound
	}

	if identity.Email == "" {
		identity.Email = user.Email
	}
	return identity, nil
}

// loadCart finds the cart by id, or the caller's own cart when no id is
// given. A registered caller cannot check out someone else's cart.
func (s *checkoutService) loadCart(ctx context.Context, identity Identity, rawID string) (*entity.Cart, error) {
	var (
		cart *entity.Cart
		err  error
	)

	switch {
	case rawID != "":
		cartID, perr := uuid.Parse(rawID)
		if perr != nil {
			return nil, &ValidationError{Fields: map[string]string{"cart_id": "Must be a valid UUID"}, Err: perr}
		}
		cart, err = s.carts.FindByID(ctx, cartID)
	case identity.UserID != nil:
		cart, err = s.carts.FindByUserID(ctx, *identity.UserID)
	default:
		return nil, &ValidationError{
			Fields: map[string]string{"cart_id": "This field is required"},
			Err:    errors.New("guest cart checkout requires a cart id"),
		}
	}

	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	if cart == nil {
		return nil, ErrCartNotFound
	}
	if cart.UserID != nil && (identity.UserID == nil || *cart.UserID != *identity.UserID) {
		s.log.Warn("Cart checkout by non-owner",
			zap.String("cart_id", cart.ID.String()),
		)
		return nil, ErrCartNotFound
	}
	return cart, nil
}

func buildDraft(identity Identity, req *request.CreatePaymentIntentRequest) entity.BookingDraft {
	draft := entity.BookingDraft{
		Category:  entity.Category(req.Category),
		ServiceID: req.ServiceID,
		Guests:    req.Guests,
		Pricing: entity.Pricing{
			BasePrice: req.BasePrice,
			Subtotal:  req.Subtotal,
			Total:     req.TotalPrice,
		},
		ReferralCode: req.ReferralCode,
	}

	if identity.UserID != nil {
		draft.Requester.UserID = identity.UserID
	} else {
		draft.Requester.GuestName = req.GuestName
		draft.Requester.GuestEmail = req.GuestEmail
	}

	switch draft.Category {
	case entity.CategoryActivity:
		d := entity.ActivityDetails{OptionID: req.OptionID, Date: req.Date, Time: req.Time}
		if req.SlotStart != "" || req.SlotEnd != "" {
			d.Slot = &entity.TimeSlot{Start: req.SlotStart, End: req.SlotEnd}
		}
		draft.Details = d
	case entity.CategoryStay:
		draft.Details = entity.StayDetails{StartDate: req.StartDate, EndDate: req.EndDate}
	case entity.CategorySpa:
		draft.Details = entity.SpaDetails{
			SubServiceID:   req.SubServiceID,
			SubServiceName: req.SubServiceName,
			Date:           req.Date,
			Time:           req.Time,
		}
	case entity.CategoryDining:
		draft.Details = entity.DiningDetails{Date: req.Date, Time: req.Time}
	case entity.CategoryTransportation:
		draft.Details = entity.TransportationDetails{
			OptionID: req.OptionID,
			Date:     req.Date,
			Time:     req.Time,
			Pickup:   req.PickupLocation,
			Dropoff:  req.DropoffLocation,
		}
	}

	return draft
}

func receiptEmail(identity Identity, requester entity.Requester) string {
	if identity.Email != "" {
		return identity.Email
	}
	return requester.GuestEmail
}

func toIntentResponse(intent *gateway.Intent, items int) *response.PaymentIntentResponse {
	return &response.PaymentIntentResponse{
		ClientSecret:    intent.ClientSecret,
		PaymentIntentID: intent.ID,
		Amount:          utils.FromMinorUnits(intent.AmountMinor),
		Currency:        intent.Currency,
		ItemCount:       items,
	}
}
