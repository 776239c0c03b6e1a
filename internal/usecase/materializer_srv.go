package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tourism-booking/internal/data/entity"
	"tourism-booking/internal/data/repository"
	"tourism-booking/internal/sideeffect"
	"tourism-booking/pkg/utils"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("tourism-booking/usecase")

const dateLayout = "2006-01-02"

// Payment is a confirmed gateway charge, in major units.
type Payment struct {
	TransactionID string
	Amount        float64
	Currency      string
	Method        string
}

// CartSnapshot is the cart as it was charged at checkout.
type CartSnapshot struct {
	CartID       uuid.UUID
	Requester    entity.Requester
	ReferralCode string
	Items        []entity.CartItem
}

type FailedItem struct {
	Item   entity.CartItem
	Reason error
}

type CartResult struct {
	Committed []*entity.Booking
	Failed    []FailedItem
}

// SideEffects receives newly committed bookings. Implementations must
// return without waiting for the effects to run.
type SideEffects interface {
	OnBookingCommitted(ctx context.Context, booking *entity.Booking, c sideeffect.Context)
	OnCartMaterialized(ctx context.Context, cartID uuid.UUID, itemIDs []uuid.UUID)
}

// Materializer turns confirmed payments into bookings. Both entry points are
// safe to call repeatedly with the same transaction id.
type Materializer interface {
	Materialize(ctx context.Context, payment Payment, draft entity.BookingDraft) (*entity.Booking, error)
	MaterializeCart(ctx context.Context, payment Payment, cart CartSnapshot) (*CartResult, error)
}

type materializer struct {
	bookings    repository.BookingRepository
	catalog     repository.CatalogRepository
	effects     SideEffects
	defaultStay int
	log         *zap.Logger
	now         func() time.Time
}

func NewMaterializer(repo *repository.Repository, effects SideEffects, config utils.BookingConfig, log *zap.Logger) Materializer {
	return &materializer{
		bookings:    repo.Booking,
		catalog:     repo.Catalog,
		effects:     effects,
		defaultStay: config.DefaultStayNights,
		log:         log.With(zap.String("service", "materializer")),
		now:         time.Now,
	}
}

func (m *materializer) Materialize(ctx context.Context, payment Payment, draft entity.BookingDraft) (booking *entity.Booking, err error) {
	ctx, span := tracer.Start(ctx, "materializer.Materialize", trace.WithAttributes(
		attribute.String("payment.transaction_id", payment.TransactionID),
		attribute.String("booking.category", string(draft.Category)),
	))
	defer endSpan(span, &err)

	existing, err := m.bookings.FindByTransactionItem(ctx, payment.TransactionID, "")
	if err != nil {
		return nil, &PersistenceError{TransactionID: payment.TransactionID, Err: err}
	}
	if existing != nil {
		m.log.Info("Payment already materialized",
			zap.String("transaction_id", payment.TransactionID),
			zap.String("booking_id", existing.ID.String()),
		)
		return existing, nil
	}

	amountPaid := payment.Amount
	if amountPaid <= 0 {
		amountPaid = draft.Pricing.Total
	}

	booking, created, err := m.commit(ctx, payment, draft, "", amountPaid)
	if err != nil {
		return nil, err
	}
	if created {
		m.effects.OnBookingCommitted(ctx, booking, sideeffect.Context{
			ReferralCode: draft.ReferralCode,
			AmountPaid:   amountPaid,
			CreditUnits:  sideeffect.CreditUnits(amountPaid),
		})
	}
	return booking, nil
}

func (m *materializer) MaterializeCart(ctx context.Context, payment Payment, cart CartSnapshot) (result *CartResult, err error) {
	ctx, span := tracer.Start(ctx, "materializer.MaterializeCart", trace.WithAttributes(
		attribute.String("payment.transaction_id", payment.TransactionID),
		attribute.String("cart.id", cart.CartID.String()),
		attribute.Int("cart.items", len(cart.Items)),
	))
	defer endSpan(span, &err)

	existing, err := m.bookings.FindByTransactionID(ctx, payment.TransactionID)
	if err != nil {
		return nil, &PersistenceError{TransactionID: payment.TransactionID, Err: err}
	}

	booked := make(map[string]*entity.Booking, len(existing))
	result = &CartResult{}
	for _, b := range existing {
		booked[b.CartItemID] = b
		result.Committed = append(result.Committed, b)
	}
	if len(existing) > 0 {
		m.log.Info("Cart payment partly or fully materialized before",
			zap.String("transaction_id", payment.TransactionID),
			zap.Int("existing_bookings", len(existing)),
		)
	}

	credits := creditShares(cart.Items)
	var prune []uuid.UUID
	for _, item := range cart.Items {
		itemID := item.ID.String()

		// booked by an earlier delivery but still in the cart
		if _, ok := booked[itemID]; ok {
			prune = append(prune, item.ID)
			continue
		}

		draft := item.Draft
		draft.Requester = cart.Requester
		draft.ReferralCode = cart.ReferralCode

		if err := draft.Validate(); err != nil {
			m.failItem(result, payment, cart.CartID, item, &ValidationError{Err: err})
			continue
		}

		booking, created, err := m.commit(ctx, payment, draft, itemID, draft.Pricing.Total)
		if err != nil {
			m.failItem(result, payment, cart.CartID, item, err)
			continue
		}

		booked[itemID] = booking
		result.Committed = append(result.Committed, booking)
		prune = append(prune, item.ID)

		if created {
			m.effects.OnBookingCommitted(ctx, booking, sideeffect.Context{
				ReferralCode: draft.ReferralCode,
				AmountPaid:   draft.Pricing.Total,
				CreditUnits:  credits[item.ID],
			})
		}
	}

	m.effects.OnCartMaterialized(ctx, cart.CartID, prune)

	m.log.Info("Cart materialized",
		zap.String("transaction_id", payment.TransactionID),
		zap.String("cart_id", cart.CartID.String()),
		zap.Int("committed", len(result.Committed)),
		zap.Int("failed", len(result.Failed)),
	)
	return result, nil
}

// creditShares splits the loyalty award of a cart payment across its lines
// in cart order. Each line gets the whole units it adds to the running
// total, so the shares add up to floor(cart total).
func creditShares(items []entity.CartItem) map[uuid.UUID]int64 {
	shares := make(map[uuid.UUID]int64, len(items))
	var cents, credited int64
	for _, item := range items {
		if item.Draft.Pricing.Total > 0 {
			cents += utils.ToMinorUnits(item.Draft.Pricing.Total)
		}
		units := cents / 100
		shares[item.ID] = units - credited
		credited = units
	}
	return shares
}

func (m *materializer) failItem(result *CartResult, payment Payment, cartID uuid.UUID, item entity.CartItem, reason error) {
	m.log.Error("Failed to materialize cart item",
		zap.Error(reason),
		zap.String("transaction_id", payment.TransactionID),
		zap.String("cart_id", cartID.String()),
		zap.String("cart_item_id", item.ID.String()),
		zap.String("service_id", item.Draft.ServiceID),
	)
	result.Failed = append(result.Failed, FailedItem{Item: item, Reason: reason})
}

// commit resolves, builds and stores one booking. created is false when a
// concurrent delivery stored it first; that booking is returned instead.
func (m *materializer) commit(ctx context.Context, payment Payment, draft entity.BookingDraft, cartItemID string, amountPaid float64) (*entity.Booking, bool, error) {
	service, vendor, err := m.resolve(ctx, payment, draft.ServiceID)
	if err != nil {
		return nil, false, err
	}

	if service.Category != "" && service.Category != draft.Category {
		return nil, false, &ValidationError{
			Err: fmt.Errorf("service %s is %s, draft is %s", service.ID, service.Category, draft.Category),
		}
	}

	details, err := buildDetails(draft, m.defaultStay)
	if err != nil {
		return nil, false, &ValidationError{Err: err}
	}
	if details.Stay != nil && details.Stay.EndDateDefaulted {
		m.log.Warn("Stay without end date, applying default length",
			zap.String("transaction_id", payment.TransactionID),
			zap.String("cart_item_id", cartItemID),
			zap.String("check_in", details.Stay.CheckIn),
			zap.Int("nights", details.Stay.Nights),
		)
	}

	now := m.now()
	booking := &entity.Booking{
		Base: entity.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		OrderID:       utils.GenerateOrderID(),
		TransactionID: payment.TransactionID,
		CartItemID:    cartItemID,
		Category:      draft.Category,
		UserID:        draft.Requester.UserID,
		ServiceID:     service.ID,
		VendorID:      vendor.ID,
		Guests:        draft.Guests,
		Details:       details,
		Status:        entity.BookingStatusConfirmed,
		Pricing: entity.PricingSnapshot{
			BasePrice:  draft.Pricing.BasePrice,
			Subtotal:   draft.Pricing.Subtotal,
			TotalPrice: draft.Pricing.Total,
			Currency:   payment.Currency,
		},
		Payment: entity.PaymentSnapshot{
			Method:        payment.Method,
			Status:        entity.PaymentStatusCompleted,
			TransactionID: payment.TransactionID,
			AmountPaid:    amountPaid,
		},
	}
	if draft.Requester.IsGuest() {
		booking.GuestName = &draft.Requester.GuestName
		booking.GuestEmail = &draft.Requester.GuestEmail
	}
	if draft.ReferralCode != "" {
		code := draft.ReferralCode
		booking.ReferralCode = &code
	}

	err = m.bookings.Create(ctx, booking)
	if errors.Is(err, repository.ErrDuplicateBooking) {
		winner, ferr := m.bookings.FindByTransactionItem(ctx, payment.TransactionID, cartItemID)
		if ferr != nil || winner == nil {
			return nil, false, &PersistenceError{
				TransactionID: payment.TransactionID,
				CartItemID:    cartItemID,
				Err:           fmt.Errorf("booking exists but could not be read: %w", errors.Join(err, ferr)),
			}
		}
		m.log.Info("Concurrent delivery materialized booking first",
			zap.String("transaction_id", payment.TransactionID),
			zap.String("booking_id", winner.ID.String()),
		)
		return winner, false, nil
	}
	if err != nil {
		return nil, false, &PersistenceError{TransactionID: payment.TransactionID, CartItemID: cartItemID, Err: err}
	}

	m.log.Info("Booking materialized",
		zap.String("booking_id", booking.ID.String()),
		zap.String("order_id", booking.OrderID),
		zap.String("transaction_id", payment.TransactionID),
		zap.String("cart_item_id", cartItemID),
		zap.String("category", string(booking.Category)),
	)
	return booking, true, nil
}

func (m *materializer) resolve(ctx context.Context, payment Payment, rawServiceID string) (*entity.Service, *entity.Vendor, error) {
	serviceID, err := uuid.Parse(rawServiceID)
	if err != nil {
		return nil, nil, &ResolutionError{ServiceID: rawServiceID, Err: errors.New("malformed service id")}
	}

	service, err := m.catalog.FindServiceByID(ctx, serviceID)
	if err != nil {
		return nil, nil, &PersistenceError{TransactionID: payment.TransactionID, Err: fmt.Errorf("load service: %w", err)}
	}
	if service == nil {
		return nil, nil, &ResolutionError{ServiceID: rawServiceID, Err: errors.New("service not found")}
	}
	if service.VendorID == nil {
		return nil, nil, &ResolutionError{ServiceID: rawServiceID, Err: errors.New("service has no vendor")}
	}

	vendor, err := m.catalog.FindVendorByID(ctx, *service.VendorID)
	if err != nil {
		return nil, nil, &PersistenceError{TransactionID: payment.TransactionID, Err: fmt.Errorf("load vendor: %w", err)}
	}
	if vendor == nil {
		return nil, nil, &ResolutionError{ServiceID: rawServiceID, Err: fmt.Errorf("vendor %s not found", *service.VendorID)}
	}

	return service, vendor, nil
}

// buildDetails maps a draft onto the stored detail block, normalizing clock
// times to 24-hour HH:MM. A stay without an end date gets defaultStay nights.
func buildDetails(draft entity.BookingDraft, defaultStay int) (entity.BookingDetails, error) {
	var out entity.BookingDetails

	switch d := draft.Details.(type) {
	case entity.ActivityDetails:
		start := d.Time
		if d.Slot != nil && d.Slot.Start != "" {
			start = d.Slot.Start
		}
		startTime, err := utils.NormalizeClockTime(start)
		if err != nil {
			return out, fmt.Errorf("activity start: %w", err)
		}
		slot := &entity.ActivitySlot{OptionID: d.OptionID, Date: d.Date, StartTime: startTime}
		if d.Slot != nil && d.Slot.End != "" {
			if slot.EndTime, err = utils.NormalizeClockTime(d.Slot.End); err != nil {
				return out, fmt.Errorf("activity end: %w", err)
			}
		}
		out.Activity = slot

	case entity.StayDetails:
		checkIn, err := time.Parse(dateLayout, d.StartDate)
		if err != nil {
			return out, fmt.Errorf("invalid check-in date %q", d.StartDate)
		}
		period := &entity.StayPeriod{CheckIn: d.StartDate}
		if d.EndDate == "" {
			if defaultStay <= 0 {
				return out, errors.New("stay requires an end date")
			}
			period.Nights = defaultStay
			period.CheckOut = checkIn.AddDate(0, 0, defaultStay).Format(dateLayout)
			period.EndDateDefaulted = true
		} else {
			checkOut, err := time.Parse(dateLayout, d.EndDate)
			if err != nil {
				return out, fmt.Errorf("invalid check-out date %q", d.EndDate)
			}
			nights := int(checkOut.Sub(checkIn).Hours() / 24)
			if nights < 1 {
				return out, fmt.Errorf("check-out %s must be after check-in %s", d.EndDate, d.StartDate)
			}
			period.CheckOut = d.EndDate
			period.Nights = nights
		}
		out.Stay = period

	case entity.SpaDetails:
		t, err := utils.NormalizeClockTime(d.Time)
		if err != nil {
			return out, fmt.Errorf("spa appointment: %w", err)
		}
		out.Spa = &entity.SpaAppointment{
			SubServiceID:   d.SubServiceID,
			SubServiceName: d.SubServiceName,
			Date:           d.Date,
			Time:           t,
		}

	case entity.DiningDetails:
		t, err := utils.NormalizeClockTime(d.Time)
		if err != nil {
			return out, fmt.Errorf("dining reservation: %w", err)
		}
		out.Dining = &entity.DiningReservation{Date: d.Date, Time: t}

	case entity.TransportationDetails:
		t, err := utils.NormalizeClockTime(d.Time)
		if err != nil {
			return out, fmt.Errorf("pickup: %w", err)
		}
		out.Transportation = &entity.TransportationTrip{
			OptionID:        d.OptionID,
			PickupDate:      d.Date,
			PickupTime:      t,
			PickupLocation:  d.Pickup,
			DropoffLocation: d.Dropoff,
		}

	default:
		return out, fmt.Errorf("unsupported booking details %T", draft.Details)
	}

	return out, nil
}

func endSpan(span trace.Span, err *error) {
	if *err != nil {
		span.RecordError(*err)
		span.SetStatus(codes.Error, (*err).Error())
	}
	span.End()
}
