package sideeffect

import (
	"context"
	"errors"
	"testing"

	"tourism-booking/internal/data/entity"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func committedBooking(total float64, registered bool) *entity.Booking {
	b := &entity.Booking{
		Base:          entity.Base{ID: uuid.New()},
		OrderID:       "BOOK-1",
		TransactionID: "pi_1",
		Category:      entity.CategoryDining,
		ServiceID:     uuid.New(),
		VendorID:      uuid.New(),
		Guests:        2,
		Status:        entity.BookingStatusConfirmed,
		Pricing:       entity.PricingSnapshot{BasePrice: total, TotalPrice: total, Currency: "usd"},
	}
	if registered {
		id := uuid.New()
		b.UserID = &id
	} else {
		name, email := "Dana", "dana@example.com"
		b.GuestName, b.GuestEmail = &name, &email
	}
	return b
}

func approvedPartner(code string, pct float64) *entity.ReferralPartner {
	return &entity.ReferralPartner{
		Base:                 entity.Base{ID: uuid.New()},
		Code:                 code,
		Name:                 "Island Tours",
		CommissionPercentage: pct,
		Status:               entity.PartnerStatusApproved,
		IsActive:             true,
	}
}

func TestRunner_LoyaltyCredit(t *testing.T) {
	tests := []struct {
		name       string
		registered bool
		amountPaid float64
		wantUnits  int64
		wantGrants int
	}{
		{name: "registered user paying 42.70 earns 42", registered: true, amountPaid: 42.70, wantUnits: 42, wantGrants: 1},
		{name: "registered user paying under one unit earns nothing", registered: true, amountPaid: 0.99, wantGrants: 0},
		{name: "guest earns nothing", registered: false, amountPaid: 42.70, wantGrants: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakes()
			runner := NewRunner(f.repository(), zap.NewNop())
			b := committedBooking(tt.amountPaid, tt.registered)

			task := Task{ID: uuid.New(), Kind: KindLoyaltyCredit, Booking: b, AmountPaid: tt.amountPaid, CreditUnits: CreditUnits(tt.amountPaid)}
			if err := runner.Run(context.Background(), task); err != nil {
				t.Fatalf("Run() error = %v", err)
			}

			if len(f.loyalty.grants) != tt.wantGrants {
				t.Fatalf("grants = %d, want %d", len(f.loyalty.grants), tt.wantGrants)
			}
			if tt.wantGrants > 0 && f.loyalty.balances[*b.UserID] != tt.wantUnits {
				t.Errorf("balance = %d, want %d", f.loyalty.balances[*b.UserID], tt.wantUnits)
			}
		})
	}
}

func TestRunner_LoyaltyCreditIsIdempotentPerBooking(t *testing.T) {
	f := newFakes()
	runner := NewRunner(f.repository(), zap.NewNop())
	b := committedBooking(42.70, true)
	task := Task{ID: uuid.New(), Kind: KindLoyaltyCredit, Booking: b, AmountPaid: 42.70, CreditUnits: 42}

	for i := 0; i < 3; i++ {
		if err := runner.Run(context.Background(), task); err != nil {
			t.Fatalf("Run() #%d error = %v", i, err)
		}
	}
	if got := f.loyalty.balances[*b.UserID]; got != 42 {
		t.Errorf("balance after redelivery = %d, want 42", got)
	}
}

func TestRunner_ReferralCommission(t *testing.T) {
	partner := approvedPartner("ISLAND5", 5)
	suspended := approvedPartner("OLD10", 10)
	suspended.Status = entity.PartnerStatusSuspended

	tests := []struct {
		name            string
		code            string
		wantCommissions int
	}{
		{name: "valid code", code: "ISLAND5", wantCommissions: 1},
		{name: "unknown code", code: "NOPE", wantCommissions: 0},
		{name: "suspended partner", code: "OLD10", wantCommissions: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakes(partner, suspended)
			runner := NewRunner(f.repository(), zap.NewNop())
			b := committedBooking(100, false)

			task := Task{ID: uuid.New(), Kind: KindReferralCommission, Booking: b, ReferralCode: tt.code}
			if err := runner.Run(context.Background(), task); err != nil {
				t.Fatalf("Run() error = %v, want nil for customer-facing flow", err)
			}

			if len(f.referrals.commissions) != tt.wantCommissions {
				t.Fatalf("commissions = %d, want %d", len(f.referrals.commissions), tt.wantCommissions)
			}
			if tt.wantCommissions == 0 {
				return
			}

			c := f.referrals.commissions[b.ID]
			if c.CommissionAmount != 5.00 {
				t.Errorf("commission = %.2f, want 5.00", c.CommissionAmount)
			}
			if c.Status != entity.CommissionStatusPending {
				t.Errorf("status = %s, want pending", c.Status)
			}
			if c.BookingAmount != 100 || c.PartnerID != partner.ID {
				t.Errorf("commission = %+v", c)
			}
		})
	}
}

func TestRunner_ReferralCommissionOncePerBooking(t *testing.T) {
	partner := approvedPartner("ISLAND5", 5)
	f := newFakes(partner)
	runner := NewRunner(f.repository(), zap.NewNop())
	b := committedBooking(100, true)
	task := Task{ID: uuid.New(), Kind: KindReferralCommission, Booking: b, ReferralCode: "ISLAND5"}

	_ = runner.Run(context.Background(), task)
	_ = runner.Run(context.Background(), task)

	if len(f.referrals.commissions) != 1 {
		t.Errorf("commissions = %d, want 1", len(f.referrals.commissions))
	}
	if partner.TotalReferrals != 1 {
		t.Errorf("partner referrals = %d, want 1", partner.TotalReferrals)
	}
}

func TestRunner_CommissionRoundsToCents(t *testing.T) {
	partner := approvedPartner("ODD", 12.5)
	f := newFakes(partner)
	runner := NewRunner(f.repository(), zap.NewNop())
	b := committedBooking(19.99, false)

	if err := runner.Run(context.Background(), Task{Kind: KindReferralCommission, Booking: b, ReferralCode: "ODD"}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := f.referrals.commissions[b.ID].CommissionAmount; got != 2.5 {
		t.Errorf("commission = %v, want 2.5", got)
	}
}

func TestRunner_Failures(t *testing.T) {
	t.Run("repository error is a side effect error", func(t *testing.T) {
		f := newFakes()
		f.loyalty.err = errMockStorage
		runner := NewRunner(f.repository(), zap.NewNop())
		b := committedBooking(10, true)

		err := runner.Run(context.Background(), Task{Kind: KindLoyaltyCredit, Booking: b, AmountPaid: 10, CreditUnits: 10})

		var seErr *Error
		if !errors.As(err, &seErr) {
			t.Fatalf("Run() error = %v, want *Error", err)
		}
		if seErr.Kind != KindLoyaltyCredit || seErr.BookingID != b.ID {
			t.Errorf("error = %+v", seErr)
		}
		if !errors.Is(err, errMockStorage) {
			t.Errorf("cause not wrapped: %v", err)
		}
	})

	t.Run("panic is recovered", func(t *testing.T) {
		f := newFakes()
		f.analytics.panics = true
		runner := NewRunner(f.repository(), zap.NewNop())

		err := runner.Run(context.Background(), Task{Kind: KindRevenueAnalytics, Booking: committedBooking(10, false)})

		var seErr *Error
		if !errors.As(err, &seErr) || seErr.Kind != KindRevenueAnalytics {
			t.Fatalf("Run() error = %v, want recovered *Error", err)
		}
	})

	t.Run("unknown kind", func(t *testing.T) {
		runner := NewRunner(newFakes().repository(), zap.NewNop())
		if err := runner.Run(context.Background(), Task{Kind: "email.send"}); err == nil {
			t.Error("expected error for unknown kind")
		}
	})

	t.Run("booking task without booking", func(t *testing.T) {
		runner := NewRunner(newFakes().repository(), zap.NewNop())
		if err := runner.Run(context.Background(), Task{Kind: KindLoyaltyCredit}); err == nil {
			t.Error("expected error for missing booking")
		}
	})
}

func TestRunner_RevenueAndCartPrune(t *testing.T) {
	f := newFakes()
	runner := NewRunner(f.repository(), zap.NewNop())
	b := committedBooking(80, true)

	if err := runner.Run(context.Background(), Task{Kind: KindRevenueAnalytics, Booking: b}); err != nil {
		t.Fatalf("analytics Run() error = %v", err)
	}
	if len(f.analytics.events) != 1 || f.analytics.events[0].Action != entity.RevenueActionCreated {
		t.Errorf("events = %+v", f.analytics.events)
	}
	if f.analytics.events[0].VendorID != b.VendorID {
		t.Errorf("vendor = %s, want %s", f.analytics.events[0].VendorID, b.VendorID)
	}

	cartID := uuid.New()
	items := []uuid.UUID{uuid.New(), uuid.New()}
	if err := runner.Run(context.Background(), Task{Kind: KindCartPrune, CartID: cartID, CartItemIDs: items}); err != nil {
		t.Fatalf("prune Run() error = %v", err)
	}
	if len(f.carts.removed[cartID]) != 2 {
		t.Errorf("removed = %v", f.carts.removed[cartID])
	}
}
