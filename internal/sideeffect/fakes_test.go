package sideeffect

import (
	"context"
	"errors"
	"sync"

	"tourism-booking/internal/data/entity"
	"tourism-booking/internal/data/repository"

	"github.com/google/uuid"
)

var errMockStorage = errors.New("mock storage error")

// fakeReferrals enforces one commission per booking like the unique index.
type fakeReferrals struct {
	mu          sync.Mutex
	partners    map[string]*entity.ReferralPartner
	commissions map[uuid.UUID]*entity.ReferralCommission
	FindFunc    func(code string) (*entity.ReferralPartner, error)
}

func newFakeReferrals(partners ...*entity.ReferralPartner) *fakeReferrals {
	f := &fakeReferrals{
		partners:    make(map[string]*entity.ReferralPartner),
		commissions: make(map[uuid.UUID]*entity.ReferralCommission),
	}
	for _, p := range partners {
		f.partners[p.Code] = p
	}
	return f
}

func (f *fakeReferrals) FindActivePartnerByCode(_ context.Context, code string) (*entity.ReferralPartner, error) {
	if f.FindFunc != nil {
		return f.FindFunc(code)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.partners[code]
	if !ok || !p.IsActive || p.Status != entity.PartnerStatusApproved {
		return nil, nil
	}
	return p, nil
}

func (f *fakeReferrals) CreateCommission(_ context.Context, c *entity.ReferralCommission) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.commissions[c.BookingID]; exists {
		return false, nil
	}
	f.commissions[c.BookingID] = c
	for _, p := range f.partners {
		if p.ID == c.PartnerID {
			p.TotalReferrals++
			p.TotalCommission += c.CommissionAmount
		}
	}
	return true, nil
}

type fakeLoyalty struct {
	mu       sync.Mutex
	grants   map[uuid.UUID]*entity.CreditGrant
	balances map[uuid.UUID]int64
	err      error
}

func newFakeLoyalty() *fakeLoyalty {
	return &fakeLoyalty{
		grants:   make(map[uuid.UUID]*entity.CreditGrant),
		balances: make(map[uuid.UUID]int64),
	}
}

func (f *fakeLoyalty) GrantCredits(_ context.Context, g *entity.CreditGrant) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.grants[g.BookingID]; exists {
		return false, nil
	}
	f.grants[g.BookingID] = g
	f.balances[g.UserID] += g.Units
	return true, nil
}

type fakeAnalytics struct {
	mu     sync.Mutex
	events []*entity.RevenueEvent
	panics bool
}

func (f *fakeAnalytics) RecordRevenueEvent(_ context.Context, e *entity.RevenueEvent) (bool, error) {
	if f.panics {
		panic("analytics exploded")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
	return true, nil
}

type fakeCarts struct {
	mu      sync.Mutex
	removed map[uuid.UUID][]uuid.UUID
}

func (f *fakeCarts) FindByID(context.Context, uuid.UUID) (*entity.Cart, error)     { return nil, nil }
func (f *fakeCarts) FindByUserID(context.Context, uuid.UUID) (*entity.Cart, error) { return nil, nil }

func (f *fakeCarts) RemoveItems(_ context.Context, cartID uuid.UUID, ids []uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.removed == nil {
		f.removed = make(map[uuid.UUID][]uuid.UUID)
	}
	f.removed[cartID] = append(f.removed[cartID], ids...)
	return int64(len(ids)), nil
}

type fakes struct {
	referrals *fakeReferrals
	loyalty   *fakeLoyalty
	analytics *fakeAnalytics
	carts     *fakeCarts
}

func newFakes(partners ...*entity.ReferralPartner) *fakes {
	return &fakes{
		referrals: newFakeReferrals(partners...),
		loyalty:   newFakeLoyalty(),
		analytics: &fakeAnalytics{},
		carts:     &fakeCarts{},
	}
}

func (f *fakes) repository() *repository.Repository {
	return &repository.Repository{
		Referral:  f.referrals,
		Loyalty:   f.loyalty,
		Analytics: f.analytics,
		Cart:      f.carts,
	}
}

// recordingDispatcher keeps tasks instead of running them.
type recordingDispatcher struct {
	mu    sync.Mutex
	tasks []Task
	err   error
}

func (d *recordingDispatcher) Dispatch(_ context.Context, t Task) error {
	if d.err != nil {
		return d.err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tasks = append(d.tasks, t)
	return nil
}

func (d *recordingDispatcher) kinds() []Kind {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Kind, 0, len(d.tasks))
	for _, t := range d.tasks {
		out = append(out, t.Kind)
	}
	return out
}
