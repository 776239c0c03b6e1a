package usecase

import (
	"context"
	"errors"
	"sync"

	"tourism-booking/internal/data/entity"
	"tourism-booking/internal/data/repository"
	"tourism-booking/internal/sideeffect"
	"tourism-booking/pkg/gateway"

	"github.com/google/uuid"
)

var errMockStorage = errors.New("mock storage error")

// fakeBookings enforces the (transaction, cart item) unique index.
type fakeBookings struct {
	mu      sync.Mutex
	rows    map[string]*entity.Booking
	creates int
	// beforeCreate runs inside Create before the uniqueness check.
	beforeCreate func(b *entity.Booking)
	createErr    error
}

func newFakeBookings() *fakeBookings {
	return &fakeBookings{rows: make(map[string]*entity.Booking)}
}

func bookingKey(txID, itemID string) string { return txID + "|" + itemID }

func (f *fakeBookings) Create(_ context.Context, b *entity.Booking) error {
	if f.beforeCreate != nil {
		f.beforeCreate(b)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	key := bookingKey(b.TransactionID, b.CartItemID)
	if _, exists := f.rows[key]; exists {
		return repository.ErrDuplicateBooking
	}
	f.rows[key] = b
	f.creates++
	return nil
}

// insert stores a booking directly, as a competing delivery would.
func (f *fakeBookings) insert(b *entity.Booking) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[bookingKey(b.TransactionID, b.CartItemID)] = b
}

func (f *fakeBookings) FindByID(_ context.Context, id uuid.UUID) (*entity.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.rows {
		if b.ID == id {
			return b, nil
		}
	}
	return nil, nil
}

func (f *fakeBookings) FindByTransactionID(_ context.Context, txID string) ([]*entity.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entity.Booking
	for _, b := range f.rows {
		if b.TransactionID == txID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeBookings) FindByTransactionItem(_ context.Context, txID, itemID string) (*entity.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rows[bookingKey(txID, itemID)], nil
}

func (f *fakeBookings) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

type fakeCatalog struct {
	services map[uuid.UUID]*entity.Service
	vendors  map[uuid.UUID]*entity.Vendor
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		services: make(map[uuid.UUID]*entity.Service),
		vendors:  make(map[uuid.UUID]*entity.Vendor),
	}
}

// addService registers a service with its own active vendor.
func (f *fakeCatalog) addService(category entity.Category) uuid.UUID {
	return f.addServiceWithID(uuid.New(), category)
}

func (f *fakeCatalog) addServiceWithID(serviceID uuid.UUID, category entity.Category) uuid.UUID {
	vendorID := uuid.New()
	f.vendors[vendorID] = &entity.Vendor{Base: entity.Base{ID: vendorID}, Name: "Lagoon Co", IsActive: true}

	f.services[serviceID] = &entity.Service{
		Base:     entity.Base{ID: serviceID},
		VendorID: &vendorID,
		Category: category,
		Name:     "Sunset " + string(category),
		IsActive: true,
	}
	return serviceID
}

func (f *fakeCatalog) FindServiceByID(_ context.Context, id uuid.UUID) (*entity.Service, error) {
	return f.services[id], nil
}

func (f *fakeCatalog) FindVendorByID(_ context.Context, id uuid.UUID) (*entity.Vendor, error) {
	return f.vendors[id], nil
}

type fakeCarts struct {
	mu    sync.Mutex
	carts map[uuid.UUID]*entity.Cart
}

func newFakeCarts(carts ...*entity.Cart) *fakeCarts {
	f := &fakeCarts{carts: make(map[uuid.UUID]*entity.Cart)}
	for _, c := range carts {
		f.carts[c.ID] = c
	}
	return f
}

func (f *fakeCarts) FindByID(_ context.Context, id uuid.UUID) (*entity.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.carts[id], nil
}

func (f *fakeCarts) FindByUserID(_ context.Context, userID uuid.UUID) (*entity.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.carts {
		if c.UserID != nil && *c.UserID == userID {
			return c, nil
		}
	}
	return nil, nil
}

func (f *fakeCarts) RemoveItems(_ context.Context, cartID uuid.UUID, itemIDs []uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.carts[cartID]
	if !ok {
		return 0, nil
	}
	drop := make(map[uuid.UUID]bool, len(itemIDs))
	for _, id := range itemIDs {
		drop[id] = true
	}
	var kept []entity.CartItem
	var removed int64
	for _, item := range c.Items {
		if drop[item.ID] {
			removed++
			continue
		}
		kept = append(kept, item)
	}
	c.Items = kept
	return removed, nil
}

func (f *fakeCarts) itemIDs(cartID uuid.UUID) []uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []uuid.UUID
	for _, item := range f.carts[cartID].Items {
		ids = append(ids, item.ID)
	}
	return ids
}

type fakeCartCheckouts struct {
	mu   sync.Mutex
	rows map[string]*entity.CartCheckout
	err  error
}

func newFakeCartCheckouts(checkouts ...*entity.CartCheckout) *fakeCartCheckouts {
	f := &fakeCartCheckouts{rows: make(map[string]*entity.CartCheckout)}
	for _, c := range checkouts {
		f.rows[c.TransactionID] = c
	}
	return f
}

func (f *fakeCartCheckouts) Save(_ context.Context, c *entity.CartCheckout) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	// stored lines must not follow later edits of the live cart
	stored := *c
	stored.Items = append([]entity.CartItem(nil), c.Items...)
	f.rows[c.TransactionID] = &stored
	return nil
}

func (f *fakeCartCheckouts) FindByTransactionID(_ context.Context, txID string) (*entity.CartCheckout, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.rows[txID], nil
}

type fakeReconciliations struct {
	records []*entity.ReconciliationRecord
	err     error
}

func (f *fakeReconciliations) Record(_ context.Context, r *entity.ReconciliationRecord) error {
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, r)
	return nil
}

// recordingEffects captures what the materializer hands to the
// orchestrator.
type recordingEffects struct {
	committed []*entity.Booking
	contexts  []sideeffect.Context
	pruned    []uuid.UUID
}

func (r *recordingEffects) OnBookingCommitted(_ context.Context, b *entity.Booking, c sideeffect.Context) {
	r.committed = append(r.committed, b)
	r.contexts = append(r.contexts, c)
}

func (r *recordingEffects) OnCartMaterialized(_ context.Context, _ uuid.UUID, itemIDs []uuid.UUID) {
	r.pruned = append(r.pruned, itemIDs...)
}

// syncDispatcher runs cart pruning immediately and drops every other task.
type syncDispatcher struct {
	runner sideeffect.TaskRunner
	kinds  []sideeffect.Kind
}

func (d *syncDispatcher) Dispatch(ctx context.Context, t sideeffect.Task) error {
	d.kinds = append(d.kinds, t.Kind)
	if t.Kind == sideeffect.KindCartPrune {
		return d.runner.Run(ctx, t)
	}
	return nil
}

type mockGateway struct {
	CreatePaymentIntentFunc func(ctx context.Context, req gateway.IntentRequest) (*gateway.Intent, error)
	ParseEventFunc          func(payload []byte, signature string) (*gateway.Event, error)
	createCalls             int
}

func (m *mockGateway) CreatePaymentIntent(ctx context.Context, req gateway.IntentRequest) (*gateway.Intent, error) {
	m.createCalls++
	if m.CreatePaymentIntentFunc != nil {
		return m.CreatePaymentIntentFunc(ctx, req)
	}
	return &gateway.Intent{ID: "pi_test", ClientSecret: "pi_test_secret", AmountMinor: req.AmountMinor, Currency: req.Currency}, nil
}

func (m *mockGateway) ParseEvent(payload []byte, signature string) (*gateway.Event, error) {
	if m.ParseEventFunc != nil {
		return m.ParseEventFunc(payload, signature)
	}
	return nil, errors.New("ParseEvent not mocked")
}

type mockMaterializer struct {
	MaterializeFunc     func(ctx context.Context, p Payment, d entity.BookingDraft) (*entity.Booking, error)
	MaterializeCartFunc func(ctx context.Context, p Payment, c CartSnapshot) (*CartResult, error)
	calls               int
}

func (m *mockMaterializer) Materialize(ctx context.Context, p Payment, d entity.BookingDraft) (*entity.Booking, error) {
	m.calls++
	if m.MaterializeFunc != nil {
		return m.MaterializeFunc(ctx, p, d)
	}
	return &entity.Booking{Base: entity.Base{ID: uuid.New()}, TransactionID: p.TransactionID}, nil
}

func (m *mockMaterializer) MaterializeCart(ctx context.Context, p Payment, c CartSnapshot) (*CartResult, error) {
	m.calls++
	if m.MaterializeCartFunc != nil {
		return m.MaterializeCartFunc(ctx, p, c)
	}
	return &CartResult{}, nil
}

func diningDraft(serviceID uuid.UUID, total float64, requester entity.Requester) entity.BookingDraft {
	return entity.BookingDraft{
		Category:  entity.CategoryDining,
		ServiceID: serviceID.String(),
		Requester: requester,
		Guests:    2,
		Pricing:   entity.Pricing{BasePrice: total, Total: total},
		Details:   entity.DiningDetails{Date: "2026-11-02", Time: "7:30 PM"},
	}
}

func registeredUser() entity.Requester {
	id := uuid.MustParse("6f1c2a9e-3b4d-4e5f-8a7b-9c0d1e2f3a4b")
	return entity.Requester{UserID: &id}
}

func guestUser() entity.Requester {
	return entity.Requester{GuestName: "Ana Lima", GuestEmail: "ana@example.com"}
}

// fakeUsers treats every id as an active customer unless listed in
// inactive or missing.
type fakeUsers struct {
	missing  map[uuid.UUID]bool
	inactive map[uuid.UUID]bool
}

func (f *fakeUsers) FindByID(_ context.Context, id uuid.UUID) (*entity.User, error) {
	if f.missing[id] {
		return nil, nil
	}
	return &entity.User{
		Base:     entity.Base{ID: id},
		Email:    "account-" + id.String()[:8] + "@example.com",
		Role:     entity.RoleCustomer,
		IsActive: !f.inactive[id],
	}, nil
}
