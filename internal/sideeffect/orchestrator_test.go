package sideeffect

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

func TestOrchestrator_OnBookingCommitted(t *testing.T) {
	tests := []struct {
		name       string
		registered bool
		code       string
		want       []Kind
	}{
		{"registered with referral", true, "ISLAND5", []Kind{KindReferralCommission, KindLoyaltyCredit, KindRevenueAnalytics}},
		{"registered without referral", true, "", []Kind{KindLoyaltyCredit, KindRevenueAnalytics}},
		{"guest with referral", false, "ISLAND5", []Kind{KindReferralCommission, KindRevenueAnalytics}},
		{"guest without referral", false, "", []Kind{KindRevenueAnalytics}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &recordingDispatcher{}
			o := NewOrchestrator(d, zap.NewNop())

			o.OnBookingCommitted(context.Background(), committedBooking(50, tt.registered), Context{ReferralCode: tt.code, AmountPaid: 50})

			if got := d.kinds(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("kinds = %v, want %v", got, tt.want)
			}
			for _, task := range d.tasks {
				if task.ID == uuid.Nil || task.EnqueuedAt.IsZero() {
					t.Errorf("task %s missing id or enqueue time", task.Kind)
				}
			}
		})
	}
}

func TestOrchestrator_DispatchFailureIsSwallowed(t *testing.T) {
	d := &recordingDispatcher{err: ErrQueueFull}
	o := NewOrchestrator(d, zap.NewNop())

	// must not panic or block
	o.OnBookingCommitted(context.Background(), committedBooking(50, true), Context{ReferralCode: "X", AmountPaid: 50})
	o.OnCartMaterialized(context.Background(), uuid.New(), []uuid.UUID{uuid.New()})
}

func TestOrchestrator_DetachesFromRequestContext(t *testing.T) {
	var sawCancelled bool
	d := dispatcherFunc(func(ctx context.Context, _ Task) error {
		sawCancelled = ctx.Err() != nil
		return nil
	})
	o := NewOrchestrator(d, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	o.OnBookingCommitted(ctx, committedBooking(50, false), Context{})

	if sawCancelled {
		t.Error("dispatcher received a cancelled context")
	}
}

func TestOrchestrator_OnCartMaterialized(t *testing.T) {
	d := &recordingDispatcher{}
	o := NewOrchestrator(d, zap.NewNop())
	cartID := uuid.New()
	items := []uuid.UUID{uuid.New(), uuid.New()}

	o.OnCartMaterialized(context.Background(), cartID, nil)
	o.OnCartMaterialized(context.Background(), cartID, items)

	if len(d.tasks) != 1 {
		t.Fatalf("tasks = %d, want 1 (empty prune is skipped)", len(d.tasks))
	}
	if d.tasks[0].Kind != KindCartPrune || d.tasks[0].CartID != cartID || len(d.tasks[0].CartItemIDs) != 2 {
		t.Errorf("task = %+v", d.tasks[0])
	}
}

type dispatcherFunc func(ctx context.Context, t Task) error

func (f dispatcherFunc) Dispatch(ctx context.Context, t Task) error { return f(ctx, t) }

type runnerFunc func(ctx context.Context, t Task) error

func (f runnerFunc) Run(ctx context.Context, t Task) error { return f(ctx, t) }

func TestWorkerPool_RunsAndDrains(t *testing.T) {
	var ran atomic.Int32
	pool := NewWorkerPool(runnerFunc(func(context.Context, Task) error {
		time.Sleep(5 * time.Millisecond)
		ran.Add(1)
		return nil
	}), 2, 10, zap.NewNop())

	for i := 0; i < 10; i++ {
		if err := pool.Dispatch(context.Background(), Task{ID: uuid.New(), Kind: KindCartPrune}); err != nil {
			t.Fatalf("Dispatch() #%d error = %v", i, err)
		}
	}
	pool.Close()

	if got := ran.Load(); got != 10 {
		t.Errorf("ran = %d, want 10 after Close drains", got)
	}
	if err := pool.Dispatch(context.Background(), Task{}); !errors.Is(err, ErrPoolClosed) {
		t.Errorf("Dispatch() after Close error = %v, want ErrPoolClosed", err)
	}
	pool.Close()
}

func TestWorkerPool_QueueFullDoesNotBlock(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	pool := NewWorkerPool(runnerFunc(func(context.Context, Task) error {
		started <- struct{}{}
		<-release
		return nil
	}), 1, 1, zap.NewNop())

	if err := pool.Dispatch(context.Background(), Task{}); err != nil {
		t.Fatalf("first Dispatch() error = %v", err)
	}
	<-started // worker is busy

	if err := pool.Dispatch(context.Background(), Task{}); err != nil {
		t.Fatalf("second Dispatch() error = %v", err)
	}
	if err := pool.Dispatch(context.Background(), Task{}); !errors.Is(err, ErrQueueFull) {
		t.Errorf("third Dispatch() error = %v, want ErrQueueFull", err)
	}

	close(release)
	pool.Close()
}

func TestWorkerPool_FailingTaskDoesNotStopOthers(t *testing.T) {
	var mu sync.Mutex
	var done []Kind
	pool := NewWorkerPool(runnerFunc(func(_ context.Context, task Task) error {
		if task.Kind == KindReferralCommission {
			return errMockStorage
		}
		mu.Lock()
		done = append(done, task.Kind)
		mu.Unlock()
		return nil
	}), 1, 8, zap.NewNop())

	_ = pool.Dispatch(context.Background(), Task{Kind: KindReferralCommission})
	_ = pool.Dispatch(context.Background(), Task{Kind: KindLoyaltyCredit})
	_ = pool.Dispatch(context.Background(), Task{Kind: KindRevenueAnalytics})
	pool.Close()

	if len(done) != 2 {
		t.Errorf("completed = %v, want loyalty and analytics", done)
	}
}

type fakePublisher struct {
	key, id string
	body    any
}

func (p *fakePublisher) PublishJSON(_ context.Context, key, id string, v any) error {
	p.key, p.id, p.body = key, id, v
	return nil
}

func TestAMQPDispatcher_RoutesByKind(t *testing.T) {
	pub := &fakePublisher{}
	task := Task{ID: uuid.New(), Kind: KindLoyaltyCredit, Booking: committedBooking(10, true)}

	if err := NewAMQPDispatcher(pub).Dispatch(context.Background(), task); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if pub.key != "loyalty.credit" || pub.id != task.ID.String() {
		t.Errorf("published key=%s id=%s", pub.key, pub.id)
	}
}

// fakeAcknowledger records what the consumer did with a delivery.
type fakeAcknowledger struct {
	acked, nacked, requeued bool
}

func (a *fakeAcknowledger) Ack(uint64, bool) error { a.acked = true; return nil }
func (a *fakeAcknowledger) Nack(_ uint64, _ bool, requeue bool) error {
	a.nacked, a.requeued = true, requeue
	return nil
}
func (a *fakeAcknowledger) Reject(_ uint64, requeue bool) error {
	a.nacked, a.requeued = true, requeue
	return nil
}

func TestConsumer_Handle(t *testing.T) {
	body := []byte(`{"id":"` + uuid.NewString() + `","kind":"cart.prune","cart_id":"` + uuid.NewString() + `","cart_item_ids":["` + uuid.NewString() + `"]}`)

	tests := []struct {
		name         string
		body         []byte
		redelivered  bool
		runErr       error
		wantAck      bool
		wantRequeue  bool
		wantRunCalls int
	}{
		{name: "success acks", body: body, wantAck: true, wantRunCalls: 1},
		{name: "malformed is dead-lettered", body: []byte(`{not json`), wantRunCalls: 0},
		{name: "first failure requeues", body: body, runErr: errMockStorage, wantRequeue: true, wantRunCalls: 1},
		{name: "repeated failure is dead-lettered", body: body, redelivered: true, runErr: errMockStorage, wantRunCalls: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			c := NewConsumer(runnerFunc(func(_ context.Context, task Task) error {
				calls++
				if task.Kind != KindCartPrune {
					t.Errorf("kind = %s", task.Kind)
				}
				return tt.runErr
			}), zap.NewNop())

			ack := &fakeAcknowledger{}
			c.Handle(context.Background(), amqp.Delivery{
				Acknowledger: ack,
				DeliveryTag:  1,
				Body:         tt.body,
				Redelivered:  tt.redelivered,
			})

			if calls != tt.wantRunCalls {
				t.Errorf("run calls = %d, want %d", calls, tt.wantRunCalls)
			}
			if ack.acked != tt.wantAck {
				t.Errorf("acked = %v, want %v", ack.acked, tt.wantAck)
			}
			if !tt.wantAck && !ack.nacked {
				t.Errorf("expected nack")
			}
			if ack.requeued != tt.wantRequeue {
				t.Errorf("requeue = %v, want %v", ack.requeued, tt.wantRequeue)
			}
		})
	}
}

func TestConsumer_RunStopsOnClosedChannel(t *testing.T) {
	ch := make(chan amqp.Delivery)
	close(ch)

	c := NewConsumer(runnerFunc(func(context.Context, Task) error { return nil }), zap.NewNop())
	if err := c.Run(context.Background(), ch); err != nil {
		t.Errorf("Run() error = %v", err)
	}
}

func TestOrchestrator_LoyaltyTaskCarriesCreditUnits(t *testing.T) {
	d := &recordingDispatcher{}
	o := NewOrchestrator(d, zap.NewNop())

	o.OnBookingCommitted(context.Background(), committedBooking(10.50, true), Context{AmountPaid: 10.50, CreditUnits: 11})

	for _, task := range d.tasks {
		if task.Kind == KindLoyaltyCredit && task.CreditUnits != 11 {
			t.Errorf("credit units = %d, want 11", task.CreditUnits)
		}
	}
}

func TestCreditUnits(t *testing.T) {
	tests := []struct {
		amount float64
		want   int64
	}{
		{42.70, 42},
		{21.00, 21},
		{0.99, 0},
		{-5, 0},
	}
	for _, tt := range tests {
		if got := CreditUnits(tt.amount); got != tt.want {
			t.Errorf("CreditUnits(%v) = %d, want %d", tt.amount, got, tt.want)
		}
	}
}
