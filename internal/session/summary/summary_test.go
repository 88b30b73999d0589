package summary

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xenking/pizza-cart/internal/backend"
	"github.com/xenking/pizza-cart/internal/domain/cart"
	"github.com/xenking/pizza-cart/internal/domain/delivery"
	"github.com/xenking/pizza-cart/internal/domain/pricing"
	"github.com/xenking/pizza-cart/internal/session/notify"
	"github.com/xenking/pizza-cart/internal/session/state"
)

const waitFor = 2 * time.Second

type fakePricer struct {
	mu    sync.Mutex
	reqs  []pricing.Request
	err   error
	block chan struct{}
	// started receives one value per call when set.
	started chan struct{}
}

func (f *fakePricer) Summary(ctx context.Context, req pricing.Request) (*pricing.Summary, error) {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	err, block, started := f.err, f.block, f.started
	f.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return &pricing.Summary{Total: decimal.NewFromInt(int64(len(req.CartIDs)))}, nil
}

func (f *fakePricer) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.reqs)
}

func (f *fakePricer) last() pricing.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reqs[len(f.reqs)-1]
}

func (f *fakePricer) set(fn func(f *fakePricer)) {
	f.mu.Lock()
	fn(f)
	f.mu.Unlock()
}

type fixture struct {
	store  *state.Store
	pricer *fakePricer
	clock  *clockwork.FakeClock
	notes  *notify.Recorder
	syncer *Synchronizer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:  state.New(delivery.Delivery),
		pricer: &fakePricer{},
		clock:  clockwork.NewFakeClock(),
		notes:  &notify.Recorder{},
	}
	f.store.SetDeliveryType(delivery.Delivery)

	s, err := New(f.store, f.pricer, Options{
		StoreID:  "store-1",
		Clock:    f.clock,
		Notifier: f.notes,
		Logger:   zaptest.NewLogger(t),
	})
	require.NoError(t, err)
	t.Cleanup(s.Close)
	f.syncer = s
	return f
}

func item(id string, qty int) cart.Item {
	return cart.Item{ID: id, SessionID: "s1", ProductID: "p-" + id, Quantity: qty}
}

func TestDebounceCollapsesBurst(t *testing.T) {
	f := newFixture(t)

	f.store.AddItem(item("a", 1))
	for qty := 2; qty <= 5; qty++ {
		f.store.UpdateItem("a", item("a", qty))
	}
	assert.True(t, f.store.SummaryLoading())

	f.clock.Advance(DefaultQuiet - time.Millisecond)
	assert.Zero(t, f.pricer.calls())

	f.clock.Advance(time.Millisecond)
	require.Eventually(t, func() bool { return f.store.Summary() != nil }, waitFor, time.Millisecond)
	assert.Equal(t, 1, f.pricer.calls())
	assert.False(t, f.store.SummaryLoading())

	// Nothing else is queued.
	f.clock.Advance(time.Second)
	assert.Equal(t, 1, f.pricer.calls())
}

func TestRequestOmitsUnsetFields(t *testing.T) {
	f := newFixture(t)
	f.store.AddItem(item("a", 1))
	require.NoError(t, f.syncer.Flush(context.Background()))

	req := f.pricer.last()
	assert.Equal(t, []string{"a"}, req.CartIDs)
	assert.Equal(t, "store-1", req.StoreID)
	assert.Nil(t, req.DiscountIDs)
	assert.Empty(t, req.AddressID)
	assert.Equal(t, delivery.Delivery, req.DeliveryType)

	f.store.AddDiscount("d1")
	f.store.SetAddress("addr-1")
	require.NoError(t, f.syncer.Flush(context.Background()))

	req = f.pricer.last()
	assert.Equal(t, []string{"d1"}, req.DiscountIDs)
	assert.Equal(t, "addr-1", req.AddressID)
}

func TestEmptyCartClearsWithoutRequest(t *testing.T) {
	f := newFixture(t)

	f.store.AddItem(item("a", 1))
	require.NoError(t, f.syncer.Flush(context.Background()))
	require.NotNil(t, f.store.Summary())

	f.store.RemoveItem("a")
	assert.Nil(t, f.store.Summary())
	assert.Empty(t, f.store.CartIDs())
	assert.False(t, f.store.SummaryLoading())

	f.clock.Advance(time.Second)
	require.NoError(t, f.syncer.Flush(context.Background()))
	assert.Equal(t, 1, f.pricer.calls())
}

func TestFailureClearsSummary(t *testing.T) {
	f := newFixture(t)
	f.store.AddItem(item("a", 1))
	require.NoError(t, f.syncer.Flush(context.Background()))
	require.NotNil(t, f.store.Summary())

	f.pricer.set(func(p *fakePricer) {
		p.err = &backend.Failure{Kind: backend.KindDomain, StatusCode: 500, Message: backend.MsgDomain}
	})
	err := f.syncer.Flush(context.Background())
	require.Error(t, err)

	assert.Nil(t, f.store.Summary(), "previous summary must not survive a failed refresh")
	notes := f.notes.All()
	require.Len(t, notes, 1)
	assert.Equal(t, notify.LevelError, notes[0].Level)
	assert.Equal(t, OpSummary, notes[0].Op)
}

func TestPendingDeliveryTypeBlocksRequest(t *testing.T) {
	f := newFixture(t)
	f.store.SetDeliveryTypeSelected(false)
	f.store.AddItem(item("a", 1))

	require.NoError(t, f.syncer.Flush(context.Background()))
	assert.Zero(t, f.pricer.calls())
	assert.Nil(t, f.store.Summary())

	f.store.SetDeliveryType(delivery.Pickup)
	require.NoError(t, f.syncer.Flush(context.Background()))
	assert.Equal(t, 1, f.pricer.calls())
	assert.NotNil(t, f.store.Summary())
}

func TestInputChangeCancelsInflight(t *testing.T) {
	f := newFixture(t)
	block := make(chan struct{})
	started := make(chan struct{}, 4)
	f.pricer.set(func(p *fakePricer) {
		p.block = block
		p.started = started
	})

	f.store.AddItem(item("a", 1))
	done := make(chan error, 1)
	go func() { done <- f.syncer.Flush(context.Background()) }()
	<-started

	// New inputs arrive while the first request is in flight.
	f.store.AddItem(item("b", 1))
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(waitFor):
		t.Fatal("in-flight request was not cancelled")
	}
	assert.Nil(t, f.store.Summary())
	assert.Zero(t, f.notes.Len())

	close(block)
	f.clock.Advance(DefaultQuiet)
	require.Eventually(t, func() bool { return f.store.Summary() != nil }, waitFor, time.Millisecond)
	assert.Equal(t, "2", f.store.Summary().Total.String())
	assert.Equal(t, []string{"a", "b"}, f.pricer.last().CartIDs)
}

func TestStaleResultNotStored(t *testing.T) {
	store := state.New(delivery.Pickup)
	store.SetDeliveryType(delivery.Pickup)
	store.AddItem(item("a", 1))

	// The pricer answers after the inputs changed, ignoring cancellation.
	var pricer pricerFunc = func(_ context.Context, req pricing.Request) (*pricing.Summary, error) {
		store.AddDiscount("late")
		return &pricing.Summary{Total: decimal.NewFromInt(1)}, nil
	}
	s, err := New(store, pricer, Options{StoreID: "store-1", Clock: clockwork.NewFakeClock()})
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Flush(context.Background()))
	assert.Nil(t, store.Summary())
}

func TestStaleFailureNotNotified(t *testing.T) {
	store := state.New(delivery.Pickup)
	store.SetDeliveryType(delivery.Pickup)
	store.AddItem(item("a", 1))
	notes := &notify.Recorder{}

	// The inputs change while the failing request is in flight.
	var pricer pricerFunc = func(_ context.Context, req pricing.Request) (*pricing.Summary, error) {
		store.AddDiscount("late")
		return nil, &backend.Failure{Kind: backend.KindDomain, StatusCode: 500, Message: backend.MsgDomain}
	}
	s, err := New(store, pricer, Options{StoreID: "store-1", Clock: clockwork.NewFakeClock(), Notifier: notes})
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Flush(context.Background()))
	assert.Zero(t, notes.Len())
	assert.True(t, store.SummaryLoading(), "the newer inputs are still waiting for their refresh")
}

func TestLoadingFollowsRearm(t *testing.T) {
	f := newFixture(t)
	block := make(chan struct{})
	started := make(chan struct{}, 4)
	f.pricer.set(func(p *fakePricer) {
		p.block = block
		p.started = started
	})

	f.store.AddItem(item("a", 1))
	done := make(chan error, 1)
	go func() { done <- f.syncer.Flush(context.Background()) }()
	<-started

	f.store.AddItem(item("b", 1))
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(waitFor):
		t.Fatal("in-flight request was not cancelled")
	}
	assert.True(t, f.store.SummaryLoading(), "a refresh is still scheduled")

	close(block)
	f.clock.Advance(DefaultQuiet)
	require.Eventually(t, func() bool { return f.store.Summary() != nil }, waitFor, time.Millisecond)
	assert.False(t, f.store.SummaryLoading())
}

type pricerFunc func(ctx context.Context, req pricing.Request) (*pricing.Summary, error)

func (fn pricerFunc) Summary(ctx context.Context, req pricing.Request) (*pricing.Summary, error) {
	return fn(ctx, req)
}

func TestCloseStopsScheduling(t *testing.T) {
	f := newFixture(t)
	f.store.AddItem(item("a", 1))
	f.syncer.Close()

	f.clock.Advance(time.Second)
	f.store.AddItem(item("b", 1))
	f.clock.Advance(time.Second)
	require.NoError(t, f.syncer.Flush(context.Background()))

	assert.Zero(t, f.pricer.calls())
}
