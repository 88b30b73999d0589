// Package summary keeps the billing summary of a session in step with its
// cart, discounts and delivery context.
//
// Input changes are debounced: the pricing request goes out once the inputs
// have been quiet for a fixed period. Every request is tied to the store
// generation it was built from. Requests for older generations are cancelled
// and their results are never stored.
package summary

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/pizza-cart/internal/backend"
	"github.com/xenking/pizza-cart/internal/domain/pricing"
	"github.com/xenking/pizza-cart/internal/session/notify"
	"github.com/xenking/pizza-cart/internal/session/state"
)

// DefaultQuiet is the debounce window.
const DefaultQuiet = 300 * time.Millisecond

// OpSummary names the operation in notifications.
const OpSummary = "cart.summary"

const instrumentationName = "github.com/xenking/pizza-cart/internal/session/summary"

// Pricer computes billing summaries.
type Pricer interface {
	Summary(ctx context.Context, req pricing.Request) (*pricing.Summary, error)
}

// Options configure a Synchronizer. Zero values select defaults.
type Options struct {
	StoreID string
	// Quiet is the debounce window.
	Quiet time.Duration
	// Timeout bounds a single pricing request when positive.
	Timeout time.Duration

	Clock          clockwork.Clock
	Notifier       notify.Notifier
	Logger         *zap.Logger
	MeterProvider  metric.MeterProvider
	TracerProvider trace.TracerProvider
}

func (o *Options) setDefaults() {
	if o.Quiet <= 0 {
		o.Quiet = DefaultQuiet
	}
	if o.Clock == nil {
		o.Clock = clockwork.NewRealClock()
	}
	if o.Notifier == nil {
		o.Notifier = notify.Discard
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.MeterProvider == nil {
		o.MeterProvider = otel.GetMeterProvider()
	}
	if o.TracerProvider == nil {
		o.TracerProvider = otel.GetTracerProvider()
	}
}

// Synchronizer refreshes the store's billing summary after input changes.
type Synchronizer struct {
	store  *state.Store
	pricer Pricer
	opts   Options
	lg     *zap.Logger

	requests metric.Int64Counter
	tracer   trace.Tracer

	mu     sync.Mutex
	timer  clockwork.Timer
	cancel context.CancelFunc
	// issued counts requests; the newest one owns cancel.
	issued uint64
	// armed is set while the debounce timer is pending.
	armed  bool
	closed bool
	wg     sync.WaitGroup

	unsubscribe func()
}

// New creates a Synchronizer and subscribes it to store. If the cart already
// has items a refresh is scheduled right away.
func New(store *state.Store, pricer Pricer, opts Options) (*Synchronizer, error) {
	opts.setDefaults()

	requests, err := opts.MeterProvider.Meter(instrumentationName).Int64Counter("pricing.requests",
		metric.WithDescription("Pricing summary requests by result"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create pricing.requests counter")
	}

	s := &Synchronizer{
		store:    store,
		pricer:   pricer,
		opts:     opts,
		lg:       opts.Logger.Named("summary"),
		requests: requests,
		tracer:   opts.TracerProvider.Tracer(instrumentationName),
	}
	s.unsubscribe = store.Subscribe(s.onChange)
	s.schedule()
	return s, nil
}

func (s *Synchronizer) onChange(c state.Change) {
	if c.Has(state.Inputs) {
		s.schedule()
	}
}

// schedule (re)arms the debounce timer, or clears the summary at once when
// the cart is empty. Any in-flight request is for outdated inputs and is
// cancelled.
func (s *Synchronizer) schedule() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.cancelInflightLocked()

	if len(s.store.CartIDs()) == 0 {
		s.stopTimerLocked()
		s.store.SetSummaryLoading(false)
		s.mu.Unlock()

		s.store.SetSummary(nil)
		return
	}

	if s.timer == nil {
		s.timer = s.opts.Clock.AfterFunc(s.opts.Quiet, s.fire)
	} else {
		s.timer.Reset(s.opts.Quiet)
	}
	s.armed = true
	// The loading flag follows armed under s.mu so that a finishing
	// refresh cannot clear it after the timer was re-armed.
	s.store.SetSummaryLoading(true)
	s.mu.Unlock()
}

func (s *Synchronizer) fire() {
	// Failures are already reported through the notifier.
	_ = s.refresh(context.Background())
}

// Flush cancels the pending debounce and refreshes synchronously.
func (s *Synchronizer) Flush(ctx context.Context) error {
	s.mu.Lock()
	s.stopTimerLocked()
	s.mu.Unlock()
	return s.refresh(ctx)
}

// Close stops the timer, cancels in-flight work and waits for it to return.
func (s *Synchronizer) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.stopTimerLocked()
	s.cancelInflightLocked()
	s.mu.Unlock()

	s.unsubscribe()
	s.wg.Wait()
}

func (s *Synchronizer) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
	}
	s.armed = false
}

func (s *Synchronizer) cancelInflightLocked() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

func (s *Synchronizer) refresh(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.armed = false
	snap := s.store.Snapshot()
	gen := snap.Generation

	if len(snap.Items) == 0 {
		s.store.SetSummaryLoading(false)
		s.mu.Unlock()
		s.store.SetSummaryFor(gen, nil)
		return nil
	}
	if !snap.Delivery.Selected {
		// No request until the user picks a delivery type.
		s.store.SetSummaryLoading(false)
		s.mu.Unlock()
		s.lg.Debug("Delivery type pending, skipping summary")
		s.store.SetSummaryFor(gen, nil)
		return nil
	}

	s.cancelInflightLocked()
	var (
		reqCtx context.Context
		cancel context.CancelFunc
	)
	if s.opts.Timeout > 0 {
		reqCtx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
	} else {
		reqCtx, cancel = context.WithCancel(ctx)
	}
	s.cancel = cancel
	s.issued++
	id := s.issued
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	req := buildRequest(snap, s.opts.StoreID)
	sum, err := s.request(reqCtx, gen, req)

	// Cancelled by us because the inputs moved on or the session closed.
	superseded := errors.Is(reqCtx.Err(), context.Canceled) && ctx.Err() == nil

	s.mu.Lock()
	latest := id == s.issued
	if latest {
		s.cancel = nil
		if !s.armed {
			s.store.SetSummaryLoading(false)
		}
	}
	s.mu.Unlock()
	cancel()

	switch {
	case err != nil && superseded:
		return nil
	case err != nil && gen != s.store.Generation():
		// The inputs moved on before we could cancel; the next refresh
		// reports its own outcome.
		s.lg.Debug("Dropping failure for outdated inputs", zap.Uint64("generation", gen), zap.Error(err))
		return nil
	case err != nil:
		s.store.SetSummaryFor(gen, nil)
		f := backend.AsFailure(err)
		s.opts.Notifier.Notify(notify.Notification{
			Level:   notify.LevelError,
			Op:      OpSummary,
			Message: f.Message,
			Err:     f,
		})
		return err
	}

	if !s.store.SetSummaryFor(gen, sum) {
		s.lg.Debug("Discarding summary for outdated inputs", zap.Uint64("generation", gen))
	}
	return nil
}

func (s *Synchronizer) request(ctx context.Context, gen uint64, req pricing.Request) (*pricing.Summary, error) {
	ctx, span := s.tracer.Start(ctx, "summary.Refresh",
		trace.WithAttributes(
			attribute.Int("cart.items", len(req.CartIDs)),
			attribute.Int64("store.generation", int64(gen)),
		),
	)
	defer span.End()

	sum, err := s.pricer.Summary(ctx, req)

	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		result = "cancelled"
	default:
		result = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, "pricing request failed")
	}
	s.requests.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))

	if err != nil {
		s.lg.Debug("Pricing request failed", zap.String("result", result), zap.Error(err))
		return nil, err
	}
	return sum, nil
}

// buildRequest omits optional members that are not set.
func buildRequest(snap state.Snapshot, storeID string) pricing.Request {
	req := pricing.Request{
		CartIDs:      make([]string, len(snap.Items)),
		StoreID:      storeID,
		DeliveryType: snap.Delivery.Type,
		AddressID:    snap.Delivery.AddressID,
	}
	for i, it := range snap.Items {
		req.CartIDs[i] = it.ID
	}
	if len(snap.Discounts) > 0 {
		req.DiscountIDs = snap.Discounts
	}
	return req
}
