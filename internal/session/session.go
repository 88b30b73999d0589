// Package session assembles the storefront session core: the state store,
// mutation hooks, summary synchronizer and delivery type coordinator.
package session

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/pizza-cart/internal/domain/delivery"
	"github.com/xenking/pizza-cart/internal/session/deliveryswitch"
	"github.com/xenking/pizza-cart/internal/session/mutation"
	"github.com/xenking/pizza-cart/internal/session/notify"
	"github.com/xenking/pizza-cart/internal/session/state"
	"github.com/xenking/pizza-cart/internal/session/summary"
)

// Backend is everything the session needs from the Backend API.
type Backend interface {
	mutation.API
	summary.Pricer
	deliveryswitch.ProductLookup
}

// Config describes one session.
type Config struct {
	// SessionID identifies the cart on the server. Generated when empty.
	SessionID string
	StoreID   string
	// DeliveryType is the initial type. It starts unselected.
	DeliveryType delivery.Type

	Debounce             time.Duration
	RequestTimeout       time.Duration
	RefetchAfterMutation bool
}

// Options carry the session's collaborators. Zero values select defaults.
type Options struct {
	Notifier       notify.Notifier
	SupportCache   deliveryswitch.Cache
	Clock          clockwork.Clock
	Logger         *zap.Logger
	MeterProvider  metric.MeterProvider
	TracerProvider trace.TracerProvider
}

// Session is the lifetime container of one storefront session.
type Session struct {
	ID       string
	Store    *state.Store
	Hooks    *mutation.Hooks
	Summary  *summary.Synchronizer
	Delivery *deliveryswitch.Coordinator

	cache deliveryswitch.Cache
	lg    *zap.Logger
}

// New starts a session. Close must be called when the session ends.
func New(cfg Config, backend Backend, opts Options) (*Session, error) {
	if cfg.StoreID == "" {
		return nil, errors.New("store id required")
	}
	if cfg.SessionID == "" {
		cfg.SessionID = uuid.NewString()
	}
	if cfg.DeliveryType == "" {
		cfg.DeliveryType = delivery.Delivery
	}
	dt, err := delivery.Parse(string(cfg.DeliveryType))
	if err != nil {
		return nil, err
	}
	cfg.DeliveryType = dt
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.Discard
	}
	if opts.SupportCache == nil {
		opts.SupportCache = deliveryswitch.NewMemoryCache()
	}
	lg := opts.Logger.With(zap.String("session_id", cfg.SessionID))

	store := state.New(cfg.DeliveryType)
	hooks := mutation.New(backend, store, opts.Notifier, mutation.Options{
		SessionID:            cfg.SessionID,
		StoreID:              cfg.StoreID,
		RefetchAfterMutation: cfg.RefetchAfterMutation,
	})
	syncer, err := summary.New(store, backend, summary.Options{
		StoreID:        cfg.StoreID,
		Quiet:          cfg.Debounce,
		Timeout:        cfg.RequestTimeout,
		Clock:          opts.Clock,
		Notifier:       opts.Notifier,
		Logger:         lg,
		MeterProvider:  opts.MeterProvider,
		TracerProvider: opts.TracerProvider,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create summary synchronizer")
	}
	resolver := deliveryswitch.NewSupportResolver(backend, opts.SupportCache, lg.Named("delivery"))

	lg.Debug("Session started", zap.String("store_id", cfg.StoreID))
	return &Session{
		ID:       cfg.SessionID,
		Store:    store,
		Hooks:    hooks,
		Summary:  syncer,
		Delivery: deliveryswitch.NewCoordinator(store, resolver, hooks, lg.Named("delivery")),
		cache:    opts.SupportCache,
		lg:       lg,
	}, nil
}

// Load fetches the session's existing cart from the server.
func (s *Session) Load(ctx context.Context) mutation.Result {
	return s.Hooks.RefetchCart(ctx)
}

// Close stops background work. A session-scoped support cache is cleared.
func (s *Session) Close() {
	s.Summary.Close()
	if c, ok := s.cache.(*deliveryswitch.MemoryCache); ok {
		c.Clear()
	}
	s.lg.Debug("Session closed")
}
