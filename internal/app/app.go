// Package app wires the Backend API server.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/pizza-cart/internal/domain/discount"
	"github.com/xenking/pizza-cart/internal/domain/pricing"
	"github.com/xenking/pizza-cart/internal/handler"
	"github.com/xenking/pizza-cart/internal/storage/postgres"
	"github.com/xenking/pizza-cart/pkg/health"
	"github.com/xenking/pizza-cart/pkg/httpmiddleware"
)

// Run connects to PostgreSQL, serves the API until ctx is cancelled and then
// drains connections.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, health.PingCheck("postgres", pool.Ping))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(newRouter(cfg, pool, healthSvc),
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", httpmiddleware.RequestIDHeader},
				ExposeHeaders:    []string{httpmiddleware.RequestIDHeader, "Retry-After"},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Instrument("pizza-api", m.TracerProvider(), m.MeterProvider()),
			httpmiddleware.LogRequests(),
		),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lg.Info("Server listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "listen")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		defer healthSvc.Stop()
		return drain(lg, server, healthSvc, cfg.Graceful)
	})
	return g.Wait()
}

// drain flips readiness off, gives load balancers ReadinessDelay to notice and
// then shuts the server down within ShutdownTimeout.
func drain(lg *zap.Logger, server *http.Server, healthSvc *health.Health, cfg GracefulConfig) error {
	healthSvc.SetReady(false)
	lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.ReadinessDelay))
	time.Sleep(cfg.ReadinessDelay)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	lg.Info("Shutting down server", zap.Duration("timeout", cfg.ShutdownTimeout))
	if err := server.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "shutdown")
	}
	return nil
}

// newRouter builds the repositories and domain services on top of pool and
// mounts the API next to the health probes.
func newRouter(cfg *Config, pool *pgxpool.Pool, healthSvc *health.Health) http.Handler {
	products := postgres.NewProductRepository(pool)
	items := postgres.NewCartRepository(pool)
	addresses := postgres.NewAddressRepository(pool)
	locations := postgres.NewLocationRepository(pool)
	discounts := postgres.NewDiscountRepository(pool)

	pricingSvc := pricing.NewService(items, products, locations, addresses, discount.NewFinder(discounts))
	h := handler.NewHandler(
		handler.Config{ImageBaseURL: cfg.ImageBaseURL, MaxBodyBytes: cfg.MaxBodyBytes},
		products,
		items,
		addresses,
		locations,
		pricingSvc,
	)

	r := h.Router()
	r.Get("/livez", healthSvc.LiveEndpoint)
	r.Get("/readyz", healthSvc.ReadyEndpoint)
	return r
}
