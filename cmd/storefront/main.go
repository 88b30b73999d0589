// Command storefront is an interactive terminal storefront. It runs one
// cart session against the Backend API for as long as the process lives.
package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/xenking/pizza-cart/internal/backend"
	"github.com/xenking/pizza-cart/internal/domain/delivery"
	"github.com/xenking/pizza-cart/internal/session"
	"github.com/xenking/pizza-cart/internal/session/deliveryswitch"
	"github.com/xenking/pizza-cart/internal/session/notify"
)

// Config is the storefront configuration, loaded from PIZZA_STOREFRONT_
// variables, flags or storefront.yaml.
type Config struct {
	BackendURL   string `default:"http://localhost:8080" usage:"Backend API base URL" flag:"backend-url"`
	StoreID      string `required:"true" usage:"Store the cart is priced for" flag:"store-id"`
	SessionID    string `usage:"Resume an existing cart session" flag:"session-id"`
	DeliveryType string `default:"delivery" usage:"Initial delivery type (delivery, pickup, dine_in)" flag:"delivery-type"`

	Debounce             time.Duration `default:"300ms" usage:"Quiet period before the summary is refreshed"`
	RequestTimeout       time.Duration `default:"10s" usage:"Timeout of a single Backend API request" flag:"request-timeout"`
	RefetchAfterMutation bool          `default:"false" usage:"Reload the cart after every change" flag:"refetch"`

	Redis RedisConfig
}

// RedisConfig enables a shared delivery support cache when Addr is set.
type RedisConfig struct {
	Addr string        `usage:"Redis address for the product support cache" flag:"redis-addr"`
	TTL  time.Duration `default:"10m" usage:"Support cache entry lifetime" flag:"redis-ttl"`
}

func loadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "PIZZA_STOREFRONT",
		Files:     []string{"storefront.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	return &cfg, nil
}

func main() {
	app.Run(func(ctx context.Context, lg *zap.Logger, m *app.Telemetry) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		dt, err := delivery.Parse(cfg.DeliveryType)
		if err != nil {
			return errors.Wrap(err, "delivery type")
		}

		client, err := backend.New(cfg.BackendURL, &http.Client{
			Timeout: cfg.RequestTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport,
				otelhttp.WithTracerProvider(m.TracerProvider()),
				otelhttp.WithMeterProvider(m.MeterProvider()),
			),
		})
		if err != nil {
			return errors.Wrap(err, "backend client")
		}

		var cache deliveryswitch.Cache
		if cfg.Redis.Addr != "" {
			rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
			defer func() { _ = rdb.Close() }()
			if err := rdb.Ping(ctx).Err(); err != nil {
				return errors.Wrap(err, "ping redis")
			}
			cache = deliveryswitch.NewRedisCache(rdb, cfg.Redis.TTL)
		}

		out := os.Stdout
		sess, err := session.New(session.Config{
			SessionID:            cfg.SessionID,
			StoreID:              cfg.StoreID,
			DeliveryType:         dt,
			Debounce:             cfg.Debounce,
			RequestTimeout:       cfg.RequestTimeout,
			RefetchAfterMutation: cfg.RefetchAfterMutation,
		}, client, session.Options{
			Notifier:       notify.Multi(session.NewLogNotifier(lg), printNotifier(out)),
			SupportCache:   cache,
			Logger:         lg,
			MeterProvider:  m.MeterProvider(),
			TracerProvider: m.TracerProvider(),
		})
		if err != nil {
			return errors.Wrap(err, "start session")
		}
		defer sess.Close()

		lg.Info("Session started",
			zap.String("session_id", sess.ID),
			zap.String("store_id", cfg.StoreID),
			zap.String("backend", cfg.BackendURL),
		)
		return newShell(sess, client, cfg.StoreID, out).Run(ctx, os.Stdin)
	})
}
