package main

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"go.uber.org/zap"

	pizza "github.com/xenking/pizza-cart/internal/app"
)

func main() {
	app.Run(func(ctx context.Context, lg *zap.Logger, m *app.Telemetry) error {
		cfg, err := pizza.LoadConfig()
		if err != nil {
			return errors.Wrap(err, "config")
		}
		lg.Info("Config loaded",
			zap.Int("rate_limit", cfg.RateLimit.Max),
			zap.Strings("cors_origins", cfg.CORS.Origins),
			zap.Int64("max_body_bytes", cfg.MaxBodyBytes),
		)
		return pizza.Run(ctx, lg, m, cfg)
	})
}
