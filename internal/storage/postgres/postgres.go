// Package postgres implements the domain repositories on PostgreSQL.
package postgres

import (
	"context"

	"github.com/go-faster/errors"
	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/pizza-cart/db"
	"github.com/xenking/pizza-cart/internal/domain/delivery"
)

// NewPool creates a pgxpool.Pool configured with shopspring/decimal support
// for NUMERIC columns.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse database config")
	}

	cfg.AfterConnect = func(_ context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "create connection pool")
	}
	return pool, nil
}

// RunMigrations applies the embedded schema files in order. Every file is
// idempotent, so this runs on each start.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	list, err := db.Migrations()
	if err != nil {
		return err
	}
	for _, m := range list {
		if _, err := pool.Exec(ctx, m.SQL); err != nil {
			return errors.Wrapf(err, "apply %s", m.Name)
		}
	}
	return nil
}

// Rows stored before a type was renamed are skipped rather than failing the
// whole read.
func parseDeliveryTypes(values []string) delivery.Set {
	s := make(delivery.Set, len(values))
	for _, v := range values {
		if t, err := delivery.Parse(v); err == nil {
			s[t] = struct{}{}
		}
	}
	return s
}

func deliveryTypes(s delivery.Set) []string {
	return s.Strings()
}
