package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"

	"github.com/go-faster/errors"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/pizza-cart/internal/domain/discount"
	"github.com/xenking/pizza-cart/internal/storage/postgres"
)

// ruleWriter stores ingested rules.
type ruleWriter interface {
	Upsert(ctx context.Context, rule *discount.Rule) error
}

func main() {
	var (
		dataDir     string
		pattern     string
		databaseURL string
		minFiles    int
		dryRun      bool
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing gzip promo code dumps")
	flag.StringVar(&pattern, "pattern", "*.gz", "glob selecting dump files inside data-dir")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.IntVar(&minFiles, "min-files", 2, "number of dumps a code must appear in")
	flag.BoolVar(&dryRun, "dry-run", false, "print matching codes without writing them")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" && !dryRun {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	s := &scanner{
		capacity: 120_000_000,
		fpr:      0.001,
		minLen:   6,
		maxLen:   12,
		minFiles: minFiles,
		progress: 10_000_000,
	}
	if err := run(ctx, s, filepath.Join(dataDir, pattern), databaseURL, dryRun); err != nil {
		slog.Error("discount ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	slog.Info("discount ingest completed successfully")
}

func run(ctx context.Context, s *scanner, glob, databaseURL string, dryRun bool) error {
	files, err := filepath.Glob(glob)
	if err != nil {
		return errors.Wrap(err, "glob dumps")
	}
	if len(files) == 0 {
		return errors.Errorf("no dumps match %s", glob)
	}
	slog.Info("scanning dumps", slog.Int("files", len(files)), slog.Int("min_files", s.minFiles))

	codes, err := s.scan(ctx, files)
	if err != nil {
		return err
	}
	slog.Info("codes found", slog.Int("count", len(codes)))
	if dryRun {
		for _, code := range codes {
			r := ruleFor(code)
			slog.Info("code", slog.String("code", code), slog.String("type", string(r.Type)), slog.String("value", r.Value.String()))
		}
		return nil
	}
	if len(codes) == 0 {
		return nil
	}

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()
	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}
	return writeRules(ctx, postgres.NewDiscountRepository(pool), codes)
}

// writeRules upserts a discount per code with bounded concurrency.
func writeRules(ctx context.Context, w ruleWriter, codes []string) error {
	var written atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for _, code := range codes {
		g.Go(func() error {
			rule := ruleFor(code)
			if err := w.Upsert(ctx, &rule); err != nil {
				return errors.Wrapf(err, "upsert %s", code)
			}
			if n := written.Add(1); n%100 == 0 || int(n) == len(codes) {
				slog.Info("write progress", slog.Int64("written", n), slog.Int("total", len(codes)))
			}
			return nil
		})
	}
	return g.Wait()
}
