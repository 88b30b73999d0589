package main

import (
	"bufio"
	"context"
	"log/slog"
	"math/bits"
	"os"
	"slices"
	"strings"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/pizza-cart/internal/domain/discount"
)

// scanner finds promo codes present in at least minFiles of the partner
// dumps. Pass one builds a bloom filter per file; pass two re-reads every
// file and keeps codes that other files' filters claim to hold. Only codes
// actually seen in minFiles files survive the merge, so filter false
// positives never become discounts.
type scanner struct {
	capacity uint
	fpr      float64
	minLen   int
	maxLen   int
	minFiles int
	progress uint64
}

func (s *scanner) validLen(code string) bool {
	return len(code) >= s.minLen && len(code) <= s.maxLen
}

func (s *scanner) scan(ctx context.Context, files []string) ([]string, error) {
	if len(files) > bits.UintSize {
		return nil, errors.Errorf("at most %d files supported, got %d", bits.UintSize, len(files))
	}
	if s.minFiles < 1 || s.minFiles > len(files) {
		return nil, errors.Errorf("min files %d out of range for %d files", s.minFiles, len(files))
	}

	filters := make([]*bloom.BloomFilter, len(files))
	g, gctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			f, err := s.buildFilter(gctx, i, path)
			filters[i] = f
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, "pass 1")
	}

	seen := make([]map[string]uint, len(files))
	g, gctx = errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			m, err := s.candidates(gctx, i, path, filters)
			seen[i] = m
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, "pass 2")
	}

	merged := make(map[string]uint)
	for _, m := range seen {
		for code, mask := range m {
			merged[code] |= mask
		}
	}
	var codes []string
	for code, mask := range merged {
		if bits.OnesCount(mask) >= s.minFiles {
			codes = append(codes, code)
		}
	}
	slices.Sort(codes)
	return codes, nil
}

func (s *scanner) buildFilter(ctx context.Context, idx int, path string) (*bloom.BloomFilter, error) {
	filter := bloom.NewWithEstimates(s.capacity, s.fpr)
	var n uint64
	err := streamCodes(ctx, path, func(code string) {
		if !s.validLen(code) {
			return
		}
		filter.AddString(code)
		n++
		if s.progress > 0 && n%s.progress == 0 {
			slog.Info("pass 1 progress", slog.Int("file", idx+1), slog.Uint64("codes", n))
		}
	})
	if err != nil {
		return nil, err
	}
	slog.Info("pass 1 complete", slog.String("file", path), slog.Uint64("codes", n))
	return filter, nil
}

// candidates marks codes of file idx that at least minFiles-1 other filters
// report as present.
func (s *scanner) candidates(ctx context.Context, idx int, path string, filters []*bloom.BloomFilter) (map[string]uint, error) {
	out := make(map[string]uint)
	bit := uint(1) << uint(idx)
	need := s.minFiles - 1
	err := streamCodes(ctx, path, func(code string) {
		if !s.validLen(code) {
			return
		}
		if need == 0 {
			out[code] |= bit
			return
		}
		hits := 0
		for j, f := range filters {
			if j != idx && f.TestString(code) {
				hits++
				if hits >= need {
					out[code] |= bit
					return
				}
			}
		}
	})
	if err != nil {
		return nil, err
	}
	slog.Info("pass 2 complete", slog.String("file", path), slog.Int("candidates", len(out)))
	return out, nil
}

// streamCodes calls fn for every trimmed line of a gzip file.
func streamCodes(ctx context.Context, path string, fn func(code string)) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "open dump")
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "gzip %s", path)
	}
	defer func() { _ = gz.Close() }()

	sc := bufio.NewScanner(gz)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		fn(strings.ToUpper(strings.TrimSpace(sc.Text())))
	}
	if err := sc.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}
	return nil
}

// promo maps well-known code prefixes to their rule. Anything else gets
// defaultPromo.
type promo struct {
	prefix      string
	kind        discount.Type
	value       int64
	minItems    int
	minSubtotal int64
	description string
}

var promos = []promo{
	{prefix: "FREEDEL", kind: discount.FreeDelivery, minSubtotal: 20, description: "Free delivery on orders over 20"},
	{prefix: "BOGO", kind: discount.FreeLowest, minItems: 2, description: "Cheapest item free when you order two"},
	{prefix: "HALF", kind: discount.Percentage, value: 50, description: "50% off the entire order"},
	{prefix: "FIVEOFF", kind: discount.Fixed, value: 5, minSubtotal: 15, description: "5 off orders over 15"},
	{prefix: "PIZZA", kind: discount.Percentage, value: 15, description: "Partner promo: 15% off"},
}

var defaultPromo = promo{kind: discount.Percentage, value: 10, description: "Partner promo: 10% off"}

// ruleFor builds the discount stored for an ingested code.
func ruleFor(code string) discount.Rule {
	p := defaultPromo
	for _, candidate := range promos {
		if strings.HasPrefix(code, candidate.prefix) {
			p = candidate
			break
		}
	}
	return discount.Rule{
		ID:          "ingest-" + strings.ToLower(code),
		Code:        code,
		Type:        p.kind,
		Value:       decimal.NewFromInt(p.value),
		MinItems:    p.minItems,
		MinSubtotal: decimal.NewFromInt(p.minSubtotal),
		MaxDiscount: decimal.Zero,
		Description: p.description,
	}
}
