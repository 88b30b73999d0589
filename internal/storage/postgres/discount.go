package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/pizza-cart/internal/domain/discount"
)

const (
	discountColumns = `id, code, discount_type, value, min_items, min_subtotal, delivery_types,
		valid_from, valid_until, max_discount, description`

	listActiveDiscountsSQL = `SELECT ` + discountColumns + ` FROM discounts
		WHERE active = TRUE ORDER BY code`

	getDiscountsByIDsSQL = `SELECT ` + discountColumns + ` FROM discounts
		WHERE active = TRUE AND id = ANY($1)`

	upsertDiscountSQL = `INSERT INTO discounts (` + discountColumns + `, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, TRUE)
		ON CONFLICT (id) DO UPDATE SET
			code = EXCLUDED.code, discount_type = EXCLUDED.discount_type, value = EXCLUDED.value,
			min_items = EXCLUDED.min_items, min_subtotal = EXCLUDED.min_subtotal,
			delivery_types = EXCLUDED.delivery_types, valid_from = EXCLUDED.valid_from,
			valid_until = EXCLUDED.valid_until, max_discount = EXCLUDED.max_discount,
			description = EXCLUDED.description, active = TRUE`
)

var _ discount.Repository = (*DiscountRepository)(nil)

// DiscountRepository implements discount.Repository backed by PostgreSQL.
type DiscountRepository struct {
	pool *pgxpool.Pool
}

// NewDiscountRepository returns a DiscountRepository that uses the given pool.
func NewDiscountRepository(pool *pgxpool.Pool) *DiscountRepository {
	return &DiscountRepository{pool: pool}
}

// ListActive returns every active rule ordered by code. Time windows are
// checked by the caller.
func (r *DiscountRepository) ListActive(ctx context.Context) ([]discount.Rule, error) {
	rows, err := r.pool.Query(ctx, listActiveDiscountsSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list discounts")
	}
	rules, err := pgx.CollectRows(rows, scanRule)
	if err != nil {
		return nil, errors.Wrap(err, "list discounts")
	}
	return rules, nil
}

// GetByIDs returns the active rules matching ids in no particular order.
func (r *DiscountRepository) GetByIDs(ctx context.Context, ids []string) ([]discount.Rule, error) {
	rows, err := r.pool.Query(ctx, getDiscountsByIDsSQL, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get discounts")
	}
	rules, err := pgx.CollectRows(rows, scanRule)
	if err != nil {
		return nil, errors.Wrap(err, "get discounts")
	}
	return rules, nil
}

// Upsert inserts or replaces a rule and marks it active.
func (r *DiscountRepository) Upsert(ctx context.Context, rule *discount.Rule) error {
	if _, err := r.pool.Exec(ctx, upsertDiscountSQL,
		rule.ID, rule.Code, string(rule.Type), rule.Value, rule.MinItems, rule.MinSubtotal,
		deliveryTypes(rule.DeliveryTypes), rule.ValidFrom, rule.ValidUntil, rule.MaxDiscount, rule.Description,
	); err != nil {
		return errors.Wrapf(err, "upsert discount %q", rule.Code)
	}
	return nil
}

func scanRule(row pgx.CollectableRow) (discount.Rule, error) {
	var (
		rule     discount.Rule
		kind     string
		minItems int32
		types    []string
	)
	err := row.Scan(
		&rule.ID, &rule.Code, &kind, &rule.Value, &minItems, &rule.MinSubtotal, &types,
		&rule.ValidFrom, &rule.ValidUntil, &rule.MaxDiscount, &rule.Description,
	)
	rule.Type = discount.Type(kind)
	rule.MinItems = int(minItems)
	rule.DeliveryTypes = parseDeliveryTypes(types)
	return rule, err
}
