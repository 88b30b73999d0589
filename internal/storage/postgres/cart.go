package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/pizza-cart/internal/domain/cart"
)

const (
	cartColumns = `id::text, session_id, product_id, variant_id, addons, quantity`

	listCartSQL = `SELECT ` + cartColumns + ` FROM cart_items
		WHERE session_id = $1 ORDER BY created_at, id`

	getCartItemsSQL = `SELECT ` + cartColumns + ` FROM cart_items WHERE id = ANY($1::text[]::uuid[])`

	createCartItemSQL = `INSERT INTO cart_items (id, session_id, product_id, variant_id, addons, quantity)
		VALUES ($1, $2, $3, $4, $5, $6)`

	updateCartItemSQL = `UPDATE cart_items
		SET variant_id = $2, addons = $3, quantity = $4, updated_at = now()
		WHERE id = $1`

	deleteCartItemSQL = `DELETE FROM cart_items WHERE id = $1`
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by PostgreSQL.
type CartRepository struct {
	pool *pgxpool.Pool
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

// ListBySession returns a session's items in insertion order.
func (r *CartRepository) ListBySession(ctx context.Context, sessionID string) ([]cart.Item, error) {
	rows, err := r.pool.Query(ctx, listCartSQL, sessionID)
	if err != nil {
		return nil, errors.Wrap(err, "list cart items")
	}
	items, err := pgx.CollectRows(rows, scanCartItem)
	if err != nil {
		return nil, errors.Wrap(err, "list cart items")
	}
	return items, nil
}

// GetByIDs returns the items matching ids. Malformed and unknown ids are
// skipped, the caller decides whether that is an error.
func (r *CartRepository) GetByIDs(ctx context.Context, ids []string) ([]cart.Item, error) {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if uuid.Validate(id) == nil {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		return nil, nil
	}

	rows, err := r.pool.Query(ctx, getCartItemsSQL, valid)
	if err != nil {
		return nil, errors.Wrap(err, "get cart items")
	}
	items, err := pgx.CollectRows(rows, scanCartItem)
	if err != nil {
		return nil, errors.Wrap(err, "get cart items")
	}
	return items, nil
}

// Create stores a new item and assigns its id.
func (r *CartRepository) Create(ctx context.Context, item *cart.Item) error {
	item.ID = uuid.NewString()
	if _, err := r.pool.Exec(ctx, createCartItemSQL,
		item.ID, item.SessionID, item.ProductID, item.VariantID, addonsParam(item.Addons), item.Quantity,
	); err != nil {
		return errors.Wrap(err, "create cart item")
	}
	return nil
}

// Update overwrites the mutable fields of an item.
func (r *CartRepository) Update(ctx context.Context, item *cart.Item) error {
	if uuid.Validate(item.ID) != nil {
		return cart.ErrItemNotFound
	}
	tag, err := r.pool.Exec(ctx, updateCartItemSQL,
		item.ID, item.VariantID, addonsParam(item.Addons), item.Quantity,
	)
	if err != nil {
		return errors.Wrapf(err, "update cart item %q", item.ID)
	}
	if tag.RowsAffected() == 0 {
		return cart.ErrItemNotFound
	}
	return nil
}

// Delete removes an item.
func (r *CartRepository) Delete(ctx context.Context, id string) error {
	if uuid.Validate(id) != nil {
		return cart.ErrItemNotFound
	}
	tag, err := r.pool.Exec(ctx, deleteCartItemSQL, id)
	if err != nil {
		return errors.Wrapf(err, "delete cart item %q", id)
	}
	if tag.RowsAffected() == 0 {
		return cart.ErrItemNotFound
	}
	return nil
}

// JSONB column is NOT NULL, so a nil map is stored as {}.
func addonsParam(addons map[string]int) map[string]int {
	if addons == nil {
		return map[string]int{}
	}
	return addons
}

func scanCartItem(row pgx.CollectableRow) (cart.Item, error) {
	var it cart.Item
	err := row.Scan(&it.ID, &it.SessionID, &it.ProductID, &it.VariantID, &it.Addons, &it.Quantity)
	if len(it.Addons) == 0 {
		it.Addons = nil
	}
	return it, err
}
