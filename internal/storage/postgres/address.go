package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/pizza-cart/internal/domain/address"
)

const (
	addressColumns = `id::text, session_id, label, line1, line2, city, postal_code, lat, lng`

	listAddressesSQL = `SELECT ` + addressColumns + ` FROM addresses
		WHERE session_id = $1 ORDER BY created_at, id`

	getAddressSQL = `SELECT ` + addressColumns + ` FROM addresses WHERE id = $1`

	createAddressSQL = `INSERT INTO addresses (id, session_id, label, line1, line2, city, postal_code, lat, lng)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	updateAddressSQL = `UPDATE addresses
		SET label = $2, line1 = $3, line2 = $4, city = $5, postal_code = $6, lat = $7, lng = $8
		WHERE id = $1`

	deleteAddressSQL = `DELETE FROM addresses WHERE id = $1`
)

var _ address.Repository = (*AddressRepository)(nil)

// AddressRepository implements address.Repository backed by PostgreSQL.
type AddressRepository struct {
	pool *pgxpool.Pool
}

// NewAddressRepository returns an AddressRepository that uses the given pool.
func NewAddressRepository(pool *pgxpool.Pool) *AddressRepository {
	return &AddressRepository{pool: pool}
}

func (r *AddressRepository) ListBySession(ctx context.Context, sessionID string) ([]address.Address, error) {
	rows, err := r.pool.Query(ctx, listAddressesSQL, sessionID)
	if err != nil {
		return nil, errors.Wrap(err, "list addresses")
	}
	out, err := pgx.CollectRows(rows, scanAddress)
	if err != nil {
		return nil, errors.Wrap(err, "list addresses")
	}
	return out, nil
}

func (r *AddressRepository) GetByID(ctx context.Context, id string) (*address.Address, error) {
	if uuid.Validate(id) != nil {
		return nil, address.ErrNotFound
	}
	rows, err := r.pool.Query(ctx, getAddressSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get address %q", id)
	}
	a, err := pgx.CollectExactlyOneRow(rows, scanAddress)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, address.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get address %q", id)
	}
	return &a, nil
}

func (r *AddressRepository) Create(ctx context.Context, a *address.Address) error {
	a.ID = uuid.NewString()
	if _, err := r.pool.Exec(ctx, createAddressSQL,
		a.ID, a.SessionID, a.Label, a.Line1, a.Line2, a.City, a.PostalCode, a.Lat, a.Lng,
	); err != nil {
		return errors.Wrap(err, "create address")
	}
	return nil
}

func (r *AddressRepository) Update(ctx context.Context, a *address.Address) error {
	if uuid.Validate(a.ID) != nil {
		return address.ErrNotFound
	}
	tag, err := r.pool.Exec(ctx, updateAddressSQL,
		a.ID, a.Label, a.Line1, a.Line2, a.City, a.PostalCode, a.Lat, a.Lng,
	)
	if err != nil {
		return errors.Wrapf(err, "update address %q", a.ID)
	}
	if tag.RowsAffected() == 0 {
		return address.ErrNotFound
	}
	return nil
}

func (r *AddressRepository) Delete(ctx context.Context, id string) error {
	if uuid.Validate(id) != nil {
		return address.ErrNotFound
	}
	tag, err := r.pool.Exec(ctx, deleteAddressSQL, id)
	if err != nil {
		return errors.Wrapf(err, "delete address %q", id)
	}
	if tag.RowsAffected() == 0 {
		return address.ErrNotFound
	}
	return nil
}

func scanAddress(row pgx.CollectableRow) (address.Address, error) {
	var a address.Address
	err := row.Scan(&a.ID, &a.SessionID, &a.Label, &a.Line1, &a.Line2, &a.City, &a.PostalCode, &a.Lat, &a.Lng)
	return a, err
}
