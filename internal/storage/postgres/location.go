package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/pizza-cart/internal/domain/location"
)

const (
	locationColumns = `id, name, address, lat, lng, delivery_types, delivery_radius_km, delivery_fee, tax_rate`

	listLocationsSQL = `SELECT ` + locationColumns + ` FROM locations ORDER BY id`

	getLocationSQL = `SELECT ` + locationColumns + ` FROM locations WHERE id = $1`

	upsertLocationSQL = `INSERT INTO locations (` + locationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, address = EXCLUDED.address, lat = EXCLUDED.lat, lng = EXCLUDED.lng,
			delivery_types = EXCLUDED.delivery_types, delivery_radius_km = EXCLUDED.delivery_radius_km,
			delivery_fee = EXCLUDED.delivery_fee, tax_rate = EXCLUDED.tax_rate`
)

var _ location.Repository = (*LocationRepository)(nil)

// LocationRepository implements location.Repository backed by PostgreSQL.
type LocationRepository struct {
	pool *pgxpool.Pool
}

// NewLocationRepository returns a LocationRepository that uses the given pool.
func NewLocationRepository(pool *pgxpool.Pool) *LocationRepository {
	return &LocationRepository{pool: pool}
}

func (r *LocationRepository) List(ctx context.Context) ([]location.Location, error) {
	rows, err := r.pool.Query(ctx, listLocationsSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list locations")
	}
	out, err := pgx.CollectRows(rows, scanLocation)
	if err != nil {
		return nil, errors.Wrap(err, "list locations")
	}
	return out, nil
}

func (r *LocationRepository) GetByID(ctx context.Context, id string) (*location.Location, error) {
	rows, err := r.pool.Query(ctx, getLocationSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get location %q", id)
	}
	l, err := pgx.CollectExactlyOneRow(rows, scanLocation)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, location.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get location %q", id)
	}
	return &l, nil
}

// Upsert inserts or replaces a store location.
func (r *LocationRepository) Upsert(ctx context.Context, l *location.Location) error {
	if _, err := r.pool.Exec(ctx, upsertLocationSQL,
		l.ID, l.Name, l.Address, l.Lat, l.Lng, deliveryTypes(l.DeliveryTypes),
		l.DeliveryRadiusKm, l.DeliveryFee, l.TaxRate,
	); err != nil {
		return errors.Wrapf(err, "upsert location %q", l.ID)
	}
	return nil
}

func scanLocation(row pgx.CollectableRow) (location.Location, error) {
	var (
		l     location.Location
		types []string
	)
	err := row.Scan(&l.ID, &l.Name, &l.Address, &l.Lat, &l.Lng, &types,
		&l.DeliveryRadiusKm, &l.DeliveryFee, &l.TaxRate)
	l.DeliveryTypes = parseDeliveryTypes(types)
	return l, err
}
