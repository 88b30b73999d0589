package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/pizza-cart/internal/domain/product"
)

const (
	productColumns = `id, name, category, price, delivery_types,
		image_thumbnail, image_mobile, image_tablet, image_desktop`

	listProductsSQL = `SELECT ` + productColumns + ` FROM products ORDER BY id`

	getProductByIDSQL = `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	getProductsByIDsSQL = `SELECT ` + productColumns + ` FROM products WHERE id = ANY($1) ORDER BY id`

	listVariantsSQL = `SELECT product_id, id, name, price_delta
		FROM product_variants WHERE product_id = ANY($1) ORDER BY product_id, position, id`

	listAddonsSQL = `SELECT product_id, id, name, price
		FROM product_addons WHERE product_id = ANY($1) ORDER BY product_id, position, id`

	upsertProductSQL = `INSERT INTO products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, category = EXCLUDED.category, price = EXCLUDED.price,
			delivery_types = EXCLUDED.delivery_types,
			image_thumbnail = EXCLUDED.image_thumbnail, image_mobile = EXCLUDED.image_mobile,
			image_tablet = EXCLUDED.image_tablet, image_desktop = EXCLUDED.image_desktop`

	deleteVariantsSQL = `DELETE FROM product_variants WHERE product_id = $1`
	deleteAddonsSQL   = `DELETE FROM product_addons WHERE product_id = $1`

	insertVariantSQL = `INSERT INTO product_variants (product_id, id, name, price_delta, position)
		VALUES ($1, $2, $3, $4, $5)`
	insertAddonSQL = `INSERT INTO product_addons (product_id, id, name, price, position)
		VALUES ($1, $2, $3, $4, $5)`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// List returns the whole catalog ordered by id, with variants and addons.
func (r *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	return r.withOptions(ctx, products)
}

// GetByID returns a single product or product.ErrNotFound.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get product %q", id)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get product %q", id)
	}

	products, err := r.withOptions(ctx, []product.Product{p})
	if err != nil {
		return nil, err
	}
	return &products[0], nil
}

// GetByIDs returns the products matching ids. Unknown ids are skipped.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []string) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductsByIDsSQL, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get products by ids")
	}
	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, errors.Wrap(err, "get products by ids")
	}
	return r.withOptions(ctx, products)
}

// withOptions loads variants and addons for products in one round trip.
func (r *ProductRepository) withOptions(ctx context.Context, products []product.Product) ([]product.Product, error) {
	if len(products) == 0 {
		return products, nil
	}
	ids := make([]string, len(products))
	index := make(map[string]int, len(products))
	for i, p := range products {
		ids[i] = p.ID
		index[p.ID] = i
	}

	batch := &pgx.Batch{}
	batch.Queue(listVariantsSQL, ids).Query(func(rows pgx.Rows) error {
		var v product.Variant
		var productID string
		_, err := pgx.ForEachRow(rows, []any{&productID, &v.ID, &v.Name, &v.PriceDelta}, func() error {
			if i, ok := index[productID]; ok {
				products[i].Variants = append(products[i].Variants, v)
			}
			return nil
		})
		return err
	})
	batch.Queue(listAddonsSQL, ids).Query(func(rows pgx.Rows) error {
		var a product.Addon
		var productID string
		_, err := pgx.ForEachRow(rows, []any{&productID, &a.ID, &a.Name, &a.Price}, func() error {
			if i, ok := index[productID]; ok {
				products[i].Addons = append(products[i].Addons, a)
			}
			return nil
		})
		return err
	})

	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return nil, errors.Wrap(err, "load product options")
	}
	return products, nil
}

// Upsert inserts or replaces a product together with its variants and addons.
func (r *ProductRepository) Upsert(ctx context.Context, p *product.Product) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, upsertProductSQL,
			p.ID, p.Name, p.Category, p.Price, deliveryTypes(p.AvailableDeliveryTypes),
			p.Image.Thumbnail, p.Image.Mobile, p.Image.Tablet, p.Image.Desktop,
		); err != nil {
			return errors.Wrapf(err, "upsert product %q", p.ID)
		}

		batch := &pgx.Batch{}
		batch.Queue(deleteVariantsSQL, p.ID)
		batch.Queue(deleteAddonsSQL, p.ID)
		for n, v := range p.Variants {
			batch.Queue(insertVariantSQL, p.ID, v.ID, v.Name, v.PriceDelta, n)
		}
		for n, a := range p.Addons {
			batch.Queue(insertAddonSQL, p.ID, a.ID, a.Name, a.Price, n)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return errors.Wrapf(err, "replace options of product %q", p.ID)
		}
		return nil
	})
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var (
		p     product.Product
		types []string
	)
	err := row.Scan(
		&p.ID, &p.Name, &p.Category, &p.Price, &types,
		&p.Image.Thumbnail, &p.Image.Mobile, &p.Image.Tablet, &p.Image.Desktop,
	)
	p.AvailableDeliveryTypes = parseDeliveryTypes(types)
	return p, err
}
