package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/verdora/storefront/internal/domain/catalog"
)

var _ catalog.Repository = (*ProductRepository)(nil)

// ProductRepository implements catalog.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

const productColumns = `id, name, price, COALESCE(sale_price, 0), stock, category, image_path`

// List returns catalog products matching the filter, ordered by name.
func (r *ProductRepository) List(ctx context.Context, f catalog.Filter) ([]catalog.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products`
	args := []any{}
	if f.Category != "" {
		query += ` WHERE category = $1`
		args = append(args, f.Category)
	}
	query += ` ORDER BY name`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	defer rows.Close()

	return scanProducts(rows)
}

// GetByID returns a single product. It returns catalog.ErrNotFound when no
// matching product exists.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*catalog.Product, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`, id)

	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}
	return &p, nil
}

// GetByIDs fetches the given products in a single query. Missing IDs are
// simply absent from the result; callers decide whether that is an error.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []string) ([]catalog.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get products by ids")
	}
	defer rows.Close()

	return scanProducts(rows)
}

// Upsert inserts or replaces a catalog row. Used by the seed and ingest
// tools; the API surface itself never writes the catalog.
func (r *ProductRepository) Upsert(ctx context.Context, p catalog.Product) error {
	salePrice := any(nil)
	if p.SalePrice.IsPositive() {
		salePrice = p.SalePrice
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO products (id, name, price, sale_price, stock, category, image_path)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			price = EXCLUDED.price,
			sale_price = EXCLUDED.sale_price,
			stock = EXCLUDED.stock,
			category = EXCLUDED.category,
			image_path = EXCLUDED.image_path,
			updated_at = now()`,
		p.ID, p.Name, p.Price, salePrice, p.Stock, p.Category, p.ImagePath,
	)
	if err != nil {
		return fmt.Errorf("upserting product %q: %w", p.ID, err)
	}
	return nil
}

func scanProduct(row pgx.Row) (catalog.Product, error) {
	var p catalog.Product
	err := row.Scan(&p.ID, &p.Name, &p.Price, &p.SalePrice, &p.Stock, &p.Category, &p.ImagePath)
	return p, err
}

func scanProducts(rows pgx.Rows) ([]catalog.Product, error) {
	var products []catalog.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan product")
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate products")
	}
	return products, nil
}
