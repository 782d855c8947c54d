package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/mixandtaste/internal/domain/menu"
)

const (
	productColumns = `id, category_id, name_ar, name_en, description_ar, description_en,
		price, discount_price, image_url, rating, prep_time,
		is_spicy, is_offer, is_available, is_featured, sort_order`

	listProductsSQL = `SELECT ` + productColumns + ` FROM menu_items
		WHERE ($1 = '' OR category_id = $1) AND (NOT $2 OR is_available)
		ORDER BY sort_order, id`

	getProductSQL = `SELECT ` + productColumns + ` FROM menu_items WHERE id = $1`

	createProductSQL = `INSERT INTO menu_items (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	updateProductSQL = `UPDATE menu_items
		SET category_id = $2, name_ar = $3, name_en = $4, description_ar = $5, description_en = $6,
			price = $7, discount_price = $8, image_url = $9, rating = $10, prep_time = $11,
			is_spicy = $12, is_offer = $13, is_available = $14, is_featured = $15, sort_order = $16,
			updated_at = now()
		WHERE id = $1`

	deleteProductSQL = `DELETE FROM menu_items WHERE id = $1`
)

var _ menu.ProductRepository = (*ProductRepository)(nil)

// ProductRepository implements menu.ProductRepository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// ListProducts returns menu items matching the filter in display order.
func (r *ProductRepository) ListProducts(ctx context.Context, filter menu.ProductFilter) ([]menu.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL, filter.CategoryID, filter.AvailableOnly)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// GetProduct returns a single menu item by its identifier.
func (r *ProductRepository) GetProduct(ctx context.Context, id string) (*menu.Product, error) {
	rows, err := r.pool.Query(ctx, getProductSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, menu.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}
	return &p, nil
}

// CreateProduct inserts a menu item.
func (r *ProductRepository) CreateProduct(ctx context.Context, p *menu.Product) error {
	_, err := r.pool.Exec(ctx, createProductSQL, productArgs(p)...)
	if err != nil {
		return mapProductError(err, p)
	}
	return nil
}

// UpdateProduct overwrites a menu item.
func (r *ProductRepository) UpdateProduct(ctx context.Context, p *menu.Product) error {
	tag, err := r.pool.Exec(ctx, updateProductSQL, productArgs(p)...)
	if err != nil {
		return mapProductError(err, p)
	}
	return requireAffected(tag, menu.ErrNotFound)
}

// DeleteProduct removes a menu item.
func (r *ProductRepository) DeleteProduct(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteProductSQL, id)
	if err != nil {
		return fmt.Errorf("deleting product %q: %w", id, err)
	}
	return requireAffected(tag, menu.ErrNotFound)
}

func mapProductError(err error, p *menu.Product) error {
	switch pgErrorCode(err) {
	case uniqueViolation:
		return menu.ErrConflict
	case foreignKeyViolation:
		return &menu.ValidationError{Field: "category_id", Reason: fmt.Sprintf("unknown category %q", p.CategoryID)}
	case checkViolation:
		return &menu.ValidationError{Field: "price", Reason: "rejected by database constraint"}
	default:
		return fmt.Errorf("writing product %q: %w", p.ID, err)
	}
}

func productArgs(p *menu.Product) []any {
	return []any{
		p.ID, p.CategoryID, p.Name.AR, p.Name.EN, p.Description.AR, p.Description.EN,
		p.Price, p.DiscountPrice, p.ImageURL, p.Rating, p.PrepTime,
		p.Spicy, p.Offer, p.Available, p.Featured, p.SortOrder,
	}
}

func scanProduct(row pgx.CollectableRow) (menu.Product, error) {
	var p menu.Product
	err := row.Scan(
		&p.ID, &p.CategoryID, &p.Name.AR, &p.Name.EN, &p.Description.AR, &p.Description.EN,
		&p.Price, &p.DiscountPrice, &p.ImageURL, &p.Rating, &p.PrepTime,
		&p.Spicy, &p.Offer, &p.Available, &p.Featured, &p.SortOrder,
	)
	return p, err
}
