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
	categoryColumns = `id, name_ar, name_en, description_ar, description_en, image_url, sort_order, is_active`

	listCategoriesSQL = `SELECT ` + categoryColumns + ` FROM categories ORDER BY sort_order, id`

	getCategorySQL = `SELECT ` + categoryColumns + ` FROM categories WHERE id = $1`

	createCategorySQL = `INSERT INTO categories (` + categoryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	updateCategorySQL = `UPDATE categories
		SET name_ar = $2, name_en = $3, description_ar = $4, description_en = $5,
			image_url = $6, sort_order = $7, is_active = $8, updated_at = now()
		WHERE id = $1`

	deleteCategorySQL = `DELETE FROM categories WHERE id = $1`
)

var _ menu.CategoryRepository = (*CategoryRepository)(nil)

// CategoryRepository implements menu.CategoryRepository backed by PostgreSQL.
type CategoryRepository struct {
	pool *pgxpool.Pool
}

// NewCategoryRepository returns a CategoryRepository that uses the given pool.
func NewCategoryRepository(pool *pgxpool.Pool) *CategoryRepository {
	return &CategoryRepository{pool: pool}
}

// ListCategories returns all categories in display order.
func (r *CategoryRepository) ListCategories(ctx context.Context) ([]menu.Category, error) {
	rows, err := r.pool.Query(ctx, listCategoriesSQL)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	return pgx.CollectRows(rows, scanCategory)
}

// GetCategory returns a single category.
func (r *CategoryRepository) GetCategory(ctx context.Context, id string) (*menu.Category, error) {
	rows, err := r.pool.Query(ctx, getCategorySQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting category %q: %w", id, err)
	}
	c, err := pgx.CollectExactlyOneRow(rows, scanCategory)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, menu.ErrNotFound
		}
		return nil, fmt.Errorf("getting category %q: %w", id, err)
	}
	return &c, nil
}

// CreateCategory inserts a category. Returns menu.ErrConflict when the id is
// taken.
func (r *CategoryRepository) CreateCategory(ctx context.Context, c *menu.Category) error {
	_, err := r.pool.Exec(ctx, createCategorySQL, categoryArgs(c)...)
	if err != nil {
		if pgErrorCode(err) == uniqueViolation {
			return menu.ErrConflict
		}
		return fmt.Errorf("creating category %q: %w", c.ID, err)
	}
	return nil
}

// UpdateCategory overwrites a category.
func (r *CategoryRepository) UpdateCategory(ctx context.Context, c *menu.Category) error {
	tag, err := r.pool.Exec(ctx, updateCategorySQL, categoryArgs(c)...)
	if err != nil {
		return fmt.Errorf("updating category %q: %w", c.ID, err)
	}
	return requireAffected(tag, menu.ErrNotFound)
}

// DeleteCategory removes a category together with its items and options.
func (r *CategoryRepository) DeleteCategory(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteCategorySQL, id)
	if err != nil {
		return fmt.Errorf("deleting category %q: %w", id, err)
	}
	return requireAffected(tag, menu.ErrNotFound)
}

func categoryArgs(c *menu.Category) []any {
	return []any{
		c.ID, c.Name.AR, c.Name.EN, c.Description.AR, c.Description.EN,
		c.ImageURL, c.SortOrder, c.Active,
	}
}

func scanCategory(row pgx.CollectableRow) (menu.Category, error) {
	var c menu.Category
	err := row.Scan(
		&c.ID, &c.Name.AR, &c.Name.EN, &c.Description.AR, &c.Description.EN,
		&c.ImageURL, &c.SortOrder, &c.Active,
	)
	return c, err
}
