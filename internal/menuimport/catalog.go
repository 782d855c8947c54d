package menuimport

import (
	"context"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/mixandtaste/internal/domain/menu"
)

// Catalog is the write side of the catalog, satisfied by *menu.Admin.
type Catalog interface {
	CreateCategory(ctx context.Context, c *menu.Category) error
	UpdateCategory(ctx context.Context, c *menu.Category) error
	CreateProduct(ctx context.Context, p *menu.Product) error
	UpdateProduct(ctx context.Context, p *menu.Product) error
	CreateOffer(ctx context.Context, o *menu.Offer) error
	UpdateOffer(ctx context.Context, o *menu.Offer) error
}

var _ Catalog = (*menu.Admin)(nil)

// upsert creates an entry and falls back to updating it when the id is
// taken.
func upsert[T any](ctx context.Context, v *T, create, update func(context.Context, *T) error) error {
	err := create(ctx, v)
	if errors.Is(err, menu.ErrConflict) {
		err = update(ctx, v)
	}
	return err
}

// UpsertProduct creates or replaces a product.
func UpsertProduct(ctx context.Context, c Catalog, p *menu.Product) error {
	return upsert(ctx, p, c.CreateProduct, c.UpdateProduct)
}

// SeedResult counts the entries written by Seed.
type SeedResult struct {
	Categories int
	Products   int
	Offers     int
}

// Seed writes every entry of doc, categories first so products can refer to
// them. Existing entries are replaced.
func Seed(ctx context.Context, c Catalog, doc *Document, now time.Time) (SeedResult, error) {
	var res SeedResult
	for _, r := range doc.Categories {
		cat := r.Category()
		if err := upsert(ctx, &cat, c.CreateCategory, c.UpdateCategory); err != nil {
			return res, errors.Wrapf(err, "category %q", r.ID)
		}
		res.Categories++
	}
	for _, r := range doc.Products {
		p := r.Product()
		if err := UpsertProduct(ctx, c, &p); err != nil {
			return res, errors.Wrapf(err, "product %q", r.ID)
		}
		res.Products++
	}
	for _, r := range doc.Offers {
		o := r.Offer(now)
		if err := upsert(ctx, &o, c.CreateOffer, c.UpdateOffer); err != nil {
			return res, errors.Wrapf(err, "offer %q", r.ID)
		}
		res.Offers++
	}
	return res, nil
}
