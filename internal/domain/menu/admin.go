package menu

import (
	"context"

	"github.com/go-faster/errors"
)

// Admin manages the catalog from the back-office. Unlike Service it sees
// inactive categories and unavailable products.
type Admin struct {
	categories CategoryRepository
	products   ProductRepository
	offers     OfferRepository
}

// NewAdmin creates an Admin.
func NewAdmin(categories CategoryRepository, products ProductRepository, offers OfferRepository) *Admin {
	return &Admin{categories: categories, products: products, offers: offers}
}

// Categories lists every category.
func (a *Admin) Categories(ctx context.Context) ([]Category, error) {
	out, err := a.categories.ListCategories(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list categories")
	}
	return out, nil
}

// CreateCategory validates and stores a new category.
func (a *Admin) CreateCategory(ctx context.Context, c *Category) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := a.categories.CreateCategory(ctx, c); err != nil {
		return errors.Wrap(err, "create category")
	}
	return nil
}

// UpdateCategory validates and replaces a category.
func (a *Admin) UpdateCategory(ctx context.Context, c *Category) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := a.categories.UpdateCategory(ctx, c); err != nil {
		return errors.Wrap(err, "update category")
	}
	return nil
}

// DeleteCategory removes a category together with its products and options.
func (a *Admin) DeleteCategory(ctx context.Context, id string) error {
	if err := a.categories.DeleteCategory(ctx, id); err != nil {
		return errors.Wrap(err, "delete category")
	}
	return nil
}

// Products lists menu items, unavailable ones included.
func (a *Admin) Products(ctx context.Context, categoryID string) ([]Product, error) {
	out, err := a.products.ListProducts(ctx, ProductFilter{CategoryID: categoryID})
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	return out, nil
}

// Product returns a single menu item.
func (a *Admin) Product(ctx context.Context, id string) (*Product, error) {
	p, err := a.products.GetProduct(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "get product")
	}
	return p, nil
}

func (a *Admin) checkCategory(ctx context.Context, p *Product) error {
	if _, err := a.categories.GetCategory(ctx, p.CategoryID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return &ValidationError{Field: "category_id", Reason: "unknown category " + p.CategoryID}
		}
		return errors.Wrap(err, "get category")
	}
	return nil
}

// CreateProduct validates and stores a new menu item.
func (a *Admin) CreateProduct(ctx context.Context, p *Product) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if err := a.checkCategory(ctx, p); err != nil {
		return err
	}
	if err := a.products.CreateProduct(ctx, p); err != nil {
		return errors.Wrap(err, "create product")
	}
	return nil
}

// UpdateProduct validates and replaces a menu item.
func (a *Admin) UpdateProduct(ctx context.Context, p *Product) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if err := a.checkCategory(ctx, p); err != nil {
		return err
	}
	if err := a.products.UpdateProduct(ctx, p); err != nil {
		return errors.Wrap(err, "update product")
	}
	return nil
}

// DeleteProduct removes a menu item.
func (a *Admin) DeleteProduct(ctx context.Context, id string) error {
	if err := a.products.DeleteProduct(ctx, id); err != nil {
		return errors.Wrap(err, "delete product")
	}
	return nil
}

// Offers lists every offer, expired and disabled ones included.
func (a *Admin) Offers(ctx context.Context) ([]Offer, error) {
	out, err := a.offers.ListOffers(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list offers")
	}
	return out, nil
}

// CreateOffer validates and stores a new offer.
func (a *Admin) CreateOffer(ctx context.Context, o *Offer) error {
	if err := o.Validate(); err != nil {
		return err
	}
	if err := a.offers.CreateOffer(ctx, o); err != nil {
		return errors.Wrap(err, "create offer")
	}
	return nil
}

// UpdateOffer validates and replaces an offer.
func (a *Admin) UpdateOffer(ctx context.Context, o *Offer) error {
	if err := o.Validate(); err != nil {
		return err
	}
	if err := a.offers.UpdateOffer(ctx, o); err != nil {
		return errors.Wrap(err, "update offer")
	}
	return nil
}

// DeleteOffer removes an offer.
func (a *Admin) DeleteOffer(ctx context.Context, id string) error {
	if err := a.offers.DeleteOffer(ctx, id); err != nil {
		return errors.Wrap(err, "delete offer")
	}
	return nil
}
