package menu

import (
	"context"
	"slices"
	"time"

	"github.com/go-faster/errors"
	"golang.org/x/sync/errgroup"
)

// Menu is everything the storefront renders on its landing page.
type Menu struct {
	Categories []Category
	Products   []Product
	Offers     []Offer
}

// ByCategory returns the products of one category in display order.
func (m *Menu) ByCategory(categoryID string) []Product {
	var out []Product
	for _, p := range m.Products {
		if p.CategoryID == categoryID {
			out = append(out, p)
		}
	}
	return out
}

// Featured returns the products flagged as featured.
func (m *Menu) Featured() []Product {
	var out []Product
	for _, p := range m.Products {
		if p.Featured {
			out = append(out, p)
		}
	}
	return out
}

// Service reads the public menu.
type Service struct {
	categories CategoryRepository
	products   ProductRepository
	offers     OfferRepository
	now        func() time.Time
}

// NewService creates a menu Service.
func NewService(categories CategoryRepository, products ProductRepository, offers OfferRepository) *Service {
	return &Service{
		categories: categories,
		products:   products,
		offers:     offers,
		now:        time.Now,
	}
}

// Menu fetches active categories, their available products and the offers
// running now. The three reads are issued concurrently.
func (s *Service) Menu(ctx context.Context) (*Menu, error) {
	var (
		categories []Category
		products   []Product
		offers     []Offer
	)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if categories, err = s.categories.ListCategories(ctx); err != nil {
			return errors.Wrap(err, "list categories")
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if products, err = s.products.ListProducts(ctx, ProductFilter{AvailableOnly: true}); err != nil {
			return errors.Wrap(err, "list products")
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if offers, err = s.offers.ListOffers(ctx); err != nil {
			return errors.Wrap(err, "list offers")
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	categories = slices.DeleteFunc(categories, func(c Category) bool { return !c.Active })
	active := make(map[string]struct{}, len(categories))
	for _, c := range categories {
		active[c.ID] = struct{}{}
	}
	products = slices.DeleteFunc(products, func(p Product) bool {
		_, ok := active[p.CategoryID]
		return !ok
	})
	now := s.now()
	offers = slices.DeleteFunc(offers, func(o Offer) bool { return !o.ActiveAt(now) })

	return &Menu{Categories: categories, Products: products, Offers: offers}, nil
}

// Categories returns the active categories in display order.
func (s *Service) Categories(ctx context.Context) ([]Category, error) {
	categories, err := s.categories.ListCategories(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list categories")
	}
	return slices.DeleteFunc(categories, func(c Category) bool { return !c.Active }), nil
}

// Search lists available products, optionally for one category, whose
// name or description contains term in either language.
func (s *Service) Search(ctx context.Context, categoryID, term string) ([]Product, error) {
	products, err := s.Products(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	return slices.DeleteFunc(products, func(p Product) bool { return !p.Matches(term) }), nil
}

// Products lists available products, optionally for one category.
func (s *Service) Products(ctx context.Context, categoryID string) ([]Product, error) {
	if categoryID != "" {
		c, err := s.categories.GetCategory(ctx, categoryID)
		if err != nil {
			return nil, errors.Wrap(err, "get category")
		}
		if !c.Active {
			return nil, ErrNotFound
		}
	}
	products, err := s.products.ListProducts(ctx, ProductFilter{CategoryID: categoryID, AvailableOnly: true})
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	return products, nil
}

// Product returns a single product.
func (s *Service) Product(ctx context.Context, id string) (*Product, error) {
	p, err := s.products.GetProduct(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "get product")
	}
	return p, nil
}

// Offers returns the offers running now.
func (s *Service) Offers(ctx context.Context) ([]Offer, error) {
	offers, err := s.offers.ListOffers(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list offers")
	}
	now := s.now()
	return slices.DeleteFunc(offers, func(o Offer) bool { return !o.ActiveAt(now) }), nil
}
