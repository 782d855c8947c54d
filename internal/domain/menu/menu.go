// Package menu defines the storefront catalog: categories, menu items and
// special offers, each with Arabic and English display text.
package menu

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Sentinel errors returned by catalog repositories.
var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")
)

// Language selects one of the two supported display languages.
type Language string

const (
	Arabic  Language = "ar"
	English Language = "en"
)

// LocalizedText holds the same text in both storefront languages.
type LocalizedText struct {
	AR string `json:"ar"`
	EN string `json:"en"`
}

// In returns the text for lang, falling back to English.
func (t LocalizedText) In(lang Language) string {
	if lang == Arabic && t.AR != "" {
		return t.AR
	}
	return t.EN
}

// contains reports whether either language holds term. term must already
// be lower case.
func (t LocalizedText) contains(term string) bool {
	return strings.Contains(strings.ToLower(t.EN), term) ||
		strings.Contains(strings.ToLower(t.AR), term)
}

// Empty reports whether neither language has text.
func (t LocalizedText) Empty() bool {
	return t.AR == "" && t.EN == ""
}

// Category groups menu items and determines which customization policy
// applies to them.
type Category struct {
	ID          string
	Name        LocalizedText
	Description LocalizedText
	ImageURL    string
	SortOrder   int
	Active      bool
}

// Product is a menu item. Prices are immutable within a shopping session.
type Product struct {
	ID            string
	CategoryID    string
	Name          LocalizedText
	Description   LocalizedText
	Price         decimal.Decimal
	DiscountPrice decimal.NullDecimal
	ImageURL      string
	Rating        decimal.Decimal
	PrepTime      string
	Spicy         bool
	Offer         bool
	Available     bool
	Featured      bool
	SortOrder     int
}

// Matches reports whether term occurs in the product name or description
// in either language, ignoring case. A blank term matches every product.
func (p *Product) Matches(term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	return p.Name.contains(term) || p.Description.contains(term)
}

// EffectivePrice returns the discount price when present, otherwise the base
// price.
func (p *Product) EffectivePrice() decimal.Decimal {
	if p.DiscountPrice.Valid {
		return p.DiscountPrice.Decimal
	}
	return p.Price
}

// Offer is a promotional banner shown on the storefront for a limited time.
type Offer struct {
	ID                 string
	Title              LocalizedText
	Description        LocalizedText
	ImageURL           string
	DiscountPercentage decimal.NullDecimal
	DiscountAmount     decimal.NullDecimal
	ValidFrom          time.Time
	ValidUntil         *time.Time
	Active             bool
	SortOrder          int
}

// ActiveAt reports whether the offer is enabled and now falls inside its
// validity window. A nil ValidUntil means the offer never expires.
func (o *Offer) ActiveAt(now time.Time) bool {
	if !o.Active {
		return false
	}
	if now.Before(o.ValidFrom) {
		return false
	}
	if o.ValidUntil != nil && now.After(*o.ValidUntil) {
		return false
	}
	return true
}

// CategoryRepository provides persistence for categories.
type CategoryRepository interface {
	ListCategories(ctx context.Context) ([]Category, error)
	GetCategory(ctx context.Context, id string) (*Category, error)
	CreateCategory(ctx context.Context, c *Category) error
	UpdateCategory(ctx context.Context, c *Category) error
	DeleteCategory(ctx context.Context, id string) error
}

// ProductRepository provides persistence for menu items.
type ProductRepository interface {
	ListProducts(ctx context.Context, filter ProductFilter) ([]Product, error)
	GetProduct(ctx context.Context, id string) (*Product, error)
	CreateProduct(ctx context.Context, p *Product) error
	UpdateProduct(ctx context.Context, p *Product) error
	DeleteProduct(ctx context.Context, id string) error
}

// ProductFilter narrows a product listing. Zero value lists everything.
type ProductFilter struct {
	CategoryID    string
	AvailableOnly bool
}

// OfferRepository provides persistence for special offers.
type OfferRepository interface {
	ListOffers(ctx context.Context) ([]Offer, error)
	GetOffer(ctx context.Context, id string) (*Offer, error)
	CreateOffer(ctx context.Context, o *Offer) error
	UpdateOffer(ctx context.Context, o *Offer) error
	DeleteOffer(ctx context.Context, id string) error
}
