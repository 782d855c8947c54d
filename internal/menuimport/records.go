// Package menuimport loads catalog entries from JSON documents and from
// gzipped JSON Lines exports of branch menus.
package menuimport

import (
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/mixandtaste/internal/domain/menu"
)

// Document is a complete catalog: the format of the bundled seed menu.
type Document struct {
	Categories []CategoryRecord `json:"categories"`
	Products   []ProductRecord  `json:"products"`
	Offers     []OfferRecord    `json:"offers"`
}

// ParseDocument decodes a catalog document.
func ParseDocument(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "parse catalog document")
	}
	return &doc, nil
}

// CategoryRecord is the exported form of a category.
type CategoryRecord struct {
	ID          string             `json:"id"`
	Name        menu.LocalizedText `json:"name"`
	Description menu.LocalizedText `json:"description"`
	ImageURL    string             `json:"image_url"`
	SortOrder   int                `json:"sort_order"`
	Active      *bool              `json:"active"`
}

// Category converts the record. Categories are active unless stated
// otherwise.
func (r CategoryRecord) Category() menu.Category {
	return menu.Category{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		ImageURL:    r.ImageURL,
		SortOrder:   r.SortOrder,
		Active:      r.Active == nil || *r.Active,
	}
}

// ProductRecord is the exported form of a menu item and one line of a
// branch export.
type ProductRecord struct {
	ID            string             `json:"id"`
	CategoryID    string             `json:"category_id"`
	Name          menu.LocalizedText `json:"name"`
	Description   menu.LocalizedText `json:"description"`
	Price         decimal.Decimal    `json:"price"`
	DiscountPrice *decimal.Decimal   `json:"discount_price,omitempty"`
	ImageURL      string             `json:"image_url"`
	Rating        decimal.Decimal    `json:"rating"`
	PrepTime      string             `json:"prep_time"`
	Spicy         bool               `json:"spicy"`
	Offer         bool               `json:"offer"`
	Available     *bool              `json:"available"`
	Featured      bool               `json:"featured"`
	SortOrder     int                `json:"sort_order"`
}

// Product converts the record. Products are available unless stated
// otherwise.
func (r ProductRecord) Product() menu.Product {
	p := menu.Product{
		ID:          r.ID,
		CategoryID:  r.CategoryID,
		Name:        r.Name,
		Description: r.Description,
		Price:       r.Price,
		ImageURL:    r.ImageURL,
		Rating:      r.Rating,
		PrepTime:    r.PrepTime,
		Spicy:       r.Spicy,
		Offer:       r.Offer,
		Available:   r.Available == nil || *r.Available,
		Featured:    r.Featured,
		SortOrder:   r.SortOrder,
	}
	if r.DiscountPrice != nil {
		p.DiscountPrice = decimal.NewNullDecimal(*r.DiscountPrice)
	}
	return p
}

// OfferRecord is the exported form of an offer.
type OfferRecord struct {
	ID                 string             `json:"id"`
	Title              menu.LocalizedText `json:"title"`
	Description        menu.LocalizedText `json:"description"`
	ImageURL           string             `json:"image_url"`
	DiscountPercentage *decimal.Decimal   `json:"discount_percentage,omitempty"`
	DiscountAmount     *decimal.Decimal   `json:"discount_amount,omitempty"`
	ValidFrom          *time.Time         `json:"valid_from,omitempty"`
	ValidUntil         *time.Time         `json:"valid_until,omitempty"`
	Active             *bool              `json:"active"`
	SortOrder          int                `json:"sort_order"`
}

// Offer converts the record. A missing ValidFrom starts the offer at now.
func (r OfferRecord) Offer(now time.Time) menu.Offer {
	o := menu.Offer{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		ImageURL:    r.ImageURL,
		ValidFrom:   now,
		ValidUntil:  r.ValidUntil,
		Active:      r.Active == nil || *r.Active,
		SortOrder:   r.SortOrder,
	}
	if r.ValidFrom != nil {
		o.ValidFrom = *r.ValidFrom
	}
	if r.DiscountPercentage != nil {
		o.DiscountPercentage = decimal.NewNullDecimal(*r.DiscountPercentage)
	}
	if r.DiscountAmount != nil {
		o.DiscountAmount = decimal.NewNullDecimal(*r.DiscountAmount)
	}
	return o
}
