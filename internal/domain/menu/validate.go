package menu

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ValidationError describes an invalid field on a catalog entry.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Validate checks the category before it is stored.
func (c *Category) Validate() error {
	if c.ID == "" {
		return &ValidationError{Field: "id", Reason: "required"}
	}
	if c.Name.AR == "" || c.Name.EN == "" {
		return &ValidationError{Field: "name", Reason: "both languages required"}
	}
	return nil
}

// Validate checks the product before it is stored.
func (p *Product) Validate() error {
	switch {
	case p.ID == "":
		return &ValidationError{Field: "id", Reason: "required"}
	case p.CategoryID == "":
		return &ValidationError{Field: "category_id", Reason: "required"}
	case p.Name.AR == "" || p.Name.EN == "":
		return &ValidationError{Field: "name", Reason: "both languages required"}
	case p.Price.IsNegative():
		return &ValidationError{Field: "price", Reason: "must not be negative"}
	}
	if p.DiscountPrice.Valid {
		d := p.DiscountPrice.Decimal
		if d.IsNegative() {
			return &ValidationError{Field: "discount_price", Reason: "must not be negative"}
		}
		if !d.LessThan(p.Price) {
			return &ValidationError{Field: "discount_price", Reason: "must be lower than price"}
		}
	}
	if p.Rating.IsNegative() || p.Rating.GreaterThan(decimal.NewFromInt(5)) {
		return &ValidationError{Field: "rating", Reason: "must be between 0 and 5"}
	}
	return nil
}

// Validate checks the offer before it is stored.
func (o *Offer) Validate() error {
	if o.ID == "" {
		return &ValidationError{Field: "id", Reason: "required"}
	}
	if o.Title.AR == "" || o.Title.EN == "" {
		return &ValidationError{Field: "title", Reason: "both languages required"}
	}
	if o.DiscountPercentage.Valid {
		pct := o.DiscountPercentage.Decimal
		if pct.IsNegative() || pct.GreaterThan(hundred) {
			return &ValidationError{Field: "discount_percentage", Reason: "must be between 0 and 100"}
		}
	}
	if o.DiscountAmount.Valid && o.DiscountAmount.Decimal.IsNegative() {
		return &ValidationError{Field: "discount_amount", Reason: "must not be negative"}
	}
	if o.ValidUntil != nil && o.ValidUntil.Before(o.ValidFrom) {
		return &ValidationError{Field: "valid_until", Reason: "must not precede valid_from"}
	}
	return nil
}
