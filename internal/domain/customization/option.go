// Package customization implements the per-category customization rules of
// the storefront: which options a dish can be ordered with, which of them are
// mandatory, and when a primary choice unlocks a secondary one.
package customization

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/mixandtaste/internal/domain/menu"
)

// OptionType tags the axis an option belongs to.
type OptionType string

const (
	OptionBread        OptionType = "bread"
	OptionSauce        OptionType = "sauce"
	OptionPresentation OptionType = "presentation"
	OptionPastaSauce   OptionType = "pasta_sauce"
	OptionSize         OptionType = "size"
	OptionExtras       OptionType = "extras"
	OptionSides        OptionType = "sides"
	OptionAddon        OptionType = "addon"
	OptionDrink        OptionType = "drink"
)

// Valid reports whether t is a usable tag: non-empty lowercase letters,
// digits and underscores. Tags outside the constants above are allowed so
// that administrators can introduce new axes.
func (t OptionType) Valid() bool {
	if t == "" || len(t) > 32 {
		return false
	}
	for i := range len(t) {
		c := t[i]
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') && c != '_' {
			return false
		}
	}
	return true
}

// Option is a selectable customization choice. Options are immutable once
// defined.
type Option struct {
	ID        string
	Type      OptionType
	Name      menu.LocalizedText
	Surcharge decimal.Decimal
}

// Catalog lists the options available along one axis, in display order.
// An empty result means the axis cannot be customized.
type Catalog interface {
	ListOptions(t OptionType) []Option
}

// StaticCatalog is an in-memory Catalog.
type StaticCatalog struct {
	byType map[OptionType][]Option
}

var _ Catalog = (*StaticCatalog)(nil)

// NewStaticCatalog indexes options by type, keeping their order.
func NewStaticCatalog(options ...Option) *StaticCatalog {
	c := &StaticCatalog{byType: make(map[OptionType][]Option)}
	for _, o := range options {
		c.byType[o.Type] = append(c.byType[o.Type], o)
	}
	return c
}

// ListOptions implements Catalog.
func (c *StaticCatalog) ListOptions(t OptionType) []Option {
	opts := c.byType[t]
	out := make([]Option, len(opts))
	copy(out, opts)
	return out
}

func opt(t OptionType, id, ar, en string) Option {
	return Option{ID: id, Type: t, Name: menu.LocalizedText{AR: ar, EN: en}}
}

// DefaultCatalog returns the built-in option table.
func DefaultCatalog() *StaticCatalog {
	return NewStaticCatalog(
		opt(OptionBread, "brioche", "عيش بريوش", "Brioche Bread"),
		opt(OptionBread, "semolina", "عيش سيمولينا", "Semolina Bread"),
		opt(OptionBread, "french", "عيش فرنساوي", "French Bread"),
		opt(OptionBread, "lebanese", "عيش لبناني", "Lebanese Bread"),
		opt(OptionBread, "syrian", "عيش سوري", "Syrian Bread"),
		opt(OptionBread, "saj", "عيش صاج", "Saj Bread"),

		opt(OptionSauce, "garlic", "صوص ثوم", "Garlic Sauce"),
		opt(OptionSauce, "tahini", "صوص طحينة", "Tahini Sauce"),
		opt(OptionSauce, "spicy", "صوص حار", "Spicy Sauce"),
		opt(OptionSauce, "bbq", "صوص باربكيو", "BBQ Sauce"),
		opt(OptionSauce, "cheese", "صوص جبنة", "Cheese Sauce"),

		opt(OptionPastaSauce, "white", "صوص أبيض", "White Sauce"),
		opt(OptionPastaSauce, "red", "صوص أحمر", "Red Sauce"),
		opt(OptionPastaSauce, "arrabbiata", "صوص أرابياتا", "Arrabbiata Sauce"),

		opt(OptionPresentation, "sandwich", "ساندويتش", "Sandwich"),
		opt(OptionPresentation, "meal_pasta", "وجبة مع مكرونة", "Meal with Pasta"),
		opt(OptionPresentation, "meal_rice", "وجبة مع أرز", "Meal with Rice"),
	)
}
