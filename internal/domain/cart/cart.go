// Package cart implements the shopping cart aggregate and the session
// service that loads, mutates and persists it.
package cart

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/mixandtaste/internal/domain/customization"
	"github.com/xenking/mixandtaste/internal/domain/menu"
	"github.com/xenking/mixandtaste/internal/domain/pricing"
)

// MaxQuantity is the largest quantity a single line may hold.
const MaxQuantity = 99

// ErrInvalidQuantity is returned when a line quantity would leave
// the range 1..MaxQuantity.
var ErrInvalidQuantity = errors.New("quantity must be between 1 and 99")

// MergePolicy decides when two additions of the same product share a line.
type MergePolicy int

const (
	// MergeBySelection keeps differently customized instances of a product
	// on separate lines.
	MergeBySelection MergePolicy = iota
	// MergeByProduct collapses every instance of a product into one line
	// that keeps the first-seen unit total.
	MergeByProduct
)

func (m MergePolicy) String() string {
	switch m {
	case MergeBySelection:
		return "selection"
	case MergeByProduct:
		return "product"
	default:
		return fmt.Sprintf("MergePolicy(%d)", int(m))
	}
}

// ParseMergePolicy parses "selection" or "product".
func ParseMergePolicy(s string) (MergePolicy, error) {
	switch s {
	case "", "selection":
		return MergeBySelection, nil
	case "product":
		return MergeByProduct, nil
	default:
		return 0, errors.Errorf("unknown merge policy %q", s)
	}
}

// LineID computes the identity of a line under the merge policy. Products
// added without options are identified by their product id alone.
func (m MergePolicy) LineID(productID string, options map[customization.OptionType]string) string {
	if m == MergeByProduct || len(options) == 0 {
		return productID
	}
	var b strings.Builder
	b.WriteString(productID)
	for i, t := range slices.Sorted(maps.Keys(options)) {
		if i == 0 {
			b.WriteByte('|')
		} else {
			b.WriteByte(',')
		}
		b.WriteString(string(t))
		b.WriteByte('=')
		b.WriteString(options[t])
	}
	return b.String()
}

// Line is one entry of the cart. UnitTotal is resolved once when the line
// is created and is not recomputed when the catalog changes.
type Line struct {
	ID        string
	ProductID string
	Name      menu.LocalizedText
	Image     string
	Quantity  int
	UnitTotal decimal.Decimal
	Options   map[customization.OptionType]string
}

// Total is UnitTotal multiplied by the current quantity.
func (l Line) Total() decimal.Decimal {
	return l.UnitTotal.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

func (l Line) clone() Line {
	l.Options = maps.Clone(l.Options)
	return l
}

// Cart is an ordered collection of lines owned by one shopping session.
// It is not safe for concurrent use.
type Cart struct {
	merge    MergePolicy
	delivery pricing.DeliveryPolicy
	lines    []Line
}

// New creates an empty cart.
func New(merge MergePolicy, delivery pricing.DeliveryPolicy) *Cart {
	return &Cart{merge: merge, delivery: delivery}
}

// MergePolicy returns the policy lines are merged by.
func (c *Cart) MergePolicy() MergePolicy {
	return c.merge
}

// Delivery returns the delivery policy the totals are computed with.
func (c *Cart) Delivery() pricing.DeliveryPolicy {
	return c.delivery
}

// Item is a priced request to put a product into the cart.
type Item struct {
	Product   *menu.Product
	Options   map[customization.OptionType]string
	Quantity  int
	UnitTotal decimal.Decimal
}

// Add stores item as a new line or increases the quantity of the line with
// the same identity. It returns the affected line.
func (c *Cart) Add(item Item) (Line, error) {
	if item.Quantity <= 0 || item.Quantity > MaxQuantity {
		return Line{}, ErrInvalidQuantity
	}
	id := c.merge.LineID(item.Product.ID, item.Options)
	if i := c.index(id); i >= 0 {
		if c.lines[i].Quantity > MaxQuantity-item.Quantity {
			return Line{}, ErrInvalidQuantity
		}
		c.lines[i].Quantity += item.Quantity
		return c.lines[i].clone(), nil
	}
	var options map[customization.OptionType]string
	if len(item.Options) > 0 {
		options = maps.Clone(item.Options)
	}
	l := Line{
		ID:        id,
		ProductID: item.Product.ID,
		Name:      item.Product.Name,
		Image:     item.Product.ImageURL,
		Quantity:  item.Quantity,
		UnitTotal: item.UnitTotal,
		Options:   options,
	}
	c.lines = append(c.lines, l)
	return l.clone(), nil
}

func (c *Cart) index(lineID string) int {
	return slices.IndexFunc(c.lines, func(l Line) bool { return l.ID == lineID })
}

// UpdateQuantity sets the quantity of a line. A quantity of zero or less
// removes the line. It returns ErrLineNotFound for an unknown line and
// ErrInvalidQuantity above MaxQuantity.
func (c *Cart) UpdateQuantity(lineID string, quantity int) error {
	i := c.index(lineID)
	if i < 0 {
		return ErrLineNotFound
	}
	switch {
	case quantity <= 0:
		c.lines = slices.Delete(c.lines, i, i+1)
	case quantity > MaxQuantity:
		return ErrInvalidQuantity
	default:
		c.lines[i].Quantity = quantity
	}
	return nil
}

// Remove deletes a line. Removing an absent line is a no-op.
func (c *Cart) Remove(lineID string) {
	if i := c.index(lineID); i >= 0 {
		c.lines = slices.Delete(c.lines, i, i+1)
	}
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.lines = nil
}

// Line returns the line with the given id.
func (c *Cart) Line(lineID string) (Line, bool) {
	if i := c.index(lineID); i >= 0 {
		return c.lines[i].clone(), true
	}
	return Line{}, false
}

// Lines returns a copy of the lines in insertion order.
func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	for i, l := range c.lines {
		out[i] = l.clone()
	}
	return out
}

// Len is the number of lines.
func (c *Cart) Len() int {
	return len(c.lines)
}

// Count is the number of units across all lines.
func (c *Cart) Count() int {
	var n int
	for _, l := range c.lines {
		n += l.Quantity
	}
	return n
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return len(c.lines) == 0
}

// Subtotal sums unit totals multiplied by live quantities.
func (c *Cart) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range c.lines {
		sum = sum.Add(l.Total())
	}
	return sum
}

// DeliveryFee is the fee owed for the current subtotal.
func (c *Cart) DeliveryFee() decimal.Decimal {
	return c.delivery.FeeFor(c.Subtotal())
}

// Total is the subtotal plus the delivery fee.
func (c *Cart) Total() decimal.Decimal {
	return c.Totals().Total
}

// Totals returns subtotal, delivery fee and total together.
func (c *Cart) Totals() pricing.Totals {
	return c.delivery.Summarize(c.Subtotal())
}
