// Package pricing derives line and order amounts from products, selected
// customization options and the delivery policy.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/mixandtaste/internal/domain/customization"
	"github.com/xenking/mixandtaste/internal/domain/menu"
)

// OptionResolver looks up a customization option by type and id.
//
// *customization.Policy implements it.
type OptionResolver interface {
	OptionOf(t customization.OptionType, id string) (customization.Option, bool)
}

var _ OptionResolver = (*customization.Policy)(nil)

// UnitPrice is the effective product price plus the surcharge of every
// selected option. Options the resolver does not know contribute nothing,
// and a nil resolver resolves nothing.
func UnitPrice(p *menu.Product, selected map[customization.OptionType]string, r OptionResolver) decimal.Decimal {
	unit := p.EffectivePrice()
	if r == nil {
		return unit
	}
	for t, id := range selected {
		if o, ok := r.OptionOf(t, id); ok && o.Surcharge.IsPositive() {
			unit = unit.Add(o.Surcharge)
		}
	}
	return unit
}

// LineTotal is UnitPrice multiplied by quantity.
func LineTotal(p *menu.Product, selected map[customization.OptionType]string, r OptionResolver, quantity int) decimal.Decimal {
	return UnitPrice(p, selected, r).Mul(decimal.NewFromInt(int64(quantity)))
}

// Default delivery terms.
var (
	DefaultFreeDeliveryThreshold = decimal.NewFromInt(150)
	DefaultDeliveryFee           = decimal.NewFromInt(15)
)

// DeliveryPolicy waives a flat delivery fee once the subtotal reaches a
// threshold.
type DeliveryPolicy struct {
	FreeThreshold decimal.Decimal
	Fee           decimal.Decimal
}

// DefaultDelivery returns the 150/15 policy.
func DefaultDelivery() DeliveryPolicy {
	return DeliveryPolicy{
		FreeThreshold: DefaultFreeDeliveryThreshold,
		Fee:           DefaultDeliveryFee,
	}
}

// ParseDeliveryPolicy builds a policy from decimal strings.
func ParseDeliveryPolicy(threshold, fee string) (DeliveryPolicy, error) {
	t, err := decimal.NewFromString(threshold)
	if err != nil {
		return DeliveryPolicy{}, &AmountError{Field: "threshold", Value: threshold, Err: err}
	}
	f, err := decimal.NewFromString(fee)
	if err != nil {
		return DeliveryPolicy{}, &AmountError{Field: "fee", Value: fee, Err: err}
	}
	if t.IsNegative() {
		return DeliveryPolicy{}, &AmountError{Field: "threshold", Value: threshold, Err: ErrNegative}
	}
	if f.IsNegative() {
		return DeliveryPolicy{}, &AmountError{Field: "fee", Value: fee, Err: ErrNegative}
	}
	return DeliveryPolicy{FreeThreshold: t, Fee: f}, nil
}

// FeeFor returns the delivery fee owed for subtotal. The threshold itself
// already qualifies for free delivery.
func (d DeliveryPolicy) FeeFor(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.GreaterThanOrEqual(d.FreeThreshold) {
		return decimal.Zero
	}
	return d.Fee
}

// Totals is the priced summary of a cart or order.
type Totals struct {
	Subtotal    decimal.Decimal
	DeliveryFee decimal.Decimal
	Total       decimal.Decimal
}

// Summarize applies the delivery policy to subtotal.
func (d DeliveryPolicy) Summarize(subtotal decimal.Decimal) Totals {
	fee := d.FeeFor(subtotal)
	return Totals{
		Subtotal:    subtotal,
		DeliveryFee: fee,
		Total:       subtotal.Add(fee),
	}
}

// Round returns the totals rounded to cents.
func (t Totals) Round() Totals {
	return Totals{
		Subtotal:    t.Subtotal.Round(2),
		DeliveryFee: t.DeliveryFee.Round(2),
		Total:       t.Total.Round(2),
	}
}
