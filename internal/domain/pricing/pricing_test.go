package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/mixandtaste/internal/domain/customization"
	"github.com/xenking/mixandtaste/internal/domain/menu"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func sauces() *customization.Policy {
	return &customization.Policy{
		CategoryID:    "burger",
		RequiredTypes: []customization.OptionType{customization.OptionSauce},
		Options: []customization.Option{
			{ID: "garlic", Type: customization.OptionSauce, Surcharge: dec("10")},
			{ID: "bbq", Type: customization.OptionSauce},
			{ID: "brioche", Type: customization.OptionBread, Surcharge: dec("2.50")},
		},
	}
}

func TestLineTotal_DiscountAndSurcharge(t *testing.T) {
	p := &menu.Product{
		ID:            "classic",
		Price:         dec("100"),
		DiscountPrice: decimal.NewNullDecimal(dec("80")),
	}
	selected := map[customization.OptionType]string{customization.OptionSauce: "garlic"}

	got := LineTotal(p, selected, sauces(), 2)
	assert.True(t, dec("180").Equal(got), "got %s", got)
}

func TestUnitPrice(t *testing.T) {
	base := &menu.Product{ID: "p", Price: dec("42.50")}

	tests := []struct {
		name     string
		selected map[customization.OptionType]string
		resolver OptionResolver
		want     string
	}{
		{name: "no selection", want: "42.50", resolver: sauces()},
		{name: "nil resolver", selected: map[customization.OptionType]string{customization.OptionSauce: "garlic"}, want: "42.50"},
		{
			name:     "two surcharges",
			selected: map[customization.OptionType]string{customization.OptionSauce: "garlic", customization.OptionBread: "brioche"},
			resolver: sauces(),
			want:     "55.00",
		},
		{
			name:     "free option",
			selected: map[customization.OptionType]string{customization.OptionSauce: "bbq"},
			resolver: sauces(),
			want:     "42.50",
		},
		{
			name:     "unresolved option contributes zero",
			selected: map[customization.OptionType]string{customization.OptionSauce: "retired", customization.OptionBread: "brioche"},
			resolver: sauces(),
			want:     "45.00",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := UnitPrice(base, tt.selected, tt.resolver)
			assert.True(t, dec(tt.want).Equal(got), "got %s want %s", got, tt.want)
		})
	}
}

func TestDeliveryPolicy_FeeFor(t *testing.T) {
	d := DefaultDelivery()

	tests := []struct {
		subtotal string
		want     string
	}{
		{subtotal: "0", want: "15"},
		{subtotal: "149", want: "15"},
		{subtotal: "149.99", want: "15"},
		{subtotal: "150", want: "0"},
		{subtotal: "150.00", want: "0"},
		{subtotal: "320.5", want: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.subtotal, func(t *testing.T) {
			got := d.FeeFor(dec(tt.subtotal))
			assert.True(t, dec(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestDeliveryPolicy_Summarize(t *testing.T) {
	totals := DefaultDelivery().Summarize(dec("99.995"))

	assert.True(t, dec("15").Equal(totals.DeliveryFee))
	assert.True(t, dec("114.995").Equal(totals.Total))

	rounded := totals.Round()
	assert.True(t, dec("100.00").Equal(rounded.Subtotal), "got %s", rounded.Subtotal)
	assert.True(t, dec("115.00").Equal(rounded.Total), "got %s", rounded.Total)
}

func TestParseDeliveryPolicy(t *testing.T) {
	d, err := ParseDeliveryPolicy("200", "12.5")
	require.NoError(t, err)
	assert.True(t, dec("200").Equal(d.FreeThreshold))
	assert.True(t, dec("12.5").Equal(d.Fee))

	_, err = ParseDeliveryPolicy("lots", "15")
	var aErr *AmountError
	require.ErrorAs(t, err, &aErr)
	assert.Equal(t, "threshold", aErr.Field)

	_, err = ParseDeliveryPolicy("150", "-1")
	require.ErrorIs(t, err, ErrNegative)
}
