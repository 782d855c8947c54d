package customization

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()

	assert.Len(t, c.ListOptions(OptionBread), 6)
	assert.Len(t, c.ListOptions(OptionSauce), 5)
	assert.Len(t, c.ListOptions(OptionPastaSauce), 3)
	assert.Len(t, c.ListOptions(OptionPresentation), 3)
	assert.Empty(t, c.ListOptions(OptionDrink))

	breads := c.ListOptions(OptionBread)
	assert.Equal(t, "brioche", breads[0].ID)
	assert.Equal(t, "Brioche Bread", breads[0].Name.EN)
	assert.True(t, breads[0].Surcharge.IsZero())
}

func TestStaticCatalog_ListOptionsReturnsCopy(t *testing.T) {
	c := DefaultCatalog()
	opts := c.ListOptions(OptionSauce)
	opts[0].ID = "mutated"

	assert.Equal(t, "garlic", c.ListOptions(OptionSauce)[0].ID)
}

func TestDefaultPolicies(t *testing.T) {
	policies := DefaultPolicies(DefaultCatalog())

	for id, p := range policies {
		require.NoError(t, p.Validate(), id)
	}

	burger, err := policies.Policy(context.Background(), "burger")
	require.NoError(t, err)
	assert.Equal(t, []OptionType{OptionBread, OptionSauce}, burger.RequiredTypes)
	assert.Equal(t, []OptionType{OptionBread, OptionSauce}, burger.Types())

	meat, err := policies.Policy(context.Background(), "meat")
	require.NoError(t, err)
	assert.Equal(t, []OptionType{OptionPresentation}, meat.RequiredTypes)
	assert.Equal(t, []OptionType{OptionPresentation, OptionBread, OptionPastaSauce}, meat.Types())

	_, err = policies.Policy(context.Background(), "dessert")
	require.ErrorIs(t, err, ErrNoPolicy)
}

func TestPolicy_Validate(t *testing.T) {
	garlic := Option{ID: "garlic", Type: OptionSauce, Surcharge: decimal.NewFromInt(10)}
	sandwich := Option{ID: "sandwich", Type: OptionPresentation}

	tests := []struct {
		name     string
		policy   Policy
		wantType OptionType
	}{
		{
			name:   "satisfiable",
			policy: Policy{CategoryID: "c", RequiredTypes: []OptionType{OptionSauce}, Options: []Option{garlic}},
		},
		{
			name:     "required type without options",
			policy:   Policy{CategoryID: "c", RequiredTypes: []OptionType{OptionBread}, Options: []Option{garlic}},
			wantType: OptionBread,
		},
		{
			name:     "invalid type tag",
			policy:   Policy{CategoryID: "c", RequiredTypes: []OptionType{"Bread Type"}},
			wantType: "Bread Type",
		},
		{
			name: "sandwich offered without bread",
			policy: Policy{
				CategoryID:    "c",
				RequiredTypes: []OptionType{OptionPresentation},
				Options:       []Option{sandwich},
			},
			wantType: OptionBread,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.policy.Validate()
			if tt.wantType == "" {
				require.NoError(t, err)
				return
			}
			var pErr *PolicyError
			require.ErrorAs(t, err, &pErr)
			assert.Equal(t, tt.wantType, pErr.Type)
		})
	}
}

func TestOptionType_Valid(t *testing.T) {
	assert.True(t, OptionPastaSauce.Valid())
	assert.True(t, OptionType("extra_cheese2").Valid())
	assert.False(t, OptionType("").Valid())
	assert.False(t, OptionType("Sauce").Valid())
	assert.False(t, OptionType("pasta-sauce").Valid())
}
