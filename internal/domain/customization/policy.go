package customization

import (
	"context"
	"fmt"
	"slices"

	"github.com/go-faster/errors"
)

// ErrNoPolicy is returned by a PolicySource when a category allows no
// customization. Products of such categories go straight into the cart.
var ErrNoPolicy = errors.New("category has no customization policy")

// PolicyError reports a policy that can never be satisfied.
type PolicyError struct {
	CategoryID string
	Type       OptionType
	Reason     string
}

func (e *PolicyError) Error() string {
	return fmt.Sprintf("category %s: %s %s", e.CategoryID, e.Type, e.Reason)
}

// Policy lists the option types a category requires and the options it
// offers. Options is a superset filtered by type when rendered.
type Policy struct {
	CategoryID    string
	RequiredTypes []OptionType
	Options       []Option
}

var _ Catalog = (*Policy)(nil)

// ListOptions implements Catalog over the options offered by the policy.
func (p *Policy) ListOptions(t OptionType) []Option {
	var out []Option
	for _, o := range p.Options {
		if o.Type == t {
			out = append(out, o)
		}
	}
	return out
}

// OptionOf finds an offered option by type and id.
func (p *Policy) OptionOf(t OptionType, id string) (Option, bool) {
	for _, o := range p.Options {
		if o.Type == t && o.ID == id {
			return o, true
		}
	}
	return Option{}, false
}

// Requires reports whether t is one of the required types.
func (p *Policy) Requires(t OptionType) bool {
	return slices.Contains(p.RequiredTypes, t)
}

// Types returns the distinct option types offered, in first-seen order.
func (p *Policy) Types() []OptionType {
	var out []OptionType
	for _, o := range p.Options {
		if !slices.Contains(out, o.Type) {
			out = append(out, o.Type)
		}
	}
	return out
}

// Validate checks that every required type, and every secondary type that a
// primary option can unlock, has at least one option to choose from.
func (p *Policy) Validate() error {
	for _, t := range p.RequiredTypes {
		if !t.Valid() {
			return &PolicyError{CategoryID: p.CategoryID, Type: t, Reason: "is not a valid option type"}
		}
		if len(p.ListOptions(t)) == 0 {
			return &PolicyError{CategoryID: p.CategoryID, Type: t, Reason: "is required but has no options"}
		}
	}
	for _, o := range p.ListOptions(PrimaryType) {
		if secondary, ok := SecondaryRequirement(o.ID); ok && len(p.ListOptions(secondary)) == 0 {
			return &PolicyError{
				CategoryID: p.CategoryID,
				Type:       secondary,
				Reason:     fmt.Sprintf("is unlocked by %s=%s but has no options", PrimaryType, o.ID),
			}
		}
	}
	return nil
}

// PolicySource resolves the customization policy of a category.
type PolicySource interface {
	// Policy returns ErrNoPolicy when the category is not customizable.
	Policy(ctx context.Context, categoryID string) (*Policy, error)
}

// StaticPolicies is a PolicySource backed by a fixed table.
type StaticPolicies map[string]*Policy

var _ PolicySource = StaticPolicies(nil)

// Policy implements PolicySource.
func (s StaticPolicies) Policy(_ context.Context, categoryID string) (*Policy, error) {
	p, ok := s[categoryID]
	if !ok {
		return nil, ErrNoPolicy
	}
	return p, nil
}

func concat(parts ...[]Option) []Option {
	var out []Option
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// DefaultPolicies returns the built-in policies for burgers, meat and
// chicken, drawing options from the catalog.
func DefaultPolicies(c Catalog) StaticPolicies {
	bread := c.ListOptions(OptionBread)
	sauce := c.ListOptions(OptionSauce)
	presentation := c.ListOptions(OptionPresentation)
	pasta := c.ListOptions(OptionPastaSauce)

	return StaticPolicies{
		"burger": {
			CategoryID:    "burger",
			RequiredTypes: []OptionType{OptionBread, OptionSauce},
			Options:       concat(bread, sauce),
		},
		"meat": {
			CategoryID:    "meat",
			RequiredTypes: []OptionType{OptionPresentation},
			Options:       concat(presentation, bread, pasta),
		},
		"chicken": {
			CategoryID:    "chicken",
			RequiredTypes: []OptionType{OptionPresentation},
			Options:       concat(presentation, bread, pasta),
		},
	}
}
