package customization

import (
	"fmt"
	"maps"
	"slices"
)

// PrimaryType is the axis whose choice may unlock a secondary sub-choice.
const PrimaryType = OptionPresentation

// secondaryRequirements maps a presentation option to the option type it
// additionally requires. Presentations not listed require nothing more.
var secondaryRequirements = map[string]OptionType{
	"sandwich":   OptionBread,
	"meal_pasta": OptionPastaSauce,
}

// SecondaryRequirement returns the option type that choosing the given
// presentation makes mandatory.
func SecondaryRequirement(presentationID string) (OptionType, bool) {
	t, ok := secondaryRequirements[presentationID]
	return t, ok
}

// UnknownOptionError is returned when selecting an option the policy does
// not offer.
type UnknownOptionError struct {
	Type     OptionType
	OptionID string
}

func (e *UnknownOptionError) Error() string {
	return fmt.Sprintf("option %s=%s is not offered", e.Type, e.OptionID)
}

// State is the completeness of a Selection.
type State int

const (
	StateEmpty State = iota
	StatePartial
	StateComplete
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StatePartial:
		return "partial"
	case StateComplete:
		return "complete"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Selection tracks the options chosen for one in-progress customization of
// one product. A nil policy means the product is not customizable and the
// selection is always complete.
type Selection struct {
	policy *Policy
	chosen map[OptionType]string
}

// NewSelection starts an empty selection governed by p.
func NewSelection(p *Policy) *Selection {
	return &Selection{policy: p, chosen: make(map[OptionType]string)}
}

// RestoreSelection rebuilds a selection from a type to option id map. The
// primary axis is applied first so that secondary choices survive.
func RestoreSelection(p *Policy, chosen map[OptionType]string) (*Selection, error) {
	s := NewSelection(p)
	if primary, ok := chosen[PrimaryType]; ok {
		if err := s.Select(PrimaryType, primary); err != nil {
			return nil, err
		}
	}
	for _, t := range slices.Sorted(maps.Keys(chosen)) {
		if t == PrimaryType {
			continue
		}
		if err := s.Select(t, chosen[t]); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Policy returns the governing policy, possibly nil.
func (s *Selection) Policy() *Policy {
	return s.policy
}

// Select chooses optionID for type t. Changing the primary choice discards
// every secondary choice made under the previous one.
func (s *Selection) Select(t OptionType, optionID string) error {
	if s.policy == nil {
		return &UnknownOptionError{Type: t, OptionID: optionID}
	}
	if _, ok := s.policy.OptionOf(t, optionID); !ok {
		return &UnknownOptionError{Type: t, OptionID: optionID}
	}
	if t == PrimaryType {
		if prev, ok := s.chosen[t]; ok && prev != optionID {
			s.clearSecondary()
		}
	}
	s.chosen[t] = optionID
	return nil
}

// Deselect removes the choice for t, if any.
func (s *Selection) Deselect(t OptionType) {
	delete(s.chosen, t)
}

func (s *Selection) clearSecondary() {
	for t := range s.chosen {
		if !s.policy.Requires(t) {
			delete(s.chosen, t)
		}
	}
}

// Get returns the option chosen for t.
func (s *Selection) Get(t OptionType) (string, bool) {
	id, ok := s.chosen[t]
	return id, ok
}

// Chosen returns a copy of the type to option id mapping.
func (s *Selection) Chosen() map[OptionType]string {
	return maps.Clone(s.chosen)
}

// Len is the number of choices made.
func (s *Selection) Len() int {
	return len(s.chosen)
}

// Missing lists the required types without a choice, followed by the
// secondary type unlocked by the current primary choice if it is unresolved.
func (s *Selection) Missing() []OptionType {
	if s.policy == nil {
		return nil
	}
	var missing []OptionType
	for _, t := range s.policy.RequiredTypes {
		if _, ok := s.chosen[t]; !ok {
			missing = append(missing, t)
		}
	}
	if primary, ok := s.chosen[PrimaryType]; ok {
		if secondary, ok := SecondaryRequirement(primary); ok {
			if _, chosen := s.chosen[secondary]; !chosen && !slices.Contains(missing, secondary) {
				missing = append(missing, secondary)
			}
		}
	}
	return missing
}

// IsComplete reports whether the selection may be added to the cart.
func (s *Selection) IsComplete() bool {
	return len(s.Missing()) == 0
}

// State classifies the selection.
func (s *Selection) State() State {
	switch {
	case s.IsComplete():
		return StateComplete
	case len(s.chosen) == 0:
		return StateEmpty
	default:
		return StatePartial
	}
}
