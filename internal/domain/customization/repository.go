package customization

import (
	"context"
	"slices"

	"github.com/go-faster/errors"
)

// ErrOptionNotFound is returned when an option does not exist.
var ErrOptionNotFound = errors.New("option not found")

// OptionRecord is an option as administrators manage it for a category.
type OptionRecord struct {
	CategoryID string
	Option     Option
	SortOrder  int
	Active     bool
}

// Repository stores database-managed policies.
type Repository interface {
	PolicySource
	ListOptionRecords(ctx context.Context, categoryID string) ([]OptionRecord, error)
	RequiredTypes(ctx context.Context, categoryID string) ([]OptionType, error)
	// SaveOption inserts or replaces an option.
	SaveOption(ctx context.Context, rec *OptionRecord) error
	// DeleteOption returns ErrOptionNotFound when nothing was deleted.
	DeleteOption(ctx context.Context, categoryID, optionID string) error
	SetRequiredTypes(ctx context.Context, categoryID string, types []OptionType) error
}

// Manager applies administrator edits to stored policies, refusing changes
// that would leave a category impossible to satisfy.
type Manager struct {
	repo Repository
}

// NewManager creates a Manager.
func NewManager(repo Repository) *Manager {
	return &Manager{repo: repo}
}

// Options lists every option of a category, inactive ones included.
func (m *Manager) Options(ctx context.Context, categoryID string) ([]OptionRecord, error) {
	recs, err := m.repo.ListOptionRecords(ctx, categoryID)
	if err != nil {
		return nil, errors.Wrap(err, "list options")
	}
	return recs, nil
}

// RequiredTypes lists the option types a category requires.
func (m *Manager) RequiredTypes(ctx context.Context, categoryID string) ([]OptionType, error) {
	types, err := m.repo.RequiredTypes(ctx, categoryID)
	if err != nil {
		return nil, errors.Wrap(err, "list required types")
	}
	return types, nil
}

func (m *Manager) candidate(ctx context.Context, categoryID string, edit func(required []OptionType, recs []OptionRecord) ([]OptionType, []OptionRecord)) error {
	required, err := m.repo.RequiredTypes(ctx, categoryID)
	if err != nil {
		return errors.Wrap(err, "list required types")
	}
	recs, err := m.repo.ListOptionRecords(ctx, categoryID)
	if err != nil {
		return errors.Wrap(err, "list options")
	}
	required, recs = edit(required, recs)

	p := &Policy{CategoryID: categoryID, RequiredTypes: required}
	for _, r := range recs {
		if r.Active {
			p.Options = append(p.Options, r.Option)
		}
	}
	return p.Validate()
}

// SaveOption validates and stores an option.
func (m *Manager) SaveOption(ctx context.Context, rec *OptionRecord) error {
	switch {
	case rec.CategoryID == "":
		return &PolicyError{Type: rec.Option.Type, Reason: "needs a category"}
	case rec.Option.ID == "":
		return &PolicyError{CategoryID: rec.CategoryID, Type: rec.Option.Type, Reason: "option needs an id"}
	case !rec.Option.Type.Valid():
		return &PolicyError{CategoryID: rec.CategoryID, Type: rec.Option.Type, Reason: "is not a valid option type"}
	case rec.Option.Surcharge.IsNegative():
		return &PolicyError{CategoryID: rec.CategoryID, Type: rec.Option.Type, Reason: "surcharge must not be negative"}
	case rec.Option.Name.AR == "" || rec.Option.Name.EN == "":
		return &PolicyError{CategoryID: rec.CategoryID, Type: rec.Option.Type, Reason: "option needs a name in both languages"}
	}
	if !rec.Active {
		err := m.candidate(ctx, rec.CategoryID, func(required []OptionType, recs []OptionRecord) ([]OptionType, []OptionRecord) {
			return required, slices.DeleteFunc(recs, func(r OptionRecord) bool { return r.Option.ID == rec.Option.ID })
		})
		if err != nil {
			return err
		}
	}
	if err := m.repo.SaveOption(ctx, rec); err != nil {
		return errors.Wrap(err, "save option")
	}
	return nil
}

// DeleteOption removes an option unless a required type would be left
// without choices.
func (m *Manager) DeleteOption(ctx context.Context, categoryID, optionID string) error {
	err := m.candidate(ctx, categoryID, func(required []OptionType, recs []OptionRecord) ([]OptionType, []OptionRecord) {
		return required, slices.DeleteFunc(recs, func(r OptionRecord) bool { return r.Option.ID == optionID })
	})
	if err != nil {
		return err
	}
	if err := m.repo.DeleteOption(ctx, categoryID, optionID); err != nil {
		return errors.Wrap(err, "delete option")
	}
	return nil
}

// SetRequiredTypes replaces the required types of a category.
func (m *Manager) SetRequiredTypes(ctx context.Context, categoryID string, types []OptionType) error {
	var unique []OptionType
	for _, t := range types {
		if !slices.Contains(unique, t) {
			unique = append(unique, t)
		}
	}
	types = unique
	err := m.candidate(ctx, categoryID, func(_ []OptionType, recs []OptionRecord) ([]OptionType, []OptionRecord) {
		return types, recs
	})
	if err != nil {
		return err
	}
	if err := m.repo.SetRequiredTypes(ctx, categoryID, types); err != nil {
		return errors.Wrap(err, "set required types")
	}
	return nil
}
