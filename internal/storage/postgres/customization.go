package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/mixandtaste/internal/domain/customization"
)

const (
	listRequiredTypesSQL = `SELECT option_type FROM customization_groups
		WHERE category_id = $1 ORDER BY sort_order, option_type`

	listOptionRecordsSQL = `SELECT category_id, id, option_type, name_ar, name_en, price, sort_order, is_active
		FROM customization_options WHERE category_id = $1 ORDER BY option_type, sort_order, id`

	upsertOptionSQL = `INSERT INTO customization_options
			(category_id, id, option_type, name_ar, name_en, price, sort_order, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (category_id, id) DO UPDATE
		SET option_type = EXCLUDED.option_type, name_ar = EXCLUDED.name_ar, name_en = EXCLUDED.name_en,
			price = EXCLUDED.price, sort_order = EXCLUDED.sort_order, is_active = EXCLUDED.is_active`

	deleteOptionSQL = `DELETE FROM customization_options WHERE category_id = $1 AND id = $2`

	deleteRequiredTypesSQL = `DELETE FROM customization_groups WHERE category_id = $1`

	insertRequiredTypeSQL = `INSERT INTO customization_groups (category_id, option_type, sort_order)
		VALUES ($1, $2, $3)`
)

var _ customization.Repository = (*PolicyRepository)(nil)

// PolicyRepository assembles customization policies from the
// customization_groups and customization_options tables.
type PolicyRepository struct {
	pool *pgxpool.Pool
}

// NewPolicyRepository returns a PolicyRepository that uses the given pool.
func NewPolicyRepository(pool *pgxpool.Pool) *PolicyRepository {
	return &PolicyRepository{pool: pool}
}

// Policy implements customization.PolicySource. Only active options are
// offered. A category with neither required types nor options has no
// policy.
func (r *PolicyRepository) Policy(ctx context.Context, categoryID string) (*customization.Policy, error) {
	required, err := r.RequiredTypes(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	recs, err := r.ListOptionRecords(ctx, categoryID)
	if err != nil {
		return nil, err
	}

	p := &customization.Policy{CategoryID: categoryID, RequiredTypes: required}
	for _, rec := range recs {
		if rec.Active {
			p.Options = append(p.Options, rec.Option)
		}
	}
	if len(p.RequiredTypes) == 0 && len(p.Options) == 0 {
		return nil, customization.ErrNoPolicy
	}
	return p, nil
}

// RequiredTypes lists the required option types of a category in order.
func (r *PolicyRepository) RequiredTypes(ctx context.Context, categoryID string) ([]customization.OptionType, error) {
	rows, err := r.pool.Query(ctx, listRequiredTypesSQL, categoryID)
	if err != nil {
		return nil, fmt.Errorf("listing required types of %q: %w", categoryID, err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (customization.OptionType, error) {
		var t string
		err := row.Scan(&t)
		return customization.OptionType(t), err
	})
}

// ListOptionRecords lists every option of a category.
func (r *PolicyRepository) ListOptionRecords(ctx context.Context, categoryID string) ([]customization.OptionRecord, error) {
	rows, err := r.pool.Query(ctx, listOptionRecordsSQL, categoryID)
	if err != nil {
		return nil, fmt.Errorf("listing options of %q: %w", categoryID, err)
	}
	return pgx.CollectRows(rows, scanOptionRecord)
}

// SaveOption inserts or replaces an option.
func (r *PolicyRepository) SaveOption(ctx context.Context, rec *customization.OptionRecord) error {
	o := rec.Option
	_, err := r.pool.Exec(ctx, upsertOptionSQL,
		rec.CategoryID, o.ID, string(o.Type), o.Name.AR, o.Name.EN, o.Surcharge, rec.SortOrder, rec.Active,
	)
	if err != nil {
		return fmt.Errorf("saving option %q of %q: %w", o.ID, rec.CategoryID, err)
	}
	return nil
}

// DeleteOption removes an option.
func (r *PolicyRepository) DeleteOption(ctx context.Context, categoryID, optionID string) error {
	tag, err := r.pool.Exec(ctx, deleteOptionSQL, categoryID, optionID)
	if err != nil {
		return fmt.Errorf("deleting option %q of %q: %w", optionID, categoryID, err)
	}
	return requireAffected(tag, customization.ErrOptionNotFound)
}

// SetRequiredTypes replaces the required types of a category atomically.
func (r *PolicyRepository) SetRequiredTypes(ctx context.Context, categoryID string, types []customization.OptionType) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, deleteRequiredTypesSQL, categoryID); err != nil {
			return fmt.Errorf("clearing required types of %q: %w", categoryID, err)
		}
		for i, t := range types {
			if _, err := tx.Exec(ctx, insertRequiredTypeSQL, categoryID, string(t), i); err != nil {
				return fmt.Errorf("inserting required type %q of %q: %w", t, categoryID, err)
			}
		}
		return nil
	})
}

// ImportPolicies stores static policies, replacing the required types the
// categories had and upserting their options.
func (r *PolicyRepository) ImportPolicies(ctx context.Context, policies customization.StaticPolicies) error {
	for categoryID, p := range policies {
		for i, o := range p.Options {
			rec := &customization.OptionRecord{CategoryID: categoryID, Option: o, SortOrder: i, Active: true}
			if err := r.SaveOption(ctx, rec); err != nil {
				return err
			}
		}
		if err := r.SetRequiredTypes(ctx, categoryID, p.RequiredTypes); err != nil {
			return err
		}
	}
	return nil
}

func scanOptionRecord(row pgx.CollectableRow) (customization.OptionRecord, error) {
	var (
		rec customization.OptionRecord
		t   string
	)
	err := row.Scan(
		&rec.CategoryID, &rec.Option.ID, &t, &rec.Option.Name.AR, &rec.Option.Name.EN,
		&rec.Option.Surcharge, &rec.SortOrder, &rec.Active,
	)
	rec.Option.Type = customization.OptionType(t)
	return rec, err
}
