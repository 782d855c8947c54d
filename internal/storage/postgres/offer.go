package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/mixandtaste/internal/domain/menu"
)

const (
	offerColumns = `id, title_ar, title_en, description_ar, description_en, image_url,
		discount_percentage, discount_amount, valid_from, valid_until, is_active, sort_order`

	listOffersSQL = `SELECT ` + offerColumns + ` FROM special_offers ORDER BY sort_order, id`

	getOfferSQL = `SELECT ` + offerColumns + ` FROM special_offers WHERE id = $1`

	createOfferSQL = `INSERT INTO special_offers (` + offerColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	updateOfferSQL = `UPDATE special_offers
		SET title_ar = $2, title_en = $3, description_ar = $4, description_en = $5, image_url = $6,
			discount_percentage = $7, discount_amount = $8, valid_from = $9, valid_until = $10,
			is_active = $11, sort_order = $12
		WHERE id = $1`

	deleteOfferSQL = `DELETE FROM special_offers WHERE id = $1`
)

var _ menu.OfferRepository = (*OfferRepository)(nil)

// OfferRepository implements menu.OfferRepository backed by PostgreSQL.
type OfferRepository struct {
	pool *pgxpool.Pool
}

// NewOfferRepository returns an OfferRepository that uses the given pool.
func NewOfferRepository(pool *pgxpool.Pool) *OfferRepository {
	return &OfferRepository{pool: pool}
}

// ListOffers returns every offer, active or not, in display order.
func (r *OfferRepository) ListOffers(ctx context.Context) ([]menu.Offer, error) {
	rows, err := r.pool.Query(ctx, listOffersSQL)
	if err != nil {
		return nil, fmt.Errorf("listing offers: %w", err)
	}
	return pgx.CollectRows(rows, scanOffer)
}

// GetOffer returns a single offer.
func (r *OfferRepository) GetOffer(ctx context.Context, id string) (*menu.Offer, error) {
	rows, err := r.pool.Query(ctx, getOfferSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting offer %q: %w", id, err)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOffer)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, menu.ErrNotFound
		}
		return nil, fmt.Errorf("getting offer %q: %w", id, err)
	}
	return &o, nil
}

// CreateOffer inserts an offer.
func (r *OfferRepository) CreateOffer(ctx context.Context, o *menu.Offer) error {
	_, err := r.pool.Exec(ctx, createOfferSQL, offerArgs(o)...)
	if err != nil {
		if pgErrorCode(err) == uniqueViolation {
			return menu.ErrConflict
		}
		return fmt.Errorf("creating offer %q: %w", o.ID, err)
	}
	return nil
}

// UpdateOffer overwrites an offer.
func (r *OfferRepository) UpdateOffer(ctx context.Context, o *menu.Offer) error {
	tag, err := r.pool.Exec(ctx, updateOfferSQL, offerArgs(o)...)
	if err != nil {
		return fmt.Errorf("updating offer %q: %w", o.ID, err)
	}
	return requireAffected(tag, menu.ErrNotFound)
}

// DeleteOffer removes an offer.
func (r *OfferRepository) DeleteOffer(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteOfferSQL, id)
	if err != nil {
		return fmt.Errorf("deleting offer %q: %w", id, err)
	}
	return requireAffected(tag, menu.ErrNotFound)
}

func offerArgs(o *menu.Offer) []any {
	return []any{
		o.ID, o.Title.AR, o.Title.EN, o.Description.AR, o.Description.EN, o.ImageURL,
		o.DiscountPercentage, o.DiscountAmount, o.ValidFrom, o.ValidUntil, o.Active, o.SortOrder,
	}
}

func scanOffer(row pgx.CollectableRow) (menu.Offer, error) {
	var o menu.Offer
	err := row.Scan(
		&o.ID, &o.Title.AR, &o.Title.EN, &o.Description.AR, &o.Description.EN, &o.ImageURL,
		&o.DiscountPercentage, &o.DiscountAmount, &o.ValidFrom, &o.ValidUntil, &o.Active, &o.SortOrder,
	)
	return o, err
}
