package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/mixandtaste/internal/domain/cart"
)

const (
	saveCartSQL = `INSERT INTO cart_snapshots (session_id, data, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (session_id) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`

	loadCartSQL = `SELECT data FROM cart_snapshots WHERE session_id = $1`

	deleteStaleCartsSQL = `DELETE FROM cart_snapshots WHERE updated_at < now() - make_interval(secs => $1)`
)

var _ cart.Store = (*CartStore)(nil)

// CartStore keeps cart snapshots in the cart_snapshots table as JSONB.
type CartStore struct {
	pool *pgxpool.Pool
}

// NewCartStore returns a CartStore that uses the given pool.
func NewCartStore(pool *pgxpool.Pool) *CartStore {
	return &CartStore{pool: pool}
}

// Save implements cart.Store.
func (s *CartStore) Save(ctx context.Context, sessionID string, snap cart.Snapshot) error {
	if _, err := s.pool.Exec(ctx, saveCartSQL, sessionID, cart.EncodeSnapshot(snap)); err != nil {
		return fmt.Errorf("saving cart %q: %w", sessionID, err)
	}
	return nil
}

// Load implements cart.Store.
func (s *CartStore) Load(ctx context.Context, sessionID string) (cart.Snapshot, error) {
	var data []byte
	if err := s.pool.QueryRow(ctx, loadCartSQL, sessionID).Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return cart.Snapshot{}, cart.ErrNoSnapshot
		}
		return cart.Snapshot{}, fmt.Errorf("loading cart %q: %w", sessionID, err)
	}
	return cart.DecodeSnapshot(data)
}

// DeleteStale removes carts untouched for longer than maxAge and returns how
// many were removed.
func (s *CartStore) DeleteStale(ctx context.Context, maxAge time.Duration) (int64, error) {
	tag, err := s.pool.Exec(ctx, deleteStaleCartsSQL, maxAge.Seconds())
	if err != nil {
		return 0, fmt.Errorf("deleting stale carts: %w", err)
	}
	return tag.RowsAffected(), nil
}
