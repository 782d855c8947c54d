package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/mixandtaste/internal/domain/auth"
)

var _ auth.Repository = (*APIKeyRepository)(nil)

// APIKeyRepository stores back-office keys by their HMAC hash. Plaintext
// keys never reach the database.
type APIKeyRepository struct {
	pool *pgxpool.Pool
}

func NewAPIKeyRepository(pool *pgxpool.Pool) *APIKeyRepository {
	return &APIKeyRepository{pool: pool}
}

func (r *APIKeyRepository) FindByHash(ctx context.Context, hash string) (*auth.APIKeyInfo, error) {
	info := auth.APIKeyInfo{KeyHash: hash}
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, scopes FROM api_keys WHERE key_hash = $1 AND active`,
		hash,
	).Scan(&info.ID, &info.Name, &info.Scopes)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil, auth.ErrKeyNotFound
	case err != nil:
		return nil, fmt.Errorf("api key lookup: %w", err)
	}
	return &info, nil
}

// Create stores info as an active key. Registering a hash that already
// exists reactivates it with the new name and scopes and keeps its id, so
// seeding the same key twice is harmless.
func (r *APIKeyRepository) Create(ctx context.Context, info *auth.APIKeyInfo) error {
	scopes := info.Scopes
	if scopes == nil {
		scopes = []string{}
	}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO api_keys (id, key_hash, name, scopes) VALUES ($1, $2, $3, $4)
		ON CONFLICT (key_hash) DO UPDATE
			SET name = EXCLUDED.name, scopes = EXCLUDED.scopes, active = TRUE
		RETURNING id`,
		info.ID, info.KeyHash, info.Name, scopes,
	).Scan(&info.ID)
	if err != nil {
		return fmt.Errorf("store api key %q: %w", info.Name, err)
	}
	return nil
}
