package auth

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memKeys struct {
	byHash  map[string]*APIKeyInfo
	findErr error
}

func (m *memKeys) FindByHash(_ context.Context, hash string) (*APIKeyInfo, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	info, ok := m.byHash[hash]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return info, nil
}

func (m *memKeys) Create(_ context.Context, info *APIKeyInfo) error {
	m.byHash[info.KeyHash] = info
	return nil
}

func TestAuthenticator_IssueAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	keys := &memKeys{byHash: map[string]*APIKeyInfo{}}
	a := NewAuthenticator(keys, []byte("pepper"))

	key, issued, err := a.Issue(ctx, "kitchen", ScopeOrders)
	require.NoError(t, err)
	assert.NotEmpty(t, key)
	assert.NotEqual(t, key, issued.KeyHash)

	info, err := a.Authenticate(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "kitchen", info.Name)
	assert.True(t, info.HasScope(ScopeOrders))
	assert.False(t, info.HasScope(ScopeMenu))

	_, err = a.Authenticate(ctx, key+"x")
	require.ErrorIs(t, err, ErrUnauthorized)

	_, err = a.Authenticate(ctx, "")
	require.ErrorIs(t, err, ErrUnauthorized)

	other := NewAuthenticator(keys, []byte("another pepper"))
	_, err = other.Authenticate(ctx, key)
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestAuthenticator_RepositoryError(t *testing.T) {
	a := NewAuthenticator(&memKeys{findErr: errors.New("db down")}, []byte("pepper"))

	_, err := a.Authenticate(context.Background(), "mt_key")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnauthorized)
}

func TestAuthenticator_StoredHashMismatch(t *testing.T) {
	h := NewHasher([]byte("pepper"))
	keys := &memKeys{byHash: map[string]*APIKeyInfo{
		h.Hex("mt_key"): {ID: "1", KeyHash: "deadbeef"},
	}}
	a := NewAuthenticator(keys, []byte("pepper"))

	_, err := a.Authenticate(context.Background(), "mt_key")
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestAuthenticator_Register(t *testing.T) {
	ctx := context.Background()
	keys := &memKeys{byHash: map[string]*APIKeyInfo{}}
	a := NewAuthenticator(keys, []byte("pepper"))

	info, err := a.Register(ctx, "mt_seeded", "seed", ScopeMenu, ScopeOrders)
	require.NoError(t, err)
	assert.NotEmpty(t, info.ID)

	got, err := a.Authenticate(ctx, "mt_seeded")
	require.NoError(t, err)
	assert.Equal(t, "seed", got.Name)
	assert.True(t, got.HasScope(ScopeMenu))

	_, err = a.Register(ctx, "", "empty")
	require.Error(t, err)
}
