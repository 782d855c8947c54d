// Package auth authenticates back-office API keys.
package auth

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"slices"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
)

// Scopes granted to API keys.
const (
	ScopeMenu   = "menu:write"
	ScopeOrders = "orders:write"
)

// Sentinel errors.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrKeyNotFound  = errors.New("api key not found")
)

// APIKeyInfo holds the identity and permission data for a validated API key.
type APIKeyInfo struct {
	ID      string
	KeyHash string
	Name    string
	Scopes  []string
}

// HasScope reports whether the key was granted scope.
func (i *APIKeyInfo) HasScope(scope string) bool {
	return slices.Contains(i.Scopes, scope)
}

// Repository provides lookup of API keys by their HMAC hash.
type Repository interface {
	// FindByHash returns ErrKeyNotFound when no active key matches.
	FindByHash(ctx context.Context, hash string) (*APIKeyInfo, error)
	Create(ctx context.Context, info *APIKeyInfo) error
}

// Hasher derives the stored form of an API key.
type Hasher struct {
	pepper []byte
}

// NewHasher creates a Hasher keyed by pepper.
func NewHasher(pepper []byte) Hasher {
	return Hasher{pepper: pepper}
}

// Sum returns the HMAC-SHA256 of key.
func (h Hasher) Sum(key string) []byte {
	mac := hmac.New(sha256.New, h.pepper)
	mac.Write([]byte(key))
	return mac.Sum(nil)
}

// Hex returns Sum hex-encoded, as stored in the repository.
func (h Hasher) Hex(key string) string {
	return hex.EncodeToString(h.Sum(key))
}

// Authenticator validates presented API keys.
type Authenticator struct {
	keys   Repository
	hasher Hasher
}

// NewAuthenticator creates an Authenticator.
func NewAuthenticator(keys Repository, pepper []byte) *Authenticator {
	return &Authenticator{keys: keys, hasher: NewHasher(pepper)}
}

// Authenticate looks up the key by its hash and confirms the stored hash in
// constant time.
func (a *Authenticator) Authenticate(ctx context.Context, key string) (*APIKeyInfo, error) {
	if key == "" {
		return nil, ErrUnauthorized
	}
	hash := a.hasher.Sum(key)

	info, err := a.keys.FindByHash(ctx, hex.EncodeToString(hash))
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, errors.Wrap(err, "find api key")
	}

	stored, err := hex.DecodeString(info.KeyHash)
	if err != nil || subtle.ConstantTimeCompare(hash, stored) != 1 {
		return nil, ErrUnauthorized
	}
	return info, nil
}

// Issue creates a new random key with the given scopes and stores its hash.
// The plain key is returned once and never stored.
func (a *Authenticator) Issue(ctx context.Context, name string, scopes ...string) (string, *APIKeyInfo, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", nil, errors.Wrap(err, "generate key")
	}
	key := "mt_" + hex.EncodeToString(buf)
	info, err := a.Register(ctx, key, name, scopes...)
	if err != nil {
		return "", nil, err
	}
	return key, info, nil
}

// Register stores the hash of a key chosen by the operator. Registering an
// existing key again updates its name and scopes.
func (a *Authenticator) Register(ctx context.Context, key, name string, scopes ...string) (*APIKeyInfo, error) {
	if key == "" {
		return nil, errors.New("empty api key")
	}
	info := &APIKeyInfo{
		ID:      uuid.NewString(),
		KeyHash: a.hasher.Hex(key),
		Name:    name,
		Scopes:  scopes,
	}
	if err := a.keys.Create(ctx, info); err != nil {
		return nil, errors.Wrap(err, "store api key")
	}
	return info, nil
}
