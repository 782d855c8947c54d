package cart

import (
	"context"
	"sync"

	"github.com/go-faster/errors"
)

// ErrNoSnapshot is returned by a Store that has nothing saved for a session.
var ErrNoSnapshot = errors.New("no cart snapshot")

// Store persists cart snapshots keyed by session id.
type Store interface {
	Save(ctx context.Context, sessionID string, s Snapshot) error
	// Load returns ErrNoSnapshot when nothing was saved.
	Load(ctx context.Context, sessionID string) (Snapshot, error)
}

// MemoryStore keeps snapshots in process memory.
type MemoryStore struct {
	mu        sync.Mutex
	snapshots map[string][]byte
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snapshots: make(map[string][]byte)}
}

// Save implements Store. Snapshots are stored encoded so that callers never
// share line data with the store.
func (m *MemoryStore) Save(_ context.Context, sessionID string, s Snapshot) error {
	data := EncodeSnapshot(s)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[sessionID] = data
	return nil
}

// Load implements Store.
func (m *MemoryStore) Load(_ context.Context, sessionID string) (Snapshot, error) {
	m.mu.Lock()
	data, ok := m.snapshots[sessionID]
	m.mu.Unlock()
	if !ok {
		return Snapshot{}, ErrNoSnapshot
	}
	return DecodeSnapshot(data)
}
