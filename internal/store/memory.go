// internal/store/memory.go
//
// In-memory implementation of the Store interface.
// Used by tests and for throwaway boards where durability is not required.
//
// Characteristics:
//   - Squares and metadata are held in maps guarded by one RWMutex.
//   - Conditional writes (TryClaim, WriteMetaBatchIfAbsent) check and mutate
//     under the write lock, giving the same first-writer-wins outcome as SQLite.
//   - State is lost when the process restarts.

package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// memory is a map-based Store implementation.
type memory struct {
	mu      sync.RWMutex      // guards meta and squares
	meta    map[string]string // keyed by MetaEntry.Key
	squares map[int]Square    // keyed by Square.ID
	now     func() time.Time
}

// NewMemoryStore constructs a new, empty in-memory Store.
func NewMemoryStore() Store {
	return &memory{
		meta:    make(map[string]string),
		squares: make(map[int]Square),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// EnsureSchema is a no-op; the maps exist from construction.
func (m *memory) EnsureSchema(ctx context.Context) error { return nil }

// EnsureSquares adds any missing rows without touching claimed ones.
func (m *memory) EnsureSquares(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id := 0; id < NumSquares; id++ {
		if _, ok := m.squares[id]; !ok {
			m.squares[id] = Square{ID: id}
		}
	}
	return nil
}

func (m *memory) ReadMeta(ctx context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.meta[key]
	return v, ok, nil
}

func (m *memory) WriteMetaBatch(ctx context.Context, entries []MetaEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range entries {
		m.meta[e.Key] = e.Value
	}
	return nil
}

func (m *memory) WriteMetaBatchIfAbsent(ctx context.Context, guard MetaEntry, entries []MetaEntry) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.meta[guard.Key]; exists {
		return false, nil
	}
	m.meta[guard.Key] = guard.Value
	for _, e := range entries {
		m.meta[e.Key] = e.Value
	}
	return true, nil
}

func (m *memory) ListSquares(ctx context.Context) ([]Square, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Square, 0, len(m.squares))
	for _, sq := range m.squares {
		out = append(out, sq)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memory) TryClaim(ctx context.Context, id int, initials string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sq, ok := m.squares[id]
	if !ok || sq.Claimed() {
		return false, nil
	}
	sq.Initials = initials
	sq.ClaimedAt = m.now()
	m.squares[id] = sq
	return true, nil
}

func (m *memory) CountClaimed(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, sq := range m.squares {
		if sq.Claimed() {
			n++
		}
	}
	return n, nil
}
