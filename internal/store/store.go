// internal/store/store.go
//
// Persistence contract for the squares board.
// Two logical tables sit behind it:
//   - meta:    key/value pairs (axis sequences, generation flag).
//   - squares: exactly NumSquares rows, id 0..99, optional initials + claim time.
//
// Implementations live in this package: SQLite (durable) and memory (tests,
// throwaway dev boards). Every method is safe for concurrent use; all
// coordination between callers is pushed down to the primitives below.

package store

import (
	"context"
	"time"
)

// NumSquares is the number of claimable cells on the board.
const NumSquares = 100

// Square is one cell of the board.
type Square struct {
	ID        int       // 0..99, row*10+col
	Initials  string    // "" until claimed
	ClaimedAt time.Time // zero until claimed
}

// Claimed reports whether initials have been recorded for the square.
func (s Square) Claimed() bool { return s.Initials != "" }

// MetaEntry is one key/value pair of board metadata.
type MetaEntry struct {
	Key   string
	Value string
}

// Store defines the board persistence primitives.
type Store interface {
	// EnsureSchema creates the meta and squares tables if absent.
	EnsureSchema(ctx context.Context) error

	// EnsureSquares inserts rows 0..NumSquares-1, leaving existing rows untouched.
	EnsureSquares(ctx context.Context) error

	// ReadMeta returns the value for key; ok is false if the key is absent.
	ReadMeta(ctx context.Context, key string) (value string, ok bool, err error)

	// WriteMetaBatch upserts all entries as one atomic unit.
	WriteMetaBatch(ctx context.Context, entries []MetaEntry) error

	// WriteMetaBatchIfAbsent inserts guard only if its key is absent and, in the
	// same atomic unit, upserts entries. applied is false (and nothing is
	// written) when the guard key already exists.
	WriteMetaBatchIfAbsent(ctx context.Context, guard MetaEntry, entries []MetaEntry) (applied bool, err error)

	// ListSquares returns all squares ordered by ascending id.
	ListSquares(ctx context.Context) ([]Square, error)

	// TryClaim records initials on square id only if it is unclaimed.
	// It reports whether this call changed the row.
	TryClaim(ctx context.Context, id int, initials string) (bool, error)

	// CountClaimed returns the number of squares with initials.
	CountClaimed(ctx context.Context) (int, error)
}
