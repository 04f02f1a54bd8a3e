package store

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openTestDB opens a file-backed SQLite database under t.TempDir.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

// backends lists every Store implementation; each test runs against all of them.
func backends() map[string]func(t *testing.T) Store {
	return map[string]func(t *testing.T) Store{
		"sqlite": func(t *testing.T) Store { return NewSQLite(openTestDB(t)) },
		"memory": func(t *testing.T) Store { return NewMemoryStore() },
	}
}

// initialized returns a store with schema and squares in place.
func initialized(t *testing.T, newStore func(t *testing.T) Store) Store {
	t.Helper()
	s := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.EnsureSchema(ctx))
	require.NoError(t, s.EnsureSquares(ctx))
	return s
}

func TestStore_EnsureIsIdempotent(t *testing.T) {
	for name, newStore := range backends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := initialized(t, newStore)
			ok, err := s.TryClaim(ctx, 7, "AB")
			require.NoError(t, err)
			require.True(t, ok)

			for i := 0; i < 3; i++ {
				require.NoError(t, s.EnsureSchema(ctx))
				require.NoError(t, s.EnsureSquares(ctx))
			}

			squares, err := s.ListSquares(ctx)
			require.NoError(t, err)
			require.Len(t, squares, NumSquares)
			assert.Equal(t, "AB", squares[7].Initials, "re-initialization must not clobber claims")
		})
	}
}

func TestStore_ListSquaresOrderedAndUnclaimed(t *testing.T) {
	for name, newStore := range backends() {
		t.Run(name, func(t *testing.T) {
			s := initialized(t, newStore)
			squares, err := s.ListSquares(context.Background())
			require.NoError(t, err)
			require.Len(t, squares, NumSquares)
			for i, sq := range squares {
				assert.Equal(t, i, sq.ID)
				assert.False(t, sq.Claimed())
				assert.True(t, sq.ClaimedAt.IsZero())
			}
		})
	}
}

func TestStore_TryClaimFirstWriterWins(t *testing.T) {
	for name, newStore := range backends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := initialized(t, newStore)

			ok, err := s.TryClaim(ctx, 42, "AB")
			require.NoError(t, err)
			assert.True(t, ok)

			before, err := s.ListSquares(ctx)
			require.NoError(t, err)

			ok, err = s.TryClaim(ctx, 42, "ZZ")
			require.NoError(t, err)
			assert.False(t, ok)

			after, err := s.ListSquares(ctx)
			require.NoError(t, err)
			assert.Equal(t, "AB", after[42].Initials)
			assert.False(t, after[42].ClaimedAt.IsZero())
			assert.True(t, before[42].ClaimedAt.Equal(after[42].ClaimedAt))
		})
	}
}

func TestStore_TryClaimUnknownID(t *testing.T) {
	for name, newStore := range backends() {
		t.Run(name, func(t *testing.T) {
			s := initialized(t, newStore)
			ok, err := s.TryClaim(context.Background(), NumSquares, "AB")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestStore_TryClaimConcurrent(t *testing.T) {
	for name, newStore := range backends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := initialized(t, newStore)

			const callers = 16
			var (
				wg      sync.WaitGroup
				mu      sync.Mutex
				winners []string
			)
			for i := 0; i < callers; i++ {
				wg.Add(1)
				go func(initials string) {
					defer wg.Done()
					ok, err := s.TryClaim(ctx, 3, initials)
					assert.NoError(t, err)
					if ok {
						mu.Lock()
						winners = append(winners, initials)
						mu.Unlock()
					}
				}(fmt.Sprintf("P%d", i))
			}
			wg.Wait()

			require.Len(t, winners, 1)
			squares, err := s.ListSquares(ctx)
			require.NoError(t, err)
			assert.Equal(t, winners[0], squares[3].Initials)
		})
	}
}

func TestStore_CountClaimed(t *testing.T) {
	for name, newStore := range backends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := initialized(t, newStore)
			for id := 0; id < 57; id++ {
				_, err := s.TryClaim(ctx, id, "X")
				require.NoError(t, err)
			}
			n, err := s.CountClaimed(ctx)
			require.NoError(t, err)
			assert.Equal(t, 57, n)
		})
	}
}

func TestStore_MetaBatch(t *testing.T) {
	for name, newStore := range backends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := initialized(t, newStore)

			_, ok, err := s.ReadMeta(ctx, "a")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, s.WriteMetaBatch(ctx, []MetaEntry{{"a", "1"}, {"b", "2"}}))
			require.NoError(t, s.WriteMetaBatch(ctx, []MetaEntry{{"a", "3"}}))

			v, ok, err := s.ReadMeta(ctx, "a")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "3", v)

			v, ok, err = s.ReadMeta(ctx, "b")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "2", v)
		})
	}
}

func TestStore_WriteMetaBatchIfAbsent(t *testing.T) {
	for name, newStore := range backends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := initialized(t, newStore)

			applied, err := s.WriteMetaBatchIfAbsent(ctx, MetaEntry{"flag", "1"}, []MetaEntry{{"x", "first"}})
			require.NoError(t, err)
			assert.True(t, applied)

			applied, err = s.WriteMetaBatchIfAbsent(ctx, MetaEntry{"flag", "1"}, []MetaEntry{{"x", "second"}})
			require.NoError(t, err)
			assert.False(t, applied)

			v, _, err := s.ReadMeta(ctx, "x")
			require.NoError(t, err)
			assert.Equal(t, "first", v, "losing batch must not write any entry")
		})
	}
}

func TestStore_WriteMetaBatchIfAbsentConcurrent(t *testing.T) {
	for name, newStore := range backends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := initialized(t, newStore)

			const callers = 12
			var (
				wg      sync.WaitGroup
				mu      sync.Mutex
				applied []string
			)
			for i := 0; i < callers; i++ {
				wg.Add(1)
				go func(val string) {
					defer wg.Done()
					ok, err := s.WriteMetaBatchIfAbsent(ctx, MetaEntry{"flag", "1"}, []MetaEntry{{"x", val}})
					assert.NoError(t, err)
					if ok {
						mu.Lock()
						applied = append(applied, val)
						mu.Unlock()
					}
				}(fmt.Sprintf("v%d", i))
			}
			wg.Wait()

			require.Len(t, applied, 1)
			v, _, err := s.ReadMeta(ctx, "x")
			require.NoError(t, err)
			assert.Equal(t, applied[0], v)
		})
	}
}

func TestSQLite_ClaimTimestampFromClock(t *testing.T) {
	ctx := context.Background()
	s := NewSQLite(openTestDB(t))
	fixed := time.Date(2026, 2, 8, 23, 30, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }
	require.NoError(t, s.EnsureSchema(ctx))
	require.NoError(t, s.EnsureSquares(ctx))

	ok, err := s.TryClaim(ctx, 0, "AB")
	require.NoError(t, err)
	require.True(t, ok)

	squares, err := s.ListSquares(ctx)
	require.NoError(t, err)
	assert.True(t, fixed.Equal(squares[0].ClaimedAt))
}

func TestSQLite_ReadsLegacyDatetime(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	s := NewSQLite(db)
	require.NoError(t, s.EnsureSchema(ctx))
	require.NoError(t, s.EnsureSquares(ctx))

	_, err := db.Exec(`UPDATE squares SET initials = 'OLD', claimed_at = '2025-02-09 18:04:05' WHERE id = 5`)
	require.NoError(t, err)

	squares, err := s.ListSquares(ctx)
	require.NoError(t, err)
	assert.Equal(t, "OLD", squares[5].Initials)
	assert.Equal(t, time.Date(2025, 2, 9, 18, 4, 5, 0, time.UTC), squares[5].ClaimedAt)
}

func TestSQLite_StorageFaultPropagates(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	s := NewSQLite(db)
	require.NoError(t, db.Close())

	_, err := s.CountClaimed(ctx)
	assert.Error(t, err)
	_, err = s.TryClaim(ctx, 1, "AB")
	assert.Error(t, err)
	_, _, err = s.ReadMeta(ctx, "axis_x")
	assert.Error(t, err)
}
