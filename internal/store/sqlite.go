// internal/store/sqlite.go
//
// SQLite implementation of Store (github.com/mattn/go-sqlite3).
//
// Atomicity:
//   - TryClaim is a single conditional UPDATE keyed on "initials IS NULL";
//     the affected-row count decides the winner.
//   - Meta batches run in one transaction; WriteMetaBatchIfAbsent starts with
//     INSERT OR IGNORE on the guard key and rolls back if nothing was inserted.
//
// The *sql.DB handed to NewSQLite should be opened with a busy timeout and a
// single open connection (see openDB in package main).

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/robalobadob/squares/assets"
)

// SQLite is a Store backed by a SQLite database.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLite wraps an open database handle.
func NewSQLite(db *sql.DB) *SQLite {
	return &SQLite{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// insertSquaresSQL is "INSERT OR IGNORE INTO squares (id) VALUES (0),(1),...,(99)".
var insertSquaresSQL = func() string {
	vals := make([]string, NumSquares)
	for i := range vals {
		vals[i] = "(" + strconv.Itoa(i) + ")"
	}
	return "INSERT OR IGNORE INTO squares (id) VALUES " + strings.Join(vals, ",")
}()

func (s *SQLite) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, assets.Schema()); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (s *SQLite) EnsureSquares(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, insertSquaresSQL); err != nil {
		return fmt.Errorf("ensure squares: %w", err)
	}
	return nil
}

func (s *SQLite) ReadMeta(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read meta %q: %w", key, err)
	}
	return v, true, nil
}

func (s *SQLite) WriteMetaBatch(ctx context.Context, entries []MetaEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin meta batch: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := upsertMeta(ctx, tx, entries); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit meta batch: %w", err)
	}
	return nil
}

func (s *SQLite) WriteMetaBatchIfAbsent(ctx context.Context, guard MetaEntry, entries []MetaEntry) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin meta batch: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO meta (key, value) VALUES (?, ?)`, guard.Key, guard.Value)
	if err != nil {
		return false, fmt.Errorf("insert guard %q: %w", guard.Key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert guard %q: %w", guard.Key, err)
	}
	if n == 0 {
		return false, nil
	}

	if err := upsertMeta(ctx, tx, entries); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit meta batch: %w", err)
	}
	return true, nil
}

func upsertMeta(ctx context.Context, tx *sql.Tx, entries []MetaEntry) error {
	for _, e := range entries {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)`, e.Key, e.Value); err != nil {
			return fmt.Errorf("write meta %q: %w", e.Key, err)
		}
	}
	return nil
}

func (s *SQLite) ListSquares(ctx context.Context) ([]Square, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, initials, claimed_at FROM squares ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list squares: %w", err)
	}
	defer rows.Close()

	out := make([]Square, 0, NumSquares)
	for rows.Next() {
		var (
			sq       Square
			initials sql.NullString
			claimed  sql.NullString
		)
		if err := rows.Scan(&sq.ID, &initials, &claimed); err != nil {
			return nil, fmt.Errorf("scan square: %w", err)
		}
		sq.Initials = initials.String
		if claimed.Valid {
			sq.ClaimedAt = parseTime(claimed.String)
		}
		out = append(out, sq)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list squares: %w", err)
	}
	return out, nil
}

func (s *SQLite) TryClaim(ctx context.Context, id int, initials string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE squares SET initials = ?, claimed_at = ? WHERE id = ? AND initials IS NULL`,
		initials, s.now().Format(time.RFC3339Nano), id)
	if err != nil {
		return false, fmt.Errorf("claim square %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim square %d: %w", id, err)
	}
	return n == 1, nil
}

func (s *SQLite) CountClaimed(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM squares WHERE initials IS NOT NULL`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count claimed: %w", err)
	}
	return n, nil
}

// parseTime accepts RFC3339 (with or without fraction) and SQLite's
// datetime('now') layout; unparseable values become the zero time.
func parseTime(s string) time.Time {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	t, _ := time.Parse("2006-01-02 15:04:05", s)
	return t
}
