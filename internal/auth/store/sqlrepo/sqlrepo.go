// Package sqlrepo implements the store repositories on database/sql. The
// sqlite and postgres drivers share it and differ only in their Dialect.
package sqlrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/merigaumata/authplatform/internal/auth/store"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Dialect captures the per-database differences.
type Dialect struct {
	Name string

	// DollarPlaceholders rewrites ? placeholders to $1, $2 ...
	DollarPlaceholders bool

	IsUniqueViolation func(error) bool
	Migrate           func(*sql.DB) error
}

// Store implements store.Store.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

var _ store.Store = (*Store)(nil)

func New(db *sql.DB, d Dialect) *Store {
	return &Store{db: db, dialect: d}
}

// DB exposes the pool for driver specific setup.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Users() store.Users                 { return &usersRepo{q: s.querier(s.db)} }
func (s *Store) RefreshTokens() store.RefreshTokens { return &refreshTokensRepo{q: s.querier(s.db)} }
func (s *Store) SigningKeys() store.SigningKeys     { return &signingKeysRepo{q: s.querier(s.db)} }

func (s *Store) ApplyMigrations() error {
	if s.dialect.Migrate == nil {
		return nil
	}
	return s.dialect.Migrate(s.db)
}

func (s *Store) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback() // no-op after commit
	}()

	if err := fn(&txStore{q: s.querier(tx)}); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) Close() error                   { return s.db.Close() }
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *Store) querier(db DBTX) *querier {
	return &querier{db: db, dialect: s.dialect}
}

type txStore struct {
	q *querier
}

func (t *txStore) Users() store.Users                 { return &usersRepo{q: t.q} }
func (t *txStore) RefreshTokens() store.RefreshTokens { return &refreshTokensRepo{q: t.q} }
func (t *txStore) SigningKeys() store.SigningKeys     { return &signingKeysRepo{q: t.q} }

// querier applies the dialect to every statement.
type querier struct {
	db      DBTX
	dialect Dialect
}

func (q *querier) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	res, err := q.db.ExecContext(ctx, q.rebind(query), args...)
	return res, q.mapError(err)
}

func (q *querier) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	rows, err := q.db.QueryContext(ctx, q.rebind(query), args...)
	return rows, q.mapError(err)
}

func (q *querier) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return q.db.QueryRowContext(ctx, q.rebind(query), args...)
}

func (q *querier) rebind(query string) string {
	if !q.dialect.DollarPlaceholders {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (q *querier) mapError(err error) error {
	if err == nil {
		return nil
	}
	if q.dialect.IsUniqueViolation != nil && q.dialect.IsUniqueViolation(err) {
		return fmt.Errorf("%w: %w", store.ErrAlreadyExists, err)
	}
	return err
}

func mapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

// Timestamps are stored as unix milliseconds so both dialects share the SQL.

func toMillis(t time.Time) int64 { return t.UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

func toNullMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}

func fromNullMillis(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := fromMillis(n.Int64)
	return &t
}

func joinList(s []string) string { return strings.Join(s, " ") }

func splitList(s string) []string {
	fields := strings.Fields(s)
	if fields == nil {
		return []string{}
	}
	return fields
}
