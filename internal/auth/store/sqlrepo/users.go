package sqlrepo

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/merigaumata/authplatform/internal/auth/domain"
	"github.com/merigaumata/authplatform/internal/auth/store"
)

type usersRepo struct {
	q *querier
}

const userColumns = `id, username, email, password_hash, roles, scopes, created_at, updated_at, last_login_at`

func scanUser(row interface{ Scan(...any) error }) (domain.User, error) {
	var (
		u                    domain.User
		roles, scopes        string
		createdAt, updatedAt int64
		lastLogin            sql.NullInt64
	)
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &roles, &scopes, &createdAt, &updatedAt, &lastLogin); err != nil {
		return domain.User{}, mapNotFound(err)
	}
	u.Roles = splitList(roles)
	u.Scopes = splitList(scopes)
	u.CreatedAt = fromMillis(createdAt)
	u.UpdatedAt = fromMillis(updatedAt)
	u.LastLoginAt = fromNullMillis(lastLogin)
	return u, nil
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	return scanUser(r.q.queryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
}

func (r *usersRepo) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	return scanUser(r.q.queryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE username_lower = ?`, strings.ToLower(username)))
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	_, err := r.q.exec(ctx, `
		INSERT INTO users (id, username, username_lower, email, password_hash, roles, scopes, created_at, updated_at, last_login_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Username, strings.ToLower(u.Username), u.Email, u.PasswordHash,
		joinList(u.Roles), joinList(u.Scopes),
		toMillis(u.CreatedAt), toMillis(u.UpdatedAt), toNullMillis(u.LastLoginAt),
	)
	return err
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, userID, hash string, at time.Time) error {
	return r.updateOne(ctx, `UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`, hash, toMillis(at), userID)
}

func (r *usersRepo) UpdateLastLogin(ctx context.Context, userID string, at time.Time) error {
	return r.updateOne(ctx, `UPDATE users SET last_login_at = ? WHERE id = ?`, toMillis(at), userID)
}

func (r *usersRepo) DeleteUser(ctx context.Context, userID string) error {
	return r.updateOne(ctx, `DELETE FROM users WHERE id = ?`, userID)
}

func (r *usersRepo) IsEmpty(ctx context.Context) (bool, error) {
	var n int64
	if err := r.q.queryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return false, err
	}
	return n == 0, nil
}

func (r *usersRepo) updateOne(ctx context.Context, query string, args ...any) error {
	res, err := r.q.exec(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
