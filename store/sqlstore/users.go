package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/sciencemaster/portal/portal"
)

// =============================================================================
// USERS
// =============================================================================

const userColumns = "id, full_name, mobile, email, password_hash, role, branch_id, created_at, updated_at"

func scanUser(row rowScanner) (*portal.User, error) {
	var u portal.User
	var role string
	err := row.Scan(&u.ID, &u.FullName, &u.Mobile, &u.Email, &u.PasswordHash, &role, &u.BranchID,
		&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	u.Role = portal.Role(role)
	return &u, nil
}

func (t *txStore) getUser(ctx context.Context, op, query string, arg any) (*portal.User, error) {
	u, err := scanUser(t.queryRow(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr(op, err)
	}
	return u, nil
}

func (t *txStore) CreateUser(ctx context.Context, u *portal.User) error {
	now := time.Now().UTC()
	id, err := t.insert(ctx, `INSERT INTO users
		(full_name, mobile, email, password_hash, role, branch_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		u.FullName, u.Mobile, u.Email, u.PasswordHash, string(u.Role), u.BranchID, now, now)
	if err != nil {
		return wrapErr("insert user", err)
	}
	u.ID, u.CreatedAt, u.UpdatedAt = id, now, now
	return nil
}

func (t *txStore) GetUser(ctx context.Context, id int64) (*portal.User, error) {
	return t.getUser(ctx, "get user", "SELECT "+userColumns+" FROM users WHERE id = ?", id)
}

func (t *txStore) LockUser(ctx context.Context, id int64) (*portal.User, error) {
	return t.getUser(ctx, "lock user", t.d.lock("SELECT "+userColumns+" FROM users WHERE id = ?"), id)
}

func (t *txStore) GetUserByMobile(ctx context.Context, mobile string) (*portal.User, error) {
	return t.getUser(ctx, "get user by mobile", "SELECT "+userColumns+" FROM users WHERE mobile = ?", mobile)
}

func (t *txStore) UpdateUser(ctx context.Context, u *portal.User) error {
	now := time.Now().UTC()
	res, err := t.exec(ctx, `UPDATE users SET
		full_name = ?, mobile = ?, email = ?, password_hash = ?, role = ?, branch_id = ?, updated_at = ?
		WHERE id = ?`,
		u.FullName, u.Mobile, u.Email, u.PasswordHash, string(u.Role), u.BranchID, now, u.ID)
	if err != nil {
		return wrapErr("update user", err)
	}
	if err := mustAffect(res, "user", u.ID); err != nil {
		return err
	}
	u.UpdatedAt = now
	return nil
}

func (t *txStore) DeleteUser(ctx context.Context, id int64) error {
	res, err := t.exec(ctx, "DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return wrapErr("delete user", err)
	}
	return mustAffect(res, "user", id)
}

func (t *txStore) ListUsers(ctx context.Context, search string) ([]portal.User, error) {
	query := "SELECT " + userColumns + " FROM users"
	var args []any
	if search != "" {
		clause, matchArgs := t.d.match(search, "full_name", "mobile")
		query += " WHERE " + clause
		args = matchArgs
	}
	query += " ORDER BY id"

	rows, err := t.query(ctx, query, args...)
	if err != nil {
		return nil, wrapErr("list users", err)
	}
	defer rows.Close()

	out := []portal.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, wrapErr("scan user", err)
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

func (t *txStore) CountUsersByRole(ctx context.Context, role portal.Role) (int, error) {
	var n int
	if err := t.queryRow(ctx, "SELECT COUNT(*) FROM users WHERE role = ?", string(role)).Scan(&n); err != nil {
		return 0, wrapErr("count users", err)
	}
	return n, nil
}
