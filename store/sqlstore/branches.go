package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/sciencemaster/portal/portal"
)

// =============================================================================
// BRANCHES
// =============================================================================

const branchColumns = "id, name, location, branch_admin_id, created_at, updated_at"

// branchWithAdmin reads a branch and the public identity of its admin.
const branchWithAdmin = `SELECT br.id, br.name, br.location, br.branch_admin_id,
	br.created_at, br.updated_at, u.full_name, u.email, u.mobile
	FROM branches br
	LEFT JOIN users u ON u.id = br.branch_admin_id`

func scanBranch(row rowScanner) (*portal.Branch, error) {
	var b portal.Branch
	if err := row.Scan(&b.ID, &b.Name, &b.Location, &b.BranchAdminID, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

func scanBranchWithAdmin(row rowScanner) (*portal.Branch, error) {
	var b portal.Branch
	var fullName, email, mobile sql.NullString
	err := row.Scan(&b.ID, &b.Name, &b.Location, &b.BranchAdminID, &b.CreatedAt, &b.UpdatedAt,
		&fullName, &email, &mobile)
	if err != nil {
		return nil, err
	}
	if b.BranchAdminID != nil && fullName.Valid {
		b.Admin = &portal.UserSummary{
			ID:       *b.BranchAdminID,
			FullName: fullName.String,
			Mobile:   mobile.String,
		}
		if email.Valid {
			b.Admin.Email = &email.String
		}
	}
	return &b, nil
}

func (t *txStore) queryBranches(ctx context.Context, query string, args ...any) ([]portal.Branch, error) {
	rows, err := t.query(ctx, query, args...)
	if err != nil {
		return nil, wrapErr("list branches", err)
	}
	defer rows.Close()

	out := []portal.Branch{}
	for rows.Next() {
		b, err := scanBranch(rows)
		if err != nil {
			return nil, wrapErr("scan branch", err)
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func (t *txStore) CreateBranch(ctx context.Context, b *portal.Branch) error {
	now := time.Now().UTC()
	id, err := t.insert(ctx, `INSERT INTO branches
		(name, location, branch_admin_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		b.Name, b.Location, b.BranchAdminID, now, now)
	if err != nil {
		return wrapErr("insert branch", err)
	}
	b.ID, b.CreatedAt, b.UpdatedAt = id, now, now
	return nil
}

// GetBranch returns a branch with its admin's summary.
func (t *txStore) GetBranch(ctx context.Context, id int64) (*portal.Branch, error) {
	b, err := scanBranchWithAdmin(t.queryRow(ctx, branchWithAdmin+" WHERE br.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr("get branch", err)
	}
	return b, nil
}

func (t *txStore) LockBranch(ctx context.Context, id int64) (*portal.Branch, error) {
	b, err := scanBranch(t.queryRow(ctx, t.d.lock("SELECT "+branchColumns+" FROM branches WHERE id = ?"), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr("lock branch", err)
	}
	return b, nil
}

func (t *txStore) UpdateBranch(ctx context.Context, b *portal.Branch) error {
	now := time.Now().UTC()
	res, err := t.exec(ctx,
		"UPDATE branches SET name = ?, location = ?, branch_admin_id = ?, updated_at = ? WHERE id = ?",
		b.Name, b.Location, b.BranchAdminID, now, b.ID)
	if err != nil {
		return wrapErr("update branch", err)
	}
	if err := mustAffect(res, "branch", b.ID); err != nil {
		return err
	}
	b.UpdatedAt = now
	return nil
}

func (t *txStore) DeleteBranch(ctx context.Context, id int64) error {
	res, err := t.exec(ctx, "DELETE FROM branches WHERE id = ?", id)
	if err != nil {
		return wrapErr("delete branch", err)
	}
	return mustAffect(res, "branch", id)
}

func (t *txStore) ListBranches(ctx context.Context) ([]portal.Branch, error) {
	rows, err := t.query(ctx, branchWithAdmin+" ORDER BY br.id")
	if err != nil {
		return nil, wrapErr("list branches", err)
	}
	defer rows.Close()

	out := []portal.Branch{}
	for rows.Next() {
		b, err := scanBranchWithAdmin(rows)
		if err != nil {
			return nil, wrapErr("scan branch", err)
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func (t *txStore) FindBranches(ctx context.Context, ids []int64) ([]portal.Branch, error) {
	if len(ids) == 0 {
		return []portal.Branch{}, nil
	}
	return t.queryBranches(ctx,
		"SELECT "+branchColumns+" FROM branches WHERE id IN ("+placeholders(len(ids))+") ORDER BY id",
		int64Args(ids)...)
}

func (t *txStore) BranchesByAdmin(ctx context.Context, userID int64) ([]portal.Branch, error) {
	return t.queryBranches(ctx,
		"SELECT "+branchColumns+" FROM branches WHERE branch_admin_id = ? ORDER BY id", userID)
}
