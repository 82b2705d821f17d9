package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/sciencemaster/portal/portal"
)

// =============================================================================
// BATCHES
// =============================================================================

// batchSelect reads a batch with the name of its category.
const batchSelect = `SELECT b.id, b.batch_code, b.name, b.cost, b.category_id, c.name,
	b.created_at, b.updated_at
	FROM batches b
	JOIN categories c ON c.id = b.category_id`

func scanBatch(row rowScanner) (*portal.Batch, error) {
	var b portal.Batch
	var categoryName string
	err := row.Scan(&b.ID, &b.BatchCode, &b.Name, &b.Cost, &b.CategoryID, &categoryName,
		&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	b.Category = &portal.Category{ID: b.CategoryID, Name: categoryName}
	return &b, nil
}

func (t *txStore) queryBatches(ctx context.Context, query string, args ...any) ([]portal.Batch, error) {
	rows, err := t.query(ctx, query, args...)
	if err != nil {
		return nil, wrapErr("list batches", err)
	}
	defer rows.Close()

	out := []portal.Batch{}
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, wrapErr("scan batch", err)
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func (t *txStore) CreateBatch(ctx context.Context, b *portal.Batch) error {
	now := time.Now().UTC()
	id, err := t.insert(ctx, `INSERT INTO batches
		(batch_code, name, cost, category_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		b.BatchCode, b.Name, b.Cost, b.CategoryID, now, now)
	if err != nil {
		return wrapErr("insert batch", err)
	}
	b.ID, b.CreatedAt, b.UpdatedAt = id, now, now
	return nil
}

// GetBatch returns a batch with its category and branches.
func (t *txStore) GetBatch(ctx context.Context, id int64) (*portal.Batch, error) {
	b, err := scanBatch(t.queryRow(ctx, batchSelect+" WHERE b.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr("get batch", err)
	}
	if b.Branches, err = t.BatchBranches(ctx, b.ID); err != nil {
		return nil, err
	}
	return b, nil
}

func (t *txStore) LockBatch(ctx context.Context, id int64) (*portal.Batch, error) {
	var b portal.Batch
	err := t.queryRow(ctx, t.d.lock(`SELECT id, batch_code, name, cost, category_id, created_at, updated_at
		FROM batches WHERE id = ?`), id).
		Scan(&b.ID, &b.BatchCode, &b.Name, &b.Cost, &b.CategoryID, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr("lock batch", err)
	}
	return &b, nil
}

func (t *txStore) UpdateBatch(ctx context.Context, b *portal.Batch) error {
	now := time.Now().UTC()
	res, err := t.exec(ctx, `UPDATE batches SET
		batch_code = ?, name = ?, cost = ?, category_id = ?, updated_at = ?
		WHERE id = ?`,
		b.BatchCode, b.Name, b.Cost, b.CategoryID, now, b.ID)
	if err != nil {
		return wrapErr("update batch", err)
	}
	if err := mustAffect(res, "batch", b.ID); err != nil {
		return err
	}
	b.UpdatedAt = now
	return nil
}

func (t *txStore) DeleteBatch(ctx context.Context, id int64) error {
	res, err := t.exec(ctx, "DELETE FROM batches WHERE id = ?", id)
	if err != nil {
		return wrapErr("delete batch", err)
	}
	return mustAffect(res, "batch", id)
}

// ListBatches returns batches matching the filter, each with its branches.
func (t *txStore) ListBatches(ctx context.Context, filter portal.BatchFilter) ([]portal.Batch, error) {
	var where []string
	var args []any
	if filter.CategoryID != nil {
		where = append(where, "b.category_id = ?")
		args = append(args, *filter.CategoryID)
	}
	if filter.BranchID != nil {
		where = append(where, "b.id IN (SELECT batch_id FROM batch_branches WHERE branch_id = ?)")
		args = append(args, *filter.BranchID)
	}
	if filter.Search != "" {
		clause, matchArgs := t.d.match(filter.Search, "b.batch_code", "b.name")
		where = append(where, clause)
		args = append(args, matchArgs...)
	}

	query := batchSelect
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY b.id"

	batches, err := t.queryBatches(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	for i := range batches {
		if batches[i].Branches, err = t.BatchBranches(ctx, batches[i].ID); err != nil {
			return nil, err
		}
	}
	return batches, nil
}

func (t *txStore) FindBatches(ctx context.Context, ids []int64) ([]portal.Batch, error) {
	if len(ids) == 0 {
		return []portal.Batch{}, nil
	}
	return t.queryBatches(ctx, batchSelect+" WHERE b.id IN ("+placeholders(len(ids))+") ORDER BY b.id",
		int64Args(ids)...)
}

// SetBatchBranches replaces the branch set of a batch.
func (t *txStore) SetBatchBranches(ctx context.Context, batchID int64, branchIDs []int64) error {
	if _, err := t.exec(ctx, "DELETE FROM batch_branches WHERE batch_id = ?", batchID); err != nil {
		return wrapErr("clear batch branches", err)
	}
	for _, id := range branchIDs {
		_, err := t.exec(ctx, "INSERT INTO batch_branches (batch_id, branch_id) VALUES (?, ?)", batchID, id)
		if err != nil {
			return wrapErr("insert batch branch", err)
		}
	}
	return nil
}

func (t *txStore) BatchBranches(ctx context.Context, batchID int64) ([]portal.Branch, error) {
	return t.queryBranches(ctx, `SELECT br.id, br.name, br.location, br.branch_admin_id,
		br.created_at, br.updated_at
		FROM branches br
		JOIN batch_branches bb ON bb.branch_id = br.id
		WHERE bb.batch_id = ? ORDER BY br.id`, batchID)
}
