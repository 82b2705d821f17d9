package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/sciencemaster/portal/portal"
)

// =============================================================================
// CATEGORIES
// =============================================================================

const categoryColumns = "id, name, created_at, updated_at"

func scanCategory(row rowScanner) (*portal.Category, error) {
	var c portal.Category
	if err := row.Scan(&c.ID, &c.Name, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (t *txStore) CreateCategory(ctx context.Context, c *portal.Category) error {
	now := time.Now().UTC()
	id, err := t.insert(ctx,
		"INSERT INTO categories (name, created_at, updated_at) VALUES (?, ?, ?)", c.Name, now, now)
	if err != nil {
		return wrapErr("insert category", err)
	}
	c.ID, c.CreatedAt, c.UpdatedAt = id, now, now
	return nil
}

func (t *txStore) GetCategory(ctx context.Context, id int64) (*portal.Category, error) {
	c, err := scanCategory(t.queryRow(ctx, "SELECT "+categoryColumns+" FROM categories WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr("get category", err)
	}
	return c, nil
}

func (t *txStore) UpdateCategory(ctx context.Context, c *portal.Category) error {
	now := time.Now().UTC()
	res, err := t.exec(ctx, "UPDATE categories SET name = ?, updated_at = ? WHERE id = ?", c.Name, now, c.ID)
	if err != nil {
		return wrapErr("update category", err)
	}
	if err := mustAffect(res, "category", c.ID); err != nil {
		return err
	}
	c.UpdatedAt = now
	return nil
}

func (t *txStore) DeleteCategory(ctx context.Context, id int64) error {
	res, err := t.exec(ctx, "DELETE FROM categories WHERE id = ?", id)
	if err != nil {
		return wrapErr("delete category", err)
	}
	return mustAffect(res, "category", id)
}

func (t *txStore) ListCategories(ctx context.Context) ([]portal.Category, error) {
	rows, err := t.query(ctx, "SELECT "+categoryColumns+" FROM categories ORDER BY id")
	if err != nil {
		return nil, wrapErr("list categories", err)
	}
	defer rows.Close()

	out := []portal.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, wrapErr("scan category", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}
