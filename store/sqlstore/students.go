package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sciencemaster/portal/portal"
)

// =============================================================================
// STUDENTS
// =============================================================================

const studentColumns = `id, name, phone_number, institution, email, photo, gpa,
	discount, coaching_branch_id, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStudent(row rowScanner) (*portal.Student, error) {
	var s portal.Student
	err := row.Scan(&s.ID, &s.Name, &s.PhoneNumber, &s.Institution, &s.Email, &s.Photo, &s.GPA,
		&s.Discount, &s.CoachingBranchID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (t *txStore) CreateStudent(ctx context.Context, s *portal.Student) error {
	now := time.Now().UTC()
	id, err := t.insert(ctx, `INSERT INTO students
		(name, phone_number, institution, email, photo, gpa, discount, coaching_branch_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.Name, s.PhoneNumber, s.Institution, s.Email, s.Photo, s.GPA,
		s.Discount, s.CoachingBranchID, now, now)
	if err != nil {
		return wrapErr("insert student", err)
	}
	s.ID, s.CreatedAt, s.UpdatedAt = id, now, now
	return nil
}

func (t *txStore) GetStudent(ctx context.Context, id int64) (*portal.Student, error) {
	return t.getStudent(ctx, "SELECT "+studentColumns+" FROM students WHERE id = ?", id)
}

func (t *txStore) LockStudent(ctx context.Context, id int64) (*portal.Student, error) {
	return t.getStudent(ctx, t.d.lock("SELECT "+studentColumns+" FROM students WHERE id = ?"), id)
}

func (t *txStore) getStudent(ctx context.Context, query string, id int64) (*portal.Student, error) {
	s, err := scanStudent(t.queryRow(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr("get student", err)
	}
	return s, nil
}

func (t *txStore) UpdateStudent(ctx context.Context, s *portal.Student) error {
	now := time.Now().UTC()
	res, err := t.exec(ctx, `UPDATE students SET
		name = ?, phone_number = ?, institution = ?, email = ?, photo = ?, gpa = ?,
		discount = ?, coaching_branch_id = ?, updated_at = ?
		WHERE id = ?`,
		s.Name, s.PhoneNumber, s.Institution, s.Email, s.Photo, s.GPA,
		s.Discount, s.CoachingBranchID, now, s.ID)
	if err != nil {
		return wrapErr("update student", err)
	}
	if err := mustAffect(res, "student", s.ID); err != nil {
		return err
	}
	s.UpdatedAt = now
	return nil
}

func (t *txStore) ListStudents(ctx context.Context, filter portal.StudentFilter) ([]portal.Student, error) {
	var where []string
	var args []any
	if filter.BranchID != nil {
		where = append(where, "coaching_branch_id = ?")
		args = append(args, *filter.BranchID)
	}
	if filter.Search != "" {
		clause, matchArgs := t.d.match(filter.Search, "name", "phone_number", "institution")
		where = append(where, clause)
		args = append(args, matchArgs...)
	}

	query := "SELECT " + studentColumns + " FROM students"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id"

	rows, err := t.query(ctx, query, args...)
	if err != nil {
		return nil, wrapErr("list students", err)
	}
	defer rows.Close()

	out := []portal.Student{}
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, wrapErr("scan student", err)
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// =============================================================================
// ENROLLMENT
// =============================================================================

func (t *txStore) EnrolledBatchIDs(ctx context.Context, studentID int64) ([]int64, error) {
	rows, err := t.query(ctx,
		"SELECT batch_id FROM student_batches WHERE student_id = ? ORDER BY batch_id", studentID)
	if err != nil {
		return nil, wrapErr("list enrollment", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, wrapErr("scan enrollment", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (t *txStore) EnrolledBatches(ctx context.Context, studentID int64) ([]portal.Batch, error) {
	return t.queryBatches(ctx, batchSelect+`
		JOIN student_batches sb ON sb.batch_id = b.id
		WHERE sb.student_id = ? ORDER BY b.id`, studentID)
}

func (t *txStore) EnrolledCosts(ctx context.Context, studentID int64) ([]decimal.NullDecimal, error) {
	rows, err := t.query(ctx, `SELECT b.cost FROM batches b
		JOIN student_batches sb ON sb.batch_id = b.id
		WHERE sb.student_id = ?`, studentID)
	if err != nil {
		return nil, wrapErr("list enrolled costs", err)
	}
	defer rows.Close()

	var costs []decimal.NullDecimal
	for rows.Next() {
		var c decimal.NullDecimal
		if err := rows.Scan(&c); err != nil {
			return nil, wrapErr("scan cost", err)
		}
		costs = append(costs, c)
	}
	return costs, rows.Err()
}

func (t *txStore) Enroll(ctx context.Context, studentID int64, batchIDs []int64) error {
	now := time.Now().UTC()
	for _, id := range batchIDs {
		_, err := t.exec(ctx,
			"INSERT INTO student_batches (student_id, batch_id, created_at) VALUES (?, ?, ?)",
			studentID, id, now)
		if err != nil {
			return wrapErr("enroll student", err)
		}
	}
	return nil
}

func (t *txStore) Unenroll(ctx context.Context, studentID int64, batchIDs []int64) error {
	if len(batchIDs) == 0 {
		return nil
	}
	args := append([]any{studentID}, int64Args(batchIDs)...)
	_, err := t.exec(ctx,
		"DELETE FROM student_batches WHERE student_id = ? AND batch_id IN ("+placeholders(len(batchIDs))+")",
		args...)
	return wrapErr("unenroll student", err)
}
