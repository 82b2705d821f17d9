package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/sciencemaster/portal/portal"
)

const paymentColumns = `p.id, p.student_id, p.amount, p.installment_number, p.date, p.note,
	p.created_at, p.updated_at`

func scanPayment(row rowScanner, extra ...any) (*portal.Payment, error) {
	var p portal.Payment
	dest := append([]any{&p.ID, &p.StudentID, &p.Amount, &p.InstallmentNumber, &p.Date, &p.Note,
		&p.CreatedAt, &p.UpdatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return &p, nil
}

func (t *txStore) InsertPayment(ctx context.Context, p *portal.Payment) error {
	now := time.Now().UTC()
	id, err := t.insert(ctx, `INSERT INTO student_payments
		(student_id, amount, installment_number, date, note, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.StudentID, p.Amount, p.InstallmentNumber, p.Date.UTC(), p.Note, now, now)
	if err != nil {
		return wrapErr("insert payment", err)
	}
	p.ID, p.CreatedAt, p.UpdatedAt = id, now, now
	return nil
}

func (t *txStore) GetPayment(ctx context.Context, id int64) (*portal.Payment, error) {
	p, err := scanPayment(t.queryRow(ctx,
		"SELECT "+paymentColumns+" FROM student_payments p WHERE p.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr("get payment", err)
	}
	return p, nil
}

// UpdatePayment writes amount, date and note. The installment number and
// owning student never change.
func (t *txStore) UpdatePayment(ctx context.Context, p *portal.Payment) error {
	now := time.Now().UTC()
	res, err := t.exec(ctx,
		"UPDATE student_payments SET amount = ?, date = ?, note = ?, updated_at = ? WHERE id = ?",
		p.Amount, p.Date.UTC(), p.Note, now, p.ID)
	if err != nil {
		return wrapErr("update payment", err)
	}
	if err := mustAffect(res, "payment", p.ID); err != nil {
		return err
	}
	p.UpdatedAt = now
	return nil
}

func (t *txStore) StudentPayments(ctx context.Context, studentID int64) ([]portal.Payment, error) {
	rows, err := t.query(ctx, "SELECT "+paymentColumns+
		" FROM student_payments p WHERE p.student_id = ? ORDER BY p.installment_number", studentID)
	if err != nil {
		return nil, wrapErr("list student payments", err)
	}
	defer rows.Close()

	out := []portal.Payment{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, wrapErr("scan payment", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (t *txStore) LastInstallment(ctx context.Context, studentID int64) (int, error) {
	var last int
	err := t.queryRow(ctx,
		"SELECT COALESCE(MAX(installment_number), 0) FROM student_payments WHERE student_id = ?",
		studentID).Scan(&last)
	if err != nil {
		return 0, wrapErr("last installment", err)
	}
	return last, nil
}

func (t *txStore) ListPayments(ctx context.Context, search string) ([]portal.PaymentListing, error) {
	query := "SELECT " + paymentColumns + `, s.id, s.name, s.phone_number
		FROM student_payments p
		JOIN students s ON s.id = p.student_id`
	var args []any
	if search != "" {
		clause, matchArgs := t.d.match(search, "s.name", "s.phone_number")
		query += " WHERE " + clause
		args = matchArgs
	}
	query += " ORDER BY p.date DESC, p.id DESC"

	rows, err := t.query(ctx, query, args...)
	if err != nil {
		return nil, wrapErr("list payments", err)
	}
	defer rows.Close()

	out := []portal.PaymentListing{}
	for rows.Next() {
		var who portal.StudentIdentity
		p, err := scanPayment(rows, &who.ID, &who.Name, &who.PhoneNumber)
		if err != nil {
			return nil, wrapErr("scan payment", err)
		}
		out = append(out, portal.PaymentListing{Payment: *p, Student: who})
	}
	return out, rows.Err()
}
