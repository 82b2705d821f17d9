/*
payments.go - Payment Transaction Coordinator

PURPOSE:
  Posts and edits installments while keeping the ledger invariants:

  1. FinalDue >= 0 after every accepted payment.
  2. Installment numbers per student are 1, 2, 3, ... with no gaps or
     duplicates, even when payments for one student arrive concurrently.

HOW ADDPAYMENT STAYS CORRECT UNDER CONCURRENCY:
  Everything happens in one transaction that starts by locking the student
  row. A second AddPayment for the same student blocks on that lock until
  the first commits or rolls back, and then reads the updated ledger:

    T1: lock student 7 ............ read last=3, insert #4, commit
    T2: lock student 7 (waits) ........................ read last=4, insert #5

  The due is recomputed after the lock as well, so the overdraft check
  always sees every committed payment.

ROLLBACK:
  Validation happens before the transaction opens. Any failure inside it
  (missing student, overdraft, storage error) rolls back: the ledger row
  count is unchanged.

EDITS:
  UpdatePayment locks the owning student too and re-checks the overdraft
  rule when the amount goes up. Lowering an amount or changing only the
  date or note never fails the rule.

SEE ALSO:
  - billing/installment.go: NextInstallment, CheckPayment, CheckEdit
  - billing/due.go: Calculate
*/
package portal

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/sciencemaster/portal/billing"
)

// =============================================================================
// POSTING
// =============================================================================

// AddPayment records the next installment for a student.
func (s *Service) AddPayment(ctx context.Context, actor Actor, studentID int64, in PaymentInput) (*PaymentResult, error) {
	if err := billing.ValidateNewAmount(in.Amount); err != nil {
		return nil, fromBilling("amount", err)
	}

	var result *PaymentResult
	err := s.store.WithTx(ctx, func(tx Tx) error {
		student, err := tx.LockStudent(ctx, studentID)
		if err != nil {
			return err
		}
		if student == nil {
			return &NotFoundError{Entity: "student", ID: studentID}
		}
		if err := authorizeStudent(actor, student); err != nil {
			return err
		}

		current, err := computeDue(ctx, tx, student)
		if err != nil {
			return err
		}
		if _, err := billing.CheckPayment(current, in.Amount); err != nil {
			return fromBilling("amount", err)
		}

		last, err := tx.LastInstallment(ctx, studentID)
		if err != nil {
			return err
		}

		payment := &Payment{
			StudentID:         studentID,
			Amount:            in.Amount,
			InstallmentNumber: billing.NextInstallment(last),
			Date:              s.now(),
			Note:              trimmedPtr(in.Note),
		}
		if in.Date != nil {
			payment.Date = in.Date.UTC()
		}
		if err := tx.InsertPayment(ctx, payment); err != nil {
			return err
		}

		after, err := computeDue(ctx, tx, student)
		if err != nil {
			return err
		}
		result = &PaymentResult{Payment: *payment, Due: after}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// UpdatePayment edits the amount, date or note of an existing installment.
// The installment number never changes.
func (s *Service) UpdatePayment(ctx context.Context, actor Actor, paymentID int64, patch PaymentPatch) (*PaymentResult, error) {
	if !actor.IsSuperAdmin() {
		return nil, &ForbiddenError{Reason: "only the super admin can edit payments"}
	}
	if patch.Amount != nil {
		if err := billing.ValidateEditedAmount(*patch.Amount); err != nil {
			return nil, fromBilling("amount", err)
		}
	}

	var result *PaymentResult
	err := s.store.WithTx(ctx, func(tx Tx) error {
		payment, err := tx.GetPayment(ctx, paymentID)
		if err != nil {
			return err
		}
		if payment == nil {
			return &NotFoundError{Entity: "payment", ID: paymentID}
		}

		student, err := tx.LockStudent(ctx, payment.StudentID)
		if err != nil {
			return err
		}
		if student == nil {
			return &NotFoundError{Entity: "student", ID: payment.StudentID}
		}
		// Re-read under the student lock.
		if payment, err = tx.GetPayment(ctx, paymentID); err != nil {
			return err
		}
		if payment == nil {
			return &NotFoundError{Entity: "payment", ID: paymentID}
		}

		if patch.Amount != nil && !patch.Amount.Equal(payment.Amount) {
			current, err := computeDue(ctx, tx, student)
			if err != nil {
				return err
			}
			if _, err := billing.CheckEdit(current, payment.Amount, *patch.Amount); err != nil {
				return fromBilling("amount", err)
			}
			payment.Amount = *patch.Amount
		}
		if patch.Date != nil {
			payment.Date = patch.Date.UTC()
		}
		if patch.Note.Set {
			payment.Note = trimmedPtr(patch.Note.Value)
		}

		if err := tx.UpdatePayment(ctx, payment); err != nil {
			return err
		}

		after, err := computeDue(ctx, tx, student)
		if err != nil {
			return err
		}
		result = &PaymentResult{Payment: *payment, Due: after}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// =============================================================================
// READS
// =============================================================================

// ListPayments returns every payment with its student's identity. Only the
// super admin sees the cross-branch ledger.
func (s *Service) ListPayments(ctx context.Context, actor Actor, search string) ([]PaymentListing, error) {
	if !actor.IsSuperAdmin() {
		return nil, &ForbiddenError{Reason: "only the super admin can list all payments"}
	}
	var out []PaymentListing
	err := s.store.View(ctx, func(tx Tx) error {
		var err error
		out, err = tx.ListPayments(ctx, trimmed(search))
		return err
	})
	return out, err
}

// StudentPayments returns one student's ledger in installment order.
func (s *Service) StudentPayments(ctx context.Context, actor Actor, studentID int64) ([]Payment, error) {
	var out []Payment
	err := s.store.View(ctx, func(tx Tx) error {
		student, err := tx.GetStudent(ctx, studentID)
		if err != nil {
			return err
		}
		if student == nil {
			return &NotFoundError{Entity: "student", ID: studentID}
		}
		if err := authorizeStudent(actor, student); err != nil {
			return err
		}
		out, err = tx.StudentPayments(ctx, studentID)
		return err
	})
	return out, err
}

// Due recomputes a student's breakdown from the current enrollment and ledger.
func (s *Service) Due(ctx context.Context, actor Actor, studentID int64) (billing.Due, error) {
	var due billing.Due
	err := s.store.View(ctx, func(tx Tx) error {
		student, err := tx.GetStudent(ctx, studentID)
		if err != nil {
			return err
		}
		if student == nil {
			return &NotFoundError{Entity: "student", ID: studentID}
		}
		if err := authorizeStudent(actor, student); err != nil {
			return err
		}
		due, err = computeDue(ctx, tx, student)
		return err
	})
	return due, err
}

// computeDue runs the Due Calculator against the transaction's snapshot.
func computeDue(ctx context.Context, tx Tx, student *Student) (billing.Due, error) {
	costs, err := tx.EnrolledCosts(ctx, student.ID)
	if err != nil {
		return billing.Due{}, err
	}
	payments, err := tx.StudentPayments(ctx, student.ID)
	if err != nil {
		return billing.Due{}, err
	}
	return dueOf(student, costs, payments), nil
}

// dueOf computes the breakdown from rows the caller has already loaded.
func dueOf(student *Student, costs []decimal.NullDecimal, payments []Payment) billing.Due {
	amounts := make([]decimal.Decimal, len(payments))
	for i, p := range payments {
		amounts[i] = p.Amount
	}
	return billing.Calculate(costs, decimal.NewNullDecimal(student.Discount), amounts)
}
