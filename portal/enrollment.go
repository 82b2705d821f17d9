/*
enrollment.go - Enrollment Manager

PURPOSE:
  Replaces the set of batches a student is enrolled in. Enrollment feeds the
  InitialDue of the Due Calculator, so it must change atomically with the
  student write that requested it.

SEMANTICS:
  SetEnrollment(ctx, tx, student, [a, b, c])

  1. Duplicate ids are collapsed.
  2. Every id must resolve to an existing batch. If any does not, nothing
     changes and a NotFoundError reports how many were unresolved.
  3. The current set is diffed against the requested one: missing rows are
     inserted, extra rows deleted, common rows left alone.

  Calling it twice with the same ids leaves the same state as calling it
  once.

SEE ALSO:
  - students.go: CreateStudent / UpdateStudent call this in their transaction
*/
package portal

import (
	"context"
)

// SetEnrollment replaces the enrollment of a student inside tx.
func SetEnrollment(ctx context.Context, tx Tx, studentID int64, batchIDs []int64) error {
	wanted := uniqueIDs(batchIDs)

	if len(wanted) > 0 {
		found, err := tx.FindBatches(ctx, wanted)
		if err != nil {
			return err
		}
		if len(found) != len(wanted) {
			return &NotFoundError{Entity: "batch", Missing: len(wanted) - len(found)}
		}
	}

	current, err := tx.EnrolledBatchIDs(ctx, studentID)
	if err != nil {
		return err
	}

	add, remove := diffIDs(current, wanted)
	if len(remove) > 0 {
		if err := tx.Unenroll(ctx, studentID, remove); err != nil {
			return err
		}
	}
	if len(add) > 0 {
		if err := tx.Enroll(ctx, studentID, add); err != nil {
			return err
		}
	}
	return nil
}

// SetEnrollment replaces a student's enrollment in its own transaction.
func (s *Service) SetEnrollment(ctx context.Context, actor Actor, studentID int64, batchIDs []int64) ([]Batch, error) {
	var batches []Batch
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
		if err := SetEnrollment(ctx, tx, studentID, batchIDs); err != nil {
			return err
		}
		batches, err = tx.EnrolledBatches(ctx, studentID)
		return err
	})
	return batches, err
}

// diffIDs returns the ids in wanted but not in current, and the ids in
// current but not in wanted.
func diffIDs(current, wanted []int64) (add, remove []int64) {
	have := make(map[int64]bool, len(current))
	for _, id := range current {
		have[id] = true
	}
	want := make(map[int64]bool, len(wanted))
	for _, id := range wanted {
		want[id] = true
		if !have[id] {
			add = append(add, id)
		}
	}
	for _, id := range current {
		if !want[id] {
			remove = append(remove, id)
		}
	}
	return add, remove
}
