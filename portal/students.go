package portal

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/sciencemaster/portal/billing"
)

// CreateStudent registers a student and enrolls them in the given batches,
// all in one transaction.
func (s *Service) CreateStudent(ctx context.Context, actor Actor, in StudentInput) (*StudentAccount, error) {
	student := &Student{
		Name:        trimmed(in.Name),
		PhoneNumber: trimmed(in.PhoneNumber),
		Institution: trimmed(in.Institution),
		Email:       trimmedPtr(in.Email),
		Photo:       trimmedPtr(in.Photo),
		GPA:         trimmedPtr(in.GPA),
		Discount:    decimal.Zero,
	}
	switch {
	case student.Name == "":
		return nil, required("name")
	case student.PhoneNumber == "":
		return nil, required("phoneNumber")
	case student.Institution == "":
		return nil, required("institution")
	}
	if in.Discount != nil {
		if err := checkDiscount(*in.Discount); err != nil {
			return nil, err
		}
		student.Discount = *in.Discount
	}

	branchID, err := placeStudent(actor, in.CoachingBranchID)
	if err != nil {
		return nil, err
	}
	student.CoachingBranchID = branchID

	var account *StudentAccount
	err = s.store.WithTx(ctx, func(tx Tx) error {
		if err := requireBranch(ctx, tx, student.CoachingBranchID); err != nil {
			return err
		}
		if err := tx.CreateStudent(ctx, student); err != nil {
			return err
		}
		if err := SetEnrollment(ctx, tx, student.ID, in.BatchIDs); err != nil {
			return err
		}
		account, err = loadAccount(ctx, tx, student)
		return err
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// UpdateStudent applies a partial update. Blank strings for the required
// text fields are ignored rather than clearing them.
func (s *Service) UpdateStudent(ctx context.Context, actor Actor, id int64, patch StudentPatch) (*StudentAccount, error) {
	if patch.Discount != nil {
		if err := checkDiscount(*patch.Discount); err != nil {
			return nil, err
		}
	}

	var account *StudentAccount
	err := s.store.WithTx(ctx, func(tx Tx) error {
		student, err := tx.LockStudent(ctx, id)
		if err != nil {
			return err
		}
		if student == nil {
			return &NotFoundError{Entity: "student", ID: id}
		}
		if err := authorizeStudent(actor, student); err != nil {
			return err
		}

		if v := trimmedPtr(patch.Name); v != nil {
			student.Name = *v
		}
		if v := trimmedPtr(patch.PhoneNumber); v != nil {
			student.PhoneNumber = *v
		}
		if v := trimmedPtr(patch.Institution); v != nil {
			student.Institution = *v
		}
		if patch.Email.Set {
			student.Email = trimmedPtr(patch.Email.Value)
		}
		if patch.Photo.Set {
			student.Photo = trimmedPtr(patch.Photo.Value)
		}
		if patch.GPA.Set {
			student.GPA = trimmedPtr(patch.GPA.Value)
		}
		if patch.Discount != nil {
			student.Discount = *patch.Discount
		}
		if patch.CoachingBranchID.Set {
			if patch.CoachingBranchID.Value == nil && !actor.IsSuperAdmin() {
				return &ForbiddenError{Reason: "only the super admin can detach a student from its branch"}
			}
			branchID := patch.CoachingBranchID.Value
			if branchID != nil {
				if branchID, err = placeStudent(actor, branchID); err != nil {
					return err
				}
			}
			if err := requireBranch(ctx, tx, branchID); err != nil {
				return err
			}
			student.CoachingBranchID = branchID
		}

		if err := tx.UpdateStudent(ctx, student); err != nil {
			return err
		}
		if patch.BatchIDs != nil {
			if err := SetEnrollment(ctx, tx, student.ID, *patch.BatchIDs); err != nil {
				return err
			}
		}
		account, err = loadAccount(ctx, tx, student)
		return err
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// GetStudent returns a student with enrollment, ledger and due breakdown.
func (s *Service) GetStudent(ctx context.Context, actor Actor, id int64) (*StudentAccount, error) {
	var account *StudentAccount
	err := s.store.View(ctx, func(tx Tx) error {
		student, err := tx.GetStudent(ctx, id)
		if err != nil {
			return err
		}
		if student == nil {
			return &NotFoundError{Entity: "student", ID: id}
		}
		if err := authorizeStudent(actor, student); err != nil {
			return err
		}
		account, err = loadAccount(ctx, tx, student)
		return err
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// ListStudents returns every visible student, each with its due breakdown.
// Admins only ever see their own branch.
func (s *Service) ListStudents(ctx context.Context, actor Actor, filter StudentFilter) ([]StudentAccount, error) {
	filter.Search = trimmed(filter.Search)
	if !actor.IsSuperAdmin() {
		if actor.BranchID == nil {
			return []StudentAccount{}, nil
		}
		filter.BranchID = idPtr(*actor.BranchID)
	}

	var out []StudentAccount
	err := s.store.View(ctx, func(tx Tx) error {
		students, err := tx.ListStudents(ctx, filter)
		if err != nil {
			return err
		}
		out = make([]StudentAccount, 0, len(students))
		for i := range students {
			account, err := loadAccount(ctx, tx, &students[i])
			if err != nil {
				return err
			}
			out = append(out, *account)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func loadAccount(ctx context.Context, tx Tx, student *Student) (*StudentAccount, error) {
	batches, err := tx.EnrolledBatches(ctx, student.ID)
	if err != nil {
		return nil, err
	}
	payments, err := tx.StudentPayments(ctx, student.ID)
	if err != nil {
		return nil, err
	}
	costs := make([]decimal.NullDecimal, len(batches))
	for i, b := range batches {
		costs[i] = decimal.NewNullDecimal(b.Cost)
	}
	return &StudentAccount{
		Student:  *student,
		Batches:  batches,
		Payments: payments,
		Due:      dueOf(student, costs, payments),
	}, nil
}

// authorizeStudent lets the super admin through and keeps branch admins to
// students of their own branch.
func authorizeStudent(actor Actor, student *Student) error {
	if actor.IsSuperAdmin() {
		return nil
	}
	if actor.BranchID == nil || !sameID(student.CoachingBranchID, *actor.BranchID) {
		return &ForbiddenError{Reason: "student belongs to another branch"}
	}
	return nil
}

// placeStudent decides the branch a new or moved student lands in.
func placeStudent(actor Actor, requested *int64) (*int64, error) {
	if actor.IsSuperAdmin() {
		return requested, nil
	}
	if actor.BranchID == nil {
		return nil, &ForbiddenError{Reason: "admin is not assigned to a branch"}
	}
	if requested != nil && *requested != *actor.BranchID {
		return nil, &ForbiddenError{Reason: "cannot place a student in another branch"}
	}
	return idPtr(*actor.BranchID), nil
}

func requireBranch(ctx context.Context, tx Tx, id *int64) error {
	if id == nil {
		return nil
	}
	branch, err := tx.GetBranch(ctx, *id)
	if err != nil {
		return err
	}
	if branch == nil {
		return &NotFoundError{Entity: "branch", ID: *id}
	}
	return nil
}

func checkDiscount(d decimal.Decimal) error {
	if d.IsNegative() {
		return &ValidationError{Field: "discount", Message: "must not be negative"}
	}
	return fromBilling("discount", billing.CheckMoney(d))
}
