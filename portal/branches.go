/*
branches.go - Branch CRUD and the branch/admin link

PURPOSE:
  Branches are created and edited by the super admin. A branch may have one
  branch admin, and that admin's account points back at the branch:

    branches.branch_admin_id  ---->  users.id
    users.branch_id           ---->  branches.id

  The two pointers are stored separately, so every write that touches one
  side also fixes the other inside the same transaction.

LINK RULES:
  bind(branch, user)
    - user must exist and have role admin
    - the branch's previous admin (if any) loses its branch_id
    - any other branch the user was admin of loses its branch_admin_id
    - both sides now point at each other

  unlinkBranch(branch)
    - the current admin (if any) loses its branch_id
    - branch_admin_id becomes NULL

LOCK ORDER:
  Branch rows are always locked before user rows, here and in users.go.
*/
package portal

import (
	"context"
)

// CreateBranch adds a branch, optionally linking its admin.
func (s *Service) CreateBranch(ctx context.Context, in BranchInput) (*Branch, error) {
	branch := &Branch{
		Name:     trimmed(in.Name),
		Location: trimmed(in.Location),
	}
	if branch.Name == "" {
		return nil, required("name")
	}
	if branch.Location == "" {
		return nil, required("location")
	}

	var out *Branch
	err := s.store.WithTx(ctx, func(tx Tx) error {
		if err := tx.CreateBranch(ctx, branch); err != nil {
			return err
		}
		if in.BranchAdminID != nil {
			if err := bind(ctx, tx, branch, *in.BranchAdminID); err != nil {
				return err
			}
			if err := tx.UpdateBranch(ctx, branch); err != nil {
				return err
			}
		}
		var err error
		out, err = tx.GetBranch(ctx, branch.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateBranch applies a partial update. A set BranchAdminID relinks the
// branch; an explicit null unlinks it.
func (s *Service) UpdateBranch(ctx context.Context, id int64, patch BranchPatch) (*Branch, error) {
	var out *Branch
	err := s.store.WithTx(ctx, func(tx Tx) error {
		branch, err := tx.LockBranch(ctx, id)
		if err != nil {
			return err
		}
		if branch == nil {
			return &NotFoundError{Entity: "branch", ID: id}
		}

		if v := trimmedPtr(patch.Name); v != nil {
			branch.Name = *v
		}
		if v := trimmedPtr(patch.Location); v != nil {
			branch.Location = *v
		}
		if patch.BranchAdminID.Set {
			if patch.BranchAdminID.Value == nil {
				err = unlinkBranch(ctx, tx, branch)
			} else {
				err = bind(ctx, tx, branch, *patch.BranchAdminID.Value)
			}
			if err != nil {
				return err
			}
		}

		if err := tx.UpdateBranch(ctx, branch); err != nil {
			return err
		}
		out, err = tx.GetBranch(ctx, branch.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteBranch removes a branch. Its students go with it and its admin's
// branch_id is cleared by the schema.
func (s *Service) DeleteBranch(ctx context.Context, id int64) error {
	return s.store.WithTx(ctx, func(tx Tx) error {
		branch, err := tx.LockBranch(ctx, id)
		if err != nil {
			return err
		}
		if branch == nil {
			return &NotFoundError{Entity: "branch", ID: id}
		}
		if err := unlinkBranch(ctx, tx, branch); err != nil {
			return err
		}
		return tx.DeleteBranch(ctx, id)
	})
}

func (s *Service) GetBranch(ctx context.Context, id int64) (*Branch, error) {
	var out *Branch
	err := s.store.View(ctx, func(tx Tx) error {
		var err error
		out, err = tx.GetBranch(ctx, id)
		if err == nil && out == nil {
			err = &NotFoundError{Entity: "branch", ID: id}
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) ListBranches(ctx context.Context) ([]Branch, error) {
	var out []Branch
	err := s.store.View(ctx, func(tx Tx) error {
		var err error
		out, err = tx.ListBranches(ctx)
		return err
	})
	return out, err
}

// =============================================================================
// LINK MAINTENANCE
// =============================================================================

// bind makes userID the admin of branch. branch must already be locked; the
// caller persists branch afterwards.
func bind(ctx context.Context, tx Tx, branch *Branch, userID int64) error {
	// Lock other branches the user currently runs before the user row.
	others, err := tx.BranchesByAdmin(ctx, userID)
	if err != nil {
		return err
	}
	for _, other := range others {
		if other.ID == branch.ID {
			continue
		}
		locked, err := tx.LockBranch(ctx, other.ID)
		if err != nil {
			return err
		}
		if locked == nil || !sameID(locked.BranchAdminID, userID) {
			continue
		}
		locked.BranchAdminID = nil
		if err := tx.UpdateBranch(ctx, locked); err != nil {
			return err
		}
	}

	user, err := tx.LockUser(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil || user.Role != RoleAdmin {
		return &NotFoundError{Entity: "branch admin user", ID: userID}
	}

	if branch.BranchAdminID != nil && *branch.BranchAdminID != userID {
		if err := releaseUser(ctx, tx, *branch.BranchAdminID, branch.ID); err != nil {
			return err
		}
	}

	branch.BranchAdminID = idPtr(user.ID)
	user.BranchID = idPtr(branch.ID)
	return tx.UpdateUser(ctx, user)
}

// unlinkBranch clears the admin of a locked branch on both sides. The caller
// persists branch afterwards.
func unlinkBranch(ctx context.Context, tx Tx, branch *Branch) error {
	if branch.BranchAdminID == nil {
		return nil
	}
	if err := releaseUser(ctx, tx, *branch.BranchAdminID, branch.ID); err != nil {
		return err
	}
	branch.BranchAdminID = nil
	return nil
}

// releaseUser clears users.branch_id if it still points at branchID.
func releaseUser(ctx context.Context, tx Tx, userID, branchID int64) error {
	user, err := tx.LockUser(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil || !sameID(user.BranchID, branchID) {
		return nil
	}
	user.BranchID = nil
	return tx.UpdateUser(ctx, user)
}
