package portal

import (
	"context"
)

// CreateSuperAdmin bootstraps the one super admin account. It fails with a
// ConflictError once a super admin exists.
func (s *Service) CreateSuperAdmin(ctx context.Context, in SuperAdminInput) (*User, error) {
	user, err := s.newUser(in.FullName, in.Mobile, in.Email, in.Password, RoleSuperAdmin)
	if err != nil {
		return nil, err
	}
	err = s.store.WithTx(ctx, func(tx Tx) error {
		n, err := tx.CountUsersByRole(ctx, RoleSuperAdmin)
		if err != nil {
			return err
		}
		if n > 0 {
			return &ConflictError{Entity: "user", Message: "super admin already exists"}
		}
		return tx.CreateUser(ctx, user)
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// CreateAdmin adds a branch admin and, when BranchID is given, makes them
// the admin of that branch.
func (s *Service) CreateAdmin(ctx context.Context, in AdminInput) (*User, error) {
	user, err := s.newUser(in.FullName, in.Mobile, in.Email, in.Password, RoleAdmin)
	if err != nil {
		return nil, err
	}
	var out *User
	err = s.store.WithTx(ctx, func(tx Tx) error {
		if err := tx.CreateUser(ctx, user); err != nil {
			return err
		}
		if in.BranchID != nil {
			if err := assign(ctx, tx, user.ID, *in.BranchID); err != nil {
				return err
			}
		}
		var err error
		out, err = tx.GetUser(ctx, user.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateAdmin applies a partial update to a branch admin. A set BranchID
// moves the admin to that branch; an explicit null detaches them.
func (s *Service) UpdateAdmin(ctx context.Context, id int64, patch AdminPatch) (*User, error) {
	if patch.FullName != nil && trimmed(*patch.FullName) == "" {
		return nil, required("fullName")
	}
	var digest string
	if patch.Password != nil && *patch.Password != "" {
		var err error
		if digest, err = s.hasher.Hash(*patch.Password); err != nil {
			return nil, err
		}
	}

	var out *User
	err := s.store.WithTx(ctx, func(tx Tx) error {
		if err := requireAdmin(ctx, tx, id); err != nil {
			return err
		}

		if patch.BranchID.Set {
			var err error
			if patch.BranchID.Value == nil {
				err = detach(ctx, tx, id)
			} else {
				err = assign(ctx, tx, id, *patch.BranchID.Value)
			}
			if err != nil {
				return err
			}
		}

		user, err := tx.LockUser(ctx, id)
		if err != nil {
			return err
		}
		if v := trimmedPtr(patch.FullName); v != nil {
			user.FullName = *v
		}
		if v := trimmedPtr(patch.Mobile); v != nil {
			user.Mobile = *v
		}
		if patch.Email.Set {
			user.Email = trimmedPtr(patch.Email.Value)
		}
		if patch.BranchID.Set && patch.BranchID.Value == nil {
			user.BranchID = nil
		}
		if digest != "" {
			user.PasswordHash = digest
		}
		if err := tx.UpdateUser(ctx, user); err != nil {
			return err
		}
		out = user
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteAdmin removes a branch admin. Super admins cannot be deleted.
func (s *Service) DeleteAdmin(ctx context.Context, id int64) error {
	return s.store.WithTx(ctx, func(tx Tx) error {
		if err := requireAdmin(ctx, tx, id); err != nil {
			return err
		}
		if err := detach(ctx, tx, id); err != nil {
			return err
		}
		return tx.DeleteUser(ctx, id)
	})
}

func (s *Service) GetUser(ctx context.Context, id int64) (*User, error) {
	var out *User
	err := s.store.View(ctx, func(tx Tx) error {
		var err error
		out, err = tx.GetUser(ctx, id)
		if err == nil && out == nil {
			err = &NotFoundError{Entity: "user", ID: id}
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListUsers returns all users, optionally filtered by a case-insensitive
// match on full name or mobile.
func (s *Service) ListUsers(ctx context.Context, search string) ([]User, error) {
	var out []User
	err := s.store.View(ctx, func(tx Tx) error {
		var err error
		out, err = tx.ListUsers(ctx, trimmed(search))
		return err
	})
	return out, err
}

// Login checks a mobile/password pair. Unknown mobiles and wrong passwords
// both return ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, mobile, password string) (*User, error) {
	var user *User
	err := s.store.View(ctx, func(tx Tx) error {
		var err error
		user, err = tx.GetUserByMobile(ctx, trimmed(mobile))
		return err
	})
	if err != nil {
		return nil, err
	}
	if user == nil || !s.hasher.Verify(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func (s *Service) newUser(fullName, mobile string, email *string, password string, role Role) (*User, error) {
	user := &User{
		FullName: trimmed(fullName),
		Mobile:   trimmed(mobile),
		Email:    trimmedPtr(email),
		Role:     role,
	}
	switch {
	case user.FullName == "":
		return nil, required("fullName")
	case user.Mobile == "":
		return nil, required("mobile")
	case password == "":
		return nil, required("password")
	}
	digest, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = digest
	return user, nil
}

// assign makes userID the admin of branchID on both sides.
func assign(ctx context.Context, tx Tx, userID, branchID int64) error {
	branch, err := tx.LockBranch(ctx, branchID)
	if err != nil {
		return err
	}
	if branch == nil {
		return &NotFoundError{Entity: "branch", ID: branchID}
	}
	if err := bind(ctx, tx, branch, userID); err != nil {
		return err
	}
	return tx.UpdateBranch(ctx, branch)
}

// detach clears every branch that names userID as its admin. The user row
// itself is left to the caller.
func detach(ctx context.Context, tx Tx, userID int64) error {
	branches, err := tx.BranchesByAdmin(ctx, userID)
	if err != nil {
		return err
	}
	for _, b := range branches {
		branch, err := tx.LockBranch(ctx, b.ID)
		if err != nil {
			return err
		}
		if branch == nil || !sameID(branch.BranchAdminID, userID) {
			continue
		}
		branch.BranchAdminID = nil
		if err := tx.UpdateBranch(ctx, branch); err != nil {
			return err
		}
	}
	return nil
}

func requireAdmin(ctx context.Context, tx Tx, id int64) error {
	user, err := tx.GetUser(ctx, id)
	if err != nil {
		return err
	}
	if user == nil || user.Role != RoleAdmin {
		return &NotFoundError{Entity: "admin", ID: id}
	}
	return nil
}
