/*
Package portal implements the coaching-center administration domain.

PURPOSE:
  Super administrators manage branches, categories, batches and branch-admin
  accounts. Branch admins manage students, their batch enrollment and their
  installment payments. The money arithmetic lives in package billing; this
  package wraps it in transactions and enforces who may do what.

KEY CONCEPTS IN THIS FILE (types.go):
  - Entities: Branch, Category, Batch, Student, Payment, User
  - Aggregates: StudentAccount (student + batches + ledger + due)
  - Inputs/patches: what callers send to create or update an entity
  - Nullable: a patch field that distinguishes "absent" from "set to null"

RELATIONSHIPS:
  Category 1..n Batch          (deleting a category deletes its batches)
  Batch    n..n Branch         (a batch can run at several branches)
  Student  n..n Batch          (enrollment)
  Student  1..n Payment        (the installment ledger)
  Branch.BranchAdminID <-> User.BranchID   (kept symmetric, see branches.go)

SEE ALSO:
  - store.go: repository interfaces implemented by store/sqlstore
  - payments.go: Payment Transaction Coordinator
  - enrollment.go: Enrollment Manager
*/
package portal

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sciencemaster/portal/billing"
)

// =============================================================================
// ROLES AND ACTORS
// =============================================================================

type Role string

const (
	RoleSuperAdmin Role = "super_admin"
	RoleAdmin      Role = "admin"
)

func (r Role) Valid() bool { return r == RoleSuperAdmin || r == RoleAdmin }

// Actor is the authenticated user a service call is made on behalf of.
type Actor struct {
	UserID   int64
	Role     Role
	BranchID *int64
}

func (a Actor) IsSuperAdmin() bool { return a.Role == RoleSuperAdmin }

// SuperAdmin returns an actor with full rights. Used by seeding and tests.
func SuperAdmin(userID int64) Actor {
	return Actor{UserID: userID, Role: RoleSuperAdmin}
}

// =============================================================================
// ENTITIES
// =============================================================================

type Branch struct {
	ID            int64
	Name          string
	Location      string
	BranchAdminID *int64
	Admin         *UserSummary // populated on reads
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Category struct {
	ID        int64
	Name      string
	Batches   []Batch // populated only when requested
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Batch struct {
	ID         int64
	BatchCode  string
	Name       string
	Cost       decimal.Decimal
	CategoryID int64
	Category   *Category // populated on reads
	Branches   []Branch  // populated on reads
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type Student struct {
	ID               int64
	Name             string
	PhoneNumber      string
	Institution      string
	Email            *string
	Photo            *string
	GPA              *string
	Discount         decimal.Decimal
	CoachingBranchID *int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Payment is one installment in a student's ledger.
type Payment struct {
	ID                int64
	StudentID         int64
	Amount            decimal.Decimal
	InstallmentNumber int
	Date              time.Time
	Note              *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type User struct {
	ID           int64
	FullName     string
	Mobile       string
	Email        *string
	PasswordHash string
	Role         Role
	BranchID     *int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserSummary is the public identity of a user, safe to embed anywhere.
type UserSummary struct {
	ID       int64
	FullName string
	Email    *string
	Mobile   string
}

// StudentIdentity is the minimal student view attached to payment listings.
type StudentIdentity struct {
	ID          int64
	Name        string
	PhoneNumber string
}

// =============================================================================
// AGGREGATES
// =============================================================================

// StudentAccount is a student with enrollment, ledger and due breakdown.
type StudentAccount struct {
	Student  Student
	Batches  []Batch
	Payments []Payment
	Due      billing.Due
}

// PaymentResult is returned by the payment coordinator.
type PaymentResult struct {
	Payment Payment
	Due     billing.Due
}

// PaymentListing is a payment joined with the identity of its student.
type PaymentListing struct {
	Payment Payment
	Student StudentIdentity
}

// =============================================================================
// INPUTS AND PATCHES
// =============================================================================

// Nullable is a patch field: Set=false means "leave unchanged", Set=true
// with Value=nil means "clear".
type Nullable[T any] struct {
	Set   bool
	Value *T
}

func Some[T any](v T) Nullable[T] { return Nullable[T]{Set: true, Value: &v} }

func Null[T any]() Nullable[T] { return Nullable[T]{Set: true} }

// UnmarshalJSON marks the field as set, including for an explicit null.
func (n *Nullable[T]) UnmarshalJSON(data []byte) error {
	n.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		n.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	n.Value = &v
	return nil
}

type StudentInput struct {
	Name             string
	PhoneNumber      string
	Institution      string
	Email            *string
	Photo            *string
	GPA              *string
	Discount         *decimal.Decimal
	CoachingBranchID *int64
	BatchIDs         []int64
}

type StudentPatch struct {
	Name             *string
	PhoneNumber      *string
	Institution      *string
	Email            Nullable[string]
	Photo            Nullable[string]
	GPA              Nullable[string]
	Discount         *decimal.Decimal
	CoachingBranchID Nullable[int64]
	BatchIDs         *[]int64 // nil leaves enrollment alone; non-nil replaces it
}

type StudentFilter struct {
	BranchID *int64
	Search   string
}

type PaymentInput struct {
	Amount decimal.Decimal
	Date   *time.Time
	Note   *string
}

type PaymentPatch struct {
	Amount *decimal.Decimal
	Date   *time.Time
	Note   Nullable[string]
}

type BranchInput struct {
	Name          string
	Location      string
	BranchAdminID *int64
}

type BranchPatch struct {
	Name          *string
	Location      *string
	BranchAdminID Nullable[int64]
}

type CategoryInput struct {
	Name string
}

type CategoryPatch struct {
	Name *string
}

type BatchInput struct {
	BatchCode  string
	Name       string
	Cost       *decimal.Decimal
	CategoryID int64
	BranchIDs  []int64
}

type BatchPatch struct {
	BatchCode  *string
	Name       *string
	Cost       *decimal.Decimal
	CategoryID *int64
	BranchIDs  *[]int64
}

type BatchFilter struct {
	CategoryID *int64
	BranchID   *int64
	Search     string
}

type SuperAdminInput struct {
	FullName string
	Mobile   string
	Email    *string
	Password string
}

type AdminInput struct {
	FullName string
	Mobile   string
	Email    *string
	Password string
	BranchID *int64
}

type AdminPatch struct {
	FullName *string
	Mobile   *string
	Email    Nullable[string]
	Password *string
	BranchID Nullable[int64]
}
