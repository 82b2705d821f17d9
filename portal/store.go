/*
store.go - Persistence interfaces for the portal

PURPOSE:
  Defines the boundary between the services and the database. Services
  never see SQL; they run a function against a Tx and the Store decides how
  to make that atomic.

KEY INTERFACES:
  Store:  WithTx for read-write units of work, View for read-only ones
  Tx:     every repository operation, grouped per entity below

TRANSACTIONS:
  WithTx(ctx, fn) commits if fn returns nil and rolls back otherwise. No
  partial write is ever visible to another reader.

LOCKING:
  Lock* methods read a row and hold an exclusive lock on it until the
  transaction ends. The payment coordinator locks the student row so two
  concurrent payments for one student run one after the other; branch-admin
  linking locks both the branch and the user row.

NOT FOUND:
  Single-row reads return (nil, nil) when the row does not exist. The
  service decides which NotFoundError to raise.

UNIQUENESS:
  Implementations translate unique-constraint violations to *ConflictError
  and foreign-key violations to *NotFoundError.

IMPLEMENTATIONS:
  - store/sqlstore: SQLite and PostgreSQL over database/sql
*/
package portal

import (
	"context"

	"github.com/shopspring/decimal"
)

// Store runs units of work against the database.
type Store interface {
	// WithTx executes fn within a read-write transaction.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// View executes fn against a consistent read-only view.
	View(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the full repository surface available inside a unit of work.
type Tx interface {
	StudentRepo
	EnrollmentRepo
	PaymentRepo
	BatchRepo
	CategoryRepo
	BranchRepo
	UserRepo
}

type StudentRepo interface {
	CreateStudent(ctx context.Context, s *Student) error
	GetStudent(ctx context.Context, id int64) (*Student, error)
	LockStudent(ctx context.Context, id int64) (*Student, error)
	UpdateStudent(ctx context.Context, s *Student) error
	ListStudents(ctx context.Context, filter StudentFilter) ([]Student, error)
}

type EnrollmentRepo interface {
	EnrolledBatchIDs(ctx context.Context, studentID int64) ([]int64, error)
	EnrolledBatches(ctx context.Context, studentID int64) ([]Batch, error)
	// EnrolledCosts returns the cost of every enrolled batch; NULL costs
	// come back as invalid NullDecimals.
	EnrolledCosts(ctx context.Context, studentID int64) ([]decimal.NullDecimal, error)
	Enroll(ctx context.Context, studentID int64, batchIDs []int64) error
	Unenroll(ctx context.Context, studentID int64, batchIDs []int64) error
}

type PaymentRepo interface {
	InsertPayment(ctx context.Context, p *Payment) error
	GetPayment(ctx context.Context, id int64) (*Payment, error)
	UpdatePayment(ctx context.Context, p *Payment) error
	// StudentPayments returns the ledger in installment order.
	StudentPayments(ctx context.Context, studentID int64) ([]Payment, error)
	// LastInstallment returns the highest installment number, 0 if none.
	LastInstallment(ctx context.Context, studentID int64) (int, error)
	// ListPayments returns all payments, newest date first, optionally
	// filtered by a case-insensitive match on student name or phone.
	ListPayments(ctx context.Context, search string) ([]PaymentListing, error)
}

type BatchRepo interface {
	CreateBatch(ctx context.Context, b *Batch) error
	GetBatch(ctx context.Context, id int64) (*Batch, error)
	LockBatch(ctx context.Context, id int64) (*Batch, error)
	UpdateBatch(ctx context.Context, b *Batch) error
	DeleteBatch(ctx context.Context, id int64) error
	ListBatches(ctx context.Context, filter BatchFilter) ([]Batch, error)
	// FindBatches returns the batches among ids that exist.
	FindBatches(ctx context.Context, ids []int64) ([]Batch, error)
	SetBatchBranches(ctx context.Context, batchID int64, branchIDs []int64) error
	BatchBranches(ctx context.Context, batchID int64) ([]Branch, error)
}

type CategoryRepo interface {
	CreateCategory(ctx context.Context, c *Category) error
	GetCategory(ctx context.Context, id int64) (*Category, error)
	UpdateCategory(ctx context.Context, c *Category) error
	DeleteCategory(ctx context.Context, id int64) error
	ListCategories(ctx context.Context) ([]Category, error)
}

type BranchRepo interface {
	CreateBranch(ctx context.Context, b *Branch) error
	GetBranch(ctx context.Context, id int64) (*Branch, error)
	LockBranch(ctx context.Context, id int64) (*Branch, error)
	UpdateBranch(ctx context.Context, b *Branch) error
	DeleteBranch(ctx context.Context, id int64) error
	ListBranches(ctx context.Context) ([]Branch, error)
	// FindBranches returns the branches among ids that exist.
	FindBranches(ctx context.Context, ids []int64) ([]Branch, error)
	// BranchesByAdmin returns every branch whose admin is userID.
	BranchesByAdmin(ctx context.Context, userID int64) ([]Branch, error)
}

type UserRepo interface {
	CreateUser(ctx context.Context, u *User) error
	GetUser(ctx context.Context, id int64) (*User, error)
	LockUser(ctx context.Context, id int64) (*User, error)
	GetUserByMobile(ctx context.Context, mobile string) (*User, error)
	UpdateUser(ctx context.Context, u *User) error
	DeleteUser(ctx context.Context, id int64) error
	ListUsers(ctx context.Context, search string) ([]User, error)
	CountUsersByRole(ctx context.Context, role Role) (int, error)
}

// PasswordHasher hashes and verifies credentials.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, digest string) bool
}
