/*
Package scenarios loads demo data into an empty portal database.

PURPOSE:
  Provides pre-built scenarios that populate the database with realistic
  data for demos and manual testing. Everything goes through
  portal.Service, so the data obeys the same rules as API traffic: links
  are symmetric, installments are numbered, dues never go negative.

AVAILABLE SCENARIOS:
  single-branch:  One branch, one admin, two batches, three students
  multi-branch:   Two branches sharing batches, students at every stage
                  of payment (nothing paid, partly paid, settled)

HOW SCENARIOS WORK:
 1. Create the super admin with the given credentials
 2. Create branches and their admins
 3. Create categories and batches scheduled at the branches
 4. Register students (as their branch admin) with enrollment
 5. Post installments

NOTE:
  Scenarios expect an empty database. Loading into a database that already
  has a super admin fails with portal.ErrConflict before anything is
  written.

  Loading is not atomic. A failure after the super admin exists returns
  ErrPartiallyLoaded; the database then has to be recreated (delete the
  SQLite file or drop the PostgreSQL tables) before loading again.

SEE ALSO:
  - cmd/seed/main.go: command-line loader
*/
package scenarios

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sciencemaster/portal/portal"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

// Scenario is a named demo data set.
type Scenario struct {
	ID          string
	Name        string
	Description string
	load        func(ctx context.Context, l *loader) error
}

// All lists the available scenarios.
var All = []Scenario{
	{
		ID:          "single-branch",
		Name:        "Single Branch",
		Description: "One branch with its admin, two batches and three students",
		load:        loadSingleBranch,
	},
	{
		ID:          "multi-branch",
		Name:        "Multi Branch",
		Description: "Two branches sharing batches, students at every payment stage",
		load:        loadMultiBranch,
	},
}

// Find returns the scenario with the given id.
func Find(id string) (Scenario, bool) {
	for _, s := range All {
		if s.ID == id {
			return s, true
		}
	}
	return Scenario{}, false
}

// Credentials of the super admin a scenario creates.
type Credentials struct {
	FullName string
	Mobile   string
	Password string
}

// ErrPartiallyLoaded marks a load that failed after writing data.
var ErrPartiallyLoaded = errors.New("scenario partially loaded, recreate the database before retrying")

// Result summarizes what a scenario created.
type Result struct {
	SuperAdmin *portal.User
	Admins     []portal.User
	Branches   []portal.Branch
	Batches    []portal.Batch
	Students   []portal.StudentAccount
}

// Load runs the scenario id against svc.
func Load(ctx context.Context, svc *portal.Service, id string, creds Credentials) (*Result, error) {
	scenario, ok := Find(id)
	if !ok {
		return nil, fmt.Errorf("unknown scenario %q", id)
	}

	root, err := svc.CreateSuperAdmin(ctx, portal.SuperAdminInput{
		FullName: creds.FullName,
		Mobile:   creds.Mobile,
		Password: creds.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("create super admin: %w", err)
	}

	l := &loader{svc: svc, result: &Result{SuperAdmin: root}}
	if err := scenario.load(ctx, l); err != nil {
		return nil, fmt.Errorf("%w: load %s: %w", ErrPartiallyLoaded, id, err)
	}

	// Re-read so every account reflects the final ledger.
	for i, s := range l.result.Students {
		account, err := svc.GetStudent(ctx, portal.SuperAdmin(root.ID), s.Student.ID)
		if err != nil {
			return nil, err
		}
		l.result.Students[i] = *account
	}
	return l.result, nil
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func loadSingleBranch(ctx context.Context, l *loader) error {
	branch, err := l.branch(ctx, "Dhanmondi", "House 12, Road 7, Dhanmondi, Dhaka")
	if err != nil {
		return err
	}
	admin, err := l.admin(ctx, "Rafiq Hasan", "01700000001", branch.ID)
	if err != nil {
		return err
	}

	category, err := l.svc.CreateCategory(ctx, portal.CategoryInput{Name: "HSC Science"})
	if err != nil {
		return err
	}
	physics, err := l.batch(ctx, "HSC-PHY-25", "HSC Physics 2025", "5000", category.ID, branch.ID)
	if err != nil {
		return err
	}
	chemistry, err := l.batch(ctx, "HSC-CHE-25", "HSC Chemistry 2025", "3000", category.ID, branch.ID)
	if err != nil {
		return err
	}

	as := actorFor(admin)

	// Both batches, discount 1000: owes 7000.
	nadia, err := l.student(ctx, as, studentSeed{
		name: "Nadia Islam", phone: "01810000001", institution: "Viqarunnisa Noon College",
		discount: "1000", batches: []int64{physics.ID, chemistry.ID},
	})
	if err != nil {
		return err
	}
	if err := l.pay(ctx, as, nadia, "3000", 30, "admission installment"); err != nil {
		return err
	}

	// Physics only, paid in full.
	tanvir, err := l.student(ctx, as, studentSeed{
		name: "Tanvir Ahmed", phone: "01810000002", institution: "Dhaka College",
		batches: []int64{physics.ID},
	})
	if err != nil {
		return err
	}
	if err := l.pay(ctx, as, tanvir, "2500", 45, ""); err != nil {
		return err
	}
	if err := l.pay(ctx, as, tanvir, "2500", 15, "final installment"); err != nil {
		return err
	}

	// Chemistry only, nothing paid yet.
	_, err = l.student(ctx, as, studentSeed{
		name: "Sadia Rahman", phone: "01810000003", institution: "Holy Cross College",
		batches: []int64{chemistry.ID},
	})
	return err
}

func loadMultiBranch(ctx context.Context, l *loader) error {
	uttara, err := l.branch(ctx, "Uttara", "Sector 7, Uttara, Dhaka")
	if err != nil {
		return err
	}
	mirpur, err := l.branch(ctx, "Mirpur", "Section 10, Mirpur, Dhaka")
	if err != nil {
		return err
	}
	uttaraAdmin, err := l.admin(ctx, "Farhana Akter", "01700000011", uttara.ID)
	if err != nil {
		return err
	}
	mirpurAdmin, err := l.admin(ctx, "Kamal Uddin", "01700000012", mirpur.ID)
	if err != nil {
		return err
	}

	hsc, err := l.svc.CreateCategory(ctx, portal.CategoryInput{Name: "HSC"})
	if err != nil {
		return err
	}
	admission, err := l.svc.CreateCategory(ctx, portal.CategoryInput{Name: "University Admission"})
	if err != nil {
		return err
	}

	math, err := l.batch(ctx, "HSC-MATH", "HSC Higher Math", "4500", hsc.ID, uttara.ID, mirpur.ID)
	if err != nil {
		return err
	}
	biology, err := l.batch(ctx, "HSC-BIO", "HSC Biology", "4000", hsc.ID, uttara.ID)
	if err != nil {
		return err
	}
	engineering, err := l.batch(ctx, "ADM-ENG", "Engineering Admission", "12000.50", admission.ID, uttara.ID, mirpur.ID)
	if err != nil {
		return err
	}
	medical, err := l.batch(ctx, "ADM-MED", "Medical Admission", "15000", admission.ID, mirpur.ID)
	if err != nil {
		return err
	}

	atUttara := actorFor(uttaraAdmin)
	atMirpur := actorFor(mirpurAdmin)

	arif, err := l.student(ctx, atUttara, studentSeed{
		name: "Arif Chowdhury", phone: "01910000001", institution: "Rajuk Uttara Model College",
		gpa: "5.00", batches: []int64{math.ID, engineering.ID},
	})
	if err != nil {
		return err
	}
	for i, amount := range []string{"5000", "5000", "6500.50"} {
		if err := l.pay(ctx, atUttara, arif, amount, 90-30*i, ""); err != nil {
			return err
		}
	}

	if _, err := l.student(ctx, atUttara, studentSeed{
		name: "Meher Nigar", phone: "01910000002", institution: "Milestone College",
		discount: "500", batches: []int64{biology.ID},
	}); err != nil {
		return err
	}

	shuvo, err := l.student(ctx, atMirpur, studentSeed{
		name: "Shuvo Das", phone: "01910000003", institution: "BCIC College",
		discount: "2000", batches: []int64{medical.ID, math.ID},
	})
	if err != nil {
		return err
	}
	if err := l.pay(ctx, atMirpur, shuvo, "8000", 20, "first installment"); err != nil {
		return err
	}

	_, err = l.student(ctx, atMirpur, studentSeed{
		name: "Lamia Sultana", phone: "01910000004", institution: "Mirpur Girls' Ideal College",
		email: "lamia@example.com", batches: []int64{engineering.ID},
	})
	return err
}

// =============================================================================
// HELPERS
// =============================================================================

type loader struct {
	svc    *portal.Service
	result *Result
}

type studentSeed struct {
	name, phone, institution string
	email, gpa, discount     string
	batches                  []int64
}

const adminPassword = "admin123"

func actorFor(u *portal.User) portal.Actor {
	return portal.Actor{UserID: u.ID, Role: u.Role, BranchID: u.BranchID}
}

func (l *loader) branch(ctx context.Context, name, location string) (*portal.Branch, error) {
	b, err := l.svc.CreateBranch(ctx, portal.BranchInput{Name: name, Location: location})
	if err != nil {
		return nil, fmt.Errorf("create branch %q: %w", name, err)
	}
	l.result.Branches = append(l.result.Branches, *b)
	return b, nil
}

func (l *loader) admin(ctx context.Context, name, mobile string, branchID int64) (*portal.User, error) {
	u, err := l.svc.CreateAdmin(ctx, portal.AdminInput{
		FullName: name,
		Mobile:   mobile,
		Password: adminPassword,
		BranchID: &branchID,
	})
	if err != nil {
		return nil, fmt.Errorf("create admin %q: %w", name, err)
	}
	l.result.Admins = append(l.result.Admins, *u)
	return u, nil
}

func (l *loader) batch(ctx context.Context, code, name, cost string, categoryID int64, branchIDs ...int64) (*portal.Batch, error) {
	c := decimal.RequireFromString(cost)
	b, err := l.svc.CreateBatch(ctx, portal.BatchInput{
		BatchCode:  code,
		Name:       name,
		Cost:       &c,
		CategoryID: categoryID,
		BranchIDs:  branchIDs,
	})
	if err != nil {
		return nil, fmt.Errorf("create batch %q: %w", code, err)
	}
	l.result.Batches = append(l.result.Batches, *b)
	return b, nil
}

func (l *loader) student(ctx context.Context, as portal.Actor, seed studentSeed) (*portal.StudentAccount, error) {
	in := portal.StudentInput{
		Name:        seed.name,
		PhoneNumber: seed.phone,
		Institution: seed.institution,
		Email:       optional(seed.email),
		GPA:         optional(seed.gpa),
		BatchIDs:    seed.batches,
	}
	if seed.discount != "" {
		d := decimal.RequireFromString(seed.discount)
		in.Discount = &d
	}
	account, err := l.svc.CreateStudent(ctx, as, in)
	if err != nil {
		return nil, fmt.Errorf("create student %q: %w", seed.name, err)
	}
	l.result.Students = append(l.result.Students, *account)
	return account, nil
}

// pay posts an installment dated daysAgo days before today.
func (l *loader) pay(ctx context.Context, as portal.Actor, account *portal.StudentAccount, amount string, daysAgo int, note string) error {
	date := time.Now().UTC().AddDate(0, 0, -daysAgo).Truncate(24 * time.Hour)
	_, err := l.svc.AddPayment(ctx, as, account.Student.ID, portal.PaymentInput{
		Amount: decimal.RequireFromString(amount),
		Date:   &date,
		Note:   optional(note),
	})
	if err != nil {
		return fmt.Errorf("pay %s for %q: %w", amount, account.Student.Name, err)
	}
	return nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
