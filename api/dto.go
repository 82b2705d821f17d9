/*
dto.go - Data Transfer Objects for the portal API

PURPOSE:
  Defines the JSON shapes accepted and returned by the HTTP layer, and the
  conversions to and from the portal domain types. Handlers never encode a
  domain type directly; the password hash in particular only exists on
  portal.User and never on a DTO.

CONVENTIONS:
  - Field names are camelCase, as the web client expects
  - Money is accepted as a JSON number or a numeric string and decoded
    into decimal.Decimal; it is returned as a JSON number
  - Payment dates are "2006-01-02" or RFC 3339; timestamps are RFC 3339
  - Patch fields that may be cleared use portal.Nullable, so that an
    explicit null is distinguishable from an absent key

VALIDATION:
  Request DTOs carry `validate` tags checked by the shared validator in
  handlers.go before the service is called. The services re-check every
  rule, so the tags only serve to reject malformed bodies early with a
  per-field report.

SEE ALSO:
  - handlers.go: decode(), which runs the validator
  - portal/types.go: domain types and Nullable
*/
package api

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sciencemaster/portal/billing"
	"github.com/sciencemaster/portal/portal"
)

const dateLayout = "2006-01-02"

// =============================================================================
// USERS
// =============================================================================

// LoginRequest is the body of POST /api/users/login.
type LoginRequest struct {
	PhoneNumber string `json:"phoneNumber" validate:"required"`
	Password    string `json:"password" validate:"required"`
}

// LoginResponse carries the issued token and the logged-in user.
type LoginResponse struct {
	Token string  `json:"token"`
	User  UserDTO `json:"user"`
}

// SuperAdminRequest is the body of POST /api/users/superadmin.
type SuperAdminRequest struct {
	FullName string  `json:"fullName" validate:"required"`
	Mobile   string  `json:"mobile" validate:"required"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Password string  `json:"password" validate:"required,min=6"`
}

// AdminRequest is the body of POST /api/users.
type AdminRequest struct {
	FullName string  `json:"fullName" validate:"required"`
	Mobile   string  `json:"mobile" validate:"required"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Password string  `json:"password" validate:"required,min=6"`
	BranchID *int64  `json:"branchId" validate:"omitempty,gt=0"`
}

// AdminPatchRequest is the body of PUT /api/users/{id}.
type AdminPatchRequest struct {
	FullName *string                 `json:"fullName" validate:"omitempty,min=1"`
	Mobile   *string                 `json:"mobile" validate:"omitempty,min=1"`
	Email    portal.Nullable[string] `json:"email"`
	Password *string                 `json:"password" validate:"omitempty,min=6"`
	BranchID portal.Nullable[int64]  `json:"branchId"`
}

// UserDTO is a user as returned by the API.
type UserDTO struct {
	ID        int64       `json:"id"`
	FullName  string      `json:"fullName"`
	Mobile    string      `json:"mobile"`
	Email     *string     `json:"email"`
	Role      portal.Role `json:"role"`
	BranchID  *int64      `json:"branchId"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// UserSummaryDTO is the public identity embedded in a branch.
type UserSummaryDTO struct {
	ID       int64   `json:"id"`
	FullName string  `json:"fullName"`
	Email    *string `json:"email"`
	Mobile   string  `json:"mobile"`
}

// =============================================================================
// BRANCHES
// =============================================================================

type BranchRequest struct {
	Name          string `json:"name" validate:"required"`
	Location      string `json:"location" validate:"required"`
	BranchAdminID *int64 `json:"branchAdminId" validate:"omitempty,gt=0"`
}

type BranchPatchRequest struct {
	Name          *string                `json:"name" validate:"omitempty,min=1"`
	Location      *string                `json:"location" validate:"omitempty,min=1"`
	BranchAdminID portal.Nullable[int64] `json:"branchAdminId"`
}

type BranchDTO struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	Location      string          `json:"location"`
	BranchAdminID *int64          `json:"branchAdminId"`
	Admin         *UserSummaryDTO `json:"admin,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// BranchRefDTO is a branch as listed under a batch.
type BranchRefDTO struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Location string `json:"location"`
}

// =============================================================================
// CATEGORIES AND BATCHES
// =============================================================================

type CategoryRequest struct {
	Name string `json:"name" validate:"required"`
}

type CategoryPatchRequest struct {
	Name *string `json:"name" validate:"omitempty,min=1"`
}

type CategoryDTO struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Batches   []BatchDTO `json:"batches,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// CategoryRefDTO is a category as embedded in a batch.
type CategoryRefDTO struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type BatchRequest struct {
	BatchCode  string           `json:"batchCode" validate:"required"`
	Name       string           `json:"name" validate:"required"`
	Cost       *decimal.Decimal `json:"cost" validate:"required"`
	CategoryID int64            `json:"categoryId" validate:"required,gt=0"`
	BranchIDs  []int64          `json:"branchIds" validate:"required,min=1,dive,gt=0"`
}

type BatchPatchRequest struct {
	BatchCode  *string          `json:"batchCode" validate:"omitempty,min=1"`
	Name       *string          `json:"name" validate:"omitempty,min=1"`
	Cost       *decimal.Decimal `json:"cost"`
	CategoryID *int64           `json:"categoryId" validate:"omitempty,gt=0"`
	BranchIDs  *[]int64         `json:"branchIds" validate:"omitempty,min=1,dive,gt=0"`
}

type BatchDTO struct {
	ID         int64           `json:"id"`
	BatchCode  string          `json:"batchCode"`
	Name       string          `json:"name"`
	Cost       float64         `json:"cost"`
	CategoryID int64           `json:"categoryId"`
	Category   *CategoryRefDTO `json:"category,omitempty"`
	Branches   []BranchRefDTO  `json:"branches"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// =============================================================================
// STUDENTS
// =============================================================================

type StudentRequest struct {
	Name             string           `json:"name" validate:"required"`
	PhoneNumber      string           `json:"phoneNumber" validate:"required"`
	Institution      string           `json:"institution" validate:"required"`
	Email            *string          `json:"email" validate:"omitempty,email"`
	Photo            *string          `json:"photo"`
	GPA              *string          `json:"gpa"`
	Discount         *decimal.Decimal `json:"discount"`
	CoachingBranchID *int64           `json:"coachingBranchId" validate:"omitempty,gt=0"`
	BatchIDs         []int64          `json:"batchIds" validate:"dive,gt=0"`
}

type StudentPatchRequest struct {
	Name             *string                 `json:"name"`
	PhoneNumber      *string                 `json:"phoneNumber"`
	Institution      *string                 `json:"institution"`
	Email            portal.Nullable[string] `json:"email"`
	Photo            portal.Nullable[string] `json:"photo"`
	GPA              portal.Nullable[string] `json:"gpa"`
	Discount         *decimal.Decimal        `json:"discount"`
	CoachingBranchID portal.Nullable[int64]  `json:"coachingBranchId"`
	BatchIDs         *[]int64                `json:"batchIds" validate:"omitempty,dive,gt=0"`
}

// EnrollmentRequest is the body of PUT /api/students/{id}/batches.
type EnrollmentRequest struct {
	BatchIDs []int64 `json:"batchIds" validate:"dive,gt=0"`
}

// StudentDTO is a student together with enrollment, ledger and due.
type StudentDTO struct {
	ID               int64        `json:"id"`
	Name             string       `json:"name"`
	PhoneNumber      string       `json:"phoneNumber"`
	Institution      string       `json:"institution"`
	Email            *string      `json:"email"`
	Photo            *string      `json:"photo"`
	GPA              *string      `json:"gpa"`
	CoachingBranchID *int64       `json:"coachingBranchId"`
	Batches          []BatchDTO   `json:"batches"`
	Payments         []PaymentDTO `json:"payments"`
	InitialDue       float64      `json:"initialDue"`
	Discount         float64      `json:"discount"`
	TotalPaid        float64      `json:"totalPaid"`
	FinalDue         float64      `json:"finalDue"`
	CreatedAt        time.Time    `json:"createdAt"`
	UpdatedAt        time.Time    `json:"updatedAt"`
}

// =============================================================================
// PAYMENTS
// =============================================================================

type PaymentRequest struct {
	Amount *decimal.Decimal `json:"amount" validate:"required"`
	Date   *string          `json:"date"`
	Note   *string          `json:"note"`
}

type PaymentPatchRequest struct {
	Amount *decimal.Decimal        `json:"amount"`
	Date   *string                 `json:"date"`
	Note   portal.Nullable[string] `json:"note"`
}

type PaymentDTO struct {
	ID                int64     `json:"id"`
	StudentID         int64     `json:"studentId"`
	Amount            float64   `json:"amount"`
	InstallmentNumber int       `json:"installmentNumber"`
	Date              string    `json:"date"`
	Note              *string   `json:"note"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// PaymentListingDTO is a payment with the identity of its student.
type PaymentListingDTO struct {
	PaymentDTO
	Student StudentRefDTO `json:"student"`
}

type StudentRefDTO struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	PhoneNumber string `json:"phoneNumber"`
}

// DueDTO is the due breakdown returned after a payment.
type DueDTO struct {
	InitialDue float64 `json:"initialDue"`
	Discount   float64 `json:"discount"`
	TotalPaid  float64 `json:"totalPaid"`
	FinalDue   float64 `json:"finalDue"`
	Settled    bool    `json:"settled"`
}

// PaymentResponse is returned by the payment create and update endpoints.
type PaymentResponse struct {
	Payment PaymentDTO `json:"payment"`
	Due     DueDTO     `json:"due"`
}

// =============================================================================
// COMMON
// =============================================================================

// StatusResponse is returned by GET /api/status.
type StatusResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toUserDTO(u *portal.User) UserDTO {
	return UserDTO{
		ID:        u.ID,
		FullName:  u.FullName,
		Mobile:    u.Mobile,
		Email:     u.Email,
		Role:      u.Role,
		BranchID:  u.BranchID,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func toBranchDTO(b *portal.Branch) BranchDTO {
	dto := BranchDTO{
		ID:            b.ID,
		Name:          b.Name,
		Location:      b.Location,
		BranchAdminID: b.BranchAdminID,
		CreatedAt:     b.CreatedAt,
		UpdatedAt:     b.UpdatedAt,
	}
	if b.Admin != nil {
		dto.Admin = &UserSummaryDTO{
			ID:       b.Admin.ID,
			FullName: b.Admin.FullName,
			Email:    b.Admin.Email,
			Mobile:   b.Admin.Mobile,
		}
	}
	return dto
}

func toCategoryDTO(c *portal.Category) CategoryDTO {
	dto := CategoryDTO{
		ID:        c.ID,
		Name:      c.Name,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
	for i := range c.Batches {
		dto.Batches = append(dto.Batches, toBatchDTO(&c.Batches[i]))
	}
	return dto
}

func toBatchDTO(b *portal.Batch) BatchDTO {
	dto := BatchDTO{
		ID:         b.ID,
		BatchCode:  b.BatchCode,
		Name:       b.Name,
		Cost:       b.Cost.InexactFloat64(),
		CategoryID: b.CategoryID,
		Branches:   make([]BranchRefDTO, 0, len(b.Branches)),
		CreatedAt:  b.CreatedAt,
		UpdatedAt:  b.UpdatedAt,
	}
	if b.Category != nil {
		dto.Category = &CategoryRefDTO{ID: b.Category.ID, Name: b.Category.Name}
	}
	for _, br := range b.Branches {
		dto.Branches = append(dto.Branches, BranchRefDTO{ID: br.ID, Name: br.Name, Location: br.Location})
	}
	return dto
}

func toBatchDTOs(batches []portal.Batch) []BatchDTO {
	out := make([]BatchDTO, 0, len(batches))
	for i := range batches {
		out = append(out, toBatchDTO(&batches[i]))
	}
	return out
}

func toStudentDTO(a *portal.StudentAccount) StudentDTO {
	s := a.Student
	return StudentDTO{
		ID:               s.ID,
		Name:             s.Name,
		PhoneNumber:      s.PhoneNumber,
		Institution:      s.Institution,
		Email:            s.Email,
		Photo:            s.Photo,
		GPA:              s.GPA,
		CoachingBranchID: s.CoachingBranchID,
		Batches:          toBatchDTOs(a.Batches),
		Payments:         toPaymentDTOs(a.Payments),
		InitialDue:       a.Due.InitialDue.InexactFloat64(),
		Discount:         a.Due.Discount.InexactFloat64(),
		TotalPaid:        a.Due.TotalPaid.InexactFloat64(),
		FinalDue:         a.Due.FinalDue.InexactFloat64(),
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        s.UpdatedAt,
	}
}

func toPaymentDTO(p *portal.Payment) PaymentDTO {
	return PaymentDTO{
		ID:                p.ID,
		StudentID:         p.StudentID,
		Amount:            p.Amount.InexactFloat64(),
		InstallmentNumber: p.InstallmentNumber,
		Date:              p.Date.Format(dateLayout),
		Note:              p.Note,
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
}

func toPaymentDTOs(payments []portal.Payment) []PaymentDTO {
	out := make([]PaymentDTO, 0, len(payments))
	for i := range payments {
		out = append(out, toPaymentDTO(&payments[i]))
	}
	return out
}

func toDueDTO(d billing.Due) DueDTO {
	return DueDTO{
		InitialDue: d.InitialDue.InexactFloat64(),
		Discount:   d.Discount.InexactFloat64(),
		TotalPaid:  d.TotalPaid.InexactFloat64(),
		FinalDue:   d.FinalDue.InexactFloat64(),
		Settled:    d.Settled(),
	}
}

func toPaymentResponse(r *portal.PaymentResult) PaymentResponse {
	return PaymentResponse{Payment: toPaymentDTO(&r.Payment), Due: toDueDTO(r.Due)}
}

// parseDate accepts a calendar date or an RFC 3339 timestamp.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, &portal.ValidationError{
			Field:   "date",
			Message: fmt.Sprintf("%q is not a date (expected YYYY-MM-DD)", s),
		}
	}
	return t.UTC(), nil
}

// optionalDate parses a date field that may be absent. A missing or empty
// value yields nil, leaving the choice of date to the service.
func optionalDate(s *string) (*time.Time, error) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil, nil
	}
	t, err := parseDate(strings.TrimSpace(*s))
	if err != nil {
		return nil, err
	}
	return &t, nil
}
