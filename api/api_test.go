/*
api_test.go - End-to-end tests for the HTTP API

Every test drives the real router over an in-memory SQLite store:
- Authentication and role gates
- The payment flow (due, overdraft, edits, ledger listing)
- Branch scoping of admins
- Enrollment, validation and error mapping
*/
package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sciencemaster/portal/auth"
	"github.com/sciencemaster/portal/portal"
	"github.com/sciencemaster/portal/store/sqlstore"
)

// =============================================================================
// TEST HARNESS
// =============================================================================

type testServer struct {
	t      *testing.T
	router http.Handler
	svc    *portal.Service
}

func newTestServer(t *testing.T) *testServer {
	return newTestServerWith(t, Options{AllowedOrigins: []string{"*"}})
}

func newTestServerWith(t *testing.T, opts Options) *testServer {
	store, err := sqlstore.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	tokens, err := auth.NewTokens("test-secret", time.Hour)
	require.NoError(t, err)

	svc := portal.NewService(store, auth.NewBcryptHasher(bcrypt.MinCost))
	h := NewHandler(svc, tokens, store)
	return &testServer{
		t:      t,
		router: NewRouter(h, opts),
		svc:    svc,
	}
}

func (s *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(s.t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// create POSTs body and returns the id of the created resource.
func (s *testServer) create(token, path string, body any) int64 {
	s.t.Helper()
	rec := s.do(http.MethodPost, path, token, body)
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeBody[struct {
		ID int64 `json:"id"`
	}](s.t, rec).ID
}

func (s *testServer) login(mobile, password string) string {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/api/users/login", "", LoginRequest{PhoneNumber: mobile, Password: password})
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())
	return decodeBody[LoginResponse](s.t, rec).Token
}

// bootstrap creates the super admin and returns their token.
func (s *testServer) bootstrap() string {
	s.create("", "/api/users/superadmin", map[string]any{
		"fullName": "Owner",
		"mobile":   "01500000000",
		"password": "owner123",
	})
	return s.login("01500000000", "owner123")
}

// campus is a branch with an admin, a category and two batches.
type campus struct {
	root, admin        string
	branch             int64
	physics, chemistry int64
}

func (s *testServer) campus(root, branchName, adminMobile string) campus {
	c := campus{root: root}
	c.branch = s.create(root, "/api/branches", map[string]any{"name": branchName, "location": "Dhaka"})
	category := s.create(root, "/api/categories", map[string]any{"name": "HSC " + branchName})
	c.physics = s.create(root, "/api/batches", map[string]any{
		"batchCode": "PHY-" + branchName, "name": "Physics " + branchName,
		"cost": 5000, "categoryId": category, "branchIds": []int64{c.branch},
	})
	c.chemistry = s.create(root, "/api/batches", map[string]any{
		"batchCode": "CHE-" + branchName, "name": "Chemistry " + branchName,
		"cost": "3000.00", "categoryId": category, "branchIds": []int64{c.branch},
	})
	s.create(root, "/api/users", map[string]any{
		"fullName": "Admin " + branchName, "mobile": adminMobile,
		"password": "admin123", "branchId": c.branch,
	})
	c.admin = s.login(adminMobile, "admin123")
	return c
}

func (s *testServer) student(token string, body map[string]any) StudentDTO {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/api/students", token, body)
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeBody[StudentDTO](s.t, rec)
}

// =============================================================================
// STATUS AND AUTH
// =============================================================================

func TestStatus(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/api/status", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, StatusResponse{Status: "ok", Database: "ok"}, decodeBody[StatusResponse](t, rec))
}

func TestCORS_Credentials(t *testing.T) {
	fromOrigin := func(s *testServer, origin string) http.Header {
		req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
		req.Header.Set("Origin", origin)
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)
		return rec.Header()
	}

	t.Run("wildcard never allows credentials", func(t *testing.T) {
		s := newTestServerWith(t, Options{AllowedOrigins: []string{"*"}})
		h := fromOrigin(s, "https://evil.example")
		assert.Empty(t, h.Get("Access-Control-Allow-Credentials"))
	})

	t.Run("explicit list allows credentials for listed origins", func(t *testing.T) {
		s := newTestServerWith(t, Options{AllowedOrigins: []string{"http://localhost:5173"}})

		h := fromOrigin(s, "http://localhost:5173")
		assert.Equal(t, "http://localhost:5173", h.Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", h.Get("Access-Control-Allow-Credentials"))

		h = fromOrigin(s, "https://evil.example")
		assert.Empty(t, h.Get("Access-Control-Allow-Origin"))
		assert.Empty(t, h.Get("Access-Control-Allow-Credentials"))
	})
}

func TestAuthGates(t *testing.T) {
	s := newTestServer(t)
	root := s.bootstrap()
	c := s.campus(root, "Dhanmondi", "01700000001")

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   any
		want   int
	}{
		{"no token", http.MethodGet, "/api/branches", "", nil, http.StatusUnauthorized},
		{"garbage token", http.MethodGet, "/api/branches", "nope", nil, http.StatusUnauthorized},
		{"admin reads branches", http.MethodGet, "/api/branches", c.admin, nil, http.StatusOK},
		{"admin creates branch", http.MethodPost, "/api/branches", c.admin, map[string]any{"name": "X", "location": "Y"}, http.StatusForbidden},
		{"admin deletes batch", http.MethodDelete, fmt.Sprintf("/api/batches/%d", c.physics), c.admin, nil, http.StatusForbidden},
		{"admin lists ledger", http.MethodGet, "/api/students/payments", c.admin, nil, http.StatusForbidden},
		{"admin runs audit", http.MethodGet, "/api/audit/dues", c.admin, nil, http.StatusForbidden},
		{"root lists students", http.MethodGet, "/api/students", root, nil, http.StatusOK},
		{"root lists ledger", http.MethodGet, "/api/students/payments", root, nil, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(tt.method, tt.path, tt.token, tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestLogin(t *testing.T) {
	s := newTestServer(t)
	s.bootstrap()

	t.Run("wrong password", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/api/users/login", "", LoginRequest{PhoneNumber: "01500000000", Password: "nope"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "unauthorized", decodeBody[ErrorResponse](t, rec).Code)
	})

	t.Run("unknown mobile", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/api/users/login", "", LoginRequest{PhoneNumber: "019", Password: "owner123"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("success never returns the hash", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/api/users/login", "", LoginRequest{PhoneNumber: "01500000000", Password: "owner123"})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.NotContains(t, rec.Body.String(), "password")
		resp := decodeBody[LoginResponse](t, rec)
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, portal.RoleSuperAdmin, resp.User.Role)
	})
}

func TestCreateSuperAdmin_OnlyOnce(t *testing.T) {
	// GIVEN: A super admin already exists
	s := newTestServer(t)
	s.bootstrap()

	// WHEN: Someone tries to create another one
	rec := s.do(http.MethodPost, "/api/users/superadmin", "", map[string]any{
		"fullName": "Intruder", "mobile": "01599999999", "password": "secret1",
	})

	// THEN: 409 and the first one is untouched
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "conflict", decodeBody[ErrorResponse](t, rec).Code)
	s.login("01500000000", "owner123")
}

// =============================================================================
// PAYMENTS
// =============================================================================

func TestPaymentFlow(t *testing.T) {
	s := newTestServer(t)
	root := s.bootstrap()
	c := s.campus(root, "Dhanmondi", "01700000001")

	// GIVEN: A student in two batches (5000 + 3000) with a discount of 1000
	st := s.student(c.admin, map[string]any{
		"name": "Nadia Islam", "phoneNumber": "01810000001", "institution": "VNC",
		"discount": 1000, "batchIds": []int64{c.physics, c.chemistry},
	})
	assert.Equal(t, 8000.0, st.InitialDue)
	assert.Equal(t, 1000.0, st.Discount)
	assert.Equal(t, 7000.0, st.FinalDue)
	require.NotNil(t, st.CoachingBranchID)
	assert.Equal(t, c.branch, *st.CoachingBranchID)
	paymentsPath := fmt.Sprintf("/api/students/%d/payments", st.ID)

	// WHEN: The whole due is paid
	rec := s.do(http.MethodPost, paymentsPath, c.admin, map[string]any{"amount": 7000, "date": "2025-02-01", "note": "full"})

	// THEN: Installment 1 is recorded and nothing is left
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	paid := decodeBody[PaymentResponse](t, rec)
	assert.Equal(t, 1, paid.Payment.InstallmentNumber)
	assert.Equal(t, "2025-02-01", paid.Payment.Date)
	assert.Equal(t, 0.0, paid.Due.FinalDue)
	assert.Equal(t, 7000.0, paid.Due.TotalPaid)
	assert.True(t, paid.Due.Settled)

	// WHEN: One more unit is paid
	rec = s.do(http.MethodPost, paymentsPath, c.admin, map[string]any{"amount": 1})

	// THEN: Overdraft is a 400 business rule and the ledger is unchanged
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "business_rule", decodeBody[ErrorResponse](t, rec).Code)

	rec = s.do(http.MethodGet, paymentsPath, c.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]PaymentDTO](t, rec), 1)

	// Negative and missing amounts never reach the ledger.
	rec = s.do(http.MethodPost, paymentsPath, c.admin, map[string]any{"amount": -5})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_failed", decodeBody[ErrorResponse](t, rec).Code)

	rec = s.do(http.MethodPost, paymentsPath, c.admin, map[string]any{"note": "no amount"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeBody[ErrorResponse](t, rec).Details, "amount")

	rec = s.do(http.MethodPost, paymentsPath, c.admin, map[string]any{"amount": 1, "date": "yesterday"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// The super admin sees the payment in the ledger listing.
	rec = s.do(http.MethodGet, "/api/students/payments?search=nadia", root, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	listing := decodeBody[[]PaymentListingDTO](t, rec)
	require.Len(t, listing, 1)
	assert.Equal(t, "Nadia Islam", listing[0].Student.Name)
	assert.Equal(t, 7000.0, listing[0].Amount)

	// Lowering an amount is always accepted.
	editPath := fmt.Sprintf("/api/students/payments/%d", paid.Payment.ID)
	rec = s.do(http.MethodPut, editPath, root, map[string]any{"amount": "6000", "note": "corrected"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	edited := decodeBody[PaymentResponse](t, rec)
	assert.Equal(t, 1000.0, edited.Due.FinalDue)
	require.NotNil(t, edited.Payment.Note)
	assert.Equal(t, "corrected", *edited.Payment.Note)
	assert.Equal(t, 1, edited.Payment.InstallmentNumber)

	// Raising it past the due is an overdraft.
	rec = s.do(http.MethodPut, editPath, root, map[string]any{"amount": 8000})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Admins cannot edit payments.
	rec = s.do(http.MethodPut, editPath, c.admin, map[string]any{"amount": 1})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// The due endpoint agrees with the student view.
	rec = s.do(http.MethodGet, fmt.Sprintf("/api/students/%d/due", st.ID), c.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.Equal(t, 1000.0, decodeBody[DueDTO](t, rec).FinalDue)

	rec = s.do(http.MethodGet, fmt.Sprintf("/api/students/%d", st.ID), c.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody[StudentDTO](t, rec)
	assert.Equal(t, 1000.0, got.FinalDue)
	assert.Len(t, got.Batches, 2)
	assert.Len(t, got.Payments, 1)
}

func TestPaymentDate_EmptyMeansDefault(t *testing.T) {
	s := newTestServer(t)
	root := s.bootstrap()
	c := s.campus(root, "Dhanmondi", "01700000001")
	st := s.student(c.admin, map[string]any{
		"name": "Nadia", "phoneNumber": "01810000001", "institution": "VNC", "batchIds": []int64{c.physics},
	})
	paymentsPath := fmt.Sprintf("/api/students/%d/payments", st.ID)

	// GIVEN: A payment posted with an empty date
	rec := s.do(http.MethodPost, paymentsPath, c.admin, map[string]any{"amount": 100, "date": ""})

	// THEN: It is dated today
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	posted := decodeBody[PaymentResponse](t, rec)
	assert.Equal(t, time.Now().UTC().Format("2006-01-02"), posted.Payment.Date)

	// GIVEN: A payment with an explicit date
	rec = s.do(http.MethodPost, paymentsPath, c.admin, map[string]any{"amount": 100, "date": "2025-02-01"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	dated := decodeBody[PaymentResponse](t, rec)
	editPath := fmt.Sprintf("/api/students/payments/%d", dated.Payment.ID)

	// WHEN: It is edited with an empty date
	rec = s.do(http.MethodPut, editPath, root, map[string]any{"date": "", "note": "checked"})

	// THEN: The recorded date is kept
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "2025-02-01", decodeBody[PaymentResponse](t, rec).Payment.Date)

	// A malformed date is still rejected on both paths.
	rec = s.do(http.MethodPut, editPath, root, map[string]any{"date": "soon"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = s.do(http.MethodPost, paymentsPath, c.admin, map[string]any{"amount": 1, "date": "soon"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAddPayment_SubCentAmountRejected(t *testing.T) {
	s := newTestServer(t)
	root := s.bootstrap()
	c := s.campus(root, "Dhanmondi", "01700000001")
	st := s.student(c.admin, map[string]any{
		"name": "Nadia", "phoneNumber": "01810000001", "institution": "VNC", "batchIds": []int64{c.physics},
	})

	rec := s.do(http.MethodPost, fmt.Sprintf("/api/students/%d/payments", st.ID), c.admin, map[string]any{"amount": "0.004"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_failed", decodeBody[ErrorResponse](t, rec).Code)
	rec = s.do(http.MethodGet, fmt.Sprintf("/api/students/%d/payments", st.ID), c.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeBody[[]PaymentDTO](t, rec))
}

func TestAddPayment_UnknownStudent(t *testing.T) {
	s := newTestServer(t)
	root := s.bootstrap()

	rec := s.do(http.MethodPost, "/api/students/999/payments", root, map[string]any{"amount": 10})

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decodeBody[ErrorResponse](t, rec).Code)
}

// =============================================================================
// STUDENTS AND ENROLLMENT
// =============================================================================

func TestStudents_ScopedToAdminBranch(t *testing.T) {
	// GIVEN: Two branches, each with its own admin
	s := newTestServer(t)
	root := s.bootstrap()
	a := s.campus(root, "Uttara", "01700000011")
	b := s.campus(root, "Mirpur", "01700000012")

	st := s.student(a.admin, map[string]any{
		"name": "Arif", "phoneNumber": "01910000001", "institution": "RUMC",
		"batchIds": []int64{a.physics},
	})
	studentPath := fmt.Sprintf("/api/students/%d", st.ID)

	// THEN: The other branch admin can neither see nor touch the student
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodGet, studentPath, b.admin, nil).Code)
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodPut, studentPath, b.admin, map[string]any{"name": "X"}).Code)
	assert.Equal(t, http.StatusForbidden,
		s.do(http.MethodPost, studentPath+"/payments", b.admin, map[string]any{"amount": 10}).Code)

	rec := s.do(http.MethodGet, "/api/students", b.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeBody[[]StudentDTO](t, rec))

	// AND: Cannot place a new student in the other branch
	rec = s.do(http.MethodPost, "/api/students", b.admin, map[string]any{
		"name": "Y", "phoneNumber": "1", "institution": "Z", "coachingBranchId": a.branch,
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// AND: The super admin sees everyone
	rec = s.do(http.MethodGet, "/api/students", root, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]StudentDTO](t, rec), 1)
}

func TestUpdateStudent_PartialAndReEnroll(t *testing.T) {
	s := newTestServer(t)
	root := s.bootstrap()
	c := s.campus(root, "Dhanmondi", "01700000001")
	st := s.student(c.admin, map[string]any{
		"name": "Tanvir", "phoneNumber": "01810000002", "institution": "DC",
		"email": "tanvir@example.com", "batchIds": []int64{c.physics},
	})
	path := fmt.Sprintf("/api/students/%d", st.ID)

	// Clear email, switch to chemistry, keep everything else.
	rec := s.do(http.MethodPut, path, c.admin, map[string]any{
		"email": nil, "batchIds": []int64{c.chemistry},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decodeBody[StudentDTO](t, rec)
	assert.Nil(t, got.Email)
	assert.Equal(t, "Tanvir", got.Name)
	require.Len(t, got.Batches, 1)
	assert.Equal(t, c.chemistry, got.Batches[0].ID)
	assert.Equal(t, 3000.0, got.InitialDue)

	// A negative discount is rejected by the service.
	rec = s.do(http.MethodPut, path, c.admin, map[string]any{"discount": -1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSetEnrollment(t *testing.T) {
	s := newTestServer(t)
	root := s.bootstrap()
	c := s.campus(root, "Dhanmondi", "01700000001")
	st := s.student(c.admin, map[string]any{"name": "Sadia", "phoneNumber": "01810000003", "institution": "HCC"})
	path := fmt.Sprintf("/api/students/%d/batches", st.ID)

	// Duplicates collapse, and repeating the call changes nothing.
	for i := 0; i < 2; i++ {
		rec := s.do(http.MethodPut, path, c.admin, EnrollmentRequest{BatchIDs: []int64{c.physics, c.physics}})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Len(t, decodeBody[[]BatchDTO](t, rec), 1)
	}

	// An unknown batch fails the whole request.
	rec := s.do(http.MethodPut, path, c.admin, EnrollmentRequest{BatchIDs: []int64{c.chemistry, 999}})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodGet, fmt.Sprintf("/api/students/%d", st.ID), c.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody[StudentDTO](t, rec)
	require.Len(t, got.Batches, 1)
	assert.Equal(t, c.physics, got.Batches[0].ID)
}

// =============================================================================
// CATALOG AND USERS
// =============================================================================

func TestBranchAdminLink(t *testing.T) {
	s := newTestServer(t)
	root := s.bootstrap()
	c := s.campus(root, "Dhanmondi", "01700000001")

	rec := s.do(http.MethodGet, fmt.Sprintf("/api/branches/%d", c.branch), root, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	branch := decodeBody[BranchDTO](t, rec)
	require.NotNil(t, branch.BranchAdminID)
	require.NotNil(t, branch.Admin)
	assert.Equal(t, "01700000001", branch.Admin.Mobile)
	adminID := *branch.BranchAdminID

	// Clearing the branch side clears the user side.
	rec = s.do(http.MethodPut, fmt.Sprintf("/api/branches/%d", c.branch), root, map[string]any{"branchAdminId": nil})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Nil(t, decodeBody[BranchDTO](t, rec).BranchAdminID)

	rec = s.do(http.MethodGet, fmt.Sprintf("/api/users/%d", adminID), root, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, decodeBody[UserDTO](t, rec).BranchID)

	// Linking a non-admin user is rejected.
	rec = s.do(http.MethodPut, fmt.Sprintf("/api/branches/%d", c.branch), root, map[string]any{"branchAdminId": 1})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCatalog(t *testing.T) {
	s := newTestServer(t)
	root := s.bootstrap()
	c := s.campus(root, "Dhanmondi", "01700000001")

	t.Run("duplicate category name", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/api/categories", root, map[string]any{"name": "HSC Dhanmondi"})
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("categories with batches", func(t *testing.T) {
		rec := s.do(http.MethodGet, "/api/categories?withBatches=true", c.admin, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		categories := decodeBody[[]CategoryDTO](t, rec)
		require.Len(t, categories, 1)
		assert.Len(t, categories[0].Batches, 2)
	})

	t.Run("batch filters", func(t *testing.T) {
		rec := s.do(http.MethodGet, fmt.Sprintf("/api/batches?branchId=%d&search=chem", c.branch), c.admin, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		batches := decodeBody[[]BatchDTO](t, rec)
		require.Len(t, batches, 1)
		assert.Equal(t, 3000.0, batches[0].Cost)
		require.Len(t, batches[0].Branches, 1)
		assert.Equal(t, c.branch, batches[0].Branches[0].ID)
	})

	t.Run("bad query id", func(t *testing.T) {
		rec := s.do(http.MethodGet, "/api/batches?categoryId=abc", c.admin, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("batch validation reports fields", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/api/batches", root, map[string]any{"name": "Incomplete"})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		resp := decodeBody[ErrorResponse](t, rec)
		assert.Equal(t, "validation_failed", resp.Code)
		details, ok := resp.Details.(map[string]any)
		require.True(t, ok, "details should be a field map")
		assert.Contains(t, details, "batchCode")
		assert.Contains(t, details, "cost")
		assert.Contains(t, details, "branchIds")
	})

	t.Run("unknown branch on batch", func(t *testing.T) {
		rec := s.do(http.MethodPut, fmt.Sprintf("/api/batches/%d", c.physics), root, map[string]any{
			"branchIds": []int64{c.branch, 999},
		})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/api/categories", root, "{not json")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Invalid request body", decodeBody[ErrorResponse](t, rec).Error)
	})

	t.Run("bad path id", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/api/branches/abc", root, nil).Code)
		assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/branches/999", root, nil).Code)
	})

	t.Run("delete category cascades to batches", func(t *testing.T) {
		rec := s.do(http.MethodGet, "/api/categories", root, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		categories := decodeBody[[]CategoryDTO](t, rec)
		require.Len(t, categories, 1)

		rec = s.do(http.MethodDelete, fmt.Sprintf("/api/categories/%d", categories[0].ID), root, nil)
		require.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, fmt.Sprintf("/api/batches/%d", c.physics), root, nil).Code)
	})
}

func TestUsers(t *testing.T) {
	s := newTestServer(t)
	root := s.bootstrap()
	c := s.campus(root, "Dhanmondi", "01700000001")

	t.Run("duplicate mobile", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/api/users", root, map[string]any{
			"fullName": "Copy", "mobile": "01700000001", "password": "admin123",
		})
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("search", func(t *testing.T) {
		rec := s.do(http.MethodGet, "/api/users?search=Admin", c.admin, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		users := decodeBody[[]UserDTO](t, rec)
		require.Len(t, users, 1)
		assert.Equal(t, portal.RoleAdmin, users[0].Role)
	})

	t.Run("password change", func(t *testing.T) {
		rec := s.do(http.MethodGet, "/api/users?search=01700000001", root, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		id := decodeBody[[]UserDTO](t, rec)[0].ID

		rec = s.do(http.MethodPut, fmt.Sprintf("/api/users/%d", id), root, map[string]any{"password": "changed1"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		s.login("01700000001", "changed1")
	})

	t.Run("super admin cannot be deleted as an admin", func(t *testing.T) {
		rec := s.do(http.MethodDelete, "/api/users/1", root, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("deleted admin loses access", func(t *testing.T) {
		rec := s.do(http.MethodGet, "/api/users?search=01700000001", root, nil)
		id := decodeBody[[]UserDTO](t, rec)[0].ID

		rec = s.do(http.MethodDelete, fmt.Sprintf("/api/users/%d", id), root, nil)
		require.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/api/branches", c.admin, nil).Code)

		rec = s.do(http.MethodGet, fmt.Sprintf("/api/branches/%d", c.branch), root, nil)
		assert.Nil(t, decodeBody[BranchDTO](t, rec).BranchAdminID)
	})
}

// =============================================================================
// AUDIT
// =============================================================================

func TestAuditDues(t *testing.T) {
	// GIVEN: A fully paid student whose batch then gets cheaper
	s := newTestServer(t)
	root := s.bootstrap()
	c := s.campus(root, "Dhanmondi", "01700000001")
	st := s.student(c.admin, map[string]any{
		"name": "Nadia", "phoneNumber": "01810000001", "institution": "VNC",
		"batchIds": []int64{c.physics},
	})
	rec := s.do(http.MethodPost, fmt.Sprintf("/api/students/%d/payments", st.ID), c.admin, map[string]any{"amount": 5000})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = s.do(http.MethodPut, fmt.Sprintf("/api/batches/%d", c.physics), root, map[string]any{"cost": 4000})
	require.Equal(t, http.StatusOK, rec.Code)

	// WHEN: The audit runs
	rec = s.do(http.MethodGet, "/api/audit/dues?fresh=true", root, nil)

	// THEN: The overpaid student is reported with the negative due
	require.Equal(t, http.StatusOK, rec.Code)
	report := decodeBody[AuditReportDTO](t, rec)
	assert.Equal(t, 1, report.Checked)
	require.Len(t, report.Overdrawn, 1)
	assert.Equal(t, st.ID, report.Overdrawn[0].ID)
	assert.Equal(t, -1000.0, report.Overdrawn[0].FinalDue)
}
