/*
handlers.go - HTTP handler plumbing for the portal API

PURPOSE:
  Holds the Handler (the dependencies every endpoint needs) and the shared
  request/response helpers. The endpoints themselves live in one file per
  resource.

REQUEST FLOW:
  1. Parse URL params and query string
  2. Decode the JSON body and run the validator
  3. Call the portal.Service with the authenticated actor
  4. Convert the result to a DTO and write it
  5. Map any error to a status with errors.Is

ERROR HANDLING:
  Errors are returned as {"error", "code", "details"} with:
  - 400: validation errors, malformed bodies, payment overdraft
  - 401: missing or invalid token, wrong credentials
  - 403: role or branch mismatch
  - 404: resource not found
  - 409: uniqueness conflicts, second super admin
  - 500: anything else (logged, never echoed to the client)

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - users.go, branches.go, catalog.go, students.go, payments.go: endpoints
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/sciencemaster/portal/auth"
	"github.com/sciencemaster/portal/portal"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Pinger reports whether the database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service *portal.Service
	Tokens  *auth.Tokens
	DB      Pinger
	Auditor *DueAuditor // replaced by cmd/server with a scheduled one

	auth     *auth.Middleware
	validate *validator.Validate
}

// NewHandler creates a handler over the given service.
func NewHandler(svc *portal.Service, tokens *auth.Tokens, db Pinger) *Handler {
	h := &Handler{
		Service:  svc,
		Tokens:   tokens,
		DB:       db,
		Auditor:  NewDueAuditor(svc, 0),
		validate: newValidator(),
	}
	h.auth = auth.NewMiddleware(tokens, svc, h.fail)
	return h
}

// newValidator reports fields by their JSON name.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// =============================================================================
// STATUS
// =============================================================================

// Status reports liveness and database reachability.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	if err := h.DB.Ping(r.Context()); err != nil {
		log.Printf("❌ Database ping failed: %v", err)
		writeJSON(w, http.StatusServiceUnavailable, StatusResponse{Status: "degraded", Database: "unreachable"})
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{Status: "ok", Database: "ok"})
}

// =============================================================================
// REQUEST HELPERS
// =============================================================================

// decode reads a JSON body into dst and validates it. It writes the error
// response itself and returns false on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		var fields validator.ValidationErrors
		if errors.As(err, &fields) {
			details := make(map[string]string, len(fields))
			for _, fe := range fields {
				details[fe.Field()] = describe(fe)
			}
			writeJSON(w, http.StatusBadRequest, ErrorResponse{
				Error:   "Validation failed",
				Code:    "validation_failed",
				Details: details,
			})
			return false
		}
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	return true
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must have at least " + fe.Param() + " characters or items"
	case "gt":
		return "must be greater than " + fe.Param()
	default:
		return "failed " + fe.Tag()
	}
}

// pathID parses a positive integer URL parameter.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid "+name, nil)
		return 0, false
	}
	return id, true
}

// queryID parses an optional positive integer query parameter.
func queryID(w http.ResponseWriter, r *http.Request, name string) (*int64, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid "+name, nil)
		return nil, false
	}
	return &id, true
}

// actor returns the caller stored by the auth middleware.
func actor(r *http.Request) portal.Actor {
	a, _ := auth.ActorFrom(r.Context())
	return a
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// fail maps a service error to a status. It also renders failures of the
// auth middleware.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	if status == http.StatusInternalServerError {
		log.Printf("❌ %s %s [%s]: %v", r.Method, r.URL.Path, middleware.GetReqID(r.Context()), err)
		writeJSON(w, status, ErrorResponse{Error: "Internal server error", Code: code})
		return
	}
	writeJSON(w, status, ErrorResponse{Error: err.Error(), Code: code})
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, portal.ErrValidation):
		return http.StatusBadRequest, "validation_failed"
	case errors.Is(err, portal.ErrBusinessRule):
		return http.StatusBadRequest, "business_rule"
	case errors.Is(err, portal.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, portal.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, portal.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, portal.ErrConflict):
		return http.StatusConflict, "conflict"
	default:
		return http.StatusInternalServerError, "internal"
	}
}
