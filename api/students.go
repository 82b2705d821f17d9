package api

import (
	"net/http"

	"github.com/sciencemaster/portal/portal"
)

// =============================================================================
// STUDENT ENDPOINTS
// =============================================================================

// ListStudents lists visible students, each augmented with the due
// breakdown. Supports ?branchId= and ?search=.
func (h *Handler) ListStudents(w http.ResponseWriter, r *http.Request) {
	branchID, ok := queryID(w, r, "branchId")
	if !ok {
		return
	}

	accounts, err := h.Service.ListStudents(r.Context(), actor(r), portal.StudentFilter{
		BranchID: branchID,
		Search:   r.URL.Query().Get("search"),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	result := make([]StudentDTO, 0, len(accounts))
	for i := range accounts {
		result = append(result, toStudentDTO(&accounts[i]))
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) GetStudent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	account, err := h.Service.GetStudent(r.Context(), actor(r), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toStudentDTO(account))
}

// CreateStudent registers a student and enrolls them in batchIds.
func (h *Handler) CreateStudent(w http.ResponseWriter, r *http.Request) {
	var req StudentRequest
	if !h.decode(w, r, &req) {
		return
	}

	account, err := h.Service.CreateStudent(r.Context(), actor(r), portal.StudentInput{
		Name:             req.Name,
		PhoneNumber:      req.PhoneNumber,
		Institution:      req.Institution,
		Email:            req.Email,
		Photo:            req.Photo,
		GPA:              req.GPA,
		Discount:         req.Discount,
		CoachingBranchID: req.CoachingBranchID,
		BatchIDs:         req.BatchIDs,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toStudentDTO(account))
}

// UpdateStudent applies a partial update; batchIds, when present, replaces
// the enrollment.
func (h *Handler) UpdateStudent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req StudentPatchRequest
	if !h.decode(w, r, &req) {
		return
	}

	account, err := h.Service.UpdateStudent(r.Context(), actor(r), id, portal.StudentPatch{
		Name:             req.Name,
		PhoneNumber:      req.PhoneNumber,
		Institution:      req.Institution,
		Email:            req.Email,
		Photo:            req.Photo,
		GPA:              req.GPA,
		Discount:         req.Discount,
		CoachingBranchID: req.CoachingBranchID,
		BatchIDs:         req.BatchIDs,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toStudentDTO(account))
}

// SetEnrollment replaces the set of batches a student is enrolled in.
func (h *Handler) SetEnrollment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req EnrollmentRequest
	if !h.decode(w, r, &req) {
		return
	}

	batches, err := h.Service.SetEnrollment(r.Context(), actor(r), id, req.BatchIDs)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBatchDTOs(batches))
}
