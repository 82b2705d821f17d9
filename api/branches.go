package api

import (
	"net/http"

	"github.com/sciencemaster/portal/portal"
)

// =============================================================================
// BRANCH ENDPOINTS
// =============================================================================

func (h *Handler) ListBranches(w http.ResponseWriter, r *http.Request) {
	branches, err := h.Service.ListBranches(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	result := make([]BranchDTO, 0, len(branches))
	for i := range branches {
		result = append(result, toBranchDTO(&branches[i]))
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) GetBranch(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	branch, err := h.Service.GetBranch(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBranchDTO(branch))
}

// CreateBranch adds a branch, optionally linking an admin to it.
func (h *Handler) CreateBranch(w http.ResponseWriter, r *http.Request) {
	var req BranchRequest
	if !h.decode(w, r, &req) {
		return
	}

	branch, err := h.Service.CreateBranch(r.Context(), portal.BranchInput{
		Name:          req.Name,
		Location:      req.Location,
		BranchAdminID: req.BranchAdminID,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toBranchDTO(branch))
}

// UpdateBranch applies a partial update. "branchAdminId": null unlinks the
// current admin.
func (h *Handler) UpdateBranch(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req BranchPatchRequest
	if !h.decode(w, r, &req) {
		return
	}

	branch, err := h.Service.UpdateBranch(r.Context(), id, portal.BranchPatch{
		Name:          req.Name,
		Location:      req.Location,
		BranchAdminID: req.BranchAdminID,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBranchDTO(branch))
}

func (h *Handler) DeleteBranch(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.Service.DeleteBranch(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
