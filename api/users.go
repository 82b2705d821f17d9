package api

import (
	"net/http"

	"github.com/sciencemaster/portal/portal"
)

// =============================================================================
// USER ENDPOINTS
// =============================================================================

// Login exchanges a phone number and password for a signed token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !h.decode(w, r, &req) {
		return
	}

	user, err := h.Service.Login(r.Context(), req.PhoneNumber, req.Password)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	token, err := h.Tokens.Issue(user)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, LoginResponse{Token: token, User: toUserDTO(user)})
}

// CreateSuperAdmin bootstraps the single super admin account.
func (h *Handler) CreateSuperAdmin(w http.ResponseWriter, r *http.Request) {
	var req SuperAdminRequest
	if !h.decode(w, r, &req) {
		return
	}

	user, err := h.Service.CreateSuperAdmin(r.Context(), portal.SuperAdminInput{
		FullName: req.FullName,
		Mobile:   req.Mobile,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserDTO(user))
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Service.ListUsers(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	result := make([]UserDTO, 0, len(users))
	for i := range users {
		result = append(result, toUserDTO(&users[i]))
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	user, err := h.Service.GetUser(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserDTO(user))
}

// CreateAdmin adds a branch admin, optionally linked to a branch.
func (h *Handler) CreateAdmin(w http.ResponseWriter, r *http.Request) {
	var req AdminRequest
	if !h.decode(w, r, &req) {
		return
	}

	user, err := h.Service.CreateAdmin(r.Context(), portal.AdminInput{
		FullName: req.FullName,
		Mobile:   req.Mobile,
		Email:    req.Email,
		Password: req.Password,
		BranchID: req.BranchID,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserDTO(user))
}

func (h *Handler) UpdateAdmin(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req AdminPatchRequest
	if !h.decode(w, r, &req) {
		return
	}

	user, err := h.Service.UpdateAdmin(r.Context(), id, portal.AdminPatch{
		FullName: req.FullName,
		Mobile:   req.Mobile,
		Email:    req.Email,
		Password: req.Password,
		BranchID: req.BranchID,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserDTO(user))
}

func (h *Handler) DeleteAdmin(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.Service.DeleteAdmin(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
