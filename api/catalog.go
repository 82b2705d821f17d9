package api

import (
	"net/http"
	"strconv"

	"github.com/sciencemaster/portal/portal"
)

// =============================================================================
// CATEGORY ENDPOINTS
// =============================================================================

// ListCategories lists categories; ?withBatches=true embeds their batches.
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	withBatches, _ := strconv.ParseBool(r.URL.Query().Get("withBatches"))

	categories, err := h.Service.ListCategories(r.Context(), withBatches)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	result := make([]CategoryDTO, 0, len(categories))
	for i := range categories {
		result = append(result, toCategoryDTO(&categories[i]))
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) GetCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	category, err := h.Service.GetCategory(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCategoryDTO(category))
}

func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req CategoryRequest
	if !h.decode(w, r, &req) {
		return
	}
	category, err := h.Service.CreateCategory(r.Context(), portal.CategoryInput{Name: req.Name})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCategoryDTO(category))
}

func (h *Handler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req CategoryPatchRequest
	if !h.decode(w, r, &req) {
		return
	}
	category, err := h.Service.UpdateCategory(r.Context(), id, portal.CategoryPatch{Name: req.Name})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCategoryDTO(category))
}

// DeleteCategory removes a category together with its batches.
func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.Service.DeleteCategory(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// BATCH ENDPOINTS
// =============================================================================

// ListBatches supports ?categoryId=, ?branchId= and ?search=.
func (h *Handler) ListBatches(w http.ResponseWriter, r *http.Request) {
	categoryID, ok := queryID(w, r, "categoryId")
	if !ok {
		return
	}
	branchID, ok := queryID(w, r, "branchId")
	if !ok {
		return
	}

	batches, err := h.Service.ListBatches(r.Context(), portal.BatchFilter{
		CategoryID: categoryID,
		BranchID:   branchID,
		Search:     r.URL.Query().Get("search"),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBatchDTOs(batches))
}

func (h *Handler) GetBatch(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	batch, err := h.Service.GetBatch(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBatchDTO(batch))
}

func (h *Handler) CreateBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if !h.decode(w, r, &req) {
		return
	}

	batch, err := h.Service.CreateBatch(r.Context(), portal.BatchInput{
		BatchCode:  req.BatchCode,
		Name:       req.Name,
		Cost:       req.Cost,
		CategoryID: req.CategoryID,
		BranchIDs:  req.BranchIDs,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toBatchDTO(batch))
}

// UpdateBatch applies a partial update; branchIds, when present, replaces
// the branch set.
func (h *Handler) UpdateBatch(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req BatchPatchRequest
	if !h.decode(w, r, &req) {
		return
	}

	batch, err := h.Service.UpdateBatch(r.Context(), id, portal.BatchPatch{
		BatchCode:  req.BatchCode,
		Name:       req.Name,
		Cost:       req.Cost,
		CategoryID: req.CategoryID,
		BranchIDs:  req.BranchIDs,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBatchDTO(batch))
}

func (h *Handler) DeleteBatch(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.Service.DeleteBatch(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
