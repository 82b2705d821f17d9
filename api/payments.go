package api

import (
	"net/http"

	"github.com/sciencemaster/portal/portal"
)

// =============================================================================
// PAYMENT ENDPOINTS
// =============================================================================

// AddPayment posts the next installment for a student and returns it with
// the recomputed due.
func (h *Handler) AddPayment(w http.ResponseWriter, r *http.Request) {
	studentID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req PaymentRequest
	if !h.decode(w, r, &req) {
		return
	}

	date, err := optionalDate(req.Date)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	in := portal.PaymentInput{Amount: *req.Amount, Date: date, Note: req.Note}

	result, err := h.Service.AddPayment(r.Context(), actor(r), studentID, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPaymentResponse(result))
}

// UpdatePayment edits an installment. Raising the amount is re-checked
// against the student's due.
func (h *Handler) UpdatePayment(w http.ResponseWriter, r *http.Request) {
	paymentID, ok := pathID(w, r, "paymentId")
	if !ok {
		return
	}
	var req PaymentPatchRequest
	if !h.decode(w, r, &req) {
		return
	}

	// An empty date leaves the recorded one unchanged.
	date, err := optionalDate(req.Date)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	patch := portal.PaymentPatch{Amount: req.Amount, Date: date, Note: req.Note}

	result, err := h.Service.UpdatePayment(r.Context(), actor(r), paymentID, patch)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentResponse(result))
}

// ListPayments lists the whole ledger, newest first; ?search= matches the
// student's name or phone number.
func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	listings, err := h.Service.ListPayments(r.Context(), actor(r), r.URL.Query().Get("search"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	result := make([]PaymentListingDTO, 0, len(listings))
	for i := range listings {
		l := &listings[i]
		result = append(result, PaymentListingDTO{
			PaymentDTO: toPaymentDTO(&l.Payment),
			Student: StudentRefDTO{
				ID:          l.Student.ID,
				Name:        l.Student.Name,
				PhoneNumber: l.Student.PhoneNumber,
			},
		})
	}
	writeJSON(w, http.StatusOK, result)
}

// StudentPayments returns one student's ledger in installment order.
func (h *Handler) StudentPayments(w http.ResponseWriter, r *http.Request) {
	studentID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	payments, err := h.Service.StudentPayments(r.Context(), actor(r), studentID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentDTOs(payments))
}

// StudentDue returns the due breakdown of one student as of now.
func (h *Handler) StudentDue(w http.ResponseWriter, r *http.Request) {
	studentID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	due, err := h.Service.Due(r.Context(), actor(r), studentID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, toDueDTO(due))
}
