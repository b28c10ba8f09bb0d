package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/aldicoding12/frontend-ulil-sub000/internal/apperr"
	"github.com/aldicoding12/frontend-ulil-sub000/internal/model"
)

// CreateItem handles POST /inventory
func (h *ReservationHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req model.CreateItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadBody(w, err)
		return
	}

	it, err := h.svc.CreateItem(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, it)
}

// ListItems handles GET /inventory?q=&condition=&lendable=
// Each item carries currently_available.
func (h *ReservationHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := model.ItemFilter{Query: q.Get("q"), Condition: model.ItemCondition(q.Get("condition"))}
	if v := q.Get("lendable"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, r, apperr.Validation("lendable", "must be true or false"))
			return
		}
		f.Lendable = &b
	}

	items, err := h.svc.ListInventoryItems(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// GetItem handles GET /inventory/{id}
func (h *ReservationHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	it, err := h.svc.GetItem(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, it)
}

// UpdateItem handles PUT /inventory/{id}
func (h *ReservationHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadBody(w, err)
		return
	}

	it, err := h.svc.UpdateItem(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, it)
}

// DeleteItem handles DELETE /inventory/{id}
func (h *ReservationHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteItem(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Borrow handles POST /inventory/{id}/borrow
// The request starts pending and does not hold a unit until approved.
func (h *ReservationHandler) Borrow(w http.ResponseWriter, r *http.Request) {
	var req model.BorrowRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadBody(w, err)
		return
	}

	br, err := h.svc.RequestBorrow(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, br)
}

// ─── Borrowings ───────────────────────────────────────────────────────────────

// ListBorrowings handles GET /borrowings?item_id=&status=&phone=
func (h *ReservationHandler) ListBorrowings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	list, err := h.svc.ListBorrowings(r.Context(), model.BorrowingFilter{
		ItemID: q.Get("item_id"),
		Status: model.BorrowStatus(q.Get("status")),
		Phone:  q.Get("phone"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// GetBorrowing handles GET /borrowings/{id}
func (h *ReservationHandler) GetBorrowing(w http.ResponseWriter, r *http.Request) {
	br, err := h.svc.GetBorrowing(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, br)
}

// ApproveBorrowing handles POST /borrowings/{id}/approve
func (h *ReservationHandler) ApproveBorrowing(w http.ResponseWriter, r *http.Request) {
	var req model.ApproveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadBody(w, err)
		return
	}

	br, err := h.svc.ApproveBorrowing(r.Context(), chi.URLParam(r, "id"), req.Approver)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, br)
}

// RejectBorrowing handles POST /borrowings/{id}/reject
func (h *ReservationHandler) RejectBorrowing(w http.ResponseWriter, r *http.Request) {
	var req model.RejectRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadBody(w, err)
		return
	}

	br, err := h.svc.RejectBorrowing(r.Context(), chi.URLParam(r, "id"), req.Reason, req.Actor)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, br)
}

// MarkReturned handles POST /borrowings/{id}/return
// actual_return_date defaults to now when omitted.
func (h *ReservationHandler) MarkReturned(w http.ResponseWriter, r *http.Request) {
	var req model.ReturnRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		writeBadBody(w, err)
		return
	}
	if req.ActualReturnDate.IsZero() {
		req.ActualReturnDate = h.now()
	}

	br, err := h.svc.MarkReturned(r.Context(), chi.URLParam(r, "id"), req.ActualReturnDate)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, br)
}
