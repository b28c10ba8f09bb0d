// Package lifecycle governs the borrowing request state machine:
//
//	pending ──approve──▶ approved ──markReturned──▶ returned
//	   │
//	   └──reject──▶ rejected
//
// Returned and rejected are terminal. Every transition takes a request by
// value and returns the next value, so a failed guard leaves the caller's
// copy untouched.
package lifecycle

import (
	"strings"
	"time"

	"github.com/aldicoding12/frontend-ulil-sub000/internal/apperr"
	"github.com/aldicoding12/frontend-ulil-sub000/internal/calendar"
	"github.com/aldicoding12/frontend-ulil-sub000/internal/capacity"
	"github.com/aldicoding12/frontend-ulil-sub000/internal/model"
)

// Machine applies transitions. Date comparisons use loc.
type Machine struct {
	loc *time.Location
}

// New constructs a Machine for the given time zone.
func New(loc *time.Location) *Machine {
	if loc == nil {
		loc = time.UTC
	}
	return &Machine{loc: loc}
}

// NewRequest validates in and builds a pending request for item. Submitting
// does not reserve a unit.
func (m *Machine) NewRequest(id string, item model.InventoryItem, in model.BorrowRequest, now time.Time) (model.BorrowingRequest, error) {
	if !item.IsLendable {
		return model.BorrowingRequest{}, apperr.NotLendable("item %q is not lendable", item.Name)
	}
	if item.Condition != model.ConditionGood {
		return model.BorrowingRequest{}, apperr.NotLendable("item %q is %s", item.Name, item.Condition)
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return model.BorrowingRequest{}, apperr.Validation("name", "is required")
	}
	phone := model.NormalizePhone(in.Phone)
	if len(phone) < 8 {
		return model.BorrowingRequest{}, apperr.Validation("phone", "is not a valid phone number")
	}
	doc := strings.TrimSpace(in.DocumentURL)
	if doc == "" {
		return model.BorrowingRequest{}, apperr.Validation("document_url", "is required")
	}
	if in.BorrowDate.IsZero() {
		return model.BorrowingRequest{}, apperr.Validation("borrow_date", "is required")
	}
	if !in.ReturnDate.After(in.BorrowDate) {
		return model.BorrowingRequest{}, apperr.Validation("return_date", "must be after borrow_date")
	}

	return model.BorrowingRequest{
		ID:          id,
		ItemID:      item.ID,
		Borrower:    model.Requester{Name: name, Phone: phone},
		Purpose:     strings.TrimSpace(in.Purpose),
		BorrowDate:  in.BorrowDate,
		ReturnDate:  in.ReturnDate,
		DocumentURL: doc,
		Status:      model.BorrowPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Approve moves a pending request to approved. approved is the number of
// requests of the same item already approved, counted inside the caller's
// lock.
func (m *Machine) Approve(req model.BorrowingRequest, item model.InventoryItem, approved int, approver string, now time.Time) (model.BorrowingRequest, error) {
	if req.Status != model.BorrowPending {
		return req, apperr.StateTransition("approve", req.Status)
	}
	approver = strings.TrimSpace(approver)
	if approver == "" {
		return req, apperr.Validation("approver", "is required")
	}
	if err := capacity.CheckApproval(item, approved); err != nil {
		return req, err
	}

	next := req
	next.Status = model.BorrowApproved
	next.ApprovedBy = &approver
	next.ApprovedAt = &now
	next.UpdatedAt = now
	return next, nil
}

// Reject moves a pending request to rejected. A reason is mandatory; actor
// is recorded when given.
func (m *Machine) Reject(req model.BorrowingRequest, reason, actor string, now time.Time) (model.BorrowingRequest, error) {
	if req.Status != model.BorrowPending {
		return req, apperr.StateTransition("reject", req.Status)
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return req, apperr.Validation("reason", "is required")
	}

	next := req
	next.Status = model.BorrowRejected
	next.RejectionReason = &reason
	next.RejectedAt = &now
	if actor = strings.TrimSpace(actor); actor != "" {
		next.RejectedBy = &actor
	}
	next.UpdatedAt = now
	return next, nil
}

// MarkReturned moves an approved request to returned. The actual return date
// may not precede the borrow date.
func (m *Machine) MarkReturned(req model.BorrowingRequest, actual time.Time, now time.Time) (model.BorrowingRequest, error) {
	if req.Status != model.BorrowApproved {
		return req, apperr.StateTransition("mark returned", req.Status)
	}
	if actual.IsZero() {
		return req, apperr.Validation("actual_return_date", "is required")
	}
	if calendar.DateKey(actual, m.loc) < calendar.DateKey(req.BorrowDate, m.loc) {
		return req, apperr.Validation("actual_return_date", "must not be before borrow_date")
	}

	next := req
	next.Status = model.BorrowReturned
	next.ActualReturnDate = &actual
	next.UpdatedAt = now
	return next, nil
}
