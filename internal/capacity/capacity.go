// Package capacity computes remaining capacity for the two finite resources
// of the portal: activity seats and inventory units.
//
// The checks here are pure. Callers must run them inside the same locked
// unit of work that persists the resulting increment or approval, otherwise
// two callers can both observe the last free seat.
package capacity

import (
	"time"

	"github.com/aldicoding12/frontend-ulil-sub000/internal/apperr"
	"github.com/aldicoding12/frontend-ulil-sub000/internal/model"
)

// Remaining returns the free seats of a. Donation activities and activities
// that are not published never report free seats.
func Remaining(a model.Activity) int {
	if !a.IsRegular() || a.Status != model.ActivityPublished {
		return 0
	}
	return clamp(a.MaxParticipants - a.RegisteredCount)
}

// CheckRegistration decides whether one more registration may be accepted
// for a at instant now.
func CheckRegistration(a model.Activity, now time.Time) error {
	if !a.IsRegular() {
		return apperr.NotRegistrable("activity %q does not take registrations", a.Title)
	}
	if a.Status != model.ActivityPublished {
		return apperr.NotBookable("activity %q is %s", a.Title, a.Status)
	}
	if !now.Before(a.StartsAt) {
		return apperr.Passed("activity %q has already started", a.Title)
	}
	if Remaining(a) <= 0 {
		return apperr.CapacityExceeded("activity %q is full (%d/%d)", a.Title, a.RegisteredCount, a.MaxParticipants)
	}
	return nil
}

// Available returns the units of an item not held by approved borrowings.
func Available(quantity, approved int) int {
	return clamp(quantity - approved)
}

// CheckApproval decides whether one more borrowing of item may be approved
// given the number of requests already approved. Pending requests are not
// counted: they do not hold stock until approved.
func CheckApproval(item model.InventoryItem, approved int) error {
	if Available(item.Quantity, approved) <= 0 {
		return apperr.CapacityExceeded("item %q has no units available (%d of %d approved)", item.Name, approved, item.Quantity)
	}
	return nil
}

// Summarize attaches live capacity figures to item.
func Summarize(item model.InventoryItem, approved, pending int) model.ItemAvailability {
	avail := Available(item.Quantity, approved)
	return model.ItemAvailability{
		InventoryItem:      item,
		CurrentlyAvailable: avail,
		ApprovedCount:      approved,
		PendingCount:       pending,
		OverbookedPending:  pending > avail,
	}
}

func clamp(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
