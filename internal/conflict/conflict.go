// Package conflict decides whether a requester's candidate time window
// overlaps something they have already committed to on the same day.
//
// Windows are half-open intervals [start, end): an activity ending at 11:00
// and another starting at 11:00 do not conflict.
package conflict

import (
	"time"

	"github.com/aldicoding12/frontend-ulil-sub000/internal/apperr"
	"github.com/aldicoding12/frontend-ulil-sub000/internal/calendar"
	"github.com/aldicoding12/frontend-ulil-sub000/internal/model"
)

// Overlaps reports whether [aStart, aEnd) and [bStart, bEnd) intersect.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// Detector compares windows within a single calendar day of loc.
type Detector struct {
	loc *time.Location
}

// NewDetector constructs a Detector for the given time zone.
func NewDetector(loc *time.Location) *Detector {
	if loc == nil {
		loc = time.UTC
	}
	return &Detector{loc: loc}
}

// ValidateWindow rejects empty or inverted windows and windows that cross
// into another calendar day. Ending exactly at the following midnight is
// allowed.
func (d *Detector) ValidateWindow(start, end time.Time) error {
	if start.IsZero() {
		return apperr.Validation("start", "is required")
	}
	if !end.After(start) {
		return apperr.Validation("end", "must be after start")
	}
	if !d.sameDay(start, end) {
		return apperr.Validation("end", "must fall on the same day as start")
	}
	return nil
}

func (d *Detector) sameDay(start, end time.Time) bool {
	startKey := calendar.DateKey(start, d.loc)
	if calendar.DateKey(end, d.loc) == startKey {
		return true
	}
	e := end.In(d.loc)
	midnight := e.Hour() == 0 && e.Minute() == 0 && e.Second() == 0 && e.Nanosecond() == 0
	return midnight && calendar.DateKey(e.Add(-time.Nanosecond), d.loc) == startKey
}

// Find returns the earliest commitment of the same requester on the same
// date that overlaps candidate.
func (d *Detector) Find(candidate model.Window, existing []model.Commitment) (*model.Commitment, bool) {
	phone := model.NormalizePhone(candidate.Phone)
	key := calendar.DateKey(candidate.Start, d.loc)

	var found *model.Commitment
	for i := range existing {
		c := existing[i]
		if model.NormalizePhone(c.Phone) != phone || c.DateKey != key {
			continue
		}
		if !Overlaps(candidate.Start, candidate.End, c.Start, c.End) {
			continue
		}
		if found == nil || c.Start.Before(found.Start) {
			found = &c
		}
	}
	return found, found != nil
}

// HasConflict is Find without the commitment.
func (d *Detector) HasConflict(candidate model.Window, existing []model.Commitment) bool {
	_, ok := d.Find(candidate, existing)
	return ok
}

// Check validates candidate and returns a ConflictError naming the clashing
// commitment, or nil.
func (d *Detector) Check(candidate model.Window, existing []model.Commitment) error {
	if err := d.ValidateWindow(candidate.Start, candidate.End); err != nil {
		return err
	}
	if c, ok := d.Find(candidate, existing); ok {
		return apperr.Conflict(*c)
	}
	return nil
}

// FromRegistration derives the commitment a registration represents.
func (d *Detector) FromRegistration(reg model.Registration, a model.Activity) model.Commitment {
	return model.Commitment{
		Source:   model.SourceRegistration,
		SourceID: reg.ID,
		Title:    a.Title,
		Phone:    reg.Requester.Phone,
		DateKey:  calendar.DateKey(a.StartsAt, d.loc),
		Start:    a.StartsAt,
		End:      a.EndsAt,
	}
}

// FromBorrowing derives the commitment of an open borrowing request. Only
// requests whose window lies within one calendar day yield a commitment;
// multi-day custody is not a time-of-day commitment.
func (d *Detector) FromBorrowing(req model.BorrowingRequest, itemName string) (model.Commitment, bool) {
	if req.Status != model.BorrowPending && req.Status != model.BorrowApproved {
		return model.Commitment{}, false
	}
	if !req.ReturnDate.After(req.BorrowDate) || !d.sameDay(req.BorrowDate, req.ReturnDate) {
		return model.Commitment{}, false
	}
	return model.Commitment{
		Source:   model.SourceBorrowing,
		SourceID: req.ID,
		Title:    itemName,
		Phone:    req.Borrower.Phone,
		DateKey:  calendar.DateKey(req.BorrowDate, d.loc),
		Start:    req.BorrowDate,
		End:      req.ReturnDate,
	}, true
}
