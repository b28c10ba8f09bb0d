package conflict

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aldicoding12/frontend-ulil-sub000/internal/apperr"
	"github.com/aldicoding12/frontend-ulil-sub000/internal/model"
)

var wib = time.FixedZone("WIB", 7*60*60)

func at(day, hour, minute int) time.Time {
	return time.Date(2025, 7, day, hour, minute, 0, 0, wib)
}

func commitment(id string, start, end time.Time) model.Commitment {
	return model.Commitment{
		Source:   model.SourceRegistration,
		SourceID: id,
		Title:    id,
		Phone:    "081234567890",
		DateKey:  start.In(wib).Format("2006-01-02"),
		Start:    start,
		End:      end,
	}
}

func TestOverlapLaw(t *testing.T) {
	cases := []struct {
		name         string
		aStart, aEnd time.Time
		bStart, bEnd time.Time
		want         bool
	}{
		{"partial overlap", at(1, 10, 0), at(1, 11, 0), at(1, 10, 30), at(1, 11, 30), true},
		{"touching boundary", at(1, 10, 0), at(1, 11, 0), at(1, 11, 0), at(1, 12, 0), false},
		{"contained", at(1, 9, 0), at(1, 12, 0), at(1, 10, 0), at(1, 11, 0), true},
		{"identical", at(1, 10, 0), at(1, 11, 0), at(1, 10, 0), at(1, 11, 0), true},
		{"disjoint", at(1, 8, 0), at(1, 9, 0), at(1, 10, 0), at(1, 11, 0), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Overlaps(tc.aStart, tc.aEnd, tc.bStart, tc.bEnd))
			assert.Equal(t, tc.want, Overlaps(tc.bStart, tc.bEnd, tc.aStart, tc.aEnd), "symmetry")
		})
	}
}

func TestFindReturnsConflictingCommitment(t *testing.T) {
	d := NewDetector(wib)
	existing := []model.Commitment{
		commitment("tahsin", at(1, 8, 0), at(1, 9, 0)),
		commitment("kajian", at(1, 10, 0), at(1, 11, 0)),
	}

	c, ok := d.Find(model.Window{Phone: "+62 812-3456-7890", Start: at(1, 10, 30), End: at(1, 11, 30)}, existing)
	require.True(t, ok)
	assert.Equal(t, "kajian", c.SourceID)

	assert.False(t, d.HasConflict(model.Window{Phone: "081234567890", Start: at(1, 11, 0), End: at(1, 12, 0)}, existing))
}

func TestFindPicksEarliestOfSeveral(t *testing.T) {
	d := NewDetector(wib)
	existing := []model.Commitment{
		commitment("second", at(1, 10, 0), at(1, 12, 0)),
		commitment("first", at(1, 9, 0), at(1, 10, 30)),
	}
	c, ok := d.Find(model.Window{Phone: "081234567890", Start: at(1, 10, 0), End: at(1, 11, 0)}, existing)
	require.True(t, ok)
	assert.Equal(t, "first", c.SourceID)
}

func TestFindIgnoresOtherRequestersAndDays(t *testing.T) {
	d := NewDetector(wib)
	other := commitment("other", at(1, 10, 0), at(1, 11, 0))
	other.Phone = "089999999999"
	nextDay := commitment("tomorrow", at(2, 10, 0), at(2, 11, 0))

	assert.False(t, d.HasConflict(model.Window{Phone: "081234567890", Start: at(1, 10, 0), End: at(1, 11, 0)},
		[]model.Commitment{other, nextDay}))
}

func TestCheckRejectsInvalidWindows(t *testing.T) {
	d := NewDetector(wib)

	err := d.Check(model.Window{Phone: "0812", Start: at(1, 11, 0), End: at(1, 10, 0)}, nil)
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	err = d.Check(model.Window{Phone: "0812", Start: at(1, 22, 0), End: at(2, 1, 0)}, nil)
	assert.True(t, errors.Is(err, apperr.ErrValidation), "midnight-spanning window")

	assert.NoError(t, d.Check(model.Window{Phone: "0812", Start: at(1, 22, 0), End: at(2, 0, 0)}, nil),
		"ending exactly at midnight stays on the same day")
}

func TestCheckReturnsConflictError(t *testing.T) {
	d := NewDetector(wib)
	existing := []model.Commitment{commitment("kajian", at(1, 10, 0), at(1, 11, 0))}

	err := d.Check(model.Window{Phone: "081234567890", Start: at(1, 10, 30), End: at(1, 11, 30)}, existing)
	require.True(t, errors.Is(err, apperr.ErrConflict))
	e, _ := apperr.As(err)
	assert.Equal(t, "kajian", e.Conflict.SourceID)
}

func TestFromBorrowing(t *testing.T) {
	d := NewDetector(wib)
	req := model.BorrowingRequest{
		ID:         "b1",
		Borrower:   model.Requester{Phone: "0812"},
		BorrowDate: at(3, 8, 0),
		ReturnDate: at(3, 12, 0),
		Status:     model.BorrowApproved,
	}
	c, ok := d.FromBorrowing(req, "Sound system")
	require.True(t, ok)
	assert.Equal(t, "2025-07-03", c.DateKey)
	assert.Equal(t, model.SourceBorrowing, c.Source)

	req.ReturnDate = at(5, 12, 0)
	_, ok = d.FromBorrowing(req, "Sound system")
	assert.False(t, ok, "multi-day custody")

	req.ReturnDate = at(3, 12, 0)
	req.Status = model.BorrowReturned
	_, ok = d.FromBorrowing(req, "Sound system")
	assert.False(t, ok, "finished request")
}
