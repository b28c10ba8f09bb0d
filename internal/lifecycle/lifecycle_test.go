package lifecycle

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aldicoding12/frontend-ulil-sub000/internal/apperr"
	"github.com/aldicoding12/frontend-ulil-sub000/internal/model"
)

var (
	wib = time.FixedZone("WIB", 7*60*60)
	now = time.Date(2025, 7, 1, 9, 0, 0, 0, wib)
)

func lendable(qty int) model.InventoryItem {
	return model.InventoryItem{ID: "item-1", Name: "Tenda", Quantity: qty, Condition: model.ConditionGood, IsLendable: true}
}

func validInput() model.BorrowRequest {
	return model.BorrowRequest{
		Name:        "Ahmad",
		Phone:       "0812-3456-7890",
		Purpose:     "Walimah",
		BorrowDate:  time.Date(2025, 7, 5, 0, 0, 0, 0, wib),
		ReturnDate:  time.Date(2025, 7, 7, 0, 0, 0, 0, wib),
		DocumentURL: "https://files.example/ktp.jpg",
	}
}

func pending(t *testing.T, m *Machine) model.BorrowingRequest {
	t.Helper()
	req, err := m.NewRequest("req-1", lendable(3), validInput(), now)
	require.NoError(t, err)
	return req
}

func TestNewRequest(t *testing.T) {
	m := New(wib)
	req := pending(t, m)

	assert.Equal(t, model.BorrowPending, req.Status)
	assert.Equal(t, "081234567890", req.Borrower.Phone)
	assert.Equal(t, "item-1", req.ItemID)
}

func TestNewRequestGuards(t *testing.T) {
	m := New(wib)

	notLendable := lendable(3)
	notLendable.IsLendable = false
	_, err := m.NewRequest("r", notLendable, validInput(), now)
	assert.True(t, errors.Is(err, apperr.ErrNotLendable))

	damaged := lendable(3)
	damaged.Condition = model.ConditionDamaged
	_, err = m.NewRequest("r", damaged, validInput(), now)
	assert.True(t, errors.Is(err, apperr.ErrNotLendable))

	in := validInput()
	in.ReturnDate = in.BorrowDate
	_, err = m.NewRequest("r", lendable(3), in, now)
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindValidation, e.Kind)
	assert.Equal(t, "return_date", e.Field)

	in = validInput()
	in.Name = "  "
	_, err = m.NewRequest("r", lendable(3), in, now)
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	in = validInput()
	in.DocumentURL = ""
	_, err = m.NewRequest("r", lendable(3), in, now)
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}

func TestApproveOnlyFromPending(t *testing.T) {
	m := New(wib)
	req := pending(t, m)

	approved, err := m.Approve(req, lendable(3), 0, "pengurus", now)
	require.NoError(t, err)
	assert.Equal(t, model.BorrowApproved, approved.Status)
	require.NotNil(t, approved.ApprovedBy)
	assert.Equal(t, "pengurus", *approved.ApprovedBy)
	assert.Equal(t, model.BorrowPending, req.Status, "input is not mutated")

	again, err := m.Approve(approved, lendable(3), 1, "pengurus", now)
	assert.True(t, errors.Is(err, apperr.ErrStateTransition))
	assert.Equal(t, approved, again)
}

func TestApproveRechecksCapacity(t *testing.T) {
	m := New(wib)
	req := pending(t, m)

	got, err := m.Approve(req, lendable(3), 3, "pengurus", now)
	assert.True(t, errors.Is(err, apperr.ErrCapacityExceeded))
	assert.Equal(t, model.BorrowPending, got.Status)
}

func TestReject(t *testing.T) {
	m := New(wib)
	req := pending(t, m)

	_, err := m.Reject(req, "", "pengurus", now)
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	rejected, err := m.Reject(req, "out of stock", " pengurus ", now)
	require.NoError(t, err)
	assert.Equal(t, model.BorrowRejected, rejected.Status)
	assert.Equal(t, "out of stock", *rejected.RejectionReason)
	require.NotNil(t, rejected.RejectedBy)
	assert.Equal(t, "pengurus", *rejected.RejectedBy)
	assert.True(t, rejected.Status.Terminal())

	_, err = m.Approve(rejected, lendable(3), 0, "pengurus", now)
	assert.True(t, errors.Is(err, apperr.ErrStateTransition))
	_, err = m.Reject(rejected, "again", "pengurus", now)
	assert.True(t, errors.Is(err, apperr.ErrStateTransition))
}

func TestMarkReturned(t *testing.T) {
	m := New(wib)
	req := pending(t, m)

	_, err := m.MarkReturned(req, now, now)
	assert.True(t, errors.Is(err, apperr.ErrStateTransition), "pending cannot be returned")

	approved, err := m.Approve(req, lendable(3), 0, "pengurus", now)
	require.NoError(t, err)

	_, err = m.MarkReturned(approved, time.Date(2025, 7, 4, 23, 0, 0, 0, wib), now)
	assert.True(t, errors.Is(err, apperr.ErrValidation), "before borrow date")

	// Same calendar day as the borrow date is fine.
	returned, err := m.MarkReturned(approved, time.Date(2025, 7, 5, 18, 0, 0, 0, wib), now)
	require.NoError(t, err)
	assert.Equal(t, model.BorrowReturned, returned.Status)
	require.NotNil(t, returned.ActualReturnDate)

	_, err = m.MarkReturned(returned, now, now)
	assert.True(t, errors.Is(err, apperr.ErrStateTransition))
}
