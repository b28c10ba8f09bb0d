package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aldicoding12/frontend-ulil-sub000/internal/apperr"
	"github.com/aldicoding12/frontend-ulil-sub000/internal/events"
	"github.com/aldicoding12/frontend-ulil-sub000/internal/model"
	"github.com/aldicoding12/frontend-ulil-sub000/internal/repository"
)

var (
	wib = time.FixedZone("WIB", 7*60*60)
	now = time.Date(2025, 7, 1, 8, 0, 0, 0, wib)
)

type recordingPublisher struct {
	mu   sync.Mutex
	keys []string
}

func (p *recordingPublisher) Publish(_ context.Context, key string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, key)
	return nil
}

func (p *recordingPublisher) Keys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.keys...)
}

func newTestService(t *testing.T) (*ReservationService, *recordingPublisher) {
	t.Helper()
	pub := &recordingPublisher{}
	var seq int
	var mu sync.Mutex
	svc, err := NewReservationService(repository.NewMemoryStore(), pub, Options{
		Location:          wib,
		CalendarCacheSize: 8,
		Now:               func() time.Time { return now },
		NewID: func() string {
			mu.Lock()
			defer mu.Unlock()
			seq++
			return fmt.Sprintf("id-%03d", seq)
		},
	})
	require.NoError(t, err)
	return svc, pub
}

func at(day, hour, min int) time.Time {
	return time.Date(2025, 7, day, hour, min, 0, 0, wib)
}

func publishedActivity(t *testing.T, svc *ReservationService, title string, start time.Time, minutes, max int) *model.Activity {
	t.Helper()
	a, err := svc.CreateActivity(context.Background(), model.CreateActivityRequest{
		Title:           title,
		Category:        "Kajian",
		StartsAt:        start,
		DurationMinutes: minutes,
		MaxParticipants: max,
		Status:          model.ActivityPublished,
	})
	require.NoError(t, err)
	return a
}

func lendableItem(t *testing.T, svc *ReservationService, qty int) *model.ItemAvailability {
	t.Helper()
	it, err := svc.CreateItem(context.Background(), model.CreateItemRequest{Name: "Tenda", Quantity: qty})
	require.NoError(t, err)
	return it
}

func borrowInput(phone string) model.BorrowRequest {
	return model.BorrowRequest{
		Name:        "Ahmad",
		Phone:       phone,
		Purpose:     "Walimah",
		BorrowDate:  at(10, 0, 0),
		ReturnDate:  at(12, 0, 0),
		DocumentURL: "https://files.example/ktp.jpg",
	}
}

// ─── Activities ───────────────────────────────────────────────────────────────

func TestCreateActivityDefaults(t *testing.T) {
	svc, pub := newTestService(t)

	a, err := svc.CreateActivity(context.Background(), model.CreateActivityRequest{
		Title: "  Kajian Subuh ", StartsAt: at(5, 5, 0), MaxParticipants: 30,
	})
	require.NoError(t, err)
	assert.Equal(t, "Kajian Subuh", a.Title)
	assert.Equal(t, model.KindRegular, a.Kind)
	assert.Equal(t, model.ActivityDraft, a.Status)
	assert.Equal(t, at(5, 6, 0), a.EndsAt, "default duration is one hour")
	assert.Equal(t, []string{events.ActivityCreated}, pub.Keys())
}

func TestCreateActivityValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		req   model.CreateActivityRequest
		field string
	}{
		{"missing title", model.CreateActivityRequest{StartsAt: at(5, 5, 0), MaxParticipants: 1}, "title"},
		{"missing start", model.CreateActivityRequest{Title: "x", MaxParticipants: 1}, "starts_at"},
		{"zero capacity", model.CreateActivityRequest{Title: "x", StartsAt: at(5, 5, 0)}, "max_participants"},
		{"bad status", model.CreateActivityRequest{Title: "x", StartsAt: at(5, 5, 0), MaxParticipants: 1, Status: "live"}, "status"},
		{"spans midnight", model.CreateActivityRequest{Title: "x", StartsAt: at(5, 23, 0), DurationMinutes: 120, MaxParticipants: 1}, "ends_at"},
		{"donation with seats", model.CreateActivityRequest{Kind: model.KindDonation, Title: "x", StartsAt: at(5, 5, 0), MaxParticipants: 3}, "max_participants"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateActivity(ctx, tc.req)
			e, ok := apperr.As(err)
			require.True(t, ok, "got %v", err)
			assert.Equal(t, apperr.KindValidation, e.Kind)
			assert.Equal(t, tc.field, e.Field)
		})
	}
}

func TestUpdateActivityKeepsCapacityInvariant(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	a := publishedActivity(t, svc, "Kajian", at(5, 19, 0), 90, 3)

	for _, phone := range []string{"081200000001", "081200000002"} {
		_, err := svc.RegisterForActivity(ctx, a.ID, model.RegisterRequest{Name: "x", Phone: phone})
		require.NoError(t, err)
	}

	one := 1
	_, err := svc.UpdateActivity(ctx, a.ID, model.UpdateActivityRequest{MaxParticipants: &one})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	five := 5
	start := at(6, 19, 0)
	got, err := svc.UpdateActivity(ctx, a.ID, model.UpdateActivityRequest{MaxParticipants: &five, StartsAt: &start})
	require.NoError(t, err)
	assert.Equal(t, 5, got.MaxParticipants)
	assert.Equal(t, 2, got.RegisteredCount)
	assert.Equal(t, at(6, 20, 30), got.EndsAt, "moving the start keeps the duration")
}

func TestGetActivitiesOnDateOnlyPublished(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	late := publishedActivity(t, svc, "Isya", at(5, 19, 0), 60, 10)
	early := publishedActivity(t, svc, "Subuh", at(5, 5, 0), 60, 10)
	publishedActivity(t, svc, "Besok", at(6, 5, 0), 60, 10)
	_, err := svc.CreateActivity(ctx, model.CreateActivityRequest{Title: "Draft", StartsAt: at(5, 9, 0), MaxParticipants: 1})
	require.NoError(t, err)

	got, err := svc.GetActivitiesOnDate(ctx, "2025-07-05")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, early.ID, got[0].ID)
	assert.Equal(t, late.ID, got[1].ID)

	_, err = svc.GetActivitiesOnDate(ctx, "05/07/2025")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestMonthGridCachedUntilActivityWrite(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	publishedActivity(t, svc, "Kajian", at(5, 19, 0), 60, 10)

	cells, err := svc.MonthGrid(ctx, 2025, time.July, "")
	require.NoError(t, err)
	require.Len(t, cells, 42)
	assert.Equal(t, "2025-06-29", cells[0].Key)
	assert.Equal(t, "2025-07-01", cells[2].Key)
	assert.Len(t, cells[6].Activities, 1, "July 5th")

	publishedActivity(t, svc, "Tabligh", at(5, 9, 0), 60, 10)
	cells, err = svc.MonthGrid(ctx, 2025, time.July, "")
	require.NoError(t, err)
	assert.Len(t, cells[6].Activities, 2, "cache purged on create")

	filtered, err := svc.MonthGrid(ctx, 2025, time.July, "sosial")
	require.NoError(t, err)
	assert.Empty(t, filtered[6].Activities)

	_, err = svc.MonthGrid(ctx, 2025, 13, "")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

// slowListStore holds the first ListActivities result until released, so a
// write can commit between the read and the grid being cached.
type slowListStore struct {
	*repository.MemoryStore
	once    sync.Once
	read    chan struct{}
	release chan struct{}
}

func (s *slowListStore) ListActivities(ctx context.Context, f model.ActivityFilter) ([]model.Activity, error) {
	list, err := s.MemoryStore.ListActivities(ctx, f)
	s.once.Do(func() {
		close(s.read)
		<-s.release
	})
	return list, err
}

func TestMonthGridNotCachedAcrossConcurrentWrite(t *testing.T) {
	store := &slowListStore{
		MemoryStore: repository.NewMemoryStore(),
		read:        make(chan struct{}),
		release:     make(chan struct{}),
	}
	svc, err := NewReservationService(store, nil, Options{
		Location:          wib,
		CalendarCacheSize: 8,
		Now:               func() time.Time { return now },
	})
	require.NoError(t, err)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := svc.MonthGrid(ctx, 2025, time.July, "")
		done <- err
	}()

	<-store.read
	publishedActivity(t, svc, "Kajian", at(5, 19, 0), 60, 10)
	close(store.release)
	require.NoError(t, <-done)

	cells, err := svc.MonthGrid(ctx, 2025, time.July, "")
	require.NoError(t, err)
	assert.Len(t, cells[6].Activities, 1, "grid read before the write must not be served")
}

func TestMonthGridResultIsACopy(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	publishedActivity(t, svc, "Kajian", at(5, 19, 0), 60, 10)

	for i := 0; i < 2; i++ {
		cells, err := svc.MonthGrid(ctx, 2025, time.July, "")
		require.NoError(t, err)
		require.Len(t, cells[6].Activities, 1)
		assert.Equal(t, "Kajian", cells[6].Activities[0].Title)

		cells[6].Activities[0].Title = "changed"
		cells[6].Activities = nil
		cells[0].Key = "changed"
	}

	cells, err := svc.MonthGrid(ctx, 2025, time.July, "")
	require.NoError(t, err)
	assert.Equal(t, "2025-06-29", cells[0].Key)
	require.Len(t, cells[6].Activities, 1)
	assert.Equal(t, "Kajian", cells[6].Activities[0].Title)
}

// ─── Registration ─────────────────────────────────────────────────────────────

func TestRegisterForActivity(t *testing.T) {
	svc, pub := newTestService(t)
	ctx := context.Background()
	a := publishedActivity(t, svc, "Kajian", at(5, 19, 0), 60, 10)

	res, err := svc.RegisterForActivity(ctx, a.ID, model.RegisterRequest{Name: "Siti", Phone: "+62 812-0000-0001"})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 1, res.RegisteredCount)
	assert.Equal(t, "081200000001", res.Registration.Requester.Phone)
	assert.Contains(t, pub.Keys(), events.RegistrationCreated)

	_, err = svc.RegisterForActivity(ctx, a.ID, model.RegisterRequest{Name: "Siti", Phone: "0812-0000-0001"})
	assert.ErrorIs(t, err, apperr.ErrDuplicate)

	got, err := svc.GetActivity(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.RegisteredCount)
}

func TestRegisterRejections(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	who := model.RegisterRequest{Name: "Siti", Phone: "081200000001"}

	draft, err := svc.CreateActivity(ctx, model.CreateActivityRequest{Title: "Draft", StartsAt: at(5, 9, 0), MaxParticipants: 5})
	require.NoError(t, err)
	_, err = svc.RegisterForActivity(ctx, draft.ID, who)
	assert.ErrorIs(t, err, apperr.ErrNotBookable)

	donation, err := svc.CreateActivity(ctx, model.CreateActivityRequest{
		Kind: model.KindDonation, Title: "Infaq", StartsAt: at(5, 9, 0), Status: model.ActivityPublished, DonationTarget: 5_000_000,
	})
	require.NoError(t, err)
	_, err = svc.RegisterForActivity(ctx, donation.ID, who)
	assert.ErrorIs(t, err, apperr.ErrNotRegistrable)

	past, err := svc.CreateActivity(ctx, model.CreateActivityRequest{
		Title: "Kemarin", StartsAt: now.Add(-2 * time.Hour), MaxParticipants: 5, Status: model.ActivityPublished,
	})
	require.NoError(t, err)
	_, err = svc.RegisterForActivity(ctx, past.ID, who)
	assert.ErrorIs(t, err, apperr.ErrPassed)

	_, err = svc.RegisterForActivity(ctx, "missing", who)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	full := publishedActivity(t, svc, "Full", at(8, 9, 0), 60, 1)
	_, err = svc.RegisterForActivity(ctx, full.ID, model.RegisterRequest{Name: "A", Phone: "081200000009"})
	require.NoError(t, err)
	_, err = svc.RegisterForActivity(ctx, full.ID, who)
	assert.ErrorIs(t, err, apperr.ErrCapacityExceeded)

	_, err = svc.RegisterForActivity(ctx, full.ID, model.RegisterRequest{Name: "", Phone: "0812"})
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, "name", e.Field)
}

func TestRegisterLastSeatConcurrently(t *testing.T) {
	svc, _ := newTestService(t)
	a := publishedActivity(t, svc, "Kajian", at(5, 19, 0), 60, 1)

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.RegisterForActivity(context.Background(), a.ID,
				model.RegisterRequest{Name: "x", Phone: fmt.Sprintf("08120000000%d", i)})
		}(i)
	}
	wg.Wait()

	succeeded, full := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case apperr.KindOf(err) == apperr.KindCapacityExceeded:
			full++
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, full)

	got, err := svc.GetActivity(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.RegisteredCount)
}

func TestRegisterDetectsConflict(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	who := model.RegisterRequest{Name: "Siti", Phone: "081200000001"}

	first := publishedActivity(t, svc, "Kajian Ba'da Maghrib", at(5, 18, 0), 90, 10)
	overlapping := publishedActivity(t, svc, "Rapat Remaja", at(5, 19, 0), 60, 10)
	touching := publishedActivity(t, svc, "Tahsin", at(5, 19, 30), 60, 10)

	_, err := svc.RegisterForActivity(ctx, first.ID, who)
	require.NoError(t, err)

	_, err = svc.RegisterForActivity(ctx, overlapping.ID, who)
	e, ok := apperr.As(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, apperr.KindConflict, e.Kind)
	require.NotNil(t, e.Conflict)
	assert.Equal(t, "Kajian Ba'da Maghrib", e.Conflict.Title)
	assert.Equal(t, "2025-07-05", e.Conflict.DateKey)

	got, err := svc.GetActivity(ctx, overlapping.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.RegisteredCount, "no partial write on conflict")

	_, err = svc.RegisterForActivity(ctx, touching.ID, who)
	assert.NoError(t, err, "touching boundaries do not conflict")

	_, err = svc.RegisterForActivity(ctx, overlapping.ID, model.RegisterRequest{Name: "Other", Phone: "081200000002"})
	assert.NoError(t, err, "another requester is unaffected")
}

// ─── Inventory ────────────────────────────────────────────────────────────────

func TestBorrowingLifecycle(t *testing.T) {
	svc, pub := newTestService(t)
	ctx := context.Background()
	it := lendableItem(t, svc, 3)

	req, err := svc.RequestBorrow(ctx, it.ID, borrowInput("081200000001"))
	require.NoError(t, err)
	assert.Equal(t, model.BorrowPending, req.Status)

	avail, err := svc.GetItem(ctx, it.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, avail.CurrentlyAvailable, "pending does not reserve")
	assert.Equal(t, 1, avail.PendingCount)

	approved, err := svc.ApproveBorrowing(ctx, req.ID, "pengurus")
	require.NoError(t, err)
	assert.Equal(t, model.BorrowApproved, approved.Status)

	_, err = svc.ApproveBorrowing(ctx, req.ID, "pengurus")
	assert.ErrorIs(t, err, apperr.ErrStateTransition)

	avail, err = svc.GetItem(ctx, it.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, avail.CurrentlyAvailable)

	returned, err := svc.MarkReturned(ctx, req.ID, at(12, 10, 0))
	require.NoError(t, err)
	assert.Equal(t, model.BorrowReturned, returned.Status)

	avail, err = svc.GetItem(ctx, it.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, avail.CurrentlyAvailable)

	assert.Subset(t, pub.Keys(), []string{
		events.ItemCreated, events.BorrowingRequested, events.BorrowingApproved, events.BorrowingReturned,
	})
}

func TestFourthApprovalOnQuantityThree(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	it := lendableItem(t, svc, 3)

	var ids []string
	for i := 0; i < 4; i++ {
		r, err := svc.RequestBorrow(ctx, it.ID, borrowInput(fmt.Sprintf("08120000000%d", i)))
		require.NoError(t, err)
		ids = append(ids, r.ID)
	}
	for _, id := range ids[:3] {
		_, err := svc.ApproveBorrowing(ctx, id, "pengurus")
		require.NoError(t, err)
	}

	_, err := svc.ApproveBorrowing(ctx, ids[3], "pengurus")
	assert.ErrorIs(t, err, apperr.ErrCapacityExceeded)

	fourth, err := svc.GetBorrowing(ctx, ids[3])
	require.NoError(t, err)
	assert.Equal(t, model.BorrowPending, fourth.Status)
}

func TestConcurrentApprovalsNeverExceedQuantity(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	it := lendableItem(t, svc, 3)

	const n = 10
	ids := make([]string, n)
	for i := range ids {
		r, err := svc.RequestBorrow(ctx, it.ID, borrowInput(fmt.Sprintf("0812000000%02d", i)))
		require.NoError(t, err)
		ids[i] = r.ID
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, _ = svc.ApproveBorrowing(ctx, id, "pengurus")
		}(id)
	}
	wg.Wait()

	avail, err := svc.GetItem(ctx, it.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, avail.ApprovedCount)
	assert.Equal(t, 0, avail.CurrentlyAvailable)
	assert.Equal(t, n-3, avail.PendingCount)
	assert.True(t, avail.OverbookedPending)
}

func TestRejectRequiresReason(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	it := lendableItem(t, svc, 1)
	req, err := svc.RequestBorrow(ctx, it.ID, borrowInput("081200000001"))
	require.NoError(t, err)

	_, err = svc.RejectBorrowing(ctx, req.ID, "   ", "pengurus")
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindValidation, e.Kind)
	assert.Equal(t, "reason", e.Field)

	still, err := svc.GetBorrowing(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BorrowPending, still.Status)

	rejected, err := svc.RejectBorrowing(ctx, req.ID, "Dipakai acara masjid", "pengurus")
	require.NoError(t, err)
	assert.Equal(t, model.BorrowRejected, rejected.Status)

	stored, err := svc.GetBorrowing(ctx, req.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.RejectedBy)
	assert.Equal(t, "pengurus", *stored.RejectedBy)

	_, err = svc.MarkReturned(ctx, req.ID, at(12, 0, 0))
	assert.ErrorIs(t, err, apperr.ErrStateTransition)
}

func TestRequestBorrowDetectsConflict(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	phone := "081200000001"

	a := publishedActivity(t, svc, "Kajian Dhuha", at(5, 10, 0), 120, 10)
	_, err := svc.RegisterForActivity(ctx, a.ID, model.RegisterRequest{Name: "Siti", Phone: phone})
	require.NoError(t, err)

	it := lendableItem(t, svc, 2)
	in := borrowInput(phone)
	in.BorrowDate, in.ReturnDate = at(5, 11, 0), at(5, 12, 0)
	_, err = svc.RequestBorrow(ctx, it.ID, in)
	e, ok := apperr.As(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, apperr.KindConflict, e.Kind)
	require.NotNil(t, e.Conflict)
	assert.Equal(t, model.SourceRegistration, e.Conflict.Source)
	assert.Equal(t, "Kajian Dhuha", e.Conflict.Title)

	list, err := svc.ListBorrowings(ctx, model.BorrowingFilter{Phone: phone})
	require.NoError(t, err)
	assert.Empty(t, list, "no request stored on conflict")

	in.BorrowDate, in.ReturnDate = at(5, 12, 0), at(5, 14, 0)
	_, err = svc.RequestBorrow(ctx, it.ID, in)
	require.NoError(t, err, "touching the registration is allowed")

	in.BorrowDate, in.ReturnDate = at(5, 13, 0), at(5, 15, 0)
	_, err = svc.RequestBorrow(ctx, it.ID, in)
	assert.ErrorIs(t, err, apperr.ErrConflict, "pending same-day request is a commitment")

	in.BorrowDate, in.ReturnDate = at(5, 8, 0), at(7, 8, 0)
	_, err = svc.RequestBorrow(ctx, it.ID, in)
	assert.NoError(t, err, "multi-day custody is not checked")

	_, err = svc.RequestBorrow(ctx, it.ID, func() model.BorrowRequest {
		other := borrowInput("081200000002")
		other.BorrowDate, other.ReturnDate = at(5, 11, 0), at(5, 12, 0)
		return other
	}())
	assert.NoError(t, err, "another requester is unaffected")
}

func TestRequestBorrowConcurrentSameRequester(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	phone := "081200000001"
	first := lendableItem(t, svc, 1)
	second := lendableItem(t, svc, 1)

	in := borrowInput(phone)
	in.BorrowDate, in.ReturnDate = at(5, 9, 0), at(5, 11, 0)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, id := range []string{first.ID, second.ID} {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, errs[i] = svc.RequestBorrow(ctx, id, in)
		}(i, id)
	}
	wg.Wait()

	var ok, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, apperr.ErrConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, conflicts)
}

func TestRequestBorrowGuards(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	no := false
	it, err := svc.CreateItem(ctx, model.CreateItemRequest{Name: "Mimbar", Quantity: 1, IsLendable: &no})
	require.NoError(t, err)
	_, err = svc.RequestBorrow(ctx, it.ID, borrowInput("081200000001"))
	assert.ErrorIs(t, err, apperr.ErrNotLendable)

	_, err = svc.RequestBorrow(ctx, "missing", borrowInput("081200000001"))
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	ok := lendableItem(t, svc, 1)
	in := borrowInput("081200000001")
	in.ReturnDate = in.BorrowDate.Add(-time.Hour)
	_, err = svc.RequestBorrow(ctx, ok.ID, in)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestUpdateItemQuantityFloor(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	it := lendableItem(t, svc, 2)
	for _, phone := range []string{"081200000001", "081200000002"} {
		r, err := svc.RequestBorrow(ctx, it.ID, borrowInput(phone))
		require.NoError(t, err)
		_, err = svc.ApproveBorrowing(ctx, r.ID, "pengurus")
		require.NoError(t, err)
	}

	one := 1
	_, err := svc.UpdateItem(ctx, it.ID, model.UpdateItemRequest{Quantity: &one})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	four := 4
	got, err := svc.UpdateItem(ctx, it.ID, model.UpdateItemRequest{Quantity: &four})
	require.NoError(t, err)
	assert.Equal(t, 2, got.CurrentlyAvailable)
}

func TestListInventoryItems(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	lendableItem(t, svc, 2)
	damaged := model.ConditionDamaged
	_, err := svc.CreateItem(ctx, model.CreateItemRequest{Name: "Sound system", Quantity: 1, Condition: damaged})
	require.NoError(t, err)

	all, err := svc.ListInventoryItems(ctx, model.ItemFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	onlyDamaged, err := svc.ListInventoryItems(ctx, model.ItemFilter{Condition: model.ConditionDamaged})
	require.NoError(t, err)
	require.Len(t, onlyDamaged, 1)
	assert.Equal(t, "Sound system", onlyDamaged[0].Name)

	_, err = svc.ListInventoryItems(ctx, model.ItemFilter{Condition: "broken"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

// ─── Conflicts ────────────────────────────────────────────────────────────────

func TestCheckConflict(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	phone := "081200000001"

	a := publishedActivity(t, svc, "Kajian", at(5, 18, 0), 90, 10)
	_, err := svc.RegisterForActivity(ctx, a.ID, model.RegisterRequest{Name: "Siti", Phone: phone})
	require.NoError(t, err)

	it := lendableItem(t, svc, 1)
	in := borrowInput(phone)
	in.BorrowDate, in.ReturnDate = at(6, 8, 0), at(6, 12, 0)
	_, err = svc.RequestBorrow(ctx, it.ID, in)
	require.NoError(t, err)

	res, err := svc.CheckConflict(ctx, model.ConflictCheckRequest{Phone: phone, Start: at(5, 19, 0), End: at(5, 20, 0)})
	require.NoError(t, err)
	require.True(t, res.Conflict)
	assert.Equal(t, model.SourceRegistration, res.ConflictsOn.Source)

	res, err = svc.CheckConflict(ctx, model.ConflictCheckRequest{Phone: "+6281200000001", Start: at(6, 11, 0), End: at(6, 13, 0)})
	require.NoError(t, err)
	require.True(t, res.Conflict)
	assert.Equal(t, model.SourceBorrowing, res.ConflictsOn.Source)
	assert.Equal(t, "Tenda", res.ConflictsOn.Title)

	res, err = svc.CheckConflict(ctx, model.ConflictCheckRequest{Phone: phone, Start: at(5, 19, 30), End: at(5, 21, 0)})
	require.NoError(t, err)
	assert.False(t, res.Conflict)
	assert.Nil(t, res.ConflictsOn)

	_, err = svc.CheckConflict(ctx, model.ConflictCheckRequest{Phone: phone, Start: at(5, 23, 0), End: at(6, 1, 0)})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}
