package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/aldicoding12/frontend-ulil-sub000/internal/apperr"
	"github.com/aldicoding12/frontend-ulil-sub000/internal/calendar"
	"github.com/aldicoding12/frontend-ulil-sub000/internal/capacity"
	"github.com/aldicoding12/frontend-ulil-sub000/internal/events"
	"github.com/aldicoding12/frontend-ulil-sub000/internal/metrics"
	"github.com/aldicoding12/frontend-ulil-sub000/internal/model"
	"github.com/aldicoding12/frontend-ulil-sub000/internal/repository"
)

const maxParticipantsLimit = 100_000

// CreateActivity validates the request and stores a new activity. The end
// time is taken from EndsAt, else StartsAt plus DurationMinutes, else
// StartsAt plus the default duration.
func (s *ReservationService) CreateActivity(ctx context.Context, req model.CreateActivityRequest) (*model.Activity, error) {
	a, err := s.buildActivity(req)
	if err != nil {
		return nil, s.fail("create_activity", err, nil)
	}
	if err := s.store.CreateActivity(ctx, a); err != nil {
		return nil, s.fail("create_activity", fmt.Errorf("create activity: %w", err), nil)
	}

	s.purgeGrids()
	s.publish(ctx, events.ActivityCreated, a)
	log.Info().Str("activity_id", a.ID).Str("kind", string(a.Kind)).Msg("activity created")
	return &a, nil
}

func (s *ReservationService) buildActivity(req model.CreateActivityRequest) (model.Activity, error) {
	kind := req.Kind
	if kind == "" {
		kind = model.KindRegular
	}
	if !kind.Valid() {
		return model.Activity{}, apperr.Validation("kind", "must be regular or donation")
	}
	status := req.Status
	if status == "" {
		status = model.ActivityDraft
	}
	if !status.Valid() {
		return model.Activity{}, apperr.Validation("status", "must be draft, pending or published")
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return model.Activity{}, apperr.Validation("title", "is required")
	}
	if req.StartsAt.IsZero() {
		return model.Activity{}, apperr.Validation("starts_at", "is required")
	}
	if req.DurationMinutes < 0 {
		return model.Activity{}, apperr.Validation("duration_minutes", "must not be negative")
	}

	var end time.Time
	switch {
	case req.EndsAt != nil:
		end = *req.EndsAt
	case req.DurationMinutes > 0:
		end = req.StartsAt.Add(time.Duration(req.DurationMinutes) * time.Minute)
	default:
		end = req.StartsAt.Add(s.defaultDuration)
	}
	if err := s.validateSlot(req.StartsAt, end); err != nil {
		return model.Activity{}, err
	}

	now := s.now()
	a := model.Activity{
		ID:          s.newID(),
		Kind:        kind,
		Title:       title,
		Category:    strings.TrimSpace(req.Category),
		Description: strings.TrimSpace(req.Description),
		Location:    strings.TrimSpace(req.Location),
		StartsAt:    req.StartsAt,
		EndsAt:      end,
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	switch kind {
	case model.KindRegular:
		if req.DonationTarget != 0 {
			return model.Activity{}, apperr.Validation("donation_target", "only applies to donation activities")
		}
		if err := validateMax(req.MaxParticipants, 0); err != nil {
			return model.Activity{}, err
		}
		a.MaxParticipants = req.MaxParticipants
	case model.KindDonation:
		if req.MaxParticipants != 0 {
			return model.Activity{}, apperr.Validation("max_participants", "donation activities take no registrations")
		}
		if req.DonationTarget < 0 {
			return model.Activity{}, apperr.Validation("donation_target", "must not be negative")
		}
		a.Donation = &model.DonationInfo{Target: req.DonationTarget}
	}
	return a, nil
}

// validateSlot maps window errors onto activity field names.
func (s *ReservationService) validateSlot(start, end time.Time) error {
	err := s.detector.ValidateWindow(start, end)
	if e, ok := apperr.As(err); ok {
		switch e.Field {
		case "start":
			return apperr.Validation("starts_at", "%s", e.Message)
		case "end":
			return apperr.Validation("ends_at", "%s", e.Message)
		}
	}
	return err
}

func validateMax(max, registered int) error {
	if max <= 0 {
		return apperr.Validation("max_participants", "must be a positive integer")
	}
	if max > maxParticipantsLimit {
		return apperr.Validation("max_participants", "cannot exceed %d", maxParticipantsLimit)
	}
	if max < registered {
		return apperr.Validation("max_participants", "cannot be below the %d participants already registered", registered)
	}
	return nil
}

// GetActivity returns a single activity by ID.
func (s *ReservationService) GetActivity(ctx context.Context, id string) (*model.Activity, error) {
	a, err := s.store.GetActivity(ctx, id)
	if err != nil {
		return nil, s.fail("get_activity", err, map[string]any{"activity_id": id})
	}
	return a, nil
}

// UpdateActivity applies an administrative edit under the activity's lock.
// registered_count is never changed here.
func (s *ReservationService) UpdateActivity(ctx context.Context, id string, req model.UpdateActivityRequest) (*model.Activity, error) {
	a, err := s.store.UpdateActivity(ctx, id, func(a *model.Activity) error {
		return s.applyUpdate(a, req)
	})
	if err != nil {
		return nil, s.fail("update_activity", err, map[string]any{"activity_id": id})
	}

	s.purgeGrids()
	s.publish(ctx, events.ActivityUpdated, a)
	log.Info().Str("activity_id", id).Msg("activity updated")
	return a, nil
}

func (s *ReservationService) applyUpdate(a *model.Activity, req model.UpdateActivityRequest) error {
	if req.Title != nil {
		t := strings.TrimSpace(*req.Title)
		if t == "" {
			return apperr.Validation("title", "is required")
		}
		a.Title = t
	}
	if req.Category != nil {
		a.Category = strings.TrimSpace(*req.Category)
	}
	if req.Description != nil {
		a.Description = strings.TrimSpace(*req.Description)
	}
	if req.Location != nil {
		a.Location = strings.TrimSpace(*req.Location)
	}
	if req.StartsAt != nil || req.EndsAt != nil {
		start, end := a.StartsAt, a.EndsAt
		if req.StartsAt != nil {
			// Moving the start alone keeps the duration.
			if req.EndsAt == nil {
				end = req.StartsAt.Add(a.EndsAt.Sub(a.StartsAt))
			}
			start = *req.StartsAt
		}
		if req.EndsAt != nil {
			end = *req.EndsAt
		}
		if err := s.validateSlot(start, end); err != nil {
			return err
		}
		a.StartsAt, a.EndsAt = start, end
	}
	if req.Status != nil {
		if !req.Status.Valid() {
			return apperr.Validation("status", "must be draft, pending or published")
		}
		a.Status = *req.Status
	}
	if req.MaxParticipants != nil {
		if !a.IsRegular() {
			return apperr.Validation("max_participants", "donation activities take no registrations")
		}
		if err := validateMax(*req.MaxParticipants, a.RegisteredCount); err != nil {
			return err
		}
		a.MaxParticipants = *req.MaxParticipants
	}
	if req.DonationTarget != nil {
		if a.Donation == nil {
			return apperr.Validation("donation_target", "only applies to donation activities")
		}
		if *req.DonationTarget < 0 {
			return apperr.Validation("donation_target", "must not be negative")
		}
		a.Donation = &model.DonationInfo{Target: *req.DonationTarget}
	}
	a.UpdatedAt = s.now()
	return nil
}

// DeleteActivity removes an activity together with its registrations.
func (s *ReservationService) DeleteActivity(ctx context.Context, id string) error {
	if err := s.store.DeleteActivity(ctx, id); err != nil {
		return s.fail("delete_activity", err, map[string]any{"activity_id": id})
	}
	s.purgeGrids()
	s.publish(ctx, events.ActivityDeleted, map[string]string{"id": id})
	log.Info().Str("activity_id", id).Msg("activity deleted")
	return nil
}

// ListActivitiesInRange returns activities starting in [from, to), ordered by
// start. A nil bound is open.
func (s *ReservationService) ListActivitiesInRange(ctx context.Context, f model.ActivityFilter) ([]model.Activity, error) {
	if f.From != nil && f.To != nil && !f.To.After(*f.From) {
		return nil, s.fail("list_activities", apperr.Validation("to", "must be after from"), nil)
	}
	if f.Status != "" && !f.Status.Valid() {
		return nil, s.fail("list_activities", apperr.Validation("status", "must be draft, pending or published"), nil)
	}
	f.Category = strings.TrimSpace(f.Category)

	list, err := s.store.ListActivities(ctx, f)
	if err != nil {
		return nil, s.fail("list_activities", fmt.Errorf("list activities: %w", err), nil)
	}
	if list == nil {
		list = []model.Activity{}
	}
	return list, nil
}

// GetActivitiesOnDate returns the published activities whose start falls on
// the calendar day dateKey ("YYYY-MM-DD"), ordered by start.
func (s *ReservationService) GetActivitiesOnDate(ctx context.Context, dateKey string) ([]model.Activity, error) {
	day, err := calendar.ParseDateKey(dateKey, s.loc)
	if err != nil {
		return nil, s.fail("activities_on_date", apperr.Validation("date", "must be YYYY-MM-DD"), nil)
	}
	next := day.AddDate(0, 0, 1)

	list, err := s.store.ListActivities(ctx, model.ActivityFilter{From: &day, To: &next, Status: model.ActivityPublished})
	if err != nil {
		return nil, s.fail("activities_on_date", fmt.Errorf("list activities: %w", err), nil)
	}
	out := calendar.NewIndex(list, s.loc).OnKey(dateKey)
	if out == nil {
		out = []model.Activity{}
	}
	return out, nil
}

// MonthGrid returns the 42-cell calendar of published activities for the
// month, optionally narrowed to a category.
func (s *ReservationService) MonthGrid(ctx context.Context, year int, month time.Month, category string) ([]calendar.Cell, error) {
	if month < time.January || month > time.December {
		return nil, s.fail("month_grid", apperr.Validation("month", "must be between 1 and 12"), nil)
	}
	if year < 1 || year > 9999 {
		return nil, s.fail("month_grid", apperr.Validation("year", "is out of range"), nil)
	}
	category = strings.TrimSpace(category)
	key := gridKey{year: year, month: month, category: strings.ToLower(category)}
	var gen uint64
	if s.grids != nil {
		if cells, ok := s.grids.Get(key); ok {
			metrics.CalendarCacheHits.Inc()
			return cloneCells(cells), nil
		}
		gen = s.gridGeneration()
	}

	// The grid spans at most a week before the 1st and two weeks after the end.
	first := time.Date(year, month, 1, 0, 0, 0, 0, s.loc)
	from := first.AddDate(0, 0, -7)
	to := first.AddDate(0, 0, calendar.GridCells)

	list, err := s.store.ListActivities(ctx, model.ActivityFilter{
		From: &from, To: &to, Category: category, Status: model.ActivityPublished,
	})
	if err != nil {
		return nil, s.fail("month_grid", fmt.Errorf("list activities: %w", err), nil)
	}

	cells := calendar.BuildMonthGrid(year, month, s.loc, list)
	if s.grids != nil {
		s.cacheGrid(key, gen, cloneCells(cells))
	}
	return cells, nil
}

// RegisterForActivity registers a requester for a regular, published,
// not-yet-started activity. The capacity check, duplicate check, conflict
// check against the requester's other commitments and the increment all run
// inside one unit of work that holds the requester and activity locks.
func (s *ReservationService) RegisterForActivity(ctx context.Context, activityID string, in model.RegisterRequest) (*model.RegistrationResult, error) {
	who, err := requester(in.Name, in.Phone)
	if err != nil {
		return nil, s.fail("register", err, map[string]any{"activity_id": activityID})
	}

	now := s.now()
	var result model.RegistrationResult
	err = s.store.RegisterTx(ctx, activityID, who.Phone, func(tx repository.RegistrationTx) error {
		a := tx.Activity()
		if err := capacity.CheckRegistration(a, now); err != nil {
			return err
		}

		dup, err := tx.IsRegistered(ctx)
		if err != nil {
			return fmt.Errorf("check duplicate: %w", err)
		}
		if dup {
			return apperr.Duplicate("%s is already registered for %q", who.Phone, a.Title)
		}

		regs, err := tx.RequesterRegistrations(ctx)
		if err != nil {
			return fmt.Errorf("load registrations: %w", err)
		}
		borrows, err := tx.RequesterBorrowings(ctx)
		if err != nil {
			return fmt.Errorf("load borrowings: %w", err)
		}
		window := model.Window{Phone: who.Phone, Start: a.StartsAt, End: a.EndsAt}
		if c, found := s.detector.Find(window, s.commitments(regs, borrows, now)); found {
			return apperr.Conflict(*c)
		}

		reg := model.Registration{ID: s.newID(), ActivityID: a.ID, Requester: who, CreatedAt: now}
		updated, err := tx.AddRegistration(ctx, reg)
		if err != nil {
			return err
		}
		result = model.RegistrationResult{Registration: reg, RegisteredCount: updated.RegisteredCount, Success: true}
		return nil
	})
	if err != nil {
		return nil, s.fail("register", err, map[string]any{"activity_id": activityID, "phone": who.Phone})
	}

	metrics.RegistrationsTotal.Inc()
	s.purgeGrids()
	s.publish(ctx, events.RegistrationCreated, result)
	log.Info().
		Str("activity_id", activityID).
		Str("registration_id", result.Registration.ID).
		Int("registered_count", result.RegisteredCount).
		Msg("registration created")
	return &result, nil
}

// ListRegistrations returns all registrations for an activity.
func (s *ReservationService) ListRegistrations(ctx context.Context, activityID string) ([]model.Registration, error) {
	regs, err := s.store.ListRegistrations(ctx, activityID)
	if err != nil {
		return nil, s.fail("list_registrations", err, map[string]any{"activity_id": activityID})
	}
	if regs == nil {
		regs = []model.Registration{}
	}
	return regs, nil
}

// Remaining returns the seats still open on a, zero when a is not bookable.
func (s *ReservationService) Remaining(a model.Activity) int {
	return capacity.Remaining(a)
}
