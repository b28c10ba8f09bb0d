// Package service implements business logic, validation, and orchestration
// between HTTP handlers and the repository layer.
//
// Every write runs inside one repository unit of work scoped to the affected
// activity or inventory item, so capacity and conflict checks see the same
// state the write is applied to. Facts are published and metrics recorded
// only after the unit of work has committed.
package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog/log"

	"github.com/aldicoding12/frontend-ulil-sub000/internal/apperr"
	"github.com/aldicoding12/frontend-ulil-sub000/internal/calendar"
	"github.com/aldicoding12/frontend-ulil-sub000/internal/conflict"
	"github.com/aldicoding12/frontend-ulil-sub000/internal/events"
	"github.com/aldicoding12/frontend-ulil-sub000/internal/lifecycle"
	"github.com/aldicoding12/frontend-ulil-sub000/internal/metrics"
	"github.com/aldicoding12/frontend-ulil-sub000/internal/model"
	"github.com/aldicoding12/frontend-ulil-sub000/internal/repository"
)

const minPhoneDigits = 8

// Options tune a ReservationService. Zero values pick defaults.
type Options struct {
	Location          *time.Location
	DefaultDuration   time.Duration
	CalendarCacheSize int
	Now               func() time.Time
	NewID             func() string
}

type gridKey struct {
	year     int
	month    time.Month
	category string
}

// ReservationService orchestrates calendar, capacity, conflict and lifecycle
// rules over a repository.Store.
type ReservationService struct {
	store     repository.Store
	publisher events.Publisher

	loc             *time.Location
	detector        *conflict.Detector
	machine         *lifecycle.Machine
	defaultDuration time.Duration
	now             func() time.Time
	newID           func() string

	// gridGen counts purges. A grid built from a read that started before a
	// purge is not cached.
	gridMu  sync.Mutex
	gridGen uint64
	grids   *lru.Cache[gridKey, []calendar.Cell]
}

// NewReservationService constructs a ReservationService with its dependencies.
func NewReservationService(store repository.Store, publisher events.Publisher, opts Options) (*ReservationService, error) {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.DefaultDuration <= 0 {
		opts.DefaultDuration = time.Hour
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}

	s := &ReservationService{
		store:           store,
		publisher:       publisher,
		loc:             opts.Location,
		detector:        conflict.NewDetector(opts.Location),
		machine:         lifecycle.New(opts.Location),
		defaultDuration: opts.DefaultDuration,
		now:             opts.Now,
		newID:           opts.NewID,
	}
	if opts.CalendarCacheSize > 0 {
		cache, err := lru.New[gridKey, []calendar.Cell](opts.CalendarCacheSize)
		if err != nil {
			return nil, fmt.Errorf("calendar cache: %w", err)
		}
		s.grids = cache
	}
	return s, nil
}

// Location is the time zone date keys are computed in.
func (s *ReservationService) Location() *time.Location { return s.loc }

// fail records a rejected operation. Domain errors are counted by kind;
// not-found and state-transition errors are logged loudly as anomalies.
func (s *ReservationService) fail(op string, err error, fields map[string]any) error {
	kind := apperr.KindOf(err)
	if kind == "" {
		log.Error().Err(err).Str("op", op).Fields(fields).Msg("operation failed")
		return err
	}
	metrics.DomainErrors.WithLabelValues(op, string(kind)).Inc()

	ev := log.Debug()
	if apperr.IsAnomaly(err) {
		ev = log.Warn()
	}
	ev.Err(err).Str("op", op).Str("kind", string(kind)).Fields(fields).Msg("operation rejected")
	return err
}

// publish emits a fact for a committed write. The write already happened,
// so a publish failure is logged and swallowed.
func (s *ReservationService) publish(ctx context.Context, routingKey string, payload any) {
	if err := s.publisher.Publish(ctx, routingKey, payload); err != nil {
		log.Warn().Err(err).Str("routing_key", routingKey).Msg("fact not published")
	}
}

func (s *ReservationService) purgeGrids() {
	if s.grids == nil {
		return
	}
	s.gridMu.Lock()
	defer s.gridMu.Unlock()
	s.gridGen++
	s.grids.Purge()
}

func (s *ReservationService) gridGeneration() uint64 {
	s.gridMu.Lock()
	defer s.gridMu.Unlock()
	return s.gridGen
}

// cacheGrid stores cells unless a purge happened since gen was read.
func (s *ReservationService) cacheGrid(key gridKey, gen uint64, cells []calendar.Cell) {
	s.gridMu.Lock()
	defer s.gridMu.Unlock()
	if s.gridGen == gen {
		s.grids.Add(key, cells)
	}
}

// cloneCells copies cells deep enough that callers cannot change a cached grid.
func cloneCells(cells []calendar.Cell) []calendar.Cell {
	out := make([]calendar.Cell, len(cells))
	for i, c := range cells {
		out[i] = c
		if c.Activities == nil {
			continue
		}
		acts := append([]model.Activity(nil), c.Activities...)
		for j := range acts {
			if d := acts[j].Donation; d != nil {
				dc := *d
				acts[j].Donation = &dc
			}
		}
		out[i].Activities = acts
	}
	return out
}

func requester(name, phone string) (model.Requester, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Requester{}, apperr.Validation("name", "is required")
	}
	p := model.NormalizePhone(phone)
	if len(p) < minPhoneDigits {
		return model.Requester{}, apperr.Validation("phone", "is not a valid phone number")
	}
	return model.Requester{Name: name, Phone: p}, nil
}

// commitments builds the requester's reservation window: registrations of
// activities that have not yet ended plus open same-day borrowings.
func (s *ReservationService) commitments(regs []repository.RegisteredActivity, borrows []repository.BorrowingWithItem, now time.Time) []model.Commitment {
	out := make([]model.Commitment, 0, len(regs)+len(borrows))
	for _, ra := range regs {
		if !ra.Activity.EndsAt.After(now) {
			continue
		}
		out = append(out, s.detector.FromRegistration(ra.Registration, ra.Activity))
	}
	for _, b := range borrows {
		if c, ok := s.detector.FromBorrowing(b.Request, b.ItemName); ok {
			out = append(out, c)
		}
	}
	return out
}

// CheckConflict returns the earliest existing commitment of phone that
// overlaps [start, end), or nil when the window is free.
func (s *ReservationService) CheckConflict(ctx context.Context, in model.ConflictCheckRequest) (*model.ConflictCheckResult, error) {
	phone := model.NormalizePhone(in.Phone)
	if len(phone) < minPhoneDigits {
		return nil, s.fail("check_conflict", apperr.Validation("phone", "is not a valid phone number"), nil)
	}
	if err := s.detector.ValidateWindow(in.Start, in.End); err != nil {
		return nil, s.fail("check_conflict", err, map[string]any{"phone": phone})
	}

	regs, err := s.store.RegistrationsByPhone(ctx, phone)
	if err != nil {
		return nil, s.fail("check_conflict", fmt.Errorf("load registrations: %w", err), nil)
	}
	borrows, err := s.store.BorrowingsByPhone(ctx, phone)
	if err != nil {
		return nil, s.fail("check_conflict", fmt.Errorf("load borrowings: %w", err), nil)
	}

	window := model.Window{Phone: phone, Start: in.Start, End: in.End}
	c, found := s.detector.Find(window, s.commitments(regs, borrows, s.now()))
	if !found {
		return &model.ConflictCheckResult{}, nil
	}
	return &model.ConflictCheckResult{Conflict: true, ConflictsOn: c}, nil
}
