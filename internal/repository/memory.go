package repository

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/aldicoding12/frontend-ulil-sub000/internal/apperr"
	"github.com/aldicoding12/frontend-ulil-sub000/internal/model"
)

// keyedMutex hands out one mutex per key, so callers serialise on a single
// record without a global lock. An entry lives only while someone holds or
// waits for it.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refMutex)}
}

// Lock blocks until key is held and returns the matching unlock.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &refMutex{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

// size reports the number of live entries.
func (k *keyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}

// MemoryStore keeps everything in process memory. Used for tests and for
// running the service without Postgres.
type MemoryStore struct {
	mu            sync.RWMutex
	activities    map[string]model.Activity
	registrations map[string][]model.Registration // activity id -> registrations
	items         map[string]model.InventoryItem
	requests      map[string]model.BorrowingRequest

	records *keyedMutex
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		activities:    make(map[string]model.Activity),
		registrations: make(map[string][]model.Registration),
		items:         make(map[string]model.InventoryItem),
		requests:      make(map[string]model.BorrowingRequest),
		records:       newKeyedMutex(),
	}
}

var _ Store = (*MemoryStore)(nil)

func activityKey(id string) string { return "activity:" + id }
func itemKey(id string) string     { return "item:" + id }
func phoneKey(p string) string     { return "phone:" + p }

// ─── Activities ───────────────────────────────────────────────────────────────

func (s *MemoryStore) CreateActivity(_ context.Context, a model.Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.activities[a.ID]; ok {
		return apperr.Duplicate("activity %q already exists", a.ID)
	}
	s.activities[a.ID] = a
	return nil
}

func (s *MemoryStore) GetActivity(_ context.Context, id string) (*model.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.activities[id]
	if !ok {
		return nil, apperr.NotFound("activity", id)
	}
	return &a, nil
}

func (s *MemoryStore) ListActivities(_ context.Context, f model.ActivityFilter) ([]model.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Activity
	for _, a := range s.activities {
		if f.From != nil && a.StartsAt.Before(*f.From) {
			continue
		}
		if f.To != nil && !a.StartsAt.Before(*f.To) {
			continue
		}
		if f.Category != "" && !strings.EqualFold(a.Category, f.Category) {
			continue
		}
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt.Before(out[j].StartsAt) })
	return out, nil
}

func (s *MemoryStore) UpdateActivity(_ context.Context, id string, fn func(a *model.Activity) error) (*model.Activity, error) {
	unlock := s.records.Lock(activityKey(id))
	defer unlock()

	s.mu.RLock()
	a, ok := s.activities[id]
	s.mu.RUnlock()
	if !ok {
		return nil, apperr.NotFound("activity", id)
	}
	if err := fn(&a); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.activities[id] = a
	s.mu.Unlock()
	return &a, nil
}

func (s *MemoryStore) DeleteActivity(_ context.Context, id string) error {
	unlock := s.records.Lock(activityKey(id))
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.activities[id]; !ok {
		return apperr.NotFound("activity", id)
	}
	delete(s.activities, id)
	delete(s.registrations, id)
	return nil
}

func (s *MemoryStore) ListRegistrations(_ context.Context, activityID string) ([]model.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.activities[activityID]; !ok {
		return nil, apperr.NotFound("activity", activityID)
	}
	regs := s.registrations[activityID]
	out := make([]model.Registration, len(regs))
	copy(out, regs)
	return out, nil
}

// memRegistrationTx stages at most one registration until commit.
type memRegistrationTx struct {
	s        *MemoryStore
	activity model.Activity
	phone    string
	staged   *model.Registration
}

func (tx *memRegistrationTx) Activity() model.Activity { return tx.activity }

func (tx *memRegistrationTx) IsRegistered(_ context.Context) (bool, error) {
	tx.s.mu.RLock()
	defer tx.s.mu.RUnlock()
	for _, r := range tx.s.registrations[tx.activity.ID] {
		if r.Requester.Phone == tx.phone {
			return true, nil
		}
	}
	return false, nil
}

func (tx *memRegistrationTx) RequesterRegistrations(ctx context.Context) ([]RegisteredActivity, error) {
	return tx.s.RegistrationsByPhone(ctx, tx.phone)
}

func (tx *memRegistrationTx) RequesterBorrowings(ctx context.Context) ([]BorrowingWithItem, error) {
	return tx.s.BorrowingsByPhone(ctx, tx.phone)
}

func (tx *memRegistrationTx) AddRegistration(_ context.Context, reg model.Registration) (model.Activity, error) {
	if tx.staged != nil {
		return tx.activity, apperr.Duplicate("registration already staged")
	}
	tx.staged = &reg
	tx.activity.RegisteredCount++
	tx.activity.UpdatedAt = reg.CreatedAt
	return tx.activity, nil
}

func (s *MemoryStore) RegisterTx(ctx context.Context, activityID, phone string, fn func(tx RegistrationTx) error) error {
	// Requester first, then activity: the same order as the Postgres store.
	unlockPhone := s.records.Lock(phoneKey(phone))
	defer unlockPhone()
	unlockActivity := s.records.Lock(activityKey(activityID))
	defer unlockActivity()

	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	a, ok := s.activities[activityID]
	s.mu.RUnlock()
	if !ok {
		return apperr.NotFound("activity", activityID)
	}

	tx := &memRegistrationTx{s: s, activity: a, phone: phone}
	if err := fn(tx); err != nil {
		return err
	}
	if tx.staged == nil {
		return nil
	}

	s.mu.Lock()
	s.activities[activityID] = tx.activity
	s.registrations[activityID] = append(s.registrations[activityID], *tx.staged)
	s.mu.Unlock()
	return nil
}

// ─── Inventory ────────────────────────────────────────────────────────────────

func (s *MemoryStore) CreateItem(_ context.Context, it model.InventoryItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[it.ID]; ok {
		return apperr.Duplicate("item %q already exists", it.ID)
	}
	s.items[it.ID] = it
	return nil
}

// countsLocked must be called with s.mu held.
func (s *MemoryStore) countsLocked(itemID string) (approved, pending int) {
	for _, r := range s.requests {
		if r.ItemID != itemID {
			continue
		}
		switch r.Status {
		case model.BorrowApproved:
			approved++
		case model.BorrowPending:
			pending++
		}
	}
	return approved, pending
}

func (s *MemoryStore) GetItem(_ context.Context, id string) (*ItemWithCounts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	it, ok := s.items[id]
	if !ok {
		return nil, apperr.NotFound("item", id)
	}
	approved, pending := s.countsLocked(id)
	return &ItemWithCounts{Item: it, Approved: approved, Pending: pending}, nil
}

func (s *MemoryStore) ListItems(_ context.Context, f model.ItemFilter) ([]ItemWithCounts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := strings.ToLower(strings.TrimSpace(f.Query))
	var out []ItemWithCounts
	for _, it := range s.items {
		if q != "" && !strings.Contains(strings.ToLower(it.Name), q) {
			continue
		}
		if f.Condition != "" && it.Condition != f.Condition {
			continue
		}
		if f.Lendable != nil && it.IsLendable != *f.Lendable {
			continue
		}
		approved, pending := s.countsLocked(it.ID)
		out = append(out, ItemWithCounts{Item: it, Approved: approved, Pending: pending})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Item.Name < out[j].Item.Name })
	return out, nil
}

func (s *MemoryStore) DeleteItem(_ context.Context, id string) error {
	unlock := s.records.Lock(itemKey(id))
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return apperr.NotFound("item", id)
	}
	delete(s.items, id)
	for rid, r := range s.requests {
		if r.ItemID == id {
			delete(s.requests, rid)
		}
	}
	return nil
}

// memItemTx overlays staged writes on the committed state.
type memItemTx struct {
	s      *MemoryStore
	item   model.InventoryItem
	dirty  bool
	staged map[string]model.BorrowingRequest
}

func (tx *memItemTx) Item() model.InventoryItem { return tx.item }

func (tx *memItemTx) Request(_ context.Context, id string) (model.BorrowingRequest, error) {
	if r, ok := tx.staged[id]; ok {
		return r, nil
	}
	tx.s.mu.RLock()
	r, ok := tx.s.requests[id]
	tx.s.mu.RUnlock()
	if !ok || r.ItemID != tx.item.ID {
		return model.BorrowingRequest{}, apperr.NotFound("borrowing request", id)
	}
	return r, nil
}

func (tx *memItemTx) CountByStatus(_ context.Context, status model.BorrowStatus) (int, error) {
	tx.s.mu.RLock()
	defer tx.s.mu.RUnlock()
	n := 0
	for id, r := range tx.s.requests {
		if _, ok := tx.staged[id]; ok || r.ItemID != tx.item.ID {
			continue
		}
		if r.Status == status {
			n++
		}
	}
	for _, r := range tx.staged {
		if r.Status == status {
			n++
		}
	}
	return n, nil
}

func (tx *memItemTx) SaveRequest(_ context.Context, req model.BorrowingRequest) error {
	if req.ItemID != tx.item.ID {
		return apperr.Validation("item_id", "request belongs to another item")
	}
	tx.staged[req.ID] = req
	return nil
}

func (tx *memItemTx) RequesterRegistrations(ctx context.Context, phone string) ([]RegisteredActivity, error) {
	return tx.s.RegistrationsByPhone(ctx, phone)
}

// RequesterBorrowings includes requests staged by this unit of work.
func (tx *memItemTx) RequesterBorrowings(ctx context.Context, phone string) ([]BorrowingWithItem, error) {
	out, err := tx.s.BorrowingsByPhone(ctx, phone)
	if err != nil {
		return nil, err
	}
	for i, b := range out {
		if r, ok := tx.staged[b.Request.ID]; ok {
			out[i].Request = r
		}
	}
	for id, r := range tx.staged {
		if r.Borrower.Phone != phone {
			continue
		}
		if _, ok := tx.s.committedRequest(id); !ok {
			out = append(out, BorrowingWithItem{Request: r, ItemName: tx.item.Name})
		}
	}
	return out, nil
}

func (tx *memItemTx) SaveItem(_ context.Context, item model.InventoryItem) error {
	if item.ID != tx.item.ID {
		return apperr.Validation("id", "cannot change item id")
	}
	tx.item = item
	tx.dirty = true
	return nil
}

func (s *MemoryStore) committedRequest(id string) (model.BorrowingRequest, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.requests[id]
	return r, ok
}

func (s *MemoryStore) BorrowTx(ctx context.Context, itemID, phone string, fn func(tx ItemTx) error) error {
	unlockPhone := s.records.Lock(phoneKey(phone))
	defer unlockPhone()
	return s.WithItem(ctx, itemID, fn)
}

func (s *MemoryStore) WithItem(ctx context.Context, itemID string, fn func(tx ItemTx) error) error {
	unlock := s.records.Lock(itemKey(itemID))
	defer unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	it, ok := s.items[itemID]
	s.mu.RUnlock()
	if !ok {
		return apperr.NotFound("item", itemID)
	}

	tx := &memItemTx{s: s, item: it, staged: make(map[string]model.BorrowingRequest)}
	if err := fn(tx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if tx.dirty {
		s.items[itemID] = tx.item
	}
	for id, r := range tx.staged {
		s.requests[id] = r
	}
	return nil
}

// ─── Borrowings ───────────────────────────────────────────────────────────────

func (s *MemoryStore) GetBorrowing(_ context.Context, id string) (*model.BorrowingRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.requests[id]
	if !ok {
		return nil, apperr.NotFound("borrowing request", id)
	}
	return &r, nil
}

func (s *MemoryStore) ListBorrowings(_ context.Context, f model.BorrowingFilter) ([]model.BorrowingRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.BorrowingRequest
	for _, r := range s.requests {
		if f.ItemID != "" && r.ItemID != f.ItemID {
			continue
		}
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		if f.Phone != "" && r.Borrower.Phone != f.Phone {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) RegistrationsByPhone(_ context.Context, phone string) ([]RegisteredActivity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []RegisteredActivity
	for activityID, regs := range s.registrations {
		for _, r := range regs {
			if r.Requester.Phone == phone {
				out = append(out, RegisteredActivity{Registration: r, Activity: s.activities[activityID]})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Activity.StartsAt.Before(out[j].Activity.StartsAt) })
	return out, nil
}

func (s *MemoryStore) BorrowingsByPhone(_ context.Context, phone string) ([]BorrowingWithItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []BorrowingWithItem
	for _, r := range s.requests {
		if r.Borrower.Phone == phone {
			out = append(out, BorrowingWithItem{Request: r, ItemName: s.items[r.ItemID].Name})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Request.BorrowDate.Before(out[j].Request.BorrowDate) })
	return out, nil
}
