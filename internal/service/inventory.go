package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/aldicoding12/frontend-ulil-sub000/internal/apperr"
	"github.com/aldicoding12/frontend-ulil-sub000/internal/capacity"
	"github.com/aldicoding12/frontend-ulil-sub000/internal/events"
	"github.com/aldicoding12/frontend-ulil-sub000/internal/metrics"
	"github.com/aldicoding12/frontend-ulil-sub000/internal/model"
	"github.com/aldicoding12/frontend-ulil-sub000/internal/repository"
)

// CreateItem validates the request and stores a new inventory item. Items
// default to good condition and lendable.
func (s *ReservationService) CreateItem(ctx context.Context, req model.CreateItemRequest) (*model.ItemAvailability, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, s.fail("create_item", apperr.Validation("name", "is required"), nil)
	}
	if req.Quantity < 0 {
		return nil, s.fail("create_item", apperr.Validation("quantity", "must not be negative"), nil)
	}
	cond := req.Condition
	if cond == "" {
		cond = model.ConditionGood
	}
	if !cond.Valid() {
		return nil, s.fail("create_item", apperr.Validation("condition", "must be good, needs_repair, damaged or out_of_order"), nil)
	}
	lendable := true
	if req.IsLendable != nil {
		lendable = *req.IsLendable
	}

	now := s.now()
	it := model.InventoryItem{
		ID:          s.newID(),
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		Quantity:    req.Quantity,
		Condition:   cond,
		IsLendable:  lendable,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateItem(ctx, it); err != nil {
		return nil, s.fail("create_item", fmt.Errorf("create item: %w", err), nil)
	}

	s.publish(ctx, events.ItemCreated, it)
	log.Info().Str("item_id", it.ID).Int("quantity", it.Quantity).Msg("item created")
	out := capacity.Summarize(it, 0, 0)
	return &out, nil
}

// GetItem returns an item with its live availability.
func (s *ReservationService) GetItem(ctx context.Context, id string) (*model.ItemAvailability, error) {
	row, err := s.store.GetItem(ctx, id)
	if err != nil {
		return nil, s.fail("get_item", err, map[string]any{"item_id": id})
	}
	out := capacity.Summarize(row.Item, row.Approved, row.Pending)
	return &out, nil
}

// ListInventoryItems returns items with currently_available computed from
// approved requests.
func (s *ReservationService) ListInventoryItems(ctx context.Context, f model.ItemFilter) ([]model.ItemAvailability, error) {
	if f.Condition != "" && !f.Condition.Valid() {
		return nil, s.fail("list_items", apperr.Validation("condition", "must be good, needs_repair, damaged or out_of_order"), nil)
	}
	rows, err := s.store.ListItems(ctx, f)
	if err != nil {
		return nil, s.fail("list_items", fmt.Errorf("list items: %w", err), nil)
	}
	out := make([]model.ItemAvailability, 0, len(rows))
	for _, r := range rows {
		out = append(out, capacity.Summarize(r.Item, r.Approved, r.Pending))
	}
	return out, nil
}

// UpdateItem applies an administrative edit under the item's lock. The
// quantity may not drop below the units currently lent out.
func (s *ReservationService) UpdateItem(ctx context.Context, id string, req model.UpdateItemRequest) (*model.ItemAvailability, error) {
	var out model.ItemAvailability
	err := s.store.WithItem(ctx, id, func(tx repository.ItemTx) error {
		it := tx.Item()
		approved, err := tx.CountByStatus(ctx, model.BorrowApproved)
		if err != nil {
			return fmt.Errorf("count approved: %w", err)
		}
		pending, err := tx.CountByStatus(ctx, model.BorrowPending)
		if err != nil {
			return fmt.Errorf("count pending: %w", err)
		}

		if req.Name != nil {
			n := strings.TrimSpace(*req.Name)
			if n == "" {
				return apperr.Validation("name", "is required")
			}
			it.Name = n
		}
		if req.Description != nil {
			it.Description = strings.TrimSpace(*req.Description)
		}
		if req.Quantity != nil {
			if *req.Quantity < 0 {
				return apperr.Validation("quantity", "must not be negative")
			}
			if *req.Quantity < approved {
				return apperr.Validation("quantity", "cannot be below the %d units currently lent out", approved)
			}
			it.Quantity = *req.Quantity
		}
		if req.Condition != nil {
			if !req.Condition.Valid() {
				return apperr.Validation("condition", "must be good, needs_repair, damaged or out_of_order")
			}
			it.Condition = *req.Condition
		}
		if req.IsLendable != nil {
			it.IsLendable = *req.IsLendable
		}
		it.UpdatedAt = s.now()

		if err := tx.SaveItem(ctx, it); err != nil {
			return err
		}
		out = capacity.Summarize(it, approved, pending)
		return nil
	})
	if err != nil {
		return nil, s.fail("update_item", err, map[string]any{"item_id": id})
	}

	s.publish(ctx, events.ItemUpdated, out.InventoryItem)
	log.Info().Str("item_id", id).Msg("item updated")
	return &out, nil
}

// DeleteItem removes an item together with its borrowing requests.
func (s *ReservationService) DeleteItem(ctx context.Context, id string) error {
	if err := s.store.DeleteItem(ctx, id); err != nil {
		return s.fail("delete_item", err, map[string]any{"item_id": id})
	}
	s.publish(ctx, events.ItemDeleted, map[string]string{"id": id})
	log.Info().Str("item_id", id).Msg("item deleted")
	return nil
}

// RequestBorrow submits a pending borrowing request. Submitting does not
// reserve a unit; capacity is enforced at approval. A request that fits in
// one day is checked against the requester's other commitments under the
// same requester lock registration takes.
func (s *ReservationService) RequestBorrow(ctx context.Context, itemID string, in model.BorrowRequest) (*model.BorrowingRequest, error) {
	now := s.now()
	phone := model.NormalizePhone(in.Phone)
	var req model.BorrowingRequest
	err := s.store.BorrowTx(ctx, itemID, phone, func(tx repository.ItemTx) error {
		r, err := s.machine.NewRequest(s.newID(), tx.Item(), in, now)
		if err != nil {
			return err
		}
		if c, ok := s.detector.FromBorrowing(r, tx.Item().Name); ok {
			regs, err := tx.RequesterRegistrations(ctx, r.Borrower.Phone)
			if err != nil {
				return fmt.Errorf("load registrations: %w", err)
			}
			borrows, err := tx.RequesterBorrowings(ctx, r.Borrower.Phone)
			if err != nil {
				return fmt.Errorf("load borrowings: %w", err)
			}
			window := model.Window{Phone: c.Phone, Start: c.Start, End: c.End}
			if clash, found := s.detector.Find(window, s.commitments(regs, borrows, now)); found {
				return apperr.Conflict(*clash)
			}
		}
		if err := tx.SaveRequest(ctx, r); err != nil {
			return err
		}
		req = r
		return nil
	})
	if err != nil {
		return nil, s.fail("request_borrow", err, map[string]any{"item_id": itemID})
	}

	metrics.BorrowingTransitions.WithLabelValues(string(model.BorrowPending)).Inc()
	s.publish(ctx, events.BorrowingRequested, req)
	log.Info().Str("item_id", itemID).Str("request_id", req.ID).Msg("borrowing requested")
	return &req, nil
}

// transition loads a request, then re-reads it under its item's lock and
// applies step. The first read only locates the item.
func (s *ReservationService) transition(
	ctx context.Context,
	op, requestID string,
	step func(tx repository.ItemTx, req model.BorrowingRequest, now time.Time) (model.BorrowingRequest, error),
) (*model.BorrowingRequest, error) {
	fields := map[string]any{"request_id": requestID}
	located, err := s.store.GetBorrowing(ctx, requestID)
	if err != nil {
		return nil, s.fail(op, err, fields)
	}

	now := s.now()
	var next model.BorrowingRequest
	err = s.store.WithItem(ctx, located.ItemID, func(tx repository.ItemTx) error {
		req, err := tx.Request(ctx, requestID)
		if err != nil {
			return err
		}
		n, err := step(tx, req, now)
		if err != nil {
			return err
		}
		if err := tx.SaveRequest(ctx, n); err != nil {
			return err
		}
		next = n
		return nil
	})
	if err != nil {
		fields["item_id"] = located.ItemID
		return nil, s.fail(op, err, fields)
	}

	metrics.BorrowingTransitions.WithLabelValues(string(next.Status)).Inc()
	return &next, nil
}

// ApproveBorrowing approves a pending request if the item still has a free
// unit. The approved count is taken under the item's lock, so concurrent
// approvals can never exceed the quantity.
func (s *ReservationService) ApproveBorrowing(ctx context.Context, requestID, approver string) (*model.BorrowingRequest, error) {
	req, err := s.transition(ctx, "approve_borrowing", requestID,
		func(tx repository.ItemTx, req model.BorrowingRequest, now time.Time) (model.BorrowingRequest, error) {
			approved, err := tx.CountByStatus(ctx, model.BorrowApproved)
			if err != nil {
				return req, fmt.Errorf("count approved: %w", err)
			}
			return s.machine.Approve(req, tx.Item(), approved, approver, now)
		})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.BorrowingApproved, req)
	log.Info().Str("request_id", requestID).Str("approver", *req.ApprovedBy).Msg("borrowing approved")
	return req, nil
}

// RejectBorrowing rejects a pending request. A reason is mandatory; the
// rejecting actor is stored with the request.
func (s *ReservationService) RejectBorrowing(ctx context.Context, requestID, reason, actor string) (*model.BorrowingRequest, error) {
	req, err := s.transition(ctx, "reject_borrowing", requestID,
		func(_ repository.ItemTx, req model.BorrowingRequest, now time.Time) (model.BorrowingRequest, error) {
			return s.machine.Reject(req, reason, actor, now)
		})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.BorrowingRejected, req)
	log.Info().Str("request_id", requestID).Str("actor", strings.TrimSpace(actor)).Msg("borrowing rejected")
	return req, nil
}

// MarkReturned closes an approved request, freeing its unit.
func (s *ReservationService) MarkReturned(ctx context.Context, requestID string, actual time.Time) (*model.BorrowingRequest, error) {
	req, err := s.transition(ctx, "mark_returned", requestID,
		func(_ repository.ItemTx, req model.BorrowingRequest, now time.Time) (model.BorrowingRequest, error) {
			return s.machine.MarkReturned(req, actual, now)
		})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.BorrowingReturned, req)
	log.Info().Str("request_id", requestID).Msg("borrowing returned")
	return req, nil
}

// GetBorrowing returns a single borrowing request.
func (s *ReservationService) GetBorrowing(ctx context.Context, id string) (*model.BorrowingRequest, error) {
	r, err := s.store.GetBorrowing(ctx, id)
	if err != nil {
		return nil, s.fail("get_borrowing", err, map[string]any{"request_id": id})
	}
	return r, nil
}

// ListBorrowings returns borrowing requests, newest first, narrowed by item,
// status or borrower phone.
func (s *ReservationService) ListBorrowings(ctx context.Context, f model.BorrowingFilter) ([]model.BorrowingRequest, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, s.fail("list_borrowings", apperr.Validation("status", "must be pending, approved, rejected or returned"), nil)
	}
	if f.Phone != "" {
		f.Phone = model.NormalizePhone(f.Phone)
	}
	list, err := s.store.ListBorrowings(ctx, f)
	if err != nil {
		return nil, s.fail("list_borrowings", fmt.Errorf("list borrowings: %w", err), nil)
	}
	if list == nil {
		list = []model.BorrowingRequest{}
	}
	return list, nil
}
