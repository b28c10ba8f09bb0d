// Package repository implements persistence for activities, registrations,
// inventory items and borrowing requests.
//
// Every state change runs inside a unit of work scoped to one parent record
// (an activity or an inventory item). The unit of work holds an exclusive
// lock on that record for its whole duration and commits only if the
// callback returns nil, so a failed check never leaves a partial write.
// Units of work on different records do not block each other.
package repository

import (
	"context"

	"github.com/aldicoding12/frontend-ulil-sub000/internal/model"
)

// RegisteredActivity pairs a registration with the activity it belongs to.
type RegisteredActivity struct {
	Registration model.Registration
	Activity     model.Activity
}

// BorrowingWithItem pairs a borrowing request with its item's name.
type BorrowingWithItem struct {
	Request  model.BorrowingRequest
	ItemName string
}

// ItemWithCounts is an item with the number of approved and pending
// requests against it.
type ItemWithCounts struct {
	Item     model.InventoryItem
	Approved int
	Pending  int
}

// RegistrationTx is the view of a locked activity row plus the requester's
// other commitments, held for the duration of one registration.
type RegistrationTx interface {
	Activity() model.Activity
	// IsRegistered reports whether the requester already holds a
	// registration for this activity.
	IsRegistered(ctx context.Context) (bool, error)
	RequesterRegistrations(ctx context.Context) ([]RegisteredActivity, error)
	RequesterBorrowings(ctx context.Context) ([]BorrowingWithItem, error)
	// AddRegistration stores reg and increments registered_count, returning
	// the updated activity.
	AddRegistration(ctx context.Context, reg model.Registration) (model.Activity, error)
}

// ItemTx is the view of a locked inventory item row and its requests.
type ItemTx interface {
	Item() model.InventoryItem
	// Request returns a request of this item, or a not-found error.
	Request(ctx context.Context, id string) (model.BorrowingRequest, error)
	CountByStatus(ctx context.Context, status model.BorrowStatus) (int, error)
	// SaveRequest inserts or updates a request of this item.
	SaveRequest(ctx context.Context, req model.BorrowingRequest) error
	SaveItem(ctx context.Context, item model.InventoryItem) error
	// RequesterRegistrations and RequesterBorrowings return the commitments
	// of phone as seen by this unit of work.
	RequesterRegistrations(ctx context.Context, phone string) ([]RegisteredActivity, error)
	RequesterBorrowings(ctx context.Context, phone string) ([]BorrowingWithItem, error)
}

// Store is the persistence boundary of the reservation core.
type Store interface {
	CreateActivity(ctx context.Context, a model.Activity) error
	GetActivity(ctx context.Context, id string) (*model.Activity, error)
	ListActivities(ctx context.Context, f model.ActivityFilter) ([]model.Activity, error)
	// UpdateActivity runs fn on the locked activity and saves the result.
	UpdateActivity(ctx context.Context, id string, fn func(a *model.Activity) error) (*model.Activity, error)
	// DeleteActivity removes the activity and its registrations.
	DeleteActivity(ctx context.Context, id string) error
	ListRegistrations(ctx context.Context, activityID string) ([]model.Registration, error)
	// RegisterTx locks the requester (by phone) and then the activity, and
	// runs fn inside that unit of work.
	RegisterTx(ctx context.Context, activityID, phone string, fn func(tx RegistrationTx) error) error

	CreateItem(ctx context.Context, it model.InventoryItem) error
	GetItem(ctx context.Context, id string) (*ItemWithCounts, error)
	ListItems(ctx context.Context, f model.ItemFilter) ([]ItemWithCounts, error)
	// DeleteItem removes the item and its borrowing requests.
	DeleteItem(ctx context.Context, id string) error
	// WithItem locks the item and runs fn inside that unit of work.
	WithItem(ctx context.Context, itemID string, fn func(tx ItemTx) error) error
	// BorrowTx locks the requester (by phone) and then the item, and runs fn
	// inside that unit of work. It shares the requester lock with RegisterTx.
	BorrowTx(ctx context.Context, itemID, phone string, fn func(tx ItemTx) error) error

	GetBorrowing(ctx context.Context, id string) (*model.BorrowingRequest, error)
	ListBorrowings(ctx context.Context, f model.BorrowingFilter) ([]model.BorrowingRequest, error)

	RegistrationsByPhone(ctx context.Context, phone string) ([]RegisteredActivity, error)
	BorrowingsByPhone(ctx context.Context, phone string) ([]BorrowingWithItem, error)
}
