package model

import "time"

// ItemCondition is the physical state of an inventory item.
type ItemCondition string

const (
	ConditionGood        ItemCondition = "good"
	ConditionNeedsRepair ItemCondition = "needs_repair"
	ConditionDamaged     ItemCondition = "damaged"
	ConditionOutOfOrder  ItemCondition = "out_of_order"
)

// Valid reports whether c is one of the known conditions.
func (c ItemCondition) Valid() bool {
	switch c {
	case ConditionGood, ConditionNeedsRepair, ConditionDamaged, ConditionOutOfOrder:
		return true
	}
	return false
}

// InventoryItem is a kind of physical equipment owned in Quantity units.
type InventoryItem struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Quantity    int           `json:"quantity"`
	Condition   ItemCondition `json:"condition"`
	IsLendable  bool          `json:"is_lendable"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// BorrowStatus is the lifecycle state of a borrowing request.
type BorrowStatus string

const (
	BorrowPending  BorrowStatus = "pending"
	BorrowApproved BorrowStatus = "approved"
	BorrowRejected BorrowStatus = "rejected"
	BorrowReturned BorrowStatus = "returned"
)

// Valid reports whether s is one of the known statuses.
func (s BorrowStatus) Valid() bool {
	switch s {
	case BorrowPending, BorrowApproved, BorrowRejected, BorrowReturned:
		return true
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s BorrowStatus) Terminal() bool {
	return s == BorrowRejected || s == BorrowReturned
}

// BorrowingRequest is a request to take custody of one unit of an item.
type BorrowingRequest struct {
	ID               string       `json:"id"`
	ItemID           string       `json:"item_id"`
	Borrower         Requester    `json:"borrower"`
	Purpose          string       `json:"purpose,omitempty"`
	BorrowDate       time.Time    `json:"borrow_date"`
	ReturnDate       time.Time    `json:"return_date"`
	DocumentURL      string       `json:"document_url"`
	Status           BorrowStatus `json:"status"`
	RejectionReason  *string      `json:"rejection_reason,omitempty"`
	ApprovedBy       *string      `json:"approved_by,omitempty"`
	ApprovedAt       *time.Time   `json:"approved_at,omitempty"`
	RejectedAt       *time.Time   `json:"rejected_at,omitempty"`
	RejectedBy       *string      `json:"rejected_by,omitempty"`
	ActualReturnDate *time.Time   `json:"actual_return_date,omitempty"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

// ItemAvailability is an item together with its live capacity figures.
type ItemAvailability struct {
	InventoryItem
	CurrentlyAvailable int `json:"currently_available"`
	ApprovedCount      int `json:"approved_count"`
	PendingCount       int `json:"pending_count"`
	// OverbookedPending is set when pending requests exceed the units still
	// available. Pending requests do not reserve stock.
	OverbookedPending bool `json:"overbooked_pending"`
}

// ItemFilter narrows inventory listings.
type ItemFilter struct {
	Query     string
	Condition ItemCondition
	Lendable  *bool
}

// BorrowingFilter narrows borrowing request listings.
type BorrowingFilter struct {
	ItemID string
	Status BorrowStatus
	Phone  string
}
