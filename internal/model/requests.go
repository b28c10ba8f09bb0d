package model

import "time"

// CreateActivityRequest is the payload for creating a new activity. EndsAt
// wins over DurationMinutes when both are set.
type CreateActivityRequest struct {
	Kind            ActivityKind   `json:"kind"`
	Title           string         `json:"title"`
	Category        string         `json:"category"`
	Description     string         `json:"description"`
	Location        string         `json:"location"`
	StartsAt        time.Time      `json:"starts_at"`
	EndsAt          *time.Time     `json:"ends_at,omitempty"`
	DurationMinutes int            `json:"duration_minutes,omitempty"`
	MaxParticipants int            `json:"max_participants"`
	Status          ActivityStatus `json:"status"`
	DonationTarget  int64          `json:"donation_target,omitempty"`
}

// UpdateActivityRequest is an administrative edit. Nil fields are unchanged.
type UpdateActivityRequest struct {
	Title           *string         `json:"title,omitempty"`
	Category        *string         `json:"category,omitempty"`
	Description     *string         `json:"description,omitempty"`
	Location        *string         `json:"location,omitempty"`
	StartsAt        *time.Time      `json:"starts_at,omitempty"`
	EndsAt          *time.Time      `json:"ends_at,omitempty"`
	MaxParticipants *int            `json:"max_participants,omitempty"`
	Status          *ActivityStatus `json:"status,omitempty"`
	DonationTarget  *int64          `json:"donation_target,omitempty"`
}

// RegisterRequest is the payload for registering for an activity.
type RegisterRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// RegistrationResult is returned by a successful registration.
type RegistrationResult struct {
	Registration    Registration `json:"registration"`
	RegisteredCount int          `json:"registered_count"`
	Success         bool         `json:"success"`
}

// CreateItemRequest is the payload for adding an inventory item.
type CreateItemRequest struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Quantity    int           `json:"quantity"`
	Condition   ItemCondition `json:"condition"`
	IsLendable  *bool         `json:"is_lendable,omitempty"`
}

// UpdateItemRequest is an administrative edit. Nil fields are unchanged.
type UpdateItemRequest struct {
	Name        *string        `json:"name,omitempty"`
	Description *string        `json:"description,omitempty"`
	Quantity    *int           `json:"quantity,omitempty"`
	Condition   *ItemCondition `json:"condition,omitempty"`
	IsLendable  *bool          `json:"is_lendable,omitempty"`
}

// BorrowRequest is the payload for requesting to borrow an item.
type BorrowRequest struct {
	Name        string    `json:"name"`
	Phone       string    `json:"phone"`
	Purpose     string    `json:"purpose"`
	BorrowDate  time.Time `json:"borrow_date"`
	ReturnDate  time.Time `json:"return_date"`
	DocumentURL string    `json:"document_url"`
}

// ApproveRequest is the payload for approving a borrowing request.
type ApproveRequest struct {
	Approver string `json:"approver"`
}

// RejectRequest is the payload for rejecting a borrowing request.
type RejectRequest struct {
	Reason string `json:"reason"`
	Actor  string `json:"actor"`
}

// ReturnRequest is the payload for marking a borrowing request returned.
type ReturnRequest struct {
	ActualReturnDate time.Time `json:"actual_return_date"`
}

// ConflictCheckRequest asks whether a window clashes with a requester's
// existing commitments.
type ConflictCheckRequest struct {
	Phone string    `json:"phone"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// ConflictCheckResult carries the conflicting commitment, if any.
type ConflictCheckResult struct {
	Conflict    bool        `json:"conflict"`
	ConflictsOn *Commitment `json:"conflicts_with,omitempty"`
}

// ErrorBody describes a failed request.
type ErrorBody struct {
	Code     string      `json:"code"`
	Message  string      `json:"message"`
	Field    string      `json:"field,omitempty"`
	Conflict *Commitment `json:"conflict,omitempty"`
}

// ErrorResponse is the standard JSON error envelope.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}
