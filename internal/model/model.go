// Package model defines the core domain types for the reservation and
// capacity management system.
package model

import "time"

// ActivityStatus is the publication state of an activity. The string values
// are part of the persisted contract.
type ActivityStatus string

const (
	ActivityDraft     ActivityStatus = "draft"
	ActivityPending   ActivityStatus = "pending"
	ActivityPublished ActivityStatus = "published"
)

// Valid reports whether s is one of the known statuses.
func (s ActivityStatus) Valid() bool {
	switch s {
	case ActivityDraft, ActivityPending, ActivityPublished:
		return true
	}
	return false
}

// ActivityKind tags the activity variant. Only regular activities carry
// participant capacity; donation activities are display-only.
type ActivityKind string

const (
	KindRegular  ActivityKind = "regular"
	KindDonation ActivityKind = "donation"
)

// Valid reports whether k is one of the known kinds.
func (k ActivityKind) Valid() bool {
	return k == KindRegular || k == KindDonation
}

// DonationInfo holds the fields that only exist on the donation variant.
type DonationInfo struct {
	Target int64 `json:"target"`
}

// Activity represents a scheduled event created by an organizer.
type Activity struct {
	ID              string         `json:"id"`
	Kind            ActivityKind   `json:"kind"`
	Title           string         `json:"title"`
	Category        string         `json:"category"`
	Description     string         `json:"description"`
	Location        string         `json:"location"`
	StartsAt        time.Time      `json:"starts_at"`
	EndsAt          time.Time      `json:"ends_at"`
	MaxParticipants int            `json:"max_participants"`
	RegisteredCount int            `json:"registered_count"`
	Status          ActivityStatus `json:"status"`
	Donation        *DonationInfo  `json:"donation,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// IsRegular reports whether registration and capacity apply to a.
func (a *Activity) IsRegular() bool {
	return a.Kind == KindRegular
}

// IsFull returns true when no seats remain.
func (a *Activity) IsFull() bool {
	return a.RegisteredCount >= a.MaxParticipants
}

// Requester identifies an end user. Phone is the only identity field that is
// cross-referenced between records.
type Requester struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// Registration represents a user's registration for an activity.
type Registration struct {
	ID         string    `json:"id"`
	ActivityID string    `json:"activity_id"`
	Requester  Requester `json:"requester"`
	CreatedAt  time.Time `json:"created_at"`
}

// ActivityFilter narrows activity listings. Zero values mean "no filter".
type ActivityFilter struct {
	From     *time.Time
	To       *time.Time
	Category string
	Status   ActivityStatus
}

// CommitmentSource says which record a commitment was derived from.
type CommitmentSource string

const (
	SourceRegistration CommitmentSource = "registration"
	SourceBorrowing    CommitmentSource = "borrowing"
)

// Commitment is one entry of a requester's reservation window: a time range
// on a single calendar day that the requester has already committed to.
type Commitment struct {
	Source   CommitmentSource `json:"source"`
	SourceID string           `json:"source_id"`
	Title    string           `json:"title"`
	Phone    string           `json:"phone"`
	DateKey  string           `json:"date"`
	Start    time.Time        `json:"start"`
	End      time.Time        `json:"end"`
}

// Window is a candidate time range a requester wants to commit to.
type Window struct {
	Phone string    `json:"phone"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}
