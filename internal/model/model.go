package model

import (
	"time"
)

// Status is the state of a loan or hold as reported by a remote
// License Status Document.
type Status string

const (
	StatusReady     Status = "ready"
	StatusActive    Status = "active"
	StatusRevoked   Status = "revoked"
	StatusReturned  Status = "returned"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
)

func (s Status) Valid() bool {
	switch s {
	case StatusReady, StatusActive, StatusRevoked, StatusReturned, StatusCancelled, StatusExpired:
		return true
	}
	return false
}

// Terminal reports whether the remote side considers the loan over.
func (s Status) Terminal() bool {
	switch s {
	case StatusRevoked, StatusReturned, StatusCancelled, StatusExpired:
		return true
	}
	return false
}

// License is one unit of borrowing capacity with its own remote lifecycle.
type License struct {
	ID                  int        `json:"-" db:"id"`
	LicenseUid          string     `json:"licenseUid" db:"license_uid"`
	PoolID              int        `json:"-" db:"pool_id"`
	CheckoutURL         string     `json:"-" db:"checkout_url"`
	StatusURL           *string    `json:"-" db:"status_url"`
	Expires             *time.Time `json:"expires,omitempty" db:"expires"`
	ConcurrentCheckouts *int       `json:"concurrentCheckouts,omitempty" db:"concurrent_checkouts"`
	RemainingCheckouts  *int       `json:"remainingCheckouts,omitempty" db:"remaining_checkouts"`
}

func (l License) IsExpired(now time.Time) bool {
	return l.Expires != nil && !now.Before(*l.Expires)
}

// Checkoutable reports whether this license can satisfy one more checkout.
// Exhausted checkout budget does not terminate existing loans.
func (l License) Checkoutable(now time.Time) bool {
	if l.IsExpired(now) {
		return false
	}
	return l.RemainingCheckouts == nil || *l.RemainingCheckouts > 0
}

// LicensePool aggregates all licenses for one title in one collection.
// Counters are recomputed by the hold-queue scheduler, never hand-edited.
type LicensePool struct {
	ID                 int    `json:"-" db:"id"`
	PoolUid            string `json:"poolUid" db:"pool_uid"`
	LicensesOwned      int    `json:"licensesOwned" db:"licenses_owned"`
	LicensesAvailable  int    `json:"licensesAvailable" db:"licenses_available"`
	LicensesReserved   int    `json:"licensesReserved" db:"licenses_reserved"`
	PatronsInHoldQueue int    `json:"patronsInHoldQueue" db:"patrons_in_hold_queue"`
}

// Counters is the scheduler's recomputed view of a pool.
type Counters struct {
	LicensesAvailable  int `json:"licensesAvailable"`
	LicensesReserved   int `json:"licensesReserved"`
	PatronsInHoldQueue int `json:"patronsInHoldQueue"`
}

type Loan struct {
	ID        int    `json:"-" db:"id"`
	PatronID  string `json:"-" db:"patron_id"`
	PoolID    int    `json:"-" db:"pool_id"`
	PoolUid   string `json:"poolUid" db:"pool_uid"`
	LicenseID int    `json:"-" db:"license_id"`
	// CheckoutID is the per-loan checkout session id embedded into the
	// remote checkout request.
	CheckoutID string    `json:"checkoutId" db:"checkout_id"`
	StartDate  time.Time `json:"startDate" db:"start_date"`
	EndDate    *time.Time `json:"endDate,omitempty" db:"end_date"`
	// ExternalIdentifier is the remote loan's canonical status URL
	// (links[rel=self]); it keys all subsequent status queries.
	ExternalIdentifier *string `json:"-" db:"external_identifier"`
}

func (l Loan) Active(now time.Time) bool {
	return l.EndDate == nil || l.EndDate.After(now)
}

type Hold struct {
	ID        int       `json:"-" db:"id"`
	PatronID  string    `json:"-" db:"patron_id"`
	PoolID    int       `json:"-" db:"pool_id"`
	PoolUid   string    `json:"poolUid" db:"pool_uid"`
	StartDate time.Time `json:"startDate" db:"start_date"`
	// EndDate is the worst-case delivery estimate while queued, or the
	// actual reservation expiration once Position == 0.
	EndDate  *time.Time `json:"endDate,omitempty" db:"end_date"`
	Position int        `json:"position" db:"position"`
}

// Ready reports whether a copy is currently reserved for this hold.
func (h Hold) Ready(now time.Time) bool {
	return h.Position == 0 && (h.EndDate == nil || h.EndDate.After(now))
}

type LoanResultKind string

const (
	LoanGranted LoanResultKind = "GRANTED"
	LoanQueued  LoanResultKind = "QUEUED"
)

// LoanResult is the variant outcome of a borrow attempt: an immediate loan,
// or a place in the hold queue when no copy was available.
type LoanResult struct {
	Kind LoanResultKind `json:"kind"`
	Loan *Loan          `json:"loan,omitempty"`
	Hold *Hold          `json:"hold,omitempty"`
}

type EventType string

const (
	EventCheckedOut   EventType = "CHECKED_OUT"
	EventCheckedIn    EventType = "CHECKED_IN"
	EventHoldPlaced   EventType = "HOLD_PLACED"
	EventHoldReleased EventType = "HOLD_RELEASED"
	EventHoldExpired  EventType = "HOLD_EXPIRED"
	EventLoanRevoked  EventType = "LOAN_REVOKED"
)

// CirculationEvent is published to kafka after every successful transition.
type CirculationEvent struct {
	Type      EventType `json:"type"`
	PoolUid   string    `json:"poolUid"`
	PatronID  string    `json:"patronId,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ImportNotification is consumed from the license-import topic; the catalog
// importer emits one whenever a pool's license set changed.
type ImportNotification struct {
	PoolUid string `json:"poolUid"`
}
