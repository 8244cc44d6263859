package errs

import (
	"errors"
)

var (
	// ErrNotFound covers unknown pools, loans and holds.
	ErrNotFound = errors.New("not found")
	ErrUserName = errors.New("username is required")

	// ErrNoLicenses - the pool owns no usable license at all.
	ErrNoLicenses = errors.New("no usable licenses")
	// ErrNoAvailableCopies - copies exist but all are loaned or reserved.
	ErrNoAvailableCopies = errors.New("no available copies")

	ErrAlreadyCheckedOut  = errors.New("already checked out")
	ErrAlreadyOnHold      = errors.New("already on hold")
	ErrNotCheckedOut      = errors.New("not checked out")
	ErrNotOnHold          = errors.New("not on hold")
	// ErrCurrentlyAvailable - a hold was attempted while checkout would succeed.
	ErrCurrentlyAvailable = errors.New("currently available")

	// Remote protocol violated expectations.
	ErrCannotLoan        = errors.New("cannot loan")
	ErrCannotFulfill     = errors.New("cannot fulfill")
	ErrCannotReleaseHold = errors.New("cannot release hold")
	// ErrBadResponse - malformed or unparseable status document.
	ErrBadResponse = errors.New("bad status document response")
)

type ValidationErrorResponse struct {
	Message string `json:"message"`
	Errors  struct {
		AdditionalProperties string `json:"additionalProperties"`
	} `json:"errors"`
}
