package domain

import "errors"

// Error kinds. Every sentinel below unwraps to exactly one of these, so
// callers can branch on the kind with errors.Is without knowing the
// specific failure.
var (
	// ErrNotFound indicates a referenced record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates the action is disallowed by current state.
	ErrConflict = errors.New("conflict")

	// ErrRejected indicates a return was attempted from a state that does not permit it.
	ErrRejected = errors.New("rejected")

	// ErrConsistencyFailure indicates the item status flag and the loan ledger
	// disagree, or a required write failed after another one succeeded.
	// Never repaired automatically.
	ErrConsistencyFailure = errors.New("consistency failure")

	// ErrInvalidInput indicates a value violates domain constraints.
	ErrInvalidInput = errors.New("invalid input")
)

// Sentinel errors for the circulation domain. Use errors.Is() to check these.
var (
	ErrItemNotFound     = newError(ErrNotFound, "item not found")
	ErrBorrowerNotFound = newError(ErrNotFound, "borrower not found")
	ErrLoanNotFound     = newError(ErrNotFound, "loan not found")

	// ErrCatalogMetadataMismatch indicates an item with the same catalog id
	// exists with a different title or author.
	ErrCatalogMetadataMismatch = newError(ErrConflict, "catalog id already exists with different title/author")

	// ErrContactInUse indicates another borrower already registered the contact address.
	ErrContactInUse = newError(ErrConflict, "contact is already in use")

	// ErrItemAlreadyBorrowed indicates the item is on an active loan.
	ErrItemAlreadyBorrowed = newError(ErrConflict, "item is already borrowed")

	// ErrItemNotBorrowed indicates a return for an item that has no active loan.
	ErrItemNotBorrowed = newError(ErrRejected, "item is not currently borrowed")

	// ErrWrongBorrower indicates a return by someone other than the loan holder.
	ErrWrongBorrower = newError(ErrRejected, "item is currently borrowed by a different borrower")
)

type kindError struct {
	kind error
	msg  string
}

func newError(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Unwrap() error { return e.kind }
