package models

import (
	"time"

	"github.com/google/uuid"
)

// LoanStatus is the lifecycle state of a single circulation event.
type LoanStatus string

const (
	LoanActive   LoanStatus = "ACTIVE"
	LoanReturned LoanStatus = "RETURNED"
)

// Loan records one borrow of one item by one borrower. It references the
// item and borrower without owning them. A loan moves ACTIVE -> RETURNED
// exactly once and is never deleted.
type Loan struct {
	ID         uuid.UUID
	ItemID     uuid.UUID
	BorrowerID uuid.UUID
	Status     LoanStatus
	BorrowedAt time.Time
	ReturnedAt *time.Time // nil until the loan is returned
}

// IsActive reports whether the loan is still outstanding.
func (l *Loan) IsActive() bool {
	return l.Status == LoanActive
}

// Clone returns a deep copy of the loan.
func (l *Loan) Clone() *Loan {
	cp := *l
	if l.ReturnedAt != nil {
		t := *l.ReturnedAt
		cp.ReturnedAt = &t
	}
	return &cp
}
