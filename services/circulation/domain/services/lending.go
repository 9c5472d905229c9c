package services

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ghuser/circulation/services/circulation/domain"
	"github.com/ghuser/circulation/services/circulation/domain/models"
)

// BorrowDecision is the outcome of an accepted borrow: the loan to insert
// and the status the item moves to.
type BorrowDecision struct {
	Loan       *models.Loan
	NextStatus models.ItemStatus
}

// ReturnDecision is the outcome of an accepted return: the closed loan and
// the status the item moves to.
type ReturnDecision struct {
	Loan       *models.Loan
	NextStatus models.ItemStatus
}

// DecideBorrow decides whether borrowerID may borrow item.
//
// activeLoan is the item's ACTIVE loan as read under the item lock, or nil.
// The item's status flag and the ledger must agree; a disagreement in
// either direction is reported as domain.ErrConsistencyFailure and nothing
// is written.
//
//	GIVEN: an item with no ACTIVE loan
//	WHEN:  borrow is requested
//	THEN:  a new ACTIVE loan stamped with now; the item becomes BORROWED
//	ERROR: domain.ErrItemAlreadyBorrowed if the item is on an ACTIVE loan
func DecideBorrow(item *models.Item, activeLoan *models.Loan, borrowerID uuid.UUID, now time.Time) (BorrowDecision, error) {
	if err := checkAgreement(item, activeLoan); err != nil {
		return BorrowDecision{}, err
	}

	if activeLoan != nil {
		return BorrowDecision{}, domain.ErrItemAlreadyBorrowed
	}

	return BorrowDecision{
		Loan: &models.Loan{
			ItemID:     item.ID,
			BorrowerID: borrowerID,
			Status:     models.LoanActive,
			BorrowedAt: now,
		},
		NextStatus: models.ItemBorrowed,
	}, nil
}

// DecideReturn decides whether borrowerID may return item.
//
//	GIVEN: an item on an ACTIVE loan held by borrowerID
//	WHEN:  return is requested
//	THEN:  the loan becomes RETURNED stamped with now; the item becomes AVAILABLE
//	ERROR: domain.ErrItemNotBorrowed if the item has no ACTIVE loan
//	ERROR: domain.ErrWrongBorrower if another borrower holds the loan
func DecideReturn(item *models.Item, activeLoan *models.Loan, borrowerID uuid.UUID, now time.Time) (ReturnDecision, error) {
	if err := checkAgreement(item, activeLoan); err != nil {
		return ReturnDecision{}, err
	}

	if activeLoan == nil {
		return ReturnDecision{}, domain.ErrItemNotBorrowed
	}

	if activeLoan.BorrowerID != borrowerID {
		return ReturnDecision{}, domain.ErrWrongBorrower
	}

	closed := activeLoan.Clone()
	closed.Status = models.LoanReturned
	returnedAt := now
	closed.ReturnedAt = &returnedAt

	return ReturnDecision{Loan: closed, NextStatus: models.ItemAvailable}, nil
}

// checkAgreement verifies the item's status flag against its ACTIVE loan.
func checkAgreement(item *models.Item, activeLoan *models.Loan) error {
	switch {
	case item.Status == models.ItemBorrowed && activeLoan == nil:
		return fmt.Errorf("%w: item %s is BORROWED but has no active loan", domain.ErrConsistencyFailure, item.ID)
	case item.Status == models.ItemAvailable && activeLoan != nil:
		return fmt.Errorf("%w: item %s is AVAILABLE but has active loan %s", domain.ErrConsistencyFailure, item.ID, activeLoan.ID)
	case item.Status != models.ItemBorrowed && item.Status != models.ItemAvailable:
		return fmt.Errorf("%w: item %s has unknown status %q", domain.ErrConsistencyFailure, item.ID, item.Status)
	}
	return nil
}
