package services

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghuser/circulation/services/circulation/domain"
	"github.com/ghuser/circulation/services/circulation/domain/models"
)

var now = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func availableItem() *models.Item {
	return &models.Item{ID: uuid.New(), CatalogID: "ISBN-1", Title: "T", Author: "A", Status: models.ItemAvailable}
}

func borrowedItem() (*models.Item, *models.Loan) {
	item := availableItem()
	item.Status = models.ItemBorrowed
	loan := &models.Loan{
		ID:         uuid.New(),
		ItemID:     item.ID,
		BorrowerID: uuid.New(),
		Status:     models.LoanActive,
		BorrowedAt: now.Add(-time.Hour),
	}
	return item, loan
}

func Test_DecideBorrow_AvailableItem(t *testing.T) {
	item := availableItem()
	borrowerID := uuid.New()

	decision, err := DecideBorrow(item, nil, borrowerID, now)

	require.NoError(t, err)
	assert.Equal(t, models.ItemBorrowed, decision.NextStatus)
	assert.Equal(t, item.ID, decision.Loan.ItemID)
	assert.Equal(t, borrowerID, decision.Loan.BorrowerID)
	assert.Equal(t, models.LoanActive, decision.Loan.Status)
	assert.Equal(t, now, decision.Loan.BorrowedAt)
	assert.Nil(t, decision.Loan.ReturnedAt)
	assert.Equal(t, models.ItemAvailable, item.Status, "decision must not mutate the item")
}

func Test_DecideBorrow_AlreadyBorrowed(t *testing.T) {
	item, loan := borrowedItem()

	_, err := DecideBorrow(item, loan, uuid.New(), now)
	assert.ErrorIs(t, err, domain.ErrItemAlreadyBorrowed)
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = DecideBorrow(item, loan, loan.BorrowerID, now)
	assert.ErrorIs(t, err, domain.ErrItemAlreadyBorrowed, "the holder cannot borrow the item twice")
}

func Test_DecideReturn_ByHolder(t *testing.T) {
	item, loan := borrowedItem()

	decision, err := DecideReturn(item, loan, loan.BorrowerID, now)

	require.NoError(t, err)
	assert.Equal(t, models.ItemAvailable, decision.NextStatus)
	assert.Equal(t, loan.ID, decision.Loan.ID)
	assert.Equal(t, models.LoanReturned, decision.Loan.Status)
	require.NotNil(t, decision.Loan.ReturnedAt)
	assert.Equal(t, now, *decision.Loan.ReturnedAt)
	assert.Equal(t, loan.BorrowedAt, decision.Loan.BorrowedAt)
	assert.Equal(t, models.LoanActive, loan.Status, "decision must not mutate the input loan")
}

func Test_DecideReturn_Rejections(t *testing.T) {
	t.Run("not borrowed", func(t *testing.T) {
		_, err := DecideReturn(availableItem(), nil, uuid.New(), now)
		assert.ErrorIs(t, err, domain.ErrItemNotBorrowed)
		assert.ErrorIs(t, err, domain.ErrRejected)
	})

	t.Run("wrong borrower", func(t *testing.T) {
		item, loan := borrowedItem()
		_, err := DecideReturn(item, loan, uuid.New(), now)
		assert.ErrorIs(t, err, domain.ErrWrongBorrower)
		assert.ErrorIs(t, err, domain.ErrRejected)
	})
}

func Test_Decide_FlagLedgerDisagreement(t *testing.T) {
	borrowedNoLoan := availableItem()
	borrowedNoLoan.Status = models.ItemBorrowed

	availableWithLoan, loan := borrowedItem()
	availableWithLoan.Status = models.ItemAvailable

	unknown := availableItem()
	unknown.Status = "LOST"

	tests := []struct {
		name string
		item *models.Item
		loan *models.Loan
	}{
		{"flag BORROWED without active loan", borrowedNoLoan, nil},
		{"flag AVAILABLE with active loan", availableWithLoan, loan},
		{"unknown status", unknown, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecideBorrow(tt.item, tt.loan, loan.BorrowerID, now)
			assert.ErrorIs(t, err, domain.ErrConsistencyFailure)

			_, err = DecideReturn(tt.item, tt.loan, loan.BorrowerID, now)
			assert.ErrorIs(t, err, domain.ErrConsistencyFailure)
		})
	}
}

func Test_Decide_BorrowReturnCycle(t *testing.T) {
	item := availableItem()
	holder := uuid.New()

	for i := 0; i < 3; i++ {
		borrow, err := DecideBorrow(item, nil, holder, now)
		require.NoError(t, err)
		item.Status = borrow.NextStatus
		borrow.Loan.ID = uuid.New()

		ret, err := DecideReturn(item, borrow.Loan, holder, now.Add(time.Minute))
		require.NoError(t, err)
		item.Status = ret.NextStatus
	}

	assert.Equal(t, models.ItemAvailable, item.Status)
	_, err := DecideReturn(item, nil, holder, now)
	assert.True(t, errors.Is(err, domain.ErrItemNotBorrowed))
}
