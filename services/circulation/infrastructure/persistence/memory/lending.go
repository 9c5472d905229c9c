package memory

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/ghuser/circulation/services/circulation/domain"
	"github.com/ghuser/circulation/services/circulation/domain/models"
	"github.com/ghuser/circulation/services/circulation/domain/repositories"
)

// WithItemLock implements repositories.LendingStore. Writes are staged on
// the transaction and applied together only when fn returns nil.
func (s *Store) WithItemLock(ctx context.Context, itemID uuid.UUID, fn func(ctx context.Context, tx repositories.LendingTx) error) error {
	release, err := s.locks.acquire(ctx, itemKey(itemID))
	if err != nil {
		return fmt.Errorf("lock item: %w", err)
	}
	defer release()

	s.mu.RLock()
	item, ok := s.items[itemID]
	if ok {
		item = item.Clone()
	}
	s.mu.RUnlock()
	if !ok {
		return domain.ErrItemNotFound
	}

	tx := &lendingTx{store: s, item: item, loans: make(map[uuid.UUID]*models.Loan)}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	s.commit(tx)
	return nil
}

func (s *Store) commit(tx *lendingTx) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range tx.order {
		if _, exists := s.loans[id]; !exists {
			s.itemLoans[tx.item.ID] = append(s.itemLoans[tx.item.ID], id)
		}
		s.loans[id] = tx.loans[id]
	}
	if tx.itemDirty {
		s.items[tx.item.ID] = tx.item.Clone()
	}
}

type lendingTx struct {
	store     *Store
	item      *models.Item
	itemDirty bool
	loans     map[uuid.UUID]*models.Loan // staged loan writes
	order     []uuid.UUID
}

func (tx *lendingTx) Item() *models.Item { return tx.item.Clone() }

func (tx *lendingTx) FindLoanByStatus(_ context.Context, status models.LoanStatus) (*models.Loan, error) {
	for i := len(tx.order) - 1; i >= 0; i-- {
		if loan := tx.loans[tx.order[i]]; loan.Status == status {
			return loan.Clone(), nil
		}
	}
	tx.store.mu.RLock()
	defer tx.store.mu.RUnlock()
	loan, err := tx.store.findLoan(tx.item.ID, status)
	if err != nil {
		return nil, err
	}
	// A committed loan staged under a different status no longer matches.
	if staged, ok := tx.loans[loan.ID]; ok && staged.Status != status {
		return nil, domain.ErrLoanNotFound
	}
	return loan, nil
}

func (tx *lendingTx) InsertLoan(_ context.Context, loan *models.Loan) error {
	if loan.ItemID != tx.item.ID {
		return fmt.Errorf("insert loan: item %s is not locked", loan.ItemID)
	}
	loan.ID = uuid.New()
	tx.stage(loan)
	return nil
}

func (tx *lendingTx) UpdateLoan(_ context.Context, loan *models.Loan) error {
	if _, staged := tx.loans[loan.ID]; !staged {
		tx.store.mu.RLock()
		current, ok := tx.store.loans[loan.ID]
		tx.store.mu.RUnlock()
		if !ok || current.ItemID != tx.item.ID {
			return domain.ErrLoanNotFound
		}
	}
	tx.stage(loan)
	return nil
}

func (tx *lendingTx) UpdateItem(_ context.Context, item *models.Item) error {
	if item.ID != tx.item.ID {
		return fmt.Errorf("update item: item %s is not locked", item.ID)
	}
	tx.item = item.Clone()
	tx.itemDirty = true
	return nil
}

func (tx *lendingTx) stage(loan *models.Loan) {
	if _, ok := tx.loans[loan.ID]; !ok {
		tx.order = append(tx.order, loan.ID)
	}
	tx.loans[loan.ID] = loan.Clone()
}
