// Package memory provides an in-process record store for development and
// tests. It gives the same guarantees as the PostgreSQL store: exclusive
// per-item locking, atomic registration per catalog id and unique borrower
// contacts. Nothing survives a restart and no domain events are published.
package memory

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ghuser/circulation/services/circulation/domain"
	"github.com/ghuser/circulation/services/circulation/domain/models"
	"github.com/ghuser/circulation/services/circulation/domain/repositories"
)

// Store holds all circulation records in maps guarded by mu. Lock order is
// always key lock first, then mu.
type Store struct {
	mu        sync.RWMutex
	items     map[uuid.UUID]*models.Item
	catalog   map[string][]uuid.UUID // catalog id -> item ids in registration order
	borrowers map[uuid.UUID]*models.Borrower
	contacts  map[string]uuid.UUID
	loans     map[uuid.UUID]*models.Loan
	itemLoans map[uuid.UUID][]uuid.UUID

	locks *keyLocks
	now   func() time.Time
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{
		items:     make(map[uuid.UUID]*models.Item),
		catalog:   make(map[string][]uuid.UUID),
		borrowers: make(map[uuid.UUID]*models.Borrower),
		contacts:  make(map[string]uuid.UUID),
		loans:     make(map[uuid.UUID]*models.Loan),
		itemLoans: make(map[uuid.UUID][]uuid.UUID),
		locks:     newKeyLocks(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func itemKey(id uuid.UUID) string       { return "item:" + id.String() }
func catalogKey(catalogID string) string { return "catalog:" + catalogID }

// ItemRepository implements repositories.ItemRepository on a Store.
type ItemRepository struct{ s *Store }

// NewItemRepository returns an ItemRepository backed by s.
func NewItemRepository(s *Store) *ItemRepository { return &ItemRepository{s: s} }

// Register serializes on the catalog id, runs check against the first
// registered item with that id and inserts item when check passes.
func (r *ItemRepository) Register(ctx context.Context, item *models.Item, check repositories.RegisterCheck) error {
	release, err := r.s.locks.acquire(ctx, catalogKey(item.CatalogID))
	if err != nil {
		return fmt.Errorf("lock catalog id: %w", err)
	}
	defer release()

	existing, err := r.FindFirstByCatalogID(ctx, item.CatalogID)
	if err != nil && !errors.Is(err, domain.ErrItemNotFound) {
		return err
	}
	if check != nil {
		if err := check(existing); err != nil {
			return err
		}
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	item.ID = uuid.New()
	item.CreatedAt = r.s.now()
	r.s.items[item.ID] = item.Clone()
	r.s.catalog[item.CatalogID] = append(r.s.catalog[item.CatalogID], item.ID)
	return nil
}

// GetByID returns the item or domain.ErrItemNotFound.
func (r *ItemRepository) GetByID(_ context.Context, id uuid.UUID) (*models.Item, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	item, ok := r.s.items[id]
	if !ok {
		return nil, domain.ErrItemNotFound
	}
	return item.Clone(), nil
}

// FindFirstByCatalogID returns the earliest registered item with catalogID.
func (r *ItemRepository) FindFirstByCatalogID(_ context.Context, catalogID string) (*models.Item, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	ids := r.s.catalog[catalogID]
	if len(ids) == 0 {
		return nil, domain.ErrItemNotFound
	}
	return r.s.items[ids[0]].Clone(), nil
}

// List returns a page of items ordered by creation time, then ID.
func (r *ItemRepository) List(_ context.Context, opts repositories.QueryOpts) ([]*models.Item, int, error) {
	r.s.mu.RLock()
	all := make([]*models.Item, 0, len(r.s.items))
	for _, item := range r.s.items {
		all = append(all, item.Clone())
	}
	r.s.mu.RUnlock()

	slices.SortFunc(all, func(a, b *models.Item) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID.String(), b.ID.String())
	})
	return paginate(all, opts), len(all), nil
}

// BorrowerRepository implements repositories.BorrowerRepository on a Store.
type BorrowerRepository struct{ s *Store }

// NewBorrowerRepository returns a BorrowerRepository backed by s.
func NewBorrowerRepository(s *Store) *BorrowerRepository { return &BorrowerRepository{s: s} }

// Save inserts the borrower. The contact check and the insert happen under
// the same write lock.
func (r *BorrowerRepository) Save(_ context.Context, borrower *models.Borrower) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, taken := r.s.contacts[borrower.Contact]; taken {
		return domain.ErrContactInUse
	}
	borrower.ID = uuid.New()
	borrower.CreatedAt = r.s.now()
	cp := *borrower
	r.s.borrowers[borrower.ID] = &cp
	r.s.contacts[borrower.Contact] = borrower.ID
	return nil
}

// GetByID returns the borrower or domain.ErrBorrowerNotFound.
func (r *BorrowerRepository) GetByID(_ context.Context, id uuid.UUID) (*models.Borrower, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	b, ok := r.s.borrowers[id]
	if !ok {
		return nil, domain.ErrBorrowerNotFound
	}
	cp := *b
	return &cp, nil
}

// ExistsByContact reports whether a borrower registered contact.
func (r *BorrowerRepository) ExistsByContact(_ context.Context, contact string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	_, ok := r.s.contacts[contact]
	return ok, nil
}

// LoanRepository implements repositories.LoanRepository on a Store.
type LoanRepository struct{ s *Store }

// NewLoanRepository returns a LoanRepository backed by s.
func NewLoanRepository(s *Store) *LoanRepository { return &LoanRepository{s: s} }

// GetByID returns the loan or domain.ErrLoanNotFound.
func (r *LoanRepository) GetByID(_ context.Context, id uuid.UUID) (*models.Loan, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	loan, ok := r.s.loans[id]
	if !ok {
		return nil, domain.ErrLoanNotFound
	}
	return loan.Clone(), nil
}

// FindByItemAndStatus returns the item's loan in status or domain.ErrLoanNotFound.
func (r *LoanRepository) FindByItemAndStatus(_ context.Context, itemID uuid.UUID, status models.LoanStatus) (*models.Loan, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.findLoan(itemID, status)
}

// ListByItem returns the item's loans, newest first.
func (r *LoanRepository) ListByItem(_ context.Context, itemID uuid.UUID, opts repositories.QueryOpts) ([]*models.Loan, int, error) {
	r.s.mu.RLock()
	ids := r.s.itemLoans[itemID]
	all := make([]*models.Loan, 0, len(ids))
	for _, id := range ids {
		all = append(all, r.s.loans[id].Clone())
	}
	r.s.mu.RUnlock()

	slices.SortFunc(all, func(a, b *models.Loan) int {
		if c := b.BorrowedAt.Compare(a.BorrowedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID.String(), a.ID.String())
	})
	return paginate(all, opts), len(all), nil
}

// findLoan must be called with mu held. The most recent match wins.
func (s *Store) findLoan(itemID uuid.UUID, status models.LoanStatus) (*models.Loan, error) {
	ids := s.itemLoans[itemID]
	for i := len(ids) - 1; i >= 0; i-- {
		if loan := s.loans[ids[i]]; loan.Status == status {
			return loan.Clone(), nil
		}
	}
	return nil, domain.ErrLoanNotFound
}

func paginate[T any](all []T, opts repositories.QueryOpts) []T {
	start := min(max(opts.Offset, 0), len(all))
	end := len(all)
	if opts.Limit > 0 {
		end = min(start+opts.Limit, len(all))
	}
	return all[start:end]
}
