package repositories

import (
	"context"

	"github.com/google/uuid"

	"github.com/ghuser/circulation/services/circulation/domain/models"
)

// QueryOpts contains pagination parameters for list queries.
type QueryOpts struct {
	Limit  int // Maximum number of records to return
	Offset int // Number of records to skip
}

// RegisterCheck inspects the first Item already registered under a catalog
// id (nil when there is none). A non-nil return aborts the insert.
type RegisterCheck func(existing *models.Item) error

// ItemRepository is the persistence interface for physical items.
// The domain layer owns this interface; infrastructure implements it.
type ItemRepository interface {
	// Register inserts item, assigning its ID and CreatedAt. Registrations
	// sharing a catalog id are serialized so that check and insert are atomic.
	Register(ctx context.Context, item *models.Item, check RegisterCheck) error

	GetByID(ctx context.Context, id uuid.UUID) (*models.Item, error)

	// FindFirstByCatalogID returns the earliest registered item with the
	// catalog id, or domain.ErrItemNotFound.
	FindFirstByCatalogID(ctx context.Context, catalogID string) (*models.Item, error)

	// List returns a page ordered by creation time then ID, plus the total
	// count ignoring pagination.
	List(ctx context.Context, opts QueryOpts) ([]*models.Item, int, error)
}

// BorrowerRepository is the persistence interface for borrowers.
type BorrowerRepository interface {
	// Save inserts borrower. A contact already held by another borrower
	// fails with domain.ErrContactInUse, including under concurrent inserts.
	Save(ctx context.Context, borrower *models.Borrower) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Borrower, error)
	ExistsByContact(ctx context.Context, contact string) (bool, error)
}

// LoanRepository exposes read access to the loan ledger. Loans are only
// written through a LendingTx.
type LoanRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Loan, error)
	FindByItemAndStatus(ctx context.Context, itemID uuid.UUID, status models.LoanStatus) (*models.Loan, error)

	// ListByItem returns the loan history of an item, newest first.
	ListByItem(ctx context.Context, itemID uuid.UUID, opts QueryOpts) ([]*models.Loan, int, error)
}

// LendingStore grants exclusive access to a single item.
type LendingStore interface {
	// WithItemLock holds an exclusive lock on the item for the duration of
	// fn. It fails with domain.ErrItemNotFound when no such item exists.
	// Writes made through tx become visible only when fn returns nil; the
	// lock is released on every exit path.
	WithItemLock(ctx context.Context, itemID uuid.UUID, fn func(ctx context.Context, tx LendingTx) error) error
}

// LendingTx is the view of the store available while an item is locked.
type LendingTx interface {
	// Item returns the locked item as read after the lock was acquired.
	Item() *models.Item

	// FindLoanByStatus returns the locked item's loan in the given status,
	// or domain.ErrLoanNotFound.
	FindLoanByStatus(ctx context.Context, status models.LoanStatus) (*models.Loan, error)

	// InsertLoan assigns the loan's ID.
	InsertLoan(ctx context.Context, loan *models.Loan) error
	UpdateLoan(ctx context.Context, loan *models.Loan) error
	UpdateItem(ctx context.Context, item *models.Item) error
}
