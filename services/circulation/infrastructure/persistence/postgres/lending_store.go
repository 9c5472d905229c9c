package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ghuser/circulation/pkg/database"
	"github.com/ghuser/circulation/pkg/events"
	"github.com/ghuser/circulation/services/circulation/domain"
	domainevents "github.com/ghuser/circulation/services/circulation/domain/events"
	"github.com/ghuser/circulation/services/circulation/domain/models"
	"github.com/ghuser/circulation/services/circulation/domain/repositories"
)

// LendingStore implements repositories.LendingStore with a row lock on the
// item held for the lifetime of one transaction.
type LendingStore struct {
	db  *database.Database
	bus *events.EventBus
}

// NewLendingStore returns a LendingStore. bus may be nil.
func NewLendingStore(db *database.Database, bus *events.EventBus) *LendingStore {
	return &LendingStore{db: db, bus: bus}
}

// WithItemLock opens a transaction, locks the item row with SELECT ... FOR
// UPDATE and runs fn. The row lock is released at commit or rollback.
func (s *LendingStore) WithItemLock(ctx context.Context, itemID uuid.UUID, fn func(ctx context.Context, tx repositories.LendingTx) error) error {
	return s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		query, args, err := dialect.From(tableItems).Prepared(true).
			Select(itemColumns...).
			Where(goqu.C(colID).Eq(itemID)).
			ForUpdate(exp.Wait).
			ToSQL()
		if err != nil {
			return fmt.Errorf("build lock item: %w", err)
		}

		var row itemRow
		if err := tx.GetContext(ctx, &row, query, args...); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return domain.ErrItemNotFound
			}
			return fmt.Errorf("lock item: %w", err)
		}

		return fn(ctx, &lendingTx{tx: tx, item: row.toModel(), bus: s.bus})
	})
}

type lendingTx struct {
	tx   *sqlx.Tx
	item *models.Item
	bus  *events.EventBus
}

func (t *lendingTx) Item() *models.Item { return t.item.Clone() }

func (t *lendingTx) FindLoanByStatus(ctx context.Context, status models.LoanStatus) (*models.Loan, error) {
	return findLoanByItemAndStatus(ctx, t.tx, t.item.ID, status)
}

func (t *lendingTx) InsertLoan(ctx context.Context, loan *models.Loan) error {
	query, args, err := dialect.Insert(tableLoans).Prepared(true).
		Rows(goqu.Record{
			colItemID:     loan.ItemID,
			colBorrowerID: loan.BorrowerID,
			colStatus:     string(loan.Status),
			colBorrowedAt: loan.BorrowedAt,
			colReturnedAt: loan.ReturnedAt,
		}).
		Returning(colID).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build insert loan: %w", err)
	}
	if err := t.tx.QueryRowxContext(ctx, query, args...).Scan(&loan.ID); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: item %s already has an active loan", domain.ErrConsistencyFailure, loan.ItemID)
		}
		return fmt.Errorf("insert loan: %w", err)
	}

	if loan.Status != models.LoanActive {
		return nil
	}
	return t.publish(ctx, domainevents.TopicLoanBorrowed, loan, models.ItemBorrowed, loan.BorrowedAt)
}

func (t *lendingTx) UpdateLoan(ctx context.Context, loan *models.Loan) error {
	query, args, err := dialect.Update(tableLoans).Prepared(true).
		Set(goqu.Record{colStatus: string(loan.Status), colReturnedAt: loan.ReturnedAt}).
		Where(goqu.C(colID).Eq(loan.ID), goqu.C(colItemID).Eq(t.item.ID)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build update loan: %w", err)
	}
	if err := expectOneRow(t.tx.ExecContext(ctx, query, args...)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrLoanNotFound
		}
		return fmt.Errorf("update loan: %w", err)
	}

	if loan.Status != models.LoanReturned || loan.ReturnedAt == nil {
		return nil
	}
	return t.publish(ctx, domainevents.TopicLoanReturned, loan, models.ItemAvailable, *loan.ReturnedAt)
}

func (t *lendingTx) UpdateItem(ctx context.Context, item *models.Item) error {
	if item.ID != t.item.ID {
		return fmt.Errorf("update item: item %s is not locked", item.ID)
	}
	query, args, err := dialect.Update(tableItems).Prepared(true).
		Set(goqu.Record{colStatus: string(item.Status)}).
		Where(goqu.C(colID).Eq(item.ID)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build update item: %w", err)
	}
	if err := expectOneRow(t.tx.ExecContext(ctx, query, args...)); err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	t.item = item.Clone()
	return nil
}

func (t *lendingTx) publish(ctx context.Context, topic string, loan *models.Loan, status models.ItemStatus, at time.Time) error {
	if t.bus == nil {
		return nil
	}
	return t.bus.PublishTx(ctx, t.tx.Tx, topic, domainevents.LoanEvent{
		EventID:    uuid.New(),
		Version:    domainevents.Version,
		LoanID:     loan.ID,
		ItemID:     loan.ItemID,
		BorrowerID: loan.BorrowerID,
		ItemStatus: string(status),
		OccurredAt: at,
	})
}

func expectOneRow(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n != 1 {
		return sql.ErrNoRows
	}
	return nil
}
