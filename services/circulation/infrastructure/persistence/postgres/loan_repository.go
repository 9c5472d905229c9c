package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ghuser/circulation/pkg/database"
	"github.com/ghuser/circulation/services/circulation/domain"
	"github.com/ghuser/circulation/services/circulation/domain/models"
	"github.com/ghuser/circulation/services/circulation/domain/repositories"
)

// LoanRepository implements repositories.LoanRepository against PostgreSQL.
type LoanRepository struct {
	db *database.Database
}

// NewLoanRepository returns a LoanRepository.
func NewLoanRepository(db *database.Database) *LoanRepository {
	return &LoanRepository{db: db}
}

// GetByID returns the loan or domain.ErrLoanNotFound.
func (r *LoanRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Loan, error) {
	return getLoan(ctx, r.db.DB(), goqu.C(colID).Eq(id))
}

// FindByItemAndStatus returns the item's loan in status or domain.ErrLoanNotFound.
func (r *LoanRepository) FindByItemAndStatus(ctx context.Context, itemID uuid.UUID, status models.LoanStatus) (*models.Loan, error) {
	return findLoanByItemAndStatus(ctx, r.db.DB(), itemID, status)
}

// ListByItem returns the item's loans, newest first, and the total count.
func (r *LoanRepository) ListByItem(ctx context.Context, itemID uuid.UUID, opts repositories.QueryOpts) ([]*models.Loan, int, error) {
	byItem := goqu.C(colItemID).Eq(itemID)
	query, args, err := dialect.From(tableLoans).Prepared(true).
		Select(loanColumns...).
		Where(byItem).
		Order(goqu.C(colBorrowedAt).Desc(), goqu.C(colID).Desc()).
		Limit(uint(opts.Limit)).
		Offset(uint(opts.Offset)).
		ToSQL()
	if err != nil {
		return nil, 0, fmt.Errorf("build list loans: %w", err)
	}

	var rows []loanRow
	if err := r.db.DB().SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("query loans: %w", err)
	}
	total, err := count(ctx, r.db.DB(), dialect.From(tableLoans).Where(byItem))
	if err != nil {
		return nil, 0, fmt.Errorf("count loans: %w", err)
	}

	loans := make([]*models.Loan, len(rows))
	for i, row := range rows {
		loans[i] = row.toModel()
	}
	return loans, total, nil
}

func findLoanByItemAndStatus(ctx context.Context, q sqlx.QueryerContext, itemID uuid.UUID, status models.LoanStatus) (*models.Loan, error) {
	return getLoan(ctx, q, goqu.C(colItemID).Eq(itemID), goqu.C(colStatus).Eq(string(status)))
}

// getLoan returns the most recent loan matching where.
func getLoan(ctx context.Context, q sqlx.QueryerContext, where ...goqu.Expression) (*models.Loan, error) {
	query, args, err := dialect.From(tableLoans).Prepared(true).
		Select(loanColumns...).
		Where(where...).
		Order(goqu.C(colBorrowedAt).Desc(), goqu.C(colID).Desc()).
		Limit(1).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build get loan: %w", err)
	}

	var row loanRow
	if err := sqlx.GetContext(ctx, q, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrLoanNotFound
		}
		return nil, fmt.Errorf("query loan: %w", err)
	}
	return row.toModel(), nil
}
