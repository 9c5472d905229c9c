// Package postgres implements the circulation repositories on PostgreSQL.
// Queries are built with goqu and executed through sqlx; every state change
// writes its domain event to the Watermill outbox in the same transaction.
package postgres

import (
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ghuser/circulation/services/circulation/domain/models"
)

const (
	tableItems     = "items"
	tableBorrowers = "borrowers"
	tableLoans     = "loans"

	colID         = "id"
	colCatalogID  = "catalog_id"
	colTitle      = "title"
	colAuthor     = "author"
	colStatus     = "status"
	colCreatedAt  = "created_at"
	colName       = "name"
	colContact    = "contact"
	colItemID     = "item_id"
	colBorrowerID = "borrower_id"
	colBorrowedAt = "borrowed_at"
	colReturnedAt = "returned_at"

	pgUniqueViolation = "23505"
)

var (
	dialect = goqu.Dialect("postgres")

	itemColumns     = []any{colID, colCatalogID, colTitle, colAuthor, colStatus, colCreatedAt}
	borrowerColumns = []any{colID, colName, colContact, colCreatedAt}
	loanColumns     = []any{colID, colItemID, colBorrowerID, colStatus, colBorrowedAt, colReturnedAt}
)

type itemRow struct {
	ID        uuid.UUID `db:"id"`
	CatalogID string    `db:"catalog_id"`
	Title     string    `db:"title"`
	Author    string    `db:"author"`
	Status    string    `db:"status"`
	CreatedAt time.Time `db:"created_at"`
}

func (r itemRow) toModel() *models.Item {
	return &models.Item{
		ID:        r.ID,
		CatalogID: r.CatalogID,
		Title:     r.Title,
		Author:    r.Author,
		Status:    models.ItemStatus(r.Status),
		CreatedAt: r.CreatedAt,
	}
}

type borrowerRow struct {
	ID        uuid.UUID `db:"id"`
	Name      string    `db:"name"`
	Contact   string    `db:"contact"`
	CreatedAt time.Time `db:"created_at"`
}

func (r borrowerRow) toModel() *models.Borrower {
	return &models.Borrower{ID: r.ID, Name: r.Name, Contact: r.Contact, CreatedAt: r.CreatedAt}
}

type loanRow struct {
	ID         uuid.UUID  `db:"id"`
	ItemID     uuid.UUID  `db:"item_id"`
	BorrowerID uuid.UUID  `db:"borrower_id"`
	Status     string     `db:"status"`
	BorrowedAt time.Time  `db:"borrowed_at"`
	ReturnedAt *time.Time `db:"returned_at"`
}

func (r loanRow) toModel() *models.Loan {
	return &models.Loan{
		ID:         r.ID,
		ItemID:     r.ItemID,
		BorrowerID: r.BorrowerID,
		Status:     models.LoanStatus(r.Status),
		BorrowedAt: r.BorrowedAt,
		ReturnedAt: r.ReturnedAt,
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
