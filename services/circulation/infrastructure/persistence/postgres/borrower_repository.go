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
	"github.com/ghuser/circulation/pkg/events"
	"github.com/ghuser/circulation/services/circulation/domain"
	domainevents "github.com/ghuser/circulation/services/circulation/domain/events"
	"github.com/ghuser/circulation/services/circulation/domain/models"
)

// BorrowerRepository implements repositories.BorrowerRepository against PostgreSQL.
type BorrowerRepository struct {
	db  *database.Database
	bus *events.EventBus
}

// NewBorrowerRepository returns a BorrowerRepository. bus may be nil.
func NewBorrowerRepository(db *database.Database, bus *events.EventBus) *BorrowerRepository {
	return &BorrowerRepository{db: db, bus: bus}
}

// Save inserts the borrower. The unique index on contact turns a racing
// duplicate into domain.ErrContactInUse.
func (r *BorrowerRepository) Save(ctx context.Context, borrower *models.Borrower) error {
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		query, args, err := dialect.Insert(tableBorrowers).Prepared(true).
			Rows(goqu.Record{colName: borrower.Name, colContact: borrower.Contact}).
			Returning(colID, colCreatedAt).
			ToSQL()
		if err != nil {
			return fmt.Errorf("build insert borrower: %w", err)
		}
		if err := tx.QueryRowxContext(ctx, query, args...).Scan(&borrower.ID, &borrower.CreatedAt); err != nil {
			if isUniqueViolation(err) {
				return domain.ErrContactInUse
			}
			return fmt.Errorf("insert borrower: %w", err)
		}

		if r.bus == nil {
			return nil
		}
		return r.bus.PublishTx(ctx, tx.Tx, domainevents.TopicBorrowerRegistered, domainevents.BorrowerRegisteredEvent{
			EventID:    uuid.New(),
			Version:    domainevents.Version,
			BorrowerID: borrower.ID,
			Name:       borrower.Name,
			OccurredAt: borrower.CreatedAt,
		})
	})
}

// GetByID returns the borrower or domain.ErrBorrowerNotFound.
func (r *BorrowerRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Borrower, error) {
	query, args, err := dialect.From(tableBorrowers).Prepared(true).
		Select(borrowerColumns...).
		Where(goqu.C(colID).Eq(id)).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build get borrower: %w", err)
	}

	var row borrowerRow
	if err := r.db.DB().GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrBorrowerNotFound
		}
		return nil, fmt.Errorf("query borrower: %w", err)
	}
	return row.toModel(), nil
}

// ExistsByContact reports whether a borrower registered contact.
func (r *BorrowerRepository) ExistsByContact(ctx context.Context, contact string) (bool, error) {
	n, err := count(ctx, r.db.DB(), dialect.From(tableBorrowers).Where(goqu.C(colContact).Eq(contact)))
	if err != nil {
		return false, fmt.Errorf("check contact: %w", err)
	}
	return n > 0, nil
}
