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
	"github.com/ghuser/circulation/services/circulation/domain/repositories"
)

// ItemRepository implements repositories.ItemRepository against PostgreSQL.
type ItemRepository struct {
	db  *database.Database
	bus *events.EventBus
}

// NewItemRepository returns an ItemRepository. bus may be nil, in which
// case no ItemRegisteredEvent is written.
func NewItemRepository(db *database.Database, bus *events.EventBus) *ItemRepository {
	return &ItemRepository{db: db, bus: bus}
}

// Register takes a transaction-scoped advisory lock on the catalog id, runs
// check against the earliest item with that id and inserts item.
func (r *ItemRepository) Register(ctx context.Context, item *models.Item, check repositories.RegisterCheck) error {
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		lockSQL, args, err := dialect.Select(
			goqu.Func("pg_advisory_xact_lock", goqu.Func("hashtext", item.CatalogID)),
		).Prepared(true).ToSQL()
		if err != nil {
			return fmt.Errorf("build lock query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, lockSQL, args...); err != nil {
			return fmt.Errorf("lock catalog id: %w", err)
		}

		existing, err := findFirstByCatalogID(ctx, tx, item.CatalogID)
		if err != nil && !errors.Is(err, domain.ErrItemNotFound) {
			return err
		}
		if check != nil {
			if err := check(existing); err != nil {
				return err
			}
		}

		insertSQL, args, err := dialect.Insert(tableItems).Prepared(true).
			Rows(goqu.Record{
				colCatalogID: item.CatalogID,
				colTitle:     item.Title,
				colAuthor:    item.Author,
				colStatus:    string(item.Status),
			}).
			Returning(colID, colCreatedAt).
			ToSQL()
		if err != nil {
			return fmt.Errorf("build insert item: %w", err)
		}
		if err := tx.QueryRowxContext(ctx, insertSQL, args...).Scan(&item.ID, &item.CreatedAt); err != nil {
			return fmt.Errorf("insert item: %w", err)
		}

		if r.bus == nil {
			return nil
		}
		return r.bus.PublishTx(ctx, tx.Tx, domainevents.TopicItemRegistered, domainevents.ItemRegisteredEvent{
			EventID:    uuid.New(),
			Version:    domainevents.Version,
			ItemID:     item.ID,
			CatalogID:  item.CatalogID,
			Title:      item.Title,
			Author:     item.Author,
			OccurredAt: item.CreatedAt,
		})
	})
}

// GetByID returns the item or domain.ErrItemNotFound.
func (r *ItemRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	query, args, err := dialect.From(tableItems).Prepared(true).
		Select(itemColumns...).
		Where(goqu.C(colID).Eq(id)).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build get item: %w", err)
	}

	var row itemRow
	if err := r.db.DB().GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrItemNotFound
		}
		return nil, fmt.Errorf("query item: %w", err)
	}
	return row.toModel(), nil
}

// FindFirstByCatalogID returns the earliest registered item with catalogID.
func (r *ItemRepository) FindFirstByCatalogID(ctx context.Context, catalogID string) (*models.Item, error) {
	return findFirstByCatalogID(ctx, r.db.DB(), catalogID)
}

func findFirstByCatalogID(ctx context.Context, q sqlx.QueryerContext, catalogID string) (*models.Item, error) {
	query, args, err := dialect.From(tableItems).Prepared(true).
		Select(itemColumns...).
		Where(goqu.C(colCatalogID).Eq(catalogID)).
		Order(goqu.C(colCreatedAt).Asc(), goqu.C(colID).Asc()).
		Limit(1).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build find item by catalog id: %w", err)
	}

	var row itemRow
	if err := sqlx.GetContext(ctx, q, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrItemNotFound
		}
		return nil, fmt.Errorf("query item by catalog id: %w", err)
	}
	return row.toModel(), nil
}

// List returns a page of items ordered by creation time then ID, and the
// total count.
func (r *ItemRepository) List(ctx context.Context, opts repositories.QueryOpts) ([]*models.Item, int, error) {
	query, args, err := dialect.From(tableItems).Prepared(true).
		Select(itemColumns...).
		Order(goqu.C(colCreatedAt).Asc(), goqu.C(colID).Asc()).
		Limit(uint(opts.Limit)).
		Offset(uint(opts.Offset)).
		ToSQL()
	if err != nil {
		return nil, 0, fmt.Errorf("build list items: %w", err)
	}

	var rows []itemRow
	if err := r.db.DB().SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("query items: %w", err)
	}

	total, err := count(ctx, r.db.DB(), dialect.From(tableItems))
	if err != nil {
		return nil, 0, fmt.Errorf("count items: %w", err)
	}

	items := make([]*models.Item, len(rows))
	for i, row := range rows {
		items[i] = row.toModel()
	}
	return items, total, nil
}

func count(ctx context.Context, q sqlx.QueryerContext, ds *goqu.SelectDataset) (int, error) {
	query, args, err := ds.Prepared(true).Select(goqu.COUNT("*")).ToSQL()
	if err != nil {
		return 0, err
	}
	var n int
	if err := sqlx.GetContext(ctx, q, &n, query, args...); err != nil {
		return 0, err
	}
	return n, nil
}
