package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	pkgcache "github.com/ghuser/circulation/pkg/cache"
	"github.com/ghuser/circulation/pkg/logger"
	"github.com/ghuser/circulation/services/circulation/domain"
	"github.com/ghuser/circulation/services/circulation/domain/models"
	"github.com/ghuser/circulation/services/circulation/domain/repositories"
)

// CatalogService registers physical items and serves item reads.
// Event publishing is handled by the repository layer (outbox pattern).
// Single-item reads are served from Redis when a cache is configured.
type CatalogService struct {
	items repositories.ItemRepository
	loans repositories.LoanRepository
	cache ItemCache
	log   logger.Logger
}

// NewCatalogService returns a CatalogService. itemCache may be nil.
func NewCatalogService(items repositories.ItemRepository, loans repositories.LoanRepository, itemCache ItemCache, log logger.Logger) *CatalogService {
	return &CatalogService{items: items, loans: loans, cache: itemCache, log: log.With("component", "catalog")}
}

// Register creates a new AVAILABLE copy of the catalog entry.
//
//	GIVEN: no item with catalogID, or the first one has the same title and author
//	WHEN:  Register is called
//	THEN:  a new item with its own ID is stored
//	ERROR: domain.ErrCatalogMetadataMismatch if title or author differ from the first copy
func (s *CatalogService) Register(ctx context.Context, catalogID, title, author string) (*models.Item, error) {
	s.log.InfoContext(ctx, "registering item", "catalog_id", catalogID)

	item, err := models.NewItem(catalogID, title, author)
	if err != nil {
		return nil, err
	}

	err = s.items.Register(ctx, item, func(existing *models.Item) error {
		if existing != nil && !existing.HasSameMetadata(item) {
			return domain.ErrCatalogMetadataMismatch
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrCatalogMetadataMismatch) {
			s.log.WarnContext(ctx, "catalog id already registered with different metadata", "catalog_id", catalogID)
			return nil, err
		}
		return nil, fmt.Errorf("register item: %w", err)
	}

	s.log.InfoContext(ctx, "item registered", "item_id", item.ID, "catalog_id", catalogID)
	return item, nil
}

// List returns one page of items ordered by creation time.
func (s *CatalogService) List(ctx context.Context, index, size int) (*Page[models.Item], error) {
	items, total, err := s.items.List(ctx, repositories.QueryOpts{Limit: size, Offset: index * size})
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return newPage(items, total, index, size), nil
}

// GetByID retrieves an item using a read-through cache:
//  1. Check Redis first.
//  2. On a miss, note the invalidation generation and read the record store.
//  3. Fill the cache unless a borrow or return invalidated it meanwhile.
func (s *CatalogService) GetByID(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	fill := false
	var gen int64
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, id)
		if err == nil {
			return fromCached(cached), nil
		}
		if !errors.Is(err, redis.Nil) {
			s.log.WarnContext(ctx, "item cache read failed", "item_id", id, "error", err)
		} else if gen, err = s.cache.Generation(ctx, id); err != nil {
			s.log.WarnContext(ctx, "item cache generation read failed", "item_id", id, "error", err)
		} else {
			fill = true
		}
	}

	item, err := s.items.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}

	if fill {
		if _, err := s.cache.Fill(ctx, toCached(item), gen); err != nil {
			s.log.WarnContext(ctx, "item cache write failed", "item_id", id, "error", err)
		}
	}
	return item, nil
}

// LoanHistory returns the item's loans, newest first.
func (s *CatalogService) LoanHistory(ctx context.Context, itemID uuid.UUID, index, size int) (*Page[models.Loan], error) {
	if _, err := s.items.GetByID(ctx, itemID); err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	loans, total, err := s.loans.ListByItem(ctx, itemID, repositories.QueryOpts{Limit: size, Offset: index * size})
	if err != nil {
		return nil, fmt.Errorf("list loans: %w", err)
	}
	return newPage(loans, total, index, size), nil
}

func toCached(item *models.Item) *pkgcache.CachedItem {
	return &pkgcache.CachedItem{
		ID:        item.ID,
		CatalogID: item.CatalogID,
		Title:     item.Title,
		Author:    item.Author,
		Status:    string(item.Status),
		CreatedAt: item.CreatedAt,
	}
}

func fromCached(c *pkgcache.CachedItem) *models.Item {
	return &models.Item{
		ID:        c.ID,
		CatalogID: c.CatalogID,
		Title:     c.Title,
		Author:    c.Author,
		Status:    models.ItemStatus(c.Status),
		CreatedAt: c.CreatedAt,
	}
}
