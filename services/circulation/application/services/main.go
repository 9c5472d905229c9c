package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ghuser/circulation/pkg/app"
	"github.com/ghuser/circulation/pkg/cache"
	"github.com/ghuser/circulation/pkg/database"
	"github.com/ghuser/circulation/pkg/events"
	"github.com/ghuser/circulation/pkg/logger"
	"github.com/ghuser/circulation/pkg/telemetry"
	"github.com/ghuser/circulation/services/circulation/domain/repositories"
	"github.com/ghuser/circulation/services/circulation/infrastructure/persistence/memory"
	"github.com/ghuser/circulation/services/circulation/infrastructure/persistence/postgres"
)

// Services is the application-layer service container for this bounded context.
// It wires domain services with their infrastructure implementations.
type Services struct {
	Catalog   *CatalogService
	Borrowers *BorrowerService
	Lending   *LendingCoordinator
}

// Stores groups the record store implementations one backend provides.
type Stores struct {
	Items     repositories.ItemRepository
	Borrowers repositories.BorrowerRepository
	Loans     repositories.LoanRepository
	Lending   repositories.LendingStore
}

// PostgresStores returns the PostgreSQL-backed stores. bus may be nil.
func PostgresStores(db *database.Database, bus *events.EventBus) Stores {
	return Stores{
		Items:     postgres.NewItemRepository(db, bus),
		Borrowers: postgres.NewBorrowerRepository(db, bus),
		Loans:     postgres.NewLoanRepository(db),
		Lending:   postgres.NewLendingStore(db, bus),
	}
}

// MemoryStores returns stores sharing the in-process Store s.
func MemoryStores(s *memory.Store) Stores {
	return Stores{
		Items:     memory.NewItemRepository(s),
		Borrowers: memory.NewBorrowerRepository(s),
		Loans:     memory.NewLoanRepository(s),
		Lending:   s,
	}
}

// ItemCache is the item read model used by CatalogService and invalidated
// by LendingCoordinator. Get returns redis.Nil on a miss. Fill writes only
// if no Delete happened since Generation returned gen.
type ItemCache interface {
	Get(ctx context.Context, itemID uuid.UUID) (*cache.CachedItem, error)
	Generation(ctx context.Context, itemID uuid.UUID) (int64, error)
	Fill(ctx context.Context, item *cache.CachedItem, gen int64) (bool, error)
	Delete(ctx context.Context, itemID uuid.UUID) error
}

// Options configures NewWithStores. Zero values are usable: no cache, no
// metrics, a discarding logger and the wall clock.
type Options struct {
	Cache   ItemCache
	Metrics *telemetry.LendingMetrics
	Logger  logger.Logger
	Now     func() time.Time
}

// New wires all circulation application services with infrastructure from
// the Application container. The memory store is used when no database is
// configured.
func New(a *app.Application) *Services {
	stores := MemoryStores(memory.NewStore())
	if a.Db != nil {
		stores = PostgresStores(a.Db, a.EventBus)
	}

	opts := Options{Metrics: a.Metrics, Logger: a.Logger}
	if a.Redis != nil {
		opts.Cache = cache.NewItemCache(a.Redis)
	}
	return NewWithStores(stores, opts)
}

// NewWithStores wires the services over explicit stores.
func NewWithStores(st Stores, opts Options) *Services {
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Services{
		Catalog:   NewCatalogService(st.Items, st.Loans, opts.Cache, opts.Logger),
		Borrowers: NewBorrowerService(st.Borrowers, opts.Logger),
		Lending:   NewLendingCoordinator(st.Borrowers, st.Lending, opts),
	}
}

// Page is one page of a listing plus the total count ignoring pagination.
type Page[T any] struct {
	Items []*T
	Total int
	Index int
	Size  int
}

func newPage[T any](items []*T, total, index, size int) *Page[T] {
	if items == nil {
		items = []*T{}
	}
	return &Page[T]{Items: items, Total: total, Index: index, Size: size}
}
