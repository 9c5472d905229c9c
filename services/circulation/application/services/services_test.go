package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	pkgcache "github.com/ghuser/circulation/pkg/cache"
	"github.com/ghuser/circulation/services/circulation/domain"
	"github.com/ghuser/circulation/services/circulation/domain/models"
	"github.com/ghuser/circulation/services/circulation/domain/repositories"
	"github.com/ghuser/circulation/services/circulation/infrastructure/persistence/memory"
)

// fixture wires the services over a fresh memory store.
type fixture struct {
	svc    *Services
	stores Stores
	cache  *fakeCache
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	stores := MemoryStores(memory.NewStore())
	fc := newFakeCache()
	clock := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	svc := NewWithStores(stores, Options{
		Cache: fc,
		Now: func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			clock = clock.Add(time.Minute)
			return clock
		},
	})
	return &fixture{svc: svc, stores: stores, cache: fc}
}

func (f *fixture) item(t *testing.T, catalogID string) *models.Item {
	t.Helper()
	item, err := f.svc.Catalog.Register(context.Background(), catalogID, "Dune", "Frank Herbert")
	require.NoError(t, err)
	return item
}

func (f *fixture) borrower(t *testing.T, contact string) *models.Borrower {
	t.Helper()
	b, err := f.svc.Borrowers.Register(context.Background(), "Reader", contact)
	require.NoError(t, err)
	return b
}

// requireLedgerAgreement checks that every item is BORROWED exactly when
// it has one ACTIVE loan.
func (f *fixture) requireLedgerAgreement(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	items, _, err := f.stores.Items.List(ctx, repositories.QueryOpts{Limit: 1000})
	require.NoError(t, err)

	for _, item := range items {
		_, err := f.stores.Loans.FindByItemAndStatus(ctx, item.ID, models.LoanActive)
		hasActive := err == nil
		if err != nil {
			require.ErrorIs(t, err, domain.ErrLoanNotFound)
		}
		require.Equalf(t, hasActive, item.Status == models.ItemBorrowed,
			"item %s status %s disagrees with ledger (active loan: %v)", item.ID, item.Status, hasActive)

		history, _, err := f.stores.Loans.ListByItem(ctx, item.ID, repositories.QueryOpts{Limit: 1000})
		require.NoError(t, err)
		active := 0
		for _, loan := range history {
			if loan.Status == models.LoanActive {
				active++
			}
		}
		require.LessOrEqualf(t, active, 1, "item %s has %d active loans", item.ID, active)
	}
}

type fakeCache struct {
	mu      sync.Mutex
	entries map[uuid.UUID]pkgcache.CachedItem
	gens    map[uuid.UUID]int64
	deletes int
	failGet error
	// beforeFill runs ahead of the generation check, outside the lock.
	beforeFill func(id uuid.UUID)
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		entries: make(map[uuid.UUID]pkgcache.CachedItem),
		gens:    make(map[uuid.UUID]int64),
	}
}

func (c *fakeCache) Get(_ context.Context, id uuid.UUID) (*pkgcache.CachedItem, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failGet != nil {
		return nil, c.failGet
	}
	e, ok := c.entries[id]
	if !ok {
		return nil, redis.Nil
	}
	return &e, nil
}

func (c *fakeCache) Generation(_ context.Context, id uuid.UUID) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[id], nil
}

func (c *fakeCache) Fill(_ context.Context, item *pkgcache.CachedItem, gen int64) (bool, error) {
	if c.beforeFill != nil {
		c.beforeFill(item.ID)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[item.ID] != gen {
		return false, nil
	}
	c.entries[item.ID] = *item
	return true, nil
}

func (c *fakeCache) Delete(_ context.Context, id uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
	c.gens[id]++
	c.deletes++
	return nil
}

func (c *fakeCache) has(id uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[id]
	return ok
}

// failingItemWrites fails every UpdateItem after the loan write went through.
type failingItemWrites struct {
	repositories.LendingStore
}

func (s failingItemWrites) WithItemLock(ctx context.Context, itemID uuid.UUID, fn func(context.Context, repositories.LendingTx) error) error {
	return s.LendingStore.WithItemLock(ctx, itemID, func(ctx context.Context, tx repositories.LendingTx) error {
		return fn(ctx, failingTx{tx})
	})
}

type failingTx struct {
	repositories.LendingTx
}

func (failingTx) UpdateItem(context.Context, *models.Item) error {
	return errors.New("disk full")
}
