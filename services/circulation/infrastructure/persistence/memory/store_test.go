package memory

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/ghuser/circulation/services/circulation/domain"
	"github.com/ghuser/circulation/services/circulation/domain/models"
	"github.com/ghuser/circulation/services/circulation/domain/repositories"
)

func registerItem(t *testing.T, s *Store, catalogID string) *models.Item {
	t.Helper()
	item, err := models.NewItem(catalogID, "Title", "Author")
	require.NoError(t, err)
	require.NoError(t, NewItemRepository(s).Register(context.Background(), item, nil))
	return item
}

func Test_ItemRepository_Register_AssignsIDAndOrder(t *testing.T) {
	s := NewStore()
	repo := NewItemRepository(s)
	ctx := context.Background()

	first := registerItem(t, s, "ISBN-1")
	second := registerItem(t, s, "ISBN-1")

	assert.NotEqual(t, uuid.Nil, first.ID)
	assert.NotEqual(t, first.ID, second.ID)
	assert.False(t, first.CreatedAt.IsZero())

	found, err := repo.FindFirstByCatalogID(ctx, "ISBN-1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, found.ID)

	_, err = repo.FindFirstByCatalogID(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrItemNotFound)
}

func Test_ItemRepository_Register_CheckAborts(t *testing.T) {
	s := NewStore()
	repo := NewItemRepository(s)
	registerItem(t, s, "ISBN-1")

	item, err := models.NewItem("ISBN-1", "Other", "Author")
	require.NoError(t, err)

	var seen *models.Item
	err = repo.Register(context.Background(), item, func(existing *models.Item) error {
		seen = existing
		return domain.ErrCatalogMetadataMismatch
	})

	assert.ErrorIs(t, err, domain.ErrCatalogMetadataMismatch)
	require.NotNil(t, seen)
	assert.Equal(t, "Title", seen.Title)
	_, total, err := repo.List(context.Background(), repositories.QueryOpts{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func Test_ItemRepository_List_Paginates(t *testing.T) {
	s := NewStore()
	tick := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { tick = tick.Add(time.Second); return tick }

	var ids []uuid.UUID
	for i := 0; i < 5; i++ {
		ids = append(ids, registerItem(t, s, "ISBN").ID)
	}

	page, total, err := NewItemRepository(s).List(context.Background(), repositories.QueryOpts{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, page, 2)
	assert.Equal(t, ids[2], page[0].ID)
	assert.Equal(t, ids[3], page[1].ID)

	page, _, err = NewItemRepository(s).List(context.Background(), repositories.QueryOpts{Limit: 2, Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, page)
}

func Test_BorrowerRepository_UniqueContact(t *testing.T) {
	s := NewStore()
	repo := NewBorrowerRepository(s)
	ctx := context.Background()

	b1, _ := models.NewBorrower("Ann", "ann@example.com")
	require.NoError(t, repo.Save(ctx, b1))

	b2, _ := models.NewBorrower("Another Ann", "ann@example.com")
	assert.ErrorIs(t, repo.Save(ctx, b2), domain.ErrContactInUse)

	exists, err := repo.ExistsByContact(ctx, "ann@example.com")
	require.NoError(t, err)
	assert.True(t, exists)

	got, err := repo.GetByID(ctx, b1.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ann", got.Name)

	_, err = repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrBorrowerNotFound)
}

func Test_BorrowerRepository_ConcurrentSameContact(t *testing.T) {
	repo := NewBorrowerRepository(NewStore())
	var wins atomic.Int32

	var g errgroup.Group
	for i := 0; i < 20; i++ {
		g.Go(func() error {
			b, _ := models.NewBorrower("Ann", "ann@example.com")
			err := repo.Save(context.Background(), b)
			if err == nil {
				wins.Add(1)
				return nil
			}
			if errors.Is(err, domain.ErrContactInUse) {
				return nil
			}
			return err
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, int32(1), wins.Load())
}

func Test_WithItemLock_UnknownItem(t *testing.T) {
	s := NewStore()
	called := false
	err := s.WithItemLock(context.Background(), uuid.New(), func(context.Context, repositories.LendingTx) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, domain.ErrItemNotFound)
	assert.False(t, called)
	assert.Zero(t, s.locks.size())
}

func Test_WithItemLock_CommitsOnSuccess(t *testing.T) {
	s := NewStore()
	item := registerItem(t, s, "ISBN-1")
	borrowerID := uuid.New()
	ctx := context.Background()

	err := s.WithItemLock(ctx, item.ID, func(ctx context.Context, tx repositories.LendingTx) error {
		loan := &models.Loan{ItemID: item.ID, BorrowerID: borrowerID, Status: models.LoanActive, BorrowedAt: time.Now()}
		if err := tx.InsertLoan(ctx, loan); err != nil {
			return err
		}
		found, err := tx.FindLoanByStatus(ctx, models.LoanActive)
		if err != nil {
			return err
		}
		assert.Equal(t, loan.ID, found.ID, "staged loan is visible inside the transaction")

		locked := tx.Item()
		locked.Status = models.ItemBorrowed
		return tx.UpdateItem(ctx, locked)
	})
	require.NoError(t, err)

	got, err := NewItemRepository(s).GetByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ItemBorrowed, got.Status)

	loan, err := NewLoanRepository(s).FindByItemAndStatus(ctx, item.ID, models.LoanActive)
	require.NoError(t, err)
	assert.Equal(t, borrowerID, loan.BorrowerID)
}

func Test_WithItemLock_DiscardsOnError(t *testing.T) {
	s := NewStore()
	item := registerItem(t, s, "ISBN-1")
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.WithItemLock(ctx, item.ID, func(ctx context.Context, tx repositories.LendingTx) error {
		loan := &models.Loan{ItemID: item.ID, BorrowerID: uuid.New(), Status: models.LoanActive}
		require.NoError(t, tx.InsertLoan(ctx, loan))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = NewLoanRepository(s).FindByItemAndStatus(ctx, item.ID, models.LoanActive)
	assert.ErrorIs(t, err, domain.ErrLoanNotFound)
	assert.Zero(t, s.locks.size(), "lock released after error")
}

func Test_WithItemLock_ReleasedOnPanic(t *testing.T) {
	s := NewStore()
	item := registerItem(t, s, "ISBN-1")

	func() {
		defer func() { _ = recover() }()
		_ = s.WithItemLock(context.Background(), item.ID, func(context.Context, repositories.LendingTx) error {
			panic("boom")
		})
	}()

	assert.Zero(t, s.locks.size())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, s.WithItemLock(ctx, item.ID, func(context.Context, repositories.LendingTx) error { return nil }))
}

func Test_WithItemLock_SameItemIsExclusive(t *testing.T) {
	s := NewStore()
	item := registerItem(t, s, "ISBN-1")
	var inside, maxInside atomic.Int32

	var g errgroup.Group
	for i := 0; i < 10; i++ {
		g.Go(func() error {
			return s.WithItemLock(context.Background(), item.ID, func(context.Context, repositories.LendingTx) error {
				n := inside.Add(1)
				for {
					m := maxInside.Load()
					if n <= m || maxInside.CompareAndSwap(m, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				inside.Add(-1)
				return nil
			})
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, int32(1), maxInside.Load())
}

func Test_WithItemLock_DifferentItemsProceedInParallel(t *testing.T) {
	s := NewStore()
	a := registerItem(t, s, "ISBN-A")
	b := registerItem(t, s, "ISBN-B")

	entered := make(chan struct{})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.WithItemLock(gctx, a.ID, func(ctx context.Context, _ repositories.LendingTx) error {
			close(entered)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(50 * time.Millisecond):
			}
			return nil
		})
	})
	g.Go(func() error {
		<-entered
		start := time.Now()
		err := s.WithItemLock(gctx, b.ID, func(context.Context, repositories.LendingTx) error { return nil })
		if time.Since(start) > 40*time.Millisecond {
			return errors.New("lock on a different item blocked")
		}
		return err
	})
	require.NoError(t, g.Wait())
}

func Test_WithItemLock_HonorsContext(t *testing.T) {
	s := NewStore()
	item := registerItem(t, s, "ISBN-1")
	held := make(chan struct{})
	done := make(chan struct{})

	go func() {
		_ = s.WithItemLock(context.Background(), item.ID, func(context.Context, repositories.LendingTx) error {
			close(held)
			<-done
			return nil
		})
	}()
	<-held

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := s.WithItemLock(ctx, item.ID, func(context.Context, repositories.LendingTx) error { return nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	close(done)
}

func Test_LoanRepository_ListByItem_NewestFirst(t *testing.T) {
	s := NewStore()
	item := registerItem(t, s, "ISBN-1")
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		err := s.WithItemLock(ctx, item.ID, func(ctx context.Context, tx repositories.LendingTx) error {
			returned := base.Add(time.Duration(i)*time.Hour + time.Minute)
			return tx.InsertLoan(ctx, &models.Loan{
				ItemID: item.ID, BorrowerID: uuid.New(), Status: models.LoanReturned,
				BorrowedAt: base.Add(time.Duration(i) * time.Hour), ReturnedAt: &returned,
			})
		})
		require.NoError(t, err)
	}

	loans, total, err := NewLoanRepository(s).ListByItem(ctx, item.ID, repositories.QueryOpts{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, loans, 3)
	assert.True(t, loans[0].BorrowedAt.After(loans[1].BorrowedAt))
	assert.True(t, loans[1].BorrowedAt.After(loans[2].BorrowedAt))
}
