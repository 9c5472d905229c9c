package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ghuser/circulation/pkg/logger"
	"github.com/ghuser/circulation/pkg/telemetry"
	"github.com/ghuser/circulation/services/circulation/domain"
	"github.com/ghuser/circulation/services/circulation/domain/models"
	"github.com/ghuser/circulation/services/circulation/domain/repositories"
	domainsvcs "github.com/ghuser/circulation/services/circulation/domain/services"
)

const (
	opBorrow = "borrow"
	opReturn = "return"

	outcomeSuccess     = "success"
	outcomeNotFound    = "not_found"
	outcomeConflict    = "conflict"
	outcomeRejected    = "rejected"
	outcomeConsistency = "consistency_failure"
	outcomeError       = "error"
)

var tracer = otel.Tracer("github.com/ghuser/circulation/services/circulation/application/services")

// LoanView is the result of a lending operation: the loan written plus
// the item and borrower it joins.
type LoanView struct {
	Loan     *models.Loan
	Item     *models.Item
	Borrower *models.Borrower
}

// LendingCoordinator runs borrow and return under the item lock so that
// the loan write and the item status write land together.
type LendingCoordinator struct {
	borrowers repositories.BorrowerRepository
	lending   repositories.LendingStore
	cache     ItemCache
	metrics   *telemetry.LendingMetrics
	log       logger.Logger
	now       func() time.Time
}

// NewLendingCoordinator returns a LendingCoordinator. opts.Logger and
// opts.Now must be set; NewWithStores fills them in.
func NewLendingCoordinator(borrowers repositories.BorrowerRepository, lending repositories.LendingStore, opts Options) *LendingCoordinator {
	return &LendingCoordinator{
		borrowers: borrowers,
		lending:   lending,
		cache:     opts.Cache,
		metrics:   opts.Metrics,
		log:       opts.Logger.With("component", "lending"),
		now:       opts.Now,
	}
}

// Borrow lends itemID to borrowerID.
//
//	GIVEN: an existing borrower and an AVAILABLE item
//	WHEN:  Borrow is called
//	THEN:  an ACTIVE loan is written and the item becomes BORROWED
//	ERROR: domain.ErrBorrowerNotFound, domain.ErrItemNotFound
//	ERROR: domain.ErrItemAlreadyBorrowed if the item is on an ACTIVE loan
//	ERROR: domain.ErrConsistencyFailure if the item flag and ledger disagree
//	       or the item write fails after the loan write
func (c *LendingCoordinator) Borrow(ctx context.Context, borrowerID, itemID uuid.UUID) (*LoanView, error) {
	return c.run(ctx, opBorrow, borrowerID, itemID, func(ctx context.Context, tx repositories.LendingTx, item *models.Item, active *models.Loan) (*models.Loan, error) {
		decision, err := domainsvcs.DecideBorrow(item, active, borrowerID, c.now())
		if err != nil {
			return nil, err
		}
		if err := tx.InsertLoan(ctx, decision.Loan); err != nil {
			return nil, fmt.Errorf("insert loan: %w", err)
		}
		item.Status = decision.NextStatus
		if err := tx.UpdateItem(ctx, item); err != nil {
			return nil, partialWrite(err)
		}
		return decision.Loan, nil
	})
}

// Return closes borrowerID's ACTIVE loan on itemID.
//
//	GIVEN: an item on an ACTIVE loan held by borrowerID
//	WHEN:  Return is called
//	THEN:  the loan becomes RETURNED and the item AVAILABLE
//	ERROR: domain.ErrBorrowerNotFound, domain.ErrItemNotFound
//	ERROR: domain.ErrItemNotBorrowed, domain.ErrWrongBorrower
//	ERROR: domain.ErrConsistencyFailure as for Borrow
func (c *LendingCoordinator) Return(ctx context.Context, borrowerID, itemID uuid.UUID) (*LoanView, error) {
	return c.run(ctx, opReturn, borrowerID, itemID, func(ctx context.Context, tx repositories.LendingTx, item *models.Item, active *models.Loan) (*models.Loan, error) {
		decision, err := domainsvcs.DecideReturn(item, active, borrowerID, c.now())
		if err != nil {
			return nil, err
		}
		if err := tx.UpdateLoan(ctx, decision.Loan); err != nil {
			return nil, fmt.Errorf("update loan: %w", err)
		}
		item.Status = decision.NextStatus
		if err := tx.UpdateItem(ctx, item); err != nil {
			return nil, partialWrite(err)
		}
		return decision.Loan, nil
	})
}

// lendingStep decides and writes one operation while the item is locked.
type lendingStep func(ctx context.Context, tx repositories.LendingTx, item *models.Item, active *models.Loan) (*models.Loan, error)

func (c *LendingCoordinator) run(ctx context.Context, op string, borrowerID, itemID uuid.UUID, step lendingStep) (view *LoanView, err error) {
	ctx, span := tracer.Start(ctx, "lending."+op, trace.WithAttributes(
		attribute.String("borrower.id", borrowerID.String()),
		attribute.String("item.id", itemID.String()),
	))
	start := time.Now()
	log := c.log.With("operation", op, "borrower_id", borrowerID, "item_id", itemID)
	defer func() {
		c.finish(ctx, span, log, op, start, err)
		span.End()
	}()

	log.InfoContext(ctx, op+" requested")

	borrower, err := c.borrowers.GetByID(ctx, borrowerID)
	if err != nil {
		return nil, err
	}

	var loan *models.Loan
	var item *models.Item
	err = c.lending.WithItemLock(ctx, itemID, func(ctx context.Context, tx repositories.LendingTx) error {
		locked := tx.Item()
		active, err := tx.FindLoanByStatus(ctx, models.LoanActive)
		if errors.Is(err, domain.ErrLoanNotFound) {
			active, err = nil, nil
		}
		if err != nil {
			return fmt.Errorf("find active loan: %w", err)
		}

		written, err := step(ctx, tx, locked, active)
		if err != nil {
			return err
		}
		loan, item = written, locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.invalidate(ctx, log, itemID)
	log.InfoContext(ctx, op+" completed", "loan_id", loan.ID)
	return &LoanView{Loan: loan, Item: item, Borrower: borrower}, nil
}

// finish records the outcome on the span, the metrics and the log.
func (c *LendingCoordinator) finish(ctx context.Context, span trace.Span, log logger.Logger, op string, start time.Time, err error) {
	outcome := classify(err)
	c.metrics.Record(ctx, op, outcome, time.Since(start))
	span.SetAttributes(attribute.String("lending.outcome", outcome))

	switch outcome {
	case outcomeSuccess:
		return
	case outcomeNotFound, outcomeConflict, outcomeRejected:
		log.WarnContext(ctx, op+" rejected", "reason", err.Error())
		return
	case outcomeConsistency:
		log.ErrorContext(ctx, op+" hit inconsistent lending state", "error", err)
		telemetry.ReportError(ctx, err, map[string]string{"operation": op})
	default:
		log.ErrorContext(ctx, op+" failed", "error", err)
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// invalidate drops the item's read model entry. Failures leave a stale
// entry that expires with the cache TTL.
func (c *LendingCoordinator) invalidate(ctx context.Context, log logger.Logger, itemID uuid.UUID) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Delete(context.WithoutCancel(ctx), itemID); err != nil {
		log.WarnContext(ctx, "item cache invalidation failed", "error", err)
	}
}

func classify(err error) string {
	switch {
	case err == nil:
		return outcomeSuccess
	case errors.Is(err, domain.ErrConsistencyFailure):
		return outcomeConsistency
	case errors.Is(err, domain.ErrNotFound):
		return outcomeNotFound
	case errors.Is(err, domain.ErrConflict):
		return outcomeConflict
	case errors.Is(err, domain.ErrRejected):
		return outcomeRejected
	default:
		return outcomeError
	}
}

func partialWrite(err error) error {
	return fmt.Errorf("%w: loan written but item status update failed: %w", domain.ErrConsistencyFailure, err)
}
