package main

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"

	"github.com/ghuser/circulation/pkg/cache"
	"github.com/ghuser/circulation/pkg/events"
	"github.com/ghuser/circulation/pkg/logger"
	circulationEvents "github.com/ghuser/circulation/services/circulation/domain/events"
	"github.com/ghuser/circulation/services/circulation/domain/models"
)

type itemCache interface {
	Fill(ctx context.Context, item *cache.CachedItem, gen int64) (bool, error)
	Delete(ctx context.Context, itemID uuid.UUID) error
}

type subscriber interface {
	Subscribe(ctx context.Context, topic string, handler events.Handler) (<-chan error, error)
}

// subscribers holds the event handlers run by the worker. Every handler is
// idempotent because the bus redelivers on error.
type subscribers struct {
	cache itemCache
	log   logger.Logger
}

func (s *subscribers) handlers() map[string]events.Handler {
	return map[string]events.Handler{
		circulationEvents.TopicItemRegistered:     s.itemRegistered,
		circulationEvents.TopicBorrowerRegistered: s.borrowerRegistered,
		circulationEvents.TopicLoanBorrowed:       s.loanChanged,
		circulationEvents.TopicLoanReturned:       s.loanChanged,
	}
}

func (s *subscribers) register(ctx context.Context, bus subscriber) error {
	topics := make([]string, 0, 4)
	for topic, h := range s.handlers() {
		errCh, err := bus.Subscribe(ctx, topic, h)
		if err != nil {
			return err
		}
		go func() {
			for err := range errCh {
				s.log.ErrorContext(ctx, "subscriber error", "topic", topic, "error", err)
			}
		}()
		topics = append(topics, topic)
	}
	s.log.Info("event subscribers registered", "topics", topics)
	return nil
}

// supported acks payloads written by a newer producer without handling them.
func (s *subscribers) supported(ctx context.Context, msg *message.Message, version int) bool {
	if version == circulationEvents.Version {
		return true
	}
	s.log.WarnContext(ctx, "skipping event with unknown version",
		"message_id", msg.UUID, "version", version)
	return false
}

// itemRegistered warms the read model so the first GET of a new item hits
// Redis. The entry is written at generation 0 only: once any borrow or return
// invalidated the item, the AVAILABLE snapshot in the event is stale and is
// dropped. A failed write is logged and acked; the API fills the entry on read.
func (s *subscribers) itemRegistered(ctx context.Context, msg *message.Message) error {
	evt, err := events.Decode[circulationEvents.ItemRegisteredEvent](msg)
	if err != nil {
		return err
	}
	if !s.supported(ctx, msg, evt.Version) {
		return nil
	}

	written, err := s.cache.Fill(ctx, &cache.CachedItem{
		ID:        evt.ItemID,
		CatalogID: evt.CatalogID,
		Title:     evt.Title,
		Author:    evt.Author,
		Status:    string(models.ItemAvailable),
		CreatedAt: evt.OccurredAt,
	}, 0)
	if err != nil {
		s.log.WarnContext(ctx, "cache warm failed", "item_id", evt.ItemID, "error", err)
		return nil
	}
	if !written {
		s.log.InfoContext(ctx, "cache warm skipped, item already changed", "item_id", evt.ItemID)
		return nil
	}
	s.log.InfoContext(ctx, "cache warmed", "item_id", evt.ItemID, "catalog_id", evt.CatalogID)
	return nil
}

func (s *subscribers) borrowerRegistered(ctx context.Context, msg *message.Message) error {
	evt, err := events.Decode[circulationEvents.BorrowerRegisteredEvent](msg)
	if err != nil {
		return err
	}
	if s.supported(ctx, msg, evt.Version) {
		s.log.InfoContext(ctx, "borrower registered", "borrower_id", evt.BorrowerID)
	}
	return nil
}

// loanChanged drops the item's cache entry after a borrow or return. The
// API also invalidates, but only best-effort; a failure here is retried.
func (s *subscribers) loanChanged(ctx context.Context, msg *message.Message) error {
	evt, err := events.Decode[circulationEvents.LoanEvent](msg)
	if err != nil {
		return err
	}
	if !s.supported(ctx, msg, evt.Version) {
		return nil
	}
	if err := s.cache.Delete(ctx, evt.ItemID); err != nil {
		return err
	}
	s.log.InfoContext(ctx, "item cache invalidated",
		"item_id", evt.ItemID, "loan_id", evt.LoanID, "item_status", evt.ItemStatus)
	return nil
}
