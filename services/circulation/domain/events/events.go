package events

import (
	"time"

	"github.com/google/uuid"
)

// Watermill topics for the circulation context. Events are written to the
// outbox in the same transaction as the state change they describe.
const (
	TopicItemRegistered     = "item.registered"
	TopicBorrowerRegistered = "borrower.registered"
	TopicLoanBorrowed       = "loan.borrowed"
	TopicLoanReturned       = "loan.returned"
)

// Version is the current schema version of every event payload.
const Version = 1

// ItemRegisteredEvent is published after a physical item is added to the catalog.
type ItemRegisteredEvent struct {
	EventID    uuid.UUID `json:"event_id"`
	Version    int       `json:"version"`
	ItemID     uuid.UUID `json:"item_id"`
	CatalogID  string    `json:"catalog_id"`
	Title      string    `json:"title"`
	Author     string    `json:"author"`
	OccurredAt time.Time `json:"occurred_at"`
}

// BorrowerRegisteredEvent is published after a borrower is registered.
type BorrowerRegisteredEvent struct {
	EventID    uuid.UUID `json:"event_id"`
	Version    int       `json:"version"`
	BorrowerID uuid.UUID `json:"borrower_id"`
	Name       string    `json:"name"`
	OccurredAt time.Time `json:"occurred_at"`
}

// LoanEvent is published on both lending transitions. Topic tells them
// apart; ItemStatus is the item's status after the transition.
type LoanEvent struct {
	EventID    uuid.UUID `json:"event_id"`
	Version    int       `json:"version"`
	LoanID     uuid.UUID `json:"loan_id"`
	ItemID     uuid.UUID `json:"item_id"`
	BorrowerID uuid.UUID `json:"borrower_id"`
	ItemStatus string    `json:"item_status"`
	OccurredAt time.Time `json:"occurred_at"`
}
