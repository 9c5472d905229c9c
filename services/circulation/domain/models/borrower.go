package models

import (
	"time"

	"github.com/google/uuid"
)

// Borrower is a person eligible to borrow items. Contact is unique across
// all borrowers. Borrowers are immutable once registered.
type Borrower struct {
	ID        uuid.UUID
	Name      string
	Contact   string
	CreatedAt time.Time
}

// NewBorrower validates name and contact and returns an unsaved Borrower.
func NewBorrower(name, contact string) (*Borrower, error) {
	if err := requireText("name", name, MaxNameLength); err != nil {
		return nil, err
	}
	if err := requireText("contact", contact, MaxContactLength); err != nil {
		return nil, err
	}
	return &Borrower{Name: name, Contact: contact}, nil
}
