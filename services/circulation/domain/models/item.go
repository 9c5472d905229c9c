package models

import (
	"time"

	"github.com/google/uuid"
)

// ItemStatus is the availability flag of a physical item.
type ItemStatus string

const (
	ItemAvailable ItemStatus = "AVAILABLE"
	ItemBorrowed  ItemStatus = "BORROWED"
)

// Item is one physical lendable copy. Several items may share a CatalogID.
//
// Status is derived from the loan ledger: it is BORROWED exactly when one
// ACTIVE loan references the item. Only the lending coordinator changes it.
type Item struct {
	ID        uuid.UUID // assigned by the record store on insert
	CatalogID string
	Title     string
	Author    string
	Status    ItemStatus
	CreatedAt time.Time
}

// NewItem validates the catalog metadata and returns an AVAILABLE item
// ready to be registered.
func NewItem(catalogID, title, author string) (*Item, error) {
	if err := requireText("catalog_id", catalogID, MaxCatalogIDLength); err != nil {
		return nil, err
	}
	if err := requireText("title", title, MaxTitleLength); err != nil {
		return nil, err
	}
	if err := requireText("author", author, MaxAuthorLength); err != nil {
		return nil, err
	}
	return &Item{
		CatalogID: catalogID,
		Title:     title,
		Author:    author,
		Status:    ItemAvailable,
	}, nil
}

// HasSameMetadata reports whether other describes the same catalog entry,
// comparing title and author byte-for-byte.
func (i *Item) HasSameMetadata(other *Item) bool {
	return i.Title == other.Title && i.Author == other.Author
}

// Clone returns a copy safe to mutate independently.
func (i *Item) Clone() *Item {
	cp := *i
	return &cp
}
