package handlers

import (
	"time"

	"github.com/google/uuid"

	appsvcs "github.com/ghuser/circulation/services/circulation/application/services"
	"github.com/ghuser/circulation/services/circulation/domain/models"
)

// RegisterItemRequest is the request body for POST /items.
type RegisterItemRequest struct {
	CatalogID string `json:"catalog_id" validate:"required,max=50"  example:"978-0441172719"`
	Title     string `json:"title"      validate:"required,max=300" example:"Dune"`
	Author    string `json:"author"     validate:"required,max=255" example:"Frank Herbert"`
} // @name RegisterItemRequest

// ItemResponse describes one physical item.
type ItemResponse struct {
	ID        uuid.UUID `json:"id"         example:"123e4567-e89b-12d3-a456-426614174000"`
	CatalogID string    `json:"catalog_id" example:"978-0441172719"`
	Title     string    `json:"title"      example:"Dune"`
	Author    string    `json:"author"     example:"Frank Herbert"`
	Status    string    `json:"status"     example:"AVAILABLE" enums:"AVAILABLE,BORROWED"`
	CreatedAt time.Time `json:"created_at" example:"2024-01-15T10:30:00Z"`
} // @name ItemResponse

// ItemPageResponse is one page of items.
type ItemPageResponse struct {
	Items []ItemResponse `json:"items"`
	Page  int            `json:"page"  example:"0"`
	Size  int            `json:"size"  example:"20"`
	Total int            `json:"total" example:"42"`
} // @name ItemPageResponse

// RegisterBorrowerRequest is the request body for POST /borrowers.
type RegisterBorrowerRequest struct {
	Name    string `json:"name"    validate:"required,max=255"       example:"Ann Reader"`
	Contact string `json:"contact" validate:"required,email,max=255" example:"ann@example.com"`
} // @name RegisterBorrowerRequest

// BorrowerResponse describes a borrower.
type BorrowerResponse struct {
	ID        uuid.UUID `json:"id"         example:"550e8400-e29b-41d4-a716-446655440000"`
	Name      string    `json:"name"       example:"Ann Reader"`
	Contact   string    `json:"contact"    example:"ann@example.com"`
	CreatedAt time.Time `json:"created_at" example:"2024-01-15T10:30:00Z"`
} // @name BorrowerResponse

// LoanResponse is the loan written by a borrow or return, joined with its
// item and borrower.
type LoanResponse struct {
	ID              uuid.UUID  `json:"id"                    example:"7c9e6679-7425-40de-944b-e07fc1f90ae7"`
	Status          string     `json:"status"                example:"ACTIVE" enums:"ACTIVE,RETURNED"`
	BorrowedAt      time.Time  `json:"borrowed_at"           example:"2024-01-15T10:30:00Z"`
	ReturnedAt      *time.Time `json:"returned_at,omitempty" example:"2024-01-29T16:00:00Z"`
	ItemID          uuid.UUID  `json:"item_id"               example:"123e4567-e89b-12d3-a456-426614174000"`
	CatalogID       string     `json:"catalog_id"            example:"978-0441172719"`
	Title           string     `json:"title"                 example:"Dune"`
	Author          string     `json:"author"                example:"Frank Herbert"`
	ItemStatus      string     `json:"item_status"           example:"BORROWED"`
	BorrowerID      uuid.UUID  `json:"borrower_id"           example:"550e8400-e29b-41d4-a716-446655440000"`
	BorrowerName    string     `json:"borrower_name"         example:"Ann Reader"`
	BorrowerContact string     `json:"borrower_contact"      example:"ann@example.com"`
} // @name LoanResponse

// LoanHistoryEntry is one loan in an item's history.
type LoanHistoryEntry struct {
	ID         uuid.UUID  `json:"id"                    example:"7c9e6679-7425-40de-944b-e07fc1f90ae7"`
	BorrowerID uuid.UUID  `json:"borrower_id"           example:"550e8400-e29b-41d4-a716-446655440000"`
	Status     string     `json:"status"                example:"RETURNED"`
	BorrowedAt time.Time  `json:"borrowed_at"           example:"2024-01-15T10:30:00Z"`
	ReturnedAt *time.Time `json:"returned_at,omitempty" example:"2024-01-29T16:00:00Z"`
} // @name LoanHistoryEntry

// LoanPageResponse is one page of an item's loan history, newest first.
type LoanPageResponse struct {
	Loans []LoanHistoryEntry `json:"loans"`
	Page  int                `json:"page"  example:"0"`
	Size  int                `json:"size"  example:"20"`
	Total int                `json:"total" example:"3"`
} // @name LoanPageResponse

// ErrorResponse is returned on all error responses.
type ErrorResponse struct {
	Error string `json:"error" example:"item is already borrowed"`
} // @name ErrorResponse

func toItemResponse(item *models.Item) ItemResponse {
	return ItemResponse{
		ID:        item.ID,
		CatalogID: item.CatalogID,
		Title:     item.Title,
		Author:    item.Author,
		Status:    string(item.Status),
		CreatedAt: item.CreatedAt,
	}
}

func toBorrowerResponse(b *models.Borrower) BorrowerResponse {
	return BorrowerResponse{ID: b.ID, Name: b.Name, Contact: b.Contact, CreatedAt: b.CreatedAt}
}

func toLoanResponse(v *appsvcs.LoanView) LoanResponse {
	return LoanResponse{
		ID:              v.Loan.ID,
		Status:          string(v.Loan.Status),
		BorrowedAt:      v.Loan.BorrowedAt,
		ReturnedAt:      v.Loan.ReturnedAt,
		ItemID:          v.Item.ID,
		CatalogID:       v.Item.CatalogID,
		Title:           v.Item.Title,
		Author:          v.Item.Author,
		ItemStatus:      string(v.Item.Status),
		BorrowerID:      v.Borrower.ID,
		BorrowerName:    v.Borrower.Name,
		BorrowerContact: v.Borrower.Contact,
	}
}
