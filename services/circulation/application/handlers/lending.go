package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/ghuser/circulation/pkg/errhttp"
	"github.com/ghuser/circulation/pkg/httpx"
	appsvcs "github.com/ghuser/circulation/services/circulation/application/services"
)

type lendingFunc func(ctx context.Context, borrowerID, itemID uuid.UUID) (*appsvcs.LoanView, error)

// BorrowHandler handles POST /borrowers/{borrowerID}/borrow/{itemID}.
type BorrowHandler struct {
	svc *appsvcs.Services
	cfg Config
}

// NewBorrowHandler returns a BorrowHandler.
func NewBorrowHandler(svc *appsvcs.Services, cfg Config) *BorrowHandler {
	return &BorrowHandler{svc: svc, cfg: cfg}
}

// Execute lends an item to a borrower.
//
//	@Summary		Borrow item
//	@Description	Opens an ACTIVE loan and marks the item BORROWED.
//	@Tags			lending
//	@Produce		json
//	@Param			borrowerID	path		string	true	"Borrower ID"	format(uuid)
//	@Param			itemID		path		string	true	"Item ID"		format(uuid)
//	@Success		200			{object}	LoanResponse
//	@Failure		400			{object}	ErrorResponse
//	@Failure		404			{object}	ErrorResponse
//	@Failure		409			{object}	ErrorResponse
//	@Failure		500			{object}	ErrorResponse
//	@Router			/borrowers/{borrowerID}/borrow/{itemID} [post]
func (h *BorrowHandler) Execute(w http.ResponseWriter, r *http.Request) {
	serveLending(w, r, h.cfg, h.svc.Lending.Borrow)
}

// ReturnHandler handles POST /borrowers/{borrowerID}/return/{itemID}.
type ReturnHandler struct {
	svc *appsvcs.Services
	cfg Config
}

// NewReturnHandler returns a ReturnHandler.
func NewReturnHandler(svc *appsvcs.Services, cfg Config) *ReturnHandler {
	return &ReturnHandler{svc: svc, cfg: cfg}
}

// Execute closes the borrower's loan on an item.
//
//	@Summary		Return item
//	@Description	Closes the ACTIVE loan held by the borrower and marks the item AVAILABLE.
//	@Tags			lending
//	@Produce		json
//	@Param			borrowerID	path		string	true	"Borrower ID"	format(uuid)
//	@Param			itemID		path		string	true	"Item ID"		format(uuid)
//	@Success		200			{object}	LoanResponse
//	@Failure		400			{object}	ErrorResponse
//	@Failure		404			{object}	ErrorResponse
//	@Failure		500			{object}	ErrorResponse
//	@Router			/borrowers/{borrowerID}/return/{itemID} [post]
func (h *ReturnHandler) Execute(w http.ResponseWriter, r *http.Request) {
	serveLending(w, r, h.cfg, h.svc.Lending.Return)
}

func serveLending(w http.ResponseWriter, r *http.Request, cfg Config, op lendingFunc) {
	borrowerID, ok := uuidParam(w, r, "borrowerID")
	if !ok {
		return
	}
	itemID, ok := uuidParam(w, r, "itemID")
	if !ok {
		return
	}

	view, err := op(r.Context(), borrowerID, itemID)
	if err != nil {
		errhttp.WriteError(w, err, cfg.IsProduction)
		return
	}
	httpx.JSON(w, http.StatusOK, toLoanResponse(view))
}
