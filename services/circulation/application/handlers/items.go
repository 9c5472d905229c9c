package handlers

import (
	"net/http"
	"path"

	"github.com/ghuser/circulation/pkg/errhttp"
	"github.com/ghuser/circulation/pkg/httpx"
	pkgvalidator "github.com/ghuser/circulation/pkg/validator"
	appsvcs "github.com/ghuser/circulation/services/circulation/application/services"
)

// PostItemHandler handles POST /items requests.
type PostItemHandler struct {
	svc *appsvcs.Services
	cfg Config
}

// NewPostItemHandler returns a PostItemHandler backed by the given services.
func NewPostItemHandler(svc *appsvcs.Services, cfg Config) *PostItemHandler {
	return &PostItemHandler{svc: svc, cfg: cfg}
}

// Execute registers a new physical copy of a catalog entry.
//
//	@Summary		Register item
//	@Description	Registers a physical copy. Copies sharing a catalog id must have the same title and author.
//	@Tags			items
//	@Accept			json
//	@Produce		json
//	@Param			request	body		RegisterItemRequest	true	"Item registration request"
//	@Success		201		{object}	ItemResponse
//	@Header			201		{string}	Location	"URL of the new item"
//	@Failure		400		{object}	ErrorResponse
//	@Failure		409		{object}	ErrorResponse
//	@Failure		422		{object}	ErrorResponse
//	@Router			/items [post]
func (h *PostItemHandler) Execute(w http.ResponseWriter, r *http.Request) {
	req, ok := pkgvalidator.ValidateRequest[RegisterItemRequest](w, r)
	if !ok {
		return
	}

	item, err := h.svc.Catalog.Register(r.Context(), req.CatalogID, req.Title, req.Author)
	if err != nil {
		errhttp.WriteError(w, err, h.cfg.IsProduction)
		return
	}

	w.Header().Set("Location", path.Join(r.URL.Path, item.ID.String()))
	httpx.JSON(w, http.StatusCreated, toItemResponse(item))
}

// ListItemsHandler handles GET /items requests.
type ListItemsHandler struct {
	svc *appsvcs.Services
	cfg Config
}

// NewListItemsHandler returns a ListItemsHandler.
func NewListItemsHandler(svc *appsvcs.Services, cfg Config) *ListItemsHandler {
	return &ListItemsHandler{svc: svc, cfg: cfg}
}

// Execute lists items in registration order.
//
//	@Summary	List items
//	@Tags		items
//	@Produce	json
//	@Param		page	query		int	false	"Zero-based page index"	default(0)
//	@Param		size	query		int	false	"Page size"				default(20)
//	@Success	200		{object}	ItemPageResponse
//	@Failure	422		{object}	ErrorResponse
//	@Router		/items [get]
func (h *ListItemsHandler) Execute(w http.ResponseWriter, r *http.Request) {
	p, ok := pageParams(w, r, h.cfg)
	if !ok {
		return
	}

	page, err := h.svc.Catalog.List(r.Context(), p.Index, p.Size)
	if err != nil {
		errhttp.WriteError(w, err, h.cfg.IsProduction)
		return
	}

	resp := ItemPageResponse{
		Items: make([]ItemResponse, len(page.Items)),
		Page:  page.Index,
		Size:  page.Size,
		Total: page.Total,
	}
	for i, item := range page.Items {
		resp.Items[i] = toItemResponse(item)
	}
	httpx.JSON(w, http.StatusOK, resp)
}

// GetItemHandler handles GET /items/{itemID} requests.
type GetItemHandler struct {
	svc *appsvcs.Services
	cfg Config
}

// NewGetItemHandler returns a GetItemHandler.
func NewGetItemHandler(svc *appsvcs.Services, cfg Config) *GetItemHandler {
	return &GetItemHandler{svc: svc, cfg: cfg}
}

// Execute returns one item.
//
//	@Summary	Get item
//	@Tags		items
//	@Produce	json
//	@Param		itemID	path		string	true	"Item ID"	format(uuid)
//	@Success	200		{object}	ItemResponse
//	@Failure	400		{object}	ErrorResponse
//	@Failure	404		{object}	ErrorResponse
//	@Router		/items/{itemID} [get]
func (h *GetItemHandler) Execute(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "itemID")
	if !ok {
		return
	}

	item, err := h.svc.Catalog.GetByID(r.Context(), id)
	if err != nil {
		errhttp.WriteError(w, err, h.cfg.IsProduction)
		return
	}
	httpx.JSON(w, http.StatusOK, toItemResponse(item))
}

// ListItemLoansHandler handles GET /items/{itemID}/loans requests.
type ListItemLoansHandler struct {
	svc *appsvcs.Services
	cfg Config
}

// NewListItemLoansHandler returns a ListItemLoansHandler.
func NewListItemLoansHandler(svc *appsvcs.Services, cfg Config) *ListItemLoansHandler {
	return &ListItemLoansHandler{svc: svc, cfg: cfg}
}

// Execute returns the item's loan history, newest first.
//
//	@Summary	Item loan history
//	@Tags		items
//	@Produce	json
//	@Param		itemID	path		string	true	"Item ID"	format(uuid)
//	@Param		page	query		int		false	"Zero-based page index"	default(0)
//	@Param		size	query		int		false	"Page size"				default(20)
//	@Success	200		{object}	LoanPageResponse
//	@Failure	400		{object}	ErrorResponse
//	@Failure	404		{object}	ErrorResponse
//	@Failure	422		{object}	ErrorResponse
//	@Router		/items/{itemID}/loans [get]
func (h *ListItemLoansHandler) Execute(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "itemID")
	if !ok {
		return
	}
	p, ok := pageParams(w, r, h.cfg)
	if !ok {
		return
	}

	page, err := h.svc.Catalog.LoanHistory(r.Context(), id, p.Index, p.Size)
	if err != nil {
		errhttp.WriteError(w, err, h.cfg.IsProduction)
		return
	}

	resp := LoanPageResponse{
		Loans: make([]LoanHistoryEntry, len(page.Items)),
		Page:  page.Index,
		Size:  page.Size,
		Total: page.Total,
	}
	for i, loan := range page.Items {
		resp.Loans[i] = LoanHistoryEntry{
			ID:         loan.ID,
			BorrowerID: loan.BorrowerID,
			Status:     string(loan.Status),
			BorrowedAt: loan.BorrowedAt,
			ReturnedAt: loan.ReturnedAt,
		}
	}
	httpx.JSON(w, http.StatusOK, resp)
}
