package handlers

import (
	"net/http"
	"path"

	"github.com/ghuser/circulation/pkg/errhttp"
	"github.com/ghuser/circulation/pkg/httpx"
	pkgvalidator "github.com/ghuser/circulation/pkg/validator"
	appsvcs "github.com/ghuser/circulation/services/circulation/application/services"
)

// PostBorrowerHandler handles POST /borrowers requests.
type PostBorrowerHandler struct {
	svc *appsvcs.Services
	cfg Config
}

// NewPostBorrowerHandler returns a PostBorrowerHandler.
func NewPostBorrowerHandler(svc *appsvcs.Services, cfg Config) *PostBorrowerHandler {
	return &PostBorrowerHandler{svc: svc, cfg: cfg}
}

// Execute registers a borrower.
//
//	@Summary	Register borrower
//	@Tags		borrowers
//	@Accept		json
//	@Produce	json
//	@Param		request	body		RegisterBorrowerRequest	true	"Borrower registration request"
//	@Success	201		{object}	BorrowerResponse
//	@Header		201		{string}	Location	"URL of the new borrower"
//	@Failure	400		{object}	ErrorResponse
//	@Failure	409		{object}	ErrorResponse
//	@Failure	422		{object}	ErrorResponse
//	@Router		/borrowers [post]
func (h *PostBorrowerHandler) Execute(w http.ResponseWriter, r *http.Request) {
	req, ok := pkgvalidator.ValidateRequest[RegisterBorrowerRequest](w, r)
	if !ok {
		return
	}

	b, err := h.svc.Borrowers.Register(r.Context(), req.Name, req.Contact)
	if err != nil {
		errhttp.WriteError(w, err, h.cfg.IsProduction)
		return
	}
	w.Header().Set("Location", path.Join(r.URL.Path, b.ID.String()))
	httpx.JSON(w, http.StatusCreated, toBorrowerResponse(b))
}

// GetBorrowerHandler handles GET /borrowers/{borrowerID} requests.
type GetBorrowerHandler struct {
	svc *appsvcs.Services
	cfg Config
}

// NewGetBorrowerHandler returns a GetBorrowerHandler.
func NewGetBorrowerHandler(svc *appsvcs.Services, cfg Config) *GetBorrowerHandler {
	return &GetBorrowerHandler{svc: svc, cfg: cfg}
}

// Execute returns one borrower.
//
//	@Summary	Get borrower
//	@Tags		borrowers
//	@Produce	json
//	@Param		borrowerID	path		string	true	"Borrower ID"	format(uuid)
//	@Success	200			{object}	BorrowerResponse
//	@Failure	400			{object}	ErrorResponse
//	@Failure	404			{object}	ErrorResponse
//	@Router		/borrowers/{borrowerID} [get]
func (h *GetBorrowerHandler) Execute(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "borrowerID")
	if !ok {
		return
	}

	b, err := h.svc.Borrowers.GetByID(r.Context(), id)
	if err != nil {
		errhttp.WriteError(w, err, h.cfg.IsProduction)
		return
	}
	httpx.JSON(w, http.StatusOK, toBorrowerResponse(b))
}
