package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/ghuser/circulation/pkg/app"
	"github.com/ghuser/circulation/services/circulation/application/handlers"
	appsvcs "github.com/ghuser/circulation/services/circulation/application/services"
)

// CirculationRoutes registers item, borrower and lending endpoints on the
// provided chi router.
func CirculationRoutes(r chi.Router, a *app.Application) {
	Routes(r, appsvcs.New(a), handlers.ConfigFrom(a.Config))
}

// Routes registers the endpoints over already wired services.
func Routes(r chi.Router, svcs *appsvcs.Services, cfg handlers.Config) {
	r.Group(func(r chi.Router) {
		r.Route("/items", func(r chi.Router) {
			r.Post("/", handlers.NewPostItemHandler(svcs, cfg).Execute)
			r.Get("/", handlers.NewListItemsHandler(svcs, cfg).Execute)
			r.Get("/{itemID}", handlers.NewGetItemHandler(svcs, cfg).Execute)
			r.Get("/{itemID}/loans", handlers.NewListItemLoansHandler(svcs, cfg).Execute)
		})
		r.Route("/borrowers", func(r chi.Router) {
			r.Post("/", handlers.NewPostBorrowerHandler(svcs, cfg).Execute)
			r.Get("/{borrowerID}", handlers.NewGetBorrowerHandler(svcs, cfg).Execute)
			r.Post("/{borrowerID}/borrow/{itemID}", handlers.NewBorrowHandler(svcs, cfg).Execute)
			r.Post("/{borrowerID}/return/{itemID}", handlers.NewReturnHandler(svcs, cfg).Execute)
		})
	})
}
