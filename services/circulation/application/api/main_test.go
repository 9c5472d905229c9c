package api_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	jsoniter "github.com/json-iterator/go"

	"github.com/ghuser/circulation/services/circulation/application/api"
	"github.com/ghuser/circulation/services/circulation/application/handlers"
	appsvcs "github.com/ghuser/circulation/services/circulation/application/services"
	"github.com/ghuser/circulation/services/circulation/infrastructure/persistence/memory"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	svcs := appsvcs.NewWithStores(appsvcs.MemoryStores(memory.NewStore()), appsvcs.Options{})
	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		api.Routes(r, svcs, handlers.Config{DefaultPageSize: 20, MaxPageSize: 100})
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, srv *httptest.Server, method, path string, body any, out any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func expectStatus(t *testing.T, step string, got, want int) {
	t.Helper()
	if got != want {
		t.Fatalf("%s: status %d, want %d", step, got, want)
	}
}

// TestLendingLifecycle walks an item through borrow, rejected actions and
// return over HTTP.
func TestLendingLifecycle(t *testing.T) {
	srv := newServer(t)

	var item handlers.ItemResponse
	expectStatus(t, "register item", do(t, srv, http.MethodPost, "/api/items", map[string]string{
		"catalog_id": "978-0441172719", "title": "Dune", "author": "Frank Herbert",
	}, &item), http.StatusCreated)
	if item.Status != "AVAILABLE" {
		t.Fatalf("new item status = %q", item.Status)
	}

	var ann, bob handlers.BorrowerResponse
	expectStatus(t, "register ann", do(t, srv, http.MethodPost, "/api/borrowers",
		map[string]string{"name": "Ann", "contact": "ann@example.com"}, &ann), http.StatusCreated)
	expectStatus(t, "register bob", do(t, srv, http.MethodPost, "/api/borrowers",
		map[string]string{"name": "Bob", "contact": "bob@example.com"}, &bob), http.StatusCreated)

	var loan handlers.LoanResponse
	expectStatus(t, "borrow", do(t, srv, http.MethodPost,
		"/api/borrowers/"+ann.ID.String()+"/borrow/"+item.ID.String(), nil, &loan), http.StatusOK)
	if loan.Status != "ACTIVE" || loan.ItemStatus != "BORROWED" {
		t.Fatalf("borrow returned loan %q item %q", loan.Status, loan.ItemStatus)
	}
	if loan.Title != "Dune" || loan.BorrowerName != "Ann" || loan.BorrowerContact != "ann@example.com" {
		t.Errorf("loan view not joined: %+v", loan)
	}

	var errResp handlers.ErrorResponse
	expectStatus(t, "second borrow", do(t, srv, http.MethodPost,
		"/api/borrowers/"+bob.ID.String()+"/borrow/"+item.ID.String(), nil, &errResp), http.StatusConflict)
	if errResp.Error != "item is already borrowed" {
		t.Errorf("conflict message = %q", errResp.Error)
	}

	expectStatus(t, "return by bob", do(t, srv, http.MethodPost,
		"/api/borrowers/"+bob.ID.String()+"/return/"+item.ID.String(), nil, nil), http.StatusBadRequest)

	var returned handlers.LoanResponse
	expectStatus(t, "return by ann", do(t, srv, http.MethodPost,
		"/api/borrowers/"+ann.ID.String()+"/return/"+item.ID.String(), nil, &returned), http.StatusOK)
	if returned.ID != loan.ID || returned.Status != "RETURNED" || returned.ReturnedAt == nil {
		t.Errorf("return = %+v", returned)
	}

	expectStatus(t, "double return", do(t, srv, http.MethodPost,
		"/api/borrowers/"+ann.ID.String()+"/return/"+item.ID.String(), nil, nil), http.StatusBadRequest)

	var history handlers.LoanPageResponse
	expectStatus(t, "history", do(t, srv, http.MethodGet,
		"/api/items/"+item.ID.String()+"/loans", nil, &history), http.StatusOK)
	if history.Total != 1 || len(history.Loans) != 1 || history.Loans[0].Status != "RETURNED" {
		t.Errorf("history = %+v", history)
	}

	var got handlers.ItemResponse
	expectStatus(t, "get item", do(t, srv, http.MethodGet, "/api/items/"+item.ID.String(), nil, &got), http.StatusOK)
	if got.Status != "AVAILABLE" {
		t.Errorf("item status after return = %q", got.Status)
	}
}

func TestRegistrationConflicts(t *testing.T) {
	srv := newServer(t)

	expectStatus(t, "first copy", do(t, srv, http.MethodPost, "/api/items", map[string]string{
		"catalog_id": "C-1", "title": "Dune", "author": "Frank Herbert",
	}, nil), http.StatusCreated)
	expectStatus(t, "second copy", do(t, srv, http.MethodPost, "/api/items", map[string]string{
		"catalog_id": "C-1", "title": "Dune", "author": "Frank Herbert",
	}, nil), http.StatusCreated)
	expectStatus(t, "mismatched copy", do(t, srv, http.MethodPost, "/api/items", map[string]string{
		"catalog_id": "C-1", "title": "Children of Dune", "author": "Frank Herbert",
	}, nil), http.StatusConflict)

	var page handlers.ItemPageResponse
	expectStatus(t, "list", do(t, srv, http.MethodGet, "/api/items?page=0&size=1", nil, &page), http.StatusOK)
	if page.Total != 2 || len(page.Items) != 1 || page.Size != 1 {
		t.Errorf("page = %+v", page)
	}

	expectStatus(t, "first borrower", do(t, srv, http.MethodPost, "/api/borrowers",
		map[string]string{"name": "Ann", "contact": "ann@example.com"}, nil), http.StatusCreated)
	expectStatus(t, "duplicate contact", do(t, srv, http.MethodPost, "/api/borrowers",
		map[string]string{"name": "Other", "contact": "ann@example.com"}, nil), http.StatusConflict)
}
