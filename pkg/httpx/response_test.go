package httpx_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	jsoniter "github.com/json-iterator/go"

	"github.com/ghuser/circulation/pkg/httpx"
)

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) httpx.ErrorBody {
	t.Helper()
	var body httpx.ErrorBody
	if err := jsoniter.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	return body
}

func TestJSON(t *testing.T) {
	rr := httptest.NewRecorder()
	httpx.JSON(rr, http.StatusCreated, map[string]string{"id": "abc"})

	if rr.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("unexpected Content-Type: %q", ct)
	}
	if xct := rr.Header().Get("X-Content-Type-Options"); xct != "nosniff" {
		t.Errorf("expected nosniff, got %q", xct)
	}

	var body map[string]string
	if err := jsoniter.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if body["id"] != "abc" {
		t.Errorf("unexpected body: %v", body)
	}
}

func TestJSON_unencodableValue(t *testing.T) {
	rr := httptest.NewRecorder()
	httpx.JSON(rr, http.StatusOK, map[string]any{"ch": make(chan int)})

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	if got := decodeError(t, rr).Error; got != "Internal Server Error" {
		t.Errorf("unexpected error message: %q", got)
	}
}

func TestJSONError(t *testing.T) {
	rr := httptest.NewRecorder()
	httpx.JSONError(rr, http.StatusConflict, "item is already borrowed")

	if rr.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", rr.Code)
	}
	if got := decodeError(t, rr).Error; got != "item is already borrowed" {
		t.Errorf("unexpected error message: %q", got)
	}
}

func TestSafeError(t *testing.T) {
	err := errors.New("consistency failure: item flag disagrees with loan")

	tests := []struct {
		name       string
		status     int
		production bool
		want       string
	}{
		{"client error in production", http.StatusConflict, true, err.Error()},
		{"server error in development", http.StatusInternalServerError, false, err.Error()},
		{"server error in production", http.StatusInternalServerError, true, "Internal Server Error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := httpx.SafeError(err, tt.status, tt.production); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
