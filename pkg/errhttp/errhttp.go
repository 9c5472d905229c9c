// Package errhttp maps domain error kinds to HTTP status codes.
// Every domain sentinel unwraps to one kind, so new sentinels need no case here.
package errhttp

import (
	"errors"
	"net/http"

	"github.com/ghuser/circulation/pkg/httpx"
	"github.com/ghuser/circulation/services/circulation/domain"
)

// WriteError maps err to an HTTP status code and writes a JSON error response.
// Uses errors.Is() so wrapped sentinel errors are matched correctly.
// Defaults to 500 Internal Server Error for unrecognized errors, whose
// message is hidden when isProduction is set.
func WriteError(w http.ResponseWriter, err error, isProduction bool) {
	status := Status(err)
	httpx.JSONError(w, status, httpx.SafeError(err, status, isProduction))
}

// Status returns the HTTP status for err.
func Status(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound // 404
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict // 409
	case errors.Is(err, domain.ErrRejected):
		return http.StatusBadRequest // 400
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusUnprocessableEntity // 422
	default:
		return http.StatusInternalServerError // 500
	}
}
