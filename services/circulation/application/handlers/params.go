package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ghuser/circulation/pkg/config"
	"github.com/ghuser/circulation/pkg/httpx"
)

// Config holds the request-independent settings shared by all handlers.
type Config struct {
	IsProduction    bool
	DefaultPageSize int
	MaxPageSize     int
}

// ConfigFrom derives handler settings from the application config.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		IsProduction:    cfg.Environment == config.EnvProduction,
		DefaultPageSize: cfg.DefaultPageSize,
		MaxPageSize:     cfg.MaxPageSize,
	}
}

// uuidParam reads a UUID path parameter and writes 400 when it is malformed.
func uuidParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, name+" must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

// pageParams reads page and size and writes 422 when they are out of range.
func pageParams(w http.ResponseWriter, r *http.Request, cfg Config) (httpx.PageParams, bool) {
	p, err := httpx.ParsePage(r, cfg.DefaultPageSize, cfg.MaxPageSize)
	if err != nil {
		httpx.JSONError(w, http.StatusUnprocessableEntity, err.Error())
		return httpx.PageParams{}, false
	}
	return p, true
}
