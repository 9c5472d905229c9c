package httpx

import (
	"fmt"
	"net/http"
	"strconv"
)

// PageParams is a zero-based page request taken from the query string.
type PageParams struct {
	Index int
	Size  int
}

// Offset returns the number of records to skip.
func (p PageParams) Offset() int { return p.Index * p.Size }

// ParsePage reads the "page" and "size" query parameters. Missing values
// fall back to page 0 and defaultSize. Negative values, a zero size and a
// size above maxSize are rejected.
func ParsePage(r *http.Request, defaultSize, maxSize int) (PageParams, error) {
	p := PageParams{Size: defaultSize}
	q := r.URL.Query()

	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return PageParams{}, fmt.Errorf("page must be a non-negative integer")
		}
		p.Index = n
	}
	if v := q.Get("size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxSize {
			return PageParams{}, fmt.Errorf("size must be between 1 and %d", maxSize)
		}
		p.Size = n
	}
	return p, nil
}
