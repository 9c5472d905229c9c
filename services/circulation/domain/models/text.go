package models

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ghuser/circulation/services/circulation/domain"
)

// Field length limits, matching the column sizes of the record store.
const (
	MaxCatalogIDLength = 50
	MaxTitleLength     = 300
	MaxAuthorLength    = 255
	MaxNameLength      = 255
	MaxContactLength   = 255
)

// requireText enforces 1 <= characters(s) <= max, no surrounding whitespace and no
// control characters. The value is never normalized: catalog metadata is
// compared byte-for-byte, so a silently trimmed title would change meaning.
func requireText(field, s string, max int) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s must not be empty", domain.ErrInvalidInput, field)
	}
	if utf8.RuneCountInString(s) > max {
		return fmt.Errorf("%w: %s must not exceed %d characters", domain.ErrInvalidInput, field, max)
	}
	if s != strings.TrimSpace(s) {
		return fmt.Errorf("%w: %s must not have leading or trailing whitespace", domain.ErrInvalidInput, field)
	}
	for _, r := range s {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: %s must not contain control characters", domain.ErrInvalidInput, field)
		}
	}
	return nil
}
