package domain

import "strings"

// Pagination bounds for movement listings. Out-of-range values are
// clamped, not rejected.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ClampPage normalizes a 1-based page number and a page size into safe
// bounds and returns the pair.
func ClampPage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}

	if pageSize < 1 {
		pageSize = DefaultPageSize
	}

	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	return page, pageSize
}

// ValidateReason checks the mandatory adjustment reason.
func ValidateReason(reason string) error {
	if strings.TrimSpace(reason) == "" {
		return ErrReasonRequired
	}

	return nil
}
