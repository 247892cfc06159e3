package scope

import (
	"errors"
	"strconv"
)

const (
	// DefaultLimit is the page size when the caller does not supply one.
	DefaultLimit = 10
	// MaxLimit caps the page size for list endpoints.
	MaxLimit = 100
)

// ErrBadSortField is returned when the requested sort column is not whitelisted.
var ErrBadSortField = errors.New("unsupported sort field")

// ListParams are the shared pagination and ordering parameters for list endpoints.
type ListParams struct {
	Page    int
	Limit   int
	SortCol string // SQL column, already whitelisted
	SortDir string // "ASC" or "DESC"
}

// ParseList builds ListParams from raw query values. Page defaults to 1,
// limit defaults to defaultLimit and is clamped to [1, MaxLimit].
func ParseList(pageStr, limitStr string, defaultLimit int) ListParams {
	if defaultLimit <= 0 || defaultLimit > MaxLimit {
		defaultLimit = DefaultLimit
	}
	page := 1
	if n, err := strconv.Atoi(pageStr); err == nil && n >= 1 {
		page = n
	}
	limit := defaultLimit
	if n, err := strconv.Atoi(limitStr); err == nil {
		limit = n
	}
	if limit < 1 {
		limit = 1
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return ListParams{Page: page, Limit: limit, SortCol: "created_at", SortDir: "DESC"}
}

// Offset returns the SQL offset for the current page.
func (p ListParams) Offset() int {
	return (p.Page - 1) * p.Limit
}

// WithSort applies a caller-requested sort field against a whitelist mapping
// API field names to SQL columns. An empty request keeps the default ordering.
func (p ListParams) WithSort(requested, dir string, allowed map[string]string) (ListParams, error) {
	if requested == "" {
		return p, nil
	}
	col, ok := allowed[requested]
	if !ok {
		return p, ErrBadSortField
	}
	p.SortCol = col
	if dir == "asc" || dir == "ASC" {
		p.SortDir = "ASC"
	} else {
		p.SortDir = "DESC"
	}
	return p, nil
}

// PageMeta computes pagination metadata: totalPages = ceil(total / limit).
func PageMeta(total int, p ListParams) (totalPages int) {
	if p.Limit <= 0 {
		return 0
	}
	return (total + p.Limit - 1) / p.Limit
}
