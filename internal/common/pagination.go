package common

import (
	"net/http"
	"strconv"
)

// Pagination describes the page returned by a list endpoint.
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalItems int `json:"total_items"`
}

// Paginate slices items according to the page and limit query parameters.
// limit is clamped to maxPerPage; pages past the end are empty.
func Paginate[T any](r *http.Request, items []T, defaultPerPage, maxPerPage int) ([]T, Pagination) {
	q := r.URL.Query()
	page := positiveInt(q.Get("page"), 1)
	perPage := min(positiveInt(q.Get("limit"), defaultPerPage), maxPerPage)

	total := len(items)
	start := min((page-1)*perPage, total)
	end := min(start+perPage, total)
	return items[start:end], Pagination{Page: page, PerPage: perPage, TotalItems: total}
}

func positiveInt(raw string, fallback int) int {
	if n, err := strconv.Atoi(raw); err == nil && n > 0 {
		return n
	}
	return fallback
}
