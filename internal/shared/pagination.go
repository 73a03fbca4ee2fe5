package shared

import "math"

const (
	defaultLimit = 10
	defaultPage  = 1
)

// PageOptions holds raw paging input. Zero values mean "not supplied".
type PageOptions struct {
	Limit int
	Page  int
}

// Page is the resolved limit/offset pair used by queries.
type Page struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// GetPagination resolves paging input into limit and offset.
func GetPagination(opts PageOptions) Page {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	page := opts.Page
	if page <= 0 {
		page = defaultPage
	}
	return Page{Limit: limit, Offset: (page - 1) * limit}
}

// Pagination contains metadata for paginated listings.
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"perPage"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// NewPagination computes pagination metadata.
func NewPagination(page Page, total int) Pagination {
	perPage := page.Limit
	if perPage <= 0 {
		perPage = defaultLimit
	}
	current := page.Offset/perPage + 1
	totalPages := int(math.Ceil(float64(total) / float64(perPage)))
	return Pagination{Page: current, PerPage: perPage, Total: total, TotalPages: totalPages}
}

// ListResult wraps one page of items with its metadata.
type ListResult[T any] struct {
	Items      []T        `json:"items"`
	Pagination Pagination `json:"pagination"`
}

// NewListResult builds a ListResult, never returning a nil item slice.
func NewListResult[T any](items []T, page Page, total int) ListResult[T] {
	if items == nil {
		items = []T{}
	}
	return ListResult[T]{Items: items, Pagination: NewPagination(page, total)}
}
