package domain

import "fmt"

// SortDirection is the direction of a column sort. The zero value means
// the rows are shown in server order.
type SortDirection string

const (
	SortNone SortDirection = ""
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// DefaultPageSize is the page size a fresh list starts with
const DefaultPageSize = 10

// PageSizes lists the page sizes the list view offers
var PageSizes = []int{10, 20, 30}

// ValidPageSize reports whether n is one of PageSizes
func ValidPageSize(n int) bool {
	for _, size := range PageSizes {
		if size == n {
			return true
		}
	}
	return false
}

// ListQuery holds the parameters of one list request
type ListQuery struct {
	Page          int
	PageSize      int
	Search        string
	SortField     string
	SortDirection SortDirection
}

// DefaultListQuery returns the query a new list view starts with
func DefaultListQuery() ListQuery {
	return ListQuery{Page: 1, PageSize: DefaultPageSize}
}

// CacheKey identifies the query for caching. Every field takes part, so two
// queries share a cache entry only when they are identical.
func (q ListQuery) CacheKey() string {
	return fmt.Sprintf("list:%d:%d:%q:%q:%s", q.Page, q.PageSize, q.Search, q.SortField, q.SortDirection)
}

// ListResult is one page of products as returned by the backend
type ListResult struct {
	Products    []Product `json:"results"`
	TotalItems  int       `json:"total_items"`
	ActivePage  int       `json:"active_page"`
	CurrentPage int       `json:"current_page"`
	TotalPages  int       `json:"total_pages"`
	Next        *string   `json:"next"`
	Previous    *string   `json:"previous"`
	PageSize    int       `json:"page_size"`
}
