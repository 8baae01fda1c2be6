package models

// Sort fields accepted by item list calls.
const (
	SortByCreatedAt = "created_at"
	SortByUpdatedAt = "updated_at"
	SortByTitle     = "title"
)

// Sort directions.
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// ItemFilter narrows an item list. Zero values mean "no restriction";
// the default order is newest first.
type ItemFilter struct {
	Search     string
	CategoryID string
	TagIDs     []string
	SortBy     string
	SortDir    string
}

// IsZero reports whether the filter restricts nothing.
func (f ItemFilter) IsZero() bool {
	return f.Search == "" && f.CategoryID == "" && len(f.TagIDs) == 0 && f.SortBy == "" && f.SortDir == ""
}

// Pagination is 1-based.
type Pagination struct {
	Page  int
	Limit int
}

// Offset returns the number of rows to skip.
func (p Pagination) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

// ListResult is one page of a list call.
type ListResult[T any] struct {
	Data    []T
	Total   int
	Page    int
	Limit   int
	HasMore bool
}
