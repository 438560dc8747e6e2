package domain

// SortDirection represents ordering direction for sortable fields.
type SortDirection string

const (
	SortDirectionAsc  SortDirection = "asc"
	SortDirectionDesc SortDirection = "desc"
)

// SortField orders a listing by one entity property.
type SortField struct {
	Property  string
	Direction SortDirection
}

const (
	DefaultPageLimit = 50
	MaxPageLimit     = 500
)

// Page captures paging and ordering preferences for listings.
type Page struct {
	Limit  int
	Offset int
	Sort   []SortField
}

// Normalize clamps the page to the supported bounds.
func (p Page) Normalize() Page {
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// ListResult is one page of rows with the total matching count.
type ListResult[T any] struct {
	Items  []T   `json:"items"`
	Total  int64 `json:"total"`
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
}
