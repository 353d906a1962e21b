package model

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// Pagination describes one window of a paginated list.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// NewPagination derives Pages as ceil(total/limit) and clamps page to [1, max(pages,1)].
func NewPagination(page, limit, total int) Pagination {
	if limit < 1 {
		limit = DefaultLimit
	}
	if total < 0 {
		total = 0
	}

	pages := total / limit
	if total%limit > 0 {
		pages++
	}

	if page < 1 {
		page = 1
	}
	if upper := max(pages, 1); page > upper {
		page = upper
	}

	return Pagination{Page: page, Limit: limit, Total: total, Pages: pages}
}

// Normalize recomputes derived fields, e.g. after a server response or a local removal.
func (p Pagination) Normalize() Pagination {
	return NewPagination(p.Page, p.Limit, p.Total)
}

func (p Pagination) HasNext() bool { return p.Page < p.Pages }

// Offset is the number of rows to skip for the requested page.
func (p Pagination) Offset() int { return (p.Page - 1) * p.Limit }

// ListPage is the shape of every paginated catalog response.
type ListPage[T any] struct {
	Items       []T        `json:"items"`
	Pagination  Pagination `json:"pagination"`
	UnreadCount *int       `json:"unreadCount,omitempty"`
}
