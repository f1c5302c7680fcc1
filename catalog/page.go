package catalog

// Page size bounds for paginated queries
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// PageRequest asks for one 1-based page
type PageRequest struct {
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
}

// Normalize clamps the request into valid bounds
func (r PageRequest) Normalize() PageRequest {
	if r.Page < 1 {
		r.Page = 1
	}
	if r.PageSize < 1 {
		r.PageSize = DefaultPageSize
	}
	if r.PageSize > MaxPageSize {
		r.PageSize = MaxPageSize
	}
	return r
}

// Offset is the number of rows to skip
func (r PageRequest) Offset() int {
	return (r.Page - 1) * r.PageSize
}

// PageInfo describes where a page sits in the full result
type PageInfo struct {
	TotalItems      int  `json:"totalItems"`
	CurrentPage     int  `json:"currentPage"`
	PageSize        int  `json:"pageSize"`
	TotalPages      int  `json:"totalPages"`
	HasNextPage     bool `json:"hasNextPage"`
	HasPreviousPage bool `json:"hasPreviousPage"`
}

// NewPageInfo computes page metadata for total items and a normalized request
func NewPageInfo(total int, req PageRequest) PageInfo {
	req = req.Normalize()
	pages := (total + req.PageSize - 1) / req.PageSize
	return PageInfo{
		TotalItems:      total,
		CurrentPage:     req.Page,
		PageSize:        req.PageSize,
		TotalPages:      pages,
		HasNextPage:     req.Page < pages,
		HasPreviousPage: req.Page > 1,
	}
}

// Page is one page of items
type Page[T any] struct {
	Items    []T      `json:"items"`
	PageInfo PageInfo `json:"pageInfo"`
}

// ComponentFilter narrows component listings. Zero values match everything.
type ComponentFilter struct {
	Search        string           `json:"search"`
	Status        *ComponentStatus `json:"status"`
	CategoryID    *int64           `json:"categoryId"`
	TeamID        *int64           `json:"teamId"`
	EnvironmentID *int64           `json:"environmentId"`
	Tag           string           `json:"tag"`
}
