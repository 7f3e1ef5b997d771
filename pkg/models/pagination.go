package models

// PageMeta describes one page of an offset-paginated listing.
type PageMeta struct {
	Page            int  `json:"page"`
	Limit           int  `json:"limit"`
	TotalCount      int  `json:"totalCount"`
	TotalPages      int  `json:"totalPages"`
	HasNextPage     bool `json:"hasNextPage"`
	HasPreviousPage bool `json:"hasPreviousPage"`
}

// NewPageMeta derives page counts and navigation flags. limit must be >= 1.
func NewPageMeta(page, limit, totalCount int) PageMeta {
	totalPages := 0
	if limit > 0 {
		totalPages = (totalCount + limit - 1) / limit
	}
	return PageMeta{
		Page:            page,
		Limit:           limit,
		TotalCount:      totalCount,
		TotalPages:      totalPages,
		HasNextPage:     page < totalPages,
		HasPreviousPage: page > 1,
	}
}

// CursorMeta describes one page of a cursor-paginated listing.
type CursorMeta struct {
	Limit       int     `json:"limit"`
	HasNextPage bool    `json:"hasNextPage"`
	NextCursor  *string `json:"nextCursor"`
}

// Page pairs a slice of items with its pagination metadata.
type Page[T any, M any] struct {
	Items      []T `json:"items"`
	Pagination M   `json:"pagination"`
}
