package helpers

import (
	"net/http"
	"strconv"

	"agriregistration/internal/domain"
)

// Pagination query parameter defaults and limits.
const (
	DefaultPage    = 1
	DefaultPerPage = 20
	MaxPerPage     = 100
)

// ParsePagination reads page and per_page from the request query string,
// clamps them to valid ranges, and returns domain.PaginationParams.
// Invalid or missing values fall back to defaults.
func ParsePagination(r *http.Request) domain.PaginationParams {
	page := DefaultPage
	if s := r.URL.Query().Get("page"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 1 {
			page = v
		}
	}
	perPage := DefaultPerPage
	if s := r.URL.Query().Get("per_page"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 1 {
			perPage = v
			if perPage > MaxPerPage {
				perPage = MaxPerPage
			}
		}
	}
	return domain.PaginationParams{Page: page, PageSize: perPage}
}

// PaginationMeta is the pagination metadata included in paginated list responses.
// swagger:model PaginationMeta
type PaginationMeta struct {
	CurrentPage  int  `json:"current_page"`
	PerPage      int  `json:"per_page"`
	Total        int  `json:"total"`
	LastPage     int  `json:"last_page"`
	HasMorePages bool `json:"has_more_pages"`
}

// NewPaginationMeta builds PaginationMeta from the current page, per-page size,
// and total count. LastPage is ceiling(total / perPage); if perPage is 0,
// LastPage is 0.
func NewPaginationMeta(page, perPage, total int) PaginationMeta {
	lastPage := 0
	if perPage > 0 {
		lastPage = (total + perPage - 1) / perPage
	}
	return PaginationMeta{
		CurrentPage:  page,
		PerPage:      perPage,
		Total:        total,
		LastPage:     lastPage,
		HasMorePages: page < lastPage,
	}
}
