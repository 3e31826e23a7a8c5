package helpers

import (
	"net/http"
	"strconv"
	"strings"

	"guestcheckin/internal/domain"
)

// DefaultPage is used when the page query parameter is missing or invalid.
const DefaultPage = 1

// ParsePagination reads page and page_size from the request query string,
// clamps them to valid ranges, and returns domain.PaginationParams.
// Invalid or missing values fall back to defaults.
func ParsePagination(r *http.Request) domain.PaginationParams {
	q := r.URL.Query()
	page := DefaultPage
	if v, err := strconv.Atoi(strings.TrimSpace(q.Get("page"))); err == nil && v >= 1 {
		page = v
	}
	size := 0
	if v, err := strconv.Atoi(strings.TrimSpace(q.Get("page_size"))); err == nil {
		size = v
	}
	p := domain.PaginationParams{Page: page, PageSize: size}
	p.PageSize = p.Limit()
	return p
}

// PaginationMeta is the pagination metadata included in paginated list responses.
// swagger:model PaginationMeta
type PaginationMeta struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NewPaginationMeta builds PaginationMeta from the current page, page size, and total count.
// TotalPages is computed as ceiling(total / pageSize); if pageSize is 0, TotalPages is 0.
func NewPaginationMeta(page, pageSize, total int) PaginationMeta {
	totalPages := 0
	if pageSize > 0 {
		totalPages = (total + pageSize - 1) / pageSize
	}
	return PaginationMeta{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
	}
}

// PaginatedList is the data payload of paginated list responses.
type PaginatedList[T any] struct {
	Items      []T            `json:"items"`
	Pagination PaginationMeta `json:"pagination"`
}
