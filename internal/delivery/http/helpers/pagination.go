package helpers

import (
	"net/http"
	"strconv"

	"eventsphere/internal/domain"
)

// ParsePagination reads page and page_size from the query string and fits them to limits.
// Values that are not integers are treated as missing.
func ParsePagination(r *http.Request, limits domain.PageLimits) domain.PaginationParams {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("page_size"))
	return limits.Params(page, size)
}

// PaginationMeta describes the returned page of a list response.
// swagger:model PaginationMeta
type PaginationMeta struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NewPaginationMeta reports params and the total row count.
func NewPaginationMeta(params domain.PaginationParams, total int) PaginationMeta {
	return PaginationMeta{
		Page:       params.Page,
		PageSize:   params.PageSize,
		Total:      total,
		TotalPages: params.TotalPages(total),
	}
}
