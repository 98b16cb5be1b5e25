package domain

// PageLimits bounds the page size of one kind of listing.
type PageLimits struct {
	DefaultSize int
	MaxSize     int
}

var (
	// EventPageLimits suit the event catalogue, which is rendered as a card grid.
	EventPageLimits = PageLimits{DefaultSize: 12, MaxSize: 48}
	// InboxPageLimits suit a notification inbox, which scrolls through short rows.
	InboxPageLimits = PageLimits{DefaultSize: 20, MaxSize: 100}
)

// Params returns pagination for the requested page and size. A page below 1 becomes 1; a size below 1
// takes the default and a size above the maximum is cut to it.
func (l PageLimits) Params(page, size int) PaginationParams {
	if page < 1 {
		page = 1
	}
	switch {
	case size < 1:
		size = l.DefaultSize
	case size > l.MaxSize:
		size = l.MaxSize
	}
	return PaginationParams{Page: page, PageSize: size}
}

// PaginationParams selects one page of a list query.
type PaginationParams struct {
	Page     int
	PageSize int
}

// Offset is the number of rows before the page.
func (p PaginationParams) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.PageSize
}

// TotalPages is the number of pages needed for total rows; zero when the page size is unset.
func (p PaginationParams) TotalPages(total int) int {
	if p.PageSize < 1 {
		return 0
	}
	return (total + p.PageSize - 1) / p.PageSize
}
