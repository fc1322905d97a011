package utils

// Page is one slice of a list endpoint's result.
type Page[T any] struct {
	Items      []T  `json:"items"`
	Page       int  `json:"page"`
	PerPage    int  `json:"per_page"`
	Total      int  `json:"total"`
	TotalPages int  `json:"total_pages"`
	HasPrev    bool `json:"has_prev"`
	HasNext    bool `json:"has_next"`
}

// MaxPerPage caps the page size a client may ask for.
const MaxPerPage = 100

// Paginate cuts items into pages of perPage and returns the requested one.
// page values below 1 are treated as 1; a page past the end comes back
// empty with the real totals.  perPage must already be within 1..MaxPerPage
// (see PerPage).
func Paginate[T any](items []T, page, perPage int) Page[T] {
	if perPage < 1 {
		perPage = 1
	}
	if page < 1 {
		page = 1
	}
	total := len(items)
	totalPages := (total + perPage - 1) / perPage
	if totalPages == 0 {
		totalPages = 1
	}
	start := (page - 1) * perPage
	if start > total {
		start = total
	}
	end := start + perPage
	if end > total {
		end = total
	}
	out := make([]T, end-start)
	copy(out, items[start:end])
	return Page[T]{
		Items:      out,
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
		HasPrev:    page > 1,
		HasNext:    page < totalPages,
	}
}

// PerPage returns requested when it is within 1..MaxPerPage and def otherwise.
func PerPage(requested, def int) int {
	if requested < 1 || requested > MaxPerPage {
		return def
	}
	return requested
}
