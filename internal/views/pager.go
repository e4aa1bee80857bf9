// Package views holds the presentation state of the dashboard and the
// settings screens: paging, filter transitions, form checks and labels.
package views

import "fmt"

const DefaultRowsPerPage = 5

var RowsPerPageOptions = []int{5, 10, 15}

// RowsPerPage returns n when it is one of the offered options, else the default.
func RowsPerPage(n int) int {
	for _, o := range RowsPerPageOptions {
		if n == o {
			return n
		}
	}
	return DefaultRowsPerPage
}

// Pager describes one page of an in-memory list. Start and End are slice
// bounds into the full list.
type Pager struct {
	Page       int    `json:"page"`
	PageSize   int    `json:"page_size"`
	TotalRows  int    `json:"total_rows"`
	TotalPages int    `json:"total_pages"`
	Start      int    `json:"start"`
	End        int    `json:"end"`
	HasPrev    bool   `json:"has_prev"`
	HasNext    bool   `json:"has_next"`
	Label      string `json:"label"`
}

// Paginate clamps page into range so a shrinking list never yields an
// out-of-range empty page.
func Paginate(total, page, size int) Pager {
	if size <= 0 {
		size = DefaultRowsPerPage
	}
	if total < 0 {
		total = 0
	}
	pages := (total + size - 1) / size
	if page > pages {
		page = pages
	}
	if page < 1 {
		page = 1
	}

	p := Pager{Page: page, PageSize: size, TotalRows: total, TotalPages: pages}
	if total == 0 {
		p.Label = "Showing 0-0 of 0 rows"
		return p
	}
	p.Start = (page - 1) * size
	p.End = min(p.Start+size, total)
	p.HasPrev = page > 1
	p.HasNext = page < pages
	p.Label = fmt.Sprintf("Showing %d-%d of %d rows", p.Start+1, p.End, total)
	return p
}

// Slice returns the rows of items on p's page.
func Slice[T any](items []T, p Pager) []T {
	if p.Start >= len(items) {
		return []T{}
	}
	return items[p.Start:min(p.End, len(items))]
}
