package listing

// PageItem is one entry of the pagination control: a page number or a gap
type PageItem struct {
	Number   int  `json:"number,omitempty"`
	Ellipsis bool `json:"ellipsis,omitempty"`
	Current  bool `json:"current,omitempty"`
}

// TotalPages returns ceil(total/size), and at least 1
func TotalPages(total, size int) int {
	if size <= 0 || total <= 0 {
		return 1
	}
	return (total + size - 1) / size
}

// ShowingRange returns the 1-based positions of the first and last row on
// the page. Both are 0 when the page is empty; neither exceeds total.
func ShowingRange(page, size, rows, total int) (from, to int) {
	if rows <= 0 || total <= 0 {
		return 0, 0
	}
	from = (page-1)*size + 1
	to = page * size
	if to > total {
		to = total
	}
	if from > to {
		from = to
	}
	return from, to
}

// PageWindow lists the first page, the neighbours of page, and the last
// page, with gaps marked as ellipses.
func PageWindow(page, totalPages int) []PageItem {
	if totalPages < 1 {
		totalPages = 1
	}

	items := []PageItem{{Number: 1, Current: page == 1}}

	start := max(2, page-1)
	end := min(totalPages-1, page+1)

	if start > 2 {
		items = append(items, PageItem{Ellipsis: true})
	}
	for i := start; i <= end; i++ {
		items = append(items, PageItem{Number: i, Current: page == i})
	}
	if end < totalPages-1 && totalPages > 1 {
		items = append(items, PageItem{Ellipsis: true})
	}
	if totalPages > 1 {
		items = append(items, PageItem{Number: totalPages, Current: page == totalPages})
	}
	return items
}
