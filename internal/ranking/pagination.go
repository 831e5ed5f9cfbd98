package ranking

// DefaultPageSize is the number of results shown per page
const DefaultPageSize = 100

// Page is the pagination metadata for one response
type Page struct {
	DisplayPage int `json:"display_page"` // 1-based page number
	MaxPages    int `json:"max_pages"`
	ResultBegin int `json:"result_begin"`
	ResultEnd   int `json:"result_end"`
}

// Paginate derives page count and window boundaries
// page is zero-indexed; out-of-range pages are valid and simply select nothing.
// A non-positive pageSize falls back to DefaultPageSize.
func Paginate(total, page, pageSize int) Page {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if total < 0 {
		total = 0
	}

	return Page{
		DisplayPage: page + 1,
		MaxPages:    (total + pageSize - 1) / pageSize,
		ResultBegin: page * pageSize,
		ResultEnd:   (page + 1) * pageSize,
	}
}

// Window clamps the page boundaries to a slice of n hits
// Returns begin == end when the page lies outside the slice.
func (p Page) Window(n int) (begin, end int) {
	begin, end = p.ResultBegin, p.ResultEnd
	if begin < 0 {
		begin = 0
	}
	if begin > n {
		begin = n
	}
	if end > n {
		end = n
	}
	if end < begin {
		end = begin
	}
	return begin, end
}
