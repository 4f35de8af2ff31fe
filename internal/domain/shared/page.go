package shared

// Page size bounds for list queries
const (
	DefaultPageSize = 20
	MaxPageSize     = 200
)

// Filter is a paged list query. Where holds equality conditions keyed by
// column; repositories ignore keys they do not recognise. A zero PageSize
// means unpaged.
type Filter struct {
	Page     int
	PageSize int
	OrderBy  string
	OrderDir string
	Where    map[string]any
}

// NewFilter returns a query for page of size pageSize, falling back to the
// first page of DefaultPageSize and clamping to MaxPageSize.
func NewFilter(page, pageSize int) Filter {
	if page < 1 {
		page = 1
	}
	switch {
	case pageSize <= 0:
		pageSize = DefaultPageSize
	case pageSize > MaxPageSize:
		pageSize = MaxPageSize
	}
	return Filter{Page: page, PageSize: pageSize, Where: make(map[string]any)}
}

// DefaultFilter returns the first page of DefaultPageSize
func DefaultFilter() Filter {
	return NewFilter(1, DefaultPageSize)
}

// Unpaged returns a query for every matching row
func Unpaged() Filter {
	return Filter{Page: 1, Where: make(map[string]any)}
}

// WhereEq adds an equality condition unless value is empty
func (f Filter) WhereEq(column, value string) Filter {
	if value == "" {
		return f
	}
	if f.Where == nil {
		f.Where = make(map[string]any)
	}
	f.Where[column] = value
	return f
}

// Offset returns the row offset for the filter's page
func (f Filter) Offset() int {
	if f.Page < 1 {
		return 0
	}
	return (f.Page - 1) * f.PageSize
}

// Paginated is one page of results
type Paginated[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

// NewPaginated wraps items with their page position
func NewPaginated[T any](items []T, total int64, page, pageSize int) Paginated[T] {
	p := Paginated[T]{Items: items, Total: total, Page: page, PageSize: pageSize}
	if pageSize > 0 {
		p.TotalPages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}
	return p
}
