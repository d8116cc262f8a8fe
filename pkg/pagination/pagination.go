package pagination

const (
	// DefaultPageSize is the standard page size when one is not provided.
	DefaultPageSize = 25
	// MaxPageSize caps how many rows any paged query can request.
	MaxPageSize = 100
)

// Params holds skip/limit pagination inputs from controllers or services.
type Params struct {
	Page     int
	PageSize int
}

// Page wraps a result slice together with the paging metadata echoed in
// responses.
type Page[T any] struct {
	Items    []T   `json:"items"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Total    int64 `json:"total"`
}

// Normalize clamps the params to sane defaults and bounds.
func (p Params) Normalize() Params {
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.PageSize <= 0 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
	return p
}

// Offset returns the number of rows to skip for the normalized params.
func (p Params) Offset() int {
	norm := p.Normalize()
	return (norm.Page - 1) * norm.PageSize
}

// Limit returns the page size for the normalized params.
func (p Params) Limit() int {
	return p.Normalize().PageSize
}

// NewPage assembles a Page from a result slice and the total row count.
func NewPage[T any](items []T, params Params, total int64) *Page[T] {
	norm := params.Normalize()
	if items == nil {
		items = []T{}
	}
	return &Page[T]{
		Items:    items,
		Page:     norm.Page,
		PageSize: norm.PageSize,
		Total:    total,
	}
}
