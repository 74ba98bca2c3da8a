package store

// PaginationParams contains pagination request parameters.
type PaginationParams struct {
	Limit  int // The number of items per page (defaults to 100 with a maximum of 1000)
	Offset int // Number of items to skip
}

// Page contains one page of results and paging metadata.
type Page[T any] struct {
	Items   []T  `json:"items"`
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
}

// DefaultPaginationParams returns sensible defaults.
func DefaultPaginationParams() PaginationParams {
	return PaginationParams{
		Limit:  100,
		Offset: 0,
	}
}

// Validate checks and corrects pagination parameters.
func (p *PaginationParams) Validate() {
	if p.Limit <= 0 {
		p.Limit = 100
	}

	if p.Limit > 1000 {
		p.Limit = 1000
	}

	if p.Offset < 0 {
		p.Offset = 0
	}
}

// NewPage assembles a Page from a slice and the unpaged total.
func NewPage[T any](items []T, total int, params PaginationParams) *Page[T] {
	if items == nil {
		items = []T{}
	}
	return &Page[T]{
		Items:   items,
		Total:   total,
		Limit:   params.Limit,
		Offset:  params.Offset,
		HasMore: params.Offset+len(items) < total,
	}
}
