package domain

// Page sizes for tour listings. An agent rarely has more than a few dozen
// tours in flight, so the default page usually holds all of them.
const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// PaginationParams selects one page of an agent's tours. Page is 1-indexed.
type PaginationParams struct {
	Page  int
	Limit int
}

// NewPaginationParams resolves optional query values. Missing or
// non-positive values take the defaults; Limit is clamped to MaxPageLimit.
func NewPaginationParams(page, limit *int) PaginationParams {
	p := PaginationParams{Page: 1, Limit: DefaultPageLimit}
	if page != nil && *page > 0 {
		p.Page = *page
	}
	if limit != nil && *limit > 0 {
		p.Limit = min(*limit, MaxPageLimit)
	}
	return p
}

// Offset is the number of rows before this page.
func (p PaginationParams) Offset() int {
	return (p.Page - 1) * p.Limit
}

// HasMore reports whether rows remain after this page out of total.
func (p PaginationParams) HasMore(total int64) bool {
	return int64(p.Offset()+p.Limit) < total
}
