package analytics

import "math"

// PageRequest selects a 1-based page. A zero Size uses the service default;
// sizes above the maximum are capped.
type PageRequest struct {
	Number int
	Size   int
}

// Page wraps one page of results with pagination metadata.
type Page[T any] struct {
	Results    []T   `json:"results"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Count      int64 `json:"count"`
	TotalPages int   `json:"total_pages"`
	HasMore    bool  `json:"has_more"`
}

func (p PageRequest) offset() int { return (p.Number - 1) * p.Size }

func (s *Service) normalizePage(p PageRequest) (PageRequest, error) {
	if p.Number < 1 {
		return p, invalid("page", "must be at least 1, got %d", p.Number)
	}
	if p.Size < 0 {
		return p, invalid("page_size", "must not be negative, got %d", p.Size)
	}
	if p.Size == 0 {
		p.Size = s.opts.DefaultPageSize
	}
	if p.Size > s.opts.MaxPageSize {
		p.Size = s.opts.MaxPageSize
	}
	return p, nil
}

// totalPages is at least 1 so that page 1 of an empty result is valid.
func totalPages(total int64, size int) int {
	pages := int(math.Ceil(float64(total) / float64(size)))
	if pages < 1 {
		pages = 1
	}
	return pages
}

func checkPage(p PageRequest, total int64) error {
	if pages := totalPages(total, p.Size); p.Number > pages {
		return invalid("page", "%d is out of range (%d pages)", p.Number, pages)
	}
	return nil
}

func newPage[T any](results []T, p PageRequest, total int64) Page[T] {
	if results == nil {
		results = []T{}
	}
	pages := totalPages(total, p.Size)
	return Page[T]{
		Results:    results,
		Page:       p.Number,
		PageSize:   p.Size,
		Count:      total,
		TotalPages: pages,
		HasMore:    p.Number < pages,
	}
}
