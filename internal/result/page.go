package result

import (
	"github.com/roach88/repoquery/internal/queryir"
)

// Page is one page of results together with the cursor that produced it.
type Page[T any] struct {
	content  []T
	pageable queryir.Pageable
	total    int64
}

// NewPage packages content. A negative total means the store did not
// report one.
func NewPage[T any](content []T, p queryir.Pageable, total int64) Page[T] {
	if total < 0 {
		total = -1
	}
	return Page[T]{content: content, pageable: p, total: total}
}

// Content returns the page elements.
func (p Page[T]) Content() []T { return p.content }

// Pageable returns the cursor used for this page.
func (p Page[T]) Pageable() queryir.Pageable { return p.pageable }

// Total returns the total element count and whether the store reported it.
func (p Page[T]) Total() (int64, bool) { return p.total, p.total >= 0 }

// TotalPages returns the page count when the total is known.
func (p Page[T]) TotalPages() (int64, bool) {
	total, ok := p.Total()
	if !ok {
		return 0, false
	}
	size := p.pageable.Size()
	if size == 0 {
		return 0, true
	}
	return (total + size - 1) / size, true
}

// HasNext reports whether another page may follow. Without a total, a full
// page is assumed to have a successor.
func (p Page[T]) HasNext() bool {
	if pages, ok := p.TotalPages(); ok {
		return p.pageable.Page() < pages
	}
	return int64(len(p.content)) == p.pageable.Size()
}

// Next returns the cursor of the following page.
func (p Page[T]) Next() queryir.Pageable { return p.pageable.Next() }
