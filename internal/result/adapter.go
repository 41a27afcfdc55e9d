package result

import (
	"encoding/json"
	"fmt"
	"iter"

	"github.com/roach88/repoquery/internal/derrors"
	"github.com/roach88/repoquery/internal/queryir"
)

// Plain is the supplier pair used when a call carries no pagination cursor.
type Plain[T any] struct {
	Stream func() (iter.Seq2[T, error], error)
	Single func() (Optional[T], error)
}

// Paged is the supplier triple used when a call carries a pagination
// cursor. Page reports a negative total when the store does not count.
type Paged[T any] struct {
	Stream func(queryir.Pageable) (iter.Seq2[T, error], error)
	Single func(queryir.Pageable) (Optional[T], error)
	Page   func(queryir.Pageable) (iter.Seq2[T, error], int64, error)
}

// Call describes one realization: the declared shape, the cursor if any,
// and the suppliers to draw from.
type Call[T any] struct {
	Shape    Shape
	Pageable *queryir.Pageable
	Plain    Plain[T]
	Paged    Paged[T]

	// Key identifies elements for Set. Defaults to the element's JSON
	// encoding.
	Key func(T) (string, error)

	// Compare orders SortedSet and NavigableSet elements. Those shapes
	// are unsupported without it.
	Compare func(a, b T) int
}

// Adapt realizes the call's shape. With a cursor only the Paged suppliers
// are used, otherwise only the Plain ones, and exactly one supplier is
// invoked. Shape problems are reported before any supplier runs.
//
// The returned value is T for an instance, Optional[T], []T, *Set[T],
// *SortedSet[T], *Queue[T], *Deque[T], iter.Seq2[T, error] for a stream,
// or Page[T].
func Adapt[T any](c Call[T]) (any, error) {
	if err := check(c); err != nil {
		return nil, err
	}
	if c.Pageable != nil {
		return adaptPaged(c, *c.Pageable)
	}
	return adaptPlain(c)
}

func check[T any](c Call[T]) error {
	declared := c.Shape.String()
	switch {
	case !c.Shape.Entity():
		return derrors.NewUnsupportedReturnType(declared, "not an entity shape")
	case c.Shape.Kind == KindPage && c.Pageable == nil:
		return derrors.NewUnsupportedReturnType(declared, "page requires a pagination cursor")
	case (c.Shape.Kind == KindSortedSet || c.Shape.Kind == KindNavigableSet) && c.Compare == nil:
		return derrors.NewUnsupportedReturnType(declared, "sorted sets require an element ordering")
	}
	return nil
}

func adaptPlain[T any](c Call[T]) (any, error) {
	switch c.Shape.Kind {
	case KindInstance, KindOptional:
		if c.Plain.Single == nil {
			return nil, missing("single", c.Shape)
		}
		opt, err := c.Plain.Single()
		if err != nil {
			return nil, err
		}
		return single(c.Shape, opt), nil
	}

	if c.Plain.Stream == nil {
		return nil, missing("stream", c.Shape)
	}
	seq, err := c.Plain.Stream()
	if err != nil {
		return nil, err
	}
	if c.Shape.Kind == KindStream {
		return seq, nil
	}
	return materialize(c, seq)
}

func adaptPaged[T any](c Call[T], p queryir.Pageable) (any, error) {
	switch c.Shape.Kind {
	case KindPage:
		if c.Paged.Page == nil {
			return nil, missing("page", c.Shape)
		}
		seq, total, err := c.Paged.Page(p)
		if err != nil {
			return nil, err
		}
		content, err := collect(seq)
		if err != nil {
			return nil, err
		}
		return NewPage(content, p, total), nil
	case KindInstance, KindOptional:
		if c.Paged.Single == nil {
			return nil, missing("paged single", c.Shape)
		}
		opt, err := c.Paged.Single(p)
		if err != nil {
			return nil, err
		}
		return single(c.Shape, opt), nil
	}

	if c.Paged.Stream == nil {
		return nil, missing("paged stream", c.Shape)
	}
	seq, err := c.Paged.Stream(p)
	if err != nil {
		return nil, err
	}
	if c.Shape.Kind == KindStream {
		return seq, nil
	}
	return materialize(c, seq)
}

func missing(supplier string, s Shape) error {
	return fmt.Errorf("result: no %s supplier for %s", supplier, s)
}

// single unwraps opt for instance shapes. An absent instance is the zero T.
func single[T any](s Shape, opt Optional[T]) any {
	if s.Kind == KindOptional {
		return opt
	}
	v, _ := opt.Get()
	return v
}

// Collect drains seq, stopping at the first error.
func Collect[T any](seq iter.Seq2[T, error]) ([]T, error) {
	return collect(seq)
}

func collect[T any](seq iter.Seq2[T, error]) ([]T, error) {
	out := []T{}
	for v, err := range seq {
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func materialize[T any](c Call[T], seq iter.Seq2[T, error]) (any, error) {
	items, err := collect(seq)
	if err != nil {
		return nil, err
	}

	switch c.Shape.Kind {
	case KindList:
		return items, nil
	case KindSet:
		key := c.Key
		if key == nil {
			key = jsonKey[T]
		}
		set := NewSet(key)
		for _, v := range items {
			if _, err := set.Add(v); err != nil {
				return nil, fmt.Errorf("result: set key: %w", err)
			}
		}
		return set, nil
	case KindSortedSet, KindNavigableSet:
		set := NewSortedSet(c.Compare)
		for _, v := range items {
			set.Add(v)
		}
		return set, nil
	case KindQueue:
		q := &Queue[T]{}
		for _, v := range items {
			q.Offer(v)
		}
		return q, nil
	case KindDeque:
		d := &Deque[T]{}
		for _, v := range items {
			d.PushBack(v)
		}
		return d, nil
	}
	return nil, derrors.NewUnsupportedReturnType(c.Shape.String(), "not a collection shape")
}

func jsonKey[T any](v T) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
