package result

import (
	"iter"
	"slices"
)

// Set keeps the first of each group of elements sharing a key, in
// insertion order.
type Set[T any] struct {
	key   func(T) (string, error)
	index map[string]int
	items []T
}

// NewSet creates an empty set keyed by key.
func NewSet[T any](key func(T) (string, error)) *Set[T] {
	return &Set[T]{key: key, index: make(map[string]int)}
}

// Add inserts v unless an element with the same key is present. It reports
// whether v was added.
func (s *Set[T]) Add(v T) (bool, error) {
	k, err := s.key(v)
	if err != nil {
		return false, err
	}
	if _, ok := s.index[k]; ok {
		return false, nil
	}
	s.index[k] = len(s.items)
	s.items = append(s.items, v)
	return true, nil
}

// Contains reports whether an element with v's key is present.
func (s *Set[T]) Contains(v T) (bool, error) {
	k, err := s.key(v)
	if err != nil {
		return false, err
	}
	_, ok := s.index[k]
	return ok, nil
}

// Len returns the number of elements.
func (s *Set[T]) Len() int { return len(s.items) }

// Values returns the elements in insertion order.
func (s *Set[T]) Values() []T { return slices.Clone(s.items) }

// All iterates the elements in insertion order.
func (s *Set[T]) All() iter.Seq[T] { return slices.Values(s.items) }

// SortedSet is a set ordered by a comparison function. Elements comparing
// equal are duplicates; the first one added is kept. SortedSet also serves
// navigable-set returns.
type SortedSet[T any] struct {
	cmp   func(a, b T) int
	items []T
}

// NewSortedSet creates an empty set ordered by cmp.
func NewSortedSet[T any](cmp func(a, b T) int) *SortedSet[T] {
	return &SortedSet[T]{cmp: cmp}
}

// Add inserts v in order. It reports whether v was added.
func (s *SortedSet[T]) Add(v T) bool {
	i, found := slices.BinarySearchFunc(s.items, v, s.cmp)
	if found {
		return false
	}
	s.items = slices.Insert(s.items, i, v)
	return true
}

// Contains reports whether an element equal to v is present.
func (s *SortedSet[T]) Contains(v T) bool {
	_, found := slices.BinarySearchFunc(s.items, v, s.cmp)
	return found
}

// Len returns the number of elements.
func (s *SortedSet[T]) Len() int { return len(s.items) }

// Values returns the elements in ascending order.
func (s *SortedSet[T]) Values() []T { return slices.Clone(s.items) }

// All iterates the elements in ascending order.
func (s *SortedSet[T]) All() iter.Seq[T] { return slices.Values(s.items) }

// First returns the lowest element.
func (s *SortedSet[T]) First() (T, bool) { return s.at(0) }

// Last returns the highest element.
func (s *SortedSet[T]) Last() (T, bool) { return s.at(len(s.items) - 1) }

// Floor returns the greatest element less than or equal to v.
func (s *SortedSet[T]) Floor(v T) (T, bool) {
	i, found := slices.BinarySearchFunc(s.items, v, s.cmp)
	if found {
		return s.at(i)
	}
	return s.at(i - 1)
}

// Ceiling returns the least element greater than or equal to v.
func (s *SortedSet[T]) Ceiling(v T) (T, bool) {
	i, _ := slices.BinarySearchFunc(s.items, v, s.cmp)
	return s.at(i)
}

// Lower returns the greatest element strictly less than v.
func (s *SortedSet[T]) Lower(v T) (T, bool) {
	i, _ := slices.BinarySearchFunc(s.items, v, s.cmp)
	return s.at(i - 1)
}

// Higher returns the least element strictly greater than v.
func (s *SortedSet[T]) Higher(v T) (T, bool) {
	i, found := slices.BinarySearchFunc(s.items, v, s.cmp)
	if found {
		i++
	}
	return s.at(i)
}

func (s *SortedSet[T]) at(i int) (T, bool) {
	if i < 0 || i >= len(s.items) {
		var zero T
		return zero, false
	}
	return s.items[i], true
}

// Queue is a FIFO queue.
type Queue[T any] struct {
	items []T
}

// Offer appends v at the tail.
func (q *Queue[T]) Offer(v T) { q.items = append(q.items, v) }

// Poll removes and returns the head.
func (q *Queue[T]) Poll() (T, bool) {
	v, ok := q.Peek()
	if ok {
		q.items = q.items[1:]
	}
	return v, ok
}

// Peek returns the head without removing it.
func (q *Queue[T]) Peek() (T, bool) {
	if len(q.items) == 0 {
		var zero T
		return zero, false
	}
	return q.items[0], true
}

// Len returns the number of queued elements.
func (q *Queue[T]) Len() int { return len(q.items) }

// Values returns the elements from head to tail.
func (q *Queue[T]) Values() []T { return slices.Clone(q.items) }

// Deque is a double-ended queue.
type Deque[T any] struct {
	items []T
}

// PushBack appends v at the back.
func (d *Deque[T]) PushBack(v T) { d.items = append(d.items, v) }

// PushFront inserts v at the front.
func (d *Deque[T]) PushFront(v T) { d.items = slices.Insert(d.items, 0, v) }

// PopFront removes and returns the front element.
func (d *Deque[T]) PopFront() (T, bool) {
	v, ok := d.PeekFront()
	if ok {
		d.items = d.items[1:]
	}
	return v, ok
}

// PopBack removes and returns the back element.
func (d *Deque[T]) PopBack() (T, bool) {
	v, ok := d.PeekBack()
	if ok {
		d.items = d.items[:len(d.items)-1]
	}
	return v, ok
}

// PeekFront returns the front element.
func (d *Deque[T]) PeekFront() (T, bool) {
	if len(d.items) == 0 {
		var zero T
		return zero, false
	}
	return d.items[0], true
}

// PeekBack returns the back element.
func (d *Deque[T]) PeekBack() (T, bool) {
	if len(d.items) == 0 {
		var zero T
		return zero, false
	}
	return d.items[len(d.items)-1], true
}

// Len returns the number of elements.
func (d *Deque[T]) Len() int { return len(d.items) }

// Values returns the elements from front to back.
func (d *Deque[T]) Values() []T { return slices.Clone(d.items) }
