// Package memstore is an in-memory execution template. It evaluates queries
// over documents held in a map and is the reference the SQLite store is
// tested against.
package memstore

import (
	"context"
	"fmt"
	"iter"
	"slices"
	"sync"

	"github.com/roach88/repoquery/internal/document"
	"github.com/roach88/repoquery/internal/queryir"
	"github.com/roach88/repoquery/internal/result"
	"github.com/roach88/repoquery/internal/schema"
)

// Option configures a Store.
type Option func(*config)

type config struct {
	ids document.IDGenerator
}

// WithIDGenerator sets the generator for documents saved without an id.
// Defaults to document.UUIDv7.
func WithIDGenerator(g document.IDGenerator) Option {
	return func(c *config) { c.ids = g }
}

// Store holds the documents of one entity collection. Safe for concurrent
// use.
type Store[T any] struct {
	mu     sync.RWMutex
	entity schema.Provider
	ids    document.IDGenerator
	docs   map[string]document.D
}

// New creates an empty store for the entity.
func New[T any](entity schema.Provider, opts ...Option) *Store[T] {
	cfg := config{ids: document.UUIDv7{}}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Store[T]{
		entity: entity,
		ids:    cfg.ids,
		docs:   make(map[string]document.D),
	}
}

// Save inserts or replaces v by id, assigning an id when it has none, and
// returns the stored entity.
func (s *Store[T]) Save(ctx context.Context, v T) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	d, err := document.From(v)
	if err != nil {
		return zero, err
	}
	id, err := document.EnsureID(d, s.entity.IDField().Path, s.ids)
	if err != nil {
		return zero, err
	}

	s.mu.Lock()
	s.docs[id] = d
	s.mu.Unlock()
	return document.To[T](d)
}

// Select runs q and yields the matching entities. The result is a snapshot
// taken when Select is called; decoding happens lazily while iterating.
func (s *Store[T]) Select(ctx context.Context, q queryir.Query) (iter.Seq2[T, error], error) {
	docs, err := s.run(ctx, q)
	if err != nil {
		return nil, err
	}
	return func(yield func(T, error) bool) {
		for _, d := range docs {
			if err := ctx.Err(); err != nil {
				var zero T
				yield(zero, err)
				return
			}
			v, err := document.To[T](d)
			if !yield(v, err) || err != nil {
				return
			}
		}
	}, nil
}

// SingleResult returns the first entity q selects.
func (s *Store[T]) SingleResult(ctx context.Context, q queryir.Query) (result.Optional[T], error) {
	docs, err := s.run(ctx, q)
	if err != nil || len(docs) == 0 {
		return result.None[T](), err
	}
	v, err := document.To[T](docs[0])
	if err != nil {
		return result.None[T](), err
	}
	return result.Some(v), nil
}

// Count returns how many documents match q's condition. Bounds apply.
func (s *Store[T]) Count(ctx context.Context, q queryir.Query) (int64, error) {
	docs, err := s.run(ctx, q)
	return int64(len(docs)), err
}

// Exists reports whether any document matches q's condition.
func (s *Store[T]) Exists(ctx context.Context, q queryir.Query) (bool, error) {
	n, err := s.Count(ctx, q.Unbounded())
	return n > 0, err
}

// Delete removes every document matching dq's condition.
func (s *Store[T]) Delete(ctx context.Context, dq queryir.DeleteQuery) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.checkTarget(dq.Name()); err != nil {
		return err
	}
	cond, _ := dq.Condition()

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, d := range s.docs {
		ok, err := Match(d, cond)
		if err != nil {
			return err
		}
		if ok {
			delete(s.docs, id)
		}
	}
	return nil
}

// Len returns the number of stored documents.
func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

func (s *Store[T]) checkTarget(name string) error {
	if want := s.entity.CollectionName(); name != want {
		return fmt.Errorf("memstore: query targets %q, store holds %q", name, want)
	}
	return nil
}

// run filters, orders, bounds and projects.
func (s *Store[T]) run(ctx context.Context, q queryir.Query) ([]document.D, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.checkTarget(q.Name()); err != nil {
		return nil, err
	}
	cond, _ := q.Condition()

	s.mu.RLock()
	var matched []document.D
	for _, d := range s.docs {
		ok, err := Match(d, cond)
		if err != nil {
			s.mu.RUnlock()
			return nil, err
		}
		if ok {
			matched = append(matched, d)
		}
	}
	s.mu.RUnlock()

	sortDocuments(matched, q.Sorts(), s.entity.IDField().Path)

	if skip, ok := q.Skip(); ok {
		matched = matched[bound(skip, len(matched)):]
	}
	if limit, ok := q.Limit(); ok {
		matched = matched[:bound(limit, len(matched))]
	}
	if fields := q.Fields(); len(fields) > 0 {
		for i, d := range matched {
			projected, err := document.Project(d, append([]string{s.entity.IDField().Path}, fields...)...)
			if err != nil {
				return nil, fmt.Errorf("select %s: %w", q.Name(), err)
			}
			matched[i] = projected
		}
	}
	return matched, nil
}

// sortDocuments orders by the sorts, then by id ascending so results are
// deterministic.
func sortDocuments(docs []document.D, sorts []queryir.Sort, idPath string) {
	sorts = append(slices.Clip(sorts), queryir.Asc(idPath))
	slices.SortFunc(docs, func(a, b document.D) int {
		for _, s := range sorts {
			av, _ := document.Lookup(a, s.Field)
			bv, _ := document.Lookup(b, s.Field)
			n, err := document.Compare(av, bv)
			if err != nil || n == 0 {
				continue
			}
			if s.Direction == queryir.Descending {
				return -n
			}
			return n
		}
		return 0
	})
}

// bound clamps a skip or limit to a valid index into n elements.
func bound(v int64, n int) int {
	return int(max(0, min(v, int64(n))))
}
