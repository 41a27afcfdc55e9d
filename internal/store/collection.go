package store

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"

	"github.com/roach88/repoquery/internal/document"
	"github.com/roach88/repoquery/internal/queryir"
	"github.com/roach88/repoquery/internal/querysql"
	"github.com/roach88/repoquery/internal/result"
	"github.com/roach88/repoquery/internal/schema"
)

// Option configures a Collection.
type Option func(*config)

type config struct {
	ids document.IDGenerator
}

// WithIDGenerator sets the generator for entities saved without an id.
// Defaults to document.UUIDv7.
func WithIDGenerator(g document.IDGenerator) Option {
	return func(c *config) { c.ids = g }
}

// Collection executes queries for one entity against the store.
type Collection[T any] struct {
	store    *Store
	entity   schema.Provider
	compiler *querysql.Compiler
	ids      document.IDGenerator
}

// NewCollection binds the entity's collection in s to T.
func NewCollection[T any](s *Store, entity schema.Provider, opts ...Option) *Collection[T] {
	cfg := config{ids: document.UUIDv7{}}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Collection[T]{
		store:    s,
		entity:   entity,
		compiler: querysql.NewCompiler(),
		ids:      cfg.ids,
	}
}

// Save inserts or replaces v by id, assigning an id when it has none, and
// returns the stored entity.
func (c *Collection[T]) Save(ctx context.Context, v T) (T, error) {
	var zero T
	d, err := document.From(v)
	if err != nil {
		return zero, fmt.Errorf("save %s: %w", c.entity.CollectionName(), err)
	}
	id, err := document.EnsureID(d, c.entity.IDField().Path, c.ids)
	if err != nil {
		return zero, fmt.Errorf("save %s: %w", c.entity.CollectionName(), err)
	}
	body, err := json.Marshal(d)
	if err != nil {
		return zero, fmt.Errorf("save %s: %w", c.entity.CollectionName(), err)
	}

	_, err = c.store.db.ExecContext(ctx, `
		INSERT INTO documents (collection, id, body)
		VALUES (?, ?, ?)
		ON CONFLICT(collection, id) DO UPDATE SET body = excluded.body
	`, c.entity.CollectionName(), id, string(body))
	if err != nil {
		return zero, fmt.Errorf("save %s %q: %w", c.entity.CollectionName(), id, err)
	}
	return document.To[T](d)
}

// Select runs q and yields the matching entities. Rows are read before
// Select returns so the connection is free while the caller iterates.
func (c *Collection[T]) Select(ctx context.Context, q queryir.Query) (iter.Seq2[T, error], error) {
	docs, err := c.query(ctx, q)
	if err != nil {
		return nil, err
	}
	return func(yield func(T, error) bool) {
		for _, d := range docs {
			v, err := document.To[T](d)
			if !yield(v, err) || err != nil {
				return
			}
		}
	}, nil
}

// SingleResult returns the first entity q selects.
func (c *Collection[T]) SingleResult(ctx context.Context, q queryir.Query) (result.Optional[T], error) {
	docs, err := c.query(ctx, q)
	if err != nil || len(docs) == 0 {
		return result.None[T](), err
	}
	v, err := document.To[T](docs[0])
	if err != nil {
		return result.None[T](), err
	}
	return result.Some(v), nil
}

// Count returns how many documents match q. Bounds apply.
func (c *Collection[T]) Count(ctx context.Context, q queryir.Query) (int64, error) {
	if err := c.checkTarget(q.Name()); err != nil {
		return 0, err
	}
	sql, params, err := c.compiler.Count(q)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := c.store.db.QueryRowContext(ctx, sql, params...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", q.Name(), err)
	}
	return n, nil
}

// Exists reports whether any document matches q's condition.
func (c *Collection[T]) Exists(ctx context.Context, q queryir.Query) (bool, error) {
	if err := c.checkTarget(q.Name()); err != nil {
		return false, err
	}
	sql, params, err := c.compiler.Exists(q)
	if err != nil {
		return false, err
	}
	var found bool
	if err := c.store.db.QueryRowContext(ctx, sql, params...).Scan(&found); err != nil {
		return false, fmt.Errorf("exists %s: %w", q.Name(), err)
	}
	return found, nil
}

// Delete removes every document matching dq's condition.
func (c *Collection[T]) Delete(ctx context.Context, dq queryir.DeleteQuery) error {
	if err := c.checkTarget(dq.Name()); err != nil {
		return err
	}
	sql, params, err := c.compiler.Delete(dq)
	if err != nil {
		return err
	}
	if _, err := c.store.db.ExecContext(ctx, sql, params...); err != nil {
		return fmt.Errorf("delete %s: %w", dq.Name(), err)
	}
	return nil
}

func (c *Collection[T]) checkTarget(name string) error {
	if want := c.entity.CollectionName(); name != want {
		return fmt.Errorf("store: query targets %q, collection is %q", name, want)
	}
	return nil
}

// query runs a compiled SELECT and returns the decoded bodies, projected
// when q names fields.
func (c *Collection[T]) query(ctx context.Context, q queryir.Query) ([]document.D, error) {
	if err := c.checkTarget(q.Name()); err != nil {
		return nil, err
	}
	sql, params, err := c.compiler.Select(q)
	if err != nil {
		return nil, err
	}

	rows, err := c.store.db.QueryContext(ctx, sql, params...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Name(), err)
	}
	defer rows.Close()

	fields := q.Fields()
	var docs []document.D
	for rows.Next() {
		var id, body string
		if err := rows.Scan(&id, &body); err != nil {
			return nil, fmt.Errorf("scan %s: %w", q.Name(), err)
		}
		d, err := document.Decode([]byte(body))
		if err != nil {
			return nil, fmt.Errorf("decode %s %q: %w", q.Name(), id, err)
		}
		if len(fields) > 0 {
			d, err = document.Project(d, append([]string{c.entity.IDField().Path}, fields...)...)
			if err != nil {
				return nil, fmt.Errorf("select %s %q: %w", q.Name(), id, err)
			}
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", q.Name(), err)
	}
	return docs, nil
}
