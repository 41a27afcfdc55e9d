package repository

import (
	"context"
	"fmt"

	"github.com/roach88/repoquery/internal/queryir"
	"github.com/roach88/repoquery/internal/result"
)

// Save writes v through the template, which must implement Saver.
func (r *Repository[T]) Save(ctx context.Context, v T) (T, error) {
	saver, ok := r.template.(Saver[T])
	if !ok {
		var zero T
		return zero, fmt.Errorf("repository %s: %w", r.name, ErrNotSaver)
	}
	return saver.Save(ctx, v)
}

// FindByID returns the entity with the given id.
func (r *Repository[T]) FindByID(ctx context.Context, id any) (result.Optional[T], error) {
	q, err := r.byID(id)
	if err != nil {
		return result.None[T](), err
	}
	return r.template.SingleResult(ctx, q)
}

// ExistsByID reports whether an entity with the given id exists.
func (r *Repository[T]) ExistsByID(ctx context.Context, id any) (bool, error) {
	q, err := r.byID(id)
	if err != nil {
		return false, err
	}
	return r.template.Exists(ctx, q)
}

// DeleteByID removes the entity with the given id. Deleting a missing id
// is not an error.
func (r *Repository[T]) DeleteByID(ctx context.Context, id any) error {
	idField := r.entity.IDField()
	v, err := r.conv.Coerce(id, idField.Type)
	if err != nil {
		return err
	}
	dq, err := queryir.Delete().From(r.entity.CollectionName()).Where(idField.Path).Eq(v).Build()
	if err != nil {
		return err
	}
	return r.template.Delete(ctx, dq)
}

// FindAll returns every entity ordered by sorts, then by id.
func (r *Repository[T]) FindAll(ctx context.Context, sorts ...queryir.Sort) ([]T, error) {
	q, err := queryir.NewQuery(r.entity.CollectionName(), queryir.WithSorts(sorts...))
	if err != nil {
		return nil, err
	}
	seq, err := r.template.Select(ctx, q)
	if err != nil {
		return nil, err
	}
	return result.Collect(seq)
}

// CountAll returns the number of stored entities.
func (r *Repository[T]) CountAll(ctx context.Context) (int64, error) {
	q, err := queryir.NewQuery(r.entity.CollectionName())
	if err != nil {
		return 0, err
	}
	return r.template.Count(ctx, q)
}

func (r *Repository[T]) byID(id any) (queryir.Query, error) {
	idField := r.entity.IDField()
	v, err := r.conv.Coerce(id, idField.Type)
	if err != nil {
		return queryir.Query{}, err
	}
	return queryir.Select().From(r.entity.CollectionName()).Where(idField.Path).Eq(v).Build()
}
