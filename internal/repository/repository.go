package repository

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/repoquery/internal/convert"
	"github.com/roach88/repoquery/internal/derive"
	"github.com/roach88/repoquery/internal/method"
	"github.com/roach88/repoquery/internal/queryir"
	"github.com/roach88/repoquery/internal/result"
	"github.com/roach88/repoquery/internal/schema"
)

var (
	// ErrUnknownMethod is returned by Invoke for a name that was never
	// registered.
	ErrUnknownMethod = errors.New("unknown method")

	// ErrMethodConflict is returned when two fragments declare the same
	// method and no override picks one.
	ErrMethodConflict = errors.New("method conflict")

	// ErrNotSaver is returned by Save when the template cannot write.
	ErrNotSaver = errors.New("template does not support save")
)

// Template executes queries against a store.
type Template[T any] interface {
	Select(ctx context.Context, q queryir.Query) (iter.Seq2[T, error], error)
	SingleResult(ctx context.Context, q queryir.Query) (result.Optional[T], error)
	Count(ctx context.Context, q queryir.Query) (int64, error)
	Exists(ctx context.Context, q queryir.Query) (bool, error)
	Delete(ctx context.Context, dq queryir.DeleteQuery) error
}

// Saver is implemented by templates that can write entities.
type Saver[T any] interface {
	Save(ctx context.Context, v T) (T, error)
}

// registered is a method in the dispatch table. fragment is empty for
// methods the repository declares itself.
type registered struct {
	sig      method.Signature
	fragment string
}

// Repository dispatches derived method invocations to a template.
type Repository[T any] struct {
	name     string
	entity   schema.Provider
	template Template[T]
	cache    *derive.Cache
	conv     convert.Converter
	logger   *slog.Logger
	compare  func(a, b T) int
	key      func(T) (string, error)

	mu      sync.RWMutex
	methods map[string]registered
}

// New creates a repository of entity executing against template.
func New[T any](entity schema.Provider, template Template[T], opts ...Option) (*Repository[T], error) {
	if entity == nil || template == nil {
		return nil, fmt.Errorf("repository: entity and template are required")
	}
	cfg := config{
		name:   entity.CollectionName(),
		cache:  derive.DefaultCache,
		conv:   convert.Default,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	r := &Repository[T]{
		name:     cfg.name,
		entity:   entity,
		template: template,
		cache:    cfg.cache,
		conv:     cfg.conv,
		logger:   cfg.logger,
		methods:  make(map[string]registered),
	}
	if cfg.compare != nil {
		cmp, ok := cfg.compare.(func(a, b T) int)
		if !ok {
			return nil, fmt.Errorf("repository %s: WithCompare got %T, want func(a, b %T) int", r.name, cfg.compare, *new(T))
		}
		r.compare = cmp
	}
	if cfg.key != nil {
		key, ok := cfg.key.(func(T) (string, error))
		if !ok {
			return nil, fmt.Errorf("repository %s: WithKey got %T, want func(%T) (string, error)", r.name, cfg.key, *new(T))
		}
		r.key = key
	}
	return r, nil
}

// Name returns the repository name used in logs and metrics.
func (r *Repository[T]) Name() string { return r.name }

// Register declares a method on the repository. A method declared here
// takes precedence over fragment methods of the same name.
func (r *Repository[T]) Register(sigs ...method.Signature) error {
	for _, sig := range sigs {
		if err := sig.Validate(); err != nil {
			return fmt.Errorf("repository %s: %w", r.name, err)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[string]bool, len(sigs))
	for _, sig := range sigs {
		if prev, ok := r.methods[sig.Name]; (ok && prev.fragment == "") || seen[sig.Name] {
			return fmt.Errorf("repository %s: %w: %s is declared twice", r.name, ErrMethodConflict, sig.Name)
		}
		seen[sig.Name] = true
	}
	for _, sig := range sigs {
		r.methods[sig.Name] = registered{sig: sig}
	}
	return nil
}

// Compose flattens fragments into the dispatch table. A method declared by
// more than one fragment must appear in overrides, mapped to the fragment
// whose declaration wins. Methods the repository declares itself are never
// replaced. Nothing is registered when Compose fails.
func (r *Repository[T]) Compose(fragments []method.Fragment, overrides map[string]string) error {
	seen := make(map[string]bool, len(fragments))
	declared := make(map[string][]registered)
	for _, f := range fragments {
		if f.Name == "" {
			return fmt.Errorf("repository %s: fragment name is required", r.name)
		}
		if seen[f.Name] {
			return fmt.Errorf("repository %s: fragment %q is composed twice", r.name, f.Name)
		}
		seen[f.Name] = true
		for _, sig := range f.Methods {
			if err := sig.Validate(); err != nil {
				return fmt.Errorf("repository %s: fragment %s: %w", r.name, f.Name, err)
			}
			declared[sig.Name] = append(declared[sig.Name], registered{sig: sig, fragment: f.Name})
		}
	}

	names := make([]string, 0, len(declared))
	for name := range declared {
		names = append(names, name)
	}
	sort.Strings(names)

	chosen := make(map[string]registered, len(declared))
	for _, name := range names {
		candidates := declared[name]
		if len(candidates) == 1 {
			chosen[name] = candidates[0]
			continue
		}
		winner, ok := overrides[name]
		if !ok {
			return fmt.Errorf("repository %s: %w: %s is declared by fragments %s; add an override",
				r.name, ErrMethodConflict, name, fragmentNames(candidates))
		}
		i := slices.IndexFunc(candidates, func(c registered) bool { return c.fragment == winner })
		if i < 0 {
			return fmt.Errorf("repository %s: override for %s names %q, which is not one of %s",
				r.name, name, winner, fragmentNames(candidates))
		}
		chosen[name] = candidates[i]
	}
	for name, winner := range overrides {
		if _, ok := declared[name]; !ok {
			return fmt.Errorf("repository %s: override for %s (%s) matches no fragment method", r.name, name, winner)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for name, reg := range chosen {
		if prev, ok := r.methods[name]; ok && prev.fragment == "" {
			r.logger.Debug("fragment method shadowed by repository declaration",
				"repository", r.name, "method", name, "fragment", reg.fragment)
			continue
		}
		r.methods[name] = reg
	}
	return nil
}

func fragmentNames(rs []registered) string {
	names := make([]string, len(rs))
	for i, reg := range rs {
		names[i] = reg.fragment
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

// Load registers the methods and fragments of a definition file.
func (r *Repository[T]) Load(defs *method.Definitions) error {
	if err := r.Register(defs.Methods...); err != nil {
		return err
	}
	return r.Compose(defs.Fragments, defs.Overrides)
}

// Method returns the signature registered under name.
func (r *Repository[T]) Method(name string) (method.Signature, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.methods[name]
	return reg.sig, ok
}

// Methods returns the registered method names in sorted order.
func (r *Repository[T]) Methods() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.methods))
	for name := range r.methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Plan returns the compiled plan of a registered method.
func (r *Repository[T]) Plan(name string) (*derive.Plan, error) {
	sig, ok := r.Method(name)
	if !ok {
		return nil, fmt.Errorf("repository %s: %w: %s", r.name, ErrUnknownMethod, name)
	}
	return r.cache.Get(sig, r.entity)
}

// Warm compiles every registered method concurrently so derivation errors
// surface at startup. It returns the first error; plans that compiled are
// cached either way.
func (r *Repository[T]) Warm(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for _, name := range r.Methods() {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			_, err := r.Plan(name)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("repository %s: warm: %w", r.name, err)
	}
	r.logger.Info("repository warmed", "repository", r.name, "methods", len(r.Methods()))
	return nil
}

// Invoke calls the method registered under name with args, one per
// declared parameter. The result's dynamic type follows the declared
// return shape: see result.Adapt for entity shapes, int64 for count, bool
// for exists and nil for void.
func (r *Repository[T]) Invoke(ctx context.Context, name string, args ...any) (any, error) {
	start := time.Now()
	v, err := r.invoke(ctx, name, args)
	sampleInvoke(r.name, name, time.Since(start), err)
	if err != nil {
		r.logger.Debug("invocation failed", "repository", r.name, "method", name, "error", err)
		return nil, err
	}
	return v, nil
}

func (r *Repository[T]) invoke(ctx context.Context, name string, args []any) (any, error) {
	plan, err := r.Plan(name)
	if err != nil {
		return nil, err
	}
	bound, err := derive.Bind(plan, args, r.conv)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("invoking method", "repository", r.name, "method", name, "action", bound.Action)

	switch bound.Action {
	case method.ActionCount:
		return r.template.Count(ctx, bound.Query)
	case method.ActionExists:
		return r.template.Exists(ctx, bound.Query)
	case method.ActionDelete:
		return nil, r.template.Delete(ctx, bound.Delete)
	}
	return result.Adapt(r.call(ctx, plan.Shape, bound))
}

// call wires the template into the suppliers the adapter draws from.
func (r *Repository[T]) call(ctx context.Context, shape result.Shape, bound derive.Bound) result.Call[T] {
	q := bound.Query
	return result.Call[T]{
		Shape:    shape,
		Pageable: bound.Pageable,
		Plain: result.Plain[T]{
			Stream: func() (iter.Seq2[T, error], error) { return r.template.Select(ctx, q) },
			Single: func() (result.Optional[T], error) { return r.template.SingleResult(ctx, q) },
		},
		Paged: result.Paged[T]{
			Stream: func(p queryir.Pageable) (iter.Seq2[T, error], error) {
				return r.template.Select(ctx, q.Paginate(p))
			},
			Single: func(p queryir.Pageable) (result.Optional[T], error) {
				return r.template.SingleResult(ctx, q.Paginate(p))
			},
			Page: func(p queryir.Pageable) (iter.Seq2[T, error], int64, error) {
				seq, err := r.template.Select(ctx, q.Paginate(p))
				if err != nil {
					return nil, 0, err
				}
				total, err := r.template.Count(ctx, q)
				if err != nil {
					return nil, 0, err
				}
				return seq, total, nil
			},
		},
		Key:     r.key,
		Compare: r.compare,
	}
}

// As converts an Invoke result to R.
//
//	people, err := repository.As[[]Person](repo.Invoke(ctx, "findByName", "Ada"))
func As[R any](v any, err error) (R, error) {
	var zero R
	if err != nil {
		return zero, err
	}
	if v == nil {
		return zero, nil
	}
	out, ok := v.(R)
	if !ok {
		return zero, fmt.Errorf("repository: result is %T, not %T", v, zero)
	}
	return out, nil
}
