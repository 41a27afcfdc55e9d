package harness

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"

	"github.com/roach88/repoquery/internal/convert"
	"github.com/roach88/repoquery/internal/derive"
	"github.com/roach88/repoquery/internal/derrors"
	"github.com/roach88/repoquery/internal/document"
	"github.com/roach88/repoquery/internal/memstore"
	"github.com/roach88/repoquery/internal/method"
	"github.com/roach88/repoquery/internal/queryir"
	"github.com/roach88/repoquery/internal/repository"
	"github.com/roach88/repoquery/internal/result"
	"github.com/roach88/repoquery/internal/schema"
	"github.com/roach88/repoquery/internal/store"
	"github.com/roach88/repoquery/internal/testutil"
)

// template is what the harness needs from a store: queries and seeding.
type template interface {
	repository.Template[document.D]
	repository.Saver[document.D]
}

// Harness executes one scenario against a fresh store.
type Harness struct {
	scenario *Scenario
	entity   *schema.Entity
	template template
	repo     *repository.Repository[document.D]
	cache    *derive.Cache
	logger   *slog.Logger
}

// Option configures Run.
type Option func(*Harness)

// WithLogger sets the logger. Defaults to discarding output.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Harness) { h.logger = logger }
}

// Run executes a scenario and returns the result.
//
// Each scenario runs with its own store, plan cache and sequential id
// generator, so repeated runs produce identical results:
//  1. Compile the schema directory and look up the entity
//  2. Open the store and save the setup documents
//  3. Register the methods and invoke each flow step
//  4. Evaluate the assertions
//
// An error is returned when the scenario cannot be set up. Failed
// expectations are reported on the Result.
func Run(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	h := &Harness{
		scenario: scenario,
		cache:    derive.NewCache(),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}

	reg, errs := schema.LoadDir(scenario.Schema)
	if len(errs) > 0 {
		return nil, fmt.Errorf("failed to load schema: %w", errors.Join(errs...))
	}
	entity, ok := reg.Lookup(scenario.Entity)
	if !ok {
		return nil, fmt.Errorf("entity %q not declared in %s", scenario.Entity, scenario.Schema)
	}
	h.entity = entity

	tmpl, closeStore, err := openTemplate(scenario, entity)
	if err != nil {
		return nil, err
	}
	defer closeStore()
	h.template = tmpl

	idPath := entity.IDField().Path
	h.repo, err = repository.New[document.D](entity, tmpl,
		repository.WithName(scenario.Name),
		repository.WithCache(h.cache),
		repository.WithLogger(h.logger),
		repository.WithCompare(func(a, b document.D) int {
			return cmp.Compare(fmt.Sprint(a[idPath]), fmt.Sprint(b[idPath]))
		}),
	)
	if err != nil {
		return nil, err
	}
	if err := h.registerMethods(); err != nil {
		return nil, fmt.Errorf("failed to register methods: %w", err)
	}

	for i, doc := range scenario.Setup {
		if _, err := tmpl.Save(ctx, document.D(doc)); err != nil {
			return nil, fmt.Errorf("setup[%d]: %w", i, err)
		}
	}
	h.logger.Info("scenario seeded", "scenario", scenario.Name, "documents", len(scenario.Setup))

	res := NewResult()
	for i, step := range scenario.Flow {
		if err := h.executeStep(ctx, i, step, res); err != nil {
			return nil, fmt.Errorf("flow[%d] %s: %w", i, step.Invoke, err)
		}
	}

	for _, msg := range h.evaluateAssertions(ctx) {
		res.AddError(msg)
	}
	res.Compiles = h.cache.Compiles()
	return res, nil
}

func openTemplate(s *Scenario, entity *schema.Entity) (template, func(), error) {
	prefix := s.IDPrefix
	if prefix == "" {
		prefix = "doc"
	}
	ids := testutil.NewSequentialIDs(prefix)

	if s.Store == StoreSQLite {
		st, err := store.Open(":memory:")
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create in-memory store: %w", err)
		}
		c := store.NewCollection[document.D](st, entity, store.WithIDGenerator(ids))
		return c, func() { st.Close() }, nil
	}
	return memstore.New[document.D](entity, memstore.WithIDGenerator(ids)), func() {}, nil
}

func (h *Harness) registerMethods() error {
	if path := h.scenario.Definitions; path != "" {
		defs, err := method.LoadDefinitions(path)
		if err != nil {
			return err
		}
		if defs.Entity != h.scenario.Entity {
			return fmt.Errorf("definitions declare entity %q, scenario uses %q", defs.Entity, h.scenario.Entity)
		}
		if err := h.repo.Load(defs); err != nil {
			return err
		}
	}
	return h.repo.Register(h.scenario.Methods...)
}

// executeStep invokes one method and checks its expect clause. Derivation
// and invocation failures are recorded on the step; the returned error is
// reserved for results the harness cannot snapshot.
func (h *Harness) executeStep(ctx context.Context, i int, step FlowStep, res *Result) error {
	sr := StepResult{Invoke: step.Invoke, Args: normalizeArgs(step.Args)}

	var out any
	args, err := h.callArgs(step)
	if err == nil {
		sr.Query, err = h.derivedQuery(step.Invoke, args)
	}
	if err == nil {
		out, err = h.repo.Invoke(ctx, step.Invoke, args...)
	}
	if seq, ok := out.(iter.Seq2[document.D, error]); ok && err == nil {
		out, err = result.Collect(seq)
	}
	if err != nil {
		sr.Code = string(derrors.CodeOf(err))
		sr.Error = err.Error()
	} else {
		sr.Result, err = normalizeResult(out)
		if err != nil {
			return err
		}
	}
	res.Steps = append(res.Steps, sr)

	for _, msg := range h.checkExpect(step, sr, out) {
		res.AddError(fmt.Sprintf("flow[%d] %s: %s", i, step.Invoke, msg))
	}
	h.logger.Info("flow step completed",
		"step", i,
		"method", step.Invoke,
		"code", sr.Code,
	)
	return nil
}

// callArgs converts the step's YAML arguments for the invoked method. An
// unknown method passes its arguments through; Invoke reports it.
func (h *Harness) callArgs(step FlowStep) ([]any, error) {
	sig, ok := h.repo.Method(step.Invoke)
	if !ok {
		return step.Args, nil
	}
	return ConvertArgs(sig, step.Args)
}

// ConvertArgs converts YAML-decoded arguments for pageable and sort
// parameters into queryir values. Value arguments pass through to the
// repository's converter.
func ConvertArgs(sig method.Signature, raw []any) ([]any, error) {
	args := make([]any, len(raw))
	for i, v := range raw {
		args[i] = v
		if i >= len(sig.Params) {
			continue
		}
		var err error
		switch sig.Params[i].EffectiveKind() {
		case method.KindPageable:
			args[i], err = pageableArg(v)
		case method.KindSort:
			args[i], err = sortArg(v)
		}
		if err != nil {
			return nil, fmt.Errorf("argument %d (%s): %w", i, sig.Params[i].Name, err)
		}
	}
	return args, nil
}

// derivedQuery returns the canonical form of the query an invocation runs.
// For paged shapes this is the query before pagination.
func (h *Harness) derivedQuery(name string, args []any) (any, error) {
	plan, err := h.repo.Plan(name)
	if err != nil {
		return nil, err
	}
	bound, err := derive.Bind(plan, args, convert.Default)
	if err != nil {
		return nil, err
	}
	if bound.Action == method.ActionDelete {
		return bound.Delete.ToIR()
	}
	return bound.Query.ToIR()
}

func pageableArg(raw any) (any, error) {
	if raw == nil {
		return nil, nil
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("pageable must be a map of page, size and sort, got %T", raw)
	}
	page, err := intField(m, "page", 1)
	if err != nil {
		return nil, err
	}
	size, err := intField(m, "size", 20)
	if err != nil {
		return nil, err
	}
	var sorts []queryir.Sort
	if s, ok := m["sort"]; ok {
		if sorts, err = sortList(s); err != nil {
			return nil, err
		}
	}
	return queryir.PageOf(page, size, sorts...)
}

func sortArg(raw any) (any, error) {
	if raw == nil {
		return nil, nil
	}
	return sortList(raw)
}

func sortList(raw any) ([]queryir.Sort, error) {
	switch v := raw.(type) {
	case map[string]any:
		s, err := sortOf(v)
		if err != nil {
			return nil, err
		}
		return []queryir.Sort{s}, nil
	case []any:
		sorts := make([]queryir.Sort, 0, len(v))
		for i, elem := range v {
			m, ok := elem.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("sort[%d] must be a map of field and direction, got %T", i, elem)
			}
			s, err := sortOf(m)
			if err != nil {
				return nil, fmt.Errorf("sort[%d]: %w", i, err)
			}
			sorts = append(sorts, s)
		}
		return sorts, nil
	}
	return nil, fmt.Errorf("sort must be a map or a list, got %T", raw)
}

func sortOf(m map[string]any) (queryir.Sort, error) {
	field, _ := m["field"].(string)
	if field == "" {
		return queryir.Sort{}, fmt.Errorf("sort field is required")
	}
	dir := queryir.Ascending
	if d, ok := m["direction"]; ok {
		s, _ := d.(string)
		dir = queryir.Direction(s)
	}
	return queryir.Sort{Field: field, Direction: dir}, nil
}

func intField(m map[string]any, key string, fallback int64) (int64, error) {
	v, ok := m[key]
	if !ok {
		return fallback, nil
	}
	n, ok := v.(int)
	if !ok {
		return 0, fmt.Errorf("%s must be an integer, got %T", key, v)
	}
	return int64(n), nil
}
