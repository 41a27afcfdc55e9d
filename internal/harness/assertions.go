package harness

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/repoquery/internal/convert"
	"github.com/roach88/repoquery/internal/document"
	"github.com/roach88/repoquery/internal/queryir"
	"github.com/roach88/repoquery/internal/result"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	return fmt.Sprintf("assertion failed: %s: expected %s, actual %s", e.Type, e.Expected, e.Actual)
}

// evaluateAssertions checks every scenario assertion and returns the
// failure messages.
func (h *Harness) evaluateAssertions(ctx context.Context) []string {
	var msgs []string
	for i, a := range h.scenario.Assertions {
		var err error
		switch a.Type {
		case AssertFinalState:
			err = h.assertFinalState(ctx, a)
		case AssertFinalCount:
			err = h.assertFinalCount(ctx, a)
		case AssertCompiles:
			err = h.assertCompiles(a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			msgs = append(msgs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return msgs
}

// assertFinalState requires exactly one document matching Where and checks
// the Expect fields against it.
func (h *Harness) assertFinalState(ctx context.Context, a Assertion) error {
	q, err := h.whereQuery(a.Where)
	if err != nil {
		return err
	}
	seq, err := h.template.Select(ctx, q)
	if err != nil {
		return err
	}
	docs, err := result.Collect(seq)
	if err != nil {
		return err
	}
	switch len(docs) {
	case 0:
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: "document where " + formatWhere(a.Where),
			Actual:   "no document found",
		}
	case 1:
	default:
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: "exactly one document where " + formatWhere(a.Where),
			Actual:   fmt.Sprintf("%d documents matched (assertion is ambiguous)", len(docs)),
		}
	}

	for _, path := range sortedKeys(a.Expect) {
		want := a.Expect[path]
		got, ok := document.Lookup(docs[0], path)
		if !ok {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q to exist", path),
				Actual:   "field not present",
			}
		}
		if !document.Equal(got, want) {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q = %v (type %T)", path, want, want),
				Actual:   fmt.Sprintf("field %q = %v (type %T)", path, got, got),
			}
		}
	}
	return nil
}

func (h *Harness) assertFinalCount(ctx context.Context, a Assertion) error {
	q, err := h.whereQuery(a.Where)
	if err != nil {
		return err
	}
	n, err := h.template.Count(ctx, q)
	if err != nil {
		return err
	}
	if n != int64(a.Count) {
		return &AssertionError{
			Type:     AssertFinalCount,
			Expected: fmt.Sprintf("%d documents where %s", a.Count, formatWhere(a.Where)),
			Actual:   fmt.Sprintf("%d documents", n),
		}
	}
	return nil
}

func (h *Harness) assertCompiles(a Assertion) error {
	if n := h.cache.Compiles(); n != int64(a.Count) {
		return &AssertionError{
			Type:     AssertCompiles,
			Expected: fmt.Sprintf("%d plan compilations", a.Count),
			Actual:   fmt.Sprintf("%d", n),
		}
	}
	return nil
}

// whereQuery builds an equality query over the entity's collection. Values
// are coerced to the declared field types.
func (h *Harness) whereQuery(where map[string]any) (queryir.Query, error) {
	b := queryir.Select().From(h.entity.CollectionName())
	for i, path := range sortedKeys(where) {
		field, ok := h.entity.ResolveField(path)
		if !ok {
			return queryir.Query{}, fmt.Errorf("where: unknown field %q", path)
		}
		v, err := convert.Default.Coerce(where[path], field.Type)
		if err != nil {
			return queryir.Query{}, fmt.Errorf("where %s: %w", path, err)
		}
		if i == 0 {
			b = b.Where(path).Eq(v)
		} else {
			b = b.And(path).Eq(v)
		}
	}
	return b.Build()
}

func formatWhere(where map[string]any) string {
	if len(where) == 0 {
		return "(no conditions)"
	}
	keys := sortedKeys(where)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, where[k])
	}
	return strings.Join(parts, " AND ")
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
