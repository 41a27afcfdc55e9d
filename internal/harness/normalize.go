package harness

import (
	"encoding/json"
	"fmt"
	"iter"
	"math"

	"github.com/roach88/repoquery/internal/document"
	"github.com/roach88/repoquery/internal/ir"
	"github.com/roach88/repoquery/internal/result"
)

var absent = ir.IRObject{ir.TagNull: ir.IRBool(true)}

// normalizeResult converts an invocation result into plain documents,
// lists and scalars that encode canonically. Nil stays nil (void).
func normalizeResult(v any) (any, error) {
	switch r := v.(type) {
	case nil:
		return nil, nil
	case int64, bool:
		return r, nil
	case document.D:
		if r == nil {
			return absent, nil
		}
		return normalize(r), nil
	case result.Optional[document.D]:
		d, ok := r.Get()
		if !ok {
			return absent, nil
		}
		return normalize(d), nil
	case result.Page[document.D]:
		page := map[string]any{
			"content": normalizeDocs(r.Content()),
			"page":    r.Pageable().Page(),
			"size":    r.Pageable().Size(),
		}
		if total, ok := r.Total(); ok {
			page["total"] = total
		}
		return page, nil
	}

	docs, ok, err := entities(v)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("unsupported result type %T", v)
	}
	return normalizeDocs(docs), nil
}

// entities returns the documents of a collection-shaped or single result.
// ok is false for count, exists and void results.
func entities(v any) ([]document.D, bool, error) {
	switch r := v.(type) {
	case document.D:
		if r == nil {
			return nil, true, nil
		}
		return []document.D{r}, true, nil
	case result.Optional[document.D]:
		if d, ok := r.Get(); ok {
			return []document.D{d}, true, nil
		}
		return nil, true, nil
	case []document.D:
		return r, true, nil
	case *result.Set[document.D]:
		return r.Values(), true, nil
	case *result.SortedSet[document.D]:
		return r.Values(), true, nil
	case *result.Queue[document.D]:
		return r.Values(), true, nil
	case *result.Deque[document.D]:
		return r.Values(), true, nil
	case result.Page[document.D]:
		return r.Content(), true, nil
	case iter.Seq2[document.D, error]:
		docs, err := result.Collect(r)
		return docs, true, err
	}
	return nil, false, nil
}

func normalizeDocs(docs []document.D) []any {
	out := make([]any, len(docs))
	for i, d := range docs {
		out[i] = normalize(d)
	}
	return out
}

// normalize rewrites decoded JSON numbers so integral values encode as
// integers.
func normalize(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = normalize(elem)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = normalize(elem)
		}
		return out
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return n
		}
		if f, err := val.Float64(); err == nil {
			return normalize(f)
		}
		return val.String()
	case float64:
		if val == math.Trunc(val) && math.Abs(val) < 1<<53 {
			return int64(val)
		}
	case int:
		return int64(val)
	}
	return v
}

// normalizeArgs prepares YAML arguments for the snapshot. Nulls are tagged
// since canonical JSON rejects them.
func normalizeArgs(args []any) []any {
	if len(args) == 0 {
		return nil
	}
	out := make([]any, len(args))
	for i, a := range args {
		if a == nil {
			out[i] = absent
			continue
		}
		out[i] = normalize(a)
	}
	return out
}
