package harness

import (
	"fmt"
	"slices"

	"github.com/roach88/repoquery/internal/document"
	"github.com/roach88/repoquery/internal/result"
)

// checkExpect compares a step outcome with its expect clause and returns
// the mismatches.
func (h *Harness) checkExpect(step FlowStep, sr StepResult, out any) []string {
	failed := sr.Error != ""
	exp := step.Expect
	if exp == nil {
		if failed {
			return []string{"unexpected error: " + sr.Error}
		}
		return nil
	}

	if exp.Error != "" {
		switch {
		case !failed:
			return []string{fmt.Sprintf("expected error %s, invocation succeeded", exp.Error)}
		case sr.Code != exp.Error:
			return []string{fmt.Sprintf("expected error %s, got %q", exp.Error, sr.Error)}
		}
		return nil
	}
	if failed {
		return []string{"unexpected error: " + sr.Error}
	}

	var msgs []string
	if exp.Size != nil || len(exp.IDs) > 0 {
		docs, ok, err := entities(out)
		switch {
		case err != nil:
			msgs = append(msgs, fmt.Sprintf("reading result: %v", err))
		case !ok:
			msgs = append(msgs, fmt.Sprintf("result %T holds no entities", out))
		default:
			if exp.Size != nil && len(docs) != *exp.Size {
				msgs = append(msgs, fmt.Sprintf("expected %d entities, got %d", *exp.Size, len(docs)))
			}
			if len(exp.IDs) > 0 {
				if ids := h.idsOf(docs); !slices.Equal(ids, exp.IDs) {
					msgs = append(msgs, fmt.Sprintf("expected ids %v, got %v", exp.IDs, ids))
				}
			}
		}
	}
	if exp.Value != nil {
		switch out.(type) {
		case int64, bool:
			if !document.Equal(out, exp.Value) {
				msgs = append(msgs, fmt.Sprintf("expected value %v, got %v", exp.Value, out))
			}
		default:
			msgs = append(msgs, fmt.Sprintf("expected value %v, result is %T", exp.Value, out))
		}
	}
	if exp.Total != nil {
		page, ok := out.(result.Page[document.D])
		if !ok {
			msgs = append(msgs, fmt.Sprintf("expected a page total, result is %T", out))
		} else if total, known := page.Total(); !known || total != *exp.Total {
			msgs = append(msgs, fmt.Sprintf("expected total %d, got %d", *exp.Total, total))
		}
	}
	return msgs
}

func (h *Harness) idsOf(docs []document.D) []string {
	path := h.entity.IDField().Path
	ids := make([]string, len(docs))
	for i, d := range docs {
		v, _ := document.Lookup(d, path)
		ids[i] = fmt.Sprint(v)
	}
	return ids
}
