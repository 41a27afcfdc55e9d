package derive

import (
	"fmt"

	"github.com/roach88/repoquery/internal/derrors"
	"github.com/roach88/repoquery/internal/method"
	"github.com/roach88/repoquery/internal/queryir"
	"github.com/roach88/repoquery/internal/result"
	"github.com/roach88/repoquery/internal/schema"
)

// Slot is one operand position of a criteria term.
type Slot struct {
	// Term indexes Plan.Terms.
	Term int

	// Operand is the position within the term: 0, or 1 for the upper
	// bound of Between.
	Operand int

	Field schema.FieldPath
}

// Plan is a compiled method signature.
type Plan struct {
	Signature  method.Signature
	Collection string
	Action     method.Action

	// Combinator joins Terms when there is more than one.
	Combinator queryir.Operator
	Terms      []method.Term

	// Sorts are the name's sorts followed by the static annotations.
	Sorts []queryir.Sort

	Slots []Slot

	// Bindings maps each parameter to its slot, or -1 for pageable and
	// sort parameters.
	Bindings []int

	Shape result.Shape

	// PageableParam and SortParam index Signature.Params, or are -1.
	PageableParam int
	SortParam     int
}

// entityNamer is implemented by providers that know their entity name.
type entityNamer interface {
	Name() string
}

// Compile derives the plan of sig against the schema.
// Failures are *derrors.DeriveError values attributed to the method.
func Compile(sig method.Signature, p schema.Provider) (*Plan, error) {
	plan, err := compile(sig, p)
	if err != nil {
		return nil, derrors.Attribute(err, sig.Name)
	}
	return plan, nil
}

func compile(sig method.Signature, p schema.Provider) (*Plan, error) {
	if err := sig.Validate(); err != nil {
		return nil, fmt.Errorf("derive: %w", err)
	}
	tree, err := method.Parse(sig.Name, p)
	if err != nil {
		return nil, err
	}

	if len(tree.Terms) == 0 {
		terms, err := matchParams(sig, p)
		if err != nil {
			return nil, err
		}
		tree.Terms = terms
		if len(terms) > 1 {
			tree.Combinator = queryir.OpAnd
		}
	}

	plan := &Plan{
		Signature:     sig,
		Collection:    p.CollectionName(),
		Action:        tree.Action,
		Combinator:    tree.Combinator,
		Terms:         tree.Terms,
		PageableParam: sig.IndexOf(method.KindPageable),
		SortParam:     sig.IndexOf(method.KindSort),
	}
	plan.Sorts = append(plan.Sorts, tree.Sorts...)
	plan.Sorts = append(plan.Sorts, sig.OrderBy...)

	for i, t := range tree.Terms {
		for op := range t.Keyword.Slots() {
			plan.Slots = append(plan.Slots, Slot{Term: i, Operand: op, Field: t.Field})
		}
	}

	if err := plan.bind(); err != nil {
		return nil, err
	}
	if err := plan.classify(p); err != nil {
		return nil, err
	}
	return plan, nil
}

// matchParams derives the criteria of a name without any from its
// parameters: when every value parameter names a field, each one becomes an
// EQUALS term on that field, in declaration order. Otherwise there are no
// terms and arity checking reports the extra parameters.
func matchParams(sig method.Signature, p schema.Provider) ([]method.Term, error) {
	var terms []method.Term
	for _, prm := range sig.Params {
		if prm.EffectiveKind() != method.KindValue {
			continue
		}
		if prm.Field == "" {
			return nil, nil
		}
		field, ok := p.ResolveField(prm.Field)
		if !ok {
			return nil, derrors.NewUnrecognizedToken(prm.Field,
				fmt.Sprintf("parameter %s names no field of %s", prm.Name, p.CollectionName()))
		}
		terms = append(terms, method.Term{Field: field, Keyword: method.KeywordEquals})
	}
	return terms, nil
}

// bind assigns value parameters to slots. Parameters naming a field take
// the first free slot on that path; the rest fill the remaining slots in
// order.
func (plan *Plan) bind() error {
	params := plan.Signature.Params
	plan.Bindings = make([]int, len(params))
	taken := make([]bool, len(plan.Slots))

	declared := plan.Signature.ValueParams()
	if declared != len(plan.Slots) {
		return derrors.NewArityMismatch(declared, len(plan.Slots))
	}

	for i, prm := range params {
		plan.Bindings[i] = -1
		if prm.EffectiveKind() != method.KindValue || prm.Field == "" {
			continue
		}
		slot := -1
		for s, sl := range plan.Slots {
			if !taken[s] && sl.Field.Path == prm.Field {
				slot = s
				break
			}
		}
		if slot < 0 {
			return derrors.NewUnrecognizedToken(prm.Field, fmt.Sprintf("parameter %s names a field with no free operand slot", prm.Name))
		}
		taken[slot] = true
		plan.Bindings[i] = slot
	}

	next := 0
	for i, prm := range params {
		if prm.EffectiveKind() != method.KindValue || prm.Field != "" {
			continue
		}
		for taken[next] {
			next++
		}
		taken[next] = true
		plan.Bindings[i] = next
	}
	return nil
}

// classify parses the declared return and checks it against the action.
func (plan *Plan) classify(p schema.Provider) error {
	declared := plan.Signature.Returns
	shape, err := result.ParseShape(declared)
	if err != nil {
		return err
	}

	switch plan.Action {
	case method.ActionSelect:
		if !shape.Entity() {
			return derrors.NewUnsupportedReturnType(declared, "select methods return entities")
		}
		if n, ok := p.(entityNamer); ok && shape.Element != n.Name() {
			return derrors.NewUnsupportedReturnType(declared, fmt.Sprintf("element %s is not entity %s", shape.Element, n.Name()))
		}
		if shape.Kind == result.KindPage && plan.PageableParam < 0 {
			return derrors.NewUnsupportedReturnType(declared, "page requires a pageable parameter")
		}
	case method.ActionCount:
		if shape.Kind != result.KindCount {
			return derrors.NewUnsupportedReturnType(declared, "count methods return count")
		}
	case method.ActionExists:
		if shape.Kind != result.KindExists {
			return derrors.NewUnsupportedReturnType(declared, "exists methods return exists")
		}
	case method.ActionDelete:
		if shape.Kind != result.KindVoid {
			return derrors.NewUnsupportedReturnType(declared, "delete methods return void")
		}
	}
	if plan.Action != method.ActionSelect && (plan.PageableParam >= 0 || plan.SortParam >= 0) {
		return derrors.NewUnsupportedReturnType(declared, fmt.Sprintf("%s methods take no pageable or sort parameter", plan.Action))
	}
	plan.Shape = shape
	return nil
}
