package derive

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/roach88/repoquery/internal/convert"
	"github.com/roach88/repoquery/internal/derrors"
	"github.com/roach88/repoquery/internal/method"
	"github.com/roach88/repoquery/internal/queryir"
	"github.com/roach88/repoquery/internal/schema"
)

// Bound is a plan realized with one call's arguments.
type Bound struct {
	Action method.Action

	// Query is set for select, count and exists plans.
	Query queryir.Query

	// Delete is set for delete plans.
	Delete queryir.DeleteQuery

	// Pageable is the call's pagination cursor, nil when absent.
	Pageable *queryir.Pageable
}

// Bind coerces args into the plan's slots and builds the query. args must
// hold one value per declared parameter. A nil converter means
// convert.Default.
func Bind(plan *Plan, args []any, conv convert.Converter) (Bound, error) {
	b, err := bind(plan, args, conv)
	if err != nil {
		return Bound{}, derrors.Attribute(err, plan.Signature.Name)
	}
	return b, nil
}

func bind(plan *Plan, args []any, conv convert.Converter) (Bound, error) {
	if conv == nil {
		conv = convert.Default
	}
	params := plan.Signature.Params
	if len(args) != len(params) {
		return Bound{}, derrors.NewArityMismatch(len(args), len(params))
	}

	operands := make([][]any, len(plan.Terms))
	for i, t := range plan.Terms {
		operands[i] = make([]any, t.Keyword.Slots())
	}
	for i, slot := range plan.Bindings {
		if slot < 0 {
			continue
		}
		s := plan.Slots[slot]
		v, err := coerceSlot(conv, plan.Terms[s.Term].Keyword, s.Field, args[i])
		if err != nil {
			return Bound{}, err
		}
		operands[s.Term][s.Operand] = v
	}

	terms := make([]queryir.Condition, len(plan.Terms))
	for i, t := range plan.Terms {
		c, err := leaf(t, operands[i])
		if err != nil {
			return Bound{}, err
		}
		for range t.Negations {
			c = c.Negate()
		}
		terms[i] = c
	}
	var root queryir.Condition
	if plan.Combinator == queryir.OpOr {
		root = queryir.Any(terms...)
	} else {
		root = queryir.All(terms...)
	}

	if plan.Action == method.ActionDelete {
		d, err := queryir.NewDeleteQuery(plan.Collection, root)
		if err != nil {
			return Bound{}, err
		}
		return Bound{Action: plan.Action, Delete: d}, nil
	}

	out := Bound{Action: plan.Action}
	sorts := plan.Sorts
	if plan.SortParam >= 0 {
		dynamic, err := sortsArg(args[plan.SortParam])
		if err != nil {
			return Bound{}, err
		}
		sorts = append(sorts[:len(sorts):len(sorts)], dynamic...)
	}
	if plan.PageableParam >= 0 {
		p, err := pageableArg(args[plan.PageableParam])
		if err != nil {
			return Bound{}, err
		}
		out.Pageable = p
	}

	q, err := queryir.NewQuery(plan.Collection, queryir.WithCondition(root), queryir.WithSorts(sorts...))
	if err != nil {
		return Bound{}, err
	}
	out.Query = q
	return out, nil
}

func coerceSlot(conv convert.Converter, kw method.Keyword, field schema.FieldPath, raw any) (any, error) {
	if kw != method.KeywordIn || raw == nil {
		return coerceValue(conv, field, raw)
	}
	rv := reflect.ValueOf(raw)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, derrors.NewInvalidOperand(field.Path, fmt.Sprintf("in requires a collection argument, got %T", raw))
	}
	out := make([]any, rv.Len())
	for i := range rv.Len() {
		v, err := coerceValue(conv, field, rv.Index(i).Interface())
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func coerceValue(conv convert.Converter, field schema.FieldPath, raw any) (any, error) {
	v, err := conv.Coerce(raw, field.Type)
	if err == nil {
		return v, nil
	}
	var de *derrors.DeriveError
	if errors.As(err, &de) && de.Code == derrors.CodeCoercion {
		c := *de
		if c.Token == "" {
			c.Token = field.Path
		}
		return nil, &c
	}
	return nil, derrors.NewCoercion(field.Path, raw, string(field.Type), err)
}

func leaf(t method.Term, ops []any) (queryir.Condition, error) {
	path := t.Field.Path
	switch t.Keyword {
	case method.KeywordTrue:
		return queryir.Eq(path, true)
	case method.KeywordFalse:
		return queryir.Eq(path, false)
	case method.KeywordLike:
		return queryir.Like(path, ops[0])
	case method.KeywordGreaterThan:
		return queryir.Gt(path, ops[0])
	case method.KeywordGreaterThanEqual:
		return queryir.Gte(path, ops[0])
	case method.KeywordLessThan:
		return queryir.Lt(path, ops[0])
	case method.KeywordLessThanEqual:
		return queryir.Lte(path, ops[0])
	case method.KeywordBetween:
		return queryir.Between(path, ops[0], ops[1])
	case method.KeywordIn:
		return queryir.In(path, ops[0])
	}
	return queryir.Eq(path, ops[0])
}

func pageableArg(raw any) (*queryir.Pageable, error) {
	switch p := raw.(type) {
	case nil:
		return nil, nil
	case queryir.Pageable:
		return &p, nil
	case *queryir.Pageable:
		return p, nil
	}
	return nil, derrors.NewCoercion("", raw, "pageable", nil)
}

func sortsArg(raw any) ([]queryir.Sort, error) {
	switch s := raw.(type) {
	case nil:
		return nil, nil
	case queryir.Sort:
		return []queryir.Sort{s}, nil
	case []queryir.Sort:
		return s, nil
	}
	return nil, derrors.NewCoercion("", raw, "sort", nil)
}
