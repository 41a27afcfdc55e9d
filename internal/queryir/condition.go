package queryir

import (
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/roach88/repoquery/internal/derrors"
	"github.com/roach88/repoquery/internal/ir"
)

// Operator tags a Condition variant.
type Operator string

const (
	OpEquals         Operator = "EQUALS"
	OpLike           Operator = "LIKE"
	OpGreaterThan    Operator = "GREATER_THAN"
	OpGreaterOrEqual Operator = "GREATER_OR_EQUAL"
	OpLessThan       Operator = "LESS_THAN"
	OpLessOrEqual    Operator = "LESS_OR_EQUAL"
	OpBetween        Operator = "BETWEEN"
	OpIn             Operator = "IN"
	OpAnd            Operator = "AND"
	OpOr             Operator = "OR"
	OpNot            Operator = "NOT"
)

// IsLeaf reports whether op compares a field against operands.
func (op Operator) IsLeaf() bool {
	switch op {
	case OpAnd, OpOr, OpNot, "":
		return false
	}
	return true
}

// Condition is an immutable predicate or boolean combination of predicates.
// The zero value is "no condition".
type Condition struct {
	op       Operator
	field    string
	values   []any
	children []Condition
}

// Eq builds EQUALS(field, value).
func Eq(field string, value any) (Condition, error) {
	return leaf(OpEquals, field, value)
}

// Like builds LIKE(field, pattern). The pattern must be a string.
func Like(field string, pattern any) (Condition, error) {
	if pattern != nil {
		if _, ok := pattern.(string); !ok {
			return Condition{}, derrors.NewInvalidOperand(field, fmt.Sprintf("like pattern must be a string, got %T", pattern))
		}
	}
	return leaf(OpLike, field, pattern)
}

// Gt builds GREATER_THAN(field, value).
func Gt(field string, value any) (Condition, error) {
	return leaf(OpGreaterThan, field, value)
}

// Gte builds GREATER_OR_EQUAL(field, value).
func Gte(field string, value any) (Condition, error) {
	return leaf(OpGreaterOrEqual, field, value)
}

// Lt builds LESS_THAN(field, value).
func Lt(field string, value any) (Condition, error) {
	return leaf(OpLessThan, field, value)
}

// Lte builds LESS_OR_EQUAL(field, value).
func Lte(field string, value any) (Condition, error) {
	return leaf(OpLessOrEqual, field, value)
}

// Between builds BETWEEN(field, [low, high]). Both bounds are inclusive.
func Between(field string, low, high any) (Condition, error) {
	return leaf(OpBetween, field, low, high)
}

// In builds IN(field, values). values must be a slice or array; an empty
// collection is valid and matches nothing.
func In(field string, values any) (Condition, error) {
	if isNil(values) {
		return Condition{}, derrors.NewInvalidOperand(field, "in requires a collection operand")
	}
	rv := reflect.ValueOf(values)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return Condition{}, derrors.NewInvalidOperand(field, fmt.Sprintf("in requires a collection operand, got %T", values))
	}
	elems := make([]any, rv.Len())
	for i := range rv.Len() {
		elems[i] = rv.Index(i).Interface()
	}
	return leaf(OpIn, field, elems...)
}

// Must panics if err is non-nil. Use only with operands known to be valid.
func Must(c Condition, err error) Condition {
	if err != nil {
		panic(err)
	}
	return c
}

func leaf(op Operator, field string, values ...any) (Condition, error) {
	if field == "" {
		return Condition{}, derrors.NewInvalidOperand(field, fmt.Sprintf("%s requires a field path", op))
	}
	for i, v := range values {
		if isNil(v) {
			return Condition{}, derrors.NewInvalidOperand(field, fmt.Sprintf("%s operand %d is missing", op, i))
		}
	}
	return Condition{op: op, field: field, values: slices.Clone(values)}, nil
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

// All builds a flat AND node holding conds in order. No conditions yields
// the zero Condition and a single condition is returned unchanged.
func All(conds ...Condition) Condition {
	return group(OpAnd, conds)
}

// Any builds a flat OR node holding conds in order. No conditions yields
// the zero Condition and a single condition is returned unchanged.
func Any(conds ...Condition) Condition {
	return group(OpOr, conds)
}

func group(op Operator, conds []Condition) Condition {
	conds = slices.DeleteFunc(slices.Clone(conds), Condition.IsZero)
	switch len(conds) {
	case 0:
		return Condition{}
	case 1:
		return conds[0]
	}
	return Condition{op: op, children: conds}
}

// And combines c with other. When c is already an AND node, other is
// appended to its children.
func (c Condition) And(other Condition) Condition {
	return c.combine(OpAnd, other)
}

// Or combines c with other. When c is already an OR node, other is
// appended to its children.
func (c Condition) Or(other Condition) Condition {
	return c.combine(OpOr, other)
}

func (c Condition) combine(op Operator, other Condition) Condition {
	switch {
	case c.IsZero():
		return other
	case other.IsZero():
		return c
	case c.op == op:
		children := make([]Condition, 0, len(c.children)+1)
		children = append(children, c.children...)
		return Condition{op: op, children: append(children, other)}
	}
	return Condition{op: op, children: []Condition{c, other}}
}

// Negate wraps c in NOT. It never unwraps an existing negation.
func (c Condition) Negate() Condition {
	return Condition{op: OpNot, children: []Condition{c}}
}

// IsZero reports whether c is the empty condition.
func (c Condition) IsZero() bool {
	return c.op == ""
}

// Op returns the variant tag.
func (c Condition) Op() Operator { return c.op }

// Field returns the field path of a leaf condition, or "".
func (c Condition) Field() string { return c.field }

// Value returns the first operand of a leaf condition, or nil.
func (c Condition) Value() any {
	if len(c.values) == 0 {
		return nil
	}
	return c.values[0]
}

// Values returns a copy of the leaf operands.
func (c Condition) Values() []any { return slices.Clone(c.values) }

// Children returns a copy of the nested conditions of AND, OR and NOT.
func (c Condition) Children() []Condition { return slices.Clone(c.children) }

// Inner returns the negated condition of a NOT node, or the zero Condition.
func (c Condition) Inner() Condition {
	if c.op != OpNot || len(c.children) == 0 {
		return Condition{}
	}
	return c.children[0]
}

// Equal reports structural equality.
func (c Condition) Equal(o Condition) bool {
	if c.op != o.op || c.field != o.field ||
		len(c.values) != len(o.values) || len(c.children) != len(o.children) {
		return false
	}
	for i := range c.values {
		if !reflect.DeepEqual(c.values[i], o.values[i]) {
			return false
		}
	}
	for i := range c.children {
		if !c.children[i].Equal(o.children[i]) {
			return false
		}
	}
	return true
}

// Hash returns the content hash of the condition's canonical form.
// Structurally equal conditions hash identically.
func (c Condition) Hash() (string, error) {
	v, err := c.ToIR()
	if err != nil {
		return "", err
	}
	return ir.ConditionHash(v)
}

// ToIR returns the canonical value form of the condition.
//
//	{"op":"EQUALS","field":"name","values":["Ada"]}
//	{"op":"AND","children":[...]}
func (c Condition) ToIR() (ir.IRValue, error) {
	if c.IsZero() {
		return ir.IRObject{}, nil
	}
	obj := ir.IRObject{"op": ir.IRString(c.op)}
	if c.op.IsLeaf() {
		obj["field"] = ir.IRString(c.field)
		values := make(ir.IRArray, len(c.values))
		for i, v := range c.values {
			iv, err := ir.FromGo(v)
			if err != nil {
				return nil, fmt.Errorf("condition %s(%s) operand %d: %w", c.op, c.field, i, err)
			}
			values[i] = iv
		}
		obj["values"] = values
		return obj, nil
	}
	children := make(ir.IRArray, len(c.children))
	for i, child := range c.children {
		cv, err := child.ToIR()
		if err != nil {
			return nil, err
		}
		children[i] = cv
	}
	obj["children"] = children
	return obj, nil
}

// String renders the condition for logs and test failures.
func (c Condition) String() string {
	if c.IsZero() {
		return "<none>"
	}
	if c.op.IsLeaf() {
		parts := make([]string, len(c.values))
		for i, v := range c.values {
			parts[i] = fmt.Sprintf("%v", v)
		}
		switch c.op {
		case OpBetween, OpIn:
			return fmt.Sprintf("%s(%s, [%s])", c.op, c.field, strings.Join(parts, ", "))
		}
		return fmt.Sprintf("%s(%s, %s)", c.op, c.field, strings.Join(parts, ", "))
	}
	parts := make([]string, len(c.children))
	for i, child := range c.children {
		parts[i] = child.String()
	}
	if c.op == OpNot {
		return fmt.Sprintf("NOT(%s)", strings.Join(parts, ", "))
	}
	return fmt.Sprintf("%s[%s]", c.op, strings.Join(parts, ", "))
}
