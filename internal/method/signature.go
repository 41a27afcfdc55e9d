package method

import (
	"fmt"

	"github.com/roach88/repoquery/internal/ir"
	"github.com/roach88/repoquery/internal/queryir"
)

// ParamKind classifies a declared parameter.
type ParamKind string

const (
	// KindValue binds to a condition operand slot.
	KindValue ParamKind = "value"

	// KindPageable is a pagination cursor. It never binds to a slot.
	KindPageable ParamKind = "pageable"

	// KindSort carries dynamic sorts appended after every static sort.
	KindSort ParamKind = "sort"
)

// Param declares one method parameter.
type Param struct {
	// Name identifies the parameter in errors and logs.
	Name string `yaml:"name"`

	// Kind defaults to KindValue.
	Kind ParamKind `yaml:"kind,omitempty"`

	// Field binds the parameter to the first free slot on this field path
	// instead of the next positional slot.
	Field string `yaml:"field,omitempty"`
}

// EffectiveKind returns Kind, defaulting to KindValue.
func (p Param) EffectiveKind() ParamKind {
	if p.Kind == "" {
		return KindValue
	}
	return p.Kind
}

// Signature is a declared repository method.
type Signature struct {
	// Name is the method name, parsed by Parse.
	Name string `yaml:"name"`

	// Params lists the parameters in call order.
	Params []Param `yaml:"params,omitempty"`

	// Returns is the declared return shape, e.g. "List[Person]".
	Returns string `yaml:"returns"`

	// OrderBy holds static sort annotations, applied after the sorts the
	// name declares.
	OrderBy []queryir.Sort `yaml:"order_by,omitempty"`
}

// Validate checks the parameter declarations. It does not parse the name.
func (s Signature) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("method name is required")
	}
	var pageables, sorts int
	for i, p := range s.Params {
		switch p.EffectiveKind() {
		case KindValue:
		case KindPageable:
			pageables++
			if p.Field != "" {
				return fmt.Errorf("method %s: pageable parameter %d cannot bind a field", s.Name, i)
			}
		case KindSort:
			sorts++
			if p.Field != "" {
				return fmt.Errorf("method %s: sort parameter %d cannot bind a field", s.Name, i)
			}
		default:
			return fmt.Errorf("method %s: parameter %d has unknown kind %q", s.Name, i, p.Kind)
		}
	}
	if pageables > 1 {
		return fmt.Errorf("method %s: at most one pageable parameter is allowed", s.Name)
	}
	if sorts > 1 {
		return fmt.Errorf("method %s: at most one sort parameter is allowed", s.Name)
	}
	for _, o := range s.OrderBy {
		if o.Field == "" {
			return fmt.Errorf("method %s: order_by entry has no field", s.Name)
		}
		if o.Direction != queryir.Ascending && o.Direction != queryir.Descending {
			return fmt.Errorf("method %s: order_by %s has unknown direction %q", s.Name, o.Field, o.Direction)
		}
	}
	return nil
}

// ValueParams returns the number of KindValue parameters.
func (s Signature) ValueParams() int {
	n := 0
	for _, p := range s.Params {
		if p.EffectiveKind() == KindValue {
			n++
		}
	}
	return n
}

// IndexOf returns the position of the first parameter of kind k, or -1.
func (s Signature) IndexOf(k ParamKind) int {
	for i, p := range s.Params {
		if p.EffectiveKind() == k {
			return i
		}
	}
	return -1
}

// ToIR returns the canonical form of the signature. Two signatures with the
// same canonical form compile to the same plan.
func (s Signature) ToIR() ir.IRObject {
	params := make(ir.IRArray, len(s.Params))
	for i, p := range s.Params {
		obj := ir.IRObject{
			"name": ir.IRString(p.Name),
			"kind": ir.IRString(p.EffectiveKind()),
		}
		if p.Field != "" {
			obj["field"] = ir.IRString(p.Field)
		}
		params[i] = obj
	}
	orderBy := make(ir.IRArray, len(s.OrderBy))
	for i, o := range s.OrderBy {
		orderBy[i] = ir.IRObject{
			"field":     ir.IRString(o.Field),
			"direction": ir.IRString(o.Direction),
		}
	}
	return ir.IRObject{
		"name":     ir.IRString(s.Name),
		"params":   params,
		"returns":  ir.IRString(s.Returns),
		"order_by": orderBy,
	}
}
