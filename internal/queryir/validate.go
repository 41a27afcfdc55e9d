package queryir

import (
	"fmt"

	"github.com/roach88/repoquery/internal/schema"
)

// ValidationResult lists the schema problems found in a query.
type ValidationResult struct {
	// Valid is true when every path resolves and the target matches.
	Valid bool

	// Problems describes each unresolved path or mismatch.
	Problems []string
}

// Validate checks a builder-made query against an entity schema: the target
// must be the entity's collection and every condition, projection and sort
// path must resolve. Derived queries are resolved while matching and need
// no second pass.
//
// Validate is a pure function with no side effects.
func Validate(q Query, p schema.Provider) ValidationResult {
	v := &validator{provider: p, problems: []string{}}
	v.checkTarget(q.Name())
	for _, f := range q.Fields() {
		v.checkPath("projection", f)
	}
	if c, ok := q.Condition(); ok {
		v.checkCondition(c)
	}
	for _, s := range q.Sorts() {
		v.checkPath("sort", s.Field)
	}
	return v.result()
}

// ValidateDelete is Validate for delete queries.
func ValidateDelete(d DeleteQuery, p schema.Provider) ValidationResult {
	v := &validator{provider: p, problems: []string{}}
	v.checkTarget(d.Name())
	if c, ok := d.Condition(); ok {
		v.checkCondition(c)
	}
	return v.result()
}

type validator struct {
	provider schema.Provider
	problems []string
}

func (v *validator) addProblem(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) result() ValidationResult {
	return ValidationResult{Valid: len(v.problems) == 0, Problems: v.problems}
}

func (v *validator) checkTarget(name string) {
	if want := v.provider.CollectionName(); name != want {
		v.addProblem("target %q does not match collection %q", name, want)
	}
}

func (v *validator) checkPath(where, path string) {
	if _, ok := v.provider.ResolveField(path); !ok {
		v.addProblem("%s field %q is not declared", where, path)
	}
}

func (v *validator) checkCondition(c Condition) {
	if c.Op().IsLeaf() {
		v.checkPath("condition", c.Field())
		return
	}
	for _, child := range c.Children() {
		v.checkCondition(child)
	}
}
