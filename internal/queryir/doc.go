// Package queryir is the storage-agnostic query representation: the
// condition algebra, sort specifications, the immutable Query and
// DeleteQuery values, and a fluent builder for both.
//
// Every value in this package is immutable once constructed. Fields are
// unexported and accessors hand out copies, so a Query can be shared
// between goroutines and passed to any execution template as is.
//
// # Conditions
//
// A Condition is a tagged variant:
//
//	leaf:        EQUALS | LIKE | GREATER_THAN | GREATER_OR_EQUAL |
//	             LESS_THAN | LESS_OR_EQUAL | BETWEEN | IN
//	combinator:  AND(children...) | OR(children...)
//	negation:    NOT(inner)
//
// Leaf constructors reject missing operands with an INVALID_OPERAND
// derivation error. And/Or append to the receiver when it already is a node
// of the same kind, so a chain a.And(b).And(c) yields AND[a, b, c] rather
// than AND[AND[a, b], c]. Negate always wraps: c.Negate().Negate() is
// NOT(NOT(c)), never c.
//
// # Queries
//
// Query carries the target name, projected fields, optional root condition,
// sorts and optional limit/skip. DeleteQuery carries only the target name
// and the optional root condition. A missing condition matches every record.
//
// # Builder
//
//	q, err := queryir.Select().From("Person").
//		Where("name").Eq("Ada").
//		And("age").Gte(33).
//		OrderBy("name").Asc().
//		Limit(10).
//		Build()
//
// Errors recorded while chaining (nil operands, negative bounds) surface
// from Build.
package queryir
