package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/repoquery/internal/derrors"
)

func TestLeafConstructors(t *testing.T) {
	tests := []struct {
		name   string
		build  func() (Condition, error)
		op     Operator
		field  string
		values []any
	}{
		{"eq", func() (Condition, error) { return Eq("name", "Ada") }, OpEquals, "name", []any{"Ada"}},
		{"like", func() (Condition, error) { return Like("name", "A%") }, OpLike, "name", []any{"A%"}},
		{"gt", func() (Condition, error) { return Gt("age", 10) }, OpGreaterThan, "age", []any{10}},
		{"gte", func() (Condition, error) { return Gte("age", 33) }, OpGreaterOrEqual, "age", []any{33}},
		{"lt", func() (Condition, error) { return Lt("age", 5) }, OpLessThan, "age", []any{5}},
		{"lte", func() (Condition, error) { return Lte("age", 5) }, OpLessOrEqual, "age", []any{5}},
		{"between", func() (Condition, error) { return Between("age", 10, 15) }, OpBetween, "age", []any{10, 15}},
		{"in", func() (Condition, error) { return In("id", []string{"a", "b"}) }, OpIn, "id", []any{"a", "b"}},
		{"in empty", func() (Condition, error) { return In("id", []int{}) }, OpIn, "id", []any{}},
		{"nested path", func() (Condition, error) { return Eq("salary.currency", "EUR") }, OpEquals, "salary.currency", []any{"EUR"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := tt.build()
			require.NoError(t, err)
			assert.Equal(t, tt.op, c.Op())
			assert.Equal(t, tt.field, c.Field())
			assert.Equal(t, tt.values, c.Values())
			assert.Empty(t, c.Children())
		})
	}
}

func TestLeafConstructorsRejectMissingOperands(t *testing.T) {
	var nilPtr *int

	tests := []struct {
		name  string
		build func() (Condition, error)
	}{
		{"eq nil", func() (Condition, error) { return Eq("name", nil) }},
		{"eq typed nil", func() (Condition, error) { return Eq("name", nilPtr) }},
		{"empty field", func() (Condition, error) { return Eq("", "x") }},
		{"like non string", func() (Condition, error) { return Like("name", 3) }},
		{"between missing high", func() (Condition, error) { return Between("age", 1, nil) }},
		{"in nil", func() (Condition, error) { return In("id", nil) }},
		{"in scalar", func() (Condition, error) { return In("id", "a") }},
		{"in nil element", func() (Condition, error) { return In("id", []any{"a", nil}) }},
		{"gt nil", func() (Condition, error) { return Gt("age", nil) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.build()
			require.Error(t, err)
			assert.True(t, derrors.IsInvalidOperand(err), "got %v", err)
		})
	}
}

func TestAndFlattensSameKind(t *testing.T) {
	a := Must(Eq("name", "Ada"))
	b := Must(Gte("age", 33))
	c := Must(Eq("active", true))

	and := a.And(b).And(c)
	assert.Equal(t, OpAnd, and.Op())
	require.Len(t, and.Children(), 3)
	assert.True(t, and.Children()[0].Equal(a))
	assert.True(t, and.Children()[1].Equal(b))
	assert.True(t, and.Children()[2].Equal(c))
}

func TestOrAfterAndNests(t *testing.T) {
	a := Must(Eq("name", "Ada"))
	b := Must(Gte("age", 33))
	c := Must(Eq("active", true))

	got := a.And(b).Or(c)
	assert.Equal(t, "OR[AND[EQUALS(name, Ada), GREATER_OR_EQUAL(age, 33)], EQUALS(active, true)]", got.String())

	flat := a.Or(b).Or(c)
	assert.Equal(t, "OR[EQUALS(name, Ada), GREATER_OR_EQUAL(age, 33), EQUALS(active, true)]", flat.String())
}

func TestCombineDoesNotMutateReceiver(t *testing.T) {
	base := Must(Eq("name", "Ada")).And(Must(Eq("age", 1)))
	left := base.And(Must(Eq("x", 1)))
	right := base.And(Must(Eq("y", 2)))

	assert.Len(t, base.Children(), 2)
	assert.Equal(t, "x", left.Children()[2].Field())
	assert.Equal(t, "y", right.Children()[2].Field())
}

func TestNegateWraps(t *testing.T) {
	c := Must(Eq("name", "Ada"))

	once := c.Negate()
	assert.Equal(t, OpNot, once.Op())
	assert.True(t, once.Inner().Equal(c))

	twice := c.Negate().Negate()
	assert.Equal(t, OpNot, twice.Op())
	assert.True(t, twice.Inner().Equal(once), "double negation nests")
	assert.False(t, twice.Equal(c), "double negation never collapses")
	assert.Equal(t, "NOT(NOT(EQUALS(name, Ada)))", twice.String())
}

func TestAllAndAny(t *testing.T) {
	a := Must(Eq("a", 1))
	b := Must(Eq("b", 2))

	assert.True(t, All().IsZero())
	assert.True(t, All(a).Equal(a))
	assert.Equal(t, "AND[EQUALS(a, 1), EQUALS(b, 2)]", All(a, b).String())
	assert.Equal(t, "OR[EQUALS(a, 1), EQUALS(b, 2)]", Any(a, Condition{}, b).String())
}

func TestZeroConditionCombines(t *testing.T) {
	a := Must(Eq("a", 1))
	var zero Condition

	assert.True(t, zero.And(a).Equal(a))
	assert.True(t, a.Or(zero).Equal(a))
	assert.Equal(t, "<none>", zero.String())
	assert.Nil(t, zero.Value())
}

func TestEqualAndHash(t *testing.T) {
	build := func() Condition {
		return Must(Eq("name", "Ada")).And(Must(Between("age", 10, 15)))
	}
	a, b := build(), build()
	assert.True(t, a.Equal(b))

	ha, err := a.Hash()
	require.NoError(t, err)
	hb, err := b.Hash()
	require.NoError(t, err)
	assert.Equal(t, ha, hb)

	other := Must(Eq("name", "Ada")).And(Must(Between("age", 10, 16)))
	assert.False(t, a.Equal(other))
	ho, err := other.Hash()
	require.NoError(t, err)
	assert.NotEqual(t, ha, ho)
}

func TestAccessorsReturnCopies(t *testing.T) {
	c := Must(In("id", []string{"a", "b"}))
	vals := c.Values()
	vals[0] = "mutated"
	assert.Equal(t, "a", c.Values()[0])

	and := c.And(Must(Eq("x", 1)))
	children := and.Children()
	children[0] = Condition{}
	assert.False(t, and.Children()[0].IsZero())
}

func TestConditionToIR(t *testing.T) {
	c := Must(Eq("name", "Ada")).And(Must(Gte("age", 33)))
	v, err := c.ToIR()
	require.NoError(t, err)

	got, err := marshal(v)
	require.NoError(t, err)
	assert.Equal(t,
		`{"children":[{"field":"name","op":"EQUALS","values":["Ada"]},{"field":"age","op":"GREATER_OR_EQUAL","values":[33]}],"op":"AND"}`,
		got)
}
