package queryir

// conditionChain accumulates conditions added through a builder. The first
// error wins and later additions are ignored.
type conditionChain struct {
	cond Condition
	err  error
}

func (cc *conditionChain) add(combine Operator, negations int, c Condition, err error) {
	if cc.err != nil {
		return
	}
	if err != nil {
		cc.err = err
		return
	}
	for range negations {
		c = c.Negate()
	}
	if combine == OpOr {
		cc.cond = cc.cond.Or(c)
	} else {
		cc.cond = cc.cond.And(c)
	}
}

// Where is the operator step of a builder: it names a field and waits for
// the comparison. B is the builder the step returns to.
type Where[B any] struct {
	owner     B
	chain     *conditionChain
	field     string
	combine   Operator
	negations int
}

// Not wraps the condition completed by the next operator call in a NOT.
// Each call adds one wrapper.
func (w *Where[B]) Not() *Where[B] {
	w.negations++
	return w
}

func (w *Where[B]) done(c Condition, err error) B {
	w.chain.add(w.combine, w.negations, c, err)
	return w.owner
}

// Eq completes the step with EQUALS.
func (w *Where[B]) Eq(v any) B { return w.done(Eq(w.field, v)) }

// Like completes the step with LIKE.
func (w *Where[B]) Like(pattern any) B { return w.done(Like(w.field, pattern)) }

// Gt completes the step with GREATER_THAN.
func (w *Where[B]) Gt(v any) B { return w.done(Gt(w.field, v)) }

// Gte completes the step with GREATER_OR_EQUAL.
func (w *Where[B]) Gte(v any) B { return w.done(Gte(w.field, v)) }

// Lt completes the step with LESS_THAN.
func (w *Where[B]) Lt(v any) B { return w.done(Lt(w.field, v)) }

// Lte completes the step with LESS_OR_EQUAL.
func (w *Where[B]) Lte(v any) B { return w.done(Lte(w.field, v)) }

// Between completes the step with BETWEEN.
func (w *Where[B]) Between(low, high any) B { return w.done(Between(w.field, low, high)) }

// In completes the step with IN.
func (w *Where[B]) In(values any) B { return w.done(In(w.field, values)) }

// SelectBuilder builds a Query fluently.
type SelectBuilder struct {
	fields []string
	from   string
	chain  conditionChain
	sorts  []Sort
	opts   []QueryOption
}

// Select starts a query projecting fields; no fields means all.
func Select(fields ...string) *SelectBuilder {
	return &SelectBuilder{fields: fields}
}

// From sets the target name.
func (b *SelectBuilder) From(name string) *SelectBuilder {
	b.from = name
	return b
}

// Where starts the condition with field.
func (b *SelectBuilder) Where(field string) *Where[*SelectBuilder] {
	return &Where[*SelectBuilder]{owner: b, chain: &b.chain, field: field, combine: OpAnd}
}

// And continues the condition with AND.
func (b *SelectBuilder) And(field string) *Where[*SelectBuilder] {
	return &Where[*SelectBuilder]{owner: b, chain: &b.chain, field: field, combine: OpAnd}
}

// Or continues the condition with OR.
func (b *SelectBuilder) Or(field string) *Where[*SelectBuilder] {
	return &Where[*SelectBuilder]{owner: b, chain: &b.chain, field: field, combine: OpOr}
}

// OrderBy adds a sort on field; pick the direction with Asc or Desc.
func (b *SelectBuilder) OrderBy(field string) *OrderStep {
	return &OrderStep{b: b, field: field}
}

// Limit bounds the number of results.
func (b *SelectBuilder) Limit(n int64) *SelectBuilder {
	b.opts = append(b.opts, WithLimit(n))
	return b
}

// Skip skips the first n results.
func (b *SelectBuilder) Skip(n int64) *SelectBuilder {
	b.opts = append(b.opts, WithSkip(n))
	return b
}

// Build validates and returns the Query.
func (b *SelectBuilder) Build() (Query, error) {
	if b.chain.err != nil {
		return Query{}, b.chain.err
	}
	opts := []QueryOption{
		WithFields(b.fields...),
		WithCondition(b.chain.cond),
		WithSorts(b.sorts...),
	}
	return NewQuery(b.from, append(opts, b.opts...)...)
}

// OrderStep picks the direction of a sort.
type OrderStep struct {
	b     *SelectBuilder
	field string
}

// Asc sorts ascending.
func (o *OrderStep) Asc() *SelectBuilder {
	o.b.sorts = append(o.b.sorts, Asc(o.field))
	return o.b
}

// Desc sorts descending.
func (o *OrderStep) Desc() *SelectBuilder {
	o.b.sorts = append(o.b.sorts, Desc(o.field))
	return o.b
}

// DeleteBuilder builds a DeleteQuery fluently.
type DeleteBuilder struct {
	from  string
	chain conditionChain
}

// Delete starts a delete query.
func Delete() *DeleteBuilder {
	return &DeleteBuilder{}
}

// From sets the target name.
func (b *DeleteBuilder) From(name string) *DeleteBuilder {
	b.from = name
	return b
}

// Where starts the condition with field.
func (b *DeleteBuilder) Where(field string) *Where[*DeleteBuilder] {
	return &Where[*DeleteBuilder]{owner: b, chain: &b.chain, field: field, combine: OpAnd}
}

// And continues the condition with AND.
func (b *DeleteBuilder) And(field string) *Where[*DeleteBuilder] {
	return &Where[*DeleteBuilder]{owner: b, chain: &b.chain, field: field, combine: OpAnd}
}

// Or continues the condition with OR.
func (b *DeleteBuilder) Or(field string) *Where[*DeleteBuilder] {
	return &Where[*DeleteBuilder]{owner: b, chain: &b.chain, field: field, combine: OpOr}
}

// Build validates and returns the DeleteQuery.
func (b *DeleteBuilder) Build() (DeleteQuery, error) {
	if b.chain.err != nil {
		return DeleteQuery{}, b.chain.err
	}
	return NewDeleteQuery(b.from, b.chain.cond)
}
