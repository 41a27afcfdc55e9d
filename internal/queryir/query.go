package queryir

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/roach88/repoquery/internal/derrors"
	"github.com/roach88/repoquery/internal/ir"
)

// Direction is a sort direction.
type Direction string

const (
	Ascending  Direction = "ASC"
	Descending Direction = "DESC"
)

// Sort orders results by one field path.
type Sort struct {
	Field     string
	Direction Direction
}

// Asc sorts field ascending.
func Asc(field string) Sort { return Sort{Field: field, Direction: Ascending} }

// Desc sorts field descending.
func Desc(field string) Sort { return Sort{Field: field, Direction: Descending} }

func (s Sort) String() string { return s.Field + " " + string(s.Direction) }

func (s Sort) toIR() ir.IRObject {
	return ir.IRObject{"field": ir.IRString(s.Field), "direction": ir.IRString(s.Direction)}
}

// Pageable is a pagination cursor: a 1-based page number, a page size and
// sorts applied on top of the query's own.
type Pageable struct {
	page  int64
	size  int64
	sorts []Sort
}

// PageOf creates a cursor. page starts at 1 and size must be positive. The
// records before the page must fit in an int64.
func PageOf(page, size int64, sorts ...Sort) (Pageable, error) {
	if page < 1 {
		return Pageable{}, derrors.NewInvalidOperand("page", fmt.Sprintf("page must be >= 1, got %d", page))
	}
	if size < 1 {
		return Pageable{}, derrors.NewInvalidOperand("size", fmt.Sprintf("size must be >= 1, got %d", size))
	}
	if page-1 > math.MaxInt64/size {
		return Pageable{}, derrors.NewInvalidOperand("page",
			fmt.Sprintf("page %d of size %d starts beyond the largest offset", page, size))
	}
	return Pageable{page: page, size: size, sorts: slices.Clone(sorts)}, nil
}

// Page returns the 1-based page number.
func (p Pageable) Page() int64 { return p.page }

// Size returns the page size.
func (p Pageable) Size() int64 { return p.size }

// Sorts returns a copy of the cursor sorts.
func (p Pageable) Sorts() []Sort { return slices.Clone(p.sorts) }

// Skip returns the number of records before this page. It saturates at
// math.MaxInt64 and is never negative.
func (p Pageable) Skip() int64 {
	if p.page <= 1 || p.size <= 0 {
		return 0
	}
	if p.page-1 > math.MaxInt64/p.size {
		return math.MaxInt64
	}
	return (p.page - 1) * p.size
}

// Next returns the cursor for the following page. The page number stops
// at math.MaxInt64.
func (p Pageable) Next() Pageable {
	next := p.page
	if next < math.MaxInt64 {
		next++
	}
	return Pageable{page: next, size: p.size, sorts: p.sorts}
}

// Query is an immutable read descriptor.
type Query struct {
	name     string
	fields   []string
	cond     Condition
	sorts    []Sort
	limit    int64
	skip     int64
	hasLimit bool
	hasSkip  bool
}

// QueryOption configures NewQuery.
type QueryOption func(*Query)

// WithFields projects the given fields. Duplicates are dropped; order is kept.
func WithFields(fields ...string) QueryOption {
	return func(q *Query) {
		for _, f := range fields {
			if !slices.Contains(q.fields, f) {
				q.fields = append(q.fields, f)
			}
		}
	}
}

// WithCondition sets the root condition.
func WithCondition(c Condition) QueryOption {
	return func(q *Query) { q.cond = c }
}

// WithSorts appends sorts.
func WithSorts(sorts ...Sort) QueryOption {
	return func(q *Query) { q.sorts = append(q.sorts, sorts...) }
}

// WithLimit bounds the number of results.
func WithLimit(n int64) QueryOption {
	return func(q *Query) { q.limit, q.hasLimit = n, true }
}

// WithSkip skips the first n results.
func WithSkip(n int64) QueryOption {
	return func(q *Query) { q.skip, q.hasSkip = n, true }
}

// NewQuery builds a Query targeting name.
func NewQuery(name string, opts ...QueryOption) (Query, error) {
	q := Query{name: name}
	for _, opt := range opts {
		opt(&q)
	}
	if err := q.check(); err != nil {
		return Query{}, err
	}
	return q, nil
}

func (q Query) check() error {
	if q.name == "" {
		return derrors.NewInvalidOperand("", "query target name is required")
	}
	if q.hasLimit && q.limit < 0 {
		return derrors.NewInvalidOperand("limit", fmt.Sprintf("limit must be non-negative, got %d", q.limit))
	}
	if q.hasSkip && q.skip < 0 {
		return derrors.NewInvalidOperand("skip", fmt.Sprintf("skip must be non-negative, got %d", q.skip))
	}
	for _, s := range q.sorts {
		if s.Field == "" {
			return derrors.NewInvalidOperand("", "sort requires a field path")
		}
		if s.Direction != Ascending && s.Direction != Descending {
			return derrors.NewInvalidOperand(s.Field, fmt.Sprintf("unknown sort direction %q", s.Direction))
		}
	}
	return nil
}

// Name returns the target name.
func (q Query) Name() string { return q.name }

// Fields returns a copy of the projected fields; empty means all.
func (q Query) Fields() []string { return slices.Clone(q.fields) }

// Condition returns the root condition and whether one is set.
func (q Query) Condition() (Condition, bool) { return q.cond, !q.cond.IsZero() }

// Sorts returns a copy of the sorts.
func (q Query) Sorts() []Sort { return slices.Clone(q.sorts) }

// Limit returns the limit and whether one is set.
func (q Query) Limit() (int64, bool) { return q.limit, q.hasLimit }

// Skip returns the skip and whether one is set.
func (q Query) Skip() (int64, bool) { return q.skip, q.hasSkip }

// WithAddedSorts returns a copy of q with sorts appended.
func (q Query) WithAddedSorts(sorts ...Sort) Query {
	c := q.clone()
	c.sorts = append(c.sorts, sorts...)
	return c
}

// Paginate returns a copy of q restricted to the page p points at. The
// cursor's sorts are appended after the query's own. Skip and limit are
// never negative, whatever the cursor holds.
func (q Query) Paginate(p Pageable) Query {
	c := q.clone()
	c.skip, c.hasSkip = p.Skip(), true
	c.limit, c.hasLimit = max(p.size, 0), true
	c.sorts = append(c.sorts, p.sorts...)
	return c
}

// Unbounded returns a copy of q without limit and skip.
func (q Query) Unbounded() Query {
	c := q.clone()
	c.limit, c.hasLimit = 0, false
	c.skip, c.hasSkip = 0, false
	return c
}

func (q Query) clone() Query {
	c := q
	c.fields = slices.Clone(q.fields)
	c.sorts = slices.Clone(q.sorts)
	return c
}

// Equal reports structural equality.
func (q Query) Equal(o Query) bool {
	return q.name == o.name &&
		slices.Equal(q.fields, o.fields) &&
		q.cond.Equal(o.cond) &&
		slices.Equal(q.sorts, o.sorts) &&
		q.hasLimit == o.hasLimit && q.limit == o.limit &&
		q.hasSkip == o.hasSkip && q.skip == o.skip
}

// ToIR returns the canonical value form of the query.
func (q Query) ToIR() (ir.IRObject, error) {
	obj := ir.IRObject{
		"type": ir.IRString("select"),
		"name": ir.IRString(q.name),
	}
	if len(q.fields) > 0 {
		fields := make(ir.IRArray, len(q.fields))
		for i, f := range q.fields {
			fields[i] = ir.IRString(f)
		}
		obj["fields"] = fields
	}
	if !q.cond.IsZero() {
		cv, err := q.cond.ToIR()
		if err != nil {
			return nil, err
		}
		obj["condition"] = cv
	}
	if len(q.sorts) > 0 {
		sorts := make(ir.IRArray, len(q.sorts))
		for i, s := range q.sorts {
			sorts[i] = s.toIR()
		}
		obj["sorts"] = sorts
	}
	if q.hasLimit {
		obj["limit"] = ir.IRInt(q.limit)
	}
	if q.hasSkip {
		obj["skip"] = ir.IRInt(q.skip)
	}
	return obj, nil
}

// Hash returns the content hash of the query's canonical form.
func (q Query) Hash() (string, error) {
	obj, err := q.ToIR()
	if err != nil {
		return "", err
	}
	return ir.QueryHash(obj)
}

func (q Query) String() string {
	var b strings.Builder
	b.WriteString("SELECT ")
	if len(q.fields) == 0 {
		b.WriteString("*")
	} else {
		b.WriteString(strings.Join(q.fields, ", "))
	}
	fmt.Fprintf(&b, " FROM %s", q.name)
	if !q.cond.IsZero() {
		fmt.Fprintf(&b, " WHERE %s", q.cond)
	}
	if len(q.sorts) > 0 {
		parts := make([]string, len(q.sorts))
		for i, s := range q.sorts {
			parts[i] = s.String()
		}
		fmt.Fprintf(&b, " ORDER BY %s", strings.Join(parts, ", "))
	}
	if q.hasLimit {
		fmt.Fprintf(&b, " LIMIT %d", q.limit)
	}
	if q.hasSkip {
		fmt.Fprintf(&b, " SKIP %d", q.skip)
	}
	return b.String()
}

// DeleteQuery is an immutable delete descriptor. Delete always targets the
// full condition match, so it has no projection, sorts or bounds.
type DeleteQuery struct {
	name string
	cond Condition
}

// NewDeleteQuery builds a DeleteQuery. A zero cond deletes every record.
func NewDeleteQuery(name string, cond Condition) (DeleteQuery, error) {
	if name == "" {
		return DeleteQuery{}, derrors.NewInvalidOperand("", "delete target name is required")
	}
	return DeleteQuery{name: name, cond: cond}, nil
}

// Name returns the target name.
func (d DeleteQuery) Name() string { return d.name }

// Condition returns the root condition and whether one is set.
func (d DeleteQuery) Condition() (Condition, bool) { return d.cond, !d.cond.IsZero() }

// Equal reports structural equality.
func (d DeleteQuery) Equal(o DeleteQuery) bool {
	return d.name == o.name && d.cond.Equal(o.cond)
}

// ToIR returns the canonical value form of the delete query.
func (d DeleteQuery) ToIR() (ir.IRObject, error) {
	obj := ir.IRObject{
		"type": ir.IRString("delete"),
		"name": ir.IRString(d.name),
	}
	if !d.cond.IsZero() {
		cv, err := d.cond.ToIR()
		if err != nil {
			return nil, err
		}
		obj["condition"] = cv
	}
	return obj, nil
}

func (d DeleteQuery) String() string {
	if d.cond.IsZero() {
		return "DELETE FROM " + d.name
	}
	return fmt.Sprintf("DELETE FROM %s WHERE %s", d.name, d.cond)
}
