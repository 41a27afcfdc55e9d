package querysql

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/google/uuid"
	"github.com/spf13/cast"

	"github.com/roach88/repoquery/internal/queryir"
)

// DefaultTable is the table documents live in. See store/schema.sql.
const DefaultTable = "documents"

// Compiler compiles queries to parameterized SQL for SQLite.
//
// Every SELECT ends its ORDER BY with the document id so results are
// deterministic. Operands and JSON paths are always bound as parameters,
// never interpolated.
type Compiler struct {
	Table string
}

// NewCompiler creates a Compiler for DefaultTable.
func NewCompiler() *Compiler {
	return &Compiler{Table: DefaultTable}
}

// Select compiles q to a statement yielding (id, body) rows.
func (c *Compiler) Select(q queryir.Query) (string, []any, error) {
	where, params, err := c.where(q.Name(), q.Condition)
	if err != nil {
		return "", nil, err
	}
	order, orderParams := c.orderBy(q.Sorts())
	bounds, boundParams := limitClause(q)

	sql := fmt.Sprintf("SELECT id, body FROM %s%s%s%s", c.Table, where, order, bounds)
	params = append(params, orderParams...)
	return sql, append(params, boundParams...), nil
}

// Count compiles q to a statement yielding one row holding the number of
// matches. Limit and skip apply.
func (c *Compiler) Count(q queryir.Query) (string, []any, error) {
	where, params, err := c.where(q.Name(), q.Condition)
	if err != nil {
		return "", nil, err
	}
	_, hasLimit := q.Limit()
	_, hasSkip := q.Skip()
	if !hasLimit && !hasSkip {
		return fmt.Sprintf("SELECT COUNT(*) FROM %s%s", c.Table, where), params, nil
	}
	bounds, boundParams := limitClause(q)
	sql := fmt.Sprintf("SELECT COUNT(*) FROM (SELECT 1 FROM %s%s ORDER BY id ASC COLLATE BINARY%s)", c.Table, where, bounds)
	return sql, append(params, boundParams...), nil
}

// Exists compiles q to a statement yielding one row holding 1 when any
// document matches and 0 otherwise. Bounds are ignored.
func (c *Compiler) Exists(q queryir.Query) (string, []any, error) {
	where, params, err := c.where(q.Name(), q.Condition)
	if err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM %s%s)", c.Table, where), params, nil
}

// Delete compiles dq to a DELETE statement.
func (c *Compiler) Delete(dq queryir.DeleteQuery) (string, []any, error) {
	where, params, err := c.where(dq.Name(), dq.Condition)
	if err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("DELETE FROM %s%s", c.Table, where), params, nil
}

func (c *Compiler) where(collection string, condition func() (queryir.Condition, bool)) (string, []any, error) {
	if collection == "" {
		return "", nil, fmt.Errorf("cannot compile a query without a target")
	}
	sql := " WHERE collection = ?"
	params := []any{collection}
	cond, ok := condition()
	if !ok {
		return sql, params, nil
	}
	condSQL, condParams, err := c.compileCondition(cond)
	if err != nil {
		return "", nil, fmt.Errorf("compile condition: %w", err)
	}
	return sql + " AND " + condSQL, append(params, condParams...), nil
}

// orderBy sorts by each JSON path, then by id. COLLATE BINARY keeps text
// ordering stable across SQLite versions.
func (c *Compiler) orderBy(sorts []queryir.Sort) (string, []any) {
	parts := make([]string, 0, len(sorts)+1)
	params := make([]any, 0, len(sorts))
	for _, s := range sorts {
		dir := "ASC"
		if s.Direction == queryir.Descending {
			dir = "DESC"
		}
		parts = append(parts, fmt.Sprintf("json_extract(%s.body, ?) %s", c.Table, dir))
		params = append(params, JSONPath(s.Field))
	}
	parts = append(parts, "id ASC COLLATE BINARY")
	return " ORDER BY " + strings.Join(parts, ", "), params
}

// limitClause renders LIMIT and OFFSET. SQLite needs a LIMIT before an
// OFFSET, so a skip without a limit uses LIMIT -1.
func limitClause(q queryir.Query) (string, []any) {
	limit, hasLimit := q.Limit()
	skip, hasSkip := q.Skip()
	switch {
	case hasLimit && hasSkip:
		return " LIMIT ? OFFSET ?", []any{limit, skip}
	case hasLimit:
		return " LIMIT ?", []any{limit}
	case hasSkip:
		return " LIMIT -1 OFFSET ?", []any{skip}
	}
	return "", nil
}

func (c *Compiler) compileCondition(cond queryir.Condition) (string, []any, error) {
	switch cond.Op() {
	case queryir.OpAnd, queryir.OpOr:
		return c.compileGroup(cond)
	case queryir.OpNot:
		inner, params, err := c.compileCondition(cond.Inner())
		if err != nil {
			return "", nil, err
		}
		return "NOT (" + inner + ")", params, nil
	}
	return c.compileLeaf(cond)
}

func (c *Compiler) compileGroup(cond queryir.Condition) (string, []any, error) {
	sep := " AND "
	if cond.Op() == queryir.OpOr {
		sep = " OR "
	}
	var parts []string
	var params []any
	for _, child := range cond.Children() {
		sql, childParams, err := c.compileCondition(child)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, sql)
		params = append(params, childParams...)
	}
	return "(" + strings.Join(parts, sep) + ")", params, nil
}

// compileLeaf matches when any value at the path satisfies the predicate.
// json_each yields one row for a scalar, one per element for an array and
// none for a missing path.
func (c *Compiler) compileLeaf(cond queryir.Condition) (string, []any, error) {
	ops := make([]operand, len(cond.Values()))
	for i, v := range cond.Values() {
		op, err := toOperand(v)
		if err != nil {
			return "", nil, fmt.Errorf("field %q: %w", cond.Field(), err)
		}
		ops[i] = op
	}

	pred, params, err := predicate(cond.Op(), ops)
	if err != nil {
		return "", nil, fmt.Errorf("field %q: %w", cond.Field(), err)
	}
	if pred == "" {
		return "0 = 1", nil, nil
	}
	sql := fmt.Sprintf("EXISTS (SELECT 1 FROM json_each(%s.body, ?) AS e WHERE %s)", c.Table, pred)
	return sql, append([]any{JSONPath(cond.Field())}, params...), nil
}

func predicate(op queryir.Operator, ops []operand) (string, []any, error) {
	switch op {
	case queryir.OpEquals:
		return ops[0].guard() + ops[0].expr("e.value") + " = " + ops[0].expr("?"), []any{ops[0].arg}, nil
	case queryir.OpGreaterThan, queryir.OpGreaterOrEqual, queryir.OpLessThan, queryir.OpLessOrEqual:
		return ops[0].guard() + ops[0].expr("e.value") + " " + comparators[op] + " " + ops[0].expr("?"), []any{ops[0].arg}, nil
	case queryir.OpBetween:
		if ops[0].kind != ops[1].kind {
			return "", nil, fmt.Errorf("between bounds differ in type: %s and %s", ops[0].kind, ops[1].kind)
		}
		v := ops[0].expr("e.value")
		sql := ops[0].guard() + v + " >= " + ops[0].expr("?") + " AND " + v + " <= " + ops[1].expr("?")
		return sql, []any{ops[0].arg, ops[1].arg}, nil
	case queryir.OpLike:
		pattern, ok := ops[0].arg.(string)
		if !ok || ops[0].kind != kindText {
			return "", nil, fmt.Errorf("like requires a text pattern")
		}
		return "e.type = 'text' AND e.value GLOB ?", []any{Glob(pattern)}, nil
	case queryir.OpIn:
		if len(ops) == 0 {
			return "", nil, nil
		}
		marks := make([]string, len(ops))
		args := make([]any, len(ops))
		for i, o := range ops {
			marks[i] = o.expr("?")
			args[i] = o.arg
		}
		return sameKind(ops).guard() + sameKind(ops).expr("e.value") + " IN (" + strings.Join(marks, ", ") + ")", args, nil
	}
	return "", nil, fmt.Errorf("unsupported operator %s", op)
}

var comparators = map[queryir.Operator]string{
	queryir.OpGreaterThan:    ">",
	queryir.OpGreaterOrEqual: ">=",
	queryir.OpLessThan:       "<",
	queryir.OpLessOrEqual:    "<=",
}

type kind string

const (
	kindText   kind = "text"
	kindNumber kind = "number"
	kindBool   kind = "bool"
	kindTime   kind = "time"
	kindMixed  kind = "mixed"
)

// operand is a Go value lowered to a SQLite parameter.
type operand struct {
	arg  any
	kind kind
}

// guard restricts the row to JSON values of the operand's type so values
// of other types never match, as in the in-memory store.
func (o operand) guard() string {
	switch o.kind {
	case kindText, kindTime:
		return "e.type = 'text' AND "
	case kindNumber:
		return "e.type IN ('integer', 'real') AND "
	case kindBool:
		return "e.type IN ('true', 'false') AND "
	}
	return ""
}

// expr wraps a time operand in julianday so offsets compare correctly.
func (o operand) expr(x string) string {
	if o.kind == kindTime {
		return "julianday(" + x + ")"
	}
	return x
}

func sameKind(ops []operand) operand {
	k := ops[0].kind
	for _, o := range ops[1:] {
		if o.kind != k {
			return operand{kind: kindMixed}
		}
	}
	if k == kindTime {
		// IN lists compare the raw text.
		return operand{kind: kindText}
	}
	return operand{kind: k}
}

// toOperand maps an operand to a value the sqlite3 driver binds. Booleans
// become 1 or 0 as json_each reports them, times become RFC 3339 text and
// decimals become floats.
func toOperand(v any) (operand, error) {
	switch t := v.(type) {
	case string:
		return operand{t, kindText}, nil
	case bool:
		if t {
			return operand{int64(1), kindBool}, nil
		}
		return operand{int64(0), kindBool}, nil
	case time.Time:
		return operand{t.UTC().Format(time.RFC3339Nano), kindTime}, nil
	case uuid.UUID:
		return operand{t.String(), kindText}, nil
	case float32, float64:
		return operand{cast.ToFloat64(t), kindNumber}, nil
	case *apd.Decimal:
		return decimalOperand(t)
	case apd.Decimal:
		return decimalOperand(&t)
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return operand{n, kindNumber}, nil
		}
		f, err := t.Float64()
		return operand{f, kindNumber}, err
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		n, err := cast.ToInt64E(t)
		return operand{n, kindNumber}, err
	}
	return operand{}, fmt.Errorf("unsupported operand type %T", v)
}

func decimalOperand(d *apd.Decimal) (operand, error) {
	if d == nil {
		return operand{}, fmt.Errorf("nil decimal operand")
	}
	if n, err := d.Int64(); err == nil {
		return operand{n, kindNumber}, nil
	}
	f, err := d.Float64()
	return operand{f, kindNumber}, err
}

// JSONPath renders a dotted field path as an SQLite JSON path. Segments
// that are not plain identifiers are quoted.
func JSONPath(field string) string {
	var b strings.Builder
	b.WriteString("$")
	for _, seg := range strings.Split(field, ".") {
		b.WriteByte('.')
		if isIdent(seg) {
			b.WriteString(seg)
			continue
		}
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(seg, `"`, `\"`))
		b.WriteByte('"')
	}
	return b.String()
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}

// Glob translates a LIKE pattern into a case-sensitive GLOB pattern.
// % becomes *, _ becomes ? and GLOB metacharacters are bracketed.
func Glob(like string) string {
	var b strings.Builder
	for _, r := range like {
		switch r {
		case '%':
			b.WriteByte('*')
		case '_':
			b.WriteByte('?')
		case '*', '?', '[':
			b.WriteByte('[')
			b.WriteRune(r)
			b.WriteByte(']')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
