package querysql

import (
	"testing"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/repoquery/internal/queryir"
)

const (
	from  = "SELECT id, body FROM documents WHERE collection = ?"
	order = " ORDER BY id ASC COLLATE BINARY"
)

func leafSQL(pred string) string {
	return "EXISTS (SELECT 1 FROM json_each(documents.body, ?) AS e WHERE " + pred + ")"
}

func mustQuery(t *testing.T, b *queryir.SelectBuilder) queryir.Query {
	t.Helper()
	q, err := b.Build()
	require.NoError(t, err)
	return q
}

func TestCompileSelect(t *testing.T) {
	people := func() *queryir.SelectBuilder { return queryir.Select().From("Person") }
	born := time.Date(1815, time.December, 10, 0, 0, 0, 0, time.FixedZone("GMT+1", 3600))

	tests := []struct {
		name   string
		query  *queryir.SelectBuilder
		sql    string
		params []any
	}{
		{
			name:   "no condition",
			query:  people(),
			sql:    from + order,
			params: []any{"Person"},
		},
		{
			name:   "equals text",
			query:  people().Where("name").Eq("Ada"),
			sql:    from + " AND " + leafSQL("e.type = 'text' AND e.value = ?") + order,
			params: []any{"Person", "$.name", "Ada"},
		},
		{
			name:   "bool becomes an integer",
			query:  people().Where("active").Eq(true),
			sql:    from + " AND " + leafSQL("e.type IN ('true', 'false') AND e.value = ?") + order,
			params: []any{"Person", "$.active", int64(1)},
		},
		{
			name:   "nested path and decimal",
			query:  people().Where("salary.value").Gte(apd.New(45, 2)),
			sql:    from + " AND " + leafSQL("e.type IN ('integer', 'real') AND e.value >= ?") + order,
			params: []any{"Person", "$.salary.value", int64(4500)},
		},
		{
			name:   "fractional decimal becomes a float",
			query:  people().Where("salary.value").Lt(apd.New(55, -1)),
			sql:    from + " AND " + leafSQL("e.type IN ('integer', 'real') AND e.value < ?") + order,
			params: []any{"Person", "$.salary.value", 5.5},
		},
		{
			name:   "time compares by julian day",
			query:  people().Where("birthday").Gt(born),
			sql:    from + " AND " + leafSQL("e.type = 'text' AND julianday(e.value) > julianday(?)") + order,
			params: []any{"Person", "$.birthday", "1815-12-09T23:00:00Z"},
		},
		{
			name:   "between",
			query:  people().Where("age").Between(10, 15),
			sql:    from + " AND " + leafSQL("e.type IN ('integer', 'real') AND e.value >= ? AND e.value <= ?") + order,
			params: []any{"Person", "$.age", int64(10), int64(15)},
		},
		{
			name:   "in",
			query:  people().Where("name").In([]string{"Ada", "Alan"}),
			sql:    from + " AND " + leafSQL("e.type = 'text' AND e.value IN (?, ?)") + order,
			params: []any{"Person", "$.name", "Ada", "Alan"},
		},
		{
			name:   "empty in",
			query:  people().Where("name").In([]string{}),
			sql:    from + " AND 0 = 1" + order,
			params: []any{"Person"},
		},
		{
			name:   "like becomes glob",
			query:  people().Where("name").Like("A_a%"),
			sql:    from + " AND " + leafSQL("e.type = 'text' AND e.value GLOB ?") + order,
			params: []any{"Person", "$.name", "A?a*"},
		},
		{
			name:  "and or not",
			query: people().Where("name").Eq("Ada").Or("age").Not().Lt(18),
			sql: from + " AND (" + leafSQL("e.type = 'text' AND e.value = ?") + " OR NOT (" +
				leafSQL("e.type IN ('integer', 'real') AND e.value < ?") + "))" + order,
			params: []any{"Person", "$.name", "Ada", "$.age", int64(18)},
		},
		{
			name:   "sorts before the id tiebreak",
			query:  people().OrderBy("age").Desc().OrderBy("name").Asc(),
			sql:    from + " ORDER BY json_extract(documents.body, ?) DESC, json_extract(documents.body, ?) ASC, id ASC COLLATE BINARY",
			params: []any{"Person", "$.age", "$.name"},
		},
		{
			name:   "limit and offset",
			query:  people().Limit(10).Skip(20),
			sql:    from + order + " LIMIT ? OFFSET ?",
			params: []any{"Person", int64(10), int64(20)},
		},
		{
			name:   "skip without limit",
			query:  people().Skip(5),
			sql:    from + order + " LIMIT -1 OFFSET ?",
			params: []any{"Person", int64(5)},
		},
	}

	c := NewCompiler()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, params, err := c.Select(mustQuery(t, tt.query))
			require.NoError(t, err)
			assert.Equal(t, tt.sql, sql)
			assert.Equal(t, tt.params, params)
		})
	}
}

func TestCompileNeverInterpolates(t *testing.T) {
	q := mustQuery(t, queryir.Select().From("Person").Where("name").Eq("Robert'); DROP TABLE documents;--"))
	sql, params, err := NewCompiler().Select(q)
	require.NoError(t, err)
	assert.NotContains(t, sql, "Robert")
	assert.Contains(t, params, "Robert'); DROP TABLE documents;--")
}

func TestCompileCountExistsDelete(t *testing.T) {
	c := NewCompiler()
	active := mustQuery(t, queryir.Select().From("Person").Where("active").Eq(false))
	activeSQL := " WHERE collection = ? AND " + leafSQL("e.type IN ('true', 'false') AND e.value = ?")

	sql, params, err := c.Count(active)
	require.NoError(t, err)
	assert.Equal(t, "SELECT COUNT(*) FROM documents"+activeSQL, sql)
	assert.Equal(t, []any{"Person", "$.active", int64(0)}, params)

	page, err := queryir.PageOf(2, 3)
	require.NoError(t, err)
	sql, params, err = c.Count(active.Paginate(page))
	require.NoError(t, err)
	assert.Equal(t, "SELECT COUNT(*) FROM (SELECT 1 FROM documents"+activeSQL+order+" LIMIT ? OFFSET ?)", sql)
	assert.Equal(t, []any{"Person", "$.active", int64(0), int64(3), int64(3)}, params)

	sql, params, err = c.Exists(active)
	require.NoError(t, err)
	assert.Equal(t, "SELECT EXISTS (SELECT 1 FROM documents"+activeSQL+")", sql)
	assert.Equal(t, []any{"Person", "$.active", int64(0)}, params)

	dq, err := queryir.Delete().From("Person").Where("active").Eq(false).Build()
	require.NoError(t, err)
	sql, params, err = c.Delete(dq)
	require.NoError(t, err)
	assert.Equal(t, "DELETE FROM documents"+activeSQL, sql)
	assert.Equal(t, []any{"Person", "$.active", int64(0)}, params)
}

func TestCompileErrors(t *testing.T) {
	c := NewCompiler()

	t.Run("unsupported operand", func(t *testing.T) {
		q := mustQuery(t, queryir.Select().From("Person").Where("tags").Eq([]string{"x"}))
		_, _, err := c.Select(q)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported operand type []string")
	})

	t.Run("mixed between", func(t *testing.T) {
		q := mustQuery(t, queryir.Select().From("Person").Where("age").Between(1, "z"))
		_, _, err := c.Select(q)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "between bounds differ")
	})
}

func TestOperandKinds(t *testing.T) {
	id := uuid.MustParse("0190b6a4-0000-7000-8000-000000000001")
	tests := []struct {
		in   any
		arg  any
		kind kind
	}{
		{id, id.String(), kindText},
		{float32(1.5), 1.5, kindNumber},
		{uint8(7), int64(7), kindNumber},
		{false, int64(0), kindBool},
	}
	for _, tt := range tests {
		got, err := toOperand(tt.in)
		require.NoError(t, err)
		assert.Equal(t, operand{tt.arg, tt.kind}, got, "%T", tt.in)
	}
}

func TestJSONPath(t *testing.T) {
	assert.Equal(t, "$.name", JSONPath("name"))
	assert.Equal(t, "$.salary.value", JSONPath("salary.value"))
	assert.Equal(t, `$."first name".x1`, JSONPath("first name.x1"))
	assert.Equal(t, `$."1st"`, JSONPath("1st"))
}

func TestGlob(t *testing.T) {
	assert.Equal(t, "A*", Glob("A%"))
	assert.Equal(t, "a?c", Glob("a_c"))
	assert.Equal(t, "[*][?][[]x]", Glob("*?[x]"))
}
