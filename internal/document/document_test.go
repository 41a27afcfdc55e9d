package document

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type money struct {
	Value    float64 `json:"value"`
	Currency string  `json:"currency"`
}

type person struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Age    int    `json:"age"`
	Salary money  `json:"salary"`
}

func TestFromAndTo(t *testing.T) {
	p := person{ID: "p-1", Name: "Ada", Age: 36, Salary: money{Value: 5000.5, Currency: "GBP"}}

	d, err := From(p)
	require.NoError(t, err)

	want := D{
		"id":   "p-1",
		"name": "Ada",
		"age":  json.Number("36"),
		"salary": D{
			"value":    json.Number("5000.5"),
			"currency": "GBP",
		},
	}
	if diff := cmp.Diff(want, d); diff != "" {
		t.Errorf("From mismatch (-want +got):\n%s", diff)
	}

	back, err := To[person](d)
	require.NoError(t, err)
	assert.Equal(t, p, back)
}

func TestDecodeRejectsNonObjects(t *testing.T) {
	_, err := Decode([]byte(`[1,2]`))
	assert.Error(t, err)
	_, err = Decode([]byte(`null`))
	assert.Error(t, err)
}

func TestGetAndSet(t *testing.T) {
	d := D{"name": "Ada", "salary": D{"currency": "GBP"}}

	v, err := Get(d, "salary.currency")
	require.NoError(t, err)
	assert.Equal(t, "GBP", v)

	_, err = Get(d, "salary.value")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = Get(d, "address.city")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = Get(d, "name.first")
	assert.Error(t, err, "name is not an object")
	_, err = Get(D{"salary": nil}, "salary.value")
	assert.ErrorIs(t, err, ErrNotFound, "a null parent holds nothing")
	_, err = Get(d, "salary.")
	assert.ErrorIs(t, err, ErrInvalidPath)

	_, ok := Lookup(d, "name")
	assert.True(t, ok)

	require.NoError(t, Set(d, "address.city", "London"))
	require.NoError(t, Set(d, "name.first", "Ada"))
	assert.Equal(t, D{
		"name":    D{"first": "Ada"},
		"salary":  D{"currency": "GBP"},
		"address": D{"city": "London"},
	}, d)

	assert.Error(t, Set(nil, "a", 1))
	assert.ErrorIs(t, Set(d, "", 1), ErrInvalidPath)
}

func TestProject(t *testing.T) {
	d := D{"id": "p-1", "name": "Ada", "salary": D{"value": 5000, "currency": "GBP"}, "manager": nil}

	tests := []struct {
		name  string
		paths []string
		want  D
	}{
		{"nested leaf", []string{"id", "salary.currency", "missing"}, D{"id": "p-1", "salary": D{"currency": "GBP"}}},
		{"parent covers child", []string{"salary", "salary.currency"}, D{"salary": D{"value": 5000, "currency": "GBP"}}},
		{"child then parent", []string{"salary.value", "salary"}, D{"salary": D{"value": 5000, "currency": "GBP"}}},
		{"null parent is missing", []string{"id", "manager.name"}, D{"id": "p-1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Project(d, tt.paths...)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Project() mismatch (-want +got):\n%s", diff)
			}
		})
	}
	assert.Equal(t, D{"value": 5000, "currency": "GBP"}, d["salary"], "source is untouched")
}

func TestProjectErrors(t *testing.T) {
	d := D{"id": "p-1", "name": "Ada"}

	_, err := Project(d, "id", "name.first")
	require.Error(t, err, "a path through a scalar is not silently dropped")
	assert.NotErrorIs(t, err, ErrNotFound)

	_, err = Project(d, "id", "salary..value")
	assert.ErrorIs(t, err, ErrInvalidPath)
}

type fixedID string

func (f fixedID) Generate() string { return string(f) }

func TestEnsureID(t *testing.T) {
	d := D{"name": "Ada"}
	id, err := EnsureID(d, "id", fixedID("p-7"))
	require.NoError(t, err)
	assert.Equal(t, "p-7", id)
	assert.Equal(t, "p-7", d["id"])

	id, err = EnsureID(D{"id": "kept"}, "id", fixedID("p-8"))
	require.NoError(t, err)
	assert.Equal(t, "kept", id)

	id, err = EnsureID(D{"id": ""}, "id", fixedID("p-9"))
	require.NoError(t, err)
	assert.Equal(t, "p-9", id, "an empty id is replaced")
}

func TestCompare(t *testing.T) {
	when := time.Date(1815, time.December, 10, 0, 0, 0, 0, time.UTC)
	id := uuid.MustParse("0190b6a4-0000-7000-8000-000000000001")

	tests := []struct {
		name string
		a, b any
		want int
	}{
		{"json int vs int64", json.Number("36"), int64(36), 0},
		{"json decimal vs float", json.Number("0.1"), 0.1, 0},
		{"json vs int less", json.Number("12"), 15, -1},
		{"float vs int greater", 4.5, int64(4), 1},
		{"strings", "Ada", "Alan", -1},
		{"time string vs time", "1815-12-10T00:00:00Z", when, 0},
		{"time vs later string", when, "1906-12-09T00:00:00Z", -1},
		{"uuid vs string", id, id.String(), 0},
		{"string vs uuid", "0190b6a4-0000-7000-8000-000000000002", id, 1},
		{"bools", false, true, -1},
		{"equal bools", true, true, 0},
		{"nil first", nil, "a", -1},
		{"nil last", 1, nil, 1},
		{"nil equal", nil, nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Compare(tt.a, tt.b)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompareIncomparable(t *testing.T) {
	for _, pair := range [][2]any{
		{"Ada", 1},
		{json.Number("1"), "1"},
		{true, "true"},
		{"not a time", time.Now()},
		{D{}, D{}},
	} {
		_, err := Compare(pair[0], pair[1])
		assert.ErrorIs(t, err, ErrIncomparable, "%T vs %T", pair[0], pair[1])
		assert.False(t, Equal(pair[0], pair[1]))
	}
}

func TestUUIDv7(t *testing.T) {
	a := UUIDv7{}.Generate()
	b := UUIDv7{}.Generate()
	assert.NotEqual(t, a, b)

	parsed, err := uuid.Parse(a)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
}
