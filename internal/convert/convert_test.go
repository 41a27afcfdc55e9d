package convert

import (
	"testing"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/repoquery/internal/derrors"
	"github.com/roach88/repoquery/internal/schema"
)

func TestStandardCoerce(t *testing.T) {
	id := uuid.MustParse("0190a5c3-7e4e-7b41-9a6e-1c2d3e4f5a6b")

	tests := []struct {
		name   string
		raw    any
		target schema.FieldType
		want   any
	}{
		{"string to int", "120", schema.TypeInt, int64(120)},
		{"int to int64", 33, schema.TypeInt, int64(33)},
		{"whole float to int", 12.0, schema.TypeInt, int64(12)},
		{"int to string", 42, schema.TypeString, "42"},
		{"uuid to string", id, schema.TypeString, id.String()},
		{"string to float", "10.5", schema.TypeFloat, 10.5},
		{"string to bool", "true", schema.TypeBool, true},
		{"string to uuid", id.String(), schema.TypeUUID, id},
		{"uuid passthrough", id, schema.TypeUUID, id},
		{"string to time", "2024-01-02T03:04:05Z", schema.TypeTime, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)},
		{"any passthrough", []int{1}, schema.TypeAny, []int{1}},
		{"nil stays nil", nil, schema.TypeInt, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Default.Coerce(tt.raw, tt.target)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStandardCoerceDecimal(t *testing.T) {
	for _, raw := range []any{"10.50", 10.5} {
		got, err := Default.Coerce(raw, schema.TypeDecimal)
		require.NoError(t, err)
		d, ok := got.(*apd.Decimal)
		require.True(t, ok)
		assert.Equal(t, 0, d.Cmp(apd.New(105, -1)), "got %s", d)
	}

	got, err := Default.Coerce(3, schema.TypeDecimal)
	require.NoError(t, err)
	assert.Equal(t, "3", got.(*apd.Decimal).String())
}

func TestStandardCoerceFailures(t *testing.T) {
	tests := []struct {
		name   string
		raw    any
		target schema.FieldType
	}{
		{"letters to int", "abc", schema.TypeInt},
		{"fraction to int", 1.5, schema.TypeInt},
		{"bad uuid", "not-a-uuid", schema.TypeUUID},
		{"bad decimal", "ten", schema.TypeDecimal},
		{"bad time", "yesterday", schema.TypeTime},
		{"unknown target", "x", schema.FieldType("blob")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Default.Coerce(tt.raw, tt.target)
			require.Error(t, err)
			assert.True(t, derrors.IsCoercion(err), "got %v", err)
		})
	}
}

func TestConverterFunc(t *testing.T) {
	var c Converter = ConverterFunc(func(raw any, _ schema.FieldType) (any, error) {
		return raw.(string) + "!", nil
	})
	got, err := c.Coerce("hi", schema.TypeString)
	require.NoError(t, err)
	assert.Equal(t, "hi!", got)
}
