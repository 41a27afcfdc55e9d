package schema

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const personCUE = `
package schemas

entity: Person: {
	collection: "people"
	fields: {
		id:       "string"
		name:     "string"
		age:      "int"
		active:   "bool"
		birthday: "time"
		salary: {
			value:    "decimal"
			currency: "string"
		}
		tags: ["string"]
	}
}

entity: Animal: {
	id: "code"
	fields: {
		code: "uuid"
		name: "string"
	}
}
`

func TestCompileString(t *testing.T) {
	reg, errs := CompileString(personCUE)
	require.Empty(t, errs)
	assert.Equal(t, []string{"Animal", "Person"}, reg.Names())

	person, ok := reg.Lookup("Person")
	require.True(t, ok)
	assert.Equal(t, "people", person.CollectionName())
	assert.Equal(t, "id", person.IDField().Path)
	assert.Equal(t,
		[]string{"id", "name", "age", "active", "birthday", "salary", "salary.value", "salary.currency", "tags"},
		person.Paths())

	tags, ok := person.ResolveField("tags")
	require.True(t, ok)
	assert.Equal(t, FieldPath{Path: "tags", Type: TypeString, List: true}, tags)

	animal, ok := reg.Lookup("Animal")
	require.True(t, ok)
	assert.Equal(t, FieldPath{Path: "code", Type: TypeUUID}, animal.IDField())
}

func TestCompileStringErrors(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		errMsg string
	}{
		{
			name:   "no entities",
			src:    `x: 1`,
			errMsg: "no entities declared",
		},
		{
			name:   "missing fields",
			src:    `entity: Person: {collection: "p"}`,
			errMsg: "fields are required",
		},
		{
			name:   "unknown type",
			src:    `entity: Person: fields: {id: "string", blob: "bytes"}`,
			errMsg: `unknown field type "bytes"`,
		},
		{
			name:   "numeric field",
			src:    `entity: Person: fields: {id: "string", age: 3}`,
			errMsg: "must be a type name",
		},
		{
			name:   "missing id",
			src:    `entity: Person: fields: {name: "string"}`,
			errMsg: `id field "id" is not declared`,
		},
		{
			name:   "two list element types",
			src:    `entity: Person: fields: {id: "string", tags: ["string", "int"]}`,
			errMsg: "exactly one element type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, errs := CompileString(tt.src)
			require.NotEmpty(t, errs)
			assert.Contains(t, errs[0].Error(), tt.errMsg)
		})
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "person.cue"), []byte(personCUE), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	reg, errs := LoadDir(dir)
	require.Empty(t, errs)
	assert.Equal(t, []string{"Animal", "Person"}, reg.Names())
}

func TestLoadDirErrors(t *testing.T) {
	_, errs := LoadDir(filepath.Join(t.TempDir(), "missing"))
	require.NotEmpty(t, errs)

	_, errs = LoadDir(t.TempDir())
	require.NotEmpty(t, errs)
	assert.Contains(t, errs[0].Error(), "no CUE files")
}
