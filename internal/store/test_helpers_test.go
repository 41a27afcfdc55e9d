package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/repoquery/internal/schema"
	"github.com/roach88/repoquery/internal/testutil"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createPeople saves testutil.People with sequential ids p-0001 onwards.
func createPeople(t *testing.T) *Collection[testutil.Person] {
	t.Helper()
	c := NewCollection[testutil.Person](createTestStore(t), testutil.PersonEntity(),
		WithIDGenerator(testutil.NewSequentialIDs("p")))
	for _, p := range testutil.People() {
		if _, err := c.Save(context.Background(), p); err != nil {
			t.Fatalf("Save(%s) failed: %v", p.Name, err)
		}
	}
	return c
}

// schemaFor returns a minimal entity with id and name fields stored in
// collection.
func schemaFor(collection string) *schema.Entity {
	return schema.MustEntity(collection, "", "id",
		schema.Field{Name: "id", Type: schema.TypeString},
		schema.Field{Name: "name", Type: schema.TypeString},
	)
}
