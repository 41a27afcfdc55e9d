package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/repoquery/internal/memstore"
	"github.com/roach88/repoquery/internal/method"
	"github.com/roach88/repoquery/internal/queryir"
	fixtures "github.com/roach88/repoquery/internal/testutil"
)

func fragment(name string, sigs ...method.Signature) method.Fragment {
	return method.Fragment{Name: name, Methods: sigs}
}

func TestCompose(t *testing.T) {
	reporting := fragment("reporting",
		sig("countByActiveTrue", "count"),
		sig("findByName", "List[Person]", "name"),
	)
	lookup := fragment("lookup",
		sig("findByName", "Optional[Person]", "name"),
		sig("existsByName", "exists", "name"),
	)

	t.Run("conflict needs an override", func(t *testing.T) {
		repo, _ := newPeople(t)
		err := repo.Compose([]method.Fragment{reporting, lookup}, nil)
		require.ErrorIs(t, err, ErrMethodConflict)
		assert.Contains(t, err.Error(), "findByName is declared by fragments lookup, reporting")
		assert.Empty(t, repo.Methods(), "nothing is registered on failure")
	})

	t.Run("override picks the fragment", func(t *testing.T) {
		repo, _ := newPeople(t)
		require.NoError(t, repo.Compose([]method.Fragment{reporting, lookup}, map[string]string{"findByName": "lookup"}))
		assert.Equal(t, []string{"countByActiveTrue", "existsByName", "findByName"}, repo.Methods())

		s, ok := repo.Method("findByName")
		require.True(t, ok)
		assert.Equal(t, "Optional[Person]", s.Returns)
	})

	t.Run("override must name a declaring fragment", func(t *testing.T) {
		repo, _ := newPeople(t)
		err := repo.Compose([]method.Fragment{reporting, lookup}, map[string]string{"findByName": "audit"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), `names "audit"`)
	})

	t.Run("stray override", func(t *testing.T) {
		repo, _ := newPeople(t)
		err := repo.Compose([]method.Fragment{reporting}, map[string]string{"findByAge": "reporting"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "matches no fragment method")
	})

	t.Run("repository declaration wins", func(t *testing.T) {
		repo, _ := newPeople(t)
		require.NoError(t, repo.Register(sig("findByName", "Person", "name")))
		require.NoError(t, repo.Compose([]method.Fragment{reporting}, nil))

		s, _ := repo.Method("findByName")
		assert.Equal(t, "Person", s.Returns)

		ada, err := As[Person](repo.Invoke(context.Background(), "findByName", "Ada"))
		require.NoError(t, err)
		assert.Equal(t, "Ada", ada.Name)
	})

	t.Run("duplicate fragment", func(t *testing.T) {
		repo, _ := newPeople(t)
		err := repo.Compose([]method.Fragment{reporting, reporting}, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "composed twice")
	})
}

func TestRegisterTwice(t *testing.T) {
	repo, _ := newPeople(t)
	require.NoError(t, repo.Register(sig("findByName", "List[Person]", "name")))
	err := repo.Register(sig("findByName", "Person", "name"))
	assert.ErrorIs(t, err, ErrMethodConflict)
}

func TestLoadDefinitions(t *testing.T) {
	defs, err := method.ParseDefinitions([]byte(`
repository: PersonRepository
entity: Person
methods:
  - name: findByName
    params: [{name: name}]
    returns: List[Person]
fragments:
  - name: a
    methods:
      - name: countByActiveTrue
        returns: count
  - name: b
    methods:
      - name: countByActiveTrue
        returns: long
overrides:
  countByActiveTrue: b
`))
	require.NoError(t, err)

	repo, _ := newPeople(t)
	require.NoError(t, repo.Load(defs))
	assert.Equal(t, []string{"countByActiveTrue", "findByName"}, repo.Methods())

	n, err := As[int64](repo.Invoke(context.Background(), "countByActiveTrue"))
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestCRUD(t *testing.T) {
	repo, _ := newPeople(t)
	ctx := context.Background()

	saved, err := repo.Save(ctx, Person{Name: "Linus", Age: 28, Active: true})
	require.NoError(t, err)
	assert.Equal(t, "p-0006", saved.ID)

	found, err := repo.FindByID(ctx, "p-0006")
	require.NoError(t, err)
	p, ok := found.Get()
	require.True(t, ok)
	assert.Equal(t, "Linus", p.Name)

	exists, err := repo.ExistsByID(ctx, "p-0002")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, repo.DeleteByID(ctx, "p-0002"))
	require.NoError(t, repo.DeleteByID(ctx, "p-9999"), "deleting a missing id is not an error")
	exists, err = repo.ExistsByID(ctx, "p-0002")
	require.NoError(t, err)
	assert.False(t, exists)

	all, err := repo.FindAll(ctx, queryir.Desc("age"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Alan", "Ada", "Linus", "Edsger", "Barbara"}, personNames(all))

	n, err := repo.CountAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	assert.Error(t, repo.DeleteByID(ctx, nil))
}

// readOnly hides the memstore's Save method.
type readOnly struct {
	Template[Person]
}

func TestSaveRequiresSaver(t *testing.T) {
	store := memstore.New[Person](fixtures.PersonEntity())
	repo, err := New[Person](fixtures.PersonEntity(), readOnly{store}, WithLogger(quietLogger()))
	require.NoError(t, err)

	_, err = repo.Save(context.Background(), Person{Name: "Ada"})
	assert.ErrorIs(t, err, ErrNotSaver)
}
