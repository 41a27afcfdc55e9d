package repository

import (
	"cmp"
	"context"
	"io"
	"iter"
	"log/slog"
	"math"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/repoquery/internal/derive"
	"github.com/roach88/repoquery/internal/derrors"
	"github.com/roach88/repoquery/internal/memstore"
	"github.com/roach88/repoquery/internal/method"
	"github.com/roach88/repoquery/internal/queryir"
	"github.com/roach88/repoquery/internal/result"
	fixtures "github.com/roach88/repoquery/internal/testutil"
)

type Person = fixtures.Person

// countingTemplate counts every store access.
type countingTemplate struct {
	*memstore.Store[Person]
	calls atomic.Int64
}

func (c *countingTemplate) Select(ctx context.Context, q queryir.Query) (iter.Seq2[Person, error], error) {
	c.calls.Add(1)
	return c.Store.Select(ctx, q)
}

func (c *countingTemplate) SingleResult(ctx context.Context, q queryir.Query) (result.Optional[Person], error) {
	c.calls.Add(1)
	return c.Store.SingleResult(ctx, q)
}

func (c *countingTemplate) Count(ctx context.Context, q queryir.Query) (int64, error) {
	c.calls.Add(1)
	return c.Store.Count(ctx, q)
}

func (c *countingTemplate) Exists(ctx context.Context, q queryir.Query) (bool, error) {
	c.calls.Add(1)
	return c.Store.Exists(ctx, q)
}

func (c *countingTemplate) Delete(ctx context.Context, dq queryir.DeleteQuery) error {
	c.calls.Add(1)
	return c.Store.Delete(ctx, dq)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sig(name, returns string, params ...string) method.Signature {
	s := method.Signature{Name: name, Returns: returns}
	for _, p := range params {
		s.Params = append(s.Params, method.Param{Name: p})
	}
	return s
}

// newPeople returns a repository over the five fixture people, saved with
// ids p-0001 to p-0005, and its counting template.
func newPeople(t *testing.T, opts ...Option) (*Repository[Person], *countingTemplate) {
	t.Helper()
	store := memstore.New[Person](fixtures.PersonEntity(), memstore.WithIDGenerator(fixtures.NewSequentialIDs("p")))
	for _, p := range fixtures.People() {
		_, err := store.Save(context.Background(), p)
		require.NoError(t, err)
	}
	tmpl := &countingTemplate{Store: store}
	opts = append([]Option{WithCache(derive.NewCache()), WithLogger(quietLogger())}, opts...)
	repo, err := New[Person](fixtures.PersonEntity(), tmpl, opts...)
	require.NoError(t, err)
	return repo, tmpl
}

func personNames(people []Person) []string {
	out := make([]string, len(people))
	for i, p := range people {
		out[i] = p.Name
	}
	return out
}

func TestInvokeShapes(t *testing.T) {
	repo, _ := newPeople(t)
	require.NoError(t, repo.Register(
		sig("findByActiveTrueOrderByAgeDesc", "List[Person]"),
		sig("findByName", "Person", "name"),
		sig("getByName", "Optional[Person]", "name"),
		sig("findByAgeBetween", "Stream[Person]", "low", "high"),
		sig("countBySalaryCurrency", "count", "currency"),
		sig("existsByNameLike", "exists", "pattern"),
		sig("findBySalaryCurrencyIn", "Set[Person]", "currencies"),
	))
	ctx := context.Background()

	people, err := As[[]Person](repo.Invoke(ctx, "findByActiveTrueOrderByAgeDesc"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Alan", "Ada", "Barbara"}, personNames(people))

	ada, err := As[Person](repo.Invoke(ctx, "findByName", "Ada"))
	require.NoError(t, err)
	assert.Equal(t, "p-0001", ada.ID)

	nobody, err := As[Person](repo.Invoke(ctx, "findByName", "Nobody"))
	require.NoError(t, err)
	assert.Equal(t, Person{}, nobody, "a missing instance is the zero value")

	opt, err := As[result.Optional[Person]](repo.Invoke(ctx, "getByName", "Grace"))
	require.NoError(t, err)
	assert.True(t, opt.IsPresent())

	stream, err := As[iter.Seq2[Person, error]](repo.Invoke(ctx, "findByAgeBetween", 12, 36))
	require.NoError(t, err)
	young, err := result.Collect(stream)
	require.NoError(t, err)
	assert.Equal(t, []string{"Ada", "Barbara", "Edsger"}, personNames(young))

	n, err := As[int64](repo.Invoke(ctx, "countBySalaryCurrency", "GBP"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	found, err := As[bool](repo.Invoke(ctx, "existsByNameLike", "Gr%"))
	require.NoError(t, err)
	assert.True(t, found)

	set, err := As[*result.Set[Person]](repo.Invoke(ctx, "findBySalaryCurrencyIn", []string{"USD", "EUR"}))
	require.NoError(t, err)
	assert.Equal(t, []string{"Grace", "Barbara", "Edsger"}, personNames(set.Values()))
}

func TestInvokePage(t *testing.T) {
	repo, _ := newPeople(t)
	require.NoError(t, repo.Register(method.Signature{
		Name:    "findByAgeGreaterThan",
		Params:  []method.Param{{Name: "age"}, {Name: "page", Kind: method.KindPageable}},
		Returns: "Page[Person]",
	}))

	p, err := queryir.PageOf(1, 2, queryir.Asc("age"))
	require.NoError(t, err)
	page, err := As[result.Page[Person]](repo.Invoke(context.Background(), "findByAgeGreaterThan", 14, p))
	require.NoError(t, err)
	assert.Equal(t, []string{"Edsger", "Ada"}, personNames(page.Content()))
	total, known := page.Total()
	assert.True(t, known)
	assert.Equal(t, int64(4), total)
	assert.True(t, page.HasNext())

	next, err := As[result.Page[Person]](repo.Invoke(context.Background(), "findByAgeGreaterThan", 14, page.Next()))
	require.NoError(t, err)
	assert.Equal(t, []string{"Alan", "Grace"}, personNames(next.Content()))
	assert.False(t, next.HasNext())
}

func TestInvokePageAtLargestOffset(t *testing.T) {
	repo, _ := newPeople(t)
	require.NoError(t, repo.Register(method.Signature{
		Name:    "findByActive",
		Params:  []method.Param{{Name: "active"}, {Name: "page", Kind: method.KindPageable}},
		Returns: "Page[Person]",
	}))

	_, err := queryir.PageOf(math.MaxInt64/2, 4)
	require.True(t, derrors.IsInvalidOperand(err), "overflowing offset is rejected: %v", err)

	last, err := queryir.PageOf(math.MaxInt64/4+1, 4)
	require.NoError(t, err)
	for name, p := range map[string]queryir.Pageable{"last page": last, "after last page": last.Next()} {
		t.Run(name, func(t *testing.T) {
			page, err := As[result.Page[Person]](repo.Invoke(context.Background(), "findByActive", true, p))
			require.NoError(t, err)
			assert.Empty(t, page.Content())
			total, known := page.Total()
			assert.True(t, known)
			assert.Equal(t, int64(3), total)
			assert.False(t, page.HasNext())
		})
	}
}

func TestInvokeDynamicSort(t *testing.T) {
	repo, _ := newPeople(t)
	require.NoError(t, repo.Register(method.Signature{
		Name:    "findByActive",
		Params:  []method.Param{{Name: "active"}, {Name: "sort", Kind: method.KindSort}},
		Returns: "List[Person]",
	}))

	people, err := As[[]Person](repo.Invoke(context.Background(), "findByActive", false, queryir.Desc("name")))
	require.NoError(t, err)
	assert.Equal(t, []string{"Grace", "Edsger"}, personNames(people))
}

func TestInvokeDelete(t *testing.T) {
	repo, _ := newPeople(t)
	require.NoError(t, repo.Register(sig("deleteByActiveFalse", "void")))
	ctx := context.Background()

	v, err := repo.Invoke(ctx, "deleteByActiveFalse")
	require.NoError(t, err)
	assert.Nil(t, v)

	n, err := repo.CountAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestInvokeArityBeforeStoreAccess(t *testing.T) {
	repo, tmpl := newPeople(t)
	require.NoError(t, repo.Register(sig("findByAgeBetween", "List[Person]", "low", "high")))

	_, err := repo.Invoke(context.Background(), "findByAgeBetween", 12)
	require.Error(t, err)
	assert.True(t, derrors.IsArityMismatch(err))
	var de *derrors.DeriveError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "findByAgeBetween", de.Method)
	assert.Zero(t, tmpl.calls.Load(), "the store must not be touched")

	_, err = repo.Invoke(context.Background(), "findByAgeBetween", 12, 36, 40)
	assert.True(t, derrors.IsArityMismatch(err))
	assert.Zero(t, tmpl.calls.Load())
}

func TestInvokeErrors(t *testing.T) {
	repo, tmpl := newPeople(t)
	require.NoError(t, repo.Register(
		sig("findByNickname", "List[Person]", "nickname"),
		sig("findByAge", "SortedSet[Person]", "age"),
		sig("findByBirthday", "List[Person]", "birthday"),
	))
	ctx := context.Background()

	_, err := repo.Invoke(ctx, "findByShoeSize", 42)
	assert.ErrorIs(t, err, ErrUnknownMethod)

	_, err = repo.Invoke(ctx, "findByNickname", "x")
	assert.True(t, derrors.IsUnrecognizedToken(err))

	_, err = repo.Invoke(ctx, "findByAge", 36)
	assert.True(t, derrors.IsUnsupportedReturnType(err), "sorted sets need an ordering")

	_, err = repo.Invoke(ctx, "findByBirthday", "yesterday")
	assert.True(t, derrors.IsCoercion(err))

	assert.Zero(t, tmpl.calls.Load())
}

func TestInvokeSortedSet(t *testing.T) {
	byAge := func(a, b Person) int { return cmp.Compare(a.Age, b.Age) }
	repo, _ := newPeople(t, WithCompare(byAge))
	require.NoError(t, repo.Register(sig("findBySalaryCurrency", "SortedSet[Person]", "currency")))

	set, err := As[*result.SortedSet[Person]](repo.Invoke(context.Background(), "findBySalaryCurrency", "USD"))
	require.NoError(t, err)
	first, ok := set.First()
	require.True(t, ok)
	assert.Equal(t, "Barbara", first.Name)
}

func TestNewRejectsMismatchedOptions(t *testing.T) {
	store := memstore.New[Person](fixtures.PersonEntity())
	_, err := New[Person](fixtures.PersonEntity(), store, WithCompare(func(a, b string) int { return 0 }))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "WithCompare")

	_, err = New[Person](nil, store)
	assert.Error(t, err)
}

func TestPlanCacheShared(t *testing.T) {
	cache := derive.NewCache()
	a, _ := newPeople(t, WithCache(cache))
	b, _ := newPeople(t, WithCache(cache))
	s := sig("findByName", "List[Person]", "name")
	require.NoError(t, a.Register(s))
	require.NoError(t, b.Register(s))

	for range 3 {
		_, err := a.Invoke(context.Background(), "findByName", "Ada")
		require.NoError(t, err)
		_, err = b.Invoke(context.Background(), "findByName", "Ada")
		require.NoError(t, err)
	}
	assert.Equal(t, int64(1), cache.Compiles(), "one compilation per signature")
}

func TestWarm(t *testing.T) {
	cache := derive.NewCache()
	repo, _ := newPeople(t, WithCache(cache))
	require.NoError(t, repo.Register(
		sig("findByName", "List[Person]", "name"),
		sig("countByActiveTrue", "count"),
		sig("existsByAge", "exists", "age"),
	))
	require.NoError(t, repo.Warm(context.Background()))
	assert.Equal(t, int64(3), cache.Compiles())

	require.NoError(t, repo.Register(sig("findByNameOrderByAgeOrderByName", "List[Person]", "name")))
	err := repo.Warm(context.Background())
	require.Error(t, err)
	assert.True(t, derrors.IsDuplicateOrderBy(err))
}

func TestMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	MustRegisterMetrics(registry)

	cache := derive.NewCache()
	InstrumentCache(cache)
	repo, _ := newPeople(t, WithCache(cache), WithName("metrics-test"))
	require.NoError(t, repo.Register(sig("findByName", "List[Person]", "name")))

	before := testutil.ToFloat64(compileCounter.WithLabelValues("ok"))
	_, err := repo.Invoke(context.Background(), "findByName", "Ada")
	require.NoError(t, err)
	_, err = repo.Invoke(context.Background(), "findByName")
	require.Error(t, err)

	assert.Equal(t, float64(1), testutil.ToFloat64(invokeCounter.WithLabelValues("ok", "metrics-test", "findByName")))
	assert.Equal(t, float64(1), testutil.ToFloat64(invokeCounter.WithLabelValues("error", "metrics-test", "findByName")))
	assert.Equal(t, before+1, testutil.ToFloat64(compileCounter.WithLabelValues("ok")))
}

func TestAs(t *testing.T) {
	_, err := As[[]Person]("not a list", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "result is string")

	v, err := As[[]Person](nil, nil)
	require.NoError(t, err)
	assert.Nil(t, v)
}
