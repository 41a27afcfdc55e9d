package derive

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/roach88/repoquery/internal/ir"
	"github.com/roach88/repoquery/internal/method"
	"github.com/roach88/repoquery/internal/schema"
)

// fingerprinter is implemented by providers that can identify their whole
// schema, like *schema.Entity.
type fingerprinter interface {
	Fingerprint() string
}

// ErrNoFingerprint reports a provider whose schema cannot be identified.
var ErrNoFingerprint = errors.New("derive: provider has no schema fingerprint")

// Key identifies a signature compiled against a provider. The provider must
// implement Fingerprint() string; otherwise Key fails with ErrNoFingerprint.
func Key(sig method.Signature, p schema.Provider) (string, error) {
	f, ok := p.(fingerprinter)
	if !ok {
		return "", fmt.Errorf("%w: %T", ErrNoFingerprint, p)
	}
	return ir.SignatureHash(ir.IRObject{
		"signature": sig.ToIR(),
		"entity": ir.IRObject{
			"collection":  ir.IRString(p.CollectionName()),
			"id":          ir.IRString(p.IDField().Path),
			"fingerprint": ir.IRString(f.Fingerprint()),
		},
	})
}

type entry struct {
	plan *Plan
	err  error
}

// Cache memoizes Compile. Each key is compiled once even under concurrent
// first calls, and failures are cached like plans: a malformed signature
// reports the same error on every call without recompiling.
type Cache struct {
	plans     sync.Map
	group     singleflight.Group
	compiles  atomic.Int64
	onCompile func(sig method.Signature, err error)
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{}
}

// DefaultCache is the process-wide plan cache.
var DefaultCache = NewCache()

// OnCompile registers a hook called after each compilation, with the
// compile error if any. It must be set before the cache is shared.
func (c *Cache) OnCompile(fn func(sig method.Signature, err error)) {
	c.onCompile = fn
}

// Get returns the plan for sig, compiling it on first use. Plans for a
// provider without a fingerprint are compiled on every call and never
// stored.
func (c *Cache) Get(sig method.Signature, p schema.Provider) (*Plan, error) {
	key, err := Key(sig, p)
	if errors.Is(err, ErrNoFingerprint) {
		e := c.compile(sig, p)
		return e.plan, e.err
	}
	if err != nil {
		return nil, fmt.Errorf("derive: cache key for %s: %w", sig.Name, err)
	}
	if v, ok := c.plans.Load(key); ok {
		e := v.(*entry)
		return e.plan, e.err
	}

	v, _, _ := c.group.Do(key, func() (any, error) {
		if v, ok := c.plans.Load(key); ok {
			return v, nil
		}
		e := c.compile(sig, p)
		c.plans.Store(key, e)
		return e, nil
	})
	e := v.(*entry)
	return e.plan, e.err
}

func (c *Cache) compile(sig method.Signature, p schema.Provider) *entry {
	plan, err := Compile(sig, p)
	c.compiles.Add(1)
	if err != nil {
		slog.Debug("method compilation failed", "method", sig.Name, "error", err)
	} else {
		slog.Debug("method compiled", "method", sig.Name, "collection", plan.Collection, "slots", len(plan.Slots))
	}
	if c.onCompile != nil {
		c.onCompile(sig, err)
	}
	return &entry{plan: plan, err: err}
}

// Compiles returns how many times the cache ran Compile.
func (c *Cache) Compiles() int64 {
	return c.compiles.Load()
}

// Len returns the number of cached keys.
func (c *Cache) Len() int {
	n := 0
	c.plans.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
