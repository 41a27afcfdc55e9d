package memstore

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/roach88/repoquery/internal/document"
	"github.com/roach88/repoquery/internal/queryir"
)

// Match evaluates a condition against a document. A zero condition matches
// everything. Missing fields and values of incomparable types never match.
// When a field holds an array, a leaf matches if any element does.
func Match(d document.D, c queryir.Condition) (bool, error) {
	if c.IsZero() {
		return true, nil
	}
	switch c.Op() {
	case queryir.OpAnd:
		for _, child := range c.Children() {
			ok, err := Match(d, child)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	case queryir.OpOr:
		for _, child := range c.Children() {
			ok, err := Match(d, child)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	case queryir.OpNot:
		ok, err := Match(d, c.Inner())
		return !ok, err
	}

	v, found := document.Lookup(d, c.Field())
	if !found || v == nil {
		return false, nil
	}
	if arr, ok := v.([]any); ok {
		for _, elem := range arr {
			ok, err := matchLeaf(elem, c)
			if err != nil || ok {
				return ok, err
			}
		}
		return false, nil
	}
	return matchLeaf(v, c)
}

func matchLeaf(v any, c queryir.Condition) (bool, error) {
	ops := c.Values()
	switch c.Op() {
	case queryir.OpEquals:
		return document.Equal(v, ops[0]), nil
	case queryir.OpLike:
		s, ok := v.(string)
		if !ok {
			return false, nil
		}
		re, err := likePattern(ops[0].(string))
		if err != nil {
			return false, err
		}
		return re.MatchString(s), nil
	case queryir.OpGreaterThan:
		return compareIs(v, ops[0], func(n int) bool { return n > 0 }), nil
	case queryir.OpGreaterOrEqual:
		return compareIs(v, ops[0], func(n int) bool { return n >= 0 }), nil
	case queryir.OpLessThan:
		return compareIs(v, ops[0], func(n int) bool { return n < 0 }), nil
	case queryir.OpLessOrEqual:
		return compareIs(v, ops[0], func(n int) bool { return n <= 0 }), nil
	case queryir.OpBetween:
		return compareIs(v, ops[0], func(n int) bool { return n >= 0 }) &&
			compareIs(v, ops[1], func(n int) bool { return n <= 0 }), nil
	case queryir.OpIn:
		for _, op := range ops {
			if document.Equal(v, op) {
				return true, nil
			}
		}
		return false, nil
	}
	return false, fmt.Errorf("memstore: unsupported operator %s", c.Op())
}

func compareIs(v, operand any, want func(int) bool) bool {
	n, err := document.Compare(v, operand)
	return err == nil && want(n)
}

var likeCache sync.Map

// likePattern compiles a LIKE pattern: % matches any run of characters and
// _ matches exactly one. Matching is case-sensitive.
func likePattern(pattern string) (*regexp.Regexp, error) {
	if re, ok := likeCache.Load(pattern); ok {
		return re.(*regexp.Regexp), nil
	}
	var b strings.Builder
	b.WriteString(`(?s)^`)
	for _, r := range pattern {
		switch r {
		case '%':
			b.WriteString(`.*`)
		case '_':
			b.WriteString(`.`)
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString(`$`)
	re, err := regexp.Compile(b.String())
	if err != nil {
		return nil, fmt.Errorf("memstore: like pattern %q: %w", pattern, err)
	}
	likeCache.Store(pattern, re)
	return re, nil
}
