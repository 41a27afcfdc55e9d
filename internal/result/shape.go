// Package result classifies declared return shapes and realizes lazy result
// sequences into them.
package result

import (
	"strings"
	"unicode"

	"github.com/roach88/repoquery/internal/derrors"
)

// Kind is a recognized return shape.
type Kind string

const (
	KindInstance     Kind = "instance"
	KindOptional     Kind = "optional"
	KindList         Kind = "list"
	KindSet          Kind = "set"
	KindSortedSet    Kind = "sorted_set"
	KindNavigableSet Kind = "navigable_set"
	KindQueue        Kind = "queue"
	KindDeque        Kind = "deque"
	KindStream       Kind = "stream"
	KindPage         Kind = "page"
	KindCount        Kind = "count"
	KindExists       Kind = "exists"
	KindVoid         Kind = "void"
)

var containers = map[string]Kind{
	"Optional":     KindOptional,
	"List":         KindList,
	"Set":          KindSet,
	"SortedSet":    KindSortedSet,
	"NavigableSet": KindNavigableSet,
	"Queue":        KindQueue,
	"Deque":        KindDeque,
	"Stream":       KindStream,
	"Page":         KindPage,
}

var scalars = map[string]Kind{
	"count":   KindCount,
	"long":    KindCount,
	"int":     KindCount,
	"exists":  KindExists,
	"bool":    KindExists,
	"boolean": KindExists,
	"void":    KindVoid,
	"":        KindVoid,
}

// Shape is a classified return contract. Element is the entity name for
// entity shapes and empty otherwise.
type Shape struct {
	Kind    Kind
	Element string
}

// Entity reports whether the shape carries entities.
func (s Shape) Entity() bool {
	return s.Element != ""
}

// Collection reports whether realizing the shape exhausts the sequence
// into a container.
func (s Shape) Collection() bool {
	switch s.Kind {
	case KindList, KindSet, KindSortedSet, KindNavigableSet, KindQueue, KindDeque:
		return true
	}
	return false
}

func (s Shape) String() string {
	switch s.Kind {
	case KindInstance:
		return s.Element
	case KindCount, KindExists, KindVoid:
		return string(s.Kind)
	}
	for name, k := range containers {
		if k == s.Kind {
			return name + "[" + s.Element + "]"
		}
	}
	return string(s.Kind)
}

// ParseShape classifies a declared return type:
//
//	Person                  instance
//	Optional[Person]        optional
//	List[Person] ...        List, Set, SortedSet, NavigableSet, Queue, Deque
//	Stream[Person]          lazy passthrough
//	Page[Person]            page
//	count | long | int      count
//	exists | bool | boolean exists
//	void or empty           void
//
// Anything else is an UnsupportedReturnType error.
func ParseShape(declared string) (Shape, error) {
	s := strings.TrimSpace(declared)
	if k, ok := scalars[s]; ok {
		return Shape{Kind: k}, nil
	}

	open := strings.IndexByte(s, '[')
	if open < 0 {
		if !isTypeName(s) {
			return Shape{}, derrors.NewUnsupportedReturnType(declared, "not a recognized return shape")
		}
		return Shape{Kind: KindInstance, Element: s}, nil
	}

	if !strings.HasSuffix(s, "]") {
		return Shape{}, derrors.NewUnsupportedReturnType(declared, "unbalanced brackets")
	}
	k, ok := containers[s[:open]]
	if !ok {
		return Shape{}, derrors.NewUnsupportedReturnType(declared, "unknown container "+s[:open])
	}
	elem := strings.TrimSpace(s[open+1 : len(s)-1])
	if !isTypeName(elem) {
		return Shape{}, derrors.NewUnsupportedReturnType(declared, "container element must be an entity name")
	}
	return Shape{Kind: k, Element: elem}, nil
}

// isTypeName accepts exported Go-style identifiers.
func isTypeName(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case i == 0 && !unicode.IsUpper(r):
			return false
		case !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_':
			return false
		}
	}
	return true
}
