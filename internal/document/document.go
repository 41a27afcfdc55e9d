// Package document models entities as dynamic JSON-like objects addressed by
// dotted field paths, and orders the values they hold.
package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// D is a document: an entity decoded into nested maps.
type D = map[string]any

var (
	// ErrNotFound indicates a path that does not exist in a document.
	ErrNotFound = errors.New("document: key not found")

	// ErrInvalidPath indicates an empty path or an empty segment.
	ErrInvalidPath = errors.New("document: invalid path")
)

// Get returns the value at the dotted path. Every segment but the last must
// hold an object.
func Get(d D, path string) (any, error) {
	key, leaf, err := traverse(d, path)
	if err != nil {
		return nil, err
	}
	v, ok := leaf[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, path)
	}
	return v, nil
}

// Lookup is Get without the error detail.
func Lookup(d D, path string) (any, bool) {
	v, err := Get(d, path)
	return v, err == nil
}

// Set stores value at the dotted path, creating intermediate objects and
// replacing non-object values found on the way.
func Set(d D, path string, value any) error {
	if d == nil {
		return fmt.Errorf("document: can't set %q on nil document", path)
	}
	segments, err := split(path)
	if err != nil {
		return err
	}
	node := d
	for _, s := range segments[:len(segments)-1] {
		next, ok := node[s].(D)
		if !ok {
			next = D{}
			node[s] = next
		}
		node = next
	}
	node[segments[len(segments)-1]] = value
	return nil
}

func traverse(d D, path string) (string, D, error) {
	segments, err := split(path)
	if err != nil {
		return "", nil, err
	}
	node := d
	for i, s := range segments[:len(segments)-1] {
		v, ok := node[s]
		if !ok || v == nil {
			return "", nil, fmt.Errorf("%w: %q", ErrNotFound, strings.Join(segments[:i+1], "."))
		}
		next, ok := v.(D)
		if !ok {
			return "", nil, fmt.Errorf("document: traversing %q: at %q: want object got %T", path, strings.Join(segments[:i+1], "."), v)
		}
		node = next
	}
	return segments[len(segments)-1], node, nil
}

func split(path string) ([]string, error) {
	segments := strings.Split(path, ".")
	for _, s := range segments {
		if s == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPath, path)
		}
	}
	return segments, nil
}

// From encodes an entity as a document. Numbers decode as json.Number so
// integers and decimals keep their exact value.
func From[T any](v T) (D, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("document: encode %T: %w", v, err)
	}
	return Decode(data)
}

// Decode parses a JSON object.
func Decode(data []byte) (D, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var d D
	if err := dec.Decode(&d); err != nil {
		return nil, fmt.Errorf("document: decode: %w", err)
	}
	if d == nil {
		return nil, fmt.Errorf("document: decode: not an object")
	}
	return d, nil
}

// To decodes a document into an entity.
func To[T any](d D) (T, error) {
	var v T
	data, err := json.Marshal(d)
	if err != nil {
		return v, fmt.Errorf("document: encode: %w", err)
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("document: decode %T: %w", v, err)
	}
	return v, nil
}

// IDGenerator assigns ids to documents saved without one.
type IDGenerator interface {
	Generate() string
}

// UUIDv7 generates time-ordered UUIDv7 ids.
type UUIDv7 struct{}

// Generate implements IDGenerator.
func (UUIDv7) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// EnsureID returns the id at path, generating and storing one when the
// value is missing or empty.
func EnsureID(d D, path string, ids IDGenerator) (string, error) {
	v, _ := Lookup(d, path)
	if v == nil || v == "" {
		id := ids.Generate()
		if err := Set(d, path, id); err != nil {
			return "", err
		}
		return id, nil
	}
	return fmt.Sprint(v), nil
}

// Project returns a new document holding only the values at the given
// paths. Paths missing from d, or already covered by a projected parent,
// are skipped. A malformed path or one running through a non-object value
// is an error.
func Project(d D, paths ...string) (D, error) {
	out := D{}
	for _, p := range paths {
		v, err := Get(d, p)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("document: project: %w", err)
		}
		if _, covered := Lookup(out, p); covered {
			continue
		}
		if err := Set(out, p, v); err != nil {
			return nil, fmt.Errorf("document: project: %w", err)
		}
	}
	return out, nil
}
