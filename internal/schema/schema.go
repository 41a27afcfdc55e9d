// Package schema holds the explicit entity schema registry consulted by the
// name matcher and the parameter binder.
//
// Schemas are populated once, at start-up, from CUE files or from Go code,
// and are read-only afterwards. No reflection over Go structs is involved.
package schema

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/roach88/repoquery/internal/ir"
)

// FieldType is the semantic type of an entity field.
type FieldType string

const (
	TypeString  FieldType = "string"
	TypeInt     FieldType = "int"
	TypeFloat   FieldType = "float"
	TypeDecimal FieldType = "decimal"
	TypeBool    FieldType = "bool"
	TypeTime    FieldType = "time"
	TypeUUID    FieldType = "uuid"
	TypeAny     FieldType = "any"
	TypeObject  FieldType = "object"
)

var scalarTypes = []FieldType{
	TypeString, TypeInt, TypeFloat, TypeDecimal, TypeBool, TypeTime, TypeUUID, TypeAny,
}

// ParseFieldType validates a scalar type name.
func ParseFieldType(s string) (FieldType, error) {
	t := FieldType(s)
	if !slices.Contains(scalarTypes, t) {
		return "", fmt.Errorf("unknown field type %q", s)
	}
	return t, nil
}

// Field declares one field of an entity. Nested fields are only valid when
// Type is TypeObject.
type Field struct {
	Name   string
	Type   FieldType
	List   bool
	Fields []Field
}

// FieldPath is a resolved, dot-separated reference to a field.
type FieldPath struct {
	Path string
	Type FieldType
	List bool
}

// Nested reports whether the path points at an embedded structure.
func (p FieldPath) Nested() bool {
	return p.Type == TypeObject
}

// Provider is the schema view the derivation engine depends on.
type Provider interface {
	ResolveField(path string) (FieldPath, bool)
	IDField() FieldPath
	CollectionName() string
}

// Entity is an immutable entity schema. It implements Provider.
type Entity struct {
	name       string
	collection string
	id         FieldPath
	fields     []Field
	paths      map[string]FieldPath
	order      []string
	identity   string
}

var _ Provider = (*Entity)(nil)

// NewEntity validates the declaration and indexes every field path.
// An empty collection defaults to the entity name.
func NewEntity(name, collection, idField string, fields ...Field) (*Entity, error) {
	if name == "" {
		return nil, fmt.Errorf("entity name is required")
	}
	if collection == "" {
		collection = name
	}
	e := &Entity{
		name:       name,
		collection: collection,
		fields:     fields,
		paths:      make(map[string]FieldPath),
	}
	if err := e.index("", fields); err != nil {
		return nil, fmt.Errorf("entity %s: %w", name, err)
	}
	id, ok := e.paths[idField]
	if !ok {
		return nil, fmt.Errorf("entity %s: id field %q is not declared", name, idField)
	}
	if id.Nested() || id.List {
		return nil, fmt.Errorf("entity %s: id field %q must be a scalar", name, idField)
	}
	e.id = id
	e.identity = ir.MustHash(ir.DomainSchema, e.toIR())
	return e, nil
}

// MustEntity is like NewEntity but panics on error.
// Use only for fixtures and package-level declarations.
func MustEntity(name, collection, idField string, fields ...Field) *Entity {
	e, err := NewEntity(name, collection, idField, fields...)
	if err != nil {
		panic(err)
	}
	return e
}

func (e *Entity) index(prefix string, fields []Field) error {
	for _, f := range fields {
		if f.Name == "" {
			return fmt.Errorf("field under %q has no name", prefix)
		}
		if strings.ContainsAny(f.Name, ". ") {
			return fmt.Errorf("field name %q may not contain dots or spaces", f.Name)
		}
		path := f.Name
		if prefix != "" {
			path = prefix + "." + f.Name
		}
		if _, dup := e.paths[path]; dup {
			return fmt.Errorf("duplicate field %q", path)
		}
		if f.Type == TypeObject {
			if len(f.Fields) == 0 {
				return fmt.Errorf("object field %q declares no fields", path)
			}
		} else if len(f.Fields) > 0 {
			return fmt.Errorf("field %q of type %s cannot have nested fields", path, f.Type)
		} else if !slices.Contains(scalarTypes, f.Type) {
			return fmt.Errorf("field %q: unknown type %q", path, f.Type)
		}
		e.paths[path] = FieldPath{Path: path, Type: f.Type, List: f.List}
		e.order = append(e.order, path)
		if f.Type == TypeObject {
			if err := e.index(path, f.Fields); err != nil {
				return err
			}
		}
	}
	return nil
}

// Name returns the entity name.
func (e *Entity) Name() string { return e.name }

// CollectionName returns the storage target name.
func (e *Entity) CollectionName() string { return e.collection }

// IDField returns the identifier field path.
func (e *Entity) IDField() FieldPath { return e.id }

// ResolveField looks up an exact dot-separated path.
func (e *Entity) ResolveField(path string) (FieldPath, bool) {
	fp, ok := e.paths[path]
	return fp, ok
}

// Paths returns every field path in declaration order, parents before children.
func (e *Entity) Paths() []string {
	return slices.Clone(e.order)
}

// Fingerprint identifies the entity by the hash of its name, collection,
// id field and every field path with its type. Entities declared the same
// way share a fingerprint.
func (e *Entity) Fingerprint() string { return e.identity }

func (e *Entity) toIR() ir.IRObject {
	paths := make(ir.IRArray, len(e.order))
	for i, p := range e.order {
		fp := e.paths[p]
		paths[i] = ir.IRObject{
			"path": ir.IRString(fp.Path),
			"type": ir.IRString(fp.Type),
			"list": ir.IRBool(fp.List),
		}
	}
	return ir.IRObject{
		"name":       ir.IRString(e.name),
		"collection": ir.IRString(e.collection),
		"id":         ir.IRString(e.id.Path),
		"paths":      paths,
	}
}

// Fields returns a copy of the top-level field declarations.
func (e *Entity) Fields() []Field {
	return slices.Clone(e.fields)
}

// Registry maps entity names to schemas. Safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	entities map[string]*Entity
}

// NewRegistry creates a registry holding the given entities.
func NewRegistry(entities ...*Entity) (*Registry, error) {
	r := &Registry{entities: make(map[string]*Entity)}
	for _, e := range entities {
		if err := r.Register(e); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds an entity. Registering a name twice is an error.
func (r *Registry) Register(e *Entity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.entities == nil {
		r.entities = make(map[string]*Entity)
	}
	if _, dup := r.entities[e.name]; dup {
		return fmt.Errorf("entity %q already registered", e.name)
	}
	r.entities[e.name] = e
	return nil
}

// Lookup returns the entity registered under name.
func (r *Registry) Lookup(name string) (*Entity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entities[name]
	return e, ok
}

// Names returns registered entity names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entities))
	for n := range r.entities {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}
