package schema

import (
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"
)

// CompileError reports a malformed entity declaration with its CUE position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// CompileEntity parses one entity declaration. The value is the entity
// struct itself; its label is the entity name:
//
//	entity: Person: {
//		collection: "people"   // optional, defaults to the label
//		id:         "id"       // optional, defaults to "id"
//		fields: {
//			id:     "string"
//			age:    "int"
//			tags:   ["string"]
//			salary: {value: "decimal", currency: "string"}
//		}
//	}
func CompileEntity(v cue.Value) (*Entity, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	var name string
	if sels := v.Path().Selectors(); len(sels) > 0 {
		name = sels[len(sels)-1].Unquoted()
	}

	collection, err := optionalString(v, "collection")
	if err != nil {
		return nil, err
	}
	id, err := optionalString(v, "id")
	if err != nil {
		return nil, err
	}
	if id == "" {
		id = "id"
	}

	fieldsVal := v.LookupPath(cue.ParsePath("fields"))
	if !fieldsVal.Exists() {
		return nil, &CompileError{Field: "fields", Message: "fields are required", Pos: v.Pos()}
	}
	fields, err := parseFields(fieldsVal, "fields")
	if err != nil {
		return nil, err
	}

	e, err := NewEntity(name, collection, id, fields...)
	if err != nil {
		return nil, &CompileError{Field: "entity", Message: err.Error(), Pos: v.Pos()}
	}
	return e, nil
}

func optionalString(v cue.Value, path string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(path))
	if !fv.Exists() {
		return "", nil
	}
	s, err := fv.String()
	if err != nil {
		return "", &CompileError{Field: path, Message: "must be a string", Pos: fv.Pos()}
	}
	return s, nil
}

func parseFields(v cue.Value, where string) ([]Field, error) {
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var fields []Field
	for iter.Next() {
		f, err := parseField(iter.Selector().Unquoted(), iter.Value(), where)
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	return fields, nil
}

func parseField(name string, v cue.Value, where string) (Field, error) {
	path := where + "." + name
	switch v.IncompleteKind() {
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return Field{}, formatCUEError(err)
		}
		t, err := ParseFieldType(s)
		if err != nil {
			return Field{}, &CompileError{Field: path, Message: err.Error(), Pos: v.Pos()}
		}
		return Field{Name: name, Type: t}, nil
	case cue.StructKind:
		nested, err := parseFields(v, path)
		if err != nil {
			return Field{}, err
		}
		return Field{Name: name, Type: TypeObject, Fields: nested}, nil
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return Field{}, formatCUEError(err)
		}
		if !iter.Next() {
			return Field{}, &CompileError{Field: path, Message: "list type needs one element type", Pos: v.Pos()}
		}
		elem, err := parseField(name, iter.Value(), where)
		if err != nil {
			return Field{}, err
		}
		if iter.Next() {
			return Field{}, &CompileError{Field: path, Message: "list type needs exactly one element type", Pos: v.Pos()}
		}
		elem.List = true
		return elem, nil
	default:
		return Field{}, &CompileError{
			Field:   path,
			Message: "must be a type name, a nested struct or a one-element list",
			Pos:     v.Pos(),
		}
	}
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &CompileError{Field: "cue", Message: first.Error(), Pos: positions[0]}
	}
	return err
}

// CompileEntities compiles every entity under the top-level "entity" struct
// of v. All declaration errors are collected.
func CompileEntities(v cue.Value) (*Registry, []error) {
	reg := &Registry{entities: make(map[string]*Entity)}
	entitiesVal := v.LookupPath(cue.ParsePath("entity"))
	if !entitiesVal.Exists() {
		return reg, []error{&CompileError{Field: "entity", Message: "no entities declared", Pos: v.Pos()}}
	}
	iter, err := entitiesVal.Fields()
	if err != nil {
		return reg, []error{formatCUEError(err)}
	}
	var errs []error
	for iter.Next() {
		e, err := CompileEntity(iter.Value())
		if err != nil {
			errs = append(errs, fmt.Errorf("entity.%s: %w", iter.Selector().Unquoted(), err))
			continue
		}
		if err := reg.Register(e); err != nil {
			errs = append(errs, err)
		}
	}
	return reg, errs
}

// CompileString compiles CUE source text holding entity declarations.
func CompileString(src string) (*Registry, []error) {
	v := cuecontext.New().CompileString(src)
	if err := v.Err(); err != nil {
		return nil, []error{formatCUEError(err)}
	}
	return CompileEntities(v)
}

// LoadDir loads every .cue file of the package in dir and compiles its entities.
func LoadDir(dir string) (*Registry, []error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, []error{fmt.Errorf("schema directory: %w", err)}
	}
	if !info.IsDir() {
		return nil, []error{fmt.Errorf("not a directory: %s", dir)}
	}
	files, err := FindCUEFiles(dir)
	if err != nil {
		return nil, []error{fmt.Errorf("scanning %s: %w", dir, err)}
	}
	if len(files) == 0 {
		return nil, []error{fmt.Errorf("no CUE files found in %s", dir)}
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, []error{fmt.Errorf("no CUE instances loaded from %s", dir)}
	}
	if inst := instances[0]; inst.Err != nil {
		return nil, []error{fmt.Errorf("loading CUE files: %w", inst.Err)}
	}
	v := cuecontext.New().BuildInstance(instances[0])
	if err := v.Err(); err != nil {
		return nil, []error{formatCUEError(err)}
	}
	return CompileEntities(v)
}

// FindCUEFiles returns the .cue files directly inside dir.
func FindCUEFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ".cue" {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	return files, nil
}
