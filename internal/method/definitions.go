package method

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Definitions declares the derived methods of one repository.
//
//	repository: PersonRepository
//	entity: Person
//	methods:
//	  - name: findByNameAndAgeGreaterThanEqual
//	    params: [{name: name}, {name: age}]
//	    returns: List[Person]
//	fragments:
//	  - name: reporting
//	    methods:
//	      - name: countByActiveTrue
//	        returns: count
//	overrides:
//	  countByActiveTrue: reporting
type Definitions struct {
	// Repository names the repository for logs and metrics.
	Repository string `yaml:"repository"`

	// Entity is the schema entity the methods query.
	Entity string `yaml:"entity"`

	// Methods are declared directly on the repository.
	Methods []Signature `yaml:"methods,omitempty"`

	// Fragments are reusable method groups flattened into the repository.
	Fragments []Fragment `yaml:"fragments,omitempty"`

	// Overrides names the fragment that wins for a method declared by more
	// than one fragment.
	Overrides map[string]string `yaml:"overrides,omitempty"`
}

// Fragment is a named group of method signatures.
type Fragment struct {
	Name    string      `yaml:"name"`
	Methods []Signature `yaml:"methods"`
}

// LoadDefinitions reads and validates a repository definition file.
func LoadDefinitions(path string) (*Definitions, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read definitions file: %w", err)
	}
	return ParseDefinitions(data)
}

// ParseDefinitions decodes a repository definition. Unknown fields are
// rejected.
func ParseDefinitions(data []byte) (*Definitions, error) {
	var defs Definitions
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&defs); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateDefinitions(&defs); err != nil {
		return nil, fmt.Errorf("invalid definitions: %w", err)
	}
	return &defs, nil
}

func validateDefinitions(d *Definitions) error {
	if d.Entity == "" {
		return fmt.Errorf("entity is required")
	}
	if len(d.Methods) == 0 && len(d.Fragments) == 0 {
		return fmt.Errorf("at least one method or fragment is required")
	}
	for _, sig := range d.Methods {
		if err := sig.Validate(); err != nil {
			return err
		}
	}
	fragments := make(map[string]bool, len(d.Fragments))
	for _, f := range d.Fragments {
		if f.Name == "" {
			return fmt.Errorf("fragment name is required")
		}
		if fragments[f.Name] {
			return fmt.Errorf("duplicate fragment %q", f.Name)
		}
		fragments[f.Name] = true
		for _, sig := range f.Methods {
			if err := sig.Validate(); err != nil {
				return fmt.Errorf("fragment %s: %w", f.Name, err)
			}
		}
	}
	for method, fragment := range d.Overrides {
		if !fragments[fragment] {
			return fmt.Errorf("override for %s names unknown fragment %q", method, fragment)
		}
	}
	return nil
}
