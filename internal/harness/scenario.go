package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/repoquery/internal/method"
)

// Store kinds a scenario can run against.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// Scenario defines a derivation scenario: a repository over one schema
// entity, seed documents, and a flow of method invocations whose derived
// queries and results are checked.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Schema is a directory of CUE entity declarations. Relative paths are
	// resolved against the scenario file.
	Schema string `yaml:"schema"`

	// Entity names the schema entity the repository queries.
	Entity string `yaml:"entity"`

	// Store selects the template: "memory" (default) or "sqlite".
	Store string `yaml:"store,omitempty"`

	// IDPrefix seeds the sequential id generator. Defaults to "doc".
	IDPrefix string `yaml:"id_prefix,omitempty"`

	// Definitions is an optional repository definition file. Relative paths
	// are resolved against the scenario file.
	Definitions string `yaml:"definitions,omitempty"`

	// Methods are declared inline on the repository.
	Methods []method.Signature `yaml:"methods,omitempty"`

	// Setup holds documents saved before the flow runs.
	Setup []map[string]any `yaml:"setup,omitempty"`

	// Flow is the sequence of invocations.
	Flow []FlowStep `yaml:"flow"`

	// Assertions are checked after the flow.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// FlowStep invokes one repository method.
type FlowStep struct {
	// Invoke is the method name.
	Invoke string `yaml:"invoke"`

	// Args holds one value per declared parameter. A pageable parameter
	// takes {page, size, sort}; a sort parameter takes {field, direction}
	// or a list of them.
	Args []any `yaml:"args,omitempty"`

	// Expect is checked against the invocation outcome. When nil the step
	// must merely not fail.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect describes an invocation outcome.
type Expect struct {
	// Error is the expected error code, e.g. ARITY_MISMATCH.
	Error string `yaml:"error,omitempty"`

	// Size is the expected number of returned entities. For a page it
	// counts the page content.
	Size *int `yaml:"size,omitempty"`

	// IDs are the expected entity ids in result order.
	IDs []string `yaml:"ids,omitempty"`

	// Value is the expected count or exists result.
	Value any `yaml:"value,omitempty"`

	// Total is the expected total of a page result.
	Total *int64 `yaml:"total,omitempty"`
}

// Assertion validates the store or the plan cache after the flow.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Where selects documents by field equality (final_state, final_count).
	Where map[string]any `yaml:"where,omitempty"`

	// Expect contains expected field values (final_state). Subset match.
	Expect map[string]any `yaml:"expect,omitempty"`

	// Count is the expected number of documents (final_count) or plan
	// compilations (compiles).
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertFinalState = "final_state"
	AssertFinalCount = "final_count"
	AssertCompiles   = "compiles"
)

// LoadScenario reads and parses a scenario YAML file. Relative schema and
// definition paths are resolved against the file's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data, filepath.Dir(path))
}

// ParseScenario parses scenario YAML, resolving relative paths against
// basePath. Unknown fields are rejected.
func ParseScenario(data []byte, basePath string) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	scenario.Schema = resolve(basePath, scenario.Schema)
	scenario.Definitions = resolve(basePath, scenario.Definitions)

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func resolve(base, path string) string {
	if path == "" || filepath.IsAbs(path) || base == "" {
		return path
	}
	return filepath.Join(base, path)
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Schema == "" {
		return fmt.Errorf("schema is required")
	}
	if _, err := os.Stat(s.Schema); err != nil {
		return fmt.Errorf("schema directory not found: %s", s.Schema)
	}
	if s.Entity == "" {
		return fmt.Errorf("entity is required")
	}
	switch s.Store {
	case "", StoreMemory, StoreSQLite:
	default:
		return fmt.Errorf("unknown store %q (want %s or %s)", s.Store, StoreMemory, StoreSQLite)
	}
	if s.Definitions != "" {
		if _, err := os.Stat(s.Definitions); err != nil {
			return fmt.Errorf("definitions file not found: %s", s.Definitions)
		}
	} else if len(s.Methods) == 0 {
		return fmt.Errorf("methods or definitions are required")
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}

	for i, step := range s.Flow {
		if step.Invoke == "" {
			return fmt.Errorf("flow[%d]: invoke is required", i)
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, a); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertFinalState:
		if len(a.Where) == 0 {
			return fmt.Errorf("assertions[%d]: final_state requires where", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: final_state requires expect", index)
		}
	case AssertFinalCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be >= 0", index)
		}
	case AssertCompiles:
		if a.Count < 1 {
			return fmt.Errorf("assertions[%d]: compiles count must be >= 1", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
