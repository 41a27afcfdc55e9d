package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"cuelang.org/go/cue/token"

	"github.com/roach88/repoquery/internal/method"
	"github.com/roach88/repoquery/internal/schema"
)

// LoadError represents an error that occurred while loading schemas or
// repository definitions.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadSchema compiles the CUE entity declarations in dir. Every
// declaration error is collected and mapped to an error code.
func LoadSchema(dir string) (*schema.Registry, []error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("schema directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing schema directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	files, err := schema.FindCUEFiles(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(files) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}

	reg, errs := schema.LoadDir(dir)
	loadErrs := make([]error, len(errs))
	for i, err := range errs {
		loadErrs[i] = convertSchemaError(err)
	}
	return reg, loadErrs
}

// loadEntity compiles dir and looks up one entity. Only the first
// schema error is returned.
func loadEntity(dir, name string) (*schema.Entity, error) {
	reg, errs := LoadSchema(dir)
	if len(errs) > 0 {
		return nil, errs[0]
	}
	entity, ok := reg.Lookup(name)
	if !ok {
		return nil, &LoadError{
			Code:    ErrCodeUnknownEntity,
			Message: fmt.Sprintf("entity %q not declared (have %s)", name, strings.Join(reg.Names(), ", ")),
		}
	}
	return entity, nil
}

// loadDefinitions reads a repository definition file.
func loadDefinitions(path string) (*method.Definitions, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("definitions file not found: %s", path)}
	}
	defs, err := method.LoadDefinitions(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeDefinitions, Message: err.Error()}
	}
	return defs, nil
}

// convertSchemaError converts a schema error to a LoadError with position info.
func convertSchemaError(err error) *LoadError {
	var compileErr *schema.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: compileErr.Field + ": " + compileErr.Message,
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{Code: ErrCodeLoadFailed, Message: err.Error()}
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeWriteFailed = "E007" // File write error

	// Entity declaration errors
	ErrCodeEntity        = "E101" // Invalid or missing entity declaration
	ErrCodeEntityFields  = "E102" // No fields declared
	ErrCodeEntityOption  = "E103" // Invalid collection or id option
	ErrCodeInvalidType   = "E104" // Invalid field type
	ErrCodeUnknownEntity = "E105" // Entity not declared

	// Repository definition errors
	ErrCodeDefinitions = "E201" // Malformed definitions file
	ErrCodeDerivation  = "E202" // Method signature does not derive
	ErrCodeBinding     = "E203" // Arguments do not bind
)

// MapFieldToErrorCode maps a schema compile error field to an error code.
func MapFieldToErrorCode(field string) string {
	switch {
	case field == "cue":
		return ErrCodeBuildFailed
	case field == "entity":
		return ErrCodeEntity
	case field == "fields":
		return ErrCodeEntityFields
	case field == "collection", field == "id":
		return ErrCodeEntityOption
	case strings.HasPrefix(field, "fields."):
		return ErrCodeInvalidType
	default:
		return ErrCodeGeneric
	}
}
