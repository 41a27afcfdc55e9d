// Package derrors defines the derivation error taxonomy.
//
// Every error raised while building conditions, matching method names,
// planning argument bindings, coercing arguments or classifying return
// shapes is a *DeriveError carrying one of the codes below. These errors are
// programmer-facing and never transient: a signature that fails once fails
// the same way on every call.
package derrors

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Code categorizes a derivation error.
type Code string

const (
	// CodeUnrecognizedToken indicates a name segment matches neither a keyword nor a schema field.
	CodeUnrecognizedToken Code = "UNRECOGNIZED_TOKEN"

	// CodeAmbiguousFieldPath indicates a name segment resolves to two schema paths of equal length.
	CodeAmbiguousFieldPath Code = "AMBIGUOUS_FIELD_PATH"

	// CodeDuplicateOrderBy indicates more than one OrderBy clause on one signature.
	CodeDuplicateOrderBy Code = "DUPLICATE_ORDER_BY"

	// CodeArityMismatch indicates the argument count differs from the binding slots.
	CodeArityMismatch Code = "ARITY_MISMATCH"

	// CodeInvalidOperand indicates a condition constructor received a missing or invalid operand.
	CodeInvalidOperand Code = "INVALID_OPERAND"

	// CodeCoercion indicates an argument cannot be converted to its field type.
	CodeCoercion Code = "COERCION_FAILED"

	// CodeUnsupportedReturnType indicates the declared return shape is not recognized.
	CodeUnsupportedReturnType Code = "UNSUPPORTED_RETURN_TYPE"
)

// DeriveError is the error type for every derivation failure.
type DeriveError struct {
	// Code identifies the error category.
	Code Code

	// Message is a human-readable description.
	Message string

	// Method is the method name being derived, when known.
	Method string

	// Token is the offending name segment or field path, when known.
	Token string

	// Details contains additional context.
	Details map[string]string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *DeriveError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Code, e.Message)
	if e.Method != "" {
		fmt.Fprintf(&b, " (method=%s", e.Method)
		if e.Token != "" {
			fmt.Fprintf(&b, ", token=%s", e.Token)
		}
		b.WriteByte(')')
	} else if e.Token != "" {
		fmt.Fprintf(&b, " (token=%s)", e.Token)
	}
	if len(e.Details) > 0 {
		for _, k := range slices.Sorted(maps.Keys(e.Details)) {
			fmt.Fprintf(&b, " %s=%s", k, e.Details[k])
		}
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *DeriveError) Unwrap() error {
	return e.Err
}

// WithMethod returns a copy of e attributed to the given method name.
// An existing attribution is kept.
func (e *DeriveError) WithMethod(method string) *DeriveError {
	c := *e
	if c.Method == "" {
		c.Method = method
	}
	return &c
}

// CodeOf returns the code of the first DeriveError in err's chain, or "".
func CodeOf(err error) Code {
	var de *DeriveError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// Attribute returns the first DeriveError in err's chain attributed to
// method. Errors without a DeriveError are returned unchanged.
func Attribute(err error, method string) error {
	var de *DeriveError
	if errors.As(err, &de) && de.Method == "" {
		return de.WithMethod(method)
	}
	return err
}

func is(err error, code Code) bool {
	return CodeOf(err) == code
}

// IsUnrecognizedToken reports whether err is an unrecognized-token error.
func IsUnrecognizedToken(err error) bool { return is(err, CodeUnrecognizedToken) }

// IsAmbiguousFieldPath reports whether err is an ambiguous-field-path error.
func IsAmbiguousFieldPath(err error) bool { return is(err, CodeAmbiguousFieldPath) }

// IsDuplicateOrderBy reports whether err is a duplicate-order-by error.
func IsDuplicateOrderBy(err error) bool { return is(err, CodeDuplicateOrderBy) }

// IsArityMismatch reports whether err is an arity-mismatch error.
func IsArityMismatch(err error) bool { return is(err, CodeArityMismatch) }

// IsInvalidOperand reports whether err is an invalid-operand error.
func IsInvalidOperand(err error) bool { return is(err, CodeInvalidOperand) }

// IsCoercion reports whether err is a coercion error.
func IsCoercion(err error) bool { return is(err, CodeCoercion) }

// IsUnsupportedReturnType reports whether err is an unsupported-return-type error.
func IsUnsupportedReturnType(err error) bool { return is(err, CodeUnsupportedReturnType) }

// NewUnrecognizedToken creates an error for a name segment that matches nothing.
func NewUnrecognizedToken(token, reason string) *DeriveError {
	return &DeriveError{
		Code:    CodeUnrecognizedToken,
		Message: reason,
		Token:   token,
	}
}

// NewAmbiguousFieldPath creates an error listing the competing schema paths.
func NewAmbiguousFieldPath(token string, candidates []string) *DeriveError {
	return &DeriveError{
		Code:    CodeAmbiguousFieldPath,
		Message: fmt.Sprintf("segment matches %d schema paths of equal length, use _ to disambiguate", len(candidates)),
		Token:   token,
		Details: map[string]string{"candidates": strings.Join(candidates, ",")},
	}
}

// NewDuplicateOrderBy creates an error for a second OrderBy clause.
func NewDuplicateOrderBy() *DeriveError {
	return &DeriveError{
		Code:    CodeDuplicateOrderBy,
		Message: "OrderBy may appear at most once",
		Token:   "OrderBy",
	}
}

// NewArityMismatch creates an error for a parameter/slot count mismatch.
func NewArityMismatch(declared, required int) *DeriveError {
	return &DeriveError{
		Code:    CodeArityMismatch,
		Message: fmt.Sprintf("got %d arguments, need %d", declared, required),
		Details: map[string]string{
			"declared": fmt.Sprintf("%d", declared),
			"required": fmt.Sprintf("%d", required),
		},
	}
}

// NewInvalidOperand creates an error for a bad condition operand.
func NewInvalidOperand(field, reason string) *DeriveError {
	return &DeriveError{
		Code:    CodeInvalidOperand,
		Message: reason,
		Token:   field,
	}
}

// NewCoercion creates an error for a value that cannot take the target type.
func NewCoercion(field string, value any, target string, cause error) *DeriveError {
	return &DeriveError{
		Code:    CodeCoercion,
		Message: fmt.Sprintf("cannot convert %T to %s", value, target),
		Token:   field,
		Details: map[string]string{"target": target},
		Err:     cause,
	}
}

// NewUnsupportedReturnType creates an error for an unrecognized return shape.
func NewUnsupportedReturnType(returns, reason string) *DeriveError {
	return &DeriveError{
		Code:    CodeUnsupportedReturnType,
		Message: reason,
		Token:   returns,
	}
}
