// Package convert coerces raw method arguments into the semantic type of the
// schema field they are compared against.
package convert

import (
	"fmt"
	"math"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/google/uuid"
	"github.com/spf13/cast"

	"github.com/roach88/repoquery/internal/derrors"
	"github.com/roach88/repoquery/internal/schema"
)

// Converter turns a raw argument into a value of the target field type.
// Failures are *derrors.DeriveError values with code COERCION_FAILED.
type Converter interface {
	Coerce(raw any, target schema.FieldType) (any, error)
}

// ConverterFunc adapts a function to the Converter interface.
type ConverterFunc func(raw any, target schema.FieldType) (any, error)

// Coerce calls f(raw, target).
func (f ConverterFunc) Coerce(raw any, target schema.FieldType) (any, error) {
	return f(raw, target)
}

// Default is the converter used when none is configured.
var Default Converter = Standard{}

// Standard converts between Go primitives, strings, time.Time, uuid.UUID
// and *apd.Decimal.
//
// A nil raw value is returned as nil so condition constructors can reject it
// as an invalid operand.
type Standard struct{}

// Coerce implements Converter.
func (Standard) Coerce(raw any, target schema.FieldType) (any, error) {
	if raw == nil {
		return nil, nil
	}
	v, err := coerce(raw, target)
	if err != nil {
		return nil, derrors.NewCoercion("", raw, string(target), err)
	}
	return v, nil
}

func coerce(raw any, target schema.FieldType) (any, error) {
	switch target {
	case schema.TypeString:
		if id, ok := raw.(uuid.UUID); ok {
			return id.String(), nil
		}
		return cast.ToStringE(raw)
	case schema.TypeInt:
		return toInt(raw)
	case schema.TypeFloat:
		return cast.ToFloat64E(raw)
	case schema.TypeDecimal:
		return toDecimal(raw)
	case schema.TypeBool:
		return cast.ToBoolE(raw)
	case schema.TypeTime:
		t, err := cast.ToTimeE(raw)
		if err != nil {
			return nil, err
		}
		return t.UTC(), nil
	case schema.TypeUUID:
		return toUUID(raw)
	case schema.TypeAny, schema.TypeObject:
		return raw, nil
	default:
		return nil, fmt.Errorf("unknown target type %q", target)
	}
}

func toInt(raw any) (int64, error) {
	switch v := raw.(type) {
	case float32:
		return integral(float64(v))
	case float64:
		return integral(v)
	case *apd.Decimal:
		return v.Int64()
	case time.Time:
		return 0, fmt.Errorf("time is not an integer")
	}
	return cast.ToInt64E(raw)
}

func integral(f float64) (int64, error) {
	if f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%v has a fractional part", f)
	}
	return int64(f), nil
}

func toDecimal(raw any) (*apd.Decimal, error) {
	switch v := raw.(type) {
	case *apd.Decimal:
		return v, nil
	case apd.Decimal:
		return &v, nil
	case string:
		d, _, err := apd.NewFromString(v)
		return d, err
	case float32:
		return new(apd.Decimal).SetFloat64(float64(v))
	case float64:
		return new(apd.Decimal).SetFloat64(v)
	}
	n, err := cast.ToInt64E(raw)
	if err != nil {
		return nil, err
	}
	return apd.New(n, 0), nil
}

func toUUID(raw any) (uuid.UUID, error) {
	switch v := raw.(type) {
	case uuid.UUID:
		return v, nil
	case [16]byte:
		return uuid.UUID(v), nil
	case []byte:
		return uuid.FromBytes(v)
	}
	s, err := cast.ToStringE(raw)
	if err != nil {
		return uuid.Nil, err
	}
	return uuid.Parse(s)
}
