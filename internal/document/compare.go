package document

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/google/uuid"
)

// ErrIncomparable is returned when two values have no common ordering.
var ErrIncomparable = errors.New("document: values are not comparable")

// Compare orders a document value against a query operand, or two document
// values. Numbers of any Go or JSON representation compare exactly through
// decimals. Strings compare with times by parsing RFC 3339 and with UUIDs by
// their canonical text. nil sorts before everything.
func Compare(a, b any) (int, error) {
	switch {
	case a == nil && b == nil:
		return 0, nil
	case a == nil:
		return -1, nil
	case b == nil:
		return 1, nil
	}

	if da, ok := decimal(a); ok {
		db, ok := decimal(b)
		if !ok {
			return 0, incomparable(a, b)
		}
		return da.Cmp(db), nil
	}

	_, aTime := a.(time.Time)
	_, bTime := b.(time.Time)
	if aTime || bTime {
		ta, errA := timeOf(a)
		tb, errB := timeOf(b)
		if errA != nil || errB != nil {
			return 0, incomparable(a, b)
		}
		return ta.Compare(tb), nil
	}

	switch av := a.(type) {
	case string:
		if bv, ok := text(b); ok {
			return strings.Compare(av, bv), nil
		}
	case uuid.UUID:
		if bv, ok := text(b); ok {
			return strings.Compare(av.String(), bv), nil
		}
	case bool:
		if bv, ok := b.(bool); ok {
			switch {
			case av == bv:
				return 0, nil
			case !av:
				return -1, nil
			}
			return 1, nil
		}
	}
	return 0, incomparable(a, b)
}

// Equal reports whether Compare finds a and b equal. Incomparable values
// are not equal.
func Equal(a, b any) bool {
	c, err := Compare(a, b)
	return err == nil && c == 0
}

func incomparable(a, b any) error {
	return fmt.Errorf("%w: %T and %T", ErrIncomparable, a, b)
}

func text(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case uuid.UUID:
		return t.String(), true
	}
	return "", false
}

// timeOf reads a time.Time or an RFC 3339 string.
func timeOf(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		return time.Parse(time.RFC3339Nano, t)
	}
	return time.Time{}, fmt.Errorf("not a time: %T", v)
}

func decimal(v any) (*apd.Decimal, bool) {
	switch n := v.(type) {
	case *apd.Decimal:
		return n, n != nil
	case apd.Decimal:
		return &n, true
	case json.Number:
		d, _, err := apd.NewFromString(n.String())
		return d, err == nil
	case int:
		return apd.New(int64(n), 0), true
	case int8:
		return apd.New(int64(n), 0), true
	case int16:
		return apd.New(int64(n), 0), true
	case int32:
		return apd.New(int64(n), 0), true
	case int64:
		return apd.New(n, 0), true
	case uint8:
		return apd.New(int64(n), 0), true
	case uint16:
		return apd.New(int64(n), 0), true
	case uint32:
		return apd.New(int64(n), 0), true
	case float32:
		return floatDecimal(float64(n))
	case float64:
		return floatDecimal(n)
	}
	return nil, false
}

func floatDecimal(f float64) (*apd.Decimal, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, false
	}
	d := new(apd.Decimal)
	if _, err := d.SetFloat64(f); err != nil {
		return nil, false
	}
	return d, true
}
