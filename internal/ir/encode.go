package ir

import (
	"fmt"
	"reflect"
	"strconv"
	"time"
)

// Tag keys used by FromGo for values that have no direct IR counterpart.
const (
	TagFloat = "$float"
	TagTime  = "$time"
	TagText  = "$text"
	TagNull  = "$null"
)

// FromGo converts an arbitrary Go operand into an IRValue.
//
// Values without a native IR form are wrapped in single-key objects so they
// stay distinguishable from plain strings:
//
//	float64(1.5)        -> {"$float":"1.5"}
//	time.Time           -> {"$time":"2024-01-02T03:04:05Z"}
//	fmt.Stringer (uuid) -> {"$text":"...","type":"uuid.UUID"}
//	nil                 -> {"$null":true}
func FromGo(v any) (IRValue, error) {
	switch val := v.(type) {
	case nil:
		return IRObject{TagNull: IRBool(true)}, nil
	case IRValue:
		return val, nil
	case string:
		return IRString(val), nil
	case bool:
		return IRBool(val), nil
	case int:
		return IRInt(val), nil
	case int8:
		return IRInt(val), nil
	case int16:
		return IRInt(val), nil
	case int32:
		return IRInt(val), nil
	case int64:
		return IRInt(val), nil
	case uint8:
		return IRInt(val), nil
	case uint16:
		return IRInt(val), nil
	case uint32:
		return IRInt(val), nil
	case float32:
		return floatValue(float64(val)), nil
	case float64:
		return floatValue(val), nil
	case time.Time:
		return IRObject{TagTime: IRString(val.UTC().Format(time.RFC3339Nano))}, nil
	case fmt.Stringer:
		return IRObject{
			TagText: IRString(val.String()),
			"type":  IRString(fmt.Sprintf("%T", val)),
		}, nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		arr := make(IRArray, rv.Len())
		for i := range rv.Len() {
			elem, err := FromGo(rv.Index(i).Interface())
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			arr[i] = elem
		}
		return arr, nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("unsupported map key type: %s", rv.Type().Key())
		}
		obj := make(IRObject, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			elem, err := FromGo(iter.Value().Interface())
			if err != nil {
				return nil, fmt.Errorf("[%q]: %w", iter.Key().String(), err)
			}
			obj[iter.Key().String()] = elem
		}
		return obj, nil
	case reflect.Pointer:
		if rv.IsNil() {
			return FromGo(nil)
		}
		return FromGo(rv.Elem().Interface())
	case reflect.String:
		return IRString(rv.String()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return IRInt(rv.Int()), nil
	case reflect.Bool:
		return IRBool(rv.Bool()), nil
	}
	return nil, fmt.Errorf("unsupported type for IR: %T", v)
}

func floatValue(f float64) IRValue {
	return IRObject{TagFloat: IRString(strconv.FormatFloat(f, 'g', -1, 64))}
}
