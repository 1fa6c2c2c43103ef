package memset

import (
	"reflect"
	"strings"
	"time"

	"github.com/spf13/cast"
)

func isNumber(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return true
	}
	return false
}

func isInteger(v any) bool {
	switch v.(type) {
	case nil, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	}
	return false
}

// toNumber coerces numbers, booleans and numeric strings to float64 the way loose equality does
func toNumber(v any) (float64, bool) {
	switch v := v.(type) {
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	case string:
		if strings.TrimSpace(v) == "" {
			return 0, true
		}
		f, err := cast.ToFloat64E(strings.TrimSpace(v))
		return f, err == nil
	}
	if isNumber(v) {
		return cast.ToFloat64(v), true
	}
	return 0, false
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// compare orders two values. Numbers compare by value across Go kinds, strings lexically and times chronologically.
// A number compared with a numeric string is compared numerically. Other pairs are not comparable.
func compare(a, b any) (int, bool) {
	if a == nil || b == nil {
		return 0, false
	}
	if isNumber(a) && isNumber(b) {
		if isInteger(a) && isInteger(b) {
			ai, bi := cast.ToInt64(a), cast.ToInt64(b)
			switch {
			case ai < bi:
				return -1, true
			case ai > bi:
				return 1, true
			}
			return 0, true
		}
		return cmpFloat(cast.ToFloat64(a), cast.ToFloat64(b)), true
	}
	switch av := a.(type) {
	case string:
		if bv, ok := b.(string); ok {
			return strings.Compare(av, bv), true
		}
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			switch {
			case av.Before(bv):
				return -1, true
			case av.After(bv):
				return 1, true
			}
			return 0, true
		}
		return 0, false
	}
	_, aBool := a.(bool)
	_, bBool := b.(bool)
	if isNumber(a) || isNumber(b) || aBool || bBool {
		af, aok := toNumber(a)
		bf, bok := toNumber(b)
		if aok && bok {
			return cmpFloat(af, bf), true
		}
	}
	return 0, false
}

// strictEqual is equality without coercion. Numbers of different Go kinds are equal when their values are.
func strictEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if isNumber(a) || isNumber(b) {
		if !isNumber(a) || !isNumber(b) {
			return false
		}
		c, _ := compare(a, b)
		return c == 0
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case time.Time:
		bv, ok := b.(time.Time)
		return ok && av.Equal(bv)
	}
	return reflect.DeepEqual(a, b)
}

// looseEqual is equality with number, boolean and numeric string coercion
func looseEqual(a, b any) bool {
	if strictEqual(a, b) {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	_, aBool := a.(bool)
	_, bBool := b.(bool)
	if isNumber(a) || isNumber(b) || aBool || bBool {
		af, aok := toNumber(a)
		bf, bok := toNumber(b)
		return aok && bok && af == bf
	}
	return false
}

// toSlice returns the elements of any slice or array value
func toSlice(v any) ([]any, bool) {
	switch v := v.(type) {
	case nil:
		return nil, false
	case []any:
		return v, true
	case string, []byte:
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

func containsStrict(list []any, v any) bool {
	for _, item := range list {
		if strictEqual(item, v) {
			return true
		}
	}
	return false
}

// Values returns the elements of a slice or array value. Strings and byte slices are not lists.
func Values(v any) ([]any, bool) {
	return toSlice(v)
}
