package memset

import (
	"math/rand"
	"strings"

	"github.com/autom8ter/cursorkit/model"
	"github.com/spf13/cast"
)

// Assign operators
const (
	OpRand     = "$rand"
	OpReplace  = "$replace"
	OpRange    = "$range"
	OpTrim     = "$trim"
	OpPrepend  = "$prepend"
	OpAppend   = "$append"
	OpInc      = "$inc"
	OpMultiply = "$multiply"
	OpMinus    = "$minus"
)

// AssignValue applies an assign operator to the current value a with operand b.
// Unknown operators assign b as is.
func AssignValue(op string, a, b any) any {
	switch op {
	case OpRand:
		n := cast.ToInt(b)
		if n <= 0 {
			return 0
		}
		return rand.Intn(n) + 1
	case OpReplace:
		if pair, ok := toSlice(b); ok && len(pair) >= 2 {
			return strings.Replace(cast.ToString(a), cast.ToString(pair[0]), cast.ToString(pair[1]), 1)
		}
		return b
	case OpRange:
		if bounds, ok := toSlice(b); ok && len(bounds) >= 2 {
			return maxValue(bounds[0], minValue(bounds[1], a))
		}
		return minValue(a, b)
	case OpTrim:
		return strings.TrimSpace(cast.ToString(a))
	case OpPrepend:
		return plus(b, a)
	case OpAppend, OpInc:
		return plus(a, b)
	case OpMultiply:
		return arith(a, b, '*')
	case OpMinus:
		return arith(a, b, '-')
	default:
		return b
	}
}

func minValue(a, b any) any {
	if c, ok := compare(a, b); ok && c <= 0 {
		return a
	}
	return b
}

func maxValue(a, b any) any {
	if c, ok := compare(a, b); ok && c >= 0 {
		return a
	}
	return b
}

// plus concatenates when either side is a string and adds numerically otherwise
func plus(a, b any) any {
	_, aStr := a.(string)
	_, bStr := b.(string)
	if aStr || bStr {
		return cast.ToString(a) + cast.ToString(b)
	}
	return arith(a, b, '+')
}

// arith computes in int64 when both operands are integers (a missing value counts as 0) and in float64 otherwise
func arith(a, b any, op byte) any {
	if isInteger(a) && isInteger(b) {
		x, y := cast.ToInt64(a), cast.ToInt64(b)
		switch op {
		case '+':
			return x + y
		case '-':
			return x - y
		default:
			return x * y
		}
	}
	x, y := cast.ToFloat64(a), cast.ToFloat64(b)
	switch op {
	case '+':
		return x + y
	case '-':
		return x - y
	default:
		return x * y
	}
}

// ResolveValue computes the new value of target[key] from source[key].
// Operator maps apply each $ operator against the current target value in order, later results overwriting
// earlier ones. A string "@name" copies target's name field ("@" copies the whole record) and falls back to
// the literal when the field is not set. Other values are returned as is.
func ResolveValue(target model.Record, source Selector, key string) any {
	value, _ := source.Get(key)
	if ops, ok := OperatorsOf(value); ok {
		applied := false
		for _, op := range ops {
			if !isOperator(op.Name) {
				continue
			}
			applied = true
			target.Set(key, AssignValue(op.Name, target.Get(key), op.Value))
		}
		if applied {
			return target.Get(key)
		}
		return value
	}
	if ref, ok := value.(string); ok && strings.HasPrefix(ref, "@") {
		name := ref[1:]
		var resolved any
		found := false
		if name == "" {
			resolved, found = Mix(model.Record{}, target), true
		} else {
			resolved, found = target.Lookup(name)
		}
		if !found {
			resolved = value
		}
		target.Set(key, resolved)
		return resolved
	}
	return value
}

// Update resolves every clause of source against target and assigns the results
func Update(target model.Record, source Selector) model.Record {
	for _, c := range source {
		target.Set(c.Field, ResolveValue(target, source, c.Field))
	}
	return target
}
