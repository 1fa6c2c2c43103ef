package memset

import (
	"strings"

	"github.com/autom8ter/cursorkit/model"
	"github.com/spf13/cast"
)

// Match operators
const (
	OpGt      = "$gt"
	OpGte     = "$gte"
	OpLt      = "$lt"
	OpLte     = "$lte"
	OpEq      = "$eq"
	OpNeq     = "$neq"
	OpE       = "$e"
	OpNe      = "$ne"
	OpWith    = "$with"
	OpBetween = "$between"
	OpIn      = "$in"
	OpOut     = "$out"
	OpNull    = "$null"
	OpLike    = "$like"
	OpOr      = "$or"
	OpAnd     = "$and"
)

// Condition is a compiled (field, operand, value) unit of a selector
type Condition struct {
	Field   string `json:"field"`
	Operand string `json:"operand"`
	Value   any    `json:"value"`
}

// ParseQuery flattens selectors into conditions in clause order. A literal value becomes an $eq condition,
// an operator map yields one condition per operator and a nil value yields none.
func ParseQuery(selectors ...Selector) []Condition {
	var conds []Condition
	for _, sel := range selectors {
		for _, c := range sel {
			if c.Value == nil {
				continue
			}
			if ops, ok := OperatorsOf(c.Value); ok {
				for _, op := range ops {
					conds = append(conds, Condition{Field: c.Field, Operand: op.Name, Value: op.Value})
				}
				continue
			}
			conds = append(conds, Condition{Field: c.Field, Operand: OpEq, Value: c.Value})
		}
	}
	return conds
}

// IsMatchRule evaluates a single operator. a is the record's value, b the selector's operand.
func IsMatchRule(op string, a, b any) bool {
	switch op {
	case OpGt:
		c, ok := compare(a, b)
		return ok && c > 0
	case OpLt:
		c, ok := compare(a, b)
		return ok && c < 0
	case OpGte:
		c, ok := compare(a, b)
		return ok && c >= 0
	case OpLte:
		c, ok := compare(a, b)
		return ok && c <= 0
	case OpE:
		return looseEqual(a, b)
	case OpNe:
		return !looseEqual(a, b)
	case OpEq:
		return strictEqual(a, b)
	case OpNeq:
		return !strictEqual(a, b)
	case OpWith:
		if list, ok := toSlice(a); ok {
			return containsStrict(list, b)
		}
		as, aok := a.(string)
		bs, bok := b.(string)
		return aok && bok && strings.Contains(as, bs)
	case OpBetween:
		bounds, ok := toSlice(b)
		if !ok || len(bounds) < 2 {
			return false
		}
		low, lok := compare(a, bounds[0])
		high, hok := compare(a, bounds[1])
		return lok && hok && low > 0 && high < 0
	case OpIn:
		return in(a, b)
	case OpOut:
		return !in(a, b)
	case OpNull:
		want, ok := b.(bool)
		return ok && (a == nil) == want
	case OpLike:
		if a == nil {
			return false
		}
		re, ok := likePattern(cast.ToString(b))
		return ok && re.MatchString(cast.ToString(a))
	default:
		return looseEqual(a, b)
	}
}

func in(a, b any) bool {
	if list, ok := toSlice(b); ok {
		return containsStrict(list, a)
	}
	bs, bok := b.(string)
	as, aok := a.(string)
	return bok && aok && strings.Contains(bs, as)
}

// IsMatch reports whether the record satisfies every condition. $or and $and conditions expand their list
// operand into sub-selectors on the same field, combined with any and all respectively.
func IsMatch(rec model.Record, conds []Condition) bool {
	for _, cond := range conds {
		if !isMatchCondition(rec, cond) {
			return false
		}
	}
	return true
}

func isMatchCondition(rec model.Record, cond Condition) bool {
	switch cond.Operand {
	case OpOr, OpAnd:
		subs, ok := toSlice(cond.Value)
		if !ok {
			break
		}
		for _, sub := range subs {
			matched := IsMatch(rec, ParseQuery(Selector{{Field: cond.Field, Value: sub}}))
			if cond.Operand == OpOr && matched {
				return true
			}
			if cond.Operand == OpAnd && !matched {
				return false
			}
		}
		return cond.Operand == OpAnd
	case OpNull:
		// an unset field is not null
		v, ok := rec.Lookup(cond.Field)
		if !ok {
			want, isBool := cond.Value.(bool)
			return isBool && !want
		}
		return IsMatchRule(OpNull, v, cond.Value)
	}
	return IsMatchRule(cond.Operand, rec.Get(cond.Field), cond.Value)
}

// IsMatchSelector reports whether the record satisfies the selector
func IsMatchSelector(rec model.Record, sel Selector) bool {
	return IsMatch(rec, ParseQuery(sel))
}

// ParseFilter returns a predicate matching records that satisfy any of the selectors
func ParseFilter(selectors ...Selector) func(rec model.Record) bool {
	compiled := make([][]Condition, len(selectors))
	for i, sel := range selectors {
		compiled[i] = ParseQuery(sel)
	}
	return func(rec model.Record) bool {
		for _, conds := range compiled {
			if IsMatch(rec, conds) {
				return true
			}
		}
		return false
	}
}
