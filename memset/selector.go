// Package memset compiles selectors written in the $ operator language into conditions and
// evaluates them against in-memory records. It also implements the update operators used to
// assign new field values.
//
// The package never fails: unknown match operators fall back to loose equality and unknown
// assign operators fall back to the literal value.
package memset

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"

	"github.com/autom8ter/cursorkit/errors"
	"github.com/samber/lo"
	"github.com/tidwall/gjson"
)

// Clause is a single field of a selector
type Clause struct {
	Field string `json:"field"`
	// Value is a literal (implicit $eq) or an operator map
	Value any `json:"value"`
}

// Selector is an ordered list of clauses. The first clause is the only one eligible for index planning.
type Selector []Clause

// S builds a selector from alternating field/value pairs
func S(pairs ...any) Selector {
	var s Selector
	for i := 0; i+1 < len(pairs); i += 2 {
		field, _ := pairs[i].(string)
		s = append(s, Clause{Field: field, Value: pairs[i+1]})
	}
	return s
}

// FromMap builds a selector from a map. Map keys have no order so clauses are sorted by field.
func FromMap(m map[string]any) Selector {
	keys := lo.Keys(m)
	sort.Strings(keys)
	s := make(Selector, 0, len(keys))
	for _, k := range keys {
		s = append(s, Clause{Field: k, Value: m[k]})
	}
	return s
}

// Keys returns the selector's fields in order
func (s Selector) Keys() []string {
	return lo.Map(s, func(c Clause, _ int) string {
		return c.Field
	})
}

// Get returns the value of the first clause on field
func (s Selector) Get(field string) (any, bool) {
	for _, c := range s {
		if c.Field == field {
			return c.Value, true
		}
	}
	return nil, false
}

// First returns the first clause
func (s Selector) First() (Clause, bool) {
	if len(s) == 0 {
		return Clause{}, false
	}
	return s[0], true
}

// Without returns a copy of the selector without clauses on field
func (s Selector) Without(field string) Selector {
	return lo.Filter(s, func(c Clause, _ int) bool {
		return c.Field != field
	})
}

// Set returns a copy of the selector with field set to value. An existing clause keeps its position.
func (s Selector) Set(field string, value any) Selector {
	out := append(Selector{}, s...)
	for i, c := range out {
		if c.Field == field {
			out[i].Value = value
			return out
		}
	}
	return append(out, Clause{Field: field, Value: value})
}

// Clone copies the selector, its operator maps and their list values so callers may mutate the copy freely
func (s Selector) Clone() Selector {
	if s == nil {
		return nil
	}
	out := make(Selector, len(s))
	for i, c := range s {
		out[i] = Clause{Field: c.Field, Value: cloneValue(c.Value, 3)}
	}
	return out
}

func cloneValue(v any, depth int) any {
	if depth == 0 {
		return v
	}
	switch v := v.(type) {
	case Operators:
		out := make(Operators, len(v))
		for i, o := range v {
			out[i] = Operator{Name: o.Name, Value: cloneValue(o.Value, depth-1)}
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, val := range v {
			out[k] = cloneValue(val, depth-1)
		}
		return out
	case []any:
		return append([]any{}, v...)
	}
	return v
}

// ToMap returns the selector as a map, losing clause order
func (s Selector) ToMap() map[string]any {
	m := make(map[string]any, len(s))
	for _, c := range s {
		m[c.Field] = c.Value
	}
	return m
}

// MarshalJSON encodes the selector as a JSON object in clause order
func (s Selector) MarshalJSON() ([]byte, error) {
	buf := bytes.NewBufferString("{")
	for i, c := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeMember(buf, c.Field, c.Value); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object keeping key order
func (s *Selector) UnmarshalJSON(bits []byte) error {
	sel, err := ParseSelector(string(bits))
	if err != nil {
		return err
	}
	*s = sel
	return nil
}

// Operator is a single $ operator and its operand
type Operator struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// Operators is an ordered operator map
type Operators []Operator

// O builds operators from alternating name/value pairs
func O(pairs ...any) Operators {
	ops := Operators{}
	for i := 0; i+1 < len(pairs); i += 2 {
		name, _ := pairs[i].(string)
		ops = append(ops, Operator{Name: name, Value: pairs[i+1]})
	}
	return ops
}

// Get returns the operand of the named operator
func (o Operators) Get(name string) (any, bool) {
	for _, op := range o {
		if op.Name == name {
			return op.Value, true
		}
	}
	return nil, false
}

// MarshalJSON encodes the operators as a JSON object in order
func (o Operators) MarshalJSON() ([]byte, error) {
	buf := bytes.NewBufferString("{")
	for i, op := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeMember(buf, op.Name, op.Value); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object of operators keeping key order
func (o *Operators) UnmarshalJSON(bits []byte) error {
	r := gjson.ParseBytes(bits)
	if !r.IsObject() {
		return errors.New(errors.Validation, "operators must be a json object")
	}
	ops := Operators{}
	r.ForEach(func(key, value gjson.Result) bool {
		ops = append(ops, Operator{Name: key.String(), Value: fromResult(value)})
		return true
	})
	*o = ops
	return nil
}

func writeMember(buf *bytes.Buffer, key string, value any) error {
	k, err := json.Marshal(key)
	if err != nil {
		return err
	}
	v, err := json.Marshal(value)
	if err != nil {
		return err
	}
	buf.Write(k)
	buf.WriteByte(':')
	buf.Write(v)
	return nil
}

// OperatorsOf returns value as an ordered operator map. Plain maps are operator maps when every key
// starts with $ (an empty map included) and are iterated in sorted key order.
func OperatorsOf(value any) (Operators, bool) {
	switch v := value.(type) {
	case Operators:
		return v, true
	case map[string]any:
		keys := lo.Keys(v)
		if lo.ContainsBy(keys, isLiteralKey) {
			return nil, false
		}
		sort.Strings(keys)
		ops := make(Operators, 0, len(keys))
		for _, k := range keys {
			ops = append(ops, Operator{Name: k, Value: v[k]})
		}
		return ops, true
	}
	return nil, false
}

func isOperator(key string) bool {
	return strings.HasPrefix(key, "$")
}

func isLiteralKey(key string) bool {
	return !isOperator(key)
}

// ParseSelector parses a JSON object into a selector, keeping key order.
// Nested objects holding $ keys (or empty objects) become operator maps, other objects stay literal maps.
func ParseSelector(content string) (Selector, error) {
	if !gjson.Valid(content) {
		return nil, errors.New(errors.Validation, "invalid selector json")
	}
	r := gjson.Parse(content)
	if !r.IsObject() {
		return nil, errors.New(errors.Validation, "selector must be a json object")
	}
	sel := Selector{}
	r.ForEach(func(key, value gjson.Result) bool {
		sel = append(sel, Clause{Field: key.String(), Value: fromResult(value)})
		return true
	})
	return sel, nil
}

// ParseOperators parses a JSON object into ordered operators
func ParseOperators(content string) (Operators, error) {
	if !gjson.Valid(content) {
		return nil, errors.New(errors.Validation, "invalid operators json")
	}
	var ops Operators
	if err := ops.UnmarshalJSON([]byte(content)); err != nil {
		return nil, err
	}
	return ops, nil
}

func fromResult(v gjson.Result) any {
	switch {
	case v.IsObject():
		isOps := true
		v.ForEach(func(key, _ gjson.Result) bool {
			if !isOperator(key.String()) {
				isOps = false
				return false
			}
			return true
		})
		if !isOps {
			return v.Value()
		}
		ops := Operators{}
		v.ForEach(func(key, value gjson.Result) bool {
			ops = append(ops, Operator{Name: key.String(), Value: fromResult(value)})
			return true
		})
		return ops
	case v.IsArray():
		arr := v.Array()
		out := make([]any, 0, len(arr))
		for _, item := range arr {
			out = append(out, fromResult(item))
		}
		return out
	default:
		return v.Value()
	}
}
