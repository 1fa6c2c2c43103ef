package cursorkit

import (
	"strings"

	"github.com/autom8ter/cursorkit/internal/indexing"
	"github.com/autom8ter/cursorkit/memset"
	"github.com/autom8ter/cursorkit/model"
)

// Plan is how a selector is executed against a store
type Plan struct {
	// Index is the index whose cursor drives the scan. Empty when the scan runs on primary keys.
	Index string `json:"index,omitempty"`
	// Range bounds the index cursor. Nil walks the whole index.
	Range *model.KeyRange `json:"range,omitempty"`
	// OrderOnly is set when the index only orders the scan
	OrderOnly bool `json:"orderOnly,omitempty"`
	// Get is the primary key of a single record lookup
	Get any `json:"get,omitempty"`
	// PrimaryKeys is the key set of a primary key set scan
	PrimaryKeys []any `json:"primaryKeys,omitempty"`
	// Residual holds the clauses evaluated in memory per scanned record
	Residual memset.Selector `json:"residual,omitempty"`
}

// Kind names the plan's access path
func (p Plan) Kind() string {
	switch {
	case p.Index != "" && p.Range != nil:
		return "index_range"
	case p.Index != "":
		return "index_order"
	case p.Get != nil:
		return "primary_get"
	case p.PrimaryKeys != nil:
		return "primary_keys"
	default:
		return "primary_scan"
	}
}

// GetRange derives an index key range from a selector clause value. Literals match exactly; otherwise the
// first of $gt, $gte, $lt, $lte, $eq and $between found is used. Any other value yields nil.
func GetRange(value any) *model.KeyRange {
	if value == nil {
		return nil
	}
	ops, ok := memset.OperatorsOf(value)
	if !ok {
		if !indexing.ValidKey(value) {
			return nil
		}
		return model.Only(value)
	}
	valid := func(name string) (any, bool) {
		v, ok := ops.Get(name)
		return v, ok && v != nil && indexing.ValidKey(v)
	}
	if v, ok := valid(memset.OpGt); ok {
		return model.LowerBound(v, true)
	}
	if v, ok := valid(memset.OpGte); ok {
		return model.LowerBound(v, false)
	}
	if v, ok := valid(memset.OpLt); ok {
		return model.UpperBound(v, true)
	}
	if v, ok := valid(memset.OpLte); ok {
		return model.UpperBound(v, false)
	}
	if v, ok := valid(memset.OpEq); ok {
		return model.Only(v)
	}
	if v, ok := ops.Get(memset.OpBetween); ok {
		bounds, ok := memset.Values(v)
		if ok && len(bounds) == 2 && indexing.ValidKey(bounds[0]) && indexing.ValidKey(bounds[1]) {
			return model.Bound(bounds[0], bounds[1], false, false)
		}
	}
	return nil
}

// isOrderOnly reports whether a clause only asks for index ordering
func isOrderOnly(value any) bool {
	if value == nil {
		return true
	}
	ops, ok := memset.OperatorsOf(value)
	return ok && len(ops) == 0
}

// isFullyRanged reports whether the range derived from value expresses the whole clause
func isFullyRanged(value any) bool {
	ops, ok := memset.OperatorsOf(value)
	if !ok {
		return true
	}
	if len(ops) != 1 {
		return false
	}
	switch ops[0].Name {
	case memset.OpGt, memset.OpGte, memset.OpLt, memset.OpLte, memset.OpEq:
		return true
	}
	return false
}

// plan chooses the access path of sel on a store. Only the first clause is considered for an index.
func plan(desc model.StoreDescriptor, sel memset.Selector) Plan {
	residual := sel.Clone()
	var p Plan
	if first, ok := residual.First(); ok {
		if _, ok := desc.Index(first.Field); ok {
			r := GetRange(first.Value)
			// unset values are not indexed so an unranged scan of a reserved field would miss records
			if r != nil || !strings.HasPrefix(first.Field, "_") {
				p.Index = first.Field
				p.Range = r
				p.OrderOnly = r == nil
				if (r != nil && isFullyRanged(first.Value)) || isOrderOnly(first.Value) {
					residual = residual[1:]
				}
			}
		}
	}
	if p.Range == nil {
		main, _ := residual.Get(desc.PrimaryKey)
		if isKeyLiteral(main) {
			p.Index, p.OrderOnly = "", false
			p.Get = main
		} else if keys, rest, ok := primaryKeySet(residual, desc.PrimaryKey); ok {
			p.Index, p.OrderOnly = "", false
			p.PrimaryKeys = keys
			residual = rest
		}
	}
	p.Residual = residual
	return p
}

func isKeyLiteral(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64, string:
		return indexing.ValidKey(v)
	}
	return false
}

// primaryKeySet finds a top level $in clause or a $in operator on the primary key and returns its keys
// along with the selector stripped of it
func primaryKeySet(sel memset.Selector, pk string) ([]any, memset.Selector, bool) {
	if v, ok := sel.Get(memset.OpIn); ok {
		if keys, ok := memset.Values(v); ok {
			return keys, sel.Without(memset.OpIn), true
		}
	}
	main, ok := sel.Get(pk)
	if !ok {
		return nil, nil, false
	}
	ops, ok := memset.OperatorsOf(main)
	if !ok {
		return nil, nil, false
	}
	in, ok := ops.Get(memset.OpIn)
	if !ok {
		return nil, nil, false
	}
	keys, ok := memset.Values(in)
	if !ok {
		return nil, nil, false
	}
	var rest memset.Operators
	for _, op := range ops {
		if op.Name != memset.OpIn {
			rest = append(rest, op)
		}
	}
	if len(rest) == 0 {
		return keys, sel.Without(pk), true
	}
	return keys, sel.Set(pk, rest), true
}
