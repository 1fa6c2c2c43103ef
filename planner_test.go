package cursorkit

import (
	"testing"

	"github.com/autom8ter/cursorkit/memset"
	"github.com/autom8ter/cursorkit/model"
	"github.com/stretchr/testify/assert"
)

func TestGetRange(t *testing.T) {
	type testCase struct {
		name     string
		value    any
		expected *model.KeyRange
	}
	for _, tc := range []testCase{
		{"literal", 5, model.Only(5)},
		{"string literal", "a", model.Only("a")},
		{"nil", nil, nil},
		{"bool", true, nil},
		{"gt", memset.O("$gt", 1), model.LowerBound(1, true)},
		{"gte", memset.O("$gte", 1), model.LowerBound(1, false)},
		{"lt", memset.O("$lt", 1), model.UpperBound(1, true)},
		{"lte", memset.O("$lte", 1), model.UpperBound(1, false)},
		{"eq", memset.O("$eq", "x"), model.Only("x")},
		{"between", memset.O("$between", []any{1, 5}), model.Bound(1, 5, false, false)},
		{"between wrong arity", memset.O("$between", []any{1}), nil},
		{"gt wins over lt", memset.O("$lt", 9, "$gt", 1), model.LowerBound(1, true)},
		{"plain map", map[string]any{"$gte": 3}, model.LowerBound(3, false)},
		{"in", memset.O("$in", []any{1, 2}), nil},
		{"like", memset.O("$like", "a%"), nil},
		{"invalid operand", memset.O("$gt", true), nil},
		{"empty operators", memset.O(), nil},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, GetRange(tc.value))
		})
	}
}

func TestPlan(t *testing.T) {
	desc := model.StoreDescriptor{
		Name:       "items",
		PrimaryKey: "id",
		Indexes: []model.IndexDescriptor{
			{Name: "x"},
			{Name: "_tag"},
		},
	}
	t.Run("index range consumes the first clause", func(t *testing.T) {
		p := plan(desc, memset.S("x", memset.O("$gte", 10), "name", "a"))
		assert.Equal(t, "index_range", p.Kind())
		assert.Equal(t, "x", p.Index)
		assert.Equal(t, model.LowerBound(10, false), p.Range)
		assert.Equal(t, []string{"name"}, p.Residual.Keys())
	})
	t.Run("partially ranged clause stays in the residual", func(t *testing.T) {
		p := plan(desc, memset.S("x", memset.O("$gte", 10, "$lt", 20)))
		assert.Equal(t, "index_range", p.Kind())
		assert.Equal(t, []string{"x"}, p.Residual.Keys())
	})
	t.Run("order only", func(t *testing.T) {
		p := plan(desc, memset.S("x", nil, "name", "a"))
		assert.Equal(t, "index_order", p.Kind())
		assert.True(t, p.OrderOnly)
		assert.Equal(t, []string{"name"}, p.Residual.Keys())

		p = plan(desc, memset.S("x", memset.O()))
		assert.Equal(t, "index_order", p.Kind())
		assert.Empty(t, p.Residual)
	})
	t.Run("unrangeable index clause", func(t *testing.T) {
		p := plan(desc, memset.S("x", memset.O("$in", []any{1, 2})))
		assert.Equal(t, "index_order", p.Kind())
		assert.Equal(t, []string{"x"}, p.Residual.Keys())
	})
	t.Run("reserved index without range", func(t *testing.T) {
		p := plan(desc, memset.S("_tag", memset.O("$null", true)))
		assert.Equal(t, "primary_scan", p.Kind())
	})
	t.Run("only the first clause is planned", func(t *testing.T) {
		p := plan(desc, memset.S("name", "a", "x", 5))
		assert.Equal(t, "primary_scan", p.Kind())
		assert.Len(t, p.Residual, 2)
	})
	t.Run("primary key get", func(t *testing.T) {
		p := plan(desc, memset.S("id", 3, "name", "a"))
		assert.Equal(t, "primary_get", p.Kind())
		assert.Equal(t, 3, p.Get)
		assert.Len(t, p.Residual, 2)
	})
	t.Run("primary key get overrides an order only index", func(t *testing.T) {
		p := plan(desc, memset.S("x", nil, "id", 3))
		assert.Equal(t, "primary_get", p.Kind())
		assert.Empty(t, p.Index)
	})
	t.Run("primary key set", func(t *testing.T) {
		p := plan(desc, memset.S("id", memset.O("$in", []any{1, 2}, "$gt", 0)))
		assert.Equal(t, "primary_keys", p.Kind())
		assert.Equal(t, []any{1, 2}, p.PrimaryKeys)
		v, ok := p.Residual.Get("id")
		assert.True(t, ok)
		assert.Equal(t, memset.O("$gt", 0), v)

		p = plan(desc, memset.S("$in", []any{4, 5}, "name", "a"))
		assert.Equal(t, "primary_keys", p.Kind())
		assert.Equal(t, []any{4, 5}, p.PrimaryKeys)
		assert.Equal(t, []string{"name"}, p.Residual.Keys())
	})
	t.Run("empty selector", func(t *testing.T) {
		p := plan(desc, nil)
		assert.Equal(t, "primary_scan", p.Kind())
		assert.Empty(t, p.Residual)
	})
}
