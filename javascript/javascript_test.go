package javascript_test

import (
	"testing"

	"github.com/autom8ter/cursorkit/errors"
	"github.com/autom8ter/cursorkit/javascript"
	"github.com/autom8ter/cursorkit/model"
	"github.com/spf13/cast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sumFunction = javascript.Script(`
function sum(input) {
	let output = {}
	output.sum = input.a * input.b;
    return output
}
`)

var countFunction = javascript.Script(`
function count(input) {
    return input.length
}
`)

func TestScript(t *testing.T) {
	t.Run("function names", func(t *testing.T) {
		assert.Equal(t, "sum", sumFunction.FunctionName())
		assert.Equal(t, "count", countFunction.FunctionName())
		assert.Equal(t, "", javascript.Script(`record.x > 1`).FunctionName())
	})
	t.Run("sum", func(t *testing.T) {
		fn, err := sumFunction.Parse()
		require.NoError(t, err)
		output, err := fn(map[string]any{
			"a": 4,
			"b": 7,
		})
		assert.NoError(t, err)
		assert.EqualValues(t, 28, cast.ToStringMap(output)["sum"])
	})
	t.Run("count", func(t *testing.T) {
		fn, err := countFunction.Parse()
		require.NoError(t, err)
		output, err := fn([]string{"1", "2", "3"})
		assert.NoError(t, err)
		assert.EqualValues(t, 3, output)
	})
	t.Run("expression", func(t *testing.T) {
		fn, err := javascript.Script(`record.x * 2`).Parse()
		require.NoError(t, err)
		output, err := fn(map[string]any{"x": 21})
		assert.NoError(t, err)
		assert.EqualValues(t, 42, output)
	})
	t.Run("ksuid", func(t *testing.T) {
		fn, err := javascript.Script(`ksuid()`).Parse()
		require.NoError(t, err)
		output, err := fn(nil)
		assert.NoError(t, err)
		assert.Len(t, cast.ToString(output), 27)
	})
	t.Run("syntax error", func(t *testing.T) {
		_, err := javascript.Script(`function broken( {`).Parse()
		assert.True(t, errors.HasCode(err, errors.Validation))
	})
	t.Run("thrown error", func(t *testing.T) {
		fn, err := javascript.Script(`function fail(input) { throw new Error("nope") }`).Parse()
		require.NoError(t, err)
		_, err = fn(nil)
		assert.True(t, errors.HasCode(err, errors.Validation))
	})
}

func TestHooks(t *testing.T) {
	t.Run("filter", func(t *testing.T) {
		filter, err := javascript.Filter(`record.age >= 18 && record.name.startsWith("a")`)
		require.NoError(t, err)
		assert.True(t, filter(model.Record{"age": 20, "name": "ann"}))
		assert.False(t, filter(model.Record{"age": 10, "name": "ann"}))
		assert.False(t, filter(model.Record{"age": 20}))
	})
	t.Run("let mutates in place", func(t *testing.T) {
		let, err := javascript.Let(`function compute(record) { record.total = record.price * record.qty }`)
		require.NoError(t, err)
		rec := model.Record{"price": 2, "qty": 3}
		assert.Nil(t, let(rec))
		assert.EqualValues(t, 6, rec["total"])
	})
	t.Run("let replaces", func(t *testing.T) {
		let, err := javascript.Let(`function replace(record) { return {id: record.id, replaced: true} }`)
		require.NoError(t, err)
		out := let(model.Record{"id": 1, "other": "x"})
		assert.Equal(t, true, out["replaced"])
		assert.NotContains(t, out, "other")
	})
	t.Run("validate", func(t *testing.T) {
		validate, err := javascript.Validate(`record.email ? null : "email is required"`)
		require.NoError(t, err)
		assert.Nil(t, validate(model.Record{"email": "a@b.c"}))
		assert.Equal(t, "email is required", validate(model.Record{}))
	})
}
