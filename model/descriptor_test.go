package model_test

import (
	"encoding/json"
	"testing"

	"github.com/autom8ter/cursorkit/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const schemaYAML = `
name: shop
version: 2
stores:
- name: products
  primaryKey: id
  indexes:
  - x
  - name: sku
    unique: true
  - name: category_price
    keys: [category, price]
- name: orders
  primaryKey: id
  keyGenerator: ksuid
`

func TestDescriptor(t *testing.T) {
	t.Run("index from string", func(t *testing.T) {
		var i model.IndexDescriptor
		require.NoError(t, json.Unmarshal([]byte(`"x"`), &i))
		assert.Equal(t, "x", i.Name)
		assert.Equal(t, []string{"x"}, i.Fields())
		assert.False(t, i.Unique)
	})
	t.Run("index from object", func(t *testing.T) {
		var i model.IndexDescriptor
		require.NoError(t, json.Unmarshal([]byte(`{"name":"ab","keys":["a","b"],"unique":true}`), &i))
		assert.True(t, i.Composite())
		assert.True(t, i.Unique)
	})
	t.Run("parse schema", func(t *testing.T) {
		s, err := model.ParseSchema([]byte(schemaYAML))
		require.NoError(t, err)
		assert.Equal(t, 2, s.Version)
		products, ok := s.Store("products")
		require.True(t, ok)
		assert.Len(t, products.Indexes, 3)
		sku, ok := products.Index("sku")
		assert.True(t, ok)
		assert.True(t, sku.Unique)
		orders, _ := s.Store("orders")
		assert.Equal(t, "ksuid", orders.KeyGenerator)
	})
	t.Run("invalid schema", func(t *testing.T) {
		_, err := model.ParseSchema([]byte(`{"name":"shop","stores":[{"name":"a"}]}`))
		assert.Error(t, err)
		_, err = model.ParseSchema([]byte(`{"name":"shop","stores":[{"name":"a","primaryKey":"id","indexes":["x","x"]}]}`))
		assert.Error(t, err)
	})
}
