package model_test

import (
	"testing"

	"github.com/autom8ter/cursorkit/model"
	"github.com/stretchr/testify/assert"
)

func TestRecord(t *testing.T) {
	rec := model.Record{
		"id":   1,
		"tags": []any{"a", "b"},
		"contact": map[string]any{
			"email": "a@b.com",
			"address": map[string]any{
				"city": "denver",
			},
		},
	}
	t.Run("get dotted", func(t *testing.T) {
		assert.Equal(t, "denver", rec.Get("contact.address.city"))
		assert.Nil(t, rec.Get("contact.phone"))
		_, ok := rec.Lookup("contact.address.zip")
		assert.False(t, ok)
	})
	t.Run("set dotted", func(t *testing.T) {
		c := rec.Clone(3)
		c.Set("contact.address.zip", "80202")
		c.Set("meta.source", "test")
		assert.Equal(t, "80202", c.Get("contact.address.zip"))
		assert.Equal(t, "test", c.Get("meta.source"))
		_, ok := rec.Lookup("contact.address.zip")
		assert.False(t, ok)
	})
	t.Run("clone copies slices", func(t *testing.T) {
		c := rec.Clone(0)
		c["tags"].([]any)[0] = "z"
		assert.Equal(t, "a", rec["tags"].([]any)[0])
	})
	t.Run("direction", func(t *testing.T) {
		assert.True(t, model.Prev.Reverse())
		assert.False(t, model.Next.Reverse())
	})
}
