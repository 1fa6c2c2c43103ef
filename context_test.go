package cursorkit

import (
	"context"
	"testing"

	"github.com/autom8ter/cursorkit/memset"
	"github.com/autom8ter/cursorkit/model"
	"github.com/stretchr/testify/assert"
)

func TestContext(t *testing.T) {
	ctx := context.Background()
	c, ok := GetContext(ctx)
	assert.False(t, ok)
	assert.NotNil(t, c)

	c = NewContext("users")
	c.Skip = 10
	assert.Equal(t, 10, c.startIndex())
	c.StartIndex = 20
	assert.Equal(t, 20, c.startIndex())
	assert.Equal(t, model.Next, c.direction())

	got, ok := GetContext(c.ToContext(ctx))
	assert.True(t, ok)
	assert.Equal(t, "users", got.Store)

	c.Set = memset.S("a", 1)
	c.Fields = []string{"a"}
	cp := c.Clone()
	cp.Set[0].Value = 2
	cp.Fields[0] = "b"
	assert.Equal(t, 1, c.Set[0].Value)
	assert.Equal(t, "a", c.Fields[0])
	assert.JSONEq(t, `{"store":"users","skip":10,"startIndex":20,"fields":["a"],"$set":{"a":1}}`, c.String())
}
