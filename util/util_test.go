package util_test

import (
	"encoding/json"
	"testing"

	"github.com/autom8ter/cursorkit/errors"
	"github.com/autom8ter/cursorkit/util"
	"github.com/stretchr/testify/assert"
)

func TestUtil(t *testing.T) {
	doc := map[string]any{
		"id":   float64(1),
		"name": "coleman",
		"contact": map[string]any{
			"email": "coleman@example.com",
		},
	}
	t.Run("yaml / json conversions", func(t *testing.T) {
		yml, err := util.JSONToYAML([]byte(util.JSONString(doc)))
		assert.Nil(t, err)
		jsonData, err := util.YAMLToJSON(yml)
		assert.Nil(t, err)
		assert.JSONEq(t, util.JSONString(doc), string(jsonData))
	})
	t.Run("json passes through", func(t *testing.T) {
		bits, err := util.YAMLToJSON([]byte(`{"a":1}`))
		assert.Nil(t, err)
		assert.Equal(t, `{"a":1}`, string(bits))
	})
	t.Run("decode", func(t *testing.T) {
		type cfg struct {
			Name    string `json:"name"`
			ID      int    `json:"id"`
			Ignored string
		}
		var c cfg
		assert.Nil(t, util.Decode(map[string]any{"name": "coleman", "id": "7"}, &c))
		assert.Equal(t, "coleman", c.Name)
		assert.Equal(t, 7, c.ID)
	})
	t.Run("decode params", func(t *testing.T) {
		type params struct {
			Path    string   `json:"path" validate:"required"`
			Addrs   []string `json:"addrs"`
			Timeout int      `json:"timeout" validate:"min=0"`
		}
		p, err := util.DecodeParams[params](map[string]any{"path": "/tmp/db", "addrs": "a:1", "timeout": "30"})
		assert.Nil(t, err)
		assert.Equal(t, params{Path: "/tmp/db", Addrs: []string{"a:1"}, Timeout: 30}, p)

		_, err = util.DecodeParams[params](map[string]any{"timeout": -1, "path": "x"})
		assert.True(t, errors.HasCode(err, errors.Validation))
		_, err = util.DecodeParams[params](nil)
		assert.True(t, errors.HasCode(err, errors.Validation))
		_, err = util.DecodeParams[params](map[string]any{"path": "x", "timeout": "soon"})
		assert.True(t, errors.HasCode(err, errors.Validation))
	})
	t.Run("validate", func(t *testing.T) {
		type usr struct {
			Name string `validate:"required"`
		}
		var u = usr{}
		err := util.ValidateStruct(&u)
		assert.NotNil(t, err)
		assert.True(t, errors.HasCode(err, errors.Validation))
		u.Name = "a name"
		assert.Nil(t, util.ValidateStruct(&u))
	})
	t.Run("json string", func(t *testing.T) {
		var out map[string]any
		assert.Nil(t, json.Unmarshal([]byte(util.JSONString(doc)), &out))
		assert.Equal(t, doc, out)
	})
}
