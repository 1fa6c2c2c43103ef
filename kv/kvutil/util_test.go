package kvutil_test

import (
	"bytes"
	"testing"

	"github.com/autom8ter/cursorkit/kv/kvutil"
	"github.com/stretchr/testify/assert"
)

func TestKVUtil(t *testing.T) {
	t.Run("next prefix", func(t *testing.T) {
		const input = "hello"
		next := kvutil.NextPrefix([]byte(input))
		assert.Equal(t, 1, bytes.Compare(next, []byte(input)))
		assert.Equal(t, "hellp", string(next))
	})
	t.Run("next prefix carries", func(t *testing.T) {
		next := kvutil.NextPrefix([]byte{0x01, 0xFF})
		assert.Equal(t, []byte{0x02, 0x00}, next)
	})
	t.Run("next prefix of all 0xFF is empty", func(t *testing.T) {
		assert.Empty(t, kvutil.NextPrefix([]byte{0xFF, 0xFF}))
	})
	t.Run("in bounds", func(t *testing.T) {
		assert.True(t, kvutil.InBounds([]byte("b"), []byte("a"), []byte("c")))
		assert.False(t, kvutil.InBounds([]byte("c"), []byte("a"), []byte("c")))
		assert.True(t, kvutil.InBounds([]byte("a"), []byte("a"), nil))
		assert.False(t, kvutil.InBounds([]byte("0"), []byte("a"), nil))
	})
}
