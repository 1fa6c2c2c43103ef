package indexing_test

import (
	"bytes"
	"sort"
	"testing"
	"time"

	"github.com/autom8ter/cursorkit/internal/indexing"
	"github.com/autom8ter/cursorkit/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustEncode(t *testing.T, v any) []byte {
	b, err := indexing.EncodeKey(v)
	require.NoError(t, err)
	return b
}

func TestEncodeKey(t *testing.T) {
	now := time.Now()
	ordered := []any{
		-1000.5,
		-1,
		0,
		1,
		2.5,
		int64(1 << 40),
		now,
		now.Add(time.Second),
		"",
		"a",
		"a\x00",
		"ab",
		"b",
		[]byte("a"),
		[]any{},
		[]any{1},
		[]any{1, "a"},
		[]any{2},
		[]any{"a"},
	}
	t.Run("byte order matches key order", func(t *testing.T) {
		for i := 1; i < len(ordered); i++ {
			prev, cur := mustEncode(t, ordered[i-1]), mustEncode(t, ordered[i])
			assert.Equal(t, -1, bytes.Compare(prev, cur), "%v should sort before %v", ordered[i-1], ordered[i])
		}
	})
	t.Run("sorting encoded keys", func(t *testing.T) {
		var encoded [][]byte
		for i := len(ordered) - 1; i >= 0; i-- {
			encoded = append(encoded, mustEncode(t, ordered[i]))
		}
		sort.Slice(encoded, func(i, j int) bool {
			return bytes.Compare(encoded[i], encoded[j]) < 0
		})
		assert.Equal(t, mustEncode(t, ordered[0]), encoded[0])
	})
	t.Run("numbers of different kinds are the same key", func(t *testing.T) {
		assert.Equal(t, mustEncode(t, 5), mustEncode(t, float64(5)))
		assert.Equal(t, mustEncode(t, uint8(5)), mustEncode(t, int64(5)))
		assert.Equal(t, mustEncode(t, model.TagRemove), mustEncode(t, 3))
	})
	t.Run("invalid keys", func(t *testing.T) {
		for _, v := range []any{nil, true, map[string]any{}, []any{true}} {
			_, err := indexing.EncodeKey(v)
			assert.ErrorIs(t, err, indexing.ErrInvalidKey)
		}
	})
	t.Run("decode", func(t *testing.T) {
		for _, v := range []any{float64(-3), "a\x00b", []any{float64(1), "x"}} {
			encoded := append(mustEncode(t, v), mustEncode(t, "tail")...)
			got, rest, err := indexing.DecodeKey(encoded)
			require.NoError(t, err)
			assert.Equal(t, v, got)
			tail, rest, err := indexing.DecodeKey(rest)
			require.NoError(t, err)
			assert.Equal(t, "tail", tail)
			assert.Empty(t, rest)
		}
	})
}

func TestPath(t *testing.T) {
	p := indexing.IndexPath("db", "users", "age")
	t.Run("interval only", func(t *testing.T) {
		start, end, err := p.Interval(model.Only(5))
		require.NoError(t, err)
		five, _ := p.Append(5)
		entry, _ := five.Append("pk-1")
		assert.True(t, bytes.Compare(start, entry.Bytes()) <= 0)
		assert.True(t, bytes.Compare(entry.Bytes(), end) < 0)
		six, _ := p.Append(6)
		assert.True(t, bytes.Compare(six.Bytes(), end) >= 0)
	})
	t.Run("open lower bound excludes the value", func(t *testing.T) {
		start, _, err := p.Interval(model.LowerBound(5, true))
		require.NoError(t, err)
		five, _ := p.Append(5)
		entry, _ := five.Append("pk-1")
		assert.True(t, bytes.Compare(entry.Bytes(), start) < 0)
		closedStart, _, _ := p.Interval(model.LowerBound(5, false))
		assert.True(t, bytes.Compare(closedStart, entry.Bytes()) <= 0)
	})
	t.Run("open upper bound excludes the value", func(t *testing.T) {
		_, end, err := p.Interval(model.UpperBound(5, true))
		require.NoError(t, err)
		five, _ := p.Append(5)
		entry, _ := five.Append("pk-1")
		assert.True(t, bytes.Compare(entry.Bytes(), end) >= 0)
		_, closedEnd, _ := p.Interval(model.UpperBound(5, false))
		assert.True(t, bytes.Compare(entry.Bytes(), closedEnd) < 0)
	})
	t.Run("nil range covers the path", func(t *testing.T) {
		start, end, err := p.Interval(nil)
		require.NoError(t, err)
		assert.Equal(t, p.Bytes(), start)
		other := indexing.IndexPath("db", "users", "agf")
		assert.True(t, bytes.Compare(other.Bytes(), end) >= 0)
	})
}

func TestIndexValue(t *testing.T) {
	rec := model.Record{"a": 1, "b": "x", "c": true, "nested": map[string]any{"d": 2}}
	v, ok := indexing.IndexValue(rec, model.IndexDescriptor{Name: "a"})
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	v, ok = indexing.IndexValue(rec, model.IndexDescriptor{Name: "ab", Keys: []string{"a", "b"}})
	assert.True(t, ok)
	assert.Equal(t, []any{1, "x"}, v)
	_, ok = indexing.IndexValue(rec, model.IndexDescriptor{Name: "c"})
	assert.False(t, ok)
	_, ok = indexing.IndexValue(rec, model.IndexDescriptor{Name: "missing"})
	assert.False(t, ok)
	v, ok = indexing.IndexValue(rec, model.IndexDescriptor{Name: "d", Keys: []string{"nested.d"}})
	assert.True(t, ok)
	assert.Equal(t, 2, v)
}
