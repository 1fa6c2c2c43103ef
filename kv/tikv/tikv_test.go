package tikv

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/autom8ter/cursorkit/kv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test(t *testing.T) {
	addr := os.Getenv("TIKV_PD_ADDR")
	if addr == "" {
		t.Skip("TIKV_PD_ADDR not set")
	}
	ctx := context.Background()
	db, err := New(addr)
	require.NoError(t, err)
	defer db.Close()
	data := map[string]string{}
	for i := 0; i < 10; i++ {
		data[fmt.Sprintf("cursorkit.%d", i)] = fmt.Sprint(i)
	}
	t.Run("set", func(t *testing.T) {
		assert.Nil(t, db.Tx(true, func(tx kv.Tx) error {
			for k, v := range data {
				assert.Nil(t, tx.Set(ctx, []byte(k), []byte(v)))
			}
			return nil
		}))
	})
	t.Run("get", func(t *testing.T) {
		assert.Nil(t, db.Tx(false, func(tx kv.Tx) error {
			for k, v := range data {
				data, err := tx.Get(ctx, []byte(k))
				assert.NoError(t, err)
				assert.EqualValues(t, string(v), string(data))
			}
			return nil
		}))
	})
	t.Run("iterate", func(t *testing.T) {
		assert.Nil(t, db.Tx(false, func(tx kv.Tx) error {
			iter, err := tx.NewIterator(kv.IterOpts{Prefix: []byte("cursorkit.")})
			assert.NoError(t, err)
			defer iter.Close()
			i := 0
			for iter.Valid() {
				i++
				val, _ := iter.Value()
				assert.EqualValues(t, string(val), data[string(iter.Key())])
				assert.NoError(t, iter.Next())
			}
			assert.Equal(t, len(data), i)
			return nil
		}))
	})
	t.Run("iterate reverse", func(t *testing.T) {
		assert.Nil(t, db.Tx(false, func(tx kv.Tx) error {
			iter, err := tx.NewIterator(kv.IterOpts{Prefix: []byte("cursorkit."), Seek: []byte("cursorkit.3"), Reverse: true})
			assert.NoError(t, err)
			defer iter.Close()
			var keys []string
			for iter.Valid() {
				keys = append(keys, string(iter.Key()))
				assert.NoError(t, iter.Next())
			}
			assert.Equal(t, []string{"cursorkit.2", "cursorkit.1", "cursorkit.0"}, keys)
			return nil
		}))
	})
	t.Run("delete", func(t *testing.T) {
		assert.Nil(t, db.Tx(true, func(tx kv.Tx) error {
			for k := range data {
				assert.Nil(t, tx.Delete(ctx, []byte(k)))
			}
			return nil
		}))
		assert.Nil(t, db.Tx(false, func(tx kv.Tx) error {
			for k := range data {
				bytes, _ := tx.Get(ctx, []byte(k))
				assert.Nil(t, bytes)
			}
			return nil
		}))
	})
}
