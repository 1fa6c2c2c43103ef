package badger_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/autom8ter/cursorkit/kv"
	"github.com/autom8ter/cursorkit/kv/badger"
	"github.com/autom8ter/cursorkit/kv/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test(t *testing.T) {
	ctx := context.Background()
	db, err := badger.New("")
	require.NoError(t, err)
	defer db.Close()
	data := map[string]string{}
	for i := 0; i < 10; i++ {
		data[fmt.Sprint(i)] = fmt.Sprint(i)
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
				assert.Nil(t, err)
				assert.EqualValues(t, string(v), string(data))
			}
			return nil
		}))
	})
	t.Run("get missing", func(t *testing.T) {
		assert.Nil(t, db.Tx(false, func(tx kv.Tx) error {
			val, err := tx.Get(ctx, []byte("missing"))
			assert.Nil(t, err)
			assert.Nil(t, val)
			return nil
		}))
	})
	t.Run("iterate", func(t *testing.T) {
		assert.Nil(t, db.Tx(false, func(tx kv.Tx) error {
			iter, err := tx.NewIterator(kv.IterOpts{})
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
	t.Run("iterate seek", func(t *testing.T) {
		assert.Nil(t, db.Tx(false, func(tx kv.Tx) error {
			iter, err := tx.NewIterator(kv.IterOpts{Seek: []byte("5")})
			assert.NoError(t, err)
			defer iter.Close()
			var keys []string
			for iter.Valid() {
				keys = append(keys, string(iter.Key()))
				assert.NoError(t, iter.Next())
			}
			assert.Equal(t, []string{"5", "6", "7", "8", "9"}, keys)
			return nil
		}))
	})
	t.Run("iterate reverse with exclusive seek", func(t *testing.T) {
		assert.Nil(t, db.Tx(false, func(tx kv.Tx) error {
			iter, err := tx.NewIterator(kv.IterOpts{Seek: []byte("3"), Reverse: true})
			assert.NoError(t, err)
			defer iter.Close()
			var keys []string
			for iter.Valid() {
				keys = append(keys, string(iter.Key()))
				assert.NoError(t, iter.Next())
			}
			assert.Equal(t, []string{"2", "1", "0"}, keys)
			return nil
		}))
	})
	t.Run("rollback on error", func(t *testing.T) {
		err := db.Tx(true, func(tx kv.Tx) error {
			assert.NoError(t, tx.Set(ctx, []byte("rolled"), []byte("back")))
			return fmt.Errorf("abort")
		})
		assert.Error(t, err)
		assert.Nil(t, db.Tx(false, func(tx kv.Tx) error {
			val, err := tx.Get(ctx, []byte("rolled"))
			assert.NoError(t, err)
			assert.Nil(t, val)
			return nil
		}))
	})
}

func TestRegistry(t *testing.T) {
	db, err := registry.Open("badger", map[string]interface{}{})
	require.NoError(t, err)
	assert.NoError(t, db.Close())
	assert.Contains(t, registry.Providers(), "badger")
	_, err = registry.Open("nope", nil)
	assert.Error(t, err)
	_, err = registry.Open("badger", map[string]interface{}{"index_cache_size": -1})
	assert.Error(t, err)
}

func TestPersistence(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	params := map[string]interface{}{"storage_path": dir, "sync_writes": "true"}
	db, err := registry.Open("badger", params)
	require.NoError(t, err)
	require.NoError(t, db.Tx(true, func(tx kv.Tx) error {
		return tx.Set(ctx, []byte("kept"), []byte("1"))
	}))
	require.NoError(t, db.Close())

	db, err = registry.Open("badger", params)
	require.NoError(t, err)
	defer db.Close()
	assert.NoError(t, db.Tx(false, func(tx kv.Tx) error {
		val, err := tx.Get(ctx, []byte("kept"))
		assert.NoError(t, err)
		assert.Equal(t, "1", string(val))
		return nil
	}))
}
