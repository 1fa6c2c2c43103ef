package cursorkit

import (
	"context"

	"github.com/autom8ter/cursorkit/future"
	"github.com/autom8ter/cursorkit/memset"
	"github.com/autom8ter/cursorkit/model"
	"github.com/autom8ter/cursorkit/substrate"
)

// Remove soft deletes the records matching sel by tagging them REMOVE. Records that were never reconciled
// (tagged ADD) and every record when c.Force is set are physically deleted; the returned copies of those are
// tagged FORCE_REMOVE. Records already tagged REMOVE are left as is.
func (d *DB) Remove(ctx context.Context, sel memset.Selector, c *Context) *future.Future[*Result] {
	return run(d, ctx, c, func(ctx context.Context) (*Result, error) {
		var result *Result
		err := d.withTxn(ctx, c, substrate.ReadWrite, func(txn *substrate.Txn) error {
			var err error
			result, err = d.scan(ctx, c, txn, sel, true)
			if err != nil {
				return err
			}
			store, err := txn.ObjectStore(c.Store)
			if err != nil {
				return err
			}
			for _, rec := range result.Records {
				key := rec.Get(store.KeyPath())
				tag := model.TagForceRemove
				if !c.Force {
					tag = model.UpdateTag(rec, model.TagRemove)
				}
				switch tag {
				case model.TagSilent:
					continue
				case model.TagRemove:
					_, err = store.Put(ctx, rec)
				default:
					rec[model.TagField] = model.TagForceRemove
					err = store.Delete(ctx, key)
				}
				if err != nil {
					d.logger.Error(ctx, "failed to remove record", err, map[string]any{"key": key})
					result.Failed = append(result.Failed, newFailure(-1, key, rec, err))
				}
			}
			return nil
		})
		return result, err
	})
}

// RemoveItem physically deletes the records stored under ids. An id may also be a record holding its
// primary key. It resolves with the deleted keys.
func (d *DB) RemoveItem(ctx context.Context, ids []any, c *Context) *future.Future[[]any] {
	return run(d, ctx, c, func(ctx context.Context) ([]any, error) {
		var keys []any
		err := d.withTxn(ctx, c, substrate.ReadWrite, func(txn *substrate.Txn) error {
			store, err := txn.ObjectStore(c.Store)
			if err != nil {
				return err
			}
			for _, id := range ids {
				key := id
				switch rec := id.(type) {
				case model.Record:
					key = rec.Get(store.KeyPath())
				case map[string]any:
					key = model.Record(rec).Get(store.KeyPath())
				}
				if err := store.Delete(ctx, key); err != nil {
					return err
				}
				keys = append(keys, key)
			}
			return nil
		})
		return keys, err
	})
}

// Clear deletes every record of the given stores. "*" clears every store of the database.
func (d *DB) Clear(ctx context.Context, c *Context, stores ...string) *future.Future[[]string] {
	return run(d, ctx, c, func(ctx context.Context) ([]string, error) {
		if len(stores) == 0 {
			stores = []string{c.Store}
		}
		if len(stores) == 1 && stores[0] == "*" {
			stores = d.handle.StoreNames()
		}
		err := d.withTxn(ctx, c, substrate.ReadWrite, func(txn *substrate.Txn) error {
			for _, name := range stores {
				store, err := txn.ObjectStore(name)
				if err != nil {
					return err
				}
				if err := store.Clear(ctx); err != nil {
					return err
				}
			}
			return nil
		})
		return stores, err
	})
}
