package cursorkit

import (
	"context"

	"github.com/autom8ter/cursorkit/errors"
	"github.com/autom8ter/cursorkit/future"
	"github.com/autom8ter/cursorkit/memset"
	"github.com/autom8ter/cursorkit/substrate"
)

// Count counts every record of the context's store
func (d *DB) Count(ctx context.Context, c *Context) *future.Future[int] {
	return run(d, ctx, c, func(ctx context.Context) (int, error) {
		var n int
		err := d.withTxn(ctx, c, substrate.ReadOnly, func(txn *substrate.Txn) error {
			store, err := txn.ObjectStore(c.Store)
			if err != nil {
				return err
			}
			n, err = store.Count(ctx, nil)
			return err
		})
		return n, err
	})
}

// ConditionCount counts the records in the index range of sel's first clause. Only the first clause is
// used. A selector whose first clause is not an index with a rangeable condition cannot be planned and
// returns an errors.Planning error right away.
func (d *DB) ConditionCount(ctx context.Context, sel memset.Selector, c *Context) (*future.Future[int], error) {
	if c == nil {
		return nil, errors.New(errors.Validation, "missing operation context")
	}
	desc, err := d.Descriptor(c.Store)
	if err != nil {
		return nil, err
	}
	first, ok := sel.First()
	if !ok {
		return nil, errors.New(errors.Planning, "an index condition is required to count %s", c.Store)
	}
	if _, ok := desc.Index(first.Field); !ok {
		return nil, errors.New(errors.Planning, "%s is not an index of %s", first.Field, c.Store)
	}
	r := GetRange(first.Value)
	if r == nil {
		return nil, errors.New(errors.Planning, "the condition on %s cannot be served by its index", first.Field)
	}
	if len(sel) > 1 {
		d.logger.Warn(ctx, "only the first condition is used to count", map[string]any{"index": first.Field})
	}
	return run(d, ctx, c, func(ctx context.Context) (int, error) {
		var n int
		err := d.withTxn(ctx, c, substrate.ReadOnly, func(txn *substrate.Txn) error {
			store, err := txn.ObjectStore(c.Store)
			if err != nil {
				return err
			}
			idx, err := store.Index(first.Field)
			if err != nil {
				return err
			}
			n, err = idx.Count(ctx, r)
			return err
		})
		return n, err
	}), nil
}
