package cursorkit

import (
	"context"
	"strings"

	"github.com/autom8ter/cursorkit/future"
	"github.com/autom8ter/cursorkit/memset"
	"github.com/autom8ter/cursorkit/model"
	"github.com/autom8ter/cursorkit/substrate"
)

// Update applies the context's $set, $inc, $let and $validate directives to the records matching sel.
// Unless c.Force is set, records whose tag does not allow an update are left untouched. A record that
// fails to persist is logged and reported in Result.Failed without stopping the others.
// With c.Upsert, an update matching nothing inserts c.Patch merged with the literal $set fields.
func (d *DB) Update(ctx context.Context, sel memset.Selector, c *Context) *future.Future[*Result] {
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
			for i, rec := range result.Records {
				if !c.Force && model.UpdateTag(rec, model.TagUpdate) != model.TagUpdate {
					continue
				}
				updated := applyUpdate(rec, c)
				if updated == nil {
					continue
				}
				result.Records[i] = updated
				if _, err := store.Put(ctx, updated); err != nil {
					key := updated.Get(store.KeyPath())
					d.logger.Error(ctx, "failed to update record", err, map[string]any{"key": key})
					result.Failed = append(result.Failed, newFailure(-1, key, updated, err))
				}
			}
			if len(result.Records) == 0 && c.Upsert && len(c.Set) > 0 && c.Patch != nil {
				rec := upsertRecord(c)
				failures, err := d.insertRecords(ctx, c, store, []model.Record{rec}, 0)
				if err != nil {
					return err
				}
				result.Failed = append(result.Failed, failures...)
				result.Records = []model.Record{rec}
			}
			return nil
		})
		return result, err
	})
}

// applyUpdate runs the update directives against rec in place and returns the record to persist
func applyUpdate(rec model.Record, c *Context) model.Record {
	if len(c.Set) > 0 {
		rec = memset.Update(rec, c.Set)
	}
	for k, v := range c.Inc {
		rec.Set(k, memset.AssignValue(memset.OpInc, rec.Get(k), v))
	}
	if c.Let != nil {
		if replaced := c.Let(rec); replaced != nil {
			rec = replaced
		}
	}
	if c.Validate != nil && rec != nil {
		rec[model.OldErrorField] = rec[model.ErrorField]
		rec[model.ErrorField] = c.Validate(rec)
	}
	return rec
}

// upsertRecord merges the literal $set fields into the context's patch
func upsertRecord(c *Context) model.Record {
	rec := model.Record(c.Patch).Clone(3)
	for _, clause := range c.Set {
		if _, ok := memset.OperatorsOf(clause.Value); ok {
			continue
		}
		if ref, ok := clause.Value.(string); ok && strings.HasPrefix(ref, "@") {
			continue
		}
		rec.Set(clause.Field, clause.Value)
	}
	return rec
}
