package cursorkit

import (
	"context"
	"fmt"

	"github.com/autom8ter/cursorkit/errors"
	"github.com/autom8ter/cursorkit/future"
	"github.com/autom8ter/cursorkit/model"
	"github.com/autom8ter/cursorkit/substrate"
	"github.com/spf13/cast"
)

// InsertResult is the outcome of a bulk insert
type InsertResult struct {
	// Records holds every input record in input order, including the ones that failed
	Records []model.Record `json:"records"`
	// Failed lists the records that could not be added, ex: because their primary key was taken
	Failed []Failure `json:"failed,omitempty"`
	// Chunks is the number of transactions the insert was split into
	Chunks int `json:"chunks"`
}

// AbortError rejects a bulk insert whose transaction was rolled back. Data holds the records of the aborted
// chunk; earlier chunks stay committed.
type AbortError struct {
	Data []model.Record
	Err  error
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("transaction aborted with %v records: %v", len(e.Data), e.Err)
}

func (e *AbortError) Unwrap() error {
	return e.Err
}

// AsAbortError returns the AbortError in err's chain
func AsAbortError(err error) (*AbortError, bool) {
	var abort *AbortError
	if errors.As(err, &abort) {
		return abort, true
	}
	return nil, false
}

func abort(data []model.Record, err error) error {
	return errors.Wrap(&AbortError{Data: data, Err: err}, errors.Aborted, "")
}

// Insert adds records to the context's store, c.ChunkSize records per transaction. Between chunks the
// insert yields to other queued operations. Records with a negative primary key are tagged ADD. A record
// whose primary key is taken is reported in InsertResult.Failed; with c.Upsert, or when c.FixItem returns
// true for it, the record replaces the existing one instead. A unique index violation or a failed commit
// rejects the insert with an AbortError.
func (d *DB) Insert(ctx context.Context, records []model.Record, c *Context) *future.Future[*InsertResult] {
	f := future.New[*InsertResult]()
	if c == nil {
		f.Reject(errors.New(errors.Validation, "missing operation context"))
		return f
	}
	result := &InsertResult{Records: append([]model.Record{}, records...)}
	if c.txn != nil {
		failures, err := d.insertRecords(ctx, c, nil, result.Records, 0)
		result.Failed = failures
		result.Chunks = 1
		f.Settle(result, err)
		return f
	}
	d.insertChunk(ctx, f, result, 0, c)
	return f
}

func (d *DB) insertChunk(ctx context.Context, f *future.Future[*InsertResult], result *InsertResult, offset int, c *Context) {
	if err := d.sched.Submit(func(_ context.Context) {
		ctx := c.ToContext(ctx)
		end := offset + d.config.ChunkSize
		if end > len(result.Records) {
			end = len(result.Records)
		}
		chunk := result.Records[offset:end]
		err := d.withTxn(ctx, c, substrate.ReadWrite, func(txn *substrate.Txn) error {
			failures, err := d.insertRecords(ctx, c, nil, chunk, offset)
			result.Failed = append(result.Failed, failures...)
			return err
		})
		if err != nil {
			if _, ok := AsAbortError(err); !ok {
				err = abort(chunk, err)
			}
			d.logger.Error(ctx, "insert aborted", err, map[string]any{"chunk": result.Chunks, "offset": offset})
			f.Reject(err)
			return
		}
		result.Chunks++
		if end < len(result.Records) {
			d.insertChunk(ctx, f, result, end, c)
			return
		}
		f.Resolve(result)
	}); err != nil {
		f.Reject(err)
	}
}

// insertRecords writes records into the store inside the context's transaction. offset is the position of
// the first record in the caller's input.
func (d *DB) insertRecords(ctx context.Context, c *Context, store *substrate.ObjectStore, records []model.Record, offset int) ([]Failure, error) {
	if store == nil {
		var err error
		if store, err = c.txn.ObjectStore(c.Store); err != nil {
			return nil, err
		}
	}
	var failures []Failure
	for i, rec := range records {
		if rec == nil {
			continue
		}
		if pk, ok := rec.Lookup(store.KeyPath()); ok && isNegative(pk) {
			model.UpdateTag(rec, model.TagAdd)
		}
		if c.Validate != nil {
			rec[model.ErrorField] = c.Validate(rec)
		}
		var err error
		if (c.FixItem != nil && c.FixItem(rec, offset+i)) || c.Upsert {
			_, err = store.Put(ctx, rec)
		} else {
			_, err = store.Add(ctx, rec)
		}
		if err == nil {
			continue
		}
		if errors.Is(err, substrate.ErrUniqueIndex) {
			return failures, abort(records, err)
		}
		key := rec.Get(store.KeyPath())
		d.logger.Error(ctx, "failed to insert record", err, map[string]any{"key": key, "index": offset + i})
		failures = append(failures, newFailure(offset+i, key, rec, err))
	}
	return failures, nil
}

func isNegative(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64, float32, float64:
		return cast.ToFloat64(v) < 0
	}
	return false
}
