package substrate

import (
	"context"
	"time"

	"github.com/autom8ter/cursorkit/errors"
	"github.com/autom8ter/cursorkit/kv"
	"github.com/autom8ter/cursorkit/model"
)

// Txn is a transaction over one or more object stores. Read-write transactions collect the changes they
// make and hand them to the database's commit hook once they commit.
type Txn struct {
	h       *Handle
	tx      kv.Tx
	mode    Mode
	schema  model.Schema
	changes []model.Change
	done    bool
}

// Mode returns the transaction's access mode
func (t *Txn) Mode() Mode {
	return t.mode
}

// Done reports whether the transaction was committed or aborted
func (t *Txn) Done() bool {
	return t.done
}

// ObjectStore returns the named store
func (t *Txn) ObjectStore(name string) (*ObjectStore, error) {
	if t.done {
		return nil, errors.Wrap(ErrTxnDone, errors.Internal, "")
	}
	desc, ok := t.schema.Store(name)
	if !ok {
		return nil, errors.New(errors.NotFound, "store %s does not exist in %s", name, t.h.name)
	}
	return &ObjectStore{t: t, desc: desc}, nil
}

// Commit commits the transaction. A read-only transaction is released.
func (t *Txn) Commit(ctx context.Context) error {
	if t.done {
		return errors.Wrap(ErrTxnDone, errors.Internal, "")
	}
	t.done = true
	if t.mode == ReadOnly {
		t.tx.Rollback(ctx)
		return nil
	}
	if err := t.tx.Commit(ctx); err != nil {
		return errors.Wrap(err, errors.Internal, "failed to commit transaction")
	}
	t.h.mu.RLock()
	hook := t.h.hook
	t.h.mu.RUnlock()
	if hook != nil && len(t.changes) > 0 {
		hook(ctx, t.changes)
	}
	t.changes = nil
	return nil
}

// Abort rolls the transaction back, discarding its writes. Aborting a finished transaction does nothing.
func (t *Txn) Abort(ctx context.Context) {
	if t.done {
		return
	}
	t.done = true
	t.changes = nil
	t.tx.Rollback(ctx)
}

func (t *Txn) record(store string, action model.Action, key any, rec model.Record) {
	t.changes = append(t.changes, model.Change{
		Store:     store,
		Action:    action,
		Key:       key,
		Record:    rec,
		Timestamp: time.Now(),
	})
}

func (t *Txn) writable() error {
	if t.done {
		return errors.Wrap(ErrTxnDone, errors.Internal, "")
	}
	if t.mode != ReadWrite {
		return errors.New(errors.Forbidden, "write in a read-only transaction")
	}
	return nil
}
