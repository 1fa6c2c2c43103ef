// Package substrate is a record store database built on an ordered kv.DB. A database holds named object
// stores, each with a primary key and secondary indexes, and is read and written through transactions
// that expose ordered, resumable cursors.
package substrate

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/autom8ter/cursorkit/errors"
	"github.com/autom8ter/cursorkit/internal/indexing"
	"github.com/autom8ter/cursorkit/kv"
	"github.com/autom8ter/cursorkit/model"
)

var (
	// ErrKeyExists is returned by Add when the primary key is already taken
	ErrKeyExists = fmt.Errorf("key already exists")
	// ErrUniqueIndex is returned when a write would break a unique index
	ErrUniqueIndex = fmt.Errorf("unique index violation")
	// ErrTxnDone is returned when a finished transaction is used
	ErrTxnDone = fmt.Errorf("transaction already finished")
)

// Mode is a transaction's access mode
type Mode int

const (
	ReadOnly Mode = iota
	ReadWrite
)

// CommitHook is called with the changes of every committed read-write transaction
type CommitHook func(ctx context.Context, changes []model.Change)

// Handle is an open database
type Handle struct {
	kv     kv.DB
	name   string
	mu     sync.RWMutex
	schema model.Schema
	hook   CommitHook
}

// Open opens the named database on db. When version is above the stored version, upgrade runs inside a
// single read-write transaction and the resulting schema is stored with the new version.
// A version of 0 opens the database at its stored version.
func Open(ctx context.Context, db kv.DB, name string, version int, upgrade UpgradeFunc) (*Handle, error) {
	if name == "" {
		return nil, errors.New(errors.Validation, "empty database name")
	}
	h := &Handle{kv: db, name: name}
	tx, err := db.NewTx(true)
	if err != nil {
		return nil, errors.Wrap(err, errors.Internal, "failed to open database %s", name)
	}
	current, err := loadSchema(ctx, tx, name)
	if err != nil {
		tx.Rollback(ctx)
		return nil, err
	}
	if version <= 0 {
		version = current.Version
	}
	if version < current.Version {
		tx.Rollback(ctx)
		return nil, errors.New(errors.Validation, "database %s is at version %v, cannot open version %v", name, current.Version, version)
	}
	if version == current.Version {
		tx.Rollback(ctx)
		h.schema = current
		return h, nil
	}
	u := &UpgradeContext{
		OldVersion: current.Version,
		NewVersion: version,
		h:          h,
		tx:         tx,
		schema:     cloneSchema(current),
	}
	u.schema.Version = version
	if upgrade != nil {
		if err := upgrade(ctx, u); err != nil {
			tx.Rollback(ctx)
			return nil, errors.Wrap(err, 0, "failed to upgrade database %s to version %v", name, version)
		}
	}
	if err := saveSchema(ctx, tx, u.schema); err != nil {
		tx.Rollback(ctx)
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, errors.Internal, "failed to commit upgrade of %s", name)
	}
	h.schema = u.schema
	return h, nil
}

func loadSchema(ctx context.Context, tx kv.Tx, name string) (model.Schema, error) {
	bits, err := tx.Get(ctx, indexing.SchemaPath(name).Bytes())
	if err != nil {
		return model.Schema{}, errors.Wrap(err, errors.Internal, "failed to load schema of %s", name)
	}
	if bits == nil {
		return model.Schema{Name: name}, nil
	}
	var s model.Schema
	if err := json.Unmarshal(bits, &s); err != nil {
		return model.Schema{}, errors.Wrap(err, errors.Internal, "corrupt schema of %s", name)
	}
	return s, nil
}

func saveSchema(ctx context.Context, tx kv.Tx, s model.Schema) error {
	bits, err := json.Marshal(s)
	if err != nil {
		return errors.Wrap(err, errors.Internal, "")
	}
	return errors.Wrap(tx.Set(ctx, indexing.SchemaPath(s.Name).Bytes(), bits), errors.Internal, "failed to save schema")
}

func cloneSchema(s model.Schema) model.Schema {
	out := s
	out.Stores = make([]model.StoreDescriptor, len(s.Stores))
	for i, st := range s.Stores {
		st.Indexes = append([]model.IndexDescriptor{}, st.Indexes...)
		out.Stores[i] = st
	}
	return out
}

// OnCommit registers a hook called after read-write transactions commit
func (h *Handle) OnCommit(hook CommitHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hook = hook
}

// Name returns the database name
func (h *Handle) Name() string {
	return h.name
}

// Version returns the schema version
func (h *Handle) Version() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.schema.Version
}

// Schema returns a copy of the database schema
func (h *Handle) Schema() model.Schema {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return cloneSchema(h.schema)
}

// StoreNames returns the sorted names of every object store
func (h *Handle) StoreNames() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	names := make([]string, 0, len(h.schema.Stores))
	for _, s := range h.schema.Stores {
		names = append(names, s.Name)
	}
	sort.Strings(names)
	return names
}

// Store returns the named store's descriptor
func (h *Handle) Store(name string) (model.StoreDescriptor, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.schema.Store(name)
}

// Begin starts a transaction
func (h *Handle) Begin(ctx context.Context, mode Mode) (*Txn, error) {
	tx, err := h.kv.NewTx(mode == ReadWrite)
	if err != nil {
		return nil, errors.Wrap(err, errors.Internal, "failed to begin transaction")
	}
	return &Txn{h: h, tx: tx, mode: mode, schema: h.Schema()}, nil
}

// Close closes the underlying kv database
func (h *Handle) Close() error {
	return h.kv.Close()
}
