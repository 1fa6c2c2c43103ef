// Package cursorkit is a query engine over an ordered, index capable cursor store. Callers describe what
// they want with selectors written in a $ operator language; the engine plans an index range for the
// first selector clause, filters the rest in memory and drives find, update, remove and chunked insert
// operations over substrate cursors. Every operation runs on a single FIFO worker and returns a future.
package cursorkit

import (
	"context"

	"github.com/autom8ter/cursorkit/errors"
	"github.com/autom8ter/cursorkit/future"
	"github.com/autom8ter/cursorkit/internal/safe"
	"github.com/autom8ter/cursorkit/internal/scheduler"
	"github.com/autom8ter/cursorkit/kv"
	"github.com/autom8ter/cursorkit/kv/registry"
	"github.com/autom8ter/cursorkit/model"
	"github.com/autom8ter/cursorkit/substrate"
	"github.com/autom8ter/machine/v4"

	// registered kv providers
	_ "github.com/autom8ter/cursorkit/kv/badger"
	_ "github.com/autom8ter/cursorkit/kv/sqlite"
	_ "github.com/autom8ter/cursorkit/kv/tikv"
)

// DB is an open database
type DB struct {
	config     Config
	logger     Logger
	kv         kv.DB
	handle     *substrate.Handle
	machine    machine.Machine
	sched      *scheduler.Scheduler
	cancel     context.CancelFunc
	validators *safe.Map[Validator]
	stores     *safe.Map[*Store]
}

// Open opens the configured kv provider and the database on top of it.
// upgrade runs when the configured schema version is above the stored one; it defaults to creating the
// schema's missing stores and indexes.
func Open(ctx context.Context, cfg Config, upgrade substrate.UpgradeFunc) (*DB, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	db, err := registry.Open(cfg.Provider, cfg.Params)
	if err != nil {
		return nil, errors.Wrap(err, 0, "failed to open %s provider", cfg.Provider)
	}
	d, err := New(ctx, db, cfg, upgrade)
	if err != nil {
		db.Close()
		return nil, err
	}
	return d, nil
}

// New opens the database on an already open kv database
func New(ctx context.Context, db kv.DB, cfg Config, upgrade substrate.UpgradeFunc) (*DB, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		l, err := NewLogger(cfg.LogLevel, map[string]any{"db": cfg.Name})
		if err != nil {
			return nil, errors.Wrap(err, errors.Internal, "failed to create logger")
		}
		logger = l
	}
	version := 0
	if cfg.Schema != nil {
		version = cfg.Schema.Version
		if upgrade == nil {
			upgrade = substrate.ApplySchema(*cfg.Schema)
		}
	}
	handle, err := substrate.Open(ctx, db, cfg.Name, version, upgrade)
	if err != nil {
		return nil, err
	}
	sctx, cancel := context.WithCancel(context.Background())
	m := machine.New()
	d := &DB{
		config:     cfg,
		logger:     logger,
		kv:         db,
		handle:     handle,
		machine:    m,
		sched:      scheduler.New(sctx, m),
		cancel:     cancel,
		validators: safe.NewMap(map[string]Validator{}),
		stores:     safe.NewMap(map[string]*Store{}),
	}
	for _, s := range handle.Schema().Stores {
		if len(s.JSONSchema) == 0 {
			continue
		}
		v, err := JSONSchema(s.JSONSchema)
		if err != nil {
			cancel()
			return nil, errors.Wrap(err, errors.Validation, "invalid json schema on store %s", s.Name)
		}
		d.validators.Set(s.Name, v)
	}
	handle.OnCommit(d.publish)
	logger.Debug(ctx, "opened database", map[string]any{
		"version": handle.Version(),
		"stores":  handle.StoreNames(),
	})
	return d, nil
}

// Name returns the database name
func (d *DB) Name() string {
	return d.config.Name
}

// Logger returns the database logger
func (d *DB) Logger() Logger {
	return d.logger
}

// Handle returns the underlying substrate database
func (d *DB) Handle() *substrate.Handle {
	return d.handle
}

// StoreNames returns the names of every store
func (d *DB) StoreNames() []string {
	return d.handle.StoreNames()
}

// Descriptor returns the named store's descriptor
func (d *DB) Descriptor(store string) (model.StoreDescriptor, error) {
	desc, ok := d.handle.Store(store)
	if !ok {
		return model.StoreDescriptor{}, errors.New(errors.NotFound, "store %s does not exist", store)
	}
	return desc, nil
}

// Close waits for queued operations to finish, then closes the database
func (d *DB) Close(ctx context.Context) error {
	err := d.sched.Close(ctx)
	d.cancel()
	if werr := d.machine.Wait(); err == nil {
		err = werr
	}
	if cerr := d.handle.Close(); err == nil {
		err = cerr
	}
	return err
}

// Batch runs fn as one operation inside a single read-write transaction. Operations started inside fn with c
// run inline on that transaction, which commits once fn returns nil.
func (d *DB) Batch(ctx context.Context, c *Context, fn func(ctx context.Context, c *Context) error) *future.Future[struct{}] {
	return run(d, ctx, c, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, d.withTxn(ctx, c, substrate.ReadWrite, func(txn *substrate.Txn) error {
			return fn(ctx, c)
		})
	})
}

// run schedules task and settles the returned future with its outcome. Inside a running transaction the
// task runs inline since the worker is already busy with the outer operation.
func run[T any](d *DB, ctx context.Context, c *Context, task func(ctx context.Context) (T, error)) *future.Future[T] {
	f := future.New[T]()
	if c == nil {
		f.Reject(errors.New(errors.Validation, "missing operation context"))
		return f
	}
	ctx = c.ToContext(ctx)
	if c.txn != nil {
		f.Settle(task(ctx))
		return f
	}
	if err := d.sched.Submit(func(_ context.Context) {
		f.Settle(task(ctx))
	}); err != nil {
		f.Reject(err)
	}
	return f
}

// withTxn runs fn in the context's transaction, or in a new one that commits when fn succeeds
func (d *DB) withTxn(ctx context.Context, c *Context, mode substrate.Mode, fn func(txn *substrate.Txn) error) error {
	if c.txn != nil {
		if mode == substrate.ReadWrite && c.txn.Mode() != substrate.ReadWrite {
			return errors.New(errors.Internal, "write nested in a read-only transaction")
		}
		return fn(c.txn)
	}
	txn, err := d.handle.Begin(ctx, mode)
	if err != nil {
		return err
	}
	c.txn = txn
	defer func() { c.txn = nil }()
	if err := fn(txn); err != nil {
		txn.Abort(ctx)
		return err
	}
	return txn.Commit(ctx)
}
