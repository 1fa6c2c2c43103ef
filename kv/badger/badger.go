package badger

import (
	"context"

	"github.com/autom8ter/cursorkit/kv"
	"github.com/autom8ter/cursorkit/kv/registry"
	"github.com/autom8ter/cursorkit/util"
	"github.com/dgraph-io/badger/v3"
)

func init() {
	registry.Register("badger", func(params map[string]interface{}) (kv.DB, error) {
		opts, err := util.DecodeParams[Options](params)
		if err != nil {
			return nil, err
		}
		return Open(opts)
	})
}

// Options are the params of the badger provider
type Options struct {
	// StoragePath is the data directory. Empty keeps the database in memory.
	StoragePath string `json:"storage_path"`
	// SyncWrites syncs every commit to disk
	SyncWrites bool `json:"sync_writes"`
	// IndexCacheSize bounds the memory, in bytes, of the block index cache. 0 keeps indexes in memory.
	IndexCacheSize int64 `json:"index_cache_size" validate:"min=0"`
}

type badgerKV struct {
	db *badger.DB
}

// New opens a badger database at storagePath. An empty path opens an in-memory database.
func New(storagePath string) (kv.DB, error) {
	return Open(Options{StoragePath: storagePath})
}

// Open opens a badger database with the given options
func Open(o Options) (kv.DB, error) {
	opts := badger.DefaultOptions(o.StoragePath)
	if o.StoragePath == "" {
		opts.InMemory = true
		opts.Dir = ""
		opts.ValueDir = ""
	}
	opts = opts.
		WithLoggingLevel(badger.ERROR).
		WithSyncWrites(o.SyncWrites).
		WithIndexCacheSize(o.IndexCacheSize)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &badgerKV{
		db: db,
	}, nil
}

func (b *badgerKV) Tx(isUpdate bool, fn func(kv.Tx) error) error {
	return kv.RunTx(context.Background(), b, isUpdate, fn)
}

func (b *badgerKV) NewTx(isUpdate bool) (kv.Tx, error) {
	return &badgerTx{txn: b.db.NewTransaction(isUpdate), isUpdate: isUpdate}, nil
}

func (b *badgerKV) Close() error {
	if !b.db.Opts().InMemory {
		if err := b.db.Sync(); err != nil {
			return err
		}
	}
	return b.db.Close()
}
