package badger

import (
	"context"

	"github.com/autom8ter/cursorkit/kv"
	"github.com/dgraph-io/badger/v3"
)

type badgerTx struct {
	txn      *badger.Txn
	isUpdate bool
}

func (b *badgerTx) NewIterator(kopts kv.IterOpts) (kv.Iterator, error) {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = true
	opts.PrefetchSize = 10
	opts.Prefix = kopts.Prefix
	opts.Reverse = kopts.Reverse
	iter := b.txn.NewIterator(opts)
	i := &badgerIterator{iter: iter, opts: kopts}
	i.seek()
	return i, nil
}

func (b *badgerTx) Get(ctx context.Context, key []byte) ([]byte, error) {
	i, err := b.txn.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}
	return i.ValueCopy(nil)
}

func (b *badgerTx) Set(ctx context.Context, key, value []byte) error {
	return b.txn.SetEntry(badger.NewEntry(key, value))
}

func (b *badgerTx) Delete(ctx context.Context, key []byte) error {
	return b.txn.Delete(key)
}

func (b *badgerTx) Rollback(ctx context.Context) {
	b.txn.Discard()
}

func (b *badgerTx) Commit(ctx context.Context) error {
	if !b.isUpdate {
		b.txn.Discard()
		return nil
	}
	return b.txn.Commit()
}
