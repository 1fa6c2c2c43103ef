// Package kv is the ordered key value layer underneath the storage substrate.
// Providers register themselves with the registry package and are opened by name.
package kv

import "context"

// DB is an ordered, transactional key value database
type DB interface {
	// Tx runs fn inside a transaction. The transaction is committed if fn returns nil, otherwise it is rolled back
	Tx(isUpdate bool, fn func(Tx) error) error
	// NewTx opens a transaction that the caller must commit or roll back
	NewTx(isUpdate bool) (Tx, error)
	// Close closes the database
	Close() error
}

// IterOpts configure an iterator.
// In forward order Seek is the first key (inclusive) to visit.
// In reverse order Seek is an exclusive upper bound: iteration starts at the largest key below it.
type IterOpts struct {
	Prefix  []byte `json:"prefix"`
	Seek    []byte `json:"seek"`
	Reverse bool   `json:"reverse"`
}

// Tx is a database transaction. Get returns a nil value and a nil error for missing keys.
type Tx interface {
	Get(ctx context.Context, key []byte) ([]byte, error)
	Set(ctx context.Context, key, value []byte) error
	Delete(ctx context.Context, key []byte) error
	// NewIterator opens an iterator. Only one iterator may be open at a time per transaction.
	NewIterator(opts IterOpts) (Iterator, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context)
}

// Iterator walks keys in order. It is invalid once it leaves its prefix.
type Iterator interface {
	Valid() bool
	Key() []byte
	Value() ([]byte, error)
	Next() error
	Close()
}

// RunTx runs fn inside a new transaction of db, committing on success
func RunTx(ctx context.Context, db DB, isUpdate bool, fn func(Tx) error) error {
	tx, err := db.NewTx(isUpdate)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback(ctx)
		return err
	}
	if !isUpdate {
		tx.Rollback(ctx)
		return nil
	}
	return tx.Commit(ctx)
}
