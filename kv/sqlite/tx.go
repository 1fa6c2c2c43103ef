package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/autom8ter/cursorkit/kv"
)

type sqliteTx struct {
	tx       *sql.Tx
	isUpdate bool
}

func (t *sqliteTx) Get(ctx context.Context, key []byte) ([]byte, error) {
	var val []byte
	err := t.tx.QueryRowContext(ctx, `SELECT v FROM kv WHERE k = ?;`, key).Scan(&val)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if val == nil {
		val = []byte{}
	}
	return val, nil
}

func (t *sqliteTx) Set(ctx context.Context, key, value []byte) error {
	if !t.isUpdate {
		return fmt.Errorf("writes forbidden in read-only transaction")
	}
	if value == nil {
		value = []byte{}
	}
	_, err := t.tx.ExecContext(ctx, `INSERT INTO kv (k, v) VALUES (?, ?) ON CONFLICT(k) DO UPDATE SET v = excluded.v;`, key, value)
	return err
}

func (t *sqliteTx) Delete(ctx context.Context, key []byte) error {
	if !t.isUpdate {
		return fmt.Errorf("writes forbidden in read-only transaction")
	}
	_, err := t.tx.ExecContext(ctx, `DELETE FROM kv WHERE k = ?;`, key)
	return err
}

func (t *sqliteTx) NewIterator(opts kv.IterOpts) (kv.Iterator, error) {
	i := newIterator(t.tx, opts)
	if err := i.fetch(); err != nil {
		return nil, err
	}
	return i, nil
}

func (t *sqliteTx) Commit(ctx context.Context) error {
	if !t.isUpdate {
		return t.tx.Rollback()
	}
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback(ctx context.Context) {
	_ = t.tx.Rollback()
}
