// Package sqlite is a kv provider backed by a single sqlite table of ordered blob keys.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/autom8ter/cursorkit/kv"
	"github.com/autom8ter/cursorkit/kv/registry"
	"github.com/autom8ter/cursorkit/util"
	_ "modernc.org/sqlite"
)

func init() {
	registry.Register("sqlite", func(params map[string]interface{}) (kv.DB, error) {
		opts, err := util.DecodeParams[Options](params)
		if err != nil {
			return nil, err
		}
		return Open(opts)
	})
}

// Options are the params of the sqlite provider
type Options struct {
	// Path is the database file. Empty keeps the database in memory.
	Path string `json:"path"`
	// BusyTimeout is how long, in milliseconds, a commit waits on a lock held by another process
	BusyTimeout int `json:"busy_timeout" validate:"min=0"`
}

func (o Options) dsn() string {
	if o.Path == "" {
		return ":memory:"
	}
	if o.BusyTimeout > 0 {
		return fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)", o.Path, o.BusyTimeout)
	}
	return o.Path
}

const schema = `CREATE TABLE IF NOT EXISTS kv (
	k BLOB NOT NULL PRIMARY KEY,
	v BLOB NOT NULL
) WITHOUT ROWID;`

type sqliteKV struct {
	db *sql.DB
}

// New opens the sqlite database at dsn. An empty dsn opens an in-memory database.
func New(dsn string) (kv.DB, error) {
	if dsn == "" {
		dsn = ":memory:"
	}
	return open(dsn)
}

// Open opens the sqlite database described by o
func Open(o Options) (kv.DB, error) {
	return open(o.dsn())
}

func open(dsn string) (kv.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", dsn, err)
	}
	// one connection: every transaction is serialized and in-memory databases are not split across connections
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create kv table: %w", err)
	}
	return &sqliteKV{db: db}, nil
}

func (s *sqliteKV) Tx(isUpdate bool, fn func(kv.Tx) error) error {
	return kv.RunTx(context.Background(), s, isUpdate, fn)
}

func (s *sqliteKV) NewTx(isUpdate bool) (kv.Tx, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	return &sqliteTx{tx: tx, isUpdate: isUpdate}, nil
}

func (s *sqliteKV) Close() error {
	return s.db.Close()
}
