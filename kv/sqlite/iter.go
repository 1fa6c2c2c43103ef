package sqlite

import (
	"bytes"
	"database/sql"
	"fmt"
	"strings"

	"github.com/autom8ter/cursorkit/kv"
	"github.com/autom8ter/cursorkit/kv/kvutil"
)

const pageSize = 256

type pair struct {
	key, value []byte
}

// sqliteIterator pages through the kv table by key so no result set stays open between calls
type sqliteIterator struct {
	tx    *sql.Tx
	opts  kv.IterOpts
	lower []byte
	upper []byte
	// last key of the previous page, exclusive
	after []byte
	page  []pair
	pos   int
	done  bool
	err   error
}

func newIterator(tx *sql.Tx, opts kv.IterOpts) *sqliteIterator {
	i := &sqliteIterator{tx: tx, opts: opts}
	if len(opts.Prefix) > 0 {
		i.lower = opts.Prefix
		if next := kvutil.NextPrefix(opts.Prefix); len(next) > 0 {
			i.upper = next
		}
	}
	if opts.Seek != nil {
		if opts.Reverse {
			if i.upper == nil || bytes.Compare(opts.Seek, i.upper) < 0 {
				i.upper = opts.Seek
			}
		} else if i.lower == nil || bytes.Compare(opts.Seek, i.lower) > 0 {
			i.lower = opts.Seek
		}
	}
	return i
}

func (i *sqliteIterator) fetch() error {
	var (
		where []string
		args  []any
	)
	if i.lower != nil {
		where = append(where, "k >= ?")
		args = append(args, i.lower)
	}
	if i.upper != nil {
		where = append(where, "k < ?")
		args = append(args, i.upper)
	}
	order := "ASC"
	if i.opts.Reverse {
		order = "DESC"
		if i.after != nil {
			where = append(where, "k < ?")
			args = append(args, i.after)
		}
	} else if i.after != nil {
		where = append(where, "k > ?")
		args = append(args, i.after)
	}
	query := "SELECT k, v FROM kv"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY k %s LIMIT %d;", order, pageSize)
	rows, err := i.tx.Query(query, args...)
	if err != nil {
		return fmt.Errorf("query kv page: %w", err)
	}
	defer rows.Close()
	i.page = i.page[:0]
	i.pos = 0
	for rows.Next() {
		var p pair
		if err := rows.Scan(&p.key, &p.value); err != nil {
			return fmt.Errorf("scan kv row: %w", err)
		}
		i.page = append(i.page, p)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if len(i.page) < pageSize {
		i.done = true
	}
	if len(i.page) > 0 {
		i.after = i.page[len(i.page)-1].key
	}
	return nil
}

func (i *sqliteIterator) Valid() bool {
	return i.err == nil && i.pos < len(i.page)
}

func (i *sqliteIterator) Key() []byte {
	return i.page[i.pos].key
}

func (i *sqliteIterator) Value() ([]byte, error) {
	return i.page[i.pos].value, nil
}

func (i *sqliteIterator) Next() error {
	i.pos++
	if i.pos < len(i.page) || i.done {
		return nil
	}
	if err := i.fetch(); err != nil {
		i.err = err
		return err
	}
	return nil
}

func (i *sqliteIterator) Close() {
	i.page = nil
}
