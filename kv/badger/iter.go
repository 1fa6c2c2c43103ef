package badger

import (
	"bytes"

	"github.com/autom8ter/cursorkit/kv"
	"github.com/autom8ter/cursorkit/kv/kvutil"
	"github.com/dgraph-io/badger/v3"
)

type badgerIterator struct {
	opts kv.IterOpts
	iter *badger.Iterator
}

func (b *badgerIterator) seek() {
	switch {
	case b.opts.Reverse:
		seek := b.opts.Seek
		if seek == nil && len(b.opts.Prefix) > 0 {
			seek = kvutil.NextPrefix(b.opts.Prefix)
		}
		if len(seek) == 0 {
			b.iter.Rewind()
			return
		}
		// badger seeks to the largest key <= seek, the bound is exclusive
		b.iter.Seek(seek)
		if b.iter.Valid() && bytes.Equal(b.iter.Item().Key(), seek) {
			b.iter.Next()
		}
	case b.opts.Seek != nil:
		b.iter.Seek(b.opts.Seek)
	default:
		b.iter.Rewind()
	}
}

func (b *badgerIterator) Close() {
	b.iter.Close()
}

func (b *badgerIterator) Valid() bool {
	if b.opts.Prefix != nil {
		return b.iter.ValidForPrefix(b.opts.Prefix)
	}
	return b.iter.Valid()
}

func (b *badgerIterator) Key() []byte {
	return b.iter.Item().KeyCopy(nil)
}

func (b *badgerIterator) Value() ([]byte, error) {
	return b.iter.Item().ValueCopy(nil)
}

func (b *badgerIterator) Next() error {
	b.iter.Next()
	return nil
}
