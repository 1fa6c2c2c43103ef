package substrate

import (
	"context"

	"github.com/autom8ter/cursorkit/errors"
	"github.com/autom8ter/cursorkit/internal/indexing"
	"github.com/autom8ter/cursorkit/kv"
	"github.com/autom8ter/cursorkit/kv/kvutil"
	"github.com/autom8ter/cursorkit/model"
)

// Cursor walks the records of a store or an index in key order. A cursor is positioned on its first record
// when it is opened and becomes invalid once it moves past the end of its range.
type Cursor struct {
	s          *ObjectStore
	idx        *model.IndexDescriptor
	iter       kv.Iterator
	start, end []byte
	value      model.Record
	pk         any
	valid      bool
	err        error
}

func openCursor(ctx context.Context, s *ObjectStore, idx *model.IndexDescriptor, p indexing.Path, r *model.KeyRange, dir model.Direction) (*Cursor, error) {
	if s.t.done {
		return nil, errors.Wrap(ErrTxnDone, errors.Internal, "")
	}
	start, end, err := p.Interval(r)
	if err != nil {
		return nil, errors.Wrap(err, errors.Validation, "invalid key range")
	}
	opts := kv.IterOpts{Prefix: p.Bytes(), Seek: start}
	if dir.Reverse() {
		opts = kv.IterOpts{Prefix: p.Bytes(), Seek: end, Reverse: true}
	}
	iter, err := s.t.tx.NewIterator(opts)
	if err != nil {
		return nil, errors.Wrap(err, errors.Internal, "failed to open cursor on %s", s.desc.Name)
	}
	c := &Cursor{s: s, idx: idx, iter: iter, start: start, end: end}
	if err := c.load(); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Cursor) load() error {
	c.valid = c.iter.Valid() && kvutil.InBounds(c.iter.Key(), c.start, c.end)
	c.value, c.pk = nil, nil
	if !c.valid {
		return nil
	}
	bits, err := c.iter.Value()
	if err != nil {
		c.valid = false
		return errors.Wrap(err, errors.Internal, "failed to read cursor value")
	}
	rec, err := decodeRecord(bits)
	if err != nil {
		c.valid = false
		return err
	}
	c.value = rec
	c.pk, _ = rec.Lookup(c.s.desc.PrimaryKey)
	return nil
}

// Valid reports whether the cursor is positioned on a record
func (c *Cursor) Valid() bool {
	return c.valid
}

// Err returns the error that invalidated the cursor, if any
func (c *Cursor) Err() error {
	return c.err
}

// Value returns the current record
func (c *Cursor) Value() model.Record {
	return c.value
}

// PrimaryKey returns the current record's primary key
func (c *Cursor) PrimaryKey() any {
	return c.pk
}

// Key returns the current index key, or the primary key on a store cursor
func (c *Cursor) Key() any {
	if c.idx == nil || c.value == nil {
		return c.pk
	}
	val, _ := indexing.IndexValue(c.value, *c.idx)
	return val
}

// Continue moves to the next record
func (c *Cursor) Continue(ctx context.Context) error {
	return c.Advance(ctx, 1)
}

// Advance moves n records forward in the cursor's direction
func (c *Cursor) Advance(ctx context.Context, n int) error {
	for i := 0; i < n && c.valid; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.iter.Next(); err != nil {
			c.valid, c.err = false, errors.Wrap(err, errors.Internal, "cursor failed")
			return c.err
		}
		c.valid = c.iter.Valid() && kvutil.InBounds(c.iter.Key(), c.start, c.end)
	}
	if err := c.load(); err != nil {
		c.err = err
		return err
	}
	return nil
}

// Update replaces the current record. The record keeps the current primary key.
func (c *Cursor) Update(ctx context.Context, rec model.Record) error {
	if !c.valid {
		return errors.New(errors.Validation, "cursor is not positioned on a record")
	}
	rec.Set(c.s.desc.PrimaryKey, c.pk)
	_, err := c.s.Put(ctx, rec)
	return err
}

// Delete deletes the current record
func (c *Cursor) Delete(ctx context.Context) error {
	if !c.valid {
		return errors.New(errors.Validation, "cursor is not positioned on a record")
	}
	return c.s.Delete(ctx, c.pk)
}

// Close releases the cursor
func (c *Cursor) Close() {
	if c.iter != nil {
		c.iter.Close()
		c.iter = nil
	}
	c.valid = false
}
