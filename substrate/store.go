package substrate

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"strconv"

	"github.com/autom8ter/cursorkit/errors"
	"github.com/autom8ter/cursorkit/internal/indexing"
	"github.com/autom8ter/cursorkit/kv"
	"github.com/autom8ter/cursorkit/model"
	"github.com/google/uuid"
	"github.com/segmentio/ksuid"
	"github.com/spf13/cast"
)

// ObjectStore is a store opened inside a transaction
type ObjectStore struct {
	t    *Txn
	desc model.StoreDescriptor
}

func uniquePath(db, store, index string) indexing.Path {
	return indexing.NewPath(db, "unique", store, index)
}

// Name returns the store name
func (s *ObjectStore) Name() string {
	return s.desc.Name
}

// KeyPath returns the primary key field
func (s *ObjectStore) KeyPath() string {
	return s.desc.PrimaryKey
}

// Descriptor returns the store's descriptor
func (s *ObjectStore) Descriptor() model.StoreDescriptor {
	return s.desc
}

// IndexNames returns the names of the store's indexes
func (s *ObjectStore) IndexNames() []string {
	var names []string
	for _, i := range s.desc.Indexes {
		names = append(names, i.Name)
	}
	return names
}

// HasIndex reports whether the store has the named index
func (s *ObjectStore) HasIndex(name string) bool {
	_, ok := s.desc.Index(name)
	return ok
}

// Index returns the named index
func (s *ObjectStore) Index(name string) (*Index, error) {
	idx, ok := s.desc.Index(name)
	if !ok {
		return nil, errors.New(errors.NotFound, "index %s does not exist on %s", name, s.desc.Name)
	}
	return &Index{s: s, desc: idx}, nil
}

func (s *ObjectStore) records() indexing.Path {
	return indexing.RecordsPath(s.t.h.name, s.desc.Name)
}

func (s *ObjectStore) recordKey(key any) ([]byte, error) {
	p, err := s.records().Append(key)
	if err != nil {
		return nil, errors.Wrap(err, errors.Validation, "invalid primary key %v", key)
	}
	return p.Bytes(), nil
}

// Get returns the record stored under key or nil if there is none
func (s *ObjectStore) Get(ctx context.Context, key any) (model.Record, error) {
	k, err := s.recordKey(key)
	if err != nil {
		return nil, err
	}
	return s.get(ctx, k)
}

func (s *ObjectStore) get(ctx context.Context, k []byte) (model.Record, error) {
	bits, err := s.t.tx.Get(ctx, k)
	if err != nil {
		return nil, errors.Wrap(err, errors.Internal, "failed to get record from %s", s.desc.Name)
	}
	if bits == nil {
		return nil, nil
	}
	return decodeRecord(bits)
}

func decodeRecord(bits []byte) (model.Record, error) {
	var rec model.Record
	if err := json.Unmarshal(bits, &rec); err != nil {
		return nil, errors.Wrap(err, errors.Internal, "corrupt record")
	}
	return rec, nil
}

// Add inserts a record, failing with ErrKeyExists if its primary key is taken.
// It returns the record's primary key.
func (s *ObjectStore) Add(ctx context.Context, rec model.Record) (any, error) {
	return s.put(ctx, rec, false)
}

// Put inserts or replaces a record and returns its primary key
func (s *ObjectStore) Put(ctx context.Context, rec model.Record) (any, error) {
	return s.put(ctx, rec, true)
}

func (s *ObjectStore) put(ctx context.Context, rec model.Record, overwrite bool) (any, error) {
	if err := s.t.writable(); err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, errors.New(errors.Validation, "empty record")
	}
	pk, err := s.primaryKey(ctx, rec)
	if err != nil {
		return nil, err
	}
	k, err := s.recordKey(pk)
	if err != nil {
		return nil, err
	}
	old, err := s.get(ctx, k)
	if err != nil {
		return nil, err
	}
	if old != nil && !overwrite {
		return nil, errors.Wrap(ErrKeyExists, errors.Validation, "key %v already exists in %s", pk, s.desc.Name)
	}
	encodedPK, _ := indexing.EncodeKey(pk)
	for _, idx := range s.desc.Indexes {
		if !idx.Unique {
			continue
		}
		val, ok := indexing.IndexValue(rec, idx)
		if !ok {
			continue
		}
		owner, err := s.uniqueOwner(ctx, idx, val)
		if err != nil {
			return nil, err
		}
		if owner != nil && !bytes.Equal(owner, encodedPK) {
			return nil, errors.Wrap(ErrUniqueIndex, errors.Validation, "%s.%s already holds %v", s.desc.Name, idx.Name, val)
		}
	}
	if old != nil {
		if err := s.deleteIndexEntries(ctx, old, pk); err != nil {
			return nil, err
		}
	}
	bits, err := json.Marshal(rec)
	if err != nil {
		return nil, errors.Wrap(err, errors.Validation, "failed to encode record")
	}
	if err := s.t.tx.Set(ctx, k, bits); err != nil {
		return nil, errors.Wrap(err, errors.Internal, "failed to put record into %s", s.desc.Name)
	}
	for _, idx := range s.desc.Indexes {
		if err := s.writeIndexEntry(ctx, idx, rec, pk); err != nil {
			return nil, err
		}
	}
	action := model.ActionUpdate
	switch {
	case rec.Tag() == model.TagRemove:
		action = model.ActionRemove
	case old == nil:
		action = model.ActionInsert
	}
	s.t.record(s.desc.Name, action, pk, rec)
	return pk, nil
}

// primaryKey returns the record's primary key, generating one when the store allows it
func (s *ObjectStore) primaryKey(ctx context.Context, rec model.Record) (any, error) {
	pk, ok := rec.Lookup(s.desc.PrimaryKey)
	if ok && pk != nil {
		if !indexing.ValidKey(pk) {
			return nil, errors.New(errors.Validation, "invalid primary key %v", pk)
		}
		if s.desc.AutoIncrement {
			if err := s.bumpSequence(ctx, pk); err != nil {
				return nil, err
			}
		}
		return pk, nil
	}
	switch {
	case s.desc.AutoIncrement:
		next, err := s.nextSequence(ctx)
		if err != nil {
			return nil, err
		}
		pk = next
	case s.desc.KeyGenerator == "ksuid":
		pk = ksuid.New().String()
	case s.desc.KeyGenerator == "uuid":
		pk = uuid.NewString()
	default:
		return nil, errors.New(errors.Validation, "record is missing primary key %s", s.desc.PrimaryKey)
	}
	rec.Set(s.desc.PrimaryKey, pk)
	return pk, nil
}

func (s *ObjectStore) sequence(ctx context.Context) (int64, error) {
	bits, err := s.t.tx.Get(ctx, indexing.SequencePath(s.t.h.name, s.desc.Name).Bytes())
	if err != nil {
		return 0, errors.Wrap(err, errors.Internal, "failed to read sequence of %s", s.desc.Name)
	}
	if bits == nil {
		return 0, nil
	}
	return cast.ToInt64E(string(bits))
}

func (s *ObjectStore) setSequence(ctx context.Context, n int64) error {
	err := s.t.tx.Set(ctx, indexing.SequencePath(s.t.h.name, s.desc.Name).Bytes(), []byte(strconv.FormatInt(n, 10)))
	return errors.Wrap(err, errors.Internal, "failed to write sequence of %s", s.desc.Name)
}

func (s *ObjectStore) nextSequence(ctx context.Context) (int64, error) {
	n, err := s.sequence(ctx)
	if err != nil {
		return 0, err
	}
	n++
	return n, s.setSequence(ctx, n)
}

// bumpSequence moves the sequence past explicit numeric keys so generated keys never collide with them
func (s *ObjectStore) bumpSequence(ctx context.Context, pk any) error {
	f, err := cast.ToFloat64E(pk)
	if err != nil {
		return nil
	}
	n, err := s.sequence(ctx)
	if err != nil {
		return err
	}
	if f > float64(n) {
		return s.setSequence(ctx, int64(math.Floor(f)))
	}
	return nil
}

func (s *ObjectStore) uniqueOwner(ctx context.Context, idx model.IndexDescriptor, val any) ([]byte, error) {
	p, err := uniquePath(s.t.h.name, s.desc.Name, idx.Name).Append(val)
	if err != nil {
		return nil, errors.Wrap(err, errors.Validation, "")
	}
	owner, err := s.t.tx.Get(ctx, p.Bytes())
	return owner, errors.Wrap(err, errors.Internal, "failed to check unique index %s", idx.Name)
}

func (s *ObjectStore) indexEntryKey(idx model.IndexDescriptor, val, pk any) ([]byte, error) {
	p, err := indexing.IndexPath(s.t.h.name, s.desc.Name, idx.Name).Append(val)
	if err != nil {
		return nil, errors.Wrap(err, errors.Validation, "")
	}
	p, err = p.Append(pk)
	if err != nil {
		return nil, errors.Wrap(err, errors.Validation, "")
	}
	return p.Bytes(), nil
}

func (s *ObjectStore) writeIndexEntry(ctx context.Context, idx model.IndexDescriptor, rec model.Record, pk any) error {
	val, ok := indexing.IndexValue(rec, idx)
	if !ok {
		return nil
	}
	if idx.Unique {
		encodedPK, err := indexing.EncodeKey(pk)
		if err != nil {
			return errors.Wrap(err, errors.Validation, "")
		}
		owner, err := s.uniqueOwner(ctx, idx, val)
		if err != nil {
			return err
		}
		if owner != nil && !bytes.Equal(owner, encodedPK) {
			return errors.Wrap(ErrUniqueIndex, errors.Validation, "%s.%s already holds %v", s.desc.Name, idx.Name, val)
		}
		p, _ := uniquePath(s.t.h.name, s.desc.Name, idx.Name).Append(val)
		if err := s.t.tx.Set(ctx, p.Bytes(), encodedPK); err != nil {
			return errors.Wrap(err, errors.Internal, "failed to write unique index %s", idx.Name)
		}
	}
	k, err := s.indexEntryKey(idx, val, pk)
	if err != nil {
		return err
	}
	bits, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, errors.Validation, "failed to encode record")
	}
	return errors.Wrap(s.t.tx.Set(ctx, k, bits), errors.Internal, "failed to write index %s", idx.Name)
}

func (s *ObjectStore) deleteIndexEntries(ctx context.Context, rec model.Record, pk any) error {
	for _, idx := range s.desc.Indexes {
		val, ok := indexing.IndexValue(rec, idx)
		if !ok {
			continue
		}
		k, err := s.indexEntryKey(idx, val, pk)
		if err != nil {
			return err
		}
		if err := s.t.tx.Delete(ctx, k); err != nil {
			return errors.Wrap(err, errors.Internal, "failed to delete index %s entry", idx.Name)
		}
		if idx.Unique {
			p, _ := uniquePath(s.t.h.name, s.desc.Name, idx.Name).Append(val)
			if err := s.t.tx.Delete(ctx, p.Bytes()); err != nil {
				return errors.Wrap(err, errors.Internal, "failed to delete unique index %s entry", idx.Name)
			}
		}
	}
	return nil
}

// Delete physically deletes the record stored under key. Deleting a missing key does nothing.
func (s *ObjectStore) Delete(ctx context.Context, key any) error {
	if err := s.t.writable(); err != nil {
		return err
	}
	k, err := s.recordKey(key)
	if err != nil {
		return err
	}
	old, err := s.get(ctx, k)
	if err != nil || old == nil {
		return err
	}
	if err := s.deleteIndexEntries(ctx, old, key); err != nil {
		return err
	}
	if err := s.t.tx.Delete(ctx, k); err != nil {
		return errors.Wrap(err, errors.Internal, "failed to delete record from %s", s.desc.Name)
	}
	s.t.record(s.desc.Name, model.ActionDelete, key, old)
	return nil
}

// Clear deletes every record of the store
func (s *ObjectStore) Clear(ctx context.Context) error {
	if err := s.t.writable(); err != nil {
		return err
	}
	if err := deletePrefix(ctx, s.t.tx, s.records().Bytes()); err != nil {
		return err
	}
	for _, idx := range s.desc.Indexes {
		if err := deletePrefix(ctx, s.t.tx, indexing.IndexPath(s.t.h.name, s.desc.Name, idx.Name).Bytes()); err != nil {
			return err
		}
		if err := deletePrefix(ctx, s.t.tx, uniquePath(s.t.h.name, s.desc.Name, idx.Name).Bytes()); err != nil {
			return err
		}
	}
	s.t.record(s.desc.Name, model.ActionClear, nil, nil)
	return nil
}

// Count counts the records whose primary key falls in r. A nil range counts every record.
func (s *ObjectStore) Count(ctx context.Context, r *model.KeyRange) (int, error) {
	return count(ctx, s.t.tx, s.records(), r)
}

// OpenCursor opens a cursor over the records whose primary key falls in r
func (s *ObjectStore) OpenCursor(ctx context.Context, r *model.KeyRange, dir model.Direction) (*Cursor, error) {
	return openCursor(ctx, s, nil, s.records(), r, dir)
}

// all returns every record of the store
func (s *ObjectStore) all(ctx context.Context) ([]model.Record, error) {
	c, err := s.OpenCursor(ctx, nil, model.Next)
	if err != nil {
		return nil, err
	}
	defer c.Close()
	var records []model.Record
	for c.Valid() {
		records = append(records, c.Value())
		if err := c.Continue(ctx); err != nil {
			return nil, err
		}
	}
	return records, nil
}

// Index is a secondary index opened inside a transaction
type Index struct {
	s    *ObjectStore
	desc model.IndexDescriptor
}

// Name returns the index name
func (i *Index) Name() string {
	return i.desc.Name
}

// Descriptor returns the index's descriptor
func (i *Index) Descriptor() model.IndexDescriptor {
	return i.desc
}

func (i *Index) path() indexing.Path {
	return indexing.IndexPath(i.s.t.h.name, i.s.desc.Name, i.desc.Name)
}

// Count counts the index entries whose key falls in r
func (i *Index) Count(ctx context.Context, r *model.KeyRange) (int, error) {
	return count(ctx, i.s.t.tx, i.path(), r)
}

// OpenCursor opens a cursor over the records whose index key falls in r, ordered by index key then primary key
func (i *Index) OpenCursor(ctx context.Context, r *model.KeyRange, dir model.Direction) (*Cursor, error) {
	return openCursor(ctx, i.s, &i.desc, i.path(), r, dir)
}

// Get returns the first record whose index key equals key, or nil
func (i *Index) Get(ctx context.Context, key any) (model.Record, error) {
	c, err := i.OpenCursor(ctx, model.Only(key), model.Next)
	if err != nil {
		return nil, err
	}
	defer c.Close()
	if !c.Valid() {
		return nil, nil
	}
	return c.Value(), nil
}

func count(ctx context.Context, tx kv.Tx, p indexing.Path, r *model.KeyRange) (int, error) {
	start, end, err := p.Interval(r)
	if err != nil {
		return 0, errors.Wrap(err, errors.Validation, "invalid key range")
	}
	iter, err := tx.NewIterator(kv.IterOpts{Prefix: p.Bytes(), Seek: start})
	if err != nil {
		return 0, errors.Wrap(err, errors.Internal, "")
	}
	defer iter.Close()
	n := 0
	for iter.Valid() && bytes.Compare(iter.Key(), end) < 0 {
		n++
		if err := iter.Next(); err != nil {
			return 0, errors.Wrap(err, errors.Internal, "")
		}
	}
	return n, nil
}

func deletePrefix(ctx context.Context, tx kv.Tx, prefix []byte) error {
	iter, err := tx.NewIterator(kv.IterOpts{Prefix: prefix})
	if err != nil {
		return errors.Wrap(err, errors.Internal, "")
	}
	var keys [][]byte
	for iter.Valid() {
		keys = append(keys, append([]byte{}, iter.Key()...))
		if err := iter.Next(); err != nil {
			iter.Close()
			return errors.Wrap(err, errors.Internal, "")
		}
	}
	iter.Close()
	for _, k := range keys {
		if err := tx.Delete(ctx, k); err != nil {
			return errors.Wrap(err, errors.Internal, "")
		}
	}
	return nil
}
