package substrate

import (
	"context"

	"github.com/autom8ter/cursorkit/errors"
	"github.com/autom8ter/cursorkit/internal/indexing"
	"github.com/autom8ter/cursorkit/kv"
	"github.com/autom8ter/cursorkit/model"
	"github.com/autom8ter/cursorkit/util"
)

// UpgradeFunc creates or alters stores when a database is opened at a higher version
type UpgradeFunc func(ctx context.Context, u *UpgradeContext) error

// UpgradeContext is handed to an UpgradeFunc. Every change it makes is part of the upgrade transaction.
type UpgradeContext struct {
	OldVersion int
	NewVersion int
	h          *Handle
	tx         kv.Tx
	schema     model.Schema
}

// ObjectStoreNames returns the names of the stores as of this point of the upgrade
func (u *UpgradeContext) ObjectStoreNames() []string {
	names := make([]string, 0, len(u.schema.Stores))
	for _, s := range u.schema.Stores {
		names = append(names, s.Name)
	}
	return names
}

// HasObjectStore reports whether the named store exists
func (u *UpgradeContext) HasObjectStore(name string) bool {
	_, ok := u.schema.Store(name)
	return ok
}

// CreateObjectStore creates a store and its indexes
func (u *UpgradeContext) CreateObjectStore(ctx context.Context, desc model.StoreDescriptor) error {
	if u.HasObjectStore(desc.Name) {
		return errors.New(errors.Validation, "store %s already exists", desc.Name)
	}
	if err := desc.Validate(); err != nil {
		return err
	}
	indexes := desc.Indexes
	desc.Indexes = nil
	u.schema.Stores = append(u.schema.Stores, desc)
	for _, idx := range indexes {
		if err := u.CreateIndex(ctx, desc.Name, idx); err != nil {
			return err
		}
	}
	return nil
}

// DeleteObjectStore deletes a store, its records and its indexes
func (u *UpgradeContext) DeleteObjectStore(ctx context.Context, name string) error {
	desc, ok := u.schema.Store(name)
	if !ok {
		return errors.New(errors.NotFound, "store %s does not exist", name)
	}
	s := &ObjectStore{t: &Txn{h: u.h, tx: u.tx, mode: ReadWrite, schema: u.schema}, desc: desc}
	if err := s.Clear(ctx); err != nil {
		return err
	}
	if err := u.tx.Delete(ctx, indexing.SequencePath(u.h.name, name).Bytes()); err != nil {
		return errors.Wrap(err, errors.Internal, "")
	}
	var stores []model.StoreDescriptor
	for _, st := range u.schema.Stores {
		if st.Name != name {
			stores = append(stores, st)
		}
	}
	u.schema.Stores = stores
	return nil
}

// CreateIndex adds an index to a store and indexes the records it already holds.
// It fails if existing records break a unique index.
func (u *UpgradeContext) CreateIndex(ctx context.Context, store string, idx model.IndexDescriptor) error {
	pos := -1
	for i, st := range u.schema.Stores {
		if st.Name == store {
			pos = i
		}
	}
	if pos < 0 {
		return errors.New(errors.NotFound, "store %s does not exist", store)
	}
	if _, ok := u.schema.Stores[pos].Index(idx.Name); ok {
		return errors.New(errors.Validation, "index %s already exists on %s", idx.Name, store)
	}
	if err := util.ValidateStruct(&idx); err != nil {
		return err
	}
	u.schema.Stores[pos].Indexes = append(u.schema.Stores[pos].Indexes, idx)
	s := &ObjectStore{t: &Txn{h: u.h, tx: u.tx, mode: ReadWrite, schema: u.schema}, desc: u.schema.Stores[pos]}
	records, err := s.all(ctx)
	if err != nil {
		return err
	}
	for _, rec := range records {
		pk, _ := rec.Lookup(s.desc.PrimaryKey)
		if err := s.writeIndexEntry(ctx, idx, rec, pk); err != nil {
			return err
		}
	}
	return nil
}

// DeleteIndex removes an index and its entries
func (u *UpgradeContext) DeleteIndex(ctx context.Context, store, name string) error {
	for i, st := range u.schema.Stores {
		if st.Name != store {
			continue
		}
		if _, ok := st.Index(name); !ok {
			return errors.New(errors.NotFound, "index %s does not exist on %s", name, store)
		}
		var kept []model.IndexDescriptor
		for _, idx := range st.Indexes {
			if idx.Name != name {
				kept = append(kept, idx)
			}
		}
		u.schema.Stores[i].Indexes = kept
		if err := deletePrefix(ctx, u.tx, indexing.IndexPath(u.h.name, store, name).Bytes()); err != nil {
			return err
		}
		return deletePrefix(ctx, u.tx, uniquePath(u.h.name, store, name).Bytes())
	}
	return errors.New(errors.NotFound, "store %s does not exist", store)
}

// ApplySchema returns an UpgradeFunc that creates the schema's missing stores and indexes
func ApplySchema(schema model.Schema) UpgradeFunc {
	return func(ctx context.Context, u *UpgradeContext) error {
		for _, desc := range schema.Stores {
			existing, ok := u.schema.Store(desc.Name)
			if !ok {
				if err := u.CreateObjectStore(ctx, desc); err != nil {
					return err
				}
				continue
			}
			for _, idx := range desc.Indexes {
				if _, ok := existing.Index(idx.Name); ok {
					continue
				}
				if err := u.CreateIndex(ctx, desc.Name, idx); err != nil {
					return err
				}
			}
		}
		return nil
	}
}
