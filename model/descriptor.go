package model

import (
	"encoding/json"

	"github.com/autom8ter/cursorkit/errors"
	"github.com/autom8ter/cursorkit/util"
)

// IndexDescriptor is a secondary index on a store
type IndexDescriptor struct {
	// Name is the index's unique name in the store. Selectors address the index by this name.
	Name string `json:"name" validate:"required,min=1"`
	// Keys are the indexed fields - order matters. A single key defaults to the index name.
	Keys []string `json:"keys,omitempty"`
	// Unique indicates that the index enforces uniqueness
	Unique bool `json:"unique,omitempty"`
}

// UnmarshalJSON accepts either a bare index name or an index object
func (i *IndexDescriptor) UnmarshalJSON(bits []byte) error {
	var name string
	if err := json.Unmarshal(bits, &name); err == nil {
		*i = IndexDescriptor{Name: name}
		return nil
	}
	type alias IndexDescriptor
	var a alias
	if err := json.Unmarshal(bits, &a); err != nil {
		return errors.Wrap(err, errors.Validation, "invalid index descriptor")
	}
	*i = IndexDescriptor(a)
	return nil
}

// Fields returns the fields the index is built from
func (i IndexDescriptor) Fields() []string {
	if len(i.Keys) == 0 {
		return []string{i.Name}
	}
	return i.Keys
}

// Composite reports whether the index key is an array of several fields
func (i IndexDescriptor) Composite() bool {
	return len(i.Keys) > 1
}

// StoreDescriptor describes a store: its primary key and secondary indexes
type StoreDescriptor struct {
	Name string `json:"name" validate:"required,min=1"`
	// PrimaryKey is the field holding each record's unique key
	PrimaryKey string `json:"primaryKey" validate:"required,min=1"`
	// AutoIncrement assigns increasing integer keys to records inserted without one
	AutoIncrement bool `json:"autoIncrement,omitempty"`
	// KeyGenerator assigns string keys to records inserted without one (ksuid, uuid)
	KeyGenerator string            `json:"keyGenerator,omitempty" validate:"omitempty,oneof=ksuid uuid"`
	Indexes      []IndexDescriptor `json:"indexes,omitempty" validate:"dive"`
	// JSONSchema optionally validates records inserted through a Store
	JSONSchema json.RawMessage `json:"jsonSchema,omitempty"`
}

// Index returns the named index
func (s StoreDescriptor) Index(name string) (IndexDescriptor, bool) {
	for _, i := range s.Indexes {
		if i.Name == name {
			return i, true
		}
	}
	return IndexDescriptor{}, false
}

// Validate validates the store descriptor
func (s StoreDescriptor) Validate() error {
	if err := util.ValidateStruct(&s); err != nil {
		return err
	}
	seen := map[string]bool{}
	for _, i := range s.Indexes {
		if seen[i.Name] {
			return errors.New(errors.Validation, "duplicate index %s on store %s", i.Name, s.Name)
		}
		seen[i.Name] = true
	}
	return nil
}

// Schema is the versioned set of stores in a database
type Schema struct {
	Name    string            `json:"name" validate:"required,min=1"`
	Version int               `json:"version" validate:"min=1"`
	Stores  []StoreDescriptor `json:"stores" validate:"dive"`
}

// Store returns the named store descriptor
func (s Schema) Store(name string) (StoreDescriptor, bool) {
	for _, st := range s.Stores {
		if st.Name == name {
			return st, true
		}
	}
	return StoreDescriptor{}, false
}

// Validate validates the schema and each of its stores
func (s Schema) Validate() error {
	if err := util.ValidateStruct(&s); err != nil {
		return err
	}
	for _, st := range s.Stores {
		if err := st.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ParseSchema parses a YAML or JSON schema document
func ParseSchema(content []byte) (Schema, error) {
	bits, err := util.YAMLToJSON(content)
	if err != nil {
		return Schema{}, errors.Wrap(err, errors.Validation, "invalid schema")
	}
	var s Schema
	if err := json.Unmarshal(bits, &s); err != nil {
		return Schema{}, errors.Wrap(err, errors.Validation, "invalid schema")
	}
	if s.Version == 0 {
		s.Version = 1
	}
	return s, s.Validate()
}
