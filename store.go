package cursorkit

import (
	"context"
	"fmt"

	"github.com/autom8ter/cursorkit/errors"
	"github.com/autom8ter/cursorkit/future"
	"github.com/autom8ter/cursorkit/internal/safe"
	"github.com/autom8ter/cursorkit/memset"
	"github.com/autom8ter/cursorkit/model"
	"github.com/autom8ter/cursorkit/util"
)

// Queryable runs operations against stores. DB is the Queryable of every store it opens.
type Queryable interface {
	Find(ctx context.Context, sel memset.Selector, c *Context) *future.Future[*Result]
	GetItem(ctx context.Context, ids []any, c *Context) *future.Future[[]model.Record]
	Update(ctx context.Context, sel memset.Selector, c *Context) *future.Future[*Result]
	Remove(ctx context.Context, sel memset.Selector, c *Context) *future.Future[*Result]
	RemoveItem(ctx context.Context, ids []any, c *Context) *future.Future[[]any]
	Insert(ctx context.Context, records []model.Record, c *Context) *future.Future[*InsertResult]
	Count(ctx context.Context, c *Context) *future.Future[int]
	ConditionCount(ctx context.Context, sel memset.Selector, c *Context) (*future.Future[int], error)
	Contains(ctx context.Context, selectors []memset.Selector, c *Context) *future.Future[map[string]any]
	Clear(ctx context.Context, c *Context, stores ...string) *future.Future[[]string]
}

// Validatable checks a batch of records before it is inserted
type Validatable interface {
	// ValidateBatch returns the validation outcome of each invalid record by position
	ValidateBatch(records []model.Record) map[int]any
}

// ValidatorFunc adapts a record Validator to a Validatable
type ValidatorFunc Validator

// ValidateBatch validates every record with the validator
func (v ValidatorFunc) ValidateBatch(records []model.Record) map[int]any {
	return ValidateBatch(records, Validator(v))
}

// Store is the query surface of one store. It dispatches ids, id lists and selectors to the matching
// operation and validates inserted batches when a Validatable is set.
type Store struct {
	name     string
	q        Queryable
	v        Validatable
	defaults Context
	views    *safe.Map[*View]
}

// NewStore composes a store from a query implementation and an optional validator
func NewStore(name string, q Queryable, v Validatable) *Store {
	return &Store{
		name:     name,
		q:        q,
		v:        v,
		defaults: Context{Store: name},
		views:    safe.NewMap(map[string]*View{}),
	}
}

// Store returns the named store. Stores with a json schema validate inserted records against it.
func (d *DB) Store(name string) (*Store, error) {
	if s := d.stores.Get(name); s != nil {
		return s, nil
	}
	if _, err := d.Descriptor(name); err != nil {
		return nil, err
	}
	return d.stores.GetOrSet(name, func() *Store {
		var v Validatable
		if fn := d.validators.Get(name); fn != nil {
			v = ValidatorFunc(fn)
		}
		return NewStore(name, d, v)
	}), nil
}

// Name returns the store name
func (s *Store) Name() string {
	return s.name
}

// WithDefaults returns a copy of the store whose operations start from params
func (s *Store) WithDefaults(params *Context) *Store {
	cp := NewStore(s.name, s.q, s.v)
	cp.defaults = *params.Clone()
	cp.defaults.Store = s.name
	return cp
}

func (s *Store) context(params *Context) *Context {
	if params == nil {
		params = &s.defaults
	}
	c := params.Clone()
	c.Store = s.name
	return c
}

// FindByID returns the record stored under id, or nil
func (s *Store) FindByID(ctx context.Context, id any, params *Context) *future.Future[model.Record] {
	return future.Map(s.q.GetItem(ctx, []any{id}, s.context(params)), func(records []model.Record) (model.Record, error) {
		return records[0], nil
	})
}

// FindByIDs returns the records stored under ids, in order
func (s *Store) FindByIDs(ctx context.Context, ids []any, params *Context) *future.Future[[]model.Record] {
	return s.q.GetItem(ctx, ids, s.context(params))
}

// Find returns the records matching sel
func (s *Store) Find(ctx context.Context, sel memset.Selector, params *Context) *future.Future[*Result] {
	return s.q.Find(ctx, sel, s.context(params))
}

// Contains returns the primary key of the first record matching each selector
func (s *Store) Contains(ctx context.Context, selectors []memset.Selector, params *Context) *future.Future[map[string]any] {
	return s.q.Contains(ctx, selectors, s.context(params))
}

// Update updates the records matching sel
func (s *Store) Update(ctx context.Context, sel memset.Selector, params *Context) *future.Future[*Result] {
	return s.q.Update(ctx, sel, s.context(params))
}

// Remove removes the records matching sel
func (s *Store) Remove(ctx context.Context, sel memset.Selector, params *Context) *future.Future[*Result] {
	return s.q.Remove(ctx, sel, s.context(params))
}

// RemoveByID physically deletes the record stored under id
func (s *Store) RemoveByID(ctx context.Context, id any, params *Context) *future.Future[[]any] {
	return s.q.RemoveItem(ctx, []any{id}, s.context(params))
}

// RemoveByIDs physically deletes the records stored under ids
func (s *Store) RemoveByIDs(ctx context.Context, ids []any, params *Context) *future.Future[[]any] {
	return s.q.RemoveItem(ctx, ids, s.context(params))
}

// Insert validates the whole batch, then inserts it. An invalid batch is rejected before anything is
// written with a Validation error wrapping a ValidationError.
func (s *Store) Insert(ctx context.Context, records []model.Record, params *Context) *future.Future[*InsertResult] {
	if s.v != nil {
		if outcome := s.v.ValidateBatch(records); len(outcome) > 0 {
			return future.Rejected[*InsertResult](errors.Wrap(&ValidationError{Errors: outcome}, errors.Validation, "invalid records for %s", s.name))
		}
	}
	return s.q.Insert(ctx, records, s.context(params))
}

// Count counts records. A selector with several clauses, or any selector when params.Mix is set, is
// counted by a find. A single clause is counted on its index. An empty selector counts the whole store.
func (s *Store) Count(ctx context.Context, sel memset.Selector, params *Context) *future.Future[int] {
	c := s.context(params)
	switch {
	case c.Mix || len(sel) > 1:
		c.Fields = nil
		return future.Map(s.q.Find(ctx, sel, c), func(r *Result) (int, error) {
			return len(r.Records), nil
		})
	case len(sel) == 1:
		f, err := s.q.ConditionCount(ctx, sel, c)
		if err != nil {
			return future.Rejected[int](err)
		}
		return f
	default:
		return s.q.Count(ctx, c)
	}
}

// Clear deletes every record of the store
func (s *Store) Clear(ctx context.Context) *future.Future[[]string] {
	return s.q.Clear(ctx, s.context(nil), s.name)
}

// Page returns the paginated view of sel. Views are cached per selector, page size and params, so repeated
// calls share their loaded records.
func (s *Store) Page(sel memset.Selector, pageSize int, params *Context) *View {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	key := fmt.Sprintf("%s|%d|%s", util.JSONString(sel), pageSize, params.String())
	return s.views.GetOrSet(key, func() *View {
		return NewView(s, sel, pageSize, params)
	})
}
