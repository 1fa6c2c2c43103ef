package cursorkit

import (
	"context"
	"encoding/json"

	"github.com/autom8ter/cursorkit/memset"
	"github.com/autom8ter/cursorkit/model"
	"github.com/autom8ter/cursorkit/substrate"
)

type ctxKey int

const (
	contextKey ctxKey = 0
)

// Context carries the parameters of one operation. It is mutated while the operation runs (EndIndex) and
// must not be shared by concurrent operations.
type Context struct {
	// Store is the store the operation runs against
	Store string `json:"store"`
	// Skip is the number of cursor positions to pass before evaluating records
	Skip int `json:"skip,omitempty"`
	// StartIndex is an alias of Skip and wins when both are set
	StartIndex int `json:"startIndex,omitempty"`
	// Count caps the number of collected records. Zero is unbounded.
	Count int `json:"count,omitempty"`
	// Direction is the cursor direction, next by default
	Direction model.Direction `json:"direction,omitempty"`
	// Fields projects found records onto the given (dotted) fields
	Fields []string `json:"fields,omitempty"`
	// Filter is an extra predicate applied after the selector matched
	Filter func(rec model.Record) bool `json:"-"`
	// Upsert inserts Patch when an update matches nothing, and makes insert replace existing records
	Upsert bool `json:"upsert,omitempty"`
	// Force skips tag checks on update and hard deletes on remove
	Force bool `json:"force,omitempty"`
	// Mix makes Store.Count evaluate the whole selector instead of the first index condition
	Mix bool `json:"mix,omitempty"`
	// FixItem is called per inserted record, returning true replaces an existing record instead of failing
	FixItem func(rec model.Record, i int) bool `json:"-"`
	// Set holds the $set update directive
	Set memset.Selector `json:"$set,omitempty"`
	// Inc holds the $inc update directive
	Inc map[string]any `json:"$inc,omitempty"`
	// Let may mutate an updated record in place or return a replacement
	Let func(rec model.Record) model.Record `json:"-"`
	// Validate computes the _error field of written records
	Validate func(rec model.Record) any `json:"-"`
	// Patch is the record an upsert inserts
	Patch model.Record `json:"patch,omitempty"`
	// EndIndex is set by scans to the cursor offset the next page resumes from
	EndIndex int `json:"endIndex,omitempty"`

	txn *substrate.Txn
}

// NewContext returns a context for the given store
func NewContext(store string) *Context {
	return &Context{Store: store}
}

// Clone returns a copy of the context without its transaction
func (c *Context) Clone() *Context {
	if c == nil {
		return &Context{}
	}
	cp := *c
	cp.txn = nil
	cp.Fields = append([]string{}, c.Fields...)
	cp.Set = c.Set.Clone()
	return &cp
}

// String returns a json string of the context
func (c *Context) String() string {
	bits, _ := json.Marshal(c)
	return string(bits)
}

func (c *Context) startIndex() int {
	if c.StartIndex > 0 {
		return c.StartIndex
	}
	return c.Skip
}

func (c *Context) direction() model.Direction {
	if c.Direction == "" {
		return model.Next
	}
	return c.Direction
}

// ToContext adds the context to the input go context
func (c *Context) ToContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, contextKey, c)
}

// GetContext gets the operation context from the go context if it exists
func GetContext(ctx context.Context) (*Context, bool) {
	c, ok := ctx.Value(contextKey).(*Context)
	if ok {
		return c, true
	}
	return &Context{}, false
}
