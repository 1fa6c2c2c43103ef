package model

import (
	"encoding/json"
	"time"

	"github.com/autom8ter/cursorkit/errors"
	"github.com/r3labs/diff/v3"
)

// Action is the kind of write a Change describes
type Action string

const (
	ActionInsert Action = "insert"
	ActionUpdate Action = "update"
	// ActionRemove is a soft delete: the record is kept with _tag set to REMOVE
	ActionRemove Action = "remove"
	// ActionDelete is a physical delete
	ActionDelete Action = "delete"
	ActionClear  Action = "clear"
)

// Change is published on a store's channel after a write commits
type Change struct {
	Store     string    `json:"store"`
	Action    Action    `json:"action"`
	Key       any       `json:"key,omitempty"`
	Record    Record    `json:"record,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Changelog diffs the record's _oldValue snapshot against its current fields.
// A record without a snapshot has an empty changelog.
func Changelog(rec Record) (diff.Changelog, error) {
	raw, ok := rec[OldValueField].(string)
	if !ok || raw == "" {
		return nil, nil
	}
	var old map[string]any
	if err := json.Unmarshal([]byte(raw), &old); err != nil {
		return nil, errors.Wrap(err, errors.Validation, "invalid %s snapshot", OldValueField)
	}
	// round trip the current record so both sides share json types
	bits, err := json.Marshal(rec)
	if err != nil {
		return nil, errors.Wrap(err, errors.Internal, "")
	}
	var current map[string]any
	if err := json.Unmarshal(bits, &current); err != nil {
		return nil, errors.Wrap(err, errors.Internal, "")
	}
	for _, f := range []string{TagField, OldValueField, ErrorField, OldErrorField} {
		delete(old, f)
		delete(current, f)
	}
	cl, err := diff.Diff(old, current)
	if err != nil {
		return nil, errors.Wrap(err, errors.Internal, "failed to diff record")
	}
	return cl, nil
}
