package model

import (
	"github.com/autom8ter/cursorkit/util"
	"github.com/spf13/cast"
)

// TagState is the lifecycle state stored on a record's _tag field
type TagState int

const (
	// TagForceRemove marks a record that must be physically deleted
	TagForceRemove TagState = -1
	// TagSilent means no further write should happen
	TagSilent TagState = 0
	TagUpdate TagState = 1
	// TagAdd marks a record created locally that was never reconciled with a remote source
	TagAdd TagState = 2
	// TagRemove marks a soft deleted record
	TagRemove TagState = 3
)

func (t TagState) String() string {
	switch t {
	case TagForceRemove:
		return "FORCE_REMOVE"
	case TagSilent:
		return "SILENT"
	case TagUpdate:
		return "UPDATE"
	case TagAdd:
		return "ADD"
	case TagRemove:
		return "REMOVE"
	}
	return cast.ToString(int(t))
}

func toTag(val any) TagState {
	switch val := val.(type) {
	case nil:
		return TagSilent
	case TagState:
		return val
	default:
		return TagState(cast.ToInt(val))
	}
}

// UpdateTag applies the requested operation to the record's lifecycle tag and returns the resulting state.
// Callers use the result to decide whether to write the record (TagSilent skips it) and whether a removal is soft or hard.
func UpdateTag(rec Record, op TagState) TagState {
	current := rec.Tag()
	// a soft deleted record is frozen
	if current == TagRemove {
		return TagSilent
	}
	if op == TagAdd {
		rec[TagField] = TagAdd
		return TagAdd
	}
	if current == TagAdd {
		if op == TagRemove {
			rec[TagField] = TagForceRemove
			return TagForceRemove
		}
		return op
	}
	if op == TagRemove {
		rec[TagField] = TagRemove
		return TagRemove
	}
	if op == TagUpdate {
		if current == TagSilent && rec[OldValueField] == nil {
			rec[OldValueField] = util.JSONString(rec)
		}
		rec[TagField] = TagUpdate
		return TagUpdate
	}
	return current
}
