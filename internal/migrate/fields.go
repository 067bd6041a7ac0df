// Package migrate rewrites python-telegram-bot v13 persistence data.
package migrate

import (
	"github.com/yndnr/ptb-migrate/internal/core/domain"
	"github.com/yndnr/ptb-migrate/pkg/pickle"
)

// Rename moves the value stored under Old to New.
type Rename struct {
	Old string
	New string
}

// FieldRenames lists the attributes renamed between v13 and v20.
// Entries are applied in order.
var FieldRenames = []Rename{
	{Old: "bot", New: "_bot"},
	{Old: "voice_chat_ended", New: "video_chat_ended"},
	{Old: "voice_chat_scheduled", New: "video_chat_scheduled"},
	{Old: "voice_chat_started", New: "video_chat_started"},
	{Old: "voice_chat_participants_invited", New: "video_chat_participants_invited"},
}

// State is the persisted state of an object, as passed to BUILD.
type State interface {
	// Fields returns the attribute map of the object.
	Fields() *pickle.Dict
	// Value returns the state in the shape it was decoded from.
	Value() pickle.Value
}

// FlatState is a plain attribute map, the state of classes without
// __slots__.
type FlatState struct {
	Attrs *pickle.Dict
}

// Fields implements State.
func (s FlatState) Fields() *pickle.Dict {
	return s.Attrs
}

// Value implements State.
func (s FlatState) Value() pickle.Value {
	return s.Attrs
}

// SlicedState is the (dict-or-None, slots) pair written for classes
// with __slots__.
type SlicedState struct {
	// Dict is the instance __dict__, None when the class has none.
	Dict  pickle.Value
	Slots *pickle.Dict
}

// Fields implements State. Slot values win over __dict__ entries of the
// same name.
func (s SlicedState) Fields() *pickle.Dict {
	var merged *pickle.Dict
	if d, ok := s.Dict.(*pickle.Dict); ok {
		merged = d.Clone()
	} else {
		merged = &pickle.Dict{}
	}
	for _, e := range s.Slots.Entries() {
		merged.Set(e.Key, e.Value)
	}
	return merged
}

// Value implements State.
func (s SlicedState) Value() pickle.Value {
	return pickle.Tuple{s.Dict, s.Slots}
}

// ParseState classifies a BUILD argument.
func ParseState(v pickle.Value) (State, error) {
	switch x := v.(type) {
	case *pickle.Dict:
		return FlatState{Attrs: x}, nil
	case pickle.Tuple:
		if len(x) != 2 {
			break
		}
		slots, ok := x[1].(*pickle.Dict)
		if !ok {
			break
		}
		switch x[0].(type) {
		case nil, pickle.None, *pickle.Dict:
			return SlicedState{Dict: x[0], Slots: slots}, nil
		}
	}
	return nil, domain.ErrUnsupportedState.WithDetailsf("got %s", typeName(v))
}

// RenameFields returns a copy of state with every key in table moved to
// its new name. The input is not modified. A value already stored under
// the new name is overwritten. The second result lists the old names
// that were found, once per occurrence.
func RenameFields(state State, table []Rename) (State, []string) {
	switch s := state.(type) {
	case FlatState:
		attrs := s.Attrs.Clone()
		renamed := renameKeys(attrs, table)
		return FlatState{Attrs: attrs}, renamed
	case SlicedState:
		out := SlicedState{Dict: s.Dict, Slots: s.Slots.Clone()}
		var renamed []string
		if d, ok := s.Dict.(*pickle.Dict); ok {
			head := d.Clone()
			renamed = renameKeys(head, table)
			out.Dict = head
		}
		renamed = append(renamed, renameKeys(out.Slots, table)...)
		return out, renamed
	default:
		return state, nil
	}
}

func renameKeys(d *pickle.Dict, table []Rename) []string {
	var renamed []string
	for _, r := range table {
		v, ok := d.Delete(r.Old)
		if !ok {
			continue
		}
		d.Set(r.New, v)
		renamed = append(renamed, r.Old)
	}
	return renamed
}
