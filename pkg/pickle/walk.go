// Package pickle implements the Python pickle serialization format.
package pickle

import "errors"

// SkipChildren may be returned by a WalkFunc to stop descending into
// the current value.
var SkipChildren = errors.New("pickle: skip children")

// WalkFunc is called for every value reached by Walk.
type WalkFunc func(v Value) error

// Walk visits root and everything reachable from it depth-first.
// Pointer values (lists, dicts, sets, objects) are visited once each,
// so shared references and cycles are safe.
func Walk(root Value, fn WalkFunc) error {
	w := &walker{fn: fn, seen: make(map[any]struct{})}
	return w.walk(root)
}

type walker struct {
	fn   WalkFunc
	seen map[any]struct{}
}

func (w *walker) walk(v Value) error {
	switch v.(type) {
	case *List, *Dict, *Set, *FrozenSet, *Object:
		if _, ok := w.seen[v]; ok {
			return nil
		}
		w.seen[v] = struct{}{}
	}

	if err := w.fn(v); err != nil {
		if errors.Is(err, SkipChildren) {
			return nil
		}
		return err
	}

	switch x := v.(type) {
	case Tuple:
		return w.walkAll(x)
	case *List:
		return w.walkAll(x.Items)
	case *Set:
		return w.walkAll(x.Items)
	case *FrozenSet:
		return w.walkAll(x.Items)
	case *Dict:
		return w.walkDict(x)
	case PersistentRef:
		return w.walk(x.ID)
	case *Object:
		if err := w.walk(x.Class); err != nil {
			return err
		}
		if err := w.walkAll(x.Args); err != nil {
			return err
		}
		if x.Kwargs != nil {
			if err := w.walk(x.Kwargs); err != nil {
				return err
			}
		}
		if err := w.walkAll(x.ListItems); err != nil {
			return err
		}
		if x.DictItems != nil {
			if err := w.walkDict(x.DictItems); err != nil {
				return err
			}
		}
		if x.State != nil {
			return w.walk(x.State)
		}
	}
	return nil
}

func (w *walker) walkAll(items []Value) error {
	for _, item := range items {
		if err := w.walk(item); err != nil {
			return err
		}
	}
	return nil
}

func (w *walker) walkDict(d *Dict) error {
	for _, e := range d.Entries() {
		if err := w.walk(e.Key); err != nil {
			return err
		}
		if err := w.walk(e.Value); err != nil {
			return err
		}
	}
	return nil
}
