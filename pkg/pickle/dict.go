// Package pickle implements the Python pickle serialization format.
package pickle

import (
	"fmt"
	"math"
	"math/big"
	"strings"
)

// DictEntry is one key/value pair of a Dict.
type DictEntry struct {
	Key   Value
	Value Value
}

// Dict is an insertion-ordered Python dict.
//
// Keys that have a Go equivalent of Python's hash (strings, numbers,
// bools, None, bytes, globals, tuples of those, and pointer values) are
// indexed; other keys are appended without deduplication.
// The zero value is an empty dict ready to use.
type Dict struct {
	entries []DictEntry
	index   map[any]int
}

// NewDict creates a dict from alternating key/value pairs.
func NewDict(kv ...Value) *Dict {
	d := &Dict{}
	for i := 0; i+1 < len(kv); i += 2 {
		d.Set(kv[i], kv[i+1])
	}
	return d
}

// Len returns the number of entries.
func (d *Dict) Len() int {
	if d == nil {
		return 0
	}
	return len(d.entries)
}

// Set inserts or replaces the value for key.
// A replaced key keeps its position.
func (d *Dict) Set(key, value Value) {
	hk, ok := hashKey(key)
	if !ok {
		d.entries = append(d.entries, DictEntry{Key: key, Value: value})
		return
	}
	if d.index == nil {
		d.index = make(map[any]int)
	}
	if i, found := d.index[hk]; found {
		d.entries[i].Value = value
		return
	}
	d.index[hk] = len(d.entries)
	d.entries = append(d.entries, DictEntry{Key: key, Value: value})
}

// Get returns the value stored for key.
func (d *Dict) Get(key Value) (Value, bool) {
	if d == nil {
		return nil, false
	}
	hk, ok := hashKey(key)
	if !ok {
		return nil, false
	}
	i, found := d.index[hk]
	if !found {
		return nil, false
	}
	return d.entries[i].Value, true
}

// Has reports whether key is present.
func (d *Dict) Has(key Value) bool {
	_, ok := d.Get(key)
	return ok
}

// Delete removes key and returns its value.
func (d *Dict) Delete(key Value) (Value, bool) {
	if d == nil {
		return nil, false
	}
	hk, ok := hashKey(key)
	if !ok {
		return nil, false
	}
	i, found := d.index[hk]
	if !found {
		return nil, false
	}
	value := d.entries[i].Value
	d.entries = append(d.entries[:i], d.entries[i+1:]...)
	delete(d.index, hk)
	for j := i; j < len(d.entries); j++ {
		if k, ok := hashKey(d.entries[j].Key); ok {
			d.index[k] = j
		}
	}
	return value, true
}

// Entries returns the entries in insertion order.
// The returned slice must not be modified.
func (d *Dict) Entries() []DictEntry {
	if d == nil {
		return nil
	}
	return d.entries
}

// Keys returns the keys in insertion order.
func (d *Dict) Keys() []Value {
	if d == nil {
		return nil
	}
	keys := make([]Value, len(d.entries))
	for i, e := range d.entries {
		keys[i] = e.Key
	}
	return keys
}

// Clone returns a shallow copy.
func (d *Dict) Clone() *Dict {
	c := &Dict{}
	if d == nil {
		return c
	}
	c.entries = make([]DictEntry, len(d.entries))
	copy(c.entries, d.entries)
	if d.index != nil {
		c.index = make(map[any]int, len(d.index))
		for k, v := range d.index {
			c.index[k] = v
		}
	}
	return c
}

type bytesKey string

type bigKey string

type tupleKey string

// hashKey maps a Python-hashable value to a comparable Go key that
// treats equal Python values as equal (True == 1 == 1.0).
func hashKey(v Value) (any, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case int64:
		return x, true
	case int:
		return int64(x), true
	case bool:
		if x {
			return int64(1), true
		}
		return int64(0), true
	case float64:
		if x == math.Trunc(x) && x >= math.MinInt64 && x <= math.MaxInt64 {
			return int64(x), true
		}
		return x, true
	case *big.Int:
		if x.IsInt64() {
			return x.Int64(), true
		}
		return bigKey(x.String()), true
	case None:
		return x, true
	case nil:
		return None{}, true
	case Bytes:
		return bytesKey(x), true
	case Global:
		return x, true
	case Tuple:
		var b strings.Builder
		for _, item := range x {
			k, ok := hashKey(item)
			if !ok {
				return nil, false
			}
			fmt.Fprintf(&b, "%T=%v;", k, k)
		}
		return tupleKey(b.String()), true
	case *Object, *FrozenSet:
		return x, true
	default:
		return nil, false
	}
}
