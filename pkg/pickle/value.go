// Package pickle implements the Python pickle serialization format.
package pickle

import (
	"fmt"
	"math/big"
)

// Value is any value produced by the decoder or accepted by the encoder.
type Value = any

// None is Python's None.
type None struct{}

// Bytes is a Python bytes object.
type Bytes []byte

// ByteArray is a Python bytearray object.
type ByteArray []byte

// Tuple is a Python tuple.
type Tuple []Value

// List is a Python list.
type List struct {
	Items []Value
}

// NewList creates a list holding items.
func NewList(items ...Value) *List {
	return &List{Items: items}
}

// Set is a Python set. Items keep decode order.
type Set struct {
	Items []Value
}

// FrozenSet is a Python frozenset.
type FrozenSet struct {
	Items []Value
}

// Global names a module-level object, usually a class.
type Global struct {
	Module string
	Name   string
}

// String returns the dotted path of the global.
func (g Global) String() string {
	return g.Module + "." + g.Name
}

// PersistentRef is a persistent id left unresolved by the decoder.
// The encoder writes it back as a persistent id.
type PersistentRef struct {
	ID Value
}

// Kind tells how an Object was constructed.
type Kind int

const (
	// KindReduce is callable(*args) (REDUCE, INST, OBJ).
	KindReduce Kind = iota
	// KindNewObj is cls.__new__(cls, *args) (NEWOBJ).
	KindNewObj
	// KindNewObjEx is cls.__new__(cls, *args, **kwargs) (NEWOBJ_EX).
	KindNewObjEx
)

// String returns the opcode-like name of the kind.
func (k Kind) String() string {
	switch k {
	case KindReduce:
		return "reduce"
	case KindNewObj:
		return "newobj"
	case KindNewObjEx:
		return "newobj_ex"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Object is an instance rebuilt from a pickle stream.
type Object struct {
	// Class is the callable or class, normally a Global.
	Class Value
	Kind  Kind
	Args  Tuple
	// Kwargs is only set for KindNewObjEx.
	Kwargs *Dict
	// State is the BUILD argument, nil when the stream had no BUILD.
	State Value

	// ListItems and DictItems hold APPEND(S)/SETITEM(S) applied to the
	// instance itself, e.g. collections.defaultdict contents.
	ListItems []Value
	DictItems *Dict
}

// ClassGlobal returns the object's class as a Global when it is one.
func (o *Object) ClassGlobal() (Global, bool) {
	g, ok := o.Class.(Global)
	return g, ok
}

// Callable is implemented by values returned from a FindClass hook that
// want to run when REDUCE applies them instead of producing an Object.
type Callable interface {
	Call(args Tuple) (Value, error)
}

// toInt normalizes a Python int to int64 when it fits.
func toInt(b *big.Int) Value {
	if b.IsInt64() {
		return b.Int64()
	}
	return b
}
