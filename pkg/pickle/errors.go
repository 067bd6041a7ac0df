// Package pickle implements the Python pickle serialization format.
package pickle

import (
	"errors"
	"fmt"
)

var (
	ErrTruncated         = errors.New("pickle: unexpected end of data")
	ErrStackUnderflow    = errors.New("pickle: stack underflow")
	ErrNoMark            = errors.New("pickle: mark not found")
	ErrUnsupportedOpcode = errors.New("pickle: unsupported opcode")
	ErrUnsupportedType   = errors.New("pickle: unsupported value type")
	ErrProtocol          = errors.New("pickle: unsupported protocol")
)

// DecodeError reports where in the stream decoding failed.
type DecodeError struct {
	Offset int64
	Op     byte
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("pickle: opcode 0x%02x at offset %d: %v", e.Op, e.Offset, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// RecursionError reports an object reached again while the arguments of
// its reducer override were still being written. Such an object cannot
// be rebuilt from the stream.
type RecursionError struct {
	Object *Object
}

func (e *RecursionError) Error() string {
	if g, ok := e.Object.ClassGlobal(); ok {
		return fmt.Sprintf("pickle: %s refers back to itself while being reduced", g)
	}
	return "pickle: object refers back to itself while being reduced"
}
