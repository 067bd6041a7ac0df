// Package pickle implements the Python pickle serialization format.
package pickle

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"math/big"
)

// EncoderOption configures an Encoder.
type EncoderOption func(*Encoder)

// WithProtocol selects the protocol to write (3, 4 or 5).
func WithProtocol(proto int) EncoderOption {
	return func(e *Encoder) {
		e.proto = proto
	}
}

// WithPersistentID sets the hook consulted for every value before it is
// written. When it returns true the returned id is written as a
// persistent id instead of the value.
func WithPersistentID(fn func(v Value) (Value, bool)) EncoderOption {
	return func(e *Encoder) {
		e.persistentID = fn
	}
}

// WithReducerOverride sets the hook that may replace how an Object is
// reduced. The replacement is written in place of the original and the
// original is memoized, so shared references stay shared.
func WithReducerOverride(fn func(obj *Object) (*Object, bool)) EncoderOption {
	return func(e *Encoder) {
		e.reducerOverride = fn
	}
}

// Encoder writes a pickle stream.
type Encoder struct {
	w     *bufio.Writer
	proto int

	persistentID    func(v Value) (Value, bool)
	reducerOverride func(obj *Object) (*Object, bool)

	memo map[any]int
	// reducing holds overridden objects whose replacement class and
	// arguments are being written.
	reducing map[*Object]struct{}
	buf      [9]byte
}

type stringMemoKey string

// NewEncoder creates an encoder writing to w.
func NewEncoder(w io.Writer, opts ...EncoderOption) *Encoder {
	e := &Encoder{
		w:     bufio.NewWriter(w),
		proto: DefaultProtocol,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Encode writes v as one complete pickle.
func (e *Encoder) Encode(v Value) error {
	if e.proto < MinEncodeProtocol || e.proto > HighestProtocol {
		return fmt.Errorf("%w: %d", ErrProtocol, e.proto)
	}
	e.memo = make(map[any]int)
	e.reducing = make(map[*Object]struct{})

	e.w.WriteByte(opProto)
	e.w.WriteByte(byte(e.proto))
	if err := e.save(v, true); err != nil {
		return err
	}
	e.w.WriteByte(opStop)
	return e.w.Flush()
}

func (e *Encoder) save(v Value, allowPID bool) error {
	if allowPID && e.persistentID != nil {
		if pid, ok := e.persistentID(v); ok {
			if err := e.save(pid, false); err != nil {
				return err
			}
			return e.w.WriteByte(opBinPersID)
		}
	}

	switch x := v.(type) {
	case nil, None:
		return e.w.WriteByte(opNone)
	case bool:
		if x {
			return e.w.WriteByte(opNewTrue)
		}
		return e.w.WriteByte(opNewFalse)
	case int:
		return e.saveInt(int64(x))
	case int32:
		return e.saveInt(int64(x))
	case int64:
		return e.saveInt(x)
	case uint64:
		if x <= math.MaxInt64 {
			return e.saveInt(int64(x))
		}
		return e.saveLong(new(big.Int).SetUint64(x))
	case *big.Int:
		if x.IsInt64() {
			return e.saveInt(x.Int64())
		}
		return e.saveLong(x)
	case float64:
		e.w.WriteByte(opBinFloat)
		binary.BigEndian.PutUint64(e.buf[:8], math.Float64bits(x))
		_, err := e.w.Write(e.buf[:8])
		return err
	case string:
		return e.saveString(x)
	case Bytes:
		return e.saveBytes(x)
	case []byte:
		return e.saveBytes(x)
	case ByteArray:
		return e.saveByteArray(x)
	case Tuple:
		return e.saveTuple(x)
	case *List:
		return e.saveList(x)
	case *Dict:
		return e.saveDict(x)
	case *Set:
		return e.saveSet(x)
	case *FrozenSet:
		return e.saveFrozenSet(x)
	case Global:
		return e.saveGlobal(x)
	case *Object:
		return e.saveObject(x)
	case PersistentRef:
		if err := e.save(x.ID, false); err != nil {
			return err
		}
		return e.w.WriteByte(opBinPersID)
	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedType, v)
	}
}

func (e *Encoder) saveInt(i int64) error {
	switch {
	case i >= 0 && i <= 0xff:
		e.w.WriteByte(opBinInt1)
		return e.w.WriteByte(byte(i))
	case i >= 0 && i <= 0xffff:
		e.w.WriteByte(opBinInt2)
		binary.LittleEndian.PutUint16(e.buf[:2], uint16(i))
		_, err := e.w.Write(e.buf[:2])
		return err
	case i >= math.MinInt32 && i <= math.MaxInt32:
		e.w.WriteByte(opBinInt)
		binary.LittleEndian.PutUint32(e.buf[:4], uint32(int32(i)))
		_, err := e.w.Write(e.buf[:4])
		return err
	default:
		return e.saveLong(big.NewInt(i))
	}
}

func (e *Encoder) saveLong(x *big.Int) error {
	data := encodeLong(x)
	if len(data) < 256 {
		e.w.WriteByte(opLong1)
		e.w.WriteByte(byte(len(data)))
	} else {
		e.w.WriteByte(opLong4)
		binary.LittleEndian.PutUint32(e.buf[:4], uint32(len(data)))
		e.w.Write(e.buf[:4])
	}
	_, err := e.w.Write(data)
	return err
}

// encodeLong returns the minimal little-endian two's complement form,
// matching CPython's pickle.encode_long.
func encodeLong(x *big.Int) []byte {
	if x.Sign() == 0 {
		return nil
	}
	n := x.BitLen()/8 + 1
	v := new(big.Int).Set(x)
	if x.Sign() < 0 {
		v.Add(v, new(big.Int).Lsh(big.NewInt(1), uint(8*n)))
	}
	be := v.Bytes()
	out := make([]byte, n)
	for i, b := range be {
		out[len(be)-1-i] = b
	}
	if x.Sign() < 0 && n > 1 && out[n-1] == 0xff && out[n-2]&0x80 != 0 {
		out = out[:n-1]
	}
	return out
}

func (e *Encoder) saveString(s string) error {
	key := stringMemoKey(s)
	if idx, ok := e.memo[key]; ok {
		return e.get(idx)
	}
	n := uint64(len(s))
	switch {
	case n < 256 && e.proto >= 4:
		e.w.WriteByte(opShortBinUnicode)
		e.w.WriteByte(byte(n))
	case n <= math.MaxUint32:
		e.w.WriteByte(opBinUnicode)
		binary.LittleEndian.PutUint32(e.buf[:4], uint32(n))
		e.w.Write(e.buf[:4])
	case e.proto >= 4:
		e.w.WriteByte(opBinUnicode8)
		binary.LittleEndian.PutUint64(e.buf[:8], n)
		e.w.Write(e.buf[:8])
	default:
		return fmt.Errorf("pickle: str too large for protocol %d", e.proto)
	}
	if _, err := e.w.WriteString(s); err != nil {
		return err
	}
	return e.memoize(key)
}

func (e *Encoder) saveBytes(b []byte) error {
	n := uint64(len(b))
	switch {
	case n < 256:
		e.w.WriteByte(opShortBinBytes)
		e.w.WriteByte(byte(n))
	case n <= math.MaxUint32:
		e.w.WriteByte(opBinBytes)
		binary.LittleEndian.PutUint32(e.buf[:4], uint32(n))
		e.w.Write(e.buf[:4])
	case e.proto >= 4:
		e.w.WriteByte(opBinBytes8)
		binary.LittleEndian.PutUint64(e.buf[:8], n)
		e.w.Write(e.buf[:8])
	default:
		return fmt.Errorf("pickle: bytes too large for protocol %d", e.proto)
	}
	_, err := e.w.Write(b)
	return err
}

func (e *Encoder) saveByteArray(b ByteArray) error {
	if e.proto >= 5 {
		e.w.WriteByte(opByteArray8)
		binary.LittleEndian.PutUint64(e.buf[:8], uint64(len(b)))
		e.w.Write(e.buf[:8])
		_, err := e.w.Write(b)
		return err
	}
	if err := e.saveGlobal(Global{Module: "builtins", Name: "bytearray"}); err != nil {
		return err
	}
	if err := e.saveTuple(Tuple{Bytes(b)}); err != nil {
		return err
	}
	return e.w.WriteByte(opReduce)
}

func (e *Encoder) saveTuple(t Tuple) error {
	if len(t) == 0 {
		return e.w.WriteByte(opEmptyTuple)
	}
	if len(t) <= 3 {
		for _, item := range t {
			if err := e.save(item, true); err != nil {
				return err
			}
		}
		return e.w.WriteByte(opTuple1 + byte(len(t)-1))
	}
	e.w.WriteByte(opMark)
	for _, item := range t {
		if err := e.save(item, true); err != nil {
			return err
		}
	}
	return e.w.WriteByte(opTuple)
}

func (e *Encoder) saveList(l *List) error {
	if idx, ok := e.memo[l]; ok {
		return e.get(idx)
	}
	e.w.WriteByte(opEmptyList)
	if err := e.memoize(l); err != nil {
		return err
	}
	return e.batchAppends(l.Items)
}

func (e *Encoder) batchAppends(items []Value) error {
	for start := 0; start < len(items); start += batchSize {
		chunk := items[start:min(start+batchSize, len(items))]
		if len(chunk) == 1 {
			if err := e.save(chunk[0], true); err != nil {
				return err
			}
			e.w.WriteByte(opAppend)
			continue
		}
		e.w.WriteByte(opMark)
		for _, item := range chunk {
			if err := e.save(item, true); err != nil {
				return err
			}
		}
		e.w.WriteByte(opAppends)
	}
	return nil
}

func (e *Encoder) saveDict(d *Dict) error {
	if idx, ok := e.memo[d]; ok {
		return e.get(idx)
	}
	e.w.WriteByte(opEmptyDict)
	if err := e.memoize(d); err != nil {
		return err
	}
	return e.batchSetItems(d.Entries())
}

func (e *Encoder) batchSetItems(entries []DictEntry) error {
	for start := 0; start < len(entries); start += batchSize {
		chunk := entries[start:min(start+batchSize, len(entries))]
		if len(chunk) == 1 {
			if err := e.saveEntry(chunk[0]); err != nil {
				return err
			}
			e.w.WriteByte(opSetItem)
			continue
		}
		e.w.WriteByte(opMark)
		for _, entry := range chunk {
			if err := e.saveEntry(entry); err != nil {
				return err
			}
		}
		e.w.WriteByte(opSetItems)
	}
	return nil
}

func (e *Encoder) saveEntry(entry DictEntry) error {
	if err := e.save(entry.Key, true); err != nil {
		return err
	}
	return e.save(entry.Value, true)
}

func (e *Encoder) saveSet(s *Set) error {
	if idx, ok := e.memo[s]; ok {
		return e.get(idx)
	}
	if e.proto < 4 {
		return e.saveViaBuiltin(s, "set", s.Items)
	}
	e.w.WriteByte(opEmptySet)
	if err := e.memoize(s); err != nil {
		return err
	}
	for start := 0; start < len(s.Items); start += batchSize {
		e.w.WriteByte(opMark)
		for _, item := range s.Items[start:min(start+batchSize, len(s.Items))] {
			if err := e.save(item, true); err != nil {
				return err
			}
		}
		e.w.WriteByte(opAddItems)
	}
	return nil
}

func (e *Encoder) saveFrozenSet(s *FrozenSet) error {
	if idx, ok := e.memo[s]; ok {
		return e.get(idx)
	}
	if e.proto < 4 {
		return e.saveViaBuiltin(s, "frozenset", s.Items)
	}
	e.w.WriteByte(opMark)
	for _, item := range s.Items {
		if err := e.save(item, true); err != nil {
			return err
		}
	}
	if idx, ok := e.memo[s]; ok {
		// An item referred back to the frozenset itself.
		e.w.WriteByte(opPopMark)
		return e.get(idx)
	}
	e.w.WriteByte(opFrozenSet)
	return e.memoize(s)
}

// saveViaBuiltin writes builtins.<name>([items]) for protocols without
// native set opcodes.
func (e *Encoder) saveViaBuiltin(key any, name string, items []Value) error {
	if err := e.saveGlobal(Global{Module: "builtins", Name: name}); err != nil {
		return err
	}
	if err := e.saveTuple(Tuple{&List{Items: items}}); err != nil {
		return err
	}
	e.w.WriteByte(opReduce)
	return e.memoize(key)
}

func (e *Encoder) saveGlobal(g Global) error {
	if idx, ok := e.memo[g]; ok {
		return e.get(idx)
	}
	if e.proto >= 4 {
		if err := e.saveString(g.Module); err != nil {
			return err
		}
		if err := e.saveString(g.Name); err != nil {
			return err
		}
		e.w.WriteByte(opStackGlobal)
	} else {
		e.w.WriteByte(opGlobal)
		e.w.WriteString(g.Module + "\n" + g.Name + "\n")
	}
	return e.memoize(g)
}

func (e *Encoder) saveObject(obj *Object) error {
	if idx, ok := e.memo[obj]; ok {
		return e.get(idx)
	}
	if _, ok := e.reducing[obj]; ok {
		return &RecursionError{Object: obj}
	}

	reduced := obj
	if e.reducerOverride != nil {
		if sub, ok := e.reducerOverride(obj); ok && sub != nil {
			reduced = sub
			e.reducing[obj] = struct{}{}
		}
	}

	if err := e.save(reduced.Class, true); err != nil {
		return err
	}
	args := reduced.Args
	if args == nil {
		args = Tuple{}
	}
	if err := e.saveTuple(args); err != nil {
		return err
	}
	switch reduced.Kind {
	case KindNewObj:
		e.w.WriteByte(opNewObj)
	case KindNewObjEx:
		if e.proto < 4 {
			return fmt.Errorf("pickle: NEWOBJ_EX requires protocol 4, have %d", e.proto)
		}
		kwargs := reduced.Kwargs
		if kwargs == nil {
			kwargs = &Dict{}
		}
		if err := e.saveDict(kwargs); err != nil {
			return err
		}
		e.w.WriteByte(opNewObjEx)
	default:
		e.w.WriteByte(opReduce)
	}

	delete(e.reducing, obj)

	// Plain arguments may have referred back to obj; reuse that copy.
	if idx, ok := e.memo[obj]; ok {
		e.w.WriteByte(opPop)
		return e.get(idx)
	}
	if err := e.memoize(obj); err != nil {
		return err
	}

	if len(reduced.ListItems) > 0 {
		if err := e.batchAppends(reduced.ListItems); err != nil {
			return err
		}
	}
	if reduced.DictItems.Len() > 0 {
		if err := e.batchSetItems(reduced.DictItems.Entries()); err != nil {
			return err
		}
	}
	if reduced.State != nil {
		if err := e.save(reduced.State, true); err != nil {
			return err
		}
		return e.w.WriteByte(opBuild)
	}
	return nil
}

func (e *Encoder) memoize(key any) error {
	idx := len(e.memo)
	e.memo[key] = idx
	if e.proto >= 4 {
		return e.w.WriteByte(opMemoize)
	}
	if idx < 256 {
		e.w.WriteByte(opBinPut)
		return e.w.WriteByte(byte(idx))
	}
	e.w.WriteByte(opLongBinPut)
	binary.LittleEndian.PutUint32(e.buf[:4], uint32(idx))
	_, err := e.w.Write(e.buf[:4])
	return err
}

func (e *Encoder) get(idx int) error {
	if idx < 256 {
		e.w.WriteByte(opBinGet)
		return e.w.WriteByte(byte(idx))
	}
	e.w.WriteByte(opLongBinGet)
	binary.LittleEndian.PutUint32(e.buf[:4], uint32(idx))
	_, err := e.w.Write(e.buf[:4])
	return err
}
