// Package pickle implements the Python pickle serialization format.
package pickle

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"math/big"
	"strconv"
	"strings"
	"unicode/utf8"
)

// DecoderOption configures a Decoder.
type DecoderOption func(*Decoder)

// WithFindClass sets the hook that resolves GLOBAL, STACK_GLOBAL and INST
// references. The default returns Global{module, name}.
func WithFindClass(fn func(module, name string) (Value, error)) DecoderOption {
	return func(d *Decoder) {
		d.findClass = fn
	}
}

// WithPersistentLoad sets the hook that resolves persistent ids.
// The default returns PersistentRef{ID: pid}.
func WithPersistentLoad(fn func(pid Value) (Value, error)) DecoderOption {
	return func(d *Decoder) {
		d.persistentLoad = fn
	}
}

// WithSetState sets the hook BUILD calls on an Object. The hook owns
// obj.State; DefaultSetState is the fallback behavior.
func WithSetState(fn func(obj *Object, state Value) error) DecoderOption {
	return func(d *Decoder) {
		d.setState = fn
	}
}

// DefaultSetState stores state on the object as-is.
func DefaultSetState(obj *Object, state Value) error {
	obj.State = state
	return nil
}

// Decoder reads a pickle stream.
type Decoder struct {
	r      *bufio.Reader
	offset int64

	findClass      func(module, name string) (Value, error)
	persistentLoad func(pid Value) (Value, error)
	setState       func(obj *Object, state Value) error

	stack []Value
	marks []int
	memo  map[int]Value
	proto int
}

// NewDecoder creates a decoder reading from r.
func NewDecoder(r io.Reader, opts ...DecoderOption) *Decoder {
	d := &Decoder{
		r: bufio.NewReader(r),
		findClass: func(module, name string) (Value, error) {
			return Global{Module: module, Name: name}, nil
		},
		persistentLoad: func(pid Value) (Value, error) {
			return PersistentRef{ID: pid}, nil
		},
		setState: DefaultSetState,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Protocol returns the protocol announced by the last decoded stream,
// or 0 when it had no PROTO opcode.
func (d *Decoder) Protocol() int {
	return d.proto
}

// Decode reads one pickled value.
func (d *Decoder) Decode() (Value, error) {
	d.stack = d.stack[:0]
	d.marks = d.marks[:0]
	d.memo = make(map[int]Value)
	d.proto = 0

	for {
		start := d.offset
		op, err := d.readByte()
		if err != nil {
			return nil, &DecodeError{Offset: start, Err: err}
		}
		if op == opStop {
			v, err := d.pop()
			if err != nil {
				return nil, &DecodeError{Offset: start, Op: op, Err: err}
			}
			return v, nil
		}
		if err := d.dispatch(op); err != nil {
			return nil, &DecodeError{Offset: start, Op: op, Err: err}
		}
	}
}

func (d *Decoder) dispatch(op byte) error {
	switch op {
	case opMark:
		d.marks = append(d.marks, len(d.stack))
		return nil
	case opPop:
		if len(d.stack) > d.base() {
			d.stack = d.stack[:len(d.stack)-1]
			return nil
		}
		_, err := d.popMark()
		return err
	case opPopMark:
		_, err := d.popMark()
		return err
	case opDup:
		v, err := d.top()
		if err != nil {
			return err
		}
		d.push(v)
		return nil

	case opNone:
		d.push(None{})
		return nil
	case opNewTrue:
		d.push(true)
		return nil
	case opNewFalse:
		d.push(false)
		return nil
	case opInt:
		return d.loadInt()
	case opLong:
		line, err := d.readLine()
		if err != nil {
			return err
		}
		v, err := parseInt(strings.TrimSuffix(line, "L"))
		if err != nil {
			return err
		}
		d.push(v)
		return nil
	case opBinInt:
		b, err := d.readN(4)
		if err != nil {
			return err
		}
		d.push(int64(int32(binary.LittleEndian.Uint32(b))))
		return nil
	case opBinInt1:
		b, err := d.readByte()
		if err != nil {
			return err
		}
		d.push(int64(b))
		return nil
	case opBinInt2:
		b, err := d.readN(2)
		if err != nil {
			return err
		}
		d.push(int64(binary.LittleEndian.Uint16(b)))
		return nil
	case opLong1:
		n, err := d.readByte()
		if err != nil {
			return err
		}
		b, err := d.readN(uint64(n))
		if err != nil {
			return err
		}
		d.push(decodeLong(b))
		return nil
	case opLong4:
		n, err := d.readInt32Len()
		if err != nil {
			return err
		}
		b, err := d.readN(n)
		if err != nil {
			return err
		}
		d.push(decodeLong(b))
		return nil
	case opFloat:
		line, err := d.readLine()
		if err != nil {
			return err
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(line), 64)
		if err != nil {
			return fmt.Errorf("pickle: invalid float %q: %w", line, err)
		}
		d.push(f)
		return nil
	case opBinFloat:
		b, err := d.readN(8)
		if err != nil {
			return err
		}
		d.push(math.Float64frombits(binary.BigEndian.Uint64(b)))
		return nil

	case opString:
		line, err := d.readLine()
		if err != nil {
			return err
		}
		s, err := unquoteString(line)
		if err != nil {
			return err
		}
		d.push(s)
		return nil
	case opBinString:
		n, err := d.readInt32Len()
		if err != nil {
			return err
		}
		return d.pushString(n)
	case opShortBinString, opShortBinUnicode:
		n, err := d.readByte()
		if err != nil {
			return err
		}
		return d.pushString(uint64(n))
	case opBinUnicode:
		n, err := d.readUint32()
		if err != nil {
			return err
		}
		return d.pushString(uint64(n))
	case opBinUnicode8:
		n, err := d.readUint64()
		if err != nil {
			return err
		}
		return d.pushString(n)
	case opUnicode:
		line, err := d.readLine()
		if err != nil {
			return err
		}
		d.push(decodeRawUnicodeEscape(line))
		return nil

	case opShortBinBytes:
		n, err := d.readByte()
		if err != nil {
			return err
		}
		return d.pushBytes(uint64(n))
	case opBinBytes:
		n, err := d.readUint32()
		if err != nil {
			return err
		}
		return d.pushBytes(uint64(n))
	case opBinBytes8:
		n, err := d.readUint64()
		if err != nil {
			return err
		}
		return d.pushBytes(n)
	case opByteArray8:
		n, err := d.readUint64()
		if err != nil {
			return err
		}
		b, err := d.readN(n)
		if err != nil {
			return err
		}
		d.push(ByteArray(b))
		return nil

	case opEmptyTuple:
		d.push(Tuple{})
		return nil
	case opTuple1, opTuple2, opTuple3:
		n := int(op-opTuple1) + 1
		if len(d.stack)-d.base() < n {
			return ErrStackUnderflow
		}
		t := make(Tuple, n)
		copy(t, d.stack[len(d.stack)-n:])
		d.stack = d.stack[:len(d.stack)-n]
		d.push(t)
		return nil
	case opTuple:
		items, err := d.popMark()
		if err != nil {
			return err
		}
		d.push(Tuple(items))
		return nil
	case opEmptyList:
		d.push(&List{})
		return nil
	case opList:
		items, err := d.popMark()
		if err != nil {
			return err
		}
		d.push(&List{Items: items})
		return nil
	case opEmptyDict:
		d.push(&Dict{})
		return nil
	case opDict:
		items, err := d.popMark()
		if err != nil {
			return err
		}
		dict := &Dict{}
		if err := setItems(dict, items); err != nil {
			return err
		}
		d.push(dict)
		return nil
	case opEmptySet:
		d.push(&Set{})
		return nil
	case opFrozenSet:
		items, err := d.popMark()
		if err != nil {
			return err
		}
		d.push(&FrozenSet{Items: items})
		return nil

	case opAppend:
		v, err := d.pop()
		if err != nil {
			return err
		}
		target, err := d.top()
		if err != nil {
			return err
		}
		return appendItems(target, []Value{v})
	case opAppends:
		items, err := d.popMark()
		if err != nil {
			return err
		}
		target, err := d.top()
		if err != nil {
			return err
		}
		return appendItems(target, items)
	case opSetItem:
		v, err := d.pop()
		if err != nil {
			return err
		}
		k, err := d.pop()
		if err != nil {
			return err
		}
		target, err := d.top()
		if err != nil {
			return err
		}
		return setItems(target, []Value{k, v})
	case opSetItems:
		items, err := d.popMark()
		if err != nil {
			return err
		}
		target, err := d.top()
		if err != nil {
			return err
		}
		return setItems(target, items)
	case opAddItems:
		items, err := d.popMark()
		if err != nil {
			return err
		}
		target, err := d.top()
		if err != nil {
			return err
		}
		set, ok := target.(*Set)
		if !ok {
			return fmt.Errorf("pickle: ADDITEMS on %T", target)
		}
		set.Items = append(set.Items, items...)
		return nil

	case opGet:
		line, err := d.readLine()
		if err != nil {
			return err
		}
		idx, err := strconv.Atoi(line)
		if err != nil {
			return fmt.Errorf("pickle: invalid memo key %q", line)
		}
		return d.memoGet(idx)
	case opBinGet:
		b, err := d.readByte()
		if err != nil {
			return err
		}
		return d.memoGet(int(b))
	case opLongBinGet:
		n, err := d.readUint32()
		if err != nil {
			return err
		}
		return d.memoGet(int(n))
	case opPut:
		line, err := d.readLine()
		if err != nil {
			return err
		}
		idx, err := strconv.Atoi(line)
		if err != nil || idx < 0 {
			return fmt.Errorf("pickle: invalid memo key %q", line)
		}
		return d.memoPut(idx)
	case opBinPut:
		b, err := d.readByte()
		if err != nil {
			return err
		}
		return d.memoPut(int(b))
	case opLongBinPut:
		n, err := d.readUint32()
		if err != nil {
			return err
		}
		return d.memoPut(int(n))
	case opMemoize:
		return d.memoPut(len(d.memo))

	case opGlobal:
		module, err := d.readLine()
		if err != nil {
			return err
		}
		name, err := d.readLine()
		if err != nil {
			return err
		}
		cls, err := d.resolve(module, name)
		if err != nil {
			return err
		}
		d.push(cls)
		return nil
	case opStackGlobal:
		nameV, err := d.pop()
		if err != nil {
			return err
		}
		moduleV, err := d.pop()
		if err != nil {
			return err
		}
		module, ok1 := moduleV.(string)
		name, ok2 := nameV.(string)
		if !ok1 || !ok2 {
			return errors.New("pickle: STACK_GLOBAL requires str")
		}
		cls, err := d.resolve(module, name)
		if err != nil {
			return err
		}
		d.push(cls)
		return nil

	case opReduce:
		argsV, err := d.pop()
		if err != nil {
			return err
		}
		fn, err := d.pop()
		if err != nil {
			return err
		}
		args, ok := argsV.(Tuple)
		if !ok {
			return fmt.Errorf("pickle: REDUCE arguments must be a tuple, got %T", argsV)
		}
		return d.construct(fn, args)
	case opNewObj:
		argsV, err := d.pop()
		if err != nil {
			return err
		}
		cls, err := d.pop()
		if err != nil {
			return err
		}
		args, ok := argsV.(Tuple)
		if !ok {
			return fmt.Errorf("pickle: NEWOBJ arguments must be a tuple, got %T", argsV)
		}
		d.push(&Object{Class: cls, Kind: KindNewObj, Args: args})
		return nil
	case opNewObjEx:
		kwargsV, err := d.pop()
		if err != nil {
			return err
		}
		argsV, err := d.pop()
		if err != nil {
			return err
		}
		cls, err := d.pop()
		if err != nil {
			return err
		}
		args, ok := argsV.(Tuple)
		if !ok {
			return fmt.Errorf("pickle: NEWOBJ_EX arguments must be a tuple, got %T", argsV)
		}
		kwargs, ok := kwargsV.(*Dict)
		if !ok {
			return fmt.Errorf("pickle: NEWOBJ_EX keyword arguments must be a dict, got %T", kwargsV)
		}
		d.push(&Object{Class: cls, Kind: KindNewObjEx, Args: args, Kwargs: kwargs})
		return nil
	case opInst:
		module, err := d.readLine()
		if err != nil {
			return err
		}
		name, err := d.readLine()
		if err != nil {
			return err
		}
		args, err := d.popMark()
		if err != nil {
			return err
		}
		cls, err := d.resolve(module, name)
		if err != nil {
			return err
		}
		return d.construct(cls, Tuple(args))
	case opObj:
		items, err := d.popMark()
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return ErrStackUnderflow
		}
		return d.construct(items[0], Tuple(items[1:]))
	case opBuild:
		state, err := d.pop()
		if err != nil {
			return err
		}
		inst, err := d.top()
		if err != nil {
			return err
		}
		obj, ok := inst.(*Object)
		if !ok {
			return fmt.Errorf("pickle: BUILD on %T", inst)
		}
		return d.setState(obj, state)

	case opPersID:
		line, err := d.readLine()
		if err != nil {
			return err
		}
		v, err := d.persistentLoad(line)
		if err != nil {
			return err
		}
		d.push(v)
		return nil
	case opBinPersID:
		pid, err := d.pop()
		if err != nil {
			return err
		}
		v, err := d.persistentLoad(pid)
		if err != nil {
			return err
		}
		d.push(v)
		return nil

	case opProto:
		b, err := d.readByte()
		if err != nil {
			return err
		}
		if int(b) > HighestProtocol {
			return fmt.Errorf("%w: %d", ErrProtocol, b)
		}
		d.proto = int(b)
		return nil
	case opFrame:
		_, err := d.readN(8)
		return err

	default:
		return ErrUnsupportedOpcode
	}
}

func (d *Decoder) construct(fn Value, args Tuple) error {
	if c, ok := fn.(Callable); ok {
		v, err := c.Call(args)
		if err != nil {
			return err
		}
		d.push(v)
		return nil
	}
	d.push(&Object{Class: fn, Kind: KindReduce, Args: args})
	return nil
}

// compatNames mirrors CPython's _compat_pickle mapping for protocol 0-2
// streams written by Python 2.
var compatNames = map[Global]Global{
	{Module: "__builtin__", Name: "xrange"}:     {Module: "builtins", Name: "range"},
	{Module: "__builtin__", Name: "unicode"}:    {Module: "builtins", Name: "str"},
	{Module: "__builtin__", Name: "basestring"}: {Module: "builtins", Name: "str"},
	{Module: "__builtin__", Name: "long"}:       {Module: "builtins", Name: "int"},
	{Module: "__builtin__", Name: "reduce"}:     {Module: "functools", Name: "reduce"},
	{Module: "UserDict", Name: "UserDict"}:      {Module: "collections", Name: "UserDict"},
}

var compatModules = map[string]string{
	"__builtin__": "builtins",
	"copy_reg":    "copyreg",
	"Queue":       "queue",
	"cPickle":     "pickle",
}

func (d *Decoder) resolve(module, name string) (Value, error) {
	if d.proto < 3 {
		if g, ok := compatNames[Global{Module: module, Name: name}]; ok {
			module, name = g.Module, g.Name
		} else if m, ok := compatModules[module]; ok {
			module = m
		}
	}
	return d.findClass(module, name)
}

func appendItems(target Value, items []Value) error {
	switch t := target.(type) {
	case *List:
		t.Items = append(t.Items, items...)
	case *Object:
		t.ListItems = append(t.ListItems, items...)
	default:
		return fmt.Errorf("pickle: cannot append to %T", target)
	}
	return nil
}

func setItems(target Value, items []Value) error {
	if len(items)%2 != 0 {
		return errors.New("pickle: odd number of items for dict")
	}
	var dict *Dict
	switch t := target.(type) {
	case *Dict:
		dict = t
	case *Object:
		if t.DictItems == nil {
			t.DictItems = &Dict{}
		}
		dict = t.DictItems
	default:
		return fmt.Errorf("pickle: cannot set items on %T", target)
	}
	for i := 0; i < len(items); i += 2 {
		dict.Set(items[i], items[i+1])
	}
	return nil
}

func (d *Decoder) loadInt() error {
	line, err := d.readLine()
	if err != nil {
		return err
	}
	switch line {
	case "00":
		d.push(false)
		return nil
	case "01":
		d.push(true)
		return nil
	}
	v, err := parseInt(line)
	if err != nil {
		return err
	}
	d.push(v)
	return nil
}

func parseInt(s string) (Value, error) {
	s = strings.TrimSpace(s)
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, nil
	}
	b, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("pickle: invalid int %q", s)
	}
	return toInt(b), nil
}

// decodeLong decodes a little-endian two's complement integer.
func decodeLong(data []byte) Value {
	n := len(data)
	if n == 0 {
		return int64(0)
	}
	be := make([]byte, n)
	for i, b := range data {
		be[n-1-i] = b
	}
	v := new(big.Int).SetBytes(be)
	if data[n-1]&0x80 != 0 {
		v.Sub(v, new(big.Int).Lsh(big.NewInt(1), uint(8*n)))
	}
	return toInt(v)
}

// unquoteString decodes the repr() form used by the STRING opcode.
func unquoteString(line string) (string, error) {
	if len(line) < 2 || (line[0] != '\'' && line[0] != '"') || line[len(line)-1] != line[0] {
		return "", errors.New("pickle: STRING opcode argument must be quoted")
	}
	s := line[1 : len(line)-1]
	var out []byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 >= len(s) {
			out = append(out, c)
			continue
		}
		i++
		switch e := s[i]; e {
		case '\\', '\'', '"':
			out = append(out, e)
		case 'a':
			out = append(out, '\a')
		case 'b':
			out = append(out, '\b')
		case 'f':
			out = append(out, '\f')
		case 'n':
			out = append(out, '\n')
		case 'r':
			out = append(out, '\r')
		case 't':
			out = append(out, '\t')
		case 'v':
			out = append(out, '\v')
		case '\n':
		case 'x':
			if i+2 < len(s) {
				if v, err := strconv.ParseUint(s[i+1:i+3], 16, 8); err == nil {
					out = append(out, byte(v))
					i += 2
					continue
				}
			}
			return "", fmt.Errorf("pickle: invalid \\x escape in %q", line)
		case '0', '1', '2', '3', '4', '5', '6', '7':
			j := i
			for j < len(s) && j < i+3 && s[j] >= '0' && s[j] <= '7' {
				j++
			}
			v, _ := strconv.ParseUint(s[i:j], 8, 16)
			out = append(out, byte(v))
			i = j - 1
		default:
			out = append(out, '\\', e)
		}
	}
	return string(out), nil
}

// decodeRawUnicodeEscape decodes the raw-unicode-escape codec used by
// the UNICODE opcode: \uXXXX and \UXXXXXXXX escapes, other bytes latin-1.
func decodeRawUnicodeEscape(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\\' && i+1 < len(s) {
			width := 0
			switch s[i+1] {
			case 'u':
				width = 4
			case 'U':
				width = 8
			}
			if width > 0 && i+2+width <= len(s) {
				if r, err := strconv.ParseUint(s[i+2:i+2+width], 16, 32); err == nil && utf8.ValidRune(rune(r)) {
					b.WriteRune(rune(r))
					i += 1 + width
					continue
				}
			}
		}
		b.WriteRune(rune(c))
	}
	return b.String()
}

func (d *Decoder) push(v Value) {
	d.stack = append(d.stack, v)
}

func (d *Decoder) base() int {
	if len(d.marks) == 0 {
		return 0
	}
	return d.marks[len(d.marks)-1]
}

func (d *Decoder) pop() (Value, error) {
	if len(d.stack) <= d.base() {
		return nil, ErrStackUnderflow
	}
	v := d.stack[len(d.stack)-1]
	d.stack = d.stack[:len(d.stack)-1]
	return v, nil
}

func (d *Decoder) top() (Value, error) {
	if len(d.stack) <= d.base() {
		return nil, ErrStackUnderflow
	}
	return d.stack[len(d.stack)-1], nil
}

func (d *Decoder) popMark() ([]Value, error) {
	if len(d.marks) == 0 {
		return nil, ErrNoMark
	}
	m := d.marks[len(d.marks)-1]
	d.marks = d.marks[:len(d.marks)-1]
	items := make([]Value, len(d.stack)-m)
	copy(items, d.stack[m:])
	d.stack = d.stack[:m]
	return items, nil
}

func (d *Decoder) memoGet(idx int) error {
	v, ok := d.memo[idx]
	if !ok {
		return fmt.Errorf("pickle: memo key %d not found", idx)
	}
	d.push(v)
	return nil
}

func (d *Decoder) memoPut(idx int) error {
	v, err := d.top()
	if err != nil {
		return err
	}
	d.memo[idx] = v
	return nil
}

func (d *Decoder) pushString(n uint64) error {
	b, err := d.readN(n)
	if err != nil {
		return err
	}
	d.push(string(b))
	return nil
}

func (d *Decoder) pushBytes(n uint64) error {
	b, err := d.readN(n)
	if err != nil {
		return err
	}
	d.push(Bytes(b))
	return nil
}

func (d *Decoder) readByte() (byte, error) {
	b, err := d.r.ReadByte()
	if err != nil {
		return 0, ErrTruncated
	}
	d.offset++
	return b, nil
}

// smallRead is the size up to which readN allocates the full length up
// front; longer reads grow with the data actually present.
const smallRead = 1 << 20

func (d *Decoder) readN(n uint64) ([]byte, error) {
	if n <= smallRead {
		buf := make([]byte, n)
		read, err := io.ReadFull(d.r, buf)
		d.offset += int64(read)
		if err != nil {
			return nil, ErrTruncated
		}
		return buf, nil
	}
	if n > math.MaxInt64 {
		return nil, ErrTruncated
	}
	buf, err := io.ReadAll(io.LimitReader(d.r, int64(n)))
	d.offset += int64(len(buf))
	if err != nil || uint64(len(buf)) != n {
		return nil, ErrTruncated
	}
	return buf, nil
}

func (d *Decoder) readLine() (string, error) {
	line, err := d.r.ReadString('\n')
	d.offset += int64(len(line))
	if err != nil {
		return "", ErrTruncated
	}
	return strings.TrimSuffix(line[:len(line)-1], "\r"), nil
}

func (d *Decoder) readUint32() (uint32, error) {
	b, err := d.readN(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (d *Decoder) readUint64() (uint64, error) {
	b, err := d.readN(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (d *Decoder) readInt32Len() (uint64, error) {
	b, err := d.readN(4)
	if err != nil {
		return 0, err
	}
	n := int32(binary.LittleEndian.Uint32(b))
	if n < 0 {
		return 0, errors.New("pickle: negative length")
	}
	return uint64(n), nil
}
