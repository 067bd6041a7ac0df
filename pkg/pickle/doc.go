// Package pickle implements the Python pickle serialization format.
//
// The decoder runs the full pickle virtual machine for protocols 0-5 and
// builds a Go value graph; the encoder writes that graph back using
// protocol 3, 4 or 5 the same way CPython's Pickler lays it out.
//
// Value model:
//
//   - None, bool, int64, *big.Int, float64, string
//   - Bytes, ByteArray, Tuple
//   - *List, *Dict, *Set, *FrozenSet (pointer identity is preserved)
//   - Global: a module-level name reference (class or function)
//   - *Object: an instance built by REDUCE, NEWOBJ, NEWOBJ_EX, INST or OBJ,
//     carrying its constructor arguments and BUILD state
//   - PersistentRef: a persistent id the decoder did not resolve
//
// Hooks let callers resolve classes (WithFindClass), resolve persistent
// ids (WithPersistentLoad), intercept BUILD (WithSetState), emit
// persistent ids (WithPersistentID) and substitute reductions
// (WithReducerOverride).
//
// Usage:
//
//	v, err := pickle.NewDecoder(r).Decode()
//	err = pickle.NewEncoder(w, pickle.WithProtocol(4)).Encode(v)
package pickle
