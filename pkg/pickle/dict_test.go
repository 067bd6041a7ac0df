package pickle

import (
	"math/big"
	"testing"
)

func TestDict_SetKeepsPosition(t *testing.T) {
	d := NewDict("a", int64(1), "b", int64(2), "c", int64(3))
	d.Set("b", int64(20))

	keys := d.Keys()
	want := []Value{"a", "b", "c"}
	if len(keys) != len(want) {
		t.Fatalf("Keys() = %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("Keys()[%d] = %v, want %v", i, keys[i], want[i])
		}
	}
	if v, _ := d.Get("b"); v != int64(20) {
		t.Errorf("Get(b) = %v, want 20", v)
	}
}

func TestDict_Delete(t *testing.T) {
	d := NewDict("a", int64(1), "b", int64(2), "c", int64(3))

	v, ok := d.Delete("a")
	if !ok || v != int64(1) {
		t.Fatalf("Delete(a) = %v, %v", v, ok)
	}
	if d.Len() != 2 {
		t.Errorf("Len() = %d, want 2", d.Len())
	}
	if v, ok := d.Get("c"); !ok || v != int64(3) {
		t.Errorf("Get(c) after delete = %v, %v", v, ok)
	}
	if _, ok := d.Delete("missing"); ok {
		t.Error("Delete(missing) reported success")
	}
}

func TestDict_PythonKeyEquality(t *testing.T) {
	d := &Dict{}
	d.Set(int64(1), "int")
	d.Set(true, "bool")
	d.Set(1.0, "float")
	d.Set(big.NewInt(1), "big")

	if d.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 (1 == True == 1.0)", d.Len())
	}
	if v, _ := d.Get(int64(1)); v != "big" {
		t.Errorf("Get(1) = %v, want big", v)
	}
	if d.Keys()[0] != int64(1) {
		t.Errorf("first key = %#v, want the original int64", d.Keys()[0])
	}
}

func TestDict_TupleKeys(t *testing.T) {
	d := NewDict(Tuple{int64(1), int64(2)}, "pair", Tuple{"1", int64(2)}, "mixed")

	if v, _ := d.Get(Tuple{int64(1), int64(2)}); v != "pair" {
		t.Errorf("Get((1, 2)) = %v, want pair", v)
	}
	if v, _ := d.Get(Tuple{"1", int64(2)}); v != "mixed" {
		t.Errorf("Get(('1', 2)) = %v, want mixed", v)
	}
	if d.Has(Tuple{int64(2), int64(1)}) {
		t.Error("(2, 1) should not be present")
	}
}

func TestDict_UnhashableKeys(t *testing.T) {
	d := &Dict{}
	key := &List{}
	d.Set(key, int64(1))
	d.Set(key, int64(2))

	if d.Len() != 2 {
		t.Errorf("Len() = %d, want 2", d.Len())
	}
	if d.Has(key) {
		t.Error("unhashable key should not be indexed")
	}
}

func TestDict_NilAndClone(t *testing.T) {
	var nilDict *Dict
	if nilDict.Len() != 0 || nilDict.Has("a") || nilDict.Entries() != nil {
		t.Error("nil dict should behave as empty")
	}

	orig := NewDict("a", int64(1))
	clone := orig.Clone()
	clone.Set("b", int64(2))
	if orig.Has("b") {
		t.Error("Clone shares storage with the original")
	}
	if !clone.Has("a") {
		t.Error("Clone lost entries")
	}
}
