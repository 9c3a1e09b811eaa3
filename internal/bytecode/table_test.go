package bytecode

import "testing"

func TestTableSetGetDelete(t *testing.T) {
	heap := NewHeap()
	table := NewTable()

	key := heap.InternString("answer")
	if _, ok := table.Get(key); ok {
		t.Fatalf("expected miss on empty table")
	}

	isNew := table.Set(key, NumberVal(42))
	if !isNew {
		t.Fatalf("expected Set to report a new entry")
	}
	if v, ok := table.Get(key); !ok || v.Number != 42 {
		t.Fatalf("expected 42, got %v, ok=%v", v, ok)
	}

	if !table.Delete(key) {
		t.Fatalf("expected Delete to succeed")
	}
	if _, ok := table.Get(key); ok {
		t.Fatalf("expected miss after delete")
	}
}

func TestTableGrowsAndPreservesEntries(t *testing.T) {
	heap := NewHeap()
	table := NewTable()

	keys := make([]*ObjString, 0, 64)
	for i := 0; i < 64; i++ {
		key := heap.InternString(string(rune('a' + i%26)) + string(rune('A'+i)))
		keys = append(keys, key)
		table.Set(key, NumberVal(float64(i)))
	}

	for i, key := range keys {
		v, ok := table.Get(key)
		if !ok || v.Number != float64(i) {
			t.Fatalf("entry %d lost after growth: got %v, ok=%v", i, v, ok)
		}
	}
	if table.Count() != 64 {
		t.Fatalf("expected count 64, got %d", table.Count())
	}
}

func TestTableAddAllCopiesEntries(t *testing.T) {
	heap := NewHeap()
	src := NewTable()
	dst := NewTable()

	a := heap.InternString("a")
	b := heap.InternString("b")
	src.Set(a, NumberVal(1))
	src.Set(b, NumberVal(2))

	src.AddAll(dst)

	if v, ok := dst.Get(a); !ok || v.Number != 1 {
		t.Fatalf("expected a=1 copied into dst, got %v, ok=%v", v, ok)
	}
	if v, ok := dst.Get(b); !ok || v.Number != 2 {
		t.Fatalf("expected b=2 copied into dst, got %v, ok=%v", v, ok)
	}
}

func TestInternStringReturnsSamePointerForEqualContents(t *testing.T) {
	heap := NewHeap()
	a := heap.InternString("hello")
	b := heap.InternString("hello")
	if a != b {
		t.Fatalf("expected interning to return the same *ObjString for equal contents")
	}
}
