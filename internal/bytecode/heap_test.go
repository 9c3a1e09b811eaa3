package bytecode

import "testing"

// fakeRoot implements RootMarker over a fixed slice of values, standing in
// for a VM's stack during collector tests.
type fakeRoot struct {
	values []Value
}

func (r *fakeRoot) MarkRoots(h *Heap) {
	for _, v := range r.values {
		h.MarkValue(v)
	}
}

func TestCollectSweepsUnreachableStrings(t *testing.T) {
	h := NewHeap()
	root := &fakeRoot{}
	h.AddRoot(root)

	kept := h.InternString("kept")
	h.InternString("garbage")
	root.values = []Value{ObjVal(kept)}

	before := h.BytesAllocated()
	h.Collect()
	after := h.BytesAllocated()

	if after >= before {
		t.Fatalf("expected bytesAllocated to shrink after collecting garbage, before=%d after=%d", before, after)
	}
	if h.strings.FindString(kept.Chars, kept.Hash) == nil {
		t.Fatalf("expected rooted string to survive collection")
	}
	if h.strings.FindString("garbage", fnv1a32("garbage")) != nil {
		t.Fatalf("expected unrooted string to be swept from the intern table")
	}
}

func TestCollectKeepsReachableClosureGraph(t *testing.T) {
	h := NewHeap()
	root := &fakeRoot{}
	h.AddRoot(root)

	fn := h.NewFunction()
	fn.Name = h.InternString("f")
	closure := h.NewClosure(fn)
	root.values = []Value{ObjVal(closure)}

	h.Collect()

	if h.BytesAllocated() == 0 {
		t.Fatalf("expected the reachable closure and its function to survive collection")
	}
}
