package bytecode

// initialGCThreshold is the bytesAllocated level that triggers the first
// collection; after each collection the threshold becomes
// bytesAllocated * gcHeapGrowFactor, per original_source/memory.c.
const (
	initialGCThreshold = 1 << 20 // 1 MiB
	gcHeapGrowFactor   = 2
)

// RootMarker is implemented by anything that holds live Values the
// collector must not reclaim: the VM (its stack, frames, globals, open
// upvalues) and, while compilation is in progress, the compiler (its chain
// of in-progress functions and their constant pools).
type RootMarker interface {
	MarkRoots(h *Heap)
}

// Heap owns every object allocated over its VM's lifetime, across every
// Interpret call on that VM: the
// intrusive all-objects list (the sole deallocation index), the string
// intern table, and the mark-sweep collector's bookkeeping. There is
// exactly one Heap per VM instance.
type Heap struct {
	objects Object
	strings *Table

	bytesAllocated int64
	nextGC         int64

	gray  []Object
	roots []RootMarker

	// StressGC, when true, forces a collection before every tracked
	// allocation rather than only once bytesAllocated crosses nextGC.
	// Mirrors original_source's DEBUG_STRESS_GC build flag.
	StressGC bool
}

// NewHeap returns an empty Heap with the initial 1 MiB collection
// threshold and its own string intern table.
func NewHeap() *Heap {
	return &Heap{strings: NewTable(), nextGC: initialGCThreshold}
}

// AddRoot registers r so Collect's mark phase visits it. The VM adds
// itself for the lifetime of the Heap; the compiler adds itself only
// while a Compile call is in flight and removes itself when done.
func (h *Heap) AddRoot(r RootMarker) {
	h.roots = append(h.roots, r)
}

// RemoveRoot unregisters the most recently added RootMarker equal to r.
func (h *Heap) RemoveRoot(r RootMarker) {
	for i := len(h.roots) - 1; i >= 0; i-- {
		if h.roots[i] == r {
			h.roots = append(h.roots[:i], h.roots[i+1:]...)
			return
		}
	}
}

// BytesAllocated reports the collector's current byte accounting, exposed
// for tests and the optional debug trace.
func (h *Heap) BytesAllocated() int64 { return h.bytesAllocated }

// track accounts for a newly allocated object's approximate size and links
// it into the all-objects list. The GC threshold check happens before the
// link so that a collection triggered by this very allocation cannot sweep
// obj — it isn't reachable through h.objects yet when Collect walks it.
func (h *Heap) track(obj Object, size int) {
	h.bytesAllocated += int64(size)
	obj.setSize(size)
	if h.bytesAllocated > h.nextGC || h.StressGC {
		h.Collect()
	}
	obj.setNext(h.objects)
	h.objects = obj
}

// Collect runs one full tracing mark-sweep cycle: mark every registered
// root, trace the gray worklist to blacken everything reachable, strip
// unmarked (about to be collected) strings out of the intern table, then
// sweep the all-objects list.
func (h *Heap) Collect() {
	for _, r := range h.roots {
		r.MarkRoots(h)
	}
	h.traceReferences()
	h.strings.RemoveWhite()
	h.sweep()
	h.nextGC = h.bytesAllocated * gcHeapGrowFactor
}

// MarkValue marks v's underlying object, if it has one.
func (h *Heap) MarkValue(v Value) {
	if v.Kind == ValObj {
		h.MarkObject(v.Obj)
	}
}

// MarkObject marks obj white-to-gray and pushes it onto the gray worklist.
// A nil or already-marked object is left untouched, which both terminates
// cycles and makes every call site safe to invoke unconditionally.
func (h *Heap) MarkObject(obj Object) {
	if obj == nil || obj.isMarked() {
		return
	}
	obj.mark()
	h.gray = append(h.gray, obj)
}

// MarkTable marks every key and value in t. Used for the globals table and
// for class method / instance field tables reached while blackening.
func (h *Heap) MarkTable(t *Table) {
	if t == nil {
		return
	}
	t.Each(func(key *ObjString, value Value) {
		h.MarkObject(key)
		h.MarkValue(value)
	})
}

// traceReferences drains the gray worklist, blackening each object by
// marking everything it references in turn, until nothing gray remains.
func (h *Heap) traceReferences() {
	for len(h.gray) > 0 {
		obj := h.gray[len(h.gray)-1]
		h.gray = h.gray[:len(h.gray)-1]
		h.blacken(obj)
	}
}

// blacken marks every object directly reachable from obj. This is the one
// place in the collector that must know about every Object variant's
// shape; it is intentionally a plain type switch rather than a virtual
// "Trace" method, per the no-virtual-dispatch design note.
func (h *Heap) blacken(obj Object) {
	switch o := obj.(type) {
	case *ObjString, *ObjNative:
		// No outgoing references.
	case *ObjUpvalue:
		h.MarkValue(o.Closed)
	case *ObjFunction:
		h.MarkObject(o.Name)
		for _, c := range o.Chunk.Constants {
			h.MarkValue(c)
		}
	case *ObjClosure:
		h.MarkObject(o.Function)
		for _, uv := range o.Upvalues {
			h.MarkObject(uv)
		}
	case *ObjClass:
		h.MarkObject(o.Name)
		h.MarkTable(o.Methods)
	case *ObjInstance:
		h.MarkObject(o.Class)
		h.MarkTable(o.Fields)
	case *ObjBoundMethod:
		h.MarkValue(o.Receiver)
		h.MarkObject(o.Method)
	}
}

// sweep walks the all-objects list, dropping (and shrinking bytesAllocated
// for) every object left unmarked, and clearing the mark bit on every
// survivor for the next cycle.
func (h *Heap) sweep() {
	var prev Object
	obj := h.objects
	for obj != nil {
		if obj.isMarked() {
			obj.unmark()
			prev = obj
			obj = obj.next()
			continue
		}

		toFree := obj
		obj = obj.next()
		if prev != nil {
			prev.setNext(obj)
		} else {
			h.objects = obj
		}
		h.bytesAllocated -= int64(toFree.getSize())
	}
}

// Teardown releases everything the Heap owns: the globals and intern
// tables hold no owning references, so it is enough to drop the
// all-objects list and the gray worklist buffer; the Go runtime reclaims
// the memory once nothing references it.
func (h *Heap) Teardown() {
	h.objects = nil
	h.gray = nil
	h.strings = NewTable()
	h.roots = nil
}
