package bytecode

// tableMaxLoad is the load factor at which Table grows its backing array.
const tableMaxLoad = 0.75

// entry is one slot of a Table. A Key of nil with a None Value is a slot
// that was never occupied; a Key of nil with a true Value is a tombstone
// left behind by Delete, which keeps probe chains through it intact
// without inflating Count.
type entry struct {
	Key   *ObjString
	Value Value
}

func (e entry) isTombstone() bool { return e.Key == nil && !e.Value.IsNone() }
func (e entry) isEmpty() bool     { return e.Key == nil && e.Value.IsNone() }

// Table is an open-addressed hash table with linear probing, shared by
// every keyed structure in the runtime: the string intern set, globals,
// class method tables, and instance field tables. count covers live
// entries plus tombstones: Delete leaves it unchanged and a Set that reuses
// a tombstone slot does not increment it, matching the C original this is
// grounded on (hash_table.c). Only a resize, which drops tombstones,
// brings it back down to the live entries.
type Table struct {
	count    int
	capacity int
	entries  []entry
}

// NewTable returns an empty Table; its backing array is allocated lazily
// on the first Set, at the initial capacity of 8.
func NewTable() *Table {
	return &Table{}
}

// growCapacity doubles a Table's capacity, starting from 8, per
// original_source's grow_capacity. Chunk's arrays grow through Go's
// append instead.
func growCapacity(old int) int {
	if old < 8 {
		return 8
	}
	return old * 2
}

// findEntry probes entries (of size capacity) for key, returning the slot
// that holds it, or the first open slot (preferring a tombstone over a
// true-empty slot) where it could be inserted.
func findEntry(entries []entry, capacity int, key *ObjString) *entry {
	idx := int(key.Hash) % capacity
	var tombstone *entry
	for {
		e := &entries[idx]
		switch {
		case e.isEmpty():
			if tombstone != nil {
				return tombstone
			}
			return e
		case e.isTombstone():
			if tombstone == nil {
				tombstone = e
			}
		case e.Key == key:
			return e
		}
		idx = (idx + 1) % capacity
	}
}

func (t *Table) adjustCapacity(newCapacity int) {
	newEntries := make([]entry, newCapacity)
	for i := range newEntries {
		newEntries[i] = entry{Value: NoneVal()}
	}

	t.count = 0
	for _, e := range t.entries {
		if e.Key == nil {
			continue
		}
		dst := findEntry(newEntries, newCapacity, e.Key)
		dst.Key = e.Key
		dst.Value = e.Value
		t.count++
	}

	t.entries = newEntries
	t.capacity = newCapacity
}

// Get looks up key, returning its value and whether it was present.
func (t *Table) Get(key *ObjString) (Value, bool) {
	if t.count == 0 && len(t.entries) == 0 {
		return Value{}, false
	}
	e := findEntry(t.entries, t.capacity, key)
	if e.Key == nil {
		return Value{}, false
	}
	return e.Value, true
}

// Set inserts or updates key -> value, returning true iff this added a
// brand new key (used by OP_SET_GLOBAL to distinguish update from
// undefined-variable).
func (t *Table) Set(key *ObjString, value Value) bool {
	if float64(t.count+1) > float64(t.capacity)*tableMaxLoad {
		t.adjustCapacity(growCapacity(t.capacity))
	}

	e := findEntry(t.entries, t.capacity, key)
	isNewKey := e.Key == nil
	if isNewKey && e.Value.IsNone() {
		t.count++
	}

	e.Key = key
	e.Value = value
	return isNewKey
}

// Delete removes key if present, leaving a tombstone in its slot so later
// probes that passed through it still find entries beyond it. Returns
// whether key was present.
func (t *Table) Delete(key *ObjString) bool {
	if t.count == 0 && len(t.entries) == 0 {
		return false
	}
	e := findEntry(t.entries, t.capacity, key)
	if e.Key == nil {
		return false
	}
	e.Key = nil
	e.Value = BoolVal(true)
	return true
}

// AddAll copies every live entry of t into dst, overwriting any existing
// entries of the same key. Used by OP_INHERIT to seed a subclass's method
// table from its superclass's.
func (t *Table) AddAll(dst *Table) {
	for _, e := range t.entries {
		if e.Key != nil {
			dst.Set(e.Key, e.Value)
		}
	}
}

// FindString looks up an interned string by its raw bytes and precomputed
// hash without needing an ObjString to compare against — this is what lets
// allocateString dedupe against the intern table before allocating.
func (t *Table) FindString(chars string, hash uint32) *ObjString {
	if len(t.entries) == 0 {
		return nil
	}
	idx := int(hash) % t.capacity
	for {
		e := &t.entries[idx]
		switch {
		case e.isEmpty():
			return nil
		case e.Key != nil && e.Key.Hash == hash && e.Key.Chars == chars:
			return e.Key
		}
		idx = (idx + 1) % t.capacity
	}
}

// RemoveWhite deletes every entry whose key is not currently marked. It is
// called on the string intern table immediately before the sweep phase so
// a string about to be collected does not linger as a dangling intern
// entry (the table holds non-owning references).
func (t *Table) RemoveWhite() {
	for i := range t.entries {
		e := &t.entries[i]
		if e.Key != nil && !e.Key.isMarked() {
			t.Delete(e.Key)
		}
	}
}

// Each calls fn for every live entry, in table (not insertion) order. Used
// by the GC to mark globals/method/field tables.
func (t *Table) Each(fn func(key *ObjString, value Value)) {
	for _, e := range t.entries {
		if e.Key != nil {
			fn(e.Key, e.Value)
		}
	}
}

// Count returns the number of occupied slots: live entries plus any
// tombstones left by Delete since the last resize.
func (t *Table) Count() int { return t.count }
