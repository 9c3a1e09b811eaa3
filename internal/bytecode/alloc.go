package bytecode

// fnv1a32 computes the 32-bit FNV-1a hash of s, used to hash every
// interned string.
func fnv1a32(s string) uint32 {
	const (
		offsetBasis = 2166136261
		prime       = 16777619
	)
	hash := uint32(offsetBasis)
	for i := 0; i < len(s); i++ {
		hash ^= uint32(s[i])
		hash *= prime
	}
	return hash
}

// allocateString creates a brand-new interned ObjString for chars/hash,
// tracks it in the heap, and registers it in the intern table. Callers
// must already know no equal string is interned (see InternString).
func (h *Heap) allocateString(chars string, hash uint32) *ObjString {
	s := &ObjString{Chars: chars, Hash: hash}
	s.objType = ObjStringType
	h.track(s, len(chars)+16)
	h.strings.Set(s, NoneVal())
	return s
}

// InternString returns the canonical ObjString for chars, allocating and
// interning a new one only if an equal string isn't already interned. Any
// two strings with equal bytes interned during the Heap's lifetime share a
// handle, satisfying the identity-equals-content invariant.
func (h *Heap) InternString(chars string) *ObjString {
	hash := fnv1a32(chars)
	if interned := h.strings.FindString(chars, hash); interned != nil {
		return interned
	}
	return h.allocateString(chars, hash)
}

// NewFunction allocates an empty ObjFunction with a fresh Chunk. Its
// Name/Arity/UpvalueCount are filled in by the compiler as it finishes
// compiling the function body.
func (h *Heap) NewFunction() *ObjFunction {
	f := &ObjFunction{Chunk: NewChunk()}
	f.objType = ObjFunctionType
	h.track(f, 64)
	return f
}

// NewNative wraps fn as a callable native function object under name.
func (h *Heap) NewNative(name string, fn NativeFn) *ObjNative {
	n := &ObjNative{Name: name, Fn: fn}
	n.objType = ObjNativeType
	h.track(n, 32)
	return n
}

// NewClosure allocates a closure over function with an Upvalues slice
// sized for function.UpvalueCount, left for the caller (OP_CLOSURE) to
// populate by capturing or forwarding each one.
func (h *Heap) NewClosure(function *ObjFunction) *ObjClosure {
	c := &ObjClosure{Function: function, Upvalues: make([]*ObjUpvalue, function.UpvalueCount)}
	c.objType = ObjClosureType
	h.track(c, 32+8*function.UpvalueCount)
	return c
}

// NewUpvalue allocates an open upvalue pointing at slot.
func (h *Heap) NewUpvalue(slot *Value) *ObjUpvalue {
	u := &ObjUpvalue{Location: slot}
	u.objType = ObjUpvalueType
	h.track(u, 40)
	return u
}

// NewClass allocates an empty class named name with no methods yet.
func (h *Heap) NewClass(name *ObjString) *ObjClass {
	c := &ObjClass{Name: name, Methods: NewTable()}
	c.objType = ObjClassType
	h.track(c, 48)
	return c
}

// NewInstance allocates a fresh instance of class with no fields set.
func (h *Heap) NewInstance(class *ObjClass) *ObjInstance {
	i := &ObjInstance{Class: class, Fields: NewTable()}
	i.objType = ObjInstanceType
	h.track(i, 48)
	return i
}

// NewBoundMethod allocates a method closure bound to receiver.
func (h *Heap) NewBoundMethod(receiver Value, method *ObjClosure) *ObjBoundMethod {
	b := &ObjBoundMethod{Receiver: receiver, Method: method}
	b.objType = ObjBoundMethodType
	h.track(b, 32)
	return b
}
