package bytecode

import "fmt"

// ObjType tags the concrete shape of a heap Object, so a Value's object
// kind can be tested (Value.IsObjType) without a type assertion.
type ObjType byte

const (
	ObjStringType ObjType = iota
	ObjFunctionType
	ObjNativeType
	ObjClosureType
	ObjUpvalueType
	ObjClassType
	ObjInstanceType
	ObjBoundMethodType
)

// Object is satisfied by every heap-allocated value. All the methods below
// are GC bookkeeping, not domain behavior; a value's actual fields live on
// its concrete type (*ObjString, *ObjClosure, ...) and callers type-switch
// on Kind() to reach them, exactly as the collector's blackening step does.
type Object interface {
	Kind() ObjType
	String() string

	isMarked() bool
	mark()
	unmark()
	next() Object
	setNext(Object)
	setSize(int)
	getSize() int
}

// header is embedded in every concrete object type. It carries the
// intrusive all-objects list link, the GC mark bit, and the approximate
// byte size used for the allocator's bytesAllocated accounting; all three
// are private to this package — the list itself is owned and walked only
// by Heap.
type header struct {
	objType ObjType
	nextObj Object
	marked  bool
	size    int
}

func (h *header) Kind() ObjType    { return h.objType }
func (h *header) isMarked() bool   { return h.marked }
func (h *header) mark()            { h.marked = true }
func (h *header) unmark()          { h.marked = false }
func (h *header) next() Object     { return h.nextObj }
func (h *header) setNext(o Object) { h.nextObj = o }
func (h *header) setSize(n int)    { h.size = n }
func (h *header) getSize() int     { return h.size }

// ObjString is an immutable, interned string. Two live strings with equal
// bytes always share an ObjString handle (see Heap.InternString), so Value
// equality over strings reduces to pointer equality.
type ObjString struct {
	header
	Chars string
	Hash  uint32
}

func (s *ObjString) String() string { return s.Chars }

// NativeFn is the signature a host function registered via DefineNative
// must implement. It receives the call's arguments as a slice of the VM
// stack (argc is len(args)); the VM pops them only after fn returns. It
// returns either a Value or a runtime error.
type NativeFn func(args []Value) (Value, error)

// ObjFunction is a compiled function body: its arity, how many upvalues it
// captures, and the Chunk of bytecode for it. Immutable once the compiler
// finishes with it.
type ObjFunction struct {
	header
	Name         *ObjString
	Arity        int
	UpvalueCount int
	Chunk        *Chunk
}

func (f *ObjFunction) String() string {
	if f.Name == nil {
		return "<script>"
	}
	return fmt.Sprintf("<fn %s>", f.Name.Chars)
}

// ObjNative wraps a host function so it can be stored in a Value and
// invoked through the same OP_CALL path as an ordinary closure.
type ObjNative struct {
	header
	Name string
	Fn   NativeFn
}

func (n *ObjNative) String() string { return fmt.Sprintf("<native fn %s>", n.Name) }

// ObjUpvalue is an indirection to a captured variable. While Location
// points into the VM's value stack the upvalue is "open"; once the
// enclosing scope exits, close() repoints Location at Closed and the
// upvalue becomes "closed" — the same struct, just retargeted.
type ObjUpvalue struct {
	header
	Location *Value
	Closed   Value
	Next     *ObjUpvalue // intrusive open-upvalues list, sorted by descending Location address
}

func (u *ObjUpvalue) String() string { return "<upvalue>" }

// close copies the current value out of the stack slot into the upvalue's
// own storage and retargets Location there, so popping the stack later
// can't invalidate it.
func (u *ObjUpvalue) close() {
	u.Closed = *u.Location
	u.Location = &u.Closed
}

// ObjClosure pairs an ObjFunction with the upvalues it captured at the
// moment OP_CLOSURE ran. Calling a closure pushes a new CallFrame over it.
type ObjClosure struct {
	header
	Function *ObjFunction
	Upvalues []*ObjUpvalue
}

func (c *ObjClosure) String() string { return c.Function.String() }

// ObjClass is a class: its name and its own method table (String name ->
// ObjClosure). OP_INHERIT copies a superclass's table into a subclass's at
// runtime; later OP_METHODs in the subclass body may override entries.
type ObjClass struct {
	header
	Name    *ObjString
	Methods *Table
}

func (c *ObjClass) String() string { return c.Name.Chars }

// ObjInstance is a runtime instance of a class: a class reference plus a
// field table (String name -> Value), populated lazily by OP_SET_PROPERTY.
type ObjInstance struct {
	header
	Class  *ObjClass
	Fields *Table
}

func (i *ObjInstance) String() string { return fmt.Sprintf("<%s instance>", i.Class.Name.Chars) }

// ObjBoundMethod pairs a receiver with one of its class's method closures,
// produced by OP_GET_PROPERTY when the named property resolves to a
// method rather than a field.
type ObjBoundMethod struct {
	header
	Receiver Value
	Method   *ObjClosure
}

func (b *ObjBoundMethod) String() string { return b.Method.String() }
