// Package vm implements lumen's bytecode virtual machine: it executes the
// closures the compiler produces.
//
// Execution model:
//
// The VM is a stack machine. A CallFrame records one active function
// invocation: its Closure, an instruction pointer into that closure's
// Chunk, and the base slot in the shared value stack where its locals
// begin (slot 0 holds the callee itself, or "this" for a method).
//
//	Source -> lexer -> compiler -> top-level Function -> VM wraps it in a
//	Closure, pushes the initial CallFrame, and runs the dispatch loop.
//
// Frames nest directly on the same value stack: calling a function does
// not allocate a new Go stack, it just pushes a CallFrame recording where
// the callee's locals start. Returning pops that frame and restores the
// caller's stack top.
//
// GC safety: the VM is the bytecode.Heap's primary root. Any Value the VM
// constructs but has not yet stored anywhere durable (a concatenated
// string, a bound method, a just-captured closure) must stay on the value
// stack — reachable via MarkRoots — for as long as a further allocation
// that could trigger a collection is still pending.
package vm

import (
	"fmt"
	"io"
	"strings"
	"unsafe"

	"github.com/kristofer/lumen/internal/bytecode"
	"github.com/kristofer/lumen/internal/compiler"
)

const (
	framesMax = 64
	stackMax  = framesMax * 256
)

// CallFrame is one active function invocation.
type CallFrame struct {
	closure *bytecode.ObjClosure
	ip      int
	slots   int // index into VM.stack where this frame's window begins
}

// VM owns the value stack, the call-frame array, the globals table, and
// the heap every Value it touches is allocated from. A VM is reusable:
// globals and interned strings persist across Interpret calls; the stack
// and frames reset at the start of each one.
type VM struct {
	heap *bytecode.Heap

	stack    [stackMax]bytecode.Value
	stackTop int

	frames     [framesMax]CallFrame
	frameCount int

	globals      *bytecode.Table
	openUpvalues *bytecode.ObjUpvalue
	initString   *bytecode.ObjString

	stdout io.Writer
	stderr io.Writer
}

// New returns a VM that writes `print` output to stdout and compile/runtime
// diagnostics to stderr, with the standard native functions already
// registered.
func New(stdout, stderr io.Writer) *VM {
	vm := &VM{
		heap:    bytecode.NewHeap(),
		globals: bytecode.NewTable(),
		stdout:  stdout,
		stderr:  stderr,
	}
	vm.heap.AddRoot(vm)
	vm.initString = vm.heap.InternString("init")
	vm.defineNative("clock", nativeClock)
	vm.defineNative("str", vm.nativeStr)
	return vm
}

// Heap exposes the VM's heap, mainly so tests can assert on GC bookkeeping.
func (vm *VM) Heap() *bytecode.Heap { return vm.heap }

// MarkRoots implements bytecode.RootMarker: the live value stack, every
// active frame's closure, every still-open upvalue, the globals table, and
// the interned "init" string must all survive a collection.
func (vm *VM) MarkRoots(h *bytecode.Heap) {
	for i := 0; i < vm.stackTop; i++ {
		h.MarkValue(vm.stack[i])
	}
	for i := 0; i < vm.frameCount; i++ {
		h.MarkObject(vm.frames[i].closure)
	}
	for uv := vm.openUpvalues; uv != nil; uv = uv.Next {
		h.MarkObject(uv)
	}
	h.MarkTable(vm.globals)
	h.MarkObject(vm.initString)
}

// Interpret compiles and runs source on this VM, returning the result code
// spec §6 defines. Compile diagnostics and runtime error traces are
// already written to vm.stderr by the time this returns a non-OK result.
func (vm *VM) Interpret(source string) InterpretResult {
	fn, ok := compiler.Compile(source, vm.heap, vm.stderr)
	if !ok {
		return InterpretCompileError
	}

	vm.resetStack()
	vm.push(bytecode.ObjVal(fn))
	closure := vm.heap.NewClosure(fn)
	vm.pop()
	vm.push(bytecode.ObjVal(closure))

	if err := vm.call(closure, 0); err != nil {
		vm.reportRuntimeError(err)
		return InterpretRuntimeError
	}

	if err := vm.run(); err != nil {
		vm.reportRuntimeError(err)
		return InterpretRuntimeError
	}
	return InterpretOK
}

func (vm *VM) resetStack() {
	vm.stackTop = 0
	vm.frameCount = 0
	vm.openUpvalues = nil
}

func (vm *VM) reportRuntimeError(err error) {
	var b strings.Builder
	if re, ok := err.(*runtimeError); ok {
		re.writeTo(&b)
	} else {
		fmt.Fprintf(&b, "%s\n", err.Error())
	}
	io.WriteString(vm.stderr, b.String())
	vm.resetStack()
}

// ---- stack primitives -----------------------------------------------------

func (vm *VM) push(v bytecode.Value) {
	vm.stack[vm.stackTop] = v
	vm.stackTop++
}

func (vm *VM) pop() bytecode.Value {
	vm.stackTop--
	return vm.stack[vm.stackTop]
}

func (vm *VM) peek(distance int) bytecode.Value {
	return vm.stack[vm.stackTop-1-distance]
}

// frameError builds a runtimeError whose trace walks the active frames
// from the one that raised the error outward to the top-level script,
// exactly as spec §6's stack-trace format requires.
func (vm *VM) frameError(format string, args ...interface{}) *runtimeError {
	trace := make([]frameTrace, 0, vm.frameCount)
	for i := vm.frameCount - 1; i >= 0; i-- {
		f := &vm.frames[i]
		fnLine := f.closure.Function.Chunk.GetLine(f.ip - 1)
		name := ""
		if f.closure.Function.Name != nil {
			name = f.closure.Function.Name.Chars
		}
		trace = append(trace, frameTrace{line: fnLine, name: name})
	}

	return &runtimeError{message: fmt.Sprintf(format, args...), trace: trace}
}

// ---- calls ------------------------------------------------------------

// callValue dispatches OP_CALL's callee, which sits at peek(argCount), per
// spec §4.5: a Closure gets a new frame, a Native runs to completion
// in-line, a Class constructs an Instance (invoking "init" if present),
// and a BoundMethod rebinds the receiver before calling its closure.
func (vm *VM) callValue(callee bytecode.Value, argCount int) error {
	if callee.IsObj() {
		switch obj := callee.Obj.(type) {
		case *bytecode.ObjClosure:
			return vm.call(obj, argCount)
		case *bytecode.ObjNative:
			args := vm.stack[vm.stackTop-argCount : vm.stackTop]
			result, err := obj.Fn(args)
			if err != nil {
				return vm.frameError("%s", err.Error())
			}
			vm.stackTop -= argCount + 1
			vm.push(result)
			return nil
		case *bytecode.ObjClass:
			instance := vm.heap.NewInstance(obj)
			vm.stack[vm.stackTop-argCount-1] = bytecode.ObjVal(instance)
			if initializer, ok := obj.Methods.Get(vm.initString); ok {
				return vm.call(initializer.Obj.(*bytecode.ObjClosure), argCount)
			} else if argCount != 0 {
				return vm.frameError("Expected 0 arguments but got %d.", argCount)
			}
			return nil
		case *bytecode.ObjBoundMethod:
			vm.stack[vm.stackTop-argCount-1] = obj.Receiver
			return vm.call(obj.Method, argCount)
		}
	}
	return vm.frameError("Can only call functions and classes.")
}

// call pushes a new CallFrame for closure, after checking arity and the
// frame-count limit spec §3 fixes at 64.
func (vm *VM) call(closure *bytecode.ObjClosure, argCount int) error {
	if argCount != closure.Function.Arity {
		return vm.frameError("Expected %d arguments but got %d.", closure.Function.Arity, argCount)
	}
	if vm.frameCount == framesMax {
		return vm.frameError("Stack overflow.")
	}

	frame := &vm.frames[vm.frameCount]
	vm.frameCount++
	frame.closure = closure
	frame.ip = 0
	frame.slots = vm.stackTop - argCount - 1
	return nil
}

// invoke fast-paths `receiver.method(args)`: if name resolves to an
// instance field instead of a method, it falls back to an ordinary call
// (the field's value, whatever it is, sits in the callee slot).
func (vm *VM) invoke(name *bytecode.ObjString, argCount int) error {
	receiver := vm.peek(argCount)
	instance, ok := receiver.Obj.(*bytecode.ObjInstance)
	if !ok {
		return vm.frameError("Only instances have methods.")
	}

	if field, ok := instance.Fields.Get(name); ok {
		vm.stack[vm.stackTop-argCount-1] = field
		return vm.callValue(field, argCount)
	}

	method, ok := instance.Class.Methods.Get(name)
	if !ok {
		return vm.frameError("Undefined property '%s'.", name.Chars)
	}
	return vm.call(method.Obj.(*bytecode.ObjClosure), argCount)
}

func (vm *VM) invokeFromClass(class *bytecode.ObjClass, name *bytecode.ObjString, argCount int) error {
	method, ok := class.Methods.Get(name)
	if !ok {
		return vm.frameError("Undefined property '%s'.", name.Chars)
	}
	return vm.call(method.Obj.(*bytecode.ObjClosure), argCount)
}

// ---- upvalues -----------------------------------------------------------

func addrOf(v *bytecode.Value) uintptr { return uintptr(unsafe.Pointer(v)) }

// captureUpvalue returns the open upvalue for the stack slot local,
// reusing one already open at that exact slot, and otherwise inserting a
// freshly opened one into the descending-by-address list at the right spot.
func (vm *VM) captureUpvalue(local *bytecode.Value) *bytecode.ObjUpvalue {
	var prev *bytecode.ObjUpvalue
	upvalue := vm.openUpvalues
	for upvalue != nil && addrOf(upvalue.Location) > addrOf(local) {
		prev = upvalue
		upvalue = upvalue.Next
	}
	if upvalue != nil && upvalue.Location == local {
		return upvalue
	}

	created := vm.heap.NewUpvalue(local)
	created.Next = upvalue
	if prev == nil {
		vm.openUpvalues = created
	} else {
		prev.Next = created
	}
	return created
}

// closeUpvalues closes every open upvalue whose stack slot is at or beyond
// last, copying its value out of the stack and retargeting it there.
func (vm *VM) closeUpvalues(last *bytecode.Value) {
	for vm.openUpvalues != nil && addrOf(vm.openUpvalues.Location) >= addrOf(last) {
		uv := vm.openUpvalues
		uv.Closed = *uv.Location
		uv.Location = &uv.Closed
		vm.openUpvalues = uv.Next
	}
}

// ---- globals & natives --------------------------------------------------

// defineNative registers fn under name in the globals table. The native
// and its name are kept on the stack for the duration, per the §4.1
// ordering constraint: NewNative can trigger a collection and neither
// value is reachable from any root until globals.Set links them in.
func (vm *VM) defineNative(name string, fn bytecode.NativeFn) {
	vm.push(bytecode.ObjVal(vm.heap.InternString(name)))
	vm.push(bytecode.ObjVal(vm.heap.NewNative(name, fn)))
	vm.globals.Set(vm.stack[0].Obj.(*bytecode.ObjString), vm.stack[1])
	vm.pop()
	vm.pop()
}

// concatenate implements OP_ADD's string case. Operands are read with peek
// (not pop) so they remain stack-reachable roots while InternString
// allocates the result; only once the new string is safely interned are
// both operands popped and the result pushed.
func (vm *VM) concatenate() {
	b := vm.peek(0).Obj.(*bytecode.ObjString)
	a := vm.peek(1).Obj.(*bytecode.ObjString)
	result := vm.heap.InternString(a.Chars + b.Chars)
	vm.pop()
	vm.pop()
	vm.push(bytecode.ObjVal(result))
}
