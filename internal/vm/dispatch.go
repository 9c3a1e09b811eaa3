package vm

import (
	"fmt"

	"github.com/kristofer/lumen/internal/bytecode"
)

func readByte(f *CallFrame) byte {
	b := f.closure.Function.Chunk.Code[f.ip]
	f.ip++
	return b
}

// readShort decodes OP_JUMP/OP_JUMP_IF_FALSE/OP_LOOP's 16-bit big-endian
// offset operand.
func readShort(f *CallFrame) int {
	hi := readByte(f)
	lo := readByte(f)
	return int(hi)<<8 | int(lo)
}

// read24 decodes a _LONG opcode's 3-byte little-endian operand, matching
// the compiler's emitIndexedOp encoding.
func read24(f *CallFrame) int {
	b0 := readByte(f)
	b1 := readByte(f)
	b2 := readByte(f)
	return int(b0) | int(b1)<<8 | int(b2)<<16
}

func readConstant(f *CallFrame) bytecode.Value {
	return f.closure.Function.Chunk.Constants[readByte(f)]
}

func readLongConstant(f *CallFrame) bytecode.Value {
	return f.closure.Function.Chunk.Constants[read24(f)]
}

func readString(f *CallFrame) *bytecode.ObjString {
	return readConstant(f).Obj.(*bytecode.ObjString)
}

func readLongString(f *CallFrame) *bytecode.ObjString {
	return readLongConstant(f).Obj.(*bytecode.ObjString)
}

// run is the VM's dispatch loop: it executes the instruction stream of the
// currently active frame until every frame returns (success) or an opcode
// handler reports a runtime error.
func (vm *VM) run() error {
	frame := &vm.frames[vm.frameCount-1]

	for {
		op := bytecode.OpCode(readByte(frame))
		switch op {
		case bytecode.OpConstant:
			vm.push(readConstant(frame))
		case bytecode.OpConstantLong:
			vm.push(readLongConstant(frame))

		case bytecode.OpNone:
			vm.push(bytecode.NoneVal())
		case bytecode.OpTrue:
			vm.push(bytecode.BoolVal(true))
		case bytecode.OpFalse:
			vm.push(bytecode.BoolVal(false))

		case bytecode.OpPop:
			vm.pop()

		case bytecode.OpGetLocal:
			vm.push(vm.stack[frame.slots+int(readByte(frame))])
		case bytecode.OpSetLocal:
			vm.stack[frame.slots+int(readByte(frame))] = vm.peek(0)
		case bytecode.OpGetLocalLong:
			vm.push(vm.stack[frame.slots+read24(frame)])
		case bytecode.OpSetLocalLong:
			vm.stack[frame.slots+read24(frame)] = vm.peek(0)

		case bytecode.OpGetGlobal:
			if err := vm.getGlobal(frame, readString(frame)); err != nil {
				return err
			}
		case bytecode.OpGetGlobalLong:
			if err := vm.getGlobal(frame, readLongString(frame)); err != nil {
				return err
			}
		case bytecode.OpDefineGlobal:
			vm.globals.Set(readString(frame), vm.peek(0))
			vm.pop()
		case bytecode.OpDefineGlobalLong:
			vm.globals.Set(readLongString(frame), vm.peek(0))
			vm.pop()
		case bytecode.OpSetGlobal:
			if err := vm.setGlobal(frame, readString(frame)); err != nil {
				return err
			}
		case bytecode.OpSetGlobalLong:
			if err := vm.setGlobal(frame, readLongString(frame)); err != nil {
				return err
			}

		case bytecode.OpGetUpvalue:
			idx := readByte(frame)
			vm.push(*frame.closure.Upvalues[idx].Location)
		case bytecode.OpSetUpvalue:
			idx := readByte(frame)
			*frame.closure.Upvalues[idx].Location = vm.peek(0)
		case bytecode.OpCloseUpvalue:
			vm.closeUpvalues(&vm.stack[vm.stackTop-1])
			vm.pop()

		case bytecode.OpEqual:
			b := vm.pop()
			a := vm.pop()
			vm.push(bytecode.BoolVal(bytecode.ValuesEqual(a, b)))
		case bytecode.OpGreater:
			if err := vm.numericBinary(frame, func(a, b float64) bytecode.Value { return bytecode.BoolVal(a > b) }); err != nil {
				return err
			}
		case bytecode.OpLess:
			if err := vm.numericBinary(frame, func(a, b float64) bytecode.Value { return bytecode.BoolVal(a < b) }); err != nil {
				return err
			}

		case bytecode.OpAdd:
			if err := vm.add(frame); err != nil {
				return err
			}
		case bytecode.OpSubtract:
			if err := vm.numericBinary(frame, func(a, b float64) bytecode.Value { return bytecode.NumberVal(a - b) }); err != nil {
				return err
			}
		case bytecode.OpMultiply:
			if err := vm.numericBinary(frame, func(a, b float64) bytecode.Value { return bytecode.NumberVal(a * b) }); err != nil {
				return err
			}
		case bytecode.OpDivide:
			if err := vm.numericBinary(frame, func(a, b float64) bytecode.Value { return bytecode.NumberVal(a / b) }); err != nil {
				return err
			}
		case bytecode.OpNot:
			vm.push(bytecode.BoolVal(vm.pop().IsFalsey()))
		case bytecode.OpNegate:
			if !vm.peek(0).IsNumber() {
				return vm.frameError("Operand must be a number.")
			}
			vm.push(bytecode.NumberVal(-vm.pop().Number))

		case bytecode.OpPrint:
			fmt.Fprintln(vm.stdout, vm.pop().String())

		case bytecode.OpJump:
			offset := readShort(frame)
			frame.ip += offset
		case bytecode.OpJumpIfFalse:
			offset := readShort(frame)
			if vm.peek(0).IsFalsey() {
				frame.ip += offset
			}
		case bytecode.OpLoop:
			offset := readShort(frame)
			frame.ip -= offset

		case bytecode.OpCall:
			argCount := int(readByte(frame))
			if err := vm.callValue(vm.peek(argCount), argCount); err != nil {
				return err
			}
			frame = &vm.frames[vm.frameCount-1]

		case bytecode.OpInvoke:
			method := readString(frame)
			argCount := int(readByte(frame))
			if err := vm.invoke(method, argCount); err != nil {
				return err
			}
			frame = &vm.frames[vm.frameCount-1]
		case bytecode.OpInvokeLong:
			method := readLongString(frame)
			argCount := int(readByte(frame))
			if err := vm.invoke(method, argCount); err != nil {
				return err
			}
			frame = &vm.frames[vm.frameCount-1]

		case bytecode.OpSuperInvoke:
			method := readString(frame)
			argCount := int(readByte(frame))
			superclass := vm.pop().Obj.(*bytecode.ObjClass)
			if err := vm.invokeFromClass(superclass, method, argCount); err != nil {
				return err
			}
			frame = &vm.frames[vm.frameCount-1]
		case bytecode.OpSuperInvokeLong:
			method := readLongString(frame)
			argCount := int(readByte(frame))
			superclass := vm.pop().Obj.(*bytecode.ObjClass)
			if err := vm.invokeFromClass(superclass, method, argCount); err != nil {
				return err
			}
			frame = &vm.frames[vm.frameCount-1]

		case bytecode.OpClosure:
			if err := vm.makeClosure(frame, readConstant(frame)); err != nil {
				return err
			}

		case bytecode.OpClass:
			vm.push(bytecode.ObjVal(vm.heap.NewClass(readString(frame))))
		case bytecode.OpClassLong:
			vm.push(bytecode.ObjVal(vm.heap.NewClass(readLongString(frame))))

		case bytecode.OpGetProperty:
			if err := vm.getProperty(readString(frame)); err != nil {
				return err
			}
		case bytecode.OpSetProperty:
			if err := vm.setProperty(readString(frame)); err != nil {
				return err
			}

		case bytecode.OpMethod:
			vm.defineMethod(readString(frame))
		case bytecode.OpMethodLong:
			vm.defineMethod(readLongString(frame))

		case bytecode.OpInherit:
			if err := vm.inherit(); err != nil {
				return err
			}

		case bytecode.OpGetSuper:
			if err := vm.getSuper(readString(frame)); err != nil {
				return err
			}
		case bytecode.OpGetSuperLong:
			if err := vm.getSuper(readLongString(frame)); err != nil {
				return err
			}

		case bytecode.OpReturn:
			result := vm.pop()
			vm.closeUpvalues(&vm.stack[frame.slots])
			vm.frameCount--
			if vm.frameCount == 0 {
				vm.pop()
				return nil
			}
			vm.stackTop = frame.slots
			vm.push(result)
			frame = &vm.frames[vm.frameCount-1]
		}
	}
}

func (vm *VM) getGlobal(frame *CallFrame, name *bytecode.ObjString) error {
	value, ok := vm.globals.Get(name)
	if !ok {
		return vm.frameError("This variable has not been defined '%s'.", name.Chars)
	}
	vm.push(value)
	return nil
}

func (vm *VM) setGlobal(frame *CallFrame, name *bytecode.ObjString) error {
	if vm.globals.Set(name, vm.peek(0)) {
		vm.globals.Delete(name)
		return vm.frameError("This variable has not been defined '%s'.", name.Chars)
	}
	return nil
}

func (vm *VM) numericBinary(frame *CallFrame, op func(a, b float64) bytecode.Value) error {
	if !vm.peek(0).IsNumber() || !vm.peek(1).IsNumber() {
		return vm.frameError("Operands must be numbers.")
	}
	b := vm.pop().Number
	a := vm.pop().Number
	vm.push(op(a, b))
	return nil
}

func (vm *VM) add(frame *CallFrame) error {
	switch {
	case vm.peek(0).IsObjType(bytecode.ObjStringType) && vm.peek(1).IsObjType(bytecode.ObjStringType):
		vm.concatenate()
		return nil
	case vm.peek(0).IsNumber() && vm.peek(1).IsNumber():
		b := vm.pop().Number
		a := vm.pop().Number
		vm.push(bytecode.NumberVal(a + b))
		return nil
	default:
		return vm.frameError("Operands must be two numbers or two strings.")
	}
}

// makeClosure executes OP_CLOSURE: allocate a Closure over the function
// constant just read, then fill its Upvalues by either capturing one of
// the enclosing frame's locals or forwarding one of its own upvalues, per
// the (isLocal, index) pairs the compiler emitted right after the opcode.
func (vm *VM) makeClosure(frame *CallFrame, constant bytecode.Value) error {
	fn := constant.Obj.(*bytecode.ObjFunction)
	vm.push(constant)
	closure := vm.heap.NewClosure(fn)
	vm.pop()
	vm.push(bytecode.ObjVal(closure))

	for i := 0; i < fn.UpvalueCount; i++ {
		isLocal := readByte(frame)
		index := readByte(frame)
		if isLocal != 0 {
			closure.Upvalues[i] = vm.captureUpvalue(&vm.stack[frame.slots+int(index)])
		} else {
			closure.Upvalues[i] = frame.closure.Upvalues[index]
		}
	}
	return nil
}

func (vm *VM) getProperty(name *bytecode.ObjString) error {
	instance, ok := vm.peek(0).Obj.(*bytecode.ObjInstance)
	if !ok {
		return vm.frameError("Only instances have properties.")
	}

	if value, ok := instance.Fields.Get(name); ok {
		vm.pop()
		vm.push(value)
		return nil
	}

	return vm.bindMethod(instance.Class, name)
}

func (vm *VM) setProperty(name *bytecode.ObjString) error {
	instance, ok := vm.peek(1).Obj.(*bytecode.ObjInstance)
	if !ok {
		return vm.frameError("Only instances have fields.")
	}
	instance.Fields.Set(name, vm.peek(0))
	value := vm.pop()
	vm.pop()
	vm.push(value)
	return nil
}

// bindMethod resolves name on class as a method and wraps it with the
// instance already on top of the stack into a fresh BoundMethod, per the
// §4.1 push-before-allocate discipline: the instance stays rooted on the
// stack (as the receiver operand) until NewBoundMethod has run.
func (vm *VM) bindMethod(class *bytecode.ObjClass, name *bytecode.ObjString) error {
	method, ok := class.Methods.Get(name)
	if !ok {
		return vm.frameError("Undefined property '%s'.", name.Chars)
	}
	bound := vm.heap.NewBoundMethod(vm.peek(0), method.Obj.(*bytecode.ObjClosure))
	vm.pop()
	vm.push(bytecode.ObjVal(bound))
	return nil
}

func (vm *VM) defineMethod(name *bytecode.ObjString) {
	method := vm.peek(0)
	class := vm.peek(1).Obj.(*bytecode.ObjClass)
	class.Methods.Set(name, method)
	vm.pop()
}

func (vm *VM) inherit() error {
	superclass, ok := vm.peek(1).Obj.(*bytecode.ObjClass)
	if !ok {
		return vm.frameError("Superclass must be a class.")
	}
	subclass := vm.peek(0).Obj.(*bytecode.ObjClass)
	superclass.Methods.AddAll(subclass.Methods)
	vm.pop()
	return nil
}

func (vm *VM) getSuper(name *bytecode.ObjString) error {
	superclass := vm.pop().Obj.(*bytecode.ObjClass)
	return vm.bindMethod(superclass, name)
}
