package bytecode

// OpCode is a single bytecode instruction's operation. Opcodes are a single
// byte, keeping the instruction stream compact and cheap to decode in the
// VM's dispatch loop.
type OpCode byte

const (
	// Constants and literals.

	OpConstant     OpCode = iota // operand: 1-byte constant index
	OpConstantLong               // operand: 3-byte little-endian constant index
	OpNone
	OpTrue
	OpFalse

	OpPop

	// Variables.

	OpGetLocal
	OpSetLocal
	OpGetLocalLong
	OpSetLocalLong
	OpGetGlobal
	OpSetGlobal
	OpDefineGlobal
	OpGetGlobalLong
	OpSetGlobalLong
	OpDefineGlobalLong
	OpGetUpvalue
	OpSetUpvalue
	OpCloseUpvalue

	// Operators.

	OpEqual
	OpGreater
	OpLess
	OpAdd
	OpSubtract
	OpMultiply
	OpDivide
	OpNot
	OpNegate

	OpPrint

	// Control flow. Jump/loop operands are always a 16-bit unsigned offset,
	// written big-endian across the two bytes following the opcode.

	OpJump
	OpJumpIfFalse
	OpLoop

	OpCall // operand: 1-byte argument count

	OpClosure // operand: 1-byte constant index of the ObjFunction, followed
	// by (isLocal byte, index byte) pairs, one per upvalue.

	OpClass
	OpClassLong
	OpGetProperty
	OpSetProperty
	OpMethod
	OpMethodLong
	OpInvoke // operand: 1-byte constant index of method name, 1-byte argc
	OpInvokeLong
	OpInherit
	OpGetSuper
	OpGetSuperLong
	OpSuperInvoke
	OpSuperInvokeLong

	OpReturn
)

var opcodeNames = [...]string{
	OpConstant:          "OP_CONSTANT",
	OpConstantLong:      "OP_CONSTANT_LONG",
	OpNone:              "OP_NONE",
	OpTrue:              "OP_TRUE",
	OpFalse:             "OP_FALSE",
	OpPop:               "OP_POP",
	OpGetLocal:          "OP_GET_LOCAL",
	OpSetLocal:          "OP_SET_LOCAL",
	OpGetLocalLong:      "OP_GET_LOCAL_LONG",
	OpSetLocalLong:      "OP_SET_LOCAL_LONG",
	OpGetGlobal:         "OP_GET_GLOBAL",
	OpSetGlobal:         "OP_SET_GLOBAL",
	OpDefineGlobal:      "OP_DEFINE_GLOBAL",
	OpGetGlobalLong:     "OP_GET_GLOBAL_LONG",
	OpSetGlobalLong:     "OP_SET_GLOBAL_LONG",
	OpDefineGlobalLong:  "OP_DEFINE_GLOBAL_LONG",
	OpGetUpvalue:        "OP_GET_UPVALUE",
	OpSetUpvalue:        "OP_SET_UPVALUE",
	OpCloseUpvalue:      "OP_CLOSE_UPVALUE",
	OpEqual:             "OP_EQUAL",
	OpGreater:           "OP_GREATER",
	OpLess:              "OP_LESS",
	OpAdd:               "OP_ADD",
	OpSubtract:          "OP_SUBTRACT",
	OpMultiply:          "OP_MULTIPLY",
	OpDivide:            "OP_DIVIDE",
	OpNot:               "OP_NOT",
	OpNegate:            "OP_NEGATE",
	OpPrint:             "OP_PRINT",
	OpJump:              "OP_JUMP",
	OpJumpIfFalse:       "OP_JUMP_IF_FALSE",
	OpLoop:              "OP_LOOP",
	OpCall:              "OP_CALL",
	OpClosure:           "OP_CLOSURE",
	OpClass:             "OP_CLASS",
	OpClassLong:         "OP_CLASS_LONG",
	OpGetProperty:       "OP_GET_PROPERTY",
	OpSetProperty:       "OP_SET_PROPERTY",
	OpMethod:            "OP_METHOD",
	OpMethodLong:        "OP_METHOD_LONG",
	OpInvoke:            "OP_INVOKE",
	OpInvokeLong:        "OP_INVOKE_LONG",
	OpInherit:           "OP_INHERIT",
	OpGetSuper:          "OP_GET_SUPER",
	OpGetSuperLong:      "OP_GET_SUPER_LONG",
	OpSuperInvoke:       "OP_SUPER_INVOKE",
	OpSuperInvokeLong:   "OP_SUPER_INVOKE_LONG",
	OpReturn:            "OP_RETURN",
}

// String returns the disassembler-friendly mnemonic for op.
func (op OpCode) String() string {
	if int(op) < len(opcodeNames) && opcodeNames[op] != "" {
		return opcodeNames[op]
	}
	return "OP_UNKNOWN"
}
