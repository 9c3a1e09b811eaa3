// Package compiler implements lumen's single-pass Pratt compiler: it
// parses tokens from the lexer and emits bytecode directly into a Chunk,
// with no intermediate AST. Scopes, locals, and upvalues are tracked on an
// explicit stack of per-function Compiler records, one per nested
// function/method currently being compiled.
package compiler

import (
	"fmt"
	"io"

	"github.com/kristofer/lumen/internal/bytecode"
	"github.com/kristofer/lumen/internal/lexer"
)

// FunctionType distinguishes the kind of callable body a Compiler record
// is building, which changes a few codegen details: a Script implicitly
// returns none, a Method/Initializer reserve local slot 0 for "this"
// rather than the callee, and an Initializer's implicit return yields the
// receiver instead of none.
type FunctionType int

const (
	TypeFunction FunctionType = iota
	TypeScript
	TypeMethod
	TypeInitializer
)

// local is a stack-resident variable declared in the current function.
// Depth is -1 while its initializer is being compiled, preventing a
// variable from referencing itself; isCaptured marks it as still needed
// after its declaring scope exits, because some nested function closed
// over it.
type local struct {
	name       lexer.Token
	depth      int
	isCaptured bool
}

// upvalueRef records how a compiler's captured variable reaches the
// enclosing function: directly as one of its locals (isLocal) or by
// forwarding one of its own upvalues.
type upvalueRef struct {
	index   byte
	isLocal bool
}

// fnState is one frame of the compiler's nested-function stack: the
// record for the function currently being compiled, linked to its
// enclosing function's record.
type fnState struct {
	enclosing  *fnState
	function   *bytecode.ObjFunction
	fType      FunctionType
	locals     []local
	scopeDepth int
	upvalues   []upvalueRef
}

// classState tracks the class body currently being compiled, for
// resolving `this` and `super` and for rejecting `super` outside any
// subclass.
type classState struct {
	enclosing     *classState
	hasSuperclass bool
}

const maxLocals = 256
const maxUpvalues = 256

// Parser drives the whole compile: it owns the lexer, the current/previous
// token lookahead Pratt parsing needs, the nested fnState/classState
// stacks, and error-recovery state (hadError/panicMode). A Parser is used
// for exactly one Compile call.
type Parser struct {
	lex *lexer.Lexer
	heap *bytecode.Heap

	current  lexer.Token
	previous lexer.Token

	hadError  bool
	panicMode bool
	errOut    io.Writer

	fn    *fnState
	class *classState
}

// Compile compiles source into a top-level script function using heap for
// every allocation (string interning, the ObjFunction itself, and all
// Values placed in its constant pool). It returns (fn, true) on success;
// on a parse/semantic error it writes one or more diagnostics to errOut
// and returns (nil, false) — the caller surfaces this as CompileError.
func Compile(source string, heap *bytecode.Heap, errOut io.Writer) (*bytecode.ObjFunction, bool) {
	p := &Parser{lex: lexer.New(source), heap: heap, errOut: errOut}
	heap.AddRoot(p)
	defer heap.RemoveRoot(p)

	p.fn = &fnState{function: heap.NewFunction(), fType: TypeScript}
	p.fn.locals = append(p.fn.locals, local{name: lexer.Token{Lexeme: ""}, depth: 0})

	p.advance()
	for !p.match(lexer.EOF) {
		p.declaration()
	}

	fn := p.endCompiler()
	if p.hadError {
		return nil, false
	}
	return fn, true
}

// endCompiler finishes the current fnState: emits the implicit return,
// pops it off the compiler stack, and returns the finished ObjFunction.
func (p *Parser) endCompiler() *bytecode.ObjFunction {
	p.emitReturn()
	fn := p.fn.function
	p.fn = p.fn.enclosing
	return fn
}

// MarkRoots implements bytecode.RootMarker: while compilation is in
// flight, every function currently being compiled (the whole fnState
// chain, innermost first) and each constant already in its chunk must
// survive a collection triggered mid-compile.
func (p *Parser) MarkRoots(h *bytecode.Heap) {
	for f := p.fn; f != nil; f = f.enclosing {
		h.MarkObject(f.function)
		for _, c := range f.function.Chunk.Constants {
			h.MarkValue(c)
		}
	}
}

// ---- token stream -------------------------------------------------------

func (p *Parser) advance() {
	p.previous = p.current
	for {
		p.current = p.lex.NextToken()
		if p.current.Type != lexer.Error {
			break
		}
		p.errorAtCurrent(p.current.Lexeme)
	}
}

func (p *Parser) check(t lexer.TokenType) bool { return p.current.Type == t }

func (p *Parser) match(t lexer.TokenType) bool {
	if !p.check(t) {
		return false
	}
	p.advance()
	return true
}

func (p *Parser) consume(t lexer.TokenType, message string) {
	if p.current.Type == t {
		p.advance()
		return
	}
	p.errorAtCurrent(message)
}

// ---- error reporting & recovery -----------------------------------------

func (p *Parser) errorAtCurrent(message string) { p.errorAt(p.current, message) }
func (p *Parser) error(message string)          { p.errorAt(p.previous, message) }

// errorAt formats a diagnostic exactly as spec §6 requires:
// "[line N] Error[ at '<lexeme>']: <message>". Once panicMode is set,
// further errors are swallowed until synchronize resumes, so one mistake
// doesn't cascade into a wall of noise.
func (p *Parser) errorAt(tok lexer.Token, message string) {
	if p.panicMode {
		return
	}
	p.panicMode = true
	p.hadError = true

	if p.errOut == nil {
		return
	}
	switch tok.Type {
	case lexer.EOF:
		fmt.Fprintf(p.errOut, "[line %d] Error at end: %s\n", tok.Line, message)
	case lexer.Error:
		fmt.Fprintf(p.errOut, "[line %d] Error: %s\n", tok.Line, message)
	default:
		fmt.Fprintf(p.errOut, "[line %d] Error at '%s': %s\n", tok.Line, tok.Lexeme, message)
	}
}

// synchronize skips tokens until one that can legally start a new
// declaration, so a single syntax error doesn't produce a flood of
// spurious follow-on errors.
func (p *Parser) synchronize() {
	p.panicMode = false

	for p.current.Type != lexer.EOF {
		if p.previous.Type == lexer.Semicolon {
			return
		}
		switch p.current.Type {
		case lexer.Class, lexer.Func, lexer.Let, lexer.For,
			lexer.If, lexer.While, lexer.Print, lexer.Return:
			return
		}
		p.advance()
	}
}

// ---- bytecode emission ---------------------------------------------------

func (p *Parser) currentChunk() *bytecode.Chunk { return p.fn.function.Chunk }

func (p *Parser) emitByte(b byte) {
	p.currentChunk().Write(b, p.previous.Line)
}

func (p *Parser) emitOp(op bytecode.OpCode) { p.emitByte(byte(op)) }

func (p *Parser) emitBytes(b1, b2 byte) {
	p.emitByte(b1)
	p.emitByte(b2)
}

func (p *Parser) emitOpByte(op bytecode.OpCode, operand byte) {
	p.emitBytes(byte(op), operand)
}

// emitReturn emits the function's implicit trailing return: `this` for an
// initializer falling off the end (so calling `Foo()` always yields the
// instance), none for everything else.
func (p *Parser) emitReturn() {
	if p.fn.fType == TypeInitializer {
		p.emitOpByte(bytecode.OpGetLocal, 0)
	} else {
		p.emitOp(bytecode.OpNone)
	}
	p.emitOp(bytecode.OpReturn)
}

// emitLoop emits OP_LOOP with a backward 16-bit offset to loopStart.
func (p *Parser) emitLoop(loopStart int) {
	p.emitOp(bytecode.OpLoop)
	offset := len(p.currentChunk().Code) - loopStart + 2
	if offset > 0xFFFF {
		p.error("Loop body too large.")
	}
	p.emitByte(byte((offset >> 8) & 0xFF))
	p.emitByte(byte(offset & 0xFF))
}

// emitJump emits op followed by a two-byte placeholder, returning the
// offset of the placeholder's first byte for patchJump to fill in later.
func (p *Parser) emitJump(op bytecode.OpCode) int {
	p.emitOp(op)
	p.emitByte(0xFF)
	p.emitByte(0xFF)
	return len(p.currentChunk().Code) - 2
}

// patchJump backfills the 16-bit offset at offset with the distance from
// just after the placeholder to the current end of the chunk.
func (p *Parser) patchJump(offset int) {
	jump := len(p.currentChunk().Code) - offset - 2
	if jump > 0xFFFF {
		p.error("Too much code to jump over.")
	}
	code := p.currentChunk().Code
	code[offset] = byte((jump >> 8) & 0xFF)
	code[offset+1] = byte(jump & 0xFF)
}

// makeConstant adds value to the current chunk's constant pool and returns
// its index; emitIndexedOp later picks the 1-byte or 3-byte form from it.
func (p *Parser) makeConstant(value bytecode.Value) int {
	return p.currentChunk().AddConstant(value)
}

// emitConstant emits the load of a literal constant, picking OP_CONSTANT
// or OP_CONSTANT_LONG by the constant pool index.
func (p *Parser) emitConstant(value bytecode.Value) {
	p.emitIndexedOp(bytecode.OpConstant, bytecode.OpConstantLong, p.makeConstant(value))
}

// emitIndexedOp emits short if idx fits in a byte, otherwise long with a
// 3-byte little-endian operand — the _LONG forms throughout the bytecode
// surface all follow this same encoding.
func (p *Parser) emitIndexedOp(short, long bytecode.OpCode, idx int) {
	if idx < 256 {
		p.emitOpByte(short, byte(idx))
		return
	}
	p.emitOp(long)
	p.emitByte(byte(idx & 0xFF))
	p.emitByte(byte((idx >> 8) & 0xFF))
	p.emitByte(byte((idx >> 16) & 0xFF))
}
