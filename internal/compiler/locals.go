package compiler

import (
	"github.com/kristofer/lumen/internal/bytecode"
	"github.com/kristofer/lumen/internal/lexer"
)

func (p *Parser) beginScope() { p.fn.scopeDepth++ }

// endScope pops every local declared in the scope just exited. A local
// some nested function captured as an upvalue must outlive the stack slot
// it started in, so it's closed over (OP_CLOSE_UPVALUE) instead of merely
// popped.
func (p *Parser) endScope() {
	p.fn.scopeDepth--
	locals := p.fn.locals
	for len(locals) > 0 && locals[len(locals)-1].depth > p.fn.scopeDepth {
		if locals[len(locals)-1].isCaptured {
			p.emitOp(bytecode.OpCloseUpvalue)
		} else {
			p.emitOp(bytecode.OpPop)
		}
		locals = locals[:len(locals)-1]
	}
	p.fn.locals = locals
}

// identifierConstant interns name's lexeme and returns its constant-pool
// index, for use as a global variable's or property's name operand.
func (p *Parser) identifierConstant(name lexer.Token) int {
	s := p.heap.InternString(name.Lexeme)
	return p.makeConstant(bytecode.ObjVal(s))
}

func identifiersEqual(a, b lexer.Token) bool { return a.Lexeme == b.Lexeme }

// resolveLocal searches fn's locals, innermost-declared first, returning
// its slot index or -1 if name isn't a local in this function.
func resolveLocal(p *Parser, fn *fnState, name lexer.Token) int {
	for i := len(fn.locals) - 1; i >= 0; i-- {
		if identifiersEqual(fn.locals[i].name, name) {
			if fn.locals[i].depth == -1 {
				p.error("Can't read local variable in its own initializer.")
			}
			return i
		}
	}
	return -1
}

// resolveUpvalue searches enclosing functions for name, adding a chain of
// upvalue references through every intervening function so a deeply nested
// closure can reach a variable declared several functions out.
func resolveUpvalue(p *Parser, fn *fnState, name lexer.Token) int {
	if fn.enclosing == nil {
		return -1
	}

	if local := resolveLocal(p, fn.enclosing, name); local != -1 {
		fn.enclosing.locals[local].isCaptured = true
		return addUpvalue(p, fn, byte(local), true)
	}

	if upvalue := resolveUpvalue(p, fn.enclosing, name); upvalue != -1 {
		return addUpvalue(p, fn, byte(upvalue), false)
	}

	return -1
}

// addUpvalue registers a new upvalue on fn, reusing an existing slot if one
// already captures the same source.
func addUpvalue(p *Parser, fn *fnState, index byte, isLocal bool) int {
	for i, uv := range fn.upvalues {
		if uv.index == index && uv.isLocal == isLocal {
			return i
		}
	}
	if len(fn.upvalues) == maxUpvalues {
		p.error("Too many closure variables in function.")
		return 0
	}
	fn.upvalues = append(fn.upvalues, upvalueRef{index: index, isLocal: isLocal})
	fn.function.UpvalueCount = len(fn.upvalues)
	return len(fn.upvalues) - 1
}

// addLocal declares name as a new local in the current scope, initially at
// depth -1 until its initializer (if any) finishes compiling.
func (p *Parser) addLocal(name lexer.Token) {
	if len(p.fn.locals) == maxLocals {
		p.error("Too many local variables in function.")
		return
	}
	p.fn.locals = append(p.fn.locals, local{name: name, depth: -1})
}

// declareVariable registers p.previous as a local in the current scope (a
// no-op at global scope, where variables are looked up by name in the
// globals table instead), rejecting a duplicate name already declared in
// this exact scope.
func (p *Parser) declareVariable() {
	if p.fn.scopeDepth == 0 {
		return
	}
	name := p.previous
	for i := len(p.fn.locals) - 1; i >= 0; i-- {
		l := p.fn.locals[i]
		if l.depth != -1 && l.depth < p.fn.scopeDepth {
			break
		}
		if identifiersEqual(name, l.name) {
			p.error("Already a variable with this name in this scope.")
		}
	}
	p.addLocal(name)
}

// parseVariable consumes an identifier, declares it if local, and returns
// its global-name constant index (unused for locals).
func (p *Parser) parseVariable(message string) int {
	p.consume(lexer.Identifier, message)

	p.declareVariable()
	if p.fn.scopeDepth > 0 {
		return 0
	}
	return p.identifierConstant(p.previous)
}

func (p *Parser) markInitialized() {
	if p.fn.scopeDepth == 0 {
		return
	}
	p.fn.locals[len(p.fn.locals)-1].depth = p.fn.scopeDepth
}

// defineVariable emits the bytecode that makes a just-parsed variable
// visible: nothing for a local (its value is already sitting in the right
// stack slot), OP_DEFINE_GLOBAL for a global.
func (p *Parser) defineVariable(global int) {
	if p.fn.scopeDepth > 0 {
		p.markInitialized()
		return
	}
	p.emitIndexedOp(bytecode.OpDefineGlobal, bytecode.OpDefineGlobalLong, global)
}

func variable(p *Parser, canAssign bool) {
	variableRef(p, p.previous, canAssign)
}

// variableRef emits the load (or, if canAssign and an '=' follows, store)
// for name, resolving it as a local, an upvalue, or finally a global.
func variableRef(p *Parser, name lexer.Token, canAssign bool) {
	var getOp, getLongOp, setOp, setLongOp bytecode.OpCode
	arg := resolveLocal(p, p.fn, name)
	if arg != -1 {
		getOp, getLongOp = bytecode.OpGetLocal, bytecode.OpGetLocalLong
		setOp, setLongOp = bytecode.OpSetLocal, bytecode.OpSetLocalLong
	} else if arg = resolveUpvalue(p, p.fn, name); arg != -1 {
		getOp, setOp = bytecode.OpGetUpvalue, bytecode.OpSetUpvalue
		getLongOp, setLongOp = bytecode.OpGetUpvalue, bytecode.OpSetUpvalue
	} else {
		arg = p.identifierConstant(name)
		getOp, getLongOp = bytecode.OpGetGlobal, bytecode.OpGetGlobalLong
		setOp, setLongOp = bytecode.OpSetGlobal, bytecode.OpSetGlobalLong
	}

	if canAssign && p.match(lexer.Equal) {
		expression(p)
		p.emitIndexedOp(setOp, setLongOp, arg)
	} else {
		p.emitIndexedOp(getOp, getLongOp, arg)
	}
}
