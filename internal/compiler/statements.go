package compiler

import (
	"github.com/kristofer/lumen/internal/bytecode"
	"github.com/kristofer/lumen/internal/lexer"
)

// declaration parses one top-level or block-level declaration: a class,
// function, or let-binding, or else falls through to statement. A parse
// error here resynchronizes at the next statement boundary instead of
// aborting the whole compile.
func (p *Parser) declaration() {
	switch {
	case p.match(lexer.Class):
		p.classDeclaration()
	case p.match(lexer.Func):
		p.funDeclaration()
	case p.match(lexer.Let):
		p.letDeclaration()
	default:
		p.statement()
	}

	if p.panicMode {
		p.synchronize()
	}
}

func (p *Parser) letDeclaration() {
	global := p.parseVariable("Expect variable name.")

	if p.match(lexer.Equal) {
		expression(p)
	} else {
		p.emitOp(bytecode.OpNone)
	}
	p.consume(lexer.Semicolon, "Expect ';' after variable declaration.")

	p.defineVariable(global)
}

func (p *Parser) funDeclaration() {
	global := p.parseVariable("Expect function name.")
	p.markInitialized()
	p.function(TypeFunction)
	p.defineVariable(global)
}

// function compiles a function's parameter list and body as a fresh nested
// fnState, closing over p.fn as its enclosing function, and emits
// OP_CLOSURE with one (isLocal, index) pair per captured upvalue.
func (p *Parser) function(fType FunctionType) {
	fn := &fnState{enclosing: p.fn, fType: fType}
	fn.function = p.heap.NewFunction()
	fn.function.Name = p.heap.InternString(p.previous.Lexeme)

	receiverName := ""
	if fType != TypeFunction {
		receiverName = "this"
	}
	fn.locals = append(fn.locals, local{name: lexer.Token{Lexeme: receiverName}, depth: 0})

	p.fn = fn
	p.beginScope()

	p.consume(lexer.LeftParen, "Expect '(' after function name.")
	if !p.check(lexer.RightParen) {
		for {
			p.fn.function.Arity++
			if p.fn.function.Arity > 255 {
				p.errorAtCurrent("Can't have more than 255 parameters.")
			}
			paramConstant := p.parseVariable("Expect parameter name.")
			p.defineVariable(paramConstant)
			if !p.match(lexer.Comma) {
				break
			}
		}
	}
	p.consume(lexer.RightParen, "Expect ')' after parameters.")
	p.consume(lexer.LeftBrace, "Expect '{' before function body.")
	p.block()

	compiled := p.endCompiler()
	upvalues := fn.upvalues

	idx := p.makeConstant(bytecode.ObjVal(compiled))
	if idx > 255 {
		p.error("Too many constants in enclosing function to close over.")
	}
	p.emitOp(bytecode.OpClosure)
	p.emitByte(byte(idx))
	for _, uv := range upvalues {
		if uv.isLocal {
			p.emitByte(1)
		} else {
			p.emitByte(0)
		}
		p.emitByte(uv.index)
	}
}

func (p *Parser) block() {
	for !p.check(lexer.RightBrace) && !p.check(lexer.EOF) {
		p.declaration()
	}
	p.consume(lexer.RightBrace, "Expect '}' after block.")
}

func (p *Parser) statement() {
	switch {
	case p.match(lexer.Print):
		p.printStatement()
	case p.match(lexer.If):
		p.ifStatement()
	case p.match(lexer.While):
		p.whileStatement()
	case p.match(lexer.For):
		p.forStatement()
	case p.match(lexer.Return):
		p.returnStatement()
	case p.match(lexer.LeftBrace):
		p.beginScope()
		p.block()
		p.endScope()
	default:
		p.expressionStatement()
	}
}

func (p *Parser) printStatement() {
	expression(p)
	p.consume(lexer.Semicolon, "Expect ';' after value.")
	p.emitOp(bytecode.OpPrint)
}

func (p *Parser) expressionStatement() {
	expression(p)
	p.consume(lexer.Semicolon, "Expect ';' after expression.")
	p.emitOp(bytecode.OpPop)
}

func (p *Parser) returnStatement() {
	if p.fn.fType == TypeScript {
		p.error("Can't return from top-level code.")
	}
	if p.match(lexer.Semicolon) {
		p.emitReturn()
		return
	}
	if p.fn.fType == TypeInitializer {
		p.error("Can't return a value from an initializer.")
	}
	expression(p)
	p.consume(lexer.Semicolon, "Expect ';' after return value.")
	p.emitOp(bytecode.OpReturn)
}

func (p *Parser) ifStatement() {
	p.consume(lexer.LeftParen, "Expect '(' after 'if'.")
	expression(p)
	p.consume(lexer.RightParen, "Expect ')' after condition.")

	thenJump := p.emitJump(bytecode.OpJumpIfFalse)
	p.emitOp(bytecode.OpPop)
	p.statement()

	elseJump := p.emitJump(bytecode.OpJump)
	p.patchJump(thenJump)
	p.emitOp(bytecode.OpPop)

	if p.match(lexer.Else) {
		p.statement()
	}
	p.patchJump(elseJump)
}

func (p *Parser) whileStatement() {
	loopStart := len(p.currentChunk().Code)
	p.consume(lexer.LeftParen, "Expect '(' after 'while'.")
	expression(p)
	p.consume(lexer.RightParen, "Expect ')' after condition.")

	exitJump := p.emitJump(bytecode.OpJumpIfFalse)
	p.emitOp(bytecode.OpPop)
	p.statement()
	p.emitLoop(loopStart)

	p.patchJump(exitJump)
	p.emitOp(bytecode.OpPop)
}

// forStatement desugars to the same while-loop shape the bytecode already
// supports: an optional initializer, then a condition-guarded body. The
// increment is compiled once, ahead of the body and jumped over on entry;
// the body loops back to it, and it loops back to the condition.
func (p *Parser) forStatement() {
	p.beginScope()
	p.consume(lexer.LeftParen, "Expect '(' after 'for'.")

	switch {
	case p.match(lexer.Semicolon):
		// No initializer.
	case p.match(lexer.Let):
		p.letDeclaration()
	default:
		p.expressionStatement()
	}

	loopStart := len(p.currentChunk().Code)
	exitJump := -1
	if !p.match(lexer.Semicolon) {
		expression(p)
		p.consume(lexer.Semicolon, "Expect ';' after loop condition.")
		exitJump = p.emitJump(bytecode.OpJumpIfFalse)
		p.emitOp(bytecode.OpPop)
	}

	if !p.match(lexer.RightParen) {
		bodyJump := p.emitJump(bytecode.OpJump)
		incrementStart := len(p.currentChunk().Code)
		expression(p)
		p.emitOp(bytecode.OpPop)
		p.consume(lexer.RightParen, "Expect ')' after for clauses.")

		p.emitLoop(loopStart)
		loopStart = incrementStart
		p.patchJump(bodyJump)
	}

	p.statement()
	p.emitLoop(loopStart)

	if exitJump != -1 {
		p.patchJump(exitJump)
		p.emitOp(bytecode.OpPop)
	}

	p.endScope()
}
