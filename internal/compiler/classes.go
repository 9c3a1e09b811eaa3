package compiler

import (
	"github.com/kristofer/lumen/internal/bytecode"
	"github.com/kristofer/lumen/internal/lexer"
)

// classDeclaration compiles `class Name [< Super] { methods... }`. Each
// method body is compiled as its own function and appended to the class
// with OP_METHOD/OP_METHOD_LONG; "init" is special-cased as the
// constructor, whose implicit return yields the receiver instead of none.
func (p *Parser) classDeclaration() {
	p.consume(lexer.Identifier, "Expect class name.")
	nameTok := p.previous
	nameConstant := p.identifierConstant(nameTok)
	p.declareVariable()

	p.emitIndexedOp(bytecode.OpClass, bytecode.OpClassLong, nameConstant)
	p.defineVariable(nameConstant)

	cs := &classState{enclosing: p.class}
	p.class = cs

	if p.match(lexer.Less) {
		p.consume(lexer.Identifier, "Expect superclass name.")
		variable(p, false)
		if identifiersEqual(nameTok, p.previous) {
			p.error("A class can't inherit from itself.")
		}

		p.beginScope()
		p.addLocal(lexer.Token{Lexeme: "super"})
		p.defineVariable(0)

		variableRef(p, nameTok, false)
		p.emitOp(bytecode.OpInherit)
		cs.hasSuperclass = true
	}

	variableRef(p, nameTok, false)
	p.consume(lexer.LeftBrace, "Expect '{' before class body.")
	for !p.check(lexer.RightBrace) && !p.check(lexer.EOF) {
		p.method()
	}
	p.consume(lexer.RightBrace, "Expect '}' after class body.")
	p.emitOp(bytecode.OpPop)

	if cs.hasSuperclass {
		p.endScope()
	}
	p.class = cs.enclosing
}

func (p *Parser) method() {
	p.consume(lexer.Identifier, "Expect method name.")
	name := p.previous
	constant := p.identifierConstant(name)

	fType := TypeMethod
	if name.Lexeme == "init" {
		fType = TypeInitializer
	}
	p.function(fType)
	p.emitIndexedOp(bytecode.OpMethod, bytecode.OpMethodLong, constant)
}
