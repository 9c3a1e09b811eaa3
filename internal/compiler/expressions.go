package compiler

import (
	"strconv"

	"github.com/kristofer/lumen/internal/bytecode"
	"github.com/kristofer/lumen/internal/lexer"
)

func number(p *Parser, _ bool) {
	v, err := strconv.ParseFloat(p.previous.Lexeme, 64)
	if err != nil {
		p.error("Invalid number literal.")
		return
	}
	p.emitConstant(bytecode.NumberVal(v))
}

// stringLiteral strips the surrounding quotes and interns the contents.
func stringLiteral(p *Parser, _ bool) {
	raw := p.previous.Lexeme
	contents := raw[1 : len(raw)-1]
	s := p.heap.InternString(contents)
	p.emitConstant(bytecode.ObjVal(s))
}

func literal(p *Parser, _ bool) {
	switch p.previous.Type {
	case lexer.False:
		p.emitOp(bytecode.OpFalse)
	case lexer.True:
		p.emitOp(bytecode.OpTrue)
	case lexer.None:
		p.emitOp(bytecode.OpNone)
	}
}

func grouping(p *Parser, _ bool) {
	expression(p)
	p.consume(lexer.RightParen, "Expect ')' after expression.")
}

func unary(p *Parser, _ bool) {
	opType := p.previous.Type
	parsePrecedence(p, precUnary)
	switch opType {
	case lexer.Bang:
		p.emitOp(bytecode.OpNot)
	case lexer.Minus:
		p.emitOp(bytecode.OpNegate)
	}
}

func binary(p *Parser, _ bool) {
	opType := p.previous.Type
	rule := getRule(opType)
	parsePrecedence(p, rule.precedence+1)

	switch opType {
	case lexer.BangEqual:
		p.emitOp(bytecode.OpEqual)
		p.emitOp(bytecode.OpNot)
	case lexer.EqualEqual:
		p.emitOp(bytecode.OpEqual)
	case lexer.Greater:
		p.emitOp(bytecode.OpGreater)
	case lexer.GreaterEqual:
		p.emitOp(bytecode.OpLess)
		p.emitOp(bytecode.OpNot)
	case lexer.Less:
		p.emitOp(bytecode.OpLess)
	case lexer.LessEqual:
		p.emitOp(bytecode.OpGreater)
		p.emitOp(bytecode.OpNot)
	case lexer.Plus:
		p.emitOp(bytecode.OpAdd)
	case lexer.Minus:
		p.emitOp(bytecode.OpSubtract)
	case lexer.Star:
		p.emitOp(bytecode.OpMultiply)
	case lexer.Slash:
		p.emitOp(bytecode.OpDivide)
	}
}

// and_ short-circuits: if the left operand is false, skip the right
// operand entirely and leave the false value as the result.
func and_(p *Parser, _ bool) {
	endJump := p.emitJump(bytecode.OpJumpIfFalse)
	p.emitOp(bytecode.OpPop)
	parsePrecedence(p, precAnd)
	p.patchJump(endJump)
}

// or_ short-circuits the opposite way: if the left operand is truthy,
// skip the right operand.
func or_(p *Parser, _ bool) {
	elseJump := p.emitJump(bytecode.OpJumpIfFalse)
	endJump := p.emitJump(bytecode.OpJump)

	p.patchJump(elseJump)
	p.emitOp(bytecode.OpPop)

	parsePrecedence(p, precOr)
	p.patchJump(endJump)
}

func call(p *Parser, _ bool) {
	argc := argumentList(p)
	p.emitOpByte(bytecode.OpCall, byte(argc))
}

// argumentList parses a parenthesized, comma-separated argument list whose
// opening '(' has already been consumed, returning the argument count.
func argumentList(p *Parser) int {
	argc := 0
	if !p.check(lexer.RightParen) {
		for {
			expression(p)
			if argc == 255 {
				p.error("Can't have more than 255 arguments.")
			}
			argc++
			if !p.match(lexer.Comma) {
				break
			}
		}
	}
	p.consume(lexer.RightParen, "Expect ')' after arguments.")
	return argc
}

// dot parses property access/assignment and, as a fast path, a direct
// method invocation (`recv.method(args)`) as a single OP_INVOKE instead of
// a property load followed by a call.
func dot(p *Parser, canAssign bool) {
	p.consume(lexer.Identifier, "Expect property name after '.'.")
	name := p.identifierConstant(p.previous)

	switch {
	case canAssign && p.match(lexer.Equal):
		expression(p)
		p.emitIndexedOp(bytecode.OpSetProperty, bytecode.OpSetProperty, name)
	case p.match(lexer.LeftParen):
		argc := argumentList(p)
		p.emitInvoke(bytecode.OpInvoke, bytecode.OpInvokeLong, name, argc)
	default:
		p.emitIndexedOp(bytecode.OpGetProperty, bytecode.OpGetProperty, name)
	}
}

// emitInvoke emits OP_INVOKE/OP_SUPER_INVOKE's packed form: a method-name
// constant index (1 or 3 bytes) followed by a 1-byte argument count.
func (p *Parser) emitInvoke(short, long bytecode.OpCode, nameIdx, argc int) {
	p.emitIndexedOp(short, long, nameIdx)
	p.emitByte(byte(argc))
}

func this_(p *Parser, _ bool) {
	if p.class == nil {
		p.error("Can't use 'this' outside of a class.")
		return
	}
	variableRef(p, p.previous, false)
}

// super_ parses `super.method` and, directly applying it, `super.method()`
// as OP_SUPER_INVOKE. The superclass itself is loaded via the synthetic
// local the enclosing class declaration bound named "super".
func super_(p *Parser, _ bool) {
	if p.class == nil {
		p.error("Can't use 'super' outside of a class.")
	} else if !p.class.hasSuperclass {
		p.error("Can't use 'super' in a class with no superclass.")
	}

	p.consume(lexer.Dot, "Expect '.' after 'super'.")
	p.consume(lexer.Identifier, "Expect superclass method name.")
	name := p.identifierConstant(p.previous)

	variableRef(p, lexer.Token{Type: lexer.This, Lexeme: "this"}, false)
	if p.match(lexer.LeftParen) {
		argc := argumentList(p)
		variableRef(p, lexer.Token{Type: lexer.Super, Lexeme: "super"}, false)
		p.emitInvoke(bytecode.OpSuperInvoke, bytecode.OpSuperInvokeLong, name, argc)
	} else {
		variableRef(p, lexer.Token{Type: lexer.Super, Lexeme: "super"}, false)
		p.emitIndexedOp(bytecode.OpGetSuper, bytecode.OpGetSuperLong, name)
	}
}
