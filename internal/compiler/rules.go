package compiler

import "github.com/kristofer/lumen/internal/lexer"

// precedence orders the binding strength of infix operators, low to high,
// exactly as spec §4.4's ladder: Assign, Or, And, Equality, Compare,
// Add/Sub, Mul/Div, Unary, Call/Dot.
type precedence int

const (
	precNone precedence = iota
	precAssignment
	precOr
	precAnd
	precEquality
	precComparison
	precTerm
	precFactor
	precUnary
	precCall
	precPrimary
)

// parseFn is a Pratt parsing function: a prefix rule consumes the token
// already advanced past (in p.previous) and parses a complete expression
// starting there; an infix rule is called with the left operand already on
// the stack and p.previous holding the operator token.
type parseFn func(p *Parser, canAssign bool)

type parseRule struct {
	prefix     parseFn
	infix      parseFn
	precedence precedence
}

var rules map[lexer.TokenType]parseRule

func init() {
	rules = map[lexer.TokenType]parseRule{
		lexer.LeftParen:    {prefix: grouping, infix: call, precedence: precCall},
		lexer.Dot:          {infix: dot, precedence: precCall},
		lexer.Minus:        {prefix: unary, infix: binary, precedence: precTerm},
		lexer.Plus:         {infix: binary, precedence: precTerm},
		lexer.Slash:        {infix: binary, precedence: precFactor},
		lexer.Star:         {infix: binary, precedence: precFactor},
		lexer.Bang:         {prefix: unary},
		lexer.BangEqual:    {infix: binary, precedence: precEquality},
		lexer.EqualEqual:   {infix: binary, precedence: precEquality},
		lexer.Greater:      {infix: binary, precedence: precComparison},
		lexer.GreaterEqual: {infix: binary, precedence: precComparison},
		lexer.Less:         {infix: binary, precedence: precComparison},
		lexer.LessEqual:    {infix: binary, precedence: precComparison},
		lexer.Identifier:   {prefix: variable},
		lexer.String:       {prefix: stringLiteral},
		lexer.Number:       {prefix: number},
		lexer.And:          {infix: and_, precedence: precAnd},
		lexer.Or:           {infix: or_, precedence: precOr},
		lexer.False:        {prefix: literal},
		lexer.None:         {prefix: literal},
		lexer.True:         {prefix: literal},
		lexer.This:         {prefix: this_},
		lexer.Super:        {prefix: super_},
	}
}

func getRule(t lexer.TokenType) parseRule {
	return rules[t]
}

// parsePrecedence is the heart of the Pratt driver: it advances one token,
// invokes that token's prefix rule, then repeatedly consumes and applies
// infix rules as long as the current token binds at least as tightly as
// minPrec. canAssign is threaded down so `=` is only honored when parsing
// at or below assignment precedence, which is what makes `a + b = c` a
// compile error instead of a silent no-op.
func parsePrecedence(p *Parser, minPrec precedence) {
	p.advance()
	prefix := getRule(p.previous.Type).prefix
	if prefix == nil {
		p.error("Expect expression.")
		return
	}

	canAssign := minPrec <= precAssignment
	prefix(p, canAssign)

	for minPrec <= getRule(p.current.Type).precedence {
		p.advance()
		infix := getRule(p.previous.Type).infix
		infix(p, canAssign)
	}

	if canAssign && p.match(lexer.Equal) {
		p.error("Invalid assignment target.")
	}
}

func expression(p *Parser) {
	parsePrecedence(p, precAssignment)
}
