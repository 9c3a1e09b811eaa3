package lexer

import "testing"

func TestNextTokenBasicTokens(t *testing.T) {
	input := `(){};,.-+/*!= == <= >= < > =`

	tests := []struct {
		expectedType   TokenType
		expectedLexeme string
	}{
		{LeftParen, "("},
		{RightParen, ")"},
		{LeftBrace, "{"},
		{RightBrace, "}"},
		{Semicolon, ";"},
		{Comma, ","},
		{Dot, "."},
		{Minus, "-"},
		{Plus, "+"},
		{Slash, "/"},
		{Star, "*"},
		{BangEqual, "!="},
		{EqualEqual, "=="},
		{LessEqual, "<="},
		{GreaterEqual, ">="},
		{Less, "<"},
		{Greater, ">"},
		{Equal, "="},
		{EOF, ""},
	}

	l := New(input)
	for i, tt := range tests {
		tok := l.NextToken()
		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - type wrong. expected=%s, got=%s", i, tt.expectedType, tok.Type)
		}
		if tok.Lexeme != tt.expectedLexeme {
			t.Fatalf("tests[%d] - lexeme wrong. expected=%q, got=%q", i, tt.expectedLexeme, tok.Lexeme)
		}
	}
}

func TestNextTokenKeywordsAndIdentifiers(t *testing.T) {
	input := `let x = 5; func add(a, b) { return a + b; } class Foo {} this super true false none and or if else while for print`

	expected := []TokenType{
		Let, Identifier, Equal, Number, Semicolon,
		Func, Identifier, LeftParen, Identifier, Comma, Identifier, RightParen, LeftBrace,
		Return, Identifier, Plus, Identifier, Semicolon, RightBrace,
		Class, Identifier, LeftBrace, RightBrace,
		This, Super, True, False, None, And, Or, If, Else, While, For, Print,
		EOF,
	}

	l := New(input)
	for i, want := range expected {
		tok := l.NextToken()
		if tok.Type != want {
			t.Fatalf("tests[%d] - type wrong. expected=%s, got=%s (%q)", i, want, tok.Type, tok.Lexeme)
		}
	}
}

func TestNextTokenStringAndNumber(t *testing.T) {
	input := `"hello there" 3.14 42`
	l := New(input)

	tok := l.NextToken()
	if tok.Type != String || tok.Lexeme != `"hello there"` {
		t.Fatalf("string token wrong: %+v", tok)
	}

	tok = l.NextToken()
	if tok.Type != Number || tok.Lexeme != "3.14" {
		t.Fatalf("float token wrong: %+v", tok)
	}

	tok = l.NextToken()
	if tok.Type != Number || tok.Lexeme != "42" {
		t.Fatalf("int token wrong: %+v", tok)
	}
}

func TestNextTokenUnterminatedString(t *testing.T) {
	l := New(`"no closing quote`)
	tok := l.NextToken()
	if tok.Type != Error {
		t.Fatalf("expected Error token, got %s", tok.Type)
	}
}

func TestNextTokenLineTracking(t *testing.T) {
	l := New("let a = 1;\nlet b = 2;\n")
	var lastLine int
	for {
		tok := l.NextToken()
		if tok.Type == EOF {
			lastLine = tok.Line
			break
		}
	}
	if lastLine != 3 {
		t.Fatalf("expected EOF on line 3, got %d", lastLine)
	}
}

func TestNextTokenSkipsComments(t *testing.T) {
	l := New("// a comment\nlet x = 1; // trailing\n")
	tok := l.NextToken()
	if tok.Type != Let {
		t.Fatalf("expected LET after comment, got %s", tok.Type)
	}
}
