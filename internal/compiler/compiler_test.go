package compiler

import (
	"strings"
	"testing"

	"github.com/kristofer/lumen/internal/bytecode"
)

func compile(t *testing.T, source string) (*bytecode.ObjFunction, bool, string) {
	t.Helper()
	var errOut strings.Builder
	heap := bytecode.NewHeap()
	fn, ok := Compile(source, heap, &errOut)
	return fn, ok, errOut.String()
}

func TestCompilesArithmeticExpression(t *testing.T) {
	fn, ok, errOut := compile(t, "print 1 + 2 * 3;")
	if !ok {
		t.Fatalf("expected compile success, got errors: %s", errOut)
	}
	if fn.Chunk == nil || len(fn.Chunk.Code) == 0 {
		t.Fatalf("expected non-empty chunk")
	}
}

func TestReportsSyntaxError(t *testing.T) {
	_, ok, errOut := compile(t, "let x = ;")
	if ok {
		t.Fatalf("expected compile failure")
	}
	if errOut == "" {
		t.Fatalf("expected a diagnostic written to the error sink")
	}
}

func TestReportsSelfReferentialInitializer(t *testing.T) {
	_, ok, errOut := compile(t, "{ let a = a; }")
	if ok {
		t.Fatalf("expected compile failure")
	}
	if !strings.Contains(errOut, "Can't read local variable in its own initializer.") {
		t.Fatalf("expected self-reference diagnostic, got %q", errOut)
	}
}

func TestReportsDuplicateLocalInSameScope(t *testing.T) {
	_, ok, errOut := compile(t, "{ let a = 1; let a = 2; }")
	if ok {
		t.Fatalf("expected compile failure")
	}
	if !strings.Contains(errOut, "Already a variable with this name in this scope.") {
		t.Fatalf("expected duplicate-local diagnostic, got %q", errOut)
	}
}

func TestReportsTopLevelReturn(t *testing.T) {
	_, ok, errOut := compile(t, "return 1;")
	if ok {
		t.Fatalf("expected compile failure")
	}
	if !strings.Contains(errOut, "Can't return from top-level code.") {
		t.Fatalf("expected top-level-return diagnostic, got %q", errOut)
	}
}

func TestReportsReturnValueFromInitializer(t *testing.T) {
	_, ok, errOut := compile(t, `
		class Foo {
			init() {
				return 1;
			}
		}
	`)
	if ok {
		t.Fatalf("expected compile failure")
	}
	if !strings.Contains(errOut, "Can't return a value from an initializer.") {
		t.Fatalf("expected initializer-return diagnostic, got %q", errOut)
	}
}

func TestReportsThisOutsideClass(t *testing.T) {
	_, ok, errOut := compile(t, "print this;")
	if ok {
		t.Fatalf("expected compile failure")
	}
	if !strings.Contains(errOut, "Can't use 'this' outside of a class.") {
		t.Fatalf("expected this-outside-class diagnostic, got %q", errOut)
	}
}

func TestReportsSelfInheritance(t *testing.T) {
	_, ok, errOut := compile(t, "class Foo < Foo {}")
	if ok {
		t.Fatalf("expected compile failure")
	}
	if !strings.Contains(errOut, "A class can't inherit from itself.") {
		t.Fatalf("expected self-inheritance diagnostic, got %q", errOut)
	}
}

func TestCompilesNestedFunctionsAndClosures(t *testing.T) {
	_, ok, errOut := compile(t, `
		func outer() {
			let x = 1;
			func inner() {
				return x;
			}
			return inner;
		}
	`)
	if !ok {
		t.Fatalf("expected compile success, got errors: %s", errOut)
	}
}

func TestCompilesClassWithSuperclassAndMethods(t *testing.T) {
	_, ok, errOut := compile(t, `
		class Animal {
			speak() { print "..."; }
		}
		class Dog < Animal {
			speak() { super.speak(); }
		}
	`)
	if !ok {
		t.Fatalf("expected compile success, got errors: %s", errOut)
	}
}

func TestCompilesForLoopDesugaring(t *testing.T) {
	_, ok, errOut := compile(t, `
		for (let i = 0; i < 10; i = i + 1) {
			print i;
		}
	`)
	if !ok {
		t.Fatalf("expected compile success, got errors: %s", errOut)
	}
}
