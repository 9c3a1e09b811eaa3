package vm

import (
	"strings"
	"testing"
)

func run(t *testing.T, source string) (stdout, stderr string, result InterpretResult) {
	t.Helper()
	var out, errOut strings.Builder
	machine := New(&out, &errOut)
	result = machine.Interpret(source)
	return out.String(), errOut.String(), result
}

func TestArithmeticPrecedence(t *testing.T) {
	out, _, result := run(t, "print 1 + 2 * 3;")
	if result != InterpretOK {
		t.Fatalf("expected OK, got %v", result)
	}
	if out != "7\n" {
		t.Fatalf("expected %q, got %q", "7\n", out)
	}
}

func TestStringConcatenation(t *testing.T) {
	out, _, result := run(t, `print "hi" + " " + "there";`)
	if result != InterpretOK {
		t.Fatalf("expected OK, got %v", result)
	}
	if out != "hi there\n" {
		t.Fatalf("expected %q, got %q", "hi there\n", out)
	}
}

func TestWhileLoop(t *testing.T) {
	out, _, result := run(t, `
		let i = 0;
		while (i < 3) {
			print i;
			i = i + 1;
		}
	`)
	if result != InterpretOK {
		t.Fatalf("expected OK, got %v", result)
	}
	if out != "0\n1\n2\n" {
		t.Fatalf("expected %q, got %q", "0\n1\n2\n", out)
	}
}

func TestClosureCapturesByReference(t *testing.T) {
	out, _, result := run(t, `
		func makeCounter() {
			let count = 0;
			func counter() {
				count = count + 1;
				print count;
			}
			return counter;
		}
		let c = makeCounter();
		c();
		c();
		c();
	`)
	if result != InterpretOK {
		t.Fatalf("expected OK, got %v", result)
	}
	if out != "1\n2\n3\n" {
		t.Fatalf("expected %q, got %q", "1\n2\n3\n", out)
	}
}

func TestClassInheritanceAndSuper(t *testing.T) {
	out, _, result := run(t, `
		class Greeter {
			greet() {
				print "hi";
			}
		}
		class LoudGreeter < Greeter {
			greet() {
				super.greet();
			}
		}
		LoudGreeter().greet();
	`)
	if result != InterpretOK {
		t.Fatalf("expected OK, got %v", result)
	}
	if out != "hi\n" {
		t.Fatalf("expected %q, got %q", "hi\n", out)
	}
}

func TestUndefinedVariableIsRuntimeError(t *testing.T) {
	_, errOut, result := run(t, "print undeclared;")
	if result != InterpretRuntimeError {
		t.Fatalf("expected RuntimeError, got %v", result)
	}
	if !strings.HasPrefix(errOut, "This variable has not been defined 'undeclared'") {
		t.Fatalf("expected undefined-variable message as the first line, got %q", errOut)
	}
}

func TestCompileErrorStopsExecution(t *testing.T) {
	_, _, result := run(t, "let x = ;")
	if result != InterpretCompileError {
		t.Fatalf("expected CompileError, got %v", result)
	}
}

func TestArityMismatchIsRuntimeError(t *testing.T) {
	_, errOut, result := run(t, `
		func add(a, b) { return a + b; }
		add(1);
	`)
	if result != InterpretRuntimeError {
		t.Fatalf("expected RuntimeError, got %v", result)
	}
	if !strings.Contains(errOut, "Expected 2 arguments but got 1") {
		t.Fatalf("expected arity message, got %q", errOut)
	}
}

func TestCallingNonCallableIsRuntimeError(t *testing.T) {
	_, errOut, result := run(t, `
		let x = 1;
		x();
	`)
	if result != InterpretRuntimeError {
		t.Fatalf("expected RuntimeError, got %v", result)
	}
	if !strings.Contains(errOut, "Can only call functions and classes.") {
		t.Fatalf("expected callability message, got %q", errOut)
	}
}

func TestNativeClockReturnsNumber(t *testing.T) {
	out, _, result := run(t, "print clock() >= 0;")
	if result != InterpretOK {
		t.Fatalf("expected OK, got %v", result)
	}
	if out != "true\n" {
		t.Fatalf("expected %q, got %q", "true\n", out)
	}
}

func TestNativeStrRendersValues(t *testing.T) {
	out, _, result := run(t, `print str(1) + str(true);`)
	if result != InterpretOK {
		t.Fatalf("expected OK, got %v", result)
	}
	if out != "1true\n" {
		t.Fatalf("expected %q, got %q", "1true\n", out)
	}
}

func TestStackOverflowOnUnboundedRecursion(t *testing.T) {
	_, errOut, result := run(t, `
		func recurse() {
			return recurse();
		}
		recurse();
	`)
	if result != InterpretRuntimeError {
		t.Fatalf("expected RuntimeError, got %v", result)
	}
	if !strings.Contains(errOut, "Stack overflow.") {
		t.Fatalf("expected stack overflow message, got %q", errOut)
	}
}

func TestFieldsAndMethodsOnInstances(t *testing.T) {
	out, _, result := run(t, `
		class Point {
			init(x, y) {
				this.x = x;
				this.y = y;
			}
			sum() {
				return this.x + this.y;
			}
		}
		let p = Point(3, 4);
		print p.sum();
		p.x = 10;
		print p.sum();
	`)
	if result != InterpretOK {
		t.Fatalf("expected OK, got %v", result)
	}
	if out != "7\n11\n" {
		t.Fatalf("expected %q, got %q", "7\n11\n", out)
	}
}

func TestGlobalsPersistAcrossInterpretCalls(t *testing.T) {
	var out strings.Builder
	machine := New(&out, &out)
	if r := machine.Interpret("let x = 1;"); r != InterpretOK {
		t.Fatalf("expected OK, got %v", r)
	}
	if r := machine.Interpret("print x + 1;"); r != InterpretOK {
		t.Fatalf("expected OK, got %v", r)
	}
	if out.String() != "2\n" {
		t.Fatalf("expected %q, got %q", "2\n", out.String())
	}
}
