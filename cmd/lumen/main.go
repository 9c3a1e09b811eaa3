// Command lumen runs lumen source files and provides an interactive REPL.
package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/kristofer/lumen/internal/bytecode"
	"github.com/kristofer/lumen/internal/compiler"
	"github.com/kristofer/lumen/internal/vm"
)

const version = "0.1.0"

func main() {
	disasm := false
	args := os.Args[1:]
	filtered := args[:0]
	for _, a := range args {
		if a == "-disasm" || a == "--disasm" {
			disasm = true
			continue
		}
		filtered = append(filtered, a)
	}
	args = filtered

	if len(args) == 0 {
		runREPL()
		return
	}

	switch args[0] {
	case "version", "-v", "--version":
		fmt.Printf("lumen version %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	case "repl":
		runREPL()
	case "run":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "Error: no file specified")
			printUsage()
			os.Exit(64)
		}
		runFile(args[1], disasm)
	default:
		runFile(args[0], disasm)
	}
}

func printUsage() {
	fmt.Println("lumen - a small dynamically-typed scripting language")
	fmt.Println("\nUsage:")
	fmt.Println("  lumen                Start interactive REPL")
	fmt.Println("  lumen [file]         Run a source file")
	fmt.Println("  lumen run [file]     Run a source file")
	fmt.Println("  lumen repl           Start interactive REPL")
	fmt.Println("  lumen version        Show version")
	fmt.Println("  lumen help           Show this help")
	fmt.Println("\nFlags:")
	fmt.Println("  -disasm              Print disassembled bytecode before running")
}

// runFile reads, compiles, and runs a source file, exiting with the status
// codes spec §6 defines: 0 on success, 65 on a compile error, 70 on a
// runtime error.
func runFile(filename string, disasm bool) {
	data, err := os.ReadFile(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file: %v\n", err)
		os.Exit(64)
	}
	source := string(data)

	if disasm {
		printDisassembly(source, filename)
	}

	machine := vm.New(os.Stdout, os.Stderr)
	switch machine.Interpret(source) {
	case vm.InterpretCompileError:
		os.Exit(65)
	case vm.InterpretRuntimeError:
		os.Exit(70)
	}
}

// printDisassembly compiles source on a throwaway heap purely to print its
// bytecode; it never runs, so it can't observe a partial interpreter state.
func printDisassembly(source, name string) {
	heap := bytecode.NewHeap()
	fn, ok := compiler.Compile(source, heap, os.Stderr)
	if !ok {
		return
	}
	bytecode.DisassembleChunk(os.Stdout, fn.Chunk, name)
}

// runREPL reads one line at a time, compiling and running it on a VM whose
// globals and interned strings persist across lines, the way the teacher's
// REPL keeps one long-lived interpreter for the whole session.
func runREPL() {
	fmt.Printf("lumen %s\n", version)
	machine := vm.New(os.Stdout, os.Stderr)
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			return
		}
		line := scanner.Text()
		if line == "" {
			continue
		}
		machine.Interpret(line)
	}
}
