package vm

import (
	"fmt"
	"time"

	"github.com/kristofer/lumen/internal/bytecode"
)

// processStart is captured at package load; nativeClock measures from it.
var processStart = time.Now()

// nativeClock implements clock(): it returns the wall-clock seconds elapsed
// since processStart, not an absolute timestamp. It does not measure CPU
// time, so time the process spends blocked or descheduled is included.
func nativeClock(args []bytecode.Value) (bytecode.Value, error) {
	if len(args) != 0 {
		return bytecode.Value{}, fmt.Errorf("clock() takes no arguments.")
	}
	return bytecode.NumberVal(time.Since(processStart).Seconds()), nil
}

// nativeStr renders any Value the way print would, as a freshly interned
// string. It is a method (not a bare function) because producing the
// result requires the VM's own heap to intern it.
func (vm *VM) nativeStr(args []bytecode.Value) (bytecode.Value, error) {
	if len(args) != 1 {
		return bytecode.Value{}, fmt.Errorf("str() takes exactly one argument.")
	}
	return bytecode.ObjVal(vm.heap.InternString(args[0].String())), nil
}
