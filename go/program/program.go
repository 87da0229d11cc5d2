// Package program owns the process lifecycle: it takes the kernel's
// execve handoff at _start, prepares TLS and the parameter caches, runs
// ELF constructors, calls origin_main, and tears the process down through
// the exit-handler registry.
package program

import (
	"unsafe"

	"github.com/lunixbochs/origin/go/arch"
	"github.com/lunixbochs/origin/go/loader"
	"github.com/lunixbochs/origin/go/log"
	"github.com/lunixbochs/origin/go/sys"
	"github.com/lunixbochs/origin/go/thread"
	"github.com/lunixbochs/origin/go/tls"
)

const ptrSize = unsafe.Sizeof(uintptr(0))

// MainFunc is the user program entry: origin_main(argc, argv, envp).
type MainFunc func(argc int32, argv, envp unsafe.Pointer) int32

// mainFunc overrides origin_main in external-start mode.
var mainFunc MainFunc

var stack *loader.StackInfo

// entry is the first code with a language-level frame, reached from the
// _start stub with the kernel's initial stack pointer as its argument.
// It never returns.
func entry(sp unsafe.Pointer) {
	// A panic below would unwind frames this runtime does not own. Trap
	// instead of running exit handlers over inconsistent state.
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("program: panic: %v", r)
			arch.Trap()
		}
	}()

	info, err := loader.ParseStack(sp)
	if err != nil {
		// Nothing is initialized yet; exit handlers must not run.
		arch.Trap()
	}
	stack = info

	sys.InitParams(info.Aux)
	if v, ok := info.EnvLookup("ORIGIN_LOG"); ok {
		log.Init(string(v))
	}
	if err := tls.InitStartupInfo(info); err != nil {
		log.Errorf("program: %v", err)
		arch.Trap()
	}
	if err := thread.InitMain(sp); err != nil {
		log.Errorf("program: %v", err)
		arch.Trap()
	}

	argc := uintptr(info.Argc)
	argv, envp := info.ArgvPtr(), info.EnvpPtr()
	runInitArrays(argc, argv, envp)
	registerFiniArray()

	log.Tracef("program: calling origin_main(argc=%d)", info.Argc)
	status := callMain(int32(info.Argc), argv, envp)
	log.Tracef("program: origin_main returned %d", status)

	Exit(int(status))
}

// EnterExternal runs the program lifecycle for an embedder that already
// owns the process entry point. sp must be the unmodified initial stack
// pointer the kernel provided. It never returns.
func EnterExternal(sp unsafe.Pointer, main MainFunc) {
	mainFunc = main
	entry(sp)
}

// Args returns the program arguments, aliasing the initial stack.
func Args() [][]byte {
	if stack == nil {
		return nil
	}
	args := make([][]byte, stack.Argc)
	for i := range args {
		args[i] = stack.Arg(i)
	}
	return args
}

// Vars returns the environment KEY=VAL strings, aliasing the initial stack.
func Vars() [][]byte {
	if stack == nil {
		return nil
	}
	vars := make([][]byte, len(stack.Envp))
	for i := range vars {
		vars[i] = stack.Env(i)
	}
	return vars
}

// Auxval looks up a tag in the process auxiliary vector.
func Auxval(tag uint64) (uint64, bool) {
	if stack == nil {
		return 0, false
	}
	return stack.Aux(tag)
}
