//go:build !origin_noinitarrays

package program

import (
	"unsafe"

	"github.com/lunixbochs/origin/go/arch"
	"github.com/lunixbochs/origin/go/log"
)

// Section bounds for .preinit_array and .init_array. Only SetInitArrays
// sets them; linker-provided section symbols are not read, so in
// take-charge mode both arrays stay empty and no entry runs.
var (
	preinitStart, preinitEnd uintptr
	initStart, initEnd       uintptr
)

// callInit is indirect so ordering tests can observe calls without
// executing raw function pointers.
var callInit = arch.CallInitFn

// SetInitArrays records the constructor section bounds. Each array is a
// sequence of function pointers; end points one past the last entry.
func SetInitArrays(preStart, preEnd, start, end uintptr) {
	preinitStart, preinitEnd = preStart, preEnd
	initStart, initEnd = start, end
}

// runInitArrays invokes .preinit_array then .init_array entries in
// declaration order. As glibc does, each entry receives argc, argv, and
// envp; zero-argument constructors simply ignore them.
func runInitArrays(argc uintptr, argv, envp unsafe.Pointer) {
	for p := preinitStart; p < preinitEnd; p += ptrSize {
		fn := *(*uintptr)(unsafe.Pointer(p))
		log.Tracef("program: calling preinit_array entry %#x", fn)
		callInit(fn, argc, argv, envp)
	}
	for p := initStart; p < initEnd; p += ptrSize {
		fn := *(*uintptr)(unsafe.Pointer(p))
		log.Tracef("program: calling init_array entry %#x", fn)
		callInit(fn, argc, argv, envp)
	}
}
