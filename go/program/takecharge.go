//go:build origin_takecharge

package program

import "unsafe"

// originMain is resolved at link time in take-charge mode; user programs
// push their entry onto this symbol with go:linkname. Missing it is a link
// error, never a runtime condition.
func originMain(argc int32, argv, envp unsafe.Pointer) int32

func callMain(argc int32, argv, envp unsafe.Pointer) int32 {
	if mainFunc != nil {
		return mainFunc(argc, argv, envp)
	}
	return originMain(argc, argv, envp)
}
