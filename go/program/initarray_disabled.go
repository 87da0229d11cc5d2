//go:build origin_noinitarrays

package program

import "unsafe"

// SetInitArrays is a no-op when constructor support is compiled out.
func SetInitArrays(preStart, preEnd, start, end uintptr) {}

func runInitArrays(argc uintptr, argv, envp unsafe.Pointer) {}
