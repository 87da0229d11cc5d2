//go:build !origin_nofiniarrays

package program

import (
	"unsafe"

	"github.com/lunixbochs/origin/go/arch"
)

// Section bounds for .fini_array.
var finiStart, finiEnd uintptr

var callFini = arch.CallFiniFn

// SetFiniArray records the destructor section bounds.
func SetFiniArray(start, end uintptr) {
	finiStart, finiEnd = start, end
}

// registerFiniArray pushes the .fini_array entries onto the exit-handler
// registry at startup, in declaration order. The registry drains LIFO, so
// the entries execute in reverse declaration order after every handler
// registered later, which is what a C runtime does.
func registerFiniArray() {
	for p := finiStart; p < finiEnd; p += ptrSize {
		fn := *(*uintptr)(unsafe.Pointer(p))
		AtExit(func() { callFini(fn) })
	}
}
