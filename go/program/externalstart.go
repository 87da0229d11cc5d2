//go:build !origin_takecharge

package program

import (
	"unsafe"

	"github.com/lunixbochs/origin/go/arch"
)

// Without the take-charge entry stub compiled in, the only way into the
// lifecycle is EnterExternal. Reaching here with no main registered is a
// contract violation.
func callMain(argc int32, argv, envp unsafe.Pointer) int32 {
	if mainFunc == nil {
		arch.Trap()
	}
	return mainFunc(argc, argv, envp)
}
