//go:build origin_takecharge

package thread

import (
	"github.com/lunixbochs/origin/go/arch"
)

// With no Go runtime in the process, this runtime owns the thread-pointer
// register outright.

func currentTCB() *TCB {
	return fromTP(arch.ThreadPointer())
}

func installThreadPointer(t *TCB) error {
	return arch.SetThreadPointer(t.tp())
}
