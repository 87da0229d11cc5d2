package program

import (
	"github.com/lunixbochs/origin/go/arch"
	"github.com/lunixbochs/origin/go/log"
	"github.com/lunixbochs/origin/go/sys"
	"github.com/lunixbochs/origin/go/thread"
)

// Exit runs the calling thread's destructors, drains the exit-handler
// registry (fini-array entries included) in reverse registration order,
// and terminates the process with status. It never returns.
func Exit(status int) {
	thread.CallExitDtors()
	drainAtExit()
	ExitImmediately(status)
}

// ExitImmediately terminates the process without running exit handlers.
func ExitImmediately(status int) {
	log.Tracef("program: exiting with status %d", status)
	sys.ExitGroup(status)
}

// Trap executes the architecture trap instruction, for fatal states where
// running exit handlers could make things worse.
func Trap() {
	arch.Trap()
}
