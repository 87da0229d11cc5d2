package sys

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

const (
	scratchFutexWait         = 0
	scratchFutexWake         = 1
	scratchFutexPrivateFlag = 128
)

// FutexWait sleeps until *addr no longer holds val, or until a wake. Spurious
// returns are allowed; callers loop on the guarded condition. private selects
// FUTEX_PRIVATE_FLAG and must be false for words woken by the kernel itself
// (CLONE_CHILD_CLEARTID wakes are never private). Runs on raw-cloned
// threads, so it must not grow the stack or enter the runtime.
//
//go:nosplit
func FutexWait(addr *uint32, val uint32, private bool) unix.Errno {
	op := uintptr(scratchFutexWait)
	if private {
		op |= scratchFutexPrivateFlag
	}
	_, _, errno := unix.RawSyscall6(unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)), op, uintptr(val), 0, 0, 0)
	return errno
}

// FutexWake wakes up to count waiters blocked on addr. Runs on raw-cloned
// threads.
//
//go:nosplit
func FutexWake(addr *uint32, count int, private bool) {
	op := uintptr(scratchFutexWake)
	if private {
		op |= scratchFutexPrivateFlag
	}
	unix.RawSyscall6(unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)), op, uintptr(count), 0, 0, 0)
}
