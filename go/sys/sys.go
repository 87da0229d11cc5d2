// Package sys is the raw system call surface consumed by the rest of the
// runtime. Everything here is a thin veneer over RawSyscall so that no
// wrapper takes locks or allocates on success (a failure is wrapped in an
// allocated error); callers above decide policy.
package sys

import (
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Exit terminates the calling thread only. It does not return. It runs on
// raw-cloned threads the Go runtime does not own, so it must not grow the
// stack or enter the runtime.
//
//go:nosplit
func Exit(status int) {
	unix.RawSyscall(unix.SYS_EXIT, uintptr(status), 0, 0)
	// The kernel does not return from exit. Spin if it somehow does.
	for {
	}
}

// ExitGroup terminates all threads in the process. It does not return.
func ExitGroup(status int) {
	unix.RawSyscall(unix.SYS_EXIT_GROUP, uintptr(status), 0, 0)
	for {
	}
}

// SetTidAddress points the kernel's clear-on-exit TID slot at tidptr and
// returns the caller's TID. Pass nil to detach the slot before unmapping
// the memory that holds it. Runs on raw-cloned threads.
//
//go:nosplit
func SetTidAddress(tidptr *int32) int32 {
	tid, _, _ := unix.RawSyscall(unix.SYS_SET_TID_ADDRESS, uintptr(unsafe.Pointer(tidptr)), 0, 0)
	return int32(tid)
}

// Gettid returns the kernel thread id of the caller.
func Gettid() int32 {
	tid, _, _ := unix.RawSyscall(unix.SYS_GETTID, 0, 0, 0)
	return int32(tid)
}

// SchedYield relinquishes the processor.
func SchedYield() {
	unix.RawSyscall(unix.SYS_SCHED_YIELD, 0, 0, 0)
}

// Write writes p to fd. It is usable before any stdlib I/O exists.
func Write(fd int, p []byte) (int, error) {
	var base uintptr
	if len(p) > 0 {
		base = uintptr(unsafe.Pointer(&p[0]))
	}
	n, _, errno := unix.RawSyscall(unix.SYS_WRITE, uintptr(fd), base, uintptr(len(p)))
	if errno != 0 {
		return 0, errors.Wrap(errno, "sys.Write() failed")
	}
	return int(n), nil
}

// RtSigaction installs act for sig and stores the previous action in old.
// Either pointer may be nil. The pointers must refer to kernel-layout
// sigaction records; sigsetsize is the kernel sigset size in bytes.
func RtSigaction(sig int, act, old unsafe.Pointer, sigsetsize uintptr) error {
	_, _, errno := unix.RawSyscall6(unix.SYS_RT_SIGACTION,
		uintptr(sig), uintptr(act), uintptr(old), sigsetsize, 0, 0)
	if errno != 0 {
		return errors.Wrap(errno, "sys.RtSigaction() failed")
	}
	return nil
}
