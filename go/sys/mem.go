package sys

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Mmap maps length bytes of anonymous private memory with the given prot and
// extra flags. The runtime never maps files, so fd/offset are fixed.
func Mmap(addr, length uintptr, prot, flags int) (uintptr, error) {
	p, _, errno := unix.RawSyscall6(unix.SYS_MMAP,
		addr, length, uintptr(prot),
		uintptr(flags|unix.MAP_PRIVATE|unix.MAP_ANONYMOUS),
		^uintptr(0), 0)
	if errno != 0 {
		return 0, errors.Wrap(errno, "sys.Mmap() failed")
	}
	return p, nil
}

// Mprotect changes the protection of [addr, addr+length).
func Mprotect(addr, length uintptr, prot int) error {
	_, _, errno := unix.RawSyscall(unix.SYS_MPROTECT, addr, length, uintptr(prot))
	if errno != 0 {
		return errors.Wrap(errno, "sys.Mprotect() failed")
	}
	return nil
}

// Munmap unmaps [addr, addr+length). A thread must not unmap its own stack
// through this path; that is what arch.MunmapAndExitThread is for.
func Munmap(addr, length uintptr) error {
	_, _, errno := unix.RawSyscall(unix.SYS_MUNMAP, addr, length, 0)
	if errno != 0 {
		return errors.Wrap(errno, "sys.Munmap() failed")
	}
	return nil
}
