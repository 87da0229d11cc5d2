package arch

import (
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// TLSVariant is the ELF TLS layout used on this architecture.
const TLSVariant = VariantII

// StackAlignment is the required alignment of the stack pointer at a
// function boundary.
const StackAlignment = 16

// TLSOffset biases the thread pointer relative to the TLS image. On x86-64
// the TLS data ends exactly at the thread pointer.
const TLSOffset = 0

// SetThreadPointer points the fs base register at ptr. The caller must have
// stored ptr at offset 0 of the block it points to, per the x86-64 TLS ABI.
// The Go runtime finds its g through this same register, so this must only
// run in take-charge processes, where no Go runtime exists.
func SetThreadPointer(ptr unsafe.Pointer) error {
	_, _, errno := unix.RawSyscall(unix.SYS_ARCH_PRCTL, 0x1002, uintptr(ptr), 0)
	if errno != 0 {
		return errors.Wrap(errno, "arch.SetThreadPointer() failed")
	}
	return nil
}
