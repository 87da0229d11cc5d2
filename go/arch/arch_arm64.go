package arch

import "unsafe"

// TLSVariant is the ELF TLS layout used on this architecture.
const TLSVariant = VariantI

// StackAlignment is the required alignment of the stack pointer at a
// function boundary.
const StackAlignment = 16

// TLSOffset biases the thread pointer relative to the TLS image. On arm64
// the TLS data begins 16 bytes above the thread pointer (the reserved
// dtv/padding words); the layout accounts for those separately, so the
// extra bias is zero.
const TLSOffset = 0

//go:noescape
func setThreadPointer(ptr unsafe.Pointer)

// SetThreadPointer writes tpidr_el0. The Go runtime finds its g through
// this same register, so this must only run in take-charge processes,
// where no Go runtime exists.
func SetThreadPointer(ptr unsafe.Pointer) error {
	setThreadPointer(ptr)
	return nil
}
