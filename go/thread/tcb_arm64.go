package thread

import "unsafe"

// TCB is the per-thread control block. Under TLS Variant I the ABI tail
// leads up to the TLS image: the thread pointer targets the dtv word, the
// reserved pad follows, and the image begins 16 bytes above the pointer.
type TCB struct {
	common
	canary uintptr
	dtv    uintptr
	_pad   uintptr
}

func (t *TCB) tp() unsafe.Pointer {
	return unsafe.Pointer(&t.dtv)
}

func (t *TCB) initABI(canary uintptr) {
	t.canary = canary
	t.dtv = 0
}

func fromTP(tp unsafe.Pointer) *TCB {
	return (*TCB)(unsafe.Pointer(uintptr(tp) - unsafe.Offsetof(TCB{}.dtv)))
}
