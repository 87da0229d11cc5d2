package thread

import "unsafe"

// tcbABI is the x86-64 TLS ABI header. The thread pointer points at it:
// user code reads the thread pointer back from offset 0 (reading fs
// directly is slow), the dtv sits at offset 8, and the stack-protector
// canary lives at its well-known offset 40.
type tcbABI struct {
	this   uintptr
	dtv    uintptr
	_      [3]uintptr
	canary uintptr
}

// TCB is the per-thread control block. Under TLS Variant II the ABI header
// leads and the TLS image ends immediately below it.
type TCB struct {
	tcbABI
	common
}

func (t *TCB) tp() unsafe.Pointer {
	return unsafe.Pointer(t)
}

func (t *TCB) initABI(canary uintptr) {
	t.this = uintptr(unsafe.Pointer(t))
	t.dtv = 0
	t.canary = canary
}

func fromTP(tp unsafe.Pointer) *TCB {
	return (*TCB)(tp)
}
