package sys

import "unsafe"

// Auxv tags the parameter cache cares about. The full decoder lives in the
// loader package; these are duplicated here so sys stays leaf-level.
const (
	atPagesz = 6
	atHwcap  = 16
	atRandom = 25
	atHwcap2 = 26
	atExecfn = 31
)

var params struct {
	once     Once
	aux      func(tag uint64) (uint64, bool)
	pageSize uintptr
	hwcap    uint64
	hwcap2   uint64
	random   unsafe.Pointer
	execfn   unsafe.Pointer
}

// InitParams seeds the process parameter cache from an auxv lookup. The
// program driver calls this exactly once, before any other package queries
// a parameter.
func InitParams(aux func(tag uint64) (uint64, bool)) {
	params.once.Do(func() {
		params.aux = aux
		if v, ok := aux(atPagesz); ok {
			params.pageSize = uintptr(v)
		}
		if v, ok := aux(atHwcap); ok {
			params.hwcap = v
		}
		if v, ok := aux(atHwcap2); ok {
			params.hwcap2 = v
		}
		if v, ok := aux(atRandom); ok {
			params.random = unsafe.Pointer(uintptr(v))
		}
		if v, ok := aux(atExecfn); ok {
			params.execfn = unsafe.Pointer(uintptr(v))
		}
	})
}

// PageSize returns the kernel page size. Before InitParams, or if the kernel
// omitted AT_PAGESZ, it falls back to 4096.
func PageSize() uintptr {
	if params.pageSize == 0 {
		return 4096
	}
	return params.pageSize
}

// Hwcap returns the AT_HWCAP and AT_HWCAP2 words.
func Hwcap() (uint64, uint64) {
	return params.hwcap, params.hwcap2
}

// Random returns the 16 bytes of kernel-provided randomness from AT_RANDOM,
// or nil if absent.
func Random() []byte {
	if params.random == nil {
		return nil
	}
	return unsafe.Slice((*byte)(params.random), 16)
}

// Execfn returns the address of the NUL-terminated pathname used to execute
// the program, from AT_EXECFN. The string lives at the top of the initial
// stack.
func Execfn() unsafe.Pointer {
	return params.execfn
}

// Auxval looks up an arbitrary auxv tag through the cached accessor.
func Auxval(tag uint64) (uint64, bool) {
	if params.aux == nil {
		return 0, false
	}
	return params.aux(tag)
}
