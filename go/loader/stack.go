// Package loader decodes the state the kernel hands a new program: the
// initial stack holding argc, argv, envp, and the ELF auxiliary vector.
// Nothing here allocates for string data; every byte slice aliases the
// inherited stack region, which stays mapped for the life of the process.
package loader

import (
	"unsafe"

	"github.com/pkg/errors"
)

const ptrSize = unsafe.Sizeof(uintptr(0))

// StackInfo is a decoded view of the initial stack. It is created once by
// ParseStack and never mutated.
type StackInfo struct {
	Argc int
	// Argv and Envp hold the addresses of the NUL-terminated strings on the
	// initial stack, without their trailing null entries.
	Argv []uintptr
	Envp []uintptr
	// Auxv holds the auxiliary vector records up to, not including, the
	// AT_NULL terminator.
	Auxv []Auxv

	base unsafe.Pointer
}

// ParseStack decodes the initial stack starting at sp, which must be the
// stack pointer value the kernel provided at process entry: argc, then the
// argv pointers and a null, then the envp pointers and a null, then the
// auxiliary vector terminated by AT_NULL.
func ParseStack(sp unsafe.Pointer) (*StackInfo, error) {
	if sp == nil {
		return nil, errors.New("loader.ParseStack: nil stack pointer")
	}
	mem := (*uintptr)(sp)
	argc := int(*mem)
	if argc < 0 {
		return nil, errors.Errorf("loader.ParseStack: negative argc %d", argc)
	}

	// The argv array begins one word above argc and ends with a null
	// pointer the kernel guarantees.
	argv := (*uintptr)(add(sp, ptrSize))
	info := &StackInfo{
		Argc: argc,
		Argv: unsafe.Slice(argv, argc),
		base: sp,
	}
	if *(*uintptr)(add(unsafe.Pointer(argv), uintptr(argc)*ptrSize)) != 0 {
		return nil, errors.New("loader.ParseStack: argv not null terminated")
	}

	// envp starts past the argv null and runs to its own null.
	envp := (*uintptr)(add(unsafe.Pointer(argv), uintptr(argc+1)*ptrSize))
	nenv := 0
	for p := envp; *p != 0; p = (*uintptr)(add(unsafe.Pointer(p), ptrSize)) {
		nenv++
	}
	info.Envp = unsafe.Slice(envp, nenv)

	// The auxiliary vector follows the envp null, as (tag, value) word
	// pairs ending at AT_NULL.
	aux := (*[2]uintptr)(add(unsafe.Pointer(envp), uintptr(nenv+1)*ptrSize))
	naux := 0
	for p := aux; p[0] != AT_NULL; p = (*[2]uintptr)(add(unsafe.Pointer(p), 2*ptrSize)) {
		naux++
	}
	info.Auxv = unsafe.Slice((*Auxv)(unsafe.Pointer(aux)), naux)
	return info, nil
}

// Aux returns the value of the first auxv record with the given tag.
func (s *StackInfo) Aux(tag uint64) (uint64, bool) {
	for _, a := range s.Auxv {
		if a.Tag == tag {
			return a.Val, true
		}
	}
	return 0, false
}

// Arg returns argv[i] as a byte slice aliasing the initial stack.
func (s *StackInfo) Arg(i int) []byte {
	return cstr(s.Argv[i])
}

// Env returns envp[i] as a byte slice aliasing the initial stack.
func (s *StackInfo) Env(i int) []byte {
	return cstr(s.Envp[i])
}

// EnvLookup scans envp for KEY=VAL and returns VAL.
func (s *StackInfo) EnvLookup(key string) ([]byte, bool) {
	for i := range s.Envp {
		kv := s.Env(i)
		if len(kv) > len(key) && kv[len(key)] == '=' && string(kv[:len(key)]) == key {
			return kv[len(key)+1:], true
		}
	}
	return nil, false
}

// ArgvPtr returns the address of the argv pointer array on the initial
// stack, suitable for handing to C-ABI code.
func (s *StackInfo) ArgvPtr() unsafe.Pointer {
	return add(s.base, ptrSize)
}

// EnvpPtr returns the address of the envp pointer array on the initial
// stack.
func (s *StackInfo) EnvpPtr() unsafe.Pointer {
	return add(s.base, uintptr(s.Argc+2)*ptrSize)
}

// Base returns the stack pointer this view was parsed from.
func (s *StackInfo) Base() unsafe.Pointer {
	return s.base
}

func add(p unsafe.Pointer, off uintptr) unsafe.Pointer {
	return unsafe.Pointer(uintptr(p) + off)
}

// cstr returns the NUL-terminated byte string at addr, without the NUL.
func cstr(addr uintptr) []byte {
	if addr == 0 {
		return nil
	}
	p := (*byte)(unsafe.Pointer(addr))
	n := 0
	for *(*byte)(unsafe.Pointer(addr + uintptr(n))) != 0 {
		n++
	}
	return unsafe.Slice(p, n)
}
