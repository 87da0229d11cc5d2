// Package tls locates the program's PT_TLS segment and computes per-thread
// memory layouts for both ELF TLS variants. The template is parsed once at
// startup, before any thread exists, and is read-only afterward.
package tls

import (
	"bytes"
	"encoding/binary"
	"unsafe"

	"github.com/lunixbochs/struc"
	"github.com/pkg/errors"

	"github.com/lunixbochs/origin/go/loader"
)

// Program header types the startup walk cares about.
const (
	ptDynamic  = 2
	ptPhdr     = 6
	ptTLS      = 7
	ptGnuStack = 0x6474e551
)

const phdr64Size = 56

// phdr64 mirrors Elf64_Phdr.
type phdr64 struct {
	Type   uint32 `struc:"uint32,little"`
	Flags  uint32 `struc:"uint32,little"`
	Off    uint64 `struc:"uint64,little"`
	Vaddr  uint64 `struc:"uint64,little"`
	Paddr  uint64 `struc:"uint64,little"`
	Filesz uint64 `struc:"uint64,little"`
	Memsz  uint64 `struc:"uint64,little"`
	Align  uint64 `struc:"uint64,little"`
}

// Template describes the program's TLS initializer image. A program with no
// PT_TLS segment gets the empty template: zero sizes, alignment 1.
type Template struct {
	// Addr is the runtime address of the initializer image. From FileSize
	// up to MemSize the segment is zero-initialized.
	Addr     uintptr
	FileSize uintptr
	MemSize  uintptr
	Align    uintptr
}

var startup struct {
	inited    bool
	tmpl      Template
	stackSize uintptr
}

// InitStartupInfo walks the program headers published in the auxiliary
// vector and records the PT_TLS template and the PT_GNU_STACK stack request.
// The template address is adjusted by the PT_PHDR load bias so it resolves
// in statically-linked PIE images. It must run before
// the first thread is created; there is no synchronization.
func InitStartupInfo(info *loader.StackInfo) error {
	startup.inited = true
	startup.tmpl = Template{Align: 1}

	phdrAddr, ok := info.Aux(loader.AT_PHDR)
	if !ok {
		// No phdrs means no TLS template; threads that need one will
		// fail to spawn.
		return nil
	}
	phent, ok := info.Aux(loader.AT_PHENT)
	if !ok {
		phent = phdr64Size
	}
	phnum, _ := info.Aux(loader.AT_PHNUM)
	if phent < phdr64Size {
		return errors.Errorf("tls: bad AT_PHENT %d", phent)
	}

	raw := unsafe.Slice((*byte)(unsafe.Pointer(uintptr(phdrAddr))), phent*phnum)
	var bias uint64
	var tlsPhdr *phdr64
	for i := uint64(0); i < phnum; i++ {
		var p phdr64
		rec := raw[i*phent : i*phent+phdr64Size]
		if err := struc.UnpackWithOrder(bytes.NewReader(rec), &p, binary.LittleEndian); err != nil {
			return errors.Wrap(err, "tls.InitStartupInfo() failed")
		}
		switch p.Type {
		case ptPhdr:
			// The distance from the static vaddr to where the kernel
			// actually mapped the phdrs is the load bias.
			bias = phdrAddr - p.Vaddr
		case ptTLS:
			rec := p
			tlsPhdr = &rec
		case ptGnuStack:
			startup.stackSize = uintptr(p.Memsz)
		}
	}
	if tlsPhdr != nil {
		align := uintptr(tlsPhdr.Align)
		if align == 0 {
			align = 1
		}
		startup.tmpl = Template{
			Addr:     uintptr(bias + tlsPhdr.Vaddr),
			FileSize: uintptr(tlsPhdr.Filesz),
			MemSize:  uintptr(tlsPhdr.Memsz),
			Align:    align,
		}
	}
	return nil
}

// Startup returns the TLS template recorded at program start.
func Startup() Template {
	return startup.tmpl
}

// Initialized reports whether InitStartupInfo has run.
func Initialized() bool {
	return startup.inited
}

// RequestedStackSize returns the PT_GNU_STACK size request, or zero.
func RequestedStackSize() uintptr {
	return startup.stackSize
}

// Install copies the initializer image into a freshly mapped TLS data block.
// The caller guarantees dst has MemSize bytes and came from an anonymous
// mapping, so the BSS tail past FileSize is already zero.
func (t Template) Install(dst uintptr) {
	if t.FileSize == 0 {
		return
	}
	copy(unsafe.Slice((*byte)(unsafe.Pointer(dst)), t.FileSize),
		unsafe.Slice((*byte)(unsafe.Pointer(t.Addr)), t.FileSize))
}
