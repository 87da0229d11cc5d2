package tls

import (
	"bytes"
	"encoding/binary"
	"testing"
	"unsafe"

	"github.com/lunixbochs/struc"

	"github.com/lunixbochs/origin/go/loader"
)

func packPhdrs(t *testing.T, phdrs []phdr64) []byte {
	var buf bytes.Buffer
	for i := range phdrs {
		if err := struc.PackWithOrder(&buf, &phdrs[i], binary.LittleEndian); err != nil {
			t.Fatal(err)
		}
	}
	if buf.Len() != len(phdrs)*phdr64Size {
		t.Fatalf("packed %d bytes for %d phdrs", buf.Len(), len(phdrs))
	}
	return buf.Bytes()
}

func stackWithPhdrs(raw []byte, nphdr int) *loader.StackInfo {
	addr := uint64(uintptr(unsafe.Pointer(&raw[0])))
	return &loader.StackInfo{
		Auxv: []loader.Auxv{
			{Tag: loader.AT_PHDR, Val: addr},
			{Tag: loader.AT_PHENT, Val: phdr64Size},
			{Tag: loader.AT_PHNUM, Val: uint64(nphdr)},
		},
	}
}

func TestInitStartupInfo(t *testing.T) {
	image := []byte{7, 0, 0, 0, 0, 0, 0, 0, 0xee}
	imageAddr := uint64(uintptr(unsafe.Pointer(&image[0])))

	// Allocate the phdr table first so its address can appear inside it:
	// a PIE-style image where every vaddr is off by a load bias.
	const bias = 0x7000
	raw := make([]byte, 3*phdr64Size)
	rawAddr := uint64(uintptr(unsafe.Pointer(&raw[0])))

	phdrs := []phdr64{
		{Type: ptPhdr, Vaddr: rawAddr - bias},
		{Type: ptTLS, Vaddr: imageAddr - bias, Filesz: uint64(len(image)), Memsz: 64, Align: 16},
		{Type: ptGnuStack, Memsz: 0x100000},
	}
	copy(raw, packPhdrs(t, phdrs))

	println("rawAddr", rawAddr, "imageAddr", imageAddr)
	for i := 0; i < len(raw); i += 8 {
		println(i, raw[i], raw[i+1], raw[i+2], raw[i+3], raw[i+4], raw[i+5], raw[i+6], raw[i+7])
	}
	if err := InitStartupInfo(stackWithPhdrs(raw, len(phdrs))); err != nil {
		t.Fatal(err)
	}
	if !Initialized() {
		t.Fatal("not initialized")
	}
	tmpl := Startup()
	if tmpl.Addr != uintptr(imageAddr) {
		t.Fatalf("template addr %#x != image %#x", tmpl.Addr, imageAddr)
	}
	if tmpl.FileSize != uintptr(len(image)) || tmpl.MemSize != 64 || tmpl.Align != 16 {
		t.Fatalf("template = %+v", tmpl)
	}
	if RequestedStackSize() != 0x100000 {
		t.Fatalf("stack request = %#x", RequestedStackSize())
	}

	dst := make([]byte, tmpl.MemSize)
	tmpl.Install(uintptr(unsafe.Pointer(&dst[0])))
	if !bytes.Equal(dst[:len(image)], image) {
		t.Fatalf("install copied %x", dst[:len(image)])
	}
	for _, b := range dst[len(image):] {
		if b != 0 {
			t.Fatal("bss tail not zero")
		}
	}
}

func TestInitStartupInfoNoPhdrs(t *testing.T) {
	if err := InitStartupInfo(&loader.StackInfo{}); err != nil {
		t.Fatal(err)
	}
	tmpl := Startup()
	if tmpl.MemSize != 0 || tmpl.Align != 1 {
		t.Fatalf("empty template = %+v", tmpl)
	}
}

func TestInitStartupInfoBadPhent(t *testing.T) {
	info := &loader.StackInfo{
		Auxv: []loader.Auxv{
			{Tag: loader.AT_PHDR, Val: 0x1000},
			{Tag: loader.AT_PHENT, Val: 8},
			{Tag: loader.AT_PHNUM, Val: 1},
		},
	}
	if err := InitStartupInfo(info); err == nil {
		t.Fatal("expected error")
	}
}
