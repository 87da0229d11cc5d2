package loader

import (
	"bytes"
	"encoding/binary"
	"testing"
	"unsafe"

	"github.com/lunixbochs/struc"
)

// buildStack lays out a fake initial stack the way execve does: argc, argv
// pointers, null, envp pointers, null, auxv pairs, AT_NULL, then the
// string data. It returns the fake stack pointer and the backing array to
// keep it alive.
func buildStack(args, env []string, auxv []Auxv) (unsafe.Pointer, []uintptr) {
	strs := make([][]byte, 0, len(args)+len(env))
	for _, s := range args {
		strs = append(strs, append([]byte(s), 0))
	}
	for _, s := range env {
		strs = append(strs, append([]byte(s), 0))
	}
	var blob []byte
	offsets := make([]int, len(strs))
	for i, s := range strs {
		offsets[i] = len(blob)
		blob = append(blob, s...)
	}

	nwords := 1 + len(args) + 1 + len(env) + 1 + 2*len(auxv) + 2
	words := make([]uintptr, nwords+(len(blob)+7)/8+1)
	strBase := uintptr(unsafe.Pointer(&words[nwords]))
	copy(unsafe.Slice((*byte)(unsafe.Pointer(strBase)), len(blob)), blob)

	w := 0
	words[w] = uintptr(len(args))
	w++
	for i := range args {
		words[w] = strBase + uintptr(offsets[i])
		w++
	}
	words[w] = 0
	w++
	for i := range env {
		words[w] = strBase + uintptr(offsets[len(args)+i])
		w++
	}
	words[w] = 0
	w++
	for _, a := range auxv {
		words[w] = uintptr(a.Tag)
		words[w+1] = uintptr(a.Val)
		w += 2
	}
	words[w] = AT_NULL
	words[w+1] = 0
	return unsafe.Pointer(&words[0]), words
}

func TestParseStack(t *testing.T) {
	auxv := []Auxv{
		{AT_PAGESZ, 4096},
		{AT_HWCAP, 0xbfebfbff},
		{AT_PHNUM, 13},
	}
	sp, hold := buildStack(
		[]string{"/bin/true", "-v"},
		[]string{"HOME=/root", "ORIGIN_LOG=trace"},
		auxv)
	defer func() { _ = hold }()

	info, err := ParseStack(sp)
	if err != nil {
		t.Fatal(err)
	}
	if info.Argc != 2 {
		t.Fatalf("argc = %d", info.Argc)
	}
	if string(info.Arg(0)) != "/bin/true" || string(info.Arg(1)) != "-v" {
		t.Fatalf("argv = %q %q", info.Arg(0), info.Arg(1))
	}
	if len(info.Envp) != 2 || string(info.Env(1)) != "ORIGIN_LOG=trace" {
		t.Fatalf("envp = %d entries", len(info.Envp))
	}
	if v, ok := info.EnvLookup("ORIGIN_LOG"); !ok || string(v) != "trace" {
		t.Fatalf("EnvLookup = %q, %v", v, ok)
	}
	if _, ok := info.EnvLookup("PATH"); ok {
		t.Fatal("EnvLookup found missing key")
	}
	if len(info.Auxv) != 3 {
		t.Fatalf("auxv = %d entries", len(info.Auxv))
	}
	if v, ok := info.Aux(AT_HWCAP); !ok || v != 0xbfebfbff {
		t.Fatalf("AT_HWCAP = %#x, %v", v, ok)
	}
	if _, ok := info.Aux(AT_RANDOM); ok {
		t.Fatal("Aux found missing tag")
	}
}

func TestParseStackEmpty(t *testing.T) {
	sp, hold := buildStack(nil, nil, nil)
	defer func() { _ = hold }()

	info, err := ParseStack(sp)
	if err != nil {
		t.Fatal(err)
	}
	if info.Argc != 0 || len(info.Envp) != 0 || len(info.Auxv) != 0 {
		t.Fatalf("parsed %d/%d/%d", info.Argc, len(info.Envp), len(info.Auxv))
	}
}

func TestParseStackNil(t *testing.T) {
	if _, err := ParseStack(nil); err == nil {
		t.Fatal("expected error")
	}
}

// The auxv record layout must match the packed kernel format bit for bit.
func TestAuxvRecordLayout(t *testing.T) {
	var buf bytes.Buffer
	rec := Auxv{Tag: AT_PAGESZ, Val: 4096}
	if err := struc.PackWithOrder(&buf, &rec, binary.LittleEndian); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != 16 {
		t.Fatalf("packed auxv is %d bytes", buf.Len())
	}
	words := [2]uintptr{AT_PAGESZ, 4096}
	raw := unsafe.Slice((*byte)(unsafe.Pointer(&words[0])), 16)
	if !bytes.Equal(buf.Bytes(), raw) {
		t.Fatalf("packed %x != memory %x", buf.Bytes(), raw)
	}
}
