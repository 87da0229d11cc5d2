package tls

import (
	"testing"

	"github.com/lunixbochs/origin/go/arch"
)

const (
	testPage = 4096
	testTCB  = 256
)

func TestLayoutVariant2(t *testing.T) {
	tmpl := Template{MemSize: 0x58, Align: 16}
	l := Compute(arch.VariantII, tmpl, 0x20000, testPage, testPage, testTCB)

	if l.StackBottom != testPage {
		t.Fatalf("guard = %#x", l.StackBottom)
	}
	if l.StackTop-l.StackBottom < 0x20000 {
		t.Fatalf("stack = %#x", l.StackTop-l.StackBottom)
	}
	// The image ends at the thread pointer, which is the TCB itself.
	if l.TP != l.TCB {
		t.Fatalf("tp %#x != tcb %#x", l.TP, l.TCB)
	}
	if l.TLSData != l.TP-tmpl.MemSize {
		t.Fatalf("tls data %#x, tp %#x", l.TLSData, l.TP)
	}
	if l.TP%tmpl.Align != 0 {
		t.Fatalf("tp %#x unaligned", l.TP)
	}
	if l.TLSData < l.StackTop {
		t.Fatal("tls data overlaps stack")
	}
	if l.TCB+testTCB > l.MapSize {
		t.Fatal("tcb past mapping")
	}
	if l.MapSize%testPage != 0 {
		t.Fatalf("map size %#x not page rounded", l.MapSize)
	}
}

func TestLayoutVariant1(t *testing.T) {
	tmpl := Template{MemSize: 0x58, Align: 16}
	l := Compute(arch.VariantI, tmpl, 0x20000, testPage, testPage, testTCB)

	// The dtv/pad words sit directly below the image.
	if l.TP != l.TLSData-tpBackset {
		t.Fatalf("tp %#x, tls data %#x", l.TP, l.TLSData)
	}
	if l.TCB != l.TLSData-testTCB {
		t.Fatalf("tcb %#x, tls data %#x", l.TCB, l.TLSData)
	}
	if l.TLSData%tmpl.Align != 0 {
		t.Fatalf("tls data %#x unaligned", l.TLSData)
	}
	if l.TCB < l.StackTop {
		t.Fatal("tcb overlaps stack")
	}
	if l.TLSData+tmpl.MemSize > l.MapSize {
		t.Fatal("tls past mapping")
	}
	if l.MapSize%testPage != 0 {
		t.Fatalf("map size %#x not page rounded", l.MapSize)
	}
}

func TestLayoutEmptyTemplate(t *testing.T) {
	tmpl := Template{Align: 1}
	for _, v := range []arch.Variant{arch.VariantI, arch.VariantII} {
		l := Compute(v, tmpl, 0x10000, testPage, testPage, testTCB)
		if l.TCB+testTCB > l.MapSize {
			t.Fatalf("variant %d tcb past mapping", v)
		}
		if l.MapSize%testPage != 0 {
			t.Fatalf("variant %d map size %#x", v, l.MapSize)
		}
	}
}

func TestLayoutLargeAlign(t *testing.T) {
	tmpl := Template{MemSize: 0x100, Align: 64}
	l := Compute(arch.VariantI, tmpl, 0x8000, testPage, testPage, testTCB)
	if l.TLSData%64 != 0 {
		t.Fatalf("tls data %#x not 64-aligned", l.TLSData)
	}
	l = Compute(arch.VariantII, tmpl, 0x8000, testPage, testPage, testTCB)
	if l.TP%64 != 0 {
		t.Fatalf("tp %#x not 64-aligned", l.TP)
	}
}

func TestRoundUp(t *testing.T) {
	cases := []struct{ x, a, want uintptr }{
		{0, 16, 0},
		{1, 16, 16},
		{16, 16, 16},
		{4097, 4096, 8192},
	}
	for _, c := range cases {
		if got := roundUp(c.x, c.a); got != c.want {
			t.Fatalf("roundUp(%d, %d) = %d", c.x, c.a, got)
		}
	}
}
