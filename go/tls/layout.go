package tls

import "github.com/lunixbochs/origin/go/arch"

// tpBackset is the distance from the thread pointer to the TLS data under
// Variant I: the kernel-reserved dtv and padding words.
const tpBackset = 16

// Layout gives the byte offsets of each region inside a thread's single
// mapping. Offsets are relative to the mapping base.
//
// Variant II: [guard | stack | tls | tcb], thread pointer = TCB.
// Variant I:  [guard | stack | tcb | tls], thread pointer = TLS - 16.
type Layout struct {
	MapSize     uintptr
	StackBottom uintptr // end of the guard region
	StackTop    uintptr // initial stack pointer, before argument space
	TLSData     uintptr // where the initializer image is copied
	TCB         uintptr
	TP          uintptr // what the thread-pointer register is set to
}

// Compute lays out one thread mapping for the given variant. stackSize and
// guardSize may be zero for the initial thread, whose stack the kernel
// already owns. tcbSize must be a multiple of the pointer size; under
// Variant I the TCB's dtv word must sit tpBackset bytes from its end.
func Compute(variant arch.Variant, t Template, stackSize, guardSize, pageSize, tcbSize uintptr) Layout {
	align := t.Align
	if align < arch.StackAlignment {
		align = arch.StackAlignment
	}

	var l Layout
	l.StackBottom = roundUp(guardSize, pageSize)
	l.StackTop = l.StackBottom + roundUp(stackSize, pageSize)

	switch variant {
	case arch.VariantII:
		tlsBottom := l.StackTop
		l.TCB = tlsBottom + roundUp(t.MemSize, align)
		l.TP = l.TCB
		// The image ends exactly at the thread pointer.
		l.TLSData = l.TCB - t.MemSize
		l.MapSize = roundUp(l.TCB+tcbSize, pageSize)
	default: // VariantI
		// Place the TCB so its tail lands flush against the TLS image,
		// keeping the dtv/pad words at their ABI offsets below it.
		tlsData := roundUp(l.StackTop+tcbSize, align)
		l.TLSData = tlsData
		l.TCB = tlsData - tcbSize
		l.TP = tlsData - tpBackset
		l.MapSize = roundUp(tlsData+t.MemSize, pageSize)
	}
	return l
}

func roundUp(x, a uintptr) uintptr {
	return (x + a - 1) &^ (a - 1)
}
