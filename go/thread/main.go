package thread

import (
	"encoding/binary"
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/lunixbochs/origin/go/arch"
	"github.com/lunixbochs/origin/go/sys"
	"github.com/lunixbochs/origin/go/tls"
)

// InitMain gives the initial thread the same shape as a spawned one: a TCB
// and TLS image. The kernel already owns the initial stack, so only the
// image and TCB are mapped; mapSize stays zero and the mapping is never
// freed. In take-charge builds the thread-pointer register is pointed at
// the TCB; hosted builds must not disturb the Go runtime's use of that
// register, so the TCB is only recorded as the main thread's.
//
// It must run after tls.InitStartupInfo and before any Create.
func InitMain(sp unsafe.Pointer) error {
	if !tls.Initialized() {
		return errors.New("thread.InitMain: startup TLS info not initialized")
	}
	tmpl := tls.Startup()
	l := tls.Compute(arch.TLSVariant, tmpl, 0, 0, sys.PageSize(), tcbSize)

	base, err := mem.Map(l.MapSize, unix.PROT_READ|unix.PROT_WRITE, false)
	if err != nil {
		return errors.Wrap(err, "thread.InitMain() failed")
	}

	// Seed the process canary from the kernel's AT_RANDOM bytes.
	if r := sys.Random(); len(r) >= 8 {
		stackGuard = uintptr(binary.LittleEndian.Uint64(r))
	}

	t := (*TCB)(unsafe.Pointer(base + l.TCB))
	*t = TCB{}
	t.initABI(stackGuard)
	t.detach = detachJoinable
	t.refs = 2
	t.tlsAddr = base + l.TLSData
	initMainStackBounds(t, sp)
	tmpl.Install(base + l.TLSData)

	tid := sys.SetTidAddress(&t.tid)
	t.tid = tid

	mainTCB = t
	if err := installThreadPointer(t); err != nil {
		return errors.Wrap(err, "thread.InitMain() failed")
	}
	return nil
}

// initMainStackBounds records where the kernel put the initial stack. The
// top is the page holding the AT_EXECFN string; the reachable extent is
// the startup soft stack limit, with the kernel's own guard below it.
func initMainStackBounds(t *TCB, sp unsafe.Pointer) {
	pagesz := sys.PageSize()
	execfn := uintptr(sys.Execfn())
	if execfn == 0 {
		return
	}
	end := execfn
	for *(*byte)(unsafe.Pointer(end)) != 0 {
		end++
	}
	stackTop := (end + pagesz) &^ (pagesz - 1)

	var lim unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_STACK, &lim); err != nil {
		return
	}
	t.stackLow = stackTop - uintptr(lim.Cur)
	t.stackSize = uintptr(sp) - t.stackLow
	t.guardSize = pagesz
}
