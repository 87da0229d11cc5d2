// Package thread creates, runs, and tears down kernel-scheduled threads
// without any C runtime participation. Each thread lives in a single
// anonymous mapping laid out by the tls package: guard page, stack, TLS
// image, and the TCB this package defines.
//
// A spawned thread never executes managed Go code: the clone trampoline is
// assembly, the start function is a raw C-ABI pointer, and the exit path
// is nosplit code over atomics and raw syscalls. The Go runtime locates
// its own g through the same thread-pointer register this runtime uses for
// TCBs, so the register is only installed in take-charge builds, where no
// Go runtime owns it; hosted builds leave it alone and the raw threads
// stay off runtime paths entirely.
//
// Handles returned by Create do not detach or free anything implicitly;
// callers pair every Create with exactly one Join or Detach.
package thread

import (
	"sync/atomic"

	"github.com/lunixbochs/origin/go/sys"
)

// MaxArgs is the number of pointer-sized arguments Create copies into the
// TCB for the start function. They live inline so the spawn path never
// touches an allocator.
const MaxArgs = 8

// Detach states. Transitions are CAS-guarded; whichever side loses the
// exit/detach race performs the cleanup.
const (
	detachJoinable uint32 = iota
	detachDetached
	detachExiting
	detachExited
)

// dtor is one per-thread destructor registration: a raw C-ABI function
// taking one pointer-sized data argument. Plain pairs keep the exit path
// free of closures and runtime calls.
type dtor struct {
	fn   uintptr
	data uintptr
}

// common is the architecture-independent half of the TCB. The ABI half
// (thread-pointer slots, dtv, canary) is defined per architecture.
type common struct {
	// tid holds the kernel thread id. The clone CHILD_CLEARTID word is
	// this same slot: the kernel zeroes it and wakes waiters when the
	// thread exits, so it doubles as the join futex.
	tid    int32
	detach uint32
	// refs is 2 while joinable (owner handle + running thread) and 1
	// once detached. Whoever drops it to 0 frees the mapping.
	refs int32
	ret  uintptr

	mapBase   uintptr
	mapSize   uintptr
	stackLow  uintptr
	stackSize uintptr
	guardSize uintptr
	tlsAddr   uintptr

	// fn is the raw C-ABI start function: fn(args *uintptr, nargs) -> word.
	fn    uintptr
	nargs int
	args  [MaxArgs]uintptr

	dtorMu sys.Mutex
	ndtor  int
	dtors  [4]dtor
	spill  []dtor

	errnoCell
}

// mainTCB is the initial thread's control block, recorded by InitMain.
var mainTCB *TCB

// Current returns the TCB of the calling thread. In take-charge builds it
// resolves through the thread-pointer register; hosted builds never install
// the register and resolve to the initial thread's TCB.
func Current() *TCB {
	return currentTCB()
}

// ID returns t's kernel thread id, or false if the thread has exited and
// the kernel has cleared the slot.
func ID(t *TCB) (int32, bool) {
	tid := atomic.LoadInt32(&t.tid)
	return tid, tid != 0
}

// CurrentID returns the calling thread's kernel id without a syscall.
func CurrentID() int32 {
	// The current thread is running, so its tid slot cannot be clear.
	return atomic.LoadInt32(&Current().tid)
}

// SetCurrentIDAfterFork updates the cached tid of the calling thread. Only
// fork-wrapper implementations may call this, immediately after a fork and
// before creating any thread.
func SetCurrentIDAfterFork(tid int32) {
	atomic.StoreInt32(&Current().tid, tid)
}

// Stack returns t's lowest stack address, stack size, and guard size.
func Stack(t *TCB) (uintptr, uintptr, uintptr) {
	return t.stackLow, t.stackSize, t.guardSize
}

// Yield relinquishes the processor.
func Yield() {
	sys.SchedYield()
}
