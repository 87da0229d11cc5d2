package thread

import (
	"sync/atomic"
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/lunixbochs/origin/go/arch"
	"github.com/lunixbochs/origin/go/log"
	"github.com/lunixbochs/origin/go/sys"
	"github.com/lunixbochs/origin/go/tls"
)

// cloneFlags shares everything a pthread would share, installs the TLS
// register, publishes the tid to both sides before either can read it, and
// arms the clear-on-exit futex used by Join.
const cloneFlags = unix.CLONE_VM | unix.CLONE_FS | unix.CLONE_FILES |
	unix.CLONE_SIGHAND | unix.CLONE_THREAD | unix.CLONE_SYSVSEM |
	unix.CLONE_SETTLS | unix.CLONE_PARENT_SETTID | unix.CLONE_CHILD_SETTID |
	unix.CLONE_CHILD_CLEARTID

// startBlock sits at the top of a new thread's stack: the trampoline pops
// it into registers before calling the start function. Keeping it on the
// child stack means the assembly needs no knowledge of TCB field offsets.
type startBlock struct {
	fn    uintptr
	args  uintptr
	nargs uintptr
	tcb   uintptr
}

// clone is implemented in thread_linux_*.s. The parent receives the child
// tid or a negated errno; the child runs the start block on the new stack
// and never returns here.
func clone(flags, stack uintptr, ptid, ctid *int32, tlsptr unsafe.Pointer) int32

// doClone is swapped out by tests that exercise the spawn path without
// creating a kernel thread.
var doClone = clone

// Create starts a new thread running fn, a raw C-ABI function
// fn(args *uintptr, nargs uintptr) -> uintptr. At most MaxArgs
// pointer-sized arguments are copied into the TCB; there is no heap
// closure on the spawn path, and the new thread never executes managed Go
// code. Zero sizes select DefaultStackSize and DefaultGuardSize. On
// failure the mapping is rolled back and no thread exists.
func Create(fn uintptr, args []uintptr, stackSize, guardSize uintptr) (*TCB, error) {
	if fn == 0 {
		return nil, errors.New("thread.Create: nil start function")
	}
	if len(args) > MaxArgs {
		return nil, errors.Errorf("thread.Create: %d args exceeds limit of %d", len(args), MaxArgs)
	}
	if !tls.Initialized() {
		return nil, errors.New("thread.Create: startup TLS info not initialized")
	}
	if stackSize == 0 {
		stackSize = DefaultStackSize()
	}
	if guardSize == 0 {
		guardSize = DefaultGuardSize()
	}

	t, l, err := allocate(stackSize, guardSize)
	if err != nil {
		return nil, err
	}
	t.fn = fn
	t.nargs = copy(t.args[:], args)

	// Seed the start block below the aligned stack top. The block is
	// sized to keep the child's stack pointer 16-aligned.
	sp := (t.mapBase + l.StackTop) &^ (arch.StackAlignment - 1)
	sp -= unsafe.Sizeof(startBlock{})
	block := (*startBlock)(unsafe.Pointer(sp))
	block.fn = fn
	block.args = uintptr(unsafe.Pointer(&t.args[0]))
	block.nargs = uintptr(t.nargs)
	block.tcb = uintptr(unsafe.Pointer(t))

	r := doClone(cloneFlags, sp, &t.tid, &t.tid, t.tp())
	if r < 0 {
		mem.Unmap(t.mapBase, t.mapSize)
		return nil, errors.Wrap(unix.Errno(-r), "thread.Create() failed")
	}
	log.Tracef("thread: launched tid %d stack_size=%#x guard_size=%#x", r, stackSize, guardSize)
	return t, nil
}

// threadExit tears a spawned thread down; the clone trampoline calls it
// after the start function returns. It runs on a thread the Go runtime
// does not own, so everything here down to the final syscall is nosplit
// and touches only atomics, raw syscalls, and the TCB itself.
//
//go:nosplit
func threadExit(t *TCB, ret uintptr) {
	t.runDtors()

	if atomic.CompareAndSwapUint32(&t.detach, detachJoinable, detachExiting) {
		// A joiner owns the memory. Latch the return value before the
		// exit syscall; the kernel's CHILD_CLEARTID store/wake orders
		// it for the joiner.
		atomic.StoreUintptr(&t.ret, ret)
		atomic.StoreUint32(&t.detach, detachExited)
		atomic.AddInt32(&t.refs, -1)
		sys.Exit(0)
	}

	// Detached (or a detacher lost the race and dropped the handle ref):
	// this thread may hold the last reference to its own mapping.
	atomic.StoreUint32(&t.detach, detachExiting)
	if atomic.AddInt32(&t.refs, -1) == 0 {
		// Stop the kernel from writing the cleartid slot into memory
		// that is about to be unmapped.
		sys.SetTidAddress(nil)
		atomic.StoreUint32(&t.detach, detachExited)
		arch.MunmapAndExitThread(t.mapBase, t.mapSize)
	}
	sys.Exit(0)
}

// Join waits for t to exit, returns the value its start function returned,
// and frees its mapping. t must be joinable; joining a detached thread is
// undefined, and a handle must not be reused after Join returns.
func Join(t *TCB) uintptr {
	waitExit(t)
	ret := atomic.LoadUintptr(&t.ret)
	if atomic.AddInt32(&t.refs, -1) == 0 {
		log.Tracef("thread: joined, freeing mapping at %#x", t.mapBase)
		free(t)
	}
	return ret
}

// Detach marks t as detached so it frees its own resources on exit. If t
// already reached the exit path, the caller performs the cleanup instead.
func Detach(t *TCB) {
	if atomic.CompareAndSwapUint32(&t.detach, detachJoinable, detachDetached) {
		if atomic.AddInt32(&t.refs, -1) > 0 {
			return
		}
		// The thread dropped its reference between our CAS and the
		// decrement: cleanup falls to us.
	} else {
		// Already Exiting or Exited.
		atomic.AddInt32(&t.refs, -1)
	}
	waitExit(t)
	log.Tracef("thread: detach cleaning up mapping at %#x", t.mapBase)
	free(t)
}

// DefaultStackSize returns the stack size used when Create is passed zero:
// 2 MiB, or the program's PT_GNU_STACK request if larger.
func DefaultStackSize() uintptr {
	const def = 2 << 20
	if req := tls.RequestedStackSize(); req > def {
		return req
	}
	return def
}

// DefaultGuardSize returns the guard size used when Create is passed zero.
func DefaultGuardSize() uintptr {
	return sys.PageSize()
}
