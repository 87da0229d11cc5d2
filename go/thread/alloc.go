package thread

import (
	"sync/atomic"
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/lunixbochs/origin/go/arch"
	"github.com/lunixbochs/origin/go/sys"
	"github.com/lunixbochs/origin/go/tls"
)

// Mapper is the mapping surface the allocator consumes. The default issues
// the raw syscalls; tests substitute a fake to check geometry and rollback.
type Mapper interface {
	Map(size uintptr, prot int, stack bool) (uintptr, error)
	Protect(addr, size uintptr, prot int) error
	Unmap(addr, size uintptr) error
}

type sysMapper struct{}

func (sysMapper) Map(size uintptr, prot int, stack bool) (uintptr, error) {
	flags := 0
	if stack {
		flags = unix.MAP_STACK
	}
	return sys.Mmap(0, size, prot, flags)
}

func (sysMapper) Protect(addr, size uintptr, prot int) error {
	return sys.Mprotect(addr, size, prot)
}

func (sysMapper) Unmap(addr, size uintptr) error {
	return sys.Munmap(addr, size)
}

var mem Mapper = sysMapper{}

// stackGuard is the process canary, seeded from AT_RANDOM by InitMain and
// copied into every new TCB.
var stackGuard uintptr

const tcbSize = unsafe.Sizeof(TCB{})

// allocate builds a thread's mapping: PROT_NONE over the whole region,
// then read-write over everything past the guard, the TLS image copied
// into place, and the TCB constructed at its layout offset.
func allocate(stackSize, guardSize uintptr) (*TCB, tls.Layout, error) {
	tmpl := tls.Startup()
	l := tls.Compute(arch.TLSVariant, tmpl, stackSize, guardSize, sys.PageSize(), tcbSize)

	base, err := mem.Map(l.MapSize, unix.PROT_NONE, true)
	if err != nil {
		return nil, l, errors.Wrap(err, "thread: stack mapping failed")
	}
	if err := mem.Protect(base+l.StackBottom, l.MapSize-l.StackBottom,
		unix.PROT_READ|unix.PROT_WRITE); err != nil {
		mem.Unmap(base, l.MapSize)
		return nil, l, errors.Wrap(err, "thread: stack protect failed")
	}

	t := (*TCB)(unsafe.Pointer(base + l.TCB))
	*t = TCB{}
	t.initABI(stackGuard)
	t.detach = detachJoinable
	t.refs = 2
	t.mapBase = base
	t.mapSize = l.MapSize
	t.stackLow = base + l.StackBottom
	t.stackSize = l.StackTop - l.StackBottom
	t.guardSize = l.StackBottom
	t.tlsAddr = base + l.TLSData

	tmpl.Install(base + l.TLSData)
	return t, l, nil
}

// free releases a thread's mapping from another thread, after its exit has
// been observed. A zero mapSize marks the initial thread, whose memory the
// kernel owns.
func free(t *TCB) {
	mapBase, mapSize := t.mapBase, t.mapSize
	if mapSize == 0 {
		return
	}
	mem.Unmap(mapBase, mapSize)
}

// waitExit blocks until the kernel clears t's tid slot. The wake comes
// from CLONE_CHILD_CLEARTID, which is never a private-futex wake.
func waitExit(t *TCB) {
	word := (*uint32)(unsafe.Pointer(&t.tid))
	for {
		tid := atomic.LoadInt32(&t.tid)
		if tid == 0 {
			return
		}
		switch errno := sys.FutexWait(word, uint32(tid), false); errno {
		case 0, unix.EAGAIN:
			// Either woken or the slot changed before we slept;
			// recheck the tid.
		case unix.EINTR:
			continue
		default:
			// The word is part of a live TCB; nothing else can fail.
			arch.Trap()
		}
	}
}
