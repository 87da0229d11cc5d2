package thread

import "github.com/lunixbochs/origin/go/arch"

// callDtor is indirect so ordering tests can observe calls without
// executing raw function pointers.
var callDtor = arch.CallDtorFn

// AtExit registers a destructor on the calling thread: a raw C-ABI
// function and one pointer-sized data argument, run LIFO when the thread
// exits and before its TLS is torn down. The first few registrations live
// inline in the TCB; later ones spill to an allocated slice.
func AtExit(fn, data uintptr) {
	Current().pushDtor(fn, data)
}

func (t *TCB) pushDtor(fn, data uintptr) {
	t.dtorMu.Lock()
	if t.ndtor < len(t.dtors) {
		t.dtors[t.ndtor] = dtor{fn, data}
	} else {
		t.spill = append(t.spill, dtor{fn, data})
	}
	t.ndtor++
	t.dtorMu.Unlock()
}

// CallExitDtors runs the calling thread's destructors. The program driver
// uses this for the main thread during process exit, before the exit
// registry drains.
func CallExitDtors() {
	if t := Current(); t != nil {
		t.runDtors()
	}
}

// runDtors drains the destructor list in reverse registration order.
// Destructors may register more destructors; those run in the same drain.
// It runs on raw-cloned threads during exit, so it must not grow the
// stack, allocate, or enter the runtime; the drain itself only pops.
//
//go:nosplit
func (t *TCB) runDtors() {
	for {
		t.dtorMu.Lock()
		if t.ndtor == 0 {
			t.dtorMu.Unlock()
			return
		}
		t.ndtor--
		var d dtor
		if t.ndtor < len(t.dtors) {
			d = t.dtors[t.ndtor]
			t.dtors[t.ndtor] = dtor{}
		} else {
			i := t.ndtor - len(t.dtors)
			d = t.spill[i]
			t.spill = t.spill[:i]
		}
		t.dtorMu.Unlock()
		callDtor(d.fn, d.data)
	}
}
