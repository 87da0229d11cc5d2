package program

import (
	"github.com/lunixbochs/origin/go/log"
	"github.com/lunixbochs/origin/go/sys"
)

// The exit-handler registry. The first few handlers live inline so a
// program that registers a handful never touches the allocator.
var atExit struct {
	mu     sys.Mutex
	n      int
	inline [4]func()
	spill  []func()
}

// AtExit registers f to run during Exit. Handlers run in reverse
// registration order; a handler may register further handlers and they
// run in the same drain.
func AtExit(f func()) {
	atExit.mu.Lock()
	if atExit.n < len(atExit.inline) {
		atExit.inline[atExit.n] = f
	} else {
		atExit.spill = append(atExit.spill, f)
	}
	atExit.n++
	atExit.mu.Unlock()
}

// drainAtExit pops and runs handlers until the registry is empty. The lock
// is dropped around each call so handlers can push.
func drainAtExit() {
	for {
		atExit.mu.Lock()
		if atExit.n == 0 {
			atExit.mu.Unlock()
			return
		}
		atExit.n--
		var f func()
		if atExit.n < len(atExit.inline) {
			f = atExit.inline[atExit.n]
			atExit.inline[atExit.n] = nil
		} else {
			i := atExit.n - len(atExit.inline)
			f = atExit.spill[i]
			atExit.spill = atExit.spill[:i]
		}
		atExit.mu.Unlock()
		log.Tracef("program: calling at_exit handler")
		f()
	}
}
