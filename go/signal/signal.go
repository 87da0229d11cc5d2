// Package signal registers signal handlers directly with the kernel. It
// supplies the architecture's sa_restorer trampoline for every installed
// handler and keeps a per-signal record of registrations so callers can
// query and restore. Handlers are only ever invoked by the kernel.
package signal

import (
	"unsafe"

	"github.com/pkg/errors"

	"github.com/lunixbochs/origin/go/sys"
)

// Special handler values, as the kernel defines them.
const (
	HandlerDefault = 0 // SIG_DFL
	HandlerIgnore  = 1 // SIG_IGN
)

// SA_* flags used here; the rest pass through from the caller.
const (
	FlagSigInfo  = 4          // SA_SIGINFO
	FlagRestart  = 0x10000000 // SA_RESTART
	flagRestorer = 0x04000000 // SA_RESTORER
)

// Action describes a signal registration: a raw handler address (or
// HandlerDefault/HandlerIgnore), SA_* flags, and the blocked-signal mask.
type Action struct {
	Handler uintptr
	Flags   uint64
	Mask    uint64
}

// kernelSigsetSize is what rt_sigaction expects for sigsetsize.
const kernelSigsetSize = 8

var (
	mu         sys.Mutex
	registered map[int]Action
)

// rawSigaction is indirect so tests can observe the kernel call.
var rawSigaction = sys.RtSigaction

// Sigaction installs act for sig and returns the previous action. A nil
// act only queries. The restorer trampoline and SA_RESTORER are attached
// automatically to every handler other than SIG_DFL and SIG_IGN, on every
// supported architecture.
func Sigaction(sig int, act *Action) (Action, error) {
	if sig < 1 || sig > 64 {
		return Action{}, errors.Errorf("signal.Sigaction: bad signal %d", sig)
	}

	var newp unsafe.Pointer
	var knew ksigaction
	if act != nil {
		knew = makeKernel(*act)
		newp = unsafe.Pointer(&knew)
	}
	var kold ksigaction

	mu.Lock()
	err := rawSigaction(sig, newp, unsafe.Pointer(&kold), kernelSigsetSize)
	if err == nil && act != nil {
		if registered == nil {
			registered = make(map[int]Action)
		}
		registered[sig] = *act
	}
	mu.Unlock()
	if err != nil {
		return Action{}, errors.Wrapf(err, "signal.Sigaction(%d) failed", sig)
	}
	return fromKernel(kold), nil
}

// Registered returns the action most recently installed through this
// package for sig, if any.
func Registered(sig int) (Action, bool) {
	mu.Lock()
	act, ok := registered[sig]
	mu.Unlock()
	return act, ok
}

// Ignore installs SIG_IGN for sig.
func Ignore(sig int) (Action, error) {
	return Sigaction(sig, &Action{Handler: HandlerIgnore})
}

// Default restores SIG_DFL for sig.
func Default(sig int) (Action, error) {
	return Sigaction(sig, &Action{Handler: HandlerDefault})
}
