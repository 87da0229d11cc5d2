package signal

import "github.com/lunixbochs/origin/go/arch"

// ksigaction is the kernel sigaction layout shared by x86-64 and arm64.
// Both architectures take SA_RESTORER; whenever a real handler is
// installed, the arch trampoline is attached so returning from the handler
// reenters the kernel through our own thunk.
type ksigaction struct {
	handler  uintptr
	flags    uint64
	restorer uintptr
	mask     uint64
}

func makeKernel(a Action) ksigaction {
	k := ksigaction{
		handler: a.Handler,
		flags:   a.Flags,
		mask:    a.Mask,
	}
	if a.Handler != HandlerDefault && a.Handler != HandlerIgnore {
		k.flags |= flagRestorer
		k.restorer = arch.SigreturnAddr()
	}
	return k
}

func fromKernel(k ksigaction) Action {
	return Action{
		Handler: k.handler,
		Flags:   k.flags &^ flagRestorer,
		Mask:    k.mask,
	}
}
