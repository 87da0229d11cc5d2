//go:build origin_takecharge

// Command tiny is a minimal take-charge program, built with
// -tags origin_takecharge. The runtime's _start stub is the process entry;
// origin_main below is pushed onto the runtime's entry symbol at link
// time. main is never called.
package main

import (
	"unsafe" // also required for go:linkname

	"github.com/lunixbochs/origin/go/program"
	"github.com/lunixbochs/origin/go/sys"
	"github.com/lunixbochs/origin/go/thread"
)

// echoAddr returns the address of a raw start function, defined in
// echo_*.s, that returns its first argument. Spawned threads only ever run
// raw code like this, never managed Go.
func echoAddr() uintptr

//go:linkname originMain github.com/lunixbochs/origin/go/program.originMain
func originMain(argc int32, argv, envp unsafe.Pointer) int32 {
	for _, arg := range program.Args() {
		sys.Write(1, arg)
		sys.Write(1, []byte{'\n'})
	}
	program.AtExit(func() {
		sys.Write(1, []byte("goodbye\n"))
	})

	t, err := thread.Create(echoAddr(), []uintptr{42}, 0, 0)
	if err != nil {
		return 1
	}
	if thread.Join(t) != 42 {
		return 2
	}
	return 0
}

func main() {}
