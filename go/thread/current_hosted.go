//go:build !origin_takecharge

package thread

// Hosted builds share the process with a Go runtime that locates its g
// through the thread-pointer register, so the register is never touched.
// Spawned threads still get their TCB via CLONE_SETTLS, but only the
// initial thread calls into this surface, and it resolves to the recorded
// main TCB.

func currentTCB() *TCB {
	return mainTCB
}

func installThreadPointer(t *TCB) error {
	return nil
}
