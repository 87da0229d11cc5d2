//go:build origin_errno

package thread

type errnoCell struct {
	errno int32
}

// ErrnoLocation returns the address of the calling thread's errno cell,
// the equivalent of __errno_location in a libc.
func ErrnoLocation() *int32 {
	return &Current().errno
}
