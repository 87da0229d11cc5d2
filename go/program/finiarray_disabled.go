//go:build origin_nofiniarrays

package program

// SetFiniArray is a no-op when destructor support is compiled out.
func SetFiniArray(start, end uintptr) {}

func registerFiniArray() {}
