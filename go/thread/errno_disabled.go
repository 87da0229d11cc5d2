//go:build !origin_errno

package thread

type errnoCell struct{}
