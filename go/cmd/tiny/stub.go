//go:build !origin_takecharge

package main

import "os"

func main() {
	os.Stderr.WriteString("tiny: rebuild with -tags origin_takecharge\n")
	os.Exit(1)
}
