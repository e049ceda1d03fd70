//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly)

package ccfeatures

import (
	"os"
	"runtime"
)

// hostMachine has no uname to ask on these platforms, so the Go
// architecture stands in for the machine string.
func hostMachine() string {
	return goarchMachine(runtime.GOARCH)
}

func pageSize() int {
	return os.Getpagesize()
}
