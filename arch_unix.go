//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package ccfeatures

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// hostMachine returns the machine hardware name (e.g., "x86_64", "aarch64").
func hostMachine() string {
	var uname unix.Utsname
	if err := unix.Uname(&uname); err != nil {
		return goarchMachine(runtime.GOARCH)
	}
	if m := unix.ByteSliceToString(uname.Machine[:]); m != "" {
		return m
	}
	return goarchMachine(runtime.GOARCH)
}

func pageSize() int {
	return unix.Getpagesize()
}
