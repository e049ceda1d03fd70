package ccfeatures

import (
	"math/bits"
	"runtime"
	"strings"
	"unsafe"
)

// Arch identifies a CPU architecture in the emitted header.
type Arch string

const (
	ArchX86_64 Arch = "X86_64"
	ArchX86_32 Arch = "X86_32"
	ArchARM64  Arch = "ARM_64"
	ArchARM32  Arch = "ARM_32"
)

var machineArch = map[string]Arch{
	"x86_64": ArchX86_64,
	"AMD64":  ArchX86_64,
	"i386":   ArchX86_32,
	"x86":    ArchX86_32,
}

// ArchFromMachine maps a host machine string, as reported by uname -m, to an
// Arch. Unrecognized machines are uppercased, with every character that
// cannot appear in a C identifier replaced by '_'.
func ArchFromMachine(machine string) Arch {
	if arch, ok := machineArch[machine]; ok {
		return arch
	}
	return Arch(strings.Map(identifierRune, strings.ToUpper(machine)))
}

func identifierRune(r rune) rune {
	switch {
	case r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
		return r
	default:
		return '_'
	}
}

// Macro returns the macro advertising the architecture, e.g. HAS_X86_64.
func (a Arch) Macro() string {
	return "HAS_" + string(a)
}

// DetectArch returns the host architecture and the raw machine string it was
// derived from.
func DetectArch() (Arch, string) {
	machine := hostMachine()
	return ArchFromMachine(machine), machine
}

// posixOS lists Go operating systems that are POSIX-family.
var posixOS = map[string]bool{
	"aix": true, "android": true, "darwin": true, "dragonfly": true,
	"freebsd": true, "illumos": true, "ios": true, "linux": true,
	"netbsd": true, "openbsd": true, "solaris": true,
}

// IsPOSIX reports whether the host is a recognized POSIX-family platform.
func IsPOSIX() bool {
	return posixOS[runtime.GOOS]
}

// goarchMachine translates Go architecture names into the machine string the
// host itself would report.
func goarchMachine(goarch string) string {
	switch goarch {
	case "amd64":
		return "AMD64"
	case "386":
		return "x86"
	default:
		return goarch
	}
}

// PageGeometry describes the host page size in units of pointers.
type PageGeometry struct {
	PageSize    int
	PointerSize int
	// Count is the number of pointers per page.
	Count int
	Mask  int
	Shift int
}

// DetectPageGeometry returns the page geometry of the running host.
func DetectPageGeometry() PageGeometry {
	return newPageGeometry(pageSize(), int(unsafe.Sizeof(uintptr(0))))
}

func newPageGeometry(pageSize, ptrSize int) PageGeometry {
	count := pageSize / ptrSize
	return PageGeometry{
		PageSize:    pageSize,
		PointerSize: ptrSize,
		Count:       count,
		Mask:        count - 1,
		Shift:       bits.Len(uint(count)) - 1,
	}
}
