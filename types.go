package ccfeatures

import (
	"errors"
	"fmt"
	"strings"
)

// ErrCompilerNotFound is wrapped by [EnvironmentError] when the compiler
// executable cannot be located on the search path.
var ErrCompilerNotFound = errors.New("compiler not found")

// ErrCompilerUnusable is wrapped by [EnvironmentError] when the compiler
// runs but rejects even an empty program.
var ErrCompilerUnusable = errors.New("compiler cannot build a trivial program")

// EnvironmentError reports that the compiler toolchain is missing or unusable.
// It is fatal: no meaningful capability answer can be produced without a
// working compiler.
type EnvironmentError struct {
	Compiler string
	Err      error
}

func (e *EnvironmentError) Error() string {
	return fmt.Sprintf("compiler %s: %v", e.Compiler, e.Err)
}

func (e *EnvironmentError) Unwrap() error {
	return e.Err
}

// CapabilityError represents an error when a required capability is absent.
type CapabilityError struct {
	Capability Capability
	Reason     string
	Err        error
}

func (e *CapabilityError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("capability %s: %s: %v", e.Capability, e.Reason, e.Err)
	}
	return fmt.Sprintf("capability %s: %s", e.Capability, e.Reason)
}

func (e *CapabilityError) Unwrap() error {
	return e.Err
}

// Capability is a platform or compiler feature detected by trial compilation.
//
// The declaration order is the catalog order: it drives both probing and
// macro emission.
type Capability int

const (
	// CapSockFlags is SOCK_NONBLOCK and SOCK_CLOEXEC accepted by socket(2).
	CapSockFlags Capability = iota
	// CapAccept4 is accept4(2).
	CapAccept4
	// CapClockGettime is clock_gettime(2).
	CapClockGettime
	// CapMachTime is mach_absolute_time on Darwin.
	CapMachTime
	// CapDladdr is dladdr(3).
	CapDladdr
	// CapExecinfo is backtrace(3) from <execinfo.h>.
	CapExecinfo
	// CapKqueue is kqueue(2). It takes precedence over CapEpoll.
	CapKqueue
	// CapEpoll is epoll_create(2).
	CapEpoll
	// CapPipe2 is pipe2(2).
	CapPipe2
	// CapGetrandom is getrandom(2).
	CapGetrandom
	// CapArc4 is arc4random_buf(3).
	CapArc4
	// CapMremap4 is the Linux four argument mremap(2). It takes precedence over CapMremap5.
	CapMremap4
	// CapMremap5 is the NetBSD five argument mremap(2).
	CapMremap5
	// CapMemfd is the memfd_create syscall number.
	CapMemfd
	// CapVMMap is the Mach vm_map call.
	CapVMMap
	// CapShmOpen is shm_open(3).
	CapShmOpen

	capabilityCount
)

var capabilityNames = [capabilityCount]string{
	CapSockFlags:    "sock-flags",
	CapAccept4:      "accept4",
	CapClockGettime: "clock-gettime",
	CapMachTime:     "mach-time",
	CapDladdr:       "dladdr",
	CapExecinfo:     "execinfo",
	CapKqueue:       "kqueue",
	CapEpoll:        "epoll",
	CapPipe2:        "pipe2",
	CapGetrandom:    "getrandom",
	CapArc4:         "arc4",
	CapMremap4:      "mremap4",
	CapMremap5:      "mremap5",
	CapMemfd:        "memfd",
	CapVMMap:        "vm-map",
	CapShmOpen:      "shm-open",
}

// Capabilities returns every capability in catalog order.
func Capabilities() []Capability {
	caps := make([]Capability, 0, capabilityCount)
	for c := Capability(0); c < capabilityCount; c++ {
		caps = append(caps, c)
	}
	return caps
}

// CapabilityNames returns the identifiers of every capability in catalog order.
func CapabilityNames() []string {
	return append([]string(nil), capabilityNames[:]...)
}

// ParseCapability returns the capability with the given identifier or macro name.
// Matching is case-insensitive.
func ParseCapability(name string) (Capability, error) {
	name = strings.TrimSpace(name)
	for c := Capability(0); c < capabilityCount; c++ {
		if strings.EqualFold(name, capabilityNames[c]) || strings.EqualFold(name, c.Macro()) {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown capability %q", name)
}

// Valid reports whether c is a member of the catalog.
func (c Capability) Valid() bool {
	return c >= 0 && c < capabilityCount
}

func (c Capability) String() string {
	if c.Valid() {
		return capabilityNames[c]
	}
	return fmt.Sprintf("Capability(%d)", int(c))
}

// Macro returns the preprocessor macro advertising c, e.g. HAS_ACCEPT4.
func (c Capability) Macro() string {
	if !c.Valid() {
		return ""
	}
	return "HAS_" + strings.ToUpper(strings.ReplaceAll(capabilityNames[c], "-", "_"))
}

// Result is the outcome of evaluating one catalog entry.
type Result struct {
	Capability Capability
	// Supported is true when the probe compiled and the policy selected it.
	Supported bool
	// Probed is false when a higher-priority alternative made the probe unnecessary.
	Probed bool
	// Preempted names the alternative that won, when Probed is false.
	Preempted *Capability
}

// Report holds the outcome of a full detection run.
type Report struct {
	// Results is indexed by Capability and therefore in catalog order.
	Results []Result

	Arch    Arch
	Machine string
	POSIX   bool

	// Pages is nil when page geometry was not requested.
	Pages *PageGeometry

	// Compiler is the command line used for trial compilation.
	Compiler []string
}

// Supported reports whether c was selected for emission.
func (r *Report) Supported(c Capability) bool {
	if r == nil || !c.Valid() || int(c) >= len(r.Results) {
		return false
	}
	return r.Results[c].Supported
}

// Enabled returns the selected capabilities in catalog order.
func (r *Report) Enabled() []Capability {
	var out []Capability
	for _, res := range r.Results {
		if res.Supported {
			out = append(out, res.Capability)
		}
	}
	return out
}
