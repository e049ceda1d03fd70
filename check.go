package ccfeatures

import (
	"context"
	"fmt"
	"strings"
)

// Check probes only the required capabilities and returns a
// *[CapabilityError] for the first one the compiler lacks, or nil if all are
// present. Extra options configure the run as in [ProbeWith].
func Check(ctx context.Context, required []Requirement, opts ...ProbeOption) error {
	rs := normalizeRequirements(required)
	if len(rs.capabilities) == 0 {
		return nil
	}

	opts = append(opts, WithCapabilities(rs.capabilities...), WithoutPageGeometry())
	r, err := ProbeWith(ctx, opts...)
	if err != nil {
		return fmt.Errorf("probe capabilities: %w", err)
	}
	return r.Check(required...)
}

// Check validates the requirements against an existing report.
func (r *Report) Check(required ...Requirement) error {
	rs := normalizeRequirements(required)
	for _, c := range rs.capabilities {
		if !c.Valid() {
			return &CapabilityError{Capability: c, Reason: "unknown capability"}
		}
		if !r.Supported(c) {
			return &CapabilityError{
				Capability: c,
				Reason:     r.Diagnose(c),
			}
		}
	}
	return nil
}

// Diagnose returns a reason string explaining why a capability is not
// advertised and what the native build falls back to.
func (r *Report) Diagnose(c Capability) string {
	if r != nil && c.Valid() && int(c) < len(r.Results) {
		res := r.Results[c]
		if res.Supported {
			return "supported"
		}
		if res.Preempted != nil {
			return fmt.Sprintf("preempted by %s; only one of %s is advertised",
				*res.Preempted, joinCapabilities(groupOf(c)))
		}
		if !res.Probed {
			return "not probed"
		}
	}

	switch c {
	case CapSockFlags:
		return "SOCK_NONBLOCK/SOCK_CLOEXEC not accepted by socket(); falls back to fcntl after socket()"
	case CapAccept4:
		return "accept4() not declared; falls back to accept() followed by fcntl"
	case CapClockGettime:
		return "clock_gettime() not declared in <time.h>"
	case CapMachTime:
		return "<mach/mach_time.h> not available; Darwin only"
	case CapDladdr:
		return "dladdr() not declared in <dlfcn.h> or libdl missing"
	case CapExecinfo:
		return "<execinfo.h> not available; backtraces disabled"
	case CapKqueue:
		return "kqueue() not available; BSD and Darwin only"
	case CapEpoll:
		return "epoll_create() not available; Linux only"
	case CapPipe2:
		return "pipe2() not declared; falls back to pipe() followed by fcntl"
	case CapGetrandom:
		return "getrandom() not declared in <sys/random.h>"
	case CapArc4:
		return "arc4random_buf() not declared in <stdlib.h>"
	case CapMremap4:
		return "four argument mremap() not declared; Linux calling convention"
	case CapMremap5:
		return "five argument mremap() not declared; NetBSD calling convention"
	case CapMemfd:
		return "__NR_memfd_create not defined; requires Linux 3.17+ headers"
	case CapVMMap:
		return "vm_map() not available; Mach only"
	case CapShmOpen:
		return "shm_open() not declared in <sys/mman.h>"
	}
	return "not supported"
}

func joinCapabilities(caps []Capability) string {
	names := make([]string, 0, len(caps))
	for _, c := range caps {
		names = append(names, c.String())
	}
	return strings.Join(names, ", ")
}
