package ccfeatures

// Each probe is a complete translation unit whose main references the
// capability's symbol with arguments matching its arity, so the fragment
// fails to compile only when the declaration is missing.
var capabilitySources = [capabilityCount]string{
	CapSockFlags: `
#include <sys/socket.h>
int main(void) { return socket(AF_INET, SOCK_STREAM|SOCK_NONBLOCK|SOCK_CLOEXEC, 0); }
`,
	CapAccept4: `
#include <stddef.h>
#include <sys/socket.h>
int main(void) { return accept4(0, NULL, NULL, SOCK_NONBLOCK|SOCK_CLOEXEC); }
`,
	CapClockGettime: `
#include <time.h>
struct timespec tp;
int main(void) { return clock_gettime(CLOCK_REALTIME, &tp); }
`,
	CapMachTime: `
#include <mach/mach_time.h>
int main(void) { mach_absolute_time(); return 0; }
`,
	CapDladdr: `
#include <dlfcn.h>
Dl_info info;
int main(void) { return dladdr((void *)main, &info); }
`,
	CapExecinfo: `
#include <execinfo.h>
int main(void) { void *calls[8]; return backtrace(calls, 8); }
`,
	CapKqueue: `
#include <sys/event.h>
int main(void) { return kqueue(); }
`,
	CapEpoll: `
#include <sys/epoll.h>
int main(void) { return epoll_create(10); }
`,
	CapPipe2: `
#include <fcntl.h>
#include <unistd.h>
int main(void) { int fds[2]; return pipe2(fds, O_NONBLOCK|O_CLOEXEC); }
`,
	CapGetrandom: `
#include <sys/random.h>
int main(void) { char buf[8]; return (int)getrandom(buf, 8, 0); }
`,
	CapArc4: `
#include <stdlib.h>
int main(void) { char buf[8]; arc4random_buf(buf, 8); return 0; }
`,
	CapMremap4: `
#include <sys/mman.h>
int main(void) { mremap(0, 0, 0, 0); return 0; }
`,
	CapMremap5: `
#include <sys/mman.h>
int main(void) { mremap(0, 0, 0, 0, 0); return 0; }
`,
	CapMemfd: `
#include <linux/memfd.h>
#include <sys/syscall.h>
#include <unistd.h>
int main(void) { return (int)syscall(__NR_memfd_create, "probe", 0); }
`,
	CapVMMap: `
#include <mach/mach.h>
#include <mach/vm_map.h>
int main(void) {
	vm_address_t addr = 0;
	return vm_map(mach_task_self(), &addr, 0, 0, VM_FLAGS_ANYWHERE, 0, 0, 0,
		VM_PROT_DEFAULT, VM_PROT_DEFAULT, VM_INHERIT_NONE);
}
`,
	CapShmOpen: `
#include <fcntl.h>
#include <sys/mman.h>
int main(void) { return shm_open("/probe", O_RDWR, 0); }
`,
}

// Source returns the probe input for c, or "" for an unknown capability.
func (c Capability) Source() string {
	if !c.Valid() {
		return ""
	}
	return capabilitySources[c]
}

// Precedence groups list functionally redundant alternatives, highest
// priority first. At most one member of a group is ever emitted.
var precedenceGroups = [][]Capability{
	{CapKqueue, CapEpoll},
	{CapMremap4, CapMremap5},
}

// groupOf returns the precedence group c belongs to, or nil when c is
// independent. Adding a capability requires classifying it here.
func groupOf(c Capability) []Capability {
	switch c {
	case CapKqueue, CapEpoll:
		return precedenceGroups[0]
	case CapMremap4, CapMremap5:
		return precedenceGroups[1]
	case CapSockFlags, CapAccept4, CapClockGettime, CapMachTime, CapDladdr,
		CapExecinfo, CapPipe2, CapGetrandom, CapArc4, CapMemfd, CapVMMap, CapShmOpen:
		return nil
	default:
		panic("ccfeatures: unclassified capability " + c.String())
	}
}

// Alternatives returns the capabilities c takes precedence over.
func (c Capability) Alternatives() []Capability {
	if !c.Valid() {
		return nil
	}
	group := groupOf(c)
	for i, member := range group {
		if member == c {
			return append([]Capability(nil), group[i+1:]...)
		}
	}
	return nil
}

// unit is one schedulable piece of catalog work: either a single
// independent capability or a whole precedence group.
type unit []Capability

// plan splits caps into units, preserving catalog order of first appearance.
// A requested group member pulls in every member of higher priority, so a
// lower alternative is only ever evaluated as a fallback. Members ranked
// below the last requested one are left out.
func plan(caps []Capability) []unit {
	want := make(map[Capability]bool, len(caps))
	for _, c := range caps {
		want[c] = true
	}

	var units []unit
	seenGroup := make(map[Capability]bool)
	for c := Capability(0); c < capabilityCount; c++ {
		if !want[c] {
			continue
		}
		group := groupOf(c)
		if group == nil {
			units = append(units, unit{c})
			continue
		}
		if seenGroup[group[0]] {
			continue
		}
		seenGroup[group[0]] = true
		last := 0
		for i, member := range group {
			if want[member] {
				last = i
			}
		}
		units = append(units, append(unit(nil), group[:last+1]...))
	}
	return units
}
