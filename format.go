package ccfeatures

import (
	"fmt"
	"strings"
)

// String returns a human-readable summary of the report.
func (r *Report) String() string {
	var b strings.Builder

	if len(r.Compiler) > 0 {
		fmt.Fprintf(&b, "Compiler: %s\n", strings.Join(r.Compiler, " "))
	}
	fmt.Fprintf(&b, "Architecture: %s (machine %s)\n", r.Arch, r.Machine)
	fmt.Fprintf(&b, "POSIX: %s\n", yesNo(r.POSIX))
	b.WriteString("\n")

	b.WriteString("Capabilities:\n")
	for _, res := range r.Results {
		writeResult(&b, res)
	}

	if p := r.Pages; p != nil {
		b.WriteString("\n")
		b.WriteString("Pages:\n")
		fmt.Fprintf(&b, "  page size: %d\n", p.PageSize)
		fmt.Fprintf(&b, "  pointer size: %d\n", p.PointerSize)
		fmt.Fprintf(&b, "  pointers per page: %d (mask %d, shift %d)\n", p.Count, p.Mask, p.Shift)
	}

	return b.String()
}

func writeResult(b *strings.Builder, res Result) {
	name := fmt.Sprintf("  %-14s %-18s", res.Capability, res.Capability.Macro())
	switch {
	case res.Preempted != nil:
		fmt.Fprintf(b, "%s no (preempted by %s)\n", name, *res.Preempted)
	case !res.Probed:
		fmt.Fprintf(b, "%s skipped\n", name)
	default:
		fmt.Fprintf(b, "%s %s\n", name, yesNo(res.Supported))
	}
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
