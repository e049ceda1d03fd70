package ccfeatures

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// derivedMacroMremap is defined when either mremap calling convention was
// selected, so consumers can test for the syscall before picking an arity.
const derivedMacroMremap = "HAS_MREMAP"

// archConditions maps the consuming compiler's built-in macros to the
// architecture they identify, in test order.
var archConditions = []struct {
	cond string
	arch Arch
}{
	{"defined (__aarch64__)", ArchARM64},
	{"defined (__arm__)", ArchARM32},
	{"defined (__amd64__) || defined (__x86_64__) || defined (_M_X64) || defined (_M_AMD64)", ArchX86_64},
	{"defined (__i386__) || defined (_M_IX86) || defined (_X86_)", ArchX86_32},
}

// WriteHeader renders the report as C preprocessor directives.
//
// Every definition is wrapped in #ifndef so a macro the caller already
// defined is never redefined. The architecture block only falls back to the
// detected host architecture when the consuming compiler defines none of the
// known architecture macros itself.
func (r *Report) WriteHeader(w io.Writer) error {
	bw := bufio.NewWriter(w)

	bw.WriteString("/* Generated by ccfeatures. Do not edit. */\n")

	if p := r.Pages; p != nil {
		define(bw, "", "XHEAP_PAGECOUNT", fmt.Sprint(p.Count))
		define(bw, "", "XHEAP_PAGEMASK", fmt.Sprint(p.Mask))
		define(bw, "", "XHEAP_PAGESHIFT", fmt.Sprint(p.Shift))
		define(bw, "", "PAGESIZE", fmt.Sprint(p.PageSize))
	}

	mremap := false
	for _, res := range r.Results {
		if !res.Supported {
			continue
		}
		define(bw, "", res.Capability.Macro(), "1")
		if res.Capability == CapMremap4 || res.Capability == CapMremap5 {
			mremap = true
		}
	}
	if mremap {
		define(bw, "", derivedMacroMremap, "1")
	}

	for i, ac := range archConditions {
		if i == 0 {
			fmt.Fprintf(bw, "#if %s\n", ac.cond)
		} else {
			fmt.Fprintf(bw, "#elif %s\n", ac.cond)
		}
		define(bw, " ", ac.arch.Macro(), "1")
	}
	bw.WriteString("#else\n")
	if r.Arch != "" {
		define(bw, " ", r.Arch.Macro(), "1")
	}
	bw.WriteString("#endif\n")

	bw.WriteString("#if defined (__unix__) || (defined (__APPLE__) && defined (__MACH__))\n")
	bw.WriteString("# include <unistd.h>\n")
	define(bw, " ", "HAS_POSIX", "_POSIX_VERSION")
	bw.WriteString("#endif\n")

	return bw.Flush()
}

// Header returns the rendered header as a string.
func (r *Report) Header() string {
	var b strings.Builder
	// strings.Builder never fails.
	_ = r.WriteHeader(&b)
	return b.String()
}

// define writes a guarded definition. indent is the nesting prefix placed
// between '#' and the directive, matching the surrounding block.
func define(w *bufio.Writer, indent, name, value string) {
	inner := indent
	if indent != "" {
		inner += " "
	}
	fmt.Fprintf(w, "#%sifndef %s\n", indent, name)
	fmt.Fprintf(w, "#%sdefine %s %s\n", inner, name, value)
	fmt.Fprintf(w, "#%sendif\n", indent)
}
