package ccfeatures

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"slices"
	"strings"
)

var macroRef = regexp.MustCompile(`\bHAS_[A-Z0-9_]+\b`)

// maxSourceLine bounds a single source line.
const maxSourceLine = 16 << 20

// nonCatalogMacros are emitted by the header but are not capabilities.
var nonCatalogMacros = map[string]bool{
	derivedMacroMremap:  true,
	"HAS_POSIX":         true,
	ArchX86_64.Macro(): true,
	ArchX86_32.Macro(): true,
	ArchARM64.Macro():  true,
	ArchARM32.Macro():  true,
}

// FromSource derives requirements from the HAS_* macros referenced by C
// source files.
//
// Contract:
//   - output is deduplicated and in catalog order
//   - architecture, POSIX and derived macros are ignored
//   - an unknown HAS_* name fails closed with an error
//
// Returned requirements are directly consumable by [Check].
func FromSource(paths ...string) (CapabilityGroup, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("from source: no paths")
	}

	seen := make(map[Capability]struct{})
	for _, path := range paths {
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("from source: empty path")
		}
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("from source %q: %w", path, err)
		}
		err = scanMacros(f, seen)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("from source %q: %w", path, err)
		}
	}

	caps := make([]Capability, 0, len(seen))
	for c := range seen {
		caps = append(caps, c)
	}
	slices.Sort(caps)

	reqs := make(CapabilityGroup, 0, len(caps))
	for _, c := range caps {
		reqs = append(reqs, c)
	}
	return reqs, nil
}

func scanMacros(r io.Reader, seen map[Capability]struct{}) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, bufio.MaxScanTokenSize), maxSourceLine)
	line := 0
	for scanner.Scan() {
		line++
		for _, name := range macroRef.FindAllString(scanner.Text(), -1) {
			if nonCatalogMacros[name] {
				continue
			}
			c, err := ParseCapability(name)
			if err != nil {
				return fmt.Errorf("line %d: %w", line, err)
			}
			seen[c] = struct{}{}
		}
	}
	return scanner.Err()
}
