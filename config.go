package ccfeatures

import (
	"errors"
	"os"
	"strings"
)

// DefaultCompiler is the compiler used when neither an explicit command nor
// $CC is set.
const DefaultCompiler = "cc"

// CompilerConfig describes how trial compilations are invoked.
type CompilerConfig struct {
	// Command is the compiler executable, possibly followed by its own
	// leading arguments (e.g. "ccache cc" or "zig cc").
	Command []string
	// Flags are appended after the trial-compile flags.
	Flags []string
}

// trialFlags enable default feature-test macros, read C from stdin and throw
// the linked result away. Linking catches symbols that are declared but absent.
func trialFlags() []string {
	return []string{"-D_GNU_SOURCE", "-x", "c", "-o", os.DevNull, "-", "-ldl"}
}

// Args returns the full argument vector, executable first.
func (c CompilerConfig) Args() []string {
	command := c.Command
	if len(command) == 0 {
		command = []string{DefaultCompiler}
	}
	args := make([]string, 0, len(command)+len(c.Flags)+8)
	args = append(args, command...)
	args = append(args, trialFlags()...)
	args = append(args, c.Flags...)
	return args
}

// CompilerConfigFrom builds a CompilerConfig from an explicit command string,
// falling back to $CC and then [DefaultCompiler]. Extra flags are taken from
// cflags, or $CFLAGS when cflags is empty.
func CompilerConfigFrom(command, cflags string) (CompilerConfig, error) {
	return compilerConfigFrom(command, cflags, os.LookupEnv)
}

func compilerConfigFrom(command, cflags string, lookupEnv func(string) (string, bool)) (CompilerConfig, error) {
	if strings.TrimSpace(command) == "" {
		if cc, ok := lookupEnv("CC"); ok && strings.TrimSpace(cc) != "" {
			command = cc
		} else {
			command = DefaultCompiler
		}
	}
	if strings.TrimSpace(cflags) == "" {
		if env, ok := lookupEnv("CFLAGS"); ok {
			cflags = env
		}
	}

	fields := strings.Fields(command)
	if len(fields) == 0 {
		return CompilerConfig{}, errors.New("empty compiler command")
	}
	return CompilerConfig{
		Command: fields,
		Flags:   strings.Fields(cflags),
	}, nil
}
