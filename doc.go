// Package ccfeatures provides build-time C platform capability detection.
//
// It answers yes/no questions about the build environment (specific
// syscalls, socket flags, timing APIs, memory mapping primitives, randomness
// sources, CPU architecture) by trial-compiling minimal C translation units
// with the host compiler, and renders the answers as a generated header of
// guarded preprocessor macros for a downstream native build.
//
// # API Model
//
// ccfeatures exposes two API families:
//   - [Probe]/[ProbeWith] run the whole catalog and return a [Report] that
//     renders the header via [Report.WriteHeader]
//   - [Check] for pass/fail validation of [Requirement] items
//
// Trial compilation sits behind the narrow [Compiler] interface. Every probe
// goes through a [Cache], so the same source is compiled at most once per
// run even when several checks share it. Pass a scripted [Compiler] or a
// pre-seeded [Cache] to test without a toolchain.
//
// # Precedence
//
// Some capabilities are redundant alternatives: kqueue is preferred over
// epoll, and the four argument mremap over the five argument one. For such a
// pair only the first member that compiles is advertised, and the lower one
// is never probed when the higher one succeeds. All other capabilities are
// independent.
//
// # Quick Start
//
// Write the header for the host compiler:
//
//	r, err := ccfeatures.Probe(ctx)
//	if err != nil {
//	    var ee *ccfeatures.EnvironmentError
//	    if errors.As(err, &ee) {
//	        log.Fatalf("no usable compiler: %v", ee)
//	    }
//	    log.Fatal(err)
//	}
//	r.WriteHeader(os.Stdout)
//
// # Selective Probing
//
//	r, err := ccfeatures.ProbeWith(ctx,
//	    ccfeatures.WithCompilerConfig(ccfeatures.CompilerConfig{Command: []string{"clang"}}),
//	    ccfeatures.WithCapabilities(ccfeatures.CapAccept4, ccfeatures.CapEpoll),
//	    ccfeatures.WithJobs(4),
//	)
//
// # Errors
//
// A capability whose probe fails to compile is absent; that is never an
// error. An *[EnvironmentError] means the compiler could not be located or
// started, or could not even build an empty program, and no header should be
// produced. [Check] reports a missing
// requirement as a *[CapabilityError].
package ccfeatures
