package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"

	"github.com/leodido/ccfeatures"
	"github.com/leodido/ccfeatures/internal/logging"
	"github.com/leodido/structcli"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/thediveo/enumflag/v2"
)

// Build metadata injected via ldflags.
// When built without ldflags (e.g., plain `go build`), these remain
// at their zero values and the version command omits them gracefully.
var (
	version = ""
	commit  = ""
	date    = ""
)

// errCheckFailed signals that a failure was already reported to the user.
var errCheckFailed = errors.New("requirements not satisfied")

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errCheckFailed) {
			fmt.Fprintf(os.Stderr, "ccfeatures: %v\n", err)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &GenerateOptions{}

	root := &cobra.Command{
		Use:   "ccfeatures",
		Short: "Build-time C platform capability detection",
		Long: `ccfeatures trial-compiles small C programs with the host compiler to find
out which syscalls, socket flags, clocks, memory mapping primitives and
randomness sources are available, and prints a header of guarded
preprocessor macros for a native build.

Run without arguments to write the header to stdout.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE: func(c *cobra.Command, args []string) error {
			return structcli.Unmarshal(c, opts)
		},
		RunE: func(c *cobra.Command, args []string) error {
			return runGenerate(c.Context(), opts, c.OutOrStdout(), c.ErrOrStderr())
		},
	}

	if err := opts.Attach(root); err != nil {
		panic(err)
	}

	root.AddCommand(probeCmd())
	root.AddCommand(checkCmd())
	root.AddCommand(scanCmd())
	root.AddCommand(versionCmd())
	return root
}

// GenerateOptions defines flags for the default header generation.
type GenerateOptions struct {
	CC             string `flag:"cc" flagdescr:"Compiler command (default $CC or cc)"`
	CFlags         string `flag:"cflags" flagdescr:"Extra compiler flags (default $CFLAGS)"`
	Jobs           int    `flag:"jobs" flagshort:"j" flagdescr:"Number of concurrent trial compilations" default:"1"`
	Output         string `flag:"output" flagshort:"o" flagdescr:"Write the header to a file instead of stdout"`
	Machine        string `flag:"machine" flagdescr:"Override the detected machine type (e.g. aarch64)"`
	NoPageGeometry bool   `flag:"no-page-geometry" flagdescr:"Omit PAGESIZE and XHEAP_PAGE* macros"`
	LogLevel       string `flag:"log-level" flagdescr:"Log level (trace, debug, info, warning, error)" default:"warning"`
	LogFormat      string `flag:"log-format" flagdescr:"Log format (text, color, json)" default:"text"`
}

func (o *GenerateOptions) Attach(c *cobra.Command) error {
	return structcli.Define(c, o)
}

func (o *GenerateOptions) probeOptions(stderr io.Writer) ([]ccfeatures.ProbeOption, error) {
	return compilerProbeOptions(o.CC, o.CFlags, o.Jobs, o.LogLevel, o.LogFormat, stderr)
}

func runGenerate(ctx context.Context, opts *GenerateOptions, stdout, stderr io.Writer) error {
	popts, err := opts.probeOptions(stderr)
	if err != nil {
		return err
	}
	if opts.Machine != "" {
		popts = append(popts, ccfeatures.WithMachine(opts.Machine))
	}
	if opts.NoPageGeometry {
		popts = append(popts, ccfeatures.WithoutPageGeometry())
	}

	r, err := ccfeatures.ProbeWith(contextOrBackground(ctx), popts...)
	if err != nil {
		return err
	}

	if opts.Output == "" {
		return r.WriteHeader(stdout)
	}
	f, err := os.Create(opts.Output)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := r.WriteHeader(f); err != nil {
		f.Close()
		return fmt.Errorf("write output: %w", err)
	}
	return f.Close()
}

// ProbeOptions defines flags for the probe subcommand.
type ProbeOptions struct {
	CC        string `flag:"cc" flagdescr:"Compiler command (default $CC or cc)"`
	CFlags    string `flag:"cflags" flagdescr:"Extra compiler flags (default $CFLAGS)"`
	Jobs      int    `flag:"jobs" flagshort:"j" flagdescr:"Number of concurrent trial compilations" default:"1"`
	JSON      bool   `flag:"json" flagdescr:"Output in JSON format"`
	LogLevel  string `flag:"log-level" flagdescr:"Log level (trace, debug, info, warning, error)" default:"warning"`
	LogFormat string `flag:"log-format" flagdescr:"Log format (text, color, json)" default:"text"`
}

func (o *ProbeOptions) Attach(c *cobra.Command) error {
	return structcli.Define(c, o)
}

func probeCmd() *cobra.Command {
	opts := &ProbeOptions{}

	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Probe all capabilities and display results",
		Args:  cobra.NoArgs,
		PreRunE: func(c *cobra.Command, args []string) error {
			return structcli.Unmarshal(c, opts)
		},
		RunE: func(c *cobra.Command, args []string) error {
			popts, err := compilerProbeOptions(opts.CC, opts.CFlags, opts.Jobs, opts.LogLevel, opts.LogFormat, c.ErrOrStderr())
			if err != nil {
				return err
			}
			r, err := ccfeatures.ProbeWith(contextOrBackground(c.Context()), popts...)
			if err != nil {
				return err
			}

			if opts.JSON {
				return printJSON(c.OutOrStdout(), reportJSON(r))
			}
			fmt.Fprint(c.OutOrStdout(), r)
			return nil
		},
	}

	if err := opts.Attach(cmd); err != nil {
		panic(err)
	}
	return cmd
}

// CheckOptions defines flags for the check subcommand.
type CheckOptions struct {
	Require   capabilityRequirements `flag:"require" flagshort:"r" flagdescr:"Required capabilities (see available capabilities above)" flagrequired:"true" flagcustom:"true"`
	CC        string                 `flag:"cc" flagdescr:"Compiler command (default $CC or cc)"`
	CFlags    string                 `flag:"cflags" flagdescr:"Extra compiler flags (default $CFLAGS)"`
	JSON      bool                   `flag:"json" flagdescr:"Output in JSON format"`
	LogLevel  string                 `flag:"log-level" flagdescr:"Log level (trace, debug, info, warning, error)" default:"warning"`
	LogFormat string                 `flag:"log-format" flagdescr:"Log format (text, color, json)" default:"text"`
}

func (o *CheckOptions) Attach(c *cobra.Command) error {
	return structcli.Define(c, o)
}

func (o *CheckOptions) DefineRequire(name, short, descr string, structField reflect.StructField, fieldValue reflect.Value) (pflag.Value, string) {
	fieldPtr := fieldValue.Addr().Interface().(*capabilityRequirements)
	*fieldPtr = nil
	return fieldPtr, descr
}

func (o *CheckOptions) DecodeRequire(input any) (any, error) {
	s, ok := input.(string)
	if !ok {
		return input, nil
	}

	return parseCapabilityRequirements(s)
}

func checkCmd() *cobra.Command {
	opts := &CheckOptions{}

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check that the compiler provides specific capabilities",
		Long:  checkLongDescription(),
		Args:  cobra.NoArgs,
		PreRunE: func(c *cobra.Command, args []string) error {
			return structcli.Unmarshal(c, opts)
		},
		RunE: func(c *cobra.Command, args []string) error {
			if len(opts.Require) == 0 {
				return fmt.Errorf("no capabilities specified")
			}

			popts, err := compilerProbeOptions(opts.CC, opts.CFlags, 1, opts.LogLevel, opts.LogFormat, c.ErrOrStderr())
			if err != nil {
				return err
			}
			requirements := make([]ccfeatures.Requirement, 0, len(opts.Require))
			for _, capability := range opts.Require {
				requirements = append(requirements, capability)
			}

			return reportCheck(ccfeatures.Check(contextOrBackground(c.Context()), requirements, popts...), opts.JSON, c.OutOrStdout(), c.ErrOrStderr())
		},
	}

	if err := opts.Attach(cmd); err != nil {
		panic(err)
	}
	return cmd
}

func reportCheck(err error, asJSON bool, stdout, stderr io.Writer) error {
	if err != nil {
		var ce *ccfeatures.CapabilityError
		if !errors.As(err, &ce) {
			return err
		}
		if asJSON {
			if err := printJSON(stdout, map[string]any{
				"ok":         false,
				"capability": ce.Capability.String(),
				"macro":      ce.Capability.Macro(),
				"reason":     ce.Reason,
			}); err != nil {
				return err
			}
		} else {
			fmt.Fprintf(stderr, "FAIL: %s — %s\n", ce.Capability, ce.Reason)
		}
		return errCheckFailed
	}

	if asJSON {
		return printJSON(stdout, map[string]any{"ok": true})
	}
	fmt.Fprintln(stdout, "OK: all requirements satisfied")
	return nil
}

// ScanOptions defines flags for the scan subcommand.
type ScanOptions struct {
	JSON bool `flag:"json" flagdescr:"Output in JSON format"`
}

func (o *ScanOptions) Attach(c *cobra.Command) error {
	return structcli.Define(c, o)
}

func scanCmd() *cobra.Command {
	opts := &ScanOptions{}

	cmd := &cobra.Command{
		Use:   "scan FILE...",
		Short: "List the capabilities referenced by C source files",
		Args:  cobra.MinimumNArgs(1),
		PreRunE: func(c *cobra.Command, args []string) error {
			return structcli.Unmarshal(c, opts)
		},
		RunE: func(c *cobra.Command, args []string) error {
			reqs, err := ccfeatures.FromSource(args...)
			if err != nil {
				return err
			}

			caps := reqs.Capabilities()
			if opts.JSON {
				names := make([]string, 0, len(caps))
				for _, capability := range caps {
					names = append(names, capability.String())
				}
				return printJSON(c.OutOrStdout(), map[string]any{"capabilities": names})
			}
			for _, capability := range caps {
				fmt.Fprintf(c.OutOrStdout(), "%-14s %s\n", capability, capability.Macro())
			}
			return nil
		},
	}

	if err := opts.Attach(cmd); err != nil {
		panic(err)
	}
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show tool version and host architecture",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			out := c.OutOrStdout()
			if version != "" {
				fmt.Fprintf(out, "ccfeatures %s", version)
				if commit != "" {
					fmt.Fprintf(out, " (%s)", commit)
				}
				if date != "" {
					fmt.Fprintf(out, " built %s", date)
				}
				fmt.Fprintln(out)
			} else {
				fmt.Fprintln(out, "ccfeatures (dev)")
			}

			arch, machine := ccfeatures.DetectArch()
			fmt.Fprintf(out, "Architecture: %s (machine %s)\n", arch, machine)
			return nil
		},
	}
}

func compilerProbeOptions(cc, cflags string, jobs int, level, format string, stderr io.Writer) ([]ccfeatures.ProbeOption, error) {
	logger, err := logging.New(stderr, level, format)
	if err != nil {
		return nil, err
	}
	cfg, err := ccfeatures.CompilerConfigFrom(cc, cflags)
	if err != nil {
		return nil, err
	}
	return []ccfeatures.ProbeOption{
		ccfeatures.WithCompilerConfig(cfg),
		ccfeatures.WithJobs(jobs),
		ccfeatures.WithLogger(logger),
	}, nil
}

func contextOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

type resultJSON struct {
	Capability string `json:"capability"`
	Macro      string `json:"macro"`
	Supported  bool   `json:"supported"`
	Probed     bool   `json:"probed"`
	Preempted  string `json:"preempted,omitempty"`
}

func reportJSON(r *ccfeatures.Report) map[string]any {
	results := make([]resultJSON, 0, len(r.Results))
	for _, res := range r.Results {
		rj := resultJSON{
			Capability: res.Capability.String(),
			Macro:      res.Capability.Macro(),
			Supported:  res.Supported,
			Probed:     res.Probed,
		}
		if res.Preempted != nil {
			rj.Preempted = res.Preempted.String()
		}
		results = append(results, rj)
	}

	out := map[string]any{
		"arch":         string(r.Arch),
		"machine":      r.Machine,
		"posix":        r.POSIX,
		"compiler":     r.Compiler,
		"capabilities": results,
	}
	if r.Pages != nil {
		out["pages"] = r.Pages
	}
	return out
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func availableCapabilities() string {
	return strings.Join(ccfeatures.CapabilityNames(), ", ")
}

func checkLongDescription() string {
	return fmt.Sprintf(`Check that the compiler provides all required capabilities.
Exits with code 0 if all requirements are met, 1 if any are missing.

Available capabilities:
%s`, formatWrappedList(ccfeatures.CapabilityNames(), "  ", 80))
}

func formatWrappedList(items []string, indent string, maxWidth int) string {
	if len(items) == 0 {
		return indent + "(none)"
	}

	lines := make([]string, 0, len(items))
	line := indent
	for i, item := range items {
		token := item
		if i < len(items)-1 {
			token += ", "
		}

		if len(line)+len(token) > maxWidth && line != indent {
			lines = append(lines, strings.TrimRight(line, " "))
			line = indent + token
			continue
		}

		line += token
	}

	lines = append(lines, strings.TrimRight(line, " "))
	return strings.Join(lines, "\n")
}

type capabilityRequirements []ccfeatures.Capability

// capabilityIdentifierMap accepts both the identifier and the macro name.
var capabilityIdentifierMap = func() map[ccfeatures.Capability][]string {
	ids := make(map[ccfeatures.Capability][]string, len(ccfeatures.Capabilities()))
	for _, capability := range ccfeatures.Capabilities() {
		ids[capability] = []string{capability.String(), capability.Macro()}
	}
	return ids
}()

func (r *capabilityRequirements) String() string {
	names := make([]string, 0, len(*r))
	for _, capability := range *r {
		names = append(names, capability.String())
	}

	return strings.Join(names, ",")
}

func (r *capabilityRequirements) Set(input string) error {
	caps, err := parseCapabilityRequirements(input)
	if err != nil {
		return err
	}

	*r = append(*r, caps...)
	return nil
}

func (r *capabilityRequirements) Type() string {
	return "capability"
}

func parseCapabilityRequirements(input string) (capabilityRequirements, error) {
	if strings.TrimSpace(input) == "" {
		return capabilityRequirements{}, nil
	}

	parts := strings.Split(input, ",")
	caps := make(capabilityRequirements, 0, len(parts))
	for _, part := range parts {
		name := strings.TrimSpace(part)
		if name == "" {
			continue
		}

		var capability ccfeatures.Capability
		enumValue := enumflag.New(&capability, "ccfeatures.Capability", capabilityIdentifierMap, enumflag.EnumCaseInsensitive)
		if err := enumValue.Set(name); err != nil {
			return nil, fmt.Errorf("unknown capability: %q (available: %s)", name, availableCapabilities())
		}

		caps = append(caps, capability)
	}

	return caps, nil
}
