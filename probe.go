package ccfeatures

import (
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
)

// probeConfig holds the configuration for a probe operation.
type probeConfig struct {
	compilerConfig CompilerConfig
	compiler       Compiler
	cache          *Cache
	capabilities   []Capability
	jobs           int
	machine        string
	pages          *PageGeometry
	noPages        bool
	logger         logrus.FieldLogger
}

// ProbeOption configures a detection run.
type ProbeOption func(*probeConfig)

// WithCompilerConfig sets the command used for trial compilation.
// It is ignored when [WithCompiler] or [WithCache] is also given.
func WithCompilerConfig(cfg CompilerConfig) ProbeOption {
	return func(c *probeConfig) {
		c.compilerConfig = cfg
	}
}

// WithCompiler replaces the external compiler, e.g. with a scripted fake.
// The compiler is still wrapped in a fresh [Cache] unless [WithCache] is given.
func WithCompiler(compiler Compiler) ProbeOption {
	return func(c *probeConfig) {
		c.compiler = compiler
	}
}

// WithCache routes every probe through cache. The cache's own compiler is
// used, so a cache shared across runs keeps its answers.
func WithCache(cache *Cache) ProbeOption {
	return func(c *probeConfig) {
		c.cache = cache
	}
}

// WithCapabilities restricts probing to the given capabilities.
// Alternatives that take precedence over a requested capability are probed
// as well, since it can only be selected when they fail.
// Without it the whole catalog is probed.
func WithCapabilities(caps ...Capability) ProbeOption {
	return func(c *probeConfig) {
		c.capabilities = append(c.capabilities, caps...)
	}
}

// WithJobs sets how many independent probes may run concurrently.
// Values below 1 mean sequential.
func WithJobs(n int) ProbeOption {
	return func(c *probeConfig) {
		c.jobs = n
	}
}

// WithMachine overrides the detected machine string (e.g. "aarch64").
func WithMachine(machine string) ProbeOption {
	return func(c *probeConfig) {
		c.machine = machine
	}
}

// WithPageGeometry overrides the detected page geometry.
func WithPageGeometry(pg PageGeometry) ProbeOption {
	return func(c *probeConfig) {
		c.pages = &pg
		c.noPages = false
	}
}

// WithoutPageGeometry omits the page geometry macros from the report.
func WithoutPageGeometry() ProbeOption {
	return func(c *probeConfig) {
		c.pages = nil
		c.noPages = true
	}
}

// WithLogger sets the logger probe decisions are reported to.
func WithLogger(logger logrus.FieldLogger) ProbeOption {
	return func(c *probeConfig) {
		c.logger = logger
	}
}

// ProbeWith detects capabilities based on the provided options.
//
// An *[EnvironmentError] is returned when the compiler cannot be located,
// started, or fails to build a trivial program; a capability that merely fails to compile is reported as
// unsupported.
func ProbeWith(ctx context.Context, opts ...ProbeOption) (*Report, error) {
	cfg := &probeConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	logger := cfg.logger
	if logger == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		logger = discard
	}

	cache := cfg.cache
	var argv []string
	if cache == nil {
		compiler := cfg.compiler
		if compiler == nil {
			cc, err := NewCommandCompiler(cfg.compilerConfig)
			if err != nil {
				return nil, err
			}
			if err := cc.Verify(ctx); err != nil {
				return nil, err
			}
			compiler = cc
			argv = cfg.compilerConfig.Args()
			logger.WithField("compiler", cc.String()).Debug("resolved compiler")
		}
		cache = NewCache(compiler)
	}

	caps := cfg.capabilities
	if len(caps) == 0 {
		caps = Capabilities()
	}
	for _, c := range caps {
		if !c.Valid() {
			return nil, fmt.Errorf("probe: unknown capability %s", c)
		}
	}

	results, err := evaluate(ctx, cache, caps, cfg.jobs, logger)
	if err != nil {
		return nil, err
	}

	machine := cfg.machine
	var arch Arch
	if machine == "" {
		arch, machine = DetectArch()
	} else {
		arch = ArchFromMachine(machine)
	}

	r := &Report{
		Results:  results,
		Arch:     arch,
		Machine:  machine,
		POSIX:    IsPOSIX(),
		Compiler: argv,
	}
	switch {
	case cfg.noPages:
	case cfg.pages != nil:
		r.Pages = cfg.pages
	default:
		pg := DetectPageGeometry()
		r.Pages = &pg
	}

	logger.WithFields(logrus.Fields{
		"arch":     string(r.Arch),
		"machine":  r.Machine,
		"enabled":  len(r.Enabled()),
		"compiled": cache.Len(),
	}).Debug("detection finished")
	return r, nil
}

// Probe detects every catalog capability with the default compiler.
func Probe(ctx context.Context) (*Report, error) {
	return ProbeWith(ctx)
}
