package ccfeatures

import (
	"context"
	"errors"
	"io"
	"os/exec"
	"strings"
)

// Compiler answers whether a translation unit compiles.
//
// A false result with a nil error means the capability is absent. A non-nil
// error means the toolchain itself is unusable and the run cannot continue.
type Compiler interface {
	Compile(ctx context.Context, source string) (bool, error)
}

// CompilerFunc adapts a function to [Compiler].
type CompilerFunc func(ctx context.Context, source string) (bool, error)

func (f CompilerFunc) Compile(ctx context.Context, source string) (bool, error) {
	return f(ctx, source)
}

// toolchainCheckSource must build with any working toolchain.
const toolchainCheckSource = "/* toolchain check */\nint main(void) { return 0; }\n"

// CommandCompiler runs an external C compiler once per call.
type CommandCompiler struct {
	path string
	args []string
	name string
}

// NewCommandCompiler resolves the compiler on the executable search path.
// It returns an *[EnvironmentError] wrapping [ErrCompilerNotFound] when the
// executable cannot be located.
func NewCommandCompiler(cfg CompilerConfig) (*CommandCompiler, error) {
	argv := cfg.Args()
	path, err := exec.LookPath(argv[0])
	if err != nil {
		return nil, &EnvironmentError{
			Compiler: argv[0],
			Err:      errors.Join(ErrCompilerNotFound, err),
		}
	}
	return &CommandCompiler{
		path: path,
		args: argv[1:],
		name: strings.Join(argv, " "),
	}, nil
}

// String returns the command line used for every trial compilation.
func (c *CommandCompiler) String() string {
	return c.name
}

// Compile feeds source to the compiler on stdin and reports whether it exited
// with status zero. Compiler output is discarded.
func (c *CommandCompiler) Compile(ctx context.Context, source string) (bool, error) {
	cmd := exec.CommandContext(ctx, c.path, c.args...)
	cmd.Stdin = strings.NewReader(source)
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard

	err := cmd.Run()
	if err == nil {
		return true, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return false, ctxErr
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return false, nil
	}
	return false, &EnvironmentError{Compiler: c.path, Err: err}
}

// Verify compiles a trivial program so that a toolchain rejecting everything
// is not mistaken for a host without capabilities.
func (c *CommandCompiler) Verify(ctx context.Context) error {
	ok, err := c.Compile(ctx, toolchainCheckSource)
	if err != nil {
		return err
	}
	if !ok {
		return &EnvironmentError{Compiler: c.path, Err: ErrCompilerUnusable}
	}
	return nil
}
