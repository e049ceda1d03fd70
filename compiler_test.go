//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package ccfeatures

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeFakeCC installs a shell script standing in for a C compiler. It
// succeeds when the source on stdin mentions marker or is the toolchain
// check, and logs one line per invocation next to itself.
func writeFakeCC(t *testing.T, marker string) (path, log string) {
	t.Helper()
	dir := t.TempDir()
	path = filepath.Join(dir, "fakecc")
	log = path + ".log"
	script := "#!/bin/sh\n" +
		"echo \"$@\" >> '" + log + "'\n" +
		"grep -q -e '" + marker + "' -e 'toolchain check'\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return path, log
}

func invocations(t *testing.T, log string) []string {
	t.Helper()
	data, err := os.ReadFile(log)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		t.Fatal(err)
	}
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

func TestCommandCompiler(t *testing.T) {
	path, log := writeFakeCC(t, "epoll_create")

	cc, err := NewCommandCompiler(CompilerConfig{Command: []string{path}, Flags: []string{"-Wall"}})
	if err != nil {
		t.Fatalf("NewCommandCompiler() error = %v", err)
	}

	ok, err := cc.Compile(context.Background(), CapEpoll.Source())
	if err != nil {
		t.Fatalf("Compile(epoll) error = %v", err)
	}
	if !ok {
		t.Error("Compile(epoll) = false, want true")
	}

	ok, err = cc.Compile(context.Background(), CapKqueue.Source())
	if err != nil {
		t.Fatalf("Compile(kqueue) error = %v", err)
	}
	if ok {
		t.Error("Compile(kqueue) = true, want false")
	}

	calls := invocations(t, log)
	if len(calls) != 2 {
		t.Fatalf("compiler invoked %d times, want 2", len(calls))
	}
	if want := "-D_GNU_SOURCE -x c -o " + os.DevNull + " - -ldl -Wall"; calls[0] != want {
		t.Errorf("compiler args = %q, want %q", calls[0], want)
	}
}

func TestCommandCompiler_NotFound(t *testing.T) {
	_, err := NewCommandCompiler(CompilerConfig{Command: []string{"ccfeatures-no-such-compiler"}})
	if err == nil {
		t.Fatal("NewCommandCompiler() expected error")
	}
	var ee *EnvironmentError
	if !errors.As(err, &ee) {
		t.Fatalf("error = %T, want *EnvironmentError", err)
	}
	if !errors.Is(err, ErrCompilerNotFound) {
		t.Errorf("errors.Is(err, ErrCompilerNotFound) = false for %v", err)
	}
	if ee.Compiler != "ccfeatures-no-such-compiler" {
		t.Errorf("Compiler = %q", ee.Compiler)
	}
}

func TestCommandCompiler_ThroughCache(t *testing.T) {
	path, log := writeFakeCC(t, "clock_gettime")

	r, err := ProbeWith(context.Background(),
		WithCompilerConfig(CompilerConfig{Command: []string{path}}),
		WithCapabilities(CapClockGettime, CapClockGettime, CapAccept4),
		WithoutPageGeometry(),
	)
	if err != nil {
		t.Fatalf("ProbeWith() error = %v", err)
	}
	if !r.Supported(CapClockGettime) {
		t.Error("clock-gettime should be supported")
	}
	if r.Supported(CapAccept4) {
		t.Error("accept4 should not be supported")
	}
	// One toolchain check plus one compile per distinct capability.
	if got := len(invocations(t, log)); got != 3 {
		t.Errorf("compiler invoked %d times, want 3", got)
	}
	if len(r.Compiler) == 0 || r.Compiler[0] != path {
		t.Errorf("Report.Compiler = %v, want %s first", r.Compiler, path)
	}
}

func TestProbeWith_MissingCompiler(t *testing.T) {
	r, err := ProbeWith(context.Background(),
		WithCompilerConfig(CompilerConfig{Command: []string{"ccfeatures-no-such-compiler"}}),
	)
	if r != nil {
		t.Errorf("ProbeWith() report = %v, want nil", r)
	}
	var ee *EnvironmentError
	if !errors.As(err, &ee) {
		t.Fatalf("ProbeWith() error = %v, want *EnvironmentError", err)
	}
}

func TestCommandCompiler_Verify(t *testing.T) {
	path, _ := writeFakeCC(t, "epoll_create")
	cc, err := NewCommandCompiler(CompilerConfig{Command: []string{path}})
	if err != nil {
		t.Fatalf("NewCommandCompiler() error = %v", err)
	}
	if err := cc.Verify(context.Background()); err != nil {
		t.Errorf("Verify() error = %v", err)
	}
}

func TestProbeWith_CompilerRejectsEverything(t *testing.T) {
	path := filepath.Join(t.TempDir(), "brokencc")
	if err := os.WriteFile(path, []byte("#!/bin/sh\nexit 1\n"), 0o755); err != nil {
		t.Fatal(err)
	}

	r, err := ProbeWith(context.Background(),
		WithCompilerConfig(CompilerConfig{Command: []string{path}}),
		WithoutPageGeometry(),
	)
	if r != nil {
		t.Errorf("ProbeWith() report = %v, want nil", r)
	}
	var ee *EnvironmentError
	if !errors.As(err, &ee) {
		t.Fatalf("ProbeWith() error = %v, want *EnvironmentError", err)
	}
	if !errors.Is(err, ErrCompilerUnusable) {
		t.Errorf("errors.Is(err, ErrCompilerUnusable) = false for %v", err)
	}
	if ee.Compiler != path {
		t.Errorf("Compiler = %q, want %q", ee.Compiler, path)
	}
}
