package ccfeatures

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"pgregory.net/rapid"
)

// scriptedCompiler succeeds for the sources of the given capabilities and
// records every call.
type scriptedCompiler struct {
	mu        sync.Mutex
	supported map[string]bool
	calls     []string
	err       error
}

func newScriptedCompiler(caps ...Capability) *scriptedCompiler {
	s := &scriptedCompiler{supported: make(map[string]bool)}
	for _, c := range caps {
		s.supported[c.Source()] = true
	}
	return s
}

func (s *scriptedCompiler) Compile(_ context.Context, source string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, source)
	if s.err != nil {
		return false, s.err
	}
	return s.supported[source], nil
}

func (s *scriptedCompiler) compiled(source string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, call := range s.calls {
		if call == source {
			n++
		}
	}
	return n
}

func (s *scriptedCompiler) total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func TestCache_CompilesOnce(t *testing.T) {
	fake := newScriptedCompiler(CapEpoll)
	cache := NewCache(fake)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := cache.Compile(ctx, CapEpoll.Source())
		if err != nil {
			t.Fatalf("Compile() error = %v", err)
		}
		if !ok {
			t.Fatal("Compile(epoll) = false, want true")
		}
		ok, err = cache.Compile(ctx, CapKqueue.Source())
		if err != nil {
			t.Fatalf("Compile() error = %v", err)
		}
		if ok {
			t.Fatal("Compile(kqueue) = true, want false")
		}
	}

	if got := fake.total(); got != 2 {
		t.Errorf("compiler called %d times, want 2", got)
	}
	if got := cache.Len(); got != 2 {
		t.Errorf("Len() = %d, want 2", got)
	}
}

func TestCache_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		fake := newScriptedCompiler()
		for _, src := range rapid.SliceOf(rapid.String()).Draw(t, "supported") {
			fake.supported[src] = true
		}
		cache := NewCache(fake)
		ctx := context.Background()

		inputs := rapid.SliceOf(rapid.String()).Draw(t, "inputs")
		distinct := make(map[string]bool)
		for _, src := range inputs {
			first, err := cache.Compile(ctx, src)
			if err != nil {
				t.Fatalf("Compile() error = %v", err)
			}
			second, err := cache.Compile(ctx, src)
			if err != nil {
				t.Fatalf("Compile() error = %v", err)
			}
			if first != second {
				t.Fatalf("Compile(%q) returned %v then %v", src, first, second)
			}
			if first != fake.supported[src] {
				t.Fatalf("Compile(%q) = %v, want %v", src, first, fake.supported[src])
			}
			if n := fake.compiled(src); n != 1 {
				t.Fatalf("source %q compiled %d times, want 1", src, n)
			}
			distinct[src] = true
		}
		if fake.total() != len(distinct) {
			t.Fatalf("compiler called %d times for %d distinct inputs", fake.total(), len(distinct))
		}
	})
}

func TestCache_ConcurrentCallersShareOneCompile(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	slow := CompilerFunc(func(ctx context.Context, source string) (bool, error) {
		calls.Add(1)
		<-release
		return true, nil
	})
	cache := NewCache(slow)

	const callers = 16
	var wg sync.WaitGroup
	results := make([]bool, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := cache.Compile(context.Background(), CapPipe2.Source())
			if err != nil {
				t.Errorf("Compile() error = %v", err)
			}
			results[i] = ok
		}()
	}
	close(release)
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Errorf("compiler called %d times, want 1", got)
	}
	for i, ok := range results {
		if !ok {
			t.Errorf("caller %d got false, want true", i)
		}
	}
}

func TestCache_ErrorsAreNotCached(t *testing.T) {
	fake := newScriptedCompiler(CapPipe2)
	fake.err = &EnvironmentError{Compiler: "cc", Err: errors.New("exec format error")}
	cache := NewCache(fake)

	_, err := cache.Compile(context.Background(), CapPipe2.Source())
	var ee *EnvironmentError
	if !errors.As(err, &ee) {
		t.Fatalf("Compile() error = %v, want *EnvironmentError", err)
	}
	if _, found := cache.Lookup(CapPipe2.Source()); found {
		t.Fatal("failed compile must not be stored")
	}

	fake.err = nil
	ok, err := cache.Compile(context.Background(), CapPipe2.Source())
	if err != nil || !ok {
		t.Fatalf("Compile() = %v, %v; want true, nil", ok, err)
	}
}

func TestCache_Seed(t *testing.T) {
	fake := newScriptedCompiler()
	cache := NewCache(fake)
	cache.Seed(CapAccept4.Source(), true)

	ok, err := cache.Compile(context.Background(), CapAccept4.Source())
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	if !ok {
		t.Error("seeded result not returned")
	}
	if fake.total() != 0 {
		t.Errorf("compiler called %d times for a seeded source, want 0", fake.total())
	}
}
