package loader

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// blockingLoader returns a loader that counts calls and waits for release.
func blockingLoader(calls *atomic.Int32, release <-chan struct{}) LoadFunc {
	return func(ctx context.Context) (*Module, error) {
		calls.Add(1)
		<-release
		return &Module{Source: []byte("export default {}")}, nil
	}
}

func staticLoader(src string) LoadFunc {
	return func(ctx context.Context) (*Module, error) {
		return &Module{Source: []byte(src)}, nil
	}
}

func TestCacheLoadCoalesces(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	c := New([]LoadFunc{blockingLoader(&calls, release)}, WithIDs([]string{"nodes/0.js"}))

	const callers = 20
	results := make([]*Module, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = c.Load(context.Background(), 0)
		}(i)
	}

	// Wait until the load is in flight before letting it finish.
	for calls.Load() == 0 {
		time.Sleep(time.Millisecond)
	}
	if got := c.State(0); got != Loading {
		t.Errorf("State(0) during load = %s, want loading", got)
	}
	close(release)
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Errorf("loader called %d times, want 1", got)
	}
	for i := range results {
		if errs[i] != nil {
			t.Fatalf("caller %d: error = %v", i, errs[i])
		}
		if results[i] != results[0] {
			t.Errorf("caller %d got a different module", i)
		}
	}

	stats := c.Stats()
	if stats.Loads != 1 {
		t.Errorf("Stats.Loads = %d, want 1", stats.Loads)
	}
	if stats.Hits+stats.Coalesced != callers-1 {
		t.Errorf("Hits %d + Coalesced %d, want %d", stats.Hits, stats.Coalesced, callers-1)
	}
}

func TestCacheLoadIsMemoized(t *testing.T) {
	c := New([]LoadFunc{staticLoader("a"), staticLoader("b")}, WithIDs([]string{"nodes/0.js", "nodes/1.js"}))

	first, err := c.Load(context.Background(), 1)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	second, err := c.Load(context.Background(), 1)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if first != second {
		t.Error("second Load returned a different module")
	}

	if first.Index != 1 || first.ID != "nodes/1.js" || string(first.Source) != "b" {
		t.Errorf("module = %+v", first)
	}
	if first.LoadedAt.IsZero() {
		t.Error("LoadedAt not set")
	}

	if got := c.State(1); got != Resolved {
		t.Errorf("State(1) = %s, want resolved", got)
	}
	if got := c.State(0); got != Unresolved {
		t.Errorf("State(0) = %s, want unresolved", got)
	}

	stats := c.Stats()
	if stats.Loads != 1 || stats.Hits != 1 || stats.Resolved != 1 || stats.Nodes != 2 {
		t.Errorf("Stats() = %+v", stats)
	}
}

func TestCacheRetriesAfterFailure(t *testing.T) {
	errBoom := errors.New("boom")
	var calls atomic.Int32
	load := func(ctx context.Context) (*Module, error) {
		if calls.Add(1) == 1 {
			return nil, errBoom
		}
		return &Module{Source: []byte("ok")}, nil
	}
	c := New([]LoadFunc{load}, WithIDs([]string{"nodes/0.js"}))

	_, err := c.Load(context.Background(), 0)
	var le *LoadError
	if !errors.As(err, &le) {
		t.Fatalf("Load() error = %v, want *LoadError", err)
	}
	if le.Index != 0 || le.ID != "nodes/0.js" || !errors.Is(err, errBoom) {
		t.Errorf("LoadError = %+v", le)
	}
	if got := c.State(0); got != Failed {
		t.Errorf("State(0) = %s, want failed", got)
	}

	m, err := c.Load(context.Background(), 0)
	if err != nil {
		t.Fatalf("retry error = %v", err)
	}
	if string(m.Source) != "ok" {
		t.Errorf("Source = %q", m.Source)
	}
	if got := c.State(0); got != Resolved {
		t.Errorf("State(0) = %s, want resolved", got)
	}

	stats := c.Stats()
	if stats.Loads != 2 || stats.Failures != 1 {
		t.Errorf("Stats() = %+v", stats)
	}
}

func TestCacheCallerStopsWaiting(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	c := New([]LoadFunc{blockingLoader(&calls, release)})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := c.Load(ctx, 0)
		done <- err
	}()

	for calls.Load() == 0 {
		time.Sleep(time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Load() error = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Load did not return after cancel")
	}

	// The abandoned load still completes and is shared.
	close(release)
	m, err := c.Load(context.Background(), 0)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if m == nil {
		t.Fatal("Load() returned nil module")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("loader called %d times, want 1", got)
	}
}

func TestCacheUnknownNode(t *testing.T) {
	c := New([]LoadFunc{staticLoader("a")})

	for _, i := range []int{-1, 1, 58} {
		_, err := c.Load(context.Background(), i)
		if !errors.Is(err, ErrUnknownNode) {
			t.Errorf("Load(%d) error = %v, want ErrUnknownNode", i, err)
		}
		var le *LoadError
		if !errors.As(err, &le) || le.Index != i {
			t.Errorf("Load(%d) error = %v, want *LoadError", i, err)
		}
		if c.State(i) != Unresolved {
			t.Errorf("State(%d) = %s", i, c.State(i))
		}
	}
}

func TestCacheLoaderMisbehaves(t *testing.T) {
	c := New([]LoadFunc{
		func(ctx context.Context) (*Module, error) { panic("bad module") },
		func(ctx context.Context) (*Module, error) { return nil, nil },
	})

	_, err := c.Load(context.Background(), 0)
	if err == nil || !strings.Contains(err.Error(), "bad module") {
		t.Errorf("panicking loader: error = %v", err)
	}
	_, err = c.Load(context.Background(), 1)
	var le *LoadError
	if !errors.As(err, &le) {
		t.Errorf("nil module: error = %v, want *LoadError", err)
	}
	if c.Stats().Failures != 2 {
		t.Errorf("Failures = %d, want 2", c.Stats().Failures)
	}
}

func TestCacheLoadAll(t *testing.T) {
	c := New([]LoadFunc{staticLoader("a"), staticLoader("b"), staticLoader("c")})

	mods, err := c.LoadAll(context.Background(), []int{2, 0, 2})
	if err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}
	got := []string{string(mods[0].Source), string(mods[1].Source), string(mods[2].Source)}
	want := []string{"c", "a", "c"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("LoadAll()[%d] = %s, want %s", i, got[i], want[i])
		}
	}
	if c.Stats().Loads != 2 {
		t.Errorf("Loads = %d, want 2", c.Stats().Loads)
	}

	_, err = c.LoadAll(context.Background(), []int{0, 7})
	if !errors.Is(err, ErrUnknownNode) {
		t.Errorf("LoadAll() error = %v, want ErrUnknownNode", err)
	}
}
