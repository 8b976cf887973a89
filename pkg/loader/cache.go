package loader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Cache memoizes module loads. It is safe for concurrent use.
type Cache struct {
	loaders []LoadFunc
	ids     []string
	logger  *slog.Logger
	now     func() time.Time

	group singleflight.Group

	mu      sync.RWMutex
	modules []*Module
	states  []State

	loads     atomic.Uint64
	hits      atomic.Uint64
	coalesced atomic.Uint64
	failures  atomic.Uint64
}

// Stats is a snapshot of cache counters.
type Stats struct {
	// Loads counts load attempts started.
	Loads uint64 `json:"loads"`

	// Hits counts requests served from memory.
	Hits uint64 `json:"hits"`

	// Coalesced counts requests that joined a load already in flight.
	Coalesced uint64 `json:"coalesced"`

	// Failures counts failed load attempts.
	Failures uint64 `json:"failures"`

	// Resolved is the number of nodes currently cached.
	Resolved int `json:"resolved"`

	// Nodes is the number of nodes the cache knows.
	Nodes int `json:"nodes"`
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithLogger sets the logger (default slog.Default()).
func WithLogger(logger *slog.Logger) CacheOption {
	return func(c *Cache) {
		c.logger = logger
	}
}

// WithIDs names the nodes for errors and logs.
func WithIDs(ids []string) CacheOption {
	return func(c *Cache) {
		c.ids = ids
	}
}

// New creates a cache over loaders. Node i is loaded by loaders[i].
func New(loaders []LoadFunc, opts ...CacheOption) *Cache {
	c := &Cache{
		loaders: loaders,
		logger:  slog.Default(),
		now:     time.Now,
		modules: make([]*Module, len(loaders)),
		states:  make([]State, len(loaders)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewFromSource creates a cache that fetches ids from src.
func NewFromSource(src Source, ids []string, opts ...CacheOption) *Cache {
	return New(Loaders(src, ids), append([]CacheOption{WithIDs(ids)}, opts...)...)
}

// Len returns the number of nodes.
func (c *Cache) Len() int {
	return len(c.loaders)
}

func (c *Cache) id(i int) string {
	if i >= 0 && i < len(c.ids) {
		return c.ids[i]
	}
	return ""
}

// Load returns module i, loading it on first use.
//
// Concurrent calls for the same node share a single load. The load is not
// tied to ctx: when ctx ends Load returns ctx.Err() at once, and the load
// keeps running so its result is cached for the next caller.
func (c *Cache) Load(ctx context.Context, i int) (*Module, error) {
	if i < 0 || i >= len(c.loaders) {
		return nil, &LoadError{Index: i, Err: ErrUnknownNode}
	}

	if m, ok := c.Resolved(i); ok {
		c.hits.Add(1)
		return m, nil
	}

	leader := false
	ch := c.group.DoChan(strconv.Itoa(i), func() (any, error) {
		leader = true
		return c.load(context.WithoutCancel(ctx), i)
	})

	select {
	case res := <-ch:
		if !leader {
			c.coalesced.Add(1)
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Module), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// load runs inside the singleflight group.
func (c *Cache) load(ctx context.Context, i int) (m *Module, err error) {
	// A previous flight may have finished between the fast path and here.
	if m, ok := c.Resolved(i); ok {
		c.hits.Add(1)
		return m, nil
	}

	c.setState(i, Loading)
	c.loads.Add(1)
	start := c.now()

	defer func() {
		if r := recover(); r != nil {
			m, err = nil, fmt.Errorf("loader panicked: %v", r)
		}
		if err != nil {
			c.failures.Add(1)
			c.setState(i, Failed)
			err = c.loadError(i, err)
			c.logger.Warn("module load failed", "index", i, "id", c.id(i), "error", err)
			return
		}
		c.mu.Lock()
		c.modules[i] = m
		c.states[i] = Resolved
		c.mu.Unlock()
		c.logger.Debug("module loaded", "index", i, "id", m.ID, "bytes", m.Size(), "duration", c.now().Sub(start))
	}()

	m, err = c.loaders[i](ctx)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, errors.New("loader returned no module")
	}

	loaded := *m
	loaded.Index = i
	if loaded.ID == "" {
		loaded.ID = c.id(i)
	}
	loaded.LoadedAt = c.now()
	return &loaded, nil
}

func (c *Cache) loadError(i int, err error) error {
	var le *LoadError
	if errors.As(err, &le) && le.Index == i {
		return le
	}
	return &LoadError{Index: i, ID: c.id(i), Err: err}
}

func (c *Cache) setState(i int, s State) {
	c.mu.Lock()
	c.states[i] = s
	c.mu.Unlock()
}

// LoadAll loads the given nodes in parallel and returns them in the same
// order. The first failure is returned; loads already started still finish
// and are cached.
func (c *Cache) LoadAll(ctx context.Context, indices []int) ([]*Module, error) {
	modules := make([]*Module, len(indices))
	g, gctx := errgroup.WithContext(ctx)
	for pos, i := range indices {
		g.Go(func() error {
			m, err := c.Load(gctx, i)
			if err != nil {
				return err
			}
			modules[pos] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return modules, nil
}

// Resolved returns module i if it is cached.
func (c *Cache) Resolved(i int) (*Module, bool) {
	if i < 0 || i >= len(c.loaders) {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	m := c.modules[i]
	return m, m != nil
}

// State returns the load state of node i. Unknown nodes are Unresolved.
func (c *Cache) State(i int) State {
	if i < 0 || i >= len(c.loaders) {
		return Unresolved
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.states[i]
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() Stats {
	s := Stats{
		Loads:     c.loads.Load(),
		Hits:      c.hits.Load(),
		Coalesced: c.coalesced.Load(),
		Failures:  c.failures.Load(),
		Nodes:     len(c.loaders),
	}
	c.mu.RLock()
	for _, m := range c.modules {
		if m != nil {
			s.Resolved++
		}
	}
	c.mu.RUnlock()
	return s
}
