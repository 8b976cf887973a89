// Package dispatch ties a router, a module cache and the embedding hooks
// together: it turns a path into loaded modules and reports failures
// through the error hook.
package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	rerrors "github.com/vango-dev/routemap/internal/errors"
	"github.com/vango-dev/routemap/pkg/hooks"
	"github.com/vango-dev/routemap/pkg/loader"
	"github.com/vango-dev/routemap/pkg/manifest"
	"github.com/vango-dev/routemap/pkg/router"
)

var (
	// ErrNoMatch is wrapped by errors for paths no route matches.
	ErrNoMatch = errors.New("no matching route")

	// ErrNotResolved is returned by Resolve when a middleware ends a
	// navigation without error and without calling next.
	ErrNotResolved = errors.New("navigation ended without resolving")
)

// Resolution is the result of resolving a path.
type Resolution struct {
	// Path is the canonical path that was matched, after rerouting.
	Path string

	Pattern string
	Params  map[string]string

	// Page is the loaded page module.
	Page *loader.Module

	// Layouts are the loaded layout modules, outermost first.
	Layouts []*loader.Module

	// ErrorNodes are the error page nodes for the route, outermost first.
	// They are not loaded until an error page is needed.
	ErrorNodes []int

	// ServerData reports whether the page has a server data loader.
	ServerData bool

	// ServerLoads lists layout nodes that fetch server data.
	ServerLoads []int
}

// Dispatcher resolves paths. It is safe for concurrent use.
type Dispatcher struct {
	router     *router.Router
	cache      *loader.Cache
	hooks      hooks.Hooks
	transport  *hooks.Transport
	logger     *slog.Logger
	middleware []Middleware

	initOnce sync.Once
	initErr  error
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithHooks sets the embedding hooks. Nil hooks use defaults.
func WithHooks(h hooks.Hooks) Option {
	return func(d *Dispatcher) {
		d.hooks = h
	}
}

// WithLogger sets the logger (default slog.Default()).
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithMiddleware appends navigation middleware.
func WithMiddleware(mw ...Middleware) Option {
	return func(d *Dispatcher) {
		d.middleware = append(d.middleware, mw...)
	}
}

// New creates a dispatcher. The cache must hold one loader per table node.
func New(r *router.Router, c *loader.Cache, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		router: r,
		cache:  c,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.hooks = hooks.Defaults(d.hooks, d.logger)
	d.transport = hooks.NewTransport(d.hooks.Transport)
	return d
}

// Router returns the router.
func (d *Dispatcher) Router() *router.Router {
	return d.router
}

// Cache returns the module cache.
func (d *Dispatcher) Cache() *loader.Cache {
	return d.cache
}

// Transport returns the codec registry built from the transport hook.
func (d *Dispatcher) Transport() *hooks.Transport {
	return d.transport
}

// Init runs the init hook once. Later calls return the first result.
// Resolve and Preload call Init themselves.
//
// The hook runs detached from ctx cancellation, so a superseded first
// navigation cannot leave a cancellation error behind for later ones.
func (d *Dispatcher) Init(ctx context.Context) error {
	d.initOnce.Do(func() {
		if err := d.hooks.Init(context.WithoutCancel(ctx)); err != nil {
			d.logger.Error("init hook failed", "error", err)
			d.initErr = err
		}
	})
	return d.initErr
}

// Match reroutes path and matches the result. Unmatched paths return an
// R001 error wrapping ErrNoMatch; malformed paths an R002 error.
func (d *Dispatcher) Match(path string) (*router.Match, error) {
	target := d.hooks.Reroute(path)
	if target == "" {
		target = path
	}

	m, err := d.router.Find(target)
	switch {
	case err == nil:
		return m, nil
	case errors.Is(err, router.ErrNotFound):
		return nil, rerrors.New("R001").WithDetail(path).Wrap(ErrNoMatch)
	default:
		return nil, rerrors.New("R002").WithDetail(path).Wrap(err)
	}
}

// Resolve matches path and loads its page and layouts in parallel.
//
// When no route matches, the error wraps ErrNoMatch and the error hook is
// not called. When a module fails to load, the error hook is called with
// status 500 and the *loader.LoadError is returned.
func (d *Dispatcher) Resolve(ctx context.Context, path string) (*Resolution, error) {
	nav := &Navigation{Path: path}
	var res *Resolution
	err := chain(d.middleware, nav, func(ctx context.Context) error {
		var err error
		res, err = d.resolve(ctx, nav)
		return err
	})(ctx)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, ErrNotResolved
	}
	return res, nil
}

func (d *Dispatcher) resolve(ctx context.Context, nav *Navigation) (*Resolution, error) {
	if err := d.Init(ctx); err != nil {
		nav.Status = http.StatusInternalServerError
		return nil, err
	}

	m, err := d.match(nav)
	if err != nil {
		return nil, err
	}

	modules, err := d.cache.LoadAll(ctx, moduleNodes(m))
	if err != nil {
		if ctx.Err() != nil {
			// Superseded navigation; nothing to report.
			return nil, err
		}
		nav.Status = http.StatusInternalServerError
		pe := d.hooks.Handle(ctx, hooks.ErrorContext{
			Err:     err,
			Path:    nav.Path,
			Pattern: m.Pattern,
			Params:  m.Params,
			Status:  nav.Status,
		})
		nav.Error = &pe
		return nil, err
	}

	res := &Resolution{
		Path:       m.Path,
		Pattern:    m.Pattern,
		Params:     m.Params,
		Page:       modules[len(modules)-1],
		Layouts:    modules[:len(modules)-1],
		ErrorNodes: m.Errors,
		ServerData: m.ServerData,
	}
	table := d.router.Table()
	for _, n := range m.Layouts {
		if table.HasServerLoad(n) {
			res.ServerLoads = append(res.ServerLoads, n)
		}
	}
	nav.Status = http.StatusOK
	return res, nil
}

func (d *Dispatcher) match(nav *Navigation) (*router.Match, error) {
	m, err := d.Match(nav.Path)
	if err != nil {
		nav.Status = http.StatusNotFound
		if !errors.Is(err, ErrNoMatch) {
			nav.Status = http.StatusBadRequest
		}
		return nil, err
	}
	nav.Pattern = m.Pattern
	nav.Params = m.Params
	return m, nil
}

// Preload loads the modules for path without resolving it, so a later
// Resolve is served from the cache. The error hook is not called.
func (d *Dispatcher) Preload(ctx context.Context, path string) error {
	nav := &Navigation{Path: path, Preload: true}
	return chain(d.middleware, nav, func(ctx context.Context) error {
		if err := d.Init(ctx); err != nil {
			return err
		}
		m, err := d.match(nav)
		if err != nil {
			return err
		}
		if _, err := d.cache.LoadAll(ctx, moduleNodes(m)); err != nil {
			nav.Status = http.StatusInternalServerError
			d.logger.Debug("preload failed", "path", path, "error", err)
			return err
		}
		nav.Status = http.StatusOK
		return nil
	})(ctx)
}

// LoadErrorPage loads the error page for a failure at depth within m's
// entry: 0 is the root layout, i is m.Entry.Layouts[i-1] and anything
// deeper is the page. It falls back to the root error page when the
// nearest one fails to load.
func (d *Dispatcher) LoadErrorPage(ctx context.Context, m *router.Match, depth int) (*loader.Module, error) {
	node := manifest.RootError
	if m != nil {
		node = m.Entry.ErrorBoundary(depth)
	}

	mod, err := d.cache.Load(ctx, node)
	if err == nil || node == manifest.RootError || ctx.Err() != nil {
		return mod, err
	}

	d.logger.Warn("error page failed to load, using root error page", "node", node, "error", err)
	return d.cache.Load(ctx, manifest.RootError)
}

// moduleNodes lists the layouts then the page.
func moduleNodes(m *router.Match) []int {
	nodes := make([]int, 0, len(m.Layouts)+1)
	nodes = append(nodes, m.Layouts...)
	return append(nodes, m.Page)
}

// Decode decodes a transported value with the codec registered for tag.
// Failures are R040 errors for unregistered tags and R041 errors for
// rejected payloads; both wrap the *hooks.DecodeError.
func (d *Dispatcher) Decode(tag string, v any) (any, error) {
	out, err := d.transport.Decode(tag, v)
	if err == nil {
		return out, nil
	}
	code := "R041"
	if errors.Is(err, hooks.ErrUnknownType) {
		code = "R040"
	}
	return nil, rerrors.New(code).WithDetail(tag).Wrap(err)
}
