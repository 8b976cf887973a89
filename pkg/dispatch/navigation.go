package dispatch

import (
	"context"

	"github.com/vango-dev/routemap/pkg/hooks"
)

// Navigation describes one Resolve or Preload call as it passes through
// middleware. Fields after Path are filled in as dispatch progresses.
type Navigation struct {
	// Path is the path as requested, before rerouting.
	Path string

	// Preload is true for Preload calls.
	Preload bool

	// Pattern is the matched route pattern, or "" when nothing matched.
	Pattern string

	// Params are the matched route parameters.
	Params map[string]string

	// Status is 200 on success, 404 when no route matched and 500 when a
	// module failed to load.
	Status int

	// Error is the public error returned by the error hook, if it ran.
	Error *hooks.PageError
}

// Middleware wraps navigations. Handle must call next to continue.
type Middleware interface {
	Handle(ctx context.Context, nav *Navigation, next func(context.Context) error) error
}

// MiddlewareFunc adapts a function to Middleware.
type MiddlewareFunc func(ctx context.Context, nav *Navigation, next func(context.Context) error) error

// Handle calls f.
func (f MiddlewareFunc) Handle(ctx context.Context, nav *Navigation, next func(context.Context) error) error {
	return f(ctx, nav, next)
}

// chain runs final behind middleware, first registered outermost.
func chain(mw []Middleware, nav *Navigation, final func(context.Context) error) func(context.Context) error {
	next := final
	for i := len(mw) - 1; i >= 0; i-- {
		m, inner := mw[i], next
		next = func(ctx context.Context) error {
			return m.Handle(ctx, nav, inner)
		}
	}
	return next
}
