package router

import (
	"regexp"

	"github.com/vango-dev/routemap/pkg/manifest"
)

// MatcherFunc reports whether a raw parameter value is acceptable.
type MatcherFunc func(param string) bool

// Match is the result of a successful lookup.
type Match struct {
	// Path is the canonical path that was matched.
	Path string `json:"path"`

	// Pattern is the dictionary key of the matched route.
	Pattern string `json:"pattern"`

	// Page is the node index of the page module.
	Page int `json:"page"`

	// Layouts are the layout nodes, outermost first, including the root layout.
	Layouts []int `json:"layouts"`

	// Errors are the error nodes, outermost first, including the root error page.
	Errors []int `json:"errors"`

	// Params holds decoded parameter values by name. Rest parameters hold
	// the joined segments ("a/b/c"), or "" when they matched nothing.
	// Optional parameters that were skipped are absent.
	Params map[string]string `json:"params"`

	// ServerData reports whether the page has a server data loader.
	ServerData bool `json:"serverData"`

	// Entry is the matched table entry.
	Entry manifest.Entry `json:"-"`
}

// Option configures a Router.
type Option func(*Router)

// WithMatcher registers a parameter matcher under name. A later
// registration with the same name replaces the earlier one but keeps its
// precedence.
func WithMatcher(name string, fn MatcherFunc) Option {
	return func(r *Router) {
		r.addMatcher(name, fn)
	}
}

// WithMatchers registers several matchers. Map iteration order is not
// stable, so names are registered in sorted order.
func WithMatchers(matchers map[string]MatcherFunc) Option {
	return func(r *Router) {
		for _, name := range sortedKeys(matchers) {
			r.addMatcher(name, matchers[name])
		}
	}
}

var (
	intRegex  = regexp.MustCompile(`^-?[0-9]+$`)
	uuidRegex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
	slugRegex = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
)

// builtinMatchers are registered on every router, in this order.
var builtinMatchers = []struct {
	name string
	fn   MatcherFunc
}{
	{"int", intRegex.MatchString},
	{"integer", intRegex.MatchString},
	{"uuid", uuidRegex.MatchString},
	{"slug", slugRegex.MatchString},
}
