package router

import (
	"errors"
	"fmt"
	"sort"

	rerrors "github.com/vango-dev/routemap/internal/errors"
	"github.com/vango-dev/routemap/pkg/manifest"
	"github.com/vango-dev/routemap/pkg/routepath"
)

var (
	// ErrNotFound is returned by Find when no route matches.
	ErrNotFound = errors.New("no route matches path")

	// ErrInvalidPath is returned by Find when the path cannot be canonicalized.
	ErrInvalidPath = errors.New("invalid path")
)

// Router matches paths against an immutable route table.
// It is safe for concurrent use once built.
type Router struct {
	table    *manifest.Table
	root     *routeNode
	matchers map[string]registered
	nextRank int
}

type registered struct {
	fn   MatcherFunc
	rank int
}

// NewRouter builds a router for t. Every pattern's matchers must be known,
// otherwise an R013 error naming the route is returned.
func NewRouter(t *manifest.Table, opts ...Option) (*Router, error) {
	r := &Router{
		table:    t,
		root:     newRouteNode(""),
		matchers: make(map[string]registered),
	}
	for _, m := range builtinMatchers {
		r.addMatcher(m.name, m.fn)
	}
	for _, opt := range opts {
		opt(r)
	}

	for _, entry := range t.Entries() {
		segs, err := routepath.ParsePattern(entry.Pattern)
		if err != nil {
			return nil, rerrors.New("R014").WithDetail(entry.Pattern).Wrap(err)
		}
		for _, seg := range segs {
			if seg.Matcher != "" {
				if _, ok := r.matchers[seg.Matcher]; !ok {
					return nil, rerrors.New("R013").
						WithDetail(fmt.Sprintf("route %s uses matcher %q", entry.Pattern, seg.Matcher)).
						WithSuggestion(fmt.Sprintf("Register it with router.WithMatcher(%q, fn)", seg.Matcher))
				}
			}
		}
		for _, variant := range manifest.ExpandOptional(segs) {
			if err := r.insert(variant, entry); err != nil {
				return nil, rerrors.New("R011").Wrap(err)
			}
		}
	}

	return r, nil
}

func (r *Router) addMatcher(name string, fn MatcherFunc) {
	if m, ok := r.matchers[name]; ok {
		r.matchers[name] = registered{fn: fn, rank: m.rank}
		return
	}
	r.matchers[name] = registered{fn: fn, rank: r.nextRank}
	r.nextRank++
}

// Match finds the route for path. It returns false when the path is
// invalid or no route matches.
func (r *Router) Match(path string) (*Match, bool) {
	m, err := r.Find(path)
	return m, err == nil
}

// Find is like Match but reports why a lookup failed. The error wraps
// ErrInvalidPath or ErrNotFound.
//
// When the table uses hash routing the fragment is matched instead of
// the path, so "/#/liste/dnc" matches /liste/dnc.
func (r *Router) Find(path string) (*Match, error) {
	res, err := routepath.CanonicalizePath(path)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrInvalidPath, path, err)
	}
	if r.table.Hash() {
		if res, err = routepath.CanonicalizePath(res.Fragment); err != nil {
			return nil, fmt.Errorf("%w %q: %w", ErrInvalidPath, path, err)
		}
	}

	raw := routepath.SplitSegments(res.Path)
	segs := make([]pathSegment, len(raw))
	for i, s := range raw {
		value, err := routepath.DecodeSegment(s, true)
		if err != nil {
			return nil, fmt.Errorf("%w %q: %w", ErrInvalidPath, path, err)
		}
		_, single := routepath.DecodeSegment(s, false)
		segs[i] = pathSegment{raw: s, value: value, single: single == nil}
	}

	l, values, ok := r.root.match(segs, nil)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, res.Path)
	}

	params := make(map[string]string, len(l.names))
	for i, name := range l.names {
		params[name] = values[i]
	}

	return &Match{
		Path:       res.Path,
		Pattern:    l.entry.Pattern,
		Page:       l.entry.Page,
		Layouts:    l.entry.LayoutChain(),
		Errors:     l.entry.ErrorChain(),
		Params:     params,
		ServerData: l.entry.ServerData,
		Entry:      l.entry,
	}, nil
}

// Routes returns every route pattern, most specific first.
func (r *Router) Routes() []string {
	entries := r.table.Entries()
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Pattern
	}
	return out
}

// Table returns the table the router was built from.
func (r *Router) Table() *manifest.Table {
	return r.table
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
