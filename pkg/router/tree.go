package router

import (
	"fmt"
	"strings"

	"github.com/vango-dev/routemap/pkg/manifest"
	"github.com/vango-dev/routemap/pkg/routepath"
)

// routeNode is a node in the segment tree.
type routeNode struct {
	// children are static segment children
	children []*routeNode

	// segment is the literal this node matches (static children only)
	segment string

	// params are single-segment parameter edges, matchers first
	params []*paramEdge

	// rests are rest parameter edges, matchers first
	rests []*paramEdge

	// leaf is set when a route ends at this node
	leaf *leaf
}

// paramEdge is a parameter transition. Edges are shared by every pattern
// with the same matcher at this position; names live on the leaf.
type paramEdge struct {
	matcher string
	rank    int
	fn      MatcherFunc
	child   *routeNode
}

// leaf describes a route ending at a node.
type leaf struct {
	entry manifest.Entry

	// names are the parameter names in the order values are collected.
	names []string
}

func newRouteNode(segment string) *routeNode {
	return &routeNode{segment: segment}
}

// findChild finds a child node with an exact segment match.
func (n *routeNode) findChild(segment string) *routeNode {
	for _, child := range n.children {
		if child.segment == segment {
			return child
		}
	}
	return nil
}

// addChild adds or retrieves a child node for the given segment.
func (n *routeNode) addChild(segment string) *routeNode {
	if child := n.findChild(segment); child != nil {
		return child
	}
	child := newRouteNode(segment)
	n.children = append(n.children, child)
	return child
}

// addEdge adds or retrieves the edge for matcher in edges, keeping matcher
// edges ordered by rank and the plain edge last.
func addEdge(edges []*paramEdge, matcher string, rank int, fn MatcherFunc) ([]*paramEdge, *routeNode) {
	for _, e := range edges {
		if e.matcher == matcher {
			return edges, e.child
		}
	}

	edge := &paramEdge{matcher: matcher, rank: rank, fn: fn, child: newRouteNode("")}
	i := 0
	for i < len(edges) && edges[i].before(edge) {
		i++
	}
	edges = append(edges, nil)
	copy(edges[i+1:], edges[i:])
	edges[i] = edge
	return edges, edge.child
}

func (e *paramEdge) before(other *paramEdge) bool {
	if e.matcher == "" {
		return false
	}
	if other.matcher == "" {
		return true
	}
	return e.rank < other.rank
}

func (e *paramEdge) accepts(value string) bool {
	return e.fn == nil || e.fn(value)
}

// insert adds one optional-free variant of a route.
func (r *Router) insert(segs []routepath.Segment, entry manifest.Entry) error {
	current := r.root
	var names []string

	for _, seg := range segs {
		var fn MatcherFunc
		rank := 0
		if seg.Matcher != "" {
			m, ok := r.matchers[seg.Matcher]
			if !ok {
				return fmt.Errorf("route %s: unknown matcher %q", entry.Pattern, seg.Matcher)
			}
			fn, rank = m.fn, m.rank
		}

		switch seg.Kind {
		case routepath.Static:
			current = current.addChild(seg.Value)
		case routepath.Param:
			current.params, current = addEdge(current.params, seg.Matcher, rank, fn)
			names = append(names, seg.Name)
		case routepath.Rest:
			current.rests, current = addEdge(current.rests, seg.Matcher, rank, fn)
			names = append(names, seg.Name)
		}
	}

	if current.leaf != nil {
		// Two optional variants of one pattern can share a shape, as in
		// /[[a]]/[[b]] with one value. The earlier, longer variant wins.
		if current.leaf.entry.Pattern == entry.Pattern {
			return nil
		}
		return fmt.Errorf("routes %s and %s match the same paths", current.leaf.entry.Pattern, entry.Pattern)
	}
	current.leaf = &leaf{entry: entry, names: names}
	return nil
}

// pathSegment is one segment of the path being matched.
type pathSegment struct {
	// raw is the still-encoded segment, used to rebuild rest values.
	raw string

	// value is the decoded segment with %2F allowed.
	value string

	// single reports whether the segment may bind a single parameter
	// (it does not decode to a value containing "/").
	single bool
}

// match walks the tree. values collects parameter values positionally and
// is truncated again when a branch fails.
func (n *routeNode) match(segs []pathSegment, values []string) (*leaf, []string, bool) {
	if len(segs) == 0 && n.leaf != nil {
		return n.leaf, values, true
	}

	if len(segs) > 0 {
		seg := segs[0]

		// Try exact match first
		if child := n.findChild(seg.value); child != nil {
			if l, v, ok := child.match(segs[1:], values); ok {
				return l, v, true
			}
		}

		// Then parameters, matcher edges before the plain one
		if seg.single {
			for _, edge := range n.params {
				if !edge.accepts(seg.value) {
					continue
				}
				if l, v, ok := edge.child.match(segs[1:], append(values, seg.value)); ok {
					return l, v, true
				}
			}
		}
	}

	// Rest edges take the longest run that still lets the remainder match.
	for _, edge := range n.rests {
		for k := len(segs); k >= 0; k-- {
			value, ok := joinRest(segs[:k])
			if !ok || !edge.accepts(value) {
				continue
			}
			if l, v, ok := edge.child.match(segs[k:], append(values, value)); ok {
				return l, v, true
			}
		}
	}

	return nil, nil, false
}

func joinRest(segs []pathSegment) (string, bool) {
	raw := make([]string, len(segs))
	for i, s := range segs {
		raw[i] = s.raw
	}
	value, err := routepath.DecodeSegment(strings.Join(raw, "/"), true)
	return value, err == nil
}

// walk visits every leaf in the tree, static children first.
func (n *routeNode) walk(fn func(*leaf)) {
	if n.leaf != nil {
		fn(n.leaf)
	}
	for _, c := range n.children {
		c.walk(fn)
	}
	for _, e := range n.params {
		e.child.walk(fn)
	}
	for _, e := range n.rests {
		e.child.walk(fn)
	}
}
