// Package router matches URL paths against a manifest route table.
//
// The router builds a segment tree from every pattern in a manifest.Table
// and walks it for each lookup. Optional segments are expanded into both
// variants when the tree is built, so the walk only deals with static,
// parameter and rest edges.
//
// # Precedence
//
// At every tree node the candidates are tried in this order:
//
//  1. Static segment (exact, case-sensitive)
//  2. Parameters with a matcher, in matcher registration order
//  3. Plain parameters
//  4. Rest parameters, longest consumption first
//
// The walk backtracks when a branch dead-ends, so /liste/dnc matches the
// literal route while /liste/42 still reaches /liste/[id]. A lookup either
// finds a complete route or fails; partial matches are never returned.
//
// # Matchers
//
// Patterns may name a matcher, as in [id=integer]. The router ships with
// int, integer, uuid and slug. Others are registered with WithMatcher.
// A pattern that names an unregistered matcher fails NewRouter.
//
// # Usage
//
//	table, err := manifest.NewTable(m)
//	r, err := router.NewRouter(table)
//
//	match, ok := r.Match("/liste/details/123")
//	if ok {
//	    // match.Pattern == "/liste/details/[list_id]"
//	    // match.Params["list_id"] == "123"
//	    // match.Layouts == []int{0}
//	}
package router
