// Package manifest reads, validates and generates client route manifests.
//
// A manifest lists the view modules ("nodes") of an application in load
// order and a dictionary mapping route patterns to the node that renders the
// page plus the layout and error nodes that wrap it:
//
//	{
//	  "nodes": ["nodes/0.js", "nodes/1.js", "nodes/2.js", ...],
//	  "serverLoads": [2],
//	  "dictionary": {
//	    "/": [4],
//	    "/admin/carrier": [5, [2]],
//	    "/liste/details/[list_id]": [28]
//	  }
//	}
//
// Each dictionary value is a tuple [page, layouts, errors]. Node 0 is the
// root layout and node 1 the root error page; both are implicit in every
// entry. A negative page value ~n marks node n as having server data. Layout
// and error arrays may contain null holes so that both stay aligned by depth.
//
// # Route Directory Convention
//
// Scanner builds a manifest from a directory tree:
//
//	src/routes/
//	├── +layout.svelte              → node 0 (root layout)
//	├── +page.svelte                → /
//	├── admin/
//	│   ├── +layout.svelte          → layout for /admin/*
//	│   └── carrier/+page.svelte    → /admin/carrier
//	├── (auth)/login/+page.svelte   → /(auth)/login, matches /login
//	└── liste/
//	    └── details/[list_id]/
//	        └── +page.svelte        → /liste/details/[list_id]
//
// Parameters use [name], [name=matcher], [[optional]] and [...rest].
package manifest
