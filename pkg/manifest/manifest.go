package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
)

const (
	// RootLayout is the node index of the root layout.
	RootLayout = 0

	// RootError is the node index of the root error page.
	RootError = 1

	// NoNode marks a hole in a layout or error chain.
	NoNode = -1
)

// Manifest is the serialized form of a route table.
type Manifest struct {
	// Nodes are module identifiers in node index order.
	Nodes []string `json:"nodes"`

	// Sources optionally records the source file of each node, aligned with Nodes.
	Sources []string `json:"sources,omitempty"`

	// ServerLoads lists layout nodes that fetch server data.
	ServerLoads []int `json:"serverLoads,omitempty"`

	// Dictionary maps route patterns to entries.
	Dictionary map[string]Entry `json:"dictionary"`

	// Hash reports whether the client routes on location.hash instead of the path.
	Hash bool `json:"hash,omitempty"`
}

// Entry is one route of the dictionary.
type Entry struct {
	// Pattern is the route pattern (dictionary key). Filled in on parse.
	Pattern string `json:"-"`

	// Page is the node index of the page module.
	Page int `json:"-"`

	// ServerData reports whether the page has a server data loader.
	ServerData bool `json:"-"`

	// Layouts are the non-root layout nodes, outermost first. NoNode marks a hole.
	Layouts []int `json:"-"`

	// Errors are the non-root error nodes aligned with Layouts. NoNode marks a hole.
	Errors []int `json:"-"`
}

// LayoutChain returns the layout nodes wrapping the page, outermost first,
// including the root layout. Holes are dropped.
func (e Entry) LayoutChain() []int {
	chain := make([]int, 0, len(e.Layouts)+1)
	chain = append(chain, RootLayout)
	for _, n := range e.Layouts {
		if n != NoNode {
			chain = append(chain, n)
		}
	}
	return chain
}

// ErrorChain returns the error nodes for the route, outermost first,
// including the root error page. Holes are dropped.
func (e Entry) ErrorChain() []int {
	chain := make([]int, 0, len(e.Errors)+1)
	chain = append(chain, RootError)
	for _, n := range e.Errors {
		if n != NoNode {
			chain = append(chain, n)
		}
	}
	return chain
}

// ErrorBoundary returns the nearest error node at or above depth, where
// depth 0 is the root and depth i is Layouts[i-1]. A depth past the end
// means the page itself.
func (e Entry) ErrorBoundary(depth int) int {
	if depth > len(e.Errors) {
		depth = len(e.Errors)
	}
	for i := depth; i > 0; i-- {
		if n := e.Errors[i-1]; n != NoNode {
			return n
		}
	}
	return RootError
}

// Nodes returns every node index the entry references, page last.
func (e Entry) Nodes() []int {
	nodes := e.LayoutChain()
	for _, n := range e.Errors {
		if n != NoNode {
			nodes = append(nodes, n)
		}
	}
	return append(nodes, e.Page)
}

// MarshalJSON encodes the entry as a [page, layouts, errors] tuple.
func (e Entry) MarshalJSON() ([]byte, error) {
	page := e.Page
	if e.ServerData {
		page = ^page
	}

	tuple := []any{page}
	switch {
	case len(e.Errors) > 0:
		tuple = append(tuple, holes(e.Layouts), holes(e.Errors))
	case len(e.Layouts) > 0:
		tuple = append(tuple, holes(e.Layouts))
	}
	return json.Marshal(tuple)
}

// UnmarshalJSON decodes a [page, layouts, errors] tuple.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var tuple []json.RawMessage
	if err := json.Unmarshal(data, &tuple); err != nil {
		return fmt.Errorf("entry must be an array: %w", err)
	}
	if len(tuple) == 0 || len(tuple) > 3 {
		return fmt.Errorf("entry must have 1 to 3 elements, got %d", len(tuple))
	}

	var page int
	if err := json.Unmarshal(tuple[0], &page); err != nil {
		return fmt.Errorf("entry page: %w", err)
	}
	e.ServerData = page < 0
	if e.ServerData {
		page = ^page
	}
	e.Page = page

	var err error
	e.Layouts, e.Errors = nil, nil
	if len(tuple) > 1 {
		if e.Layouts, err = decodeHoles(tuple[1]); err != nil {
			return fmt.Errorf("entry layouts: %w", err)
		}
	}
	if len(tuple) > 2 {
		if e.Errors, err = decodeHoles(tuple[2]); err != nil {
			return fmt.Errorf("entry errors: %w", err)
		}
	}
	return nil
}

func holes(nodes []int) []*int {
	out := make([]*int, len(nodes))
	for i, n := range nodes {
		if n != NoNode {
			v := n
			out[i] = &v
		}
	}
	return out
}

func decodeHoles(raw json.RawMessage) ([]int, error) {
	var ptrs []*int
	if err := json.Unmarshal(raw, &ptrs); err != nil {
		return nil, err
	}
	out := make([]int, len(ptrs))
	for i, p := range ptrs {
		if p == nil {
			out[i] = NoNode
		} else {
			out[i] = *p
		}
	}
	return out, nil
}

// Parse decodes a manifest from JSON. Entry patterns are filled in from the
// dictionary keys. Parse does not validate; see Validate.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	for pattern, entry := range m.Dictionary {
		entry.Pattern = pattern
		m.Dictionary[pattern] = entry
	}
	return &m, nil
}

// Load reads and parses a manifest file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Marshal encodes the manifest as indented JSON. Dictionary keys are sorted.
func (m *Manifest) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// WriteFile writes the manifest to path.
func (m *Manifest) WriteFile(path string) error {
	data, err := m.Marshal()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
