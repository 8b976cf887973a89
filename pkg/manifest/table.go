package manifest

import (
	"slices"
)

// Table is an immutable, validated route table built from a Manifest.
// It is safe for concurrent use.
type Table struct {
	nodes       []string
	entries     []Entry
	byPattern   map[string]int
	serverLoads map[int]bool
	hash        bool
}

// NewTable validates m and returns an immutable table. The manifest is
// copied; later changes to m do not affect the table.
func NewTable(m *Manifest) (*Table, error) {
	if err := Validate(m); err != nil {
		return nil, err
	}

	t := &Table{
		nodes:       slices.Clone(m.Nodes),
		entries:     make([]Entry, 0, len(m.Dictionary)),
		byPattern:   make(map[string]int, len(m.Dictionary)),
		serverLoads: make(map[int]bool, len(m.ServerLoads)),
		hash:        m.Hash,
	}

	for pattern, e := range m.Dictionary {
		e.Pattern = pattern
		e.Layouts = slices.Clone(e.Layouts)
		e.Errors = slices.Clone(e.Errors)
		t.entries = append(t.entries, e)
	}
	SortBySpecificity(t.entries)
	for i, e := range t.entries {
		t.byPattern[e.Pattern] = i
	}

	for _, n := range m.ServerLoads {
		t.serverLoads[n] = true
	}

	return t, nil
}

// Entries returns a copy of all entries, most specific first.
func (t *Table) Entries() []Entry {
	out := make([]Entry, len(t.entries))
	for i, e := range t.entries {
		e.Layouts = slices.Clone(e.Layouts)
		e.Errors = slices.Clone(e.Errors)
		out[i] = e
	}
	return out
}

// Entry returns the entry registered for pattern.
func (t *Table) Entry(pattern string) (Entry, bool) {
	i, ok := t.byPattern[pattern]
	if !ok {
		return Entry{}, false
	}
	e := t.entries[i]
	e.Layouts = slices.Clone(e.Layouts)
	e.Errors = slices.Clone(e.Errors)
	return e, true
}

// Len returns the number of routes.
func (t *Table) Len() int {
	return len(t.entries)
}

// Node returns the module identifier of node i.
func (t *Table) Node(i int) (string, bool) {
	if i < 0 || i >= len(t.nodes) {
		return "", false
	}
	return t.nodes[i], true
}

// Nodes returns a copy of all module identifiers in index order.
func (t *Table) Nodes() []string {
	return slices.Clone(t.nodes)
}

// NodeCount returns the number of nodes.
func (t *Table) NodeCount() int {
	return len(t.nodes)
}

// HasServerLoad reports whether layout node i fetches server data.
func (t *Table) HasServerLoad(i int) bool {
	return t.serverLoads[i]
}

// Hash reports whether the application routes on the URL hash.
func (t *Table) Hash() bool {
	return t.hash
}
