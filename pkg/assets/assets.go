// Package assets resolves node module ids to their fingerprinted file names.
//
// Production builds emit hashed module files and a map from the stable id
// the route manifest uses to the file that was written:
//
//	{
//	  "nodes/0.js": "nodes/0.a1b2c3d4.js",
//	  "nodes/4.js": "nodes/4.e5f6a7b8.js"
//	}
//
// Wrap a loader.Source with Source so modules are fetched under their
// hashed names while the route manifest keeps stable ids:
//
//	fingerprints, _ := assets.Load("build/fingerprints.json")
//	src := assets.Source(loader.NewFileSource("build/client"), fingerprints)
package assets

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"os"

	"github.com/vango-dev/routemap/pkg/loader"
)

// Resolver maps a module id to the name it is stored under.
type Resolver interface {
	Resolve(id string) string
}

// Map is an immutable fingerprint map. Ids it does not contain resolve to
// themselves.
type Map struct {
	entries map[string]string
}

// NewMap creates a Map from entries. The map is copied.
func NewMap(entries map[string]string) *Map {
	return &Map{entries: maps.Clone(entries)}
}

// Load reads a fingerprint map from a JSON file.
func Load(path string) (*Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var entries map[string]string
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing fingerprint map %s: %w", path, err)
	}
	return &Map{entries: entries}, nil
}

// Resolve returns the fingerprinted name for id, or id when unmapped.
func (m *Map) Resolve(id string) string {
	if resolved, ok := m.entries[id]; ok {
		return resolved
	}
	return id
}

// Has reports whether id has a fingerprinted name.
func (m *Map) Has(id string) bool {
	_, ok := m.entries[id]
	return ok
}

// Len returns the number of entries.
func (m *Map) Len() int {
	return len(m.entries)
}

// All returns a copy of all entries.
func (m *Map) All() map[string]string {
	return maps.Clone(m.entries)
}

// Passthrough resolves every id to itself. Use it for unhashed dev builds.
type Passthrough struct{}

// Resolve returns id.
func (Passthrough) Resolve(id string) string { return id }

// Source wraps src so every fetch uses the resolved name.
func Source(src loader.Source, r Resolver) loader.Source {
	return loader.SourceFunc(func(ctx context.Context, id string) ([]byte, error) {
		return src.Fetch(ctx, r.Resolve(id))
	})
}
