package assets

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/vango-dev/routemap/pkg/loader"
)

func TestMapResolve(t *testing.T) {
	m := NewMap(map[string]string{
		"nodes/0.js": "nodes/0.a1b2c3d4.js",
		"nodes/4.js": "nodes/4.e5f6a7b8.js",
	})

	tests := []struct {
		name string
		id   string
		want string
	}{
		{"mapped", "nodes/0.js", "nodes/0.a1b2c3d4.js"},
		{"mapped page", "nodes/4.js", "nodes/4.e5f6a7b8.js"},
		{"unmapped returns id", "nodes/9.js", "nodes/9.js"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := m.Resolve(tt.id); got != tt.want {
				t.Errorf("Resolve(%q) = %q, want %q", tt.id, got, tt.want)
			}
		})
	}

	if !m.Has("nodes/0.js") || m.Has("nodes/9.js") {
		t.Error("Has() disagrees with entries")
	}
	if m.Len() != 2 {
		t.Errorf("Len() = %d, want 2", m.Len())
	}
}

func TestMapIsImmutable(t *testing.T) {
	entries := map[string]string{"nodes/0.js": "nodes/0.aaaa.js"}
	m := NewMap(entries)
	entries["nodes/0.js"] = "changed"

	all := m.All()
	all["nodes/0.js"] = "changed too"

	if got := m.Resolve("nodes/0.js"); got != "nodes/0.aaaa.js" {
		t.Errorf("Resolve() = %q after external mutation", got)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	if _, err := Load(filepath.Join(dir, "missing.json")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load(missing) error = %v, want ErrNotExist", err)
	}

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte(`["nodes/0.js"]`), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(bad); err == nil {
		t.Error("Load(bad) should fail")
	}

	good := filepath.Join(dir, "fingerprints.json")
	if err := os.WriteFile(good, []byte(`{"nodes/1.js": "nodes/1.cafe.js"}`), 0644); err != nil {
		t.Fatal(err)
	}
	m, err := Load(good)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := m.Resolve("nodes/1.js"); got != "nodes/1.cafe.js" {
		t.Errorf("Resolve() = %q", got)
	}
}

func TestSource(t *testing.T) {
	var fetched []string
	inner := loader.SourceFunc(func(ctx context.Context, id string) ([]byte, error) {
		fetched = append(fetched, id)
		return []byte(id), nil
	})

	src := Source(inner, NewMap(map[string]string{"nodes/2.js": "nodes/2.beef.js"}))
	for _, id := range []string{"nodes/2.js", "nodes/3.js"} {
		if _, err := src.Fetch(context.Background(), id); err != nil {
			t.Fatal(err)
		}
	}

	if len(fetched) != 2 || fetched[0] != "nodes/2.beef.js" || fetched[1] != "nodes/3.js" {
		t.Errorf("fetched = %v", fetched)
	}

	if got, _ := Source(inner, Passthrough{}).Fetch(context.Background(), "nodes/2.js"); string(got) != "nodes/2.js" {
		t.Errorf("passthrough fetched %q", got)
	}
}

func TestSourceThroughCache(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "nodes"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "nodes", "0.f00d.js"), []byte("export default 0"), 0644); err != nil {
		t.Fatal(err)
	}

	src := Source(loader.NewFileSource(dir), NewMap(map[string]string{"nodes/0.js": "nodes/0.f00d.js"}))
	cache := loader.NewFromSource(src, []string{"nodes/0.js"})

	m, err := cache.Load(context.Background(), 0)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if m.ID != "nodes/0.js" || string(m.Source) != "export default 0" {
		t.Errorf("module = %s %q", m.ID, m.Source)
	}
}
