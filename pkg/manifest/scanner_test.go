package manifest

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeRoutes(t *testing.T, files ...string) string {
	t.Helper()
	root := filepath.Join(t.TempDir(), "routes")
	for _, f := range files {
		path := filepath.Join(root, filepath.FromSlash(f))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("<!-- "+f+" -->"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func TestScannerScan(t *testing.T) {
	root := writeRoutes(t,
		"+layout.svelte",
		"+page.svelte",
		"admin/+layout.svelte",
		"admin/login/+page.svelte",
		"admin/server/+page.svelte",
		"admin/server/+page.server.js",
		"agent/+layout.svelte",
		"agent/+layout.server.js",
		"agent/+error.svelte",
		"agent/dashboard/+page.svelte",
		"(auth)/login/+page.svelte",
		"liste/details/[list_id]/+page.svelte",
		"liste/details/[list_id]/+page.test.js",
		"_drafts/+page.svelte",
	)

	m, err := NewScanner(root).Scan()
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	wantNodes := []string{
		"nodes/0.js", "nodes/1.js", "nodes/2.js", "nodes/3.js", "nodes/4.js", "nodes/5.js",
		"nodes/6.js", "nodes/7.js", "nodes/8.js", "nodes/9.js", "nodes/10.js",
	}
	if !reflect.DeepEqual(m.Nodes, wantNodes) {
		t.Fatalf("Nodes = %v", m.Nodes)
	}

	wantSources := map[int]string{
		0:  "routes/+layout.svelte",
		1:  "default:error",
		2:  "routes/admin/+layout.svelte",
		3:  "routes/agent/+layout.svelte",
		4:  "routes/agent/+error.svelte",
		5:  "routes/+page.svelte",
		6:  "routes/(auth)/login/+page.svelte",
		7:  "routes/admin/login/+page.svelte",
		9:  "routes/agent/dashboard/+page.svelte",
		10: "routes/liste/details/[list_id]/+page.svelte",
	}
	for i, want := range wantSources {
		if m.Sources[i] != want {
			t.Errorf("Sources[%d] = %q, want %q", i, m.Sources[i], want)
		}
	}

	if !reflect.DeepEqual(m.ServerLoads, []int{3}) {
		t.Errorf("ServerLoads = %v, want [3]", m.ServerLoads)
	}

	wantDict := map[string]Entry{
		"/":                        {Pattern: "/", Page: 5},
		"/(auth)/login":            {Pattern: "/(auth)/login", Page: 6},
		"/admin/login":             {Pattern: "/admin/login", Page: 7, Layouts: []int{2}},
		"/admin/server":            {Pattern: "/admin/server", Page: 8, Layouts: []int{2}, ServerData: true},
		"/agent/dashboard":         {Pattern: "/agent/dashboard", Page: 9, Layouts: []int{3}, Errors: []int{4}},
		"/liste/details/[list_id]": {Pattern: "/liste/details/[list_id]", Page: 10},
	}
	if !reflect.DeepEqual(m.Dictionary, wantDict) {
		t.Errorf("Dictionary = %+v", m.Dictionary)
	}
}

func TestScannerHoles(t *testing.T) {
	root := writeRoutes(t,
		"a/+error.svelte",
		"a/b/+layout.svelte",
		"a/b/c/+page.svelte",
	)

	m, err := NewScanner(root, WithNodeID("chunk-%03d.mjs")).Scan()
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	if m.Nodes[0] != "chunk-000.mjs" {
		t.Errorf("Nodes[0] = %q", m.Nodes[0])
	}
	if m.Sources[0] != "default:layout" {
		t.Errorf("Sources[0] = %q, want default:layout", m.Sources[0])
	}

	// a has only an error page, a/b only a layout.
	e := m.Dictionary["/a/b/c"]
	if !reflect.DeepEqual(e.Layouts, []int{NoNode, 3}) {
		t.Errorf("Layouts = %v", e.Layouts)
	}
	if !reflect.DeepEqual(e.Errors, []int{2}) {
		t.Errorf("Errors = %v", e.Errors)
	}
	if got := e.ErrorBoundary(2); got != 2 {
		t.Errorf("ErrorBoundary(2) = %d, want 2", got)
	}
}

func TestScannerRejectsBadSegments(t *testing.T) {
	root := writeRoutes(t, "item-[id]/+page.svelte")
	if _, err := NewScanner(root).Scan(); err == nil {
		t.Fatal("expected error for mixed segment")
	}
}

func TestScannerDetectsDuplicates(t *testing.T) {
	root := writeRoutes(t,
		"(app)/login/+page.svelte",
		"(auth)/login/+page.svelte",
	)
	_, err := NewScanner(root).Scan()
	multi := validationErrors(t, err)
	if !multi.Has(ErrorDuplicateRoute) {
		t.Errorf("expected duplicate route, got %v", multi)
	}
}
