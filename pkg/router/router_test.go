package router

import (
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"

	rerrors "github.com/vango-dev/routemap/internal/errors"
	"github.com/vango-dev/routemap/pkg/manifest"
)

// newTestRouter builds a router where every pattern maps to its own page node.
func newTestRouter(t *testing.T, patterns []string, opts ...Option) *Router {
	t.Helper()
	m := &manifest.Manifest{
		Nodes:      make([]string, len(patterns)+2),
		Dictionary: make(map[string]manifest.Entry),
	}
	for i, p := range patterns {
		m.Dictionary[p] = manifest.Entry{Page: i + 2}
	}
	table, err := manifest.NewTable(m)
	if err != nil {
		t.Fatalf("NewTable() error = %v", err)
	}
	r, err := NewRouter(table, opts...)
	if err != nil {
		t.Fatalf("NewRouter() error = %v", err)
	}
	return r
}

func fixtureRouter(t *testing.T) *Router {
	t.Helper()
	m, err := manifest.Load(filepath.Join("..", "manifest", "testdata", "crm.json"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	table, err := manifest.NewTable(m)
	if err != nil {
		t.Fatalf("NewTable() error = %v", err)
	}
	r, err := NewRouter(table)
	if err != nil {
		t.Fatalf("NewRouter() error = %v", err)
	}
	return r
}

func TestFixtureEveryRouteMatches(t *testing.T) {
	r := fixtureRouter(t)

	for _, pattern := range r.Routes() {
		path := pattern
		for _, name := range []string{"[campaign_id]", "[list_id]", "[id]"} {
			path = strings.ReplaceAll(path, name, "123")
		}

		m, ok := r.Match(path)
		if !ok {
			t.Errorf("Match(%q) found nothing, want %s", path, pattern)
			continue
		}
		if m.Pattern != pattern {
			t.Errorf("Match(%q) = %s, want %s", path, m.Pattern, pattern)
		}
		entry, _ := r.Table().Entry(pattern)
		if m.Page != entry.Page {
			t.Errorf("Match(%q).Page = %d, want %d", path, m.Page, entry.Page)
		}
	}
}

func TestFixtureListDetails(t *testing.T) {
	r := fixtureRouter(t)

	m, ok := r.Match("/liste/details/123")
	if !ok {
		t.Fatal("Match(/liste/details/123) found nothing")
	}
	if m.Pattern != "/liste/details/[list_id]" || m.Page != 28 {
		t.Errorf("match = %s page %d", m.Pattern, m.Page)
	}
	if !reflect.DeepEqual(m.Params, map[string]string{"list_id": "123"}) {
		t.Errorf("Params = %v", m.Params)
	}
	if !reflect.DeepEqual(m.Layouts, []int{0}) {
		t.Errorf("Layouts = %v, want [0]", m.Layouts)
	}
}

func TestFixtureLayoutChain(t *testing.T) {
	r := fixtureRouter(t)

	tests := []struct {
		path    string
		page    int
		layouts []int
	}{
		{"/", 4, []int{0}},
		{"/admin/login", 7, []int{0, 2}},
		{"/agent", 9, []int{0, 3}},
		{"/agent/calls/history", 10, []int{0, 3}},
		{"/liste/Filedata", 30, []int{0}},
	}

	for _, tt := range tests {
		m, ok := r.Match(tt.path)
		if !ok {
			t.Errorf("Match(%q) found nothing", tt.path)
			continue
		}
		if m.Page != tt.page {
			t.Errorf("Match(%q).Page = %d, want %d", tt.path, m.Page, tt.page)
		}
		if !reflect.DeepEqual(m.Layouts, tt.layouts) {
			t.Errorf("Match(%q).Layouts = %v, want %v", tt.path, m.Layouts, tt.layouts)
		}
		if !reflect.DeepEqual(m.Errors, []int{1}) {
			t.Errorf("Match(%q).Errors = %v, want [1]", tt.path, m.Errors)
		}
	}
}

func TestMatchNoPartialMatches(t *testing.T) {
	r := fixtureRouter(t)

	paths := []string{
		"/nope",
		"/liste/details",
		"/liste/details/1/2",
		"/liste/filedata",
		"/admin",
	}
	for _, p := range paths {
		if m, ok := r.Match(p); ok {
			t.Errorf("Match(%q) = %s, want no match", p, m.Pattern)
		}
		if _, err := r.Find(p); !errors.Is(err, ErrNotFound) {
			t.Errorf("Find(%q) error = %v, want ErrNotFound", p, err)
		}
	}
}

func TestMatchLiteralBeatsParam(t *testing.T) {
	r := newTestRouter(t, []string{
		"/liste/[id]",
		"/liste/dnc",
		"/liste/dnc/[x]",
		"/liste/[id]/edit",
	})

	tests := []struct {
		path    string
		pattern string
		params  map[string]string
	}{
		{"/liste/dnc", "/liste/dnc", map[string]string{}},
		{"/liste/42", "/liste/[id]", map[string]string{"id": "42"}},
		{"/liste/dnc/7", "/liste/dnc/[x]", map[string]string{"x": "7"}},
		{"/liste/dnc/edit", "/liste/dnc/[x]", map[string]string{"x": "edit"}},
		{"/liste/42/edit", "/liste/[id]/edit", map[string]string{"id": "42"}},
	}

	for _, tt := range tests {
		m, ok := r.Match(tt.path)
		if !ok {
			t.Errorf("Match(%q) found nothing", tt.path)
			continue
		}
		if m.Pattern != tt.pattern {
			t.Errorf("Match(%q) = %s, want %s", tt.path, m.Pattern, tt.pattern)
		}
		if !reflect.DeepEqual(m.Params, tt.params) {
			t.Errorf("Match(%q).Params = %v, want %v", tt.path, m.Params, tt.params)
		}
	}
}

func TestMatchBacktracksFromLiteral(t *testing.T) {
	r := newTestRouter(t, []string{
		"/a/b",
		"/a/[x]/c",
	})

	m, ok := r.Match("/a/b/c")
	if !ok || m.Pattern != "/a/[x]/c" {
		t.Fatalf("Match(/a/b/c) = %v, %v", m, ok)
	}
	if m.Params["x"] != "b" {
		t.Errorf("x = %q, want b", m.Params["x"])
	}
}

func TestMatchMatchers(t *testing.T) {
	even := func(s string) bool { return len(s) > 0 && strings.IndexByte("02468", s[len(s)-1]) >= 0 }
	short := func(s string) bool { return len(s) <= 2 }

	r := newTestRouter(t, []string{
		"/a/[id=integer]",
		"/a/[slug]",
		"/u/[id=uuid]",
		"/x/[v=short]",
		"/x/[v=even]",
	}, WithMatcher("even", even), WithMatcher("short", short))

	tests := []struct {
		path    string
		pattern string
	}{
		{"/a/12", "/a/[id=integer]"},
		{"/a/-3", "/a/[id=integer]"},
		{"/a/foo", "/a/[slug]"},
		{"/u/6ba7b810-9dad-11d1-80b4-00c04fd430c8", "/u/[id=uuid]"},
		{"/x/24", "/x/[v=even]"},
		{"/x/3", "/x/[v=short]"},
	}
	for _, tt := range tests {
		m, ok := r.Match(tt.path)
		if !ok {
			t.Errorf("Match(%q) found nothing", tt.path)
			continue
		}
		if m.Pattern != tt.pattern {
			t.Errorf("Match(%q) = %s, want %s", tt.path, m.Pattern, tt.pattern)
		}
	}

	if _, ok := r.Match("/u/not-a-uuid"); ok {
		t.Error("Match(/u/not-a-uuid) should fail")
	}
	if _, ok := r.Match("/x/135"); ok {
		t.Error("Match(/x/135) should fail")
	}
}

func TestNewRouterUnknownMatcher(t *testing.T) {
	m := &manifest.Manifest{
		Nodes:      make([]string, 3),
		Dictionary: map[string]manifest.Entry{"/a/[id=color]": {Page: 2}},
	}
	table, err := manifest.NewTable(m)
	if err != nil {
		t.Fatalf("NewTable() error = %v", err)
	}

	_, err = NewRouter(table)
	var re *rerrors.RouteError
	if !errors.As(err, &re) {
		t.Fatalf("NewRouter() error = %v, want *RouteError", err)
	}
	if re.Code != "R013" {
		t.Errorf("Code = %s, want R013", re.Code)
	}
	if !strings.Contains(re.Detail, "/a/[id=color]") {
		t.Errorf("Detail = %q", re.Detail)
	}

	if _, err := NewRouter(table, WithMatchers(map[string]MatcherFunc{"color": func(string) bool { return true }})); err != nil {
		t.Errorf("NewRouter() with matcher error = %v", err)
	}
}

func TestMatchOptional(t *testing.T) {
	r := newTestRouter(t, []string{
		"/[[lang]]/about",
		"/docs/[[a]]/[[b]]",
	})

	tests := []struct {
		path   string
		params map[string]string
	}{
		{"/about", map[string]string{}},
		{"/fr/about", map[string]string{"lang": "fr"}},
		{"/docs", map[string]string{}},
		{"/docs/x", map[string]string{"a": "x"}},
		{"/docs/x/y", map[string]string{"a": "x", "b": "y"}},
	}
	for _, tt := range tests {
		m, ok := r.Match(tt.path)
		if !ok {
			t.Errorf("Match(%q) found nothing", tt.path)
			continue
		}
		if !reflect.DeepEqual(m.Params, tt.params) {
			t.Errorf("Match(%q).Params = %v, want %v", tt.path, m.Params, tt.params)
		}
	}
}

func TestMatchRest(t *testing.T) {
	r := newTestRouter(t, []string{
		"/docs/[...path]",
		"/files/[...path]/edit",
		"/files/readme",
	})

	tests := []struct {
		path    string
		pattern string
		value   string
	}{
		{"/docs", "/docs/[...path]", ""},
		{"/docs/a", "/docs/[...path]", "a"},
		{"/docs/a/b/c", "/docs/[...path]", "a/b/c"},
		{"/docs/a%2Fb", "/docs/[...path]", "a/b"},
		{"/files/edit", "/files/[...path]/edit", ""},
		{"/files/a/b/edit", "/files/[...path]/edit", "a/b"},
		{"/files/edit/edit", "/files/[...path]/edit", "edit"},
		{"/files/readme", "/files/readme", ""},
	}
	for _, tt := range tests {
		m, ok := r.Match(tt.path)
		if !ok {
			t.Errorf("Match(%q) found nothing", tt.path)
			continue
		}
		if m.Pattern != tt.pattern {
			t.Errorf("Match(%q) = %s, want %s", tt.path, m.Pattern, tt.pattern)
		}
		if tt.pattern != "/files/readme" && m.Params["path"] != tt.value {
			t.Errorf("Match(%q) path = %q, want %q", tt.path, m.Params["path"], tt.value)
		}
	}

	if _, ok := r.Match("/files/a/b"); ok {
		t.Error("Match(/files/a/b) should fail")
	}
}

func TestMatchDecodesParams(t *testing.T) {
	r := newTestRouter(t, []string{"/liste/details/[list_id]"})

	m, ok := r.Match("/liste/details/a%20b")
	if !ok {
		t.Fatal("Match found nothing")
	}
	if m.Params["list_id"] != "a b" {
		t.Errorf("list_id = %q, want %q", m.Params["list_id"], "a b")
	}

	if _, ok := r.Match("/liste/details/a%2Fb"); ok {
		t.Error("encoded slash must not bind a single parameter")
	}
}

func TestMatchCanonicalizes(t *testing.T) {
	r := fixtureRouter(t)

	paths := []string{
		"/liste/dnc/",
		"//liste//dnc",
		"/liste/./dnc",
		"/liste/x/../dnc",
		"/liste/dnc?page=2#top",
		"liste/dnc",
	}
	for _, p := range paths {
		m, ok := r.Match(p)
		if !ok || m.Pattern != "/liste/dnc" {
			t.Errorf("Match(%q) = %v, %v; want /liste/dnc", p, m, ok)
			continue
		}
		if m.Path != "/liste/dnc" {
			t.Errorf("Match(%q).Path = %q", p, m.Path)
		}
	}

	invalid := []string{"/liste\\dnc", "/../etc", "/liste/%zz", "/a%00"}
	for _, p := range invalid {
		if _, err := r.Find(p); !errors.Is(err, ErrInvalidPath) {
			t.Errorf("Find(%q) error = %v, want ErrInvalidPath", p, err)
		}
	}
}

func TestMatchHashRouting(t *testing.T) {
	m := &manifest.Manifest{
		Nodes:      make([]string, 4),
		Hash:       true,
		Dictionary: map[string]manifest.Entry{"/": {Page: 2}, "/liste/dnc": {Page: 3}},
	}
	table, err := manifest.NewTable(m)
	if err != nil {
		t.Fatalf("NewTable() error = %v", err)
	}
	r, err := NewRouter(table)
	if err != nil {
		t.Fatalf("NewRouter() error = %v", err)
	}

	if got, ok := r.Match("/#/liste/dnc"); !ok || got.Page != 3 {
		t.Errorf("Match(/#/liste/dnc) = %v, %v", got, ok)
	}
	if got, ok := r.Match("/liste/dnc"); !ok || got.Page != 2 {
		t.Errorf("Match(/liste/dnc) without fragment = %v, %v; want root", got, ok)
	}
}

func TestRoutes(t *testing.T) {
	r := fixtureRouter(t)
	routes := r.Routes()
	if len(routes) != r.Table().Len() {
		t.Errorf("Routes() has %d entries, want %d", len(routes), r.Table().Len())
	}
	if routes[len(routes)-1] != "/" {
		t.Errorf("last route = %s, want /", routes[len(routes)-1])
	}
}

func TestMatchConcurrent(t *testing.T) {
	r := fixtureRouter(t)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if m, ok := r.Match("/liste/details/9"); !ok || m.Params["list_id"] != "9" {
					t.Errorf("concurrent Match = %v, %v", m, ok)
					return
				}
			}
		}()
	}
	wg.Wait()
}
