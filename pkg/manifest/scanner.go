package manifest

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/vango-dev/routemap/pkg/routepath"
)

// DefaultNodeID formats node identifiers the way bundlers name node chunks.
const DefaultNodeID = "nodes/%d.js"

// Scanner builds a manifest from a routes directory.
type Scanner struct {
	rootDir string
	nodeID  string
}

// ScannerOption configures a Scanner.
type ScannerOption func(*Scanner)

// WithNodeID sets the fmt pattern used to name nodes (default DefaultNodeID).
func WithNodeID(format string) ScannerOption {
	return func(s *Scanner) {
		s.nodeID = format
	}
}

// NewScanner creates a scanner rooted at rootDir.
func NewScanner(rootDir string, opts ...ScannerOption) *Scanner {
	s := &Scanner{rootDir: rootDir, nodeID: DefaultNodeID}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// routeDir describes one directory of the routes tree.
type routeDir struct {
	// id is the route pattern including groups, e.g. "/(app)/liste".
	id string

	// parent is the id of the enclosing directory ("" for the root).
	parent string

	page         string
	pageServer   bool
	layout       string
	layoutServer bool
	errorPage    string
}

// Scan walks the routes directory and returns a manifest. Directories whose
// names are not valid pattern segments are reported as errors. The result is
// validated before it is returned.
func (s *Scanner) Scan() (*Manifest, error) {
	dirs := make(map[string]*routeDir)

	err := filepath.WalkDir(s.rootDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(s.rootDir, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			name := d.Name()
			if rel != "." && (strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")) {
				return filepath.SkipDir
			}
			id := "/"
			parent := ""
			if rel != "." {
				if !routepath.IsGroup(name) {
					if _, err := routepath.ParseSegment(name); err != nil {
						return fmt.Errorf("scanning %s: %w", p, err)
					}
				}
				id = "/" + rel
				parent = path.Dir(id)
			}
			dirs[id] = &routeDir{id: id, parent: parent}
			return nil
		}

		dirID := "/" + path.Dir(rel)
		if path.Dir(rel) == "." {
			dirID = "/"
		}
		dir, ok := dirs[dirID]
		if !ok {
			return nil
		}

		s.classify(dir, d.Name(), filepath.ToSlash(filepath.Join(filepath.Base(s.rootDir), rel)))
		return nil
	})
	if err != nil {
		return nil, err
	}

	m := s.assemble(dirs)
	if err := Validate(m); err != nil {
		return nil, err
	}
	return m, nil
}

// classify records a +page, +layout or +error file on its directory.
func (s *Scanner) classify(dir *routeDir, name, source string) {
	if !strings.HasPrefix(name, "+") || strings.Contains(name, ".test.") || strings.Contains(name, ".spec.") {
		return
	}
	base, _, _ := strings.Cut(name, ".")
	server := strings.Contains(name, ".server.")

	switch base {
	case "+page":
		if server {
			dir.pageServer = true
			if dir.page == "" {
				dir.page = source
			}
		} else {
			dir.page = source
		}
	case "+layout":
		if server {
			dir.layoutServer = true
			if dir.layout == "" {
				dir.layout = source
			}
		} else {
			dir.layout = source
		}
	case "+error":
		dir.errorPage = source
	}
}

// assemble numbers nodes and builds the dictionary.
//
// Node order: 0 root layout, 1 root error, then nested layouts and error
// pages in directory order, then pages ordered by pattern. Ordering is
// case-insensitive so that numbering is stable across file systems.
func (s *Scanner) assemble(dirs map[string]*routeDir) *Manifest {
	ids := make([]string, 0, len(dirs))
	for id := range dirs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := strings.ToLower(ids[i]), strings.ToLower(ids[j])
		if a != b {
			return a < b
		}
		return ids[i] < ids[j]
	})

	m := &Manifest{Dictionary: make(map[string]Entry)}
	add := func(source string) int {
		m.Nodes = append(m.Nodes, fmt.Sprintf(s.nodeID, len(m.Nodes)))
		m.Sources = append(m.Sources, source)
		return len(m.Nodes) - 1
	}

	root := dirs["/"]
	if root == nil {
		root = &routeDir{id: "/"}
	}
	add(defaultSource(root.layout, "default:layout"))
	add(defaultSource(root.errorPage, "default:error"))
	if root.layoutServer {
		m.ServerLoads = append(m.ServerLoads, RootLayout)
	}

	layoutNode := map[string]int{}
	errorNode := map[string]int{}
	for _, id := range ids {
		if id == "/" {
			continue
		}
		d := dirs[id]
		if d.layout != "" {
			layoutNode[id] = add(d.layout)
			if d.layoutServer {
				m.ServerLoads = append(m.ServerLoads, layoutNode[id])
			}
		}
		if d.errorPage != "" {
			errorNode[id] = add(d.errorPage)
		}
	}

	for _, id := range ids {
		d := dirs[id]
		if d.page == "" {
			continue
		}
		entry := Entry{
			Pattern:    id,
			Page:       add(d.page),
			ServerData: d.pageServer,
		}

		for _, ancestor := range ancestors(id, dirs) {
			l, hasLayout := layoutNode[ancestor]
			e, hasError := errorNode[ancestor]
			if !hasLayout && !hasError {
				continue
			}
			if !hasLayout {
				l = NoNode
			}
			if !hasError {
				e = NoNode
			}
			entry.Layouts = append(entry.Layouts, l)
			entry.Errors = append(entry.Errors, e)
		}
		entry.Layouts = trimHoles(entry.Layouts)
		entry.Errors = trimHoles(entry.Errors)

		m.Dictionary[id] = entry
	}

	return m
}

// ancestors returns the non-root directories from the outermost down to id itself.
func ancestors(id string, dirs map[string]*routeDir) []string {
	var chain []string
	for cur := id; cur != "/" && cur != ""; {
		chain = append(chain, cur)
		d, ok := dirs[cur]
		if !ok {
			break
		}
		cur = d.parent
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

func trimHoles(nodes []int) []int {
	end := len(nodes)
	for end > 0 && nodes[end-1] == NoNode {
		end--
	}
	if end == 0 {
		return nil
	}
	return nodes[:end]
}

func defaultSource(source, fallback string) string {
	if source == "" {
		return fallback
	}
	return source
}

// Exists reports whether dir exists and is a directory.
func Exists(dir string) bool {
	info, err := os.Stat(dir)
	return err == nil && info.IsDir()
}
