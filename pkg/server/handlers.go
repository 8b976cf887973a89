package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	rerrors "github.com/vango-dev/routemap/internal/errors"
	"github.com/vango-dev/routemap/pkg/dispatch"
	"github.com/vango-dev/routemap/pkg/loader"
	"github.com/vango-dev/routemap/pkg/router"
)

type routeInfo struct {
	Pattern    string `json:"pattern"`
	Page       int    `json:"page"`
	Layouts    []int  `json:"layouts"`
	Errors     []int  `json:"errors"`
	ServerData bool   `json:"serverData"`
}

type moduleInfo struct {
	Index    int        `json:"index"`
	ID       string     `json:"id"`
	State    string     `json:"state"`
	Size     int        `json:"size,omitempty"`
	LoadedAt *time.Time `json:"loadedAt,omitempty"`
}

type resolveInfo struct {
	Path        string            `json:"path"`
	Pattern     string            `json:"pattern"`
	Params      map[string]string `json:"params"`
	Page        moduleInfo        `json:"page"`
	Layouts     []moduleInfo      `json:"layouts"`
	ErrorNodes  []int             `json:"errorNodes"`
	ServerData  bool              `json:"serverData"`
	ServerLoads []int             `json:"serverLoads,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRoutes(w http.ResponseWriter, r *http.Request) {
	entries := s.dispatcher.Router().Table().Entries()
	out := make([]routeInfo, len(entries))
	for i, e := range entries {
		out[i] = routeInfo{
			Pattern:    e.Pattern,
			Page:       e.Page,
			Layouts:    e.LayoutChain(),
			Errors:     e.ErrorChain(),
			ServerData: e.ServerData,
		}
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	path, ok := s.pathParam(w, r)
	if !ok {
		return
	}

	m, err := s.dispatcher.Match(path)
	if err != nil {
		s.respondError(w, statusFor(err), err)
		return
	}
	respondJSON(w, http.StatusOK, m)
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	path, ok := s.pathParam(w, r)
	if !ok {
		return
	}

	res, err := s.dispatcher.Resolve(r.Context(), path)
	if err != nil {
		s.respondError(w, statusFor(err), err)
		return
	}

	out := resolveInfo{
		Path:        res.Path,
		Pattern:     res.Pattern,
		Params:      res.Params,
		Page:        moduleInfoFor(res.Page),
		Layouts:     make([]moduleInfo, len(res.Layouts)),
		ErrorNodes:  res.ErrorNodes,
		ServerData:  res.ServerData,
		ServerLoads: res.ServerLoads,
	}
	for i, l := range res.Layouts {
		out.Layouts[i] = moduleInfoFor(l)
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handlePreload(w http.ResponseWriter, r *http.Request) {
	path, ok := s.pathParam(w, r)
	if !ok {
		return
	}
	if err := s.dispatcher.Preload(r.Context(), path); err != nil {
		s.respondError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleNodes(w http.ResponseWriter, r *http.Request) {
	table := s.dispatcher.Router().Table()
	out := make([]moduleInfo, table.NodeCount())
	for i := range out {
		out[i] = s.nodeInfo(i)
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleNode(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, errors.New("node index must be an integer"))
		return
	}
	if _, ok := s.dispatcher.Router().Table().Node(index); !ok {
		s.respondError(w, http.StatusNotFound, &loader.LoadError{Index: index, Err: loader.ErrUnknownNode})
		return
	}
	respondJSON(w, http.StatusOK, s.nodeInfo(index))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.dispatcher.Cache().Stats())
}

func (s *Server) nodeInfo(i int) moduleInfo {
	cache := s.dispatcher.Cache()
	if m, ok := cache.Resolved(i); ok {
		return moduleInfoFor(m)
	}
	id, _ := s.dispatcher.Router().Table().Node(i)
	return moduleInfo{Index: i, ID: id, State: cache.State(i).String()}
}

func (s *Server) pathParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	path := r.URL.Query().Get("path")
	if path == "" {
		s.respondError(w, http.StatusBadRequest, errors.New("missing path query parameter"))
		return "", false
	}
	return path, true
}

func moduleInfoFor(m *loader.Module) moduleInfo {
	loadedAt := m.LoadedAt
	return moduleInfo{
		Index:    m.Index,
		ID:       m.ID,
		State:    loader.Resolved.String(),
		Size:     m.Size(),
		LoadedAt: &loadedAt,
	}
}

// statusFor maps dispatch errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, dispatch.ErrNoMatch):
		return http.StatusNotFound
	case errors.Is(err, router.ErrInvalidPath):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondJSON writes a JSON response with the given status code and data.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// routeError gives module load failures the R030 code. Errors that
// already carry a code are returned unchanged.
func routeError(err error) error {
	var (
		le *loader.LoadError
		re *rerrors.RouteError
	)
	if !errors.As(err, &le) || errors.As(err, &re) {
		return err
	}
	return rerrors.New("R030").WithDetail(fmt.Sprintf("node %d", le.Index)).Wrap(err)
}

// respondError logs the error and writes {"error": "<message>"}, plus
// "code" when the error carries a route error code.
func (s *Server) respondError(w http.ResponseWriter, status int, err error) {
	err = routeError(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("handler error", "error", err, "status", status)
	}

	body := map[string]string{"error": err.Error()}
	var re *rerrors.RouteError
	if errors.As(err, &re) && re.Code != "" {
		body["code"] = re.Code
	}
	respondJSON(w, status, body)
}
