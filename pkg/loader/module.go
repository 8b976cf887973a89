package loader

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Module is a loaded route module.
type Module struct {
	// Index is the node index in the manifest.
	Index int

	// ID is the module identifier, e.g. "nodes/28.js".
	ID string

	// Source is the module content.
	Source []byte

	// LoadedAt is when the load completed.
	LoadedAt time.Time
}

// Size returns the module size in bytes.
func (m *Module) Size() int {
	return len(m.Source)
}

// LoadFunc loads one module.
type LoadFunc func(ctx context.Context) (*Module, error)

var (
	// ErrUnknownNode is wrapped by LoadError for indices outside the manifest.
	ErrUnknownNode = errors.New("unknown node")

	// ErrModuleNotFound is returned by sources when a module does not exist.
	ErrModuleNotFound = errors.New("module not found")
)

// LoadError reports a failed module load.
type LoadError struct {
	Index int
	ID    string
	Err   error
}

func (e *LoadError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("loading node %d (%s): %v", e.Index, e.ID, e.Err)
	}
	return fmt.Sprintf("loading node %d: %v", e.Index, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// State is the load state of a node.
type State int

const (
	Unresolved State = iota // Never requested
	Loading                 // Load in flight
	Resolved                // Loaded and cached
	Failed                  // Last attempt failed; next request retries
)

func (s State) String() string {
	switch s {
	case Unresolved:
		return "unresolved"
	case Loading:
		return "loading"
	case Resolved:
		return "resolved"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}
