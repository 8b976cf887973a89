package manifest

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vango-dev/routemap/pkg/routepath"
)

// ValidationErrorType categorizes validation errors.
type ValidationErrorType string

const (
	// ErrorDuplicateRoute indicates two patterns match exactly the same paths.
	// Example: /(app)/login and /(auth)/login, or /a/[id] and /a/[x].
	ErrorDuplicateRoute ValidationErrorType = "DUPLICATE_ROUTE"

	// ErrorAmbiguousRoute indicates optional parameters make two routes
	// match the same concrete path.
	// Example: /[[lang]]/about and /about both match /about.
	ErrorAmbiguousRoute ValidationErrorType = "AMBIGUOUS_ROUTE"

	// ErrorNodeOutOfRange indicates an entry references a node that does not exist.
	ErrorNodeOutOfRange ValidationErrorType = "NODE_OUT_OF_RANGE"

	// ErrorInvalidPattern indicates a dictionary key is not a valid pattern.
	ErrorInvalidPattern ValidationErrorType = "INVALID_PATTERN"
)

// Code returns the diagnostic code used by the CLI for this error type.
func (t ValidationErrorType) Code() string {
	switch t {
	case ErrorDuplicateRoute:
		return "R010"
	case ErrorAmbiguousRoute:
		return "R011"
	case ErrorNodeOutOfRange:
		return "R012"
	default:
		return "R014"
	}
}

// ValidationError represents one manifest problem.
type ValidationError struct {
	Type ValidationErrorType

	// Message is the human-readable error message.
	Message string

	// Patterns are the dictionary keys involved.
	Patterns []string

	// Details contains additional error-specific information.
	Details string
}

func (e ValidationError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// MultiValidationError wraps multiple validation errors.
type MultiValidationError struct {
	Errors []ValidationError
}

func (e *MultiValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "no validation errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d manifest validation errors:\n", len(e.Errors))
	for i, err := range e.Errors {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}
	return sb.String()
}

// Has reports whether any error of the given type was found.
func (e *MultiValidationError) Has(t ValidationErrorType) bool {
	for _, err := range e.Errors {
		if err.Type == t {
			return true
		}
	}
	return false
}

// Validate checks a manifest for malformed patterns, duplicate or ambiguous
// routes and out-of-range node references. It returns nil or a
// *MultiValidationError listing every problem, ordered by pattern.
func Validate(m *Manifest) error {
	v := &validator{m: m}
	v.validatePatterns()
	v.validateNodes()
	v.validateDuplicates()

	if len(v.errors) > 0 {
		return &MultiValidationError{Errors: v.errors}
	}
	return nil
}

type validator struct {
	m      *Manifest
	parsed map[string][]routepath.Segment
	errors []ValidationError
}

func (v *validator) add(err ValidationError) {
	v.errors = append(v.errors, err)
}

func (v *validator) sortedPatterns() []string {
	patterns := make([]string, 0, len(v.m.Dictionary))
	for p := range v.m.Dictionary {
		patterns = append(patterns, p)
	}
	sort.Strings(patterns)
	return patterns
}

func (v *validator) validatePatterns() {
	v.parsed = make(map[string][]routepath.Segment, len(v.m.Dictionary))
	for _, pattern := range v.sortedPatterns() {
		segs, err := routepath.ParsePattern(pattern)
		if err != nil {
			v.add(ValidationError{
				Type:     ErrorInvalidPattern,
				Message:  "Invalid route pattern",
				Patterns: []string{pattern},
				Details:  err.Error(),
			})
			continue
		}
		v.parsed[pattern] = segs
	}
}

func (v *validator) validateNodes() {
	count := len(v.m.Nodes)

	if len(v.m.Dictionary) > 0 && count <= RootError {
		v.add(ValidationError{
			Type:    ErrorNodeOutOfRange,
			Message: "Node index out of range",
			Details: fmt.Sprintf("root layout and error nodes require at least 2 nodes, manifest has %d", count),
		})
	}

	check := func(pattern, role string, n int) {
		if n == NoNode && role != "page" {
			return
		}
		if n < 0 || n >= count {
			v.add(ValidationError{
				Type:     ErrorNodeOutOfRange,
				Message:  "Node index out of range",
				Patterns: []string{pattern},
				Details:  fmt.Sprintf("%s references node %d, manifest has %d nodes", role, n, count),
			})
		}
	}

	for _, pattern := range v.sortedPatterns() {
		e := v.m.Dictionary[pattern]
		check(pattern, "page", e.Page)
		for _, n := range e.Layouts {
			check(pattern, "layout", n)
		}
		for _, n := range e.Errors {
			check(pattern, "error", n)
		}
	}

	for _, n := range v.m.ServerLoads {
		check("", "server load", n)
	}
}

// validateDuplicates groups patterns by their normalized shape. Optional
// parameters are expanded so that /[[lang]]/about collides with /about.
func (v *validator) validateDuplicates() {
	type origin struct {
		pattern  string
		expanded bool
	}
	byShape := make(map[string][]origin)

	for _, pattern := range v.sortedPatterns() {
		segs, ok := v.parsed[pattern]
		if !ok {
			continue
		}
		variants := ExpandOptional(segs)
		seen := make(map[string]bool, len(variants))
		for i, variant := range variants {
			shape := routepath.Normalize(variant)
			if seen[shape] {
				continue
			}
			seen[shape] = true
			byShape[shape] = append(byShape[shape], origin{pattern: pattern, expanded: i > 0 || len(variants) > 1})
		}
	}

	shapes := make([]string, 0, len(byShape))
	for s := range byShape {
		shapes = append(shapes, s)
	}
	sort.Strings(shapes)

	reported := make(map[string]bool)
	for _, shape := range shapes {
		origins := byShape[shape]
		if len(origins) <= 1 {
			continue
		}

		var patterns []string
		expanded := false
		for _, o := range origins {
			patterns = append(patterns, o.pattern)
			expanded = expanded || o.expanded
		}
		key := strings.Join(patterns, "\x00")
		if reported[key] {
			continue
		}
		reported[key] = true

		if expanded {
			v.add(ValidationError{
				Type:     ErrorAmbiguousRoute,
				Message:  "Ambiguous parameter routes",
				Patterns: patterns,
				Details:  fmt.Sprintf("%s all match %s", strings.Join(patterns, ", "), shape),
			})
			continue
		}
		v.add(ValidationError{
			Type:     ErrorDuplicateRoute,
			Message:  "Duplicate route pattern",
			Patterns: patterns,
			Details:  fmt.Sprintf("%s resolve to %s", strings.Join(patterns, ", "), shape),
		})
	}
}

// ExpandOptional returns every concrete segment list an optional-parameter
// pattern can take, longest first. Patterns without optional segments yield
// themselves.
func ExpandOptional(segs []routepath.Segment) [][]routepath.Segment {
	variants := [][]routepath.Segment{nil}
	for _, seg := range segs {
		if seg.Kind != routepath.Optional {
			for i := range variants {
				variants[i] = append(variants[i], seg)
			}
			continue
		}
		next := make([][]routepath.Segment, 0, len(variants)*2)
		for _, v := range variants {
			with := append(append([]routepath.Segment{}, v...), routepath.Segment{Kind: routepath.Param, Name: seg.Name, Matcher: seg.Matcher})
			without := append([]routepath.Segment{}, v...)
			next = append(next, with, without)
		}
		variants = next
	}
	return variants
}

// SortBySpecificity sorts entries so that more specific patterns come first.
// Ties are broken by pattern text so the order is deterministic.
func SortBySpecificity(entries []Entry) {
	scores := make(map[string]int, len(entries))
	for _, e := range entries {
		scores[e.Pattern] = Specificity(e.Pattern)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		si, sj := scores[entries[i].Pattern], scores[entries[j].Pattern]
		if si != sj {
			return si > sj
		}
		return entries[i].Pattern < entries[j].Pattern
	})
}

// Specificity returns a numeric score for a pattern.
// Higher scores are more specific: static > matcher param > plain param >
// optional > rest. Invalid patterns score 0.
func Specificity(pattern string) int {
	segs, err := routepath.ParsePattern(pattern)
	if err != nil {
		return 0
	}

	score := len(segs) * 100
	for _, seg := range segs {
		switch seg.Kind {
		case routepath.Static:
			score += 50
		case routepath.Param:
			if seg.Matcher != "" {
				score += 20
			} else {
				score += 10
			}
		case routepath.Optional:
			score += 5
		case routepath.Rest:
			score -= 99
		}
	}
	return score
}
