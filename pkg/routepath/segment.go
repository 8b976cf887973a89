package routepath

import (
	"errors"
	"fmt"
	"strings"
)

// SegmentKind classifies a route pattern segment.
type SegmentKind int

const (
	// Static matches its literal text exactly.
	Static SegmentKind = iota
	// Param matches exactly one path segment: [name] or [name=matcher].
	Param
	// Optional matches zero or one path segment: [[name]].
	Optional
	// Rest matches zero or more path segments: [...name].
	Rest
)

// String returns a short name for the kind.
func (k SegmentKind) String() string {
	switch k {
	case Static:
		return "static"
	case Param:
		return "param"
	case Optional:
		return "optional"
	case Rest:
		return "rest"
	default:
		return fmt.Sprintf("SegmentKind(%d)", int(k))
	}
}

// Segment is one parsed piece of a route pattern.
type Segment struct {
	Kind SegmentKind

	// Value is the literal text of a static segment.
	Value string

	// Name is the parameter name for dynamic segments.
	Name string

	// Matcher is the optional matcher name from [name=matcher].
	Matcher string
}

// String renders the segment back into pattern syntax.
func (s Segment) String() string {
	inner := s.Name
	if s.Matcher != "" {
		inner += "=" + s.Matcher
	}
	switch s.Kind {
	case Param:
		return "[" + inner + "]"
	case Optional:
		return "[[" + inner + "]]"
	case Rest:
		return "[..." + inner + "]"
	default:
		return s.Value
	}
}

// Dynamic reports whether the segment binds a parameter.
func (s Segment) Dynamic() bool {
	return s.Kind != Static
}

// ErrInvalidPattern is returned for malformed route patterns.
var ErrInvalidPattern = errors.New("invalid route pattern")

// IsGroup reports whether a pattern segment is a layout group like "(app)".
// Groups share layouts but never appear in URLs.
func IsGroup(seg string) bool {
	return len(seg) > 2 && strings.HasPrefix(seg, "(") && strings.HasSuffix(seg, ")")
}

// ParseSegment parses a single pattern segment.
func ParseSegment(seg string) (Segment, error) {
	if seg == "" {
		return Segment{}, fmt.Errorf("%w: empty segment", ErrInvalidPattern)
	}

	if !strings.ContainsAny(seg, "[]") {
		return Segment{Kind: Static, Value: seg}, nil
	}

	var kind SegmentKind
	var inner string
	switch {
	case strings.HasPrefix(seg, "[[") && strings.HasSuffix(seg, "]]"):
		kind, inner = Optional, seg[2:len(seg)-2]
	case strings.HasPrefix(seg, "[...") && strings.HasSuffix(seg, "]"):
		kind, inner = Rest, seg[4:len(seg)-1]
	case strings.HasPrefix(seg, "[") && strings.HasSuffix(seg, "]"):
		kind, inner = Param, seg[1:len(seg)-1]
	default:
		return Segment{}, fmt.Errorf("%w: %q mixes text and parameters", ErrInvalidPattern, seg)
	}

	name, matcher, _ := strings.Cut(inner, "=")
	if !validName(name) {
		return Segment{}, fmt.Errorf("%w: bad parameter name in %q", ErrInvalidPattern, seg)
	}
	if matcher != "" && !validName(matcher) {
		return Segment{}, fmt.Errorf("%w: bad matcher name in %q", ErrInvalidPattern, seg)
	}

	return Segment{Kind: kind, Name: name, Matcher: matcher}, nil
}

// ParsePattern parses a full route pattern such as "/liste/details/[list_id]".
// Group segments are dropped. The root pattern yields no segments.
func ParsePattern(pattern string) ([]Segment, error) {
	if !strings.HasPrefix(pattern, "/") {
		return nil, fmt.Errorf("%w: %q must start with /", ErrInvalidPattern, pattern)
	}

	var segments []Segment
	seen := make(map[string]bool)

	for _, raw := range SplitSegments(pattern) {
		if IsGroup(raw) {
			continue
		}
		seg, err := ParseSegment(raw)
		if err != nil {
			return nil, err
		}
		if seg.Dynamic() {
			if seen[seg.Name] {
				return nil, fmt.Errorf("%w: parameter %q repeated in %q", ErrInvalidPattern, seg.Name, pattern)
			}
			seen[seg.Name] = true
		}
		segments = append(segments, seg)
	}

	return segments, nil
}

// Normalize returns the URL-visible form of a pattern: groups removed,
// parameter names replaced by their kind so that "/a/[id]" and "/a/[x]"
// normalize identically. Matchers are kept since they change what matches.
func Normalize(segments []Segment) string {
	if len(segments) == 0 {
		return "/"
	}
	var b strings.Builder
	for _, seg := range segments {
		b.WriteByte('/')
		switch seg.Kind {
		case Static:
			b.WriteString(seg.Value)
		case Param:
			b.WriteString("[=" + seg.Matcher + "]")
		case Optional:
			b.WriteString("[[=" + seg.Matcher + "]]")
		case Rest:
			b.WriteString("[...=" + seg.Matcher + "]")
		}
	}
	return b.String()
}

func validName(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || r == '-':
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
