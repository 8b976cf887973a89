package manifest

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func nodes(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = "n"
	}
	return out
}

func validationErrors(t *testing.T, err error) *MultiValidationError {
	t.Helper()
	if err == nil {
		t.Fatal("expected validation error")
	}
	var multi *MultiValidationError
	if !errors.As(err, &multi) {
		t.Fatalf("expected *MultiValidationError, got %T", err)
	}
	return multi
}

func TestValidateFixture(t *testing.T) {
	m, err := Load(filepath.Join("testdata", "crm.json"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := Validate(m); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestValidateNodeOutOfRange(t *testing.T) {
	m, err := Load(filepath.Join("testdata", "crm.json"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	// The last route references node 58; drop it from the node list.
	m.Nodes = m.Nodes[:58]

	multi := validationErrors(t, Validate(m))
	if len(multi.Errors) != 1 {
		t.Fatalf("got %d errors, want 1: %v", len(multi.Errors), multi)
	}
	got := multi.Errors[0]
	if got.Type != ErrorNodeOutOfRange {
		t.Errorf("Type = %s, want %s", got.Type, ErrorNodeOutOfRange)
	}
	if len(got.Patterns) != 1 || got.Patterns[0] != "/users/stats" {
		t.Errorf("Patterns = %v, want [/users/stats]", got.Patterns)
	}
	if got.Type.Code() != "R012" {
		t.Errorf("Code() = %s, want R012", got.Type.Code())
	}
}

func TestValidateNodeRoles(t *testing.T) {
	m := &Manifest{
		Nodes:       nodes(4),
		ServerLoads: []int{9},
		Dictionary: map[string]Entry{
			"/a": {Page: 2, Layouts: []int{NoNode, 3}, Errors: []int{NoNode}},
			"/b": {Page: 2, Layouts: []int{7}},
			"/c": {Page: NoNode},
		},
	}

	multi := validationErrors(t, Validate(m))
	if len(multi.Errors) != 3 {
		t.Fatalf("got %d errors, want 3: %v", len(multi.Errors), multi)
	}
	for _, e := range multi.Errors {
		if e.Type != ErrorNodeOutOfRange {
			t.Errorf("unexpected error %v", e)
		}
	}
}

func TestValidateRequiresRootNodes(t *testing.T) {
	m := &Manifest{
		Nodes:      nodes(1),
		Dictionary: map[string]Entry{"/": {Page: 0}},
	}
	multi := validationErrors(t, Validate(m))
	if !multi.Has(ErrorNodeOutOfRange) {
		t.Errorf("expected NODE_OUT_OF_RANGE, got %v", multi)
	}

	empty := &Manifest{}
	if err := Validate(empty); err != nil {
		t.Errorf("empty manifest: Validate() error = %v", err)
	}
}

func TestValidateRoutes(t *testing.T) {
	tests := []struct {
		name     string
		patterns []string
		want     ValidationErrorType
	}{
		{"groups elided", []string{"/(app)/login", "/(auth)/login"}, ErrorDuplicateRoute},
		{"param names", []string{"/liste/modifier/[id]", "/liste/modifier/[list_id]"}, ErrorDuplicateRoute},
		{"optional", []string{"/[[lang]]/about", "/about"}, ErrorAmbiguousRoute},
		{"optional param", []string{"/[[lang]]", "/[page]"}, ErrorAmbiguousRoute},
		{"no leading slash", []string{"liste"}, ErrorInvalidPattern},
		{"mixed segment", []string{"/item-[id]"}, ErrorInvalidPattern},
		{"repeated param", []string{"/[id]/x/[id]"}, ErrorInvalidPattern},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Manifest{Nodes: nodes(3), Dictionary: map[string]Entry{}}
			for _, p := range tt.patterns {
				m.Dictionary[p] = Entry{Page: 2}
			}

			multi := validationErrors(t, Validate(m))
			if len(multi.Errors) != 1 {
				t.Fatalf("got %d errors, want 1: %v", len(multi.Errors), multi)
			}
			if multi.Errors[0].Type != tt.want {
				t.Errorf("Type = %s, want %s", multi.Errors[0].Type, tt.want)
			}
		})
	}
}

func TestValidateDistinctRoutes(t *testing.T) {
	m := &Manifest{
		Nodes: nodes(3),
		Dictionary: map[string]Entry{
			"/liste/details/[list_id]":      {Page: 2},
			"/liste/list-details/[list_id]": {Page: 2},
			"/liste/[id=integer]":           {Page: 2},
			"/liste/[slug]":                 {Page: 2},
			"/liste/dnc":                    {Page: 2},
			"/docs/[...path]":               {Page: 2},
			"/docs/[...path]/edit":          {Page: 2},
		},
	}
	if err := Validate(m); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestMultiValidationErrorMessage(t *testing.T) {
	err := &MultiValidationError{Errors: []ValidationError{
		{Type: ErrorDuplicateRoute, Message: "Duplicate route pattern"},
		{Type: ErrorInvalidPattern, Message: "Invalid route pattern", Details: "bad"},
	}}

	msg := err.Error()
	if !strings.Contains(msg, "2 manifest validation errors") {
		t.Errorf("Error() = %q", msg)
	}
	if !strings.Contains(msg, "INVALID_PATTERN: Invalid route pattern (bad)") {
		t.Errorf("Error() = %q", msg)
	}
	if !err.Has(ErrorDuplicateRoute) || err.Has(ErrorAmbiguousRoute) {
		t.Error("Has() mismatch")
	}
}

func TestSortBySpecificity(t *testing.T) {
	entries := []Entry{
		{Pattern: "/[...rest]"},
		{Pattern: "/a/[id]"},
		{Pattern: "/[[lang]]/a"},
		{Pattern: "/a/b"},
		{Pattern: "/a/[id=integer]"},
	}
	SortBySpecificity(entries)

	want := []string{"/a/b", "/a/[id=integer]", "/a/[id]", "/[[lang]]/a", "/[...rest]"}
	for i, e := range entries {
		if e.Pattern != want[i] {
			t.Errorf("entries[%d] = %s, want %s", i, e.Pattern, want[i])
		}
	}
}

func TestExpandOptional(t *testing.T) {
	variants := ExpandOptional(mustParse(t, "/[[lang]]/docs/[[page]]"))
	if len(variants) != 4 {
		t.Fatalf("got %d variants, want 4", len(variants))
	}
	if got := len(variants[0]); got != 3 {
		t.Errorf("first variant has %d segments, want 3", got)
	}
	if got := len(variants[3]); got != 1 {
		t.Errorf("last variant has %d segments, want 1", got)
	}
}
