// Package symbol provides hierarchical symbol paths and a concurrent,
// radix-trie-indexed namespace over them.
package symbol

import (
	"log/slog"
	"strings"
)

// Path is an ordered sequence of non-empty segments. The root path is the
// empty sequence. Segments may contain only [A-Za-z0-9_].
type Path struct {
	segments []string
}

// Root is the empty path.
var Root = Path{}

func isValidSegment(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '_') {
			return false
		}
	}
	return true
}

// Parse parses dot-joined text into a Path. An empty string parses to Root.
// A.. b (empty segment) and any non [A-Za-z0-9_] character are errors.
func Parse(text string) (Path, error) {
	if text == "" {
		return Root, nil
	}
	parts := strings.Split(text, ".")
	segs := make([]string, len(parts))
	for i, p := range parts {
		if !isValidSegment(p) {
			return Path{}, &InvalidPathError{Text: text, Segment: p}
		}
		segs[i] = p
	}
	return Path{segments: segs}, nil
}

// MustParse parses text and panics on error. Intended for use with
// compile-time-known literal paths (tests, constants).
func MustParse(text string) Path {
	p, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return p
}

// New builds a Path from pre-validated segments, erroring if any segment is
// invalid.
func New(segments ...string) (Path, error) {
	for _, s := range segments {
		if !isValidSegment(s) {
			return Path{}, &InvalidPathError{Text: strings.Join(segments, "."), Segment: s}
		}
	}
	cp := append([]string(nil), segments...)
	return Path{segments: cp}, nil
}

// Single builds a one-segment path.
func Single(segment string) (Path, error) {
	return New(segment)
}

// Segments returns a copy of the path's segments.
func (p Path) Segments() []string {
	return append([]string(nil), p.segments...)
}

// Len returns the number of segments.
func (p Path) Len() int {
	return len(p.segments)
}

// IsEmpty reports whether p is the root path.
func (p Path) IsEmpty() bool {
	return len(p.segments) == 0
}

// Last returns the final segment, or "" for the root path.
func (p Path) Last() string {
	if len(p.segments) == 0 {
		return ""
	}
	return p.segments[len(p.segments)-1]
}

// First returns the first segment, or "" for the root path.
func (p Path) First() string {
	if len(p.segments) == 0 {
		return ""
	}
	return p.segments[0]
}

// Parent returns the path with its last segment removed. Calling Parent on
// Root returns Root.
func (p Path) Parent() Path {
	if len(p.segments) == 0 {
		return Root
	}
	return Path{segments: append([]string(nil), p.segments[:len(p.segments)-1]...)}
}

// Child appends a segment, returning the child path.
func (p Path) Child(segment string) Path {
	segs := append(append([]string(nil), p.segments...), segment)
	return Path{segments: segs}
}

// Extend appends another path's segments.
func (p Path) Extend(other Path) Path {
	segs := append(append([]string(nil), p.segments...), other.segments...)
	return Path{segments: segs}
}

// IsPrefixOf reports whether p is a (non-strict) prefix of other — i.e.
// other is p or a descendant of p.
func (p Path) IsPrefixOf(other Path) bool {
	if len(p.segments) > len(other.segments) {
		return false
	}
	for i, s := range p.segments {
		if other.segments[i] != s {
			return false
		}
	}
	return true
}

// IsAncestorOf reports whether p is a strict ancestor of other.
func (p Path) IsAncestorOf(other Path) bool {
	return len(p.segments) < len(other.segments) && p.IsPrefixOf(other)
}

// IsDescendantOf reports whether p is a strict descendant of other.
func (p Path) IsDescendantOf(other Path) bool {
	return other.IsAncestorOf(p)
}

// Overlaps reports whether p and other are equal, or either is an ancestor
// of the other.
func (p Path) Overlaps(other Path) bool {
	return p.IsPrefixOf(other) || other.IsPrefixOf(p)
}

// CommonPrefix returns the longest path that is a prefix of both p and other.
func (p Path) CommonPrefix(other Path) Path {
	n := len(p.segments)
	if len(other.segments) < n {
		n = len(other.segments)
	}
	i := 0
	for i < n && p.segments[i] == other.segments[i] {
		i++
	}
	return Path{segments: append([]string(nil), p.segments[:i]...)}
}

// RelativeTo returns the segments of p beyond ancestor, or an error if
// ancestor is not a prefix of p.
func (p Path) RelativeTo(ancestor Path) (Path, error) {
	if !ancestor.IsPrefixOf(p) {
		return Path{}, &NotAncestorError{Path: p, Ancestor: ancestor}
	}
	return Path{segments: append([]string(nil), p.segments[len(ancestor.segments):]...)}, nil
}

// Equal reports whether p and other have identical segments.
func (p Path) Equal(other Path) bool {
	if len(p.segments) != len(other.segments) {
		return false
	}
	for i, s := range p.segments {
		if other.segments[i] != s {
			return false
		}
	}
	return true
}

// String returns the dot-joined text form.
func (p Path) String() string {
	return strings.Join(p.segments, ".")
}

// Key returns the slash-joined trie key form.
func (p Path) Key() string {
	return strings.Join(p.segments, "/")
}

// LogValue implements slog.LogValuer.
func (p Path) LogValue() slog.Value {
	return slog.StringValue(p.String())
}

// InvalidPathError reports a malformed path text.
type InvalidPathError struct {
	Text    string
	Segment string
}

func (e *InvalidPathError) Error() string {
	if e.Segment == "" {
		return "symbol: invalid path " + quote(e.Text) + ": empty segment"
	}
	return "symbol: invalid path " + quote(e.Text) + ": bad segment " + quote(e.Segment)
}

// NotAncestorError reports a RelativeTo call where ancestor does not prefix path.
type NotAncestorError struct {
	Path     Path
	Ancestor Path
}

func (e *NotAncestorError) Error() string {
	return "symbol: " + quote(e.Ancestor.String()) + " is not an ancestor of " + quote(e.Path.String())
}

func quote(s string) string {
	return `"` + s + `"`
}
