package marshal

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Segment is one step of a Path: either an object key or an array index.
type Segment struct {
	key     string
	index   int
	isIndex bool
}

// Key returns a segment addressing an object property.
func Key(name string) Segment { return Segment{key: name} }

// Index returns a segment addressing an array element.
func Index(i int) Segment { return Segment{index: i, isIndex: true} }

// IsIndex reports whether the segment addresses an array element.
func (s Segment) IsIndex() bool { return s.isIndex }

// Name reports the object key; empty for index segments.
func (s Segment) Name() string { return s.key }

// Position reports the array index; zero for key segments.
func (s Segment) Position() int { return s.index }

func (s Segment) String() string {
	if s.isIndex {
		return fmt.Sprintf("[%d]", s.index)
	}
	return "." + s.key
}

// MarshalJSON encodes key segments as strings and index segments as
// numbers, matching the wire form of descriptor paths.
func (s Segment) MarshalJSON() ([]byte, error) {
	if s.isIndex {
		return json.Marshal(s.index)
	}
	return json.Marshal(s.key)
}

// UnmarshalJSON decodes the untagged wire form.
func (s *Segment) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch t := raw.(type) {
	case string:
		*s = Key(t)
	case float64:
		if t != float64(int(t)) || t < 0 {
			return fmt.Errorf("path index must be a non-negative integer, got %v", t)
		}
		*s = Index(int(t))
	default:
		return fmt.Errorf("path segment must be a string or integer, got %T", raw)
	}
	return nil
}

// compare orders index segments before key segments, indexes
// numerically and keys lexicographically.
func (s Segment) compare(other Segment) int {
	switch {
	case s.isIndex && !other.isIndex:
		return -1
	case !s.isIndex && other.isIndex:
		return 1
	case s.isIndex:
		switch {
		case s.index < other.index:
			return -1
		case s.index > other.index:
			return 1
		}
		return 0
	}
	return strings.Compare(s.key, other.key)
}

// Path addresses a location inside a nested value. The empty path is
// the root.
type Path []Segment

// String renders the path rooted at "$".
func (p Path) String() string {
	var b strings.Builder
	b.WriteString("$")
	for _, s := range p {
		b.WriteString(s.String())
	}
	return b.String()
}

// Child returns a new path extended by one segment. The receiver is
// never aliased.
func (p Path) Child(s Segment) Path {
	child := make(Path, len(p)+1)
	copy(child, p)
	child[len(p)] = s
	return child
}

// Clone returns an independent copy.
func (p Path) Clone() Path {
	c := make(Path, len(p))
	copy(c, p)
	return c
}

// Equal reports segment-wise equality.
func (p Path) Equal(other Path) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i].compare(other[i]) != 0 {
			return false
		}
	}
	return true
}

// HasPrefix reports whether prefix is a (non-strict) prefix of p.
func (p Path) HasPrefix(prefix Path) bool {
	if len(prefix) > len(p) {
		return false
	}
	for i := range prefix {
		if p[i].compare(prefix[i]) != 0 {
			return false
		}
	}
	return true
}

// ComparePaths orders shorter paths first; equal-length paths compare
// segment by segment.
func ComparePaths(a, b Path) int {
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	}
	for i := range a {
		if c := a[i].compare(b[i]); c != 0 {
			return c
		}
	}
	return 0
}
