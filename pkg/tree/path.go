package tree

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidPath is returned when a path string cannot be parsed.
var ErrInvalidPath = errors.New("invalid path")

type segmentKind int

const (
	kindKey segmentKind = iota
	kindIndex
)

// Segment is a single step in a [Path]: either a map key or a list index.
// A key segment never equals an index segment, even when their printed
// forms coincide.
type Segment struct {
	key  string
	idx  int
	kind segmentKind
}

// KeySegment creates a map-key segment.
func KeySegment(key string) Segment {
	return Segment{key: key, kind: kindKey}
}

// IndexSegment creates a list-index segment.
func IndexSegment(idx int) Segment {
	return Segment{idx: idx, kind: kindIndex}
}

// IsIndex reports whether the segment addresses a list element.
func (s Segment) IsIndex() bool {
	return s.kind == kindIndex
}

// Equal reports whether two segments have the same kind and value.
func (s Segment) Equal(o Segment) bool {
	if s.kind != o.kind {
		return false
	}
	if s.kind == kindIndex {
		return s.idx == o.idx
	}

	return s.key == o.key
}

func (s Segment) String() string {
	if s.kind == kindIndex {
		return "[" + strconv.Itoa(s.idx) + "]"
	}

	return s.key
}

// Path is an ordered sequence of segments addressing a location inside a
// nested value. The empty path addresses the root.
type Path []Segment

// Equal reports whether two paths address the same location, comparing
// segment by segment.
func (p Path) Equal(o Path) bool {
	if len(p) != len(o) {
		return false
	}
	for i := range p {
		if !p[i].Equal(o[i]) {
			return false
		}
	}

	return true
}

func (p Path) String() string {
	var sb strings.Builder
	for i, seg := range p {
		if i > 0 && !seg.IsIndex() {
			sb.WriteByte('.')
		}
		sb.WriteString(seg.String())
	}

	return sb.String()
}

// ParsePath parses a dotted path with optional bracketed list indices, e.g.
// "metadata.labels" or "spec.containers[0].ports[1]".
//
// Key runs are split on ".", discarding empty segments at the boundaries of
// the string and of bracketed index groups. A path ending in an index yields
// no trailing placeholder segment, so "spec.containers[0]" compares equal to
// the address of the first container during traversal.
func ParsePath(s string) (Path, error) {
	var path Path

	i := 0
	for i < len(s) {
		if s[i] == '[' {
			end := strings.IndexByte(s[i:], ']')
			if end < 0 {
				return nil, fmt.Errorf("%w: unterminated index at offset %d", ErrInvalidPath, i)
			}

			idx, err := parseIndex(s[i+1 : i+end])
			if err != nil {
				return nil, fmt.Errorf("%w: index at offset %d: %w", ErrInvalidPath, i, err)
			}

			path = append(path, IndexSegment(idx))
			i += end + 1

			continue
		}

		j := i
		for j < len(s) && s[j] != '[' {
			j++
		}
		path = append(path, parseKeyRun(s[i:j])...)
		i = j
	}

	return path, nil
}

// parseKeyRun splits a run of dot-separated keys between two index groups.
// Empty segments at the run boundaries come from adjacent delimiters and are
// dropped; interior empty keys are preserved.
func parseKeyRun(run string) Path {
	run = strings.Trim(run, ".")
	if run == "" {
		return nil
	}

	parts := strings.Split(run, ".")
	segs := make(Path, 0, len(parts))
	for _, part := range parts {
		segs = append(segs, KeySegment(part))
	}

	return segs
}

func parseIndex(s string) (int, error) {
	if s == "" {
		return 0, errors.New("empty")
	}
	for k := 0; k < len(s); k++ {
		if s[k] < '0' || s[k] > '9' {
			return 0, fmt.Errorf("non-digit %q", s[k])
		}
	}

	idx, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", s, err)
	}

	return idx, nil
}
