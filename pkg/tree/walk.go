package tree

// VisitFunc is invoked once per node during a [Walk], post-order: children
// are already transformed when the parent's visit fires. It receives the
// node's address and its transformed subtree, and returns the replacement.
type VisitFunc func(path Path, value any) any

// Walk traverses a value built from map[string]any, []any, and scalars,
// producing a transformed copy. The input is never mutated; maps and slices
// are rebuilt on every traversal. The root is visited last, with the empty
// path.
func Walk(v any, visit VisitFunc) any {
	return walk(v, nil, visit)
}

func walk(v any, path Path, visit VisitFunc) any {
	var out any

	switch tv := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(tv))
		for k, child := range tv {
			m[k] = walk(child, appendSegment(path, KeySegment(k)), visit)
		}
		out = m
	case []any:
		s := make([]any, len(tv))
		for i, child := range tv {
			s[i] = walk(child, appendSegment(path, IndexSegment(i)), visit)
		}
		out = s
	default:
		out = v
	}

	if visit == nil {
		return out
	}

	return visit(path, out)
}

// appendSegment extends a path without sharing the backing array with
// sibling branches, so a visit callback may retain the path it was given.
func appendSegment(path Path, seg Segment) Path {
	return append(path[:len(path):len(path)], seg)
}

// WalkAt walks the whole value and applies action to the node whose address
// equals target; every other node passes through unchanged. If target matches
// no node, for example an out-of-range list index or an address inside a
// scalar, the value is returned unmodified.
func WalkAt(v any, target Path, action func(any) any) any {
	return Walk(v, func(path Path, value any) any {
		if path.Equal(target) {
			return action(value)
		}

		return value
	})
}

// WalkAll walks the whole value and applies action to every node's
// transformed subtree.
func WalkAll(v any, action func(any) any) any {
	return Walk(v, func(_ Path, value any) any {
		return action(value)
	})
}
