// Package tree provides a generic, path-addressable transformation engine
// for JSON-like values built from maps, lists, and scalars.
//
// It combines three pieces:
//   - Path: a structural address into a nested value (map keys and list indices).
//   - Walk / WalkAt / WalkAll: post-order structural traversal producing
//     transformed copies, never mutating the input.
//   - CoerceTypes: a leaf-level policy that rewrites string scalars which look
//     like booleans or integers into their typed equivalents.
package tree
