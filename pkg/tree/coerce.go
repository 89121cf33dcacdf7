package tree

import (
	"strconv"
	"strings"
)

// CoerceTypes rewrites string scalars that look like booleans or integers
// into their typed equivalents, leaving everything else unchanged:
//
//   - "true" / "false" (case-insensitive) become booleans.
//   - Strings composed entirely of decimal digits become ints, so "007"
//     becomes 7.
//
// Coercion applies to every string leaf, including fields where a digit
// string is semantically a string, such as an annotation value. That is the
// established contract for manifests handled here; callers that need a
// literal digit string must quote it some other way.
//
// CoerceTypes is idempotent and never mutates its input.
func CoerceTypes(v any) any {
	return WalkAll(v, coerceScalar)
}

func coerceScalar(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}

	switch strings.ToLower(s) {
	case "true":
		return true
	case "false":
		return false
	}

	if !isDecimalDigits(s) {
		return v
	}

	n, err := strconv.Atoi(s)
	if err != nil {
		// Digit string too large for int; leave it as-is.
		return v
	}

	return n
}

func isDecimalDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}

	return true
}
