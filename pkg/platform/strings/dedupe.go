// Package strings provides helpers for slices of string-like identifiers.
package strings

import (
	"strings"
)

// DedupeAndTrim trims each element and drops blanks and repeats, keeping the
// first occurrence.
//
//	DedupeAndTrim([]string{" a:9092", "b:9092", "a:9092", ""}) // [a:9092 b:9092]
func DedupeAndTrim[S ~string](values []S) []S {
	if len(values) == 0 {
		return values
	}

	seen := make(map[S]struct{}, len(values))
	result := make([]S, 0, len(values))
	for _, v := range values {
		trimmed := S(strings.TrimSpace(string(v)))
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; !ok {
			seen[trimmed] = struct{}{}
			result = append(result, trimmed)
		}
	}
	return result
}

// Repeated returns every value that occurs more than once, each reported
// once, ordered by its second occurrence. Comparison is exact.
func Repeated[S ~string](values []S) []S {
	seen := make(map[S]int, len(values))
	var result []S
	for _, v := range values {
		seen[v]++
		if seen[v] == 2 {
			result = append(result, v)
		}
	}
	return result
}
