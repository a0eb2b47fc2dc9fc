// Package stacktrace trims runtime stack dumps down to this module's frames.
package stacktrace

import (
	"strings"
)

const marker = "/internal/"

// InternalPaths returns "internal/<pkg>/<file>.go:<line>" for every frame of
// stack located under an internal/ directory, innermost first.
func InternalPaths(stack []byte) []string {
	var paths []string
	for line := range strings.Lines(string(stack)) {
		// File lines are tab-indented: "\t/abs/path/file.go:42 +0x1d".
		if !strings.HasPrefix(line, "\t") {
			continue
		}
		loc, _, _ := strings.Cut(strings.TrimSpace(line), " ")
		if !strings.Contains(loc, ".go:") {
			continue
		}
		if i := strings.Index(loc, marker); i >= 0 {
			paths = append(paths, loc[i+1:])
		}
	}
	return paths
}

// ForLog returns InternalPaths(stack) when any frame matched, otherwise the
// raw stack, ready to be logged as a "stack" attribute.
func ForLog(stack []byte) any {
	if paths := InternalPaths(stack); len(paths) > 0 {
		return paths
	}
	return string(stack)
}
