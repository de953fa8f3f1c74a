// Package internal provides internal utilities for dbi.
// This package is not part of the public API and may change without notice.
package internal

import "strings"

// NormalizeColumn turns a result column label into its lookup key:
// surrounding whitespace and identifier quotes are dropped, a table or
// schema qualifier is removed, and the remainder is lowercased.
func NormalizeColumn(c string) string {
	c = strings.TrimSpace(c)
	c = strings.ReplaceAll(c, "`", "")
	c = strings.ReplaceAll(c, "\"", "")
	if i := strings.LastIndexByte(c, '.'); i >= 0 {
		c = c[i+1:]
	}
	return strings.ToLower(c)
}
