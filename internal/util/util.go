// Package util provides common parsing helpers for host command arguments.
package util

import (
	"fmt"
	"strconv"
	"strings"
)

// TrimQuotes removes leading and trailing double quotes from a string.
func TrimQuotes(s string) string {
	return strings.Trim(s, `"`)
}

// FixEscapeQuotes replaces escaped double quotes ("") with single double quotes (").
func FixEscapeQuotes(s string) string {
	return strings.ReplaceAll(s, `""`, `"`)
}

// ParseVector3 parses a host vector argument of the form "x,y,z" or
// "[x,y,z]", optionally quoted.
func ParseVector3(s string) (x, y, z float64, err error) {
	s = strings.TrimSpace(TrimQuotes(s))
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")

	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("expected 3 vector components, got %d", len(parts))
	}
	vals := make([]float64, 3)
	for i, p := range parts {
		v, perr := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if perr != nil {
			return 0, 0, 0, fmt.Errorf("parsing vector component %d: %w", i, perr)
		}
		vals[i] = v
	}
	return vals[0], vals[1], vals[2], nil
}

// ParseFloat parses a host numeric argument, tolerating surrounding quotes
// and whitespace.
func ParseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(TrimQuotes(s)), 64)
}
