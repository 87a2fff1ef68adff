// Package markers detects unresolved merge conflicts in pushed diffs.
package markers

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// Marker opens a conflict block. The "=======" and ">>>>>>>" lines are not
// checked: they also appear in legitimate files (rst headings, test data).
const Marker = "<<<<<<< HEAD"

// Decode reads b as UTF-8, or as ISO-8859-1 when it is not valid UTF-8.
// Every byte sequence is valid ISO-8859-1, so decoding never fails.
func Decode(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(out)
}

// HasConflictMarker reports whether the diff contains Marker.
func HasConflictMarker(diff []byte) bool {
	return strings.Contains(Decode(diff), Marker)
}

// Excerpt returns the file header of the first conflict marker in diff
// followed by up to context lines around it, or "" when there is none.
func Excerpt(diff []byte, context int) string {
	lines := strings.Split(Decode(diff), "\n")
	at := -1
	for i, line := range lines {
		if strings.Contains(line, Marker) {
			at = i
			break
		}
	}
	if at < 0 {
		return ""
	}
	header := -1
	for i := at; i >= 0; i-- {
		if strings.HasPrefix(lines[i], "diff --git ") {
			header = i
			break
		}
	}
	start := max(at-context, 0)
	end := min(at+context+1, len(lines))

	var b strings.Builder
	if header >= 0 && header < start {
		fmt.Fprintln(&b, lines[header])
		if header < start-1 {
			b.WriteString("...\n")
		}
	}
	for _, line := range lines[start:end] {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}
