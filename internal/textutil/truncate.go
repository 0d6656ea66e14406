package textutil

import (
	"strconv"
	"strings"
)

// Ellipsis marks text removed by the truncation helpers.
const Ellipsis = "..."

// TruncateTail keeps the last max runes of s behind an ellipsis. Paths are
// shortened this way so the file name stays visible.
func TruncateTail(s string, max int) string {
	runes := []rune(s)
	if max <= 0 || len(runes) <= max {
		return s
	}
	return Ellipsis + string(runes[len(runes)-max:])
}

// TruncateHead keeps the first max runes of s.
func TruncateHead(s string, max int) string {
	runes := []rune(s)
	if max <= 0 || len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

// ProgressString renders completed work as "done / total".
func ProgressString(done, total int) string {
	return strconv.Itoa(done) + " / " + strconv.Itoa(total)
}

// OneLine collapses whitespace runs so multi-line error text fits a table cell.
func OneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
