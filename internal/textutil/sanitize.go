package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// NormalizeNFC returns s in Unicode normalization form C. Catalog titles mix
// precomposed and combining forms; directory names must not.
func NormalizeNFC(s string) string {
	return norm.NFC.String(s)
}

// SanitizePathComponent makes a catalog-provided name safe to use as one
// directory or file name. Characters that are invalid in file names on any
// common platform become underscores; an empty result becomes "_".
func SanitizePathComponent(name string) string {
	name = strings.TrimSpace(NormalizeNFC(name))
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case unicode.IsControl(r):
			b.WriteByte('_')
		case strings.ContainsRune(`<>:"/\|?*`, r):
			b.WriteByte('_')
		default:
			b.WriteRune(r)
		}
	}
	out := b.String()
	switch out {
	case "", ".", "..":
		return "_"
	}
	return out
}
