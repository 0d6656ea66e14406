package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// placeholderMedia stands in for captured episode bytes.
var placeholderMedia = []byte{0x00, 0x00, 0x00, 0x18, 'f', 't', 'y', 'p'}

// WriteLibrary lays out a download library under root. Each rel is a
// slash-separated path such as "Show/Season 1/S1E1.mp4"; parent directories
// are created as needed and every file receives a few placeholder bytes.
func WriteLibrary(t testing.TB, root string, rels ...string) {
	t.Helper()

	for _, rel := range rels {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir for %s: %v", rel, err)
		}
		if err := os.WriteFile(path, placeholderMedia, 0o644); err != nil {
			t.Fatalf("write %s: %v", rel, err)
		}
	}
}
