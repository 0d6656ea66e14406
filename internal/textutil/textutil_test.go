package textutil

import (
	"sort"
	"testing"
)

func TestSanitizePathComponent(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Show: Name?", "Show_ Name_"},
		{"  a/b\\c  ", "a_b_c"},
		{"tab\there", "tab_here"},
		{"Who's <That>|*\"", "Who's _That____"},
		{"", "_"},
		{"..", "_"},
		{"עונה 1", "עונה 1"},
	}
	for _, tt := range tests {
		if got := SanitizePathComponent(tt.in); got != tt.want {
			t.Errorf("SanitizePathComponent(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitizePathComponentNormalizesNFC(t *testing.T) {
	decomposed := "Cafe\u0301"
	if got := SanitizePathComponent(decomposed); got != "Caf\u00e9" {
		t.Fatalf("expected composed form, got %q", got)
	}
}

func TestNaturalLess(t *testing.T) {
	names := []string{"S2E10.mp4", "S2E9.mp4", "S10E1.mp4", "S1E1.mp4", "s2e1.mp4"}
	sort.Slice(names, func(i, j int) bool { return NaturalLess(names[i], names[j]) })
	want := []string{"S1E1.mp4", "s2e1.mp4", "S2E9.mp4", "S2E10.mp4", "S10E1.mp4"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("order = %v, want %v", names, want)
		}
	}
	if NaturalLess("S02", "S2") == NaturalLess("S2", "S02") {
		t.Fatal("expected a strict order for equal-valued numbers")
	}
}

func TestTruncation(t *testing.T) {
	if got := TruncateTail("/very/long/path/to/file.mp4", 8); got != "...file.mp4" {
		t.Fatalf("TruncateTail = %q", got)
	}
	if got := TruncateTail("short", 8); got != "short" {
		t.Fatalf("TruncateTail short = %q", got)
	}
	if got := TruncateHead("שלום עולם", 4); got != "שלום" {
		t.Fatalf("TruncateHead = %q", got)
	}
	if got := ProgressString(3, 10); got != "3 / 10" {
		t.Fatalf("ProgressString = %q", got)
	}
	if got := OneLine("line one\n  line two"); got != "line one line two" {
		t.Fatalf("OneLine = %q", got)
	}
}
