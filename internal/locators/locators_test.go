package locators_test

import (
	"strings"
	"testing"

	"episodic/internal/locators"
)

func TestDefaultNamesAreUniqueAndSelectorsPrefixed(t *testing.T) {
	seen := map[string]struct{}{}
	for _, l := range locators.Default().All() {
		if _, dup := seen[l.Name]; dup {
			t.Fatalf("duplicate locator name %q", l.Name)
		}
		seen[l.Name] = struct{}{}
		if !strings.HasPrefix(l.Selector, "css=") && !strings.HasPrefix(l.Selector, "xpath=") {
			t.Fatalf("locator %s has unprefixed selector %q", l.Name, l.Selector)
		}
	}
	if len(seen) != len(locators.Names()) {
		t.Fatalf("Names() out of sync with All(): %d vs %d", len(locators.Names()), len(seen))
	}
}

func TestWithOverridesReplacesByName(t *testing.T) {
	base := locators.Default()
	set, err := base.WithOverrides(map[string]string{"season_links": "css=ul.seasons a"})
	if err != nil {
		t.Fatalf("WithOverrides: %v", err)
	}
	if set.SeasonLinks.Selector != "css=ul.seasons a" {
		t.Fatalf("override not applied: %q", set.SeasonLinks.Selector)
	}
	if base.SeasonLinks.Selector == set.SeasonLinks.Selector {
		t.Fatal("override leaked into the base set")
	}
	if set.EpisodeLinks != base.EpisodeLinks {
		t.Fatal("unrelated locator changed")
	}
	if !strings.HasSuffix(set.Version, "+overrides") {
		t.Fatalf("expected version to mark overrides, got %q", set.Version)
	}
}

func TestWithOverridesRejectsUnknownNames(t *testing.T) {
	_, err := locators.Default().WithOverrides(map[string]string{"season_linkz": "css=a"})
	if err == nil {
		t.Fatal("expected error for unknown locator name")
	}
	if !strings.Contains(err.Error(), "season_linkz") {
		t.Fatalf("error should name the bad key: %v", err)
	}
}
