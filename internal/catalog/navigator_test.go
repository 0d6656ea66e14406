package catalog_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"episodic/internal/browser"
	"episodic/internal/browser/browsertest"
	"episodic/internal/catalog"
	"episodic/internal/locators"
)

const root = "https://catalog.test/"

type fixture struct {
	site     *browsertest.Catalog
	session  *browser.Session
	nav      *catalog.Navigator
	picks    int
	pickWith func(tiles []catalog.Tile) (int, bool, error)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	set := locators.Default()
	f := &fixture{site: browsertest.NewCatalog(root, set)}
	f.session = browser.NewSession(f.site.Site, browser.Options{
		FindTimeout:  30 * time.Millisecond,
		PollInterval: 5 * time.Millisecond,
	})
	t.Cleanup(f.session.Quit)
	picker := catalog.PickerFunc(func(_ context.Context, _ string, tiles []catalog.Tile) (int, bool, error) {
		f.picks++
		if f.pickWith == nil {
			return 0, false, nil
		}
		return f.pickWith(tiles)
	})
	f.nav = catalog.New(f.session, set, catalog.Options{RootURL: root, Picker: picker})
	if err := f.session.Navigate(context.Background(), root); err != nil {
		t.Fatalf("Navigate root: %v", err)
	}
	return f
}

func episodes(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = "Episode " + string(rune('1'+i))
	}
	return out
}

func mixedSeries(slug, title string) browsertest.Series {
	return browsertest.Series{
		Slug:  slug,
		Title: title,
		Seasons: []browsertest.Season{
			{Name: "Season 1", Episodes: episodes(3)},
			{Name: "Season 2", Episodes: nil},
			{Name: "Season 3", Episodes: episodes(2)},
		},
	}
}

func emptySeries(slug, title string) browsertest.Series {
	return browsertest.Series{
		Slug:    slug,
		Title:   title,
		Seasons: []browsertest.Season{{Name: "Season 1"}},
	}
}

func (f *fixture) assertRestored(t *testing.T, backs int) {
	t.Helper()
	if got := f.session.CurrentURL(); got != root {
		t.Fatalf("navigation not restored: at %q", got)
	}
	if got := f.site.Site.Backs(); got != backs {
		t.Fatalf("expected %d back navigations, got %d", backs, got)
	}
}

func TestSearchWithoutResultsIsNotFound(t *testing.T) {
	f := newFixture(t)
	result, err := f.nav.Search(context.Background(), "nothing")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if result.Outcome != catalog.NotFound {
		t.Fatalf("outcome = %s, want not_found", result.Outcome)
	}
	if f.picks != 0 {
		t.Fatal("picker must not be consulted without results")
	}
	f.assertRestored(t, 1)
}

func TestSearchDirectHitFound(t *testing.T) {
	f := newFixture(t)
	url := f.site.AddSeries(mixedSeries("office", "The Office"))
	f.site.AddDirectHit("The Office", "office")

	result, err := f.nav.Search(context.Background(), "The Office")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if result.Outcome != catalog.Found || result.Disambiguated {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.Series.Name != "The Office" || result.Series.URL != url {
		t.Fatalf("unexpected handle %+v", result.Series)
	}
	if f.site.Site.Backs() != 0 {
		t.Fatal("found search must not navigate back")
	}
}

func TestSearchDirectHitWithoutEpisodesBacksOnce(t *testing.T) {
	f := newFixture(t)
	f.site.AddSeries(emptySeries("soon", "Coming Soon"))
	f.site.AddDirectHit("Coming Soon", "soon")

	result, err := f.nav.Search(context.Background(), "Coming Soon")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if result.Outcome != catalog.NoEpisodes {
		t.Fatalf("outcome = %s, want no_episodes", result.Outcome)
	}
	f.assertRestored(t, 1)
}

func TestSearchDisambiguatedFound(t *testing.T) {
	f := newFixture(t)
	f.site.AddSeries(mixedSeries("office-uk", "The Office UK"))
	f.site.AddSeries(mixedSeries("office-us", "The Office US"))
	f.site.AddSearch("office", "office-uk", "office-us")

	var seen []catalog.Tile
	f.pickWith = func(tiles []catalog.Tile) (int, bool, error) {
		seen = tiles
		return 1, true, nil
	}
	result, err := f.nav.Search(context.Background(), "office")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if result.Outcome != catalog.Found || !result.Disambiguated {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.Series.Name != "The Office US" {
		t.Fatalf("picked wrong series: %+v", result.Series)
	}
	if len(seen) != 2 || seen[0].Title != "The Office UK" || seen[1].Href != f.site.SeriesURL("office-us") {
		t.Fatalf("unexpected tiles %+v", seen)
	}
	if f.nav.Current() != result.Series {
		t.Fatal("navigator should remember the resolved series")
	}
}

func TestSearchDisambiguatedWithoutEpisodesBacksTwice(t *testing.T) {
	f := newFixture(t)
	f.site.AddSeries(emptySeries("soon", "Coming Soon"))
	f.site.AddSearch("soon", "soon")
	f.pickWith = func([]catalog.Tile) (int, bool, error) { return 0, true, nil }

	result, err := f.nav.Search(context.Background(), "soon")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if result.Outcome != catalog.NoEpisodes || !result.Disambiguated {
		t.Fatalf("unexpected result %+v", result)
	}
	f.assertRestored(t, 2)
}

func TestSearchPickerCancellation(t *testing.T) {
	cases := map[string]func([]catalog.Tile) (int, bool, error){
		"declined":     func([]catalog.Tile) (int, bool, error) { return 0, false, nil },
		"error":        func([]catalog.Tile) (int, bool, error) { return 0, true, errors.New("dialog closed") },
		"out of range": func([]catalog.Tile) (int, bool, error) { return 5, true, nil },
	}
	for name, pick := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			f.site.AddSeries(mixedSeries("office", "The Office"))
			f.site.AddSearch("office", "office")
			f.pickWith = pick

			result, err := f.nav.Search(context.Background(), "office")
			if err != nil {
				t.Fatalf("Search: %v", err)
			}
			if result.Outcome != catalog.Canceled {
				t.Fatalf("outcome = %s, want canceled", result.Outcome)
			}
			f.assertRestored(t, 1)
		})
	}
}

func TestSearchRestoresNavigationWhenPickedTileFails(t *testing.T) {
	f := newFixture(t)
	detached := errors.New("element detached")
	f.site.Site.Page(f.site.SearchURL("broken")).Set(f.site.Locators.ResultTiles.Selector,
		&browsertest.Node{Text: "Broken", ClickErr: detached},
	)
	f.pickWith = func([]catalog.Tile) (int, bool, error) { return 0, true, nil }

	_, err := f.nav.Search(context.Background(), "broken")
	if !errors.Is(err, detached) {
		t.Fatalf("expected click error, got %v", err)
	}
	f.assertRestored(t, 1)
}

func TestSearchCanceledAfterPickStillBacksTwice(t *testing.T) {
	f := newFixture(t)
	f.site.AddSeries(mixedSeries("office", "The Office"))
	f.site.AddSeries(mixedSeries("office-us", "The Office US"))
	f.site.AddSearch("office", "office", "office-us")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.pickWith = func([]catalog.Tile) (int, bool, error) {
		cancel()
		return 0, true, nil
	}

	result, err := f.nav.Search(ctx, "office")
	if err == nil && result.Outcome == catalog.Found {
		t.Fatal("canceled search must not resolve a series")
	}
	f.assertRestored(t, 2)
}

func TestListSeasonsFiltersEmptySeasons(t *testing.T) {
	f := newFixture(t)
	f.site.AddSeries(mixedSeries("office", "The Office"))
	f.site.AddDirectHit("office", "office")
	ctx := context.Background()
	if _, err := f.nav.Search(ctx, "office"); err != nil {
		t.Fatalf("Search: %v", err)
	}

	seasons, err := f.nav.ListSeasons(ctx)
	if err != nil {
		t.Fatalf("ListSeasons: %v", err)
	}
	if len(seasons) != 2 {
		t.Fatalf("expected 2 seasons, got %+v", seasons)
	}
	for i, s := range seasons {
		if s.Index != i {
			t.Fatalf("season %d has index %d", i, s.Index)
		}
	}
	if seasons[1].Name != "Season 3" || seasons[1].Position != 2 || seasons[1].Episodes != 2 {
		t.Fatalf("unexpected second season %+v", seasons[1])
	}

	eps, err := f.nav.ListEpisodes(ctx, 1)
	if err != nil {
		t.Fatalf("ListEpisodes: %v", err)
	}
	if len(eps) != 2 || eps[1].SeasonIndex != 1 || eps[1].EpisodeIndex != 1 || eps[1].Name != "Episode 2" {
		t.Fatalf("unexpected episodes %+v", eps)
	}

	if _, err := f.nav.ListEpisodes(ctx, 2); !errors.Is(err, catalog.ErrIndexOutOfRange) {
		t.Fatalf("expected ErrIndexOutOfRange, got %v", err)
	}
}

func TestListSeasonsWaitsForEpisodeListToSwap(t *testing.T) {
	f := newFixture(t)
	series := mixedSeries("office", "The Office")
	series.SeasonDelay = 10 * time.Millisecond
	f.site.AddSeries(series)
	f.site.AddDirectHit("office", "office")
	ctx := context.Background()
	if _, err := f.nav.Search(ctx, "office"); err != nil {
		t.Fatalf("Search: %v", err)
	}

	for round := 0; round < 2; round++ {
		seasons, err := f.nav.ListSeasons(ctx)
		if err != nil {
			t.Fatalf("ListSeasons: %v", err)
		}
		if len(seasons) != 2 || seasons[0].Episodes != 3 || seasons[1].Position != 2 || seasons[1].Episodes != 2 {
			t.Fatalf("round %d: stale listing counted, got %+v", round, seasons)
		}
	}

	eps, err := f.nav.ListEpisodes(ctx, 0)
	if err != nil || len(eps) != 3 {
		t.Fatalf("ListEpisodes = %+v, %v", eps, err)
	}
}

func TestUnlockInterstitialIsClicked(t *testing.T) {
	f := newFixture(t)
	series := mixedSeries("locked", "Locked Show")
	series.Unlock = true
	f.site.AddSeries(series)
	f.site.AddDirectHit("locked", "locked")

	result, err := f.nav.Search(context.Background(), "locked")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if result.Outcome != catalog.Found {
		t.Fatalf("outcome = %s, want found", result.Outcome)
	}
}

func TestNavigateToEpisodeLoadsPlayer(t *testing.T) {
	f := newFixture(t)
	series := mixedSeries("office", "The Office")
	f.site.AddSeries(series)
	f.site.AddDirectHit("office", "office")
	ctx := context.Background()
	if _, err := f.nav.Search(ctx, "office"); err != nil {
		t.Fatalf("Search: %v", err)
	}

	if err := f.nav.NavigateToEpisode(ctx, 1, 0); err != nil {
		t.Fatalf("NavigateToEpisode: %v", err)
	}
	player, ok := f.session.FindVisible(ctx, locators.Default().VideoPlayer)
	if !ok {
		t.Fatal("expected video player")
	}
	src, _ := player.Attribute("src")
	if want := root + "media/office/2/0.mp4"; src != want {
		t.Fatalf("player src = %q, want %q", src, want)
	}

	if err := f.nav.NavigateToEpisode(ctx, 0, 7); !errors.Is(err, catalog.ErrIndexOutOfRange) {
		t.Fatalf("expected ErrIndexOutOfRange, got %v", err)
	}
}

func TestEpisodesReturnToSeriesAfterPageMoved(t *testing.T) {
	f := newFixture(t)
	f.site.AddSeries(mixedSeries("office", "The Office"))
	f.site.AddDirectHit("office", "office")
	ctx := context.Background()
	result, err := f.nav.Search(ctx, "office")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if err := f.session.Navigate(ctx, root); err != nil {
		t.Fatalf("Navigate: %v", err)
	}

	eps, err := f.nav.ListEpisodes(ctx, 0)
	if err != nil {
		t.Fatalf("ListEpisodes: %v", err)
	}
	if len(eps) != 3 {
		t.Fatalf("expected 3 episodes, got %d", len(eps))
	}
	if f.session.CurrentURL() != result.Series.URL {
		t.Fatalf("expected to be back on %q, at %q", result.Series.URL, f.session.CurrentURL())
	}
}

func TestIsSeriesURL(t *testing.T) {
	cases := map[string]bool{
		root + "watch/office":           true,
		root + "search?term=watchmen":   false,
		root + "search?term=The Office": false,
		"::not a url":                   false,
	}
	for address, want := range cases {
		if got := catalog.IsSeriesURL(address); got != want {
			t.Errorf("IsSeriesURL(%q) = %v, want %v", address, got, want)
		}
	}
}
