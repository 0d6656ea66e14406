// Package locators names the regions of the catalog's rendered pages.
//
// A Set is pure data: every Locator pairs a stable name with a selector in
// the automation backend's syntax ("css=" or "xpath=" prefixed). The names
// are the contract with configuration overrides; the selectors track
// whatever markup the catalog currently serves and are bumped together with
// Version when it changes.
package locators

import (
	"fmt"
	"sort"
)

// Version identifies the catalog markup generation the defaults target.
const Version = "2024.1"

const (
	// SearchPath is appended to the catalog root, followed by the raw title.
	SearchPath = "search?term="
	// SeriesPathMarker appears in the URL of every series page.
	SeriesPathMarker = "watch"
	// LoginSentinel is the login panel label shown to anonymous visitors.
	LoginSentinel = "התחברות לאתר"
	// UnlockLabel is the label of the one-time "let me watch" interstitial.
	UnlockLabel = "תן לי לצפות"
)

// Locator is a named selector for one page region.
type Locator struct {
	Name     string
	Selector string
}

func (l Locator) String() string {
	return l.Name
}

// Set holds every locator the engine uses.
type Set struct {
	Version string

	LoginPanelButton Locator
	LoginUsername    Locator
	LoginPassword    Locator
	LoginSubmit      Locator

	SeriesTitle  Locator
	ResultTiles  Locator
	SeasonLinks  Locator
	SeasonItems  Locator
	EpisodeLinks Locator
	EpisodeItems Locator
	UnlockButton Locator
	VideoPlayer  Locator
}

// Default returns the locators for the current catalog markup.
func Default() Set {
	return Set{
		Version:          Version,
		LoginPanelButton: Locator{Name: "login_panel_button", Selector: `xpath=//*[@id="slideText"]/p/button`},
		LoginUsername:    Locator{Name: "login_username", Selector: `xpath=//*[@id="loginForm"]/form/div[1]/div/input`},
		LoginPassword:    Locator{Name: "login_password", Selector: `xpath=//*[@id="loginForm"]/form/div[2]/div/input`},
		LoginSubmit:      Locator{Name: "login_submit", Selector: `xpath=//*[@id="loginForm"]/form/div[4]/button`},
		SeriesTitle:      Locator{Name: "series_title", Selector: `xpath=//*[@id="watchEpisode"]/div[1]/div/h1/strong/span`},
		ResultTiles:      Locator{Name: "result_tiles", Selector: `css=div.col-lg-2.col-md-2.col-sm-4.col-xs-6 a`},
		SeasonLinks:      Locator{Name: "season_links", Selector: `css=#season a`},
		SeasonItems:      Locator{Name: "season_items", Selector: `css=#season li`},
		EpisodeLinks:     Locator{Name: "episode_links", Selector: `css=#episode a`},
		EpisodeItems:     Locator{Name: "episode_items", Selector: `css=#episode li`},
		UnlockButton:     Locator{Name: "unlock_button", Selector: `css=button:has-text("` + UnlockLabel + `")`},
		VideoPlayer:      Locator{Name: "video_player", Selector: `css=#videojs_html5_api`},
	}
}

func (s *Set) fields() []*Locator {
	return []*Locator{
		&s.LoginPanelButton,
		&s.LoginUsername,
		&s.LoginPassword,
		&s.LoginSubmit,
		&s.SeriesTitle,
		&s.ResultTiles,
		&s.SeasonLinks,
		&s.SeasonItems,
		&s.EpisodeLinks,
		&s.EpisodeItems,
		&s.UnlockButton,
		&s.VideoPlayer,
	}
}

// All returns the locators in declaration order.
func (s Set) All() []Locator {
	fields := s.fields()
	out := make([]Locator, 0, len(fields))
	for _, f := range fields {
		out = append(out, *f)
	}
	return out
}

// WithOverrides returns a copy of s with selectors replaced by name. Unknown
// names are rejected so a typo never silently keeps a stale selector.
func (s Set) WithOverrides(overrides map[string]string) (Set, error) {
	if len(overrides) == 0 {
		return s, nil
	}
	byName := make(map[string]*Locator)
	for _, f := range s.fields() {
		byName[f.Name] = f
	}
	var unknown []string
	for name, selector := range overrides {
		target, ok := byName[name]
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		target.Selector = selector
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return Set{}, fmt.Errorf("unknown locator names %v", unknown)
	}
	s.Version = Version + "+overrides"
	return s, nil
}

// Names lists every locator name accepted by WithOverrides.
func Names() []string {
	all := Default().All()
	names := make([]string, 0, len(all))
	for _, l := range all {
		names = append(names, l.Name)
	}
	return names
}
