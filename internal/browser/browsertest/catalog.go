package browsertest

import (
	"fmt"
	"net/url"
	"time"

	"episodic/internal/locators"
)

// Season is one raw catalog season; empty Episodes models the placeholder
// seasons the real site lists.
type Season struct {
	Name     string
	Episodes []string
}

// Series describes one series page.
type Series struct {
	Slug    string
	Title   string
	Seasons []Season
	// Unlock hides the season list behind the "let me watch" interstitial.
	Unlock bool
	// MediaURL returns the player source for a raw season and episode index.
	MediaURL func(season, episode int) string
	// SeasonDelay postpones the episode list swap after a season click, as
	// the site's script does.
	SeasonDelay time.Duration
}

// Catalog scripts a Site to behave like the real catalog.
type Catalog struct {
	Site     *Site
	Root     string
	Locators locators.Set

	username string
	password string
	loggedIn bool
	attempts int
}

// NewCatalog builds a logged-out catalog rooted at root (with trailing slash).
func NewCatalog(root string, set locators.Set) *Catalog {
	c := &Catalog{Site: NewSite(), Root: root, Locators: set}
	home := c.Site.Page(root)
	home.Set(set.LoginPanelButton.Selector, &Node{Text: locators.LoginSentinel})
	return c
}

// RequireLogin enables the login form and the credentials it accepts.
func (c *Catalog) RequireLogin(username, password string) {
	c.Site.Update(func() {
		c.username, c.password = username, password
		home := c.Site.pageLocked(c.Root)
		user := &Node{Hidden: true}
		pass := &Node{Hidden: true}
		submit := &Node{Hidden: true, Text: "login"}
		trigger := home.Elements[c.Locators.LoginPanelButton.Selector][0]
		trigger.OnClick = func() {
			c.Site.Update(func() {
				if c.loggedIn {
					return
				}
				user.Hidden, pass.Hidden, submit.Hidden = false, false, false
			})
		}
		submit.OnClick = func() {
			c.Site.Update(func() {
				c.attempts++
				if user.Value == c.username && pass.Value == c.password {
					c.setLoggedInLocked(true)
				}
				user.Value, pass.Value = "", ""
			})
		}
		home.Set(c.Locators.LoginUsername.Selector, user)
		home.Set(c.Locators.LoginPassword.Selector, pass)
		home.Set(c.Locators.LoginSubmit.Selector, submit)
	})
}

// SetLoggedIn forces the login state.
func (c *Catalog) SetLoggedIn(loggedIn bool) {
	c.Site.Update(func() { c.setLoggedInLocked(loggedIn) })
}

func (c *Catalog) setLoggedInLocked(loggedIn bool) {
	c.loggedIn = loggedIn
	home := c.Site.pageLocked(c.Root)
	text := locators.LoginSentinel
	if loggedIn {
		text = "שלום " + c.username
	}
	home.Elements[c.Locators.LoginPanelButton.Selector][0].Text = text
	for _, sel := range []string{c.Locators.LoginUsername.Selector, c.Locators.LoginPassword.Selector, c.Locators.LoginSubmit.Selector} {
		for _, n := range home.Elements[sel] {
			n.Hidden = true
		}
	}
}

// LoginAttempts counts submit clicks.
func (c *Catalog) LoginAttempts() int {
	var n int
	c.Site.Update(func() { n = c.attempts })
	return n
}

// SearchURL is the address the navigator builds for term.
func (c *Catalog) SearchURL(term string) string {
	return c.Root + locators.SearchPath + term
}

// SeriesURL is the address of a series page.
func (c *Catalog) SeriesURL(slug string) string {
	return c.Root + locators.SeriesPathMarker + "/" + url.PathEscape(slug)
}

// AddSeries publishes a series page and returns its URL.
func (c *Catalog) AddSeries(series Series) string {
	address := c.SeriesURL(series.Slug)
	set := c.Locators
	c.Site.Update(func() {
		page := c.Site.pageLocked(address)
		page.Set(set.SeriesTitle.Selector, &Node{Text: series.Title})

		player := &Node{Hidden: true, Attrs: map[string]string{}}
		page.Set(set.VideoPlayer.Selector, player)

		// selected is the season whose episodes are listed; clicking it again
		// changes nothing, as on the real page.
		selected := -1
		var seasonLinks, seasonItems []*Node
		for i, season := range series.Seasons {
			i, season := i, season
			link := &Node{Text: season.Name, Hidden: series.Unlock}
			link.OnClick = func() {
				current := false
				c.Site.Update(func() { current = selected == i })
				if current {
					return
				}
				show := func() {
					c.Site.Update(func() {
						selected = i
						c.showSeasonLocked(page, series, i, player)
					})
				}
				if series.SeasonDelay > 0 {
					time.AfterFunc(series.SeasonDelay, show)
					return
				}
				show()
			}
			seasonLinks = append(seasonLinks, link)
			seasonItems = append(seasonItems, &Node{Text: season.Name, Hidden: series.Unlock, OnClick: link.OnClick})
		}
		page.Set(set.SeasonLinks.Selector, seasonLinks...)
		page.Set(set.SeasonItems.Selector, seasonItems...)

		if series.Unlock {
			unlock := &Node{Text: locators.UnlockLabel}
			unlock.OnClick = func() {
				c.Site.Update(func() {
					unlock.Hidden = true
					for _, n := range append(seasonLinks, seasonItems...) {
						n.Hidden = false
					}
				})
			}
			page.Set(set.UnlockButton.Selector, unlock)
		}
		if len(series.Seasons) > 0 {
			selected = 0
			c.showSeasonLocked(page, series, 0, player)
		}
	})
	return address
}

func (c *Catalog) showSeasonLocked(page *Page, series Series, season int, player *Node) {
	var links, items []*Node
	for e, name := range series.Seasons[season].Episodes {
		e := e
		click := func() {
			c.Site.Update(func() {
				src := c.Root + fmt.Sprintf("media/%s/%d/%d.mp4", series.Slug, season, e)
				if series.MediaURL != nil {
					src = series.MediaURL(season, e)
				}
				player.Attrs["src"] = src
				player.Hidden = false
			})
		}
		links = append(links, &Node{Text: name, OnClick: click})
		items = append(items, &Node{Text: name, OnClick: click})
	}
	player.Hidden = true
	page.Set(c.Locators.EpisodeLinks.Selector, links...)
	page.Set(c.Locators.EpisodeItems.Selector, items...)
}

// AddSearch publishes a results page for term listing the given series.
func (c *Catalog) AddSearch(term string, slugs ...string) {
	var tiles []*Node
	for _, slug := range slugs {
		target := c.SeriesURL(slug)
		var title string
		c.Site.Update(func() {
			if nodes := c.Site.pageLocked(target).Elements[c.Locators.SeriesTitle.Selector]; len(nodes) > 0 {
				title = nodes[0].Text
			}
		})
		tiles = append(tiles, &Node{
			Text:    title,
			Attrs:   map[string]string{"href": target},
			OnClick: func() { c.Site.Open(target) },
		})
	}
	c.Site.Page(c.SearchURL(term)).Set(c.Locators.ResultTiles.Selector, tiles...)
}

// AddDirectHit makes a search for term land directly on the series page, as
// the site does for exact title matches.
func (c *Catalog) AddDirectHit(term, slug string) {
	c.Site.Redirect(c.SearchURL(term), c.SeriesURL(slug))
}
