package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"episodic/internal/browser"
	"episodic/internal/locators"
	"episodic/internal/logging"
)

// Options configures a Navigator.
type Options struct {
	RootURL string
	Picker  Picker
	Logger  *slog.Logger
}

// Navigator drives the shared session through search and season listings.
type Navigator struct {
	session  *browser.Session
	locators locators.Set
	root     string
	picker   Picker
	logger   *slog.Logger

	mu       sync.Mutex
	series   SeriesHandle
	unlocked string
	// shown describes the episode listing last read on the current page.
	shown listing
}

// New builds a Navigator. A nil picker cancels every ambiguous search.
func New(session *browser.Session, set locators.Set, opts Options) *Navigator {
	picker := opts.Picker
	if picker == nil {
		picker = PickerFunc(func(context.Context, string, []Tile) (int, bool, error) { return 0, false, nil })
	}
	return &Navigator{
		session:  session,
		locators: set,
		root:     opts.RootURL,
		picker:   picker,
		logger:   logging.NewComponentLogger(opts.Logger, "catalog"),
	}
}

// SearchURL is the results page address for title. The title is appended
// as typed; the catalog does its own matching.
func (n *Navigator) SearchURL(title string) string {
	return n.root + locators.SearchPath + title
}

// Search resolves title to a series page. Every outcome other than Found
// leaves the session where it was before the call: one step back, or two
// when a result was picked from the listing.
func (n *Navigator) Search(ctx context.Context, title string) (SearchResult, error) {
	logger := n.logger.With(logging.String("query", title))
	if err := n.session.Navigate(ctx, n.SearchURL(title)); err != nil {
		return SearchResult{}, err
	}
	n.forgetPage()
	owed := 1
	result := SearchResult{}

	if !n.onSeriesPage() {
		tiles, elements := n.resultTiles(ctx)
		if len(tiles) == 0 {
			logger.Info("no search results")
			return n.rollback(ctx, SearchResult{Outcome: NotFound}, owed)
		}
		index, ok, err := n.picker.Pick(ctx, title, tiles)
		if err != nil {
			logger.Debug("picker failed", logging.Error(err))
		}
		if err != nil || !ok || index < 0 || index >= len(tiles) {
			logger.Info("search canceled at picker", logging.Int("results", len(tiles)))
			return n.rollback(ctx, SearchResult{Outcome: Canceled}, owed)
		}
		if err := n.openTile(ctx, elements[index], tiles[index]); err != nil {
			return n.abort(ctx, err, owed)
		}
		owed = 2
		result.Disambiguated = true
		if !n.waitSeriesPage(ctx) {
			logger.Info("picked result is not a series page", logging.String(logging.FieldURL, n.session.CurrentURL()))
			return n.rollback(ctx, SearchResult{Outcome: NotFound, Disambiguated: true}, owed)
		}
	}

	seasons, err := n.ListSeasons(ctx)
	if err != nil {
		return n.abort(ctx, fmt.Errorf("list seasons: %w", err), owed)
	}
	if len(seasons) == 0 {
		logger.Info("series has no episodes")
		result.Outcome = NoEpisodes
		return n.rollback(ctx, result, owed)
	}

	name, err := n.SeriesName(ctx)
	if err != nil {
		// The listing rendered but the title did not; fall back to the query.
		logger.Debug("series title missing", logging.Error(err))
		name = strings.TrimSpace(title)
	}
	result.Outcome = Found
	result.Series = SeriesHandle{Name: name, URL: n.session.CurrentURL()}
	n.mu.Lock()
	n.series = result.Series
	n.mu.Unlock()
	logger.Info("series resolved",
		logging.String(logging.FieldSeries, name),
		logging.Int("seasons", len(seasons)),
		logging.Bool("disambiguated", result.Disambiguated),
	)
	return result, nil
}

// rollback undoes steps navigations. It ignores cancellation of ctx so a
// canceled search still returns the session to where it started.
func (n *Navigator) rollback(ctx context.Context, result SearchResult, steps int) (SearchResult, error) {
	if err := n.session.BackN(context.WithoutCancel(ctx), steps); err != nil {
		return SearchResult{}, fmt.Errorf("restore navigation: %w", err)
	}
	return result, nil
}

// abort rolls back and returns cause, joined with any rollback failure.
func (n *Navigator) abort(ctx context.Context, cause error, steps int) (SearchResult, error) {
	if _, err := n.rollback(ctx, SearchResult{}, steps); err != nil {
		return SearchResult{}, errors.Join(cause, err)
	}
	return SearchResult{}, cause
}

func (n *Navigator) onSeriesPage() bool {
	return IsSeriesURL(n.session.CurrentURL())
}

// IsSeriesURL reports whether address is a series page. Only the path is
// checked so a query like "watchmen" does not count.
func IsSeriesURL(address string) bool {
	parsed, err := url.Parse(address)
	if err != nil {
		return false
	}
	return strings.Contains(parsed.Path, locators.SeriesPathMarker)
}

// waitSeriesPage gives a clicked tile time to finish loading.
func (n *Navigator) waitSeriesPage(ctx context.Context) bool {
	deadline := time.Now().Add(n.session.FindTimeout())
	for {
		if n.onSeriesPage() {
			return true
		}
		if !time.Now().Before(deadline) {
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(50 * time.Millisecond):
		}
	}
}

func (n *Navigator) resultTiles(ctx context.Context) ([]Tile, []browser.Element) {
	elements := n.session.FindAll(ctx, n.locators.ResultTiles)
	tiles := make([]Tile, 0, len(elements))
	for i, el := range elements {
		title, err := el.Text()
		if err != nil {
			n.logger.Debug("read tile title", logging.Int("tile", i), logging.Error(err))
		}
		href, err := el.Attribute("href")
		if err != nil {
			n.logger.Debug("read tile link", logging.Int("tile", i), logging.Error(err))
		}
		tiles = append(tiles, Tile{Index: i, Title: strings.TrimSpace(title), Href: strings.TrimSpace(href)})
	}
	return tiles, elements
}

func (n *Navigator) openTile(ctx context.Context, el browser.Element, tile Tile) error {
	err := el.Click()
	if err == nil {
		return nil
	}
	if tile.Href == "" {
		return fmt.Errorf("open search result %q: %w", tile.Title, err)
	}
	n.logger.Debug("tile click failed; following link", logging.Error(err))
	return n.session.Navigate(ctx, n.absolute(tile.Href))
}

func (n *Navigator) absolute(href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	return n.root + strings.TrimPrefix(href, "/")
}

// Current returns the series most recently resolved by Search.
func (n *Navigator) Current() SeriesHandle {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.series
}

// Open navigates straight to a previously resolved series page.
func (n *Navigator) Open(ctx context.Context, series SeriesHandle) error {
	if err := n.session.Navigate(ctx, series.URL); err != nil {
		return err
	}
	n.forgetPage()
	n.mu.Lock()
	n.series = series
	n.mu.Unlock()
	return nil
}

// SeriesName reads the title of the current series page.
func (n *Navigator) SeriesName(ctx context.Context) (string, error) {
	el, ok := n.session.FindVisible(ctx, n.locators.SeriesTitle)
	if !ok {
		return "", browser.NotFound(n.locators.SeriesTitle.Name)
	}
	text, err := el.Text()
	if err != nil {
		return "", fmt.Errorf("read series title: %w", err)
	}
	return strings.TrimSpace(text), nil
}
