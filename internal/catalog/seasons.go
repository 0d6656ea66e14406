package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"episodic/internal/browser"
	"episodic/internal/logging"
)

// ListSeasons returns the current series' seasons that list at least one
// episode, re-indexed contiguously from zero. Each raw season is selected in
// turn to count its episodes.
func (n *Navigator) ListSeasons(ctx context.Context) ([]Season, error) {
	if err := n.ensureSeriesPage(ctx); err != nil {
		return nil, err
	}
	n.unlock(ctx)
	links := n.seasonElements(ctx)
	seasons := make([]Season, 0, len(links))
	for position, link := range links {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name, err := link.Text()
		if err != nil {
			n.logger.Debug("read season name", logging.Int("position", position), logging.Error(err))
		}
		name = strings.TrimSpace(name)
		elements, err := n.clickSeason(ctx, link, position)
		if err != nil {
			n.logger.Debug("select season", logging.Int("position", position), logging.Error(err))
			continue
		}
		count := len(elements)
		if count == 0 {
			n.logger.Debug("skipping empty season", logging.String("season_name", name), logging.Int("position", position))
			continue
		}
		seasons = append(seasons, Season{Index: len(seasons), Name: name, Position: position, Episodes: count})
	}
	return seasons, nil
}

// ListEpisodes lists the episodes of the season at the given filtered index.
func (n *Navigator) ListEpisodes(ctx context.Context, seasonIndex int) ([]Episode, error) {
	season, err := n.season(ctx, seasonIndex)
	if err != nil {
		return nil, err
	}
	return n.EpisodesOf(ctx, season)
}

// EpisodesOf selects season and reads its episode links in catalog order.
// A season whose links never render yields an empty slice.
func (n *Navigator) EpisodesOf(ctx context.Context, season Season) ([]Episode, error) {
	elements, err := n.selectSeason(ctx, season)
	if err != nil {
		return nil, err
	}
	episodes := make([]Episode, 0, len(elements))
	for i, el := range elements {
		name, err := el.Text()
		if err != nil {
			n.logger.Debug("read episode name", logging.Int(logging.FieldEpisode, i), logging.Error(err))
		}
		episodes = append(episodes, Episode{SeasonIndex: season.Index, EpisodeIndex: i, Name: strings.TrimSpace(name)})
	}
	if len(episodes) == 0 {
		logging.WarnWithContext(n.logger, "season listed no episodes", "season_empty",
			logging.String("season_name", season.Name),
			logging.Int(logging.FieldSeason, season.Index),
			logging.String(logging.FieldImpact, "season skipped"),
			logging.String(logging.FieldErrorHint, "the page may still be loading; retry the command"),
		)
	}
	return episodes, nil
}

// NavigateToEpisode selects the given filtered season and episode so the
// page's player loads it.
func (n *Navigator) NavigateToEpisode(ctx context.Context, seasonIndex, episodeIndex int) error {
	season, err := n.season(ctx, seasonIndex)
	if err != nil {
		return err
	}
	return n.OpenEpisode(ctx, season, episodeIndex)
}

// OpenEpisode is NavigateToEpisode for a season already listed.
func (n *Navigator) OpenEpisode(ctx context.Context, season Season, episodeIndex int) error {
	elements, err := n.selectSeason(ctx, season)
	if err != nil {
		return err
	}
	if episodeIndex < 0 || episodeIndex >= len(elements) {
		if len(elements) == 0 {
			return browser.NotFound(n.locators.EpisodeLinks.Name)
		}
		return fmt.Errorf("episode %d of %d in %q: %w", episodeIndex+1, len(elements), season.Name, ErrIndexOutOfRange)
	}
	if err := elements[episodeIndex].Click(); err != nil {
		return fmt.Errorf("select episode %d: %w", episodeIndex+1, err)
	}
	return nil
}

func (n *Navigator) season(ctx context.Context, index int) (Season, error) {
	seasons, err := n.ListSeasons(ctx)
	if err != nil {
		return Season{}, err
	}
	if index < 0 || index >= len(seasons) {
		return Season{}, fmt.Errorf("season %d of %d: %w", index+1, len(seasons), ErrIndexOutOfRange)
	}
	return seasons[index], nil
}

func (n *Navigator) selectSeason(ctx context.Context, season Season) ([]browser.Element, error) {
	if err := n.ensureSeriesPage(ctx); err != nil {
		return nil, err
	}
	n.unlock(ctx)
	links := n.seasonElements(ctx)
	if season.Position < 0 || season.Position >= len(links) {
		if len(links) == 0 {
			return nil, browser.NotFound(n.locators.SeasonLinks.Name)
		}
		return nil, fmt.Errorf("season %q at position %d: %w", season.Name, season.Position, ErrIndexOutOfRange)
	}
	elements, err := n.clickSeason(ctx, links[season.Position], season.Position)
	if err != nil {
		return nil, fmt.Errorf("select season %q: %w", season.Name, err)
	}
	return elements, nil
}

// listing identifies which season's episodes a page is showing.
type listing struct {
	url       string
	position  int
	signature string
}

// clickSeason selects the season link at position and returns its episode
// elements. When another season's non-empty listing is known to be on screen
// it waits up to the find timeout for that listing to be replaced, since the
// page swaps it asynchronously.
func (n *Navigator) clickSeason(ctx context.Context, link browser.Element, position int) ([]browser.Element, error) {
	url := n.session.CurrentURL()
	n.mu.Lock()
	prev := n.shown
	n.mu.Unlock()
	stale := prev.url == url && prev.position != position && prev.signature != ""

	if err := link.Click(); err != nil {
		return nil, err
	}
	elements := n.episodeElements(ctx)
	signature := listingSignature(elements)
	if stale {
		deadline := time.Now().Add(n.session.FindTimeout())
		for signature == prev.signature && time.Now().Before(deadline) {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(listingPollInterval):
			}
			elements = n.episodeElements(ctx)
			signature = listingSignature(elements)
		}
		if signature == prev.signature {
			n.logger.Debug("episode listing unchanged after season switch", logging.Int("position", position))
		}
	}

	n.mu.Lock()
	n.shown = listing{url: url, position: position, signature: signature}
	n.mu.Unlock()
	return elements, nil
}

const listingPollInterval = 50 * time.Millisecond

func listingSignature(elements []browser.Element) string {
	var b strings.Builder
	for _, el := range elements {
		text, _ := el.Text()
		href, _ := el.Attribute("href")
		b.WriteString(text)
		b.WriteByte('\x00')
		b.WriteString(href)
		b.WriteByte('\n')
	}
	return b.String()
}

func (n *Navigator) seasonElements(ctx context.Context) []browser.Element {
	if links := n.session.FindAll(ctx, n.locators.SeasonLinks); len(links) > 0 {
		return links
	}
	return n.session.FindAll(ctx, n.locators.SeasonItems)
}

func (n *Navigator) episodeElements(ctx context.Context) []browser.Element {
	if links := n.session.FindAll(ctx, n.locators.EpisodeLinks); len(links) > 0 {
		return links
	}
	return n.session.FindAll(ctx, n.locators.EpisodeItems)
}

// ensureSeriesPage returns to the last resolved series when something else
// (a login probe, say) moved the shared page away from it.
func (n *Navigator) ensureSeriesPage(ctx context.Context) error {
	if n.onSeriesPage() {
		return nil
	}
	current := n.Current()
	if current.URL == "" {
		return nil
	}
	n.logger.Debug("returning to series page", logging.String(logging.FieldURL, current.URL))
	return n.Open(ctx, current)
}

// unlock clicks the "let me watch" interstitial once per page load. Its
// absence is normal.
func (n *Navigator) unlock(ctx context.Context) {
	url := n.session.CurrentURL()
	n.mu.Lock()
	done := n.unlocked == url
	n.unlocked = url
	n.mu.Unlock()
	if done {
		return
	}
	button, ok := n.session.FindVisible(ctx, n.locators.UnlockButton)
	if !ok {
		return
	}
	if err := button.Click(); err != nil {
		n.logger.Debug("unlock click failed", logging.Error(err))
	}
}

// forgetPage drops state tied to the page that was just replaced.
func (n *Navigator) forgetPage() {
	n.mu.Lock()
	n.unlocked = ""
	n.shown = listing{}
	n.mu.Unlock()
}
