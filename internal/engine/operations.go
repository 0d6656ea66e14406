package engine

import (
	"context"
	"fmt"

	"episodic/internal/acquire"
	"episodic/internal/auth"
	"episodic/internal/catalog"
	"episodic/internal/resume"
)

// Login runs the login state machine with the configured credentials.
func (e *Engine) Login(ctx context.Context) (auth.State, error) {
	if !e.cfg.HasCredentials() {
		return auth.Unknown, ErrNoCredentials
	}
	var state auth.State
	err := e.Do(ctx, func(ctx context.Context) error {
		if _, err := e.auth.Login(ctx, e.cfg.Catalog.Username, e.cfg.Catalog.Password); err != nil {
			return err
		}
		state = e.auth.State()
		return nil
	})
	return state, err
}

// LoginState probes the catalog root for the current login state.
func (e *Engine) LoginState(ctx context.Context) (auth.State, error) {
	var state auth.State
	err := e.Do(ctx, func(ctx context.Context) error {
		var err error
		state, err = e.auth.Probe(ctx)
		return err
	})
	return state, err
}

// Search resolves title to a series page.
func (e *Engine) Search(ctx context.Context, title string) (catalog.SearchResult, error) {
	var result catalog.SearchResult
	err := e.Do(ctx, func(ctx context.Context) error {
		var err error
		result, err = e.nav.Search(ctx, title)
		return err
	})
	return result, err
}

// Overview describes a resolved series and where its local copy stands.
type Overview struct {
	Series  catalog.SeriesHandle
	Seasons []catalog.Season
	// Last is the last episode already on disk; valid when HasLast.
	Last    resume.Pointer
	HasLast bool
}

// Episodes sums the filtered season sizes.
func (o Overview) Episodes() int {
	total := 0
	for _, s := range o.Seasons {
		total += s.Episodes
	}
	return total
}

// Next is the episode after Last, or the first episode when nothing is on
// disk. ok is false when the local copy is complete.
func (o Overview) Next() (resume.Pointer, bool) {
	if !o.HasLast {
		return resume.Pointer{}, len(o.Seasons) > 0
	}
	return acquire.NextAfter(o.Last, o.Seasons)
}

// Overview opens series and lists its non-empty seasons.
func (e *Engine) Overview(ctx context.Context, series catalog.SeriesHandle) (Overview, error) {
	out := Overview{Series: series}
	err := e.Do(ctx, func(ctx context.Context) error {
		if err := e.nav.Open(ctx, series); err != nil {
			return fmt.Errorf("open series: %w", err)
		}
		seasons, err := e.nav.ListSeasons(ctx)
		if err != nil {
			return err
		}
		out.Seasons = seasons
		return nil
	})
	if err != nil {
		return out, err
	}
	out.Last, out.HasLast = acquire.Suggest(series.Name, e.cfg.Paths.DownloadDir)
	return out, nil
}

// Episodes lists one filtered season of series.
func (e *Engine) Episodes(ctx context.Context, series catalog.SeriesHandle, seasonIndex int) ([]catalog.Episode, error) {
	var episodes []catalog.Episode
	err := e.Do(ctx, func(ctx context.Context) error {
		if err := e.nav.Open(ctx, series); err != nil {
			return fmt.Errorf("open series: %w", err)
		}
		var err error
		episodes, err = e.nav.ListEpisodes(ctx, seasonIndex)
		return err
	})
	return episodes, err
}

// Download runs job to completion, cancellation or failure. An empty
// DestinationRoot selects the configured download directory.
func (e *Engine) Download(ctx context.Context, job acquire.Job, token *acquire.Token, progress acquire.ProgressFunc) (acquire.Result, error) {
	if job.DestinationRoot == "" {
		job.DestinationRoot = e.cfg.Paths.DownloadDir
	}
	var result acquire.Result
	err := e.Do(ctx, func(ctx context.Context) error {
		if err := e.nav.Open(ctx, job.Series); err != nil {
			return fmt.Errorf("open series: %w", err)
		}
		var err error
		result, err = e.orch.Run(ctx, job, token, progress)
		return err
	})
	return result, err
}
