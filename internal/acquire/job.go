package acquire

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"episodic/internal/catalog"
)

// Mode is the shape of a job.
type Mode int

const (
	FixedCount Mode = iota
	WholeSeason
	WholeSeries
)

func (m Mode) String() string {
	switch m {
	case WholeSeason:
		return "whole_season"
	case WholeSeries:
		return "whole_series"
	default:
		return "fixed_count"
	}
}

// ParseMode is the inverse of Mode.String.
func ParseMode(value string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "fixed_count", "count", "":
		return FixedCount, nil
	case "whole_season", "season":
		return WholeSeason, nil
	case "whole_series", "series":
		return WholeSeries, nil
	default:
		return FixedCount, fmt.Errorf("unknown job mode %q", value)
	}
}

// ErrInvalidJob reports a job that cannot be planned.
var ErrInvalidJob = errors.New("invalid job")

// Job is one user-initiated batch request. Season and episode indices are
// 0-based; StartSeason indexes the filtered season list.
type Job struct {
	ID              string
	Mode            Mode
	Series          catalog.SeriesHandle
	StartSeason     int
	StartEpisode    int
	Count           int
	DestinationRoot string
}

// Validate checks the fields the mode depends on.
func (j Job) Validate() error {
	if strings.TrimSpace(j.Series.Name) == "" {
		return fmt.Errorf("%w: series name is empty", ErrInvalidJob)
	}
	if strings.TrimSpace(j.DestinationRoot) == "" {
		return fmt.Errorf("%w: destination root is empty", ErrInvalidJob)
	}
	if j.StartSeason < 0 || j.StartEpisode < 0 {
		return fmt.Errorf("%w: negative start position", ErrInvalidJob)
	}
	if j.Mode == FixedCount && j.Count < 1 {
		return fmt.Errorf("%w: count must be at least 1", ErrInvalidJob)
	}
	return nil
}

// Describe renders the plan for logs and notifications.
func (j Job) Describe() string {
	switch j.Mode {
	case WholeSeason:
		return fmt.Sprintf("season %d", j.StartSeason+1)
	case WholeSeries:
		return "whole series"
	default:
		if j.Count == 1 {
			return fmt.Sprintf("S%dE%d", j.StartSeason+1, j.StartEpisode+1)
		}
		return fmt.Sprintf("%d episodes from S%dE%d", j.Count, j.StartSeason+1, j.StartEpisode+1)
	}
}

// Token is a cooperative stop signal, checked between episodes.
type Token struct {
	once sync.Once
	done chan struct{}
}

// NewToken returns an untriggered token.
func NewToken() *Token {
	return &Token{done: make(chan struct{})}
}

// Cancel requests a stop. Safe to call repeatedly and from any goroutine.
func (t *Token) Cancel() {
	t.once.Do(func() { close(t.done) })
}

// Canceled reports whether Cancel was called. A nil token never cancels.
func (t *Token) Canceled() bool {
	if t == nil {
		return false
	}
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// Done is closed once Cancel is called.
func (t *Token) Done() <-chan struct{} {
	return t.done
}
