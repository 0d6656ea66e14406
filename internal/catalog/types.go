package catalog

import (
	"context"
	"errors"
)

// Outcome classifies a search.
type Outcome int

const (
	NotFound Outcome = iota
	Found
	NoEpisodes
	Canceled
)

func (o Outcome) String() string {
	switch o {
	case Found:
		return "found"
	case NoEpisodes:
		return "no_episodes"
	case Canceled:
		return "canceled"
	default:
		return "not_found"
	}
}

// ErrIndexOutOfRange reports a season or episode index past the listing.
var ErrIndexOutOfRange = errors.New("index out of range")

// Tile is one search result as rendered on the results page.
type Tile struct {
	Index int
	Title string
	Href  string
}

// Picker chooses among ambiguous search results. Returning ok=false, an
// error, or an index outside tiles cancels the search.
type Picker interface {
	Pick(ctx context.Context, query string, tiles []Tile) (index int, ok bool, err error)
}

// PickerFunc adapts a function to Picker.
type PickerFunc func(ctx context.Context, query string, tiles []Tile) (int, bool, error)

func (f PickerFunc) Pick(ctx context.Context, query string, tiles []Tile) (int, bool, error) {
	return f(ctx, query, tiles)
}

// SeriesHandle is a resolved series: its display name and page address.
type SeriesHandle struct {
	Name string
	URL  string
}

// SearchResult is the outcome of Search. Series is set only when Found.
type SearchResult struct {
	Outcome       Outcome
	Series        SeriesHandle
	Disambiguated bool
}

// Season is a non-empty season. Index is the filtered index; Position is the
// season's place in the raw catalog listing.
type Season struct {
	Index    int
	Name     string
	Position int
	Episodes int
}

// Episode is one episode link within a filtered season.
type Episode struct {
	SeasonIndex  int
	EpisodeIndex int
	Name         string
}
