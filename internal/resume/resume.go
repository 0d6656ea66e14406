// Package resume infers where a series download left off from the files
// already in the destination tree.
//
// The layout is <root>/<sanitized series>/<season dir>/<S#E#.ext>. The
// newest season directory and the newest file inside it are picked with a
// numeric-aware ordering so unpadded names like S2E10 sort after S2E9.
// Anything unexpected yields no pointer: resuming is a convenience.
package resume

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"episodic/internal/textutil"
)

// PartialSuffix marks a capture still in progress; such files never count.
const PartialSuffix = ".part"

var pointerPattern = regexp.MustCompile(`(?i)^S(\d+)E(\d+)$`)

// Pointer is a 0-based season and episode.
type Pointer struct {
	SeasonIndex  int
	EpisodeIndex int
}

// Label renders the pointer in the 1-based file naming convention.
func (p Pointer) Label() string {
	return "S" + strconv.Itoa(p.SeasonIndex+1) + "E" + strconv.Itoa(p.EpisodeIndex+1)
}

// ParsePointer reads an "S<season>E<episode>" base name, 1-based, into a
// 0-based Pointer. The extension, if any, is ignored.
func ParsePointer(name string) (Pointer, bool) {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	m := pointerPattern.FindStringSubmatch(strings.TrimSpace(base))
	if m == nil {
		return Pointer{}, false
	}
	season, err := strconv.Atoi(m[1])
	if err != nil || season < 1 {
		return Pointer{}, false
	}
	episode, err := strconv.Atoi(m[2])
	if err != nil || episode < 1 {
		return Pointer{}, false
	}
	return Pointer{SeasonIndex: season - 1, EpisodeIndex: episode - 1}, true
}

// SeriesDir is where files for seriesTitle live under root.
func SeriesDir(root, seriesTitle string) string {
	return filepath.Join(root, textutil.SanitizePathComponent(seriesTitle))
}

// LastCompleted returns the most recent completed episode for seriesTitle.
func LastCompleted(seriesTitle, root string) (Pointer, bool) {
	seriesDir := SeriesDir(root, seriesTitle)
	season, ok := latest(seriesDir, true)
	if !ok {
		return Pointer{}, false
	}
	file, ok := latest(filepath.Join(seriesDir, season), false)
	if !ok {
		return Pointer{}, false
	}
	return ParsePointer(file)
}

// ListSeries returns the series directory names under root in natural order.
func ListSeries(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() && !strings.HasPrefix(entry.Name(), ".") {
			names = append(names, entry.Name())
		}
	}
	sort.Slice(names, func(i, j int) bool { return textutil.NaturalLess(names[i], names[j]) })
	return names, nil
}

// CountEpisodes counts completed episode files under a series directory.
func CountEpisodes(seriesDir string) int {
	seasons, err := os.ReadDir(seriesDir)
	if err != nil {
		return 0
	}
	total := 0
	for _, season := range seasons {
		if !season.IsDir() {
			continue
		}
		files, err := os.ReadDir(filepath.Join(seriesDir, season.Name()))
		if err != nil {
			continue
		}
		for _, f := range files {
			if countable(f, false) {
				total++
			}
		}
	}
	return total
}

func latest(dir string, dirs bool) (string, bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}
	var best string
	for _, entry := range entries {
		if !countable(entry, dirs) {
			continue
		}
		if best == "" || textutil.NaturalLess(best, entry.Name()) {
			best = entry.Name()
		}
	}
	return best, best != ""
}

func countable(entry os.DirEntry, dirs bool) bool {
	name := entry.Name()
	if strings.HasPrefix(name, ".") || entry.IsDir() != dirs {
		return false
	}
	return dirs || !strings.HasSuffix(name, PartialSuffix)
}
