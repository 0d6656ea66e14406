package acquire

import (
	"episodic/internal/catalog"
	"episodic/internal/resume"
)

// Suggest returns the last completed episode of seriesName under root, which
// callers pre-select as the starting point. It never skips anything itself.
func Suggest(seriesName, root string) (resume.Pointer, bool) {
	return resume.LastCompleted(seriesName, root)
}

// NextAfter returns the episode following p in the filtered season listing,
// rolling into the next season. ok is false when p was the last episode or
// lies outside the listing.
func NextAfter(p resume.Pointer, seasons []catalog.Season) (resume.Pointer, bool) {
	if p.SeasonIndex < 0 || p.SeasonIndex >= len(seasons) {
		return resume.Pointer{}, false
	}
	if p.EpisodeIndex+1 < seasons[p.SeasonIndex].Episodes {
		return resume.Pointer{SeasonIndex: p.SeasonIndex, EpisodeIndex: p.EpisodeIndex + 1}, true
	}
	if p.SeasonIndex+1 < len(seasons) {
		return resume.Pointer{SeasonIndex: p.SeasonIndex + 1}, true
	}
	return resume.Pointer{}, false
}

// ResumeFrom rewrites job to start at next, the first episode not yet on
// disk. Season and series jobs become count jobs over the episodes that
// remain in their scope. ok is false when nothing in the job's scope is left.
func ResumeFrom(job Job, next resume.Pointer, seasons []catalog.Season) (Job, bool) {
	if next.SeasonIndex < 0 || next.SeasonIndex >= len(seasons) {
		return job, false
	}
	switch job.Mode {
	case WholeSeries:
		remaining := seasons[next.SeasonIndex].Episodes - next.EpisodeIndex
		for _, s := range seasons[next.SeasonIndex+1:] {
			remaining += s.Episodes
		}
		job.Count = remaining
	case WholeSeason:
		switch {
		case job.StartSeason >= len(seasons) || next.SeasonIndex < job.StartSeason:
			// Out of range or not started yet; Run reports or runs it whole.
			return job, true
		case next.SeasonIndex > job.StartSeason:
			return job, false
		}
		job.Count = seasons[next.SeasonIndex].Episodes - next.EpisodeIndex
	}
	job.Mode = FixedCount
	job.StartSeason, job.StartEpisode = next.SeasonIndex, next.EpisodeIndex
	if job.Count <= 0 {
		return job, false
	}
	return job, true
}
