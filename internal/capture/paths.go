package capture

import (
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"episodic/internal/resume"
	"episodic/internal/textutil"
)

// DefaultExtension is used when the media URL carries no usable extension.
const DefaultExtension = ".mp4"

// SeasonDir is the directory holding a season's episodes.
func SeasonDir(root, seriesName, seasonName string) string {
	return filepath.Join(resume.SeriesDir(root, seriesName), textutil.SanitizePathComponent(seasonName))
}

// EpisodeFileName names an episode file, 1-based.
func EpisodeFileName(p resume.Pointer, ext string) string {
	if ext == "" {
		ext = DefaultExtension
	}
	return p.Label() + ext
}

// ExtensionFor picks the file extension from a media URL.
func ExtensionFor(mediaURL string) string {
	u, err := url.Parse(mediaURL)
	if err != nil {
		return DefaultExtension
	}
	ext := strings.ToLower(path.Ext(u.Path))
	if len(ext) < 2 || len(ext) > 5 {
		return DefaultExtension
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return DefaultExtension
		}
	}
	return ext
}
