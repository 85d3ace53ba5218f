package models

import "time"

// Series holds the metadata scraped from a series landing page together
// with its chapter index.
type Series struct {
	URL      string        `json:"url"`
	TitleNo  int           `json:"title_no"`
	Title    string        `json:"title"`
	Creator  string        `json:"creator,omitempty"`
	Genre    string        `json:"genre,omitempty"`
	Summary  string        `json:"summary,omitempty"`
	Chapters []ChapterInfo `json:"chapters,omitempty"`
}

// ChapterInfo describes one chapter of a series. Number is the 1-based
// ordinal used for file naming and export keys; EpisodeNo is the site's
// internal episode id, which can drift from the ordinal when episodes
// have been removed or relisted.
type ChapterInfo struct {
	Number    int    `json:"number"`
	EpisodeNo int    `json:"episode_no"`
	Title     string `json:"title"`
	ViewerURL string `json:"viewer_url,omitempty"`
}

// FetchMode selects how pages are retrieved
type FetchMode string

const (
	ModeAuto    FetchMode = "auto"
	ModeStatic  FetchMode = "static"
	ModeBrowser FetchMode = "browser"
)

// FetchOptions contains options for a single page fetch
type FetchOptions struct {
	URL         string
	Mode        FetchMode
	Headers     map[string]string
	SessionName string
	Timeout     time.Duration
}

// PadWidth returns the number of decimal digits needed to print n, the
// usual zero-fill width for chapter file prefixes. PadWidth(0) is 1.
func PadWidth(n int) int {
	if n < 0 {
		n = -n
	}
	width := 1
	for n >= 10 {
		n /= 10
		width++
	}
	return width
}
