// internal/webtoon/extractor.go
package webtoon

import (
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	urlutil "github.com/toonworks/webtoon-dl/internal/utils/url"
	"github.com/toonworks/webtoon-dl/pkg/models"
)

// ChapterContent is the payload extracted from one viewer page.
type ChapterContent struct {
	ImageURLs []string
	// Note is the creator note as raw HTML; callers convert it to
	// readable text before exporting.
	Note string
}

// parseSeriesMeta extracts title, summary, and creator from a series list page.
func parseSeriesMeta(doc *goquery.Document, pageURL string) *models.Series {
	series := &models.Series{URL: pageURL}

	series.Title = strings.TrimSpace(doc.Find("h1.subj").First().Text())
	if series.Title == "" {
		series.Title = strings.TrimSpace(doc.Find("h3.subj").First().Text())
	}

	series.Summary = strings.TrimSpace(doc.Find("p.summary").First().Text())
	series.Genre = strings.TrimSpace(doc.Find("h2.genre").First().Text())

	// The author area mixes author names with an "author info" button label
	author := doc.Find(".author_area").First().Clone()
	author.Find("button, a.author_info").Remove()
	series.Creator = collapseWhitespace(author.Text())
	if series.Creator == "" {
		series.Creator = strings.TrimSpace(doc.Find("a.author").First().Text())
	}

	if u, err := url.Parse(pageURL); err == nil {
		if n, err := strconv.Atoi(u.Query().Get("title_no")); err == nil {
			series.TitleNo = n
		}
	}

	return series
}

// parseEpisodeList extracts the episodes listed on one page of the
// series list, newest first as the site serves them. Relative viewer
// links are resolved against the page URL.
func parseEpisodeList(doc *goquery.Document, pageURL string) []models.ChapterInfo {
	var chapters []models.ChapterInfo

	doc.Find("ul#_listUl li._episodeItem").Each(func(i int, s *goquery.Selection) {
		episodeNo, err := strconv.Atoi(s.AttrOr("data-episode-no", ""))
		if err != nil {
			return
		}

		href := s.Find("a").First().AttrOr("href", "")
		if href == "" {
			return
		}

		title := strings.TrimSpace(s.Find("span.subj span").First().Text())
		if title == "" {
			title = strings.TrimSpace(s.Find("span.subj").First().Text())
		}

		chapters = append(chapters, models.ChapterInfo{
			EpisodeNo: episodeNo,
			Title:     title,
			ViewerURL: urlutil.ResolveURL(pageURL, href),
		})
	})

	return chapters
}

// maxListPage returns the largest page number linked from the paginator,
// or 1 when the list fits on a single page.
func maxListPage(doc *goquery.Document) int {
	max := 1
	doc.Find(".paginate a").Each(func(i int, s *goquery.Selection) {
		href := s.AttrOr("href", "")
		u, err := url.Parse(href)
		if err != nil {
			return
		}
		if n, err := strconv.Atoi(u.Query().Get("page")); err == nil && n > max {
			max = n
		}
	})
	return max
}

// normalizeChapters deduplicates episodes by episode number and assigns
// ascending 1-based ordinals, oldest chapter first. The site lists
// newest episodes first and repeats boundary entries across pages.
func normalizeChapters(chapters []models.ChapterInfo) []models.ChapterInfo {
	seen := make(map[int]models.ChapterInfo, len(chapters))
	for _, ch := range chapters {
		if _, ok := seen[ch.EpisodeNo]; !ok {
			seen[ch.EpisodeNo] = ch
		}
	}

	out := make([]models.ChapterInfo, 0, len(seen))
	for _, ch := range seen {
		out = append(out, ch)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EpisodeNo < out[j].EpisodeNo })

	for i := range out {
		out[i].Number = i + 1
	}
	return out
}

// parseViewer extracts the page images and the creator note from a
// viewer page. Image URLs prefer the data-url attribute (the src is a
// lazy-load placeholder) and are resolved against the page URL.
func parseViewer(doc *goquery.Document, pageURL string) *ChapterContent {
	content := &ChapterContent{}

	doc.Find("#_imageList img").Each(func(i int, s *goquery.Selection) {
		src := s.AttrOr("data-url", "")
		if src == "" {
			src = s.AttrOr("src", "")
		}
		if src == "" {
			return
		}
		content.ImageURLs = append(content.ImageURLs, urlutil.ResolveURL(pageURL, src))
	})

	note := doc.Find(".creator_note .author_text").First()
	if note.Length() == 0 {
		note = doc.Find("p.author_text").First()
	}
	if note.Length() > 0 {
		if h, err := note.Html(); err == nil {
			content.Note = strings.TrimSpace(h)
		}
	}

	return content
}

// collapseWhitespace trims and squeezes runs of whitespace to one space.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
