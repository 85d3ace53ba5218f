// internal/webtoon/inline.go
package webtoon

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/dop251/goja"
	"github.com/rs/zerolog/log"

	urlutil "github.com/toonworks/webtoon-dl/internal/utils/url"
	"github.com/toonworks/webtoon-dl/pkg/models"
)

// inlineData is what the script harvest recovers from pages that carry
// their episode or image lists in JavaScript instead of the DOM.
type inlineData struct {
	ImageURLs []string
	Episodes  []models.ChapterInfo
}

// harvestInlineData executes the page's inline scripts in a sandboxed VM
// and scans the resulting globals for image and episode lists. Script
// errors are expected (most scripts want a real DOM) and ignored.
func harvestInlineData(doc *goquery.Document, pageURL string) *inlineData {
	vm := goja.New()

	// Minimal browser environment, just enough for data-assignment scripts
	vm.Set("window", vm.GlobalObject())
	vm.Set("self", vm.GlobalObject())
	vm.Set("document", map[string]interface{}{
		"location": map[string]interface{}{
			"href": pageURL,
		},
	})
	vm.Set("location", map[string]interface{}{
		"href": pageURL,
	})
	vm.Set("console", map[string]interface{}{
		"log":   func(call goja.FunctionCall) goja.Value { return nil },
		"error": func(call goja.FunctionCall) goja.Value { return nil },
	})

	executed := 0
	doc.Find("script").Each(func(i int, sel *goquery.Selection) {
		// Skip external scripts
		if _, exists := sel.Attr("src"); exists {
			return
		}
		scriptContent := sel.Text()
		if scriptContent == "" {
			return
		}
		if _, err := vm.RunString(scriptContent); err == nil {
			executed++
		}
	})

	data := &inlineData{}
	for _, key := range vm.GlobalObject().Keys() {
		if isStandardGlobal(key) {
			continue
		}
		val := vm.Get(key)
		if val == nil {
			continue
		}
		exported := val.Export()

		lower := strings.ToLower(key)
		switch {
		case strings.Contains(lower, "image"):
			data.ImageURLs = append(data.ImageURLs, extractURLList(exported, pageURL)...)
		case strings.Contains(lower, "episode"):
			data.Episodes = append(data.Episodes, extractEpisodeList(exported, pageURL)...)
		}
	}

	log.Debug().
		Int("scripts", executed).
		Int("images", len(data.ImageURLs)).
		Int("episodes", len(data.Episodes)).
		Msg("Inline script harvest completed")

	return data
}

// extractURLList pulls URL strings out of an exported JS value. Accepts
// plain arrays of strings and arrays of objects with a url/src field.
func extractURLList(v interface{}, pageURL string) []string {
	items, ok := v.([]interface{})
	if !ok {
		return nil
	}

	var urls []string
	for _, item := range items {
		switch it := item.(type) {
		case string:
			if looksLikeImageURL(it) {
				urls = append(urls, urlutil.ResolveURL(pageURL, it))
			}
		case map[string]interface{}:
			for _, field := range []string{"url", "src", "imageUrl"} {
				if s, ok := it[field].(string); ok && looksLikeImageURL(s) {
					urls = append(urls, urlutil.ResolveURL(pageURL, s))
					break
				}
			}
		}
	}
	return urls
}

// extractEpisodeList pulls episode descriptors out of an exported JS
// value. Objects need at least an episodeNo; goja exports JS numbers as
// int64 or float64 depending on their value.
func extractEpisodeList(v interface{}, pageURL string) []models.ChapterInfo {
	items, ok := v.([]interface{})
	if !ok {
		return nil
	}

	var episodes []models.ChapterInfo
	for _, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			continue
		}

		episodeNo, ok := asInt(obj["episodeNo"])
		if !ok {
			if episodeNo, ok = asInt(obj["episode_no"]); !ok {
				continue
			}
		}

		ch := models.ChapterInfo{EpisodeNo: episodeNo}
		if s, ok := obj["episodeTitle"].(string); ok {
			ch.Title = s
		} else if s, ok := obj["title"].(string); ok {
			ch.Title = s
		}
		if s, ok := obj["viewerLink"].(string); ok {
			ch.ViewerURL = urlutil.ResolveURL(pageURL, s)
		} else if s, ok := obj["url"].(string); ok {
			ch.ViewerURL = urlutil.ResolveURL(pageURL, s)
		}

		episodes = append(episodes, ch)
	}
	return episodes
}

func asInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}

func looksLikeImageURL(s string) bool {
	if !strings.HasPrefix(s, "http") && !strings.HasPrefix(s, "/") {
		return false
	}
	lower := strings.ToLower(s)
	for _, ext := range []string{".jpg", ".jpeg", ".png", ".gif", ".webp"} {
		if strings.Contains(lower, ext) {
			return true
		}
	}
	return false
}

func isStandardGlobal(key string) bool {
	standards := map[string]bool{
		"window": true, "self": true, "document": true, "location": true, "console": true,
		"Object": true, "Array": true, "String": true, "Number": true, "Boolean": true,
		"Date": true, "Math": true, "JSON": true, "RegExp": true, "Error": true,
		"Function": true, "parseInt": true, "parseFloat": true, "isNaN": true,
		"isFinite": true, "encodeURI": true, "decodeURI": true, "encodeURIComponent": true,
		"decodeURIComponent": true, "undefined": true, "NaN": true, "Infinity": true,
	}
	return standards[key]
}
