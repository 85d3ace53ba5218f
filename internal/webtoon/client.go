// Package webtoon fetches series metadata, episode lists, and viewer
// pages from webtoon-style viewer sites.
package webtoon

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"

	"github.com/toonworks/webtoon-dl/internal/auth"
	"github.com/toonworks/webtoon-dl/internal/cache"
	"github.com/toonworks/webtoon-dl/internal/ratelimit"
	"github.com/toonworks/webtoon-dl/internal/retry"
	"github.com/toonworks/webtoon-dl/pkg/models"
)

var (
	// ErrNoEpisodes means the series page parsed but carried no episode list.
	ErrNoEpisodes = errors.New("no episodes found on series page")
	// ErrNoImages means the viewer page parsed but carried no page images.
	ErrNoImages = errors.New("no images found on viewer page")
)

// consentCookies pre-answers the GDPR and age-gate interstitials so the
// static client sees the real page instead of a consent wall.
var consentCookies = map[string]string{
	"needGDPR":    "FALSE",
	"needCCPA":    "FALSE",
	"needCOPPA":   "FALSE",
	"ageGatePass": "true",
	"pagGDPR":     "true",
}

// challengeMarkers in a response body mean the static client was served
// a bot wall rather than content.
var challengeMarkers = []string{
	"cf-challenge",
	"captcha-delivery",
	"Access Denied",
}

// Client fetches and parses series and viewer pages. Static HTTP with
// goquery is the primary engine; a BrowserFetcher, when attached, takes
// over for --mode browser and for auto-mode fallback on blocked fetches.
type Client struct {
	cache     cache.Cache
	limiter   ratelimit.RateLimiter
	client    *http.Client
	timeout   time.Duration
	userAgent string
	cacheTTL  time.Duration

	mu      sync.Mutex
	browser *BrowserFetcher
}

// NewClient creates a Client with dependency injection
func NewClient(c cache.Cache, lim ratelimit.RateLimiter, client *http.Client, timeout time.Duration, ua string, cacheTTL time.Duration) *Client {
	return &Client{
		cache:     c,
		limiter:   lim,
		client:    client,
		timeout:   timeout,
		userAgent: ua,
		cacheTTL:  cacheTTL,
	}
}

// SetBrowserFetcher attaches the browser engine (thread-safe). The app
// creates it lazily since starting Chrome is expensive.
func (c *Client) SetBrowserFetcher(b *BrowserFetcher) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.browser = b
}

func (c *Client) browserFetcher() *BrowserFetcher {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.browser
}

// FetchSeries retrieves the series page, walks the paginated episode
// list until exhaustion, and returns the series with chapters ordered
// oldest first and numbered 1..N.
func (c *Client) FetchSeries(ctx context.Context, opts models.FetchOptions) (*models.Series, error) {
	doc, err := c.fetchDoc(ctx, opts.URL, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch series page: %w", err)
	}

	series := parseSeriesMeta(doc, opts.URL)
	chapters := parseEpisodeList(doc, opts.URL)

	lastPage := maxListPage(doc)
	for page := 2; page <= lastPage; page++ {
		pageURL := withPage(opts.URL, page)
		pageDoc, err := c.fetchDoc(ctx, pageURL, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch episode list page %d: %w", page, err)
		}
		chapters = append(chapters, parseEpisodeList(pageDoc, pageURL)...)

		// Later pages can extend the paginator window
		if mp := maxListPage(pageDoc); mp > lastPage {
			lastPage = mp
		}
	}

	if len(chapters) == 0 {
		// Script-driven list pages keep episodes in inline JS
		harvested := harvestInlineData(doc, opts.URL)
		chapters = harvested.Episodes
	}
	if len(chapters) == 0 {
		return nil, ErrNoEpisodes
	}

	series.Chapters = normalizeChapters(chapters)

	log.Debug().
		Str("series", series.Title).
		Int("chapters", len(series.Chapters)).
		Msg("Series fetched")

	return series, nil
}

// FetchChapterContent retrieves one viewer page and extracts its page
// images and creator note.
func (c *Client) FetchChapterContent(ctx context.Context, chapter models.ChapterInfo, opts models.FetchOptions) (*ChapterContent, error) {
	if chapter.ViewerURL == "" {
		return nil, fmt.Errorf("chapter %d has no viewer URL", chapter.Number)
	}

	viewerOpts := opts
	viewerOpts.URL = chapter.ViewerURL

	doc, err := c.fetchDoc(ctx, chapter.ViewerURL, viewerOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch viewer page for chapter %d: %w", chapter.Number, err)
	}

	content := parseViewer(doc, chapter.ViewerURL)
	if len(content.ImageURLs) == 0 {
		harvested := harvestInlineData(doc, chapter.ViewerURL)
		content.ImageURLs = harvested.ImageURLs
	}
	if len(content.ImageURLs) == 0 {
		return nil, ErrNoImages
	}

	log.Debug().
		Int("chapter", chapter.Number).
		Int("images", len(content.ImageURLs)).
		Bool("has_note", content.Note != "").
		Msg("Viewer page fetched")

	return content, nil
}

// fetchDoc retrieves one page as a parsed document, honoring the cache,
// the per-host rate limit, and the fetch mode.
func (c *Client) fetchDoc(ctx context.Context, pageURL string, opts models.FetchOptions) (*goquery.Document, error) {
	if body, ok := c.cache.Get(pageURL); ok {
		return goquery.NewDocumentFromReader(bytes.NewReader(body))
	}

	if err := c.limiter.Wait(ctx, pageURL); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	var body []byte
	var err error

	switch opts.Mode {
	case models.ModeBrowser:
		body, err = c.fetchBrowser(ctx, pageURL, opts)
	case models.ModeStatic:
		body, err = c.fetchStatic(ctx, pageURL, opts)
	default: // models.ModeAuto
		body, err = c.fetchStatic(ctx, pageURL, opts)
		if isBlocked(err, body) && c.browserFetcher() != nil {
			log.Debug().Str("url", pageURL).Msg("Static fetch blocked, falling back to browser")
			body, err = c.fetchBrowser(ctx, pageURL, opts)
		}
	}
	if err != nil {
		return nil, err
	}

	c.cache.Set(pageURL, body, c.cacheTTL)

	return goquery.NewDocumentFromReader(bytes.NewReader(body))
}

// fetchStatic performs a plain HTTP GET with the consent cookies and the
// Referer the site requires, retrying retryable statuses with backoff.
func (c *Client) fetchStatic(ctx context.Context, pageURL string, opts models.FetchOptions) ([]byte, error) {
	start := time.Now()

	var body []byte
	err := retry.WithRetry(ctx, retry.DefaultConfig(), func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}

		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")
		req.Header.Set("Referer", refererFor(pageURL))

		for name, value := range consentCookies {
			req.AddCookie(&http.Cookie{Name: name, Value: value})
		}

		// Session cookies for age-gated or subscriber series
		if opts.SessionName != "" {
			if session, err := auth.LoadSession(opts.SessionName); err != nil {
				log.Warn().Err(err).Str("session", opts.SessionName).Msg("Failed to load session")
			} else {
				for _, ck := range session.Cookies {
					req.AddCookie(&http.Cookie{Name: ck.Name, Value: ck.Value})
				}
				for key, value := range session.Headers {
					req.Header.Set(key, value)
				}
			}
		}

		for key, value := range opts.Headers {
			req.Header.Set(key, value)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return retry.NewHTTPError(resp.StatusCode, resp.Status, pageURL)
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response body: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("url", pageURL).
		Int("bytes", len(body)).
		Dur("elapsed", time.Since(start)).
		Msg("Static fetch completed")

	return body, nil
}

// fetchBrowser renders the page in headless Chrome.
func (c *Client) fetchBrowser(ctx context.Context, pageURL string, opts models.FetchOptions) ([]byte, error) {
	browser := c.browserFetcher()
	if browser == nil {
		return nil, fmt.Errorf("browser mode requested but no browser available")
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = c.timeout
	}

	html, err := browser.FetchHTML(ctx, pageURL, timeout)
	if err != nil {
		return nil, err
	}
	return []byte(html), nil
}

// isBlocked reports whether a static fetch was refused by a bot wall.
func isBlocked(err error, body []byte) bool {
	var httpErr retry.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == http.StatusForbidden || httpErr.StatusCode == http.StatusTooManyRequests
	}
	if err != nil {
		return false
	}
	for _, marker := range challengeMarkers {
		if bytes.Contains(body, []byte(marker)) {
			return true
		}
	}
	return false
}

// refererFor returns the site root, which the image CDN and some list
// endpoints require as Referer.
func refererFor(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		return pageURL
	}
	return u.Scheme + "://" + u.Host + "/"
}

// withPage returns pageURL with its page query parameter set to n.
func withPage(pageURL string, n int) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		if strings.Contains(pageURL, "?") {
			return pageURL + "&page=" + strconv.Itoa(n)
		}
		return pageURL + "?page=" + strconv.Itoa(n)
	}
	q := u.Query()
	q.Set("page", strconv.Itoa(n))
	u.RawQuery = q.Encode()
	return u.String()
}
