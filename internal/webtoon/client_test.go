package webtoon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/toonworks/webtoon-dl/internal/cache"
	"github.com/toonworks/webtoon-dl/internal/ratelimit"
	"github.com/toonworks/webtoon-dl/internal/retry"
	"github.com/toonworks/webtoon-dl/pkg/models"
)

func fakeHTTPError(code int) error {
	return retry.NewHTTPError(code, http.StatusText(code), "https://example.com/page")
}

func newTestClient(t *testing.T) *Client {
	t.Helper()
	mc := cache.NewMemoryCache(1 << 20)
	t.Cleanup(mc.Close)
	lim := ratelimit.NewHostLimiter(1000, 1000)
	return NewClient(mc, lim, &http.Client{Timeout: 10 * time.Second}, 10*time.Second, "Test/1.0", time.Minute)
}

func episodeItem(episodeNo int, title string) string {
	return fmt.Sprintf(`<li class="_episodeItem" data-episode-no="%d">
		<a href="/viewer?episode_no=%d"><span class="subj"><span>%s</span></span></a>
	</li>`, episodeNo, episodeNo, title)
}

func TestFetchSeries_PaginationWalk(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		paginate := fmt.Sprintf(`<div class="paginate">
			<a href="%s/list?title_no=1&page=1">1</a>
			<a href="%s/list?title_no=1&page=2">2</a>
		</div>`, server.URL, server.URL)

		switch page {
		case "", "1":
			fmt.Fprintf(w, `<html><body>
				<h1 class="subj">Paged Series</h1>
				<p class="summary">Two pages of episodes.</p>
				<ul id="_listUl">%s%s</ul>%s
			</body></html>`, episodeItem(4, "Four"), episodeItem(3, "Three"), paginate)
		case "2":
			// The boundary episode repeats on the next page
			fmt.Fprintf(w, `<html><body>
				<ul id="_listUl">%s%s%s</ul>%s
			</body></html>`, episodeItem(3, "Three"), episodeItem(2, "Two"), episodeItem(1, "One"), paginate)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := newTestClient(t)
	series, err := client.FetchSeries(context.Background(), models.FetchOptions{
		URL:  server.URL + "/list?title_no=1",
		Mode: models.ModeStatic,
	})
	if err != nil {
		t.Fatalf("FetchSeries failed: %v", err)
	}

	if series.Title != "Paged Series" {
		t.Errorf("Title mismatch: got %q", series.Title)
	}
	if len(series.Chapters) != 4 {
		t.Fatalf("Chapter count mismatch: got %d, want 4", len(series.Chapters))
	}
	for i, ch := range series.Chapters {
		if ch.Number != i+1 {
			t.Errorf("Chapter %d has ordinal %d", i, ch.Number)
		}
	}
	if series.Chapters[0].Title != "One" || series.Chapters[3].Title != "Four" {
		t.Errorf("Chapters not ordered oldest first: %q .. %q",
			series.Chapters[0].Title, series.Chapters[3].Title)
	}
}

func TestFetchSeries_SendsConsentCookies(t *testing.T) {
	var gotCookies map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCookies = make(map[string]string)
		for _, ck := range r.Cookies() {
			gotCookies[ck.Name] = ck.Value
		}
		fmt.Fprintf(w, `<html><body><ul id="_listUl">%s</ul></body></html>`, episodeItem(1, "One"))
	}))
	defer server.Close()

	client := newTestClient(t)
	_, err := client.FetchSeries(context.Background(), models.FetchOptions{
		URL:  server.URL + "/list?title_no=1",
		Mode: models.ModeStatic,
	})
	if err != nil {
		t.Fatalf("FetchSeries failed: %v", err)
	}

	if gotCookies["needGDPR"] != "FALSE" {
		t.Errorf("Missing needGDPR cookie: %v", gotCookies)
	}
	if gotCookies["ageGatePass"] != "true" {
		t.Errorf("Missing ageGatePass cookie: %v", gotCookies)
	}
}

func TestFetchSeries_NoEpisodes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><h1 class="subj">Empty</h1></body></html>`)
	}))
	defer server.Close()

	client := newTestClient(t)
	_, err := client.FetchSeries(context.Background(), models.FetchOptions{
		URL:  server.URL + "/list?title_no=1",
		Mode: models.ModeStatic,
	})
	if !errors.Is(err, ErrNoEpisodes) {
		t.Errorf("Expected ErrNoEpisodes, got %v", err)
	}
}

func TestFetchSeries_InlineScriptFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>
			<h1 class="subj">Scripted Series</h1>
			<script>
				var episodeList = [
					{episodeNo: 2, episodeTitle: "Second", viewerLink: "/viewer?episode_no=2"},
					{episodeNo: 1, episodeTitle: "First", viewerLink: "/viewer?episode_no=1"}
				];
			</script>
		</body></html>`)
	}))
	defer server.Close()

	client := newTestClient(t)
	series, err := client.FetchSeries(context.Background(), models.FetchOptions{
		URL:  server.URL + "/list?title_no=1",
		Mode: models.ModeStatic,
	})
	if err != nil {
		t.Fatalf("FetchSeries failed: %v", err)
	}

	if len(series.Chapters) != 2 {
		t.Fatalf("Chapter count mismatch: got %d, want 2", len(series.Chapters))
	}
	if series.Chapters[0].Title != "First" || series.Chapters[0].Number != 1 {
		t.Errorf("First chapter mismatch: %+v", series.Chapters[0])
	}
}

func TestFetchChapterContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>
			<div id="_imageList">
				<img data-url="https://cdn.example.com/001.jpg">
				<img data-url="https://cdn.example.com/002.jpg">
			</div>
			<div class="creator_note"><p class="author_text">See you next week</p></div>
		</body></html>`)
	}))
	defer server.Close()

	client := newTestClient(t)
	content, err := client.FetchChapterContent(context.Background(), models.ChapterInfo{
		Number:    1,
		EpisodeNo: 1,
		ViewerURL: server.URL + "/viewer?episode_no=1",
	}, models.FetchOptions{Mode: models.ModeStatic})
	if err != nil {
		t.Fatalf("FetchChapterContent failed: %v", err)
	}

	if len(content.ImageURLs) != 2 {
		t.Errorf("Image count mismatch: got %d, want 2", len(content.ImageURLs))
	}
	if content.Note != "See you next week" {
		t.Errorf("Note mismatch: got %q", content.Note)
	}
}

func TestFetchChapterContent_NoViewerURL(t *testing.T) {
	client := newTestClient(t)
	_, err := client.FetchChapterContent(context.Background(), models.ChapterInfo{Number: 3}, models.FetchOptions{})
	if err == nil {
		t.Fatal("Expected error for chapter without viewer URL")
	}
}

func TestFetchDoc_UsesCache(t *testing.T) {
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		fmt.Fprint(w, `<html><body><div id="_imageList"><img data-url="https://cdn.example.com/a.jpg"></div></body></html>`)
	}))
	defer server.Close()

	client := newTestClient(t)
	ch := models.ChapterInfo{Number: 1, ViewerURL: server.URL + "/viewer?episode_no=1"}
	opts := models.FetchOptions{Mode: models.ModeStatic}

	for i := 0; i < 2; i++ {
		if _, err := client.FetchChapterContent(context.Background(), ch, opts); err != nil {
			t.Fatalf("Fetch %d failed: %v", i, err)
		}
	}

	if hits != 1 {
		t.Errorf("Server hit count mismatch: got %d, want 1", hits)
	}
}

func TestIsBlocked(t *testing.T) {
	tests := []struct {
		name string
		err  error
		body []byte
		want bool
	}{
		{"forbidden status", fakeHTTPError(http.StatusForbidden), nil, true},
		{"rate limited status", fakeHTTPError(http.StatusTooManyRequests), nil, true},
		{"server error", fakeHTTPError(http.StatusInternalServerError), nil, false},
		{"challenge body", nil, []byte(`<div class="cf-challenge">verify</div>`), true},
		{"clean body", nil, []byte(`<html><body>ok</body></html>`), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := isBlocked(tt.err, tt.body)
			if got != tt.want {
				t.Errorf("isBlocked = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWithPage(t *testing.T) {
	got := withPage("https://www.webtoons.com/en/fantasy/tower/list?title_no=1234", 3)
	want := "https://www.webtoons.com/en/fantasy/tower/list?page=3&title_no=1234"
	if got != want {
		t.Errorf("withPage = %q, want %q", got, want)
	}
}
