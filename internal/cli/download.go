// internal/cli/download.go
package cli

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/toonworks/webtoon-dl/internal/auth"
	"github.com/toonworks/webtoon-dl/internal/downloader"
	"github.com/toonworks/webtoon-dl/internal/exporter"
	"github.com/toonworks/webtoon-dl/internal/ui"
	headersutil "github.com/toonworks/webtoon-dl/internal/utils/headers"
	textutil "github.com/toonworks/webtoon-dl/internal/utils/text"
	urlutil "github.com/toonworks/webtoon-dl/internal/utils/url"
	"github.com/toonworks/webtoon-dl/pkg/models"
)

var (
	dlStart        int
	dlEnd          int
	dlLatest       bool
	dlDest         string
	dlSeparate     bool
	dlExportTexts  bool
	dlExportFormat string
	dlConcurrency  int
	dlMode         string
	dlSession      string
	dlHeaders      []string
)

// downloadCmd represents the download command
var downloadCmd = &cobra.Command{
	Use:   "download <series-url>",
	Short: "Download chapters of a series",
	Long: `Fetches a series page, walks its episode list, and downloads the page
images of the selected chapters using a concurrent worker pool.

With --export-texts, chapter titles, creator notes, and the series summary
are also written out as plain-text files, a single JSON document, or both,
depending on --export-format.`,
	Example: `  # Download every chapter of a series
  webtoon-dl download "https://www.webtoons.com/en/fantasy/tower-of-god/list?title_no=95"

  # Download chapters 10 through 20 into ./tog, one directory per chapter
  webtoon-dl download <series-url> --start=10 --end=20 --dest=./tog --separate

  # Download the latest chapter and export all text content as JSON
  webtoon-dl download <series-url> --latest --export-texts --export-format=json

  # Use a saved session for an age-gated series, rendering pages in Chrome
  webtoon-dl download <series-url> --session=my-login --mode=browser`,
	Args: cobra.ExactArgs(1),
	RunE: runDownload,
}

func init() {
	rootCmd.AddCommand(downloadCmd)

	downloadCmd.Flags().IntVar(&dlStart, "start", 1, "First chapter to download (1-based)")
	downloadCmd.Flags().IntVar(&dlEnd, "end", 0, "Last chapter to download (0 = through the end)")
	downloadCmd.Flags().BoolVar(&dlLatest, "latest", false, "Download only the latest chapter")
	downloadCmd.Flags().StringVarP(&dlDest, "dest", "d", "", "Destination directory (default: series title)")
	downloadCmd.Flags().BoolVar(&dlSeparate, "separate", true, "One directory per chapter")
	downloadCmd.Flags().BoolVar(&dlExportTexts, "export-texts", false, "Export titles, notes, and summary")
	downloadCmd.Flags().StringVar(&dlExportFormat, "export-format", "all", "Text export format: text, json, or all")
	downloadCmd.Flags().IntVarP(&dlConcurrency, "concurrency", "c", 0, "Concurrent download workers (default from config)")
	downloadCmd.Flags().StringVarP(&dlMode, "mode", "m", "auto", "Fetch mode: auto, static, or browser")
	downloadCmd.Flags().StringVarP(&dlSession, "session", "s", "", "Name of a saved auth session to use")
	downloadCmd.Flags().StringArrayVarP(&dlHeaders, "header", "H", []string{}, "Custom headers (e.g., -H \"Accept-Language: ko\")")
}

func runDownload(cmd *cobra.Command, args []string) error {
	seriesURL := args[0]

	if err := urlutil.ValidateURL(seriesURL); err != nil {
		return err
	}

	fetchMode, err := parseFetchMode(dlMode)
	if err != nil {
		return err
	}

	appCtx := getApp()
	if appCtx == nil {
		return fmt.Errorf("application not initialized")
	}

	ctx := context.Background()

	// Browser mode (or auto fallback) needs Chrome available
	if fetchMode == models.ModeBrowser || fetchMode == models.ModeAuto {
		if err := appCtx.EnsureBrowser(ctx); err != nil && fetchMode == models.ModeBrowser {
			return fmt.Errorf("browser mode unavailable: %w", err)
		}
	}

	opts := models.FetchOptions{
		URL:         seriesURL,
		Mode:        fetchMode,
		Headers:     headersutil.ParseHeaders(dlHeaders),
		SessionName: dlSession,
		Timeout:     appCtx.Config.HTTPTimeout,
	}

	log.Debug().Str("url", seriesURL).Str("mode", string(fetchMode)).Msg("Fetching series")
	series, err := appCtx.Webtoon.FetchSeries(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to fetch series: %w", err)
	}

	chapters, err := selectChapters(series.Chapters, dlStart, dlEnd, dlLatest)
	if err != nil {
		return err
	}

	dest := dlDest
	if dest == "" {
		dest = slugify(series.Title)
		if dest == "" {
			dest = "webtoon"
		}
	}

	fmt.Printf("\n%s %s\n", ui.Bold(series.Title), ui.ColorDim+fmt.Sprintf("(%d chapters, downloading %d)", len(series.Chapters), len(chapters))+ui.ColorReset)
	fmt.Printf("%s %s\n\n", ui.Info("Destination:"), dest)

	// Text exporter, when requested
	var exp *exporter.TextExporter
	if dlExportTexts {
		format, err := exporter.ParseFormat(dlExportFormat)
		if err != nil {
			return err
		}
		exp, err = exporter.New(format, dest)
		if err != nil {
			return err
		}

		summary, err := textutil.ToPlainText(series.Summary)
		if err != nil {
			return fmt.Errorf("failed to convert summary: %w", err)
		}
		if err := exp.AddSeriesText(summary, ""); err != nil {
			return fmt.Errorf("failed to export summary: %w", err)
		}
	}

	concurrency := dlConcurrency
	if concurrency <= 0 {
		concurrency = appCtx.Config.Concurrency
	}
	pool := downloader.NewWorkerPool(concurrency, appCtx.Config.HTTPTimeout, appCtx.Config.UserAgent)

	// Image CDNs behind a login need the session cookies too
	imageHeaders := opts.Headers
	if dlSession != "" {
		if session, err := auth.LoadSession(dlSession); err != nil {
			warnf("session %q: %v", dlSession, err)
		} else {
			imageHeaders = sessionHeaders(session, opts.Headers)
		}
	}

	padding := models.PadWidth(series.Chapters[len(series.Chapters)-1].Number)

	var failed int
	for _, ch := range chapters {
		content, err := appCtx.Webtoon.FetchChapterContent(ctx, ch, opts)
		if err != nil {
			warnf("chapter %d: %v", ch.Number, err)
			failed++
			continue
		}

		prefix := fmt.Sprintf("%0*d", padding, ch.Number)
		chapterDir := dest
		if dlSeparate {
			chapterDir = filepath.Join(dest, prefix)
		}

		if exp != nil {
			notes, err := textutil.ToPlainText(content.Note)
			if err != nil {
				return fmt.Errorf("failed to convert creator note: %w", err)
			}
			if err := exp.AddChapterDetails(ch, notes, padding, chapterDir); err != nil {
				return fmt.Errorf("failed to export chapter %d texts: %w", ch.Number, err)
			}
		}

		jobs := make([]downloader.Job, len(content.ImageURLs))
		for i, imgURL := range content.ImageURLs {
			jobs[i] = downloader.Job{
				URL:      imgURL,
				Filename: fmt.Sprintf("%s_%d%s", prefix, i+1, imageExt(imgURL)),
			}
		}

		bar := progressbar.Default(int64(len(jobs)), fmt.Sprintf("chapter %s", prefix))
		pool.OnComplete = func(r *downloader.DownloadResult) {
			bar.Add(1)
		}

		results := pool.DownloadBatch(ctx, jobs, downloader.DownloadOptions{
			OutputDir: chapterDir,
			Referer:   ch.ViewerURL,
			Headers:   imageHeaders,
		})
		bar.Finish()

		for _, r := range results {
			if !r.Success {
				warnf("chapter %d: %s: %v", ch.Number, r.URL, r.Error)
				failed++
			}
		}
	}

	if exp != nil {
		if err := exp.WriteData(""); err != nil {
			return fmt.Errorf("failed to write info.json: %w", err)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d download(s) failed", failed)
	}

	fmt.Printf("\n%s Downloaded %d chapter(s) to %s\n", ui.Success("✓"), len(chapters), dest)
	return nil
}

// sessionHeaders merges a saved session's headers and cookies into the
// request headers. Explicit -H flags win over session headers.
func sessionHeaders(session *auth.SessionData, flags map[string]string) map[string]string {
	merged := make(map[string]string, len(session.Headers)+len(flags)+1)
	for k, v := range session.Headers {
		merged[k] = v
	}
	var pairs []string
	for _, ck := range session.Cookies {
		pairs = append(pairs, ck.Name+"="+ck.Value)
	}
	if len(pairs) > 0 {
		merged["Cookie"] = strings.Join(pairs, "; ")
	}
	for k, v := range flags {
		merged[k] = v
	}
	return merged
}

// parseFetchMode validates the --mode flag
func parseFetchMode(s string) (models.FetchMode, error) {
	switch strings.ToLower(s) {
	case "auto":
		return models.ModeAuto, nil
	case "static":
		return models.ModeStatic, nil
	case "browser":
		return models.ModeBrowser, nil
	}
	return "", fmt.Errorf("invalid mode: %s (must be auto, static, or browser)", s)
}

// selectChapters applies the --start/--end/--latest range selection
func selectChapters(chapters []models.ChapterInfo, start, end int, latest bool) ([]models.ChapterInfo, error) {
	if len(chapters) == 0 {
		return nil, fmt.Errorf("series has no chapters")
	}
	if latest {
		return chapters[len(chapters)-1:], nil
	}

	if start < 1 {
		start = 1
	}
	if end == 0 || end > len(chapters) {
		end = len(chapters)
	}
	if start > end {
		return nil, fmt.Errorf("invalid range: start %d is past end %d", start, end)
	}

	return chapters[start-1 : end], nil
}

// imageExt returns the file extension of an image URL, defaulting to .jpg
func imageExt(imgURL string) string {
	u, err := url.Parse(imgURL)
	if err != nil {
		return ".jpg"
	}
	ext := strings.ToLower(path.Ext(u.Path))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp":
		return ext
	}
	return ".jpg"
}

// slugify derives a filesystem-friendly directory name from a series title
func slugify(title string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(title) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastDash = false
		case !lastDash:
			b.WriteRune('-')
			lastDash = true
		}
	}
	return strings.Trim(b.String(), "-")
}
