// internal/downloader/downloader.go
package downloader

import (
	"context"
	"fmt"
	"hash/crc32"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/toonworks/webtoon-dl/internal/retry"
)

// DownloadResult represents the result of a download operation
type DownloadResult struct {
	URL       string
	FilePath  string
	Size      int64
	Success   bool
	Error     error
	StartTime time.Time
	Duration  time.Duration
}

// DownloadOptions configures the download behavior
type DownloadOptions struct {
	OutputDir string
	Filename  string
	// Referer is required by the image CDN; requests without it get 403
	Referer string
	Headers map[string]string
	Retry   retry.Config
}

// Downloader handles streaming image downloads to disk
type Downloader struct {
	client    *http.Client
	userAgent string
}

// NewDownloader creates a new Downloader instance
func NewDownloader(timeout time.Duration, userAgent string) *Downloader {
	client := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	return &Downloader{
		client:    client,
		userAgent: userAgent,
	}
}

// Download downloads a single file with streaming I/O, retrying
// retryable statuses with backoff. Partially written files are removed.
func (d *Downloader) Download(ctx context.Context, fileURL string, opts DownloadOptions) *DownloadResult {
	result := &DownloadResult{
		URL:       fileURL,
		StartTime: time.Now(),
	}

	if _, err := url.Parse(fileURL); err != nil {
		result.Error = fmt.Errorf("invalid URL: %w", err)
		result.Duration = time.Since(result.StartTime)
		return result
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		result.Error = fmt.Errorf("failed to create output directory: %w", err)
		result.Duration = time.Since(result.StartTime)
		return result
	}

	filename := opts.Filename
	if filename == "" {
		filename = sanitizeFilename(fileURL)
	} else {
		filename = sanitizeFilename(filename)
	}

	filePath := filepath.Join(opts.OutputDir, filename)
	result.FilePath = filePath

	retryCfg := opts.Retry
	if retryCfg.MaxAttempts == 0 {
		retryCfg = retry.DefaultConfig()
	}

	err := retry.WithRetry(ctx, retryCfg, func() error {
		return d.downloadOnce(ctx, fileURL, filePath, opts, result)
	})
	if err != nil {
		result.Error = err
		result.Duration = time.Since(result.StartTime)
		return result
	}

	result.Success = true
	result.Duration = time.Since(result.StartTime)

	log.Debug().
		Str("url", fileURL).
		Str("file", filePath).
		Int64("bytes", result.Size).
		Dur("duration", result.Duration).
		Msg("Download completed")

	return result
}

// downloadOnce performs a single download attempt
func (d *Downloader) downloadOnce(ctx context.Context, fileURL, filePath string, opts DownloadOptions, result *DownloadResult) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", d.userAgent)
	req.Header.Set("Accept", "image/avif,image/webp,image/*,*/*;q=0.8")
	if opts.Referer != "" {
		req.Header.Set("Referer", opts.Referer)
	}
	for key, value := range opts.Headers {
		req.Header.Set(key, value)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return retry.NewHTTPError(resp.StatusCode, resp.Status, fileURL)
	}

	outFile, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer outFile.Close()

	bytesWritten, err := io.Copy(outFile, resp.Body)
	if err != nil {
		os.Remove(filePath)
		return fmt.Errorf("failed to write file: %w", err)
	}

	result.Size = bytesWritten
	return nil
}

// sanitizeFilename prevents path traversal attacks
func sanitizeFilename(input string) string {
	// Extract filename from URL
	var queryHash string
	if u, err := url.Parse(input); err == nil && u.Host != "" {
		parts := strings.Split(u.Path, "/")
		if len(parts) > 0 {
			input = parts[len(parts)-1]
		}
		if u.RawQuery != "" {
			queryHash = "_" + hashString(u.RawQuery)
		}
	}

	// Remove dangerous characters
	for _, c := range []string{"/", "\\", "..", ":", "*", "?", "\"", "<", ">", "|"} {
		input = strings.ReplaceAll(input, c, "_")
	}

	input = strings.TrimSpace(input)
	input = strings.Trim(input, ".")

	// Append query hash before the extension so distinct CDN variants
	// of the same path don't collide
	ext := filepath.Ext(input)
	stem := strings.TrimSuffix(input, ext)
	if queryHash != "" {
		input = stem + queryHash + ext
	}

	if input == "" {
		input = fmt.Sprintf("download_%d", time.Now().Unix())
	}
	if len(input) > 200 {
		input = input[:200]
	}

	return input
}

// hashString creates a fixed-width hash for unique filenames
func hashString(s string) string {
	return fmt.Sprintf("%08x", crc32.ChecksumIEEE([]byte(s)))
}
