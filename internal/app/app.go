// Package app provides the core application initialization and lifecycle management.
package app

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/toonworks/webtoon-dl/internal/cache"
	"github.com/toonworks/webtoon-dl/internal/config"
	"github.com/toonworks/webtoon-dl/internal/ratelimit"
	"github.com/toonworks/webtoon-dl/internal/webtoon"
)

// Application holds all application dependencies and manages their lifecycle.
//
// It is created once at startup and shared across all CLI commands.
// Use Close() to ensure proper resource cleanup on shutdown.
type Application struct {
	Config      *config.Config
	Logger      *zerolog.Logger
	Cache       cache.Cache
	RateLimiter ratelimit.RateLimiter
	HTTPClient  *http.Client
	Webtoon     *webtoon.Client

	browserMu sync.Mutex
	browser   *webtoon.BrowserFetcher
	startTime time.Time
}

// New creates and initializes a new Application with all dependencies.
//
// The browser engine is not started here; it is created lazily by
// EnsureBrowser once a command actually needs Chrome.
func New(ctx context.Context, cfg *config.Config) (*Application, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	// Initialize logger based on config
	logLevel := zerolog.ErrorLevel // default: suppress non-verbose info logs
	switch cfg.LogLevel {
	case "debug":
		logLevel = zerolog.DebugLevel
	case "warn":
		logLevel = zerolog.WarnLevel
	default:
		logLevel = zerolog.ErrorLevel
	}
	zerolog.SetGlobalLevel(logLevel)

	var logWriter io.Writer
	if cfg.JSONLog {
		logWriter = os.Stderr
	} else {
		logWriter = zerolog.NewConsoleWriter()
	}

	logger := log.Output(logWriter).With().Timestamp().Logger()

	logger.Debug().
		Str("level", cfg.LogLevel).
		Bool("json", cfg.JSONLog).
		Msg("Logger initialized")

	memCache := cache.NewMemoryCache(cfg.CacheMaxSizeBytes)
	logger.Debug().
		Int64("max_size_bytes", cfg.CacheMaxSizeBytes).
		Msg("Memory cache initialized")

	rateLimiter := ratelimit.NewHostLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	logger.Debug().
		Float64("rps", cfg.RateLimitRPS).
		Int("burst", cfg.RateLimitBurst).
		Msg("Rate limiter initialized")

	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
	if cfg.Proxy != "" {
		proxyURL, err := url.Parse(cfg.Proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL: %w", err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
		logger.Debug().Str("proxy", cfg.Proxy).Msg("Proxy configured")
	}

	httpClient := &http.Client{
		Timeout:   cfg.HTTPTimeout,
		Transport: transport,
	}
	logger.Debug().
		Dur("timeout", cfg.HTTPTimeout).
		Msg("HTTP client initialized")

	client := webtoon.NewClient(
		memCache,
		rateLimiter,
		httpClient,
		cfg.HTTPTimeout,
		cfg.UserAgent,
		cfg.CacheTTL,
	)

	app := &Application{
		Config:      cfg,
		Logger:      &logger,
		Cache:       memCache,
		RateLimiter: rateLimiter,
		HTTPClient:  httpClient,
		Webtoon:     client,
		startTime:   time.Now(),
	}

	logger.Debug().Msg("Application initialized")
	return app, nil
}

// EnsureBrowser lazily creates the browser fetcher and attaches it to
// the webtoon client. Safe to call from multiple commands.
func (a *Application) EnsureBrowser(ctx context.Context) error {
	if a == nil {
		return fmt.Errorf("application is nil")
	}

	a.browserMu.Lock()
	defer a.browserMu.Unlock()

	if a.browser != nil {
		return nil
	}

	a.Logger.Debug().Msg("Initializing browser engine on demand")
	browser := webtoon.NewBrowserFetcher(webtoon.BrowserOptions{
		ChromePath: a.Config.ChromePath,
		UserAgent:  a.Config.UserAgent,
		Proxy:      a.Config.Proxy,
		Headless:   a.Config.BrowserHeadless,
	})

	a.browser = browser
	a.Webtoon.SetBrowserFetcher(browser)

	a.Logger.Debug().Msg("Browser engine initialized on demand")
	return nil
}

// Close gracefully shuts down the application and all its resources.
//
// Any errors during shutdown are logged but do not prevent other
// shutdown steps.
func (a *Application) Close(ctx context.Context) error {
	a.Logger.Debug().Msg("Shutting down application")

	if a.Cache != nil {
		a.Cache.Close()
	}

	if a.HTTPClient != nil {
		a.HTTPClient.CloseIdleConnections()
	}

	uptime := time.Since(a.startTime)
	a.Logger.Debug().Dur("uptime", uptime).Msg("Application shutdown complete")
	return nil
}

// Uptime returns how long the application has been running.
func (a *Application) Uptime() time.Duration {
	return time.Since(a.startTime)
}
