package config

import "time"

// Default constants for application configuration
const (
	DefaultLogLevel          = "info"
	DefaultJSONLog           = false
	DefaultUserAgent         = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
	DefaultHTTPTimeout       = 30 * time.Second
	DefaultRateLimitRPS      = 3.0
	DefaultRateLimitBurst    = 5
	DefaultConcurrency       = 4
	MaxConcurrency           = 16
	DefaultCacheTTL          = 5 * time.Minute
	DefaultCacheMaxSizeBytes = 32 * 1024 * 1024 // 32MB
	DefaultBrowserHeadless   = true
)
