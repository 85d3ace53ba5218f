package config

import "fmt"

func validate(c *Config) error {
	switch {
	case c.HTTPTimeout <= 0:
		return fmt.Errorf("http timeout must be > 0")
	case c.Concurrency < 1 || c.Concurrency > MaxConcurrency:
		return fmt.Errorf("concurrency must be between 1 and %d", MaxConcurrency)
	case c.RateLimitRPS <= 0:
		return fmt.Errorf("rate limit must be > 0 requests per second")
	case c.CacheMaxSizeBytes <= 0:
		return fmt.Errorf("cache max size must be > 0")
	}
	return nil
}
