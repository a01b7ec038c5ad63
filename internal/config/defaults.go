package config

import "time"

// Default constants for application configuration
const (
	DefaultLogLevel     = "info"
	DefaultJSONLog      = false
	DefaultStoreDriver  = "postgres"
	DefaultHTTPAddr     = ":8080"
	DefaultHeadless     = true
	DefaultNavTimeout   = 60 * time.Second
	DefaultMaxScrolls   = 25
	DefaultNavRateRPS   = 0.5
	DefaultNavRateBurst = 2
	DefaultJobBreather  = 3 * time.Second
	DefaultDebugDir     = "debug"
	DefaultMediaDir     = "media"
	DefaultUserAgent    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
)
