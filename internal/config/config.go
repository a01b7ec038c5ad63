// Package config merges the harvest configuration from four layers, in
// increasing precedence: built-in defaults, the YAML plan file, HARVEST_*
// environment variables (including a .env file), and CLI flags.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Config holds application configuration values
type Config struct {
	// Logging
	LogLevel string
	JSONLog  bool

	// Crawl plan
	City       string
	Districts  []string
	Categories []string

	// Storage
	StoreDriver string // "postgres" or "memory"
	DatabaseURL string

	// HTTP API
	HTTPAddr string

	// Browser
	UserAgent  string
	Proxy      string
	ChromePath string
	Headless   bool
	NavTimeout time.Duration
	MaxScrolls int
	DebugDir   string

	// Pacing
	NavRateRPS   float64
	NavRateBurst int
	JobBreather  time.Duration

	// Media downloads
	MediaDir string
}

// planFile is the YAML shape of the plan/config file. Only the plan is
// required; everything else overrides a default when present.
type planFile struct {
	City       string   `yaml:"city"`
	Districts  []string `yaml:"districts"`
	Categories []string `yaml:"categories"`

	LogLevel    string  `yaml:"log_level"`
	StoreDriver string  `yaml:"store_driver"`
	DatabaseURL string  `yaml:"database_url"`
	HTTPAddr    string  `yaml:"http_addr"`
	UserAgent   string  `yaml:"user_agent"`
	Proxy       string  `yaml:"proxy"`
	ChromePath  string  `yaml:"chrome_path"`
	Headless    *bool   `yaml:"headless"`
	NavTimeout  string  `yaml:"nav_timeout"`
	MaxScrolls  int     `yaml:"max_scrolls"`
	NavRateRPS  float64 `yaml:"nav_rate_rps"`
	DebugDir    string  `yaml:"debug_dir"`
	MediaDir    string  `yaml:"media_dir"`
}

// Load builds a Config by combining defaults, an optional plan file,
// environment variables, and CLI flags. Caller should pass the root
// *cobra.Command so flags can be read.
func Load(cmd *cobra.Command) (*Config, error) {
	cfg := &Config{
		LogLevel:     DefaultLogLevel,
		JSONLog:      DefaultJSONLog,
		StoreDriver:  DefaultStoreDriver,
		HTTPAddr:     DefaultHTTPAddr,
		UserAgent:    DefaultUserAgent,
		Headless:     DefaultHeadless,
		NavTimeout:   DefaultNavTimeout,
		MaxScrolls:   DefaultMaxScrolls,
		NavRateRPS:   DefaultNavRateRPS,
		NavRateBurst: DefaultNavRateBurst,
		JobBreather:  DefaultJobBreather,
		DebugDir:     DefaultDebugDir,
		MediaDir:     DefaultMediaDir,
	}

	if path := flagValue(cmd, "config"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	// .env is optional; real environment variables win over it.
	_ = godotenv.Load()
	cfg.applyEnv()

	cfg.applyFlags(cmd)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var pf planFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	setString(&c.City, pf.City)
	if len(pf.Districts) > 0 {
		c.Districts = pf.Districts
	}
	if len(pf.Categories) > 0 {
		c.Categories = pf.Categories
	}
	setString(&c.LogLevel, pf.LogLevel)
	setString(&c.StoreDriver, pf.StoreDriver)
	setString(&c.DatabaseURL, pf.DatabaseURL)
	setString(&c.HTTPAddr, pf.HTTPAddr)
	setString(&c.UserAgent, pf.UserAgent)
	setString(&c.Proxy, pf.Proxy)
	setString(&c.ChromePath, pf.ChromePath)
	setString(&c.DebugDir, pf.DebugDir)
	setString(&c.MediaDir, pf.MediaDir)
	if pf.Headless != nil {
		c.Headless = *pf.Headless
	}
	if pf.NavTimeout != "" {
		d, err := time.ParseDuration(pf.NavTimeout)
		if err != nil {
			return fmt.Errorf("parse nav_timeout: %w", err)
		}
		c.NavTimeout = d
	}
	if pf.MaxScrolls > 0 {
		c.MaxScrolls = pf.MaxScrolls
	}
	if pf.NavRateRPS > 0 {
		c.NavRateRPS = pf.NavRateRPS
	}
	return nil
}

func (c *Config) applyEnv() {
	setString(&c.City, os.Getenv("HARVEST_CITY"))
	if v := os.Getenv("HARVEST_DISTRICTS"); v != "" {
		c.Districts = splitList(v)
	}
	if v := os.Getenv("HARVEST_CATEGORIES"); v != "" {
		c.Categories = splitList(v)
	}
	setString(&c.LogLevel, os.Getenv("HARVEST_LOG_LEVEL"))
	setString(&c.StoreDriver, os.Getenv("HARVEST_STORE_DRIVER"))
	setString(&c.DatabaseURL, os.Getenv("DATABASE_URL"))
	setString(&c.HTTPAddr, os.Getenv("HARVEST_HTTP_ADDR"))
	setString(&c.UserAgent, os.Getenv("HARVEST_USER_AGENT"))
	setString(&c.Proxy, os.Getenv("HARVEST_PROXY"))
	setString(&c.ChromePath, os.Getenv("CHROME_PATH"))
	setString(&c.DebugDir, os.Getenv("HARVEST_DEBUG_DIR"))
	setString(&c.MediaDir, os.Getenv("HARVEST_MEDIA_DIR"))
	if v := os.Getenv("HARVEST_HEADLESS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Headless = b
		}
	}
}

func (c *Config) applyFlags(cmd *cobra.Command) {
	if cmd == nil {
		return
	}
	setString(&c.City, flagValue(cmd, "city"))
	if v := flagValue(cmd, "districts"); v != "" {
		c.Districts = splitList(v)
	}
	if v := flagValue(cmd, "categories"); v != "" {
		c.Categories = splitList(v)
	}
	setString(&c.DatabaseURL, flagValue(cmd, "database-url"))
	setString(&c.StoreDriver, flagValue(cmd, "store"))
	setString(&c.HTTPAddr, flagValue(cmd, "addr"))
	setString(&c.UserAgent, flagValue(cmd, "user-agent"))
	setString(&c.Proxy, flagValue(cmd, "proxy"))
	setString(&c.ChromePath, flagValue(cmd, "chrome-path"))

	if v := flagValue(cmd, "nav-timeout"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.NavTimeout = d
		}
	}
	if flagValue(cmd, "headed") == "true" {
		c.Headless = false
	}
	if flagValue(cmd, "json") == "true" {
		c.JSONLog = true
	}
	if flagValue(cmd, "verbose") == "true" {
		c.LogLevel = "debug"
	}
	if flagValue(cmd, "quiet") == "true" {
		c.LogLevel = "error"
	}
}

// flagValue checks the persistent set as well: before cobra merges flag
// sets during Execute, flags registered with PersistentFlags are not
// visible through Flags().
func flagValue(cmd *cobra.Command, name string) string {
	if cmd == nil {
		return ""
	}
	if f := cmd.Flags().Lookup(name); f != nil {
		return f.Value.String()
	}
	if f := cmd.PersistentFlags().Lookup(name); f != nil {
		return f.Value.String()
	}
	return ""
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// splitList splits a comma-separated list, trimming whitespace and
// dropping empties.
func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
