package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const envPrefix = "TIKSCRAPER_"

// Config holds all configuration options for tikscraper
type Config struct {
	TikTok    TikTokConfig    `yaml:"tiktok" json:"tiktok"`
	Extractor ExtractorConfig `yaml:"extractor" json:"extractor"`
	Scrape    ScrapeConfig    `yaml:"scrape" json:"scrape"`
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`
	Database  DatabaseConfig  `yaml:"database" json:"database"`
	Export    ExportConfig    `yaml:"export" json:"export"`
	Server    ServerConfig    `yaml:"server" json:"server"`
	Logging   LoggingConfig   `yaml:"logging" json:"logging"`
}

// TikTokConfig holds comment API settings and session cookies
type TikTokConfig struct {
	APIBaseURL     string        `yaml:"api_base_url" json:"api_base_url"`
	AID            string        `yaml:"aid" json:"aid"`
	UserAgent      string        `yaml:"user_agent" json:"user_agent"`
	SessionID      string        `yaml:"session_id" json:"session_id"`
	MsToken        string        `yaml:"ms_token" json:"ms_token"`
	Proxy          string        `yaml:"proxy" json:"proxy"`
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout"`
}

// ExtractorConfig holds settings for the external video listing tool
type ExtractorConfig struct {
	Binary           string        `yaml:"binary" json:"binary"`
	PlaylistEnd      int           `yaml:"playlist_end" json:"playlist_end"`
	SleepRequests    int           `yaml:"sleep_requests" json:"sleep_requests"`
	ExtractorRetries int           `yaml:"extractor_retries" json:"extractor_retries"`
	Timeout          time.Duration `yaml:"timeout" json:"timeout"`
	CookiesBrowser   string        `yaml:"cookies_browser" json:"cookies_browser"`
}

// ScrapeConfig holds ingestion pass settings
type ScrapeConfig struct {
	ProfilesFile     string        `yaml:"profiles_file" json:"profiles_file"`
	Days             int           `yaml:"days" json:"days"`
	ProfileDelay     time.Duration `yaml:"profile_delay" json:"profile_delay"`
	VideoDelay       time.Duration `yaml:"video_delay" json:"video_delay"`
	CommentPageSize  int           `yaml:"comment_page_size" json:"comment_page_size"`
	CommentPageDelay time.Duration `yaml:"comment_page_delay" json:"comment_page_delay"`
	ReplyPageDelay   time.Duration `yaml:"reply_page_delay" json:"reply_page_delay"`
}

// RateLimitConfig holds outbound request limits for the comment API
type RateLimitConfig struct {
	RequestsPerMinute int           `yaml:"requests_per_minute" json:"requests_per_minute"`
	Burst             int           `yaml:"burst" json:"burst"`
	MaxRetries        int           `yaml:"max_retries" json:"max_retries"`
	RetryDelay        time.Duration `yaml:"retry_delay" json:"retry_delay"`
}

// DatabaseConfig selects the persistence backend. An empty URL selects the
// in-memory store.
type DatabaseConfig struct {
	URL      string `yaml:"url" json:"url"`
	MaxConns int32  `yaml:"max_conns" json:"max_conns"`
}

// ExportConfig holds dataset export settings
type ExportConfig struct {
	Directory string `yaml:"directory" json:"directory"`
	Keep      int    `yaml:"keep" json:"keep"`
}

// ServerConfig holds the export endpoint settings
type ServerConfig struct {
	Addr string `yaml:"addr" json:"addr"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		TikTok: TikTokConfig{
			APIBaseURL:     "https://www.tiktok.com/api",
			AID:            "1988",
			UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			RequestTimeout: 30 * time.Second,
		},
		Extractor: ExtractorConfig{
			Binary:           "yt-dlp",
			PlaylistEnd:      50,
			SleepRequests:    3,
			ExtractorRetries: 3,
			Timeout:          60 * time.Second,
			CookiesBrowser:   "chrome",
		},
		Scrape: ScrapeConfig{
			ProfilesFile:     "profiles.json",
			Days:             30,
			ProfileDelay:     15 * time.Second,
			VideoDelay:       2 * time.Second,
			CommentPageSize:  50,
			CommentPageDelay: 1 * time.Second,
			ReplyPageDelay:   500 * time.Millisecond,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 60,
			Burst:             1,
			MaxRetries:        3,
			RetryDelay:        2 * time.Second,
		},
		Database: DatabaseConfig{
			MaxConns: 4,
		},
		Export: ExportConfig{
			Directory: "exports",
			Keep:      1,
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration from TIKSCRAPER_* environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	setString(&c.TikTok.SessionID, "SESSION_ID")
	setString(&c.TikTok.MsToken, "MS_TOKEN")
	setString(&c.TikTok.UserAgent, "USER_AGENT")
	setString(&c.TikTok.Proxy, "PROXY")
	setString(&c.TikTok.APIBaseURL, "API_BASE_URL")
	setString(&c.Extractor.Binary, "EXTRACTOR_BINARY")
	setString(&c.Scrape.ProfilesFile, "PROFILES_FILE")
	setString(&c.Database.URL, "DATABASE_URL")
	setString(&c.Export.Directory, "EXPORT_DIR")
	setString(&c.Server.Addr, "SERVER_ADDR")
	setString(&c.Logging.Level, "LOG_LEVEL")
	setString(&c.Logging.File, "LOG_FILE")

	errs = append(errs,
		setInt(&c.Scrape.Days, "DAYS"),
		setInt(&c.RateLimit.RequestsPerMinute, "REQUESTS_PER_MINUTE"),
		setDuration(&c.Scrape.ProfileDelay, "PROFILE_DELAY"),
		setDuration(&c.Scrape.VideoDelay, "VIDEO_DELAY"),
	)

	return errors.Join(errs...)
}

func setString(dst *string, key string) {
	if v := os.Getenv(envPrefix + key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(envPrefix + key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s%s: %w", envPrefix, key, err)
	}
	*dst = n
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(envPrefix + key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s%s: %w", envPrefix, key, err)
	}
	*dst = d
	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = FindConfigFile()
		if path == "" {
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// FindConfigFile searches for a config file in standard locations
func FindConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		".tikscraper.yaml",
		".tikscraper.yml",
		"tikscraper.yaml",
		filepath.Join(home, ".config", "tikscraper", "config.yaml"),
		filepath.Join(home, ".tikscraper.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.TikTok.APIBaseURL == "" {
		errs = append(errs, errors.New("tiktok api base url is required"))
	}
	if c.TikTok.RequestTimeout <= 0 {
		errs = append(errs, errors.New("tiktok request timeout must be positive"))
	}
	if c.Extractor.Binary == "" {
		errs = append(errs, errors.New("extractor binary is required"))
	}
	if c.Extractor.PlaylistEnd <= 0 {
		errs = append(errs, errors.New("extractor playlist end must be positive"))
	}
	if c.Extractor.Timeout <= 0 {
		errs = append(errs, errors.New("extractor timeout must be positive"))
	}
	if c.Scrape.Days < 0 {
		errs = append(errs, errors.New("days cannot be negative"))
	}
	if c.Scrape.ProfileDelay < 0 || c.Scrape.VideoDelay < 0 ||
		c.Scrape.CommentPageDelay < 0 || c.Scrape.ReplyPageDelay < 0 {
		errs = append(errs, errors.New("delays cannot be negative"))
	}
	if c.Scrape.CommentPageSize <= 0 || c.Scrape.CommentPageSize > 50 {
		errs = append(errs, errors.New("comment page size must be between 1 and 50"))
	}
	if c.RateLimit.RequestsPerMinute <= 0 {
		errs = append(errs, errors.New("requests per minute must be positive"))
	}
	if c.RateLimit.Burst <= 0 {
		errs = append(errs, errors.New("burst must be positive"))
	}
	if c.RateLimit.MaxRetries < 0 {
		errs = append(errs, errors.New("max retries cannot be negative"))
	}
	if c.Export.Directory == "" {
		errs = append(errs, errors.New("export directory is required"))
	}
	if c.Export.Keep < 1 {
		errs = append(errs, errors.New("export keep must be at least 1"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	return errors.Join(errs...)
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration.
// Keys match the long flag names of the cobra commands.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if v, ok := flags["profiles"].(string); ok && v != "" {
		c.Scrape.ProfilesFile = v
	}
	if v, ok := flags["days"].(int); ok && v >= 0 {
		c.Scrape.Days = v
	}
	if v, ok := flags["profile-delay"].(time.Duration); ok && v >= 0 {
		c.Scrape.ProfileDelay = v
	}
	if v, ok := flags["video-delay"].(time.Duration); ok && v >= 0 {
		c.Scrape.VideoDelay = v
	}
	if v, ok := flags["database-url"].(string); ok && v != "" {
		c.Database.URL = v
	}
	if v, ok := flags["export-dir"].(string); ok && v != "" {
		c.Export.Directory = v
	}
	if v, ok := flags["proxy"].(string); ok && v != "" {
		c.TikTok.Proxy = v
	}
	if v, ok := flags["addr"].(string); ok && v != "" {
		c.Server.Addr = v
	}
	if v, ok := flags["log-level"].(string); ok && v != "" {
		c.Logging.Level = v
	}
}

// Load loads configuration from all sources with proper precedence.
// Precedence order: flags > environment (.env included) > config file > defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".tikscraper.env"))

	cfg := DefaultConfig()

	if err := cfg.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := cfg.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg.MergeCommandLineFlags(flags)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Masked returns a copy with session values shortened for display
func (c *Config) Masked() *Config {
	out := *c
	out.TikTok.SessionID = MaskSecret(c.TikTok.SessionID)
	out.TikTok.MsToken = MaskSecret(c.TikTok.MsToken)
	return &out
}

// MaskSecret masks all but the first and last 4 characters
func MaskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + s[len(s)-4:]
}
