package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "https://www.tiktok.com/api", cfg.TikTok.APIBaseURL)
	assert.Equal(t, "1988", cfg.TikTok.AID)
	assert.Equal(t, 30*time.Second, cfg.TikTok.RequestTimeout)

	assert.Equal(t, "yt-dlp", cfg.Extractor.Binary)
	assert.Equal(t, 50, cfg.Extractor.PlaylistEnd)
	assert.Equal(t, 60*time.Second, cfg.Extractor.Timeout)

	assert.Equal(t, "profiles.json", cfg.Scrape.ProfilesFile)
	assert.Equal(t, 30, cfg.Scrape.Days)
	assert.Equal(t, 15*time.Second, cfg.Scrape.ProfileDelay)
	assert.Equal(t, 2*time.Second, cfg.Scrape.VideoDelay)
	assert.Equal(t, 50, cfg.Scrape.CommentPageSize)
	assert.Equal(t, time.Second, cfg.Scrape.CommentPageDelay)
	assert.Equal(t, 500*time.Millisecond, cfg.Scrape.ReplyPageDelay)

	assert.Equal(t, "exports", cfg.Export.Directory)
	assert.Empty(t, cfg.Database.URL)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("TIKSCRAPER_SESSION_ID", "session-from-env")
	t.Setenv("TIKSCRAPER_DATABASE_URL", "postgres://localhost/tiktok")
	t.Setenv("TIKSCRAPER_DAYS", "7")
	t.Setenv("TIKSCRAPER_PROFILE_DELAY", "3s")
	t.Setenv("TIKSCRAPER_LOG_LEVEL", "debug")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())

	assert.Equal(t, "session-from-env", cfg.TikTok.SessionID)
	assert.Equal(t, "postgres://localhost/tiktok", cfg.Database.URL)
	assert.Equal(t, 7, cfg.Scrape.Days)
	assert.Equal(t, 3*time.Second, cfg.Scrape.ProfileDelay)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadFromEnvRejectsMalformedNumbers(t *testing.T) {
	t.Setenv("TIKSCRAPER_DAYS", "thirty")
	t.Setenv("TIKSCRAPER_VIDEO_DELAY", "two seconds")

	cfg := DefaultConfig()
	err := cfg.LoadFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TIKSCRAPER_DAYS")
	assert.Contains(t, err.Error(), "TIKSCRAPER_VIDEO_DELAY")
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
scrape:
  profiles_file: groups.yaml
  days: 14
  profile_delay: 5s
extractor:
  binary: /usr/local/bin/yt-dlp
database:
  url: postgres://db/tiktok
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromFile(path))

	assert.Equal(t, "groups.yaml", cfg.Scrape.ProfilesFile)
	assert.Equal(t, 14, cfg.Scrape.Days)
	assert.Equal(t, 5*time.Second, cfg.Scrape.ProfileDelay)
	assert.Equal(t, "/usr/local/bin/yt-dlp", cfg.Extractor.Binary)
	assert.Equal(t, "postgres://db/tiktok", cfg.Database.URL)
	// untouched keys keep defaults
	assert.Equal(t, 2*time.Second, cfg.Scrape.VideoDelay)
}

func TestLoadFromFileInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scrape: [unclosed"), 0644))

	cfg := DefaultConfig()
	assert.Error(t, cfg.LoadFromFile(path))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(c *Config) {}, ""},
		{"negative days", func(c *Config) { c.Scrape.Days = -1 }, "days cannot be negative"},
		{"negative delay", func(c *Config) { c.Scrape.VideoDelay = -time.Second }, "delays cannot be negative"},
		{"page size too large", func(c *Config) { c.Scrape.CommentPageSize = 100 }, "comment page size"},
		{"missing binary", func(c *Config) { c.Extractor.Binary = "" }, "extractor binary is required"},
		{"bad log level", func(c *Config) { c.Logging.Level = "chatty" }, "invalid log level"},
		{"keep zero", func(c *Config) { c.Export.Keep = 0 }, "export keep"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadPrecedence(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scrape:\n  days: 10\n  profiles_file: file.json\n"), 0644))

	t.Setenv("TIKSCRAPER_DAYS", "20")

	cfg, err := Load(path, map[string]interface{}{
		"profiles": "flag.json",
	})
	require.NoError(t, err)

	assert.Equal(t, 20, cfg.Scrape.Days, "env overrides file")
	assert.Equal(t, "flag.json", cfg.Scrape.ProfilesFile, "flags override file")
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Scrape.Days = 3
	require.NoError(t, cfg.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded Config
	require.NoError(t, yaml.Unmarshal(data, &decoded))
	assert.Equal(t, 3, decoded.Scrape.Days)
	assert.Equal(t, cfg.Scrape.ProfileDelay, decoded.Scrape.ProfileDelay)
}

func TestMasked(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TikTok.SessionID = "abcdef1234567890"
	cfg.TikTok.MsToken = "short"

	masked := cfg.Masked()
	assert.Equal(t, "abcd...7890", masked.TikTok.SessionID)
	assert.Equal(t, "********", masked.TikTok.MsToken)
	assert.Equal(t, "abcdef1234567890", cfg.TikTok.SessionID, "original is untouched")
}
