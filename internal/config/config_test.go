package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configEnvVars = []string{
	"READWISE_TOKEN", "USER_AGENT", "READWISE_API_URL", "READWISE_TIMEOUT",
	"READWISE_MAX_RETRIES", "READWISE_RETRY_DELAY", "READWISE_MAX_RETRY_DELAY",
	"ZOTERO_BBT_URL", "ZOTERO_STORAGE_DIR", "UPLOADS_SITE", "UPLOADS_DIR",
	"MARKDOWN_OUTPUT_DIR",
}

// clearEnv unsets every config variable for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range configEnvVars {
		if value, ok := os.LookupEnv(name); ok {
			t.Cleanup(func() { os.Setenv(name, value) })
		} else {
			t.Cleanup(func() { os.Unsetenv(name) })
		}
		os.Unsetenv(name)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg := Load(filepath.Join(t.TempDir(), "missing.env"))

	assert.Equal(t, "", cfg.Readwise.Token)
	assert.Equal(t, DefaultUserAgent, cfg.Readwise.UserAgent)
	assert.Equal(t, DefaultReadwiseAPIURL, cfg.Readwise.APIURL)
	assert.Equal(t, 30*time.Second, cfg.Readwise.Timeout)
	assert.Equal(t, 5, cfg.Readwise.MaxRetries)
	assert.Equal(t, time.Second, cfg.Readwise.RetryDelay)
	assert.Equal(t, 30*time.Second, cfg.Readwise.MaxRetryDelay)
	assert.Equal(t, DefaultBetterBibTeXURL, cfg.Zotero.BetterBibTeXURL)
	assert.True(t, strings.HasSuffix(cfg.Zotero.StorageDir, filepath.Join("Zotero", "storage")))
	assert.Equal(t, DefaultUploadsSite, cfg.Zotero.UploadsSite)
	assert.Equal(t, defaultUploadsDir(time.Now()), cfg.Zotero.UploadsDir)
	assert.Equal(t, ".", cfg.Markdown.OutputDir)
}

func TestLoad_Environment(t *testing.T) {
	clearEnv(t)
	t.Setenv("READWISE_TOKEN", "secret")
	t.Setenv("READWISE_MAX_RETRIES", "2")
	t.Setenv("READWISE_RETRY_DELAY", "250ms")
	t.Setenv("UPLOADS_DIR", "static/images")

	cfg := Load()

	assert.Equal(t, "secret", cfg.Readwise.Token)
	assert.Equal(t, 2, cfg.Readwise.MaxRetries)
	assert.Equal(t, 250*time.Millisecond, cfg.Readwise.RetryDelay)
	assert.Equal(t, "static/images", cfg.Zotero.UploadsDir)
}

func TestLoad_DotEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("READWISE_TOKEN", "from-env")

	envFile := filepath.Join(t.TempDir(), ".env")
	content := "READWISE_TOKEN=from-file\nUSER_AGENT=dotenv-agent\nMARKDOWN_OUTPUT_DIR=notes\n"
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0644))

	cfg := Load(envFile)

	assert.Equal(t, "from-env", cfg.Readwise.Token)
	assert.Equal(t, "dotenv-agent", cfg.Readwise.UserAgent)
	assert.Equal(t, "notes", cfg.Markdown.OutputDir)
}

func TestDefaultUploadsDir(t *testing.T) {
	now := time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, filepath.Join("uploads", "202403", "zotero"), defaultUploadsDir(now))
}
