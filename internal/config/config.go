package config

import (
	"errors"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Readwise
		Zotero
		Markdown
	}

	Readwise struct {
		Token         string
		UserAgent     string
		APIURL        string
		Timeout       time.Duration
		MaxRetries    int
		RetryDelay    time.Duration
		MaxRetryDelay time.Duration
	}
	Zotero struct {
		BetterBibTeXURL string
		StorageDir      string // Zotero data dir holding one folder per attachment
		UploadsSite     string // Public site serving UploadsDir
		UploadsDir      string // Where annotation images are copied, relative to the site root
	}
	Markdown struct {
		OutputDir string
	}
)

// NewConfig loads ./.env when present, then reads the environment.
func NewConfig() *Config {
	return Load(DefaultEnvFile)
}

// Load reads the given dotenv files into the process environment and builds
// the config from it. Variables already set in the environment win over the
// files, and missing files are skipped.
func Load(envFiles ...string) *Config {
	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			log.Printf("Failed to load %s: %v", file, err)
		}
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("readwise_token", "")
	v.SetDefault("user_agent", DefaultUserAgent)
	v.SetDefault("readwise_api_url", DefaultReadwiseAPIURL)
	v.SetDefault("readwise_timeout", "30s")
	v.SetDefault("readwise_max_retries", 5)
	v.SetDefault("readwise_retry_delay", "1s")
	v.SetDefault("readwise_max_retry_delay", "30s")

	v.SetDefault("zotero_bbt_url", DefaultBetterBibTeXURL)
	v.SetDefault("zotero_storage_dir", defaultZoteroStorageDir())
	v.SetDefault("uploads_site", DefaultUploadsSite)
	v.SetDefault("uploads_dir", defaultUploadsDir(time.Now()))

	v.SetDefault("markdown_output_dir", ".")

	return &Config{
		Readwise: Readwise{
			Token:         v.GetString("READWISE_TOKEN"),
			UserAgent:     v.GetString("USER_AGENT"),
			APIURL:        v.GetString("READWISE_API_URL"),
			Timeout:       v.GetDuration("READWISE_TIMEOUT"),
			MaxRetries:    v.GetInt("READWISE_MAX_RETRIES"),
			RetryDelay:    v.GetDuration("READWISE_RETRY_DELAY"),
			MaxRetryDelay: v.GetDuration("READWISE_MAX_RETRY_DELAY"),
		},
		Zotero: Zotero{
			BetterBibTeXURL: v.GetString("ZOTERO_BBT_URL"),
			StorageDir:      v.GetString("ZOTERO_STORAGE_DIR"),
			UploadsSite:     v.GetString("UPLOADS_SITE"),
			UploadsDir:      v.GetString("UPLOADS_DIR"),
		},
		Markdown: Markdown{
			OutputDir: v.GetString("MARKDOWN_OUTPUT_DIR"),
		},
	}
}

func defaultZoteroStorageDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join("Zotero", "storage")
	}
	return filepath.Join(home, "Zotero", "storage")
}

func defaultUploadsDir(now time.Time) string {
	return filepath.Join("uploads", now.Format("200601"), "zotero")
}
