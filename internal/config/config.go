package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string

	// Auth
	APIKey string

	// Managed backend (PostgREST surface)
	BackendURL string
	BackendKey string

	// Assistant
	AnthropicAPIKey           string
	AnthropicModel            string
	AnthropicBaseURL          string
	AssistantMaxContextTokens int
	AssistantRatePerMinute    int
	StatsWindow               time.Duration

	// Profile scraping
	ScrapeURL      string
	ScrapeAPIKey   string
	ScrapeCacheTTL time.Duration

	// Upload storage (S3-compatible)
	StorageBucket    string
	StorageEndpoint  string
	StorageRegion    string
	StorageAccessKey string
	StorageSecretKey string

	// SEO
	SiteBaseURL   string
	SitemapRoutes []string

	// Worker pool
	WorkerCount  int
	MaxQueueSize int

	// Request limits
	MaxUploadBytes int64
	MaxFormatBytes int64

	// Job state
	JobTTL time.Duration

	// PDF
	PDFFallbackPdftotext bool
}

// Load reads the environment, after merging a local .env file if one
// exists. Variables already set in the environment win over .env.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		Port: envOr("PORT", "8090"),

		APIKey: os.Getenv("JOBTRAIL_API_KEY"),

		BackendURL: envOr("BACKEND_URL", "http://localhost:54321"),
		BackendKey: os.Getenv("BACKEND_SERVICE_KEY"),

		AnthropicAPIKey:           os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicModel:            envOr("ANTHROPIC_MODEL", "claude-sonnet-4-5-20250929"),
		AnthropicBaseURL:          os.Getenv("ANTHROPIC_BASE_URL"),
		AssistantMaxContextTokens: envInt("ASSISTANT_MAX_CONTEXT_TOKENS", 6000),
		AssistantRatePerMinute:    envInt("ASSISTANT_RATE_PER_MINUTE", 30),
		StatsWindow:               envDuration("LLM_STATS_WINDOW", 1*time.Hour),

		ScrapeURL:      os.Getenv("SCRAPE_API_URL"),
		ScrapeAPIKey:   os.Getenv("SCRAPE_API_KEY"),
		ScrapeCacheTTL: envDuration("SCRAPE_CACHE_TTL", 6*time.Hour),

		StorageBucket:    os.Getenv("STORAGE_BUCKET"),
		StorageEndpoint:  os.Getenv("STORAGE_ENDPOINT"),
		StorageRegion:    envOr("STORAGE_REGION", "auto"),
		StorageAccessKey: os.Getenv("STORAGE_ACCESS_KEY"),
		StorageSecretKey: os.Getenv("STORAGE_SECRET_KEY"),

		SiteBaseURL:   os.Getenv("SITE_BASE_URL"),
		SitemapRoutes: envList("SITEMAP_ROUTES", []string{"/", "/features", "/pricing", "/login", "/signup"}),

		WorkerCount:  envInt("WORKER_COUNT", 4),
		MaxQueueSize: envInt("MAX_QUEUE_SIZE", 100),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 10485760), // 10MB
		MaxFormatBytes: envInt64("MAX_FORMAT_BYTES", 262144),   // 256KB

		JobTTL: envDuration("JOB_TTL", 1*time.Hour),

		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),
	}

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 10485760
	}
	if cfg.MaxFormatBytes <= 0 {
		cfg.MaxFormatBytes = 262144
	}
	if cfg.AssistantMaxContextTokens <= 0 {
		cfg.AssistantMaxContextTokens = 6000
	}
	if cfg.AssistantRatePerMinute <= 0 {
		cfg.AssistantRatePerMinute = 30
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}
	if cfg.StatsWindow <= 0 {
		cfg.StatsWindow = 1 * time.Hour
	}

	return cfg
}

// Validate rejects configurations the server cannot run with. The assistant,
// scraping and upload storage are optional and stay disabled when unset.
func (c Config) Validate() error {
	var errs []error
	if c.APIKey == "" {
		errs = append(errs, fmt.Errorf("JOBTRAIL_API_KEY is required"))
	}
	if c.BackendKey == "" {
		errs = append(errs, fmt.Errorf("BACKEND_SERVICE_KEY is required"))
	}
	if c.StorageBucket != "" && (c.StorageAccessKey == "" || c.StorageSecretKey == "") {
		errs = append(errs, fmt.Errorf("STORAGE_ACCESS_KEY and STORAGE_SECRET_KEY are required when STORAGE_BUCKET is set"))
	}
	if c.ScrapeURL != "" && !strings.HasPrefix(c.ScrapeURL, "http") {
		errs = append(errs, fmt.Errorf("SCRAPE_API_URL must be an http(s) URL"))
	}
	return errors.Join(errs...)
}

// AssistantEnabled reports whether an Anthropic key is configured.
func (c Config) AssistantEnabled() bool { return c.AnthropicAPIKey != "" }

// ScrapeEnabled reports whether profile scraping is configured.
func (c Config) ScrapeEnabled() bool { return c.ScrapeURL != "" }

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

// envList splits a comma-separated variable, dropping blank entries.
func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
