// Package config loads service settings from an optional TOML file and the
// environment. Environment variables win over the file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

type Config struct {
	Port string

	// Auth for the HTTP API.
	APIKey string

	// SQLite database file.
	DBPath string

	// Optional pathstore mirror of segmented documents. Empty URL disables it.
	PathstoreURL    string
	PathstoreAPIKey string
	PathstoreSource string

	// Q/A generation. An empty API key disables the /api/qa routes.
	AnthropicAPIKey  string
	AnthropicModel   string
	AnthropicBaseURL string
	SystemPrompt     string
	LLMRateLimit     float64 // requests per second, 0 disables
	LLMStatsWindow   time.Duration

	// Worker pool
	WorkerCount           int
	MaxQueueSize          int
	MaxConcurrentGenerate int

	// Upload limits
	MaxUploadBytes int64

	// Chunking of oversized segments before generation.
	ChunkSize    int
	ChunkOverlap int

	// Job state
	JobTTL time.Duration

	// PDF
	PDFFallbackPdftotext bool
}

const defaultMaxUpload = 50 << 20

// Defaults returns the built-in settings.
func Defaults() Config {
	return Config{
		Port:                  "8090",
		DBPath:                "data/docseg.db",
		PathstoreSource:       "docseg",
		AnthropicModel:        "claude-sonnet-4-5-20250929",
		LLMRateLimit:          2,
		LLMStatsWindow:        time.Hour,
		WorkerCount:           4,
		MaxQueueSize:          100,
		MaxConcurrentGenerate: 5,
		MaxUploadBytes:        defaultMaxUpload,
		ChunkSize:             1500,
		ChunkOverlap:          200,
		JobTTL:                time.Hour,
		PDFFallbackPdftotext:  true,
	}
}

// Load starts from Defaults, merges the TOML file named by DOCSEG_CONFIG if
// set, then applies environment overrides. Out-of-range numbers fall back
// to the defaults.
func Load() (Config, error) {
	cfg := Defaults()
	if path := os.Getenv("DOCSEG_CONFIG"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return cfg, err
		}
	}

	cfg.Port = envOr("PORT", cfg.Port)
	cfg.APIKey = envOr("DOCSEG_API_KEY", cfg.APIKey)
	cfg.DBPath = envOr("DOCSEG_DB_PATH", cfg.DBPath)

	cfg.PathstoreURL = envOr("PATHSTORE_URL", cfg.PathstoreURL)
	cfg.PathstoreAPIKey = envOr("PATHSTORE_API_KEY", cfg.PathstoreAPIKey)
	cfg.PathstoreSource = envOr("PATHSTORE_SOURCE", cfg.PathstoreSource)

	cfg.AnthropicAPIKey = envOr("ANTHROPIC_API_KEY", cfg.AnthropicAPIKey)
	cfg.AnthropicModel = envOr("ANTHROPIC_MODEL", cfg.AnthropicModel)
	cfg.AnthropicBaseURL = envOr("ANTHROPIC_BASE_URL", cfg.AnthropicBaseURL)
	cfg.SystemPrompt = envOr("SYS_PROMPT", cfg.SystemPrompt)
	cfg.LLMRateLimit = envFloat("LLM_RATE_LIMIT", cfg.LLMRateLimit)
	cfg.LLMStatsWindow = envDuration("LLM_STATS_WINDOW", cfg.LLMStatsWindow)

	cfg.WorkerCount = envInt("WORKER_COUNT", cfg.WorkerCount)
	cfg.MaxQueueSize = envInt("MAX_QUEUE_SIZE", cfg.MaxQueueSize)
	cfg.MaxConcurrentGenerate = envInt("MAX_CONCURRENT_GENERATE", cfg.MaxConcurrentGenerate)
	cfg.MaxUploadBytes = envInt64("MAX_UPLOAD_BYTES", cfg.MaxUploadBytes)
	cfg.ChunkSize = envInt("DEFAULT_CHUNK_SIZE", cfg.ChunkSize)
	cfg.ChunkOverlap = envInt("DEFAULT_CHUNK_OVERLAP", cfg.ChunkOverlap)
	cfg.JobTTL = envDuration("JOB_TTL", cfg.JobTTL)
	cfg.PDFFallbackPdftotext = envBool("PDF_FALLBACK_PDFTOTEXT", cfg.PDFFallbackPdftotext)

	cfg.clamp()
	return cfg, nil
}

func (c *Config) clamp() {
	d := Defaults()
	if c.WorkerCount <= 0 {
		c.WorkerCount = d.WorkerCount
	}
	if c.MaxQueueSize <= 0 {
		c.MaxQueueSize = d.MaxQueueSize
	}
	if c.MaxConcurrentGenerate <= 0 {
		c.MaxConcurrentGenerate = d.MaxConcurrentGenerate
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = d.MaxUploadBytes
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = d.ChunkSize
	}
	if c.ChunkOverlap < 0 {
		c.ChunkOverlap = d.ChunkOverlap
	}
	if c.LLMRateLimit < 0 {
		c.LLMRateLimit = 0
	}
	if c.LLMStatsWindow <= 0 {
		c.LLMStatsWindow = d.LLMStatsWindow
	}
	if c.JobTTL <= 0 {
		c.JobTTL = d.JobTTL
	}
}

func (c Config) Validate() error {
	if c.APIKey == "" {
		return errors.New("DOCSEG_API_KEY is required")
	}
	if c.DBPath == "" {
		return errors.New("DOCSEG_DB_PATH must not be empty")
	}
	if c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("chunk overlap %d must be smaller than chunk size %d", c.ChunkOverlap, c.ChunkSize)
	}
	if c.PathstoreURL != "" && c.PathstoreAPIKey == "" {
		return errors.New("PATHSTORE_API_KEY is required when PATHSTORE_URL is set")
	}
	return nil
}

// QAEnabled reports whether Q/A generation is configured.
func (c Config) QAEnabled() bool { return c.AnthropicAPIKey != "" }

// fileConfig mirrors the TOML layout. Durations are strings such as "90m".
type fileConfig struct {
	Server struct {
		Port           string `toml:"port"`
		APIKey         string `toml:"api_key"`
		DBPath         string `toml:"db_path"`
		MaxUploadBytes int64  `toml:"max_upload_bytes"`
	} `toml:"server"`
	Pathstore struct {
		URL    string `toml:"url"`
		APIKey string `toml:"api_key"`
		Source string `toml:"source"`
	} `toml:"pathstore"`
	LLM struct {
		APIKey       string   `toml:"api_key"`
		Model        string   `toml:"model"`
		BaseURL      string   `toml:"base_url"`
		SystemPrompt string   `toml:"system_prompt"`
		RateLimit    *float64 `toml:"rate_limit"`
		StatsWindow  string   `toml:"stats_window"`
	} `toml:"llm"`
	Pipeline struct {
		Workers               int    `toml:"workers"`
		QueueSize             int    `toml:"queue_size"`
		MaxConcurrentGenerate int    `toml:"max_concurrent_generate"`
		ChunkSize             int    `toml:"chunk_size"`
		ChunkOverlap          *int   `toml:"chunk_overlap"`
		JobTTL                string `toml:"job_ttl"`
		PDFFallbackPdftotext  *bool  `toml:"pdf_fallback_pdftotext"`
	} `toml:"pipeline"`
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var f fileConfig
	if err := toml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	setString(&c.Port, f.Server.Port)
	setString(&c.APIKey, f.Server.APIKey)
	setString(&c.DBPath, f.Server.DBPath)
	if f.Server.MaxUploadBytes > 0 {
		c.MaxUploadBytes = f.Server.MaxUploadBytes
	}

	setString(&c.PathstoreURL, f.Pathstore.URL)
	setString(&c.PathstoreAPIKey, f.Pathstore.APIKey)
	setString(&c.PathstoreSource, f.Pathstore.Source)

	setString(&c.AnthropicAPIKey, f.LLM.APIKey)
	setString(&c.AnthropicModel, f.LLM.Model)
	setString(&c.AnthropicBaseURL, f.LLM.BaseURL)
	setString(&c.SystemPrompt, f.LLM.SystemPrompt)
	if f.LLM.RateLimit != nil {
		c.LLMRateLimit = *f.LLM.RateLimit
	}
	if err := setDuration(&c.LLMStatsWindow, "llm.stats_window", f.LLM.StatsWindow); err != nil {
		return err
	}

	if f.Pipeline.Workers > 0 {
		c.WorkerCount = f.Pipeline.Workers
	}
	if f.Pipeline.QueueSize > 0 {
		c.MaxQueueSize = f.Pipeline.QueueSize
	}
	if f.Pipeline.MaxConcurrentGenerate > 0 {
		c.MaxConcurrentGenerate = f.Pipeline.MaxConcurrentGenerate
	}
	if f.Pipeline.ChunkSize > 0 {
		c.ChunkSize = f.Pipeline.ChunkSize
	}
	if f.Pipeline.ChunkOverlap != nil {
		c.ChunkOverlap = *f.Pipeline.ChunkOverlap
	}
	if f.Pipeline.PDFFallbackPdftotext != nil {
		c.PDFFallbackPdftotext = *f.Pipeline.PDFFallbackPdftotext
	}
	return setDuration(&c.JobTTL, "pipeline.job_ttl", f.Pipeline.JobTTL)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, key, v string) error {
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("config file %s: %w", key, err)
	}
	*dst = d
	return nil
}

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

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
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
